package scanning

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("extractJSON", func() {
	It("strips markdown fences", func() {
		raw, err := extractJSON("```json\n{\"name\": \"LIDL\"}\n```")
		Expect(err).NotTo(HaveOccurred())
		Expect(string(raw)).To(Equal(`{"name": "LIDL"}`))
	})

	It("drops text around the object", func() {
		raw, err := extractJSON(`Here you go: {"a": 1} hope that helps`)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(raw)).To(Equal(`{"a": 1}`))
	})

	It("fails without an object", func() {
		_, err := extractJSON("I cannot read this receipt")
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("decodeItems", func() {
	var (
		reply string
		now   time.Time
		items []Item
		err   error
	)

	BeforeEach(func() {
		now = time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	})

	JustBeforeEach(func() {
		items, err = decodeItems(reply, now)
	})

	When("numbers arrive as strings", func() {
		BeforeEach(func() {
			reply = `{"items": [{"name": "ΓΑΛΑ ΦΡΕΣΚΟ", "quantity": "2", "unit": "τεμ", "price": "3,18"}]}`
		})

		It("parses them", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(items).To(HaveLen(1))
			Expect(items[0].Quantity).To(Equal(2.0))
			Expect(items[0].Price).To(Equal(3.18))
			Expect(items[0].Unit).To(Equal("pieces"))
		})

		It("infers the expiry date from the category", func() {
			Expect(items[0].Category).To(Equal(FoodDairy))
			Expect(items[0].ExpiryDate).To(Equal("2024-03-22"))
		})
	})

	When("the reply is a fenced bare array", func() {
		BeforeEach(func() {
			reply = "```json\n[{\"name\": \"Milk\", \"quantity\": 1, \"unit\": \"pieces\", \"price\": 1.5}]\n```"
		})

		It("decodes the items", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(items).To(HaveLen(1))
			Expect(items[0].Name).To(Equal("Milk"))
			Expect(items[0].Price).To(Equal(1.5))
		})
	})

	When("a bare array holds an item without a name", func() {
		BeforeEach(func() {
			reply = `[{"price": 1.5}]`
		})

		It("fails schema validation", func() {
			Expect(err).To(MatchError(ContainSubstring("does not match schema")))
		})
	})

	When("the weight flag is missing", func() {
		BeforeEach(func() {
			reply = `{"items": [{"name": "Bananas", "quantity": 1.23, "unit": "κιλά", "price": 3.08, "pricePerUnit": 2.5}]}`
		})

		It("derives it from the unit", func() {
			Expect(items[0].IsWeightBased).To(BeTrue())
			Expect(items[0].Unit).To(Equal("kg"))
			Expect(*items[0].PricePerUnit).To(Equal(2.5))
		})
	})

	When("the model sets the weight flag", func() {
		BeforeEach(func() {
			reply = `{"items": [{"name": "Rice", "quantity": 1, "unit": "kg", "price": 2.1, "isWeightBased": false}]}`
		})

		It("keeps the model's answer", func() {
			Expect(items[0].IsWeightBased).To(BeFalse())
		})
	})

	When("quantity is zero and an expiry date is printed", func() {
		BeforeEach(func() {
			reply = `{"items": [{"name": "Frozen Peas", "quantity": 0, "price": 1.5, "expiryDate": "2024-12-01"}]}`
		})

		It("defaults the quantity and keeps the date", func() {
			Expect(items[0].Quantity).To(Equal(1.0))
			Expect(items[0].ExpiryDate).To(Equal("2024-12-01"))
			Expect(items[0].Category).To(Equal(FoodFrozen))
		})
	})

	When("the expiry date is unreadable", func() {
		BeforeEach(func() {
			reply = `{"items": [{"name": "Chicken breast", "price": 5, "expiryDate": "soon"}]}`
		})

		It("falls back to the shelf life", func() {
			Expect(items[0].ExpiryDate).To(Equal("2024-03-18"))
		})
	})

	When("an item has no name", func() {
		BeforeEach(func() {
			reply = `{"items": [{"name": "  ", "price": 1}, {"name": "Bread", "price": 1.2}]}`
		})

		It("drops it", func() {
			Expect(items).To(HaveLen(1))
			Expect(items[0].Name).To(Equal("Bread"))
		})
	})

	When("the reply does not match the schema", func() {
		BeforeEach(func() {
			reply = `{"items": "none"}`
		})

		It("returns an error", func() {
			Expect(err).To(HaveOccurred())
		})
	})
})

var _ = Describe("decodeStore", func() {
	It("fills defaults and accepts numeric fields", func() {
		info, err := decodeStore(`{"name": "LIDL", "location": null, "vatNumber": "10012345X", "phone": 22123456}`)
		Expect(err).NotTo(HaveOccurred())
		Expect(info.Name).To(Equal("LIDL"))
		Expect(info.Location).To(Equal(unknownLocation))
		Expect(info.VATNumber).To(Equal("10012345X"))
		Expect(info.Phone).To(Equal("22123456"))
	})

	It("defaults an empty name", func() {
		info, err := decodeStore(`{"name": ""}`)
		Expect(err).NotTo(HaveOccurred())
		Expect(info.Name).To(Equal(unknownStore))
	})
})

var _ = Describe("decodeDetails", func() {
	var (
		details ReceiptDetails
		err     error
	)

	BeforeEach(func() {
		details, err = decodeDetails(`{
			"receiptNumber": 4521,
			"date": "15/03/2024",
			"time": "14:32",
			"paymentMethod": "visa",
			"totalAmount": "12,40",
			"vatBreakdown": [{"rate": 19, "amount": 1.98, "netAmount": 10.42, "grossAmount": 12.40}]
		}`)
	})

	It("normalizes the values", func() {
		Expect(err).NotTo(HaveOccurred())
		Expect(details.ReceiptNumber).To(Equal("4521"))
		Expect(details.Date).To(Equal("2024-03-15"))
		Expect(details.Time).To(Equal("14:32:00"))
		Expect(details.PaymentMethod).To(Equal("VISA"))
		Expect(*details.TotalAmount).To(Equal(12.4))
	})

	It("reads the VAT breakdown", func() {
		Expect(details.VATBreakdown).To(HaveLen(1))
		Expect(details.VATBreakdown[0].Rate).To(Equal(19.0))
		Expect(*details.VATBreakdown[0].NetAmount).To(Equal(10.42))
	})

	It("defaults the language", func() {
		Expect(details.Language).To(Equal("English"))
	})
})
