package scanning

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Extractor", func() {
	var (
		model     *mockModel
		extractor *Extractor
		img       Image
		ctx       context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		model = newMockModel()
		clock := func() time.Time { return time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC) }
		extractor = NewExtractor(model, WithClock(clock))
		img = Image{Data: []byte("png-bytes"), MIMEType: "image/png"}
	})

	Describe("ProcessReceiptImage", func() {
		When("the model replies with items", func() {
			BeforeEach(func() {
				model.replies[itemsPrompt] = "```json\n" + `{"items": [{"name": "Bananas", "quantity": 1.23, "unit": "kg", "price": 3.08}]}` + "\n```"
			})

			It("returns them", func() {
				items, err := extractor.ProcessReceiptImage(ctx, img)
				Expect(err).NotTo(HaveOccurred())
				Expect(items).To(HaveLen(1))
				Expect(items[0].Name).To(Equal("Bananas"))
				Expect(items[0].IsWeightBased).To(BeTrue())
				Expect(items[0].ExpiryDate).To(Equal("2024-03-22"))
			})

			It("sends the prepared PNG", func() {
				_, _ = extractor.ProcessReceiptImage(ctx, img)
				Expect(model.images).To(HaveLen(1))
				Expect(model.images[0].MIMEType).To(Equal("image/png"))
			})
		})

		When("the reply is not JSON", func() {
			BeforeEach(func() {
				model.replies[itemsPrompt] = "Sorry, the image is too blurry."
			})

			It("returns an empty list without an error", func() {
				items, err := extractor.ProcessReceiptImage(ctx, img)
				Expect(err).NotTo(HaveOccurred())
				Expect(items).NotTo(BeNil())
				Expect(items).To(BeEmpty())
			})
		})

		When("the model call fails", func() {
			BeforeEach(func() {
				model.err = errors.New("connection refused")
			})

			It("returns an empty list without an error", func() {
				items, err := extractor.ProcessReceiptImage(ctx, img)
				Expect(err).NotTo(HaveOccurred())
				Expect(items).To(BeEmpty())
			})
		})

		When("the API key is missing", func() {
			BeforeEach(func() {
				model.err = ErrMissingAPIKey
			})

			It("returns the error", func() {
				_, err := extractor.ProcessReceiptImage(ctx, img)
				Expect(err).To(MatchError(ErrMissingAPIKey))
			})
		})

		When("the image cannot be converted", func() {
			BeforeEach(func() {
				img = Image{Data: []byte("not an image"), MIMEType: "image/jpeg"}
			})

			It("does not call the model", func() {
				items, err := extractor.ProcessReceiptImage(ctx, img)
				Expect(err).NotTo(HaveOccurred())
				Expect(items).To(BeEmpty())
				Expect(model.prompts).To(BeEmpty())
			})
		})
	})

	Describe("ExtractStoreFromReceipt", func() {
		It("returns the store", func() {
			model.replies[storePrompt] = `{"name": "ALPHAMEGA", "location": "Limassol"}`
			info, err := extractor.ExtractStoreFromReceipt(ctx, img)
			Expect(err).NotTo(HaveOccurred())
			Expect(info).To(Equal(StoreInfo{Name: "ALPHAMEGA", Location: "Limassol"}))
		})

		It("falls back to unknown values on failure", func() {
			model.err = errors.New("timeout")
			info, err := extractor.ExtractStoreFromReceipt(ctx, img)
			Expect(err).NotTo(HaveOccurred())
			Expect(info.Name).To(Equal("Unknown Store"))
			Expect(info.Location).To(Equal("Unknown Location"))
		})
	})

	Describe("ExtractReceiptDetails", func() {
		It("returns the details", func() {
			model.replies[detailsPrompt] = `{"date": "2024-03-15", "totalAmount": 3.08, "language": "Greek"}`
			details, err := extractor.ExtractReceiptDetails(ctx, img)
			Expect(err).NotTo(HaveOccurred())
			Expect(details.Date).To(Equal("2024-03-15"))
			Expect(*details.TotalAmount).To(Equal(3.08))
			Expect(details.Language).To(Equal("Greek"))
		})

		It("returns empty details on a bad reply", func() {
			model.replies[detailsPrompt] = `[1, 2, 3]`
			details, err := extractor.ExtractReceiptDetails(ctx, img)
			Expect(err).NotTo(HaveOccurred())
			Expect(details).To(Equal(ReceiptDetails{}))
		})
	})

	Describe("Scan", func() {
		BeforeEach(func() {
			model.replies[itemsPrompt] = `{"items": [{"name": "Milk", "price": 1.2}]}`
			model.replies[storePrompt] = `{"name": "LIDL", "location": "Nicosia"}`
			model.replies[detailsPrompt] = `{"paymentMethod": "CASH"}`
		})

		It("runs all three extractions", func() {
			scan, err := extractor.Scan(ctx, img)
			Expect(err).NotTo(HaveOccurred())
			Expect(scan.Items).To(HaveLen(1))
			Expect(scan.Store.Name).To(Equal("LIDL"))
			Expect(scan.Details.PaymentMethod).To(Equal("CASH"))
			Expect(model.prompts).To(ConsistOf(itemsPrompt, storePrompt, detailsPrompt))
		})

		It("fails when the API key is missing", func() {
			model.err = ErrMissingAPIKey
			_, err := extractor.Scan(ctx, img)
			Expect(err).To(MatchError(ErrMissingAPIKey))
		})
	})

	It("closes the model", func() {
		Expect(extractor.Close()).To(Succeed())
		Expect(model.closed).To(BeTrue())
	})
})
