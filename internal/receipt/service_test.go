package receipt

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/zombor/pantry-tracker/internal/parsing"
	"github.com/zombor/pantry-tracker/internal/scanning"
)

var _ = Describe("Service", func() {
	var (
		db      *mockDB
		storage *mockStorage
		scanner *mockScanner
		service *Service
		now     time.Time
	)

	BeforeEach(func() {
		db = newMockDB()
		storage = newMockStorage()
		scanner = newMockScanner()
		now = time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
		service = NewServiceWithDeps(db, parsing.NewRegistry(), scanner, storage, &sequenceIDs{}, fixedClock{now: now})
	})

	Describe("ParseText", func() {
		var (
			text    string
			store   string
			receipt *Receipt
			err     error
		)

		BeforeEach(func() {
			text = lidlReceipt
			store = ""
		})

		JustBeforeEach(func() {
			receipt, err = service.ParseText(text, store)
		})

		When("the store is detected from the text", func() {
			It("parses with the matching strategy", func() {
				Expect(err).NotTo(HaveOccurred())
				Expect(receipt.Parser).To(Equal("lidl"))
				Expect(receipt.Source).To(Equal(SourceText))
			})

			It("summarizes the parsed receipt", func() {
				Expect(receipt.ID).To(Equal("id-1"))
				Expect(receipt.Store).To(ContainSubstring("LIDL"))
				Expect(receipt.Date).To(Equal("2024-03-15"))
				Expect(receipt.Total).NotTo(BeNil())
				Expect(*receipt.Total).To(Equal(3.08))
				Expect(receipt.ItemCount).To(Equal(1))
				Expect(receipt.CreatedAt).To(Equal(now))
			})

			It("archives the receipt", func() {
				Expect(db.receipts).To(HaveKey("id-1"))
				Expect(db.receipts["id-1"].Parsed.RawText).To(Equal(lidlReceipt))
			})
		})

		When("a store is given", func() {
			BeforeEach(func() {
				store = "Some Corner Shop"
			})

			It("uses the strategy for that store", func() {
				Expect(err).NotTo(HaveOccurred())
				Expect(receipt.Parser).To(Equal("generic"))
			})
		})

		When("the text is blank", func() {
			BeforeEach(func() {
				text = "  \n "
			})

			It("returns ErrEmptyReceipt", func() {
				Expect(err).To(MatchError(ErrEmptyReceipt))
				Expect(db.receipts).To(BeEmpty())
			})
		})

		When("the database fails", func() {
			BeforeEach(func() {
				db.saveErr = errors.New("disk full")
			})

			It("returns the error", func() {
				Expect(err).To(MatchError(ContainSubstring("disk full")))
			})
		})
	})

	Describe("ScanImage", func() {
		var (
			receipt *Receipt
			err     error
		)

		JustBeforeEach(func() {
			receipt, err = service.ScanImage(context.Background(), "IMG 2024 (1).JPG", []byte("jpeg-data"), "image/jpeg")
		})

		When("scanning succeeds", func() {
			It("stores the file under a clean name", func() {
				Expect(err).NotTo(HaveOccurred())
				Expect(receipt.Filename).To(Equal("id-1_IMG 2024 1.jpg"))
				Expect(storage.files).To(HaveKeyWithValue("id-1_IMG 2024 1.jpg", []byte("jpeg-data")))
			})

			It("passes the upload to the scanner", func() {
				Expect(scanner.images).To(ConsistOf(scanning.Image{Data: []byte("jpeg-data"), MIMEType: "image/jpeg"}))
			})

			It("summarizes the scan", func() {
				Expect(receipt.Source).To(Equal(SourceImage))
				Expect(receipt.Store).To(Equal("Lidl"))
				Expect(receipt.Date).To(Equal("2024-03-15"))
				Expect(*receipt.Total).To(Equal(4.27))
				Expect(receipt.ItemCount).To(Equal(2))
				Expect(receipt.ContentType).To(Equal("image/jpeg"))
				Expect(db.receipts).To(HaveKey("id-1"))
			})
		})

		When("the scanner fails", func() {
			BeforeEach(func() {
				scanner.scanErr = scanning.ErrMissingAPIKey
			})

			It("returns the error and removes the file", func() {
				Expect(err).To(MatchError(scanning.ErrMissingAPIKey))
				Expect(storage.files).To(BeEmpty())
				Expect(db.receipts).To(BeEmpty())
			})
		})

		When("the database fails", func() {
			BeforeEach(func() {
				db.saveErr = errors.New("disk full")
			})

			It("removes the file", func() {
				Expect(err).To(HaveOccurred())
				Expect(storage.files).To(BeEmpty())
			})
		})

		When("storage fails", func() {
			BeforeEach(func() {
				storage.saveErr = errors.New("read-only")
			})

			It("does not scan", func() {
				Expect(err).To(MatchError(ContainSubstring("saving file")))
				Expect(scanner.images).To(BeEmpty())
			})
		})

		When("no scanner is configured", func() {
			BeforeEach(func() {
				service = NewServiceWithDeps(db, nil, nil, storage, &sequenceIDs{}, fixedClock{now: now})
			})

			It("returns ErrScanningDisabled", func() {
				Expect(err).To(MatchError(ErrScanningDisabled))
			})
		})
	})

	Describe("GetReceipt", func() {
		It("returns ErrNotFound for unknown IDs", func() {
			_, err := service.GetReceipt("missing")
			Expect(errors.Is(err, ErrNotFound)).To(BeTrue())
		})

		It("returns archived receipts", func() {
			db.receipts["abc"] = &Receipt{ID: "abc"}
			receipt, err := service.GetReceipt("abc")
			Expect(err).NotTo(HaveOccurred())
			Expect(receipt.ID).To(Equal("abc"))
		})
	})

	Describe("ListReceipts", func() {
		When("the database fails", func() {
			BeforeEach(func() {
				db.listErr = errors.New("corrupt")
			})

			It("wraps the error", func() {
				_, err := service.ListReceipts()
				Expect(err).To(MatchError(ContainSubstring("listing receipts")))
			})
		})
	})

	Describe("DeleteReceipt", func() {
		BeforeEach(func() {
			db.receipts["img"] = &Receipt{ID: "img", Filename: "img_photo.jpg"}
			db.receipts["txt"] = &Receipt{ID: "txt"}
			storage.files["img_photo.jpg"] = []byte("data")
		})

		It("removes the receipt and its file", func() {
			Expect(service.DeleteReceipt("img")).To(Succeed())
			Expect(db.receipts).NotTo(HaveKey("img"))
			Expect(storage.files).To(BeEmpty())
		})

		It("removes text receipts", func() {
			Expect(service.DeleteReceipt("txt")).To(Succeed())
			Expect(db.receipts).NotTo(HaveKey("txt"))
		})

		It("still deletes the record when the file cannot be removed", func() {
			storage.deleteErr = errors.New("busy")
			Expect(service.DeleteReceipt("img")).To(Succeed())
			Expect(db.receipts).NotTo(HaveKey("img"))
		})

		It("returns ErrNotFound for unknown IDs", func() {
			Expect(errors.Is(service.DeleteReceipt("missing"), ErrNotFound)).To(BeTrue())
		})
	})

	Describe("GetReceiptFile", func() {
		BeforeEach(func() {
			db.receipts["img"] = &Receipt{ID: "img", Filename: "img_photo.png", ContentType: "image/png"}
			db.receipts["txt"] = &Receipt{ID: "txt"}
			storage.files["img_photo.png"] = []byte("png")
		})

		It("returns the file and its content type", func() {
			data, contentType, err := service.GetReceiptFile("img")
			Expect(err).NotTo(HaveOccurred())
			Expect(data).To(Equal([]byte("png")))
			Expect(contentType).To(Equal("image/png"))
		})

		It("returns ErrNotFound for text receipts", func() {
			_, _, err := service.GetReceiptFile("txt")
			Expect(errors.Is(err, ErrNotFound)).To(BeTrue())
		})
	})
})

var _ = Describe("sanitizeFilename", func() {
	DescribeTable("cleans names",
		func(in, want string) {
			Expect(sanitizeFilename(in)).To(Equal(want))
		},
		Entry("keeps simple names", "receipt.png", "receipt.png"),
		Entry("drops punctuation", "IMG_2024-03-15 (copy)!.JPG", "IMG_2024-03-15 copy.jpg"),
		Entry("keeps Greek letters", "απόδειξη.pdf", "απόδειξη.pdf"),
		Entry("strips directories", "../../etc/passwd", "passwd"),
		Entry("defaults empty names", "???.png", "receipt.png"),
		Entry("handles no name", "", "receipt"),
	)

	It("truncates long names", func() {
		long := "a"
		for len(long) < 80 {
			long += "a"
		}
		Expect(sanitizeFilename(long + ".jpg")).To(HaveLen(54))
	})
})
