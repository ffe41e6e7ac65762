package receipt

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/zombor/pantry-tracker/internal/parsing"
)

func uploadRequest(filename, contentType string, data []byte) *http.Request {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
	if contentType != "" {
		header.Set("Content-Type", contentType)
	}
	part, err := w.CreatePart(header)
	Expect(err).NotTo(HaveOccurred())
	_, err = part.Write(data)
	Expect(err).NotTo(HaveOccurred())
	Expect(w.Close()).To(Succeed())

	req := httptest.NewRequest(http.MethodPost, "/api/receipts/scan", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func decodeBody[T any](rec *httptest.ResponseRecorder) T {
	var v T
	Expect(json.Unmarshal(rec.Body.Bytes(), &v)).To(Succeed())
	return v
}

var _ = Describe("Server", func() {
	var (
		db      *mockDB
		storage *mockStorage
		scanner *mockScanner
		auth    BasicAuth
		server  *Server
		req     *http.Request
		rec     *httptest.ResponseRecorder
	)

	BeforeEach(func() {
		db = newMockDB()
		storage = newMockStorage()
		scanner = newMockScanner()
		auth = BasicAuth{}
	})

	JustBeforeEach(func() {
		clock := fixedClock{now: time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)}
		service := NewServiceWithDeps(db, parsing.NewRegistry(), scanner, storage, &sequenceIDs{}, clock)
		server = NewServerWithMux(service, auth, http.NewServeMux())
		rec = httptest.NewRecorder()
		server.ServeHTTP(rec, req)
	})

	Describe("POST /api/receipts/parse", func() {
		When("the body is JSON", func() {
			BeforeEach(func() {
				body, _ := json.Marshal(map[string]string{"text": lidlReceipt, "store": "Lidl"})
				req = httptest.NewRequest(http.MethodPost, "/api/receipts/parse", bytes.NewReader(body))
				req.Header.Set("Content-Type", "application/json; charset=utf-8")
			})

			It("returns the parsed receipt", func() {
				Expect(rec.Code).To(Equal(http.StatusCreated))
				receipt := decodeBody[Receipt](rec)
				Expect(receipt.ID).To(Equal("id-1"))
				Expect(receipt.Parser).To(Equal("lidl"))
				Expect(receipt.Parsed.Footer.TotalAmount).To(Equal(3.08))
			})

			It("sets CORS headers", func() {
				Expect(rec.Header().Get("Access-Control-Allow-Origin")).To(Equal("*"))
			})
		})

		When("the body is plain text", func() {
			BeforeEach(func() {
				req = httptest.NewRequest(http.MethodPost, "/api/receipts/parse?store=unknown", strings.NewReader(lidlReceipt))
				req.Header.Set("Content-Type", "text/plain")
			})

			It("uses the store from the query", func() {
				Expect(rec.Code).To(Equal(http.StatusCreated))
				Expect(decodeBody[Receipt](rec).Parser).To(Equal("generic"))
			})
		})

		When("the JSON is malformed", func() {
			BeforeEach(func() {
				req = httptest.NewRequest(http.MethodPost, "/api/receipts/parse", strings.NewReader("{"))
				req.Header.Set("Content-Type", "application/json")
			})

			It("returns bad request", func() {
				Expect(rec.Code).To(Equal(http.StatusBadRequest))
			})
		})

		When("the text is empty", func() {
			BeforeEach(func() {
				req = httptest.NewRequest(http.MethodPost, "/api/receipts/parse", strings.NewReader(""))
			})

			It("returns bad request with a JSON error", func() {
				Expect(rec.Code).To(Equal(http.StatusBadRequest))
				Expect(decodeBody[map[string]string](rec)).To(HaveKeyWithValue("error", ErrEmptyReceipt.Error()))
			})
		})
	})

	Describe("POST /api/receipts/scan", func() {
		When("a file is uploaded", func() {
			BeforeEach(func() {
				req = uploadRequest("photo.heic", "", []byte("heic-bytes"))
			})

			It("scans it", func() {
				Expect(rec.Code).To(Equal(http.StatusCreated))
				receipt := decodeBody[Receipt](rec)
				Expect(receipt.Source).To(Equal(SourceImage))
				Expect(receipt.ItemCount).To(Equal(2))
			})

			It("infers the content type from the extension", func() {
				Expect(scanner.images).To(HaveLen(1))
				Expect(scanner.images[0].MIMEType).To(Equal("image/heic"))
			})
		})

		When("the scanner fails", func() {
			BeforeEach(func() {
				scanner.scanErr = errors.New("model offline")
				req = uploadRequest("photo.jpg", "image/jpeg", []byte("jpeg"))
			})

			It("returns bad gateway", func() {
				Expect(rec.Code).To(Equal(http.StatusBadGateway))
			})
		})

		When("no file is sent", func() {
			BeforeEach(func() {
				var body bytes.Buffer
				w := multipart.NewWriter(&body)
				Expect(w.WriteField("note", "nothing")).To(Succeed())
				Expect(w.Close()).To(Succeed())
				req = httptest.NewRequest(http.MethodPost, "/api/receipts/scan", &body)
				req.Header.Set("Content-Type", w.FormDataContentType())
			})

			It("returns bad request", func() {
				Expect(rec.Code).To(Equal(http.StatusBadRequest))
			})
		})

		When("the body is not multipart", func() {
			BeforeEach(func() {
				req = httptest.NewRequest(http.MethodPost, "/api/receipts/scan", strings.NewReader("hello"))
			})

			It("returns bad request", func() {
				Expect(rec.Code).To(Equal(http.StatusBadRequest))
			})
		})
	})

	Describe("GET /api/receipts", func() {
		When("receipts exist", func() {
			BeforeEach(func() {
				db.receipts["a"] = &Receipt{ID: "a", Store: "Lidl"}
				req = httptest.NewRequest(http.MethodGet, "/api/receipts", nil)
			})

			It("lists them", func() {
				Expect(rec.Code).To(Equal(http.StatusOK))
				receipts := decodeBody[[]Receipt](rec)
				Expect(receipts).To(HaveLen(1))
				Expect(receipts[0].Store).To(Equal("Lidl"))
			})
		})

		When("the database fails", func() {
			BeforeEach(func() {
				db.listErr = errors.New("corrupt")
				req = httptest.NewRequest(http.MethodGet, "/api/receipts", nil)
			})

			It("returns internal server error", func() {
				Expect(rec.Code).To(Equal(http.StatusInternalServerError))
			})
		})
	})

	Describe("GET /api/receipts/{id}", func() {
		BeforeEach(func() {
			db.receipts["a"] = &Receipt{ID: "a"}
		})

		When("the receipt exists", func() {
			BeforeEach(func() {
				req = httptest.NewRequest(http.MethodGet, "/api/receipts/a", nil)
			})

			It("returns it", func() {
				Expect(rec.Code).To(Equal(http.StatusOK))
				Expect(decodeBody[Receipt](rec).ID).To(Equal("a"))
			})
		})

		When("the receipt is missing", func() {
			BeforeEach(func() {
				req = httptest.NewRequest(http.MethodGet, "/api/receipts/b", nil)
			})

			It("returns not found", func() {
				Expect(rec.Code).To(Equal(http.StatusNotFound))
			})
		})
	})

	Describe("GET /api/receipts/{id}/file", func() {
		BeforeEach(func() {
			db.receipts["a"] = &Receipt{ID: "a", Filename: "a_photo.png", ContentType: "image/png"}
			storage.files["a_photo.png"] = []byte("png-data")
			req = httptest.NewRequest(http.MethodGet, "/api/receipts/a/file", nil)
		})

		It("serves the file", func() {
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Header().Get("Content-Type")).To(Equal("image/png"))
			Expect(rec.Body.String()).To(Equal("png-data"))
		})
	})

	Describe("DELETE /api/receipts/{id}", func() {
		When("the receipt exists", func() {
			BeforeEach(func() {
				db.receipts["a"] = &Receipt{ID: "a"}
				req = httptest.NewRequest(http.MethodDelete, "/api/receipts/a", nil)
			})

			It("returns no content", func() {
				Expect(rec.Code).To(Equal(http.StatusNoContent))
				Expect(db.receipts).To(BeEmpty())
			})
		})

		When("the receipt is missing", func() {
			BeforeEach(func() {
				req = httptest.NewRequest(http.MethodDelete, "/api/receipts/a", nil)
			})

			It("returns not found", func() {
				Expect(rec.Code).To(Equal(http.StatusNotFound))
			})
		})
	})

	Describe("preflight requests", func() {
		BeforeEach(func() {
			req = httptest.NewRequest(http.MethodOptions, "/api/receipts", nil)
		})

		It("answers without auth", func() {
			Expect(rec.Code).To(Equal(http.StatusNoContent))
			Expect(rec.Header().Get("Access-Control-Allow-Methods")).To(ContainSubstring("DELETE"))
		})
	})

	Describe("basic auth", func() {
		BeforeEach(func() {
			auth = BasicAuth{Username: "pantry", Password: "secret"}
			req = httptest.NewRequest(http.MethodGet, "/api/receipts", nil)
		})

		When("credentials are missing", func() {
			It("returns unauthorized", func() {
				Expect(rec.Code).To(Equal(http.StatusUnauthorized))
				Expect(rec.Header().Get("WWW-Authenticate")).To(ContainSubstring("Pantry Tracker"))
			})
		})

		When("credentials are wrong", func() {
			BeforeEach(func() {
				req.SetBasicAuth("pantry", "guess")
			})

			It("returns unauthorized", func() {
				Expect(rec.Code).To(Equal(http.StatusUnauthorized))
			})
		})

		When("credentials match", func() {
			BeforeEach(func() {
				req.SetBasicAuth("pantry", "secret")
			})

			It("serves the request", func() {
				Expect(rec.Code).To(Equal(http.StatusOK))
			})
		})

		When("hitting the health check", func() {
			BeforeEach(func() {
				req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
			})

			It("needs no credentials", func() {
				Expect(rec.Code).To(Equal(http.StatusOK))
				body, _ := io.ReadAll(rec.Body)
				Expect(string(body)).To(ContainSubstring("ok"))
			})
		})
	})
})
