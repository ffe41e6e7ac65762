package scanning

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/zombor/pantry-tracker/internal/parsing"
)

const (
	unknownStore    = "Unknown Store"
	unknownLocation = "Unknown Location"
)

// Item is a pantry item read from a receipt image.
type Item struct {
	Name          string       `json:"name"`
	Quantity      float64      `json:"quantity"`
	Unit          string       `json:"unit"`
	Price         float64      `json:"price"`
	PricePerUnit  *float64     `json:"pricePerUnit,omitempty"`
	IsWeightBased bool         `json:"isWeightBased"`
	ExpiryDate    string       `json:"expiryDate"` // YYYY-MM-DD
	Category      FoodCategory `json:"category"`
}

// StoreInfo identifies the issuing store. Name and Location are never empty.
type StoreInfo struct {
	Name      string `json:"name"`
	Location  string `json:"location"`
	Phone     string `json:"phone,omitempty"`
	Fax       string `json:"fax,omitempty"`
	VATNumber string `json:"vatNumber,omitempty"`
	TaxID     string `json:"taxId,omitempty"`
}

func (s StoreInfo) withDefaults() StoreInfo {
	s.Name = strings.TrimSpace(s.Name)
	s.Location = strings.TrimSpace(s.Location)
	if s.Name == "" {
		s.Name = unknownStore
	}
	if s.Location == "" {
		s.Location = unknownLocation
	}
	return s
}

// ReceiptDetails holds transaction metadata read from a receipt image.
type ReceiptDetails struct {
	ReceiptNumber string             `json:"receiptNumber,omitempty"`
	Date          string             `json:"date,omitempty"`
	Time          string             `json:"time,omitempty"`
	Cashier       string             `json:"cashier,omitempty"`
	PaymentMethod string             `json:"paymentMethod,omitempty"`
	TotalAmount   *float64           `json:"totalAmount,omitempty"`
	VATBreakdown  []parsing.VATEntry `json:"vatBreakdown,omitempty"`
	Language      string             `json:"language,omitempty"`
}

// Scan is everything read from one receipt image.
type Scan struct {
	Items   []Item         `json:"items"`
	Store   StoreInfo      `json:"store"`
	Details ReceiptDetails `json:"details"`
}

// Extractor reads receipt images with a vision model. Apart from ErrMissingAPIKey, failures
// are logged and replaced with empty results so one bad reply never aborts a receipt.
type Extractor struct {
	model Model
	log   *slog.Logger
	now   func() time.Time
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithLogger sets the logger; the default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Extractor) {
		if l != nil {
			e.log = l
		}
	}
}

// WithClock sets the time source used for default expiry dates.
func WithClock(now func() time.Time) Option {
	return func(e *Extractor) {
		if now != nil {
			e.now = now
		}
	}
}

// NewExtractor creates an Extractor backed by model.
func NewExtractor(model Model, opts ...Option) *Extractor {
	e := &Extractor{
		model: model,
		log:   slog.Default(),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// generate prepares the image and runs one prompt. Errors are logged here.
func (e *Extractor) generate(ctx context.Context, kind, prompt string, img Image) (string, error) {
	rid := uuid.New().String()
	start := time.Now()

	prepared, err := prepareImage(img)
	if err != nil {
		e.log.Error("Failed to prepare receipt image", "req_id", rid, "kind", kind, "content_type", img.MIMEType, "error", err)
		return "", err
	}

	text, err := e.model.Generate(ctx, prompt, prepared)
	if err != nil {
		e.log.Error("Vision model call failed", "req_id", rid, "kind", kind, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds())
		return "", err
	}
	e.log.Info("Vision model replied", "req_id", rid, "kind", kind, "reply_len", len(text),
		"elapsed_ms", time.Since(start).Milliseconds())
	return text, nil
}

// ProcessReceiptImage returns the purchased items, with inferred expiry dates where none are printed.
func (e *Extractor) ProcessReceiptImage(ctx context.Context, img Image) ([]Item, error) {
	text, err := e.generate(ctx, "items", itemsPrompt, img)
	if err != nil {
		if errors.Is(err, ErrMissingAPIKey) {
			return nil, err
		}
		return []Item{}, nil
	}
	items, err := decodeItems(text, e.now())
	if err != nil {
		e.log.Error("Failed to decode vision reply", "kind", "items", "error", err)
		return []Item{}, nil
	}
	return items, nil
}

// ExtractStoreFromReceipt returns the store identity, defaulting to Unknown Store / Unknown Location.
func (e *Extractor) ExtractStoreFromReceipt(ctx context.Context, img Image) (StoreInfo, error) {
	fallback := StoreInfo{}.withDefaults()
	text, err := e.generate(ctx, "store", storePrompt, img)
	if err != nil {
		if errors.Is(err, ErrMissingAPIKey) {
			return fallback, err
		}
		return fallback, nil
	}
	info, err := decodeStore(text)
	if err != nil {
		e.log.Error("Failed to decode vision reply", "kind", "store", "error", err)
		return fallback, nil
	}
	return info, nil
}

// ExtractReceiptDetails returns transaction metadata with dates as YYYY-MM-DD.
func (e *Extractor) ExtractReceiptDetails(ctx context.Context, img Image) (ReceiptDetails, error) {
	text, err := e.generate(ctx, "details", detailsPrompt, img)
	if err != nil {
		if errors.Is(err, ErrMissingAPIKey) {
			return ReceiptDetails{}, err
		}
		return ReceiptDetails{}, nil
	}
	details, err := decodeDetails(text)
	if err != nil {
		e.log.Error("Failed to decode vision reply", "kind", "details", "error", err)
		return ReceiptDetails{}, nil
	}
	return details, nil
}

// Scan runs the three extractions concurrently on one image.
func (e *Extractor) Scan(ctx context.Context, img Image) (*Scan, error) {
	prepared, err := prepareImage(img)
	if err != nil {
		e.log.Error("Failed to prepare receipt image", "content_type", img.MIMEType, "error", err)
		return &Scan{Items: []Item{}, Store: StoreInfo{}.withDefaults()}, nil
	}

	var s Scan
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		s.Items, err = e.ProcessReceiptImage(ctx, prepared)
		return err
	})
	g.Go(func() (err error) {
		s.Store, err = e.ExtractStoreFromReceipt(ctx, prepared)
		return err
	})
	g.Go(func() (err error) {
		s.Details, err = e.ExtractReceiptDetails(ctx, prepared)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("scanning receipt: %w", err)
	}
	return &s, nil
}

// Close releases the underlying model.
func (e *Extractor) Close() error {
	return e.model.Close()
}
