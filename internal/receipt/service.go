package receipt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/zombor/pantry-tracker/internal/parsing"
	"github.com/zombor/pantry-tracker/internal/scanning"
)

var (
	// ErrEmptyReceipt is returned when there is no text to parse
	ErrEmptyReceipt = errors.New("receipt text is empty")
	// ErrScanningDisabled is returned by ScanImage when no vision backend is configured
	ErrScanningDisabled = errors.New("image scanning is not configured")
)

// IDGenerator generates unique IDs for receipts
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

// Scanner reads a receipt image. *scanning.Extractor satisfies it.
type Scanner interface {
	Scan(ctx context.Context, img scanning.Image) (*scanning.Scan, error)
}

type uuidGenerator struct{}

func (uuidGenerator) Generate() string {
	return uuid.NewString()
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now().UTC()
}

// Service routes receipts through the text parsers or the vision scanner and archives the results
type Service struct {
	db          DB
	parsers     *parsing.Registry
	scanner     Scanner
	storage     Storage
	idGenerator IDGenerator
	timeSource  TimeSource
}

// NewService creates a Service with UUID IDs and the system clock. scanner may be nil,
// in which case ScanImage returns ErrScanningDisabled.
func NewService(db DB, parsers *parsing.Registry, scanner Scanner, storage Storage) *Service {
	return NewServiceWithDeps(db, parsers, scanner, storage, uuidGenerator{}, systemClock{})
}

// NewServiceWithDeps creates a new Service with custom dependencies for testing
func NewServiceWithDeps(db DB, parsers *parsing.Registry, scanner Scanner, storage Storage, idGen IDGenerator, timeSrc TimeSource) *Service {
	if parsers == nil {
		parsers = parsing.NewRegistry()
	}
	return &Service{
		db:          db,
		parsers:     parsers,
		scanner:     scanner,
		storage:     storage,
		idGenerator: idGen,
		timeSource:  timeSrc,
	}
}

var (
	filenameJunk   = regexp.MustCompile(`[^\p{L}\p{N}\s\-_]`)
	filenameSpaces = regexp.MustCompile(`\s+`)
)

// sanitizeFilename strips special characters and truncates long phone-generated names
func sanitizeFilename(filename string) string {
	filename = filepath.Base(filename)
	ext := filepath.Ext(filename)
	if ext == "." || filenameJunk.MatchString(strings.TrimPrefix(ext, ".")) {
		ext = ""
	}
	base := strings.TrimSuffix(filename, filepath.Ext(filename))

	base = filenameJunk.ReplaceAllString(base, "")
	base = filenameSpaces.ReplaceAllString(base, " ")
	base = strings.TrimSpace(base)

	const maxLen = 50
	if r := []rune(base); len(r) > maxLen {
		base = strings.TrimSpace(string(r[:maxLen]))
	}
	if base == "" {
		base = "receipt"
	}
	return base + strings.ToLower(ext)
}

// ParseText parses receipt text with the strategy for store, or with the strategy
// detected from the text when store is empty, and archives the result.
func (s *Service) ParseText(text, store string) (*Receipt, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyReceipt
	}

	strategy := s.parsers.Detect(text)
	if strings.TrimSpace(store) != "" {
		strategy = s.parsers.Get(store)
	}
	parsed := strategy.Parse(text)

	receipt := &Receipt{
		ID:        s.idGenerator.Generate(),
		Source:    SourceText,
		Parser:    strategy.Name(),
		Parsed:    &parsed,
		CreatedAt: s.timeSource.Now(),
	}
	receipt.summarize()

	if err := s.db.SaveReceipt(receipt); err != nil {
		return nil, fmt.Errorf("saving receipt to database: %w", err)
	}
	slog.Info("Parsed receipt", "id", receipt.ID, "parser", receipt.Parser, "items", receipt.ItemCount)
	return receipt, nil
}

// ScanImage stores the uploaded file, reads it with the vision scanner and archives the result.
// The stored file is removed again if scanning or saving fails.
func (s *Service) ScanImage(ctx context.Context, filename string, data []byte, contentType string) (*Receipt, error) {
	if s.scanner == nil {
		return nil, ErrScanningDisabled
	}

	id := s.idGenerator.Generate()
	now := s.timeSource.Now()

	savedName, err := s.storage.Save(fmt.Sprintf("%s_%s", id, sanitizeFilename(filename)), data)
	if err != nil {
		return nil, fmt.Errorf("saving file: %w", err)
	}

	scan, err := s.scanner.Scan(ctx, scanning.Image{Data: data, MIMEType: contentType})
	if err != nil {
		slog.Error("Failed to scan receipt",
			"filename", filename,
			"content_type", contentType,
			"file_size", len(data),
			"error", err,
		)
		s.removeFile(savedName)
		return nil, fmt.Errorf("scanning receipt: %w", err)
	}

	receipt := &Receipt{
		ID:          id,
		Source:      SourceImage,
		Scan:        scan,
		Filename:    savedName,
		ContentType: contentType,
		CreatedAt:   now,
	}
	receipt.summarize()

	if err := s.db.SaveReceipt(receipt); err != nil {
		s.removeFile(savedName)
		return nil, fmt.Errorf("saving receipt to database: %w", err)
	}
	slog.Info("Scanned receipt", "id", receipt.ID, "store", receipt.Store, "items", receipt.ItemCount)
	return receipt, nil
}

func (s *Service) removeFile(name string) {
	if err := s.storage.Delete(name); err != nil {
		slog.Warn("Failed to delete file", "filename", name, "error", err)
	}
}

// GetReceipt retrieves a receipt by ID
func (s *Service) GetReceipt(id string) (*Receipt, error) {
	receipt, err := s.db.GetReceipt(id)
	if err != nil {
		return nil, fmt.Errorf("getting receipt: %w", err)
	}
	return receipt, nil
}

// ListReceipts returns all receipts
func (s *Service) ListReceipts() ([]*Receipt, error) {
	receipts, err := s.db.ListReceipts()
	if err != nil {
		return nil, fmt.Errorf("listing receipts: %w", err)
	}
	return receipts, nil
}

// DeleteReceipt removes a receipt and its file, if it has one
func (s *Service) DeleteReceipt(id string) error {
	receipt, err := s.db.GetReceipt(id)
	if err != nil {
		return fmt.Errorf("getting receipt for deletion: %w", err)
	}

	if receipt.Filename != "" {
		s.removeFile(receipt.Filename)
	}

	if err := s.db.DeleteReceipt(id); err != nil {
		return fmt.Errorf("deleting receipt from database: %w", err)
	}
	return nil
}

// GetReceiptFile returns the uploaded file and its content type. Text receipts
// have no file and yield ErrNotFound.
func (s *Service) GetReceiptFile(id string) ([]byte, string, error) {
	receipt, err := s.db.GetReceipt(id)
	if err != nil {
		return nil, "", fmt.Errorf("getting receipt: %w", err)
	}
	if receipt.Filename == "" {
		return nil, "", fmt.Errorf("receipt %s has no file: %w", id, ErrNotFound)
	}

	data, err := s.storage.Get(receipt.Filename)
	if err != nil {
		return nil, "", fmt.Errorf("getting receipt file: %w", err)
	}
	return data, receipt.ContentType, nil
}
