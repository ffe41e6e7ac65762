package receipt

import (
	"time"

	"github.com/zombor/pantry-tracker/internal/parsing"
	"github.com/zombor/pantry-tracker/internal/scanning"
)

// Source says which pipeline produced a receipt.
type Source string

const (
	SourceText  Source = "text"
	SourceImage Source = "image"
)

// Receipt is an archived receipt with a summary of what was read from it.
// Exactly one of Parsed (text) or Scan (image) is set.
type Receipt struct {
	ID          string                 `json:"id"`
	Source      Source                 `json:"source"`
	Parser      string                 `json:"parser,omitempty"` // strategy name for text receipts
	Store       string                 `json:"store"`
	Date        string                 `json:"date,omitempty"`
	Total       *float64               `json:"total,omitempty"`
	ItemCount   int                    `json:"item_count"`
	Parsed      *parsing.ParsedReceipt `json:"parsed,omitempty"`
	Scan        *scanning.Scan         `json:"scan,omitempty"`
	Filename    string                 `json:"filename,omitempty"`
	ContentType string                 `json:"content_type,omitempty"`
	CreatedAt   time.Time              `json:"created_at"`
}

// summarize fills the list-view fields from Parsed or Scan.
func (r *Receipt) summarize() {
	switch {
	case r.Parsed != nil:
		r.Store = r.Parsed.Header.Store
		r.Date = r.Parsed.Header.Date
		if total := r.Parsed.Footer.TotalAmount; total > 0 {
			r.Total = &total
		}
		r.ItemCount = 0
		for _, item := range r.Parsed.Items {
			if !item.IsDiscount {
				r.ItemCount++
			}
		}
	case r.Scan != nil:
		r.Store = r.Scan.Store.Name
		r.Date = r.Scan.Details.Date
		r.Total = r.Scan.Details.TotalAmount
		r.ItemCount = len(r.Scan.Items)
	}
}
