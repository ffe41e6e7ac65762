package parsing

// ParsedItem is one line item or discount extracted from a receipt.
type ParsedItem struct {
	Name           string   `json:"name"`
	NormalizedName string   `json:"normalizedName"`
	OriginalName   string   `json:"originalName"`
	Quantity       float64  `json:"quantity"`
	Unit           string   `json:"unit"`
	Price          *float64 `json:"price"` // negative for discounts
	PricePerUnit   *float64 `json:"pricePerUnit,omitempty"`
	IsWeightBased  bool     `json:"isWeightBased"`
	IsDiscount     bool     `json:"isDiscount"`
	Category       string   `json:"category,omitempty"`
	Description    string   `json:"description,omitempty"`
	LineNumbers    []int    `json:"lineNumbers"`
}

// ReceiptHeader holds store identity and transaction metadata.
type ReceiptHeader struct {
	Store         string `json:"store"`
	Address       string `json:"address,omitempty"`
	Date          string `json:"date,omitempty"` // YYYY-MM-DD when recognizable
	Time          string `json:"time,omitempty"` // HH:MM:SS
	ReceiptNumber string `json:"receiptNumber,omitempty"`
	Cashier       string `json:"cashier,omitempty"`
}

// VATEntry is one rate line of the VAT breakdown.
type VATEntry struct {
	Rate        float64  `json:"rate"`
	Amount      float64  `json:"amount"`
	NetAmount   *float64 `json:"netAmount,omitempty"`
	GrossAmount *float64 `json:"grossAmount,omitempty"`
}

// Discount is a footer discount; Amount is never negative.
type Discount struct {
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
}

// LoyaltyInfo describes a store rewards programme printed on the receipt.
type LoyaltyInfo struct {
	ProgramName  string   `json:"programName,omitempty"`
	Points       *float64 `json:"points,omitempty"`
	StickerCount *int     `json:"stickerCount,omitempty"`
	Message      string   `json:"message,omitempty"`
}

// ReceiptFooter holds totals, payment and tax information.
type ReceiptFooter struct {
	TotalAmount    float64      `json:"totalAmount"`
	PaymentMethod  string       `json:"paymentMethod,omitempty"`
	CardLastDigits string       `json:"cardLastDigits,omitempty"`
	VATBreakdown   []VATEntry   `json:"vatBreakdown"`
	Discounts      []Discount   `json:"discounts"`
	LoyaltyInfo    *LoyaltyInfo `json:"loyaltyInfo,omitempty"`
}

// ParsedReceipt is the result of parsing one receipt's text.
type ParsedReceipt struct {
	Header   ReceiptHeader `json:"header"`
	Items    []ParsedItem  `json:"items"`
	Footer   ReceiptFooter `json:"footer"`
	Language string        `json:"language"`
	RawText  string        `json:"rawText"`
}

// WeightBasedItem is the intermediate result of weight-line extraction.
type WeightBasedItem struct {
	Name         string
	Quantity     float64
	Unit         string
	PricePerUnit float64
	TotalPrice   float64
	Currency     string
	LineNumbers  []int
}

func floatPtr(v float64) *float64 {
	return &v
}
