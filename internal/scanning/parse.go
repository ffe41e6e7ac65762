package scanning

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/zombor/pantry-tracker/internal/normalize"
	"github.com/zombor/pantry-tracker/internal/parsing"
)

const dateLayout = "2006-01-02"

// Models often quote numbers or use decimal commas, so numeric fields accept strings too.
var (
	lenientNumber = map[string]any{"type": []string{"number", "string", "null"}}
	lenientString = map[string]any{"type": []string{"string", "number", "null"}}

	itemList = map[string]any{
		"type": "array",
		"items": map[string]any{
			"type":     "object",
			"required": []string{"name"},
			"properties": map[string]any{
				"name":          map[string]any{"type": "string"},
				"quantity":      lenientNumber,
				"unit":          map[string]any{"type": []string{"string", "null"}},
				"price":         lenientNumber,
				"pricePerUnit":  lenientNumber,
				"isWeightBased": map[string]any{"type": []string{"boolean", "null"}},
				"expiryDate":    map[string]any{"type": []string{"string", "null"}},
			},
		},
	}

	// JSON-mode backends must answer with an object, so the list may arrive wrapped
	itemsSchema = mustCompileSchema("items.json", map[string]any{
		"type":       "object",
		"required":   []string{"items"},
		"properties": map[string]any{"items": itemList},
	})
	itemArraySchema = mustCompileSchema("item-array.json", itemList)

	storeSchema = mustCompileSchema("store.json", map[string]any{
		"type": "object",
		"properties": map[string]any{
			"name":      lenientString,
			"location":  lenientString,
			"phone":     lenientString,
			"fax":       lenientString,
			"vatNumber": lenientString,
			"taxId":     lenientString,
		},
	})

	detailsSchema = mustCompileSchema("details.json", map[string]any{
		"type": "object",
		"properties": map[string]any{
			"receiptNumber": lenientString,
			"date":          lenientString,
			"time":          lenientString,
			"cashier":       lenientString,
			"paymentMethod": lenientString,
			"totalAmount":   lenientNumber,
			"vatBreakdown": map[string]any{
				"type": []string{"array", "null"},
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"rate":        lenientNumber,
						"amount":      lenientNumber,
						"netAmount":   lenientNumber,
						"grossAmount": lenientNumber,
					},
				},
			},
			"language": lenientString,
		},
	})
)

func mustCompileSchema(name string, doc map[string]any) *jsonschema.Schema {
	b, err := json.Marshal(doc)
	if err != nil {
		panic(fmt.Sprintf("marshal schema %s: %v", name, err))
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, bytes.NewReader(b)); err != nil {
		panic(fmt.Sprintf("add schema %s: %v", name, err))
	}
	return compiler.MustCompile(name)
}

// extractJSON cuts the JSON object out of a model reply, dropping markdown fences and chatter.
func extractJSON(text string) ([]byte, error) {
	text = stripFences(text)

	startIdx := strings.Index(text, "{")
	if startIdx == -1 {
		return nil, fmt.Errorf("no JSON object found in response")
	}
	endIdx := strings.LastIndex(text, "}")
	if endIdx < startIdx {
		return nil, fmt.Errorf("invalid JSON object in response")
	}
	return []byte(text[startIdx : endIdx+1]), nil
}

func stripFences(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}

// extractJSONArray is extractJSON for replies that are a bare array.
func extractJSONArray(text string) ([]byte, error) {
	text = stripFences(text)
	endIdx := strings.LastIndex(text, "]")
	if !strings.HasPrefix(text, "[") || endIdx < 0 {
		return nil, fmt.Errorf("no JSON array found in response")
	}
	return []byte(text[:endIdx+1]), nil
}

func validateInto(raw []byte, schema *jsonschema.Schema, out any) error {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return fmt.Errorf("unmarshaling json: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("unmarshaling json: %w", err)
	}
	return nil
}

// decodeValidated extracts, validates and unmarshals a model reply into out.
func decodeValidated(text string, schema *jsonschema.Schema, out any) error {
	raw, err := extractJSON(text)
	if err != nil {
		return err
	}
	return validateInto(raw, schema, out)
}

// flexFloat accepts a JSON number, a numeric string in either decimal style, or null.
type flexFloat struct {
	Value float64
	Valid bool
}

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	*f = flexFloat{}
	s := strings.TrimSpace(string(b))
	if s == "null" {
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		str = strings.Trim(strings.TrimSpace(str), "€$£ ")
		if str == "" {
			return nil
		}
		v, err := normalize.ParseDecimal(str)
		if err != nil {
			// an unreadable number counts as missing
			return nil
		}
		*f = flexFloat{Value: v, Valid: true}
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("parsing number %s: %w", s, err)
	}
	*f = flexFloat{Value: v, Valid: true}
	return nil
}

func (f flexFloat) ptr() *float64 {
	if !f.Valid {
		return nil
	}
	v := f.Value
	return &v
}

// flexString accepts a JSON string, a number such as a receipt number, or null.
type flexString string

func (s *flexString) UnmarshalJSON(b []byte) error {
	raw := strings.TrimSpace(string(b))
	switch {
	case raw == "null":
		*s = ""
	case strings.HasPrefix(raw, `"`):
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		*s = flexString(strings.TrimSpace(str))
	default:
		*s = flexString(raw)
	}
	return nil
}

type rawItem struct {
	Name          string    `json:"name"`
	Quantity      flexFloat `json:"quantity"`
	Unit          *string   `json:"unit"`
	Price         flexFloat `json:"price"`
	PricePerUnit  flexFloat `json:"pricePerUnit"`
	IsWeightBased *bool     `json:"isWeightBased"`
	ExpiryDate    *string   `json:"expiryDate"`
}

// decodeItems turns an items reply, either {"items": [...]} or a bare array, into pantry
// items. Items without a name are dropped.
func decodeItems(text string, now time.Time) ([]Item, error) {
	var resp struct {
		Items []rawItem `json:"items"`
	}
	if strings.HasPrefix(stripFences(text), "[") {
		raw, err := extractJSONArray(text)
		if err != nil {
			return nil, err
		}
		if err := validateInto(raw, itemArraySchema, &resp.Items); err != nil {
			return nil, err
		}
	} else if err := decodeValidated(text, itemsSchema, &resp); err != nil {
		return nil, err
	}

	items := make([]Item, 0, len(resp.Items))
	for _, r := range resp.Items {
		name := strings.TrimSpace(r.Name)
		if name == "" {
			continue
		}
		qty := r.Quantity.Value
		if !r.Quantity.Valid || qty <= 0 {
			qty = 1
		}
		rawUnit := ""
		if r.Unit != nil {
			rawUnit = *r.Unit
		}
		weighed := normalize.IsWeightUnit(rawUnit)
		if r.IsWeightBased != nil {
			weighed = *r.IsWeightBased
		}

		items = append(items, Item{
			Name:          name,
			Quantity:      qty,
			Unit:          normalize.StandardizeUnit(rawUnit),
			Price:         r.Price.Value,
			PricePerUnit:  r.PricePerUnit.ptr(),
			IsWeightBased: weighed,
			ExpiryDate:    expiryOrDefault(r.ExpiryDate, name, now),
			Category:      CategorizeFood(name),
		})
	}
	return items, nil
}

func expiryOrDefault(raw *string, name string, now time.Time) string {
	if raw != nil {
		d := parsing.NormalizeDate(*raw)
		if _, err := time.Parse(dateLayout, d); err == nil {
			return d
		}
	}
	return DefaultExpiryDate(name, now)
}

type rawStore struct {
	Name      flexString `json:"name"`
	Location  flexString `json:"location"`
	Phone     flexString `json:"phone"`
	Fax       flexString `json:"fax"`
	VATNumber flexString `json:"vatNumber"`
	TaxID     flexString `json:"taxId"`
}

func decodeStore(text string) (StoreInfo, error) {
	var r rawStore
	if err := decodeValidated(text, storeSchema, &r); err != nil {
		return StoreInfo{}, err
	}
	info := StoreInfo{
		Name:      string(r.Name),
		Location:  string(r.Location),
		Phone:     string(r.Phone),
		Fax:       string(r.Fax),
		VATNumber: string(r.VATNumber),
		TaxID:     string(r.TaxID),
	}
	return info.withDefaults(), nil
}

type rawVAT struct {
	Rate        flexFloat `json:"rate"`
	Amount      flexFloat `json:"amount"`
	NetAmount   flexFloat `json:"netAmount"`
	GrossAmount flexFloat `json:"grossAmount"`
}

type rawDetails struct {
	ReceiptNumber flexString `json:"receiptNumber"`
	Date          flexString `json:"date"`
	Time          flexString `json:"time"`
	Cashier       flexString `json:"cashier"`
	PaymentMethod flexString `json:"paymentMethod"`
	TotalAmount   flexFloat  `json:"totalAmount"`
	VATBreakdown  []rawVAT   `json:"vatBreakdown"`
	Language      flexString `json:"language"`
}

func decodeDetails(text string) (ReceiptDetails, error) {
	var r rawDetails
	if err := decodeValidated(text, detailsSchema, &r); err != nil {
		return ReceiptDetails{}, err
	}

	details := ReceiptDetails{
		ReceiptNumber: string(r.ReceiptNumber),
		Date:          parsing.NormalizeDate(string(r.Date)),
		Time:          normalizeTime(string(r.Time)),
		Cashier:       string(r.Cashier),
		PaymentMethod: strings.ToUpper(string(r.PaymentMethod)),
		TotalAmount:   r.TotalAmount.ptr(),
		Language:      string(r.Language),
	}
	if details.Language == "" {
		details.Language = "English"
	}
	for _, v := range r.VATBreakdown {
		if !v.Rate.Valid && !v.Amount.Valid {
			continue
		}
		details.VATBreakdown = append(details.VATBreakdown, parsing.VATEntry{
			Rate:        v.Rate.Value,
			Amount:      v.Amount.Value,
			NetAmount:   v.NetAmount.ptr(),
			GrossAmount: v.GrossAmount.ptr(),
		})
	}
	return details, nil
}

// normalizeTime pads a model time to HH:MM:SS, keeping anything it cannot read.
func normalizeTime(raw string) string {
	if t := parsing.ExtractTime([]string{raw}); t != "" {
		return t
	}
	return raw
}
