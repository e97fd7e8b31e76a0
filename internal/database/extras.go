package database

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// AddOn is a priced extra. Price.Valid is false when the stored price could
// not be read; such an add-on contributes nothing to the order total.
type AddOn struct {
	Name  string              `json:"name"`
	Price decimal.NullDecimal `json:"price"`
}

// Extras is the structured bag attached to an order item.
type Extras struct {
	AddOns           []AddOn  `json:"add_ons,omitempty"`
	BuffetSelections []string `json:"buffet_selections,omitempty"`
	Note             string   `json:"note,omitempty"`
}

func (e Extras) IsZero() bool {
	return len(e.AddOns) == 0 && len(e.BuffetSelections) == 0 && e.Note == ""
}

// JSON encodes the canonical shape. Empty extras encode to nil (SQL NULL).
func (e Extras) JSON() []byte {
	if e.IsZero() {
		return nil
	}
	b, err := json.Marshal(e)
	if err != nil {
		return nil
	}
	return b
}

// UnmarshalJSON accepts an object {name, price} or a bare name. It never
// fails: anything unreadable becomes an add-on without a valid price.
func (a *AddOn) UnmarshalJSON(data []byte) error {
	*a = AddOn{}

	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		a.Name = name
		return nil
	}

	var raw struct {
		Name  string          `json:"name"`
		Label string          `json:"label"`
		Price json.RawMessage `json:"price"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil
	}
	a.Name = raw.Name
	if a.Name == "" {
		a.Name = raw.Label
	}
	a.Price = parsePrice(raw.Price)
	return nil
}

// ParseExtras normalizes every stored extras shape into Extras:
// NULL, a legacy flat list of add-ons, the structured object (snake or camel
// case keys) or a bare string note.
func ParseExtras(raw []byte) Extras {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return Extras{}
	}

	switch trimmed[0] {
	case '[':
		return Extras{AddOns: parseAddOns(trimmed)}
	case '"':
		var note string
		if err := json.Unmarshal(trimmed, &note); err != nil {
			return Extras{}
		}
		return Extras{Note: strings.TrimSpace(note)}
	case '{':
		return parseExtrasObject(trimmed)
	}
	return Extras{}
}

func parseExtrasObject(data []byte) Extras {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return Extras{}
	}

	var e Extras
	if v, ok := firstKey(obj, "add_ons", "addOns", "addons"); ok {
		e.AddOns = parseAddOns(v)
	}
	if v, ok := firstKey(obj, "buffet_selections", "buffetSelections", "buffet"); ok {
		e.BuffetSelections = parseSelections(v)
	}
	if v, ok := firstKey(obj, "note", "notes", "freeformNote", "freeform_note"); ok {
		var note string
		if err := json.Unmarshal(v, &note); err == nil {
			e.Note = strings.TrimSpace(note)
		}
	}
	return e
}

func firstKey(obj map[string]json.RawMessage, keys ...string) (json.RawMessage, bool) {
	for _, k := range keys {
		if v, ok := obj[k]; ok {
			return v, true
		}
	}
	return nil, false
}

func parseAddOns(data []byte) []AddOn {
	var elems []json.RawMessage
	if err := json.Unmarshal(data, &elems); err != nil {
		return nil
	}
	out := make([]AddOn, 0, len(elems))
	for _, elem := range elems {
		if bytes.Equal(bytes.TrimSpace(elem), []byte("null")) {
			continue
		}
		var a AddOn
		_ = a.UnmarshalJSON(elem)
		out = append(out, a)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func parseSelections(data []byte) []string {
	var elems []json.RawMessage
	if err := json.Unmarshal(data, &elems); err != nil {
		return nil
	}
	var out []string
	for _, elem := range elems {
		var s string
		if err := json.Unmarshal(elem, &s); err == nil {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
			continue
		}
		var named struct {
			Name string `json:"name"`
		}
		if err := json.Unmarshal(elem, &named); err == nil && named.Name != "" {
			out = append(out, named.Name)
		}
	}
	return out
}

// parsePrice reads a JSON number or numeric string ("2.50", "2,50").
// Negative or unreadable prices are reported as invalid.
func parsePrice(raw json.RawMessage) decimal.NullDecimal {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return decimal.NullDecimal{}
	}

	text := string(raw)
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &text); err != nil {
			return decimal.NullDecimal{}
		}
		text = strings.TrimSpace(text)
		if strings.Contains(text, ",") && !strings.Contains(text, ".") {
			text = strings.Replace(text, ",", ".", 1)
		}
	}

	d, err := decimal.NewFromString(text)
	if err != nil || d.IsNegative() {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d)
}
