package record

import (
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/unicode/norm"
)

// CoerceID stringifies an identifier of any scalar type.
// Integral floats render without a fraction so 42 and 42.0 compare equal.
func CoerceID(v any) string {
	switch id := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(id)
	case json.Number:
		return id.String()
	case float64:
		return formatFloat(id, 64)
	case float32:
		return formatFloat(float64(id), 32)
	case int:
		return strconv.Itoa(id)
	case int64:
		return strconv.FormatInt(id, 10)
	case int32:
		return strconv.FormatInt(int64(id), 10)
	case uint:
		return strconv.FormatUint(uint64(id), 10)
	case uint64:
		return strconv.FormatUint(id, 10)
	case uint32:
		return strconv.FormatUint(uint64(id), 10)
	case bool:
		return strconv.FormatBool(id)
	default:
		b, err := json.Marshal(id)
		if err != nil {
			return ""
		}
		return strings.TrimSpace(string(b))
	}
}

func formatFloat(f float64, bits int) string {
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'f', -1, bits)
}

// Canonicalize maps header names to canonical column names.
// A header already named canonically keeps its name; an aliased header is
// renamed only when its target is not already present.
func Canonicalize(header []string, aliases map[string]string) []string {
	present := make(map[string]bool, len(header))
	for _, h := range header {
		present[strings.TrimSpace(h)] = true
	}

	out := make([]string, len(header))
	claimed := make(map[string]bool, len(header))
	for i, h := range header {
		h = strings.TrimSpace(h)
		name := h
		if target, ok := aliases[h]; ok && !present[target] && !claimed[target] {
			name = target
		}
		claimed[name] = true
		out[i] = name
	}
	return out
}

// Rules names the fields normalized before comparison, per rule.
// Normalization never touches stored values; it only feeds equality checks.
type Rules struct {
	TextFields     []string
	CategoryFields []string
	NumericFields  []string
}

// Apply returns value normalized by every rule that lists field,
// in the order text, category, numeric.
func (r Rules) Apply(field, value string) string {
	if contains(r.TextFields, field) {
		value = NormalizeText(value)
	}
	if contains(r.CategoryFields, field) {
		value = NormalizeCategory(value)
	}
	if contains(r.NumericFields, field) {
		value = NormalizeNumeric(value)
	}
	return value
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

var quoteReplacer = strings.NewReplacer(
	"‘", "'", "’", "'", "‚", "'", "‛", "'", "′", "'", "‵", "'",
	"“", `"`, "”", `"`, "„", `"`, "‟", `"`, "″", `"`, "‶", `"`,
	"«", `"`, "»", `"`,
)

// NormalizeText trims, composes to NFC and folds curly, prime and guillemet
// quotes to their ASCII forms.
func NormalizeText(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	s = norm.NFC.String(s)
	return quoteReplacer.Replace(s)
}

// categorySeparators are the delimiters a multi-valued category may use.
const categorySeparators = "|,/;"

// NormalizeCategory canonicalizes a multi-valued category: text
// normalization, lowercase, split on | , / ;, trim, drop empties, dedupe,
// sort, join with |.
func NormalizeCategory(s string) string {
	s = strings.ToLower(NormalizeText(s))
	if s == "" {
		return s
	}

	parts := strings.FieldsFunc(s, func(r rune) bool {
		return strings.ContainsRune(categorySeparators, r)
	})

	seen := make(map[string]bool, len(parts))
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	sort.Strings(out)
	return strings.Join(out, "|")
}

// NormalizeNumeric renders a decimal value canonically so "20.0" and "20"
// compare equal. Equality stays exact. Unparsable input is returned trimmed.
func NormalizeNumeric(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return s
	}
	return d.String()
}
