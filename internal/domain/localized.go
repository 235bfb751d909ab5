package domain

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/language"
)

// DefaultLanguage is the fallback language used when a translation is missing.
const DefaultLanguage = "en"

// LocalizedText maps lowercase language codes to translated strings.
type LocalizedText map[string]string

// NewLocalizedText builds a LocalizedText from the provided entries, normalising
// language tags and dropping empty keys.
func NewLocalizedText(entries map[string]string) LocalizedText {
	if len(entries) == 0 {
		return LocalizedText{}
	}
	out := make(LocalizedText, len(entries))
	for lang, value := range entries {
		key := NormalizeLanguage(lang)
		if key == "" {
			continue
		}
		out[key] = value
	}
	return out
}

// NormalizeLanguage canonicalises a language code to its lowercase base form
// ("en-US" -> "en"). Unparseable tags are lowercased and trimmed as-is.
func NormalizeLanguage(lang string) string {
	trimmed := strings.TrimSpace(lang)
	if trimmed == "" {
		return ""
	}
	tag, err := language.Parse(trimmed)
	if err != nil {
		return strings.ToLower(trimmed)
	}
	base, conf := tag.Base()
	if conf == language.No {
		return strings.ToLower(trimmed)
	}
	return base.String()
}

// Get returns the translation for lang, falling back to the default language
// and then to the lexicographically smallest available entry. It never fails
// for a non-empty mapping; an empty mapping yields "".
func (t LocalizedText) Get(lang string) string {
	if len(t) == 0 {
		return ""
	}
	if value, ok := t[NormalizeLanguage(lang)]; ok {
		return value
	}
	if value, ok := t[DefaultLanguage]; ok {
		return value
	}
	keys := make([]string, 0, len(t))
	for key := range t {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return t[keys[0]]
}

// Clone returns an independent copy of the mapping.
func (t LocalizedText) Clone() LocalizedText {
	if t == nil {
		return nil
	}
	out := make(LocalizedText, len(t))
	for lang, value := range t {
		out[lang] = value
	}
	return out
}

// IsEmpty reports whether no translation is present.
func (t LocalizedText) IsEmpty() bool { return len(t) == 0 }

// LocalizedMoney maps uppercase currency codes to amounts in the smallest
// currency unit. Absent currencies are treated as zero everywhere.
type LocalizedMoney map[string]int64

// NewLocalizedMoney builds a LocalizedMoney normalising currency codes.
func NewLocalizedMoney(amounts map[string]int64) LocalizedMoney {
	if len(amounts) == 0 {
		return LocalizedMoney{}
	}
	out := make(LocalizedMoney, len(amounts))
	for code, amount := range amounts {
		key := NormalizeCurrency(code)
		if key == "" {
			continue
		}
		out[key] = amount
	}
	return out
}

// NormalizeCurrency uppercases and trims a currency code.
func NormalizeCurrency(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Amount returns the stored amount for the currency, zero when absent.
func (m LocalizedMoney) Amount(currency string) int64 {
	if len(m) == 0 {
		return 0
	}
	return m[NormalizeCurrency(currency)]
}

// Add returns the key-wise sum over the union of the two currency sets.
// Neither operand is mutated.
func (m LocalizedMoney) Add(other LocalizedMoney) LocalizedMoney {
	out := make(LocalizedMoney, len(m)+len(other))
	for code, amount := range m {
		out[code] = amount
	}
	for code, amount := range other {
		out[code] += amount
	}
	return out
}

// Scale returns a copy with every currency amount multiplied by n.
func (m LocalizedMoney) Scale(n int64) LocalizedMoney {
	out := make(LocalizedMoney, len(m))
	for code, amount := range m {
		out[code] = amount * n
	}
	return out
}

// Clone returns an independent copy of the mapping.
func (m LocalizedMoney) Clone() LocalizedMoney {
	if m == nil {
		return nil
	}
	out := make(LocalizedMoney, len(m))
	for code, amount := range m {
		out[code] = amount
	}
	return out
}

// IsZero reports whether every stored amount is zero.
func (m LocalizedMoney) IsZero() bool {
	for _, amount := range m {
		if amount != 0 {
			return false
		}
	}
	return true
}

// CurrencySymbols maps currency codes to their display symbols. The table is
// configuration-driven; unknown codes render the code itself.
type CurrencySymbols map[string]string

// Symbol returns the display symbol for the currency, defaulting to the code.
func (s CurrencySymbols) Symbol(currency string) string {
	code := NormalizeCurrency(currency)
	if symbol, ok := s[code]; ok && symbol != "" {
		return symbol
	}
	return code
}

// Format renders the amount for one currency with two decimal places and the
// currency's display symbol.
func (m LocalizedMoney) Format(currency string, symbols CurrencySymbols) string {
	amount := m.Amount(currency)
	negative := amount < 0
	if negative {
		amount = -amount
	}
	text := fmt.Sprintf("%d.%02d %s", amount/100, amount%100, symbols.Symbol(currency))
	if negative {
		return "-" + text
	}
	return text
}
