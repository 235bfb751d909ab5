package domain

import "testing"

func TestLocalizedTextGet(t *testing.T) {
	text := NewLocalizedText(map[string]string{
		"en-US": "Size",
		"ru":    "Размер",
	})

	if got := text.Get("en"); got != "Size" {
		t.Fatalf("expected normalised en entry, got %q", got)
	}
	if got := text.Get("ru-RU"); got != "Размер" {
		t.Fatalf("expected ru entry, got %q", got)
	}
	// Missing language falls back to the default language.
	if got := text.Get("de"); got != "Size" {
		t.Fatalf("expected default-language fallback, got %q", got)
	}

	// Without a default-language entry the smallest available key wins.
	noDefault := NewLocalizedText(map[string]string{"ru": "Размер", "uk": "Розмір"})
	if got := noDefault.Get("de"); got != "Размер" {
		t.Fatalf("expected deterministic fallback, got %q", got)
	}

	if got := (LocalizedText{}).Get("en"); got != "" {
		t.Fatalf("expected empty string for empty mapping, got %q", got)
	}
}

func TestLocalizedMoneyArithmetic(t *testing.T) {
	a := NewLocalizedMoney(map[string]int64{"usd": 1000, "EUR": 900})
	b := NewLocalizedMoney(map[string]int64{"USD": 500, "RUB": 70000})

	sum := a.Add(b)
	if got := sum.Amount("USD"); got != 1500 {
		t.Fatalf("USD sum: want 1500, got %d", got)
	}
	if got := sum.Amount("EUR"); got != 900 {
		t.Fatalf("EUR sum: want 900, got %d", got)
	}
	if got := sum.Amount("RUB"); got != 70000 {
		t.Fatalf("RUB sum: want 70000, got %d", got)
	}
	// Absent currency reads as zero, never fails.
	if got := sum.Amount("JPY"); got != 0 {
		t.Fatalf("absent currency: want 0, got %d", got)
	}

	// Operands stay untouched.
	if got := a.Amount("USD"); got != 1000 {
		t.Fatalf("Add mutated operand: %d", got)
	}

	scaled := a.Scale(3)
	if got := scaled.Amount("USD"); got != 3000 {
		t.Fatalf("Scale USD: want 3000, got %d", got)
	}
	if got := scaled.Amount("EUR"); got != 2700 {
		t.Fatalf("Scale EUR: want 2700, got %d", got)
	}
}

func TestLocalizedMoneyFormat(t *testing.T) {
	symbols := CurrencySymbols{"USD": "$", "EUR": "€"}
	money := NewLocalizedMoney(map[string]int64{"USD": 1999, "XTS": 50})

	if got := money.Format("USD", symbols); got != "19.99 $" {
		t.Fatalf("USD format: got %q", got)
	}
	// Unknown currency codes render the code itself as the symbol.
	if got := money.Format("XTS", symbols); got != "0.50 XTS" {
		t.Fatalf("XTS format: got %q", got)
	}
	if got := money.Format("EUR", symbols); got != "0.00 €" {
		t.Fatalf("absent currency format: got %q", got)
	}

	negative := NewLocalizedMoney(map[string]int64{"USD": -250})
	if got := negative.Format("USD", symbols); got != "-2.50 $" {
		t.Fatalf("negative format: got %q", got)
	}
}

func TestLocalizedMoneyClone(t *testing.T) {
	original := NewLocalizedMoney(map[string]int64{"USD": 100})
	cloned := original.Clone()
	cloned["USD"] = 999

	if got := original.Amount("USD"); got != 100 {
		t.Fatalf("clone shares storage with original: %d", got)
	}
}
