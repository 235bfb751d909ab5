package domain

import (
	"errors"
	"testing"
)

func usd(amount int64) LocalizedMoney {
	return NewLocalizedMoney(map[string]int64{"USD": amount})
}

func en(value string) LocalizedText {
	return NewLocalizedText(map[string]string{"en": value})
}

func sizeOption() ConfigurationOption {
	return ConfigurationOption{
		Name:   en("Size"),
		Prompt: en("Pick a size"),
		Order:  []string{"small", "large"},
		Choices: map[string]OptionVariant{
			"small": NewChoiceVariant(ConfigurationChoice{Label: en("Small"), Price: usd(0)}),
			"large": NewChoiceVariant(ConfigurationChoice{Label: en("Large"), Price: usd(500)}),
		},
		Chosen: "small",
	}
}

func TestOptionChosenVariant(t *testing.T) {
	opt := sizeOption()

	variant, err := opt.ChosenVariant()
	if err != nil {
		t.Fatalf("ChosenVariant error: %v", err)
	}
	if variant.Kind != VariantChoice || variant.Choice.Label.Get("en") != "Small" {
		t.Fatalf("unexpected chosen variant: %+v", variant)
	}

	opt.Chosen = "missing"
	if _, err := opt.ChosenVariant(); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
}

func TestOptionSetChosenFailsLoudly(t *testing.T) {
	opt := sizeOption()

	if err := opt.SetChosen("large"); err != nil {
		t.Fatalf("SetChosen error: %v", err)
	}
	if opt.Chosen != "large" {
		t.Fatalf("chosen not updated: %q", opt.Chosen)
	}

	if err := opt.SetChosen("nope"); !errors.Is(err, ErrUnknownChoice) {
		t.Fatalf("expected ErrUnknownChoice, got %v", err)
	}
	if opt.Chosen != "large" {
		t.Fatalf("failed SetChosen must not change state, got %q", opt.Chosen)
	}
}

func TestOptionPriceCountsSwitchesRegardlessOfChosen(t *testing.T) {
	opt := ConfigurationOption{
		Name:  en("Extras"),
		Order: []string{"plain", "toggles"},
		Choices: map[string]OptionVariant{
			"plain": NewChoiceVariant(ConfigurationChoice{Label: en("Plain"), Price: usd(1000)}),
			"toggles": NewSwitchGroupVariant(SwitchGroup{
				Label: en("Toggles"),
				Order: []string{"gift"},
				Switches: map[string]ConfigurationSwitch{
					"gift": {Label: en("Gift wrap"), Price: usd(500)},
				},
			}),
		},
		Chosen: "plain",
	}

	price, err := opt.Price()
	if err != nil {
		t.Fatalf("Price error: %v", err)
	}
	if got := price.Amount("USD"); got != 1000 {
		t.Fatalf("price before toggle: want 1000, got %d", got)
	}

	// Enabling a switch inside the non-chosen group still changes the price.
	group := opt.Choices["toggles"]
	if err := group.Switches.Toggle("gift"); err != nil {
		t.Fatalf("Toggle error: %v", err)
	}
	opt.Choices["toggles"] = group

	price, err = opt.Price()
	if err != nil {
		t.Fatalf("Price error: %v", err)
	}
	if got := price.Amount("USD"); got != 1500 {
		t.Fatalf("price after toggle: want 1500, got %d", got)
	}

	switches := opt.EnabledSwitches()
	if len(switches) != 1 || switches[0].Label.Get("en") != "Gift wrap" {
		t.Fatalf("unexpected enabled switches: %+v", switches)
	}
}

func TestBlockingSymmetry(t *testing.T) {
	matte := ConfigurationChoice{
		Label:     en("Matte"),
		BlockedBy: []BlockPath{{Option: "size", Choice: "small"}},
	}
	options := map[string]ConfigurationOption{"size": sizeOption()}

	if _, blocked := matte.Blocking(options); !blocked {
		t.Fatal("expected matte to be blocked while size=small")
	}

	size := options["size"]
	if err := size.SetChosen("large"); err != nil {
		t.Fatalf("SetChosen error: %v", err)
	}
	options["size"] = size

	if path, blocked := matte.Blocking(options); blocked {
		t.Fatalf("expected matte unblocked after revert, still blocked by %s", path)
	}
}

func TestBlockingSwitchPath(t *testing.T) {
	group := SwitchGroup{
		Label: en("Accents"),
		Order: []string{"neon"},
		Switches: map[string]ConfigurationSwitch{
			"neon": {Label: en("Neon"), Price: usd(300)},
		},
	}
	options := map[string]ConfigurationOption{
		"color": {
			Name:    en("Color"),
			Order:   []string{"accents"},
			Choices: map[string]OptionVariant{"accents": NewSwitchGroupVariant(group)},
			Chosen:  "accents",
		},
	}
	choice := ConfigurationChoice{
		Label:     en("Glossy"),
		BlockedBy: []BlockPath{{Option: "color", Choice: "accents", Switch: "neon"}},
	}

	if _, blocked := choice.Blocking(options); blocked {
		t.Fatal("switch disabled: choice must not be blocked")
	}

	opt := options["color"]
	variant := opt.Choices["accents"]
	if err := variant.Switches.Toggle("neon"); err != nil {
		t.Fatalf("Toggle error: %v", err)
	}
	opt.Choices["accents"] = variant
	options["color"] = opt

	if _, blocked := choice.Blocking(options); !blocked {
		t.Fatal("switch enabled: choice must be blocked")
	}
}

func TestParseBlockPath(t *testing.T) {
	path, err := ParseBlockPath("color/red")
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if path.Option != "color" || path.Choice != "red" || path.Switch != "" {
		t.Fatalf("unexpected path: %+v", path)
	}

	path, err = ParseBlockPath("color/accents/neon")
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if path.Switch != "neon" {
		t.Fatalf("unexpected switch segment: %+v", path)
	}
	if path.String() != "color/accents/neon" {
		t.Fatalf("round trip mismatch: %q", path.String())
	}

	for _, raw := range []string{"", "color", "color/", "/red", "a/b/c/d"} {
		if _, err := ParseBlockPath(raw); !errors.Is(err, ErrInvalidBlockPath) {
			t.Fatalf("expected parse failure for %q, got %v", raw, err)
		}
	}
}

func TestMergeOptionPreservesUserState(t *testing.T) {
	current := sizeOption()
	if err := current.SetChosen("large"); err != nil {
		t.Fatalf("SetChosen error: %v", err)
	}

	// Newer catalog definition: price changed, one choice added, label updated.
	base := sizeOption()
	large := base.Choices["large"]
	large.Choice.Price = usd(700)
	large.Choice.Label = en("Large (new)")
	base.Choices["large"] = large
	base.Choices["xl"] = NewChoiceVariant(ConfigurationChoice{Label: en("XL"), Price: usd(900)})
	base.Order = []string{"small", "large", "xl"}

	merged := MergeOption(current, base)

	if merged.Chosen != "large" {
		t.Fatalf("user selection lost: %q", merged.Chosen)
	}
	if got := merged.Choices["large"].Choice.Price.Amount("USD"); got != 700 {
		t.Fatalf("definition price not adopted: %d", got)
	}
	if got := merged.Choices["large"].Choice.Label.Get("en"); got != "Large (new)" {
		t.Fatalf("definition label not adopted: %q", got)
	}
	if _, ok := merged.Choices["xl"]; !ok {
		t.Fatal("new catalog choice not adopted")
	}

	// Inputs stay untouched.
	if got := current.Choices["large"].Choice.Price.Amount("USD"); got != 500 {
		t.Fatalf("merge mutated current option: %d", got)
	}
}

func TestMergeOptionDropsVanishedChoiceAndClampsPreset(t *testing.T) {
	current := ConfigurationOption{
		Name:  en("Color"),
		Order: []string{"preset", "gone"},
		Choices: map[string]OptionVariant{
			"preset": NewChoiceVariant(ConfigurationChoice{
				Label:        en("Existing"),
				HasPresets:   true,
				PresetCount:  5,
				PresetChosen: 5,
			}),
			"gone": NewChoiceVariant(ConfigurationChoice{Label: en("Gone")}),
		},
		Chosen: "gone",
	}

	base := ConfigurationOption{
		Name:  en("Color"),
		Order: []string{"preset"},
		Choices: map[string]OptionVariant{
			"preset": NewChoiceVariant(ConfigurationChoice{
				Label:       en("Existing"),
				HasPresets:  true,
				PresetCount: 3,
			}),
		},
		Chosen: "preset",
	}

	merged := MergeOption(current, base)

	if _, ok := merged.Choices["gone"]; ok {
		t.Fatal("vanished choice survived merge")
	}
	// Chosen key disappeared: fall back to the base default.
	if merged.Chosen != "preset" {
		t.Fatalf("expected base default chosen, got %q", merged.Chosen)
	}
	// Preset selection beyond the new count resets rather than dangling.
	if got := merged.Choices["preset"].Choice.PresetChosen; got != 0 {
		t.Fatalf("expected preset reset, got %d", got)
	}
}

func TestMergeOptionCarriesSwitchToggles(t *testing.T) {
	current := ConfigurationOption{
		Name:  en("Extras"),
		Order: []string{"toggles"},
		Choices: map[string]OptionVariant{
			"toggles": NewSwitchGroupVariant(SwitchGroup{
				Label: en("Toggles"),
				Order: []string{"gift", "rush"},
				Switches: map[string]ConfigurationSwitch{
					"gift": {Label: en("Gift wrap"), Price: usd(500), Enabled: true},
					"rush": {Label: en("Rush"), Price: usd(900)},
				},
			}),
		},
		Chosen: "toggles",
	}

	base := current.Clone()
	variant := base.Choices["toggles"]
	sw := variant.Switches.Switches["gift"]
	sw.Enabled = false
	sw.Price = usd(600)
	variant.Switches.Switches["gift"] = sw
	base.Choices["toggles"] = variant

	merged := MergeOption(current, base)
	got := merged.Choices["toggles"].Switches.Switches["gift"]
	if !got.Enabled {
		t.Fatal("user toggle lost in merge")
	}
	if got.Price.Amount("USD") != 600 {
		t.Fatalf("definition price not adopted: %d", got.Price.Amount("USD"))
	}
}

func TestVariantValidate(t *testing.T) {
	choice := ConfigurationChoice{Label: en("A")}
	group := SwitchGroup{Label: en("B")}

	valid := []OptionVariant{NewChoiceVariant(choice), NewSwitchGroupVariant(group)}
	for _, v := range valid {
		if err := v.Validate(); err != nil {
			t.Fatalf("unexpected validation error: %v", err)
		}
	}

	invalid := []OptionVariant{
		{Kind: VariantChoice},
		{Kind: VariantSwitchGroup},
		{Kind: "other"},
		{Kind: VariantChoice, Choice: &choice, Switches: &group},
	}
	for _, v := range invalid {
		if err := v.Validate(); !errors.Is(err, ErrInvalidState) {
			t.Fatalf("expected ErrInvalidState for %+v, got %v", v, err)
		}
	}
}
