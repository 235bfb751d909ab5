package domain

import (
	"errors"
	"fmt"
)

// SnapshotSchemaVersion tags persisted configuration snapshots so catalog
// evolution has a stable contract to merge against.
const SnapshotSchemaVersion = 2

var (
	// ErrSnapshotVersion indicates an unsupported snapshot schema version.
	ErrSnapshotVersion = errors.New("snapshot: unsupported schema version")
	// ErrSnapshotMalformed indicates the stored snapshot is not decodable.
	ErrSnapshotMalformed = errors.New("snapshot: malformed payload")
)

// Snapshot serialises the configuration into plain nested maps, slices, and
// scalars suitable for document storage. No references, no cycles.
func (c ProductConfiguration) Snapshot() map[string]any {
	options := make(map[string]any, len(c.Options))
	for key, opt := range c.Options {
		options[key] = opt.Snapshot()
	}
	additionals := make([]any, 0, len(c.Additionals))
	for _, add := range c.Additionals {
		additionals = append(additionals, map[string]any{
			"id":                 add.ID,
			"name":               textToMap(add.Name),
			"price":              moneyToMap(add.Price),
			"category":           add.Category,
			"disallowedProducts": stringsToAny(add.DisallowedProducts),
		})
	}
	return map[string]any{
		"schemaVersion": int64(SnapshotSchemaVersion),
		"productId":     c.ProductID,
		"options":       options,
		"optionOrder":   stringsToAny(c.OptionOrder),
		"additionals":   additionals,
		"price":         moneyToMap(c.Price),
		"priceBlocked":  c.PriceBlocked,
	}
}

// Snapshot serialises the option into plain nested maps and scalars.
func (o ConfigurationOption) Snapshot() map[string]any {
	choices := make(map[string]any, len(o.Choices))
	for key, variant := range o.Choices {
		choices[key] = variantToMap(variant)
	}
	return map[string]any{
		"name":    textToMap(o.Name),
		"prompt":  textToMap(o.Prompt),
		"media":   mediaToMap(o.Media),
		"order":   stringsToAny(o.Order),
		"choices": choices,
		"chosen":  o.Chosen,
	}
}

// ConfigurationFromSnapshot rebuilds a configuration from its stored form.
// Unknown schema versions are rejected so stale writers cannot silently
// corrupt newer state.
func ConfigurationFromSnapshot(raw map[string]any) (ProductConfiguration, error) {
	if raw == nil {
		return ProductConfiguration{}, fmt.Errorf("%w: nil snapshot", ErrSnapshotMalformed)
	}
	version := asInt64(raw["schemaVersion"])
	if version != SnapshotSchemaVersion {
		return ProductConfiguration{}, fmt.Errorf("%w: got %d, want %d", ErrSnapshotVersion, version, SnapshotSchemaVersion)
	}

	cfg := ProductConfiguration{
		ProductID:    asString(raw["productId"]),
		OptionOrder:  asStringSlice(raw["optionOrder"]),
		Options:      map[string]ConfigurationOption{},
		PriceBlocked: asBool(raw["priceBlocked"]),
		Price:        moneyFromAny(raw["price"]),
	}

	optionsRaw, ok := asMap(raw["options"])
	if !ok {
		return ProductConfiguration{}, fmt.Errorf("%w: options", ErrSnapshotMalformed)
	}
	for key, value := range optionsRaw {
		optionRaw, ok := asMap(value)
		if !ok {
			return ProductConfiguration{}, fmt.Errorf("%w: option %q", ErrSnapshotMalformed, key)
		}
		option, err := OptionFromSnapshot(optionRaw)
		if err != nil {
			return ProductConfiguration{}, fmt.Errorf("option %q: %w", key, err)
		}
		cfg.Options[key] = option
	}

	if addsRaw, ok := raw["additionals"].([]any); ok {
		for i, value := range addsRaw {
			addRaw, ok := asMap(value)
			if !ok {
				return ProductConfiguration{}, fmt.Errorf("%w: additional %d", ErrSnapshotMalformed, i)
			}
			cfg.Additionals = append(cfg.Additionals, ProductAdditional{
				ID:                 asString(addRaw["id"]),
				Name:               textFromAny(addRaw["name"]),
				Price:              moneyFromAny(addRaw["price"]),
				Category:           asString(addRaw["category"]),
				DisallowedProducts: asStringSlice(addRaw["disallowedProducts"]),
			})
		}
	}

	if err := cfg.RefreshPrice(); err != nil {
		return ProductConfiguration{}, err
	}
	return cfg, nil
}

// OptionFromSnapshot rebuilds an option from its stored form.
func OptionFromSnapshot(raw map[string]any) (ConfigurationOption, error) {
	if raw == nil {
		return ConfigurationOption{}, fmt.Errorf("%w: nil option", ErrSnapshotMalformed)
	}
	option := ConfigurationOption{
		Name:    textFromAny(raw["name"]),
		Prompt:  textFromAny(raw["prompt"]),
		Media:   mediaFromAny(raw["media"]),
		Order:   asStringSlice(raw["order"]),
		Chosen:  asString(raw["chosen"]),
		Choices: map[string]OptionVariant{},
	}
	choicesRaw, ok := asMap(raw["choices"])
	if !ok {
		return ConfigurationOption{}, fmt.Errorf("%w: choices", ErrSnapshotMalformed)
	}
	for key, value := range choicesRaw {
		variantRaw, ok := asMap(value)
		if !ok {
			return ConfigurationOption{}, fmt.Errorf("%w: choice %q", ErrSnapshotMalformed, key)
		}
		variant, err := variantFromMap(variantRaw)
		if err != nil {
			return ConfigurationOption{}, fmt.Errorf("choice %q: %w", key, err)
		}
		option.Choices[key] = variant
	}
	return option, nil
}

func variantToMap(v OptionVariant) map[string]any {
	out := map[string]any{"kind": string(v.Kind)}
	switch v.Kind {
	case VariantChoice:
		if v.Choice != nil {
			blocked := make([]any, 0, len(v.Choice.BlockedBy))
			for _, path := range v.Choice.BlockedBy {
				blocked = append(blocked, path.String())
			}
			out["label"] = textToMap(v.Choice.Label)
			out["description"] = textToMap(v.Choice.Description)
			out["media"] = mediaToMap(v.Choice.Media)
			out["hasPresets"] = v.Choice.HasPresets
			out["presetCount"] = int64(v.Choice.PresetCount)
			out["presetChosen"] = int64(v.Choice.PresetChosen)
			out["isCustomInput"] = v.Choice.IsCustomInput
			out["customText"] = v.Choice.CustomText
			out["price"] = moneyToMap(v.Choice.Price)
			out["blockedBy"] = blocked
			out["blocksPricing"] = v.Choice.BlocksPricing
		}
	case VariantSwitchGroup:
		if v.Switches != nil {
			switches := make(map[string]any, len(v.Switches.Switches))
			for key, sw := range v.Switches.Switches {
				switches[key] = map[string]any{
					"label":   textToMap(sw.Label),
					"price":   moneyToMap(sw.Price),
					"enabled": sw.Enabled,
				}
			}
			out["label"] = textToMap(v.Switches.Label)
			out["order"] = stringsToAny(v.Switches.Order)
			out["switches"] = switches
		}
	}
	return out
}

func variantFromMap(raw map[string]any) (OptionVariant, error) {
	kind := VariantKind(asString(raw["kind"]))
	switch kind {
	case VariantChoice:
		choice := ConfigurationChoice{
			Label:         textFromAny(raw["label"]),
			Description:   textFromAny(raw["description"]),
			Media:         mediaFromAny(raw["media"]),
			HasPresets:    asBool(raw["hasPresets"]),
			PresetCount:   int(asInt64(raw["presetCount"])),
			PresetChosen:  int(asInt64(raw["presetChosen"])),
			IsCustomInput: asBool(raw["isCustomInput"]),
			CustomText:    asString(raw["customText"]),
			Price:         moneyFromAny(raw["price"]),
			BlocksPricing: asBool(raw["blocksPricing"]),
		}
		for _, rawPath := range asStringSlice(raw["blockedBy"]) {
			path, err := ParseBlockPath(rawPath)
			if err != nil {
				return OptionVariant{}, err
			}
			choice.BlockedBy = append(choice.BlockedBy, path)
		}
		return OptionVariant{Kind: VariantChoice, Choice: &choice}, nil
	case VariantSwitchGroup:
		group := SwitchGroup{
			Label:    textFromAny(raw["label"]),
			Order:    asStringSlice(raw["order"]),
			Switches: map[string]ConfigurationSwitch{},
		}
		switchesRaw, ok := asMap(raw["switches"])
		if !ok {
			return OptionVariant{}, fmt.Errorf("%w: switches", ErrSnapshotMalformed)
		}
		for key, value := range switchesRaw {
			swRaw, ok := asMap(value)
			if !ok {
				return OptionVariant{}, fmt.Errorf("%w: switch %q", ErrSnapshotMalformed, key)
			}
			group.Switches[key] = ConfigurationSwitch{
				Label:   textFromAny(swRaw["label"]),
				Price:   moneyFromAny(swRaw["price"]),
				Enabled: asBool(swRaw["enabled"]),
			}
		}
		return OptionVariant{Kind: VariantSwitchGroup, Switches: &group}, nil
	}
	return OptionVariant{}, fmt.Errorf("%w: variant kind %q", ErrSnapshotMalformed, kind)
}

func textToMap(t LocalizedText) map[string]any {
	out := make(map[string]any, len(t))
	for lang, value := range t {
		out[lang] = value
	}
	return out
}

func moneyToMap(m LocalizedMoney) map[string]any {
	out := make(map[string]any, len(m))
	for code, amount := range m {
		out[code] = amount
	}
	return out
}

func mediaToMap(m MediaRef) map[string]any {
	return map[string]any{"kind": string(m.Kind), "path": m.Path}
}

func stringsToAny(values []string) []any {
	out := make([]any, 0, len(values))
	for _, value := range values {
		out = append(out, value)
	}
	return out
}

func textFromAny(value any) LocalizedText {
	raw, ok := asMap(value)
	if !ok {
		return LocalizedText{}
	}
	out := make(LocalizedText, len(raw))
	for lang, entry := range raw {
		out[lang] = asString(entry)
	}
	return out
}

func moneyFromAny(value any) LocalizedMoney {
	raw, ok := asMap(value)
	if !ok {
		return LocalizedMoney{}
	}
	out := make(LocalizedMoney, len(raw))
	for code, amount := range raw {
		out[code] = asInt64(amount)
	}
	return out
}

func mediaFromAny(value any) MediaRef {
	raw, ok := asMap(value)
	if !ok {
		return MediaRef{}
	}
	return MediaRef{Kind: MediaKind(asString(raw["kind"])), Path: asString(raw["path"])}
}

func asMap(value any) (map[string]any, bool) {
	m, ok := value.(map[string]any)
	return m, ok
}

func asString(value any) string {
	s, _ := value.(string)
	return s
}

func asBool(value any) bool {
	b, _ := value.(bool)
	return b
}

// asInt64 tolerates the numeric types produced by Firestore (int64) and JSON
// decoding (float64).
func asInt64(value any) int64 {
	switch v := value.(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case int32:
		return int64(v)
	case float64:
		return int64(v)
	case float32:
		return int64(v)
	}
	return 0
}

func asStringSlice(value any) []string {
	raw, ok := value.([]any)
	if !ok {
		if direct, ok := value.([]string); ok {
			return append([]string(nil), direct...)
		}
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, entry := range raw {
		out = append(out, asString(entry))
	}
	return out
}
