package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrInvalidState indicates a structurally corrupted option, e.g. a chosen
	// key that no longer exists in the choice set.
	ErrInvalidState = errors.New("configuration: invalid state")
	// ErrUnknownChoice indicates the caller referenced a choice key that is not
	// part of the option.
	ErrUnknownChoice = errors.New("configuration: unknown choice")
	// ErrInvalidBlockPath indicates a blocking path string could not be parsed.
	ErrInvalidBlockPath = errors.New("configuration: invalid blocking path")
)

// MediaKind enumerates the media attachment types a catalog entry can carry.
type MediaKind string

const (
	// MediaNone indicates no media attachment.
	MediaNone MediaKind = ""
	// MediaPhoto marks a photo reference.
	MediaPhoto MediaKind = "photo"
	// MediaVideo marks a video reference.
	MediaVideo MediaKind = "video"
)

// MediaRef points at a stored media object presented alongside a prompt.
type MediaRef struct {
	Kind MediaKind
	Path string
}

// IsZero reports whether no media is attached.
func (m MediaRef) IsZero() bool { return m.Kind == MediaNone || strings.TrimSpace(m.Path) == "" }

// VariantKind discriminates the two kinds of selectable variants an option
// can hold.
type VariantKind string

const (
	// VariantChoice is a single exclusive pick.
	VariantChoice VariantKind = "choice"
	// VariantSwitchGroup is a set of independently toggleable switches.
	VariantSwitchGroup VariantKind = "switch_group"
)

// ConfigurationSwitch is one independently toggleable boolean sub-setting.
type ConfigurationSwitch struct {
	Label   LocalizedText
	Price   LocalizedMoney
	Enabled bool
}

// Clone returns an independent copy of the switch.
func (s ConfigurationSwitch) Clone() ConfigurationSwitch {
	return ConfigurationSwitch{
		Label:   s.Label.Clone(),
		Price:   s.Price.Clone(),
		Enabled: s.Enabled,
	}
}

// SwitchGroup is a variant holding zero or more independent switches. Unlike a
// choice it is never "picked" exclusively; each switch contributes its price
// while enabled.
type SwitchGroup struct {
	Label    LocalizedText
	Order    []string
	Switches map[string]ConfigurationSwitch
}

// Clone returns an independent deep copy of the group.
func (g SwitchGroup) Clone() SwitchGroup {
	out := SwitchGroup{
		Label: g.Label.Clone(),
		Order: append([]string(nil), g.Order...),
	}
	if g.Switches != nil {
		out.Switches = make(map[string]ConfigurationSwitch, len(g.Switches))
		for key, sw := range g.Switches {
			out.Switches[key] = sw.Clone()
		}
	}
	return out
}

// SwitchKeys returns the switch keys in presentation order: the declared order
// first, then any remaining keys sorted.
func (g SwitchGroup) SwitchKeys() []string {
	return orderedKeys(g.Order, len(g.Switches), func(key string) bool {
		_, ok := g.Switches[key]
		return ok
	}, func() []string {
		keys := make([]string, 0, len(g.Switches))
		for key := range g.Switches {
			keys = append(keys, key)
		}
		return keys
	})
}

// Price sums the prices of all currently enabled switches.
func (g SwitchGroup) Price() LocalizedMoney {
	total := LocalizedMoney{}
	for _, sw := range g.Switches {
		if sw.Enabled {
			total = total.Add(sw.Price)
		}
	}
	return total
}

// EnabledSwitches returns the enabled switches in presentation order.
func (g SwitchGroup) EnabledSwitches() []ConfigurationSwitch {
	out := make([]ConfigurationSwitch, 0, len(g.Switches))
	for _, key := range g.SwitchKeys() {
		if sw, ok := g.Switches[key]; ok && sw.Enabled {
			out = append(out, sw)
		}
	}
	return out
}

// Toggle flips the enabled flag of the named switch.
func (g *SwitchGroup) Toggle(key string) error {
	sw, ok := g.Switches[key]
	if !ok {
		return fmt.Errorf("%w: switch %q", ErrUnknownChoice, key)
	}
	sw.Enabled = !sw.Enabled
	g.Switches[key] = sw
	return nil
}

// SwitchByLabel resolves a switch key from its localized label.
func (g SwitchGroup) SwitchByLabel(label, lang string) (string, bool) {
	needle := strings.TrimSpace(label)
	for _, key := range g.SwitchKeys() {
		if strings.TrimSpace(g.Switches[key].Label.Get(lang)) == needle {
			return key, true
		}
	}
	return "", false
}

// ConfigurationChoice is a single exclusive selectable value within an option.
type ConfigurationChoice struct {
	Label       LocalizedText
	Description LocalizedText
	Media       MediaRef

	// Numbered pre-made variants selected by digit entry.
	HasPresets   bool
	PresetCount  int
	PresetChosen int // 1-based; 0 while unset

	// Free-text value collected from the user.
	IsCustomInput bool
	CustomText    string

	Price LocalizedMoney

	// BlockedBy lists other selections that make this choice unavailable.
	BlockedBy []BlockPath
	// BlocksPricing marks choices that make the total non-computable
	// (quote required).
	BlocksPricing bool
}

// Clone returns an independent deep copy of the choice.
func (c ConfigurationChoice) Clone() ConfigurationChoice {
	out := c
	out.Label = c.Label.Clone()
	out.Description = c.Description.Clone()
	out.Price = c.Price.Clone()
	out.BlockedBy = append([]BlockPath(nil), c.BlockedBy...)
	return out
}

// NeedsInput reports whether selecting the choice requires a follow-up value
// (preset digit or free text) before it is complete.
func (c ConfigurationChoice) NeedsInput() bool { return c.HasPresets || c.IsCustomInput }

// Blocking evaluates every declared blocking path against the live option
// mapping and returns the first satisfied path.
func (c ConfigurationChoice) Blocking(options map[string]ConfigurationOption) (BlockPath, bool) {
	for _, path := range c.BlockedBy {
		if path.Active(options) {
			return path, true
		}
	}
	return BlockPath{}, false
}

// BlockPath addresses another option/choice(/switch) combination that locks a
// choice while active. Its string form is "optionKey/choiceKey[/switchKey]".
type BlockPath struct {
	Option string
	Choice string
	Switch string
}

// ParseBlockPath parses the serialized path form.
func ParseBlockPath(raw string) (BlockPath, error) {
	parts := strings.Split(strings.TrimSpace(raw), "/")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	switch {
	case len(parts) == 2 && parts[0] != "" && parts[1] != "":
		return BlockPath{Option: parts[0], Choice: parts[1]}, nil
	case len(parts) == 3 && parts[0] != "" && parts[1] != "" && parts[2] != "":
		return BlockPath{Option: parts[0], Choice: parts[1], Switch: parts[2]}, nil
	}
	return BlockPath{}, fmt.Errorf("%w: %q", ErrInvalidBlockPath, raw)
}

// String renders the serialized path form.
func (p BlockPath) String() string {
	if p.Switch != "" {
		return p.Option + "/" + p.Choice + "/" + p.Switch
	}
	return p.Option + "/" + p.Choice
}

// Active reports whether the referenced combination is currently selected. A
// two-segment path matches when the named option's chosen key equals the
// choice segment; a three-segment path additionally requires the chosen
// variant to be a switch group with the named switch enabled.
func (p BlockPath) Active(options map[string]ConfigurationOption) bool {
	opt, ok := options[p.Option]
	if !ok {
		return false
	}
	if opt.Chosen != p.Choice {
		return false
	}
	if p.Switch == "" {
		return true
	}
	variant, ok := opt.Choices[opt.Chosen]
	if !ok || variant.Kind != VariantSwitchGroup || variant.Switches == nil {
		return false
	}
	sw, ok := variant.Switches.Switches[p.Switch]
	return ok && sw.Enabled
}

// OptionVariant is the closed sum of the two variant kinds an option key can
// resolve to. Exactly one of Choice/Switches is set, matching Kind.
type OptionVariant struct {
	Kind     VariantKind
	Choice   *ConfigurationChoice
	Switches *SwitchGroup
}

// NewChoiceVariant wraps a choice as an option variant.
func NewChoiceVariant(choice ConfigurationChoice) OptionVariant {
	c := choice.Clone()
	return OptionVariant{Kind: VariantChoice, Choice: &c}
}

// NewSwitchGroupVariant wraps a switch group as an option variant.
func NewSwitchGroupVariant(group SwitchGroup) OptionVariant {
	g := group.Clone()
	return OptionVariant{Kind: VariantSwitchGroup, Switches: &g}
}

// Validate checks that the discriminant and payload agree.
func (v OptionVariant) Validate() error {
	switch v.Kind {
	case VariantChoice:
		if v.Choice == nil || v.Switches != nil {
			return fmt.Errorf("%w: choice variant payload mismatch", ErrInvalidState)
		}
	case VariantSwitchGroup:
		if v.Switches == nil || v.Choice != nil {
			return fmt.Errorf("%w: switch group variant payload mismatch", ErrInvalidState)
		}
	default:
		return fmt.Errorf("%w: unknown variant kind %q", ErrInvalidState, v.Kind)
	}
	return nil
}

// Clone returns an independent deep copy of the variant.
func (v OptionVariant) Clone() OptionVariant {
	out := OptionVariant{Kind: v.Kind}
	if v.Choice != nil {
		c := v.Choice.Clone()
		out.Choice = &c
	}
	if v.Switches != nil {
		g := v.Switches.Clone()
		out.Switches = &g
	}
	return out
}

// Label returns the variant's display label for the language.
func (v OptionVariant) Label(lang string) string {
	switch v.Kind {
	case VariantChoice:
		if v.Choice != nil {
			return v.Choice.Label.Get(lang)
		}
	case VariantSwitchGroup:
		if v.Switches != nil {
			return v.Switches.Label.Get(lang)
		}
	}
	return ""
}

// Price returns the variant's contribution when it is the chosen variant.
// Switch groups contribute through the option-level switch scan instead, so
// their chosen-price is zero.
func (v OptionVariant) Price() LocalizedMoney {
	if v.Kind == VariantChoice && v.Choice != nil {
		return v.Choice.Price.Clone()
	}
	return LocalizedMoney{}
}

// ConfigurationOption is one configurable axis of a product: a localized
// name/prompt plus a keyed set of variants, one of which is chosen.
type ConfigurationOption struct {
	Name    LocalizedText
	Prompt  LocalizedText
	Media   MediaRef
	Order   []string
	Choices map[string]OptionVariant
	Chosen  string
}

// Clone returns an independent deep copy of the option.
func (o ConfigurationOption) Clone() ConfigurationOption {
	out := ConfigurationOption{
		Name:   o.Name.Clone(),
		Prompt: o.Prompt.Clone(),
		Media:  o.Media,
		Order:  append([]string(nil), o.Order...),
		Chosen: o.Chosen,
	}
	if o.Choices != nil {
		out.Choices = make(map[string]OptionVariant, len(o.Choices))
		for key, variant := range o.Choices {
			out.Choices[key] = variant.Clone()
		}
	}
	return out
}

// ChoiceKeys returns the choice keys in presentation order: declared order
// first, then any remaining keys sorted.
func (o ConfigurationOption) ChoiceKeys() []string {
	return orderedKeys(o.Order, len(o.Choices), func(key string) bool {
		_, ok := o.Choices[key]
		return ok
	}, func() []string {
		keys := make([]string, 0, len(o.Choices))
		for key := range o.Choices {
			keys = append(keys, key)
		}
		return keys
	})
}

// ChosenVariant returns the currently chosen variant. A chosen key missing
// from the choice set indicates a corrupted session and fails with
// ErrInvalidState.
func (o ConfigurationOption) ChosenVariant() (OptionVariant, error) {
	variant, ok := o.Choices[o.Chosen]
	if !ok {
		return OptionVariant{}, fmt.Errorf("%w: chosen key %q not in choices", ErrInvalidState, o.Chosen)
	}
	return variant, nil
}

// SetChosen points the option at the named choice key. Unknown keys fail
// loudly with ErrUnknownChoice rather than leaving the option ambiguous.
func (o *ConfigurationOption) SetChosen(key string) error {
	if _, ok := o.Choices[key]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownChoice, key)
	}
	o.Chosen = key
	return nil
}

// Price computes the option's contribution: the chosen choice's price (zero
// when a switch group is chosen) plus the enabled switches of every switch
// group variant under the option, regardless of which variant is chosen.
func (o ConfigurationOption) Price() (LocalizedMoney, error) {
	chosen, err := o.ChosenVariant()
	if err != nil {
		return nil, err
	}
	total := chosen.Price()
	for _, key := range o.ChoiceKeys() {
		variant := o.Choices[key]
		if variant.Kind == VariantSwitchGroup && variant.Switches != nil {
			total = total.Add(variant.Switches.Price())
		}
	}
	return total, nil
}

// EnabledSwitches flattens the enabled switches across every switch group
// variant under the option.
func (o ConfigurationOption) EnabledSwitches() []ConfigurationSwitch {
	var out []ConfigurationSwitch
	for _, key := range o.ChoiceKeys() {
		variant := o.Choices[key]
		if variant.Kind == VariantSwitchGroup && variant.Switches != nil {
			out = append(out, variant.Switches.EnabledSwitches()...)
		}
	}
	return out
}

// BlocksPricing reports whether the chosen variant makes the total price
// non-computable.
func (o ConfigurationOption) BlocksPricing() bool {
	variant, err := o.ChosenVariant()
	if err != nil {
		return false
	}
	return variant.Kind == VariantChoice && variant.Choice != nil && variant.Choice.BlocksPricing
}

// MergeOption reconciles a user-edited option against the catalog's newer
// definition, returning a fresh option. Static fields follow the newer
// definition; per-choice definition fields (labels, media, prices, preset
// counts) follow the newer definition while user state (chosen key, preset
// selection, custom text, switch toggles) survives for keys that still exist.
// Choices absent from the newer definition are dropped.
func MergeOption(current, base ConfigurationOption) ConfigurationOption {
	merged := ConfigurationOption{
		Name:    base.Name.Clone(),
		Prompt:  base.Prompt.Clone(),
		Media:   base.Media,
		Order:   append([]string(nil), base.Order...),
		Choices: make(map[string]OptionVariant, len(base.Choices)),
	}

	for key, baseVariant := range base.Choices {
		out := baseVariant.Clone()
		currentVariant, ok := current.Choices[key]
		if ok && currentVariant.Kind == out.Kind {
			switch out.Kind {
			case VariantChoice:
				if out.Choice != nil && currentVariant.Choice != nil {
					out.Choice.CustomText = currentVariant.Choice.CustomText
					preset := currentVariant.Choice.PresetChosen
					if preset > out.Choice.PresetCount {
						preset = 0
					}
					out.Choice.PresetChosen = preset
				}
			case VariantSwitchGroup:
				if out.Switches != nil && currentVariant.Switches != nil {
					for swKey, sw := range out.Switches.Switches {
						if prev, ok := currentVariant.Switches.Switches[swKey]; ok {
							sw.Enabled = prev.Enabled
							out.Switches.Switches[swKey] = sw
						}
					}
				}
			}
		}
		merged.Choices[key] = out
	}

	merged.Chosen = base.Chosen
	if _, ok := merged.Choices[current.Chosen]; ok {
		merged.Chosen = current.Chosen
	}
	return merged
}

// orderedKeys merges a declared ordering with the remaining keys sorted.
func orderedKeys(order []string, size int, contains func(string) bool, all func() []string) []string {
	out := make([]string, 0, size)
	seen := make(map[string]struct{}, size)
	for _, key := range order {
		if !contains(key) {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, key)
	}
	var rest []string
	for _, key := range all() {
		if _, ok := seen[key]; !ok {
			rest = append(rest, key)
		}
	}
	sort.Strings(rest)
	return append(out, rest...)
}
