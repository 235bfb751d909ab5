package domain

import (
	"sort"
	"strings"
	"time"
)

// Product is the catalog-facing description of a configurable item.
type Product struct {
	ID          string
	Category    string
	Name        LocalizedText
	Description LocalizedText
	Media       MediaRef
	BasePrice   LocalizedMoney
	IsPublished bool
	UpdatedAt   time.Time
}

// ProductAdditional is an optional add-on attachable to a product, filtered by
// category and a per-product disallow list.
type ProductAdditional struct {
	ID                 string
	Name               LocalizedText
	Price              LocalizedMoney
	Category           string
	DisallowedProducts []string
}

// Clone returns an independent copy of the additional.
func (a ProductAdditional) Clone() ProductAdditional {
	out := a
	out.Name = a.Name.Clone()
	out.Price = a.Price.Clone()
	out.DisallowedProducts = append([]string(nil), a.DisallowedProducts...)
	return out
}

// AllowedFor reports whether the additional may be attached to the product.
func (a ProductAdditional) AllowedFor(productID string) bool {
	for _, disallowed := range a.DisallowedProducts {
		if disallowed == productID {
			return false
		}
	}
	return true
}

// ProductConfiguration is the full configurable state of one product
// instance: every option plus the selected add-ons and the cached aggregate
// price. Instances are owned by a single session and never shared.
type ProductConfiguration struct {
	ProductID   string
	Options     map[string]ConfigurationOption
	OptionOrder []string
	Additionals []ProductAdditional

	// Price caches the aggregate; refreshed after every mutation.
	Price LocalizedMoney
	// PriceBlocked is set while any chosen choice blocks price determination.
	PriceBlocked bool
}

// NewProductConfiguration assembles a configuration and computes its initial
// price.
func NewProductConfiguration(productID string, options map[string]ConfigurationOption, order []string) (ProductConfiguration, error) {
	cfg := ProductConfiguration{
		ProductID:   strings.TrimSpace(productID),
		Options:     options,
		OptionOrder: append([]string(nil), order...),
	}
	if cfg.Options == nil {
		cfg.Options = map[string]ConfigurationOption{}
	}
	if err := cfg.RefreshPrice(); err != nil {
		return ProductConfiguration{}, err
	}
	return cfg, nil
}

// Clone returns an independent deep copy of the configuration.
func (c ProductConfiguration) Clone() ProductConfiguration {
	out := ProductConfiguration{
		ProductID:    c.ProductID,
		OptionOrder:  append([]string(nil), c.OptionOrder...),
		Price:        c.Price.Clone(),
		PriceBlocked: c.PriceBlocked,
	}
	if c.Options != nil {
		out.Options = make(map[string]ConfigurationOption, len(c.Options))
		for key, opt := range c.Options {
			out.Options[key] = opt.Clone()
		}
	}
	if c.Additionals != nil {
		out.Additionals = make([]ProductAdditional, 0, len(c.Additionals))
		for _, add := range c.Additionals {
			out.Additionals = append(out.Additionals, add.Clone())
		}
	}
	return out
}

// OptionKeys returns the option keys in presentation order.
func (c ProductConfiguration) OptionKeys() []string {
	return orderedKeys(c.OptionOrder, len(c.Options), func(key string) bool {
		_, ok := c.Options[key]
		return ok
	}, func() []string {
		keys := make([]string, 0, len(c.Options))
		for key := range c.Options {
			keys = append(keys, key)
		}
		return keys
	})
}

// RefreshPrice recomputes and caches the aggregate price: the sum of every
// option's price plus every selected additional's price. Idempotent.
func (c *ProductConfiguration) RefreshPrice() error {
	total := LocalizedMoney{}
	blocked := false
	for _, key := range c.OptionKeys() {
		opt := c.Options[key]
		price, err := opt.Price()
		if err != nil {
			return err
		}
		total = total.Add(price)
		if opt.BlocksPricing() {
			blocked = true
		}
	}
	for _, add := range c.Additionals {
		total = total.Add(add.Price)
	}
	c.Price = total
	c.PriceBlocked = blocked
	return nil
}

// HasAdditional reports whether the additional with the given id is selected.
func (c ProductConfiguration) HasAdditional(id string) bool {
	for _, add := range c.Additionals {
		if add.ID == id {
			return true
		}
	}
	return false
}

// ToggleAdditional adds the additional when absent and removes it when
// present, then refreshes the price.
func (c *ProductConfiguration) ToggleAdditional(add ProductAdditional) error {
	for i, existing := range c.Additionals {
		if existing.ID == add.ID {
			c.Additionals = append(c.Additionals[:i:i], c.Additionals[i+1:]...)
			return c.RefreshPrice()
		}
	}
	c.Additionals = append(c.Additionals, add.Clone())
	return c.RefreshPrice()
}

// Merge reconciles a stale, persisted configuration against the catalog's
// current base configuration, returning a fresh value. Options new in the
// base are adopted wholesale, shared options merge per MergeOption, vanished
// options are dropped, and additionals are filtered to the allowed id set.
func (c ProductConfiguration) Merge(base ProductConfiguration, allowed []ProductAdditional) (ProductConfiguration, error) {
	merged := ProductConfiguration{
		ProductID:   base.ProductID,
		OptionOrder: append([]string(nil), base.OptionOrder...),
		Options:     make(map[string]ConfigurationOption, len(base.Options)),
	}

	for key, baseOption := range base.Options {
		if currentOption, ok := c.Options[key]; ok {
			merged.Options[key] = MergeOption(currentOption, baseOption)
		} else {
			merged.Options[key] = baseOption.Clone()
		}
	}

	allowedIDs := make(map[string]struct{}, len(allowed))
	for _, add := range allowed {
		allowedIDs[add.ID] = struct{}{}
	}
	for _, add := range c.Additionals {
		if _, ok := allowedIDs[add.ID]; ok {
			merged.Additionals = append(merged.Additionals, add.Clone())
		}
	}

	if err := merged.RefreshPrice(); err != nil {
		return ProductConfiguration{}, err
	}
	return merged, nil
}

// OptionByName reverse-looks-up an option by its localized display name,
// mapping a button label back to the canonical option key.
func (c ProductConfiguration) OptionByName(name, lang string) (string, ConfigurationOption, bool) {
	needle := strings.TrimSpace(name)
	for _, key := range c.OptionKeys() {
		opt := c.Options[key]
		if strings.TrimSpace(opt.Name.Get(lang)) == needle {
			return key, opt, true
		}
	}
	return "", ConfigurationOption{}, false
}

// LabelsForPath resolves a blocking path into a breadcrumb of localized
// labels for user-facing lock explanations. Unresolvable segments yield a
// partial prefix.
func (c ProductConfiguration) LabelsForPath(path BlockPath, lang string) []string {
	opt, ok := c.Options[path.Option]
	if !ok {
		return nil
	}
	labels := []string{opt.Name.Get(lang)}

	variant, ok := opt.Choices[path.Choice]
	if !ok {
		return labels
	}
	labels = append(labels, variant.Label(lang))

	if path.Switch == "" {
		return labels
	}
	if variant.Kind != VariantSwitchGroup || variant.Switches == nil {
		return labels
	}
	sw, ok := variant.Switches.Switches[path.Switch]
	if !ok {
		return labels
	}
	return append(labels, sw.Label.Get(lang))
}

// SortedAdditionalIDs returns the selected additional ids in sorted order.
func (c ProductConfiguration) SortedAdditionalIDs() []string {
	ids := make([]string, 0, len(c.Additionals))
	for _, add := range c.Additionals {
		ids = append(ids, add.ID)
	}
	sort.Strings(ids)
	return ids
}
