package conversation

import (
	"context"
	"fmt"
	"strings"

	domain "github.com/craftline/shopbot/internal/domain"
	"github.com/craftline/shopbot/internal/services"
)

func (e *Engine) handleFormingEntry(ctx context.Context, t *turn) error {
	cfg, err := e.configuration(ctx, t)
	if err != nil {
		return err
	}
	product, err := e.catalog.GetProduct(ctx, cfg.ProductID)
	if err != nil {
		return err
	}

	switch t.text() {
	case labelFinish:
		return e.finishEntry(ctx, t, cfg, product)
	case labelCancel:
		t.clearConfiguration()
		t.session.State = StateViewingProduct
		return e.renderProduct(ctx, t, product, "")
	case labelAddons:
		allowed, err := e.catalog.AdditionalsFor(ctx, product)
		if err != nil {
			return err
		}
		if len(allowed) == 0 {
			return e.renderEntry(ctx, t, cfg, product)
		}
		t.session.State = StateAdditionalsEditing
		return e.renderAdditionals(ctx, t, cfg, allowed)
	}

	if key, option, ok := cfg.OptionByName(t.text(), e.language); ok {
		// Snapshot the option before edits begin so cancel can revert.
		t.session.Set(keyOptionKey, key)
		t.session.Set(keyBeforeOption, option.Snapshot())
		t.session.State = StateOptionSelect
		return e.renderOption(ctx, t, cfg, key)
	}
	return e.renderEntry(ctx, t, cfg, product)
}

func (e *Engine) finishEntry(ctx context.Context, t *turn, cfg domain.ProductConfiguration, product domain.Product) error {
	_, _, err := e.carts.AddConfiguredEntry(ctx, services.AddEntryCommand{
		UserID:        t.event.UserID,
		Product:       product,
		Configuration: cfg,
	})
	if err != nil {
		return err
	}
	t.clearConfiguration()
	t.session.State = StateViewingProduct
	return e.renderProduct(ctx, t, product, "Added to your cart.")
}

func (e *Engine) handleOptionSelect(ctx context.Context, t *turn) error {
	cfg, err := e.configuration(ctx, t)
	if err != nil {
		return err
	}
	optionKey := t.session.GetString(keyOptionKey)
	option, ok := cfg.Options[optionKey]
	if !ok {
		return fmt.Errorf("conversation engine: option %q not in configuration", optionKey)
	}

	if t.text() == labelBack {
		t.session.Delete(keyOptionKey)
		t.session.Delete(keyBeforeOption)
		t.session.State = StateFormingEntry
		product, err := e.catalog.GetProduct(ctx, cfg.ProductID)
		if err != nil {
			return err
		}
		return e.renderEntry(ctx, t, cfg, product)
	}

	choiceKey, variant, ok := matchVariant(option, t.text(), e.language)
	if !ok {
		return e.renderOption(ctx, t, cfg, optionKey)
	}

	switch variant.Kind {
	case domain.VariantChoice:
		// A blocked choice must not be committed even when the transport
		// replays its label.
		if _, blocked := variant.Choice.Blocking(cfg.Options); blocked {
			return e.renderOption(ctx, t, cfg, optionKey)
		}
		if variant.Choice.NeedsInput() {
			// Re-snapshot so cancel restores the pre-edit chosen value even
			// after earlier direct commits in this state.
			t.session.Set(keyBeforeOption, option.Snapshot())
		}
		if err := option.SetChosen(choiceKey); err != nil {
			return err
		}
		cfg.Options[optionKey] = option
		if err := cfg.RefreshPrice(); err != nil {
			return err
		}
		t.saveConfiguration(cfg)
		if variant.Choice.NeedsInput() {
			t.session.State = StateChoiceEditValue
			return e.renderChoiceEdit(ctx, t, *variant.Choice)
		}
		return e.renderOption(ctx, t, cfg, optionKey)
	case domain.VariantSwitchGroup:
		if err := option.SetChosen(choiceKey); err != nil {
			return err
		}
		cfg.Options[optionKey] = option
		if err := cfg.RefreshPrice(); err != nil {
			return err
		}
		t.saveConfiguration(cfg)
		t.session.State = StateSwitchesEditing
		return e.renderSwitches(ctx, t, *variant.Switches)
	}
	return e.renderOption(ctx, t, cfg, optionKey)
}

// matchVariant resolves an incoming label to the option's variant key.
func matchVariant(option domain.ConfigurationOption, label, lang string) (string, domain.OptionVariant, bool) {
	needle := strings.TrimSpace(label)
	for _, key := range option.ChoiceKeys() {
		variant := option.Choices[key]
		if strings.TrimSpace(variant.Label(lang)) == needle {
			return key, variant, true
		}
	}
	return "", domain.OptionVariant{}, false
}

func (e *Engine) renderEntry(ctx context.Context, t *turn, cfg domain.ProductConfiguration, product domain.Product) error {
	var text strings.Builder
	fmt.Fprintf(&text, "Configuring %s.\n", product.Name.Get(e.language))
	fmt.Fprintf(&text, "Current total: %s", e.formatPrice(product.BasePrice.Add(cfg.Price), cfg.PriceBlocked))

	items := make([]ViewItem, 0, len(cfg.Options)+3)
	for _, key := range cfg.OptionKeys() {
		items = append(items, ViewItem{Label: cfg.Options[key].Name.Get(e.language)})
	}
	allowed, err := e.catalog.AdditionalsFor(ctx, product)
	if err != nil {
		return err
	}
	if len(allowed) > 0 {
		items = append(items, ViewItem{Label: labelAddons})
	}
	items = append(items, ViewItem{Label: labelFinish}, ViewItem{Label: labelCancel})
	return e.send(ctx, t.event.UserID, View{Text: text.String(), Items: items})
}

func (e *Engine) renderOption(ctx context.Context, t *turn, cfg domain.ProductConfiguration, optionKey string) error {
	option, ok := cfg.Options[optionKey]
	if !ok {
		return fmt.Errorf("conversation engine: option %q not in configuration", optionKey)
	}

	prompt := option.Prompt.Get(e.language)
	if prompt == "" {
		prompt = option.Name.Get(e.language)
	}

	var lockNotes []string
	items := make([]ViewItem, 0, len(option.Choices)+1)
	for _, key := range option.ChoiceKeys() {
		variant := option.Choices[key]
		item := ViewItem{
			Label:    variant.Label(e.language),
			Selected: key == option.Chosen,
		}
		if variant.Kind == domain.VariantChoice && variant.Choice != nil {
			if path, blocked := variant.Choice.Blocking(cfg.Options); blocked {
				item.Locked = true
				if labels := cfg.LabelsForPath(path, e.language); len(labels) > 0 {
					lockNotes = append(lockNotes, fmt.Sprintf("%s is unavailable while %s is selected.", item.Label, strings.Join(labels, " / ")))
				}
			}
		}
		items = append(items, item)
	}
	items = append(items, ViewItem{Label: labelBack})

	text := prompt
	if len(lockNotes) > 0 {
		text = prompt + "\n" + strings.Join(lockNotes, "\n")
	}
	return e.send(ctx, t.event.UserID, View{Text: text, Items: items})
}
