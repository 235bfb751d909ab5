package conversation

import (
	"context"
	"fmt"
	"strings"

	domain "github.com/craftline/shopbot/internal/domain"
	"github.com/craftline/shopbot/internal/platform/textutil"
)

func (e *Engine) handleChoiceEditValue(ctx context.Context, t *turn) error {
	cfg, err := e.configuration(ctx, t)
	if err != nil {
		return err
	}
	optionKey := t.session.GetString(keyOptionKey)
	option, ok := cfg.Options[optionKey]
	if !ok {
		return fmt.Errorf("conversation engine: option %q not in configuration", optionKey)
	}

	if t.text() == labelCancel {
		return e.revertOption(ctx, t, cfg, optionKey)
	}

	variant, err := option.ChosenVariant()
	if err != nil {
		return err
	}
	if variant.Kind != domain.VariantChoice || variant.Choice == nil {
		return fmt.Errorf("conversation engine: chosen variant of %q does not take a value", optionKey)
	}
	choice := variant.Choice

	if textutil.IsNumeric(t.text()) {
		preset := textutil.ParseMenuNumber(t.text())
		if !choice.HasPresets || preset < 1 || preset > choice.PresetCount {
			// Out-of-range digits are dropped with a silent re-prompt.
			return e.renderChoiceEdit(ctx, t, *choice)
		}
		choice.PresetChosen = preset
	} else {
		if !choice.IsCustomInput {
			return e.renderChoiceEdit(ctx, t, *choice)
		}
		text := textutil.SanitizeFreeText(t.event.Text)
		if text == "" {
			return e.renderChoiceEdit(ctx, t, *choice)
		}
		choice.CustomText = text
	}

	if err := cfg.RefreshPrice(); err != nil {
		return err
	}
	t.saveConfiguration(cfg)
	t.session.State = StateOptionSelect
	return e.renderOption(ctx, t, cfg, optionKey)
}

// revertOption restores the pre-edit option snapshot and returns to the
// option screen.
func (e *Engine) revertOption(ctx context.Context, t *turn, cfg domain.ProductConfiguration, optionKey string) error {
	raw, ok := t.session.Get(keyBeforeOption).(map[string]any)
	if ok {
		restored, err := domain.OptionFromSnapshot(raw)
		if err != nil {
			return err
		}
		cfg.Options[optionKey] = restored
		if err := cfg.RefreshPrice(); err != nil {
			return err
		}
		t.saveConfiguration(cfg)
	}
	t.session.State = StateOptionSelect
	return e.renderOption(ctx, t, cfg, optionKey)
}

func (e *Engine) handleSwitchesEditing(ctx context.Context, t *turn) error {
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
		t.session.State = StateOptionSelect
		return e.renderOption(ctx, t, cfg, optionKey)
	}

	variant, err := option.ChosenVariant()
	if err != nil {
		return err
	}
	if variant.Kind != domain.VariantSwitchGroup || variant.Switches == nil {
		return fmt.Errorf("conversation engine: chosen variant of %q is not a switch group", optionKey)
	}
	group := variant.Switches

	label := textutil.StripEnabledMark(t.event.Text)
	key, found := group.SwitchByLabel(label, e.language)
	if !found {
		return e.renderSwitches(ctx, t, *group)
	}
	if err := group.Toggle(key); err != nil {
		return err
	}
	if err := cfg.RefreshPrice(); err != nil {
		return err
	}
	t.saveConfiguration(cfg)
	return e.renderSwitches(ctx, t, *group)
}

func (e *Engine) handleAdditionalsEditing(ctx context.Context, t *turn) error {
	cfg, err := e.configuration(ctx, t)
	if err != nil {
		return err
	}
	product, err := e.catalog.GetProduct(ctx, cfg.ProductID)
	if err != nil {
		return err
	}

	if t.text() == labelBack {
		t.session.State = StateFormingEntry
		return e.renderEntry(ctx, t, cfg, product)
	}

	// The allowed set is recomputed from the catalog on every render so
	// newly disallowed add-ons drop out immediately.
	allowed, err := e.catalog.AdditionalsFor(ctx, product)
	if err != nil {
		return err
	}

	label := textutil.StripEnabledMark(t.event.Text)
	for _, add := range allowed {
		if strings.TrimSpace(add.Name.Get(e.language)) == label {
			if err := cfg.ToggleAdditional(add); err != nil {
				return err
			}
			t.saveConfiguration(cfg)
			break
		}
	}
	return e.renderAdditionals(ctx, t, cfg, allowed)
}

func (e *Engine) renderChoiceEdit(ctx context.Context, t *turn, choice domain.ConfigurationChoice) error {
	var text strings.Builder
	if description := choice.Description.Get(e.language); description != "" {
		text.WriteString(description)
	} else {
		text.WriteString(choice.Label.Get(e.language))
	}
	if choice.HasPresets {
		fmt.Fprintf(&text, "\nEnter a number between 1 and %d.", choice.PresetCount)
		if choice.PresetChosen > 0 {
			fmt.Fprintf(&text, " Current pick: %d.", choice.PresetChosen)
		}
	}
	if choice.IsCustomInput {
		text.WriteString("\nOr send your own text.")
	}

	mediaURL, err := e.catalog.MediaURL(ctx, choice.Media)
	if err != nil {
		mediaURL = ""
	}
	view := View{
		Text:     text.String(),
		MediaURL: mediaURL,
		Items:    []ViewItem{{Label: labelCancel}},
	}
	if mediaURL != "" {
		view.MediaKind = choice.Media.Kind
	}
	return e.send(ctx, t.event.UserID, view)
}

func (e *Engine) renderSwitches(ctx context.Context, t *turn, group domain.SwitchGroup) error {
	items := make([]ViewItem, 0, len(group.Switches)+1)
	for _, key := range group.SwitchKeys() {
		sw := group.Switches[key]
		label := sw.Label.Get(e.language)
		if sw.Enabled {
			label = textutil.MarkEnabled(label)
		}
		items = append(items, ViewItem{Label: label, Selected: sw.Enabled})
	}
	items = append(items, ViewItem{Label: labelBack})

	prompt := group.Label.Get(e.language)
	if prompt == "" {
		prompt = "Toggle the options you want."
	}
	return e.send(ctx, t.event.UserID, View{Text: prompt, Items: items})
}

func (e *Engine) renderAdditionals(ctx context.Context, t *turn, cfg domain.ProductConfiguration, allowed []domain.ProductAdditional) error {
	items := make([]ViewItem, 0, len(allowed)+1)
	for _, add := range allowed {
		label := add.Name.Get(e.language)
		selected := cfg.HasAdditional(add.ID)
		if selected {
			label = textutil.MarkEnabled(label)
		}
		items = append(items, ViewItem{Label: label, Selected: selected})
	}
	items = append(items, ViewItem{Label: labelBack})
	return e.send(ctx, t.event.UserID, View{Text: "Pick your add-ons.", Items: items})
}
