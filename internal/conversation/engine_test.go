package conversation

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	domain "github.com/craftline/shopbot/internal/domain"
)

func mustParsePath(t *testing.T, raw string) domain.BlockPath {
	t.Helper()
	path, err := domain.ParseBlockPath(raw)
	if err != nil {
		t.Fatalf("ParseBlockPath(%q) error: %v", raw, err)
	}
	return path
}

func mugConfiguration(t *testing.T) domain.ProductConfiguration {
	t.Helper()
	options := map[string]domain.ConfigurationOption{
		"size": {
			Name:   en("Size"),
			Prompt: en("Pick a size"),
			Order:  []string{"small", "large"},
			Choices: map[string]domain.OptionVariant{
				"small": domain.NewChoiceVariant(domain.ConfigurationChoice{Label: en("Small")}),
				"large": domain.NewChoiceVariant(domain.ConfigurationChoice{Label: en("Large"), Price: usd(500)}),
			},
			Chosen: "small",
		},
		"color": {
			Name:   en("Color"),
			Prompt: en("Pick a color"),
			Order:  []string{"plain", "custom"},
			Choices: map[string]domain.OptionVariant{
				"plain": domain.NewChoiceVariant(domain.ConfigurationChoice{Label: en("Plain")}),
				"custom": domain.NewChoiceVariant(domain.ConfigurationChoice{
					Label:         en("Custom color"),
					HasPresets:    true,
					PresetCount:   3,
					IsCustomInput: true,
					Price:         usd(200),
				}),
			},
			Chosen: "plain",
		},
		"coating": {
			Name:   en("Coating"),
			Prompt: en("Pick a coating"),
			Order:  []string{"glossy", "matte"},
			Choices: map[string]domain.OptionVariant{
				"glossy": domain.NewChoiceVariant(domain.ConfigurationChoice{Label: en("Glossy")}),
				"matte": domain.NewChoiceVariant(domain.ConfigurationChoice{
					Label:     en("Matte"),
					BlockedBy: []domain.BlockPath{mustParsePath(t, "size/large")},
				}),
			},
			Chosen: "glossy",
		},
		"engraving": {
			Name:   en("Engraving"),
			Prompt: en("Engraving options?"),
			Order:  []string{"group"},
			Choices: map[string]domain.OptionVariant{
				"group": domain.NewSwitchGroupVariant(domain.SwitchGroup{
					Label: en("Engraving options"),
					Order: []string{"initials", "date"},
					Switches: map[string]domain.ConfigurationSwitch{
						"initials": {Label: en("Initials"), Price: usd(300)},
						"date":     {Label: en("Date"), Price: usd(200)},
					},
				}),
			},
			Chosen: "group",
		},
	}
	cfg, err := domain.NewProductConfiguration("mug-1", options, []string{"size", "color", "coating", "engraving"})
	if err != nil {
		t.Fatalf("NewProductConfiguration error: %v", err)
	}
	return cfg
}

type engineFixture struct {
	engine   *Engine
	sessions *fakeSessions
	catalog  *fakeCatalog
	carts    *fakeCarts
	orders   *fakeOrders
	sink     *fakeSink
}

func newEngineFixture(t *testing.T) *engineFixture {
	t.Helper()
	catalog := newFakeCatalog()
	catalog.addProduct(domain.Product{
		ID:          "mug-1",
		Category:    "Mugs",
		Name:        en("Classic Mug"),
		Description: en("A classic mug."),
		BasePrice:   usd(1000),
		IsPublished: true,
	}, mugConfiguration(t))
	catalog.additionals = []domain.ProductAdditional{
		{ID: "gift-wrap", Category: "Mugs", Name: en("Gift wrap"), Price: usd(250)},
		{ID: "engraved-box", Category: "Mugs", Name: en("Engraved box"), Price: usd(900), DisallowedProducts: []string{"mug-1"}},
	}

	fixture := &engineFixture{
		sessions: newFakeSessions(),
		catalog:  catalog,
		carts:    newFakeCarts(),
		orders:   &fakeOrders{},
		sink:     &fakeSink{},
	}
	engine, err := NewEngine(EngineDeps{
		Sessions: fixture.sessions,
		Catalog:  fixture.catalog,
		Carts:    fixture.carts,
		Orders:   fixture.orders,
		Sink:     fixture.sink,
		Clock:    func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) },
		Language: "en",
		Currency: "usd",
		Symbols:  domain.CurrencySymbols{"USD": "$"},
	})
	if err != nil {
		t.Fatalf("NewEngine error: %v", err)
	}
	fixture.engine = engine
	return fixture
}

func (f *engineFixture) drive(t *testing.T, userID string, texts ...string) {
	t.Helper()
	for _, text := range texts {
		if err := f.engine.Handle(context.Background(), Event{UserID: userID, Text: text}); err != nil {
			t.Fatalf("Handle(%q) error: %v", text, err)
		}
	}
}

func (f *engineFixture) state(userID string) string {
	return f.sessions.stored(userID).State
}

func (f *engineFixture) storedConfig(t *testing.T, userID string) domain.ProductConfiguration {
	t.Helper()
	raw, ok := f.sessions.stored(userID).Get(keyConfiguration).(map[string]any)
	if !ok {
		t.Fatalf("no configuration stored for %s", userID)
	}
	cfg, err := domain.ConfigurationFromSnapshot(raw)
	if err != nil {
		t.Fatalf("ConfigurationFromSnapshot error: %v", err)
	}
	return cfg
}

// enterConfiguration walks: main menu, catalog, category, product, configure.
func (f *engineFixture) enterConfiguration(t *testing.T, userID string) {
	t.Helper()
	f.drive(t, userID, "hi", labelCatalog, "Mugs", "Classic Mug", labelConfig)
	if got := f.state(userID); got != StateFormingEntry {
		t.Fatalf("state = %q, want %q", got, StateFormingEntry)
	}
}

func TestEngineBrowseToConfigure(t *testing.T) {
	f := newEngineFixture(t)
	f.enterConfiguration(t, "user-1")

	labels := f.sink.labels()
	for _, want := range []string{"Size", "Color", "Coating", "Engraving", labelAddons, labelFinish, labelCancel} {
		found := false
		for _, label := range labels {
			if label == want {
				found = true
				break
			}
		}
		if !found {
			t.Fatalf("entry view missing %q (labels: %v)", want, labels)
		}
	}
	if !strings.Contains(f.sink.last().Text, "10.00 $") {
		t.Fatalf("entry text lacks base total: %q", f.sink.last().Text)
	}
}

func TestEngineDirectChoiceCommit(t *testing.T) {
	f := newEngineFixture(t)
	f.enterConfiguration(t, "user-1")

	f.drive(t, "user-1", "Size", "Large")
	if got := f.state("user-1"); got != StateOptionSelect {
		t.Fatalf("state = %q, want %q", got, StateOptionSelect)
	}
	cfg := f.storedConfig(t, "user-1")
	if cfg.Options["size"].Chosen != "large" {
		t.Fatalf("chosen = %q, want large", cfg.Options["size"].Chosen)
	}
	if got := cfg.Price.Amount("USD"); got != 500 {
		t.Fatalf("price = %d, want 500", got)
	}

	var selected bool
	for _, item := range f.sink.last().Items {
		if item.Label == "Large" && item.Selected {
			selected = true
		}
	}
	if !selected {
		t.Fatalf("Large not marked selected: %+v", f.sink.last().Items)
	}
}

func TestEnginePresetSelection(t *testing.T) {
	f := newEngineFixture(t)
	f.enterConfiguration(t, "user-1")

	f.drive(t, "user-1", "Color", "Custom color")
	if got := f.state("user-1"); got != StateChoiceEditValue {
		t.Fatalf("state = %q, want %q", got, StateChoiceEditValue)
	}

	// Out-of-range digit: silent re-prompt, nothing stored.
	f.drive(t, "user-1", "5")
	if got := f.state("user-1"); got != StateChoiceEditValue {
		t.Fatalf("state after bad digit = %q, want %q", got, StateChoiceEditValue)
	}
	cfg := f.storedConfig(t, "user-1")
	if got := cfg.Options["color"].Choices["custom"].Choice.PresetChosen; got != 0 {
		t.Fatalf("preset after bad digit = %d, want 0", got)
	}

	f.drive(t, "user-1", "2")
	if got := f.state("user-1"); got != StateOptionSelect {
		t.Fatalf("state after preset = %q, want %q", got, StateOptionSelect)
	}
	cfg = f.storedConfig(t, "user-1")
	if got := cfg.Options["color"].Choices["custom"].Choice.PresetChosen; got != 2 {
		t.Fatalf("preset = %d, want 2", got)
	}
	if got := cfg.Price.Amount("USD"); got != 200 {
		t.Fatalf("price = %d, want 200", got)
	}
}

func TestEngineCustomTextInput(t *testing.T) {
	f := newEngineFixture(t)
	f.enterConfiguration(t, "user-1")
	f.drive(t, "user-1", "Color", "Custom color")

	f.drive(t, "user-1", "sunset orange <script>alert(1)</script>")
	if got := f.state("user-1"); got != StateOptionSelect {
		t.Fatalf("state = %q, want %q", got, StateOptionSelect)
	}
	cfg := f.storedConfig(t, "user-1")
	text := cfg.Options["color"].Choices["custom"].Choice.CustomText
	if strings.Contains(text, "<script>") || !strings.Contains(text, "sunset orange") {
		t.Fatalf("custom text = %q", text)
	}
}

func TestEngineChoiceEditCancelRestoresOption(t *testing.T) {
	f := newEngineFixture(t)
	f.enterConfiguration(t, "user-1")
	f.drive(t, "user-1", "Color", "Custom color")

	cfg := f.storedConfig(t, "user-1")
	if cfg.Options["color"].Chosen != "custom" {
		t.Fatalf("chosen pre-cancel = %q, want custom", cfg.Options["color"].Chosen)
	}

	f.drive(t, "user-1", labelCancel)
	if got := f.state("user-1"); got != StateOptionSelect {
		t.Fatalf("state = %q, want %q", got, StateOptionSelect)
	}
	cfg = f.storedConfig(t, "user-1")
	if cfg.Options["color"].Chosen != "plain" {
		t.Fatalf("chosen post-cancel = %q, want plain", cfg.Options["color"].Chosen)
	}
	if got := cfg.Price.Amount("USD"); got != 0 {
		t.Fatalf("price post-cancel = %d, want 0", got)
	}
}

func TestEngineSwitchesToggle(t *testing.T) {
	f := newEngineFixture(t)
	f.enterConfiguration(t, "user-1")

	f.drive(t, "user-1", "Engraving", "Engraving options")
	if got := f.state("user-1"); got != StateSwitchesEditing {
		t.Fatalf("state = %q, want %q", got, StateSwitchesEditing)
	}

	f.drive(t, "user-1", "Initials")
	cfg := f.storedConfig(t, "user-1")
	if got := cfg.Price.Amount("USD"); got != 300 {
		t.Fatalf("price after toggle on = %d, want 300", got)
	}
	var marked bool
	for _, item := range f.sink.last().Items {
		if strings.Contains(item.Label, "Initials") && strings.Contains(item.Label, "✅") {
			marked = true
		}
	}
	if !marked {
		t.Fatalf("enabled switch not marked: %+v", f.sink.last().Items)
	}

	// Toggling via the marked label turns it back off.
	f.drive(t, "user-1", "Initials ✅")
	cfg = f.storedConfig(t, "user-1")
	if got := cfg.Price.Amount("USD"); got != 0 {
		t.Fatalf("price after toggle off = %d, want 0", got)
	}
}

func TestEngineBlockedChoiceRejected(t *testing.T) {
	f := newEngineFixture(t)
	f.enterConfiguration(t, "user-1")

	f.drive(t, "user-1", "Size", "Large", labelBack, "Coating")

	var locked bool
	for _, item := range f.sink.last().Items {
		if item.Label == "Matte" && item.Locked {
			locked = true
		}
	}
	if !locked {
		t.Fatalf("Matte not locked while size is large: %+v", f.sink.last().Items)
	}
	if !strings.Contains(f.sink.last().Text, "Matte is unavailable") {
		t.Fatalf("lock explanation missing: %q", f.sink.last().Text)
	}

	// Selecting the locked label must not commit it.
	f.drive(t, "user-1", "Matte")
	cfg := f.storedConfig(t, "user-1")
	if cfg.Options["coating"].Chosen != "glossy" {
		t.Fatalf("chosen = %q, want glossy", cfg.Options["coating"].Chosen)
	}
}

func TestEngineAdditionalsToggle(t *testing.T) {
	f := newEngineFixture(t)
	f.enterConfiguration(t, "user-1")

	f.drive(t, "user-1", labelAddons)
	if got := f.state("user-1"); got != StateAdditionalsEditing {
		t.Fatalf("state = %q, want %q", got, StateAdditionalsEditing)
	}
	for _, item := range f.sink.last().Items {
		if strings.Contains(item.Label, "Engraved box") {
			t.Fatalf("disallowed additional offered: %+v", f.sink.last().Items)
		}
	}

	f.drive(t, "user-1", "Gift wrap")
	cfg := f.storedConfig(t, "user-1")
	if !cfg.HasAdditional("gift-wrap") {
		t.Fatalf("gift-wrap not selected")
	}
	if got := cfg.Price.Amount("USD"); got != 250 {
		t.Fatalf("price with add-on = %d, want 250", got)
	}

	f.drive(t, "user-1", "Gift wrap ✅")
	cfg = f.storedConfig(t, "user-1")
	if cfg.HasAdditional("gift-wrap") {
		t.Fatalf("gift-wrap still selected after second toggle")
	}
}

func TestEngineFinishAddsCartEntry(t *testing.T) {
	f := newEngineFixture(t)
	f.enterConfiguration(t, "user-1")
	f.drive(t, "user-1", "Size", "Large", labelBack)

	f.drive(t, "user-1", labelFinish)
	if got := f.state("user-1"); got != StateViewingProduct {
		t.Fatalf("state = %q, want %q", got, StateViewingProduct)
	}
	cart := f.carts.carts["user-1"]
	if len(cart.Entries) != 1 {
		t.Fatalf("cart entries = %d, want 1", len(cart.Entries))
	}
	if got := cart.Entries[0].Price.Amount("USD"); got != 1500 {
		t.Fatalf("entry price = %d, want 1500", got)
	}
	if f.sessions.stored("user-1").Get(keyConfiguration) != nil {
		t.Fatalf("configuration not cleared after finish")
	}
	if !strings.Contains(f.sink.last().Text, "Added to your cart.") {
		t.Fatalf("confirmation missing: %q", f.sink.last().Text)
	}
}

func TestEngineResumedConfigurationTracksCatalogReprice(t *testing.T) {
	f := newEngineFixture(t)
	f.enterConfiguration(t, "user-1")

	// Reprice the large size while the user is mid-configuration. The stored
	// snapshot still carries the old price; the resumed turns must not.
	base := f.catalog.configs["mug-1"]
	large := base.Options["size"].Choices["large"]
	large.Choice.Price = usd(900)

	f.drive(t, "user-1", "Size", "Large", labelBack, labelFinish)
	cart := f.carts.carts["user-1"]
	if len(cart.Entries) != 1 {
		t.Fatalf("cart entries = %d, want 1", len(cart.Entries))
	}
	if got := cart.Entries[0].Price.Amount("USD"); got != 1900 {
		t.Fatalf("entry price = %d, want 1900 (current catalog price)", got)
	}
}

func TestEngineCancelDiscardsConfiguration(t *testing.T) {
	f := newEngineFixture(t)
	f.enterConfiguration(t, "user-1")
	f.drive(t, "user-1", "Size", "Large", labelBack)

	f.drive(t, "user-1", labelCancel)
	if got := f.state("user-1"); got != StateViewingProduct {
		t.Fatalf("state = %q, want %q", got, StateViewingProduct)
	}
	if f.sessions.stored("user-1").Get(keyConfiguration) != nil {
		t.Fatalf("configuration survived cancel")
	}
	if len(f.carts.carts["user-1"].Entries) != 0 {
		t.Fatalf("cancel added a cart entry")
	}
}

func TestEngineHandlerFailureRecoversToMainMenu(t *testing.T) {
	f := newEngineFixture(t)
	f.enterConfiguration(t, "user-1")

	f.catalog.failWith = errors.New("catalog down")
	if err := f.engine.Handle(context.Background(), Event{UserID: "user-1", Text: "Size"}); err != nil {
		t.Fatalf("Handle error: %v", err)
	}
	if got := f.state("user-1"); got != StateMainMenu {
		t.Fatalf("state after failure = %q, want %q", got, StateMainMenu)
	}
	if f.sink.last().Text != genericErrorText {
		t.Fatalf("last view = %q, want generic error", f.sink.last().Text)
	}
}

func TestEngineGateDropsConcurrentEvent(t *testing.T) {
	f := newEngineFixture(t)
	f.sink.block = make(chan struct{})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = f.engine.Handle(context.Background(), Event{UserID: "user-1", Text: "hi"})
	}()

	// Wait until the first event holds the gate.
	for i := 0; i < 1000; i++ {
		if !f.engine.gate.tryAcquire("user-1") {
			break
		}
		f.engine.gate.release("user-1")
		time.Sleep(time.Millisecond)
	}

	if err := f.engine.Handle(context.Background(), Event{UserID: "user-1", Text: "hi again"}); err != nil {
		t.Fatalf("dropped event returned error: %v", err)
	}

	close(f.sink.block)
	wg.Wait()
	if len(f.sink.sent) != 1 {
		t.Fatalf("sent %d views, want 1 (second event dropped)", len(f.sink.sent))
	}
}

func TestEngineRejectsBlankUser(t *testing.T) {
	f := newEngineFixture(t)
	if err := f.engine.Handle(context.Background(), Event{UserID: " ", Text: "hi"}); !errors.Is(err, ErrEngineInvalidInput) {
		t.Fatalf("blank user error = %v, want ErrEngineInvalidInput", err)
	}
}

func TestEngineCartSummaryFromMainMenu(t *testing.T) {
	f := newEngineFixture(t)
	f.enterConfiguration(t, "user-1")
	f.drive(t, "user-1", labelFinish)

	f.drive(t, "user-1", labelMainMenu, labelCart)
	text := f.sink.last().Text
	if !strings.Contains(text, "Classic Mug") || !strings.Contains(text, "Total:") {
		t.Fatalf("cart summary = %q", text)
	}
}
