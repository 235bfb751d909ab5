package conversation

// Conversation states. Each state owns a handler that renders a prompt and
// interprets the next inbound event.
const (
	StateMainMenu           = "main_menu"
	StateBrowsingAssortment = "browsing_assortment"
	StateViewingProduct     = "viewing_product"
	StateFormingEntry       = "forming_entry"
	StateOptionSelect       = "option_select"
	StateChoiceEditValue    = "choice_edit_value"
	StateSwitchesEditing    = "switches_editing"
	StateAdditionalsEditing = "additionals_editing"
)

// Session value keys.
const (
	keyConfiguration = "configuration"
	keyProductID     = "product_id"
	keyOptionKey     = "option_key"
	keyBeforeOption  = "before_option"
	keyCategory      = "category"
	keyPage          = "page"
)

// Fixed menu labels. Localization string catalogs live outside the core, so
// the command vocabulary is a static table.
const (
	labelCatalog  = "Catalog"
	labelCart     = "Cart"
	labelOrders   = "My orders"
	labelBack     = "Back"
	labelCancel   = "Cancel"
	labelFinish   = "Finish"
	labelAddons   = "Add-ons"
	labelConfig   = "Configure"
	labelMore     = "More"
	labelMainMenu = "Main menu"
)
