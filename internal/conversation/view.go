package conversation

import (
	"context"

	domain "github.com/craftline/shopbot/internal/domain"
)

// ViewItem is one selectable menu entry presented to the user. Locked items
// render struck-through; selected items carry the current-selection marker.
type ViewItem struct {
	Label    string
	Locked   bool
	Selected bool
}

// View is one rendered conversation screen. The transport layer owns the
// actual message and keyboard construction.
type View struct {
	Text      string
	MediaURL  string
	MediaKind domain.MediaKind
	Items     []ViewItem
}

// Sink delivers rendered views to the chat transport.
type Sink interface {
	Send(ctx context.Context, userID string, view View) error
}

// Event is one inbound user action: free text or a tapped button label.
type Event struct {
	UserID string
	Text   string
}
