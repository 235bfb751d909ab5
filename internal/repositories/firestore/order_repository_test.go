package firestore

import (
	"testing"
	"time"

	domain "github.com/craftline/shopbot/internal/domain"
)

func TestOrderDocumentNormalizesCurrency(t *testing.T) {
	doc := orderToDocument(domain.Order{
		UserID:    "user-1",
		Currency:  "usd",
		Total:     1500,
		Status:    domain.OrderStatusAwaitingPayment,
		CreatedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	})
	if doc.Currency != "USD" {
		t.Fatalf("stored currency = %q, want USD", doc.Currency)
	}

	// Documents written before codes were normalized may carry lower case.
	doc.Currency = "eur"
	order, err := orderFromDocument("order-1", doc)
	if err != nil {
		t.Fatalf("orderFromDocument error: %v", err)
	}
	if order.Currency != "EUR" {
		t.Fatalf("restored currency = %q, want EUR", order.Currency)
	}
	if order.ID != "order-1" || order.Status != domain.OrderStatusAwaitingPayment {
		t.Fatalf("unexpected order: %+v", order)
	}
}
