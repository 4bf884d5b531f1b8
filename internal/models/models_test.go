package models

import "testing"

func TestBaseModelBeforeCreateGeneratesID(t *testing.T) {
	var base BaseModel
	if err := base.BeforeCreate(nil); err != nil {
		t.Fatalf("before create: %v", err)
	}
	if base.ID == "" {
		t.Fatal("expected base model ID to be generated")
	}
}

func TestBaseModelBeforeCreateKeepsExistingID(t *testing.T) {
	base := BaseModel{ID: "fixed"}
	if err := base.BeforeCreate(nil); err != nil {
		t.Fatalf("before create: %v", err)
	}
	if base.ID != "fixed" {
		t.Fatalf("expected id to be preserved, got %q", base.ID)
	}
}

func TestSubOrdersExposePipelineReference(t *testing.T) {
	pipelineID := "pipe-1"
	orders := []SubOrder{
		&PurchaseOrder{PipelineID: &pipelineID, Status: StatusPending},
		&ProductionOrder{PipelineID: &pipelineID, Status: StatusPending},
		&OutboundOrder{PipelineID: &pipelineID, Status: StatusPending},
	}
	kinds := []OrderKind{KindPurchaseOrder, KindProductionOrder, KindOutboundOrder}

	for i, order := range orders {
		if order.Kind() != kinds[i] {
			t.Fatalf("expected kind %s, got %s", kinds[i], order.Kind())
		}
		if ref := order.PipelineRef(); ref == nil || *ref != pipelineID {
			t.Fatalf("expected pipeline reference for %s", order.Kind())
		}
		order.SetStatus(StatusCancelled)
		if order.CurrentStatus() != StatusCancelled {
			t.Fatalf("expected status to be updated for %s", order.Kind())
		}
	}
}

func TestParseRole(t *testing.T) {
	role, ok := ParseRole(" production ")
	if !ok || role != RoleProduction {
		t.Fatalf("expected PRODUCTION, got %q (%v)", role, ok)
	}
	if _, ok := ParseRole("MANAGER"); ok {
		t.Fatal("expected unknown role to be rejected")
	}
}

func TestParsePaymentCategory(t *testing.T) {
	category, ok := ParsePaymentCategory("freight")
	if !ok || category != PaymentFreight {
		t.Fatalf("expected FREIGHT, got %q (%v)", category, ok)
	}
	if _, ok := ParsePaymentCategory("bonus"); ok {
		t.Fatal("expected unknown category to be rejected")
	}
}

func TestUserDisplayName(t *testing.T) {
	if got := (&User{Username: "jdoe"}).DisplayName(); got != "jdoe" {
		t.Fatalf("unexpected display name %q", got)
	}
	if got := (&User{Username: "jdoe", FirstName: "Jane", LastName: "Doe"}).DisplayName(); got != "Jane Doe" {
		t.Fatalf("unexpected display name %q", got)
	}
}
