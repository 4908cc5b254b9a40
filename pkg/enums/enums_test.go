package enums

import "testing"

func TestParseOrderStatus(t *testing.T) {
	for _, s := range OrderStatuses() {
		got, err := ParseOrderStatus(string(s))
		if err != nil || got != s {
			t.Fatalf("round trip failed for %q: %v", s, err)
		}
	}
	if _, err := ParseOrderStatus("returned"); err == nil {
		t.Fatal("expected unknown status to fail")
	}
}

func TestOrderStatusRankAndTerminal(t *testing.T) {
	p, _ := OrderStatusProcessing.Rank()
	s, _ := OrderStatusShipped.Rank()
	d, _ := OrderStatusDelivered.Rank()
	if !(p < s && s < d) {
		t.Fatalf("forward path out of order: %d %d %d", p, s, d)
	}
	if _, ok := OrderStatusCancelled.Rank(); ok {
		t.Fatal("cancelled must not have a rank")
	}
	if !OrderStatusDelivered.IsTerminal() || !OrderStatusCancelled.IsTerminal() {
		t.Fatal("delivered and cancelled are terminal")
	}
	if OrderStatusShipped.IsTerminal() {
		t.Fatal("shipped is not terminal")
	}
}

func TestReturnStatusResolution(t *testing.T) {
	if ReturnStatusPending.IsResolution() {
		t.Fatal("pending is not a resolution")
	}
	if !ReturnStatusApproved.IsResolution() || !ReturnStatusRejected.IsResolution() {
		t.Fatal("approved and rejected are resolutions")
	}
}

func TestParsePermission(t *testing.T) {
	if _, err := ParsePermission("order_edit_status"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := ParsePermission("order_edit"); err == nil {
		t.Fatal("expected unknown permission to fail")
	}
	if len(Permissions()) != 6 {
		t.Fatalf("expected six permissions, got %d", len(Permissions()))
	}
}
