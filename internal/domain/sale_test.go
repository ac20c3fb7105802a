package domain

import "testing"

func TestSale_IsCancellable(t *testing.T) {
	completed := &Sale{Status: SaleStatusCompleted}
	if !completed.IsCancellable() {
		t.Error("expected completed sale to be cancellable")
	}

	cancelled := &Sale{Status: SaleStatusCancelled}
	if cancelled.IsCancellable() {
		t.Error("expected cancelled sale to not be cancellable again")
	}
}
