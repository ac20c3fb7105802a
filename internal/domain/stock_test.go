package domain

import (
	"errors"
	"testing"
)

func TestMovementType_Valid(t *testing.T) {
	tests := []struct {
		name string
		typ  MovementType
		want bool
	}{
		{"purchase", MovementTypePurchase, true},
		{"sale", MovementTypeSale, true},
		{"adjustment", MovementTypeAdjustment, true},
		{"adjustment out", MovementTypeAdjustmentOut, true},
		{"return", MovementTypeReturn, true},
		{"unknown", MovementType("transfer"), false},
		{"empty", MovementType(""), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.typ.Valid(); got != tt.want {
				t.Errorf("Valid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMovementType_Direction(t *testing.T) {
	tests := []struct {
		name string
		typ  MovementType
		want int
	}{
		{"purchase adds stock", MovementTypePurchase, 1},
		{"sale removes stock", MovementTypeSale, -1},
		{"return adds stock", MovementTypeReturn, 1},
		{"adjustment adds stock", MovementTypeAdjustment, 1},
		{"adjustment out removes stock", MovementTypeAdjustmentOut, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.typ.Direction(); got != tt.want {
				t.Errorf("Direction() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestStockMovement_Delta(t *testing.T) {
	tests := []struct {
		name     string
		movement StockMovement
		want     int
	}{
		{"purchase of 10", StockMovement{MovementType: MovementTypePurchase, Quantity: 10}, 10},
		{"sale of 3", StockMovement{MovementType: MovementTypeSale, Quantity: 3}, -3},
		{"return of 2", StockMovement{MovementType: MovementTypeReturn, Quantity: 2}, 2},
		{"adjustment of 5", StockMovement{MovementType: MovementTypeAdjustment, Quantity: 5}, 5},
		{"adjustment out of 5", StockMovement{MovementType: MovementTypeAdjustmentOut, Quantity: 5}, -5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.movement.Delta(); got != tt.want {
				t.Errorf("Delta() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestStockMovement_Validate(t *testing.T) {
	tests := []struct {
		name     string
		movement StockMovement
		wantErr  bool
	}{
		{"valid sale", StockMovement{MovementType: MovementTypeSale, Quantity: 1}, false},
		{"valid purchase", StockMovement{MovementType: MovementTypePurchase, Quantity: 100}, false},
		{"sale with zero quantity", StockMovement{MovementType: MovementTypeSale, Quantity: 0}, true},
		{"sale with negative quantity", StockMovement{MovementType: MovementTypeSale, Quantity: -1}, true},
		{"adjustment with negative quantity", StockMovement{MovementType: MovementTypeAdjustment, Quantity: -3}, true},
		{"adjustment out with negative quantity", StockMovement{MovementType: MovementTypeAdjustmentOut, Quantity: -3}, true},
		{"adjustment with zero quantity", StockMovement{MovementType: MovementTypeAdjustment, Quantity: 0}, true},
		{"unknown type", StockMovement{MovementType: MovementType("transfer"), Quantity: 1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.movement.Validate()
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidInput) {
					t.Errorf("Validate() = %v, want ErrInvalidInput", err)
				}
				return
			}
			if err != nil {
				t.Errorf("Validate() = %v, want nil", err)
			}
		})
	}
}
