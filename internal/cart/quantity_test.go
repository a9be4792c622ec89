package cart

import "testing"

func TestClampQuantity(t *testing.T) {
	tests := []struct {
		q, stock    int
		want        int
		wantClamped bool
	}{
		{q: 9, stock: 5, want: 5, wantClamped: true},
		{q: 5, stock: 5, want: 5},
		{q: 1, stock: 5, want: 1},
		{q: 0, stock: 5, want: 1},
		{q: -3, stock: 1, want: 1},
		{q: 2, stock: 1, want: 1, wantClamped: true},
	}

	for _, tt := range tests {
		got, clamped := ClampQuantity(tt.q, tt.stock)
		if got != tt.want || clamped != tt.wantClamped {
			t.Fatalf("ClampQuantity(%d, %d) = (%d, %v), want (%d, %v)", tt.q, tt.stock, got, clamped, tt.want, tt.wantClamped)
		}
	}
}

func TestParseQuantity(t *testing.T) {
	for raw, want := range map[string]int{"4": 4, "0": 1, "-1": 1, "x": 1, "": 1, "2.5": 1} {
		if got := ParseQuantity(raw); got != want {
			t.Fatalf("ParseQuantity(%q) = %d, want %d", raw, got, want)
		}
	}
}
