package status

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Canonical
	}{
		{"english", "Delivered", Delivered},
		{"english lowercase", "your parcel was delivered to the recipient", Delivered},
		{"vietnamese delivered", "Đã giao hàng", Delivered},
		{"vietnamese success", "Giao hàng thành công", Delivered},
		{"vietnamese success uppercase", "GIAO HÀNG THÀNH CÔNG", Delivered},
		{"vnpost phrasing", "Phát thành công", Delivered},
		{"in transit", "In transit", Unknown},
		{"vietnamese in transit", "Đang vận chuyển", Unknown},
		{"empty", "", Unknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.raw); got != tt.want {
				t.Errorf("Normalize(%q) = %s, want %s", tt.raw, got, tt.want)
			}
		})
	}
}

func TestAllDelivered(t *testing.T) {
	tests := []struct {
		name string
		raws []string
		want bool
	}{
		{"all delivered", []string{"delivered", "delivered"}, true},
		{"mixed", []string{"delivered", "unknown"}, false},
		{"mixed languages all delivered", []string{"Đã giao hàng", "Delivered"}, true},
		{"single undelivered", []string{"in transit"}, false},
		{"empty means unconfirmed", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AllDelivered(tt.raws); got != tt.want {
				t.Errorf("AllDelivered(%v) = %v, want %v", tt.raws, got, tt.want)
			}
		})
	}
}
