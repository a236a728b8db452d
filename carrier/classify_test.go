package carrier

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		label string
		want  string
		ok    bool
	}{
		{"Viettel Post", TagVTP, true},
		{"VTP", TagVTP, true},
		{"vtp express", TagVTP, true},
		{"spx", TagSPX, true},
		{"SPX Express", TagSPX, true},
		{"Shopee Xpress", TagSPX, true},
		{"GHN", TagGHN, true},
		{"Giao Hàng Nhanh", TagGHN, true},
		{"GHTK", TagGHTK, true},
		{"Giao Hàng Tiết Kiệm", TagGHTK, true},
		{"J&T Express", TagJT, true},
		{"JT Express", TagJT, true},
		{"Ninja Van", TagNinjaVan, true},
		{"BEST Express", TagBEST, true},
		{"VNPost", TagVNPost, true},
		{"EMS Vietnam", TagVNPost, true},
		{"LEX VN", TagLEX, true},
		{"Lazada Express", TagLEX, true},
		{"DHL", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			got, ok := Classify(tt.label)
			if ok != tt.ok || got != tt.want {
				t.Errorf("Classify(%q) = (%q, %v), want (%q, %v)", tt.label, got, ok, tt.want, tt.ok)
			}
		})
	}
}

// Same carrier must classify identically regardless of label spelling.
func TestClassify_AliasesAgree(t *testing.T) {
	a, _ := Classify("Viettel Post")
	b, _ := Classify("VTP")
	if a != b {
		t.Errorf("Viettel Post → %q but VTP → %q; aliases must agree", a, b)
	}
}

// "Viettel Post" contains "post"-adjacent text; precedence must keep it
// out of the vnpost bucket.
func TestClassify_PrecedenceIsOrdered(t *testing.T) {
	if got, _ := Classify("viettel post ems"); got != TagVTP {
		t.Errorf("Classify(\"viettel post ems\") = %q, want %q (rule order is significant)", got, TagVTP)
	}
}
