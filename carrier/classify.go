package carrier

import "strings"

// classifierRule pairs a label predicate with its carrier tag.
type classifierRule struct {
	needles []string // any-of, matched case-insensitively
	tag     string
}

// classifierRules is evaluated in order; the first match wins. The order
// is behaviorally significant because needles overlap across carriers
// (e.g. "viettel post" would also hit a bare "post" needle), so keep
// broader needles below narrower ones and do not reorder.
var classifierRules = []classifierRule{
	{[]string{"viettel", "vtp"}, TagVTP},
	{[]string{"spx", "shopee"}, TagSPX},
	{[]string{"giao hàng nhanh", "giaohangnhanh", "ghn"}, TagGHN},
	{[]string{"giao hàng tiết kiệm", "giaohangtietkiem", "ghtk"}, TagGHTK},
	{[]string{"j&t", "jt"}, TagJT},
	{[]string{"ninja"}, TagNinjaVan},
	{[]string{"best"}, TagBEST},
	{[]string{"vnpost", "vietnam post", "ems"}, TagVNPost},
	{[]string{"lex", "lazada"}, TagLEX},
}

// Classify maps a free-text carrier label to a carrier tag. Returns
// ("", false) when no rule matches.
func Classify(label string) (string, bool) {
	lower := strings.ToLower(strings.TrimSpace(label))
	if lower == "" {
		return "", false
	}
	for _, rule := range classifierRules {
		for _, needle := range rule.needles {
			if strings.Contains(lower, needle) {
				return rule.tag, true
			}
		}
	}
	return "", false
}
