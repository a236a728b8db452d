// Package status maps carrier-specific free text to the canonical
// delivery status enumeration.
package status

import "strings"

// Canonical is the carrier-independent delivery state. Error conditions
// are not statuses; they propagate as errors.
type Canonical string

const (
	Delivered Canonical = "DELIVERED"
	Unknown   Canonical = "UNKNOWN"
)

// deliveredPhrases are the known delivery-confirmation substrings,
// lowercased. Carriers phrase confirmation differently (and mix
// Vietnamese and English, with inconsistent casing), so matching is
// case-insensitive substring containment.
var deliveredPhrases = []string{
	"delivered",
	"đã giao hàng",
	"giao hàng thành công",
	"giao thành công",
	"phát thành công",
	"đã giao",
}

// Normalize returns Delivered if the raw text contains any known
// delivery-confirmation phrase, else Unknown. It is total: any input,
// including empty, yields a valid status.
func Normalize(raw string) Canonical {
	lower := strings.ToLower(raw)
	for _, phrase := range deliveredPhrases {
		if strings.Contains(lower, phrase) {
			return Delivered
		}
	}
	return Unknown
}

// AllDelivered reports whether every raw status in the slice normalizes
// to Delivered. An empty slice is not delivered: no shipment matched,
// so nothing was confirmed.
func AllDelivered(raws []string) bool {
	if len(raws) == 0 {
		return false
	}
	for _, r := range raws {
		if Normalize(r) != Delivered {
			return false
		}
	}
	return true
}
