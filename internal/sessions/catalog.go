// Package sessions holds the fixed photography session catalog shared by the
// support chat and the booking flows.
package sessions

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Type identifies a photography session offering.
type Type string

const (
	None       Type = ""
	IPhone     Type = "iphone"
	RawDSLR    Type = "raw_dslr"
	EditedDSLR Type = "edited_dslr"
)

// Info describes a catalog entry.
type Info struct {
	Type     Type
	Label    string
	Blurb    string
	Delivery string
	Output   string
	PriceMin decimal.Decimal
	PriceMax decimal.Decimal
	BestFor  []string
}

// PriceRange formats the price band the way the app displays it, e.g. "$35–$60".
func (i Info) PriceRange() string {
	return fmt.Sprintf("$%s–$%s", i.PriceMin.StringFixed(0), i.PriceMax.StringFixed(0))
}

var catalog = []Info{
	{
		Type:     IPhone,
		Label:    "iPhone Session",
		Blurb:    "Casual, fast, instant delivery",
		Delivery: "Instant delivery on-site",
		Output:   "All photos, unedited",
		PriceMin: decimal.NewFromInt(35),
		PriceMax: decimal.NewFromInt(60),
		BestFor:  []string{"Instagram stories & reels", "Quick content shoots", "Casual portraits & candids"},
	},
	{
		Type:     RawDSLR,
		Label:    "RAW DSLR Session",
		Blurb:    "Full gallery with full creative freedom",
		Delivery: "Instant delivery on-site",
		Output:   "Full RAW gallery (~100+ shots)",
		PriceMin: decimal.NewFromInt(65),
		PriceMax: decimal.NewFromInt(120),
		BestFor:  []string{"Professional portfolios", "Brand campaigns", "Creators who edit their own content"},
	},
	{
		Type:     EditedDSLR,
		Label:    "Edited DSLR Session",
		Blurb:    "Curated edits returned in 24 hours",
		Delivery: "24 hour turnaround",
		Output:   "25–40 edited selects",
		PriceMin: decimal.NewFromInt(120),
		PriceMax: decimal.NewFromInt(250),
		BestFor:  []string{"Professional headshots", "Brand launches & campaigns", "High-end content creation"},
	},
}

// All returns the catalog in display order.
func All() []Info {
	out := make([]Info, len(catalog))
	copy(out, catalog)
	return out
}

// Lookup returns the catalog entry for t.
func Lookup(t Type) (Info, bool) {
	for _, info := range catalog {
		if info.Type == t {
			return info, true
		}
	}
	return Info{}, false
}

// Parse accepts a catalog key in any case. Unknown values yield None and false.
func Parse(s string) (Type, bool) {
	t := Type(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return None, false
	}
	return t, true
}

// Valid reports whether t is one of the three catalog entries.
func (t Type) Valid() bool {
	_, ok := Lookup(t)
	return ok
}

// Label returns the display label, or the raw key for unknown types.
func (t Type) Label() string {
	if info, ok := Lookup(t); ok {
		return info.Label
	}
	return string(t)
}

func (t Type) String() string { return string(t) }

// Timing is whether the client wants to shoot now or schedule for later.
type Timing string

const (
	TimingNone  Timing = ""
	TimingNow   Timing = "now"
	TimingLater Timing = "later"
)

// ParseTiming accepts "now" or "later" in any case.
func ParseTiming(s string) (Timing, bool) {
	switch Timing(strings.ToLower(strings.TrimSpace(s))) {
	case TimingNow:
		return TimingNow, true
	case TimingLater:
		return TimingLater, true
	default:
		return TimingNone, false
	}
}

func (t Timing) String() string { return string(t) }
