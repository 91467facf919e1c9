package offers

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var brl = message.NewPrinter(language.BrazilianPortuguese)

// Offer is a merchant product listing as served by the offers API
type Offer struct {
	ID          int64     `json:"id"`
	Merchant    string    `json:"merchant"`
	ExternalID  string    `json:"external_id"`
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	Price       float64   `json:"price"`
	DiscountPct int       `json:"discount_pct"`
	TS          Timestamp `json:"ts"`
}

// DiscountTier groups discounts for display
type DiscountTier string

const (
	DiscountTierLow    DiscountTier = "low"
	DiscountTierMedium DiscountTier = "medium"
	DiscountTierHigh   DiscountTier = "high"
)

// HasDiscount reports whether a discount badge should be shown
func (o Offer) HasDiscount() bool {
	return o.DiscountPct > 0
}

// DiscountTier classifies the offer discount
func (o Offer) DiscountTier() DiscountTier {
	switch {
	case o.DiscountPct >= 50:
		return DiscountTierHigh
	case o.DiscountPct >= 30:
		return DiscountTierMedium
	default:
		return DiscountTierLow
	}
}

// FormatBRL formats a price in Brazilian reais, e.g. R$ 1.899,99
func FormatBRL(price float64) string {
	return brl.Sprintf("R$ %.2f", price)
}

// Filters selects which offers are requested. The zero value means no filtering.
type Filters struct {
	// Merchant restricts offers to one merchant; "" means any merchant
	Merchant string
	// MinDiscount is the minimum discount percentage; 0 means no minimum
	MinDiscount int
}

// DefaultFilters returns the filters a consumer starts with
func DefaultFilters() Filters {
	return Filters{}
}

// Active reports whether any filter is set
func (f Filters) Active() bool {
	return f.Merchant != "" || f.MinDiscount > 0
}

// Match is the filter predicate shared with the API's server side filtering
func (f Filters) Match(o Offer) bool {
	if f.Merchant != "" && o.Merchant != f.Merchant {
		return false
	}
	if f.MinDiscount > 0 && o.DiscountPct < f.MinDiscount {
		return false
	}
	return true
}

// Result is the view a Source exposes to its consumers
type Result struct {
	Offers               []Offer `json:"offers"`
	IsLoading            bool    `json:"is_loading"`
	IsError              bool    `json:"is_error"`
	UsedMockData         bool    `json:"used_mock_data"`
	TotalOffersAvailable int     `json:"total_offers_available"`

	// Filters the result was computed for
	Filters Filters `json:"-"`
	// Generation of the fetch cycle that produced the result
	Generation uint64 `json:"generation"`
}

// ClickStat is the click count of one offer over the requested window
type ClickStat struct {
	OfferID    int64  `json:"offer_id"`
	Merchant   string `json:"merchant"`
	Title      string `json:"title"`
	ClickCount int    `json:"click_count"`
}
