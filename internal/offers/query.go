package offers

import (
	"net/url"
	"strconv"
	"strings"
)

const (
	// OffersPath is the offers listing endpoint
	OffersPath = "/api/offers"
	// ClickStatsPath is the click statistics endpoint
	ClickStatsPath = "/api/stats/clicks"
)

// OffersURL builds the offers request for f. Parameters at their default value
// are left out, so DefaultFilters produces the bare endpoint.
func OffersURL(base string, f Filters) string {
	q := url.Values{}
	if f.Merchant != "" {
		q.Set("merchant", f.Merchant)
	}
	if f.MinDiscount > 0 {
		q.Set("min_discount", strconv.Itoa(f.MinDiscount))
	}
	return withQuery(strings.TrimRight(base, "/")+OffersPath, q)
}

// ClickStatsURL builds the click statistics request. offerID 0 means all offers.
func ClickStatsURL(base string, days int, offerID int64) string {
	q := url.Values{}
	q.Set("days", strconv.Itoa(days))
	if offerID > 0 {
		q.Set("offer_id", strconv.FormatInt(offerID, 10))
	}
	return withQuery(strings.TrimRight(base, "/")+ClickStatsPath, q)
}

// withQuery appends q to path. Keys are encoded in sorted order.
func withQuery(path string, q url.Values) string {
	if len(q) == 0 {
		return path
	}
	return path + "?" + q.Encode()
}
