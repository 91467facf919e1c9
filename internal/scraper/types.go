package scraper

import (
	"context"

	"github.com/PuerkitoBio/goquery"

	"github.com/boradedesconto/offerfeed/internal/offers"
)

// Scraper collects offers from one merchant listing page
type Scraper interface {
	// Scrape fetches the listing and extracts its offers in page order
	Scrape(ctx context.Context) ([]offers.Offer, error)

	// GetName returns the scraper's name for logging
	GetName() string

	// GetMerchant returns the merchant slug stored on every offer
	GetMerchant() string
}

// IDExtractorFunc derives the merchant's product id from a product link
type IDExtractorFunc func(link string) (string, error)

// ElementHandlerFunc extracts the raw text for one field of a product element
type ElementHandlerFunc func(*goquery.Selection) string

// Selectors contains the CSS selectors for a listing page
type Selectors struct {
	ProductList string
	// IDAttr names an attribute of the product element holding its id.
	// When empty or absent the id comes from the link.
	IDAttr    string
	Title     string
	Link      string
	LinkMatch string // a product link must contain this
	Price     string
	ListPrice string
	Discount  string
}

// CustomHandlers override extraction per field ("title", "price",
// "list_price", "discount")
type CustomHandlers struct {
	ElementHandlers map[string]ElementHandlerFunc
}

// ScraperConfig contains configuration for a scraper
type ScraperConfig struct {
	Name           string
	URL            string
	BaseURL        string
	Merchant       string
	CacheKey       string
	BlockTime      int
	MaxOffers      int
	Selectors      Selectors
	IDExtractor    IDExtractorFunc
	CustomHandlers CustomHandlers
}
