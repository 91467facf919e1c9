package scraper

import (
	"context"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/boradedesconto/offerfeed/helpers"
	"github.com/boradedesconto/offerfeed/internal/offers"
	"github.com/boradedesconto/offerfeed/logger"
	"github.com/boradedesconto/offerfeed/services/cache"
)

// ConfigurableScraper extracts offers from a listing using a set of selectors
type ConfigurableScraper struct {
	BaseScraper
	Selectors      Selectors
	CustomHandlers CustomHandlers
	MaxOffers      int

	now func() time.Time
}

// NewConfigurableScraper creates a scraper for config. Rate limit blocks are
// kept in cacheSvc under config.CacheKey; a nil cache disables them.
func NewConfigurableScraper(config ScraperConfig, doer helpers.Doer, cacheSvc cache.CacheService) *ConfigurableScraper {
	return &ConfigurableScraper{
		BaseScraper: BaseScraper{
			Name:        config.Name,
			URL:         config.URL,
			BaseURL:     config.BaseURL,
			Merchant:    config.Merchant,
			Client:      doer,
			Guard:       offers.NewGuard(cacheSvc, config.CacheKey, time.Duration(config.BlockTime)*time.Second),
			IDExtractor: config.IDExtractor,
			log:         logger.ForScraper(config.Merchant),
		},
		Selectors:      config.Selectors,
		CustomHandlers: config.CustomHandlers,
		MaxOffers:      config.MaxOffers,
		now:            time.Now,
	}
}

// Scrape fetches the listing and returns its offers. Products without a
// title, link, id or positive price are skipped, and a product listed twice
// is kept once.
func (c *ConfigurableScraper) Scrape(ctx context.Context) ([]offers.Offer, error) {
	body, err := c.fetchWithGuard(ctx)
	if err != nil {
		return nil, err
	}

	doc, err := c.createDocument(body)
	if err != nil {
		return nil, err
	}

	products := doc.Find(c.Selectors.ProductList)
	found := c.processProducts(products, c.processProduct)

	seen := make(map[string]bool, len(found))
	result := make([]offers.Offer, 0, len(found))
	for _, o := range found {
		if seen[o.ExternalID] {
			continue
		}
		seen[o.ExternalID] = true
		result = append(result, o)
		if c.MaxOffers > 0 && len(result) == c.MaxOffers {
			break
		}
	}

	c.log.Debug().
		Int("products", products.Length()).
		Int("offers", len(result)).
		Msg("Listing scraped")

	return result, nil
}

// processElement returns the trimmed text of the first element matching
// selector, unless a custom handler is registered for field
func (c *ConfigurableScraper) processElement(s *goquery.Selection, field, selector string) string {
	if handler, exists := c.CustomHandlers.ElementHandlers[field]; exists && handler != nil {
		return strings.TrimSpace(handler(s))
	}
	if selector == "" {
		return ""
	}
	return strings.TrimSpace(s.Find(selector).First().Text())
}

// findLink returns the first product link inside s
func (c *ConfigurableScraper) findLink(s *goquery.Selection) string {
	var link string
	s.Find(c.Selectors.Link).EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, exists := a.Attr("href")
		if !exists || strings.TrimSpace(href) == "" {
			return true
		}
		if c.Selectors.LinkMatch != "" && !strings.Contains(href, c.Selectors.LinkMatch) {
			return true
		}
		link = c.ResolveURL(href)
		return false
	})
	return link
}

// processProduct turns one product element into an offer, or nil to skip it
func (c *ConfigurableScraper) processProduct(s *goquery.Selection) *offers.Offer {
	title := strings.Join(strings.Fields(c.processElement(s, "title", c.Selectors.Title)), " ")
	if title == "" {
		return nil
	}

	link := c.findLink(s)
	if link == "" {
		return nil
	}

	var id string
	if c.Selectors.IDAttr != "" {
		id, _ = s.Attr(c.Selectors.IDAttr)
		id = strings.TrimSpace(id)
	}
	if id == "" && c.IDExtractor != nil {
		var err error
		if id, err = c.IDExtractor(link); err != nil {
			c.log.Debug().Err(err).Str("link", link).Msg("Skipping product without id")
			return nil
		}
	}
	if id == "" {
		return nil
	}

	price := ParsePrice(c.processElement(s, "price", c.Selectors.Price))
	if price <= 0 {
		return nil
	}

	// Prefer the crossed-out list price; fall back to the shop's own badge
	var discount int
	if listPrice := ParsePrice(c.processElement(s, "list_price", c.Selectors.ListPrice)); listPrice > price {
		discount = CalculateDiscount(listPrice, price)
	} else {
		discount = ParseDiscount(c.processElement(s, "discount", c.Selectors.Discount))
	}

	return &offers.Offer{
		Merchant:    c.Merchant,
		ExternalID:  id,
		Title:       title,
		URL:         link,
		Price:       price,
		DiscountPct: discount,
		TS:          offers.NewTimestamp(c.now().UTC()),
	}
}
