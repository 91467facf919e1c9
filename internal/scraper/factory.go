package scraper

import (
	"fmt"
	"regexp"

	"github.com/PuerkitoBio/goquery"

	"github.com/boradedesconto/offerfeed/config"
	"github.com/boradedesconto/offerfeed/helpers"
	"github.com/boradedesconto/offerfeed/logger"
	"github.com/boradedesconto/offerfeed/services/cache"
)

var (
	asinRegex = regexp.MustCompile(`/(?:dp|gp/product)/([A-Z0-9]{10})`)
	mlbRegex  = regexp.MustCompile(`MLB-?(\d+)`)
)

// CreateScrapers creates the merchant scrapers from the configuration
func CreateScrapers(cfg *config.Config, doer helpers.Doer, cacheSvc cache.CacheService) []Scraper {
	configurations := []ScraperConfig{
		AmazonConfig(cfg.AmazonURL),
		MercadoLivreConfig(cfg.MercadoLivreURL),
	}

	scrapers := make([]Scraper, 0, len(configurations))
	for i, sc := range configurations {
		if sc.URL == "" {
			continue
		}
		scrapers = append(scrapers, NewConfigurableScraper(sc, doer, cacheSvc))
		logger.Debug("Scraper %d: %s with URL %s", i, sc.Name, sc.URL)
	}

	return scrapers
}

// AmazonConfig describes an amazon.com.br search result page
func AmazonConfig(url string) ScraperConfig {
	return ScraperConfig{
		Name:      "Amazon",
		URL:       url,
		BaseURL:   "https://www.amazon.com.br",
		Merchant:  "amazon",
		CacheKey:  "amazon_rate_limited",
		BlockTime: 600,
		Selectors: Selectors{
			ProductList: `div[data-component-type="s-search-result"]`,
			IDAttr:      "data-asin",
			Title:       "h2 a span, h2 span, .a-text-normal",
			Link:        "h2 a, a.a-link-normal",
			LinkMatch:   "/dp/",
			Price:       ".a-price:not(.a-text-price) .a-offscreen, .a-price-whole",
			ListPrice:   ".a-price.a-text-price .a-offscreen",
		},
		IDExtractor: func(link string) (string, error) {
			m := asinRegex.FindStringSubmatch(link)
			if m == nil {
				return "", fmt.Errorf("no ASIN in %s", link)
			}
			return m[1], nil
		},
	}
}

// MercadoLivreConfig describes the mercadolivre.com.br offers page. Prices
// are split into a fraction and a cents element.
func MercadoLivreConfig(url string) ScraperConfig {
	return ScraperConfig{
		Name:      "MercadoLivre",
		URL:       url,
		BaseURL:   "https://www.mercadolivre.com.br",
		Merchant:  "mercadolivre",
		CacheKey:  "mercadolivre_rate_limited",
		BlockTime: 600,
		MaxOffers: 15,
		Selectors: Selectors{
			ProductList: ".poly-card, .promotion-item, .ui-search-result",
			Title:       ".poly-component__title, .promotion-item__title, h2",
			Link:        "a[href]",
			LinkMatch:   "mercadolivre.com",
			Discount:    ".andes-money-amount__discount, .promotion-item__discount-text, [class*=discount]",
		},
		IDExtractor: func(link string) (string, error) {
			m := mlbRegex.FindStringSubmatch(link)
			if m == nil {
				return "", fmt.Errorf("no MLB id in %s", link)
			}
			return "MLB" + m[1], nil
		},
		CustomHandlers: CustomHandlers{
			ElementHandlers: map[string]ElementHandlerFunc{
				"price":      moneyAmount(".poly-price__current .andes-money-amount, .andes-money-amount:not(.andes-money-amount--previous)"),
				"list_price": moneyAmount(".andes-money-amount--previous"),
			},
		},
	}
}

// moneyAmount reads an andes money amount, joining its fraction ("1.899")
// and cents ("99") into "1.899,99"
func moneyAmount(selector string) ElementHandlerFunc {
	return func(s *goquery.Selection) string {
		amount := s.Find(selector).First()
		fraction := amount.Find(".andes-money-amount__fraction").First()
		if fraction.Length() == 0 {
			return amount.Text()
		}

		text := fraction.Text()
		if cents := amount.Find(".andes-money-amount__cents").First().Text(); cents != "" {
			text += "," + cents
		}
		return text
	}
}
