package scraper

import (
	"context"
	"io"
	"net/url"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"

	"github.com/boradedesconto/offerfeed/helpers"
	"github.com/boradedesconto/offerfeed/internal/offers"
	"github.com/boradedesconto/offerfeed/logger"
	"github.com/boradedesconto/offerfeed/pkg/errors"
)

// BaseScraper provides the fetch and parse plumbing shared by scrapers
type BaseScraper struct {
	Name        string
	URL         string
	BaseURL     string
	Merchant    string
	Client      helpers.Doer
	Guard       *offers.Guard
	IDExtractor IDExtractorFunc

	log *logger.Logger
}

// fetchWithGuard fetches the listing unless the merchant is rate limited
func (b *BaseScraper) fetchWithGuard(ctx context.Context) (io.Reader, error) {
	if err := b.Guard.Check(); err != nil {
		return nil, err
	}

	body, err := helpers.FetchHTML(ctx, b.Client, b.URL)
	b.Guard.Observe(err)
	if err != nil {
		return nil, err
	}
	return body, nil
}

// createDocument parses an HTML page
func (b *BaseScraper) createDocument(reader io.Reader) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(reader)
	if err != nil {
		return nil, errors.NewMalformed(b.Merchant, "failed to parse HTML", err)
	}
	return doc, nil
}

// processProducts runs processor over every selection in parallel. Products
// the processor rejects are dropped; the rest keep their page order.
func (b *BaseScraper) processProducts(selections *goquery.Selection, processor func(*goquery.Selection) *offers.Offer) []offers.Offer {
	results := make([]*offers.Offer, selections.Length())
	var wg sync.WaitGroup

	selections.Each(func(i int, s *goquery.Selection) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = processor(s)
		}()
	})
	wg.Wait()

	found := make([]offers.Offer, 0, len(results))
	for _, o := range results {
		if o != nil {
			found = append(found, *o)
		}
	}
	return found
}

// ResolveURL makes a product link absolute against BaseURL
func (b *BaseScraper) ResolveURL(link string) string {
	link = strings.TrimSpace(link)
	ref, err := url.Parse(link)
	if err != nil {
		return link
	}
	if ref.IsAbs() || b.BaseURL == "" {
		return ref.String()
	}
	base, err := url.Parse(b.BaseURL)
	if err != nil {
		return link
	}
	return base.ResolveReference(ref).String()
}

// GetName returns the scraper's name
func (b *BaseScraper) GetName() string {
	return b.Name
}

// GetMerchant returns the merchant slug
func (b *BaseScraper) GetMerchant() string {
	return b.Merchant
}
