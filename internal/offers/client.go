package offers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/boradedesconto/offerfeed/helpers"
	"github.com/boradedesconto/offerfeed/logger"
	"github.com/boradedesconto/offerfeed/pkg/errors"
)

// Page is one offers response: the listing in server order and the server's count
type Page struct {
	Data  []Offer
	Count int
}

// Fetcher retrieves offers for a set of filters
type Fetcher interface {
	FetchOffers(ctx context.Context, f Filters) (Page, error)
}

// StatsFetcher retrieves click statistics
type StatsFetcher interface {
	FetchClickStats(ctx context.Context, days int, offerID int64) ([]ClickStat, error)
}

// Client talks to the offers API over HTTP
type Client struct {
	baseURL string
	doer    helpers.Doer
	log     *logger.Logger
}

// NewClient creates a client for the API rooted at baseURL
func NewClient(baseURL string, doer helpers.Doer) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		doer:    doer,
		log:     logger.ForClient(),
	}
}

type offersEnvelope struct {
	Data  *[]Offer `json:"data"`
	Count *int     `json:"count"`
}

type statsEnvelope struct {
	Data []ClickStat `json:"data"`
}

// FetchOffers requests the offers matching f. The listing is returned exactly
// as served; filtering is the server's job.
func (c *Client) FetchOffers(ctx context.Context, f Filters) (Page, error) {
	url := OffersURL(c.baseURL, f)
	c.log.Debug().Str("url", url).Msg("Fetching offers")

	body, err := helpers.FetchJSON(ctx, c.doer, url)
	if err != nil {
		return Page{}, err
	}

	var env offersEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return Page{}, errors.NewMalformed("client", "invalid offers body", err)
	}
	if env.Data == nil {
		return Page{}, errors.NewMalformed("client", "offers body has no data array", nil)
	}
	if env.Count == nil {
		return Page{}, errors.NewMalformed("client", "offers body has no count", nil)
	}

	return Page{Data: *env.Data, Count: *env.Count}, nil
}

// FetchClickStats requests click counts over the last days days. offerID 0
// requests every offer.
func (c *Client) FetchClickStats(ctx context.Context, days int, offerID int64) ([]ClickStat, error) {
	if days < 1 || days > 365 {
		return nil, errors.NewValidation("client", fmt.Sprintf("days must be between 1 and 365, got %d", days))
	}

	url := ClickStatsURL(c.baseURL, days, offerID)
	c.log.Debug().Str("url", url).Msg("Fetching click stats")

	body, err := helpers.FetchJSON(ctx, c.doer, url)
	if err != nil {
		return nil, err
	}

	var env statsEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, errors.NewMalformed("client", "invalid click stats body", err)
	}
	if env.Data == nil {
		return []ClickStat{}, nil
	}

	return env.Data, nil
}
