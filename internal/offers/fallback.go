package offers

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/boradedesconto/offerfeed/pkg/errors"
)

// Dataset is a fixed list of offers substituted when the API cannot be used.
// A nil Dataset means no fallback is available.
type Dataset []Offer

// DefaultDataset returns a copy of the bundled fallback offers
func DefaultDataset() Dataset {
	ts := func(s string) Timestamp {
		t, _ := time.Parse(time.RFC3339, s)
		return NewTimestamp(t)
	}

	return Dataset{
		{
			ID:          1,
			Merchant:    "amazon",
			ExternalID:  "B08X7JX9MB",
			Title:       "Smartphone Samsung Galaxy A54 5G 128GB 8GB RAM Preto",
			URL:         "https://www.amazon.com.br/dp/B08X7JX9MB",
			Price:       1899.99,
			DiscountPct: 25,
			TS:          ts("2023-06-01T10:00:00Z"),
		},
		{
			ID:          2,
			Merchant:    "amazon",
			ExternalID:  "B09V3YW11L",
			Title:       "Aspirador de Pó Robô Xiaomi Robot Vacuum-Mop 2",
			URL:         "https://www.amazon.com.br/dp/B09V3YW11L",
			Price:       1499.99,
			DiscountPct: 35,
			TS:          ts("2023-06-01T09:45:00Z"),
		},
		{
			ID:          3,
			Merchant:    "mercadolivre",
			ExternalID:  "MLB2163772914",
			Title:       `Smart TV Samsung 50" Crystal UHD 4K BU8000 2022`,
			URL:         "https://www.mercadolivre.com.br/p/MLB2163772914",
			Price:       2399.99,
			DiscountPct: 40,
			TS:          ts("2023-06-01T09:30:00Z"),
		},
		{
			ID:          4,
			Merchant:    "mercadolivre",
			ExternalID:  "MLB2789425378",
			Title:       "Notebook Dell Inspiron 15 3000 Intel Core i5 8GB RAM 256GB SSD",
			URL:         "https://www.mercadolivre.com.br/p/MLB2789425378",
			Price:       3299.99,
			DiscountPct: 15,
			TS:          ts("2023-06-01T09:15:00Z"),
		},
		{
			ID:          5,
			Merchant:    "aliexpress",
			ExternalID:  "1005004563781452",
			Title:       "Fones de ouvido sem fio TWS Bluetooth 5.3",
			URL:         "https://www.aliexpress.com/item/1005004563781452.html",
			Price:       89.99,
			DiscountPct: 60,
			TS:          ts("2023-06-01T09:00:00Z"),
		},
		{
			ID:          6,
			Merchant:    "amazon",
			ExternalID:  "B08JCRL4T5",
			Title:       "Echo Dot 4ª Geração Smart Speaker com Alexa",
			URL:         "https://www.amazon.com.br/dp/B08JCRL4T5",
			Price:       299.99,
			DiscountPct: 45,
			TS:          ts("2023-06-01T08:45:00Z"),
		},
	}
}

// LoadDataset reads a JSON array of offers from path
func LoadDataset(path string) (Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewConfiguration(fmt.Sprintf("failed to read fallback file %s", path), err)
	}

	var ds Dataset
	if err := json.Unmarshal(data, &ds); err != nil {
		return nil, errors.NewConfiguration(fmt.Sprintf("failed to parse fallback file %s", path), err)
	}
	if ds == nil {
		return nil, errors.NewConfiguration(fmt.Sprintf("fallback file %s holds no offer list", path), nil)
	}
	if err := ds.Validate(); err != nil {
		return nil, err
	}

	return ds, nil
}

// Validate reports whether every offer in the dataset is usable
func (d Dataset) Validate() error {
	if d == nil {
		return errors.NewUnrecoverable("fallback", "no fallback dataset", nil)
	}
	for i, o := range d {
		switch {
		case o.ID <= 0:
			return errors.NewUnrecoverable("fallback", fmt.Sprintf("offer %d has invalid id %d", i, o.ID), nil)
		case o.Merchant == "":
			return errors.NewUnrecoverable("fallback", fmt.Sprintf("offer %d has no merchant", i), nil)
		case o.DiscountPct < 0 || o.DiscountPct > 100:
			return errors.NewUnrecoverable("fallback", fmt.Sprintf("offer %d has discount %d outside 0-100", i, o.DiscountPct), nil)
		case o.Price < 0:
			return errors.NewUnrecoverable("fallback", fmt.Sprintf("offer %d has negative price", i), nil)
		}
	}
	return nil
}

// Filter returns the offers matching f in dataset order. The result is never nil.
func (d Dataset) Filter(f Filters) []Offer {
	out := make([]Offer, 0, len(d))
	for _, o := range d {
		if f.Match(o) {
			out = append(out, o)
		}
	}
	return out
}
