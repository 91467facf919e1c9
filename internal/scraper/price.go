package scraper

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

var discountRegex = regexp.MustCompile(`(\d{1,3})\s*%`)

// ParsePrice reads a price as printed by Brazilian shops ("R$ 1.899,99",
// "1.899", "49,90") and returns it in reais. A comma marks the cents and dots
// group thousands, unless the dot comes last and is not followed by exactly
// three digits ("49.90"). Text without digits gives 0.
func ParsePrice(text string) float64 {
	clean := strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == ',' || r == '.' {
			return r
		}
		return -1
	}, text)
	clean = strings.Trim(clean, ",.")
	if clean == "" {
		return 0
	}

	lastComma := strings.LastIndex(clean, ",")
	lastDot := strings.LastIndex(clean, ".")

	switch {
	case lastComma > lastDot:
		// 1.899,99
		clean = strings.ReplaceAll(clean[:lastComma], ".", "") + "." + clean[lastComma+1:]
		clean = strings.ReplaceAll(clean, ",", "")
	case lastComma >= 0:
		// 1,899.99
		clean = strings.ReplaceAll(clean, ",", "")
	case lastDot >= 0:
		if strings.Count(clean, ".") > 1 || len(clean)-lastDot-1 == 3 {
			clean = strings.ReplaceAll(clean, ".", "")
		}
	}

	price, err := strconv.ParseFloat(clean, 64)
	if err != nil {
		return 0
	}
	return price
}

// ParseDiscount reads a badge such as "25% OFF" and returns the percentage,
// or 0 when the text carries none
func ParseDiscount(text string) int {
	m := discountRegex.FindStringSubmatch(text)
	if m == nil {
		return 0
	}
	pct, _ := strconv.Atoi(m[1])
	return min(pct, 100)
}

// CalculateDiscount returns the whole percentage price is below listPrice,
// clamped to 0..100. Without a list price there is no discount.
func CalculateDiscount(listPrice, price float64) int {
	if listPrice <= 0 {
		return 0
	}
	if price <= 0 {
		return 100
	}
	// The epsilon keeps 0.29*100 from flooring to 28
	pct := int(math.Floor((listPrice-price)/listPrice*100 + 1e-9))
	return max(0, min(100, pct))
}
