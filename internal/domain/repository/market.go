package repository

// Market is the asset class of a feed.
type Market string

const (
	MarketCrypto Market = "crypto"
	MarketStocks Market = "stocks"
)

// IsValidMarket returns true if m is a supported market.
func IsValidMarket(m Market) bool {
	switch m {
	case MarketCrypto, MarketStocks:
		return true
	default:
		return false
	}
}

// DefaultMarket returns the default market.
func DefaultMarket() Market { return MarketCrypto }

// NormalizeMarket converts a raw string, including the aliases the
// dashboard sends, to a valid market (or the default).
func NormalizeMarket(s string) Market {
	switch s {
	case "stock", "stocks":
		return MarketStocks
	case "crypto", "cryptocurrency":
		return MarketCrypto
	case "":
		return DefaultMarket()
	}
	m := Market(s)
	if IsValidMarket(m) {
		return m
	}
	return DefaultMarket()
}
