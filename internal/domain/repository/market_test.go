package repository

import "testing"

func TestNormalizeMarket(t *testing.T) {
	tests := []struct {
		in   string
		want Market
	}{
		{"crypto", MarketCrypto},
		{"cryptocurrency", MarketCrypto},
		{"stocks", MarketStocks},
		{"stock", MarketStocks},
		{"", MarketCrypto},
		{"forex", MarketCrypto},
	}
	for _, tt := range tests {
		if got := NormalizeMarket(tt.in); got != tt.want {
			t.Errorf("NormalizeMarket(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestIsValidMarket(t *testing.T) {
	if !IsValidMarket(MarketCrypto) || !IsValidMarket(MarketStocks) {
		t.Error("supported markets reported invalid")
	}
	if IsValidMarket(Market("forex")) {
		t.Error("forex reported valid")
	}
}
