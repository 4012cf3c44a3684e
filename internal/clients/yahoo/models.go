package yahoo

import "time"

// HistoricalPrice represents one daily OHLCV bar
type HistoricalPrice struct {
	Date     time.Time `json:"date"`
	Open     float64   `json:"open"`
	High     float64   `json:"high"`
	Low      float64   `json:"low"`
	Close    float64   `json:"close"`
	Volume   int64     `json:"volume"`
	AdjClose float64   `json:"adj_close"`
}

// AssetProfile holds the identifying fields used for capitalization weighting
type AssetProfile struct {
	Symbol    string `json:"symbol"`
	Name      string `json:"name"`
	QuoteType string `json:"quote_type"`
	MarketCap int64  `json:"market_cap"`
}
