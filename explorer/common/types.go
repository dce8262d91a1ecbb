package common

import "time"

// --- Explorer Records ---

// AssetInfo is the canonical shape of the tracked asset's metadata.
type AssetInfo struct {
	PolicyID       string `json:"policyId"`
	AssetNameHex   string `json:"assetNameHex"`
	Fingerprint    string `json:"fingerprint,omitempty"`
	TotalSupplyRaw string `json:"totalSupplyRaw"` // Integer string as returned upstream, "" when absent
	Decimals       int    `json:"decimals"`
}

// Holder is one address holding the tracked asset.
type Holder struct {
	Address string  `json:"address"`
	Raw     float64 `json:"raw"`    // Unscaled quantity
	Scaled  float64 `json:"scaled"` // Raw / 10^decimals
}

// HolderList is the normalized result of a holder listing.
type HolderList struct {
	Count   int      `json:"count"` // Upstream address_count when present, else len(Holders)
	Holders []Holder `json:"holders"`
}

// TxInfo is the subset of transaction metadata the explorer shows.
type TxInfo struct {
	TxHash      string `json:"txHash"`
	BlockHeight *int64 `json:"blockHeight"`
	BlockTime   *int64 `json:"blockTime"` // Unix seconds
	Fee         string `json:"fee,omitempty"`
}

// TxIO is one input or output of a transaction.
type TxIO struct {
	Address    string `json:"address"`
	Lovelace   string `json:"lovelace"`
	AssetCount int    `json:"assetCount"`
}

// TxUtxos holds the inputs and outputs of a transaction.
type TxUtxos struct {
	TxHash  string `json:"txHash"`
	Inputs  []TxIO `json:"inputs"`
	Outputs []TxIO `json:"outputs"`
}

// AddressInfo is the summary of an address.
type AddressInfo struct {
	Address      string `json:"address"`
	Balance      string `json:"balance"`
	StakeAddress string `json:"stakeAddress,omitempty"`
	TxCount      *int64 `json:"txCount"`
}

// AddressTx is one transaction reference in an address history.
type AddressTx struct {
	TxHash      string `json:"txHash"`
	BlockHeight *int64 `json:"blockHeight"`
	BlockTime   *int64 `json:"blockTime"`
}

// Tip is the chain head.
type Tip struct {
	BlockNo   int64 `json:"blockNo"`
	EpochNo   int64 `json:"epochNo"`
	BlockTime int64 `json:"blockTime"`
}

// --- Market Records ---

// Ticker is the latest spot ticker of a trading pair.
type Ticker struct {
	Pair      string   `json:"pair"`
	Exchange  string   `json:"exchange"`
	Price     *float64 `json:"price"`
	VolBase   *float64 `json:"volBase"`
	VolQuote  *float64 `json:"volQuote"`
	ChangePct *float64 `json:"changePct"`
}

// CandlePoint is one close price of an OHLC series.
type CandlePoint struct {
	T     int64   `json:"t"` // Unix milliseconds
	Close float64 `json:"close"`
}

// ChainListing is one chain on which an exchange lists the currency.
type ChainListing struct {
	Chain    string  `json:"chain"`
	Contract *string `json:"contract"`
	Deposit  string  `json:"deposit,omitempty"`
	Withdraw string  `json:"withdraw,omitempty"`
}

// CoinStats is the market-aggregation snapshot of a coin.
type CoinStats struct {
	Rank         *float64 `json:"rank"`
	MarketCapUSD *float64 `json:"marketCapUsd"`
	Circulating  *float64 `json:"circulating"`
	TotalSupply  *float64 `json:"totalSupply"`
	MaxSupply    *float64 `json:"maxSupply"`
	FDVUSD       *float64 `json:"fdvUsd"`
	MCToFDVPct   *float64 `json:"mcToFdvPct"`
	ATHUSD       *float64 `json:"athUsd"`
	ATHDate      *string  `json:"athDate"`
	ATLUSD       *float64 `json:"atlUsd"`
	ATLDate      *string  `json:"atlDate"`
	ReleaseDate  *string  `json:"releaseDate"`
	PriceUSD     *float64 `json:"priceUsd"`
}

// SeriesPoint is one point of a historical price series.
type SeriesPoint struct {
	T   int64   `json:"t"` // Unix milliseconds
	USD float64 `json:"usd"`
}

// MarketRow is one exchange listing of the token.
type MarketRow struct {
	Exchange    string   `json:"exchange"`
	Pair        string   `json:"pair"`
	URL         *string  `json:"url"`
	PriceUSD    *float64 `json:"priceUsd"`
	BaseAddress *string  `json:"baseAddress"`
	Chain       *string  `json:"chain"`
}

// Listings groups centralized and decentralized listings.
type Listings struct {
	PriceUSD     *float64    `json:"priceUsd"`
	MarketCapUSD *float64    `json:"marketCapUsd"`
	CEX          []MarketRow `json:"cex"`
	DEX          []MarketRow `json:"dex"`
}

// Now returns the response timestamp in Unix milliseconds.
func Now() int64 {
	return time.Now().UnixMilli()
}
