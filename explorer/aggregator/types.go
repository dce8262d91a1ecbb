package aggregator

import (
	"cntExplorer/explorer/common"
)

// TokenSummary is the headline view of the tracked token.
type TokenSummary struct {
	OK          bool    `json:"ok"`
	Decimals    int     `json:"decimals"`
	TotalSupply float64 `json:"totalSupply"`
	TxCount     int     `json:"txCount"`
	PolicyID    *string `json:"policyId"`
	AssetHex    *string `json:"assetHex"`
	TS          int64   `json:"ts"`
}

// HolderSummary is the holder count, circulating figure and richest holders.
type HolderSummary struct {
	OK           bool            `json:"ok"`
	Decimals     int             `json:"decimals"`
	TotalHolders int             `json:"totalHolders"`
	Circulating  float64         `json:"circulating"`
	Top          []common.Holder `json:"top"`
	TS           int64           `json:"ts"`
}

// Transfer is one row of the paged transaction table.
type Transfer struct {
	TxHash        string `json:"txHash"`
	BlockHeight   *int64 `json:"blockHeight"`
	BlockTime     *int64 `json:"blockTime"`
	Confirmations *int64 `json:"confirmations"`
}

// TokenOverview backs the token page: metadata, paged transfers and the holder table.
type TokenOverview struct {
	OK           bool            `json:"ok"`
	PolicyID     string          `json:"policyId"`
	AssetHex     string          `json:"assetHex"`
	Fingerprint  string          `json:"fingerprint"`
	Decimals     int             `json:"decimals"`
	TotalSupply  float64         `json:"totalSupply"`
	Circulating  float64         `json:"circulating"`
	TotalHolders int             `json:"totalHolders"`
	TxCount      int             `json:"txCount"`
	Tip          *common.Tip     `json:"tip"`
	Page         int             `json:"page"`
	Pages        int             `json:"pages"`
	PageSize     int             `json:"pageSize"`
	Transfers    []Transfer      `json:"transfers"`
	Holders      []common.Holder `json:"holders"`
	TS           int64           `json:"ts"`
}

// TxDetail backs the transaction page.
type TxDetail struct {
	OK      bool           `json:"ok"`
	TxHash  string         `json:"txHash"`
	Info    *common.TxInfo `json:"info"`
	Inputs  []common.TxIO  `json:"inputs"`
	Outputs []common.TxIO  `json:"outputs"`
	TS      int64          `json:"ts"`
}

// AddressDetail backs the address page.
type AddressDetail struct {
	OK           bool               `json:"ok"`
	Address      string             `json:"address"`
	Balance      string             `json:"balance"`
	StakeAddress string             `json:"stakeAddress"`
	TxCount      int64              `json:"txCount"`
	Txs          []common.AddressTx `json:"txs"`
	TS           int64              `json:"ts"`
}

// Probe reports whether the explorer upstream answers each query kind.
type Probe struct {
	OK        bool  `json:"ok"`
	TipOK     bool  `json:"tipOk"`
	InfoLen   int   `json:"infoLen"`
	TxsLen    int   `json:"txsLen"`
	AddrCount int   `json:"addrCount"`
	TS        int64 `json:"ts"`
}

// TickerView is the spot ticker of the configured pair.
type TickerView struct {
	OK bool `json:"ok"`
	common.Ticker
}

// CandleSeries is the close price history of the configured pair.
type CandleSeries struct {
	OK     bool                 `json:"ok"`
	Points []common.CandlePoint `json:"points"`
}

// ChainList lists the chains the exchange supports for the token.
type ChainList struct {
	OK     bool                  `json:"ok"`
	Chains []common.ChainListing `json:"chains"`
}

// MarketStats is the market-aggregation snapshot of the token.
type MarketStats struct {
	OK bool `json:"ok"`
	common.CoinStats
}

// ReferencePrice is the USD price of the chain-native reference coin.
type ReferencePrice struct {
	OK   bool     `json:"ok"`
	Coin string   `json:"coin"`
	USD  *float64 `json:"adaUsd"`
}

// SeriesView is the price history of the reference coin.
type SeriesView struct {
	OK     bool                 `json:"ok"`
	Range  string               `json:"range"`
	Points []common.SeriesPoint `json:"points"`
}

// ListingsView lists the exchanges trading the token.
type ListingsView struct {
	OK bool `json:"ok"`
	common.Listings
}

// Dashboard is everything the landing page shows, fetched in one go.
type Dashboard struct {
	Summary   TokenSummary   `json:"summary"`
	Holders   HolderSummary  `json:"holders"`
	Ticker    TickerView     `json:"ticker"`
	Market    MarketStats    `json:"market"`
	Reference ReferencePrice `json:"reference"`
	TS        int64          `json:"ts"`
}
