package aggregator

import (
	"context"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"cntExplorer/explorer/common"
	"cntExplorer/explorer/config"
	"cntExplorer/explorer/logging"
	"cntExplorer/explorer/metrics"
	"cntExplorer/explorer/normalize"
	"cntExplorer/explorer/sources/coingecko"
	"cntExplorer/explorer/sources/gate"
	"cntExplorer/explorer/sources/koios"
)

// probeHolders is the holder listing size used to check the explorer upstream.
const probeHolders = 1000

// Explorer is the blockchain-indexing upstream.
type Explorer interface {
	AssetInfo(ctx context.Context) (common.AssetInfo, error)
	AssetTxs(ctx context.Context, limit int) ([]string, error)
	AssetHolders(ctx context.Context, limit int, decimals int) (common.HolderList, error)
	TxInfos(ctx context.Context, hashes []string) ([]common.TxInfo, error)
	TxInfo(ctx context.Context, hash string) *common.TxInfo
	TxUtxos(ctx context.Context, hash string) (*common.TxUtxos, error)
	AddressInfo(ctx context.Context, addr string) (*common.AddressInfo, error)
	AddressTxs(ctx context.Context, addr string, limit int) ([]common.AddressTx, error)
	Tip(ctx context.Context) (*common.Tip, error)
}

// Exchange is the spot exchange upstream.
type Exchange interface {
	Ticker(ctx context.Context, pair string) (common.Ticker, error)
	Candles(ctx context.Context, pair, interval string, limit int) ([]common.CandlePoint, error)
	Chains(ctx context.Context, currency string) ([]common.ChainListing, error)
}

// Market is the market-aggregation upstream.
type Market interface {
	CoinStats(ctx context.Context, id string) (common.CoinStats, error)
	SimplePrice(ctx context.Context, id string) (*float64, error)
	PriceSeries(ctx context.Context, id, rng string) ([]common.SeriesPoint, error)
	Listings(ctx context.Context, id string) (common.Listings, error)
}

// MainAggregator combines the upstreams into page-sized views. Every view is
// well-formed even when all upstreams fail; failed slices keep their defaults.
type MainAggregator struct {
	explorer Explorer
	exchange Exchange
	market   Market
	config   *config.Config
	logger   *slog.Logger
}

// NewMainAggregator creates an aggregator over the configured upstreams.
func NewMainAggregator(cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) *MainAggregator {
	return NewWithSources(cfg,
		koios.NewClient(cfg.Koios, cfg.Asset.AssetID, logger, m),
		gate.NewClient(cfg.Gate.SourceConfig, logger, m),
		coingecko.NewClient(cfg.CoinGecko, cfg.Asset.Symbol, logger, m),
		logger)
}

// NewWithSources creates an aggregator over explicit upstream implementations.
func NewWithSources(cfg *config.Config, e Explorer, x Exchange, mk Market, logger *slog.Logger) *MainAggregator {
	if logger == nil {
		logger = logging.Discard()
	}
	return &MainAggregator{explorer: e, exchange: x, market: mk, config: cfg, logger: logger}
}

func (a *MainAggregator) degraded(view, slice string, err error) {
	if err != nil {
		a.logger.Warn("Aggregate slice unavailable", "view", view, "slice", slice, "error", err)
	}
}

// TokenSummary fetches asset metadata and the transaction listing.
func (a *MainAggregator) TokenSummary(ctx context.Context) TokenSummary {
	var (
		g       errgroup.Group
		info    common.AssetInfo
		hashes  []string
		infoErr error
		txsErr  error
	)
	g.Go(func() error {
		info, infoErr = a.explorer.AssetInfo(ctx)
		return nil
	})
	g.Go(func() error {
		hashes, txsErr = a.explorer.AssetTxs(ctx, a.config.Limits.AssetTxs)
		return nil
	})
	_ = g.Wait()

	a.degraded("summary", "asset_info", infoErr)
	a.degraded("summary", "asset_txs", txsErr)

	return TokenSummary{
		OK:          infoErr == nil,
		Decimals:    info.Decimals,
		TotalSupply: normalize.Scale(info.TotalSupplyRaw, info.Decimals),
		TxCount:     len(hashes),
		PolicyID:    optString(info.PolicyID),
		AssetHex:    optString(info.AssetNameHex),
		TS:          common.Now(),
	}
}

// HolderSummary fetches the holder listing and derives the circulating figure and top holders.
func (a *MainAggregator) HolderSummary(ctx context.Context) HolderSummary {
	var (
		g          errgroup.Group
		info       common.AssetInfo
		list       common.HolderList
		infoErr    error
		holdersErr error
	)
	g.Go(func() error {
		info, infoErr = a.explorer.AssetInfo(ctx)
		return nil
	})
	g.Go(func() error {
		list, holdersErr = a.explorer.AssetHolders(ctx, a.config.Limits.HolderSummary, 0)
		return nil
	})
	_ = g.Wait()

	a.degraded("holders", "asset_info", infoErr)
	a.degraded("holders", "asset_addresses", holdersErr)

	holders := rescale(list.Holders, info.Decimals)
	return HolderSummary{
		OK:           holdersErr == nil,
		Decimals:     info.Decimals,
		TotalHolders: list.Count,
		Circulating:  CirculatingSupply(holders),
		Top:          TopHolders(holders, a.config.Limits.TopHolders),
		TS:           common.Now(),
	}
}

// TokenOverview fetches everything the token page shows, with transfers paged.
// Pages start at 1; out of range pages give no transfers.
func (a *MainAggregator) TokenOverview(ctx context.Context, page int) TokenOverview {
	if page < 1 {
		page = 1
	}
	var (
		g          errgroup.Group
		info       common.AssetInfo
		hashes     []string
		list       common.HolderList
		tip        *common.Tip
		infoErr    error
		txsErr     error
		holdersErr error
		tipErr     error
	)
	g.Go(func() error {
		info, infoErr = a.explorer.AssetInfo(ctx)
		return nil
	})
	g.Go(func() error {
		hashes, txsErr = a.explorer.AssetTxs(ctx, a.config.Limits.AssetTxs)
		return nil
	})
	g.Go(func() error {
		list, holdersErr = a.explorer.AssetHolders(ctx, a.config.Limits.HolderTable, 0)
		return nil
	})
	g.Go(func() error {
		tip, tipErr = a.explorer.Tip(ctx)
		return nil
	})
	_ = g.Wait()

	a.degraded("overview", "asset_info", infoErr)
	a.degraded("overview", "asset_txs", txsErr)
	a.degraded("overview", "asset_addresses", holdersErr)
	a.degraded("overview", "tip", tipErr)

	size := a.config.Limits.TransfersPageSize
	start, end := pageWindow(page, size, len(hashes))
	pageHashes := hashes[start:end]

	infos, err := a.explorer.TxInfos(ctx, pageHashes)
	a.degraded("overview", "tx_info", err)
	byHash := make(map[string]common.TxInfo, len(infos))
	for _, ti := range infos {
		byHash[ti.TxHash] = ti
	}

	transfers := make([]Transfer, 0, len(pageHashes))
	for _, h := range pageHashes {
		row := Transfer{TxHash: h}
		if ti, ok := byHash[h]; ok {
			row.BlockHeight = ti.BlockHeight
			row.BlockTime = ti.BlockTime
			row.Confirmations = confirmations(tip, ti.BlockHeight)
		}
		transfers = append(transfers, row)
	}

	policyID := info.PolicyID
	if policyID == "" {
		policyID = a.config.Asset.PolicyID
	}
	assetHex := info.AssetNameHex
	if assetHex == "" {
		assetHex = strings.TrimPrefix(a.config.Asset.AssetID, policyID)
	}
	fingerprint := info.Fingerprint
	if fingerprint == "" {
		fingerprint = a.config.Asset.Fingerprint
	}

	holders := rescale(list.Holders, info.Decimals)
	return TokenOverview{
		OK:           infoErr == nil,
		PolicyID:     policyID,
		AssetHex:     assetHex,
		Fingerprint:  fingerprint,
		Decimals:     info.Decimals,
		TotalSupply:  normalize.Scale(info.TotalSupplyRaw, info.Decimals),
		Circulating:  CirculatingSupply(holders),
		TotalHolders: list.Count,
		TxCount:      len(hashes),
		Tip:          tip,
		Page:         page,
		Pages:        pageCount(size, len(hashes)),
		PageSize:     size,
		Transfers:    transfers,
		Holders:      TopHolders(holders, a.config.Limits.TableHolders),
		TS:           common.Now(),
	}
}

// TxDetail fetches a transaction and its inputs and outputs.
func (a *MainAggregator) TxDetail(ctx context.Context, hash string) TxDetail {
	var (
		g        errgroup.Group
		info     *common.TxInfo
		utxos    *common.TxUtxos
		utxosErr error
	)
	g.Go(func() error {
		info = a.explorer.TxInfo(ctx, hash)
		return nil
	})
	g.Go(func() error {
		utxos, utxosErr = a.explorer.TxUtxos(ctx, hash)
		return nil
	})
	_ = g.Wait()

	a.degraded("tx", "tx_utxos", utxosErr)

	out := TxDetail{
		OK:      info != nil || utxos != nil,
		TxHash:  hash,
		Info:    info,
		Inputs:  []common.TxIO{},
		Outputs: []common.TxIO{},
		TS:      common.Now(),
	}
	if utxos != nil {
		out.Inputs = utxos.Inputs
		out.Outputs = utxos.Outputs
	}
	return out
}

// AddressDetail fetches an address summary and its most recent transactions.
func (a *MainAggregator) AddressDetail(ctx context.Context, addr string) AddressDetail {
	var (
		g       errgroup.Group
		info    *common.AddressInfo
		txs     []common.AddressTx
		infoErr error
		txsErr  error
	)
	g.Go(func() error {
		info, infoErr = a.explorer.AddressInfo(ctx, addr)
		return nil
	})
	g.Go(func() error {
		txs, txsErr = a.explorer.AddressTxs(ctx, addr, a.config.Limits.AddressTxs)
		return nil
	})
	_ = g.Wait()

	a.degraded("address", "address_info", infoErr)
	a.degraded("address", "address_txs", txsErr)

	out := AddressDetail{
		OK:      infoErr == nil && info != nil,
		Address: addr,
		TxCount: int64(len(txs)),
		Txs:     []common.AddressTx{},
		TS:      common.Now(),
	}
	if info != nil {
		out.Balance = info.Balance
		out.StakeAddress = info.StakeAddress
		if info.TxCount != nil {
			out.TxCount = *info.TxCount
		}
	}
	if n := a.config.Limits.AddressTxsShown; n >= 0 && len(txs) > n {
		txs = txs[:n]
	}
	if txs != nil {
		out.Txs = txs
	}
	return out
}

// Probe runs one query of each explorer kind and reports what came back.
func (a *MainAggregator) Probe(ctx context.Context) Probe {
	out := Probe{OK: true}
	var g errgroup.Group
	g.Go(func() error {
		tip, err := a.explorer.Tip(ctx)
		out.TipOK = err == nil && tip != nil
		return nil
	})
	g.Go(func() error {
		if info, err := a.explorer.AssetInfo(ctx); err == nil && info.PolicyID != "" {
			out.InfoLen = 1
		}
		return nil
	})
	g.Go(func() error {
		hashes, _ := a.explorer.AssetTxs(ctx, a.config.Limits.AssetTxs)
		out.TxsLen = len(hashes)
		return nil
	})
	g.Go(func() error {
		list, _ := a.explorer.AssetHolders(ctx, probeHolders, 0)
		out.AddrCount = list.Count
		return nil
	})
	_ = g.Wait()
	out.TS = common.Now()
	return out
}

// Ticker fetches the spot ticker of the configured pair.
func (a *MainAggregator) Ticker(ctx context.Context) TickerView {
	t, err := a.exchange.Ticker(ctx, a.config.Gate.Pair)
	a.degraded("ticker", "gate_ticker", err)
	return TickerView{OK: err == nil, Ticker: t}
}

// Candles fetches the close price history of the configured pair.
func (a *MainAggregator) Candles(ctx context.Context, interval string, limit int) CandleSeries {
	points, err := a.exchange.Candles(ctx, a.config.Gate.Pair, interval, limit)
	a.degraded("ohlc", "gate_candles", err)
	if points == nil {
		points = []common.CandlePoint{}
	}
	return CandleSeries{OK: err == nil, Points: points}
}

// Chains lists the chains the exchange supports for the token.
func (a *MainAggregator) Chains(ctx context.Context) ChainList {
	chains, err := a.exchange.Chains(ctx, a.config.Gate.Currency)
	a.degraded("chains", "gate_currencies", err)
	if chains == nil {
		chains = []common.ChainListing{}
	}
	return ChainList{OK: err == nil, Chains: chains}
}

// MarketStats fetches the market snapshot of the token.
func (a *MainAggregator) MarketStats(ctx context.Context) MarketStats {
	s, err := a.market.CoinStats(ctx, a.config.CoinGecko.CoinID)
	a.degraded("market", "coin_stats", err)
	return MarketStats{OK: err == nil, CoinStats: s}
}

// ReferencePrice fetches the USD price of the reference coin.
func (a *MainAggregator) ReferencePrice(ctx context.Context) ReferencePrice {
	coin := a.config.CoinGecko.ReferenceCoinID
	p, err := a.market.SimplePrice(ctx, coin)
	a.degraded("reference", "simple_price", err)
	return ReferencePrice{OK: err == nil, Coin: coin, USD: p}
}

// ReferenceSeries fetches the price history of the reference coin over rng.
func (a *MainAggregator) ReferenceSeries(ctx context.Context, rng string) SeriesView {
	rng = coingecko.NormalizeRange(rng)
	points, err := a.market.PriceSeries(ctx, a.config.CoinGecko.ReferenceCoinID, rng)
	a.degraded("series", "market_chart", err)
	if points == nil {
		points = []common.SeriesPoint{}
	}
	return SeriesView{OK: err == nil, Range: rng, Points: points}
}

// Listings fetches the exchanges trading the token.
func (a *MainAggregator) Listings(ctx context.Context) ListingsView {
	l, err := a.market.Listings(ctx, a.config.CoinGecko.CoinID)
	a.degraded("listings", "coin_tickers", err)
	if l.CEX == nil {
		l.CEX = []common.MarketRow{}
	}
	if l.DEX == nil {
		l.DEX = []common.MarketRow{}
	}
	return ListingsView{OK: err == nil, Listings: l}
}

// Dashboard fetches every landing page view concurrently.
func (a *MainAggregator) Dashboard(ctx context.Context) Dashboard {
	var d Dashboard
	var g errgroup.Group
	g.Go(func() error { d.Summary = a.TokenSummary(ctx); return nil })
	g.Go(func() error { d.Holders = a.HolderSummary(ctx); return nil })
	g.Go(func() error { d.Ticker = a.Ticker(ctx); return nil })
	g.Go(func() error { d.Market = a.MarketStats(ctx); return nil })
	g.Go(func() error { d.Reference = a.ReferencePrice(ctx); return nil })
	_ = g.Wait()
	d.TS = common.Now()
	return d
}
