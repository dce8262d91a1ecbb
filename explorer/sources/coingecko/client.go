package coingecko

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"cntExplorer/explorer/common"
	"cntExplorer/explorer/config"
	"cntExplorer/explorer/metrics"
	"cntExplorer/explorer/normalize"
	"cntExplorer/explorer/sources/upstream"
)

// SourceName labels coingecko traffic in logs and metrics.
const SourceName = "coingecko"

// Series ranges.
const (
	Range1h  = "1h"
	Range24h = "24h"
	Range7d  = "7d"
)

type seriesWindow struct {
	days     string
	interval string
}

var seriesWindows = map[string]seriesWindow{
	Range1h:  {days: "1", interval: "minute"},
	Range24h: {days: "1", interval: "hourly"},
	Range7d:  {days: "7", interval: "hourly"},
}

// Client reads coin snapshots, price series and exchange listings.
type Client struct {
	symbol    string
	contracts map[string]string
	http      *upstream.Client
	selector  *upstream.Selector
}

// NewClient creates a client over cfg's base URLs. symbol is the token ticker
// that listings must mention in their base currency.
func NewClient(cfg config.CoinGeckoConfig, symbol string, logger *slog.Logger, m *metrics.Metrics) *Client {
	hc, sel := upstream.New(SourceName, cfg.SourceConfig, logger, m)
	contracts := make(map[string]string, len(cfg.OfficialContracts))
	for chain, addr := range cfg.OfficialContracts {
		contracts[strings.ToLower(chain)] = strings.ToLower(addr)
	}
	return &Client{
		symbol:    strings.ToUpper(symbol),
		contracts: contracts,
		http:      hc,
		selector:  sel,
	}
}

func (c *Client) get(path string, query url.Values) upstream.QueryFunc {
	return func(ctx context.Context, base string) (any, error) {
		u := upstream.Join(base, path)
		if len(query) > 0 {
			u += "?" + query.Encode()
		}
		return c.http.Do(ctx, upstream.Request{Method: http.MethodGet, URL: u})
	}
}

func isObject(v any) bool {
	return normalize.Object(v) != nil
}

// CoinStats fetches the market snapshot of coin id.
func (c *Client) CoinStats(ctx context.Context, id string) (common.CoinStats, error) {
	q := url.Values{
		"localization":   {"false"},
		"tickers":        {"false"},
		"market_data":    {"true"},
		"community_data": {"false"},
		"developer_data": {"false"},
		"sparkline":      {"false"},
	}
	raw, err := c.selector.Do(ctx, c.get("/coins/"+url.PathEscape(id), q), isObject)
	if err != nil {
		return common.CoinStats{}, fmt.Errorf("coingecko coin %s: %w", id, err)
	}

	coin := normalize.Object(raw)
	md := normalize.Object(coin["market_data"])
	usd := func(key string) any { return normalize.Object(md[key])["usd"] }

	stats := common.CoinStats{
		Rank:         normalize.OptNumber(coin["market_cap_rank"]),
		PriceUSD:     normalize.OptNumber(usd("current_price")),
		MarketCapUSD: normalize.OptNumber(usd("market_cap")),
		FDVUSD:       normalize.OptNumber(usd("fully_diluted_valuation")),
		Circulating:  normalize.OptNumber(md["circulating_supply"]),
		TotalSupply:  normalize.OptNumber(md["total_supply"]),
		MaxSupply:    normalize.OptNumber(md["max_supply"]),
		ATHUSD:       normalize.OptNumber(usd("ath")),
		ATHDate:      isoDate(usd("ath_date")),
		ATLUSD:       normalize.OptNumber(usd("atl")),
		ATLDate:      isoDate(usd("atl_date")),
	}
	if g := normalize.String(coin["genesis_date"]); g != "" {
		stats.ReleaseDate = &g
	}
	if stats.MarketCapUSD != nil && stats.FDVUSD != nil && *stats.FDVUSD > 0 {
		pct := math.Round(*stats.MarketCapUSD / *stats.FDVUSD * 10000) / 100
		stats.MCToFDVPct = &pct
	}
	return stats, nil
}

// SimplePrice fetches the USD price of coin id.
func (c *Client) SimplePrice(ctx context.Context, id string) (*float64, error) {
	price, _, err := c.simplePrice(ctx, id, false)
	return price, err
}

func (c *Client) simplePrice(ctx context.Context, id string, withCap bool) (*float64, *float64, error) {
	q := url.Values{"ids": {id}, "vs_currencies": {"usd"}}
	if withCap {
		q.Set("include_market_cap", "true")
	}
	raw, err := c.selector.Do(ctx, c.get("/simple/price", q), func(v any) bool {
		return normalize.Object(normalize.Object(v)[id]) != nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("coingecko price %s: %w", id, err)
	}
	entry := normalize.Object(normalize.Object(raw)[id])
	return normalize.OptNumber(entry["usd"]), normalize.OptNumber(entry["usd_market_cap"]), nil
}

// NormalizeRange returns rng when it is a known series range, else 1h.
func NormalizeRange(rng string) string {
	if _, ok := seriesWindows[rng]; ok {
		return rng
	}
	return Range1h
}

// PriceSeries fetches the USD price history of coin id over rng.
func (c *Client) PriceSeries(ctx context.Context, id, rng string) ([]common.SeriesPoint, error) {
	w := seriesWindows[NormalizeRange(rng)]
	q := url.Values{"vs_currency": {"usd"}, "days": {w.days}, "interval": {w.interval}}

	raw, err := c.selector.Do(ctx, c.get("/coins/"+url.PathEscape(id)+"/market_chart", q), func(v any) bool {
		return len(normalize.List(normalize.Object(v)["prices"])) > 0
	})
	if err != nil {
		return []common.SeriesPoint{}, fmt.Errorf("coingecko series %s: %w", id, err)
	}

	prices := normalize.List(normalize.Object(raw)["prices"])
	points := make([]common.SeriesPoint, 0, len(prices))
	for _, p := range prices {
		pair := normalize.List(p)
		if len(pair) < 2 {
			continue
		}
		t := normalize.OptNumber(pair[0])
		v := normalize.OptNumber(pair[1])
		if t == nil || v == nil {
			continue
		}
		points = append(points, common.SeriesPoint{T: int64(*t), USD: *v})
	}
	return points, nil
}

// Listings fetches the price, market cap and exchange listings of coin id.
// DEX rows are only kept when their base contract is an official contract of
// the chain inferred from the quote currency.
func (c *Client) Listings(ctx context.Context, id string) (common.Listings, error) {
	out := common.Listings{CEX: []common.MarketRow{}, DEX: []common.MarketRow{}}

	// Price failures still allow the listings to render.
	out.PriceUSD, out.MarketCapUSD, _ = c.simplePrice(ctx, id, true)

	raw, err := c.selector.Do(ctx, c.get("/coins/"+url.PathEscape(id)+"/tickers", nil), func(v any) bool {
		return normalize.List(normalize.Object(v)["tickers"]) != nil
	})
	if err != nil {
		return out, fmt.Errorf("coingecko tickers %s: %w", id, err)
	}

	for _, e := range normalize.List(normalize.Object(raw)["tickers"]) {
		t := normalize.Object(e)
		if t == nil {
			continue
		}
		base := strings.ToUpper(normalize.String(t["base"]))
		target := strings.ToUpper(normalize.String(t["target"]))
		if !strings.Contains(base, c.symbol) {
			continue
		}

		market := normalize.Object(t["market"])
		exchange := normalize.String(market["name"])
		if exchange == "" {
			exchange = "Unknown"
		}
		row := common.MarketRow{Exchange: exchange, Pair: base + "/" + target}
		if u := normalize.String(t["trade_url"]); u != "" {
			row.URL = &u
		}
		last, ok := normalize.Field(t, "last")
		if !ok {
			last = normalize.Object(t["converted_last"])["usd"]
		}
		row.PriceUSD = normalize.OptNumber(last)

		if normalize.String(t["coin_id"]) == id {
			if addr := strings.ToLower(normalize.String(t["base_contract_address"])); addr != "" {
				row.BaseAddress = &addr
				row.Chain = chainOf(target)
			}
		}

		if !strings.Contains(strings.ToLower(normalize.String(market["identifier"])), "dex") {
			out.CEX = append(out.CEX, row)
			continue
		}
		if c.official(row) {
			out.DEX = append(out.DEX, row)
		}
	}
	return out, nil
}

func (c *Client) official(row common.MarketRow) bool {
	if row.BaseAddress == nil || row.Chain == nil {
		return false
	}
	want, ok := c.contracts[*row.Chain]
	return ok && want == *row.BaseAddress
}

// chainOf infers the chain of a DEX pair from the wrapped native coin it is quoted in.
func chainOf(target string) *string {
	var chain string
	switch t := strings.ToLower(target); {
	case strings.Contains(t, "wbnb"):
		chain = "bsc"
	case strings.Contains(t, "weth"):
		chain = "eth"
	default:
		return nil
	}
	return &chain
}

func isoDate(v any) *string {
	s := normalize.String(v)
	if s == "" {
		return nil
	}
	ts, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return nil
	}
	iso := ts.UTC().Format("2006-01-02T15:04:05.000Z")
	return &iso
}
