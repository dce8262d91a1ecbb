package gate

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"cntExplorer/explorer/common"
	"cntExplorer/explorer/config"
	"cntExplorer/explorer/metrics"
	"cntExplorer/explorer/normalize"
	"cntExplorer/explorer/sources/upstream"
)

// SourceName labels gate traffic in logs and metrics.
const SourceName = "gate"

// ExchangeName is shown next to ticker data.
const ExchangeName = "Gate.io"

// Candle limits.
const (
	DefaultInterval = "1m"
	DefaultLimit    = 60
	MinLimit        = 30
	MaxLimit        = 1000
)

var intervals = map[string]bool{
	"10s": true, "1m": true, "5m": true, "15m": true, "30m": true,
	"1h": true, "4h": true, "8h": true, "1d": true, "7d": true,
}

// Client reads public spot market data from Gate.
type Client struct {
	http     *upstream.Client
	selector *upstream.Selector
}

// NewClient creates a client over cfg's base URLs.
func NewClient(cfg config.SourceConfig, logger *slog.Logger, m *metrics.Metrics) *Client {
	hc, sel := upstream.New(SourceName, cfg, logger, m)
	return &Client{http: hc, selector: sel}
}

func (c *Client) get(path string, query url.Values, out func() any) upstream.QueryFunc {
	return func(ctx context.Context, base string) (any, error) {
		target := out()
		u := upstream.Join(base, path)
		if len(query) > 0 {
			u += "?" + query.Encode()
		}
		if err := c.http.DoInto(ctx, upstream.Request{Method: http.MethodGet, URL: u}, target); err != nil {
			return nil, err
		}
		return target, nil
	}
}

// Helper struct for Gate ticker response
type gateTicker struct {
	CurrencyPair     string `json:"currency_pair"`
	Last             string `json:"last"`
	BaseVolume       string `json:"base_volume"`
	QuoteVolume      string `json:"quote_volume"`
	ChangePercentage string `json:"change_percentage"`
}

// Ticker fetches the latest ticker of pair (e.g. BOS_USDT).
func (c *Client) Ticker(ctx context.Context, pair string) (common.Ticker, error) {
	out := common.Ticker{Pair: displayPair(pair), Exchange: ExchangeName}

	raw, err := c.selector.Do(ctx,
		c.get("/spot/tickers", url.Values{"currency_pair": {pair}}, func() any { return &[]gateTicker{} }),
		func(v any) bool {
			l, ok := v.(*[]gateTicker)
			return ok && len(*l) > 0
		})
	if err != nil {
		return out, fmt.Errorf("gate ticker %s: %w", pair, err)
	}

	tickers := *raw.(*[]gateTicker)
	if len(tickers) == 0 {
		return out, nil
	}
	t := tickers[0]
	out.Price = optString(t.Last)
	out.VolBase = optString(t.BaseVolume)
	out.VolQuote = optString(t.QuoteVolume)
	out.ChangePct = optString(t.ChangePercentage)
	return out, nil
}

// Candles fetches an OHLC series and returns the close prices in time order.
// Gate rows are [t, quote volume, close, high, low, open, ...] as strings.
func (c *Client) Candles(ctx context.Context, pair, interval string, limit int) ([]common.CandlePoint, error) {
	q := url.Values{
		"currency_pair": {pair},
		"interval":      {NormalizeInterval(interval)},
		"limit":         {strconv.Itoa(ClampLimit(limit))},
	}
	raw, err := c.selector.Do(ctx,
		c.get("/spot/candlesticks", q, func() any { return &[][]any{} }),
		func(v any) bool {
			l, ok := v.(*[][]any)
			return ok && len(*l) > 0
		})
	if err != nil {
		return []common.CandlePoint{}, fmt.Errorf("gate candles %s: %w", pair, err)
	}

	rows := *raw.(*[][]any)
	points := make([]common.CandlePoint, 0, len(rows))
	for _, row := range rows {
		if len(row) < 3 {
			continue
		}
		ts := normalize.OptNumber(row[0])
		closePrice := normalize.OptNumber(row[2])
		if ts == nil || closePrice == nil {
			continue
		}
		points = append(points, common.CandlePoint{T: int64(*ts) * 1000, Close: *closePrice})
	}
	sort.SliceStable(points, func(i, j int) bool { return points[i].T < points[j].T })
	return points, nil
}

// Helper struct for Gate currency response
type gateCurrency struct {
	Currency        string  `json:"currency"`
	Chain           *string `json:"chain"`
	ContractAddress *string `json:"contract_address"`
	DepositStatus   string  `json:"deposit_status"`
	WithdrawStatus  string  `json:"withdraw_status"`
}

// Chains lists the chains on which Gate supports currency, one entry per
// chain. Later entries for the same chain replace earlier ones in place.
func (c *Client) Chains(ctx context.Context, currency string) ([]common.ChainListing, error) {
	raw, err := c.selector.Do(ctx,
		c.get("/spot/currencies", url.Values{"currency": {currency}}, func() any { return &[]gateCurrency{} }),
		func(v any) bool {
			l, ok := v.(*[]gateCurrency)
			return ok && len(*l) > 0
		})
	if err != nil {
		return []common.ChainListing{}, fmt.Errorf("gate currencies %s: %w", currency, err)
	}

	var order []string
	byChain := map[string]common.ChainListing{}
	for _, cur := range *raw.(*[]gateCurrency) {
		chain := "NATIVE"
		switch {
		case cur.Chain != nil && *cur.Chain != "":
			chain = *cur.Chain
		case strings.Contains(cur.Currency, "_"):
			chain = strings.SplitN(cur.Currency, "_", 2)[1]
		}

		var contract *string
		if cur.ContractAddress != nil && *cur.ContractAddress != "" {
			v := *cur.ContractAddress
			contract = &v
		}

		if _, seen := byChain[chain]; !seen {
			order = append(order, chain)
		}
		byChain[chain] = common.ChainListing{
			Chain:    chain,
			Contract: contract,
			Deposit:  cur.DepositStatus,
			Withdraw: cur.WithdrawStatus,
		}
	}

	out := make([]common.ChainListing, 0, len(order))
	for _, chain := range order {
		out = append(out, byChain[chain])
	}
	return out, nil
}

// NormalizeInterval returns interval when Gate supports it, else the default.
func NormalizeInterval(interval string) string {
	if intervals[interval] {
		return interval
	}
	return DefaultInterval
}

// ClampLimit bounds a candle count; non-positive values select the default.
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit < MinLimit {
		return MinLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

func displayPair(pair string) string {
	return strings.Replace(pair, "_", "/", 1)
}

func optString(s string) *float64 {
	if s == "" {
		return nil
	}
	return normalize.OptNumber(s)
}
