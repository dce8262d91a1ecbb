package koios

import (
	"context"
	"log/slog"
	"net/http"

	"cntExplorer/explorer/common"
	"cntExplorer/explorer/config"
	"cntExplorer/explorer/metrics"
	"cntExplorer/explorer/normalize"
	"cntExplorer/explorer/sources/upstream"
)

// SourceName labels koios traffic in logs and metrics.
const SourceName = "koios"

// Client answers explorer queries for one asset across the configured Koios mirrors.
type Client struct {
	assetID  string
	http     *upstream.Client
	selector *upstream.Selector
}

// NewClient creates a client for assetID over cfg's mirrors.
func NewClient(cfg config.SourceConfig, assetID string, logger *slog.Logger, m *metrics.Metrics) *Client {
	hc, sel := upstream.New(SourceName, cfg, logger, m)
	return &Client{assetID: assetID, http: hc, selector: sel}
}

func (c *Client) post(path string, body any) upstream.QueryFunc {
	return func(ctx context.Context, base string) (any, error) {
		return c.http.Do(ctx, upstream.Request{
			Method: http.MethodPost,
			URL:    upstream.Join(base, path),
			Body:   body,
		})
	}
}

func (c *Client) get(path string) upstream.QueryFunc {
	return func(ctx context.Context, base string) (any, error) {
		return c.http.Do(ctx, upstream.Request{Method: http.MethodGet, URL: upstream.Join(base, path)})
	}
}

// AssetInfo fetches the asset's metadata.
func (c *Client) AssetInfo(ctx context.Context) (common.AssetInfo, error) {
	raw, err := c.selector.Do(ctx,
		c.post("/asset_info", map[string]any{"_asset_list": []string{c.assetID}}),
		upstream.NonEmptyList)
	if err != nil {
		return common.AssetInfo{}, err
	}
	return normalize.AssetInfo(raw), nil
}

// AssetTxs lists transaction hashes touching the asset, newest first as upstream returns them.
func (c *Client) AssetTxs(ctx context.Context, limit int) ([]string, error) {
	raw, err := c.selector.Do(ctx,
		c.post("/asset_txs", map[string]any{"_asset_list": []string{c.assetID}, "_limit": limit}),
		hasTxHashes)
	if err != nil {
		return nil, err
	}
	return normalize.TxHashes(raw), nil
}

// AssetHolders lists the addresses holding the asset.
func (c *Client) AssetHolders(ctx context.Context, limit int, decimals int) (common.HolderList, error) {
	raw, err := c.selector.Do(ctx,
		c.post("/asset_addresses", map[string]any{"_asset_list": []string{c.assetID}, "_limit": limit}),
		hasHolders)
	if err != nil {
		return common.HolderList{Holders: []common.Holder{}}, err
	}
	return normalize.Holders(raw, decimals), nil
}

// TxInfos fetches metadata for several transactions. No call is made for an empty list.
func (c *Client) TxInfos(ctx context.Context, hashes []string) ([]common.TxInfo, error) {
	if len(hashes) == 0 {
		return []common.TxInfo{}, nil
	}
	raw, err := c.selector.Do(ctx,
		c.post("/tx_info", map[string]any{"_tx_hashes": hashes}),
		upstream.IsList)
	if err != nil {
		return nil, err
	}
	return normalize.TxInfos(raw), nil
}

// TxInfo fetches one transaction; failures and unknown hashes give nil.
func (c *Client) TxInfo(ctx context.Context, hash string) *common.TxInfo {
	infos, err := c.TxInfos(ctx, []string{hash})
	if err != nil || len(infos) == 0 {
		return nil
	}
	return &infos[0]
}

// TxUtxos fetches the inputs and outputs of a transaction.
func (c *Client) TxUtxos(ctx context.Context, hash string) (*common.TxUtxos, error) {
	raw, err := c.selector.Do(ctx,
		c.post("/tx_utxos", map[string]any{"_tx_hashes": []string{hash}}),
		upstream.IsList)
	if err != nil {
		return nil, err
	}
	return normalize.TxUtxos(raw), nil
}

// AddressInfo fetches the summary of an address.
func (c *Client) AddressInfo(ctx context.Context, addr string) (*common.AddressInfo, error) {
	raw, err := c.selector.Do(ctx,
		c.post("/address_info", map[string]any{"_addresses": []string{addr}}),
		upstream.IsList)
	if err != nil {
		return nil, err
	}
	return normalize.AddressInfo(raw), nil
}

// AddressTxs lists transactions of an address.
func (c *Client) AddressTxs(ctx context.Context, addr string, limit int) ([]common.AddressTx, error) {
	raw, err := c.selector.Do(ctx,
		c.post("/address_txs", map[string]any{"_addresses": []string{addr}, "_limit": limit}),
		upstream.IsList)
	if err != nil {
		return nil, err
	}
	return normalize.AddressTxs(raw), nil
}

// Tip fetches the chain head.
func (c *Client) Tip(ctx context.Context) (*common.Tip, error) {
	raw, err := c.selector.Do(ctx, c.get("/tip"), upstream.NonEmptyList)
	if err != nil {
		return nil, err
	}
	return normalize.Tip(raw), nil
}

// hasTxHashes accepts a grouped listing with hashes or a non-empty bare listing.
func hasTxHashes(v any) bool {
	first := upstream.First(v)
	if first == nil {
		return false
	}
	if grouped, ok := first["tx_hashes"]; ok {
		return len(normalize.List(grouped)) > 0
	}
	return normalize.String(first["tx_hash"]) != ""
}

// hasHolders accepts a wrapped listing with a positive count or entries, or a
// bare listing whose first entry carries an address.
func hasHolders(v any) bool {
	first := upstream.First(v)
	if first == nil {
		return false
	}
	if normalize.Number(first["address_count"]) > 0 || len(normalize.List(first["addresses"])) > 0 {
		return true
	}
	addr, _ := normalize.Field(first, "address", "payment_address")
	return normalize.String(addr) != ""
}
