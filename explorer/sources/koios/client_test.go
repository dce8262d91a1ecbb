package koios

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cntExplorer/explorer/config"
)

const testAsset = "1fa8a8909a66bb5c850c1fc3fe48903a5879ca2c1c9882e9055eef8d0014df10424f5320546f6b656e"

// mirror is a mock Koios deployment answering from a path -> body table.
type mirror struct {
	*httptest.Server
	mu     sync.Mutex
	hits   map[string]int
	bodies map[string]any
	status int
}

func newMirror(t *testing.T, bodies map[string]any) *mirror {
	t.Helper()
	m := &mirror{hits: map[string]int{}, bodies: bodies}
	m.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.mu.Lock()
		m.hits[r.URL.Path]++
		status := m.status
		m.mu.Unlock()

		if status != 0 {
			w.WriteHeader(status)
			return
		}
		body, ok := m.bodies[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if s, ok := body.(string); ok {
			fmt.Fprint(w, s)
			return
		}
		_ = json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(m.Close)
	return m
}

func (m *mirror) count(path string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hits[path]
}

func testConfig(bases ...string) config.SourceConfig {
	return config.SourceConfig{
		BaseURLs:    bases,
		Timeout:     2 * time.Second,
		Retries:     0,
		MirrorDelay: time.Millisecond,
		UserAgent:   "test",
	}
}

func TestClient_AssetInfo(t *testing.T) {
	var got map[string][]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/asset_info", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		fmt.Fprint(w, `[{"policy_id":"1fa8","asset_name":"0014df10","total_supply":"1000000","token_registry_metadata":{"decimals":6}}]`)
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL), testAsset, nil, nil)
	info, err := c.AssetInfo(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{testAsset}, got["_asset_list"])
	assert.Equal(t, 6, info.Decimals)
	assert.Equal(t, "1000000", info.TotalSupplyRaw)
	assert.Equal(t, "1fa8", info.PolicyID)
}

func TestClient_FallsBackToSecondMirror(t *testing.T) {
	empty := newMirror(t, map[string]any{"/asset_info": `[]`})
	good := newMirror(t, map[string]any{"/asset_info": `[{"policy_id":"p","decimals":2}]`})
	unused := newMirror(t, map[string]any{"/asset_info": `[{"policy_id":"q"}]`})

	c := NewClient(testConfig(empty.URL, good.URL, unused.URL), testAsset, nil, nil)
	info, err := c.AssetInfo(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "p", info.PolicyID)
	assert.Equal(t, 1, empty.count("/asset_info"))
	assert.Equal(t, 1, good.count("/asset_info"))
	assert.Equal(t, 0, unused.count("/asset_info"))
}

func TestClient_BaseWithPathPrefix(t *testing.T) {
	m := newMirror(t, map[string]any{"/api/v1/tip": `[{"block_no":42}]`})

	c := NewClient(testConfig(m.URL+"/api/v1/"), testAsset, nil, nil)
	tip, err := c.Tip(context.Background())
	require.NoError(t, err)
	require.NotNil(t, tip)
	assert.Equal(t, int64(42), tip.BlockNo)
}

func TestClient_AssetHoldersBothShapes(t *testing.T) {
	wrapped := newMirror(t, map[string]any{
		"/asset_addresses": `[{"address_count":2,"addresses":[{"address":"addr1a","quantity":"3000000"},{"address":"addr1b","quantity":"1000000"}]}]`,
	})
	bare := newMirror(t, map[string]any{
		"/asset_addresses": `[{"payment_address":"addr1a","quantity":"3000000"},{"payment_address":"addr1b","quantity":"1000000"}]`,
	})

	w, err := NewClient(testConfig(wrapped.URL), testAsset, nil, nil).AssetHolders(context.Background(), 100, 6)
	require.NoError(t, err)
	b, err := NewClient(testConfig(bare.URL), testAsset, nil, nil).AssetHolders(context.Background(), 100, 6)
	require.NoError(t, err)

	assert.Equal(t, w, b)
	assert.Equal(t, 2, w.Count)
	assert.Equal(t, 3.0, w.Holders[0].Scaled)
	assert.Equal(t, 1, bare.count("/asset_addresses"), "bare listing validates on the first try")
}

func TestClient_AssetTxsShapes(t *testing.T) {
	grouped := newMirror(t, map[string]any{"/asset_txs": `[{"tx_hashes":["aa","bb"]}]`})
	hashes, err := NewClient(testConfig(grouped.URL), testAsset, nil, nil).AssetTxs(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"aa", "bb"}, hashes)

	bare := newMirror(t, map[string]any{"/asset_txs": `[{"tx_hash":"cc","block_height":1}]`})
	hashes, err = NewClient(testConfig(bare.URL), testAsset, nil, nil).AssetTxs(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"cc"}, hashes)
}

func TestClient_TxInfosEmptyInputSkipsCall(t *testing.T) {
	m := newMirror(t, map[string]any{"/tx_info": `[]`})
	infos, err := NewClient(testConfig(m.URL), testAsset, nil, nil).TxInfos(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, infos)
	assert.Equal(t, 0, m.count("/tx_info"))
}

func TestClient_TxInfoSwallowsErrors(t *testing.T) {
	m := newMirror(t, nil)
	m.status = http.StatusInternalServerError

	c := NewClient(testConfig(m.URL), testAsset, nil, nil)
	assert.Nil(t, c.TxInfo(context.Background(), "aa"))
}

func TestClient_TxAndAddressQueries(t *testing.T) {
	m := newMirror(t, map[string]any{
		"/tx_info":      `[{"tx_hash":"aa","block_height":10,"block_time":1700000000}]`,
		"/tx_utxos":     `[{"tx_hash":"aa","inputs":[{"payment_addr":{"bech32":"addr1in"},"value":"1"}],"outputs":[]}]`,
		"/address_info": `[{"address":"addr1q","balance":"5","tx_count":3}]`,
		"/address_txs":  `[{"tx_hash":"aa"},{"tx_hash":"bb"}]`,
	})
	c := NewClient(testConfig(m.URL), testAsset, nil, nil)
	ctx := context.Background()

	tx := c.TxInfo(ctx, "aa")
	require.NotNil(t, tx)
	assert.Equal(t, int64(10), *tx.BlockHeight)

	utxos, err := c.TxUtxos(ctx, "aa")
	require.NoError(t, err)
	require.NotNil(t, utxos)
	assert.Len(t, utxos.Inputs, 1)
	assert.Empty(t, utxos.Outputs)

	info, err := c.AddressInfo(ctx, "addr1q")
	require.NoError(t, err)
	require.NotNil(t, info)
	assert.Equal(t, int64(3), *info.TxCount)

	txs, err := c.AddressTxs(ctx, "addr1q", 500)
	require.NoError(t, err)
	assert.Len(t, txs, 2)
}

func TestClient_AllMirrorsDown(t *testing.T) {
	var mirrors []string
	for i := 0; i < 3; i++ {
		m := newMirror(t, nil)
		m.status = http.StatusBadGateway
		mirrors = append(mirrors, m.URL)
	}

	c := NewClient(testConfig(mirrors...), testAsset, nil, nil)
	_, err := c.AssetInfo(context.Background())
	assert.Error(t, err)

	holders, err := c.AssetHolders(context.Background(), 10, 0)
	assert.Error(t, err)
	assert.NotNil(t, holders.Holders)
	assert.Empty(t, holders.Holders)
}

func TestPredicates(t *testing.T) {
	assert.False(t, hasTxHashes([]any{map[string]any{"tx_hashes": []any{}}}))
	assert.True(t, hasTxHashes([]any{map[string]any{"tx_hashes": []any{"a"}}}))
	assert.False(t, hasTxHashes([]any{}))

	assert.True(t, hasHolders([]any{map[string]any{"address_count": json.Number("5"), "addresses": []any{}}}))
	assert.False(t, hasHolders([]any{map[string]any{"address_count": json.Number("0"), "addresses": []any{}}}))
	assert.True(t, hasHolders([]any{map[string]any{"payment_address": "addr1"}}))
	assert.False(t, hasHolders(map[string]any{}))
}
