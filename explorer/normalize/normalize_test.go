package normalize

import (
	"encoding/json"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cntExplorer/explorer/common"
)

// decode parses a JSON fixture the way the upstream client does.
func decode(t *testing.T, s string) any {
	t.Helper()
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	var v any
	require.NoError(t, dec.Decode(&v))
	return v
}

func TestScale(t *testing.T) {
	assert.Equal(t, 1.0, Scale("1000000", 6))
	assert.Equal(t, 1.5, Scale(json.Number("1500000"), 6))
	assert.Equal(t, 0.25, Scale(25, 2))
	assert.Equal(t, 12.0, Scale(" 12 ", 0))
	assert.InDelta(t, 18446744073709.551617, Scale("18446744073709551617", 6), 0.01)
}

func TestScaleIdentityAtZeroDecimals(t *testing.T) {
	for _, x := range []float64{0, 1, -1, 0.1, 123456.789, 1e300, -1e-300, math.MaxFloat64, math.SmallestNonzeroFloat64} {
		assert.Equal(t, x, Scale(x, 0), "scale(%v, 0)", x)
	}
}

func TestScaleNonNumericIsZero(t *testing.T) {
	for _, v := range []any{nil, "", "abc", "NaN", "Infinity", "-Infinity", "1e400", math.NaN(), math.Inf(1), math.Inf(-1),
		true, map[string]any{}, []any{1}} {
		assert.NotPanics(t, func() {
			assert.Equal(t, 0.0, Scale(v, 6), "scale(%#v)", v)
		})
	}
}

func TestScaleClampsDecimals(t *testing.T) {
	assert.Equal(t, 1000000.0, Scale("1000000", -6))
	assert.Equal(t, 25.0, Scale(25, -2))

	done := make(chan float64, 1)
	go func() { done <- Scale("1000000", 3000000000) }()
	select {
	case got := <-done:
		assert.InDelta(t, 0, got, 1e-200)
	case <-time.After(2 * time.Second):
		t.Fatal("Scale did not return for oversized decimals")
	}
	assert.Equal(t, Scale("7", MaxDecimals), Scale("7", MaxDecimals+1))
	assert.Equal(t, Scale(7.0, MaxDecimals), Scale(7.0, 1<<40))
}

func TestDecimals(t *testing.T) {
	tests := []struct {
		name  string
		asset string
		want  int
	}{
		{"registry", `{"token_registry_metadata":{"decimals":6},"decimals":2}`, 6},
		{"registry zero wins", `{"token_registry_metadata":{"decimals":0},"decimals":2}`, 0},
		{"flat", `{"decimals":8}`, 8},
		{"registry without decimals", `{"token_registry_metadata":{"name":"BOS"},"decimals":3}`, 3},
		{"registry null", `{"token_registry_metadata":null}`, 0},
		{"absent", `{}`, 0},
		{"string", `{"decimals":"6"}`, 6},
		{"negative", `{"decimals":-4}`, 0},
		{"oversized", `{"decimals":3000000000}`, MaxDecimals},
		{"oversized registry", `{"token_registry_metadata":{"decimals":1e300}}`, MaxDecimals},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Decimals(Object(decode(t, tt.asset))))
		})
	}
	assert.Equal(t, 0, Decimals(nil))
}

func TestAssetInfo(t *testing.T) {
	info := AssetInfo(decode(t, `[{"policy_id":"1fa8","asset_name":"0014df10","total_supply":"1000000","decimals":6}]`))
	assert.Equal(t, common.AssetInfo{PolicyID: "1fa8", AssetNameHex: "0014df10", TotalSupplyRaw: "1000000", Decimals: 6}, info)

	assert.Equal(t, common.AssetInfo{}, AssetInfo(decode(t, `[]`)))
	assert.Equal(t, common.AssetInfo{}, AssetInfo(nil))
}

func TestHoldersShapesAreEquivalent(t *testing.T) {
	entries := `[{"address":"addr1a","quantity":"500"},{"payment_address":"addr1b","asset_qty":"100"}]`

	wrapped := Holders(decode(t, `[{"addresses":`+entries+`,"address_count":2}]`), 2)
	object := Holders(decode(t, `{"addresses":`+entries+`,"address_count":2}`), 2)
	bare := Holders(decode(t, entries), 2)

	want := []common.Holder{
		{Address: "addr1a", Raw: 500, Scaled: 5},
		{Address: "addr1b", Raw: 100, Scaled: 1},
	}
	assert.Equal(t, want, wrapped.Holders)
	assert.Equal(t, want, object.Holders)
	assert.Equal(t, want, bare.Holders)
	assert.Equal(t, 2, wrapped.Count)
	assert.Equal(t, 2, bare.Count)
}

func TestHoldersCountPrefersUpstream(t *testing.T) {
	got := Holders(decode(t, `[{"addresses":[{"address":"addr1a","quantity":1}],"address_count":9000}]`), 0)
	assert.Equal(t, 9000, got.Count)
	assert.Len(t, got.Holders, 1)

	got = Holders(decode(t, `[{"addresses":[{"address":"addr1a","quantity":1}],"address_count":"9000"}]`), 0)
	assert.Equal(t, 1, got.Count, "non-numeric count falls back to list length")
}

func TestHoldersFirstRecognizedField(t *testing.T) {
	got := Holders(decode(t, `[{"address":"addr1x","payment_address":"addr1y","quantity":"7","asset_qty":"9"}]`), 0)
	require.Len(t, got.Holders, 1)
	assert.Equal(t, "addr1x", got.Holders[0].Address)
	assert.Equal(t, 7.0, got.Holders[0].Raw)

	got = Holders(decode(t, `[{"address":null,"payment_address":"addr1y","quantity":null,"asset_qty":"9"}]`), 0)
	require.Len(t, got.Holders, 1)
	assert.Equal(t, "addr1y", got.Holders[0].Address)
	assert.Equal(t, 9.0, got.Holders[0].Raw)
}

func TestHoldersDropsEntriesWithoutAddress(t *testing.T) {
	got := Holders(decode(t, `[{"address":"","quantity":"5"},{"quantity":"3"},"junk",{"address":"addr1ok"}]`), 0)
	require.Len(t, got.Holders, 1)
	assert.Equal(t, common.Holder{Address: "addr1ok"}, got.Holders[0])
	assert.Equal(t, 4, got.Count)
}

func TestHoldersUnknownShape(t *testing.T) {
	assert.Equal(t, common.HolderList{Count: 0, Holders: []common.Holder{}}, Holders(nil, 6))
	assert.Equal(t, common.HolderList{Count: 0, Holders: []common.Holder{}}, Holders("oops", 6))
}

func TestTxHashes(t *testing.T) {
	assert.Equal(t, []string{"aa", "bb"}, TxHashes(decode(t, `[{"tx_hashes":["aa","","bb"]}]`)))
	assert.Equal(t, []string{"aa", "bb"}, TxHashes(decode(t, `[{"tx_hash":"aa","block_height":1},{"tx_hash":"bb"}]`)))
	assert.Empty(t, TxHashes(decode(t, `[]`)))
	assert.Empty(t, TxHashes(nil))
}

func TestTxInfosAndUtxos(t *testing.T) {
	infos := TxInfos(decode(t, `[{"tx_hash":"aa","block_height":100,"block_time":1700000000,"fee":"170000"},{"block_height":5}]`))
	require.Len(t, infos, 1)
	assert.Equal(t, "aa", infos[0].TxHash)
	require.NotNil(t, infos[0].BlockHeight)
	assert.Equal(t, int64(100), *infos[0].BlockHeight)
	assert.Equal(t, int64(1700000000), *infos[0].BlockTime)

	utxos := TxUtxos(decode(t, `[{"tx_hash":"aa",
		"inputs":[{"payment_addr":{"bech32":"addr1in"},"value":"5000000"}],
		"outputs":[{"payment_addr":{"bech32":"addr1out"},"value":"4800000","asset_list":[{},{}]}]}]`))
	require.NotNil(t, utxos)
	assert.Equal(t, []common.TxIO{{Address: "addr1in", Lovelace: "5000000"}}, utxos.Inputs)
	assert.Equal(t, []common.TxIO{{Address: "addr1out", Lovelace: "4800000", AssetCount: 2}}, utxos.Outputs)

	assert.Nil(t, TxUtxos(decode(t, `[]`)))
}

func TestAddressRecords(t *testing.T) {
	info := AddressInfo(decode(t, `[{"address":"addr1q","balance":"42","tx_count":7}]`))
	require.NotNil(t, info)
	assert.Equal(t, "42", info.Balance)
	require.NotNil(t, info.TxCount)
	assert.Equal(t, int64(7), *info.TxCount)

	noCount := AddressInfo(decode(t, `[{"address":"addr1q"}]`))
	require.NotNil(t, noCount)
	assert.Nil(t, noCount.TxCount)

	bare := AddressTxs(decode(t, `[{"tx_hash":"aa","block_height":3},{"tx_hash":"bb"}]`))
	grouped := AddressTxs(decode(t, `[{"txs":[{"tx_hash":"aa","block_height":3},{"tx_hash":"bb"}]}]`))
	assert.Equal(t, bare, grouped)
	assert.Len(t, bare, 2)
}

func TestTip(t *testing.T) {
	tip := Tip(decode(t, `[{"block_no":11000000,"epoch_no":500,"block_time":1700000000}]`))
	require.NotNil(t, tip)
	assert.Equal(t, int64(11000000), tip.BlockNo)

	alt := Tip(decode(t, `[{"block_height":12}]`))
	require.NotNil(t, alt)
	assert.Equal(t, int64(12), alt.BlockNo)

	assert.Nil(t, Tip(decode(t, `[]`)))
}

func TestValueHelpers(t *testing.T) {
	assert.Equal(t, "12", String(json.Number("12")))
	assert.Equal(t, "1.5", String(1.5))
	assert.Equal(t, "", String(map[string]any{}))
	assert.Nil(t, OptNumber("x"))
	assert.Equal(t, 3.0, *OptNumber("3"))
	assert.Equal(t, int64(3), *OptInt(json.Number("3")))
}
