package normalize

import (
	"cntExplorer/explorer/common"
)

// Decimals reads the decimals of an asset_info entry: the token registry
// metadata first, then a flat field, else 0. The result is clamped to
// [0, MaxDecimals].
func Decimals(asset map[string]any) int {
	if reg := Object(asset["token_registry_metadata"]); reg != nil {
		if v, ok := Field(reg, "decimals"); ok {
			return decimalsOf(v)
		}
	}
	if v, ok := Field(asset, "decimals"); ok {
		return decimalsOf(v)
	}
	return 0
}

func decimalsOf(v any) int {
	f := Number(v)
	if f < 0 {
		return 0
	}
	if f > MaxDecimals {
		return MaxDecimals
	}
	return int(f)
}

// AssetInfo normalizes the first entry of an asset_info payload.
func AssetInfo(raw any) common.AssetInfo {
	asset := firstObject(raw)
	return common.AssetInfo{
		PolicyID:       String(asset["policy_id"]),
		AssetNameHex:   String(asset["asset_name"]),
		Fingerprint:    String(asset["fingerprint"]),
		TotalSupplyRaw: String(asset["total_supply"]),
		Decimals:       Decimals(asset),
	}
}

// Holders normalizes a holder listing. Accepted shapes:
//
//	[{"addresses": [...], "address_count": N}]
//	{"addresses": [...], "address_count": N}
//	[{"address"|"payment_address": ..., "quantity"|"asset_qty": ...}, ...]
//
// Entries without an address are dropped. Count prefers the upstream
// address_count and falls back to the number of listed entries.
func Holders(raw any, decimals int) common.HolderList {
	var bucket map[string]any
	var entries []any

	switch x := raw.(type) {
	case map[string]any:
		bucket = x
		entries = List(x["addresses"])
	case []any:
		if first := firstObject(x); first != nil {
			if _, wrapped := first["addresses"]; wrapped {
				bucket = first
				entries = List(first["addresses"])
				break
			}
		}
		entries = x
	}

	count := len(entries)
	if bucket != nil {
		if n := OptNumber(numericOnly(bucket["address_count"])); n != nil {
			count = int(*n)
		}
	}

	holders := make([]common.Holder, 0, len(entries))
	for _, e := range entries {
		h := Object(e)
		addrVal, _ := Field(h, "address", "payment_address")
		addr := String(addrVal)
		if addr == "" {
			continue
		}
		qty, _ := Field(h, "quantity", "asset_qty")
		holders = append(holders, common.Holder{
			Address: addr,
			Raw:     Number(qty),
			Scaled:  Scale(qty, decimals),
		})
	}

	return common.HolderList{Count: count, Holders: holders}
}

// TxHashes normalizes an asset_txs payload, either the grouped
// [{"tx_hashes": [...]}] shape or a bare list of {"tx_hash": ...} entries.
func TxHashes(raw any) []string {
	list := List(raw)
	if first := firstObject(list); first != nil {
		if grouped, ok := first["tx_hashes"]; ok {
			hashes := make([]string, 0, len(List(grouped)))
			for _, h := range List(grouped) {
				if s := String(h); s != "" {
					hashes = append(hashes, s)
				}
			}
			return hashes
		}
	}

	hashes := make([]string, 0, len(list))
	for _, e := range list {
		var s string
		if m := Object(e); m != nil {
			s = String(m["tx_hash"])
		} else {
			s = String(e)
		}
		if s != "" {
			hashes = append(hashes, s)
		}
	}
	return hashes
}

// TxInfos normalizes a tx_info payload.
func TxInfos(raw any) []common.TxInfo {
	list := List(raw)
	out := make([]common.TxInfo, 0, len(list))
	for _, e := range list {
		m := Object(e)
		hash := String(m["tx_hash"])
		if hash == "" {
			continue
		}
		out = append(out, common.TxInfo{
			TxHash:      hash,
			BlockHeight: OptInt(m["block_height"]),
			BlockTime:   OptInt(m["block_time"]),
			Fee:         String(m["fee"]),
		})
	}
	return out
}

// TxUtxos normalizes the first entry of a tx_utxos payload, nil when absent.
func TxUtxos(raw any) *common.TxUtxos {
	m := firstObject(raw)
	if m == nil {
		return nil
	}
	return &common.TxUtxos{
		TxHash:  String(m["tx_hash"]),
		Inputs:  txIOs(m["inputs"]),
		Outputs: txIOs(m["outputs"]),
	}
}

func txIOs(raw any) []common.TxIO {
	list := List(raw)
	out := make([]common.TxIO, 0, len(list))
	for _, e := range list {
		m := Object(e)
		if m == nil {
			continue
		}
		addr := String(Object(m["payment_addr"])["bech32"])
		if addr == "" {
			addr = String(m["address"])
		}
		out = append(out, common.TxIO{
			Address:    addr,
			Lovelace:   String(m["value"]),
			AssetCount: len(List(m["asset_list"])),
		})
	}
	return out
}

// AddressInfo normalizes the first entry of an address_info payload, nil when absent.
func AddressInfo(raw any) *common.AddressInfo {
	m := firstObject(raw)
	if m == nil {
		return nil
	}
	return &common.AddressInfo{
		Address:      String(m["address"]),
		Balance:      String(m["balance"]),
		StakeAddress: String(m["stake_address"]),
		TxCount:      OptInt(m["tx_count"]),
	}
}

// AddressTxs normalizes an address_txs payload, either bare entries or the
// grouped [{"txs": [...]}] shape.
func AddressTxs(raw any) []common.AddressTx {
	list := List(raw)
	if first := firstObject(list); first != nil {
		if grouped, ok := first["txs"]; ok {
			list = List(grouped)
		}
	}

	out := make([]common.AddressTx, 0, len(list))
	for _, e := range list {
		m := Object(e)
		hash := String(m["tx_hash"])
		if hash == "" {
			continue
		}
		out = append(out, common.AddressTx{
			TxHash:      hash,
			BlockHeight: OptInt(m["block_height"]),
			BlockTime:   OptInt(m["block_time"]),
		})
	}
	return out
}

// Tip normalizes a tip payload, nil when absent.
func Tip(raw any) *common.Tip {
	m := firstObject(raw)
	if m == nil {
		return nil
	}
	block, _ := Field(m, "block_no", "block_height")
	return &common.Tip{
		BlockNo:   int64(Number(block)),
		EpochNo:   int64(Number(m["epoch_no"])),
		BlockTime: int64(Number(m["block_time"])),
	}
}

func firstObject(raw any) map[string]any {
	l := List(raw)
	if len(l) == 0 {
		return nil
	}
	return Object(l[0])
}

// numericOnly drops string values so that only JSON numbers count.
func numericOnly(v any) any {
	if _, ok := v.(string); ok {
		return nil
	}
	return v
}
