package api

import (
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
)

// Cardano transaction hashes are 32 bytes of hex.
var txHashRegex = regexp.MustCompile(`^[0-9a-fA-F]{64}$`)

// Mainnet payment and stake addresses in bech32 (no 1, b, i or o after the separator).
var addressRegex = regexp.MustCompile(`^(addr|stake)1[02-9ac-hj-np-z]{20,}$`)

// handleHealth handles health check requests
func (s *Server) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response := map[string]interface{}{
			"status":    "ok",
			"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		}
		writeJSON(w, true, cacheNone, response)
	}
}

func (s *Server) handleDashboard() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d := s.service.Dashboard(r.Context())
		writeJSON(w, d.Summary.OK, cacheSummary, d)
	}
}

func (s *Server) handleSummary() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sum := s.service.TokenSummary(r.Context())
		writeJSON(w, sum.OK, cacheSummary, sum)
	}
}

// handleOverview serves the token page. ?page= starts at 1; anything
// unparsable selects the first page.
func (s *Server) handleOverview() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, err := strconv.Atoi(r.URL.Query().Get("page"))
		if err != nil || page < 1 {
			page = 1
		}
		o := s.service.TokenOverview(r.Context(), page)
		writeJSON(w, o.OK, cacheSummary, o)
	}
}

// Holder balances move with every transfer.
func (s *Server) handleHolders() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, true, cacheNone, s.service.HolderSummary(r.Context()))
	}
}

func (s *Server) handleTx() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		hash := mux.Vars(r)["hash"]
		if !txHashRegex.MatchString(hash) {
			writeJsonError(w, http.StatusBadRequest, ErrCodeInvalidTxHash,
				fmt.Sprintf("Invalid transaction hash: '%s'. Expected 64 hex characters.", hash))
			return
		}
		tx := s.service.TxDetail(r.Context(), strings.ToLower(hash))
		writeJSON(w, tx.OK, cacheSummary, tx)
	}
}

func (s *Server) handleAddress() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		addr := mux.Vars(r)["addr"]
		if !addressRegex.MatchString(addr) {
			writeJsonError(w, http.StatusBadRequest, ErrCodeInvalidAddress,
				fmt.Sprintf("Invalid address: '%s'. Expected a bech32 addr1 or stake1 address.", addr))
			return
		}
		ad := s.service.AddressDetail(r.Context(), addr)
		writeJSON(w, ad.OK, cacheSummary, ad)
	}
}

func (s *Server) handleProbe() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, true, cacheNone, s.service.Probe(r.Context()))
	}
}

func (s *Server) handleMarket() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m := s.service.MarketStats(r.Context())
		writeJSON(w, m.OK, cacheMarket, m)
	}
}

func (s *Server) handleListings() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		l := s.service.Listings(r.Context())
		writeJSON(w, l.OK, cacheMarket, l)
	}
}

func (s *Server) handleReferencePrice() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := s.service.ReferencePrice(r.Context())
		writeJSON(w, p.OK, cacheMarket, p)
	}
}

func (s *Server) handleReferenceSeries() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		series := s.service.ReferenceSeries(r.Context(), r.URL.Query().Get("range"))
		writeJSON(w, series.OK, cacheMarket, series)
	}
}

func (s *Server) handleTicker() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t := s.service.Ticker(r.Context())
		writeJSON(w, t.OK, cacheTicker, t)
	}
}

// handleCandles serves ?interval= and ?limit=; the exchange client applies
// defaults and bounds.
func (s *Server) handleCandles() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		limit, _ := strconv.Atoi(q.Get("limit"))
		c := s.service.Candles(r.Context(), q.Get("interval"), limit)
		writeJSON(w, c.OK, cacheTicker, c)
	}
}

func (s *Server) handleChains() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := s.service.Chains(r.Context())
		writeJSON(w, c.OK, cacheMarket, c)
	}
}
