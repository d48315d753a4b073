// Package api is the node's HTTP gateway: command submission, record
// queries, balances, and the websocket event feed.
package api

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Prompt-or-Die/ghostspeak-sub001/internal/handlers"
	"github.com/Prompt-or-Die/ghostspeak-sub001/internal/runtime"
	"github.com/Prompt-or-Die/ghostspeak-sub001/internal/state"
	"github.com/Prompt-or-Die/ghostspeak-sub001/pkg/httpx"
	"github.com/Prompt-or-Die/ghostspeak-sub001/pkg/keys"
)

// Faucet mints dev tokens. Nil disables the endpoint.
type Faucet interface {
	RegisterMint(ctx context.Context, mint keys.Pubkey, decimals uint8) error
	Mint(ctx context.Context, mint, owner keys.Pubkey, amount uint64) error
}

type Server struct {
	Engine       *handlers.Engine
	Store        runtime.RecordStore
	Ledger       runtime.TokenLedger
	Hub          *Hub
	Faucet       Faucet
	TrustSigners bool
}

type signatureEntry struct {
	Signer    keys.Pubkey `json:"signer"`
	Signature string      `json:"signature,omitempty"`
}

type submitRequest struct {
	Name       string           `json:"name"`
	Params     json.RawMessage  `json:"params"`
	Signatures []signatureEntry `json:"signatures"`
}

// SubmissionDigest is what each signer signs: the command name bound to
// its exact parameter bytes.
func SubmissionDigest(name string, params []byte) []byte {
	h := sha256.New()
	h.Write([]byte("ghostspeak:command:"))
	h.Write([]byte(name))
	h.Write([]byte{0})
	h.Write(params)
	return h.Sum(nil)
}

func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })

	r.Route("/v1", func(api chi.Router) {
		api.Get("/commands", func(w http.ResponseWriter, r *http.Request) {
			httpx.WriteJSON(w, 200, map[string]any{
				"request_id": httpx.NewRequestID(),
				"commands":   handlers.CommandNames(),
			})
		})

		api.Post("/commands", s.submit)

		api.Get("/records/{addr}", func(w http.ResponseWriter, r *http.Request) {
			addr, err := keys.Parse(chi.URLParam(r, "addr"))
			if err != nil {
				httpx.WriteError(w, 400, "BAD_ADDRESS", err.Error(), nil)
				return
			}
			stored, err := s.Store.Get(r.Context(), addr)
			if err != nil {
				httpx.WriteCommandError(w, err)
				return
			}
			httpx.WriteJSON(w, 200, map[string]any{
				"request_id": httpx.NewRequestID(),
				"record":     renderRecord(stored),
			})
		})

		api.Get("/records", func(w http.ResponseWriter, r *http.Request) {
			typ, err := state.ParseRecordType(r.URL.Query().Get("type"))
			if err != nil {
				httpx.WriteError(w, 400, "BAD_TYPE", err.Error(), nil)
				return
			}
			stored, err := s.Store.List(r.Context(), typ)
			if err != nil {
				httpx.WriteCommandError(w, err)
				return
			}
			out := make([]map[string]any, 0, len(stored))
			for _, rec := range stored {
				out = append(out, renderRecord(rec))
			}
			httpx.WriteJSON(w, 200, map[string]any{
				"request_id": httpx.NewRequestID(),
				"records":    out,
			})
		})

		api.Get("/balances", func(w http.ResponseWriter, r *http.Request) {
			mint, err := keys.Parse(r.URL.Query().Get("mint"))
			if err != nil {
				httpx.WriteError(w, 400, "BAD_MINT", err.Error(), nil)
				return
			}
			owner, err := keys.Parse(r.URL.Query().Get("owner"))
			if err != nil {
				httpx.WriteError(w, 400, "BAD_OWNER", err.Error(), nil)
				return
			}
			bal, err := s.Ledger.BalanceOf(r.Context(), mint, owner)
			if err != nil {
				httpx.WriteCommandError(w, err)
				return
			}
			httpx.WriteJSON(w, 200, map[string]any{
				"request_id": httpx.NewRequestID(),
				"mint":       mint, "owner": owner, "balance": bal,
			})
		})

		if s.Faucet != nil {
			api.Post("/faucet", func(w http.ResponseWriter, r *http.Request) {
				var req struct {
					Mint     keys.Pubkey `json:"mint"`
					Owner    keys.Pubkey `json:"owner"`
					Amount   uint64      `json:"amount"`
					Decimals uint8       `json:"decimals"`
				}
				if err := httpx.ReadJSON(r, &req); err != nil {
					httpx.WriteError(w, 400, "BAD_JSON", err.Error(), nil)
					return
				}
				if err := s.Faucet.RegisterMint(r.Context(), req.Mint, req.Decimals); err != nil {
					httpx.WriteCommandError(w, err)
					return
				}
				if err := s.Faucet.Mint(r.Context(), req.Mint, req.Owner, req.Amount); err != nil {
					httpx.WriteCommandError(w, err)
					return
				}
				httpx.WriteJSON(w, 200, map[string]any{"request_id": httpx.NewRequestID(), "minted": req.Amount})
			})
		}

		api.Get("/events", s.Hub.ServeHTTP)
	})
	return r
}

func (s *Server) submit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := httpx.ReadJSON(r, &req); err != nil {
		httpx.WriteError(w, 400, "BAD_JSON", err.Error(), nil)
		return
	}
	cmd, err := handlers.Decode(req.Name, req.Params)
	if err != nil {
		httpx.WriteCommandError(w, err)
		return
	}

	digest := SubmissionDigest(req.Name, req.Params)
	signers := make([]keys.Pubkey, 0, len(req.Signatures))
	for _, entry := range req.Signatures {
		if !s.TrustSigners {
			sig, err := hex.DecodeString(entry.Signature)
			if err != nil || !keys.VerifySignature(entry.Signer, digest, sig) {
				httpx.WriteError(w, 403, "INVALID_SIGNER", "bad signature for "+entry.Signer.String(), nil)
				return
			}
		}
		signers = append(signers, entry.Signer)
	}

	res, err := s.Engine.Submit(r.Context(), signers, cmd)
	if err != nil {
		httpx.WriteCommandError(w, err)
		return
	}
	httpx.WriteJSON(w, 200, map[string]any{
		"request_id": httpx.NewRequestID(),
		"result":     res,
	})
}

func renderRecord(stored runtime.StoredRecord) map[string]any {
	out := map[string]any{
		"address": stored.Addr,
		"type":    stored.Type.String(),
		"raw":     base64.StdEncoding.EncodeToString(stored.Data),
	}
	rec, err := state.NewRecord(stored.Type)
	if err == nil && rec.UnmarshalRecord(stored.Data) == nil {
		out["data"] = rec
	}
	return out
}
