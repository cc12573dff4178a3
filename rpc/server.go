// Package rpc exposes the spec's §6 RPC surface as a thin JSON-RPC 2.0
// HTTP boundary: one POST endpoint accepting {jsonrpc, method, params, id}
// envelopes, dispatching by method name to core.Coordinator and
// sdk/wallet, and returning {jsonrpc, id, result|error} — the same
// envelope shape as the teacher's rpc/http.go, trimmed to the handful of
// error codes this surface can produce and to go-chi/chi/v5 for routing
// instead of the teacher's bespoke net/http2/h2c/gRPC multiplexing (out of
// scope per spec.md's "wire/transport layer is not designed beyond this
// contract boundary").
package rpc

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"dposcore/core"
	"dposcore/core/types"
	"dposcore/identity"
	"dposcore/sdk/wallet"
)

const maxRequestBytes = 1 << 20 // 1 MiB, matching the teacher's rpc/http.go bound

// Credentials is the single operator login checked by the login method
// (§6 defines no multi-account system).
type Credentials struct {
	User     string
	Password string
}

// ServerConfig configures a Server.
type ServerConfig struct {
	Credentials   Credentials
	JWTSecret     string
	BlockInterval time.Duration
	SelfAddress   identity.Address
}

// blockRecord is the signed header the node recorded for one committed
// height, supplied by the caller (typically the process wiring
// core.Coordinator.ApplyBlock into a producer loop) via RecordBlock.
type blockRecord struct {
	block types.Block
}

// Server is the JSON-RPC boundary over one core.Coordinator, fronting a
// single node-managed wallet account (the outputs this node itself owns
// and can spend) the way a reference wallet daemon fronts one node's
// managed keys.
type Server struct {
	coord  *core.Coordinator
	tokens *tokenIssuer
	cfg    ServerConfig
	router chi.Router

	mu          sync.Mutex
	owned       map[types.OutputID]types.UnspentOutput
	walletState wallet.State
	txs         map[string]types.Transaction
	blocks      map[uint64]blockRecord
}

// NewServer constructs a Server bound to coord.
func NewServer(coord *core.Coordinator, cfg ServerConfig) *Server {
	s := &Server{
		coord:  coord,
		tokens: newTokenIssuer(cfg.JWTSecret),
		cfg:    cfg,
		owned:  make(map[types.OutputID]types.UnspentOutput),
		txs:    make(map[string]types.Transaction),
		blocks: make(map[uint64]blockRecord),
		walletState: wallet.State{
			Trusted:    make(map[uint64]struct{}),
			Distrusted: make(map[uint64]struct{}),
		},
	}
	r := chi.NewRouter()
	r.Post("/", s.handle)
	s.router = r
	return s
}

// Router returns the http.Handler serving the JSON-RPC endpoint.
func (s *Server) Router() http.Handler {
	return s.router
}

// RegisterOwnedOutput tells the server's wallet bookkeeping that it
// controls the given unspent output (e.g. a genesis allocation, or a
// change output from a previous transfer), making it eligible as a future
// transfer's input.
func (s *Server) RegisterOwnedOutput(o types.UnspentOutput) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.owned[o.ID] = o
}

// SetTrust updates the wallet-local trust policy (§3 Wallet state) driving
// ChooseVoteTarget.
func (s *Server) SetTrust(trusted, distrusted []uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.walletState.Trusted = toSet(trusted)
	s.walletState.Distrusted = toSet(distrusted)
}

func toSet(ids []uint64) map[uint64]struct{} {
	out := make(map[uint64]struct{}, len(ids))
	for _, id := range ids {
		out[id] = struct{}{}
	}
	return out
}

// RecordBlock makes a just-applied block available to getblock. Callers
// invoke this after a successful core.Coordinator.ApplyBlock.
func (s *Server) RecordBlock(block types.Block) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blocks[block.Height] = blockRecord{block: block}
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, nil, codeInvalidRequest, "failed to read request body", err.Error())
		return
	}

	var req Request
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, nil, codeParseError, "invalid JSON payload", err.Error())
		return
	}
	if req.JSONRPC != "" && req.JSONRPC != jsonRPCVersion {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "unsupported jsonrpc version", req.JSONRPC)
		return
	}
	if req.Method == "" {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "method required", nil)
		return
	}

	if req.Method != "login" {
		authed, err := s.authenticate(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, req.ID, codeUnauthorized, err.Error(), nil)
			return
		}
		r = authed
	}

	switch req.Method {
	case "login":
		s.handleLogin(w, req)
	case "transfer":
		s.handleTransfer(w, req)
	case "getbalance":
		s.handleGetBalance(w, req)
	case "get_transaction":
		s.handleGetTransaction(w, req)
	case "getblock":
		s.handleGetBlock(w, req)
	case "validateaddress":
		s.handleValidateAddress(w, req)
	case "import_bitcoin_wallet":
		s.handleImportBitcoinWallet(w, req)
	default:
		writeError(w, http.StatusNotFound, req.ID, codeMethodNotFound, fmt.Sprintf("unknown method %q", req.Method), nil)
	}
}

func writeError(w http.ResponseWriter, status int, id interface{}, code int, message string, data interface{}) {
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	errObj := &Error{Code: code, Message: message}
	if data != nil {
		errObj.Data = data
	}
	_ = json.NewEncoder(w).Encode(Response{JSONRPC: jsonRPCVersion, ID: id, Error: errObj})
}

func writeResult(w http.ResponseWriter, id interface{}, result interface{}) {
	_ = json.NewEncoder(w).Encode(Response{JSONRPC: jsonRPCVersion, ID: id, Result: result})
}

func newOutputID() types.OutputID {
	return types.OutputID(uuid.NewString())
}
