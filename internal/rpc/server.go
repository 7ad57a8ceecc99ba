// Package rpc provides a JSON-RPC 2.0 server for the walletcore daemon.
package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/openenu/walletcore/internal/chainapi"
	"github.com/openenu/walletcore/internal/config"
	"github.com/openenu/walletcore/internal/confirm"
	"github.com/openenu/walletcore/internal/directory"
	"github.com/openenu/walletcore/internal/registry"
	"github.com/openenu/walletcore/internal/storage"
	"github.com/openenu/walletcore/internal/vault"
	"github.com/openenu/walletcore/pkg/logging"
)

// Server is a JSON-RPC 2.0 server fronting the wallet state core.
type Server struct {
	cfg   *config.Config
	store *storage.Storage
	dir   *directory.Directory
	vault *vault.Vault
	forms *formSessions
	log   *logging.Logger
	wsHub *WSHub

	// formClock drives form dwell and debounce timers; nil means the
	// system clock.
	formClock confirm.Clock

	// reg is the current registry value; every mutation swaps in a new one
	// and persists it.
	regMu sync.RWMutex
	reg   registry.Registry

	server   *http.Server
	listener net.Listener

	handlers map[string]Handler
	mu       sync.RWMutex
}

// Handler is a JSON-RPC method handler.
type Handler func(ctx context.Context, params json.RawMessage) (interface{}, error)

// Request represents a JSON-RPC 2.0 request.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
	ID      interface{}     `json:"id,omitempty"`
}

// Response represents a JSON-RPC 2.0 response.
type Response struct {
	JSONRPC string      `json:"jsonrpc"`
	Result  interface{} `json:"result,omitempty"`
	Error   *Error      `json:"error,omitempty"`
	ID      interface{} `json:"id"`
}

// Error represents a JSON-RPC 2.0 error.
type Error struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Standard error codes.
const (
	ParseError     = -32700
	InvalidRequest = -32600
	MethodNotFound = -32601
	InvalidParams  = -32602
	InternalError  = -32603
)

// NewServer creates a new JSON-RPC server.
func NewServer(cfg *config.Config, store *storage.Storage, reg registry.Registry, dir *directory.Directory, v *vault.Vault) *Server {
	s := &Server{
		cfg:      cfg,
		store:    store,
		reg:      reg,
		dir:      dir,
		vault:    v,
		forms:    newFormSessions(),
		log:      logging.GetDefault().Component("rpc"),
		handlers: make(map[string]Handler),
	}

	s.registerHandlers()

	return s
}

// registerHandlers registers all JSON-RPC method handlers.
func (s *Server) registerHandlers() {
	// Chain registry methods
	s.handlers["chains_list"] = s.chainsList
	s.handlers["chains_get"] = s.chainsGet
	s.handlers["chains_ensure"] = s.chainsEnsure
	s.handlers["chains_update"] = s.chainsUpdate
	s.handlers["chains_reset"] = s.chainsReset
	s.handlers["chains_recordValidatedNode"] = s.chainsRecordValidatedNode

	// Wallet directory methods
	s.handlers["wallets_list"] = s.walletsList
	s.handlers["wallets_add"] = s.walletsAdd
	s.handlers["wallets_remove"] = s.walletsRemove
	s.handlers["wallets_use"] = s.walletsUse
	s.handlers["wallets_clearActive"] = s.walletsClearActive
	s.handlers["wallets_active"] = s.walletsActive

	// Key methods
	s.handlers["keys_generate"] = s.keysGenerate
	s.handlers["keys_validate"] = s.keysValidate

	// Vault methods
	s.handlers["vault_status"] = s.vaultStatus
	s.handlers["vault_create"] = s.vaultCreate
	s.handlers["vault_unlock"] = s.vaultUnlock
	s.handlers["vault_lock"] = s.vaultLock

	// Form session methods
	s.handlers["balances_set"] = s.balancesSet
	s.handlers["bid_create"] = s.bidCreate
	s.handlers["bid_setField"] = s.bidSetField
	s.handlers["bid_status"] = s.bidStatus
	s.handlers["bid_submit"] = s.bidSubmit
	s.handlers["bid_confirm"] = s.bidConfirm
	s.handlers["bid_cancel"] = s.bidCancel
	s.handlers["bid_close"] = s.bidClose
	s.handlers["bid_applyAvailability"] = s.bidApplyAvailability
	s.handlers["bid_applySnapshot"] = s.bidApplySnapshot
	s.handlers["transfer_create"] = s.transferCreate
	s.handlers["transfer_setField"] = s.transferSetField
	s.handlers["transfer_status"] = s.transferStatus
	s.handlers["transfer_submit"] = s.transferSubmit
	s.handlers["transfer_confirm"] = s.transferConfirm
	s.handlers["transfer_cancel"] = s.transferCancel
	s.handlers["transfer_close"] = s.transferClose
	s.handlers["transfer_applyContractCode"] = s.transferApplyContractCode
}

// Registry returns the current registry value.
func (s *Server) Registry() registry.Registry {
	s.regMu.RLock()
	defer s.regMu.RUnlock()
	return s.reg
}

// swapRegistry installs a new registry value, persists it and notifies
// websocket subscribers.
func (s *Server) swapRegistry(next registry.Registry) error {
	s.regMu.Lock()
	s.reg = next
	s.regMu.Unlock()

	if err := s.store.SaveChains(next.List()); err != nil {
		return fmt.Errorf("failed to persist chains: %w", err)
	}
	if s.wsHub != nil {
		s.wsHub.Broadcast(EventChainsUpdated, next.List())
	}
	return nil
}

// persistWallets saves the directory snapshot and notifies subscribers.
func (s *Server) persistWallets() error {
	if err := s.store.SaveWallets(s.dir.List(), s.dir.Active()); err != nil {
		return fmt.Errorf("failed to persist wallets: %w", err)
	}
	if s.wsHub != nil {
		s.wsHub.Broadcast(EventWalletsUpdated, s.dir.List())
	}
	return nil
}

// BroadcastBidSnapshot pushes a live auction snapshot to subscribed clients.
func (s *Server) BroadcastBidSnapshot(snap chainapi.BidSnapshot) {
	s.pushEvent(EventBidSnapshot, snap)
}

// pushEvent broadcasts to the websocket hub when one is attached.
func (s *Server) pushEvent(t EventType, data interface{}) {
	if s.wsHub != nil {
		s.wsHub.Broadcast(t, data)
	}
}

// Start starts the RPC server.
func (s *Server) Start(addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	s.listener = listener

	// Initialize WebSocket hub
	s.wsHub = NewWSHub()
	go s.wsHub.Run()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /", s.handleRPC)
	mux.HandleFunc("POST /{$}", s.handleRPC)
	mux.HandleFunc("OPTIONS /", s.handleCORS)
	mux.HandleFunc("OPTIONS /{$}", s.handleCORS)
	mux.HandleFunc("GET /ws", s.handleWS)
	mux.HandleFunc("GET /ws/", s.handleWS)

	s.server = &http.Server{
		Handler:      corsMiddleware(mux),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		if err := s.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.log.Error("RPC server error", "error", err)
		}
	}()

	s.log.Info("RPC server started", "addr", addr, "ws", "ws://"+addr+"/ws")
	return nil
}

// Stop stops the RPC server.
func (s *Server) Stop() error {
	if s.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.server.Shutdown(ctx)
	}
	return nil
}

// handleRPC handles incoming JSON-RPC requests.
func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, nil, ParseError, "Parse error", nil)
		return
	}

	if req.JSONRPC != "2.0" {
		s.writeError(w, req.ID, InvalidRequest, "Invalid Request", nil)
		return
	}

	s.mu.RLock()
	handler, ok := s.handlers[req.Method]
	s.mu.RUnlock()

	if !ok {
		s.writeError(w, req.ID, MethodNotFound, "Method not found", req.Method)
		return
	}

	result, err := handler(r.Context(), req.Params)
	if err != nil {
		s.writeError(w, req.ID, InternalError, err.Error(), nil)
		return
	}

	s.writeResult(w, req.ID, result)
}

// writeResult writes a successful response.
func (s *Server) writeResult(w http.ResponseWriter, id interface{}, result interface{}) {
	resp := Response{
		JSONRPC: "2.0",
		Result:  result,
		ID:      id,
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// writeError writes an error response.
func (s *Server) writeError(w http.ResponseWriter, id interface{}, code int, message string, data interface{}) {
	resp := Response{
		JSONRPC: "2.0",
		Error: &Error{
			Code:    code,
			Message: message,
			Data:    data,
		},
		ID: id,
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// WSHub returns the WebSocket hub.
func (s *Server) WSHub() *WSHub {
	return s.wsHub
}

// handleCORS handles CORS preflight requests.
func (s *Server) handleCORS(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

// corsMiddleware adds CORS headers to all responses.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Allow requests from any origin (for Electron apps and web clients)
		origin := r.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Allow-Credentials", "true")
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
