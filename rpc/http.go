package rpc

import (
	"bytes"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"strings"

	"crp/core/journal"
	"crp/crypto"
	nativecommon "crp/native/common"
	"crp/native/compliance"
	"crp/native/governance"
	"crp/native/membership"
	"crp/native/pool"
	"crp/native/registry"
	"crp/native/rewards"
	"crp/native/shares"
	"crp/native/treasury"
	"crp/observability/metrics"
)

const (
	jsonRPCVersion  = "2.0"
	maxRequestBytes = 1 << 20 // 1 MiB
)

const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeServerError    = -32000
	codeUnauthorized   = -32001
	codeInvalidState   = -32002
	codeInsufficient   = -32003
	codeNotFound       = -32004
	codeModulePaused   = -32005
	codeConflict       = -32009
)

// Server exposes the native engines over JSON-RPC 2.0. Mutating methods are
// guarded by a bearer token configured at construction.
type Server struct {
	membership *membership.Engine
	compliance *compliance.Engine
	treasury   *treasury.Engine
	pools      *pool.Engine
	rewards    *rewards.Engine
	governance *governance.Engine
	registry   *registry.Hub
	shares     *shares.Ledger
	journal    *journal.Journal

	authToken string
	logger    *slog.Logger
	metrics   *metrics.LedgerMetrics
}

// ServerConfig collects the engine handles the server dispatches into.
type ServerConfig struct {
	Membership *membership.Engine
	Compliance *compliance.Engine
	Treasury   *treasury.Engine
	Pools      *pool.Engine
	Rewards    *rewards.Engine
	Governance *governance.Engine
	Registry   *registry.Hub
	Shares     *shares.Ledger
	Journal    *journal.Journal
	AuthToken  string
	Logger     *slog.Logger
}

// NewServer constructs the RPC server.
func NewServer(cfg ServerConfig) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		membership: cfg.Membership,
		compliance: cfg.Compliance,
		treasury:   cfg.Treasury,
		pools:      cfg.Pools,
		rewards:    cfg.Rewards,
		governance: cfg.Governance,
		registry:   cfg.Registry,
		shares:     cfg.Shares,
		journal:    cfg.Journal,
		authToken:  strings.TrimSpace(cfg.AuthToken),
		logger:     logger,
		metrics:    metrics.Ledger(),
	}
}

// Handler returns the HTTP handler serving the RPC endpoint.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handle)
	return mux
}

// Start serves the RPC endpoint on addr until the listener fails.
func (s *Server) Start(addr string) error {
	s.logger.Info("starting JSON-RPC server", "addr", addr)
	return http.ListenAndServe(addr, s.Handler())
}

type RPCRequest struct {
	JSONRPC string            `json:"jsonrpc"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
	ID      int               `json:"id"`
}

type RPCResponse struct {
	JSONRPC string    `json:"jsonrpc"`
	ID      any       `json:"id"`
	Result  any       `json:"result,omitempty"`
	Error   *RPCError `json:"error,omitempty"`
}

type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func writeError(w http.ResponseWriter, status int, id any, code int, message string, data any) {
	if status <= 0 {
		status = http.StatusBadRequest
	}
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	errObj := &RPCError{Code: code, Message: message}
	if data != nil {
		errObj.Data = data
	}
	_ = json.NewEncoder(w).Encode(&RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Error: errObj})
}

func writeResult(w http.ResponseWriter, id any, result any) {
	_ = json.NewEncoder(w).Encode(&RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Result: result})
}

// writeEngineError maps the engine error taxonomy onto RPC error codes.
func (s *Server) writeEngineError(w http.ResponseWriter, id any, err error) {
	code := codeServerError
	status := http.StatusOK
	switch {
	case errors.Is(err, nativecommon.ErrNotAuthorized), errors.Is(err, nativecommon.ErrNotCompliant):
		code = codeUnauthorized
	case errors.Is(err, nativecommon.ErrNotFound):
		code = codeNotFound
	case errors.Is(err, nativecommon.ErrModulePaused):
		code = codeModulePaused
	case errors.Is(err, nativecommon.ErrInsufficientBalance), errors.Is(err, nativecommon.ErrInsufficientShares):
		code = codeInsufficient
	case errors.Is(err, nativecommon.ErrAlreadyClaimed), errors.Is(err, nativecommon.ErrAlreadyVoted),
		errors.Is(err, nativecommon.ErrAlreadyExecuted):
		code = codeConflict
	case errors.Is(err, nativecommon.ErrInvalidState), errors.Is(err, nativecommon.ErrZeroAmount),
		errors.Is(err, nativecommon.ErrNoStakers), errors.Is(err, nativecommon.ErrUnsupportedMechanism):
		code = codeInvalidState
	}
	writeError(w, status, id, code, err.Error(), nil)
}

// handle is the main request handler that routes to specific handlers.
func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	reader := http.MaxBytesReader(w, r.Body, maxRequestBytes)
	defer func() {
		_ = reader.Close()
	}()

	w.Header().Set("Content-Type", "application/json")

	body, err := io.ReadAll(reader)
	if err != nil {
		status := http.StatusBadRequest
		message := "failed to read request body"
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			status = http.StatusRequestEntityTooLarge
			message = fmt.Sprintf("request body exceeds %d bytes", maxRequestBytes)
		}
		writeError(w, status, nil, codeInvalidRequest, message, err.Error())
		return
	}
	if len(bytes.TrimSpace(body)) == 0 {
		writeError(w, http.StatusBadRequest, nil, codeInvalidRequest, "request body required", nil)
		return
	}

	req := &RPCRequest{}
	if err := json.Unmarshal(body, req); err != nil {
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

	handler, ok := s.route(req.Method)
	if !ok {
		s.metrics.ObserveRPCRequest(req.Method, "not_found")
		writeError(w, http.StatusNotFound, req.ID, codeMethodNotFound, fmt.Sprintf("method %q not found", req.Method), nil)
		return
	}
	if handler.mutating {
		if authErr := s.requireAuth(r); authErr != nil {
			s.metrics.ObserveRPCRequest(req.Method, "unauthorized")
			writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
			return
		}
	}
	s.metrics.ObserveRPCRequest(req.Method, "ok")
	handler.fn(w, r, req)
}

type route struct {
	fn       func(http.ResponseWriter, *http.Request, *RPCRequest)
	mutating bool
}

func (s *Server) route(method string) (route, bool) {
	routes := map[string]route{
		"membership_register":       {s.handleMembershipRegister, true},
		"membership_preRegister":    {s.handleMembershipPreRegister, true},
		"membership_accept":         {s.handleMembershipAccept, true},
		"membership_update":         {s.handleMembershipUpdate, true},
		"membership_revoke":         {s.handleMembershipRevoke, true},
		"membership_role":           {s.handleMembershipRole, false},
		"compliance_setWhitelisted": {s.handleComplianceSetWhitelisted, true},
		"compliance_isWhitelisted":  {s.handleComplianceIsWhitelisted, false},
		"treasury_deposit":          {s.handleTreasuryDeposit, true},
		"treasury_withdraw":         {s.handleTreasuryWithdraw, true},
		"treasury_balance":          {s.handleTreasuryBalance, false},
		"pool_create":               {s.handlePoolCreate, true},
		"pool_join":                 {s.handlePoolJoin, true},
		"pool_finalizeFunding":      {s.handlePoolFinalizeFunding, true},
		"pool_repay":                {s.handlePoolRepay, true},
		"pool_claim":                {s.handlePoolClaim, true},
		"pool_bulkClaim":            {s.handlePoolBulkClaim, true},
		"pool_markDefaulted":        {s.handlePoolMarkDefaulted, true},
		"pool_get":                  {s.handlePoolGet, false},
		"pool_portfolio":            {s.handlePoolPortfolio, false},
		"pool_loans":                {s.handlePoolLoans, false},
		"rewards_createPool":        {s.handleRewardsCreatePool, true},
		"rewards_stake":             {s.handleRewardsStake, true},
		"rewards_unstake":           {s.handleRewardsUnstake, true},
		"rewards_distribute":        {s.handleRewardsDistribute, true},
		"rewards_claim":             {s.handleRewardsClaim, true},
		"rewards_bulkStake":         {s.handleRewardsBulkStake, true},
		"rewards_bulkUnstake":       {s.handleRewardsBulkUnstake, true},
		"rewards_pending":           {s.handleRewardsPending, false},
		"rewards_staked":            {s.handleRewardsStaked, false},
		"shares_get":                {s.handleSharesGet, false},
		"shares_total":              {s.handleSharesTotal, false},
		"gov_propose":               {s.handleGovPropose, true},
		"gov_activate":              {s.handleGovActivate, true},
		"gov_vote":                  {s.handleGovVote, true},
		"gov_finalize":              {s.handleGovFinalize, true},
		"gov_execute":               {s.handleGovExecute, true},
		"gov_proposal":              {s.handleGovProposal, false},
		"gov_votingPower":           {s.handleGovVotingPower, false},
		"registry_register":         {s.handleRegistryRegister, true},
		"registry_remove":           {s.handleRegistryRemove, true},
		"registry_resolve":          {s.handleRegistryResolve, false},
		"registry_list":             {s.handleRegistryList, false},
		"journal_tail":              {s.handleJournalTail, false},
		"journal_range":             {s.handleJournalRange, false},
	}
	r, ok := routes[method]
	return r, ok
}

func (s *Server) requireAuth(r *http.Request) *RPCError {
	if s.authToken == "" {
		return &RPCError{Code: codeUnauthorized, Message: "RPC authentication token not configured"}
	}
	header := r.Header.Get("Authorization")
	if header == "" {
		return &RPCError{Code: codeUnauthorized, Message: "missing Authorization header"}
	}
	if !strings.HasPrefix(header, "Bearer ") {
		return &RPCError{Code: codeUnauthorized, Message: "Authorization header must use Bearer scheme"}
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if token == "" {
		return &RPCError{Code: codeUnauthorized, Message: "missing bearer token"}
	}
	if subtle.ConstantTimeCompare([]byte(token), []byte(s.authToken)) != 1 {
		return &RPCError{Code: codeUnauthorized, Message: "invalid RPC credentials"}
	}
	return nil
}

// decodeParams unmarshals the single positional object parameter.
func decodeParams(req *RPCRequest, out any) *RPCError {
	if len(req.Params) != 1 {
		return &RPCError{Code: codeInvalidParams, Message: "expected exactly one parameter object"}
	}
	if err := json.Unmarshal(req.Params[0], out); err != nil {
		return &RPCError{Code: codeInvalidParams, Message: "invalid parameter", Data: err.Error()}
	}
	return nil
}

func parseAddress(raw string) ([20]byte, *RPCError) {
	var out [20]byte
	decoded, err := crypto.DecodeAddress(strings.TrimSpace(raw))
	if err != nil {
		return out, &RPCError{Code: codeInvalidParams, Message: fmt.Sprintf("invalid address %q", raw), Data: err.Error()}
	}
	copy(out[:], decoded.Bytes())
	return out, nil
}

func parseAmount(raw string) (*big.Int, *RPCError) {
	amount, ok := new(big.Int).SetString(strings.TrimSpace(raw), 10)
	if !ok {
		return nil, &RPCError{Code: codeInvalidParams, Message: fmt.Sprintf("invalid amount %q", raw)}
	}
	return amount, nil
}

// decode unmarshals the parameter object, reporting failures to the client.
func (s *Server) decode(w http.ResponseWriter, req *RPCRequest, out any) bool {
	if rpcErr := decodeParams(req, out); rpcErr != nil {
		writeError(w, http.StatusBadRequest, req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
		return false
	}
	return true
}

func (s *Server) addrParam(w http.ResponseWriter, id any, raw string) ([20]byte, bool) {
	addr, rpcErr := parseAddress(raw)
	if rpcErr != nil {
		writeError(w, http.StatusBadRequest, id, rpcErr.Code, rpcErr.Message, rpcErr.Data)
		return [20]byte{}, false
	}
	return addr, true
}

func (s *Server) amountParam(w http.ResponseWriter, id any, raw string) (*big.Int, bool) {
	amount, rpcErr := parseAmount(raw)
	if rpcErr != nil {
		writeError(w, http.StatusBadRequest, id, rpcErr.Code, rpcErr.Message, rpcErr.Data)
		return nil, false
	}
	return amount, true
}

func encodeAddress(addr [20]byte) string {
	return crypto.NewAddress(crypto.CRPPrefix, addr[:]).String()
}
