package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"math/big"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"gorm.io/gorm"
)

const (
	headerIdempotencyKey = "Idempotency-Key"
	maxRequestBody       = 1 << 20 // 1 MiB
	fullReinvestBps      = 10_000
)

// Server is the HTTP front-end for reinvestment mandates.
type Server struct {
	auth   *Authenticator
	node   NodeClient
	store  *Store
	logger *slog.Logger
}

// NewServer wires the gateway's HTTP surface.
func NewServer(auth *Authenticator, node NodeClient, store *Store, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{auth: auth, node: node, store: store, logger: logger}
}

// Handler builds the routed, traced handler tree.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(s.auth.Middleware)
		r.Post("/mandates", s.handleCreateMandate)
		r.Get("/mandates", s.handleListMandates)
		r.Get("/mandates/{id}", s.handleGetMandate)
		r.Delete("/mandates/{id}", s.handleDeleteMandate)
		r.Post("/mandates/{id}/execute", s.handleExecuteMandate)
	})

	return otelhttp.NewHandler(r, "reinvest-gateway")
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

type createMandateRequest struct {
	SourcePool uint64 `json:"sourcePool"`
	TargetPool uint64 `json:"targetPool"`
	PercentBps uint64 `json:"percentBps"`
}

func (s *Server) handleCreateMandate(w http.ResponseWriter, r *http.Request) {
	subject := subjectFrom(r.Context())

	if key := strings.TrimSpace(r.Header.Get(headerIdempotencyKey)); key != "" {
		if record, ok, err := s.store.LookupIdempotent(key); err == nil && ok {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(record.Status)
			_, _ = w.Write(record.Response)
			return
		}
	}

	var req createMandateRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.PercentBps == 0 || req.PercentBps > fullReinvestBps {
		writeJSONError(w, http.StatusBadRequest, "percentBps must be in (0, 10000]")
		return
	}
	if req.SourcePool == req.TargetPool {
		writeJSONError(w, http.StatusBadRequest, "source and target pool must differ")
		return
	}

	mandate := &Mandate{
		Investor:   subject,
		SourcePool: req.SourcePool,
		TargetPool: req.TargetPool,
		PercentBps: req.PercentBps,
		Active:     true,
	}
	if err := s.store.CreateMandate(mandate); err != nil {
		s.logger.Error("create mandate", "err", err)
		writeJSONError(w, http.StatusInternalServerError, "failed to persist mandate")
		return
	}
	s.auditAndRemember(r, subject, http.StatusCreated, mandate)
	writeJSON(w, http.StatusCreated, mandate)
}

func (s *Server) handleListMandates(w http.ResponseWriter, r *http.Request) {
	subject := subjectFrom(r.Context())
	mandates, err := s.store.MandatesByInvestor(subject)
	if err != nil {
		s.logger.Error("list mandates", "err", err)
		writeJSONError(w, http.StatusInternalServerError, "failed to list mandates")
		return
	}
	writeJSON(w, http.StatusOK, mandates)
}

// loadOwnMandate resolves the path id and enforces that the caller owns it.
func (s *Server) loadOwnMandate(w http.ResponseWriter, r *http.Request) (*Mandate, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid mandate id")
		return nil, false
	}
	mandate, err := s.store.GetMandate(id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		writeJSONError(w, http.StatusNotFound, "mandate not found")
		return nil, false
	}
	if err != nil {
		s.logger.Error("load mandate", "err", err)
		writeJSONError(w, http.StatusInternalServerError, "failed to load mandate")
		return nil, false
	}
	if mandate.Investor != subjectFrom(r.Context()) {
		writeJSONError(w, http.StatusForbidden, "mandate belongs to another investor")
		return nil, false
	}
	return mandate, true
}

func (s *Server) handleGetMandate(w http.ResponseWriter, r *http.Request) {
	mandate, ok := s.loadOwnMandate(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, mandate)
}

func (s *Server) handleDeleteMandate(w http.ResponseWriter, r *http.Request) {
	mandate, ok := s.loadOwnMandate(w, r)
	if !ok {
		return
	}
	if err := s.store.DeactivateMandate(mandate.ID); err != nil {
		s.logger.Error("deactivate mandate", "err", err)
		writeJSONError(w, http.StatusInternalServerError, "failed to deactivate mandate")
		return
	}
	s.auditAndRemember(r, mandate.Investor, http.StatusOK, nil)
	writeJSON(w, http.StatusOK, map[string]string{"status": "deactivated"})
}

type executeResult struct {
	Claimed    string `json:"claimed"`
	Reinvested string `json:"reinvested"`
	TargetPool uint64 `json:"targetPool"`
}

// handleExecuteMandate claims the pending repayment from the source pool and
// reinvests the mandated share into the target pool. The remainder stays on
// the investor's ledger balance.
func (s *Server) handleExecuteMandate(w http.ResponseWriter, r *http.Request) {
	mandate, ok := s.loadOwnMandate(w, r)
	if !ok {
		return
	}
	if !mandate.Active {
		writeJSONError(w, http.StatusConflict, "mandate is inactive")
		return
	}

	claimed, err := s.node.ClaimRepayment(r.Context(), mandate.Investor, mandate.SourcePool)
	if err != nil {
		s.logger.Error("claim repayment", "mandate", mandate.ID, "err", err)
		writeJSONError(w, http.StatusBadGateway, err.Error())
		return
	}
	claimedAmount, okAmount := new(big.Int).SetString(claimed, 10)
	if !okAmount {
		writeJSONError(w, http.StatusBadGateway, "node returned malformed claim amount")
		return
	}

	reinvest := new(big.Int).Mul(claimedAmount, new(big.Int).SetUint64(mandate.PercentBps))
	reinvest.Quo(reinvest, big.NewInt(fullReinvestBps))
	if reinvest.Sign() > 0 {
		if err := s.node.JoinPool(r.Context(), mandate.Investor, mandate.TargetPool, reinvest.String()); err != nil {
			s.logger.Error("reinvest join", "mandate", mandate.ID, "err", err)
			writeJSONError(w, http.StatusBadGateway, err.Error())
			return
		}
	}

	s.auditAndRemember(r, mandate.Investor, http.StatusOK, nil)
	writeJSON(w, http.StatusOK, executeResult{
		Claimed:    claimedAmount.String(),
		Reinvested: reinvest.String(),
		TargetPool: mandate.TargetPool,
	})
}

// auditAndRemember records the audit row and, when the request carried an
// idempotency key, stores the response body for replay.
func (s *Server) auditAndRemember(r *http.Request, subject string, status int, body any) {
	if err := s.store.Audit(subject, r.Method, r.URL.Path, status); err != nil {
		s.logger.Warn("audit append failed", "err", err)
	}
	key := strings.TrimSpace(r.Header.Get(headerIdempotencyKey))
	if key == "" || body == nil {
		return
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return
	}
	if err := s.store.SaveIdempotent(&IdempotencyRecord{
		Key:      key,
		Subject:  subject,
		Status:   status,
		Response: buf.Bytes(),
	}); err != nil {
		s.logger.Warn("idempotency save failed", "err", err)
	}
}
