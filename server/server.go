// Package server exposes the gateway's HTTP API: chain-state reads,
// guarded contract invocations, invocation history, settings, and the
// notification stream.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"fundflow/core"
	"fundflow/invoker"
	"fundflow/ledger"
	"fundflow/notify"
	"fundflow/wallet"
)

const maxRequestBody = 1 << 20 // 1 MiB

// StateView provides the current chain snapshot and accepts refresh
// requests.
type StateView interface {
	Snapshot() core.Snapshot
	Trigger()
}

// InvocationRunner is the slice of the invoker the API drives.
type InvocationRunner interface {
	Invoke(ctx context.Context, call invoker.Invocation) (ledger.Record, error)
	HasWallet() bool
	WalletAddress() string
}

// ContractAdmin reads and rewrites the configured contract identity.
type ContractAdmin interface {
	ContractID() string
	SetContractID(id string) error
}

// History reads the invocation ledger.
type History interface {
	All() []ledger.Record
	ByStatus(status ledger.Status) []ledger.Record
}

// Server is the HTTP front-end for the gateway.
type Server struct {
	state     StateView
	runner    InvocationRunner
	history   History
	contracts ContractAdmin
	hub       *notify.Hub
	balances  wallet.AccountReader

	minDonationBalance int64
	logger             *slog.Logger
	gatherer           prometheus.Gatherer
}

// Option customises server construction.
type Option func(*Server)

// WithMinDonationBalance sets the pre-flight balance floor for donations.
func WithMinDonationBalance(min int64) Option {
	return func(s *Server) { s.minDonationBalance = min }
}

// WithLogger supplies a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithGatherer sets the metrics registry exposed at /metrics.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) {
		if g != nil {
			s.gatherer = g
		}
	}
}

// New constructs the server around its collaborators.
func New(state StateView, runner InvocationRunner, history History, contracts ContractAdmin, hub *notify.Hub, balances wallet.AccountReader, opts ...Option) *Server {
	s := &Server{
		state:     state,
		runner:    runner,
		history:   history,
		contracts: contracts,
		hub:       hub,
		balances:  balances,
		logger:    slog.Default(),
		gatherer:  prometheus.DefaultGatherer,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler builds the routed, instrumented HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	r.Route("/v1", func(r chi.Router) {
		r.Get("/campaigns", s.handleListCampaigns)
		r.Post("/campaigns", s.handleCreateCampaign)
		r.Get("/campaigns/{id}", s.handleGetCampaign)
		r.Post("/campaigns/{id}/donations", s.handleDonate)
		r.Post("/campaigns/{id}/close", s.handleClose)
		r.Get("/events", s.handleEvents)
		r.Get("/stats", s.handleStats)
		r.Get("/transactions", s.handleTransactions)
		r.Get("/settings/contract", s.handleGetContract)
		r.Put("/settings/contract", s.handlePutContract)
		r.Get("/notifications", s.handleNotifications)
		r.Delete("/notifications/{id}", s.handleDismissNotification)
		r.Get("/notifications/ws", s.handleNotificationStream)
	})

	return otelhttp.NewHandler(r, "fundflow.http")
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListCampaigns(w http.ResponseWriter, r *http.Request) {
	snap := s.state.Snapshot()
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"campaigns": emptyIfNil(snap.Campaigns),
		"seeded":    snap.Seeded,
	})
}

func (s *Server) handleGetCampaign(w http.ResponseWriter, r *http.Request) {
	id, err := campaignID(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	for _, campaign := range s.state.Snapshot().Campaigns {
		if campaign.ID == id {
			s.writeJSON(w, http.StatusOK, campaign)
			return
		}
	}
	s.writeError(w, http.StatusNotFound, fmt.Errorf("campaign %d not found", id))
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	snap := s.state.Snapshot()
	type eventView struct {
		Kind   string            `json:"kind"`
		Topic  []json.RawMessage `json:"topic"`
		Value  []json.RawMessage `json:"value"`
		Ledger uint64            `json:"ledger"`
	}
	views := make([]eventView, 0, len(snap.Events))
	for _, event := range snap.Events {
		views = append(views, eventView{
			Kind:   event.Kind(),
			Topic:  event.Topic,
			Value:  event.Value,
			Ledger: event.Ledger,
		})
	}
	// Newest ledger first for display.
	sort.SliceStable(views, func(i, j int) bool { return views[i].Ledger > views[j].Ledger })
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"events": views,
		"seeded": snap.Seeded,
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.state.Snapshot().Stats)
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	status := strings.TrimSpace(r.URL.Query().Get("status"))
	var records []ledger.Record
	switch ledger.Status(status) {
	case "":
		records = s.history.All()
	case ledger.StatusPending, ledger.StatusSuccess, ledger.StatusFailed:
		records = s.history.ByStatus(ledger.Status(status))
	default:
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("unknown status %q", status))
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"transactions": emptyIfNilRecords(records)})
}

func (s *Server) handleGetContract(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"contractId": s.contracts.ContractID()})
}

func (s *Server) handlePutContract(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ContractID string `json:"contractId"`
	}
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.contracts.SetContractID(req.ContractID); err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	// A contract change invalidates the current view immediately.
	s.state.Trigger()
	s.writeJSON(w, http.StatusOK, map[string]string{"contractId": s.contracts.ContractID()})
}

func (s *Server) handleCreateCampaign(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		Goal        int64  `json:"goal"`
	}
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		s.writeError(w, http.StatusBadRequest, errors.New("title required"))
		return
	}
	if req.Goal <= 0 {
		s.writeError(w, http.StatusBadRequest, errors.New("goal must be positive"))
		return
	}
	if ok := s.preflightBalance(w, r, "Campaign creation failed", req.Goal); !ok {
		return
	}
	rec, err := s.runner.Invoke(r.Context(), invoker.Invocation{
		Method: "create_campaign",
		Label:  "Create campaign: " + req.Title,
		Args:   []interface{}{req.Title, req.Description, req.Goal},
	})
	if err != nil {
		s.writeInvokeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, rec)
}

func (s *Server) handleDonate(w http.ResponseWriter, r *http.Request) {
	id, err := campaignID(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	var req struct {
		Amount int64 `json:"amount"`
	}
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Amount <= 0 {
		s.writeError(w, http.StatusBadRequest, errors.New("amount must be positive"))
		return
	}
	if ok := s.preflightBalance(w, r, "Donation failed", req.Amount); !ok {
		return
	}
	rec, err := s.runner.Invoke(r.Context(), invoker.Invocation{
		Method: "donate",
		Label:  fmt.Sprintf("Donate %d XLM", req.Amount),
		Args:   []interface{}{id, req.Amount},
	})
	if err != nil {
		s.writeInvokeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, rec)
}

// preflightBalance rejects a write before any record exists when the wallet
// cannot cover the requested amount plus a one-unit fee margin. Skipped when
// no wallet is installed so the invoker can report the precondition. Returns
// false after writing the response.
func (s *Server) preflightBalance(w http.ResponseWriter, r *http.Request, title string, amount int64) bool {
	if !s.runner.HasWallet() {
		return true
	}
	need := amount + 1
	if s.minDonationBalance > need {
		need = s.minDonationBalance
	}
	if _, err := wallet.CheckBalance(r.Context(), s.balances, s.runner.WalletAddress(), need); err != nil {
		if errors.Is(err, wallet.ErrInsufficientBalance) {
			s.hub.Publish(notify.KindError, title, err.Error())
			s.writeError(w, http.StatusPaymentRequired, err)
			return false
		}
		s.writeError(w, http.StatusBadGateway, err)
		return false
	}
	return true
}

func (s *Server) handleClose(w http.ResponseWriter, r *http.Request) {
	id, err := campaignID(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	rec, err := s.runner.Invoke(r.Context(), invoker.Invocation{
		Method: "close_campaign",
		Label:  fmt.Sprintf("Close campaign %d", id),
		Args:   []interface{}{id},
	})
	if err != nil {
		s.writeInvokeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"notifications": s.hub.Active()})
}

func (s *Server) handleDismissNotification(w http.ResponseWriter, r *http.Request) {
	s.hub.Dismiss(chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}

// writeInvokeError maps invocation outcomes onto HTTP statuses: missing
// preconditions are client errors, everything past the precondition gate
// is an upstream failure.
func (s *Server) writeInvokeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, invoker.ErrNoWallet), errors.Is(err, invoker.ErrNoContract):
		s.writeError(w, http.StatusPreconditionFailed, err)
	default:
		s.writeError(w, http.StatusBadGateway, err)
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("encode response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}

func campaignID(r *http.Request) (uint32, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid campaign id %q", raw)
	}
	return uint32(id), nil
}

func decodeBody(r *http.Request, out interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("invalid JSON payload: %w", err)
	}
	return nil
}

func emptyIfNil(campaigns []core.Campaign) []core.Campaign {
	if campaigns == nil {
		return []core.Campaign{}
	}
	return campaigns
}

func emptyIfNilRecords(records []ledger.Record) []ledger.Record {
	if records == nil {
		return []ledger.Record{}
	}
	return records
}
