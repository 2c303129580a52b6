package api

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"humanpad/internal/clock"
	"humanpad/internal/curve"
	"humanpad/internal/domain"
	"humanpad/internal/limits"
	"humanpad/internal/observability"
	"humanpad/internal/report"
	"humanpad/internal/reputation"
	"humanpad/internal/risk"
	"humanpad/internal/session"
	"humanpad/internal/storage"
	"humanpad/internal/verification"
)

// xpPerTrade is credited to the activity counters for each executed trade.
const xpPerTrade = 10

const defaultRecentLimit = 50

// Deps bundles everything the HTTP layer fronts.
type Deps struct {
	Classifier *verification.Classifier
	Reputation *reputation.Engine
	Limits     *limits.Calculator
	Sessions   *session.Store
	Risk       *risk.Engine
	Curve      *curve.Engine
	Reporter   *report.Reporter
	Activity   storage.ActivityStore
	Suspicious storage.SuspiciousUserStore
	Events     storage.TradeEventStore
	Feed       *FeedHub
	Clock      clock.Clock
	CurveCfg   domain.CurveConfig
}

// Server is the JSON API over the trading core.
type Server struct {
	httpServer *http.Server
	deps       Deps
	log        *zap.Logger
}

// NewServer creates an API server bound to addr.
func NewServer(addr string, deps Deps, log *zap.Logger) *Server {
	s := &Server{
		deps: deps,
		log:  log,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/verify", s.handleVerify)
	mux.HandleFunc("/api/reputation", s.handleReputation)
	mux.HandleFunc("/api/limits", s.handleLimits)
	mux.HandleFunc("/api/sessions", s.handleSessions)
	mux.HandleFunc("/api/trades/validate", s.handleValidateTrade)
	mux.HandleFunc("/api/trades/simulate", s.handleSimulateTrade)
	mux.HandleFunc("/api/trades", s.handleTrades)
	mux.HandleFunc("/api/tokens", s.handleTokens)
	mux.HandleFunc("/api/curve", s.handleCurve)
	mux.HandleFunc("/api/manipulation", s.handleManipulation)
	mux.HandleFunc("/api/reports", s.handleReports)
	if deps.Feed != nil {
		mux.Handle("/ws/trades", deps.Feed)
	}

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler exposes the mux, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start begins serving HTTP requests.
func (s *Server) Start(_ context.Context) error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	s.log.Info("api server listening", zap.String("addr", s.httpServer.Addr))
	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("api server", zap.Error(err))
		}
	}()
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error("failed to encode response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// GET /api/health — liveness probe.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type verifyRequest struct {
	UserID  string                      `json:"user_id"`
	Signals *domain.VerificationSignals `json:"signals"`
}

// POST /api/verify — classify identity signals into a trust level.
func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req verifyRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.UserID == "" {
		s.writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	level, confidence, err := s.deps.Classifier.Classify(req.Signals)
	if err != nil {
		observability.RecordVerificationFailure()
		s.writeError(w, http.StatusBadRequest, "malformed verification signals")
		return
	}

	observability.RecordVerification(level.String())
	s.writeJSON(w, http.StatusOK, domain.HumanVerification{
		UserID:     req.UserID,
		Level:      level,
		LevelName:  level.String(),
		Confidence: confidence,
		VerifiedAt: s.deps.Clock.Now(),
	})
}

type reputationRequest struct {
	UserID   string                   `json:"user_id"`
	Activity *domain.ActivityCounters `json:"activity"`
}

// POST /api/reputation — score raw counters, or the stored counters
// for user_id when the body carries none.
func (s *Server) handleReputation(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req reputationRequest
	if !s.decode(w, r, &req) {
		return
	}

	var activity domain.ActivityCounters
	switch {
	case req.Activity != nil:
		activity = *req.Activity
	case req.UserID != "":
		stored, err := s.deps.Activity.Get(r.Context(), req.UserID)
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			s.writeError(w, http.StatusInternalServerError, "failed to load activity")
			return
		}
		if stored != nil {
			activity = *stored
		}
	default:
		s.writeError(w, http.StatusBadRequest, "user_id or activity is required")
		return
	}

	score := s.deps.Reputation.Score(activity, s.deps.Clock.Now())
	s.writeJSON(w, http.StatusOK, score)
}

// GET /api/limits?level=orb&tier=diamond — derived trading limits.
func (s *Server) handleLimits(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	level, ok := domain.ParseVerificationLevel(r.URL.Query().Get("level"))
	if !ok {
		s.writeError(w, http.StatusBadRequest, "level must be device, phone or orb")
		return
	}
	tier := domain.ReputationLevel(r.URL.Query().Get("tier"))
	if !tier.IsValid() {
		s.writeError(w, http.StatusBadRequest, "tier must be bronze, silver, gold or diamond")
		return
	}

	s.writeJSON(w, http.StatusOK, s.deps.Limits.Derive(level, tier))
}

type sessionRequest struct {
	UserID            string `json:"user_id"`
	VerificationLevel string `json:"verification_level"`
	ReputationScore   int    `json:"reputation_score"`
}

// POST /api/sessions — start a session, replacing any prior one.
func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req sessionRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.UserID == "" {
		s.writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}
	level, ok := domain.ParseVerificationLevel(req.VerificationLevel)
	if !ok {
		s.writeError(w, http.StatusBadRequest, "verification_level must be device, phone or orb")
		return
	}

	sess, err := s.deps.Sessions.Create(r.Context(), req.UserID, level, req.ReputationScore)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to create session")
		return
	}

	observability.RecordSessionCreated()
	s.updateSessionGauges(r.Context())
	s.writeJSON(w, http.StatusCreated, sess)
}

type tradeRequest struct {
	UserID            string  `json:"user_id"`
	TokenID           string  `json:"token_id"`
	Amount            float64 `json:"amount"`
	VerificationLevel string  `json:"verification_level"`
	ReputationScore   int     `json:"reputation_score"`
}

func (s *Server) parseAttempt(w http.ResponseWriter, r *http.Request) (*domain.TradeAttempt, bool) {
	var req tradeRequest
	if !s.decode(w, r, &req) {
		return nil, false
	}
	if req.UserID == "" {
		s.writeError(w, http.StatusBadRequest, "user_id is required")
		return nil, false
	}
	level, ok := domain.ParseVerificationLevel(req.VerificationLevel)
	if !ok {
		s.writeError(w, http.StatusBadRequest, "verification_level must be device, phone or orb")
		return nil, false
	}

	return &domain.TradeAttempt{
		UserID:            req.UserID,
		TokenID:           req.TokenID,
		Amount:            req.Amount,
		VerificationLevel: level,
		ReputationScore:   req.ReputationScore,
		Timestamp:         s.deps.Clock.Now(),
	}, true
}

// POST /api/trades/validate — dry-run the risk chain.
func (s *Server) handleValidateTrade(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	attempt, ok := s.parseAttempt(w, r)
	if !ok {
		return
	}

	unlock := s.deps.Sessions.LockUser(attempt.UserID)
	verdict := s.deps.Risk.Validate(r.Context(), attempt)
	unlock()

	s.writeJSON(w, http.StatusOK, verdict)
}

// handleTrades executes trades (POST) and reads history (GET).
func (s *Server) handleTrades(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.executeTrade(w, r)
	case http.MethodGet:
		s.tradeHistory(w, r)
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) executeTrade(w http.ResponseWriter, r *http.Request) {
	attempt, ok := s.parseAttempt(w, r)
	if !ok {
		return
	}

	result, err := s.deps.Curve.ProcessTrade(r.Context(), attempt)
	if err != nil {
		switch {
		case errors.Is(err, curve.ErrTokenNotFound):
			s.writeError(w, http.StatusNotFound, "token not found")
		case errors.Is(err, curve.ErrInvalidAmount), errors.Is(err, curve.ErrInvalidPrice):
			s.writeError(w, http.StatusBadRequest, err.Error())
		default:
			s.log.Error("process trade", zap.Error(err))
			s.writeError(w, http.StatusInternalServerError, "failed to process trade")
		}
		return
	}

	if result.Success {
		observability.RecordTradeProcessed(attempt.TokenID, attempt.Amount, result.NewPrice,
			result.RiskScore, attempt.VerificationLevel != domain.LevelDevice)
		if err := s.deps.Activity.RecordTrade(r.Context(), attempt.UserID, xpPerTrade, s.deps.Clock.Now()); err != nil {
			s.log.Error("record trade activity", zap.String("user_id", attempt.UserID), zap.Error(err))
		}
	} else {
		observability.RecordTradeRejected(result.Reason, result.RiskScore)
	}
	s.updateSessionGauges(r.Context())

	s.writeJSON(w, http.StatusOK, result)
}

// GET /api/trades?token_id=...|user_id=...|limit=N — executed-trade history.
func (s *Server) tradeHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	var (
		events []*domain.TradeEvent
		err    error
	)
	switch {
	case q.Get("token_id") != "":
		events, err = s.deps.Events.GetByToken(ctx, q.Get("token_id"))
	case q.Get("user_id") != "":
		events, err = s.deps.Events.GetByUser(ctx, q.Get("user_id"))
	default:
		limit := defaultRecentLimit
		if raw := q.Get("limit"); raw != "" {
			limit, err = strconv.Atoi(raw)
			if err != nil || limit <= 0 {
				s.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
				return
			}
		}
		events, err = s.deps.Events.GetRecent(ctx, limit)
	}
	if err != nil {
		s.log.Error("trade history", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to load trade history")
		return
	}
	if events == nil {
		events = []*domain.TradeEvent{}
	}

	s.writeJSON(w, http.StatusOK, events)
}

type simulateRequest struct {
	TokenID   string  `json:"token_id"`
	TradeType string  `json:"trade_type"`
	Amount    float64 `json:"amount"`
}

// POST /api/trades/simulate — pure price preview, no state change.
func (s *Server) handleSimulateTrade(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req simulateRequest
	if !s.decode(w, r, &req) {
		return
	}

	state, err := s.deps.Curve.State(req.TokenID)
	if err != nil {
		s.writeError(w, http.StatusNotFound, "token not found")
		return
	}

	result, err := curve.Simulate(req.TradeType, req.Amount, state)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, result)
}

type launchRequest struct {
	TokenID string `json:"token_id"`
}

// handleTokens launches tokens (POST) and reads curve state (GET).
func (s *Server) handleTokens(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var req launchRequest
		if !s.decode(w, r, &req) {
			return
		}
		if req.TokenID == "" {
			s.writeError(w, http.StatusBadRequest, "token_id is required")
			return
		}

		state, err := s.deps.Curve.Launch(req.TokenID)
		if err != nil {
			if errors.Is(err, curve.ErrTokenExists) {
				s.writeError(w, http.StatusConflict, "token already launched")
				return
			}
			s.writeError(w, http.StatusInternalServerError, "failed to launch token")
			return
		}

		observability.RecordTokenLaunched(req.TokenID, state.CurrentPrice)
		s.writeJSON(w, http.StatusCreated, state)

	case http.MethodGet:
		state, err := s.deps.Curve.State(r.URL.Query().Get("token_id"))
		if err != nil {
			s.writeError(w, http.StatusNotFound, "token not found")
			return
		}
		s.writeJSON(w, http.StatusOK, state)

	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// GET /api/curve — chart points for the configured curve.
func (s *Server) handleCurve(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.writeJSON(w, http.StatusOK, curve.CurveData(s.deps.CurveCfg))
}

// GET /api/manipulation — human/bot split and flag counts.
func (s *Server) handleManipulation(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	m, err := s.deps.Curve.Metrics(r.Context(), s.deps.Suspicious)
	if err != nil {
		s.log.Error("manipulation metrics", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to compute metrics")
		return
	}

	s.writeJSON(w, http.StatusOK, m)
}

type reportRequest struct {
	ReporterID string `json:"reporter_id"`
	TargetID   string `json:"target_id"`
	Reason     string `json:"reason"`
}

// POST /api/reports — community manipulation report.
func (s *Server) handleReports(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req reportRequest
	if !s.decode(w, r, &req) {
		return
	}

	count, err := s.deps.Reporter.ReportSuspicious(r.Context(), req.ReporterID, req.TargetID, req.Reason)
	if err != nil {
		if errors.Is(err, storage.ErrInvalidInput) {
			s.writeError(w, http.StatusBadRequest, "reporter_id and target_id are required")
			return
		}
		s.log.Error("report suspicious", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to record report")
		return
	}

	observability.RecordCommunityReport()
	s.updateSessionGauges(r.Context())
	s.writeJSON(w, http.StatusOK, map[string]int{"report_count": count})
}

func (s *Server) updateSessionGauges(ctx context.Context) {
	suspicious, err := s.deps.Suspicious.Count(ctx)
	if err != nil {
		return
	}
	observability.UpdateSessionGauges(s.deps.Sessions.Count(), s.deps.Sessions.FlaggedCount(), suspicious)
}
