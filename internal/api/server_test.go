package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"humanpad/internal/clock"
	"humanpad/internal/curve"
	"humanpad/internal/domain"
	"humanpad/internal/limits"
	"humanpad/internal/report"
	"humanpad/internal/reputation"
	"humanpad/internal/risk"
	"humanpad/internal/session"
	"humanpad/internal/storage/memory"
	"humanpad/internal/verification"
)

type apiFixture struct {
	server     *Server
	clk        *clock.Mock
	activity   *memory.ActivityStore
	suspicious *memory.SuspiciousUserStore
}

func newTestServer(t *testing.T) *apiFixture {
	t.Helper()

	log := zap.NewNop()
	clk := clock.NewMock(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))

	activity := memory.NewActivityStore()
	suspicious := memory.NewSuspiciousUserStore()
	events := memory.NewTradeEventStore()

	sessions := session.NewStore(clk, suspicious, log)
	calc := limits.NewCalculator()
	riskEngine := risk.NewEngine(sessions, calc, clk, domain.LevelDevice, log)

	cfg := domain.CurveConfig{BasePrice: 0.1, PriceIncrement: 0.01, MaxPrice: 10.0}
	engine := curve.NewEngine(cfg, riskEngine, sessions, events, clk, log)

	srv := NewServer(":0", Deps{
		Classifier: verification.NewClassifier(),
		Reputation: reputation.NewEngine(),
		Limits:     calc,
		Sessions:   sessions,
		Risk:       riskEngine,
		Curve:      engine,
		Reporter:   report.NewReporter(activity, suspicious, sessions, log),
		Activity:   activity,
		Suspicious: suspicious,
		Events:     events,
		Clock:      clk,
		CurveCfg:   cfg,
	}, log)

	return &apiFixture{
		server:     srv,
		clk:        clk,
		activity:   activity,
		suspicious: suspicious,
	}
}

func (f *apiFixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode request: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

// startTradingSession creates an orb/diamond session and moves the clock
// past the cooldown so the first trade is not throttled.
func (f *apiFixture) startTradingSession(t *testing.T, userID string) {
	t.Helper()

	rec := f.do(t, http.MethodPost, "/api/sessions", sessionRequest{
		UserID:            userID,
		VerificationLevel: "orb",
		ReputationScore:   900,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create session: status %d", rec.Code)
	}
	f.clk.Advance(2 * time.Hour)
}

func TestHandleHealth(t *testing.T) {
	f := newTestServer(t)

	rec := f.do(t, http.MethodGet, "/api/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestHandleVerify(t *testing.T) {
	f := newTestServer(t)

	rec := f.do(t, http.MethodPost, "/api/verify", verifyRequest{
		UserID: "user1",
		Signals: &domain.VerificationSignals{
			OrbVerified:       true,
			DeviceFingerprint: "fp-1",
		},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	v := decodeBody[domain.HumanVerification](t, rec)
	if v.Level != domain.LevelOrb {
		t.Errorf("expected orb level, got %v", v.Level)
	}
	if v.LevelName != "orb" {
		t.Errorf("expected level_name orb, got %q", v.LevelName)
	}
	if v.Confidence != 100 {
		t.Errorf("expected confidence 100, got %d", v.Confidence)
	}
	if !v.VerifiedAt.Equal(f.clk.Now()) {
		t.Errorf("expected verified_at %v, got %v", f.clk.Now(), v.VerifiedAt)
	}
}

func TestHandleVerify_MissingSignals(t *testing.T) {
	f := newTestServer(t)

	rec := f.do(t, http.MethodPost, "/api/verify", verifyRequest{UserID: "user1"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestHandleReputation_FromCounters(t *testing.T) {
	f := newTestServer(t)

	rec := f.do(t, http.MethodPost, "/api/reputation", reputationRequest{
		Activity: &domain.ActivityCounters{},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	score := decodeBody[domain.ReputationScore](t, rec)
	if score.Level != domain.ReputationBronze {
		t.Errorf("expected bronze for empty counters, got %q", score.Level)
	}
}

func TestHandleReputation_FromStore(t *testing.T) {
	f := newTestServer(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := f.activity.RecordTrade(ctx, "user1", 10, f.clk.Now()); err != nil {
			t.Fatalf("record trade: %v", err)
		}
	}

	rec := f.do(t, http.MethodPost, "/api/reputation", reputationRequest{UserID: "user1"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	score := decodeBody[domain.ReputationScore](t, rec)
	if score.Score <= 0 {
		t.Errorf("expected positive score for active user, got %d", score.Score)
	}
}

func TestHandleReputation_NoInput(t *testing.T) {
	f := newTestServer(t)

	rec := f.do(t, http.MethodPost, "/api/reputation", reputationRequest{})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestHandleLimits(t *testing.T) {
	f := newTestServer(t)

	rec := f.do(t, http.MethodGet, "/api/limits?level=orb&tier=diamond", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	lim := decodeBody[domain.TradingLimits](t, rec)
	if lim.MaxPurchaseAmount != 6000 {
		t.Errorf("expected max purchase 6000, got %v", lim.MaxPurchaseAmount)
	}
	if lim.CooldownPeriod != 5 {
		t.Errorf("expected cooldown floor 5, got %v", lim.CooldownPeriod)
	}
}

func TestHandleLimits_BadInput(t *testing.T) {
	f := newTestServer(t)

	for _, path := range []string{
		"/api/limits?level=galaxy&tier=bronze",
		"/api/limits?level=orb&tier=platinum",
	} {
		rec := f.do(t, http.MethodGet, path, nil)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", path, rec.Code)
		}
	}
}

func TestHandleSessions(t *testing.T) {
	f := newTestServer(t)

	rec := f.do(t, http.MethodPost, "/api/sessions", sessionRequest{
		UserID:            "user1",
		VerificationLevel: "phone",
		ReputationScore:   300,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	sess := decodeBody[domain.TradingSession](t, rec)
	if sess.UserID != "user1" {
		t.Errorf("expected user1, got %q", sess.UserID)
	}
	if sess.SessionID == "" {
		t.Error("expected a session id")
	}
	if sess.VerificationLevel != domain.LevelPhone {
		t.Errorf("expected phone level, got %v", sess.VerificationLevel)
	}
}

func TestHandleSessions_BadLevel(t *testing.T) {
	f := newTestServer(t)

	rec := f.do(t, http.MethodPost, "/api/sessions", sessionRequest{
		UserID:            "user1",
		VerificationLevel: "galaxy",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestHandleValidateTrade_NoSession(t *testing.T) {
	f := newTestServer(t)

	rec := f.do(t, http.MethodPost, "/api/trades/validate", tradeRequest{
		UserID:            "ghost",
		TokenID:           "tok1",
		Amount:            50,
		VerificationLevel: "orb",
		ReputationScore:   900,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	verdict := decodeBody[domain.ValidationResult](t, rec)
	if verdict.Allowed {
		t.Error("expected denial without a session")
	}
	if verdict.Reason != "No active trading session" {
		t.Errorf("unexpected reason %q", verdict.Reason)
	}
	if verdict.RiskScore != 100 {
		t.Errorf("expected risk score 100, got %d", verdict.RiskScore)
	}
}

func TestHandleTrades_Execute(t *testing.T) {
	f := newTestServer(t)

	rec := f.do(t, http.MethodPost, "/api/tokens", launchRequest{TokenID: "tok1"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("launch token: status %d", rec.Code)
	}
	f.startTradingSession(t, "user1")

	rec = f.do(t, http.MethodPost, "/api/trades", tradeRequest{
		UserID:            "user1",
		TokenID:           "tok1",
		Amount:            50,
		VerificationLevel: "orb",
		ReputationScore:   900,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	result := decodeBody[domain.TradeResult](t, rec)
	if !result.Success {
		t.Fatalf("expected success, got reason %q", result.Reason)
	}
	if result.TokensReceived != 500 {
		t.Errorf("expected 500 tokens, got %v", result.TokensReceived)
	}
	if result.NewPrice != 0.15 {
		t.Errorf("expected new price 0.15, got %v", result.NewPrice)
	}

	// Executed trades land in the persistent activity counters.
	c, err := f.activity.Get(context.Background(), "user1")
	if err != nil {
		t.Fatalf("get activity: %v", err)
	}
	if c.TradesCompleted != 1 {
		t.Errorf("expected 1 completed trade, got %d", c.TradesCompleted)
	}
	if c.XP != xpPerTrade {
		t.Errorf("expected %d xp, got %d", xpPerTrade, c.XP)
	}
}

func TestHandleTrades_RejectedIsOK(t *testing.T) {
	f := newTestServer(t)

	rec := f.do(t, http.MethodPost, "/api/tokens", launchRequest{TokenID: "tok1"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("launch token: status %d", rec.Code)
	}

	// No session: the trade is rejected, not an HTTP error.
	rec = f.do(t, http.MethodPost, "/api/trades", tradeRequest{
		UserID:            "ghost",
		TokenID:           "tok1",
		Amount:            50,
		VerificationLevel: "orb",
		ReputationScore:   900,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	result := decodeBody[domain.TradeResult](t, rec)
	if result.Success {
		t.Error("expected rejection without a session")
	}
	if result.Reason != "No active trading session" {
		t.Errorf("unexpected reason %q", result.Reason)
	}
}

func TestHandleTrades_UnknownToken(t *testing.T) {
	f := newTestServer(t)
	f.startTradingSession(t, "user1")

	rec := f.do(t, http.MethodPost, "/api/trades", tradeRequest{
		UserID:            "user1",
		TokenID:           "missing",
		Amount:            50,
		VerificationLevel: "orb",
		ReputationScore:   900,
	})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestHandleTrades_History(t *testing.T) {
	f := newTestServer(t)

	rec := f.do(t, http.MethodPost, "/api/tokens", launchRequest{TokenID: "tok1"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("launch token: status %d", rec.Code)
	}
	f.startTradingSession(t, "user1")

	rec = f.do(t, http.MethodPost, "/api/trades", tradeRequest{
		UserID:            "user1",
		TokenID:           "tok1",
		Amount:            50,
		VerificationLevel: "orb",
		ReputationScore:   900,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("trade: status %d", rec.Code)
	}

	rec = f.do(t, http.MethodGet, "/api/trades?token_id=tok1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	events := decodeBody[[]*domain.TradeEvent](t, rec)
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].UserID != "user1" || !events[0].Human {
		t.Errorf("unexpected event %+v", events[0])
	}

	rec = f.do(t, http.MethodGet, "/api/trades?user_id=user1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := decodeBody[[]*domain.TradeEvent](t, rec); len(got) != 1 {
		t.Errorf("expected 1 event by user, got %d", len(got))
	}

	rec = f.do(t, http.MethodGet, "/api/trades?limit=bogus", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad limit, got %d", rec.Code)
	}
}

func TestHandleSimulateTrade(t *testing.T) {
	f := newTestServer(t)

	rec := f.do(t, http.MethodPost, "/api/tokens", launchRequest{TokenID: "tok1"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("launch token: status %d", rec.Code)
	}

	rec = f.do(t, http.MethodPost, "/api/trades/simulate", simulateRequest{
		TokenID:   "tok1",
		TradeType: domain.TradeTypeBuy,
		Amount:    100,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	sim := decodeBody[domain.SimulationResult](t, rec)
	if sim.TokensReceived != 1000 {
		t.Errorf("expected 1000 tokens, got %v", sim.TokensReceived)
	}
	if sim.NewPrice != 0.101 {
		t.Errorf("expected new price 0.101, got %v", sim.NewPrice)
	}

	rec = f.do(t, http.MethodPost, "/api/trades/simulate", simulateRequest{
		TokenID:   "missing",
		TradeType: domain.TradeTypeBuy,
		Amount:    100,
	})
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown token, got %d", rec.Code)
	}

	rec = f.do(t, http.MethodPost, "/api/trades/simulate", simulateRequest{
		TokenID:   "tok1",
		TradeType: "short",
		Amount:    100,
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad trade type, got %d", rec.Code)
	}
}

func TestHandleTokens(t *testing.T) {
	f := newTestServer(t)

	rec := f.do(t, http.MethodPost, "/api/tokens", launchRequest{TokenID: "tok1"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	state := decodeBody[domain.BondingCurveState](t, rec)
	if state.CurrentPrice != 0.1 {
		t.Errorf("expected base price 0.1, got %v", state.CurrentPrice)
	}

	rec = f.do(t, http.MethodPost, "/api/tokens", launchRequest{TokenID: "tok1"})
	if rec.Code != http.StatusConflict {
		t.Errorf("expected 409 on relaunch, got %d", rec.Code)
	}

	rec = f.do(t, http.MethodGet, "/api/tokens?token_id=tok1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	rec = f.do(t, http.MethodGet, "/api/tokens?token_id=missing", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestHandleCurve(t *testing.T) {
	f := newTestServer(t)

	rec := f.do(t, http.MethodGet, "/api/curve", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	points := decodeBody[[]domain.CurvePoint](t, rec)
	if len(points) == 0 {
		t.Fatal("expected curve points")
	}
	if points[0].Price != 0.1 || points[0].Supply != 0 {
		t.Errorf("unexpected first point %+v", points[0])
	}
}

func TestHandleManipulation(t *testing.T) {
	f := newTestServer(t)

	rec := f.do(t, http.MethodPost, "/api/tokens", launchRequest{TokenID: "tok1"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("launch token: status %d", rec.Code)
	}
	f.startTradingSession(t, "user1")

	rec = f.do(t, http.MethodPost, "/api/trades", tradeRequest{
		UserID:            "user1",
		TokenID:           "tok1",
		Amount:            50,
		VerificationLevel: "orb",
		ReputationScore:   900,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("trade: status %d", rec.Code)
	}

	rec = f.do(t, http.MethodGet, "/api/manipulation", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	m := decodeBody[domain.AntiManipulationMetrics](t, rec)
	if m.TotalTrades != 1 || m.HumanTrades != 1 {
		t.Errorf("unexpected metrics %+v", m)
	}
	if m.HumanSharePct != 100 {
		t.Errorf("expected 100%% human share, got %v", m.HumanSharePct)
	}
}

func TestHandleReports(t *testing.T) {
	f := newTestServer(t)

	for i, reporter := range []string{"r1", "r2", "r3"} {
		rec := f.do(t, http.MethodPost, "/api/reports", reportRequest{
			ReporterID: reporter,
			TargetID:   "target",
			Reason:     "wash trading",
		})
		if rec.Code != http.StatusOK {
			t.Fatalf("report %d: status %d", i, rec.Code)
		}

		resp := decodeBody[map[string]int](t, rec)
		if resp["report_count"] != i+1 {
			t.Errorf("expected count %d, got %d", i+1, resp["report_count"])
		}
	}

	flagged, err := f.suspicious.Contains(context.Background(), "target")
	if err != nil {
		t.Fatalf("contains: %v", err)
	}
	if !flagged {
		t.Error("expected target flagged after third report")
	}
}

func TestHandleReports_MissingIDs(t *testing.T) {
	f := newTestServer(t)

	rec := f.do(t, http.MethodPost, "/api/reports", reportRequest{TargetID: "target"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	f := newTestServer(t)

	for _, path := range []string{"/api/verify", "/api/sessions", "/api/trades/validate", "/api/reports"} {
		rec := f.do(t, http.MethodGet, path, nil)
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("GET %s: expected 405, got %d", path, rec.Code)
		}
	}
}
