package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"tradesense/src/auth"
	"tradesense/src/engine"
	"tradesense/src/model"
)

type mockTradeExecutor struct {
	outcome *engine.TradeOutcome
	err     error

	challengeID uint
	symbol      string
	side        string
	qty         float64
	calledCount int
}

func (m *mockTradeExecutor) ExecuteTrade(ctx context.Context, challengeID uint, symbol, side string, qty float64) (*engine.TradeOutcome, error) {
	m.calledCount++
	m.challengeID = challengeID
	m.symbol = symbol
	m.side = side
	m.qty = qty
	return m.outcome, m.err
}

type mockChallengeFinder struct {
	challenge *model.Challenge
	err       error
}

func (m *mockChallengeFinder) FindByID(ctx context.Context, id uint) (*model.Challenge, error) {
	return m.challenge, m.err
}

type mockTradeLister struct {
	trades []model.Trade
	err    error
}

func (m *mockTradeLister) FindByChallenge(ctx context.Context, challengeID uint) ([]model.Trade, error) {
	return m.trades, m.err
}

func asUser(req *http.Request, user *model.User) *http.Request {
	return req.WithContext(context.WithValue(req.Context(), auth.UserKey, user))
}

func TestExecuteTradeHandler_Unauthorized(t *testing.T) {
	handler := ExecuteTradeHandler(&mockTradeExecutor{}, &mockChallengeFinder{})

	req := httptest.NewRequest(http.MethodPost, "/api/trades", strings.NewReader(`{}`))
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", rr.Code)
	}
}

func TestExecuteTradeHandler_InvalidPayload(t *testing.T) {
	exec := &mockTradeExecutor{}
	handler := ExecuteTradeHandler(exec, &mockChallengeFinder{})

	req := httptest.NewRequest(http.MethodPost, "/api/trades", strings.NewReader(`{"challenge_id": 1, "bogus": true}`))
	req = asUser(req, &model.User{ID: 1})
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
	if exec.calledCount != 0 {
		t.Fatalf("expected executor untouched, got %d calls", exec.calledCount)
	}
}

func TestExecuteTradeHandler_NotOwner(t *testing.T) {
	finder := &mockChallengeFinder{challenge: &model.Challenge{ID: 3, UserID: 99, Status: model.ChallengeStatusActive}}
	handler := ExecuteTradeHandler(&mockTradeExecutor{}, finder)

	req := httptest.NewRequest(http.MethodPost, "/api/trades",
		strings.NewReader(`{"challenge_id": 3, "symbol": "BTC-USDT", "side": "buy", "qty": 1}`))
	req = asUser(req, &model.User{ID: 1, Role: model.RoleUser})
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected status 403, got %d", rr.Code)
	}
}

func TestExecuteTradeHandler_ErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"invalid request", engine.ErrInvalidTradeRequest, http.StatusBadRequest},
		{"not found", engine.ErrChallengeNotFound, http.StatusNotFound},
		{"not active", engine.ErrChallengeNotActive, http.StatusConflict},
		{"quote unavailable", engine.ErrQuoteUnavailable, http.StatusServiceUnavailable},
		{"persistence conflict", engine.ErrPersistenceConflict, http.StatusConflict},
		{"internal", assert.AnError, http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			finder := &mockChallengeFinder{challenge: &model.Challenge{ID: 3, UserID: 1, Status: model.ChallengeStatusActive}}
			handler := ExecuteTradeHandler(&mockTradeExecutor{err: tc.err}, finder)

			req := httptest.NewRequest(http.MethodPost, "/api/trades",
				strings.NewReader(`{"challenge_id": 3, "symbol": "BTC-USDT", "side": "buy", "qty": 1}`))
			req = asUser(req, &model.User{ID: 1})
			rr := httptest.NewRecorder()

			handler.ServeHTTP(rr, req)

			if rr.Code != tc.want {
				t.Fatalf("expected status %d, got %d", tc.want, rr.Code)
			}
		})
	}
}

func TestExecuteTradeHandler_Success(t *testing.T) {
	triggered := model.RuleProfitTargetReached
	exec := &mockTradeExecutor{
		outcome: &engine.TradeOutcome{
			Trade:     &model.Trade{ID: 5, Pnl: 12.34},
			Challenge: &model.Challenge{ID: 3, UserID: 1, Equity: 11200, Status: model.ChallengeStatusPassed},
			RuleResult: &engine.RuleResult{
				Status:    model.ChallengeStatusPassed,
				Triggered: &triggered,
			},
		},
	}
	finder := &mockChallengeFinder{challenge: &model.Challenge{ID: 3, UserID: 1, Status: model.ChallengeStatusActive}}
	handler := ExecuteTradeHandler(exec, finder)

	req := httptest.NewRequest(http.MethodPost, "/api/trades",
		strings.NewReader(`{"challenge_id": 3, "symbol": "btc-usdt", "side": "buy", "qty": 2.5}`))
	req = asUser(req, &model.User{ID: 1})
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d", rr.Code)
	}
	if exec.symbol != "BTC-USDT" {
		t.Fatalf("expected symbol normalized to BTC-USDT, got %q", exec.symbol)
	}
	if exec.challengeID != 3 || exec.side != "buy" || exec.qty != 2.5 {
		t.Fatalf("unexpected executor args: %+v", exec)
	}

	var body map[string]json.RawMessage
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	for _, key := range []string{"message", "trade", "challenge", "rule_result"} {
		if _, ok := body[key]; !ok {
			t.Fatalf("expected %q in response body: %s", key, rr.Body.String())
		}
	}
}

func TestListTradesHandler(t *testing.T) {
	t.Run("missing challenge_id", func(t *testing.T) {
		handler := ListTradesHandler(&mockTradeLister{}, &mockChallengeFinder{})

		req := asUser(httptest.NewRequest(http.MethodGet, "/api/trades", nil), &model.User{ID: 1})
		rr := httptest.NewRecorder()

		handler.ServeHTTP(rr, req)

		if rr.Code != http.StatusBadRequest {
			t.Fatalf("expected status 400, got %d", rr.Code)
		}
	})

	t.Run("unknown challenge", func(t *testing.T) {
		handler := ListTradesHandler(&mockTradeLister{}, &mockChallengeFinder{})

		req := asUser(httptest.NewRequest(http.MethodGet, "/api/trades?challenge_id=44", nil), &model.User{ID: 1})
		rr := httptest.NewRecorder()

		handler.ServeHTTP(rr, req)

		if rr.Code != http.StatusNotFound {
			t.Fatalf("expected status 404, got %d", rr.Code)
		}
	})

	t.Run("admin can list any challenge", func(t *testing.T) {
		lister := &mockTradeLister{trades: []model.Trade{{ID: 1}, {ID: 2}}}
		finder := &mockChallengeFinder{challenge: &model.Challenge{ID: 44, UserID: 7}}
		handler := ListTradesHandler(lister, finder)

		req := asUser(httptest.NewRequest(http.MethodGet, "/api/trades?challenge_id=44", nil),
			&model.User{ID: 1, Role: model.RoleAdmin})
		rr := httptest.NewRecorder()

		handler.ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rr.Code)
		}

		var body struct {
			Trades []model.Trade `json:"trades"`
		}
		if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if len(body.Trades) != 2 {
			t.Fatalf("expected 2 trades, got %d", len(body.Trades))
		}
	})
}
