package repository

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"tradesense/src/model"
)

func TestChallengeRepositoryLifecycle(t *testing.T) {
	db := newTestDB(t)
	repo := (&ChallengeRepository{}).WithDB(db)
	ctx := context.Background()

	challenge := &model.Challenge{
		UserID:       1,
		PlanID:       2,
		StartBalance: 10000,
		Equity:       10000,
		Status:       model.ChallengeStatusActive,
	}
	if err := repo.Create(ctx, challenge); err != nil {
		t.Fatalf("unexpected error creating challenge: %v", err)
	}
	if challenge.ID == 0 {
		t.Fatalf("expected generated challenge ID")
	}

	found, err := repo.FindByID(ctx, challenge.ID)
	if err != nil {
		t.Fatalf("unexpected error fetching challenge: %v", err)
	}
	if found == nil || found.StartBalance != 10000 {
		t.Fatalf("unexpected challenge fetched: %+v", found)
	}

	found.Equity = 10350
	found.Status = model.ChallengeStatusActive
	if err := repo.Save(ctx, found); err != nil {
		t.Fatalf("unexpected error saving challenge: %v", err)
	}

	reloaded, err := repo.FindByID(ctx, challenge.ID)
	if err != nil {
		t.Fatalf("unexpected error reloading challenge: %v", err)
	}
	if reloaded.Equity != 10350 {
		t.Fatalf("expected equity 10350 after save, got %v", reloaded.Equity)
	}
}

func TestChallengeRepositoryFindByIDMissing(t *testing.T) {
	db := newTestDB(t)
	repo := (&ChallengeRepository{}).WithDB(db)

	challenge, err := repo.FindByID(context.Background(), 12345)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if challenge != nil {
		t.Fatalf("expected nil for missing challenge, got %+v", challenge)
	}
}

func TestChallengeRepositoryFindActiveByUser(t *testing.T) {
	db := newTestDB(t)
	repo := (&ChallengeRepository{}).WithDB(db)
	ctx := context.Background()

	failed := &model.Challenge{UserID: 1, PlanID: 1, StartBalance: 5000, Equity: 4400, Status: model.ChallengeStatusFailed}
	active := &model.Challenge{UserID: 1, PlanID: 1, StartBalance: 10000, Equity: 10100, Status: model.ChallengeStatusActive}
	other := &model.Challenge{UserID: 2, PlanID: 1, StartBalance: 10000, Equity: 10000, Status: model.ChallengeStatusActive}

	for _, c := range []*model.Challenge{failed, active, other} {
		if err := repo.Create(ctx, c); err != nil {
			t.Fatalf("unexpected error seeding challenge: %v", err)
		}
	}

	found, err := repo.FindActiveByUser(ctx, 1)
	if err != nil {
		t.Fatalf("unexpected error fetching active challenge: %v", err)
	}
	if found == nil || found.ID != active.ID {
		t.Fatalf("expected the active challenge, got %+v", found)
	}

	// User without an active challenge gets (nil, nil).
	if err := repo.Save(ctx, activeToFailed(active)); err != nil {
		t.Fatalf("unexpected error failing challenge: %v", err)
	}
	found, err = repo.FindActiveByUser(ctx, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if found != nil {
		t.Fatalf("expected nil when no active challenge, got %+v", found)
	}

	all, err := repo.FindByUser(ctx, 1)
	if err != nil {
		t.Fatalf("unexpected error listing challenges: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 challenges for user 1, got %d", len(all))
	}
}

func activeToFailed(c *model.Challenge) *model.Challenge {
	c.Status = model.ChallengeStatusFailed
	return c
}

func TestChallengeRepositoryMonthlyTop(t *testing.T) {
	mockDB, mock := newMockDB(t)
	repo := (&ChallengeRepository{}).WithDB(mockDB)

	rows := sqlmock.NewRows([]string{
		"user_id", "name", "challenge_id", "start_balance", "equity", "status", "profit_pct",
	}).
		AddRow(2, "Yassine", 11, 10000.0, 11200.0, "passed", 12.0).
		AddRow(1, "Amina", 10, 5000.0, 5250.0, "active", 5.0)

	mock.ExpectQuery(`SELECT users\.id AS user_id,[\s\S]*FROM "challenges" JOIN users ON users\.id = challenges\.user_id WHERE EXTRACT\(MONTH FROM challenges\.created_at\) = \$1 AND EXTRACT\(YEAR FROM challenges\.created_at\) = \$2 ORDER BY profit_pct DESC LIMIT \$3`).
		WithArgs(6, 2025, 10).
		WillReturnRows(rows)

	results, err := repo.MonthlyTop(context.Background(), 2025, 6, 10)
	if err != nil {
		t.Fatalf("unexpected error fetching leaderboard: %v", err)
	}

	if len(results) != 2 {
		t.Fatalf("expected 2 leaderboard rows, got %d", len(results))
	}
	if results[0].Name != "Yassine" || results[0].ProfitPct != 12.0 {
		t.Fatalf("unexpected top row: %+v", results[0])
	}
	if results[1].ChallengeID != 10 {
		t.Fatalf("unexpected second row: %+v", results[1])
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet sqlmock expectations: %v", err)
	}
}
