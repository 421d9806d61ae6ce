package repository

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/opensource-finance/kestrel/internal/domain"
)

func newTestRepo(t *testing.T) domain.Repository {
	t.Helper()

	tmpFile, err := os.CreateTemp("", "kestrel-test-*.db")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	tmpPath := tmpFile.Name()
	tmpFile.Close()
	t.Cleanup(func() { os.Remove(tmpPath) })

	cfg := domain.RepositoryConfig{
		Driver:     "sqlite",
		SQLitePath: tmpPath,
	}

	repo, err := New(cfg)
	if err != nil {
		t.Fatalf("failed to create repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	return repo
}

func TestSQLiteRepository(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	occurredAt := time.Date(2026, time.March, 10, 14, 0, 0, 0, time.UTC)

	t.Run("Ping", func(t *testing.T) {
		if err := repo.Ping(ctx); err != nil {
			t.Errorf("Ping failed: %v", err)
		}
	})

	t.Run("SaveAndGetUser", func(t *testing.T) {
		user := &domain.User{
			ID:          "user-001",
			Username:    "john_doe",
			Email:       "john@example.com",
			FullName:    "John Doe",
			PhoneNumber: "+1-555-0100",
			CreatedAt:   time.Now().UTC(),
		}

		if err := repo.SaveUser(ctx, user); err != nil {
			t.Fatalf("SaveUser failed: %v", err)
		}

		retrieved, err := repo.GetUser(ctx, user.ID)
		if err != nil {
			t.Fatalf("GetUser failed: %v", err)
		}
		if retrieved.Username != user.Username {
			t.Errorf("expected username %s, got %s", user.Username, retrieved.Username)
		}
		if retrieved.Email != user.Email {
			t.Errorf("expected email %s, got %s", user.Email, retrieved.Email)
		}
	})

	t.Run("SaveAndGetTransaction", func(t *testing.T) {
		tx := &domain.Transaction{
			ID:               "tx-001",
			UserID:           "user-001",
			Amount:           decimal.RequireFromString("1234.56"),
			TransactionType:  domain.TypePurchase,
			MerchantName:     "Amazon",
			MerchantCategory: "RETAIL",
			Location:         "Seattle, US",
			CardNumberMasked: "****1234",
			IPAddress:        "203.0.113.7",
			OccurredAt:       occurredAt,
			CreatedAt:        time.Now().UTC(),
			FraudStatus:      domain.StatusPending,
			FraudScore:       0.0,
		}

		if err := repo.SaveTransaction(ctx, tx); err != nil {
			t.Fatalf("SaveTransaction failed: %v", err)
		}

		retrieved, err := repo.GetTransaction(ctx, tx.ID)
		if err != nil {
			t.Fatalf("GetTransaction failed: %v", err)
		}
		if retrieved.ID != tx.ID {
			t.Errorf("expected ID %s, got %s", tx.ID, retrieved.ID)
		}
		if !retrieved.Amount.Equal(tx.Amount) {
			t.Errorf("expected amount %s, got %s", tx.Amount, retrieved.Amount)
		}
		if retrieved.FraudStatus != domain.StatusPending {
			t.Errorf("expected status PENDING, got %s", retrieved.FraudStatus)
		}
	})

	t.Run("AmountStaysExact", func(t *testing.T) {
		tx := &domain.Transaction{
			ID:              "tx-exact",
			UserID:          "user-001",
			Amount:          decimal.RequireFromString("0.10"),
			TransactionType: domain.TypePurchase,
			OccurredAt:      occurredAt,
			CreatedAt:       time.Now().UTC(),
			FraudStatus:     domain.StatusPending,
		}
		if err := repo.SaveTransaction(ctx, tx); err != nil {
			t.Fatalf("SaveTransaction failed: %v", err)
		}

		retrieved, err := repo.GetTransaction(ctx, tx.ID)
		if err != nil {
			t.Fatalf("GetTransaction failed: %v", err)
		}
		if retrieved.Amount.String() != "0.1" && retrieved.Amount.String() != "0.10" {
			t.Errorf("amount lost precision: %s", retrieved.Amount)
		}
		if !retrieved.Amount.Equal(decimal.RequireFromString("0.10")) {
			t.Errorf("expected 0.10, got %s", retrieved.Amount)
		}
	})

	t.Run("UpdateTransactionAnalysis", func(t *testing.T) {
		tx, err := repo.GetTransaction(ctx, "tx-001")
		if err != nil {
			t.Fatalf("GetTransaction failed: %v", err)
		}

		tx.ApplyAnalysis(55.0, domain.StatusSuspicious, "High transaction amount: 1234.56; Moderate fraud score: 55")
		if err := repo.UpdateTransactionAnalysis(ctx, tx); err != nil {
			t.Fatalf("UpdateTransactionAnalysis failed: %v", err)
		}

		retrieved, err := repo.GetTransaction(ctx, "tx-001")
		if err != nil {
			t.Fatalf("GetTransaction failed: %v", err)
		}
		if retrieved.FraudStatus != domain.StatusSuspicious {
			t.Errorf("expected SUSPICIOUS, got %s", retrieved.FraudStatus)
		}
		if retrieved.FraudScore != 55.0 {
			t.Errorf("expected score 55.0, got %v", retrieved.FraudScore)
		}
		if retrieved.FraudReason == "" {
			t.Error("expected reason to be stored")
		}
	})

	t.Run("UpdateTransactionStatus", func(t *testing.T) {
		if err := repo.UpdateTransactionStatus(ctx, "tx-001", domain.StatusLegitimate); err != nil {
			t.Fatalf("UpdateTransactionStatus failed: %v", err)
		}

		retrieved, err := repo.GetTransaction(ctx, "tx-001")
		if err != nil {
			t.Fatalf("GetTransaction failed: %v", err)
		}
		if retrieved.FraudStatus != domain.StatusLegitimate {
			t.Errorf("expected LEGITIMATE, got %s", retrieved.FraudStatus)
		}
	})

	t.Run("UpdateMissingTransaction", func(t *testing.T) {
		err := repo.UpdateTransactionStatus(ctx, "nonexistent", domain.StatusLegitimate)
		if !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got: %v", err)
		}
	})

	t.Run("ListTransactionsByStatus", func(t *testing.T) {
		transactions, err := repo.ListTransactionsByStatus(ctx, domain.StatusLegitimate)
		if err != nil {
			t.Fatalf("ListTransactionsByStatus failed: %v", err)
		}
		if len(transactions) != 1 {
			t.Errorf("expected 1 legitimate transaction, got %d", len(transactions))
		}
	})

	t.Run("CountTransactionsInWindow", func(t *testing.T) {
		for i, offset := range []time.Duration{0, -10 * time.Minute, -30 * time.Minute, -2 * time.Hour} {
			tx := &domain.Transaction{
				ID:              "tx-window-" + string(rune('a'+i)),
				UserID:          "user-windows",
				Amount:          decimal.RequireFromString("10.00"),
				TransactionType: domain.TypePurchase,
				OccurredAt:      occurredAt.Add(offset),
				CreatedAt:       time.Now().UTC(),
				FraudStatus:     domain.StatusPending,
			}
			if err := repo.SaveTransaction(ctx, tx); err != nil {
				t.Fatalf("SaveTransaction failed: %v", err)
			}
		}

		// One hour back from the newest: both bounds are inclusive, so the
		// transaction at the window start and the one at ref both count.
		count, err := repo.CountTransactionsInWindow(ctx, "user-windows", occurredAt.Add(-time.Hour), occurredAt)
		if err != nil {
			t.Fatalf("CountTransactionsInWindow failed: %v", err)
		}
		if count != 3 {
			t.Errorf("expected 3 transactions in window, got %d", count)
		}

		count, err = repo.CountTransactionsInWindow(ctx, "user-windows", occurredAt.Add(-3*time.Hour), occurredAt)
		if err != nil {
			t.Fatalf("CountTransactionsInWindow failed: %v", err)
		}
		if count != 4 {
			t.Errorf("expected 4 transactions in wider window, got %d", count)
		}
	})

	t.Run("SumAmountInWindow", func(t *testing.T) {
		total, err := repo.SumAmountInWindow(ctx, "user-windows", occurredAt.Add(-time.Hour), occurredAt)
		if err != nil {
			t.Fatalf("SumAmountInWindow failed: %v", err)
		}
		if !total.Equal(decimal.RequireFromString("30.00")) {
			t.Errorf("expected total 30.00, got %s", total)
		}
	})

	t.Run("ListRecentTransactionsByUser", func(t *testing.T) {
		transactions, err := repo.ListRecentTransactionsByUser(ctx, "user-windows", occurredAt.Add(-time.Hour))
		if err != nil {
			t.Fatalf("ListRecentTransactionsByUser failed: %v", err)
		}
		if len(transactions) != 3 {
			t.Fatalf("expected 3 recent transactions, got %d", len(transactions))
		}
		// Most recent first.
		if !transactions[0].OccurredAt.Equal(occurredAt) {
			t.Errorf("expected newest transaction first, got %v", transactions[0].OccurredAt)
		}
	})

	t.Run("SaveAndGetRule", func(t *testing.T) {
		threshold := decimal.RequireFromString("10000.00")
		window := 60
		max := 5

		rule := &domain.FraudRule{
			ID:                "rule-001",
			RuleName:          "High Amount",
			Description:       "Flags very large transactions",
			RuleType:          domain.RuleAmountThreshold,
			ThresholdAmount:   &threshold,
			TimeWindowMinutes: &window,
			MaxOccurrences:    &max,
			RiskScore:         40.0,
			Active:            true,
			CreatedAt:         time.Now().UTC(),
			UpdatedAt:         time.Now().UTC(),
		}

		if err := repo.SaveRule(ctx, rule); err != nil {
			t.Fatalf("SaveRule failed: %v", err)
		}

		retrieved, err := repo.GetRule(ctx, rule.ID)
		if err != nil {
			t.Fatalf("GetRule failed: %v", err)
		}
		if retrieved.RuleName != rule.RuleName {
			t.Errorf("expected name %s, got %s", rule.RuleName, retrieved.RuleName)
		}
		if retrieved.ThresholdAmount == nil || !retrieved.ThresholdAmount.Equal(threshold) {
			t.Errorf("expected threshold %s, got %v", threshold, retrieved.ThresholdAmount)
		}
		if retrieved.TimeWindowMinutes == nil || *retrieved.TimeWindowMinutes != window {
			t.Errorf("expected window %d, got %v", window, retrieved.TimeWindowMinutes)
		}
		if !retrieved.Active {
			t.Error("expected rule to be active")
		}
	})

	t.Run("RuleNullableFieldsStayNil", func(t *testing.T) {
		rule := &domain.FraudRule{
			ID:        "rule-002",
			RuleName:  "Night Owl",
			RuleType:  domain.RuleTimeBased,
			RiskScore: 20.0,
			Active:    true,
			CreatedAt: time.Now().UTC(),
			UpdatedAt: time.Now().UTC(),
		}

		if err := repo.SaveRule(ctx, rule); err != nil {
			t.Fatalf("SaveRule failed: %v", err)
		}

		retrieved, err := repo.GetRule(ctx, rule.ID)
		if err != nil {
			t.Fatalf("GetRule failed: %v", err)
		}
		if retrieved.ThresholdAmount != nil {
			t.Errorf("expected nil threshold, got %v", retrieved.ThresholdAmount)
		}
		if retrieved.TimeWindowMinutes != nil || retrieved.MaxOccurrences != nil {
			t.Error("expected nil velocity fields")
		}
	})

	t.Run("SaveRuleUpsert", func(t *testing.T) {
		rule, err := repo.GetRule(ctx, "rule-002")
		if err != nil {
			t.Fatalf("GetRule failed: %v", err)
		}

		rule.Active = false
		rule.RiskScore = 25.0
		if err := repo.SaveRule(ctx, rule); err != nil {
			t.Fatalf("SaveRule (update) failed: %v", err)
		}

		retrieved, err := repo.GetRule(ctx, "rule-002")
		if err != nil {
			t.Fatalf("GetRule failed: %v", err)
		}
		if retrieved.Active {
			t.Error("expected rule to be inactive after update")
		}
		if retrieved.RiskScore != 25.0 {
			t.Errorf("expected risk score 25.0, got %v", retrieved.RiskScore)
		}

		count, err := repo.CountRules(ctx)
		if err != nil {
			t.Fatalf("CountRules failed: %v", err)
		}
		if count != 2 {
			t.Errorf("upsert should not duplicate rules, got %d", count)
		}
	})

	t.Run("ListActiveRules", func(t *testing.T) {
		active, err := repo.ListActiveRules(ctx)
		if err != nil {
			t.Fatalf("ListActiveRules failed: %v", err)
		}
		if len(active) != 1 {
			t.Fatalf("expected 1 active rule, got %d", len(active))
		}
		if active[0].ID != "rule-001" {
			t.Errorf("expected rule-001, got %s", active[0].ID)
		}

		all, err := repo.ListRules(ctx)
		if err != nil {
			t.Fatalf("ListRules failed: %v", err)
		}
		if len(all) != 2 {
			t.Errorf("expected 2 rules in total, got %d", len(all))
		}
	})

	t.Run("DeleteRule", func(t *testing.T) {
		if err := repo.DeleteRule(ctx, "rule-002"); err != nil {
			t.Fatalf("DeleteRule failed: %v", err)
		}

		_, err := repo.GetRule(ctx, "rule-002")
		if !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("expected ErrNotFound after delete, got: %v", err)
		}
	})

	t.Run("DeleteUser", func(t *testing.T) {
		if err := repo.DeleteUser(ctx, "user-001"); err != nil {
			t.Fatalf("DeleteUser failed: %v", err)
		}

		_, err := repo.GetUser(ctx, "user-001")
		if !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("expected ErrNotFound after delete, got: %v", err)
		}
	})

	t.Run("NotFound", func(t *testing.T) {
		_, err := repo.GetTransaction(ctx, "nonexistent")
		if !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got: %v", err)
		}

		_, err = repo.GetUser(ctx, "nonexistent")
		if !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got: %v", err)
		}

		_, err = repo.GetRule(ctx, "nonexistent")
		if !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got: %v", err)
		}
	})
}

func TestUnsupportedDriver(t *testing.T) {
	cfg := domain.RepositoryConfig{
		Driver: "mysql",
	}

	_, err := New(cfg)
	if err == nil {
		t.Error("expected error for unsupported driver")
	}
}

func TestRebind(t *testing.T) {
	repo := &SQLRepository{driver: "postgres"}

	tests := []struct {
		input    string
		expected string
	}{
		{"SELECT * FROM t WHERE id = ?", "SELECT * FROM t WHERE id = $1"},
		{"INSERT INTO t (a, b) VALUES (?, ?)", "INSERT INTO t (a, b) VALUES ($1, $2)"},
		{"SELECT * FROM t", "SELECT * FROM t"},
	}

	for _, tt := range tests {
		result := repo.rebind(tt.input)
		if result != tt.expected {
			t.Errorf("rebind(%q) = %q, want %q", tt.input, result, tt.expected)
		}
	}

	sqlite := &SQLRepository{driver: "sqlite"}
	if got := sqlite.rebind("SELECT * FROM t WHERE id = ?"); got != "SELECT * FROM t WHERE id = ?" {
		t.Errorf("sqlite rebind should be a no-op, got %q", got)
	}
}
