//go:build integration
// +build integration

// Package integration provides end-to-end tests for the Kestrel fraud
// scoring engine.
//
// These tests exercise the COMPLETE intake pipeline against a running
// server:
//
//	Transaction → Heuristics + Stored Rules → Score → Status → Storage
//
// Run with: go test -tags=integration -v ./tests/integration/...
//
// UNDERSTANDING THE DOMAIN:
//
// 1. TRANSACTION: A monetary event attributed to a registered user.
//
// 2. HEURISTICS: Built-in checks that always run:
//   - Amount above $10,000           → +30
//   - 5+ transactions within an hour → +40
//   - High-risk merchant category    → +25
//   - Occurred between 2 AM and 5 AM → +20
//
// 3. STORED RULES: Operator-managed rules add their riskScore when they
//    fire. The default seed installs 8 of them.
//
// 4. SCORE: Sum of triggered weights, capped at 100. No findings means
//    an exact 0.
//
// 5. STATUS: score >= 80 → FRAUDULENT, >= 50 → SUSPICIOUS,
//    otherwise LEGITIMATE.
//
// NOTE: These tests assume a fresh server started with KESTREL_SEED=false
// so the default rule set does not shift the expected scores.
package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"testing"
	"time"
)

// TestConfig holds test environment configuration
type TestConfig struct {
	BaseURL string
}

func getTestConfig() TestConfig {
	baseURL := os.Getenv("KESTREL_TEST_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	return TestConfig{BaseURL: baseURL}
}

// ============================================================================
// API Request/Response Types (matching Kestrel's API contract)
// ============================================================================

// TransactionRequest is the payload sent to POST /api/transactions
type TransactionRequest struct {
	UserID           string `json:"userId"`
	Amount           string `json:"amount"`
	TransactionType  string `json:"transactionType"`
	MerchantName     string `json:"merchantName,omitempty"`
	MerchantCategory string `json:"merchantCategory,omitempty"`
	Location         string `json:"location,omitempty"`
	OccurredAt       string `json:"occurredAt,omitempty"`
}

// TransactionResponse is the analyzed transaction the API returns
type TransactionResponse struct {
	ID          string  `json:"id"`
	UserID      string  `json:"userId"`
	Amount      string  `json:"amount"`
	FraudStatus string  `json:"fraudStatus"`
	FraudScore  float64 `json:"fraudScore"`
	FraudReason string  `json:"fraudReason"`
}

// UserRequest registers a user
type UserRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

// UserResponse carries the assigned ID
type UserResponse struct {
	ID string `json:"id"`
}

// RuleRequest creates a fraud rule
type RuleRequest struct {
	RuleName        string  `json:"ruleName"`
	RuleType        string  `json:"ruleType"`
	ThresholdAmount string  `json:"thresholdAmount,omitempty"`
	Expression      string  `json:"expression,omitempty"`
	RiskScore       float64 `json:"riskScore"`
	Active          bool    `json:"active"`
}

// RuleResponse carries the stored rule
type RuleResponse struct {
	ID     string `json:"id"`
	Active bool   `json:"active"`
}

// ============================================================================
// Test Helper Functions
// ============================================================================

func post(t *testing.T, config TestConfig, path string, payload any, wantStatus int, out any) {
	t.Helper()

	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("Failed to marshal request: %v", err)
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Post(config.BaseURL+path, "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("Failed to read response: %v", err)
	}

	if resp.StatusCode != wantStatus {
		t.Fatalf("Expected status %d, got %d: %s", wantStatus, resp.StatusCode, string(respBody))
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			t.Fatalf("Failed to unmarshal response: %v (body: %s)", err, string(respBody))
		}
	}
}

func registerUser(t *testing.T, config TestConfig, tag string) string {
	t.Helper()

	req := UserRequest{
		Username: fmt.Sprintf("it_%s_%d", tag, time.Now().UnixNano()),
		Email:    fmt.Sprintf("it_%s_%d@example.com", tag, time.Now().UnixNano()),
	}

	var user UserResponse
	post(t, config, "/api/users", req, http.StatusCreated, &user)
	return user.ID
}

func submit(t *testing.T, config TestConfig, req TransactionRequest) TransactionResponse {
	t.Helper()

	var tx TransactionResponse
	post(t, config, "/api/transactions", req, http.StatusCreated, &tx)
	return tx
}

// daytime is outside the 2-5 AM unusual-hour window.
const daytime = "2026-03-10T14:00:00Z"

// ============================================================================
// SCENARIO 1: Normal Transaction (Legitimate)
// ============================================================================

func TestNormalTransaction_Legitimate(t *testing.T) {
	/*
	   SCENARIO: A regular $42.50 grocery purchase in the afternoon.

	   EXPECTED BEHAVIOR:
	   - No heuristic fires: small amount, first transaction, safe
	     category, normal hour.
	   - Score is an exact 0, status LEGITIMATE, empty reason.
	*/
	config := getTestConfig()
	userID := registerUser(t, config, "normal")

	result := submit(t, config, TransactionRequest{
		UserID:           userID,
		Amount:           "42.50",
		TransactionType:  "PURCHASE",
		MerchantName:     "Whole Foods",
		MerchantCategory: "GROCERY",
		OccurredAt:       daytime,
	})

	if result.FraudStatus != "LEGITIMATE" {
		t.Errorf("Expected LEGITIMATE, got %s", result.FraudStatus)
	}
	if result.FraudScore != 0.0 {
		t.Errorf("Expected exact zero score, got %.2f", result.FraudScore)
	}
	if result.FraudReason != "" {
		t.Errorf("Expected no reason, got %q", result.FraudReason)
	}

	t.Logf("✓ Normal transaction passed: status=%s, score=%.1f", result.FraudStatus, result.FraudScore)
}

// ============================================================================
// SCENARIO 2: Threshold Boundary Testing
// ============================================================================

func TestExactThreshold_NotFlagged(t *testing.T) {
	/*
	   SCENARIO: Transaction of exactly $10,000.

	   EXPECTED BEHAVIOR: The high-amount heuristic is a strict
	   greater-than, so $10,000.00 contributes nothing.
	*/
	config := getTestConfig()
	userID := registerUser(t, config, "boundary")

	result := submit(t, config, TransactionRequest{
		UserID:          userID,
		Amount:          "10000.00",
		TransactionType: "TRANSFER",
		OccurredAt:      daytime,
	})

	if result.FraudScore != 0.0 {
		t.Errorf("Expected zero score at exact threshold, got %.2f", result.FraudScore)
	}

	t.Logf("✓ Boundary test passed: $10,000 exactly → score=%.1f", result.FraudScore)
}

func TestJustAboveThreshold_Scores(t *testing.T) {
	/*
	   SCENARIO: Transaction of $10,000.01, one cent above the threshold.

	   EXPECTED BEHAVIOR: High-amount heuristic fires (+30). 30 < 50 so
	   the transaction stays LEGITIMATE but carries the reason.
	*/
	config := getTestConfig()
	userID := registerUser(t, config, "justabove")

	result := submit(t, config, TransactionRequest{
		UserID:          userID,
		Amount:          "10000.01",
		TransactionType: "TRANSFER",
		OccurredAt:      daytime,
	})

	if result.FraudScore != 30.0 {
		t.Errorf("Expected score 30.0 just above threshold, got %.2f", result.FraudScore)
	}
	if result.FraudStatus != "LEGITIMATE" {
		t.Errorf("Expected LEGITIMATE (30 < 50), got %s", result.FraudStatus)
	}
	if result.FraudReason == "" {
		t.Error("Expected the high-amount reason to be recorded")
	}

	t.Logf("✓ Just-above-threshold: $10,000.01 → score=%.1f, reason=%q", result.FraudScore, result.FraudReason)
}

// ============================================================================
// SCENARIO 3: Compound Risk (Multiple Heuristics)
// ============================================================================

func TestCompoundRisk_Suspicious(t *testing.T) {
	/*
	   SCENARIO: A $25,000 gambling withdrawal at 3 AM.

	   EXPECTED BEHAVIOR:
	   - High amount (+30), gambling category (+25), unusual hour (+20).
	   - Score 75 → SUSPICIOUS, with the tier reason appended.
	*/
	config := getTestConfig()
	userID := registerUser(t, config, "compound")

	result := submit(t, config, TransactionRequest{
		UserID:           userID,
		Amount:           "25000.00",
		TransactionType:  "WITHDRAWAL",
		MerchantName:     "Lucky Spin Casino",
		MerchantCategory: "GAMBLING",
		OccurredAt:       "2026-03-10T03:00:00Z",
	})

	if result.FraudScore != 75.0 {
		t.Errorf("Expected score 75.0 for compound risk, got %.2f", result.FraudScore)
	}
	if result.FraudStatus != "SUSPICIOUS" {
		t.Errorf("Expected SUSPICIOUS, got %s", result.FraudStatus)
	}

	t.Logf("✓ Compound risk flagged: status=%s, score=%.1f, reason=%q",
		result.FraudStatus, result.FraudScore, result.FraudReason)
}

// ============================================================================
// SCENARIO 4: Velocity Detection
// ============================================================================

func TestVelocity_FlagsRapidFire(t *testing.T) {
	/*
	   SCENARIO: The same user submits 5 small transactions inside an hour.

	   EXPECTED BEHAVIOR:
	   - Transactions 1-4 stay LEGITIMATE.
	   - Transaction 5 reaches the 5-per-hour bound (the window includes
	     the transaction itself) → +40, still below 50 → LEGITIMATE but
	     with the velocity reason recorded.
	*/
	config := getTestConfig()
	userID := registerUser(t, config, "velocity")

	var last TransactionResponse
	for i := 0; i < 5; i++ {
		last = submit(t, config, TransactionRequest{
			UserID:          userID,
			Amount:          "9.99",
			TransactionType: "PURCHASE",
			OccurredAt:      fmt.Sprintf("2026-03-10T14:%02d:00Z", i*5),
		})
	}

	if last.FraudScore != 40.0 {
		t.Errorf("Expected score 40.0 on the fifth transaction, got %.2f", last.FraudScore)
	}
	if last.FraudReason == "" {
		t.Error("Expected the velocity reason to be recorded")
	}

	t.Logf("✓ Velocity detected: score=%.1f, reason=%q", last.FraudScore, last.FraudReason)
}

// ============================================================================
// SCENARIO 5: Stored Rules and Reanalysis
// ============================================================================

func TestStoredRule_AppliesOnReanalysis(t *testing.T) {
	/*
	   SCENARIO: A transaction is analyzed, then a stricter rule is
	   created, then the transaction is reanalyzed.

	   EXPECTED BEHAVIOR:
	   - First analysis: no rule, LEGITIMATE.
	   - Reanalysis after the rule exists: rule fires, outcome replaced.
	*/
	config := getTestConfig()
	userID := registerUser(t, config, "reanalyze")

	result := submit(t, config, TransactionRequest{
		UserID:          userID,
		Amount:          "500.00",
		TransactionType: "PURCHASE",
		OccurredAt:      daytime,
	})
	if result.FraudStatus != "LEGITIMATE" {
		t.Fatalf("Expected LEGITIMATE before the rule, got %s", result.FraudStatus)
	}

	var rule RuleResponse
	post(t, config, "/api/fraud-rules", RuleRequest{
		RuleName:        fmt.Sprintf("IT Strict Amount %d", time.Now().UnixNano()),
		RuleType:        "AMOUNT_THRESHOLD",
		ThresholdAmount: "100.00",
		RiskScore:       60.0,
		Active:          true,
	}, http.StatusCreated, &rule)

	// Clean up so the rule does not leak into other scenarios.
	defer func() {
		req, _ := http.NewRequest(http.MethodDelete, config.BaseURL+"/api/fraud-rules/"+rule.ID, nil)
		client := &http.Client{Timeout: 10 * time.Second}
		if resp, err := client.Do(req); err == nil {
			resp.Body.Close()
		}
	}()

	var reanalyzed TransactionResponse
	post(t, config, "/api/transactions/"+result.ID+"/reanalyze", nil, http.StatusOK, &reanalyzed)

	if reanalyzed.FraudScore != 60.0 {
		t.Errorf("Expected score 60.0 after reanalysis, got %.2f", reanalyzed.FraudScore)
	}
	if reanalyzed.FraudStatus != "SUSPICIOUS" {
		t.Errorf("Expected SUSPICIOUS after reanalysis, got %s", reanalyzed.FraudStatus)
	}

	t.Logf("✓ Reanalysis applied the new rule: status=%s, score=%.1f",
		reanalyzed.FraudStatus, reanalyzed.FraudScore)
}

// ============================================================================
// SCENARIO 6: Input Validation
// ============================================================================

func TestValidation(t *testing.T) {
	config := getTestConfig()
	client := &http.Client{Timeout: 10 * time.Second}

	cases := []struct {
		name string
		body string
		want int
	}{
		{"missing user", `{"amount":"10.00","transactionType":"PURCHASE"}`, http.StatusBadRequest},
		{"zero amount", `{"userId":"someone","amount":"0","transactionType":"PURCHASE"}`, http.StatusBadRequest},
		{"unknown type", `{"userId":"someone","amount":"10.00","transactionType":"WIRE"}`, http.StatusBadRequest},
		{"unknown user", `{"userId":"no-such-user","amount":"10.00","transactionType":"PURCHASE"}`, http.StatusNotFound},
		{"malformed json", `not-json`, http.StatusBadRequest},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, err := client.Post(config.BaseURL+"/api/transactions", "application/json",
				bytes.NewBufferString(tc.body))
			if err != nil {
				t.Fatalf("Request failed: %v", err)
			}
			resp.Body.Close()

			if resp.StatusCode != tc.want {
				t.Errorf("Expected %d, got %d", tc.want, resp.StatusCode)
			}
		})
	}
}

// ============================================================================
// SCENARIO 7: Health
// ============================================================================

func TestHealth(t *testing.T) {
	config := getTestConfig()
	client := &http.Client{Timeout: 10 * time.Second}

	resp, err := client.Get(config.BaseURL + "/health")
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}

	var health map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		t.Fatalf("Failed to decode health response: %v", err)
	}
	if health["status"] != "healthy" {
		t.Errorf("Expected healthy, got %s", health["status"])
	}

	t.Logf("✓ Health: %s (version %s)", health["status"], health["version"])
}
