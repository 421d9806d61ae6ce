// Benchmark tool for load-testing Kestrel with synthetic transactions.
//
// Usage:
//   go run cmd/benchmark/main.go -url http://localhost:8080 -count 10000
//
// This tool:
//   1. Registers a pool of benchmark users
//   2. Generates a labeled mix of normal and fraud-patterned transactions
//   3. Sends each transaction to Kestrel for analysis
//   4. Compares Kestrel's verdict with the injected labels
//   5. Calculates precision, recall, F1-score, and confusion matrix
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

// BenchTransaction is one generated transaction plus its injected label.
type BenchTransaction struct {
	UserID           string
	Amount           float64
	TransactionType  string
	MerchantName     string
	MerchantCategory string
	Location         string
	OccurredAt       time.Time
	ExpectFraud      bool
}

// CreateRequest is the Kestrel transaction intake format.
type CreateRequest struct {
	UserID           string  `json:"userId"`
	Amount           float64 `json:"amount"`
	TransactionType  string  `json:"transactionType"`
	MerchantName     string  `json:"merchantName,omitempty"`
	MerchantCategory string  `json:"merchantCategory,omitempty"`
	Location         string  `json:"location,omitempty"`
	OccurredAt       string  `json:"occurredAt,omitempty"`
}

// CreateResponse is the analyzed transaction Kestrel returns.
type CreateResponse struct {
	ID          string  `json:"id"`
	FraudStatus string  `json:"fraudStatus"`
	FraudScore  float64 `json:"fraudScore"`
	FraudReason string  `json:"fraudReason"`
}

// UserRequest registers a benchmark user.
type UserRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

// UserResponse carries the assigned user ID.
type UserResponse struct {
	ID string `json:"id"`
}

// Metrics tracks benchmark results
type Metrics struct {
	TruePositives  int64 // Injected fraud flagged SUSPICIOUS/FRAUDULENT
	FalsePositives int64 // Normal traffic flagged
	TrueNegatives  int64 // Normal traffic passed
	FalseNegatives int64 // Injected fraud passed (missed fraud!)

	TotalProcessed int64
	TotalFraud     int64
	TotalNonFraud  int64
	TotalErrors    int64

	ProcessingTimeMs int64
}

var merchantPool = []struct {
	name     string
	category string
}{
	{"Amazon", "RETAIL"},
	{"Whole Foods", "GROCERY"},
	{"Shell Station", "FUEL"},
	{"Netflix", "ENTERTAINMENT"},
	{"Delta Airlines", "TRAVEL"},
	{"Starbucks", "RESTAURANT"},
}

var fraudMerchantPool = []struct {
	name     string
	category string
}{
	{"Lucky Spin Casino", "GAMBLING"},
	{"CoinSwap Exchange", "CRYPTOCURRENCY"},
	{"QuickCash Kiosk", "CASH_ADVANCE"},
}

func main() {
	// Parse flags
	baseURL := flag.String("url", "http://localhost:8080", "Kestrel base URL")
	count := flag.Int("count", 10000, "Number of transactions to send")
	users := flag.Int("users", 50, "Number of benchmark users to register")
	workers := flag.Int("workers", 10, "Number of concurrent workers")
	fraudRate := flag.Float64("fraud-rate", 0.1, "Fraction of transactions with injected fraud patterns (0.0-1.0)")
	seedVal := flag.Int64("seed", 0, "Random seed (0 = time-based)")
	verbose := flag.Bool("verbose", false, "Print each transaction result")
	flag.Parse()

	if *count <= 0 || *users <= 0 {
		fmt.Println("Usage: benchmark [-url http://localhost:8080] [-count 10000] [-users 50]")
		fmt.Println("\nFlags:")
		flag.PrintDefaults()
		os.Exit(1)
	}

	fmt.Println("╔═══════════════════════════════════════════════════════════════╗")
	fmt.Println("║          KESTREL BENCHMARK - Synthetic Fraud Traffic          ║")
	fmt.Println("╚═══════════════════════════════════════════════════════════════╝")
	fmt.Printf("\nKestrel URL: %s\n", *baseURL)
	fmt.Printf("Count:       %d\n", *count)
	fmt.Printf("Users:       %d\n", *users)
	fmt.Printf("Workers:     %d\n", *workers)
	fmt.Printf("Fraud Rate:  %.2f\n", *fraudRate)
	fmt.Println()

	// Check Kestrel is running
	if err := checkHealth(*baseURL); err != nil {
		fmt.Printf("ERROR: Kestrel not reachable at %s: %v\n", *baseURL, err)
		fmt.Println("\nMake sure Kestrel is running:")
		fmt.Println("  go run cmd/kestrel/main.go")
		os.Exit(1)
	}
	fmt.Println("✓ Kestrel is healthy")

	seed := *seedVal
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	// Register benchmark users
	fmt.Printf("\nRegistering %d benchmark users...\n", *users)
	userIDs, err := registerUsers(*baseURL, *users)
	if err != nil {
		fmt.Printf("ERROR: Failed to register users: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("✓ Registered %d users\n", len(userIDs))

	// Generate labeled traffic
	transactions := generateTransactions(rng, userIDs, *count, *fraudRate)
	fraudCount := 0
	for _, tx := range transactions {
		if tx.ExpectFraud {
			fraudCount++
		}
	}
	fmt.Printf("✓ Generated %d transactions\n", len(transactions))
	fmt.Printf("  - Fraud-patterned: %d (%.2f%%)\n", fraudCount, 100*float64(fraudCount)/float64(len(transactions)))
	fmt.Printf("  - Normal:          %d (%.2f%%)\n", len(transactions)-fraudCount, 100*float64(len(transactions)-fraudCount)/float64(len(transactions)))

	// Run benchmark
	fmt.Printf("\nRunning benchmark with %d workers...\n", *workers)
	startTime := time.Now()
	metrics := runBenchmark(transactions, *baseURL, *workers, *verbose)
	duration := time.Since(startTime)

	// Print results
	printResults(metrics, duration)
}

func checkHealth(baseURL string) error {
	resp, err := http.Get(baseURL + "/health")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d", resp.StatusCode)
	}
	return nil
}

func registerUsers(baseURL string, count int) ([]string, error) {
	client := &http.Client{Timeout: 10 * time.Second}
	stamp := time.Now().UnixNano()

	ids := make([]string, 0, count)
	for i := 0; i < count; i++ {
		req := UserRequest{
			Username: fmt.Sprintf("bench_user_%d_%d", stamp, i),
			Email:    fmt.Sprintf("bench_%d_%d@example.com", stamp, i),
		}

		body, err := json.Marshal(req)
		if err != nil {
			return nil, err
		}

		resp, err := client.Post(baseURL+"/api/users", "application/json", bytes.NewReader(body))
		if err != nil {
			return nil, err
		}

		if resp.StatusCode != http.StatusCreated {
			resp.Body.Close()
			return nil, fmt.Errorf("create user: status %d", resp.StatusCode)
		}

		var user UserResponse
		if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
			resp.Body.Close()
			return nil, err
		}
		resp.Body.Close()

		ids = append(ids, user.ID)
	}

	return ids, nil
}

func generateTransactions(rng *rand.Rand, userIDs []string, count int, fraudRate float64) []BenchTransaction {
	txTypes := []string{"PURCHASE", "WITHDRAWAL", "TRANSFER", "PAYMENT"}
	locations := []string{"New York, US", "Chicago, US", "Austin, US", "Seattle, US"}

	// Daytime base hour keeps normal traffic away from the unusual-hour window.
	base := time.Now().UTC()
	noon := time.Date(base.Year(), base.Month(), base.Day(), 12, 0, 0, 0, time.UTC)

	transactions := make([]BenchTransaction, 0, count)
	for i := 0; i < count; i++ {
		userID := userIDs[rng.Intn(len(userIDs))]
		isFraud := rng.Float64() < fraudRate

		tx := BenchTransaction{
			UserID:          userID,
			TransactionType: txTypes[rng.Intn(len(txTypes))],
			Location:        locations[rng.Intn(len(locations))],
			OccurredAt:      noon.Add(-time.Duration(rng.Intn(180)) * time.Minute),
			ExpectFraud:     isFraud,
		}

		if isFraud {
			// Stack at least two fraud signals so the score clears the
			// SUSPICIOUS threshold.
			tx.Amount = 10000 + rng.Float64()*40000
			merchant := fraudMerchantPool[rng.Intn(len(fraudMerchantPool))]
			tx.MerchantName = merchant.name
			tx.MerchantCategory = merchant.category
			if rng.Float64() < 0.5 {
				early := tx.OccurredAt
				tx.OccurredAt = time.Date(early.Year(), early.Month(), early.Day(),
					2+rng.Intn(4), rng.Intn(60), 0, 0, time.UTC)
			}
		} else {
			tx.Amount = 5 + rng.Float64()*495
			merchant := merchantPool[rng.Intn(len(merchantPool))]
			tx.MerchantName = merchant.name
			tx.MerchantCategory = merchant.category
		}

		transactions = append(transactions, tx)
	}

	return transactions
}

func runBenchmark(transactions []BenchTransaction, baseURL string, numWorkers int, verbose bool) *Metrics {
	metrics := &Metrics{}

	// Create work channel
	work := make(chan BenchTransaction, 100)
	var wg sync.WaitGroup

	// Start workers
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			client := &http.Client{Timeout: 10 * time.Second}

			for tx := range work {
				start := time.Now()
				result, err := submitTransaction(client, baseURL, tx)
				elapsed := time.Since(start).Milliseconds()

				atomic.AddInt64(&metrics.ProcessingTimeMs, elapsed)
				atomic.AddInt64(&metrics.TotalProcessed, 1)

				if err != nil {
					atomic.AddInt64(&metrics.TotalErrors, 1)
					if verbose {
						fmt.Printf("ERROR: %s -> %v\n", tx.UserID, err)
					}
					continue
				}

				// Track injected labels
				if tx.ExpectFraud {
					atomic.AddInt64(&metrics.TotalFraud, 1)
				} else {
					atomic.AddInt64(&metrics.TotalNonFraud, 1)
				}

				// Calculate confusion matrix
				predicted := result.FraudStatus == "SUSPICIOUS" || result.FraudStatus == "FRAUDULENT"
				actual := tx.ExpectFraud

				if predicted && actual {
					atomic.AddInt64(&metrics.TruePositives, 1)
				} else if predicted && !actual {
					atomic.AddInt64(&metrics.FalsePositives, 1)
				} else if !predicted && !actual {
					atomic.AddInt64(&metrics.TrueNegatives, 1)
				} else { // !predicted && actual
					atomic.AddInt64(&metrics.FalseNegatives, 1)
				}

				if verbose {
					status := "✓"
					if (predicted && !actual) || (!predicted && actual) {
						status = "✗"
					}
					fmt.Printf("%s %-36s | Type: %-10s | Amount: $%10.2f | Injected: %-5v | Kestrel: %-10s (%.1f)\n",
						status,
						tx.UserID,
						tx.TransactionType,
						tx.Amount,
						tx.ExpectFraud,
						result.FraudStatus,
						result.FraudScore,
					)
				}
			}
		}()
	}

	// Send work
	for _, tx := range transactions {
		work <- tx
	}
	close(work)

	// Wait for completion
	wg.Wait()

	return metrics
}

func submitTransaction(client *http.Client, baseURL string, tx BenchTransaction) (*CreateResponse, error) {
	req := CreateRequest{
		UserID:           tx.UserID,
		Amount:           tx.Amount,
		TransactionType:  tx.TransactionType,
		MerchantName:     tx.MerchantName,
		MerchantCategory: tx.MerchantCategory,
		Location:         tx.Location,
		OccurredAt:       tx.OccurredAt.Format(time.RFC3339),
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequest(http.MethodPost, baseURL+"/api/transactions", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	var result CreateResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}

	return &result, nil
}

func printResults(m *Metrics, duration time.Duration) {
	fmt.Println("\n╔═══════════════════════════════════════════════════════════════╗")
	fmt.Println("║                      BENCHMARK RESULTS                        ║")
	fmt.Println("╚═══════════════════════════════════════════════════════════════╝")

	fmt.Printf("\n📊 TRAFFIC STATISTICS\n")
	fmt.Printf("   Total Processed:  %d\n", m.TotalProcessed)
	fmt.Printf("   Fraud-Patterned:  %d\n", m.TotalFraud)
	fmt.Printf("   Normal:           %d\n", m.TotalNonFraud)
	fmt.Printf("   Errors:           %d\n", m.TotalErrors)

	fmt.Printf("\n📈 CONFUSION MATRIX\n")
	fmt.Println("                        Predicted")
	fmt.Println("                   Flagged      Passed")
	fmt.Println("              ┌──────────┬──────────┐")
	fmt.Printf("   Actual  F  │ %8d │ %8d │  (TP, FN)\n", m.TruePositives, m.FalseNegatives)
	fmt.Println("              ├──────────┼──────────┤")
	fmt.Printf("          NF  │ %8d │ %8d │  (FP, TN)\n", m.FalsePositives, m.TrueNegatives)
	fmt.Println("              └──────────┴──────────┘")

	// Calculate metrics
	precision := float64(0)
	if m.TruePositives+m.FalsePositives > 0 {
		precision = float64(m.TruePositives) / float64(m.TruePositives+m.FalsePositives)
	}

	recall := float64(0)
	if m.TruePositives+m.FalseNegatives > 0 {
		recall = float64(m.TruePositives) / float64(m.TruePositives+m.FalseNegatives)
	}

	f1 := float64(0)
	if precision+recall > 0 {
		f1 = 2 * (precision * recall) / (precision + recall)
	}

	accuracy := float64(0)
	total := m.TruePositives + m.TrueNegatives + m.FalsePositives + m.FalseNegatives
	if total > 0 {
		accuracy = float64(m.TruePositives+m.TrueNegatives) / float64(total)
	}

	fmt.Printf("\n🎯 DETECTION METRICS\n")
	fmt.Printf("   Precision:  %.4f  (of flags, how many were injected fraud)\n", precision)
	fmt.Printf("   Recall:     %.4f  (of injected fraud, how many did we catch)\n", recall)
	fmt.Printf("   F1-Score:   %.4f  (harmonic mean of precision & recall)\n", f1)
	fmt.Printf("   Accuracy:   %.4f  (overall correct predictions)\n", accuracy)

	// Detection rate analysis
	fmt.Printf("\n🔍 DETECTION ANALYSIS\n")
	if m.TotalFraud > 0 {
		detectionRate := float64(m.TruePositives) / float64(m.TotalFraud) * 100
		missRate := float64(m.FalseNegatives) / float64(m.TotalFraud) * 100
		fmt.Printf("   Fraud Detected:    %d / %d (%.2f%%)\n", m.TruePositives, m.TotalFraud, detectionRate)
		fmt.Printf("   Fraud Missed:      %d / %d (%.2f%%) ⚠️\n", m.FalseNegatives, m.TotalFraud, missRate)
	}
	if m.TotalNonFraud > 0 {
		falseAlarmRate := float64(m.FalsePositives) / float64(m.TotalNonFraud) * 100
		fmt.Printf("   False Alarms:      %d / %d (%.2f%%)\n", m.FalsePositives, m.TotalNonFraud, falseAlarmRate)
	}

	fmt.Printf("\n⏱️  PERFORMANCE\n")
	fmt.Printf("   Total Duration:   %v\n", duration.Round(time.Millisecond))
	if m.TotalProcessed > 0 {
		avgMs := float64(m.ProcessingTimeMs) / float64(m.TotalProcessed)
		tps := float64(m.TotalProcessed) / duration.Seconds()
		fmt.Printf("   Avg Latency:      %.2f ms\n", avgMs)
		fmt.Printf("   Throughput:       %.2f tx/sec\n", tps)
	}

	// Interpretation
	fmt.Printf("\n💡 INTERPRETATION\n")
	if recall >= 0.9 {
		fmt.Println("   ✅ Excellent recall - catching most fraud")
	} else if recall >= 0.7 {
		fmt.Println("   ⚠️  Good recall - but missing some fraud")
	} else if recall >= 0.5 {
		fmt.Println("   ⚠️  Moderate recall - significant fraud being missed")
	} else {
		fmt.Println("   ❌ Poor recall - most fraud is being missed!")
	}

	if precision >= 0.5 {
		fmt.Println("   ✅ Good precision - alerts are meaningful")
	} else if precision >= 0.2 {
		fmt.Println("   ⚠️  Low precision - many false alarms")
	} else {
		fmt.Println("   ❌ Very low precision - mostly false alarms")
	}

	fmt.Println()
}
