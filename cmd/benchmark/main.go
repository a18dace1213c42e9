// Benchmark tool for load-testing the ratesvc quote endpoint.
//
// Usage:
//   go run cmd/benchmark/main.go -url http://localhost:8080 -n 10000
//   go run cmd/benchmark/main.go -csv /path/to/trips.csv
//
// This tool:
//  1. Reads trip data from a CSV (origin,destination,vehicleType,distance,weight,volume)
//     or generates synthetic trips over a fixed lane set
//  2. Sends each trip to POST /quote with concurrent workers
//  3. Reports throughput, latency percentiles, and the priced/unpriced split
package main

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

// Trip is one request to price.
type Trip struct {
	Origin      string  `json:"origin"`
	Destination string  `json:"destination"`
	VehicleType string  `json:"vehicleType"`
	Distance    float64 `json:"distance"`
	Weight      float64 `json:"weight"`
	Volume      float64 `json:"volume"`
}

// QuoteResponse is the subset of the API response the benchmark inspects.
type QuoteResponse struct {
	QuoteID  string `json:"quoteId"`
	RuleID   string `json:"ruleId"`
	Currency string `json:"currency"`
	Total    float64 `json:"total"`
}

// Metrics tracks benchmark results.
type Metrics struct {
	Priced     int64 // 200: a rule matched and a quote was produced
	Unpriced   int64 // 422: no applicable rule or conditions not met
	Errors     int64 // transport failures and 5xx responses
	TotalSent  int64

	mu        sync.Mutex
	latencies []time.Duration
}

func (m *Metrics) record(d time.Duration) {
	m.mu.Lock()
	m.latencies = append(m.latencies, d)
	m.mu.Unlock()
}

func (m *Metrics) percentile(p float64) time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.latencies) == 0 {
		return 0
	}
	sorted := make([]time.Duration, len(m.latencies))
	copy(sorted, m.latencies)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	idx := int(float64(len(sorted)-1) * p)
	return sorted[idx]
}

var lanes = [][2]string{
	{"MUM", "DEL"},
	{"DEL", "BLR"},
	{"BLR", "HYD"},
	{"HYD", "CHN"},
	{"CHN", "MUM"},
	{"MUM", "PUN"},
}

var vehicleTypes = []string{"32FT_MXL", "32FT_SXL", "20FT_CONTAINER", "TATA_ACE"}

func main() {
	csvPath := flag.String("csv", "", "Path to trips CSV file (optional)")
	baseURL := flag.String("url", "http://localhost:8080", "ratesvc base URL")
	tenantID := flag.String("tenant", "benchmark-test", "Tenant ID for requests")
	count := flag.Int("n", 10000, "Number of synthetic trips when no CSV is given")
	limit := flag.Int("limit", 0, "Maximum CSV rows to process (0 = all)")
	workers := flag.Int("workers", 10, "Number of concurrent workers")
	verbose := flag.Bool("verbose", false, "Print each trip result")
	flag.Parse()

	fmt.Println("ratesvc benchmark - quote load test")
	fmt.Printf("\nTarget URL:  %s\n", *baseURL)
	fmt.Printf("Tenant ID:   %s\n", *tenantID)
	fmt.Printf("Workers:     %d\n", *workers)
	fmt.Println()

	if err := checkHealth(*baseURL); err != nil {
		fmt.Printf("ERROR: ratesvc not reachable at %s: %v\n", *baseURL, err)
		fmt.Println("\nMake sure ratesvc is running:")
		fmt.Println("  go run cmd/ratesvc/main.go")
		os.Exit(1)
	}
	fmt.Println("ratesvc is healthy")

	var trips []Trip
	var err error
	if *csvPath != "" {
		fmt.Printf("\nReading trips from %s...\n", *csvPath)
		trips, err = readTripsCSV(*csvPath, *limit)
		if err != nil {
			fmt.Printf("ERROR: Failed to read CSV: %v\n", err)
			os.Exit(1)
		}
	} else {
		trips = generateTrips(*count)
	}
	fmt.Printf("Loaded %d trips\n", len(trips))

	fmt.Printf("\nRunning benchmark with %d workers...\n", *workers)
	startTime := time.Now()
	metrics := runBenchmark(trips, *baseURL, *tenantID, *workers, *verbose)
	duration := time.Since(startTime)

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

func readTripsCSV(path string, limit int) ([]Trip, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	colIndex := make(map[string]int)
	for i, col := range header {
		colIndex[col] = i
	}

	var trips []Trip
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue // Skip malformed rows
		}

		distance, _ := strconv.ParseFloat(record[colIndex["distance"]], 64)
		weight, _ := strconv.ParseFloat(record[colIndex["weight"]], 64)
		volume, _ := strconv.ParseFloat(record[colIndex["volume"]], 64)

		trips = append(trips, Trip{
			Origin:      record[colIndex["origin"]],
			Destination: record[colIndex["destination"]],
			VehicleType: record[colIndex["vehicleType"]],
			Distance:    distance,
			Weight:      weight,
			Volume:      volume,
		})

		if limit > 0 && len(trips) >= limit {
			break
		}
	}

	return trips, nil
}

func generateTrips(n int) []Trip {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	trips := make([]Trip, n)
	for i := range trips {
		lane := lanes[rng.Intn(len(lanes))]
		trips[i] = Trip{
			Origin:      lane[0],
			Destination: lane[1],
			VehicleType: vehicleTypes[rng.Intn(len(vehicleTypes))],
			Distance:    100 + rng.Float64()*1900,
			Weight:      1 + rng.Float64()*24,
			Volume:      5 + rng.Float64()*55,
		}
	}
	return trips
}

func runBenchmark(trips []Trip, baseURL, tenantID string, numWorkers int, verbose bool) *Metrics {
	metrics := &Metrics{}

	work := make(chan Trip, 100)
	var wg sync.WaitGroup

	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			client := &http.Client{Timeout: 10 * time.Second}

			for trip := range work {
				start := time.Now()
				result, status, err := priceTrip(client, baseURL, tenantID, trip)
				elapsed := time.Since(start)

				metrics.record(elapsed)
				atomic.AddInt64(&metrics.TotalSent, 1)

				switch {
				case err != nil:
					atomic.AddInt64(&metrics.Errors, 1)
					if verbose {
						fmt.Printf("ERROR: %s->%s -> %v\n", trip.Origin, trip.Destination, err)
					}
				case status == http.StatusUnprocessableEntity:
					atomic.AddInt64(&metrics.Unpriced, 1)
				case status == http.StatusOK:
					atomic.AddInt64(&metrics.Priced, 1)
					if verbose {
						fmt.Printf("%s->%s | %-14s | %7.1f km | rule %-12s | %s %.2f | %v\n",
							trip.Origin,
							trip.Destination,
							trip.VehicleType,
							trip.Distance,
							result.RuleID,
							result.Currency,
							result.Total,
							elapsed.Round(time.Microsecond),
						)
					}
				default:
					atomic.AddInt64(&metrics.Errors, 1)
				}
			}
		}()
	}

	for _, trip := range trips {
		work <- trip
	}
	close(work)

	wg.Wait()

	return metrics
}

func priceTrip(client *http.Client, baseURL, tenantID string, trip Trip) (*QuoteResponse, int, error) {
	body, err := json.Marshal(trip)
	if err != nil {
		return nil, 0, err
	}

	httpReq, err := http.NewRequest(http.MethodPost, baseURL+"/quote", bytes.NewReader(body))
	if err != nil {
		return nil, 0, err
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Tenant-ID", tenantID)

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, resp.StatusCode, nil
	}

	var result QuoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, resp.StatusCode, err
	}

	return &result, resp.StatusCode, nil
}

func printResults(m *Metrics, duration time.Duration) {
	fmt.Println("\nBENCHMARK RESULTS")
	fmt.Println("=================")

	fmt.Printf("\nRequests\n")
	fmt.Printf("   Total Sent:  %d\n", m.TotalSent)
	fmt.Printf("   Priced:      %d\n", m.Priced)
	fmt.Printf("   Unpriced:    %d  (no applicable rule / conditions not met)\n", m.Unpriced)
	fmt.Printf("   Errors:      %d\n", m.Errors)

	fmt.Printf("\nLatency\n")
	fmt.Printf("   p50:         %v\n", m.percentile(0.50).Round(time.Microsecond))
	fmt.Printf("   p90:         %v\n", m.percentile(0.90).Round(time.Microsecond))
	fmt.Printf("   p99:         %v\n", m.percentile(0.99).Round(time.Microsecond))
	fmt.Printf("   max:         %v\n", m.percentile(1.00).Round(time.Microsecond))

	fmt.Printf("\nThroughput\n")
	fmt.Printf("   Duration:    %v\n", duration.Round(time.Millisecond))
	if m.TotalSent > 0 {
		fmt.Printf("   Rate:        %.2f quotes/sec\n", float64(m.TotalSent)/duration.Seconds())
	}

	if m.TotalSent > 0 && m.Errors > m.TotalSent/10 {
		fmt.Println("\nWARNING: more than 10% of requests failed; results are unreliable")
	}

	fmt.Println()
}
