package main

import (
	"bytes"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"go.uber.org/atomic"
)

const (
	baseURL          = "http://127.0.0.1:18090"
	numWorkers       = 50
	testDuration     = 10 * time.Second
	numGroups        = 5
	channelsPerGroup = 20
)

var platforms = []string{"twitch", "youtube", "tiktok"}

var historyRanges = []string{"30min", "1h", "5h", "1d"}

var httpClient = &http.Client{
	Timeout: 5 * time.Second,
	Transport: &http.Transport{
		MaxIdleConns:        200,
		MaxIdleConnsPerHost: 200,
		IdleConnTimeout:     30 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   2 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
	},
}

type result struct {
	endpoint string
	status   int
	latency  time.Duration
	err      bool
}

type stats struct {
	count     int64
	errors    int64
	latencies []time.Duration
}

type fixture struct {
	groups   []string
	channels []string
}

func main() {
	fmt.Println("=== StreamWatch Load Test ===")
	fmt.Printf("Workers: %d | Duration: %s\n", numWorkers, testDuration)
	fmt.Printf("Groups: %d | Channels per group: %d\n\n", numGroups, channelsPerGroup)

	// Wait for server
	fmt.Print("Waiting for server... ")
	for i := 0; i < 30; i++ {
		resp, err := httpClient.Get(baseURL + "/health")
		if err == nil {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			break
		}
		if i == 29 {
			fmt.Println("FAILED: server not responding")
			return
		}
		time.Sleep(200 * time.Millisecond)
	}
	fmt.Println("OK")

	fx, err := seed()
	if err != nil {
		fmt.Printf("FAILED: seeding: %s\n", err)
		return
	}

	// Phase 1: Ingest samples
	fmt.Println("\n--- Phase 1: Ingest (POST /samples) ---")
	runPhase(testDuration, func(rng *rand.Rand) result {
		return doIngest(rng, fx)
	})

	// Phase 2: Mixed read/write load
	fmt.Println("\n--- Phase 2: Mixed load (70% ingest, 30% reads) ---")
	runPhase(testDuration, func(rng *rand.Rand) result {
		r := rng.Float64()
		switch {
		case r < 0.70:
			return doIngest(rng, fx)
		case r < 0.80:
			return doGet("GET /dashboard", "/dashboard")
		case r < 0.90:
			return doGet("GET /group", "/group?id="+pick(rng, fx.groups))
		default:
			return doGet("GET /history", "/history?group="+pick(rng, fx.groups)+"&range="+pick(rng, historyRanges))
		}
	})

	// Phase 3: Read-heavy load
	fmt.Println("\n--- Phase 3: Read-heavy load (10% ingest, 90% reads) ---")
	runPhase(testDuration, func(rng *rand.Rand) result {
		r := rng.Float64()
		switch {
		case r < 0.10:
			return doIngest(rng, fx)
		case r < 0.40:
			return doGet("GET /dashboard", "/dashboard")
		case r < 0.60:
			return doGet("GET /group", "/group?id="+pick(rng, fx.groups))
		case r < 0.80:
			return doGet("GET /history", "/history?range="+pick(rng, historyRanges))
		default:
			return doGet("GET /channels", "/channels?group="+pick(rng, fx.groups))
		}
	})
}

func pick(rng *rand.Rand, values []string) string {
	return values[rng.Intn(len(values))]
}

func postJSON(path string, body any, out any) error {
	data, _ := json.Marshal(body)
	resp, err := httpClient.Post(baseURL+path, "application/json", bytes.NewReader(data))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		msg, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%s: %d %s", path, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func seed() (*fixture, error) {
	fx := &fixture{}
	for g := 0; g < numGroups; g++ {
		var group struct {
			ID string `json:"id"`
		}
		if err := postJSON("/groups", map[string]string{"name": fmt.Sprintf("load-%d", g)}, &group); err != nil {
			return nil, err
		}
		fx.groups = append(fx.groups, group.ID)

		for c := 0; c < channelsPerGroup; c++ {
			var ch struct {
				ID string `json:"id"`
			}
			body := map[string]string{
				"group_id":            group.ID,
				"platform":            platforms[c%len(platforms)],
				"platform_channel_id": fmt.Sprintf("load-%d-%d", g, c),
				"display_name":        fmt.Sprintf("channel %d/%d", g, c),
			}
			if err := postJSON("/channels", body, &ch); err != nil {
				return nil, err
			}
			fx.channels = append(fx.channels, ch.ID)
		}
	}
	fmt.Printf("Seeded %d groups, %d channels\n", len(fx.groups), len(fx.channels))
	return fx, nil
}

func runPhase(duration time.Duration, workFn func(rng *rand.Rand) result) {
	results := make(chan result, 10000)
	var wg sync.WaitGroup
	var totalOps atomic.Int64
	stop := make(chan struct{})

	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))
			for {
				select {
				case <-stop:
					return
				default:
					r := workFn(rng)
					totalOps.Add(1)
					results <- r
				}
			}
		}(rand.Int63() + int64(i))
	}

	allResults := make(map[string]*stats)
	done := make(chan struct{})
	go func() {
		for r := range results {
			s, ok := allResults[r.endpoint]
			if !ok {
				s = &stats{}
				allResults[r.endpoint] = s
			}
			s.count++
			if r.err {
				s.errors++
			}
			s.latencies = append(s.latencies, r.latency)
		}
		close(done)
	}()

	time.Sleep(duration)
	close(stop)
	wg.Wait()
	close(results)
	<-done

	printResults(allResults, duration)
}

func printResults(allResults map[string]*stats, duration time.Duration) {
	var totalOps int64
	var totalErrors int64

	endpoints := make([]string, 0, len(allResults))
	for ep := range allResults {
		endpoints = append(endpoints, ep)
	}
	sort.Strings(endpoints)

	fmt.Printf("\n  %-22s %8s %6s %10s %10s %10s %10s\n",
		"Endpoint", "Reqs", "Errs", "Avg", "P50", "P95", "P99")
	fmt.Println("  " + strings.Repeat("-", 88))

	for _, ep := range endpoints {
		s := allResults[ep]
		totalOps += s.count
		totalErrors += s.errors

		sort.Slice(s.latencies, func(i, j int) bool {
			return s.latencies[i] < s.latencies[j]
		})

		avg := avgDuration(s.latencies)
		p50 := percentile(s.latencies, 0.50)
		p95 := percentile(s.latencies, 0.95)
		p99 := percentile(s.latencies, 0.99)

		fmt.Printf("  %-22s %8d %6d %10s %10s %10s %10s\n",
			ep, s.count, s.errors, fmtDur(avg), fmtDur(p50), fmtDur(p95), fmtDur(p99))
	}

	rps := float64(totalOps) / duration.Seconds()
	fmt.Println("  " + strings.Repeat("-", 88))
	fmt.Printf("  Total: %d reqs | Errors: %d (%.1f%%) | RPS: %.0f\n",
		totalOps, totalErrors, float64(totalErrors)/float64(totalOps)*100, rps)
}

func doIngest(rng *rand.Rand, fx *fixture) result {
	live := rng.Float64() < 0.7
	viewers := 0
	if live {
		viewers = rng.Intn(50000)
	}
	body := map[string]interface{}{
		"channel_id":    pick(rng, fx.channels),
		"viewers_count": viewers,
		"is_live":       live,
	}

	data, _ := json.Marshal(body)
	start := time.Now()
	resp, err := httpClient.Post(baseURL+"/samples", "application/json", bytes.NewReader(data))
	lat := time.Since(start)
	if err != nil {
		return result{"POST /samples", 0, lat, true}
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return result{"POST /samples", resp.StatusCode, lat, resp.StatusCode != 201}
}

func doGet(endpoint, path string) result {
	start := time.Now()
	resp, err := httpClient.Get(baseURL + path)
	lat := time.Since(start)
	if err != nil {
		return result{endpoint, 0, lat, true}
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return result{endpoint, resp.StatusCode, lat, resp.StatusCode != 200}
}

func avgDuration(d []time.Duration) time.Duration {
	if len(d) == 0 {
		return 0
	}
	var sum time.Duration
	for _, v := range d {
		sum += v
	}
	return sum / time.Duration(len(d))
}

func percentile(d []time.Duration, p float64) time.Duration {
	if len(d) == 0 {
		return 0
	}
	idx := int(float64(len(d)) * p)
	if idx >= len(d) {
		idx = len(d) - 1
	}
	return d[idx]
}

func fmtDur(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%dus", d.Microseconds())
	}
	return fmt.Sprintf("%.1fms", float64(d.Microseconds())/1000.0)
}
