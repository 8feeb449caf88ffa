// README: Smoke cases: infrastructure reachability, fare quotes, the booking race, and load.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

const (
	statusPass = "PASS"
	statusFail = "FAIL"
	statusSkip = "SKIP"
)

type Runner struct {
	cfg   Config
	httpc *http.Client
	db    *pgxpool.Pool
	redis *redis.Client
}

type Result struct {
	Status  string
	Latency time.Duration
	Note    string
}

type TestCase struct {
	Name string
	Run  func(ctx context.Context, r *Runner) Result
}

func NewRunner(cfg Config) *Runner {
	return &Runner{
		cfg:   cfg,
		httpc: &http.Client{Timeout: 10 * time.Second},
	}
}

func (r *Runner) RunAll(ctx context.Context) []Result {
	if r.cfg.DSN != "" {
		if db, err := pgxpool.New(ctx, r.cfg.DSN); err == nil {
			r.db = db
		}
	}
	if r.cfg.RedisAddr != "" {
		r.redis = redis.NewClient(&redis.Options{Addr: r.cfg.RedisAddr})
	}

	tests := r.cases()
	results := make([]Result, 0, len(tests))
	for _, tc := range tests {
		res := tc.Run(ctx, r)
		results = append(results, res)
		fmt.Printf("%-5s %s", res.Status, tc.Name)
		if res.Latency > 0 {
			fmt.Printf(" (%s)", res.Latency)
		}
		if res.Note != "" {
			fmt.Printf(" - %s", res.Note)
		}
		fmt.Println()
	}

	if r.db != nil {
		r.db.Close()
	}
	if r.redis != nil {
		_ = r.redis.Close()
	}
	return results
}

func (r *Runner) cases() []TestCase {
	base := r.cfg.BaseURL
	return []TestCase{
		{Name: "Env: Postgres connect", Run: pingDB},
		{Name: "Env: Redis connect", Run: pingRedis},
		{Name: "Migration: apply (optional)", Run: applyMigration},
		{Name: "Migration: tables exist", Run: tablesExist},

		httpCase("API: health", http.MethodGet, base+"/health", "", nil, http.StatusOK),
		httpCase("API: metrics", http.MethodGet, base+"/metrics", "", nil, http.StatusOK),

		httpCase("Fare: quote by barangay", http.MethodGet, base+"/api/fare/calculate?pickup=Bamban&dropoff=Binambang", "", nil, http.StatusOK),
		httpCase("Fare: quote by distance", http.MethodPost, base+"/api/fare/calculate", "", map[string]any{"distance": 3.5}, http.StatusOK),
		httpCase("Fare: missing input -> 400", http.MethodGet, base+"/api/fare/calculate", "", nil, http.StatusBadRequest),

		httpCase("Auth: missing token -> 401", http.MethodGet, base+"/api/bookings/mine", "", nil, http.StatusUnauthorized),
		authCase(r.cfg.RiderToken, httpCase("Booking: rider lists own", http.MethodGet, base+"/api/bookings/mine", r.cfg.RiderToken, nil, http.StatusOK)),
		authCase(r.cfg.RiderToken, httpCase("Booking: create (invalid payment -> 400)", http.MethodPost, base+"/api/bookings", r.cfg.RiderToken,
			bookingPayload("barter"), http.StatusBadRequest)),
		authCase(r.cfg.DriverToken, httpCase("Booking: driver lists open", http.MethodGet, base+"/api/bookings/open", r.cfg.DriverToken, nil, http.StatusOK)),
		authCase(r.cfg.RiderToken, httpCase("Booking: rider cannot list open -> 403", http.MethodGet, base+"/api/bookings/open", r.cfg.RiderToken, nil, http.StatusForbidden)),
		authCase(r.cfg.RiderToken, httpCase("Drivers: nearby", http.MethodGet, base+"/api/drivers/nearby?lat=13.94&lng=121.62", r.cfg.RiderToken, nil, http.StatusOK)),

		{Name: "Concurrency: one winner per accept race", Run: concurrentAccept},
		{Name: "Perf: fare quote throughput", Run: func(ctx context.Context, r *Runner) Result {
			return perfLoad(ctx, r, http.MethodGet, base+"/api/fare/calculate?distance=4", "")
		}},
		{Name: "Perf: nearby throughput", Run: func(ctx context.Context, r *Runner) Result {
			if r.cfg.RiderToken == "" {
				return Result{Status: statusSkip, Note: "rider token not set"}
			}
			return perfLoad(ctx, r, http.MethodGet, base+"/api/drivers/nearby?lat=13.94&lng=121.62", r.cfg.RiderToken)
		}},
	}
}

func bookingPayload(payment string) map[string]any {
	return map[string]any{
		"pickupLocation": map[string]any{
			"address":     "Smoke pickup",
			"barangay":    "Bamban",
			"coordinates": map[string]float64{"lat": 13.94, "lng": 121.62},
		},
		"dropoffLocation": map[string]any{
			"address":     "Smoke dropoff",
			"barangay":    "Binambang",
			"coordinates": map[string]float64{"lat": 13.95, "lng": 121.63},
		},
		"paymentMethod": payment,
	}
}

func pingDB(ctx context.Context, r *Runner) Result {
	if r.db == nil {
		return Result{Status: statusFail, Note: "db not configured"}
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := r.db.Ping(ctx); err != nil {
		return Result{Status: statusFail, Note: err.Error()}
	}
	return Result{Status: statusPass}
}

func pingRedis(ctx context.Context, r *Runner) Result {
	if r.redis == nil {
		return Result{Status: statusFail, Note: "redis not configured"}
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := r.redis.Ping(ctx).Err(); err != nil {
		return Result{Status: statusFail, Note: err.Error()}
	}
	return Result{Status: statusPass}
}

func applyMigration(ctx context.Context, r *Runner) Result {
	if !r.cfg.ApplyMigration {
		return Result{Status: statusSkip, Note: "apply-migration=false"}
	}
	if r.db == nil {
		return Result{Status: statusFail, Note: "db not configured"}
	}
	sql, err := os.ReadFile(r.cfg.MigrationPath)
	if err != nil {
		return Result{Status: statusFail, Note: err.Error()}
	}
	for _, s := range splitSQL(string(sql)) {
		if _, err := r.db.Exec(ctx, s); err != nil {
			return Result{Status: statusFail, Note: err.Error()}
		}
	}
	return Result{Status: statusPass}
}

func tablesExist(ctx context.Context, r *Runner) Result {
	if r.db == nil {
		return Result{Status: statusFail, Note: "db not configured"}
	}
	tables, err := extractTables(r.cfg.MigrationPath)
	if err != nil {
		return Result{Status: statusFail, Note: err.Error()}
	}
	for _, t := range tables {
		var exists bool
		err := r.db.QueryRow(ctx,
			"SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name=$1)",
			t,
		).Scan(&exists)
		if err != nil {
			return Result{Status: statusFail, Note: err.Error()}
		}
		if !exists {
			return Result{Status: statusFail, Note: "missing table: " + t}
		}
	}
	return Result{Status: statusPass, Note: fmt.Sprintf("%d tables", len(tables))}
}

// authCase skips tc when the token it needs was not supplied.
func authCase(token string, tc TestCase) TestCase {
	if token != "" {
		return tc
	}
	return TestCase{Name: tc.Name, Run: func(context.Context, *Runner) Result {
		return Result{Status: statusSkip, Note: "token not set"}
	}}
}

func (r *Runner) send(ctx context.Context, method, url, token string, body any) (int, []byte, time.Duration, error) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return 0, nil, 0, err
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return 0, nil, 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	start := time.Now()
	resp, err := r.httpc.Do(req)
	if err != nil {
		return 0, nil, 0, err
	}
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	return resp.StatusCode, out, time.Since(start), err
}

func httpCase(name, method, url, token string, body any, want int) TestCase {
	return TestCase{
		Name: name,
		Run: func(ctx context.Context, r *Runner) Result {
			code, _, latency, err := r.send(ctx, method, url, token, body)
			if err != nil {
				return Result{Status: statusFail, Note: err.Error()}
			}
			if code == want {
				return Result{Status: statusPass, Latency: latency, Note: fmt.Sprintf("status=%d", code)}
			}
			return Result{Status: statusFail, Latency: latency, Note: fmt.Sprintf("status=%d want=%d", code, want)}
		},
	}
}

// concurrentAccept creates one booking and fires accepts at it from
// Concurrency clients at once. Exactly one must win.
func concurrentAccept(ctx context.Context, r *Runner) Result {
	if r.cfg.RiderToken == "" || r.cfg.DriverToken == "" {
		return Result{Status: statusSkip, Note: "rider and driver tokens required"}
	}
	code, body, _, err := r.send(ctx, http.MethodPost, r.cfg.BaseURL+"/api/bookings", r.cfg.RiderToken, bookingPayload("cash"))
	if err != nil || code != http.StatusCreated {
		return Result{Status: statusFail, Note: fmt.Sprintf("create booking: status=%d err=%v", code, err)}
	}
	var created struct {
		Booking struct {
			ID string `json:"id"`
		} `json:"booking"`
	}
	if err := json.Unmarshal(body, &created); err != nil || created.Booking.ID == "" {
		return Result{Status: statusFail, Note: "create booking: unreadable response"}
	}
	url := r.cfg.BaseURL + "/api/bookings/" + created.Booking.ID + "/accept"

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succ      int
		conflicts int
	)
	start := make(chan struct{})
	for i := 0; i < r.cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			code, _, _, err := r.send(ctx, http.MethodPost, url, r.cfg.DriverToken, nil)
			if err != nil {
				return
			}
			mu.Lock()
			defer mu.Unlock()
			switch code {
			case http.StatusOK:
				succ++
			case http.StatusConflict:
				conflicts++
			}
		}()
	}
	close(start)
	wg.Wait()

	note := fmt.Sprintf("success=%d conflict=%d", succ, conflicts)
	if succ == 1 {
		return Result{Status: statusPass, Note: note}
	}
	return Result{Status: statusFail, Note: note}
}

func perfLoad(ctx context.Context, r *Runner, method, url, token string) Result {
	end := time.Now().Add(r.cfg.Duration)
	var (
		count, errCount int64
		mu              sync.Mutex
		wg              sync.WaitGroup
	)
	for i := 0; i < r.cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for time.Now().Before(end) && ctx.Err() == nil {
				code, _, _, err := r.send(ctx, method, url, token, nil)
				mu.Lock()
				if err != nil || code >= 500 {
					errCount++
				} else {
					count++
				}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if count == 0 {
		return Result{Status: statusFail, Note: "no requests completed"}
	}
	rps := float64(count) / r.cfg.Duration.Seconds()
	return Result{Status: statusPass, Note: fmt.Sprintf("rps=%.1f errors=%d", rps, errCount)}
}

func extractTables(path string) ([]string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	re := regexp.MustCompile(`(?i)create\s+table\s+if\s+not\s+exists\s+([a-zA-Z0-9_]+)`)
	matches := re.FindAllStringSubmatch(string(b), -1)
	tables := make([]string, 0, len(matches))
	for _, m := range matches {
		tables = append(tables, m[1])
	}
	return tables, nil
}

func splitSQL(sql string) []string {
	lines := strings.Split(sql, "\n")
	filtered := make([]string, 0, len(lines))
	for _, line := range lines {
		l := strings.TrimSpace(line)
		if strings.HasPrefix(l, "--") || l == "" {
			continue
		}
		filtered = append(filtered, line)
	}
	parts := strings.Split(strings.Join(filtered, "\n"), ";")
	stmts := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			stmts = append(stmts, s)
		}
	}
	return stmts
}
