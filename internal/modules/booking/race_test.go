// README: Postgres-backed concurrency tests for booking transitions (run with -race).
package booking

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"hatid/internal/logging"
	"hatid/internal/types"
)

func TestPgConcurrentAcceptSameBooking(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)
	svc := NewService(store, nil, nil, logging.Discard(), Options{})

	b, err := svc.Create(ctx, createCommand())
	if err != nil {
		t.Fatalf("create booking: %v", err)
	}

	const attempts = 8
	var wg sync.WaitGroup
	start := make(chan struct{})
	errs := make(chan error, attempts)

	for i := 0; i < attempts; i++ {
		d := types.Actor{ID: types.ID(fmt.Sprintf("d%d", i)), Role: types.RoleDriver}
		wg.Add(1)
		go func(d types.Actor) {
			defer wg.Done()
			<-start
			_, err := svc.Accept(ctx, AcceptCommand{BookingID: b.ID, Driver: d})
			errs <- err
		}(d)
	}

	close(start)
	wg.Wait()
	close(errs)

	success := 0
	for err := range errs {
		if err == nil {
			success++
			continue
		}
		if !errors.Is(err, ErrConflict) {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if success != 1 {
		t.Fatalf("expected exactly 1 success, got %d", success)
	}

	got, err := store.Get(ctx, b.ID)
	if err != nil {
		t.Fatalf("get booking: %v", err)
	}
	if got.Status != StatusAccepted {
		t.Fatalf("unexpected final status: %s", got.Status)
	}
	if got.DriverID == nil || *got.DriverID == "" {
		t.Fatalf("expected driver_id to be set")
	}
}

func TestPgConcurrentAcceptVsCancel(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)
	svc := NewService(store, nil, nil, logging.Discard(), Options{})

	b, err := svc.Create(ctx, createCommand())
	if err != nil {
		t.Fatalf("create booking: %v", err)
	}

	var wg sync.WaitGroup
	start := make(chan struct{})
	errs := make(chan error, 2)

	wg.Add(2)
	go func() {
		defer wg.Done()
		<-start
		_, err := svc.Accept(ctx, AcceptCommand{BookingID: b.ID, Driver: driver})
		errs <- err
	}()
	go func() {
		defer wg.Done()
		<-start
		_, err := svc.Cancel(ctx, CancelCommand{BookingID: b.ID, Actor: rider, Reason: "user_cancel"})
		errs <- err
	}()

	close(start)
	wg.Wait()
	close(errs)

	success := 0
	for err := range errs {
		if err == nil {
			success++
			continue
		}
		if !errors.Is(err, ErrConflict) && !errors.Is(err, ErrInvalidState) {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if success < 1 {
		t.Fatalf("expected at least 1 success, got %d", success)
	}

	got, err := store.Get(ctx, b.ID)
	if err != nil {
		t.Fatalf("get booking: %v", err)
	}
	if got.Status != StatusAccepted && got.Status != StatusCancelled {
		t.Fatalf("unexpected final status: %s", got.Status)
	}
	if got.Status.HasDriver() != (got.DriverID != nil) {
		t.Fatalf("driver set=%v with status %s", got.DriverID != nil, got.Status)
	}
}

func TestPgExpirePendingAndRating(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)

	clock := &fakeClock{now: time.Now().Add(-2 * time.Minute)}
	svc := NewService(store, nil, nil, logging.Discard(), Options{Now: clock.Now})

	stale, err := svc.Create(ctx, createCommand())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	clock.Advance(2 * time.Minute)

	n, err := svc.ExpireStalePending(ctx)
	if err != nil {
		t.Fatalf("expire: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 expired booking, got %d", n)
	}
	got, _ := store.Get(ctx, stale.ID)
	if got.Status != StatusCancelled || got.CancellationReason != ExpiredReason {
		t.Fatalf("unexpected expired booking: %+v", got)
	}

	done, _ := svc.Create(ctx, createCommand())
	if ok, _ := store.SetRating(ctx, done.ID, 5, "early"); ok {
		t.Fatal("rating must not apply before completion")
	}
	_, _ = svc.Accept(ctx, AcceptCommand{BookingID: done.ID, Driver: driver})
	_, _ = svc.Advance(ctx, AdvanceCommand{BookingID: done.ID, Driver: driver, Status: StatusCompleted})
	if ok, err := store.SetRating(ctx, done.ID, 5, "great"); err != nil || !ok {
		t.Fatalf("first rating: ok=%v err=%v", ok, err)
	}
	if ok, _ := store.SetRating(ctx, done.ID, 4, "again"); ok {
		t.Fatal("second rating must not apply")
	}
}

func setupTestStore(t *testing.T) *PgStore {
	t.Helper()

	dsn := os.Getenv("HATID_TEST_DSN")
	if dsn == "" {
		t.Skip("HATID_TEST_DSN not set; skipping DB-backed race tests")
	}

	ctx := context.Background()
	db, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := applyMigration(ctx, db); err != nil {
		t.Fatalf("apply migration: %v", err)
	}

	if _, err := db.Exec(ctx, "TRUNCATE TABLE booking_events, bookings"); err != nil {
		t.Fatalf("truncate tables: %v", err)
	}

	return NewStore(db)
}

func applyMigration(ctx context.Context, db *pgxpool.Pool) error {
	root, err := repoRoot()
	if err != nil {
		return err
	}
	content, err := os.ReadFile(filepath.Join(root, "migrations", "0001_init.sql"))
	if err != nil {
		return err
	}
	for _, stmt := range splitSQL(stripSQLComments(string(content))) {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func repoRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for i := 0; i < 6; i++ {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", os.ErrNotExist
}

func stripSQLComments(input string) string {
	var b strings.Builder
	scanner := bufio.NewScanner(strings.NewReader(input))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "--") {
			continue
		}
		b.WriteString(scanner.Text())
		b.WriteString("\n")
	}
	return b.String()
}

func splitSQL(input string) []string {
	parts := strings.Split(input, ";")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if stmt := strings.TrimSpace(p); stmt != "" {
			out = append(out, stmt)
		}
	}
	return out
}
