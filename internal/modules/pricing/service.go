// README: Pricing service computes fare quotes from the barangay table and the current fare config.
package pricing

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"hatid/internal/types"
)

var (
	ErrBadRequest = errors.New("bad request")
	ErrForbidden  = errors.New("forbidden")
)

// ConfigSource provides the current fare configuration. ok is false when none was ever saved.
type ConfigSource interface {
	Latest(ctx context.Context) (cfg Config, ok bool, err error)
	Save(ctx context.Context, cfg Config) error
}

type Service struct {
	store ConfigSource
	table Table
}

// NewService builds the calculator. A nil store means "always use defaults".
func NewService(store ConfigSource, table Table) *Service {
	return &Service{store: store, table: table}
}

// Distance is the radial approximation |d(a) - d(b)|, zero when either side is unknown.
// The difference is not rounded; fares are computed from it as is.
func (t Table) Distance(a, b string) float64 {
	da, okA := t.Lookup(a)
	db, okB := t.Lookup(b)
	if !okA || !okB {
		return 0
	}
	return math.Abs(da - db)
}

// Compute applies fare = ceil(base + distance*rate).
func Compute(cfg Config, distanceKm float64) types.Money {
	return types.PHP(int64(math.Ceil(cfg.BaseFare + distanceKm*cfg.RatePerKm)))
}

// Config returns the active fare config, falling back to defaults when none is stored.
func (s *Service) Config(ctx context.Context) (Config, error) {
	if s.store == nil {
		return DefaultConfig(), nil
	}
	cfg, ok, err := s.store.Latest(ctx)
	if err != nil {
		return Config{}, fmt.Errorf("load fare config: %w", err)
	}
	if !ok {
		return DefaultConfig(), nil
	}
	return cfg, nil
}

// Calculate quotes a ride between two barangays.
func (s *Service) Calculate(ctx context.Context, pickup, dropoff string) (Quote, error) {
	cfg, err := s.Config(ctx)
	if err != nil {
		return Quote{}, err
	}
	d := s.table.Distance(pickup, dropoff)
	return Quote{Fare: Compute(cfg, d), Distance: d, BaseFare: cfg.BaseFare, RatePerKm: cfg.RatePerKm}, nil
}

// QuoteDistance quotes a ride of a caller-supplied length.
func (s *Service) QuoteDistance(ctx context.Context, distanceKm float64) (Quote, error) {
	if math.IsNaN(distanceKm) || math.IsInf(distanceKm, 0) || distanceKm < 0 {
		return Quote{}, ErrBadRequest
	}
	cfg, err := s.Config(ctx)
	if err != nil {
		return Quote{}, err
	}
	return Quote{Fare: Compute(cfg, distanceKm), Distance: distanceKm, BaseFare: cfg.BaseFare, RatePerKm: cfg.RatePerKm}, nil
}

type UpdateConfigCommand struct {
	Actor     types.Actor
	BaseFare  float64
	RatePerKm float64
}

// UpdateConfig stores a new fare config. Admins only.
func (s *Service) UpdateConfig(ctx context.Context, cmd UpdateConfigCommand) (Config, error) {
	if cmd.Actor.Role != types.RoleAdmin {
		return Config{}, ErrForbidden
	}
	if cmd.BaseFare < 0 || cmd.RatePerKm < 0 {
		return Config{}, ErrBadRequest
	}
	if s.store == nil {
		return Config{}, errors.New("fare config store not configured")
	}
	cfg := Config{
		BaseFare:  cmd.BaseFare,
		RatePerKm: cmd.RatePerKm,
		UpdatedBy: cmd.Actor.ID.Ptr(),
		CreatedAt: time.Now(),
	}
	if err := s.store.Save(ctx, cfg); err != nil {
		return Config{}, fmt.Errorf("save fare config: %w", err)
	}
	return cfg, nil
}
