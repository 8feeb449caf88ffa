// README: Location service: nearby-driver discovery and the driver-facing position/availability updates.
package location

import (
	"context"
	"fmt"
	"log/slog"

	"hatid/internal/types"
)

// DefaultRadiusKm is the discovery radius when none is configured.
const DefaultRadiusKm = 5.0

type ProfileStore interface {
	Get(ctx context.Context, id types.ID) (*DriverProfile, error)
	UpdateLocation(ctx context.Context, id types.ID, loc types.LngLat) (*DriverProfile, error)
	SetOnline(ctx context.Context, id types.ID, online bool) (*DriverProfile, error)
	ApplyRating(ctx context.Context, id types.ID, rating int) (Aggregate, error)
	ListOnline(ctx context.Context) ([]DriverProfile, error)
}

type Index interface {
	Upsert(ctx context.Context, p DriverProfile) error
	Search(ctx context.Context, center types.Point, radiusKm float64) ([]Candidate, error)
}

type Service struct {
	store    ProfileStore
	index    Index
	radiusKm float64
	log      *slog.Logger
}

func NewService(store ProfileStore, index Index, radiusKm float64, log *slog.Logger) *Service {
	if radiusKm <= 0 {
		radiusKm = DefaultRadiusKm
	}
	return &Service{store: store, index: index, radiusKm: radiusKm, log: log}
}

func (s *Service) RadiusKm() float64 { return s.radiusKm }

// Nearby returns online drivers within the discovery radius, nearest first.
func (s *Service) Nearby(ctx context.Context, center types.Point) ([]NearbyDriver, error) {
	if center.Validate() != nil {
		return nil, ErrBadRequest
	}
	candidates, err := s.index.Search(ctx, center, s.radiusKm)
	if err != nil {
		return nil, err
	}

	out := make([]NearbyDriver, 0, len(candidates))
	for _, c := range candidates {
		if !c.Online {
			continue
		}
		d := haversineKm(center, c.Location.Point())
		if d > s.radiusKm {
			continue
		}
		out = append(out, NearbyDriver{DriverID: c.DriverID, Location: c.Location, Plate: c.Plate, DistanceKm: d})
	}
	sortByDistance(out, func(n NearbyDriver) float64 { return n.DistanceKm })
	return out, nil
}

type UpdateLocationCommand struct {
	Actor    types.Actor
	Position types.Point
}

// UpdateLocation records the acting driver's current position.
func (s *Service) UpdateLocation(ctx context.Context, cmd UpdateLocationCommand) (*DriverProfile, error) {
	if cmd.Actor.Role != types.RoleDriver {
		return nil, ErrForbidden
	}
	if err := cmd.Position.Validate(); err != nil {
		return nil, ErrBadRequest
	}
	p, err := s.store.UpdateLocation(ctx, cmd.Actor.ID, cmd.Position.LngLat())
	if err != nil {
		return nil, err
	}
	if err := s.index.Upsert(ctx, *p); err != nil {
		return nil, fmt.Errorf("index driver position: %w", err)
	}
	return p, nil
}

type SetOnlineCommand struct {
	Actor  types.Actor
	Online bool
}

// SetOnline toggles the acting driver's availability.
func (s *Service) SetOnline(ctx context.Context, cmd SetOnlineCommand) (*DriverProfile, error) {
	if cmd.Actor.Role != types.RoleDriver {
		return nil, ErrForbidden
	}
	p, err := s.store.SetOnline(ctx, cmd.Actor.ID, cmd.Online)
	if err != nil {
		return nil, err
	}
	// Upsert rather than flip the flag so plate and position are present for
	// drivers that come online before their first position update.
	if err := s.index.Upsert(ctx, *p); err != nil {
		return nil, fmt.Errorf("index driver availability: %w", err)
	}
	return p, nil
}

func (s *Service) Profile(ctx context.Context, id types.ID) (*DriverProfile, error) {
	return s.store.Get(ctx, id)
}

// ApplyRating folds a rating into the driver's aggregate.
func (s *Service) ApplyRating(ctx context.Context, driverID types.ID, rating int) (Aggregate, error) {
	return s.store.ApplyRating(ctx, driverID, rating)
}

// Reindex pushes every online driver from Postgres into the geo index.
// Run at startup so a cold Redis does not hide available drivers.
func (s *Service) Reindex(ctx context.Context) error {
	profiles, err := s.store.ListOnline(ctx)
	if err != nil {
		return fmt.Errorf("list online drivers: %w", err)
	}
	for _, p := range profiles {
		if err := s.index.Upsert(ctx, p); err != nil {
			return fmt.Errorf("index driver %s: %w", p.UserID, err)
		}
	}
	s.log.InfoContext(ctx, "driver index rebuilt", slog.Int("drivers", len(profiles)))
	return nil
}
