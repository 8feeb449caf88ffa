// README: Geo index of driver positions backed by Redis GEO plus a per-driver metadata hash.
package location

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"hatid/internal/types"
)

const (
	driverGeoKey   = "drivers:geo"
	driverMetaKeyF = "drivers:meta:%s"
)

// RedisIndex keeps every known driver position in a GEO set; availability and
// plate live in a hash next to it so going offline does not lose the position.
type RedisIndex struct {
	redis *redis.Client
}

func NewRedisIndex(client *redis.Client) *RedisIndex {
	return &RedisIndex{redis: client}
}

func (r *RedisIndex) Upsert(ctx context.Context, p DriverProfile) error {
	pipe := r.redis.Pipeline()
	pipe.GeoAdd(ctx, driverGeoKey, &redis.GeoLocation{
		Name:      string(p.UserID),
		Longitude: p.Location.Lng(),
		Latitude:  p.Location.Lat(),
	})
	pipe.HSet(ctx, metaKey(p.UserID), map[string]interface{}{
		"online": strconv.FormatBool(p.Online),
		"plate":  p.Plate,
	})
	_, err := pipe.Exec(ctx)
	return err
}

// Search returns drivers within radiusKm of center, nearest first.
func (r *RedisIndex) Search(ctx context.Context, center types.Point, radiusKm float64) ([]Candidate, error) {
	locs, err := r.redis.GeoSearchLocation(ctx, driverGeoKey, &redis.GeoSearchLocationQuery{
		GeoSearchQuery: redis.GeoSearchQuery{
			Longitude:  center.Lng,
			Latitude:   center.Lat,
			Radius:     radiusKm,
			RadiusUnit: "km",
			Sort:       "ASC",
		},
		WithCoord: true,
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("geo search: %w", err)
	}
	if len(locs) == 0 {
		return nil, nil
	}

	pipe := r.redis.Pipeline()
	metas := make([]*redis.SliceCmd, len(locs))
	for i, l := range locs {
		metas[i] = pipe.HMGet(ctx, metaKey(types.ID(l.Name)), "online", "plate")
	}
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, fmt.Errorf("driver metadata: %w", err)
	}

	out := make([]Candidate, 0, len(locs))
	for i, l := range locs {
		c := Candidate{
			DriverID: types.ID(l.Name),
			Location: types.LngLat{l.Longitude, l.Latitude},
		}
		vals, err := metas[i].Result()
		if err == nil && len(vals) == 2 {
			if v, ok := vals[0].(string); ok {
				c.Online = v == "true"
			}
			if v, ok := vals[1].(string); ok {
				c.Plate = v
			}
		}
		out = append(out, c)
	}
	return out, nil
}

func metaKey(id types.ID) string {
	return fmt.Sprintf(driverMetaKeyF, string(id))
}
