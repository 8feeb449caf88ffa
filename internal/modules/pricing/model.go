// README: Fare configuration, barangay distance table and quote result.
package pricing

import (
	"strings"
	"time"

	"hatid/internal/types"
)

const (
	DefaultBaseFare  = 12.0
	DefaultRatePerKm = 2.0
)

// Config is the tenant fare setting. The most recent row wins.
type Config struct {
	BaseFare  float64
	RatePerKm float64
	UpdatedBy *types.ID
	CreatedAt time.Time
}

func DefaultConfig() Config {
	return Config{BaseFare: DefaultBaseFare, RatePerKm: DefaultRatePerKm}
}

// Quote is the result of a fare computation.
type Quote struct {
	Fare      types.Money
	Distance  float64
	BaseFare  float64
	RatePerKm float64
}

// Entry is one barangay and its distance from the town centre in km.
type Entry struct {
	Name string
	Km   float64
}

// Table is an ordered, read-only barangay distance lookup. Order matters:
// partial matches resolve to the first entry found.
type Table struct {
	entries []Entry
	index   map[string]float64
}

func NewTable(entries []Entry) Table {
	t := Table{entries: make([]Entry, len(entries)), index: make(map[string]float64, len(entries))}
	copy(t.entries, entries)
	for _, e := range entries {
		if _, dup := t.index[e.Name]; !dup {
			t.index[e.Name] = e.Km
		}
	}
	return t
}

func (t Table) Len() int { return len(t.entries) }

// Lookup resolves a barangay name: exact match first, then the first entry whose
// name contains the query or is contained in it.
func (t Table) Lookup(name string) (float64, bool) {
	if strings.TrimSpace(name) == "" {
		return 0, false
	}
	if km, ok := t.index[name]; ok {
		return km, true
	}
	for _, e := range t.entries {
		if strings.Contains(e.Name, name) || strings.Contains(name, e.Name) {
			return e.Km, true
		}
	}
	return 0, false
}
