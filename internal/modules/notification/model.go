// README: In-app notifications, device tokens, and the dispatch job shape.
package notification

import (
	"errors"
	"time"

	"hatid/internal/types"
)

var (
	ErrNotFound   = errors.New("notification not found")
	ErrBadRequest = errors.New("bad request")
	ErrNoToken    = errors.New("no device token")
)

type Category string

const (
	CategoryBooking Category = "booking"
	CategorySystem  Category = "system"
)

type Notification struct {
	ID        types.ID
	UserID    types.ID
	Title     string
	Message   string
	Category  Category
	IsRead    bool
	CreatedAt time.Time
}

// Job is one fan-out request. Data values are coerced to strings before
// they reach the push provider.
type Job struct {
	UserID   types.ID
	Title    string
	Message  string
	Category Category
	Data     map[string]any
}
