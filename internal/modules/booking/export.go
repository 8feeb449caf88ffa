// README: CSV rendering of completed ride history.
package booking

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"
)

var csvHeader = []string{"id", "pickup", "dropoff", "fare", "status", "createdAt"}

// WriteCSV renders one row per booking under a fixed header.
func WriteCSV(w io.Writer, list []Booking) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, b := range list {
		row := []string{
			string(b.ID),
			b.Pickup.Address,
			b.Dropoff.Address,
			strconv.FormatInt(b.Fare.Amount, 10),
			string(b.Status),
			b.CreatedAt.UTC().Format(time.RFC3339),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
