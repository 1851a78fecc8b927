package booking

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"carpark-backend/internal/model"
)

var exportHeader = []string{
	"ID", "Registration", "Email", "StartTime", "EndTime",
	"FacilityName", "TenancyName", "Status", "CreatedAt",
}

// ExportCSV writes the records as an RFC 4180 CSV report. Rows must carry
// their SubCarPark (and Tenancy, where set) associations preloaded, as
// Query.List returns them.
func ExportCSV(w io.Writer, rows []model.OccupancyRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for i := range rows {
		r := &rows[i]
		tenancyName := ""
		if r.Tenancy != nil {
			tenancyName = r.Tenancy.Name
		}
		row := []string{
			strconv.FormatInt(r.ID, 10),
			r.Registration,
			r.Email,
			formatTime(r.StartTime),
			formatTime(r.EndTime),
			r.SubCarPark.Name,
			tenancyName,
			string(r.Status),
			r.CreatedAt.UTC().Format(time.RFC3339),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row for record %d: %w", r.ID, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
