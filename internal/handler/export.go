package handler

import (
	"context"
	"encoding/csv"
	"net/http"
	"strings"
	"time"

	"github.com/oapi-codegen/runtime"
	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/pkordes/globaltrip/backend/internal/domain"
)

// ExportServicer produces the flat trip export. *service.ExportService satisfies it.
type ExportServicer interface {
	Export(ctx context.Context) ([]domain.ExportRow, error)
}

// ExportRow is the JSON form of one export line.
type ExportRow struct {
	TripID          string              `json:"trip_id"`
	Title           string              `json:"title"`
	Destination     string              `json:"destination,omitempty"`
	StartDate       *openapi_types.Date `json:"start_date,omitempty"`
	EndDate         *openapi_types.Date `json:"end_date,omitempty"`
	Status          domain.TripStatus   `json:"status"`
	OwnerID         string              `json:"owner_id"`
	CollaboratorIDs []string            `json:"collaborator_ids"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
}

// csvHeaders defines the column names written as the first row of any CSV export.
var csvHeaders = []string{
	"trip_id", "title", "destination", "start_date", "end_date",
	"status", "owner_id", "collaborator_ids", "created_at", "updated_at",
}

// GetExport handles GET /export. ?format=csv returns CSV; the default is JSON.
func (s *Server) GetExport(w http.ResponseWriter, r *http.Request) {
	var format *string
	if err := runtime.BindQueryParameter("form", true, false, "format", r.URL.Query(), &format); err != nil {
		badRequest(w, "Invalid format for parameter format")
		return
	}
	wantCSV := format != nil && *format == "csv"
	if format != nil && !wantCSV && *format != "json" {
		badRequest(w, "format must be csv or json")
		return
	}

	rows, err := s.export.Export(r.Context())
	if err != nil {
		s.writeError(w, r, err, "")
		return
	}

	if wantCSV {
		writeCSV(w, rows)
		return
	}
	out := make([]ExportRow, 0, len(rows))
	for _, row := range rows {
		out = append(out, exportRowToResponse(row))
	}
	writeJSON(w, http.StatusOK, out)
}

// writeCSV encodes rows as CSV. Collaborator ids are joined with "|" to keep
// each trip on a single line.
func writeCSV(w http.ResponseWriter, rows []domain.ExportRow) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="trips.csv"`)
	w.WriteHeader(http.StatusOK)

	cw := csv.NewWriter(w)
	_ = cw.Write(csvHeaders)
	for _, row := range rows {
		_ = cw.Write([]string{
			row.TripID,
			row.Title,
			row.Destination,
			row.StartDate,
			row.EndDate,
			string(row.Status),
			row.OwnerID,
			strings.Join(row.CollaboratorIDs, "|"),
			row.CreatedAt.UTC().Format(time.RFC3339),
			row.UpdatedAt.UTC().Format(time.RFC3339),
		})
	}
	cw.Flush()
}

func exportRowToResponse(r domain.ExportRow) ExportRow {
	return ExportRow{
		TripID:          r.TripID,
		Title:           r.Title,
		Destination:     r.Destination,
		StartDate:       parseDate(r.StartDate),
		EndDate:         parseDate(r.EndDate),
		Status:          r.Status,
		OwnerID:         r.OwnerID,
		CollaboratorIDs: r.CollaboratorIDs,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}

// parseDate turns a "2006-01-02" export date into its wire form; "" is nil.
func parseDate(s string) *openapi_types.Date {
	if s == "" {
		return nil
	}
	t, err := time.Parse(openapi_types.DateFormat, s)
	if err != nil {
		return nil
	}
	return &openapi_types.Date{Time: t}
}
