package handler_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/globaltrip/backend/internal/domain"
	"github.com/pkordes/globaltrip/backend/internal/handler"
)

// ---- mock ExportServicer ---------------------------------------------------

type mockExportServicer struct {
	export func(ctx context.Context) ([]domain.ExportRow, error)
}

func (m *mockExportServicer) Export(ctx context.Context) ([]domain.ExportRow, error) {
	return m.export(ctx)
}

var _ handler.ExportServicer = (*mockExportServicer)(nil)

// ---- helpers ---------------------------------------------------------------

func newExportHTTPHandler(rows []domain.ExportRow, err error) http.Handler {
	svc := &mockExportServicer{
		export: func(context.Context) ([]domain.ExportRow, error) { return rows, err },
	}
	return newHTTPHandler(handler.Deps{Export: svc}, handler.RouterConfig{})
}

func exportRowFixture() domain.ExportRow {
	return domain.ExportRow{
		TripID:          "trip-1",
		Title:           "Rome Trip",
		Destination:     "Rome, Italy",
		StartDate:       "2025-07-15",
		EndDate:         "2025-07-20",
		Status:          domain.StatusUpcoming,
		OwnerID:         "user-1",
		CollaboratorIDs: []string{"user-2", "user-3"},
		CreatedAt:       time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC),
		UpdatedAt:       time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC),
	}
}

// ---- GET /export, JSON -----------------------------------------------------

func TestGetExport_DefaultJSON_EmptyResult(t *testing.T) {
	rec := serve(newExportHTTPHandler([]domain.ExportRow{}, nil), http.MethodGet, "/export", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestGetExport_JSON_Row(t *testing.T) {
	row := exportRowFixture()
	row.EndDate = ""

	rec := serve(newExportHTTPHandler([]domain.ExportRow{row}, nil), http.MethodGet, "/export?format=json", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var rows []map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "Rome Trip", rows[0]["title"])
	assert.Equal(t, "2025-07-15", rows[0]["start_date"])
	assert.Equal(t, "upcoming", rows[0]["status"])
	assert.NotContains(t, rows[0], "end_date")
}

// ---- GET /export, CSV ------------------------------------------------------

func TestGetExport_CSV_EmptyResult_HasHeaderRow(t *testing.T) {
	rec := serve(newExportHTTPHandler(nil, nil), http.MethodGet, "/export?format=csv", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/csv")
	assert.True(t, strings.HasPrefix(rec.Body.String(), "trip_id,"), "got: %q", rec.Body.String())
}

func TestGetExport_CSV_OneRow(t *testing.T) {
	rec := serve(newExportHTTPHandler([]domain.ExportRow{exportRowFixture()}, nil), http.MethodGet, "/export?format=csv", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t,
		`trip-1,Rome Trip,"Rome, Italy",2025-07-15,2025-07-20,upcoming,user-1,user-2|user-3,2025-06-01T09:00:00Z,2025-06-02T09:00:00Z`,
		lines[1])
}

// ---- error handling --------------------------------------------------------

func TestGetExport_UnknownFormat_Returns400(t *testing.T) {
	rec := serve(newExportHTTPHandler(nil, nil), http.MethodGet, "/export?format=xml", nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetExport_ServiceError_Returns500(t *testing.T) {
	rec := serve(newExportHTTPHandler(nil, fmt.Errorf("database unavailable")), http.MethodGet, "/export", nil)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal_error", decodeError(t, rec).Code)
}
