package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clickhost/clickhost/internal/core/expr"
	"github.com/clickhost/clickhost/internal/core/resource"
	"github.com/clickhost/clickhost/internal/shell/store"
)

// =============================================================================
// Test Helpers
// =============================================================================

func setupHandler(t *testing.T) (*Handler, *resource.Registry, store.Store) {
	t.Helper()

	st, err := store.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	reg := resource.NewRegistry()
	return NewHandler(reg, st, nil), reg, st
}

func composeScenario(t *testing.T, reg *resource.Registry) {
	t.Helper()

	server, err := resource.NewServerResource("ch1",
		resource.WithPassword(expr.ParameterRef("ch1-password")),
	)
	require.NoError(t, err)
	require.NoError(t, reg.Add(server))

	param, err := resource.NewParameterResource("ch1-password", true)
	require.NoError(t, err)
	require.NoError(t, reg.Add(param))
	reg.SetParameter("ch1-password", "s3cret")

	db, err := resource.NewDatabaseResource("db1", "customers1", server)
	require.NoError(t, err)
	require.NoError(t, reg.Add(db))
	server.AddDatabase("db1", "customers1")
}

func get(t *testing.T, h *Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)
	return rec
}

// =============================================================================
// Health Tests
// =============================================================================

func TestHandleHealth(t *testing.T) {
	h, _, _ := setupHandler(t)

	rec := get(t, h, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
}

// =============================================================================
// Resource Tests
// =============================================================================

func TestHandleListResources(t *testing.T) {
	h, reg, _ := setupHandler(t)
	composeScenario(t, reg)

	rec := get(t, h, "/api/v1/resources")
	require.Equal(t, http.StatusOK, rec.Code)

	var resources []ResourceResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resources))
	require.Len(t, resources, 3)

	// Registration order preserved.
	assert.Equal(t, "ch1", resources[0].Name)
	assert.Equal(t, "server", resources[0].Type)
	assert.Equal(t, "ch1-password", resources[1].Name)
	assert.Equal(t, "parameter", resources[1].Type)
	assert.Equal(t, "db1", resources[2].Name)
	assert.Equal(t, "database", resources[2].Type)
}

func TestHandleGetResource_TemplatesOnly(t *testing.T) {
	h, reg, _ := setupHandler(t)
	composeScenario(t, reg)

	rec := get(t, h, "/api/v1/resources/db1")
	require.Equal(t, http.StatusOK, rec.Code)

	var res ResourceResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))

	want := "Host={ch1.bindings.http.host};Port={ch1.bindings.http.port};Username=default;Password={ch1-password.value};Database=customers1"
	assert.Equal(t, want, res.ConnectionStringTemplate)

	// The generated secret never appears in manifest output.
	assert.NotContains(t, rec.Body.String(), "s3cret")

	require.Len(t, res.Properties, 5)
	assert.Equal(t, "DatabaseName", res.Properties[4].Key)
	assert.Equal(t, "customers1", res.Properties[4].Expression)
}

func TestHandleGetResource_NotFound(t *testing.T) {
	h, _, _ := setupHandler(t)

	rec := get(t, h, "/api/v1/resources/nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "not_found", resp.Code)
}

// =============================================================================
// Provision Tests
// =============================================================================

func TestHandleListProvisions(t *testing.T) {
	h, _, st := setupHandler(t)

	p := store.Provision{
		ID:           uuid.New().String(),
		RunID:        "run-1",
		ServerName:   "ch1",
		ResourceName: "db1",
		DatabaseName: "customers1",
		Status:       store.ProvisionFailed,
		Error:        "status 403",
		CreatedAt:    time.Now().UTC(),
	}
	require.NoError(t, st.RecordProvision(context.Background(), p))

	rec := get(t, h, "/api/v1/provisions")
	require.Equal(t, http.StatusOK, rec.Code)

	var provisions []ProvisionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &provisions))
	require.Len(t, provisions, 1)
	assert.Equal(t, "failed", provisions[0].Status)
	assert.Equal(t, "status 403", provisions[0].Error)
}

func TestHandleListProvisions_Empty(t *testing.T) {
	h, _, _ := setupHandler(t)

	rec := get(t, h, "/api/v1/provisions")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}
