package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/notewall/internal/auth/session"
	"github.com/smallbiznis/notewall/internal/clock"
	"github.com/smallbiznis/notewall/internal/config"
	"github.com/smallbiznis/notewall/internal/organization/coordinator"
	"github.com/smallbiznis/notewall/internal/organization/detailcache"
	"github.com/smallbiznis/notewall/internal/organization/domain"
	"github.com/smallbiznis/notewall/internal/organization/repository"
	"github.com/smallbiznis/notewall/internal/organization/service"
	"github.com/smallbiznis/notewall/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func strPtr(v string) *string { return &v }

func newTestServer(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&domain.User{}, &domain.Note{}))

	repo := repository.NewRepository(conn)
	ctx := context.Background()
	day := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, repo.CreateUsers(ctx, []domain.User{
		{Email: "a@x.io", OrganizationName: strPtr("Acme")},
		{Email: "b@x.io", OrganizationName: strPtr("Acme")},
		{Email: "c@y.io", OrganizationName: strPtr("Globex")},
	}))
	require.NoError(t, repo.CreateNotes(ctx, []domain.Note{
		{ID: 1, Title: "a1", AuthorEmail: "a@x.io", CreatedAt: day},
		{ID: 2, Title: "a2", AuthorEmail: "a@x.io", CreatedAt: day.Add(time.Hour)},
		{ID: 3, Title: "b1", AuthorEmail: "b@x.io", CreatedAt: day.Add(48 * time.Hour)},
	}))

	log := zaptest.NewLogger(t)
	holder := config.NewStaticAggregationConfigHolder(config.DefaultAggregationConfig())
	fake := clock.NewFakeClock(time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC))
	projector := service.NewChartProjector()

	registry := coordinator.NewRegistry(coordinator.Params{
		Config:     config.Config{SessionTTL: time.Hour},
		Membership: service.NewMembershipResolver(service.MembershipParams{Repo: repo, Log: log, Config: holder}),
		Roster:     service.NewRosterBuilder(service.RosterParams{Repo: repo, Log: log, Config: holder}),
		Feed:       service.NewNoteFeed(service.FeedParams{Repo: repo, Log: log, Config: holder}),
		Projector:  projector,
		Caches: detailcache.NewFactory(detailcache.Params{
			Store:  detailcache.NewMemoryStore(),
			Loader: service.NewDetailLoader(service.DetailParams{Repo: repo, Log: log, Clock: fake, Config: holder}),
			Log:    log,
		}),
		Clock: fake,
		Log:   log,
	})

	router := gin.New()
	router.Use(ErrorHandlingMiddleware())
	srv := &Server{
		engine:    router,
		sessions:  session.NewManager(config.Config{}),
		registry:  registry,
		projector: projector,
		log:       log,
	}
	srv.registerRoutes()
	srv.registerFallback()
	return router
}

func do(t *testing.T, router *gin.Engine, method, path, email, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if email != "" {
		req.Header.Set("X-User-Email", email)
	}
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

type snapshotResponse struct {
	Data coordinator.Snapshot `json:"data"`
}

func decodeSnapshot(t *testing.T, resp *httptest.ResponseRecorder) coordinator.Snapshot {
	t.Helper()
	var out snapshotResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &out))
	return out.Data
}

func TestMissingSessionHeaderIsUnauthorized(t *testing.T) {
	router := newTestServer(t)

	resp := do(t, router, http.MethodPost, "/v1/session", "", "")
	require.Equal(t, http.StatusUnauthorized, resp.Code)

	var body errorResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, "unauthorized", body.Error.Type)
}

func TestOrganizationsRequireEstablishedSession(t *testing.T) {
	router := newTestServer(t)

	resp := do(t, router, http.MethodGet, "/v1/organizations", "a@x.io", "")
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestEstablishSessionReturnsRoster(t *testing.T) {
	router := newTestServer(t)

	resp := do(t, router, http.MethodPost, "/v1/session", "a@x.io", "")
	require.Equal(t, http.StatusOK, resp.Code)

	snapshot := decodeSnapshot(t, resp)
	require.NotNil(t, snapshot.CurrentOrganization)
	assert.Equal(t, "Acme", *snapshot.CurrentOrganization)
	require.Len(t, snapshot.Roster, 2)
	assert.Equal(t, 3, snapshot.Roster[0].NoteCount)
	assert.True(t, snapshot.Roster[0].IsCurrentUserOrg)
	assert.Equal(t, coordinator.StateUnselected, snapshot.State)

	list := do(t, router, http.MethodGet, "/v1/organizations", "a@x.io", "")
	require.Equal(t, http.StatusOK, list.Code)
	var roster struct {
		Data                []domain.Organization `json:"data"`
		CurrentOrganization *string               `json:"current_organization"`
	}
	require.NoError(t, json.Unmarshal(list.Body.Bytes(), &roster))
	assert.Len(t, roster.Data, 2)
	assert.Equal(t, "Acme", *roster.CurrentOrganization)
}

func TestSessionWithoutOrganization(t *testing.T) {
	router := newTestServer(t)

	resp := do(t, router, http.MethodPost, "/v1/session", "stranger@z.io", "")
	require.Equal(t, http.StatusOK, resp.Code)
	snapshot := decodeSnapshot(t, resp)
	assert.Nil(t, snapshot.CurrentOrganization)
	for _, org := range snapshot.Roster {
		assert.False(t, org.IsCurrentUserOrg)
	}

	notes := do(t, router, http.MethodGet, "/v1/notes", "stranger@z.io", "")
	require.Equal(t, http.StatusOK, notes.Code)
	assert.Contains(t, notes.Body.String(), `"data":[]`)
	assert.Contains(t, notes.Body.String(), `"time_series":[]`)
}

func TestSelectOrganization(t *testing.T) {
	router := newTestServer(t)
	require.Equal(t, http.StatusOK, do(t, router, http.MethodPost, "/v1/session", "a@x.io", "").Code)

	resp := do(t, router, http.MethodPost, "/v1/organizations/select", "a@x.io", `{"name":"Acme"}`)
	require.Equal(t, http.StatusOK, resp.Code)

	snapshot := decodeSnapshot(t, resp)
	assert.Equal(t, coordinator.StateReady, snapshot.State)
	assert.Equal(t, "Acme", snapshot.Selected)
	require.NotNil(t, snapshot.Detail)
	require.Len(t, snapshot.Detail.Members, 2)
	require.NotNil(t, snapshot.Chart)
	assert.Equal(t, []domain.CategoryPoint{{Label: "a", Value: 2}, {Label: "b", Value: 1}}, snapshot.Chart.Categorical)
	assert.Equal(t, []domain.TimePoint{{Date: "2024-01-01", Count: 2}, {Date: "2024-01-03", Count: 1}}, snapshot.Chart.TimeSeries)

	selection := decodeSnapshot(t, do(t, router, http.MethodGet, "/v1/organizations/selection", "a@x.io", ""))
	assert.Equal(t, "Acme", selection.Selected)
}

func TestSelectOrganizationValidation(t *testing.T) {
	router := newTestServer(t)
	require.Equal(t, http.StatusOK, do(t, router, http.MethodPost, "/v1/session", "a@x.io", "").Code)

	resp := do(t, router, http.MethodPost, "/v1/organizations/select", "a@x.io", `{"name":""}`)
	require.Equal(t, http.StatusBadRequest, resp.Code)

	var body errorResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, "validation_error", body.Error.Type)
	require.Len(t, body.Error.Errors, 1)
	assert.Equal(t, "organization", body.Error.Errors[0].Field)

	resp = do(t, router, http.MethodPost, "/v1/organizations/select", "a@x.io", `not-json`)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestInvalidateSelectedOrganization(t *testing.T) {
	router := newTestServer(t)
	require.Equal(t, http.StatusOK, do(t, router, http.MethodPost, "/v1/session", "a@x.io", "").Code)
	require.Equal(t, http.StatusOK, do(t, router, http.MethodPost, "/v1/organizations/select", "a@x.io", `{"name":"Acme"}`).Code)

	resp := do(t, router, http.MethodDelete, "/v1/organizations/cache/Acme", "a@x.io", "")
	require.Equal(t, http.StatusOK, resp.Code)

	snapshot := decodeSnapshot(t, resp)
	assert.Equal(t, coordinator.StateUnselected, snapshot.State)
	assert.Nil(t, snapshot.Detail)
}

func TestListNotes(t *testing.T) {
	router := newTestServer(t)
	require.Equal(t, http.StatusOK, do(t, router, http.MethodPost, "/v1/session", "b@x.io", "").Code)

	resp := do(t, router, http.MethodGet, "/v1/notes", "b@x.io", "")
	require.Equal(t, http.StatusOK, resp.Code)

	var body struct {
		Data       []domain.Note      `json:"data"`
		TimeSeries []domain.TimePoint `json:"time_series"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Len(t, body.Data, 3)
	assert.Equal(t, []domain.TimePoint{{Date: "2024-01-01", Count: 2}, {Date: "2024-01-03", Count: 1}}, body.TimeSeries)
}

func TestEndSession(t *testing.T) {
	router := newTestServer(t)
	require.Equal(t, http.StatusOK, do(t, router, http.MethodPost, "/v1/session", "a@x.io", "").Code)

	assert.Equal(t, http.StatusNoContent, do(t, router, http.MethodDelete, "/v1/session", "a@x.io", "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(t, router, http.MethodDelete, "/v1/session", "a@x.io", "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(t, router, http.MethodGet, "/v1/organizations/selection", "a@x.io", "").Code)
}

func TestUnknownRouteUsesErrorEnvelope(t *testing.T) {
	router := newTestServer(t)

	resp := do(t, router, http.MethodGet, "/v1/unknown", "a@x.io", "")
	require.Equal(t, http.StatusNotFound, resp.Code)
	assert.Contains(t, resp.Body.String(), `"type":"not_found"`)
}

func TestClassifyErrorForLog(t *testing.T) {
	errType, code := classifyErrorForLog(domain.ErrInvalidOrganization)
	assert.Equal(t, "validation_error", errType)
	assert.Equal(t, "invalid_organization", code)

	errType, code = classifyErrorForLog(domain.ErrSessionNotFound)
	assert.Equal(t, "unauthorized", errType)
	assert.Equal(t, "unauthorized", code)
}
