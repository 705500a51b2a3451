package sessions_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dropbox/godropbox/time2"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/draftforge/go-contract-session/internal/api"
	"github.com/draftforge/go-contract-session/internal/api/handlers"
	"github.com/draftforge/go-contract-session/internal/category"
	"github.com/draftforge/go-contract-session/internal/config"
	"github.com/draftforge/go-contract-session/internal/contract"
	"github.com/draftforge/go-contract-session/internal/persistence"
	"github.com/draftforge/go-contract-session/internal/session"
)

func newTestServer(t *testing.T) *api.Server {
	t.Helper()

	provider := category.NewStaticProvider(
		[]*category.Category{{
			ID:    "rent",
			Label: "Оренда житла",
			Roles: []category.Role{
				{Name: "lessor", Label: "Орендодавець", DefaultPersonType: "individual", AllowedPersonTypes: []string{"individual"}},
				{Name: "lessee", Label: "Орендар", DefaultPersonType: "individual", AllowedPersonTypes: []string{"individual"}},
			},
			PartyModules: map[string]category.PartyModule{
				"individual": {Fields: []category.Field{
					{Name: "name", Label: "ПІБ", Required: true},
				}},
			},
			ContractFields: []category.Field{
				{Name: "rent_amount", Label: "Орендна плата", Type: "money", Required: true},
			},
		}},
		[]category.Template{{ID: "rent_basic", CategoryID: "rent", Name: "Базовий договір"}},
	)

	clock := time2.NewMockClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	local := persistence.NewMemoryStore(session.DefaultTTLPolicy(), clock)
	store := persistence.NewRouter(nil, local, persistence.RouterOptions{}, clock)

	srv := api.NewServer(config.Server{}, store, contract.NewService(provider, nil))
	handlers.AttachAllRoutes(srv)
	return srv
}

func doRequest(t *testing.T, srv *api.Server, method, path, userID, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	rec := httptest.NewRecorder()
	srv.Echo.ServeHTTP(rec, req)
	return rec
}

func TestCreateSessionRequiresIdentity(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/sessions", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateAndGetSession(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/sessions", "alice", `{"session_id": "s-1"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created session.Session
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "s-1", created.ID)
	assert.Equal(t, "alice", created.CreatorID)
	assert.Equal(t, session.StateIdle, created.State)

	rec = doRequest(t, srv, http.MethodGet, "/api/v1/sessions/s-1", "alice", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, srv, http.MethodGet, "/api/v1/sessions/missing", "alice", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateSessionGeneratesID(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/sessions", "alice", "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created session.Session
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.NotEmpty(t, created.ID)
}

func TestFullDraftingFlowOverHTTP(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/sessions", "alice", `{"session_id": "s-1"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doRequest(t, srv, http.MethodPost, "/api/v1/sessions/s-1/category", "alice", `{"category_id": "rent"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// Single template in the category: selected automatically.
	var sess session.Session
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sess))
	assert.Equal(t, "rent_basic", sess.TemplateID)

	rec = doRequest(t, srv, http.MethodPost, "/api/v1/sessions/s-1/roles/lessor/claim", "alice", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// The same role cannot go to a second identity.
	rec = doRequest(t, srv, http.MethodPost, "/api/v1/sessions/s-1/roles/lessor/claim", "bob", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doRequest(t, srv, http.MethodPost, "/api/v1/sessions/s-1/roles/lessee/claim", "bob", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, srv, http.MethodPost, "/api/v1/sessions/s-1/roles/lessor/person-type", "alice", `{"person_type": "individual"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// Party field editing is fenced by ownership.
	rec = doRequest(t, srv, http.MethodPost, "/api/v1/sessions/s-1/fields", "bob", `{"field": "name", "value": "Хтось Інший", "role": "lessor"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doRequest(t, srv, http.MethodPost, "/api/v1/sessions/s-1/fields", "alice", `{"field": "name", "value": "Іван Франко", "role": "lessor"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doRequest(t, srv, http.MethodPost, "/api/v1/sessions/s-1/fields", "bob", `{"field": "name", "value": "Тарас Шевченко", "role": "lessee"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	// Invalid values come back as a structured rejection, not an HTTP error.
	rec = doRequest(t, srv, http.MethodPost, "/api/v1/sessions/s-1/fields", "alice", `{"field": "rent_amount", "value": "дорого"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var updateResp struct {
		OK    bool   `json:"ok"`
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updateResp))
	assert.False(t, updateResp.OK)
	assert.NotEmpty(t, updateResp.Error)

	rec = doRequest(t, srv, http.MethodPost, "/api/v1/sessions/s-1/fields", "alice", `{"field": "rent_amount", "value": "15000"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, srv, http.MethodGet, "/api/v1/sessions/s-1/missing-fields", "alice", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, srv, http.MethodPost, "/api/v1/sessions/s-1/build", "alice", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doRequest(t, srv, http.MethodPost, "/api/v1/sessions/s-1/sign", "alice", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var signResp struct {
		SignedRoles []string `json:"signed_roles"`
		IsSigned    bool     `json:"is_signed"`
		State       string   `json:"state"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &signResp))
	assert.Equal(t, []string{"lessor"}, signResp.SignedRoles)
	assert.False(t, signResp.IsSigned)

	rec = doRequest(t, srv, http.MethodPost, "/api/v1/sessions/s-1/sign", "bob", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &signResp))
	assert.True(t, signResp.IsSigned)
	assert.Equal(t, string(session.StateCompleted), signResp.State)

	// Listing shows the session for both parties.
	rec = doRequest(t, srv, http.MethodGet, "/api/v1/sessions", "bob", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var listResp struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listResp))
	assert.Equal(t, 1, listResp.Count)
}

func TestSignBeforeBuildOverHTTP(t *testing.T) {
	srv := newTestServer(t)

	doRequest(t, srv, http.MethodPost, "/api/v1/sessions", "alice", `{"session_id": "s-1"}`)
	doRequest(t, srv, http.MethodPost, "/api/v1/sessions/s-1/category", "alice", `{"category_id": "rent"}`)
	doRequest(t, srv, http.MethodPost, "/api/v1/sessions/s-1/roles/lessor/claim", "alice", "")

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/sessions/s-1/sign", "alice", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBuildBeforeReadyOverHTTP(t *testing.T) {
	srv := newTestServer(t)

	doRequest(t, srv, http.MethodPost, "/api/v1/sessions", "alice", `{"session_id": "s-1"}`)
	doRequest(t, srv, http.MethodPost, "/api/v1/sessions/s-1/category", "alice", `{"category_id": "rent"}`)
	doRequest(t, srv, http.MethodPost, "/api/v1/sessions/s-1/roles/lessor/claim", "alice", "")

	// Required fields are still missing; a caller mistake, not a server fault.
	rec := doRequest(t, srv, http.MethodPost, "/api/v1/sessions/s-1/build", "alice", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
}

func TestSetUnknownTemplateOverHTTP(t *testing.T) {
	srv := newTestServer(t)

	doRequest(t, srv, http.MethodPost, "/api/v1/sessions", "alice", `{"session_id": "s-1"}`)
	doRequest(t, srv, http.MethodPost, "/api/v1/sessions/s-1/category", "alice", `{"category_id": "rent"}`)

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/sessions/s-1/template", "alice", `{"template_id": "sale_basic"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/-/healthy", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}
