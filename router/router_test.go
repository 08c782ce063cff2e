package router

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gamedoc/config"
	"gamedoc/internal/access"
	docrepo "gamedoc/internal/document/repository"
	"gamedoc/socket"
)

const testSecret = "router-test-secret"

func newRouter(t *testing.T) (http.Handler, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	docs := docrepo.NewDocumentRepository(db)
	hub := socket.NewHub(docs, access.NewResolver(docs), time.Hour)
	cfg := &config.Config{JWTSecret: testSecret, CORSOrigin: "https://app.example.com", InvitationTTL: time.Hour}
	return Setup(Deps{DB: db, Hub: hub, Config: cfg}), mock
}

func signed(t *testing.T, sub string) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": sub,
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return tok
}

func TestHealthz(t *testing.T) {
	h, mock := newRouter(t)
	mock.ExpectPing()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAPIRequiresToken(t *testing.T) {
	h, _ := newRouter(t)

	for _, path := range []string{"/api/documents", "/api/games", "/api/teams", "/api/invitations", "/api/notes", "/ws"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}
}

func TestPreflightSkipsAuth(t *testing.T) {
	h, _ := newRouter(t)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/api/notes/create", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestAuthenticatedRouteReachesService(t *testing.T) {
	h, mock := newRouter(t)
	mock.ExpectQuery("FROM notes").WithArgs("user-1", "").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "title", "content", "tags", "game", "created_at", "updated_at"}))

	req := httptest.NewRequest(http.MethodGet, "/api/notes", nil)
	req.Header.Set("Authorization", "Bearer "+signed(t, "user-1"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"notes":[]}`, rec.Body.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWrongMethod(t *testing.T) {
	h, _ := newRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/notes/create", nil)
	req.Header.Set("Authorization", "Bearer "+signed(t, "user-1"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	h, _ := newRouter(t)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
