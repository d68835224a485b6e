package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qs3c/fit_go_server/config"
	"github.com/qs3c/fit_go_server/internal/model"
	"github.com/qs3c/fit_go_server/internal/pkg/jwt"
	"github.com/qs3c/fit_go_server/internal/pkg/response"
	"github.com/qs3c/fit_go_server/internal/pkg/session"
	"github.com/qs3c/fit_go_server/internal/testutil"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const testSecret = "test-secret-key-for-middleware"

var sessionCfg = config.SessionConfig{Secret: testSecret, CookieName: "fit_session", TTLHours: 24}

func parseResponse(t *testing.T, w *httptest.ResponseRecorder) response.Response {
	var resp response.Response
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	return resp
}

func newStore(t *testing.T) *session.Store {
	_, rdb := testutil.SetupTestRedis(t)
	return session.NewStore(rdb, time.Hour)
}

// signedSession 创建会话并返回签名后的凭证
func signedSession(t *testing.T, store *session.Store, state session.State) (string, string) {
	t.Helper()

	id, err := store.Create(context.Background(), state)
	require.NoError(t, err)
	signed, err := jwt.GenerateToken(id, testSecret, 24)
	require.NoError(t, err)
	return id, signed
}

func onboardedUser() *model.User {
	return &model.User{
		ID:           42,
		Username:     "alice",
		Goal:         "run",
		FitnessLevel: model.FitnessBeginner,
		WorkoutDays:  model.WorkoutDays{1},
	}
}

func newRouter(store *session.Store, guards ...gin.HandlerFunc) *gin.Engine {
	router := gin.New()
	router.Use(Session(store, sessionCfg))
	router.Use(guards...)
	router.GET("/test", func(c *gin.Context) {
		userID, _ := GetUserID(c)
		sid, _ := GetSessionID(c)
		c.JSON(http.StatusOK, gin.H{"user_id": userID, "sid": sid})
	})
	return router
}

func TestSession_BearerHeader(t *testing.T) {
	store := newStore(t)
	id, signed := signedSession(t, store, session.ForUser(onboardedUser()))

	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	w := httptest.NewRecorder()
	newRouter(store, RequireAuthenticated()).ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, float64(42), body["user_id"])
	assert.Equal(t, id, body["sid"])
}

func TestSession_Cookie(t *testing.T) {
	store := newStore(t)
	_, signed := signedSession(t, store, session.ForUser(onboardedUser()))

	req := httptest.NewRequest("GET", "/test", nil)
	req.AddCookie(&http.Cookie{Name: "fit_session", Value: signed})
	w := httptest.NewRecorder()
	newRouter(store, RequireAuthenticated()).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSession_QueryTokenOnlyForWebsocket(t *testing.T) {
	store := newStore(t)
	_, signed := signedSession(t, store, session.ForUser(onboardedUser()))

	req := httptest.NewRequest("GET", "/test?token="+signed, nil)
	w := httptest.NewRecorder()
	newRouter(store, RequireSession()).ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req = httptest.NewRequest("GET", "/test?token="+signed, nil)
	req.Header.Set("Connection", "Upgrade")
	req.Header.Set("Upgrade", "websocket")
	w = httptest.NewRecorder()
	newRouter(store, RequireSession()).ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequireSession_Rejects(t *testing.T) {
	store := newStore(t)

	expired, err := jwt.GenerateToken("whatever", testSecret, -1)
	require.NoError(t, err)
	foreign, err := jwt.GenerateToken("whatever", "other-secret", 24)
	require.NoError(t, err)
	missing, err := jwt.GenerateToken("no-such-session", testSecret, 24)
	require.NoError(t, err)

	cases := map[string]string{
		"no header":         "",
		"not bearer":        "Token abc",
		"garbage":           "Bearer not-a-jwt",
		"expired":           "Bearer " + expired,
		"wrong secret":      "Bearer " + foreign,
		"destroyed session": "Bearer " + missing,
	}

	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/test", nil)
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			w := httptest.NewRecorder()
			newRouter(store, RequireSession()).ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Equal(t, response.CodeUnauthenticated, parseResponse(t, w).Code)
		})
	}
}

func TestRequireAuthenticated_OnboardingStage(t *testing.T) {
	store := newStore(t)
	_, signed := signedSession(t, store, session.ForUser(&model.User{ID: 7, Username: "bob"}))

	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("Authorization", "Bearer "+signed)

	w := httptest.NewRecorder()
	newRouter(store, RequireAuthenticated()).ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, response.CodeOnboardingRequired, parseResponse(t, w).Code)

	// 引导阶段可以访问只要求登录的接口
	w = httptest.NewRecorder()
	newRouter(store, RequireSession()).ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequireSession_AnonymousState(t *testing.T) {
	store := newStore(t)
	_, signed := signedSession(t, store, session.Anonymous())

	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	w := httptest.NewRecorder()
	newRouter(store, RequireSession()).ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
