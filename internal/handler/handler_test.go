package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"library_auth/internal/auth"
	"library_auth/internal/models"
	"library_auth/internal/service"
	"library_auth/internal/storage"
)

type testServer struct {
	router  *gin.Engine
	service service.Service
	storage *storage.MemoryStorage
	admin   models.User
	user    models.User
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	gin.SetMode(gin.TestMode)

	st := storage.NewMemoryStorage()
	codec := auth.NewTokenCodec("test-secret", time.Hour)
	srvc := service.NewService(st, codec)
	lgr := slog.New(slog.NewTextHandler(io.Discard, nil))

	h := NewHandler(srvc, lgr, "local")

	admin, err := srvc.CreateUser(context.Background(), "admin", "admin@example.com", "admin-pass", models.RoleAdmin)
	require.NoError(t, err)
	user, err := srvc.CreateUser(context.Background(), "bob", "bob@example.com", "bob-pass", models.RoleUser)
	require.NoError(t, err)

	return &testServer{
		router:  h.InitRoutes(),
		service: srvc,
		storage: st,
		admin:   admin,
		user:    user,
	}
}

func (ts *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)

	return rec
}

func (ts *testServer) login(t *testing.T, email, password string) (string, models.PublicUser) {
	t.Helper()

	rec := ts.do(t, http.MethodPost, "/auth/login", "", gin.H{"email": email, "password": password})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Token string            `json:"token"`
		User  models.PublicUser `json:"user"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)

	return resp.Token, resp.User
}

func decodeMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()

	var resp struct {
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	return resp.Message
}

func decodeFail(t *testing.T, rec *httptest.ResponseRecorder) (string, string) {
	t.Helper()

	var resp struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	return resp.Status, resp.Message
}

func TestLogin_EndToEnd(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)

	token, user := ts.login(t, "bob@example.com", "bob-pass")
	assert.Equal(t, "bob", user.UserName)
	assert.Equal(t, models.RoleUser, user.Role)

	// The token works on a protected route and exposes the live role.
	rec := ts.do(t, http.MethodGet, "/auth/profile", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var profile models.PublicUser
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &profile))
	assert.Equal(t, "bob@example.com", profile.Email)
	assert.Equal(t, models.RoleUser, profile.Role)
}

func TestLogin_SetsCookie(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/auth/login", "", gin.H{"email": "bob@example.com", "password": "bob-pass"})
	require.Equal(t, http.StatusOK, rec.Code)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	cookie := cookies[0]

	assert.Equal(t, "jwt", cookie.Name)
	assert.NotEmpty(t, cookie.Value)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, http.SameSiteStrictMode, cookie.SameSite)
	assert.False(t, cookie.Secure) // env=local
	assert.Equal(t, int(time.Hour.Seconds()), cookie.MaxAge)
}

func TestLogin_MissingFields(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/auth/login", "", gin.H{"email": "bob@example.com"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Email and password are required", decodeMessage(t, rec))
}

func TestLogin_InvalidCredentialsDoNotRevealEmail(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)

	wrongPwd := ts.do(t, http.MethodPost, "/auth/login", "", gin.H{"email": "bob@example.com", "password": "nope"})
	unknown := ts.do(t, http.MethodPost, "/auth/login", "", gin.H{"email": "ghost@example.com", "password": "nope"})

	assert.Equal(t, http.StatusUnauthorized, wrongPwd.Code)
	assert.Equal(t, http.StatusUnauthorized, unknown.Code)
	// Identical bodies: the response must not betray whether the email exists.
	assert.Equal(t, wrongPwd.Body.String(), unknown.Body.String())
}

func TestProtected_NoToken(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/auth/profile", "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	status, message := decodeFail(t, rec)
	assert.Equal(t, "fail", status)
	assert.Equal(t, msgNotLoggedIn, message)
}

func TestProtected_CookieFallback(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)
	token, _ := ts.login(t, "bob@example.com", "bob-pass")

	req := httptest.NewRequest(http.MethodGet, "/auth/profile", nil)
	req.AddCookie(&http.Cookie{Name: "jwt", Value: token})

	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestProtected_GarbageToken(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/auth/profile", "garbage", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	_, message := decodeFail(t, rec)
	assert.Equal(t, msgInvalidToken, message)
}

func TestProtected_DeletedUser(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)
	token, _ := ts.login(t, "bob@example.com", "bob-pass")

	require.NoError(t, ts.storage.DeleteUser(context.Background(), ts.user.ID))

	rec := ts.do(t, http.MethodGet, "/auth/profile", token, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	_, message := decodeFail(t, rec)
	assert.Equal(t, msgUserGone, message)
}

func TestProtected_PasswordChangeInvalidatesToken(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)
	token, _ := ts.login(t, "bob@example.com", "bob-pass")

	claims, err := ts.service.TokenCodec().Parse(token)
	require.NoError(t, err)

	// Change strictly after issuance; the token is nowhere near its
	// expiry but must be rejected anyway.
	changed := claims.IssuedAt.Add(2 * time.Second)
	ts.storage.SetPasswordChangedAt(ts.user.ID, &changed)

	rec := ts.do(t, http.MethodGet, "/auth/profile", token, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	_, message := decodeFail(t, rec)
	assert.Equal(t, msgPasswordChanged, message)
}

func TestRoleGate(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)
	userToken, _ := ts.login(t, "bob@example.com", "bob-pass")
	adminToken, _ := ts.login(t, "admin@example.com", "admin-pass")

	rec := ts.do(t, http.MethodGet, "/users", userToken, nil)
	require.Equal(t, http.StatusForbidden, rec.Code)

	status, message := decodeFail(t, rec)
	assert.Equal(t, "fail", status)
	assert.Equal(t, msgForbidden, message)

	rec = ts.do(t, http.MethodGet, "/users", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var users []models.PublicUser
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &users))
	assert.Len(t, users, 2)
}

func TestCreateUser_Validation(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/users", "", gin.H{"userName": "carol", "email": "carol@example.com"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Username, email and password are required", decodeMessage(t, rec))

	rec = ts.do(t, http.MethodPost, "/users", "", gin.H{"userName": "bob2", "email": "bob@example.com", "password": "pw"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "User already exists with this email", decodeMessage(t, rec))
}

func TestCreateUser_Success(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/users", "", gin.H{
		"userName": "carol",
		"email":    "carol@example.com",
		"password": "carol-pass",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var created models.PublicUser
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, models.RoleUser, created.Role)

	// The new account can log in right away.
	ts.login(t, "carol@example.com", "carol-pass")
}

func TestUpdateUser_PasswordChangeEndToEnd(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)
	token, _ := ts.login(t, "bob@example.com", "bob-pass")

	rec := ts.do(t, http.MethodPut, "/users/"+ts.user.ID.String(), token, gin.H{"password": "new-pass"})
	require.Equal(t, http.StatusOK, rec.Code)

	user, err := ts.storage.GetUserByID(context.Background(), ts.user.ID)
	require.NoError(t, err)
	assert.NotNil(t, user.PasswordChangedAt)

	_, _ = ts.login(t, "bob@example.com", "new-pass")
}

func TestDeleteUser(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)
	adminToken, _ := ts.login(t, "admin@example.com", "admin-pass")
	userToken, _ := ts.login(t, "bob@example.com", "bob-pass")

	// Deletion is admin-only.
	rec := ts.do(t, http.MethodDelete, "/users/"+ts.admin.ID.String(), userToken, nil)
	require.Equal(t, http.StatusForbidden, rec.Code)
	_, message := decodeFail(t, rec)
	assert.Equal(t, msgForbidden, message)

	rec = ts.do(t, http.MethodDelete, "/users/"+ts.admin.ID.String(), adminToken, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "You cannot delete your own account", decodeMessage(t, rec))

	rec = ts.do(t, http.MethodDelete, "/users/"+ts.user.ID.String(), adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "User successfully deleted", decodeMessage(t, rec))

	rec = ts.do(t, http.MethodDelete, "/users/"+ts.user.ID.String(), adminToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
