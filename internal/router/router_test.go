package router

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"residentportal/internal/auth"
	"residentportal/internal/cache"
	"residentportal/internal/db"
	"residentportal/internal/handler"
	"residentportal/internal/logging"
	"residentportal/internal/model"
	"residentportal/internal/repository"
	"residentportal/internal/service"
)

type outbox struct {
	mu    sync.Mutex
	links map[string]string
}

func (o *outbox) SendVerification(_ context.Context, email, token string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.links["verify:"+email] = token
	return nil
}

func (o *outbox) SendReset(_ context.Context, email, token string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.links["reset:"+email] = token
	return nil
}

func (o *outbox) get(key string) string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.links[key]
}

type testServer struct {
	e        *echo.Echo
	mail     *outbox
	repo     repository.AccountRepository
	accounts service.AccountService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gormDB, err := db.NewSQLite(fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()))
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gormDB, false))

	mr := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rc.Close() })
	cacheClient := cache.NewFromRedis(rc)

	hasher, err := auth.NewPasswordHasher(bcrypt.MinCost, 2)
	require.NoError(t, err)
	signer, err := auth.NewJWTService("test-secret", "resident-portal", time.Hour)
	require.NoError(t, err)

	logger := logging.Discard()
	repo := repository.NewAccountRepository(gormDB)
	mail := &outbox{links: map[string]string{}}
	authSvc := service.NewAuthService(repo, hasher, auth.NewTokenIssuer(), signer, mail,
		auth.NewThrottle(cacheClient, 3, time.Minute), logger)
	accountSvc := service.NewAccountService(repo, hasher, logger, service.DefaultMinPasswordLength)

	e := echo.New()
	Register(e, Deps{
		Logger:         logger,
		CORSOrigins:    []string{"*"},
		Verifier:       signer,
		AuthHandler:    handler.NewAuthHandler(authSvc),
		AccountHandler: handler.NewAccountHandler(accountSvc),
		Cache:          cacheClient,
	})
	return &testServer{e: e, mail: mail, repo: repo, accounts: accountSvc}
}

func (s *testServer) do(t *testing.T, method, path, body, token string) (int, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)

	var out map[string]interface{}
	if strings.HasPrefix(rec.Header().Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec.Code, out
}

func TestRouter_AliceOverHTTP(t *testing.T) {
	s := newTestServer(t)
	const register = `{"email":"alice@example.com","password":"secret123","first_name":"Alice","last_name":"Reyes"}`

	status, body := s.do(t, http.MethodPost, "/auth/register", register, "")
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "success", body["status"])
	assert.NotContains(t, body, "token")

	status, body = s.do(t, http.MethodPost, "/auth/register", register, "")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "fail", body["status"])

	status, body = s.do(t, http.MethodPost, "/auth/login", `{"email":"alice@example.com","password":"secret123"}`, "")
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "EMAIL_NOT_VERIFIED", body["code"])

	verify := s.mail.get("verify:alice@example.com")
	status, _ = s.do(t, http.MethodPost, "/auth/verify-email", `{"token":"`+verify+`"}`, "")
	require.Equal(t, http.StatusOK, status)
	status, body = s.do(t, http.MethodPost, "/auth/verify-email", `{"token":"`+verify+`"}`, "")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "TOKEN_INVALID", body["code"])

	status, body = s.do(t, http.MethodPost, "/auth/login", `{"email":"alice@example.com","password":"secret123"}`, "")
	require.Equal(t, http.StatusOK, status)
	token := body["token"].(string)
	user := body["user"].(map[string]interface{})
	assert.Equal(t, "RESIDENT", user["role"])
	assert.NotContains(t, user, "password_hash")

	_, wrong := s.do(t, http.MethodPost, "/auth/login", `{"email":"alice@example.com","password":"nope-nope"}`, "")
	_, unknown := s.do(t, http.MethodPost, "/auth/login", `{"email":"ghost@example.com","password":"nope-nope"}`, "")
	assert.Equal(t, wrong, unknown)

	status, body = s.do(t, http.MethodGet, "/auth/profile", "", token)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "alice@example.com", body["user"].(map[string]interface{})["email"])

	status, body = s.do(t, http.MethodPost, "/auth/refresh", "", token)
	require.Equal(t, http.StatusOK, status)
	assert.NotEmpty(t, body["token"])

	_, known := s.do(t, http.MethodPost, "/auth/forgot-password", `{"email":"alice@example.com"}`, "")
	_, ghost := s.do(t, http.MethodPost, "/auth/forgot-password", `{"email":"ghost@example.com"}`, "")
	assert.Equal(t, known, ghost)

	reset := s.mail.get("reset:alice@example.com")
	require.NotEmpty(t, reset)
	assert.NotEqual(t, verify, reset)
	status, _ = s.do(t, http.MethodPost, "/auth/reset-password", `{"token":"`+reset+`","password":"n3wPassw0rd"}`, "")
	require.Equal(t, http.StatusOK, status)

	status, _ = s.do(t, http.MethodPost, "/auth/login", `{"email":"alice@example.com","password":"n3wPassw0rd"}`, "")
	assert.Equal(t, http.StatusOK, status)
	status, body = s.do(t, http.MethodPost, "/auth/login", `{"email":"alice@example.com","password":"secret123"}`, "")
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "INVALID_CREDENTIALS", body["code"])
}

func TestRouter_Guard(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	status, body := s.do(t, http.MethodGet, "/auth/profile", "", "")
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "fail", body["status"])
	assert.Equal(t, "UNAUTHENTICATED", body["code"])

	status, _ = s.do(t, http.MethodGet, "/auth/profile", "", "not.a.token")
	assert.Equal(t, http.StatusUnauthorized, status)

	_, _, err := s.accounts.SeedAdmin(ctx, service.RegisterInput{Email: "admin@example.com", Password: "admin-pass"})
	require.NoError(t, err)
	_, body = s.do(t, http.MethodPost, "/auth/login", `{"email":"admin@example.com","password":"admin-pass"}`, "")
	adminToken := body["token"].(string)

	status, _ = s.do(t, http.MethodPost, "/auth/register", `{"email":"bob@example.com","password":"secret123","first_name":"Bob","last_name":"Cruz"}`, "")
	require.Equal(t, http.StatusCreated, status)
	bob, err := s.repo.FindByEmail(ctx, "bob@example.com")
	require.NoError(t, err)
	ok, err := s.repo.ConsumeToken(ctx, bob.ID, model.TokenKindVerification, *bob.VerificationToken, time.Now(), map[string]interface{}{
		"email_verified": true,
	})
	require.NoError(t, err)
	require.True(t, ok)
	_, body = s.do(t, http.MethodPost, "/auth/login", `{"email":"bob@example.com","password":"secret123"}`, "")
	bobToken := body["token"].(string)

	status, body = s.do(t, http.MethodGet, "/admin/accounts/"+bob.ID.String(), "", adminToken)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "bob@example.com", body["user"].(map[string]interface{})["email"])

	status, body = s.do(t, http.MethodGet, "/admin/accounts/"+bob.ID.String(), "", bobToken)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "FORBIDDEN", body["code"])

	status, _ = s.do(t, http.MethodGet, "/admin/accounts/"+bob.ID.String(), "", "")
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = s.do(t, http.MethodGet, "/admin/accounts/"+uuid.NewString(), "", adminToken)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestRouter_ForgotPasswordThrottle(t *testing.T) {
	s := newTestServer(t)
	status, _ := s.do(t, http.MethodPost, "/auth/register", `{"email":"alice@example.com","password":"secret123","first_name":"Alice","last_name":"Reyes"}`, "")
	require.Equal(t, http.StatusCreated, status)

	var tokens []string
	for i := 0; i < 5; i++ {
		status, body := s.do(t, http.MethodPost, "/auth/forgot-password", `{"email":"alice@example.com"}`, "")
		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, service.MsgResetRequested, body["message"])
		tokens = append(tokens, s.mail.get("reset:alice@example.com"))
	}
	// the limit is 3 per window; later requests send nothing new
	assert.Equal(t, tokens[2], tokens[3])
	assert.Equal(t, tokens[2], tokens[4])
	assert.NotEqual(t, tokens[1], tokens[2])

	// a completed reset clears the counter
	status, _ = s.do(t, http.MethodPost, "/auth/reset-password", `{"token":"`+tokens[2]+`","password":"newsecret456"}`, "")
	require.Equal(t, http.StatusOK, status)
	status, _ = s.do(t, http.MethodPost, "/auth/forgot-password", `{"email":"alice@example.com"}`, "")
	assert.Equal(t, http.StatusOK, status)
	assert.NotEqual(t, tokens[2], s.mail.get("reset:alice@example.com"))
}

func TestRouter_Envelopes(t *testing.T) {
	s := newTestServer(t)

	status, body := s.do(t, http.MethodGet, "/nope", "", "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "fail", body["status"])
	assert.Equal(t, "NOT_FOUND", body["code"])

	status, body = s.do(t, http.MethodPost, "/auth/login", `{"email":`, "")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_ERROR", body["code"])

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))
}

func TestRender(t *testing.T) {
	status, body := render(echo.NewHTTPError(http.StatusMethodNotAllowed, "method not allowed"))
	assert.Equal(t, http.StatusMethodNotAllowed, status)
	assert.Equal(t, "METHOD_NOT_ALLOWED", body.Code)

	status, body = render(echo.NewHTTPError(http.StatusInternalServerError, "db password is hunter2"))
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "error", body.Status)
	assert.NotContains(t, body.Message, "hunter2")

	status, body = render(fmt.Errorf("wrapped: %w", context.DeadlineExceeded))
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "internal server error", body.Message)
}
