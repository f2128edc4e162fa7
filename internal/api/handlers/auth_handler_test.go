package handlers_test

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/talkvia/talkvia-be/internal/api"
	"github.com/talkvia/talkvia-be/internal/config"
	"github.com/talkvia/talkvia-be/internal/database"
	"github.com/talkvia/talkvia-be/internal/services"
)

type sentMail struct {
	email, name, code string
}

type fakeMailer struct {
	err  error
	sent []sentMail
}

func (f *fakeMailer) SendVerification(_ context.Context, email, name, code string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMail{email: email, name: name, code: code})
	return nil
}

type fakeDirectory struct {
	err error
}

func (f *fakeDirectory) Upsert(_ context.Context, _, _, _ string) error {
	return f.err
}

type testApp struct {
	server *httptest.Server
	client *http.Client
	mailer *fakeMailer
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.Migrate(db))

	cfg := &config.Config{
		AppEnv:     "development",
		CORSOrigin: "http://localhost:5173",
		JWTSecret:  "test-secret",
		SessionTTL: 7 * 24 * time.Hour,
		CookieName: "jwt",
	}

	mailer := &fakeMailer{}
	eventService := services.NewEventService(db)
	authService := services.NewAuthService(db, mailer, &fakeDirectory{}, eventService, "https://avatars.example.com", 5*time.Second)

	server := httptest.NewServer(api.NewRouter(cfg, authService, eventService))
	t.Cleanup(server.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	return &testApp{
		server: server,
		client: &http.Client{Jar: jar},
		mailer: mailer,
	}
}

func (a *testApp) post(t *testing.T, path string, body any) (*http.Response, map[string]any) {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)

	resp, err := a.client.Post(a.server.URL+path, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	var decoded map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp, decoded
}

func (a *testApp) get(t *testing.T, path string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := a.client.Get(a.server.URL + path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	var decoded map[string]any
	if resp.StatusCode != http.StatusNoContent {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	}
	return resp, decoded
}

func (a *testApp) lastCode(t *testing.T) string {
	t.Helper()
	require.NotEmpty(t, a.mailer.sent, "no mail was dispatched")
	return a.mailer.sent[len(a.mailer.sent)-1].code
}

func sessionCookie(resp *http.Response) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == "jwt" {
			return c
		}
	}
	return nil
}

func TestAuthFlowEndToEnd(t *testing.T) {
	app := newTestApp(t)

	// Signup
	resp, body := app.post(t, "/api/v1/auth/signup", map[string]string{
		"email": "a@x.com", "password": "Abc123!@", "fullName": "Ann",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "a@x.com", body["email"])

	code := app.lastCode(t)
	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}

	// Verify with a wrong code: uniform invalid/expired rejection
	resp, body = app.post(t, "/api/v1/auth/verify-email", map[string]string{
		"email": "a@x.com", "otp": wrong,
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Invalid or expired verification code", body["message"])
	assert.Nil(t, sessionCookie(resp))

	// Verify with the correct code: session cookie issued
	resp, body = app.post(t, "/api/v1/auth/verify-email", map[string]string{
		"email": "a@x.com", "otp": code,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	cookie := sessionCookie(resp)
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, http.SameSiteStrictMode, cookie.SameSite)
	user := body["user"].(map[string]any)
	assert.Equal(t, true, user["isEmailVerified"])

	// Login
	resp, body = app.post(t, "/api/v1/auth/login", map[string]string{
		"email": "a@x.com", "password": "Abc123!@",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	user = body["user"].(map[string]any)
	assert.Equal(t, "a@x.com", user["email"])
	require.NotNil(t, sessionCookie(resp))

	// Onboard with a missing field lists exactly that field
	resp, body = app.post(t, "/api/v1/auth/onboard", map[string]string{
		"fullName":         "Ann",
		"bio":              "Learning Spanish",
		"nativeLanguage":   "English",
		"learningLanguage": "Spanish",
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, []any{"location"}, body["missingFields"])

	// Onboard with all fields set
	resp, body = app.post(t, "/api/v1/auth/onboard", map[string]string{
		"fullName":         "Ann",
		"bio":              "Learning Spanish",
		"nativeLanguage":   "English",
		"learningLanguage": "Spanish",
		"location":         "Lisbon",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	user = body["user"].(map[string]any)
	assert.Equal(t, true, user["isOnboarded"])
	assert.Equal(t, "Lisbon", user["location"])

	// The session identifies the user
	resp, body = app.get(t, "/api/v1/auth/me")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "a@x.com", body["email"])
}

func TestLoginUnverifiedDistinctFromBadCredentials(t *testing.T) {
	app := newTestApp(t)

	resp, _ := app.post(t, "/api/v1/auth/signup", map[string]string{
		"email": "a@x.com", "password": "Abc123!@", "fullName": "Ann",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, body := app.post(t, "/api/v1/auth/login", map[string]string{
		"email": "a@x.com", "password": "Abc123!@",
	})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "Please verify your email before logging in", body["message"])

	resp, body = app.post(t, "/api/v1/auth/login", map[string]string{
		"email": "a@x.com", "password": "Wrong123!@",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Invalid email or password", body["message"])

	resp, body = app.post(t, "/api/v1/auth/login", map[string]string{
		"email": "nobody@x.com", "password": "Abc123!@",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Invalid email or password", body["message"])
}

func TestSignupValidationResponses(t *testing.T) {
	app := newTestApp(t)

	resp, body := app.post(t, "/api/v1/auth/signup", map[string]string{
		"email": "a@x.com",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, []any{"password", "fullName"}, body["missingFields"])

	resp, body = app.post(t, "/api/v1/auth/signup", map[string]string{
		"email": "a@x.com", "password": "weak", "fullName": "Ann",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Password must be at least 8 characters long", body["message"])

	resp, body = app.post(t, "/api/v1/auth/signup", map[string]string{
		"email": "not-an-email", "password": "Abc123!@", "fullName": "Ann",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Email is not valid", body["message"])
}

func TestSignupDispatchFailureReturns500(t *testing.T) {
	app := newTestApp(t)
	app.mailer.err = context.DeadlineExceeded

	resp, _ := app.post(t, "/api/v1/auth/signup", map[string]string{
		"email": "a@x.com", "password": "Abc123!@", "fullName": "Ann",
	})
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	// Rolled back: the same signup succeeds once dispatch works again.
	app.mailer.err = nil
	resp, _ = app.post(t, "/api/v1/auth/signup", map[string]string{
		"email": "a@x.com", "password": "Abc123!@", "fullName": "Ann",
	})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestResendVerificationEndpoint(t *testing.T) {
	app := newTestApp(t)

	resp, _ := app.post(t, "/api/v1/auth/resend-verification", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = app.post(t, "/api/v1/auth/resend-verification", map[string]string{"email": "nobody@x.com"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = app.post(t, "/api/v1/auth/signup", map[string]string{
		"email": "a@x.com", "password": "Abc123!@", "fullName": "Ann",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, _ = app.post(t, "/api/v1/auth/resend-verification", map[string]string{"email": "a@x.com"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, app.mailer.sent, 2)

	resp, _ = app.post(t, "/api/v1/auth/verify-email", map[string]string{
		"email": "a@x.com", "otp": app.lastCode(t),
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = app.post(t, "/api/v1/auth/resend-verification", map[string]string{"email": "a@x.com"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestLogoutClearsCookie(t *testing.T) {
	app := newTestApp(t)

	resp, body := app.post(t, "/api/v1/auth/logout", map[string]string{})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["success"])

	cookie := sessionCookie(resp)
	require.NotNil(t, cookie)
	assert.Empty(t, cookie.Value)
	assert.Negative(t, cookie.MaxAge)
}

func TestProtectedRoutesRequireSession(t *testing.T) {
	app := newTestApp(t)

	resp, _ := app.get(t, "/api/v1/auth/me")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = app.post(t, "/api/v1/auth/onboard", map[string]string{})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = app.get(t, "/api/v1/events")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestEventsEndpoint(t *testing.T) {
	app := newTestApp(t)

	resp, _ := app.post(t, "/api/v1/auth/signup", map[string]string{
		"email": "a@x.com", "password": "Abc123!@", "fullName": "Ann",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp, _ = app.post(t, "/api/v1/auth/verify-email", map[string]string{
		"email": "a@x.com", "otp": app.lastCode(t),
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	req, err := http.NewRequest(http.MethodGet, app.server.URL+"/api/v1/events", nil)
	require.NoError(t, err)
	eventResp, err := app.client.Do(req)
	require.NoError(t, err)
	defer eventResp.Body.Close()
	require.Equal(t, http.StatusOK, eventResp.StatusCode)

	var events []map[string]any
	require.NoError(t, json.NewDecoder(eventResp.Body).Decode(&events))
	assert.GreaterOrEqual(t, len(events), 2)
}
