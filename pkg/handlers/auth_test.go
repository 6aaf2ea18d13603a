package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"fable/pkg/apperr"
	"fable/pkg/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
)

type fakeAuthService struct {
	loginResp    models.AuthResponse
	loginToken   string
	loginExpires time.Time
	loginErr     error

	refreshResp models.AuthResponse
	refreshErr  error

	loggedOut []string
}

func (f *fakeAuthService) Signup(req models.SignupRequest) (models.User, error) {
	return models.User{ID: 1, Username: req.Username, Name: req.Name}, nil
}

func (f *fakeAuthService) CheckDuplicate(username string) (bool, error) {
	return username == "taken", nil
}

func (f *fakeAuthService) Login(req models.LoginRequest) (models.AuthResponse, string, time.Time, error) {
	if f.loginErr != nil {
		return models.AuthResponse{}, "", time.Time{}, f.loginErr
	}
	return f.loginResp, f.loginToken, f.loginExpires, nil
}

func (f *fakeAuthService) Refresh(cookieToken string) (models.AuthResponse, error) {
	if f.refreshErr != nil {
		return models.AuthResponse{}, f.refreshErr
	}
	return f.refreshResp, nil
}

func (f *fakeAuthService) Logout(cookieToken string) error {
	f.loggedOut = append(f.loggedOut, cookieToken)
	return nil
}

func newAuthApp(svc *fakeAuthService) *fiber.App {
	app := fiber.New()
	h := NewAuth(svc, false)
	app.Post("/auth/check-duplicate", h.CheckDuplicate)
	app.Post("/auth/signup", h.Signup)
	app.Post("/auth/login", h.Login)
	app.Post("/auth/refresh", h.Refresh)
	app.Post("/auth/logout", h.Logout)
	return app
}

func postJSON(t *testing.T, app *fiber.App, path, body string) *http.Response {
	t.Helper()
	req := httptest.NewRequest("POST", path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func refreshCookie(resp *http.Response) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == "refresh_token" {
			return c
		}
	}
	return nil
}

func TestLogin_SetsRefreshCookie(t *testing.T) {
	svc := &fakeAuthService{
		loginResp:    models.AuthResponse{UserID: 1, Name: "Alice", AccessToken: "access-jwt"},
		loginToken:   "refresh-jwt",
		loginExpires: time.Now().Add(7 * 24 * time.Hour),
	}
	app := newAuthApp(svc)

	resp := postJSON(t, app, "/auth/login", `{"username":"alice","password":"correct horse"}`)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body models.AuthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, "access-jwt", body.AccessToken)

	cookie := refreshCookie(resp)
	require.NotNil(t, cookie)
	require.Equal(t, "refresh-jwt", cookie.Value)
	require.True(t, cookie.HttpOnly)
}

func TestLogin_BadCredentials(t *testing.T) {
	svc := &fakeAuthService{loginErr: apperr.BadRequest("incorrect username or password")}
	app := newAuthApp(svc)

	resp := postJSON(t, app, "/auth/login", `{"username":"alice","password":"wrong"}`)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, "incorrect username or password", body["error"])
	require.Nil(t, refreshCookie(resp))
}

func TestLogin_MissingFields(t *testing.T) {
	app := newAuthApp(&fakeAuthService{})

	resp := postJSON(t, app, "/auth/login", `{"username":"alice"}`)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestRefresh_FailureClearsCookie(t *testing.T) {
	svc := &fakeAuthService{refreshErr: apperr.Unauthorized("session expired, please log in again")}
	app := newAuthApp(svc)

	req := httptest.NewRequest("POST", "/auth/refresh", nil)
	req.AddCookie(&http.Cookie{Name: "refresh_token", Value: "dead"})
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	cookie := refreshCookie(resp)
	require.NotNil(t, cookie)
	require.Empty(t, cookie.Value)
	require.True(t, cookie.Expires.Before(time.Now()))
}

func TestRefresh_Success(t *testing.T) {
	svc := &fakeAuthService{refreshResp: models.AuthResponse{UserID: 1, Name: "Alice", AccessToken: "fresh"}}
	app := newAuthApp(svc)

	req := httptest.NewRequest("POST", "/auth/refresh", nil)
	req.AddCookie(&http.Cookie{Name: "refresh_token", Value: "live"})
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body models.AuthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, "fresh", body.AccessToken)
}

func TestLogout_AlwaysSucceedsAndClearsCookie(t *testing.T) {
	svc := &fakeAuthService{}
	app := newAuthApp(svc)

	// With a cookie.
	req := httptest.NewRequest("POST", "/auth/logout", nil)
	req.AddCookie(&http.Cookie{Name: "refresh_token", Value: "live"})
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, []string{"live"}, svc.loggedOut)

	cookie := refreshCookie(resp)
	require.NotNil(t, cookie)
	require.Empty(t, cookie.Value)

	// Without one: still 200.
	resp, err = app.Test(httptest.NewRequest("POST", "/auth/logout", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestSignup_ReturnsUserID(t *testing.T) {
	app := newAuthApp(&fakeAuthService{})

	resp := postJSON(t, app, "/auth/signup",
		`{"username":"alice","name":"Alice","password":"correct horse"}`)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var body map[string]int
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, 1, body["user_id"])
}

func TestCheckDuplicate(t *testing.T) {
	app := newAuthApp(&fakeAuthService{})

	resp := postJSON(t, app, "/auth/check-duplicate", `{"username":"taken"}`)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body map[string]bool
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.True(t, body["exists"])
}
