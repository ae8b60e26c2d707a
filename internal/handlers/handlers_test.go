package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"membership-service/internal/event"
	"membership-service/internal/middleware"
	"membership-service/internal/models"
	"membership-service/internal/repository"
	"membership-service/internal/service"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/require"
)

const cookieName = "membership_session"

// fakeVerifier accepts "assertion-for:<email>" and rejects everything else.
type fakeVerifier struct{}

func (fakeVerifier) Verify(ctx context.Context, assertion string) (string, error) {
	email, ok := strings.CutPrefix(assertion, "assertion-for:")
	if !ok {
		return "", fmt.Errorf("%w: status %q", models.ErrIdentityRejected, "failure")
	}
	if email == "down" {
		return "", models.ErrIdentityUnavailable
	}
	return email, nil
}

type fakeGoogle struct{}

func (fakeGoogle) AuthURL(state string) string {
	return "https://accounts.example.org/auth?state=" + url.QueryEscape(state)
}

func (fakeGoogle) Identify(ctx context.Context, code string) (string, error) {
	if code != "good-code" {
		return "", models.ErrIdentityRejected
	}
	return "google@example.org", nil
}

// countingStore counts the sessions written to the wrapped store.
type countingStore struct {
	service.SessionStore
	saved int
}

func (s *countingStore) SaveSession(ctx context.Context, session *models.Session, ttl time.Duration) error {
	s.saved++
	return s.SessionStore.SaveSession(ctx, session, ttl)
}

type testApp struct {
	app           *fiber.App
	dataDir       string
	registrations *service.RegistrationService
	publisher     *event.MockPublisher
	store         *countingStore
}

func setupApp(t *testing.T, google GoogleIdentity) *testApp {
	t.Helper()
	dataDir := t.TempDir()
	publisher := event.NewMockPublisher()

	profiles := service.NewProfileService(repository.NewProfileRepository(filepath.Join(dataDir, "json")), nil, publisher)
	registrations := service.NewRegistrationService(repository.NewRegistrationRepository(filepath.Join(dataDir, "registrations")), publisher)
	store := &countingStore{SessionStore: repository.NewMemorySessionRepository()}
	sessions := service.NewSessionService(store, "test-secret", time.Hour)

	app := fiber.New()
	app.Use(middleware.RequestTimer())
	app.Use(middleware.SessionGate(sessions, cookieName))
	NewIndexHandler(registrations, google != nil).RegisterRoutes(app)
	NewAuthHandler(sessions, profiles, fakeVerifier{}, google, CookieConfig{Name: cookieName}).RegisterRoutes(app)
	NewProfileHandler(profiles).RegisterRoutes(app)
	NewRegistrationHandler(registrations).RegisterRoutes(app)

	return &testApp{app: app, dataDir: dataDir, registrations: registrations, publisher: publisher, store: store}
}

func (a *testApp) do(t *testing.T, req *http.Request, cookie string) *http.Response {
	t.Helper()
	if cookie != "" {
		req.AddCookie(&http.Cookie{Name: cookieName, Value: cookie})
	}
	resp, err := a.app.Test(req)
	require.NoError(t, err)
	return resp
}

func (a *testApp) signIn(t *testing.T, email string) string {
	t.Helper()
	form := url.Values{"assertion": {"assertion-for:" + email}}
	req := httptest.NewRequest(http.MethodPost, "/persona/signin", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp := a.do(t, req, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	for _, c := range resp.Cookies() {
		if c.Name == cookieName {
			require.True(t, c.HttpOnly)
			return c.Value
		}
	}
	t.Fatal("sign-in did not set the session cookie")
	return ""
}

func decode(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(data)
}

func TestSignIn_CreatesProfile(t *testing.T) {
	ta := setupApp(t, nil)
	ta.signIn(t, "orwell@1984.apocalypse")

	_, err := os.Stat(filepath.Join(ta.dataDir, "json", "orwell@1984.apocalypse.json"))
	require.NoError(t, err)
	require.Len(t, ta.publisher.ProfileEvents, 1)
	require.Equal(t, models.EventTypeProfileCreated, ta.publisher.ProfileEvents[0].Type)
}

func TestSignIn_Failures(t *testing.T) {
	ta := setupApp(t, nil)

	tests := []struct {
		assertion string
		status    int
		code      string
	}{
		{"", http.StatusUnauthorized, "identity_rejected"},
		{"forged", http.StatusUnauthorized, "identity_rejected"},
		{"assertion-for:down", http.StatusBadGateway, "identity_unavailable"},
		{"assertion-for:../../etc", http.StatusBadRequest, "invalid_identifier"},
	}

	for _, tt := range tests {
		form := url.Values{"assertion": {tt.assertion}}
		req := httptest.NewRequest(http.MethodPost, "/persona/signin", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		resp := ta.do(t, req, "")
		require.Equal(t, tt.status, resp.StatusCode, tt.assertion)
		require.Equal(t, tt.code, decode(t, resp)["error"], tt.assertion)
	}
}

func TestSignIn_SessionSurvivesLaterRequests(t *testing.T) {
	ta := setupApp(t, nil)
	cookie := ta.signIn(t, "orwell@1984.apocalypse")

	for i := 0; i < 5; i++ {
		ta.signIn(t, fmt.Sprintf("member%d@example.org", i))

		form := url.Values{"personal.firstname": {fmt.Sprintf("<b>%d</b> overwritten buffer", i)}}
		req := httptest.NewRequest(http.MethodPost, "/profile", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		resp := ta.do(t, req, cookie)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		resp.Body.Close()
	}

	resp := ta.do(t, httptest.NewRequest(http.MethodGet, "/api/profile", nil), cookie)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	data := decode(t, resp)["data"].(map[string]any)
	require.Equal(t, "orwell@1984.apocalypse", data["identifier"])
}

func TestSignIn_ProfileFailureStoresNoSession(t *testing.T) {
	ta := setupApp(t, nil)
	require.NoError(t, os.MkdirAll(filepath.Join(ta.dataDir, "json", "orwell@1984.apocalypse.json"), 0755))

	form := url.Values{"assertion": {"assertion-for:orwell@1984.apocalypse"}}
	req := httptest.NewRequest(http.MethodPost, "/persona/signin", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp := ta.do(t, req, "")
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	require.Equal(t, "storage_error", decode(t, resp)["error"])
	require.Empty(t, resp.Cookies())
	require.Zero(t, ta.store.saved)
}

func TestProtectedRoutesRequireSession(t *testing.T) {
	ta := setupApp(t, nil)

	requests := []*http.Request{
		httptest.NewRequest(http.MethodGet, "/profile", nil),
		httptest.NewRequest(http.MethodPost, "/profile", nil),
		httptest.NewRequest(http.MethodGet, "/api/profile", nil),
		httptest.NewRequest(http.MethodPatch, "/api/profile", strings.NewReader(`{}`)),
		httptest.NewRequest(http.MethodPost, "/register?event=gala2014", nil),
		httptest.NewRequest(http.MethodGet, "/api/events", nil),
	}
	for _, req := range requests {
		resp := ta.do(t, req, "")
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode, req.URL.Path)
		require.Equal(t, "not_authenticated", decode(t, resp)["error"])
	}

	// A forged cookie is treated as no session at all.
	resp := ta.do(t, httptest.NewRequest(http.MethodGet, "/api/profile", nil), "forged")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestProfilePage_UpdateThroughForm(t *testing.T) {
	ta := setupApp(t, nil)
	cookie := ta.signIn(t, "orwell@1984.apocalypse")

	resp := ta.do(t, httptest.NewRequest(http.MethodGet, "/profile", nil), cookie)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	page := readBody(t, resp)
	require.Contains(t, page, `<span id="identifier">orwell@1984.apocalypse</span>`)
	require.Contains(t, page, `name="emergency.1.gsm"`)

	form := url.Values{
		"personal.firstname":    {" Georges "},
		"emergency.0.firstname": {"Eileen"},
	}
	req := httptest.NewRequest(http.MethodPost, "/profile", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp = ta.do(t, req, cookie)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	page = readBody(t, resp)
	require.Contains(t, page, "Profile updated")
	require.Contains(t, page, `name="personal.firstname" value="Georges"`)

	resp = ta.do(t, httptest.NewRequest(http.MethodGet, "/api/profile", nil), cookie)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	data := decode(t, resp)["data"].(map[string]any)
	require.Equal(t, true, data["stored"])
	profile := data["profile"].(map[string]any)
	require.Equal(t, "Georges", profile["personal"].(map[string]any)["firstname"])
	emergency := profile["emergency"].([]any)
	require.Equal(t, "Eileen", emergency[0].(map[string]any)["firstname"])
	require.Equal(t, "", emergency[1].(map[string]any)["firstname"])
}

func TestProfilePage_EscapesValues(t *testing.T) {
	ta := setupApp(t, nil)
	cookie := ta.signIn(t, "orwell@1984.apocalypse")

	form := url.Values{"personal.firstname": {`<script>alert(1)</script>`}}
	req := httptest.NewRequest(http.MethodPost, "/profile", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp := ta.do(t, req, cookie)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotContains(t, readBody(t, resp), "<script>alert(1)</script>")
}

func TestAPIProfile_Patch(t *testing.T) {
	ta := setupApp(t, nil)
	cookie := ta.signIn(t, "orwell@1984.apocalypse")

	req := httptest.NewRequest(http.MethodPatch, "/api/profile", strings.NewReader(`{"contact.phone":" 0470 ","personal.firstname":""}`))
	req.Header.Set("Content-Type", "application/json")
	resp := ta.do(t, req, cookie)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	data := decode(t, resp)["data"].(map[string]any)
	require.Equal(t, []any{"contact.phone"}, data["changedFields"])

	req = httptest.NewRequest(http.MethodPatch, "/api/profile", strings.NewReader(`{"account.id":"someone@else"}`))
	resp = ta.do(t, req, cookie)
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	require.Equal(t, "path_error", decode(t, resp)["error"])

	req = httptest.NewRequest(http.MethodPatch, "/api/profile", strings.NewReader(`{"emergency.7.phone":"1"}`))
	resp = ta.do(t, req, cookie)
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	req = httptest.NewRequest(http.MethodPatch, "/api/profile", strings.NewReader(`["not","an","object"]`))
	resp = ta.do(t, req, cookie)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "invalid_request", decode(t, resp)["error"])
}

func TestRegister_Outcomes(t *testing.T) {
	ta := setupApp(t, nil)
	cookie := ta.signIn(t, "orwell@1984.apocalypse")
	_, err := ta.registrations.Provision("gala2014")
	require.NoError(t, err)

	register := func(eventName string) *http.Response {
		form := url.Values{"event": {eventName}}
		req := httptest.NewRequest(http.MethodPost, "/register", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		return ta.do(t, req, cookie)
	}

	resp := register("gala2014")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.Equal(t, "registered", decode(t, resp)["outcome"])

	resp = register("gala2014")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "already_registered", decode(t, resp)["outcome"])

	resp = register("ghost")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.Equal(t, "unknown_event", decode(t, resp)["error"])

	resp = register("bad name!")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "invalid_event_name", decode(t, resp)["error"])

	data, err := os.ReadFile(filepath.Join(ta.dataDir, "registrations", "gala2014.txt"))
	require.NoError(t, err)
	require.Equal(t, "orwell@1984.apocalypse\n", string(data))
}

func TestEventsListingAndIndex(t *testing.T) {
	ta := setupApp(t, nil)
	cookie := ta.signIn(t, "orwell@1984.apocalypse")
	for _, name := range []string{"gala2014", "ag2014"} {
		_, err := ta.registrations.Provision(name)
		require.NoError(t, err)
	}
	_, err := ta.registrations.Register(context.Background(), "ag2014", "orwell@1984.apocalypse")
	require.NoError(t, err)

	resp := ta.do(t, httptest.NewRequest(http.MethodGet, "/api/events", nil), cookie)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	events := decode(t, resp)["data"].(map[string]any)["events"].([]any)
	require.Equal(t, []any{
		map[string]any{"name": "ag2014", "registered": true},
		map[string]any{"name": "gala2014", "registered": false},
	}, events)

	resp = ta.do(t, httptest.NewRequest(http.MethodGet, "/", nil), cookie)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	page := readBody(t, resp)
	require.Contains(t, page, "ag2014 (registered)")
	require.Contains(t, page, `value="gala2014"`)

	resp = ta.do(t, httptest.NewRequest(http.MethodGet, "/", nil), "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	page = readBody(t, resp)
	require.Contains(t, page, "Sign in to edit your profile")
	require.NotContains(t, page, "/auth/google/login")
}

func TestSignOut_EndsSession(t *testing.T) {
	ta := setupApp(t, nil)
	cookie := ta.signIn(t, "orwell@1984.apocalypse")

	resp := ta.do(t, httptest.NewRequest(http.MethodGet, "/persona/signout", nil), cookie)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "You are now disconnected", readBody(t, resp))

	resp = ta.do(t, httptest.NewRequest(http.MethodGet, "/api/profile", nil), cookie)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestGoogleSignIn(t *testing.T) {
	ta := setupApp(t, fakeGoogle{})

	resp := ta.do(t, httptest.NewRequest(http.MethodGet, "/", nil), "")
	require.Contains(t, readBody(t, resp), "/auth/google/login")

	resp = ta.do(t, httptest.NewRequest(http.MethodGet, "/auth/google/login", nil), "")
	require.GreaterOrEqual(t, resp.StatusCode, 300)
	require.Less(t, resp.StatusCode, 400)
	location, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	state := location.Query().Get("state")
	require.NotEmpty(t, state)

	resp = ta.do(t, httptest.NewRequest(http.MethodGet, "/auth/google/callback?state=wrong&code=good-code", nil), "")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = ta.do(t, httptest.NewRequest(http.MethodGet, "/auth/google/callback?state="+url.QueryEscape(state)+"&code=good-code", nil), "")
	require.GreaterOrEqual(t, resp.StatusCode, 300)
	require.Less(t, resp.StatusCode, 400)

	var cookie string
	for _, c := range resp.Cookies() {
		if c.Name == cookieName {
			cookie = c.Value
		}
	}
	require.NotEmpty(t, cookie)

	resp = ta.do(t, httptest.NewRequest(http.MethodGet, "/api/profile", nil), cookie)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	data := decode(t, resp)["data"].(map[string]any)
	require.Equal(t, "google@example.org", data["identifier"])
}

func TestGoogleRoutesAbsentWhenDisabled(t *testing.T) {
	ta := setupApp(t, nil)

	resp := ta.do(t, httptest.NewRequest(http.MethodGet, "/auth/google/login", nil), "")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHealthCheck(t *testing.T) {
	ta := setupApp(t, nil)

	resp := ta.do(t, httptest.NewRequest(http.MethodGet, "/health", nil), "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "Membership Service is healthy", readBody(t, resp))
}
