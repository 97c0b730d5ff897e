package chat

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/sessions"
	echosession "github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parley/internal/prefs"
	"parley/internal/pubsub"
	"parley/internal/rendering"
	"parley/internal/websocket"
)

type testValidator struct {
	validate *validator.Validate
}

func (v *testValidator) Validate(i interface{}) error {
	return v.validate.Struct(i)
}

func newTestApp(t *testing.T) *echo.Echo {
	t.Helper()

	bus := pubsub.NewWatermillBridge()
	t.Cleanup(func() { bus.Close() })
	bridge := websocket.NewBridge(bus)

	store := prefs.NewFileStore(afero.NewMemMapFs(), "prefs")
	handler := NewHandler(bridge, store, rendering.NewUniversalRenderer(), cardRoster, avatarBase)

	e := echo.New()
	e.Validator = &testValidator{validate: validator.New()}
	e.Use(echosession.Middleware(sessions.NewCookieStore([]byte("test-secret"))))

	e.GET("/", handler.Login)
	e.POST("/login", handler.SubmitLogin)
	e.GET("/logout", handler.Logout)
	e.GET("/chat", handler.ChatPage)

	return e
}

func postLogin(t *testing.T, e *echo.Echo, username string) *httptest.ResponseRecorder {
	t.Helper()
	form := url.Values{"username": {username}}
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestLoginPageServed(t *testing.T) {
	e := newTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Pick a username")
}

func TestSubmitLoginRedirectsToChat(t *testing.T) {
	e := newTestApp(t)

	rec := postLogin(t, e, "alice")

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/chat", rec.Header().Get(echo.HeaderLocation))
	assert.NotEmpty(t, rec.Header().Get("Set-Cookie"))
}

func TestSubmitLoginRejectsBadUsernames(t *testing.T) {
	e := newTestApp(t)

	for _, bad := range []string{"", "a", "has space", strings.Repeat("x", 25)} {
		rec := postLogin(t, e, bad)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, "username %q", bad)
	}
}

func TestChatPageRequiresLogin(t *testing.T) {
	e := newTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/chat", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get(echo.HeaderLocation))
}

func TestChatPageServedWhenLoggedIn(t *testing.T) {
	e := newTestApp(t)

	login := postLogin(t, e, "alice")
	cookies := login.Result().Cookies()
	require.NotEmpty(t, cookies)

	req := httptest.NewRequest(http.MethodGet, "/chat", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `id="chat-socket"`)
	assert.Contains(t, rec.Body.String(), `id="chat-root"`)
	assert.Contains(t, rec.Body.String(), `ws-connect="/ws/html"`)
}

func TestNewHandlerFallsBackToDefaultRosterRenderer(t *testing.T) {
	h := NewHandler(nil, nil, rendering.NewUniversalRenderer(), nil, avatarBase)

	assert.NotNil(t, h.rosterView)
}

func TestLogoutClearsSession(t *testing.T) {
	e := newTestApp(t)

	login := postLogin(t, e, "alice")
	cookies := login.Result().Cookies()
	require.NotEmpty(t, cookies)

	req := httptest.NewRequest(http.MethodGet, "/logout", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get(echo.HeaderLocation))
}
