package chat

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	cws "github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	echosession "github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"

	"parley/internal/prefs"
	"parley/internal/rendering"
	"parley/internal/roster"
	"parley/internal/websocket"
)

const (
	sessionName       = "parley_session"
	sessionUserKey    = "username"
	actionToggleTheme = "toggle-theme"
)

// loginForm is what the username form posts.
type loginForm struct {
	Username string `form:"username" validate:"required,min=2,max=24,printascii,excludesall= "`
}

// wsAction is what the htmx ws extension sends on ws-send form submits.
// Exactly one of the fields is set per payload.
type wsAction struct {
	Action  string  `json:"action"`
	Message *string `json:"message"`
}

// Handler serves the login flow, the chat page and the HTML websocket
// endpoint that pushes fragment updates into it.
type Handler struct {
	bridge     *websocket.Bridge
	prefs      *prefs.FileStore
	renderer   rendering.Renderer
	rosterView roster.Renderer
	avatarBase string
	logger     *slog.Logger
}

// NewHandler wires the chat surface. A nil rosterView falls back to the
// roster package's unstyled default.
func NewHandler(bridge *websocket.Bridge, store *prefs.FileStore, renderer rendering.Renderer, rosterView roster.Renderer, avatarBase string) *Handler {
	if rosterView == nil {
		rosterView = roster.DefaultRenderer
	}
	return &Handler{
		bridge:     bridge,
		prefs:      store,
		renderer:   renderer,
		rosterView: rosterView,
		avatarBase: avatarBase,
		logger:     slog.Default().With("component", "chat_handler"),
	}
}

// Login renders the username form, or goes straight to the chat for a
// returning session.
func (h *Handler) Login(c echo.Context) error {
	if h.currentUser(c) != "" {
		return c.Redirect(http.StatusSeeOther, "/chat")
	}
	return h.renderer.RenderPage(c, http.StatusOK, LoginPage(""))
}

// SubmitLogin validates the chosen username and stores it in the cookie
// session.
func (h *Handler) SubmitLogin(c echo.Context) error {
	var form loginForm
	if err := c.Bind(&form); err != nil {
		return h.renderer.RenderPage(c, http.StatusBadRequest, LoginPage("That didn't look like a username."))
	}
	if err := c.Validate(&form); err != nil {
		return h.renderer.RenderPage(c, http.StatusUnprocessableEntity, LoginPage("Usernames are 2-24 visible characters, no spaces."))
	}

	sess, err := echosession.Get(sessionName, c)
	if err != nil {
		return err
	}
	sess.Options = &sessions.Options{Path: "/", MaxAge: 86400 * 7, HttpOnly: true}
	sess.Values[sessionUserKey] = form.Username
	if err := sess.Save(c.Request(), c.Response()); err != nil {
		return err
	}
	return c.Redirect(http.StatusSeeOther, "/chat")
}

// Logout clears the cookie session.
func (h *Handler) Logout(c echo.Context) error {
	sess, err := echosession.Get(sessionName, c)
	if err != nil {
		return err
	}
	sess.Options = &sessions.Options{Path: "/", MaxAge: -1}
	delete(sess.Values, sessionUserKey)
	if err := sess.Save(c.Request(), c.Response()); err != nil {
		return err
	}
	return c.Redirect(http.StatusSeeOther, "/")
}

// ChatPage serves the chat document. The page arrives with an empty
// roster and thread; the websocket connection it opens fills both in.
func (h *Handler) ChatPage(c echo.Context) error {
	username := h.currentUser(c)
	if username == "" {
		return c.Redirect(http.StatusSeeOther, "/")
	}

	// A throwaway session gives the page its persisted theme without
	// touching the bus.
	page := NewSession(nopTransport{}, h.prefs.ForUser(username), h.avatarBase)
	page.Initialize(username)
	return h.renderer.RenderPage(c, http.StatusOK, Page(page, h.rosterView))
}

// ServeWS upgrades the HTML endpoint. Each connection owns one Session;
// a single loop goroutine serializes browser actions and bus frames
// through it, so the Session needs no locking.
func (h *Handler) ServeWS(c echo.Context) error {
	username := h.currentUser(c)
	if username == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "login required")
	}

	conn, err := cws.Accept(c.Response(), c.Request(), &cws.AcceptOptions{
		InsecureSkipVerify: true, // In production, check origin.
	})
	if err != nil {
		h.logger.Error("Failed to upgrade connection to WebSocket", "error", err)
		return err
	}

	ctx := c.Request().Context()
	client := newHTMLClient(uuid.NewString(), username, conn)
	h.bridge.Attach(client)
	defer h.bridge.Detach(client)

	sess := NewSession(&busTransport{ctx: ctx, bridge: h.bridge, client: client}, h.prefs.ForUser(username), h.avatarBase)
	sess.Initialize(username)

	go client.readActions(ctx)
	h.runSession(ctx, client, sess)
	return nil
}

// runSession is the per-connection event loop. It is the only goroutine
// that touches the Session or writes to the socket.
func (h *Handler) runSession(ctx context.Context, client *htmlClient, sess *Session) {
	defer client.close()

	for {
		select {
		case <-ctx.Done():
			return

		case raw, ok := <-client.actions:
			if !ok {
				return
			}
			h.handleAction(ctx, client, sess, raw)

		case frame, ok := <-client.frames:
			if !ok {
				return
			}
			before := len(sess.Messages())
			if !sess.HandleFrame(frame) {
				continue
			}
			var node any
			if msgs := sess.Messages(); len(msgs) > before {
				node = MessageAppendOOB(sess, msgs[len(msgs)-1])
			} else {
				node = RosterPanelOOB(sess, h.rosterView)
			}
			if err := h.push(ctx, client, node); err != nil {
				return
			}
		}
	}
}

func (h *Handler) handleAction(ctx context.Context, client *htmlClient, sess *Session, raw []byte) {
	var action wsAction
	if err := json.Unmarshal(raw, &action); err != nil {
		h.logger.Warn("Discarding malformed browser action", "user", sess.Username(), "error", err)
		return
	}

	switch {
	case action.Action == actionToggleTheme:
		sess.ToggleDarkMode()
		if err := h.push(ctx, client, RootOOB(sess, h.rosterView)); err != nil {
			h.logger.Warn("Failed to push theme update", "user", sess.Username(), "error", err)
		}

	case action.Message != nil:
		// The submitted text goes out as-is; the thread only grows
		// when the server echoes the message back.
		sess.SubmitMessage(*action.Message)

	default:
		h.logger.Warn("Discarding unrecognized browser action", "user", sess.Username())
	}
}

func (h *Handler) push(ctx context.Context, client *htmlClient, component any) error {
	html, err := h.renderer.RenderComponent(ctx, component)
	if err != nil {
		h.logger.Error("Failed to render fragment", "error", err)
		return nil
	}
	return client.write(ctx, html)
}

func (h *Handler) currentUser(c echo.Context) string {
	sess, err := echosession.Get(sessionName, c)
	if err != nil {
		return ""
	}
	username, _ := sess.Values[sessionUserKey].(string)
	return username
}

// htmlClient is the HTML endpoint's bridge sink. Bus frames land in the
// frames channel for the session loop; the browser's ws-send payloads
// land in actions.
type htmlClient struct {
	id       string
	username string
	conn     *cws.Conn

	frames  chan []byte
	actions chan []byte
}

func newHTMLClient(id, username string, conn *cws.Conn) *htmlClient {
	return &htmlClient{
		id:       id,
		username: username,
		conn:     conn,
		frames:   make(chan []byte, 256),
		actions:  make(chan []byte, 16),
	}
}

// ConnID implements websocket.Sink.
func (c *htmlClient) ConnID() string { return c.id }

// User implements websocket.Sink.
func (c *htmlClient) User() string { return c.username }

// Deliver implements websocket.Sink. A full queue drops the frame
// rather than blocking the bridge.
func (c *htmlClient) Deliver(payload []byte) {
	select {
	case c.frames <- payload:
	default:
		slog.Warn("HTML client frame channel full, dropping payload", "connID", c.id)
	}
}

func (c *htmlClient) readActions(ctx context.Context) {
	defer close(c.actions)
	for {
		_, raw, err := c.conn.Read(ctx)
		if err != nil {
			if cws.CloseStatus(err) != cws.StatusNormalClosure && cws.CloseStatus(err) != cws.StatusGoingAway &&
				err != io.EOF && ctx.Err() == nil {
				slog.Error("WebSocket read error", "connID", c.id, "error", err)
			}
			return
		}
		select {
		case c.actions <- raw:
		case <-ctx.Done():
			return
		}
	}
}

func (c *htmlClient) write(ctx context.Context, payload []byte) error {
	writeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return c.conn.Write(writeCtx, cws.MessageText, payload)
}

func (c *htmlClient) close() {
	c.conn.Close(cws.StatusNormalClosure, "server-side cleanup")
}

// busTransport routes the session's outbound frames through the bridge
// as if they arrived from a client, which is exactly what they are.
type busTransport struct {
	ctx    context.Context
	bridge *websocket.Bridge
	client *htmlClient
}

func (t *busTransport) Send(f websocket.Frame) error {
	raw, err := f.Encode()
	if err != nil {
		return err
	}
	t.bridge.HandleInbound(t.ctx, t.client.ConnID(), t.client.User(), raw)
	return nil
}

// nopTransport backs display-only sessions used for full page renders.
type nopTransport struct{}

func (nopTransport) Send(websocket.Frame) error { return nil }
