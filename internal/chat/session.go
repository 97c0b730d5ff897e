package chat

import (
	"log/slog"

	"parley/internal/prefs"
	"parley/internal/roster"
	"parley/internal/websocket"
)

// Message is one entry in a session's message list. Entries are appended
// in arrival order and never mutated or removed for the lifetime of the
// session.
type Message struct {
	From string
	Body string
}

// Transport delivers outbound wire frames for a session. Send failures
// are logged by the session and otherwise swallowed; nothing is retried
// and nothing reaches the user.
type Transport interface {
	Send(f websocket.Frame) error
}

// Session holds the view state behind one connected chat page: the
// roster, the message list, the pending input value and the dark-mode
// flag. It is the single place where inbound frames and user actions
// become state changes.
//
// A Session is not safe for concurrent use. The connection loop that
// owns it serializes every call, mirroring how all mutations funnel
// through one event handler on the browser side.
type Session struct {
	username   string
	transport  Transport
	prefs      prefs.Store
	avatarBase string

	roster   []roster.Profile
	messages []Message
	input    string
	darkMode bool

	logger *slog.Logger
}

// NewSession creates a session wired to its transport and preference
// store. Call Initialize before anything else.
func NewSession(transport Transport, store prefs.Store, avatarBase string) *Session {
	return &Session{
		transport:  transport,
		prefs:      store,
		avatarBase: avatarBase,
		logger:     slog.Default().With("component", "chat_session"),
	}
}

// Initialize names the session, announces it with a register frame and
// loads the persisted dark-mode preference. The roster and message list
// start empty. A register send failure is logged only; the session
// carries on.
func (s *Session) Initialize(username string) {
	s.username = username
	s.roster = nil
	s.messages = nil
	s.input = ""
	s.darkMode = prefs.DarkMode(s.prefs)
	s.logger = s.logger.With("user", username)

	if err := s.transport.Send(websocket.NewRegisterFrame(username)); err != nil {
		s.logger.Warn("Failed to send register frame", "error", err)
	}
}

// HandleFrame feeds one raw inbound frame through the state machine. It
// reports whether the view changed and a re-render is due. Malformed
// frames and unrecognized types are logged and discarded; a single bad
// frame never takes the session down.
func (s *Session) HandleFrame(raw []byte) bool {
	frame, err := websocket.DecodeFrame(raw)
	if err != nil {
		s.logger.Warn("Discarding inbound frame", "error", err)
		return false
	}

	switch frame.MessageType {
	case websocket.FrameUsers:
		// Full replace: the snapshot is the roster, whatever came
		// before it.
		s.roster = roster.Build(s.avatarBase, frame.DataArray)
		return true

	case websocket.FrameMessage:
		payload, err := frame.Message()
		if err != nil {
			s.logger.Warn("Discarding message frame", "error", err)
			return false
		}
		s.messages = append(s.messages, Message{From: payload.From, Body: payload.Body})
		return true

	default:
		// register is send-only in practice; nothing to do.
		return false
	}
}

// SetInput records the pending composition value.
func (s *Session) SetInput(text string) {
	s.input = text
}

// SubmitMessage sends the given text as a message frame and clears the
// input synchronously, whether or not the send worked. The text goes
// out exactly as given, empty or not, and is NOT appended locally: the
// message only shows up once the server echoes it back.
func (s *Session) SubmitMessage(text string) {
	s.input = text
	if err := s.transport.Send(websocket.Frame{
		MessageType: websocket.FrameMessage,
		Data:        text,
	}); err != nil {
		s.logger.Warn("Failed to send message frame", "error", err)
	}
	s.input = ""
}

// ToggleDarkMode flips the theme, persists it best-effort and reports
// that a re-render is due.
func (s *Session) ToggleDarkMode() bool {
	s.darkMode = !s.darkMode
	prefs.SetDarkMode(s.prefs, s.darkMode)
	return true
}

// Username returns the name the session registered under.
func (s *Session) Username() string { return s.username }

// Roster returns the most recent roster snapshot.
func (s *Session) Roster() []roster.Profile { return s.roster }

// Messages returns the message list in arrival order.
func (s *Session) Messages() []Message { return s.messages }

// Input returns the pending composition value.
func (s *Session) Input() string { return s.input }

// DarkMode reports the current theme flag.
func (s *Session) DarkMode() bool { return s.darkMode }

// Profile resolves the sender of a message against the current roster.
// A sender who is no longer on the roster gets a derived placeholder
// profile; historical messages must render after their author leaves.
func (s *Session) Profile(name string) roster.Profile {
	return roster.Lookup(s.roster, s.avatarBase, name)
}
