package chat

import (
	"strings"

	"github.com/a-h/templ"
	"maragu.dev/gomponents"
	hx "maragu.dev/gomponents-htmx"
	"maragu.dev/gomponents/html"

	"parley/internal/roster"
	"parley/internal/view"
)

// theme holds the class sets toggled by dark mode. Only the classes
// change between themes; the markup is identical.
type theme struct {
	main     string
	sidebar  string
	userCard string
	border   string
	bubble   string
	input    string
	header   string
	username string
	text     string
}

func themeFor(dark bool) theme {
	if dark {
		return theme{
			main:     "bg-gray-900 text-white",
			sidebar:  "bg-gray-800",
			userCard: "bg-gray-700",
			border:   "border-gray-700",
			bubble:   "bg-gray-800",
			input:    "bg-gray-700 text-white placeholder-gray-400",
			header:   "text-blue-400",
			username: "text-blue-300",
			text:     "text-gray-300",
		}
	}
	return theme{
		main:     "bg-white text-black",
		sidebar:  "bg-gray-100",
		userCard: "bg-white",
		border:   "border-gray-300",
		bubble:   "bg-gray-100",
		input:    "bg-gray-100 text-gray-700 placeholder-gray-500",
		header:   "text-blue-600",
		username: "text-blue-600",
		text:     "text-gray-600",
	}
}

// reloadListener reloads the page on a devreload push. The connection
// simply fails closed when the watcher is not running.
const reloadListener = `(function(){try{var s=new WebSocket((location.protocol==="https:"?"wss://":"ws://")+location.host+"/ws/reload");s.onmessage=function(){location.reload()}}catch(e){}})()`

// isGIF reports whether a message body should render as an image. Only
// the literal suffix counts; "foo.gif.txt" is text.
func isGIF(body string) bool {
	return strings.HasSuffix(body, ".gif")
}

// cardRoster is the chat module's roster.Renderer: the styled card list
// used in the sidebar, themed by the dark flag.
func cardRoster(profiles []roster.Profile, dark bool) templ.Component {
	t := themeFor(dark)
	cards := make([]gomponents.Node, 0, len(profiles))
	for _, p := range profiles {
		cards = append(cards, UserCard(p, t))
	}
	return view.AdaptGomponentToTempl(gomponents.Group(cards))
}

// rosterAdapter renders an injected roster.Renderer inside this
// gomponents view.
func rosterAdapter(r roster.Renderer, profiles []roster.Profile, dark bool) gomponents.Node {
	return view.AdaptTemplToGomponent(r(profiles, dark))
}

// Page is the full chat document served on GET /chat.
func Page(s *Session, r roster.Renderer) gomponents.Node {
	return html.Doctype(
		html.HTML(
			html.Lang("en"),
			html.Head(
				html.Meta(html.Charset("utf-8")),
				html.TitleEl(gomponents.Text("Parley")),
				html.Script(html.Src("https://unpkg.com/htmx.org@1.9.12")),
				html.Script(html.Src("https://unpkg.com/htmx.org@1.9.12/dist/ext/ws.js")),
				html.Script(html.Src("https://cdn.tailwindcss.com")),
				html.Link(html.Rel("stylesheet"), html.Href("/static/app.css")),
				html.Script(gomponents.Raw(reloadListener)),
			),
			html.Body(
				Root(s, r),
			),
		),
	)
}

// Root is the websocket mount point. It is never swapped; theme toggles
// replace the chrome inside it, so the connection survives a toggle
// instead of re-registering and replaying history.
func Root(s *Session, r roster.Renderer) gomponents.Node {
	return html.Div(
		html.ID("chat-socket"),
		gomponents.Attr("hx-ext", "ws"),
		gomponents.Attr("ws-connect", "/ws/html"),
		chrome(s, r),
	)
}

// chrome is the themed page body inside the socket mount. A theme
// toggle re-renders it wholesale from session state; roster and message
// updates swap their own fragments inside it.
func chrome(s *Session, r roster.Renderer, extra ...gomponents.Node) gomponents.Node {
	t := themeFor(s.DarkMode())
	return html.Div(
		html.ID("chat-root"),
		html.Class("flex w-screen h-screen "+t.main),
		gomponents.Group(extra),

		html.Div(
			html.Class("flex-none w-56 h-screen "+t.sidebar),
			html.Div(
				html.Class("flex justify-between items-center p-3"),
				html.Div(html.Class("text-xl "+t.header), gomponents.Text("Users")),
				themeToggle(s.DarkMode()),
			),
			RosterPanel(s, r),
		),

		html.Div(
			html.Class("grow h-screen flex flex-col"),
			html.Div(
				html.Class("w-full h-14 border-b-2 "+t.border),
				html.Div(html.Class("text-xl p-3 "+t.header), gomponents.Text("💬 Chat!")),
			),
			Thread(s),
			composer(t),
		),
	)
}

// RootOOB re-renders the chrome for an out-of-band swap after a theme
// toggle. The socket mount around it stays put.
func RootOOB(s *Session, r roster.Renderer) gomponents.Node {
	return chrome(s, r, hx.SwapOOB("outerHTML:#chat-root"))
}

func themeToggle(dark bool) gomponents.Node {
	label := "Switch to Dark Mode"
	icon := "🌙"
	if dark {
		label = "Switch to Light Mode"
		icon = "☀️"
	}
	return html.FormEl(
		gomponents.Attr("ws-send"),
		html.Input(html.Type("hidden"), html.Name("action"), html.Value(actionToggleTheme)),
		html.Button(
			html.Type("submit"),
			html.Class("p-2 rounded-lg hover:bg-opacity-80"),
			html.TitleAttr(label),
			gomponents.Text(icon),
		),
	)
}

// RosterPanel renders the user list from the latest snapshot through
// the injected renderer.
func RosterPanel(s *Session, r roster.Renderer) gomponents.Node {
	return html.Div(
		html.ID("roster"),
		rosterAdapter(r, s.Roster(), s.DarkMode()),
	)
}

// RosterPanelOOB wraps the roster panel for an out-of-band swap.
func RosterPanelOOB(s *Session, r roster.Renderer) gomponents.Node {
	return html.Div(
		html.ID("roster"),
		hx.SwapOOB("outerHTML:#roster"),
		rosterAdapter(r, s.Roster(), s.DarkMode()),
	)
}

// UserCard is one roster entry.
func UserCard(p roster.Profile, t theme) gomponents.Node {
	return html.Div(
		html.Class("flex m-3 rounded-lg p-2 "+t.userCard),
		html.Div(
			html.Img(html.Class("w-12 h-12 rounded-full"), html.Src(p.AvatarURL), html.Alt("avatar")),
		),
		html.Div(
			html.Class("flex-grow p-3"),
			html.Div(
				html.Class("flex text-xs justify-between"),
				html.Div(html.Class(t.username), gomponents.Text(p.DisplayName)),
			),
			html.Div(html.Class("text-xs text-gray-400"), gomponents.Text("Hi there!")),
		),
	)
}

// Thread renders the full message list.
func Thread(s *Session) gomponents.Node {
	t := themeFor(s.DarkMode())
	bubbles := make([]gomponents.Node, 0, len(s.Messages()))
	for _, m := range s.Messages() {
		bubbles = append(bubbles, MessageBubble(s.Profile(m.From), m, t))
	}
	return html.Div(
		html.ID("chat-thread"),
		html.Class("w-full grow overflow-auto border-b-2 "+t.border),
		gomponents.Group(bubbles),
	)
}

// MessageAppendOOB renders one new message for an out-of-band append to
// the thread.
func MessageAppendOOB(s *Session, m Message) gomponents.Node {
	t := themeFor(s.DarkMode())
	return MessageBubble(s.Profile(m.From), m, t, hx.SwapOOB("beforeend:#chat-thread"))
}

// MessageBubble is one message in the thread. The profile may be a
// derived placeholder when the sender already left the roster; the
// bubble renders either way.
func MessageBubble(p roster.Profile, m Message, t theme, extra ...gomponents.Node) gomponents.Node {
	var body gomponents.Node
	if isGIF(m.Body) {
		body = html.Img(html.Class("mt-3"), html.Src(m.Body))
	} else {
		body = gomponents.Text(m.Body)
	}
	return html.Div(
		html.Class("flex items-end w-3/6 m-8 rounded-tl-lg rounded-tr-lg rounded-br-lg "+t.bubble),
		gomponents.Group(extra),
		html.Img(html.Class("w-8 h-8 rounded-full m-3"), html.Src(p.AvatarURL), html.Alt("avatar")),
		html.Div(
			html.Class("p-3"),
			html.Div(html.Class("text-sm "+t.username), gomponents.Text(m.From)),
			html.Div(html.Class("text-xs "+t.text), body),
		),
	)
}

func composer(t theme) gomponents.Node {
	return html.FormEl(
		gomponents.Attr("ws-send"),
		// The ws extension does not reset forms; clear the field as
		// soon as the payload is handed off.
		gomponents.Attr("hx-on::ws-after-send", "this.reset()"),
		html.Class("w-full h-14 flex px-3 items-center"),
		html.Input(
			html.Type("text"),
			html.Name("message"),
			html.Placeholder("Message"),
			html.Class("block w-full py-2 pl-4 mx-3 rounded-full outline-none "+t.input),
		),
		html.Button(
			html.Type("submit"),
			html.Class("p-3 shadow-sm bg-blue-600 w-10 h-10 rounded-full flex justify-center items-center hover:bg-blue-700"),
			gomponents.Text("➤"),
		),
	)
}

// LoginPage is the username form served at the root.
func LoginPage(errMsg string) gomponents.Node {
	var errNode gomponents.Node
	if errMsg != "" {
		errNode = html.P(html.Class("text-red-500 text-sm mb-2"), gomponents.Text(errMsg))
	}
	return html.Doctype(
		html.HTML(
			html.Lang("en"),
			html.Head(
				html.Meta(html.Charset("utf-8")),
				html.TitleEl(gomponents.Text("Parley sign in")),
				html.Script(html.Src("https://cdn.tailwindcss.com")),
				html.Link(html.Rel("stylesheet"), html.Href("/static/app.css")),
			),
			html.Body(
				html.Class("bg-gray-100 flex h-screen items-center justify-center"),
				html.FormEl(
					html.Method("post"),
					html.Action("/login"),
					html.Class("bg-white shadow rounded-lg p-8 w-80"),
					html.H1(html.Class("text-xl text-blue-600 mb-4"), gomponents.Text("Pick a username")),
					errNode,
					html.Input(
						html.Type("text"),
						html.Name("username"),
						html.Placeholder("Username"),
						html.Required(),
						html.Class("block w-full py-2 px-4 mb-4 bg-gray-100 rounded-full outline-none"),
					),
					html.Button(
						html.Type("submit"),
						html.Class("w-full py-2 bg-blue-600 text-white rounded-full hover:bg-blue-700"),
						gomponents.Text("Join"),
					),
				),
			),
		),
	)
}
