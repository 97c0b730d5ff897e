package roster

import (
	"context"
	"fmt"
	"html"
	"io"

	"github.com/a-h/templ"
)

// Renderer renders a roster as an HTML fragment for whatever container
// the consumer owns. The dark flag selects the consumer's dark palette.
// Modules inject their own implementations; the chat module injects its
// themed card list.
type Renderer func(profiles []Profile, dark bool) templ.Component

// DefaultRenderer is the fallback when a module injects nothing: a
// plain, unstyled user list that ignores the theme.
func DefaultRenderer(profiles []Profile, _ bool) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := fmt.Fprintf(w, `<h3>Users (%d)</h3>`, len(profiles)); err != nil {
			return err
		}
		if len(profiles) == 0 {
			_, err := io.WriteString(w, `<p>No users online</p>`)
			return err
		}
		if _, err := io.WriteString(w, "<ul>"); err != nil {
			return err
		}
		for _, p := range profiles {
			_, err := fmt.Fprintf(w, `<li><img src=%q alt="avatar"/>%s</li>`,
				p.AvatarURL, html.EscapeString(p.DisplayName))
			if err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, "</ul>")
		return err
	})
}
