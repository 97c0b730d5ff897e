// Package view bridges the two HTML component families in use: templ
// components and gomponents nodes. Either can be embedded in the other,
// which lets a module pick whichever fits a fragment without forcing
// the choice on its callers.
package view

import (
	"context"
	"io"

	"github.com/a-h/templ"
	"maragu.dev/gomponents"
)

// AdaptGomponentToTempl converts a gomponents Node into a
// templ.Component so it can be nested inside templ content.
func AdaptGomponentToTempl(node gomponents.Node) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		return node.Render(w)
	})
}

// templNode adapts a templ.Component to the gomponents.Node interface.
// Gomponents' Render carries no context, so the component runs under
// context.Background().
type templNode struct {
	component templ.Component
}

func (n templNode) Render(w io.Writer) error {
	return n.component.Render(context.Background(), w)
}

// AdaptTemplToGomponent converts a templ Component into a gomponents
// Node so it can be nested inside a gomponents view.
func AdaptTemplToGomponent(component templ.Component) gomponents.Node {
	return templNode{component: component}
}
