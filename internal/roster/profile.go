package roster

import (
	"net/url"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var titleCaser = cases.Title(language.English)

// Profile is one entry in the user roster. It is derived wholesale from
// a username on every snapshot; nothing in it is stored.
type Profile struct {
	Name        string
	DisplayName string
	AvatarURL   string
}

// AvatarURL derives the avatar image location for a name. It is a pure
// function; no request is made, the URL is only ever embedded as an
// image source.
func AvatarURL(base, name string) string {
	return strings.TrimRight(base, "/") + "/" + url.PathEscape(name) + ".svg"
}

// NewProfile derives a profile from a username.
func NewProfile(base, name string) Profile {
	return Profile{
		Name:        name,
		DisplayName: titleCaser.String(name),
		AvatarURL:   AvatarURL(base, name),
	}
}

// Build derives one profile per name, preserving order. The result
// replaces any previous roster entirely.
func Build(base string, names []string) []Profile {
	profiles := make([]Profile, 0, len(names))
	for _, n := range names {
		profiles = append(profiles, NewProfile(base, n))
	}
	return profiles
}

// Lookup finds the profile for a name in the current roster. A sender
// that is no longer (or never was) on the roster gets a freshly derived
// placeholder profile instead of failing; historical messages must stay
// renderable after their author leaves.
func Lookup(profiles []Profile, base, name string) Profile {
	for _, p := range profiles {
		if p.Name == name {
			return p
		}
	}
	return NewProfile(base, name)
}
