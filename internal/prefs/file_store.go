package prefs

import (
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// FileStore keeps preferences as one small file per key under
// <root>/<user>/<key>. Backed by afero so tests run against an
// in-memory filesystem.
type FileStore struct {
	fs   afero.Fs
	root string
}

// NewFileStore creates a FileStore rooted at the given directory.
func NewFileStore(fs afero.Fs, root string) *FileStore {
	return &FileStore{fs: fs, root: root}
}

// ForUser returns the Store scoped to one user's preferences.
func (f *FileStore) ForUser(name string) Store {
	return &userStore{fs: f.fs, dir: filepath.Join(f.root, sanitize(name))}
}

type userStore struct {
	fs  afero.Fs
	dir string
}

func (u *userStore) Get(key string) (string, bool) {
	data, err := afero.ReadFile(u.fs, filepath.Join(u.dir, sanitize(key)))
	if err != nil {
		return "", false
	}
	return string(data), true
}

func (u *userStore) Set(key, value string) error {
	if err := u.fs.MkdirAll(u.dir, 0o755); err != nil {
		return err
	}
	return afero.WriteFile(u.fs, filepath.Join(u.dir, sanitize(key)), []byte(value), 0o644)
}

// sanitize keeps user-supplied names from escaping the store directory.
func sanitize(s string) string {
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.ReplaceAll(s, "..", "_")
	if s == "" {
		s = "_"
	}
	return s
}
