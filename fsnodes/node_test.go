package fsnodes

import (
	"testing"

	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/chanellr/yorha/internal/yorha"
)

func TestModeForType(t *testing.T) {
	cases := []struct {
		ftype yorha.FileType
		want  uint32
	}{
		{yorha.TypeDir, fuse.S_IFDIR | 0o555},
		{yorha.TypeNormal, fuse.S_IFREG | 0o444},
		{yorha.TypeSpecial, fuse.S_IFCHR | 0o444},
	}
	for _, c := range cases {
		if got := modeForType(c.ftype); got != c.want {
			t.Errorf("modeForType(%v) = %#o, want %#o", c.ftype, got, c.want)
		}
	}
}

func TestChildPath(t *testing.T) {
	cases := []struct{ dir, name, want string }{
		{"/", "hello", "/hello"},
		{"/dir", "goodbye", "/dir/goodbye"},
	}
	for _, c := range cases {
		if got := childPath(c.dir, c.name); got != c.want {
			t.Errorf("childPath(%q, %q) = %q, want %q", c.dir, c.name, got, c.want)
		}
	}
}
