package cache

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/nalgeon/be"

	"github.com/chazu/nuqta/compiler/tac"
)

func testArtifact() *Artifact {
	return &Artifact{
		Quads: []tac.Quad{
			{Op: tac.OpAdd, Arg1: "1", Arg2: "2", Result: "_t0"},
			{Op: tac.OpCopy, Arg1: "_t0", Result: "x"},
		},
		TAC:     "  _t0 = 1 + 2\n  x = _t0\n",
		Backend: "export function l $main() {\n@.start\n  %.t0 =l add 1, 2\n  %x =l copy %.t0\n  ret 0\n}\n",
	}
}

func openMemory(t *testing.T) *Cache {
	t.Helper()
	c, err := Open(":memory:")
	be.Err(t, err, nil)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestGetMiss(t *testing.T) {
	c := openMemory(t)
	_, err := c.Get(context.Background(), "nope")
	be.True(t, errors.Is(err, ErrNotFound))
}

func TestPutGet(t *testing.T) {
	ctx := context.Background()
	c := openMemory(t)

	want := testArtifact()
	be.Err(t, c.Put(ctx, "k1", want), nil)

	got, err := c.Get(ctx, "k1")
	be.Err(t, err, nil)
	be.Equal(t, got.TAC, want.TAC)
	be.Equal(t, got.Backend, want.Backend)
	be.Equal(t, got.Quads, want.Quads)

	n, err := c.Len(ctx)
	be.Err(t, err, nil)
	be.Equal(t, n, 1)
}

func TestPutReplaces(t *testing.T) {
	ctx := context.Background()
	c := openMemory(t)

	be.Err(t, c.Put(ctx, "k", testArtifact()), nil)
	be.Err(t, c.Put(ctx, "k", &Artifact{TAC: "replaced"}), nil)

	got, err := c.Get(ctx, "k")
	be.Err(t, err, nil)
	be.Equal(t, got.TAC, "replaced")
	be.Equal(t, len(got.Quads), 0)

	n, err := c.Len(ctx)
	be.Err(t, err, nil)
	be.Equal(t, n, 1)
}

func TestPurge(t *testing.T) {
	ctx := context.Background()
	c := openMemory(t)

	be.Err(t, c.Put(ctx, "a", testArtifact()), nil)
	be.Err(t, c.Put(ctx, "b", testArtifact()), nil)
	n, _ := c.Len(ctx)
	be.Equal(t, n, 2)

	be.Err(t, c.Purge(ctx), nil)
	n, err := c.Len(ctx)
	be.Err(t, err, nil)
	be.Equal(t, n, 0)

	_, err = c.Get(ctx, "a")
	be.True(t, errors.Is(err, ErrNotFound))
}

func TestOpenFilePersists(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "dir", "cache.db")

	c, err := Open(path)
	be.Err(t, err, nil)
	be.Err(t, c.Put(ctx, "k", testArtifact()), nil)
	be.Err(t, c.Close(), nil)

	c, err = Open(path)
	be.Err(t, err, nil)
	defer c.Close()

	got, err := c.Get(ctx, "k")
	be.Err(t, err, nil)
	be.Equal(t, got.TAC, testArtifact().TAC)
}

func TestGetCanceled(t *testing.T) {
	c := openMemory(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Get(ctx, "k")
	be.True(t, err != nil)
	be.True(t, !errors.Is(err, ErrNotFound))
}

func TestMarshalRoundTrip(t *testing.T) {
	want := testArtifact()
	data, err := Marshal(want)
	be.Err(t, err, nil)

	got, err := Unmarshal(data)
	be.Err(t, err, nil)
	be.Equal(t, got, want)
}

// Canonical encoding gives equal artifacts equal bytes.
func TestMarshalCanonical(t *testing.T) {
	a, err := Marshal(testArtifact())
	be.Err(t, err, nil)
	b, err := Marshal(testArtifact())
	be.Err(t, err, nil)
	be.True(t, bytes.Equal(a, b))
}

func TestUnmarshalGarbage(t *testing.T) {
	_, err := Unmarshal([]byte{0xff, 0x00, 0x13})
	be.True(t, err != nil)
}

func TestDefaultPath(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())
	path, err := DefaultPath()
	be.Err(t, err, nil)
	be.Equal(t, filepath.Base(path), "artifacts.db")
	be.Equal(t, filepath.Base(filepath.Dir(path)), "nuqta")
}
