package render

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HuiYanWanXiang/HuiYanWanXiang/internal/domain"
)

func fakeInterpreter(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fakepython")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755))
	return path
}

func TestManimRenderer_Args(t *testing.T) {
	r := NewManimRenderer(ManimConfig{})
	args := r.Args(Request{
		Script:     "run/generated_scene.py",
		Quality:    domain.QualityMedium,
		MediaDir:   "run/media",
		Resolution: "1920,1080",
		FPS:        30,
	})
	assert.Equal(t, []string{
		"-m", "manim", "-qm",
		"--media_dir", "run/media",
		"--resolution", "1920,1080",
		"--fps", "30",
		"run/generated_scene.py", "GeneratedScene",
	}, args)
}

func TestManimRenderer_RenderCapturesExit(t *testing.T) {
	py := fakeInterpreter(t, "echo \"$@\"\necho 'Traceback: boom' >&2\nexit 3\n")
	r := NewManimRenderer(ManimConfig{Python: py})

	res, err := r.Render(context.Background(), Request{
		Script: "scene.py", Quality: domain.QualityLow, MediaDir: "media", Resolution: "640,480", FPS: 15,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, res.ExitCode)
	assert.Contains(t, res.Stdout, "-m manim -ql --media_dir media")
	assert.Contains(t, res.Stderr, "Traceback: boom")
	assert.True(t, strings.HasPrefix(res.Cmd, py+" -m manim"))
}

func TestManimRenderer_RenderSuccess(t *testing.T) {
	py := fakeInterpreter(t, "exit 0\n")
	res, err := NewManimRenderer(ManimConfig{Python: py}).Render(context.Background(), Request{Quality: domain.QualityHigh, FPS: 30})
	require.NoError(t, err)
	assert.Equal(t, 0, res.ExitCode)
}

func TestManimRenderer_SpawnFailure(t *testing.T) {
	r := NewManimRenderer(ManimConfig{Python: filepath.Join(t.TempDir(), "missing-python")})
	res, err := r.Render(context.Background(), Request{Quality: domain.QualityLow, FPS: 30})
	assert.Error(t, err)
	assert.Nil(t, res)
}

func TestTailWriter(t *testing.T) {
	var buf bytes.Buffer
	tw := &tailWriter{w: &buf, max: 5}
	_, _ = tw.Write([]byte("abc"))
	_, _ = tw.Write([]byte("defg"))
	assert.Equal(t, "cdefg", tw.String())
	assert.EqualValues(t, 2, tw.discarded)

	n, err := tw.Write([]byte("0123456789"))
	require.NoError(t, err)
	assert.Equal(t, 10, n)
	assert.Equal(t, "56789", tw.String())
	assert.EqualValues(t, 12, tw.discarded)
}

func TestManimRenderer_MarksTruncatedOutput(t *testing.T) {
	py := fakeInterpreter(t, "printf '0123456789' >&2\nexit 1\n")
	r := NewManimRenderer(ManimConfig{Python: py, MaxOutputBytes: 4})

	res, err := r.Render(context.Background(), Request{Quality: domain.QualityLow, FPS: 30})
	require.NoError(t, err)
	assert.True(t, res.Truncated)
	assert.Equal(t, "6789", res.Stderr)

	py = fakeInterpreter(t, "printf 'ok'\nexit 0\n")
	res, err = NewManimRenderer(ManimConfig{Python: py, MaxOutputBytes: 4}).Render(context.Background(), Request{Quality: domain.QualityLow, FPS: 30})
	require.NoError(t, err)
	assert.False(t, res.Truncated)
}

func TestFindLatestVideo(t *testing.T) {
	dir := t.TempDir()

	got, err := FindLatestVideo(filepath.Join(dir, "missing"))
	require.NoError(t, err)
	assert.Empty(t, got)

	nested := filepath.Join(dir, "videos", "generated_scene", "1080p30")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	older := filepath.Join(nested, "partial.mp4")
	newer := filepath.Join(nested, "GeneratedScene.mp4")
	require.NoError(t, os.WriteFile(older, []byte("a"), 0o644))
	require.NoError(t, os.WriteFile(newer, []byte("b"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(nested, "notes.txt"), []byte("c"), 0o644))

	now := time.Now()
	require.NoError(t, os.Chtimes(older, now.Add(-time.Hour), now.Add(-time.Hour)))
	require.NoError(t, os.Chtimes(newer, now, now))

	got, err = FindLatestVideo(dir)
	require.NoError(t, err)
	assert.Equal(t, newer, got)
}

func TestTailAndHead(t *testing.T) {
	assert.Equal(t, "world", Tail("hello world", 5))
	assert.Equal(t, "short", Tail("short", 100))
	assert.Equal(t, "", Tail("abc", 0))
	// Cutting inside a multi-byte rune moves to the next boundary.
	assert.Equal(t, "界", Tail("世界", 4))
	assert.Equal(t, "hello", Head("hello world", 5))
	assert.Equal(t, "世", Head("世界", 4))
}
