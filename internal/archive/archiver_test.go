package archive

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	objects map[string][]byte
	err     error
}

func (m *memStore) Upload(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	if m.err != nil {
		return m.err
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return err
	}
	if m.objects == nil {
		m.objects = map[string][]byte{}
	}
	m.objects[key] = buf.Bytes()
	return nil
}

func (m *memStore) GetURL(key string) string { return "https://cdn.test/" + key }

func (m *memStore) Exists(_ context.Context, key string) (bool, error) {
	_, ok := m.objects[key]
	return ok, nil
}

func (m *memStore) EnsureBucket(context.Context) error { return nil }

func fixedClock() time.Time {
	return time.Date(2026, 2, 24, 12, 49, 37, 0, time.Local)
}

func TestSafePrefix(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"振动", "振动"},
		{`a\b/c*d?e:f"g<h>i|j`, "abcdefghij"},
		{"0123456789abcdefghij", "0123456789abcde"},
		{"简谐振动与阻尼振动的能量变化规律分析", "简谐振动与阻尼振动的能量变化规"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SafePrefix(tt.in), "SafePrefix(%q)", tt.in)
	}
}

func TestSaveHTML_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "saved_projects")
	a := NewArchiver(dir, WithClock(fixedClock))

	art, err := a.SaveHTML(context.Background(), "<html></html>", "振动?")
	require.NoError(t, err)
	assert.Equal(t, "20260224_124937_振动.html", art.Name)
	assert.Equal(t, "20260224_124937", art.Timestamp)
	assert.Empty(t, art.URL)

	data, err := os.ReadFile(filepath.Join(dir, art.Name))
	require.NoError(t, err)
	assert.Equal(t, "<html></html>", string(data))
}

func TestSaveHTML_SameSecondCollides(t *testing.T) {
	a := NewArchiver(t.TempDir(), WithClock(fixedClock))
	first, err := a.SaveHTML(context.Background(), "one", "波")
	require.NoError(t, err)
	second, err := a.SaveHTML(context.Background(), "two", "波")
	require.NoError(t, err)
	assert.Equal(t, first.Path, second.Path)
}

func TestSaveHTML_Mirrors(t *testing.T) {
	store := &memStore{}
	a := NewArchiver(t.TempDir(), WithClock(fixedClock), WithStorage(store))

	art, err := a.SaveHTML(context.Background(), "<p>x</p>", "wave")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.test/html/20260224_124937_wave.html", art.URL)
	assert.Equal(t, []byte("<p>x</p>"), store.objects["html/"+art.Name])
}

func TestSaveHTML_MirrorFailureIsNotFatal(t *testing.T) {
	a := NewArchiver(t.TempDir(), WithClock(fixedClock), WithStorage(&memStore{err: errors.New("bucket gone")}))
	art, err := a.SaveHTML(context.Background(), "<p>x</p>", "wave")
	require.NoError(t, err)
	assert.Empty(t, art.URL)
}

func TestPublishVideo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "GeneratedScene.mp4")
	require.NoError(t, os.WriteFile(path, []byte("mp4"), 0o644))

	url, err := NewArchiver(t.TempDir()).PublishVideo(context.Background(), path, "video/x.mp4")
	require.NoError(t, err)
	assert.Empty(t, url)

	store := &memStore{}
	url, err = NewArchiver(t.TempDir(), WithStorage(store)).PublishVideo(context.Background(), path, "video/x.mp4")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.test/video/x.mp4", url)
	assert.Equal(t, []byte("mp4"), store.objects["video/x.mp4"])
}

func TestPublishVideo_SkipsStoredObject(t *testing.T) {
	path := filepath.Join(t.TempDir(), "GeneratedScene.mp4")
	require.NoError(t, os.WriteFile(path, []byte("new"), 0o644))

	store := &memStore{objects: map[string][]byte{"video/x.mp4": []byte("old")}}
	url, err := NewArchiver(t.TempDir(), WithStorage(store)).PublishVideo(context.Background(), path, "video/x.mp4")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.test/video/x.mp4", url)
	assert.Equal(t, []byte("old"), store.objects["video/x.mp4"])
}
