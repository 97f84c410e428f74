package backend

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vrsandeep/readme-console/internal/testutil"
)

func collect(t *testing.T, input string) []string {
	t.Helper()
	var got []string
	err := readEvents(strings.NewReader(input), func(data string) bool {
		got = append(got, data)
		return true
	})
	require.NoError(t, err)
	return got
}

func TestReadEvents(t *testing.T) {
	testCases := []struct {
		name  string
		input string
		want  []string
	}{
		{"single frame", "data: 📂 Processing upload / cloning repo...\n\n", []string{"📂 Processing upload / cloning repo..."}},
		{"frames keep order", "data: one\n\ndata: two\n\ndata: three\n\n", []string{"one", "two", "three"}},
		{"multi line data", "data: a\ndata: b\n\n", []string{"a\nb"}},
		{"no space after colon", "data:tight\n\n", []string{"tight"}},
		{"only first space stripped", "data:  two spaces\n\n", []string{" two spaces"}},
		{"crlf line endings", "data: win\r\n\r\n", []string{"win"}},
		{"comments skipped", ": keep-alive\n\ndata: real\n\n", []string{"real"}},
		{"named events skipped", "event: ping\ndata: x\n\nevent: message\ndata: y\n\n", []string{"y"}},
		{"id and retry ignored", "id: 7\nretry: 1000\ndata: z\n\n", []string{"z"}},
		{"empty event not dispatched", "id: 1\n\n", nil},
		{"unterminated event dropped", "data: done\n\ndata: partial", []string{"done"}},
		{"duplicates kept", "data: same\n\ndata: same\n\n", []string{"same", "same"}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, collect(t, tc.input))
		})
	}
}

func TestReadEvents_StopsWhenEmitDeclines(t *testing.T) {
	var got []string
	err := readEvents(strings.NewReader("data: a\n\ndata: b\n\n"), func(data string) bool {
		got = append(got, data)
		return false
	})
	assert.ErrorIs(t, err, errStopped)
	assert.Equal(t, []string{"a"}, got)
}

func TestSubscribe(t *testing.T) {
	fb := testutil.NewFakeBackend(t)
	fb.Progress(false, "📂 Processing upload / cloning repo...", "📄 Reading project files...", "✅ README ready!")
	c := newTestClient(t, fb.URL())

	sub, err := c.Subscribe(context.Background(), "tok-9")
	require.NoError(t, err)
	defer sub.Close()

	var lines []string
	for line := range sub.Lines() {
		lines = append(lines, line)
	}
	assert.Equal(t, []string{"📂 Processing upload / cloning repo...", "📄 Reading project files...", "✅ README ready!"}, lines)
	assert.NoError(t, sub.Err())
	assert.Equal(t, []string{"tok-9"}, fb.StreamTokens())
}

func TestSubscribe_CloseEndsHeldStream(t *testing.T) {
	fb := testutil.NewFakeBackend(t)
	fb.Progress(true, "first")
	c := newTestClient(t, fb.URL())

	sub, err := c.Subscribe(context.Background(), "tok")
	require.NoError(t, err)

	select {
	case line := <-sub.Lines():
		assert.Equal(t, "first", line)
	case <-time.After(2 * time.Second):
		t.Fatal("did not receive the first frame")
	}

	require.NoError(t, sub.Close())
	require.NoError(t, sub.Close(), "Close must be idempotent")

	_, open := <-sub.Lines()
	assert.False(t, open)
	assert.NoError(t, sub.Err())
}

func TestSubscribe_Unreachable(t *testing.T) {
	fb := testutil.NewFakeBackend(t)
	url := fb.URL()
	fb.Server.Close()

	c := newTestClient(t, url)
	_, err := c.Subscribe(context.Background(), "tok")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open progress stream")
}
