package progress

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdate(t *testing.T) {
	u := Update{TotalMegabytes: 4, ProcessedMegabytes: 1}
	assert.False(t, u.Done())
	assert.InDelta(t, 25.0, u.Percent(), 1e-9)

	u.ProcessedMegabytes = 4
	assert.True(t, u.Done())
	assert.InDelta(t, 100.0, u.Percent(), 1e-9)

	assert.Equal(t, 100.0, Update{}.Percent())
	assert.True(t, Update{}.Done())
}

func TestMegabytes(t *testing.T) {
	assert.Equal(t, 1.0, Megabytes(1<<20))
	assert.Equal(t, 0.5, Megabytes(512*1024))
}

func TestBarFinishes(t *testing.T) {
	var buf bytes.Buffer
	b := NewBar(&buf, "stashing")
	b.Observe(Update{TotalMegabytes: 2, ProcessedMegabytes: 1})
	b.Observe(Update{TotalMegabytes: 2, ProcessedMegabytes: 2})

	require.NotNil(t, b.bar)
	assert.True(t, b.bar.IsFinished())
	assert.Contains(t, buf.String(), "stashing")
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	Logger(l)(Update{TotalMegabytes: 2, ProcessedMegabytes: 1, File: "a.jpg"})

	out := buf.String()
	assert.Contains(t, out, "stash progress")
	assert.Contains(t, out, "file=a.jpg")
	assert.Contains(t, out, "percent=50.0")
}
