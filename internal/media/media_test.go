package media

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanPath(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"a", "a"},
		{"/a/b/", "a/b"},
		{`photos\2020`, "photos/2020"},
		{"", ""},
		{"/", ""},
		{".", ""},
		{"./a.jpg", "a.jpg"},
		{"../a/b", "a/b"},
		{"a/./b/../c", "a/c"},
		{`..\photos`, "photos"},
		{"a//b", "a/b"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanPath(tt.in))
		})
	}
}

func TestPrefixKeepsSiblingsApart(t *testing.T) {
	assert.Equal(t, "a/", Prefix("a"))
	assert.Equal(t, "a/", Prefix("a/"))
	assert.Equal(t, "", Prefix(""))
	assert.False(t, strings.HasPrefix("ab/2.jpg", Prefix("a")))
}

func TestContainerKey(t *testing.T) {
	m := New("cat.jpg", []byte("x"))
	c := NewContainer("/pets/", m)
	assert.Equal(t, "pets/cat.jpg", c.Key(m))
	assert.Equal(t, "cat.jpg", JoinKey("", "cat.jpg"))
}

func TestTagging(t *testing.T) {
	m := &Media{Name: "a.PNG"}
	assert.False(t, m.Tagged("zstd"))
	m.Tag("zstd")
	assert.True(t, m.Tagged("zstd"))
	assert.Equal(t, "zstd", m.Metadata["zstd"])
	assert.Equal(t, ".png", m.Ext())
}
