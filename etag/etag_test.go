package etag_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sagarc03/servekit/etag"
)

func TestWeak_Format(t *testing.T) {
	modTime := time.UnixMilli(1700000000000)

	tag := etag.Weak(255, modTime)

	assert.Equal(t, `W/"ff-18bcfe56800"`, tag)
	assert.True(t, strings.HasPrefix(tag, "W/"))
}

func TestWeak_Deterministic(t *testing.T) {
	modTime := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	for _, size := range []int64{0, 1, 10, 1 << 40} {
		assert.Equal(t, etag.Weak(size, modTime), etag.Weak(size, modTime))
	}
}

func TestStrong_Empty(t *testing.T) {
	assert.Equal(t, `"0-2jmj7l5rSw0yVb/vlWAYkK/YBwk"`, etag.Strong(nil, false))
	assert.Equal(t, `W/"0-2jmj7l5rSw0yVb/vlWAYkK/YBwk"`, etag.Strong([]byte{}, true))
}

func TestStrong_Content(t *testing.T) {
	tag := etag.Strong([]byte("hello"), false)

	assert.Equal(t, `"5-qvTGHdzF6KLavt4PO0gs2a6pQ00"`, tag)
	assert.False(t, strings.HasPrefix(tag, "W/"))
}

func TestStrong_Weak(t *testing.T) {
	assert.Equal(t, `W/"5-qvTGHdzF6KLavt4PO0gs2a6pQ00"`, etag.Strong([]byte("hello"), true))
}

func TestMatch(t *testing.T) {
	tests := []struct {
		name       string
		candidates string
		tag        string
		want       bool
	}{
		{"exact", `"abc"`, `"abc"`, true},
		{"wildcard", "*", `"abc"`, true},
		{"wildcard without tag", "*", "", false},
		{"list", `"x", "y" ,"abc"`, `"abc"`, true},
		{"weak candidate strong tag", `W/"abc"`, `"abc"`, true},
		{"strong candidate weak tag", `"abc"`, `W/"abc"`, true},
		{"mismatch", `"xyz"`, `"abc"`, false},
		{"empty tag", `"abc"`, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, etag.Match(tt.candidates, tt.tag))
		})
	}
}
