package servekit_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sagarc03/servekit"
)

func TestDotfilesPolicy_IsValid(t *testing.T) {
	tests := []struct {
		name   string
		policy servekit.DotfilesPolicy
		want   bool
	}{
		{"ignore", servekit.DotfilesIgnore, true},
		{"allow", servekit.DotfilesAllow, true},
		{"deny", servekit.DotfilesDeny, true},
		{"empty", "", false},
		{"uppercase", "DENY", false},
		{"unknown", "hide", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.policy.IsValid())
		})
	}
}

func TestParseDotfilesPolicy(t *testing.T) {
	tests := []struct {
		input   string
		want    servekit.DotfilesPolicy
		wantErr bool
	}{
		{"ignore", servekit.DotfilesIgnore, false},
		{"allow", servekit.DotfilesAllow, false},
		{"deny", servekit.DotfilesDeny, false},
		{"", "", true},
		{"bogus", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := servekit.ParseDotfilesPolicy(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDefaultFileServeOptions(t *testing.T) {
	opts := servekit.DefaultFileServeOptions()

	assert.Equal(t, servekit.DotfilesIgnore, opts.Dotfiles)
	assert.True(t, opts.CacheControl)
	assert.Equal(t, 365*24*time.Hour, opts.MaxAge)
	assert.False(t, opts.Immutable)
	assert.True(t, opts.ETag)
	assert.True(t, opts.LastModified)
	assert.True(t, opts.AcceptRanges)
	assert.False(t, opts.Sniff)
	assert.Nil(t, opts.Start)
	assert.Nil(t, opts.End)
	assert.Empty(t, opts.Root)
}
