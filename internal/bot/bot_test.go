package bot

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReply(t *testing.T) {
	tests := []struct {
		text   string
		want   string
		answer bool
	}{
		{"/id", "123456789", true},
		{"/id@PensezyBot", "123456789", true},
		{"/aide", "Commandes: /start, /id", true},
		{"bonjour", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := Reply(tt.text, 123456789)
		assert.Equal(t, tt.answer, ok, tt.text)
		assert.Equal(t, tt.want, got, tt.text)
	}

	start, ok := Reply("/start", 42)
	assert.True(t, ok)
	assert.Contains(t, start, "identifiant Telegram est 42")
}
