package render

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJoinQR(t *testing.T) {
	link := "http://localhost:11995/?duelId=D1&playerId=Alice"

	text, err := JoinQR(link)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(text, "\n"), "\n")
	require.NotEmpty(t, lines)
	assert.Contains(t, text, "██")
	// square: every row has as many modules as there are rows
	assert.Equal(t, len(lines)*2, len([]rune(lines[0])))

	png, err := JoinQRPNG(link, 128)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")))
}
