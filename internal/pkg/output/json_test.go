package output

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteJSON(t *testing.T) {
	v := map[string]any{"id": "r1", "text": "<b>"}

	tests := []struct {
		name   string
		pretty bool
		want   string
	}{
		{"compact", false, "{\"id\":\"r1\",\"text\":\"<b>\"}\n"},
		{"pretty", true, "{\n  \"id\": \"r1\",\n  \"text\": \"<b>\"\n}\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, WriteJSON(&buf, v, tt.pretty))
			assert.Equal(t, tt.want, buf.String())
		})
	}
}

func TestIsTerminal_RegularFile(t *testing.T) {
	f, err := os.Create(filepath.Join(t.TempDir(), "out.json"))
	require.NoError(t, err)
	defer f.Close()

	assert.False(t, IsTerminal(f))
}
