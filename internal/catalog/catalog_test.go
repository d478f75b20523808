package catalog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	c := Default()

	assert.Len(t, c.Courts, 5)
	assert.Len(t, c.DocumentTypes, 7)
	assert.True(t, c.HasCourt("hc-nairobi"))
	assert.True(t, c.HasDocumentType("affidavit"))
	assert.False(t, c.HasCourt("supreme-court"))
	assert.Equal(t, "Evidence/Exhibit", c.DocumentTypes[3].Label)
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		{
			name: "valid",
			input: `
courts:
  - value: kc
    label: Kisumu Court
documentTypes:
  - value: motion
    label: Motion
`,
		},
		{
			name:    "no courts",
			input:   "documentTypes:\n  - value: motion\n",
			wantErr: "no courts",
		},
		{
			name:    "no document types",
			input:   "courts:\n  - value: kc\n",
			wantErr: "no document types",
		},
		{
			name:    "duplicate value",
			input:   "courts:\n  - value: kc\n  - value: kc\ndocumentTypes:\n  - value: motion\n",
			wantErr: `duplicate court "kc"`,
		},
		{
			name:    "missing value",
			input:   "courts:\n  - label: Nameless\ndocumentTypes:\n  - value: motion\n",
			wantErr: "has no value",
		},
		{
			name:    "malformed yaml",
			input:   "courts: [",
			wantErr: "parsing catalog",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := Parse(strings.NewReader(tt.input))
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.True(t, c.HasCourt("kc"))
		})
	}
}

func TestLoad(t *testing.T) {
	t.Run("empty path uses default", func(t *testing.T) {
		c, err := Load("")
		require.NoError(t, err)
		assert.True(t, c.HasCourt("tat"))
	})

	t.Run("reads file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "catalog.yaml")
		require.NoError(t, os.WriteFile(path, []byte("courts:\n  - value: mc-mombasa\ndocumentTypes:\n  - value: order\n"), 0644))

		c, err := Load(path)
		require.NoError(t, err)
		assert.True(t, c.HasCourt("mc-mombasa"))
		assert.False(t, c.HasCourt("hc-nairobi"))
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})
}
