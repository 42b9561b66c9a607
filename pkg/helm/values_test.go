package helm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func renderToMap(t *testing.T, values map[string]string) map[string]any {
	t.Helper()

	data, err := RenderValues(values)
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, yaml.Unmarshal(data, &out))
	return out
}

func TestRenderValuesNesting(t *testing.T) {
	out := renderToMap(t, map[string]string{
		"wordpressBlogName":         "store-1a2b3c4d",
		"mariadb.auth.rootPassword": "s3cret",
		"mariadb.auth.database":     "wordpress",
		"ingress.hostname":          "store-1a2b3c4d.127.0.0.1.nip.io",
	})

	assert.Equal(t, "store-1a2b3c4d", out["wordpressBlogName"])

	mariadb, ok := out["mariadb"].(map[string]any)
	require.True(t, ok)
	auth, ok := mariadb["auth"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "s3cret", auth["rootPassword"])
	assert.Equal(t, "wordpress", auth["database"])

	ingress, ok := out["ingress"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "store-1a2b3c4d.127.0.0.1.nip.io", ingress["hostname"])
}

func TestRenderValuesCoercion(t *testing.T) {
	out := renderToMap(t, map[string]string{
		"ingress.enabled":   "true",
		"replicaCount":      "3",
		"wordpressPassword": "0123abcd_-ZZ",
	})

	ingress := out["ingress"].(map[string]any)
	assert.Equal(t, true, ingress["enabled"])
	assert.Equal(t, 3, out["replicaCount"])
	assert.Equal(t, "0123abcd_-ZZ", out["wordpressPassword"])
}

func TestRenderValuesConflicts(t *testing.T) {
	tests := []struct {
		name   string
		values map[string]string
	}{
		{
			name: "leaf under leaf",
			values: map[string]string{
				"mariadb.auth":          "x",
				"mariadb.auth.database": "wordpress",
			},
		},
		{
			name:   "empty segment",
			values: map[string]string{"mariadb..auth": "x"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := RenderValues(tt.values)
			assert.Error(t, err)
		})
	}
}

func TestRenderValuesEmpty(t *testing.T) {
	data, err := RenderValues(nil)
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, yaml.Unmarshal(data, &out))
	assert.Empty(t, out)
}
