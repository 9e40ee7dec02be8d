package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadClientAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	content := `
name: bees
display_name: Save the Bees
ga4_property_id: "123456"
gsc_site_url: https://savethebees.org
homepage_paths: ["/", "/index"]
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bees.yaml"), []byte(content), 0o644))

	cfg, err := LoadClient(dir, "bees")
	require.NoError(t, err)

	assert.Equal(t, "Save the Bees", cfg.Title())
	assert.Equal(t, "123456", cfg.GA4PropertyID)
	assert.Equal(t, []string{"/", "/index"}, cfg.HomepagePaths)
	assert.Equal(t, "#F4C430", cfg.PrimaryColor)
	assert.Equal(t, []string{"/admin", "/wp-admin"}, cfg.ExcludePaths)
}

func TestLoadClientMissing(t *testing.T) {
	_, err := LoadClient(t.TempDir(), "ghost")
	assert.True(t, errors.Is(err, ErrClientNotFound))
}

func TestClientNamesStayInsideDir(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "clients")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "secret.yaml"), []byte("name: secret\n"), 0o644))

	for _, name := range []string{"../secret", "..", ".", "", "a/b", `a\b`, "/etc/passwd"} {
		_, err := LoadClient(dir, name)
		assert.ErrorIs(t, err, ErrInvalidClientName, "load %q", name)

		_, err = SaveClient(dir, &ClientConfig{Name: name})
		assert.Error(t, err, "save %q", name)
	}
	assert.NoError(t, ValidateClientName("hope_house"))
	assert.NoError(t, ValidateClientName("river-trust.org"))
}

func TestSaveAndListClients(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "clients")

	names, err := ListClients(dir)
	require.NoError(t, err)
	assert.Empty(t, names)

	for _, name := range []string{"zoo", "arts"} {
		_, err := SaveClient(dir, NewClientConfig(name))
		require.NoError(t, err)
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	names, err = ListClients(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"arts", "zoo"}, names)

	loaded, err := LoadClient(dir, "zoo")
	require.NoError(t, err)
	assert.Equal(t, NewClientConfig("zoo"), loaded)
}

func TestSaveClientRequiresName(t *testing.T) {
	_, err := SaveClient(t.TempDir(), &ClientConfig{})
	assert.Error(t, err)
}

func TestExcluded(t *testing.T) {
	cfg := NewClientConfig("x")
	assert.True(t, cfg.Excluded("/wp-admin/edit.php"))
	assert.False(t, cfg.Excluded("/about"))
}
