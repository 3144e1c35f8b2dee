package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 1, c.DefaultPage)
	assert.Equal(t, 100, c.DefaultLimit)
	assert.Equal(t, "datarows", c.MongoCollection)
	assert.Equal(t, "json", c.OutputFormat)
	assert.Equal(t, 3.5, c.OutlierThreshold)
	assert.Equal(t, 30, c.SourceTimeoutSec)
	assert.NoError(t, c.Validate())
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fieldlens.yaml")
	require.NoError(t, os.WriteFile(path, []byte("source: sales.csv\ndefault_limit: 25\nlog_level: debug\n"), 0o644))
	t.Setenv("FIELDLENS_DEFAULT_LIMIT", "50")

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "sales.csv", c.Source)
	assert.Equal(t, 50, c.DefaultLimit, "env overrides file")
	assert.Equal(t, "debug", c.LogLevel)
}

func TestLoadMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("source: [unterminated\n"), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	c, err := Load("")
	require.NoError(t, err)
	require.NoError(t, c.Set("source", "sqlite://data.db?table=sales"))
	require.NoError(t, c.Set("default_limit", "10"))

	path := filepath.Join(t.TempDir(), "out.yaml")
	require.NoError(t, Save(c, path))
	back, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "sqlite://data.db?table=sales", back.Source)
	assert.Equal(t, 10, back.DefaultLimit)
}

func TestSetValidates(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	c, err := Load("")
	require.NoError(t, err)

	assert.Error(t, c.Set("default_limit", "0"))
	assert.Error(t, c.Set("default_limit", "many"))
	assert.Error(t, c.Set("output_format", "xml"))
	assert.Error(t, c.Set("mongo_owner", "not-hex"))
	assert.Error(t, c.Set("nope", "1"))
	assert.Equal(t, 100, c.DefaultLimit, "failed Set leaves config unchanged")

	require.NoError(t, c.Set("mongo_owner", "65A1B2C3D4E5F60718293A4B"))
	assert.Equal(t, "65a1b2c3d4e5f60718293a4b", c.MongoOwner)
	require.NoError(t, c.Set("output_format", "Markdown"))
	v, err := c.Get("output_format")
	require.NoError(t, err)
	assert.Equal(t, "markdown", v)
}

func TestDelimiter(t *testing.T) {
	assert.Equal(t, rune(0), (&Global{}).Delimiter())
	assert.Equal(t, '\t', (&Global{CSVDelimiter: "tab"}).Delimiter())
	assert.Equal(t, ';', (&Global{CSVDelimiter: ";"}).Delimiter())
}

func TestGetCoversAllKeys(t *testing.T) {
	c := &Global{}
	for _, k := range Keys {
		_, err := c.Get(k)
		assert.NoError(t, err, k)
	}
}
