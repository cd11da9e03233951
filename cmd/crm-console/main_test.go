package main

import (
	"os"
	"path/filepath"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDotEnv_MissingFileIsIgnored(t *testing.T) {
	require.NoError(t, loadDotEnv(filepath.Join(t.TempDir(), ".env")))
}

func TestLoadDotEnv_DoesNotOverrideEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("CRM_HTTP_ADDR=:7000\nCRM_TEST_DOTENV_ONLY=from-file\n"), 0o600))
	t.Setenv("CRM_HTTP_ADDR", ":8000")
	t.Setenv("CRM_TEST_DOTENV_ONLY", "")
	require.NoError(t, os.Unsetenv("CRM_TEST_DOTENV_ONLY"))

	require.NoError(t, loadDotEnv(path))

	assert.Equal(t, ":8000", os.Getenv("CRM_HTTP_ADDR"))
	assert.Equal(t, "from-file", os.Getenv("CRM_TEST_DOTENV_ONLY"))
}

func TestSetupLogger(t *testing.T) {
	prev := log.GetLevel()
	defer log.SetLevel(prev)

	setupLogger("debug")
	assert.Equal(t, log.DebugLevel, log.GetLevel())

	setupLogger("nonsense")
	assert.Equal(t, log.InfoLevel, log.GetLevel())
}
