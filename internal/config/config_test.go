package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("defaults without a config file", func(t *testing.T) {
		viper.Reset()
		Load(filepath.Join(t.TempDir(), "missing.env"))

		alloc := LoadAllocationConfig()
		assert.Equal(t, 30*time.Second, alloc.LockExpiry)
		assert.Equal(t, 32, alloc.LockTries)

		server := LoadServerConfig()
		assert.Equal(t, "8080", server.Port)
		assert.Equal(t, "info", server.LogLevel)
		assert.True(t, server.Migrate)
		assert.Equal(t, 1, viper.GetInt("jwt.expiry_hours"))
	})

	t.Run("env file and environment override defaults", func(t *testing.T) {
		viper.Reset()
		path := filepath.Join(t.TempDir(), ".env")
		require.NoError(t, os.WriteFile(path, []byte("ALLOCATION_LOCK_TRIES=5\nPORT=9000\n"), 0o600))
		t.Setenv("ALLOCATION_LOCK_EXPIRY", "5s")
		t.Cleanup(func() {
			os.Unsetenv("ALLOCATION_LOCK_TRIES")
			os.Unsetenv("PORT")
		})

		Load(path)

		alloc := LoadAllocationConfig()
		assert.Equal(t, 5*time.Second, alloc.LockExpiry)
		assert.Equal(t, 5, alloc.LockTries)
		assert.Equal(t, "9000", LoadServerConfig().Port)
	})
}

func TestSuperuserConfig(t *testing.T) {
	viper.Reset()
	assert.False(t, LoadSuperuserConfig().Enabled())

	viper.Set("superuser.email", "admin@example.com")
	assert.False(t, LoadSuperuserConfig().Enabled())

	viper.Set("superuser.password", "s3cret")
	cfg := LoadSuperuserConfig()
	assert.True(t, cfg.Enabled())
	assert.Equal(t, "admin@example.com", cfg.Email)
}
