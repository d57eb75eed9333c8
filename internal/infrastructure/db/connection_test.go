package db

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	assert.Equal(t, 10, config.MaxOpenConns)
	assert.Equal(t, 5, config.MaxIdleConns)
	assert.Equal(t, 30*time.Minute, config.ConnMaxLifetime)
	assert.Equal(t, 5*time.Minute, config.ConnMaxIdleTime)
	assert.Equal(t, 30*time.Second, config.QueryTimeout)
	assert.False(t, config.Enabled)
	assert.NoError(t, config.Validate())
}

func TestConfig_Validate(t *testing.T) {
	c := DefaultConfig()
	c.Enabled = true
	assert.ErrorContains(t, c.Validate(), "DSN is required")

	c = DefaultConfig()
	c.MaxIdleConns = 20
	assert.ErrorContains(t, c.Validate(), "cannot exceed")

	c = DefaultConfig()
	c.QueryTimeout = 0
	assert.Error(t, c.Validate())
}

func TestNewManager_Disabled(t *testing.T) {
	manager, err := NewManager(Config{Enabled: false})
	require.NoError(t, err)

	assert.False(t, manager.IsEnabled())
	assert.Nil(t, manager.Repository())
	assert.Nil(t, manager.Runs())
	assert.Nil(t, manager.DB())
	assert.NoError(t, manager.Close())

	check := manager.Health().Health(context.Background())
	assert.True(t, check.Healthy)
	assert.Contains(t, check.Errors[0], "disabled")
	assert.NoError(t, manager.Health().Ping(context.Background()))

	stats := manager.Stats()
	assert.False(t, stats["enabled"].(bool))
	assert.Equal(t, "disabled", stats["status"])
}

func TestNewManager_MissingDSN(t *testing.T) {
	_, err := NewManager(Config{Enabled: true})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DSN is required")
}

func TestManager_WithMockDB(t *testing.T) {
	mockDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer mockDB.Close()

	manager := NewManagerWithDB(sqlx.NewDb(mockDB, "postgres"), DefaultConfig())
	assert.True(t, manager.IsEnabled())
	assert.NotNil(t, manager.Runs())

	mock.ExpectPing()
	check := manager.Health().Health(context.Background())
	assert.True(t, check.Healthy)
	assert.Empty(t, check.Errors)
	assert.Contains(t, check.ConnectionPool, "max_open")

	mock.ExpectPing().WillReturnError(sqlmock.ErrCancelled)
	check = manager.Health().Health(context.Background())
	assert.False(t, check.Healthy)
	require.Len(t, check.Errors, 1)
	assert.Contains(t, check.Errors[0], "ping failed")

	stats := manager.Stats()
	assert.True(t, stats["enabled"].(bool))
	assert.Contains(t, stats, "open_connections")

	assert.NoError(t, mock.ExpectationsWereMet())
}
