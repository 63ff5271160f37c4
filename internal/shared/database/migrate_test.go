package database

import (
	"fmt"
	"testing"
	"time"

	"tripstock/internal/shared/config"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestMigrate_CreatesInventoryTables(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(memoryDSN()), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	require.NoError(t, Migrate(db))

	for _, table := range []string{"capacities", "holds", "waitlist_entries"} {
		assert.True(t, db.Migrator().HasTable(table), table)
	}
	assert.True(t, db.Migrator().HasIndex("holds", "idx_holds_capacity_active"))
	assert.True(t, db.Migrator().HasIndex("waitlist_entries", "idx_waitlist_capacity_seq"))

	// running twice is safe
	require.NoError(t, Migrate(db))
}

func TestHealthCheck_WithoutRedis(t *testing.T) {
	pg, err := gorm.Open(sqlite.Open(memoryDSN()), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	db := &DB{PostgreSQL: pg}
	assert.NoError(t, db.HealthCheck(t.Context()))
	assert.NoError(t, db.Close())
}

func TestHealthCheck_ReportsRedisOutage(t *testing.T) {
	pg, err := gorm.Open(sqlite.Open(memoryDSN()), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	mr := miniredis.RunT(t)
	rdb, err := openRedis(config.RedisConfig{Addr: mr.Addr()})
	require.NoError(t, err)

	db := &DB{PostgreSQL: pg, Redis: rdb}
	require.NoError(t, db.HealthCheck(t.Context()))

	mr.Close()
	err = db.HealthCheck(t.Context())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis ping failed")
	_ = db.Close()
}

func TestOpenRedis_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := openRedis(config.RedisConfig{Addr: addr})
	assert.Error(t, err)
}

func TestRedisOptions(t *testing.T) {
	opts := redisOptions(config.RedisConfig{Addr: "cache:6379", DB: 2, PoolSize: 8})
	assert.Equal(t, "cache:6379", opts.Addr)
	assert.Equal(t, 2, opts.DB)
	assert.Equal(t, 8, opts.PoolSize)
	assert.Equal(t, 4, opts.MinIdleConns)
	assert.Equal(t, 5*time.Second, opts.DialTimeout)

	assert.Equal(t, 10, redisOptions(config.RedisConfig{}).PoolSize)
}

func memoryDSN() string {
	return fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
}
