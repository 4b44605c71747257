package db

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func TestConnectRequiresDSN(t *testing.T) {
	_, err := Connect(context.Background(), "", DefaultPoolOptions(), nil)
	require.EqualError(t, err, "postgres dsn is required")
}

func TestConnectFailsFastOnUnreachableServer(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_, err := Connect(ctx, "host=127.0.0.1 port=1 user=devquest dbname=devquest sslmode=disable connect_timeout=2", DefaultPoolOptions(), nil)
	require.Error(t, err)
}

func TestCloseReleasesHandle(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	mock.ExpectClose()
	require.NoError(t, (&Postgres{DB: gdb}).Close())
	require.NoError(t, mock.ExpectationsWereMet())

	var missing *Postgres
	require.NoError(t, missing.Close())
}
