package database

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Lokeshwarrior12/FineDine/internal/common/domain"
)

type counterRow struct {
	ID    int `gorm:"primaryKey"`
	Value int
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := OpenSQLite(fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()))
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&counterRow{}))
	require.NoError(t, db.Create(&counterRow{ID: 1}).Error)
	return db
}

func readValue(t *testing.T, db *gorm.DB) int {
	t.Helper()
	var row counterRow
	require.NoError(t, db.First(&row, 1).Error)
	return row.Value
}

func TestWithinTx_CommitsOnSuccess(t *testing.T) {
	db := setupTestDB(t)
	m := NewTxManager(db, 2, zap.NewNop())

	err := m.WithinTx(context.Background(), func(ctx context.Context) error {
		return Conn(ctx, db).Model(&counterRow{}).Where("id = ?", 1).
			Update("value", gorm.Expr("value + 1")).Error
	})

	require.NoError(t, err)
	assert.Equal(t, 1, readValue(t, db))
}

func TestWithinTx_RollsBackOnError(t *testing.T) {
	db := setupTestDB(t)
	m := NewTxManager(db, 2, zap.NewNop())
	boom := errors.New("boom")

	err := m.WithinTx(context.Background(), func(ctx context.Context) error {
		if err := Conn(ctx, db).Model(&counterRow{}).Where("id = ?", 1).
			Update("value", 42).Error; err != nil {
			return err
		}
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, readValue(t, db))
}

func TestWithinTx_RetriesTransientConflicts(t *testing.T) {
	db := setupTestDB(t)
	m := NewTxManager(db, 3, zap.NewNop())

	calls := 0
	err := m.WithinTx(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return &pgconn.PgError{Code: "40001"}
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestWithinTx_ExhaustedRetriesAreUnavailable(t *testing.T) {
	db := setupTestDB(t)
	m := NewTxManager(db, 2, zap.NewNop())

	calls := 0
	err := m.WithinTx(context.Background(), func(ctx context.Context) error {
		calls++
		return &pgconn.PgError{Code: "40P01"}
	})

	assert.ErrorIs(t, err, domain.ErrUnavailable)
	assert.Equal(t, 3, calls)
}

func TestWithinTx_BusinessErrorsAreNotRetried(t *testing.T) {
	db := setupTestDB(t)
	m := NewTxManager(db, 5, zap.NewNop())

	calls := 0
	err := m.WithinTx(context.Background(), func(ctx context.Context) error {
		calls++
		return domain.NewValidationError("bad input")
	})

	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Equal(t, 1, calls)
}

func TestWithinTx_NestedCallJoinsOuterTransaction(t *testing.T) {
	db := setupTestDB(t)
	m := NewTxManager(db, 0, zap.NewNop())

	err := m.WithinTx(context.Background(), func(ctx context.Context) error {
		if err := m.WithinTx(ctx, func(inner context.Context) error {
			return Conn(inner, db).Model(&counterRow{}).Where("id = ?", 1).Update("value", 7).Error
		}); err != nil {
			return err
		}
		return errors.New("abort outer")
	})

	require.Error(t, err)
	assert.Equal(t, 0, readValue(t, db))
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(&pgconn.PgError{Code: "40001"}))
	assert.True(t, IsRetryable(fmt.Errorf("wrap: %w", &pgconn.PgError{Code: "40P01"})))
	assert.False(t, IsRetryable(&pgconn.PgError{Code: "23505"}))
	assert.True(t, IsRetryable(errors.New("database is locked")))
	assert.False(t, IsRetryable(gorm.ErrDuplicatedKey))
	assert.False(t, IsRetryable(nil))
}

func TestConfig_DatabaseURL(t *testing.T) {
	cfg := Config{Host: "db", Port: "5432", User: "fine", Password: "p@ss", DBName: "coupons", SSLMode: "disable"}
	assert.Equal(t, "postgres://fine:p%40ss@db:5432/coupons?sslmode=disable", cfg.DatabaseURL())
}
