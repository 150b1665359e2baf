package database

import (
	"context"
	"database/sql/driver"
	"errors"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Lokeshwarrior12/FineDine/internal/common/domain"
)

type txKey struct{}

// TxManager runs units of work inside a database transaction and retries
// the whole unit when the store reports a transient conflict.
type TxManager struct {
	db         *gorm.DB
	maxRetries uint64
	logger     *zap.Logger
}

// NewTxManager creates a TxManager. maxRetries bounds the number of re-runs
// after the first attempt.
func NewTxManager(db *gorm.DB, maxRetries uint64, logger *zap.Logger) *TxManager {
	return &TxManager{db: db, maxRetries: maxRetries, logger: logger}
}

// WithinTx executes fn in a transaction. Repositories reached through the
// context passed to fn join that transaction via Conn. A non-nil error from
// fn rolls everything back. Retryable failures that outlive the retry budget
// are reported as domain.ErrUnavailable.
func (m *TxManager) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return fn(ctx)
	}

	attempt := 0
	op := func() error {
		attempt++
		err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return fn(context.WithValue(ctx, txKey{}, tx))
		})
		if err == nil {
			return nil
		}
		if IsRetryable(err) {
			m.logger.Warn("transaction conflict, retrying", zap.Int("attempt", attempt), zap.Error(err))
			return err
		}
		return backoff.Permanent(err)
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 10 * time.Millisecond
	b.MaxInterval = 250 * time.Millisecond
	policy := backoff.WithContext(backoff.WithMaxRetries(b, m.maxRetries), ctx)

	err := backoff.Retry(op, policy)
	if err != nil && IsRetryable(err) {
		return domain.NewUnavailableError(err)
	}
	return err
}

// Conn returns the transaction bound to ctx, or db scoped to ctx when there is none.
func Conn(ctx context.Context, db *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx
	}
	return db.WithContext(ctx)
}

// IsRetryable reports whether err is a transient storage failure that a
// fresh transaction may not hit again.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", // serialization_failure
			"40P01", // deadlock_detected
			"55P03": // lock_not_available
			return true
		}
		return false
	}
	if errors.Is(err, driver.ErrBadConn) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "database table is locked")
}
