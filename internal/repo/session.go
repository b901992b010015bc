package repo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bookstore/services/comics/internal/db"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

const batchSize = 1000

// unitOfWork holds the transaction shared by a repository's writes. The
// transaction opens on the first write and ends with Commit or Rollback.
type unitOfWork struct {
	db *db.DB
	tx *gorm.DB
}

// conn returns the open transaction, beginning one if needed.
func (u *unitOfWork) conn(ctx context.Context) (*gorm.DB, error) {
	if u.tx == nil {
		tx := u.db.WithContext(ctx).Begin()
		if tx.Error != nil {
			return nil, fmt.Errorf("begin transaction: %w", tx.Error)
		}
		u.tx = tx
	}
	return u.tx.WithContext(ctx), nil
}

// reader returns the open transaction if any, so reads see pending writes.
func (u *unitOfWork) reader(ctx context.Context) *gorm.DB {
	if u.tx != nil {
		return u.tx.WithContext(ctx)
	}
	return u.db.WithContext(ctx)
}

// Commit commits the open unit of work. It is a no-op when none is open.
func (u *unitOfWork) Commit(ctx context.Context) error {
	if u.tx == nil {
		return nil
	}
	err := u.tx.Commit().Error
	u.tx = nil
	return err
}

// Rollback discards the open unit of work. It is a no-op when none is open.
func (u *unitOfWork) Rollback(ctx context.Context) error {
	if u.tx == nil {
		return nil
	}
	err := u.tx.Rollback().Error
	u.tx = nil
	if errors.Is(err, gorm.ErrInvalidTransaction) {
		return nil
	}
	return err
}

type tabler interface {
	TableName() string
}

func tableNames(models []interface{}) []string {
	names := make([]string, 0, len(models))
	for _, m := range models {
		if t, ok := m.(tabler); ok {
			names = append(names, t.TableName())
		}
	}
	return names
}

func quoted(tables []string) []string {
	out := make([]string, len(tables))
	for i, t := range tables {
		out[i] = pq.QuoteIdentifier(t)
	}
	return out
}

func reversed(tables []string) []string {
	out := make([]string, len(tables))
	for i, t := range tables {
		out[len(tables)-1-i] = t
	}
	return out
}

// resetTables empties tables and restarts their identity columns. tables
// must be in dependency order.
func resetTables(tx *gorm.DB, dialect string, tables []string) error {
	if len(tables) == 0 {
		return nil
	}
	switch dialect {
	case db.DialectPostgres:
		stmt := "TRUNCATE TABLE " + strings.Join(quoted(tables), ", ") + " RESTART IDENTITY CASCADE"
		return tx.Exec(stmt).Error
	default:
		for _, table := range reversed(tables) {
			if err := tx.Exec("DELETE FROM " + pq.QuoteIdentifier(table)).Error; err != nil {
				return err
			}
		}
		return tx.Exec("DELETE FROM sqlite_sequence WHERE name IN ?", tables).Error
	}
}
