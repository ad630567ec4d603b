package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"

	"github.com/lib/pq"
)

const uniqueViolation = "23505"

type scanner interface {
	Scan(dest ...any) error
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func isDuplicateKey(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

// logical times are stored in a signed BIGINT column.
func toColumnTime(t uint64) (int64, error) {
	if t > math.MaxInt64 {
		return 0, fmt.Errorf("logical time %d exceeds column range", t)
	}
	return int64(t), nil
}
