package db

import (
	"errors"
	"fmt"
	"strings"

	"github.com/surrealdb/surrealdb.go"
)

// Sentinel errors for persistence operations. Check with errors.Is.
var (
	// ErrTransactionConflict indicates a concurrent write to the same key.
	// Callers may retry.
	ErrTransactionConflict = errors.New("transaction conflict")

	// ErrNotFound indicates a missing key. Backends translate it into a
	// false result from Get.
	ErrNotFound = errors.New("key not found")
)

// wrapQueryError maps known SurrealDB query failures onto the sentinels.
func wrapQueryError(err error) error {
	if err == nil {
		return nil
	}

	var queryErr *surrealdb.QueryError
	if errors.As(err, &queryErr) {
		if strings.Contains(queryErr.Message, "Transaction conflict") {
			return fmt.Errorf("%w: %s", ErrTransactionConflict, queryErr.Message)
		}
	}

	return err
}
