package repositories

import (
	"errors"

	"gorm.io/gorm"
)

// ErrOptimisticLock is returned when a guarded update found the row already
// changed by a concurrent writer.
var ErrOptimisticLock = errors.New("row was modified concurrently")

// IsNotFoundError reports whether err stems from a missing record.
func IsNotFoundError(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
