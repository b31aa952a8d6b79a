package catalog

import (
	"time"

	"github.com/google/uuid"
)

// Department is a cost centre that subscriptions allocate spend to.
type Department struct {
	ID        uuid.UUID
	UserID    string
	Name      string
	Color     string
	CreatedAt time.Time
}

// Account is an accounting code used for the account-level allocation.
type Account struct {
	ID        uuid.UUID
	UserID    string
	Name      string
	Code      string
	CreatedAt time.Time
}
