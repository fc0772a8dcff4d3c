package feedback

import (
	"time"

	"github.com/google/uuid"
)

// Feedback is a free-text comment left by a user.
type Feedback struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Username  string    `json:"username" db:"username"`
	Message   string    `json:"message" db:"message"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
