// AngelaMos | 2026
// entity.go

package user

import (
	"slices"
	"time"

	"github.com/carterperez-dev/gigmarket/internal/core"
)

type User struct {
	ID           string     `db:"id"`
	Email        string     `db:"email"`
	PasswordHash string     `db:"password_hash"`
	TokenVersion int        `db:"token_version"`
	CreatedAt    time.Time  `db:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at"`
	DeletedAt    *time.Time `db:"deleted_at"`
}

type Profile struct {
	UserID      string    `db:"user_id"`
	DisplayName string    `db:"display_name"`
	AvatarURL   string    `db:"avatar_url"`
	Bio         string    `db:"bio"`
	IsSeller    bool      `db:"is_seller"`
	LocationID  *string   `db:"location_id"`
	UpdatedAt   time.Time `db:"profile_updated_at"`
}

// Account is a user joined with its profile and current role names.
type Account struct {
	User
	Profile
	Roles core.StringList `db:"roles"`
}

func (a *Account) HasRole(role string) bool {
	return slices.Contains(a.Roles, role)
}
