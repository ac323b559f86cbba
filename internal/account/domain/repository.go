package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

// Repository defines persistence behavior for accounts.
type Repository interface {
	Create(ctx context.Context, user *User) error
	FindOne(ctx context.Context, filter User) (*User, error)
	FindByID(ctx context.Context, id snowflake.ID) (*User, error)
	UpdateFields(ctx context.Context, id snowflake.ID, fields map[string]any) error
}
