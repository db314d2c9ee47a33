package domain

import (
	"context"

	"gorm.io/gorm"
)

// Repository issues filtered selects over the `user` and `list` relations.
// All joins are performed by callers after retrieving raw rows.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindUserByEmail(ctx context.Context, email string) (*User, error)
	ListUsersWithOrganization(ctx context.Context) ([]User, error)
	ListMembers(ctx context.Context, organizationName string) ([]User, error)
	// ListNotesByAuthors returns notes ordered by created_at ascending.
	ListNotesByAuthors(ctx context.Context, emails []string) ([]Note, error)
	// ListNotesByAuthor returns notes ordered by created_at descending.
	ListNotesByAuthor(ctx context.Context, email string) ([]Note, error)
	CountUsers(ctx context.Context) (int64, error)
	CreateUsers(ctx context.Context, users []User) error
	CreateNotes(ctx context.Context, notes []Note) error
}
