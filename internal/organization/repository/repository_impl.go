package repository

import (
	"context"
	"strings"

	"github.com/smallbiznis/notewall/internal/organization/domain"
	"github.com/smallbiznis/notewall/pkg/db"
	"gorm.io/gorm"
)

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) domain.Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) domain.Repository {
	return &repository{db: tx}
}

func (r *repository) FindUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, domain.ErrInvalidEmail
	}

	var user domain.User
	err := r.db.WithContext(ctx).
		Where("email = ?", email).
		Take(&user).Error
	if err != nil {
		if db.IsNotFound(err) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *repository) ListUsersWithOrganization(ctx context.Context) ([]domain.User, error) {
	var users []domain.User
	err := r.db.WithContext(ctx).
		Where("name IS NOT NULL").
		Order("email ASC").
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}

func (r *repository) ListMembers(ctx context.Context, organizationName string) ([]domain.User, error) {
	var users []domain.User
	err := r.db.WithContext(ctx).
		Where("name = ?", organizationName).
		Order("email ASC").
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	return domain.MembersOf(users, organizationName), nil
}

func (r *repository) ListNotesByAuthors(ctx context.Context, emails []string) ([]domain.Note, error) {
	if len(emails) == 0 {
		return []domain.Note{}, nil
	}

	var notes []domain.Note
	err := r.db.WithContext(ctx).
		Where("email IN ?", emails).
		Order("created_at ASC").
		Order("id ASC").
		Find(&notes).Error
	if err != nil {
		return nil, err
	}
	return notes, nil
}

func (r *repository) ListNotesByAuthor(ctx context.Context, email string) ([]domain.Note, error) {
	var notes []domain.Note
	err := r.db.WithContext(ctx).
		Where("email = ?", email).
		Order("created_at DESC").
		Order("id DESC").
		Find(&notes).Error
	if err != nil {
		return nil, err
	}
	return notes, nil
}

func (r *repository) CountUsers(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&domain.User{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *repository) CreateUsers(ctx context.Context, users []domain.User) error {
	if len(users) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&users).Error
}

func (r *repository) CreateNotes(ctx context.Context, notes []domain.Note) error {
	if len(notes) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&notes).Error
}
