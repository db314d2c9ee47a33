package seed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/notewall/internal/organization/domain"
	"gorm.io/gorm"
)

type demoUser struct {
	email        string
	organization string
	notes        []string
}

var demoUsers = []demoUser{
	{email: "ana@acme.test", organization: "Acme", notes: []string{"Quarterly plan", "Hiring notes", "Retro"}},
	{email: "ben@acme.test", organization: "Acme", notes: []string{"Release checklist"}},
	{email: "cory@acme.test", organization: "Acme"},
	{email: "dana@globex.test", organization: "Globex", notes: []string{"Vendor call", "Budget draft"}},
	{email: "eli@initech.test", organization: "Initech", notes: []string{"TPS report"}},
	{email: "frankie@example.test", notes: []string{"Personal todo"}},
}

// EnsureDemoData populates the user and list relations when they are empty.
// All writes go through repo bound to one transaction.
func EnsureDemoData(db *gorm.DB, repo domain.Repository, now time.Time) error {
	if db == nil || repo == nil {
		return errors.New("seed database handle and repository are required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txRepo := repo.WithTx(tx)

		count, err := txRepo.CountUsers(ctx)
		if err != nil {
			return fmt.Errorf("count users: %w", err)
		}
		if count > 0 {
			return nil
		}

		users, notes := buildDemoData(node, now)
		if err := txRepo.CreateUsers(ctx, users); err != nil {
			return fmt.Errorf("seed users: %w", err)
		}
		if err := txRepo.CreateNotes(ctx, notes); err != nil {
			return fmt.Errorf("seed notes: %w", err)
		}
		return nil
	})
}

// buildDemoData spreads each user's notes over the preceding days.
func buildDemoData(node *snowflake.Node, now time.Time) ([]domain.User, []domain.Note) {
	users := make([]domain.User, 0, len(demoUsers))
	notes := make([]domain.Note, 0)

	day := 0
	for _, u := range demoUsers {
		user := domain.User{Email: u.email}
		if u.organization != "" {
			name := u.organization
			user.OrganizationName = &name
		}
		users = append(users, user)

		for _, title := range u.notes {
			day++
			notes = append(notes, domain.Note{
				ID:          node.Generate().Int64(),
				Title:       title,
				Description: title + " for " + u.email,
				AuthorEmail: u.email,
				CreatedAt:   now.UTC().AddDate(0, 0, -day%5).Truncate(time.Second),
			})
		}
	}
	return users, notes
}
