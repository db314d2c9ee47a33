package domain

import (
	"context"
	"errors"
)

// MembershipResolver maps a user email to its organization name.
type MembershipResolver interface {
	Resolve(ctx context.Context, email string) (string, bool)
}

// RosterBuilder enumerates organizations with member and note counts.
// A nil currentUserOrg marks no entry as the caller's organization.
type RosterBuilder interface {
	BuildRoster(ctx context.Context, currentUserOrg *string) []Organization
}

// DetailLoader fetches the member and note breakdown of one organization.
type DetailLoader interface {
	LoadDetail(ctx context.Context, organizationName string) OrganizationDetail
}

// NoteFeed loads the note list visible to a user.
type NoteFeed interface {
	VisibleNotes(ctx context.Context, email string, organizationName *string) []Note
}

type ChartProjector interface {
	Project(detail *OrganizationDetail, notes []Note) ChartSeries
}

var (
	ErrUserNotFound        = errors.New("user_not_found")
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidEmail        = errors.New("invalid_email")
	ErrSessionNotFound     = errors.New("session_not_found")
)
