// Package domain contains the models and contracts of the organization aggregation engine.
package domain

import "time"

// User is a row of the externally owned `user` relation.
// OrganizationName is free text; nil means the user belongs to no organization.
type User struct {
	Email            string  `gorm:"column:email;primaryKey" json:"email"`
	OrganizationName *string `gorm:"column:name" json:"organization_name"`
}

// TableName sets the database table name.
func (User) TableName() string { return "user" }

// Note is a row of the externally owned `list` relation.
// AuthorEmail is a soft reference to User.Email.
type Note struct {
	ID          int64     `gorm:"column:id;primaryKey;autoIncrement:false" json:"id"`
	Title       string    `gorm:"column:title" json:"title"`
	Description string    `gorm:"column:description" json:"description"`
	AuthorEmail string    `gorm:"column:email;index" json:"author_email"`
	CreatedAt   time.Time `gorm:"column:created_at" json:"created_at"`
}

// TableName sets the database table name.
func (Note) TableName() string { return "list" }

// Organization is a roster entry derived from grouping users by name.
type Organization struct {
	Name             string `json:"name"`
	Slug             string `json:"slug"`
	MemberCount      int    `json:"member_count"`
	NoteCount        int    `json:"note_count"`
	IsCurrentUserOrg bool   `json:"is_current_user_org"`
}

// OrganizationDetail is the lazily populated member and note breakdown of one organization.
type OrganizationDetail struct {
	OrganizationName string    `json:"organization_name"`
	Members          []Member  `json:"members"`
	LoadedAt         time.Time `json:"loaded_at"`
}

type Member struct {
	Email string        `json:"email"`
	Notes []NoteSummary `json:"notes"`
}

type NoteSummary struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
}

// ChartSeries is the render-ready projection of a detail and a note list.
type ChartSeries struct {
	Categorical []CategoryPoint `json:"categorical"`
	TimeSeries  []TimePoint     `json:"time_series"`
}

type CategoryPoint struct {
	Label string `json:"label"`
	Value int    `json:"value"`
}

type TimePoint struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// SummarizeNote drops the fields a detail does not carry.
func SummarizeNote(n Note) NoteSummary {
	return NoteSummary{ID: n.ID, Title: n.Title, CreatedAt: n.CreatedAt}
}
