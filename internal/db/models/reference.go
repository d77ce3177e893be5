package models

import (
	"slices"
	"time"

	"github.com/uptrace/bun"
)

// ReferenceData holds the columns shared by departments and positions.
type ReferenceData struct {
	ID          int64     `bun:"id,pk,autoincrement" json:"id"`
	Name        string    `bun:"name,notnull,unique,type:varchar(100)" json:"name"`
	Description *string   `bun:"description" json:"description,omitempty"`
	Category    string    `bun:"category,notnull" json:"category"`
	IsActive    bool      `bun:"is_active,notnull" json:"isActive"`
	CreatedAt   time.Time `bun:"created_at,notnull,default:current_timestamp" json:"createdAt"`
	UpdatedAt   time.Time `bun:"updated_at,notnull,default:current_timestamp" json:"updatedAt"`
}

// Ref gives generic code access to the shared columns.
func (r *ReferenceData) Ref() *ReferenceData { return r }

// Department is an organizational unit accounts can be tagged with.
type Department struct {
	bun.BaseModel `bun:"table:departments,alias:d"`
	ReferenceData
}

// Position is a job title accounts can be tagged with.
type Position struct {
	bun.BaseModel `bun:"table:positions,alias:p"`
	ReferenceData
}

// ReferenceKind describes one reference table.
type ReferenceKind struct {
	Name            string // "Department", "Position"
	Categories      []string
	DefaultCategory string
}

// ValidCategory reports whether c is allowed for the kind.
func (k ReferenceKind) ValidCategory(c string) bool {
	return slices.Contains(k.Categories, c)
}

var (
	DepartmentKind = ReferenceKind{
		Name:            "Department",
		Categories:      []string{"academic", "administrative", "support"},
		DefaultCategory: "academic",
	}
	PositionKind = ReferenceKind{
		Name:            "Position",
		Categories:      []string{"teaching", "administrative", "support"},
		DefaultCategory: "teaching",
	}
)

// MaxReferenceNameLength bounds department and position names.
const MaxReferenceNameLength = 100
