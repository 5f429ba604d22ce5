// Package inbox unifies open feedback objects from every origin into a
// single prioritized work surface, records morning briefing reviews,
// and answers the automation gate. Items carry forward until their
// lifecycle ends, so yesterday's unresolved critical shows up today.
package inbox

import (
	"time"

	"github.com/google/uuid"

	"github.com/backofhouse/steward/internal/enforcement"
)

// Query narrows the inbox. A venue query also includes tenant-wide
// items (nil venue); From and To bound the business date.
type Query struct {
	VenueID *uuid.UUID `json:"venue_id,omitempty"`
	From    *time.Time `json:"from,omitempty"`
	To      *time.Time `json:"to,omitempty"`
}

// Item is one open feedback object in inbox shape. The full object and
// its history stay behind the feedback endpoints.
type Item struct {
	ID               uuid.UUID                `json:"id"`
	VenueID          *uuid.UUID               `json:"venue_id,omitempty"`
	BusinessDate     time.Time                `json:"business_date"`
	Domain           enforcement.Domain       `json:"domain"`
	Origin           enforcement.Origin       `json:"origin"`
	SignalType       string                   `json:"signal_type"`
	Title            string                   `json:"title"`
	Severity         enforcement.Severity     `json:"severity"`
	OwnerRole        enforcement.Role         `json:"owner_role"`
	ResponseRequired enforcement.ResponseType `json:"response_required"`
	Status           enforcement.Status       `json:"status"`
	DueAt            time.Time                `json:"due_at"`
	CreatedAt        time.Time                `json:"created_at"`
}

// Counts summarizes the items in view. DueSoon includes items already
// past due.
type Counts struct {
	Open      int `json:"open"`
	Critical  int `json:"critical"`
	Escalated int `json:"escalated"`
	DueSoon   int `json:"due_soon"`
}

// View is the assembled inbox: items ordered by severity rank then
// age, oldest first within a severity.
type View struct {
	Items  []Item `json:"items"`
	Counts Counts `json:"counts"`
}

// ReviewCommand records that a manager reviewed a venue's briefing for
// a business date. Force replaces an existing review with a fresh
// snapshot.
type ReviewCommand struct {
	VenueID      uuid.UUID `json:"venue_id"`
	BusinessDate time.Time `json:"business_date"`
	Force        bool      `json:"force,omitempty"`
}

// Briefing is the recorded review of a venue's inbox for one business
// date: who reviewed it, when, and the counts frozen at review time.
type Briefing struct {
	ID             uuid.UUID                  `json:"id"`
	TenantID       uuid.UUID                  `json:"tenant_id"`
	VenueID        uuid.UUID                  `json:"venue_id"`
	BusinessDate   time.Time                  `json:"business_date"`
	ReviewedBy     string                     `json:"reviewed_by"`
	ReviewedAt     time.Time                  `json:"reviewed_at"`
	OpenCount      int                        `json:"open_count"`
	CriticalCount  int                        `json:"critical_count"`
	EscalatedCount int                        `json:"escalated_count"`
	Snapshot       map[enforcement.Domain]int `json:"snapshot"`
	ArchiveKey     *string                    `json:"archive_key,omitempty"`
}

// dueSoonWindow is how far ahead of due_at an item counts as due soon.
const dueSoonWindow = 24 * time.Hour

// deriveCounts folds the summary counters from the items in view.
func deriveCounts(items []Item, asOf time.Time) Counts {
	counts := Counts{Open: len(items)}
	horizon := asOf.Add(dueSoonWindow)

	for _, item := range items {
		if item.Severity == enforcement.SeverityCritical {
			counts.Critical++
		}
		if item.Status == enforcement.StatusEscalated {
			counts.Escalated++
		}
		if !item.DueAt.After(horizon) {
			counts.DueSoon++
		}
	}
	return counts
}
