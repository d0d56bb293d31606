// Package domain contains the core data types for the travel journal.
// This package has no dependencies beyond the standard library and is
// imported by every other internal package (store, service, livesync,
// handler).
//
// JSON field names match the documents the legacy web client wrote, so a
// collection produced by either client deserializes cleanly in both.
package domain

import (
	"fmt"
	"strings"
)

// ActivityKind categorizes a single itinerary activity.
type ActivityKind string

// Activity kinds. "regret" marks a place the group decided was not worth it —
// kept so the journal remembers what to skip next time.
const (
	KindSpot   ActivityKind = "spot"
	KindFood   ActivityKind = "food"
	KindOther  ActivityKind = "other"
	KindRegret ActivityKind = "regret"
)

// Valid reports whether k is one of the known activity kinds.
func (k ActivityKind) Valid() bool {
	switch k {
	case KindSpot, KindFood, KindOther, KindRegret:
		return true
	}
	return false
}

// Review is one member's rating of an activity.
// An activity holds at most one review per distinct reviewer; saving a review
// under an existing reviewer name replaces that entry (see PutReview).
type Review struct {
	ID       string `json:"id"`
	Reviewer string `json:"reviewer"`
	Rating   int    `json:"rating"` // 0–5
	Comment  string `json:"comment"`
	Date     string `json:"date,omitempty"`
}

// Activity is a single sightseeing / food / other item within a day-entry.
// IDs are client-generated and never reused.
type Activity struct {
	ID      string       `json:"id"`
	Kind    ActivityKind `json:"type"`
	Title   string       `json:"title"`
	Reviews []Review     `json:"reviews"`
}

// Validate checks a review before it reaches an activity.
// Violations wrap ErrValidation.
func (r Review) Validate() error {
	if strings.TrimSpace(r.Reviewer) == "" {
		return fmt.Errorf("%w: reviewer is required", ErrValidation)
	}
	if r.Rating < 0 || r.Rating > 5 {
		return fmt.Errorf("%w: rating %d is outside 0-5", ErrValidation, r.Rating)
	}
	return nil
}

// PutReview upserts r into the activity's review list.
// If a review by the same reviewer already exists it is replaced in place
// (position preserved, the new rating and comment win); otherwise r is
// appended. This is the last-writer-wins rule for concurrent review edits.
func (a *Activity) PutReview(r Review) {
	for i := range a.Reviews {
		if a.Reviews[i].Reviewer == r.Reviewer {
			a.Reviews[i] = r
			return
		}
	}
	a.Reviews = append(a.Reviews, r)
}

// DayEntry is one calendar date's slot within a trip's itinerary.
type DayEntry struct {
	Date       Date       `json:"date"`
	Activities []Activity `json:"activities"`
}

// Note is a free-text thought attached to the trip as a whole rather than a
// specific day. CreatedAt is Unix milliseconds, matching the legacy documents.
type Note struct {
	ID        string `json:"id"`
	Author    string `json:"author"`
	Content   string `json:"content"`
	CreatedAt int64  `json:"createdAt"`
}

// DefaultMembers is the member list pre-selected on the creation form.
var DefaultMembers = []string{"Hugo", "仁駿", "Hiro"}

// Trip is the top-level journal aggregate: itinerary, expenses, notes, and
// photos for one journey. ID is opaque, assigned by the store on creation,
// and empty before the first save.
//
// Photos is the legacy inline photo list; newer photos live in standalone
// photo documents (see Photo) and the two tiers are merged for display by
// BuildGallery.
type Trip struct {
	ID            string     `json:"id,omitempty"`
	Title         string     `json:"title"`
	Location      string     `json:"location"`
	International bool       `json:"isInternational"`
	StartDate     Date       `json:"startDate"`
	EndDate       Date       `json:"endDate"`
	Members       []string   `json:"members"`
	Itinerary     []DayEntry `json:"itinerary"`
	Photos        []string   `json:"photos"`
	CoverImage    string     `json:"coverImage,omitempty"`
	Expenses      []Expense  `json:"expenses"`
	Notes         []Note     `json:"generalThoughts"`
}

// Validate checks the business rules that must hold before a trip reaches a
// store. All violations wrap ErrValidation.
func (t Trip) Validate() error {
	if strings.TrimSpace(t.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrValidation)
	}
	if t.StartDate.IsZero() || t.EndDate.IsZero() {
		return fmt.Errorf("%w: start and end dates are required", ErrValidation)
	}
	if t.StartDate.After(t.EndDate.Time) {
		return fmt.Errorf("%w: start date %s is after end date %s", ErrValidation, t.StartDate, t.EndDate)
	}
	for _, day := range t.Itinerary {
		for _, a := range day.Activities {
			if !a.Kind.Valid() {
				return fmt.Errorf("%w: unknown activity kind %q", ErrValidation, a.Kind)
			}
		}
	}
	for _, e := range t.Expenses {
		if err := e.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Activity looks up an activity by id across the whole itinerary.
// Returns the day index, a pointer into the itinerary, and ok.
func (t *Trip) Activity(activityID string) (dayIndex int, activity *Activity, ok bool) {
	for di := range t.Itinerary {
		for ai := range t.Itinerary[di].Activities {
			if t.Itinerary[di].Activities[ai].ID == activityID {
				return di, &t.Itinerary[di].Activities[ai], true
			}
		}
	}
	return 0, nil, false
}

// RebuildItinerary regenerates the day-entry list for a new date range.
// Entries whose date falls inside the new range are preserved together with
// their activities; dates new to the range get an empty activity list;
// entries outside the range are dropped. The result always covers the
// inclusive range exactly, ascending, with no gaps or duplicates.
//
// Matching is by calendar date, not position, so extending a trip at the
// front does not shift every day's plan by one.
func RebuildItinerary(existing []DayEntry, start, end Date) []DayEntry {
	byDate := make(map[string]DayEntry, len(existing))
	for _, day := range existing {
		byDate[day.Date.String()] = day
	}

	dates := DateRange(start, end)
	rebuilt := make([]DayEntry, 0, len(dates))
	for _, date := range dates {
		if day, ok := byDate[date.String()]; ok {
			rebuilt = append(rebuilt, day)
			continue
		}
		rebuilt = append(rebuilt, DayEntry{Date: date, Activities: []Activity{}})
	}
	return rebuilt
}
