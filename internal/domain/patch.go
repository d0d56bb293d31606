package domain

// TripPatch is a typed partial update for a trip. Each field is a pointer:
// nil means "leave the stored value alone", non-nil means "write this value".
//
// This replaces the legacy client's habit of spreading arbitrary partial
// objects into store updates. Fields() is the single sanitize pass — a store
// backend only ever sees the present fields, so no "undefined" value can
// reach a store that rejects them.
type TripPatch struct {
	Title         *string
	Location      *string
	International *bool
	StartDate     *Date
	EndDate       *Date
	Members       *[]string
	Itinerary     *[]DayEntry
	Photos        *[]string
	CoverImage    *string // pointer to "" clears the explicit cover
	Expenses      *[]Expense
	Notes         *[]Note
}

// IsZero reports whether the patch carries no fields at all.
func (p TripPatch) IsZero() bool {
	return p.Title == nil && p.Location == nil && p.International == nil &&
		p.StartDate == nil && p.EndDate == nil && p.Members == nil &&
		p.Itinerary == nil && p.Photos == nil && p.CoverImage == nil &&
		p.Expenses == nil && p.Notes == nil
}

// Fields returns only the present fields, keyed by wire name, ready for a
// document merge. Absent fields never appear in the map.
func (p TripPatch) Fields() map[string]any {
	fields := make(map[string]any)
	if p.Title != nil {
		fields["title"] = *p.Title
	}
	if p.Location != nil {
		fields["location"] = *p.Location
	}
	if p.International != nil {
		fields["isInternational"] = *p.International
	}
	if p.StartDate != nil {
		fields["startDate"] = p.StartDate.String()
	}
	if p.EndDate != nil {
		fields["endDate"] = p.EndDate.String()
	}
	if p.Members != nil {
		fields["members"] = *p.Members
	}
	if p.Itinerary != nil {
		fields["itinerary"] = *p.Itinerary
	}
	if p.Photos != nil {
		fields["photos"] = *p.Photos
	}
	if p.CoverImage != nil {
		fields["coverImage"] = *p.CoverImage
	}
	if p.Expenses != nil {
		fields["expenses"] = *p.Expenses
	}
	if p.Notes != nil {
		fields["generalThoughts"] = *p.Notes
	}
	return fields
}

// Apply merges the patch into a copy of t and returns it. Store backends that
// hold whole documents (memory, Postgres JSONB) use this to implement the
// full-document merge; t itself is not modified.
func (p TripPatch) Apply(t Trip) Trip {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Location != nil {
		t.Location = *p.Location
	}
	if p.International != nil {
		t.International = *p.International
	}
	if p.StartDate != nil {
		t.StartDate = *p.StartDate
	}
	if p.EndDate != nil {
		t.EndDate = *p.EndDate
	}
	if p.Members != nil {
		t.Members = *p.Members
	}
	if p.Itinerary != nil {
		t.Itinerary = *p.Itinerary
	}
	if p.Photos != nil {
		t.Photos = *p.Photos
	}
	if p.CoverImage != nil {
		t.CoverImage = *p.CoverImage
	}
	if p.Expenses != nil {
		t.Expenses = *p.Expenses
	}
	if p.Notes != nil {
		t.Notes = *p.Notes
	}
	return t
}
