package domain

import (
	"fmt"
	"sort"
)

// Photo is a standalone photo document owned by a trip. It is never updated
// in place: photos are created by an upload and deleted individually or when
// the owning trip is deleted. CreatedAt is Unix milliseconds.
//
// New photos live here rather than on the trip record so a trip with many
// photos does not blow past the store's per-document size limit.
type Photo struct {
	ID        string `json:"id,omitempty"`
	TripID    string `json:"recordId"`
	Payload   string `json:"base64"`
	CreatedAt int64  `json:"createdAt"`
}

// GallerySource tags which storage tier a gallery entry came from.
type GallerySource string

// Gallery entry sources.
const (
	SourceLegacy   GallerySource = "legacy"   // inline trip.Photos element
	SourceDocument GallerySource = "document" // standalone Photo document
)

// GalleryEntry is one element of the combined display sequence. The tag plus
// tier-specific address is computed once when the gallery is built, so a
// delete never has to reverse-engineer which tier a flat index belonged to.
type GalleryEntry struct {
	Source GallerySource

	// LegacyIndex addresses trip.Photos; only meaningful for SourceLegacy.
	LegacyIndex int

	// PhotoID addresses the photo document; only meaningful for SourceDocument.
	PhotoID string

	Payload string
}

// BuildGallery merges a trip's inline legacy photos with its photo documents
// into the combined display sequence: legacy entries first in stored order,
// then documents in ascending creation-time order. Document ordering is
// established here, not by the store, so it is independent of delivery order;
// creation-time ties break on ID to keep repeated builds identical.
//
// The inputs are not modified.
func BuildGallery(legacy []string, docs []Photo) []GalleryEntry {
	entries := make([]GalleryEntry, 0, len(legacy)+len(docs))
	for i, payload := range legacy {
		entries = append(entries, GalleryEntry{
			Source:      SourceLegacy,
			LegacyIndex: i,
			Payload:     payload,
		})
	}

	sorted := make([]Photo, len(docs))
	copy(sorted, docs)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].CreatedAt != sorted[j].CreatedAt {
			return sorted[i].CreatedAt < sorted[j].CreatedAt
		}
		return sorted[i].ID < sorted[j].ID
	})
	for _, p := range sorted {
		entries = append(entries, GalleryEntry{
			Source:  SourceDocument,
			PhotoID: p.ID,
			Payload: p.Payload,
		})
	}
	return entries
}

// GalleryEntryAt returns the entry at combined position i.
// Indices shift whenever the combined list changes, so callers must rebuild
// the gallery and call this again before every positional operation.
func GalleryEntryAt(gallery []GalleryEntry, i int) (GalleryEntry, error) {
	if i < 0 || i >= len(gallery) {
		return GalleryEntry{}, fmt.Errorf("domain.GalleryEntryAt: index %d of %d: %w", i, len(gallery), ErrNotFound)
	}
	return gallery[i], nil
}

// ResolveCover picks the single photo representing the trip in summary views
// under the three-tier fallback: the explicit cover if set, otherwise the
// first entry of the combined gallery, otherwise nothing (ok=false; rendering
// a placeholder is the client's concern).
//
// The explicit cover is a payload, not a reference, so adding or removing
// unrelated photos in either tier never changes a custom cover.
func ResolveCover(t Trip, gallery []GalleryEntry) (payload string, ok bool) {
	if t.CoverImage != "" {
		return t.CoverImage, true
	}
	if len(gallery) > 0 {
		return gallery[0].Payload, true
	}
	return "", false
}
