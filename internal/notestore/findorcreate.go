package notestore

import (
	"fmt"
	"log"
)

// FindOrCreate looks a note up by exact title and creates it when absent.
// created reports which branch was taken; "not found" is an expected
// outcome, not an error.
func FindOrCreate(c Client, title, body, parentID string) (ref NoteRef, created bool, err error) {
	matches, err := c.SearchNotesByTitle(title)
	if err != nil {
		return NoteRef{}, false, fmt.Errorf("failed to search for %q: %w", title, err)
	}
	for _, m := range matches {
		if m.Title == title {
			return m, false, nil
		}
	}

	id, err := c.CreateNote(title, body, parentID)
	if err != nil {
		return NoteRef{}, false, fmt.Errorf("failed to create %q: %w", title, err)
	}
	log.Printf("[NoteStore] Created note %q (id=%s)", title, id)
	return NoteRef{ID: id, Title: title}, true, nil
}
