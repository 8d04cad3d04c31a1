// Package bootstrap loads the seed document that populates subjects and
// events at startup.
//
// Document shape: a JSON object with a "profiles" sequence (subject
// records) and a "visits" sequence (raw visit records with ISO-8601
// timestamps for clock-in/out and scheduled start/end, free-form
// documentation text, and arbitrary additional fields).
package bootstrap

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/fieldworks/meritd/internal/types"
)

// Seed holds the parsed bootstrap document.
type Seed struct {
	Subjects []types.Subject
	Events   []types.Event
}

type document struct {
	Profiles []profile         `json:"profiles"`
	Visits   []json.RawMessage `json:"visits"`
}

type profile struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	PointBalance int    `json:"pointBalance"`
	Onboarded    bool   `json:"onboarded"`
}

// Load reads and parses the seed document at path.
// Each visit maps into one event: the event timestamp derives from the
// visit's createdAt, falling back to updatedAt, then to the current time;
// every other field passes through into metadata with RFC 3339 strings
// parsed into dates.
func Load(path string) (*Seed, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	return Parse(content)
}

// Parse parses a seed document from raw bytes.
func Parse(content []byte) (*Seed, error) {
	var doc document
	if err := json.Unmarshal(content, &doc); err != nil {
		return nil, fmt.Errorf("parse seed document: %w", err)
	}

	seed := &Seed{}

	for i, p := range doc.Profiles {
		if p.ID == "" || p.Name == "" {
			return nil, fmt.Errorf("profile %d: id and name required", i)
		}
		seed.Subjects = append(seed.Subjects, types.Subject{
			ID:           types.SubjectID(p.ID),
			Name:         p.Name,
			PointBalance: p.PointBalance,
			Onboarded:    p.Onboarded,
		})
	}

	for i, raw := range doc.Visits {
		event, err := visitToEvent(raw)
		if err != nil {
			return nil, fmt.Errorf("visit %d: %w", i, err)
		}
		seed.Events = append(seed.Events, event)
	}

	return seed, nil
}

// visitToEvent maps one raw visit record into an event.
func visitToEvent(raw json.RawMessage) (types.Event, error) {
	var meta types.Metadata
	if err := json.Unmarshal(raw, &meta); err != nil {
		return types.Event{}, err
	}

	event := types.Event{
		Type:     types.EventTypeVisit,
		Metadata: meta,
	}

	if id, ok := meta["id"].(string); ok && id != "" {
		event.ID = types.EventID(id)
	} else {
		event.ID = types.EventID(uuid.Must(uuid.NewV7()).String())
	}
	delete(meta, "id")

	for _, key := range []string{"subjectId", "employeeId", "profileId"} {
		if sid, ok := meta[key].(string); ok && sid != "" {
			event.SubjectID = types.SubjectID(sid)
			delete(meta, key)
			break
		}
	}

	event.Timestamp = visitTimestamp(meta)

	return event, nil
}

// visitTimestamp derives the event timestamp: createdAt, then updatedAt,
// then the current time. Both fields stay in metadata for rules that
// compare against them.
func visitTimestamp(meta types.Metadata) time.Time {
	if t, ok := meta["createdAt"].(time.Time); ok {
		return t
	}
	if t, ok := meta["updatedAt"].(time.Time); ok {
		return t
	}
	return time.Now().UTC()
}
