package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/fieldworks/meritd/internal/rules"
	"github.com/fieldworks/meritd/internal/types"
)

/*
 * SQL-backed registry and ledger.
 *
 * Store satisfies the same contracts as the in-memory registry and ledger
 * (ingest.RuleSource, ingest.Ledger), so the pipeline runs unchanged over
 * either backend. Condition trees persist as tagged JSON in the rules
 * table; timestamps persist as RFC 3339 text for SQLite compatibility.
 *
 * Grant dedup: the grants table carries a unique index on (rule_id,
 * event_id). RecordGrant inserts the grant and increments the subject
 * balance inside one transaction; a uniqueness violation rolls the whole
 * transaction back and surfaces types.ErrDuplicateGrant, so the invariant
 * holds even across processes where the in-memory keyed mutex cannot reach.
 *
 * Rule ordering: rule ids are UUIDv7, so ORDER BY rule_id is creation
 * order. Replace keeps the id and therefore the slot.
 */

// Store is the sqlx-backed registry and ledger.
type Store struct {
	db      *sqlx.DB
	queries *Queries
}

// NewStore wraps an open database with loaded named queries.
func NewStore(database *sqlx.DB) (*Store, error) {
	queries, err := LoadQueries(database)
	if err != nil {
		return nil, err
	}
	return &Store{db: database, queries: queries}, nil
}

type subjectRow struct {
	SubjectID    string `db:"subject_id"`
	Name         string `db:"name"`
	PointBalance int    `db:"point_balance"`
	Onboarded    bool   `db:"onboarded"`
}

type ruleRow struct {
	RuleID    string `db:"rule_id"`
	Name      string `db:"name"`
	EventType string `db:"event_type"`
	Condition string `db:"condition"`
	Points    int    `db:"points"`
	CreatedAt string `db:"created_at"`
}

type grantRow struct {
	GrantID   string `db:"grant_id"`
	RuleID    string `db:"rule_id"`
	EventID   string `db:"event_id"`
	SubjectID string `db:"subject_id"`
	Points    int    `db:"points"`
	GrantedAt string `db:"granted_at"`
}

// UpsertSubject inserts or updates a subject record, typically from the
// bootstrap loader.
func (s *Store) UpsertSubject(ctx context.Context, subject types.Subject) error {
	_, err := s.queries.Exec("upsert-subject",
		string(subject.ID), subject.Name, subject.PointBalance, subject.Onboarded)
	if err != nil {
		return fmt.Errorf("upsert subject %s: %w", subject.ID, err)
	}
	return nil
}

// GetSubject returns the subject with the given id.
func (s *Store) GetSubject(ctx context.Context, id types.SubjectID) (types.Subject, error) {
	var row subjectRow
	err := s.queries.Get("get-subject", &row, string(id))
	if err == sql.ErrNoRows {
		return types.Subject{}, types.ErrSubjectNotFound
	}
	if err != nil {
		return types.Subject{}, fmt.Errorf("get subject %s: %w", id, err)
	}
	return types.Subject{
		ID:           types.SubjectID(row.SubjectID),
		Name:         row.Name,
		PointBalance: row.PointBalance,
		Onboarded:    row.Onboarded,
	}, nil
}

// List returns all rules in creation order.
func (s *Store) List(ctx context.Context) ([]types.Rule, error) {
	var rows []ruleRow
	if err := s.queries.Select("list-rules", &rows); err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}
	return rowsToRules(rows)
}

// ListByEventType returns rules scoped to eventType, in creation order.
func (s *Store) ListByEventType(ctx context.Context, eventType string) ([]types.Rule, error) {
	var rows []ruleRow
	if err := s.queries.Select("list-rules-by-event-type", &rows, eventType); err != nil {
		return nil, fmt.Errorf("list rules for %q: %w", eventType, err)
	}
	return rowsToRules(rows)
}

// Get returns the rule with the given id.
func (s *Store) Get(ctx context.Context, id types.RuleID) (types.Rule, error) {
	var row ruleRow
	err := s.queries.Get("get-rule", &row, string(id))
	if err == sql.ErrNoRows {
		return types.Rule{}, types.ErrRuleNotFound
	}
	if err != nil {
		return types.Rule{}, fmt.Errorf("get rule %s: %w", id, err)
	}
	return rowToRule(row)
}

// Create validates the payload and stores a new rule under a fresh id.
func (s *Store) Create(ctx context.Context, name, eventType string, cond types.Condition, points int) (types.Rule, error) {
	if err := rules.ValidateRule(name, eventType, cond, points); err != nil {
		return types.Rule{}, err
	}

	rule := types.Rule{
		ID:        types.NewRuleID(),
		Name:      name,
		EventType: eventType,
		Condition: cond,
		Points:    points,
	}
	condJSON, err := json.Marshal(cond)
	if err != nil {
		return types.Rule{}, fmt.Errorf("encode condition: %w", err)
	}

	_, err = s.queries.Exec("insert-rule",
		string(rule.ID), rule.Name, rule.EventType, string(condJSON), rule.Points,
		time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return types.Rule{}, fmt.Errorf("insert rule: %w", err)
	}
	return rule, nil
}

// Replace swaps the whole rule under an existing id.
func (s *Store) Replace(ctx context.Context, id types.RuleID, name, eventType string, cond types.Condition, points int) (types.Rule, error) {
	if err := rules.ValidateRule(name, eventType, cond, points); err != nil {
		return types.Rule{}, err
	}

	condJSON, err := json.Marshal(cond)
	if err != nil {
		return types.Rule{}, fmt.Errorf("encode condition: %w", err)
	}

	res, err := s.queries.Exec("replace-rule",
		name, eventType, string(condJSON), points, string(id))
	if err != nil {
		return types.Rule{}, fmt.Errorf("replace rule %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return types.Rule{}, fmt.Errorf("replace rule %s: %w", id, err)
	}
	if affected == 0 {
		return types.Rule{}, types.ErrRuleNotFound
	}

	return types.Rule{
		ID:        id,
		Name:      name,
		EventType: eventType,
		Condition: cond,
		Points:    points,
	}, nil
}

// Delete removes the rule with the given id.
func (s *Store) Delete(ctx context.Context, id types.RuleID) error {
	res, err := s.queries.Exec("delete-rule", string(id))
	if err != nil {
		return fmt.Errorf("delete rule %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete rule %s: %w", id, err)
	}
	if affected == 0 {
		return types.ErrRuleNotFound
	}
	return nil
}

// GrantExists reports whether a grant was already recorded for the pair.
func (s *Store) GrantExists(ctx context.Context, ruleID types.RuleID, eventID types.EventID) (bool, error) {
	var count int
	err := s.queries.Get("grant-exists", &count, string(ruleID), string(eventID))
	if err != nil {
		return false, fmt.Errorf("check grant: %w", err)
	}
	return count > 0, nil
}

// RecordGrant appends a grant and increments the subject balance in one
// transaction. The unique index on (rule_id, event_id) enforces the dedup
// invariant; a violation rolls everything back and returns
// types.ErrDuplicateGrant.
func (s *Store) RecordGrant(ctx context.Context, ruleID types.RuleID, eventID types.EventID, subjectID types.SubjectID, points int) (types.Grant, error) {
	insertSQL, err := s.queries.Raw("insert-grant")
	if err != nil {
		return types.Grant{}, err
	}
	incrementSQL, err := s.queries.Raw("increment-balance")
	if err != nil {
		return types.Grant{}, err
	}

	grant := types.Grant{
		ID:        types.NewGrantID(),
		RuleID:    ruleID,
		EventID:   eventID,
		SubjectID: subjectID,
		Points:    points,
		Timestamp: time.Now().UTC(),
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return types.Grant{}, fmt.Errorf("begin grant transaction: %w", err)
	}

	_, err = tx.ExecContext(ctx, tx.Rebind(insertSQL),
		string(grant.ID), string(grant.RuleID), string(grant.EventID),
		string(grant.SubjectID), grant.Points, grant.Timestamp.Format(time.RFC3339))
	if err != nil {
		tx.Rollback()
		if isUniqueViolation(err) {
			return types.Grant{}, types.ErrDuplicateGrant
		}
		return types.Grant{}, fmt.Errorf("insert grant: %w", err)
	}

	res, err := tx.ExecContext(ctx, tx.Rebind(incrementSQL), points, string(subjectID))
	if err != nil {
		tx.Rollback()
		return types.Grant{}, fmt.Errorf("increment balance: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		tx.Rollback()
		return types.Grant{}, fmt.Errorf("increment balance: %w", err)
	}
	if affected == 0 {
		tx.Rollback()
		return types.Grant{}, types.ErrSubjectNotFound
	}

	if err := tx.Commit(); err != nil {
		return types.Grant{}, fmt.Errorf("commit grant: %w", err)
	}
	return grant, nil
}

// GrantsForSubject returns all grants for a subject in creation order.
func (s *Store) GrantsForSubject(ctx context.Context, subjectID types.SubjectID) ([]types.Grant, error) {
	var rows []grantRow
	if err := s.queries.Select("list-grants-for-subject", &rows, string(subjectID)); err != nil {
		return nil, fmt.Errorf("list grants: %w", err)
	}
	out := make([]types.Grant, 0, len(rows))
	for _, row := range rows {
		ts, _ := time.Parse(time.RFC3339, row.GrantedAt)
		out = append(out, types.Grant{
			ID:        types.GrantID(row.GrantID),
			RuleID:    types.RuleID(row.RuleID),
			EventID:   types.EventID(row.EventID),
			SubjectID: types.SubjectID(row.SubjectID),
			Points:    row.Points,
			Timestamp: ts,
		})
	}
	return out, nil
}

// RecordEvent persists an ingested event for audit. Duplicate deliveries
// of the same event id are ignored.
func (s *Store) RecordEvent(ctx context.Context, event *types.Event) error {
	metaJSON, err := json.Marshal(event.Metadata)
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	_, err = s.queries.Exec("insert-event",
		string(event.ID), string(event.SubjectID), event.Type,
		event.Timestamp.UTC().Format(time.RFC3339), string(metaJSON))
	if err != nil {
		return fmt.Errorf("insert event %s: %w", event.ID, err)
	}
	return nil
}

func rowsToRules(rows []ruleRow) ([]types.Rule, error) {
	out := make([]types.Rule, 0, len(rows))
	for _, row := range rows {
		rule, err := rowToRule(row)
		if err != nil {
			// Skip malformed rule - continue processing others
			continue
		}
		out = append(out, rule)
	}
	return out, nil
}

func rowToRule(row ruleRow) (types.Rule, error) {
	cond, err := types.DecodeCondition([]byte(row.Condition))
	if err != nil {
		return types.Rule{}, fmt.Errorf("decode condition for rule %s: %w", row.RuleID, err)
	}
	return types.Rule{
		ID:        types.RuleID(row.RuleID),
		Name:      row.Name,
		EventType: row.EventType,
		Condition: cond,
		Points:    row.Points,
	}, nil
}

// isUniqueViolation detects unique index violations for both drivers.
// go-sqlite3 reports "UNIQUE constraint failed", lib/pq "duplicate key".
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key")
}
