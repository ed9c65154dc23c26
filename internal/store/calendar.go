package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/worldcal/internal/ir"
	"github.com/roach88/worldcal/internal/position"
)

// ErrNotFound is returned when a calendar, unit or relation does not exist.
var ErrNotFound = ir.ErrCalendarNotFound

// Append places a relation after all of its siblings.
const Append = -1

// CalendarInfo summarizes a stored calendar.
type CalendarInfo struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Origin  int64  `json:"origin"`
	Version int64  `json:"version"`
}

// RelationInput describes a relation to add under a parent unit.
type RelationInput struct {
	Parent     ir.UnitID
	Child      ir.UnitID
	Repeats    int64
	Label      *string
	ShortLabel *string
}

// CreateCalendar inserts an empty calendar and returns its id.
func (s *Store) CreateCalendar(ctx context.Context, name string, origin int64) (string, error) {
	if !ir.InBounds(origin) {
		return "", fmt.Errorf("create calendar: origin %d outside ±%d", origin, ir.TimestampBound)
	}
	id := s.newID()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO calendars (id, name, origin, version) VALUES (?, ?, ?, 1)
	`, id, name, origin)
	if err != nil {
		return "", fmt.Errorf("create calendar: %w", err)
	}
	return id, nil
}

// ListCalendars returns every calendar ordered by name, then id.
// Returns an empty slice (not nil) if the store is empty.
func (s *Store) ListCalendars(ctx context.Context) ([]CalendarInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, origin, version
		FROM calendars
		ORDER BY name ASC, id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query calendars: %w", err)
	}
	defer rows.Close()

	infos := []CalendarInfo{}
	for rows.Next() {
		var info CalendarInfo
		if err := rows.Scan(&info.ID, &info.Name, &info.Origin, &info.Version); err != nil {
			return nil, fmt.Errorf("scan calendar: %w", err)
		}
		infos = append(infos, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate calendars: %w", err)
	}
	return infos, nil
}

// DeleteCalendar removes a calendar and everything it owns.
func (s *Store) DeleteCalendar(ctx context.Context, id string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		// Units, relations, presentations and bindings cascade.
		res, err := tx.ExecContext(ctx, `DELETE FROM calendars WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete calendar: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("delete calendar %s: %w", id, ErrNotFound)
		}
		return nil
	})
}

// SetOrigin moves the calendar's tick 0.
func (s *Store) SetOrigin(ctx context.Context, calID string, origin int64) error {
	if !ir.InBounds(origin) {
		return fmt.Errorf("set origin: %d outside ±%d", origin, ir.TimestampBound)
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := bump(ctx, tx, calID); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `UPDATE calendars SET origin = ? WHERE id = ?`, origin, calID)
		if err != nil {
			return fmt.Errorf("set origin: %w", err)
		}
		return nil
	})
}

// AddUnit inserts a unit and returns its id. A unit without an id gets a
// fresh UUIDv7.
func (s *Store) AddUnit(ctx context.Context, calID string, u ir.Unit) (ir.UnitID, error) {
	if u.ID == "" {
		u.ID = ir.UnitID(s.newID())
	}
	if u.Format == "" {
		u.Format = ir.FormatNumeric
	}
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := bump(ctx, tx, calID); err != nil {
			return err
		}
		return insertUnit(ctx, tx, calID, u)
	})
	if err != nil {
		return "", err
	}
	return u.ID, nil
}

// UpdateUnit replaces a unit's attributes.
func (s *Store) UpdateUnit(ctx context.Context, calID string, u ir.Unit) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := bump(ctx, tx, calID); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `
			UPDATE units
			SET name = ?, short_name = ?, display_name = ?, format = ?, pad = ?, base = ?, span = ?
			WHERE calendar_id = ? AND id = ?
		`, u.Name, u.ShortName, u.DisplayName, string(u.Format), u.Pad, u.Base, u.Span, calID, string(u.ID))
		if err != nil {
			return fmt.Errorf("update unit: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("update unit %s: %w", u.ID, ErrNotFound)
		}
		return nil
	})
}

// RemoveUnit deletes a unit and every relation it takes part in.
// Presentation bindings that name the unit are kept; formatting skips them.
func (s *Store) RemoveUnit(ctx context.Context, calID string, unitID ir.UnitID) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := bump(ctx, tx, calID); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `
			DELETE FROM units WHERE calendar_id = ? AND id = ?
		`, calID, string(unitID))
		if err != nil {
			return fmt.Errorf("remove unit: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("remove unit %s: %w", unitID, ErrNotFound)
		}
		return nil
	})
}

// AddRelation inserts a relation at index among the parent's existing
// children (Append or an out-of-range index appends). A position is
// allocated between the neighbours; when none is free the siblings are
// resequenced within the same transaction.
func (s *Store) AddRelation(ctx context.Context, calID string, in RelationInput, index int) (ir.ChildRelation, error) {
	if in.Repeats < 1 {
		return ir.ChildRelation{}, fmt.Errorf("add relation: repeats must be >= 1, got %d", in.Repeats)
	}

	rel := ir.ChildRelation{
		ID:         s.newID(),
		Parent:     in.Parent,
		Child:      in.Child,
		Repeats:    in.Repeats,
		Label:      in.Label,
		ShortLabel: in.ShortLabel,
	}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := bump(ctx, tx, calID); err != nil {
			return err
		}
		sibs, err := siblings(ctx, tx, calID, in.Parent)
		if err != nil {
			return err
		}
		if index < 0 || index > len(sibs) {
			index = len(sibs)
		}

		pos, updated, resequenced := position.InsertAt(sibs.positions(), index)
		if resequenced {
			for i, sb := range sibs {
				j := i
				if i >= index {
					j = i + 1
				}
				if err := setPosition(ctx, tx, sb.id, updated[j]); err != nil {
					return err
				}
			}
		}
		rel.Position = pos
		return insertRelation(ctx, tx, calID, rel)
	})
	if err != nil {
		return ir.ChildRelation{}, err
	}
	return rel, nil
}

// MoveRelation reorders a relation so it ends up at index among its
// siblings.
func (s *Store) MoveRelation(ctx context.Context, calID, relID string, index int) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := bump(ctx, tx, calID); err != nil {
			return err
		}

		var parent string
		err := tx.QueryRowContext(ctx, `
			SELECT parent_id FROM relations WHERE calendar_id = ? AND id = ?
		`, calID, relID).Scan(&parent)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("move relation %s: %w", relID, ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("move relation: %w", err)
		}

		sibs, err := siblings(ctx, tx, calID, ir.UnitID(parent))
		if err != nil {
			return err
		}
		from := sibs.indexOf(relID)
		if index < 0 || index >= len(sibs) {
			index = len(sibs) - 1
		}
		if from == index {
			return nil
		}

		pos, updated, resequenced := position.Move(sibs.positions(), from, index)
		if resequenced {
			rest := append(append(siblingList(nil), sibs[:from]...), sibs[from+1:]...)
			for i, sb := range rest {
				j := i
				if i >= index {
					j = i + 1
				}
				if err := setPosition(ctx, tx, sb.id, updated[j]); err != nil {
					return err
				}
			}
		}
		return setPosition(ctx, tx, relID, pos)
	})
}

// RemoveRelation deletes a relation.
func (s *Store) RemoveRelation(ctx context.Context, calID, relID string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := bump(ctx, tx, calID); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `
			DELETE FROM relations WHERE calendar_id = ? AND id = ?
		`, calID, relID)
		if err != nil {
			return fmt.Errorf("remove relation: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("remove relation %s: %w", relID, ErrNotFound)
		}
		return nil
	})
}

// AddPresentation appends a presentation and returns its id.
func (s *Store) AddPresentation(ctx context.Context, calID string, p ir.Presentation) (string, error) {
	if p.ID == "" {
		p.ID = s.newID()
	}
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := bump(ctx, tx, calID); err != nil {
			return err
		}
		var seq int
		if err := tx.QueryRowContext(ctx, `
			SELECT COUNT(*) FROM presentations WHERE calendar_id = ?
		`, calID).Scan(&seq); err != nil {
			return fmt.Errorf("count presentations: %w", err)
		}
		return insertPresentation(ctx, tx, calID, p, seq)
	})
	if err != nil {
		return "", err
	}
	return p.ID, nil
}

// ImportCalendar stores a complete calendar, typically a template, under a
// fresh id. Unit ids are kept; relations get new ids and positions
// resequenced to index*Gap per parent in their original order.
func (s *Store) ImportCalendar(ctx context.Context, cal ir.Calendar) (string, error) {
	if !ir.InBounds(cal.Origin) {
		return "", fmt.Errorf("import calendar: origin %d outside ±%d", cal.Origin, ir.TimestampBound)
	}
	cal = ir.Normalize(cal)
	id := s.newID()

	relations := append([]ir.ChildRelation(nil), cal.Relations...)
	position.Sort(relations)

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO calendars (id, name, origin, version) VALUES (?, ?, ?, 1)
		`, id, cal.Name, cal.Origin); err != nil {
			return fmt.Errorf("import calendar: %w", err)
		}

		for _, u := range cal.Units {
			if u.Format == "" {
				u.Format = ir.FormatNumeric
			}
			if err := insertUnit(ctx, tx, id, u); err != nil {
				return err
			}
		}

		next := make(map[ir.UnitID]int32)
		for _, r := range relations {
			r.ID = s.newID()
			r.Position = next[r.Parent]
			next[r.Parent] += position.Gap
			if err := insertRelation(ctx, tx, id, r); err != nil {
				return err
			}
		}

		for i, p := range cal.Presentations {
			p.ID = s.newID()
			if err := insertPresentation(ctx, tx, id, p, i); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// bump advances the calendar's logical version. It doubles as the
// existence check for every mutation.
func bump(ctx context.Context, tx *sql.Tx, calID string) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE calendars SET version = version + 1 WHERE id = ?
	`, calID)
	if err != nil {
		return fmt.Errorf("bump version: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("calendar %s: %w", calID, ErrNotFound)
	}
	return nil
}

func insertUnit(ctx context.Context, tx *sql.Tx, calID string, u ir.Unit) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO units
		(calendar_id, id, seq, name, short_name, display_name, format, pad, base, span)
		VALUES (?, ?, (SELECT COALESCE(MAX(seq), -1) + 1 FROM units WHERE calendar_id = ?), ?, ?, ?, ?, ?, ?, ?)
	`,
		calID,
		string(u.ID),
		calID,
		u.Name,
		u.ShortName,
		u.DisplayName,
		string(u.Format),
		u.Pad,
		u.Base,
		u.Span,
	)
	if err != nil {
		return fmt.Errorf("insert unit %s: %w", u.ID, err)
	}
	return nil
}

func insertRelation(ctx context.Context, tx *sql.Tx, calID string, r ir.ChildRelation) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO relations
		(id, calendar_id, parent_id, child_id, repeats, label, short_label, position)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		r.ID,
		calID,
		string(r.Parent),
		string(r.Child),
		r.Repeats,
		r.Label,
		r.ShortLabel,
		r.Position,
	)
	if err != nil {
		return fmt.Errorf("insert relation %s → %s: %w", r.Parent, r.Child, err)
	}
	return nil
}

func insertPresentation(ctx context.Context, tx *sql.Tx, calID string, p ir.Presentation, seq int) error {
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO presentations (id, calendar_id, name, seq) VALUES (?, ?, ?, ?)
	`, p.ID, calID, p.Name, seq); err != nil {
		return fmt.Errorf("insert presentation: %w", err)
	}
	for i, b := range p.Bindings {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO bindings (presentation_id, seq, unit_id, format) VALUES (?, ?, ?, ?)
		`, p.ID, i, string(b.Unit), b.Format); err != nil {
			return fmt.Errorf("insert binding: %w", err)
		}
	}
	return nil
}

func setPosition(ctx context.Context, tx *sql.Tx, relID string, pos int32) error {
	if _, err := tx.ExecContext(ctx, `
		UPDATE relations SET position = ? WHERE id = ?
	`, pos, relID); err != nil {
		return fmt.Errorf("set position: %w", err)
	}
	return nil
}

type sibling struct {
	id  string
	pos int32
}

type siblingList []sibling

func (l siblingList) positions() []int32 {
	out := make([]int32, len(l))
	for i, sb := range l {
		out[i] = sb.pos
	}
	return out
}

func (l siblingList) indexOf(id string) int {
	for i, sb := range l {
		if sb.id == id {
			return i
		}
	}
	return -1
}

// siblings returns the relations under parent in authored order.
func siblings(ctx context.Context, tx *sql.Tx, calID string, parent ir.UnitID) (siblingList, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT id, position
		FROM relations
		WHERE calendar_id = ? AND parent_id = ?
		ORDER BY position ASC, id COLLATE BINARY ASC
	`, calID, string(parent))
	if err != nil {
		return nil, fmt.Errorf("query siblings: %w", err)
	}
	defer rows.Close()

	var out siblingList
	for rows.Next() {
		var sb sibling
		if err := rows.Scan(&sb.id, &sb.pos); err != nil {
			return nil, fmt.Errorf("scan sibling: %w", err)
		}
		out = append(out, sb)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate siblings: %w", err)
	}
	return out, nil
}
