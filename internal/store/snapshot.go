package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/worldcal/internal/ir"
)

// Snapshot reads a consistent copy of a calendar. Units and presentations
// come back in insertion order, relations in authored order per parent.
// Version is the calendar's current logical clock.
//
// Implements cache.Source.
func (s *Store) Snapshot(ctx context.Context, id string) (ir.Calendar, error) {
	var cal ir.Calendar
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `
			SELECT id, name, origin, version FROM calendars WHERE id = ?
		`, id).Scan(&cal.ID, &cal.Name, &cal.Origin, &cal.Version)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("calendar %s: %w", id, ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("query calendar: %w", err)
		}

		if cal.Units, err = readUnits(ctx, tx, id); err != nil {
			return err
		}
		if cal.Relations, err = readRelations(ctx, tx, id); err != nil {
			return err
		}
		cal.Presentations, err = readPresentations(ctx, tx, id)
		return err
	})
	if err != nil {
		return ir.Calendar{}, err
	}
	return cal, nil
}

// Version returns the calendar's current logical clock without reading its
// units, relations or presentations.
//
// Implements cache.Versioner.
func (s *Store) Version(ctx context.Context, id string) (int64, error) {
	var version int64
	err := s.db.QueryRowContext(ctx, `
		SELECT version FROM calendars WHERE id = ?
	`, id).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("calendar %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("query version: %w", err)
	}
	return version, nil
}

func readUnits(ctx context.Context, tx *sql.Tx, calID string) ([]ir.Unit, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT id, name, short_name, display_name, format, pad, base, span
		FROM units
		WHERE calendar_id = ?
		ORDER BY seq ASC
	`, calID)
	if err != nil {
		return nil, fmt.Errorf("query units: %w", err)
	}
	defer rows.Close()

	units := []ir.Unit{}
	for rows.Next() {
		var (
			u       ir.Unit
			id      string
			format  string
			display sql.NullString
		)
		if err := rows.Scan(&id, &u.Name, &u.ShortName, &display, &format, &u.Pad, &u.Base, &u.Span); err != nil {
			return nil, fmt.Errorf("scan unit: %w", err)
		}
		u.ID = ir.UnitID(id)
		u.Format = ir.FormatMode(format)
		if display.Valid {
			u.DisplayName = ir.StringPtr(display.String)
		}
		units = append(units, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate units: %w", err)
	}
	return units, nil
}

func readRelations(ctx context.Context, tx *sql.Tx, calID string) ([]ir.ChildRelation, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT id, parent_id, child_id, repeats, label, short_label, position
		FROM relations
		WHERE calendar_id = ?
		ORDER BY parent_id COLLATE BINARY ASC, position ASC, id COLLATE BINARY ASC
	`, calID)
	if err != nil {
		return nil, fmt.Errorf("query relations: %w", err)
	}
	defer rows.Close()

	relations := []ir.ChildRelation{}
	for rows.Next() {
		var (
			r             ir.ChildRelation
			parent, child string
			label, short  sql.NullString
		)
		if err := rows.Scan(&r.ID, &parent, &child, &r.Repeats, &label, &short, &r.Position); err != nil {
			return nil, fmt.Errorf("scan relation: %w", err)
		}
		r.Parent = ir.UnitID(parent)
		r.Child = ir.UnitID(child)
		if label.Valid {
			r.Label = ir.StringPtr(label.String)
		}
		if short.Valid {
			r.ShortLabel = ir.StringPtr(short.String)
		}
		relations = append(relations, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate relations: %w", err)
	}
	return relations, nil
}

func readPresentations(ctx context.Context, tx *sql.Tx, calID string) ([]ir.Presentation, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT p.id, p.name, b.unit_id, b.format
		FROM presentations p
		LEFT JOIN bindings b ON b.presentation_id = p.id
		WHERE p.calendar_id = ?
		ORDER BY p.seq ASC, p.id COLLATE BINARY ASC, b.seq ASC
	`, calID)
	if err != nil {
		return nil, fmt.Errorf("query presentations: %w", err)
	}
	defer rows.Close()

	presentations := []ir.Presentation{}
	for rows.Next() {
		var (
			id, name     string
			unit, format sql.NullString
		)
		if err := rows.Scan(&id, &name, &unit, &format); err != nil {
			return nil, fmt.Errorf("scan presentation: %w", err)
		}
		if n := len(presentations); n == 0 || presentations[n-1].ID != id {
			presentations = append(presentations, ir.Presentation{ID: id, Name: name, Bindings: []ir.Binding{}})
		}
		if unit.Valid {
			last := &presentations[len(presentations)-1]
			last.Bindings = append(last.Bindings, ir.Binding{Unit: ir.UnitID(unit.String), Format: format.String})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate presentations: %w", err)
	}
	return presentations, nil
}
