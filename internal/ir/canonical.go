package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"golang.org/x/text/unicode/norm"
)

// Normalize returns a copy of the calendar with every authored string NFC
// normalized. Labels typed on different platforms compare equal afterwards.
func Normalize(cal Calendar) Calendar {
	out := cal
	out.Name = norm.NFC.String(cal.Name)

	out.Units = make([]Unit, len(cal.Units))
	for i, u := range cal.Units {
		u.Name = norm.NFC.String(u.Name)
		u.ShortName = norm.NFC.String(u.ShortName)
		u.DisplayName = normalizePtr(u.DisplayName)
		out.Units[i] = u
	}

	out.Relations = make([]ChildRelation, len(cal.Relations))
	for i, r := range cal.Relations {
		r.Label = normalizePtr(r.Label)
		r.ShortLabel = normalizePtr(r.ShortLabel)
		out.Relations[i] = r
	}

	out.Presentations = make([]Presentation, len(cal.Presentations))
	for i, p := range cal.Presentations {
		p.Name = norm.NFC.String(p.Name)
		bindings := make([]Binding, len(p.Bindings))
		for j, b := range p.Bindings {
			b.Format = norm.NFC.String(b.Format)
			bindings[j] = b
		}
		p.Bindings = bindings
		out.Presentations[i] = p
	}

	return out
}

func normalizePtr(s *string) *string {
	if s == nil {
		return nil
	}
	n := norm.NFC.String(*s)
	return &n
}

// MarshalCanonical produces a deterministic JSON encoding of a calendar for
// hashing. Strings are NFC normalized, HTML escaping is disabled, relations
// are sorted by (parent, position, id) and the store Version is excluded so
// that identical content always yields identical bytes.
func MarshalCanonical(cal Calendar) ([]byte, error) {
	c := Normalize(cal)
	c.Version = 0

	sort.SliceStable(c.Relations, func(i, j int) bool {
		a, b := c.Relations[i], c.Relations[j]
		if a.Parent != b.Parent {
			return a.Parent < b.Parent
		}
		if a.Position != b.Position {
			return a.Position < b.Position
		}
		return a.ID < b.ID
	})

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(c); err != nil {
		return nil, fmt.Errorf("marshal canonical calendar: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
