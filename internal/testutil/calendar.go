package testutil

import (
	"fmt"

	"github.com/roach88/worldcal/internal/ir"
	"github.com/roach88/worldcal/internal/position"
)

// CalendarBuilder assembles ir.Calendar fixtures. Relations get ids of the
// form "<parent>-<n>" and positions spaced by position.Gap in call order.
type CalendarBuilder struct {
	cal  ir.Calendar
	next map[ir.UnitID]int32
}

// NewCalendar starts a calendar fixture.
func NewCalendar(id, name string) *CalendarBuilder {
	return &CalendarBuilder{
		cal:  ir.Calendar{ID: id, Name: name},
		next: make(map[ir.UnitID]int32),
	}
}

// Origin sets the calendar origin tick.
func (b *CalendarBuilder) Origin(t int64) *CalendarBuilder {
	b.cal.Origin = t
	return b
}

// Version sets the store version marker.
func (b *CalendarBuilder) Version(v int64) *CalendarBuilder {
	b.cal.Version = v
	return b
}

// Unit adds a fully specified unit.
func (b *CalendarBuilder) Unit(u ir.Unit) *CalendarBuilder {
	b.cal.Units = append(b.cal.Units, u)
	return b
}

// Leaf adds a numeric leaf unit of the given span.
func (b *CalendarBuilder) Leaf(id string, span int64) *CalendarBuilder {
	return b.Unit(ir.Unit{ID: ir.UnitID(id), Name: id, Format: ir.FormatNumeric, Span: span})
}

// Composite adds a numeric unit whose span comes from its children.
func (b *CalendarBuilder) Composite(id string) *CalendarBuilder {
	return b.Unit(ir.Unit{ID: ir.UnitID(id), Name: id, Format: ir.FormatNumeric})
}

// Child appends an unlabeled relation under parent.
func (b *CalendarBuilder) Child(parent, child string, repeats int64) *CalendarBuilder {
	return b.relation(parent, child, repeats, nil, nil)
}

// Labeled appends a labeled relation under parent.
func (b *CalendarBuilder) Labeled(parent, child string, repeats int64, label, short string) *CalendarBuilder {
	var sl *string
	if short != "" {
		sl = ir.StringPtr(short)
	}
	return b.relation(parent, child, repeats, ir.StringPtr(label), sl)
}

func (b *CalendarBuilder) relation(parent, child string, repeats int64, label, short *string) *CalendarBuilder {
	p := ir.UnitID(parent)
	pos := b.next[p]
	b.next[p] = pos + position.Gap

	b.cal.Relations = append(b.cal.Relations, ir.ChildRelation{
		ID:         fmt.Sprintf("%s-%d", parent, pos/position.Gap),
		Parent:     p,
		Child:      ir.UnitID(child),
		Repeats:    repeats,
		Label:      label,
		ShortLabel: short,
		Position:   pos,
	})
	return b
}

// Presentation appends a presentation.
func (b *CalendarBuilder) Presentation(id string, bindings ...ir.Binding) *CalendarBuilder {
	b.cal.Presentations = append(b.cal.Presentations, ir.Presentation{ID: id, Name: id, Bindings: bindings})
	return b
}

// Build returns the assembled calendar.
func (b *CalendarBuilder) Build() ir.Calendar {
	return b.cal
}

// Bind is shorthand for an ir.Binding.
func Bind(unit, format string) ir.Binding {
	return ir.Binding{Unit: ir.UnitID(unit), Format: format}
}

// ClockCalendar is a day of 24 hours of 60 one-tick minutes.
func ClockCalendar() ir.Calendar {
	return NewCalendar("clock", "Clock").
		Unit(ir.Unit{ID: "day", Name: "Day", Format: ir.FormatNumeric}).
		Unit(ir.Unit{ID: "hour", Name: "Hour", Format: ir.FormatPadded, Pad: 2}).
		Unit(ir.Unit{ID: "minute", Name: "Minute", Format: ir.FormatPadded, Pad: 2, Span: 1}).
		Child("day", "hour", 24).
		Child("hour", "minute", 60).
		Presentation("time", Bind("day", "day {value} "), Bind("hour", "{value}:"), Bind("minute", "{value}")).
		Build()
}

// GregorianMonths lists the month names and day counts of a common year.
var GregorianMonths = []struct {
	Name string
	Days int64
}{
	{"January", 31}, {"February", 28}, {"March", 31}, {"April", 30},
	{"May", 31}, {"June", 30}, {"July", 31}, {"August", 31},
	{"September", 30}, {"October", 31}, {"November", 30}, {"December", 31},
}

// GregorianCalendar is a 365-day year of twelve labeled months counted from
// 2026. Month lengths are modelled as three variant units sharing one day
// subtree.
func GregorianCalendar() ir.Calendar {
	b := NewCalendar("gregorian", "Gregorian").
		Unit(ir.Unit{ID: "year", Name: "Year", ShortName: "y", Format: ir.FormatNumeric, Base: 2026}).
		Unit(ir.Unit{ID: "month31", Name: "Month", ShortName: "mo", Format: ir.FormatLabel}).
		Unit(ir.Unit{ID: "month30", Name: "Month", ShortName: "mo", Format: ir.FormatLabel}).
		Unit(ir.Unit{ID: "month28", Name: "Month", ShortName: "mo", Format: ir.FormatLabel}).
		Unit(ir.Unit{ID: "day", Name: "Day", ShortName: "d", Format: ir.FormatPadded, Pad: 2, Base: 1}).
		Unit(ir.Unit{ID: "hour", Name: "Hour", ShortName: "h", Format: ir.FormatPadded, Pad: 2}).
		Unit(ir.Unit{ID: "minute", Name: "Minute", ShortName: "m", Format: ir.FormatPadded, Pad: 2, Span: 1})

	for _, m := range GregorianMonths {
		b.Labeled("year", fmt.Sprintf("month%d", m.Days), 1, m.Name, m.Name[:3])
	}
	return b.
		Child("month31", "day", 31).
		Child("month30", "day", 30).
		Child("month28", "day", 28).
		Child("day", "hour", 24).
		Child("hour", "minute", 60).
		Presentation("long",
			Bind("hour", "{value}:"),
			Bind("minute", "{value} "),
			Bind("month31", "{label} "),
			Bind("day", "{value}, "),
			Bind("year", "{value}"),
		).
		Build()
}
