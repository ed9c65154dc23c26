package engine

import (
	"strconv"
	"strings"

	"github.com/roach88/worldcal/internal/ir"
)

// Rendered is the output of Render.
type Rendered struct {
	Text string `json:"text"`

	// Skipped lists binding units that are absent from the calendar the
	// time was decoded against (stale references after an edit).
	Skipped []ir.UnitID `json:"skipped,omitempty"`
}

// Format renders p through a presentation. Bindings whose unit cannot be
// resolved are skipped.
func Format(p ParsedTime, pres ir.Presentation) string {
	return Render(p, pres).Text
}

// Render renders p through a presentation, concatenating bindings in
// presentation order.
//
// Placeholders in a binding's format string:
//
//	{value}  value rendered per the unit's format mode
//	{label}  authored instance label, else {value}
//	{short}  authored short label, else {label}
//	{name}   unit display name
//	{n}      raw zero-based value
//
// Unknown placeholders are copied verbatim.
func Render(p ParsedTime, pres ir.Presentation) Rendered {
	var (
		sb      strings.Builder
		skipped []ir.UnitID
	)
	for _, b := range pres.Bindings {
		e, ok := p.Lookup(b.Unit)
		if !ok {
			skipped = append(skipped, b.Unit)
			continue
		}
		expand(&sb, b.Format, e)
	}
	return Rendered{Text: sb.String(), Skipped: skipped}
}

func expand(sb *strings.Builder, format string, e Entry) {
	for {
		open := strings.IndexByte(format, '{')
		if open < 0 {
			sb.WriteString(format)
			return
		}
		end := strings.IndexByte(format[open:], '}')
		if end < 0 {
			sb.WriteString(format)
			return
		}
		end += open

		sb.WriteString(format[:open])
		if s, ok := placeholder(format[open+1:end], e); ok {
			sb.WriteString(s)
		} else {
			sb.WriteString(format[open : end+1])
		}
		format = format[end+1:]
	}
}

func placeholder(token string, e Entry) (string, bool) {
	switch token {
	case "value":
		return RenderValue(e), true
	case "label":
		return labelOf(e), true
	case "short":
		if e.ShortLabel != nil {
			return *e.ShortLabel, true
		}
		return labelOf(e), true
	case "name":
		return e.Unit.Title(), true
	case "n":
		return strconv.FormatInt(e.Value, 10), true
	}
	return "", false
}

func labelOf(e Entry) string {
	if e.Label != nil {
		return *e.Label
	}
	return RenderValue(e)
}

// RenderValue renders an entry's value per its unit's format mode.
func RenderValue(e Entry) string {
	switch e.Unit.Format {
	case ir.FormatLabel:
		if e.Label != nil {
			return *e.Label
		}
	case ir.FormatShortLabel:
		if e.ShortLabel != nil {
			return *e.ShortLabel
		}
		if e.Label != nil {
			return *e.Label
		}
	case ir.FormatPadded:
		return pad(e.Value+e.Unit.Base, e.Unit.Pad)
	}
	return strconv.FormatInt(e.Value+e.Unit.Base, 10)
}

// pad zero-pads v to width digits; the sign is not counted.
func pad(v int64, width int) string {
	digits := strconv.FormatInt(v, 10)
	neg := v < 0
	if neg {
		digits = digits[1:]
	}
	if n := width - len(digits); n > 0 {
		digits = strings.Repeat("0", n) + digits
	}
	if neg {
		return "-" + digits
	}
	return digits
}
