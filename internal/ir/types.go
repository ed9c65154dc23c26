package ir

// TimestampBound is the largest supported magnitude of a world timestamp.
// The same bound is enforced at the API boundary; the engine re-checks it.
const TimestampBound int64 = 8_640_000_000_000_000

// InBounds reports whether t lies within ±TimestampBound.
func InBounds(t int64) bool {
	return t >= -TimestampBound && t <= TimestampBound
}

// UnitID identifies a unit within a calendar.
// The store uses UUIDv7 strings; templates use short slugs.
type UnitID string

// FormatMode controls how a decoded unit value is rendered.
type FormatMode string

const (
	// FormatNumeric renders value+Base as a plain integer.
	FormatNumeric FormatMode = "numeric"

	// FormatPadded renders value+Base zero-padded to Pad digits.
	FormatPadded FormatMode = "padded"

	// FormatLabel renders the authored relation label for the instance,
	// falling back to numeric when the instance carries no label.
	FormatLabel FormatMode = "label"

	// FormatShortLabel renders the authored short label, falling back to
	// the label and then to numeric.
	FormatShortLabel FormatMode = "short_label"
)

// ValidFormatModes defines allowed format modes.
var ValidFormatModes = map[FormatMode]bool{
	FormatNumeric:    true,
	FormatPadded:     true,
	FormatLabel:      true,
	FormatShortLabel: true,
}

// Unit is a named time unit of a calendar (minute, day, month, year...).
type Unit struct {
	ID          UnitID     `json:"id" yaml:"id"`
	Name        string     `json:"name" yaml:"name"`
	ShortName   string     `json:"short_name" yaml:"short_name"`
	DisplayName *string    `json:"display_name,omitempty" yaml:"display_name,omitempty"`
	Format      FormatMode `json:"format" yaml:"format"`

	// Pad is the minimum digit count for FormatPadded.
	Pad int `json:"pad,omitempty" yaml:"pad,omitempty"`

	// Base is added to the zero-based value before numeric rendering
	// (1 for days of a month, 2026 for a year counted from the origin).
	Base int64 `json:"base,omitempty" yaml:"base,omitempty"`

	// Span is the tick length of a leaf unit. Composite units derive their
	// span from their children and ignore this field.
	Span int64 `json:"span,omitempty" yaml:"span,omitempty"`
}

// Title returns the display name if set, otherwise the name.
func (u Unit) Title() string {
	if u.DisplayName != nil && *u.DisplayName != "" {
		return *u.DisplayName
	}
	return u.Name
}

// ChildRelation states that one cycle of Parent is made of Repeats
// consecutive instances of Child. Label and ShortLabel name every instance
// contributed by this relation (e.g. "January" for a single month).
type ChildRelation struct {
	ID         string  `json:"id" yaml:"id"`
	Parent     UnitID  `json:"parent" yaml:"parent"`
	Child      UnitID  `json:"child" yaml:"child"`
	Repeats    int64   `json:"repeats" yaml:"repeats"`
	Label      *string `json:"label,omitempty" yaml:"label,omitempty"`
	ShortLabel *string `json:"short_label,omitempty" yaml:"short_label,omitempty"`
	Position   int32   `json:"position" yaml:"position"`
}

// Binding selects one unit for display and the format string it renders into.
type Binding struct {
	Unit   UnitID `json:"unit" yaml:"unit"`
	Format string `json:"format" yaml:"format"`
}

// Presentation is an ordered selection of units used to render a date.
// It is independent of the structural unit tree.
type Presentation struct {
	ID       string    `json:"id" yaml:"id"`
	Name     string    `json:"name" yaml:"name"`
	Bindings []Binding `json:"bindings" yaml:"bindings"`
}

// Calendar is an authored calendar snapshot.
//
// Version is the last-modified marker supplied by the store. It is zero for
// snapshots that do not come from a store (templates); those are keyed by
// Fingerprint instead.
type Calendar struct {
	ID            string          `json:"id" yaml:"id"`
	Name          string          `json:"name" yaml:"name"`
	Origin        int64           `json:"origin" yaml:"origin"`
	Version       int64           `json:"version" yaml:"version"`
	Units         []Unit          `json:"units" yaml:"units"`
	Relations     []ChildRelation `json:"relations" yaml:"relations"`
	Presentations []Presentation  `json:"presentations" yaml:"presentations"`
}

// Presentation returns the presentation with the given id or name.
func (c Calendar) Presentation(key string) (Presentation, bool) {
	for _, p := range c.Presentations {
		if p.ID == key || p.Name == key {
			return p, true
		}
	}
	return Presentation{}, false
}

// DefaultPresentation returns the first presentation, if any.
func (c Calendar) DefaultPresentation() (Presentation, bool) {
	if len(c.Presentations) == 0 {
		return Presentation{}, false
	}
	return c.Presentations[0], true
}

// StringPtr returns a pointer to s. Used for optional labels.
func StringPtr(s string) *string {
	return &s
}
