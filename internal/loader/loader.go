package loader

import (
	"embed"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
	cueyaml "cuelang.org/go/encoding/yaml"

	"github.com/roach88/worldcal/internal/ir"
	"github.com/roach88/worldcal/internal/position"
)

//go:embed schema.cue
var schemaCUE []byte

//go:embed templates/*.cue
var templateFS embed.FS

// Error codes shared with the CLI's JSON envelope.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeReadFailed  = "E002" // Template file could not be read
	ErrCodeUnsupported = "E003" // Unknown file extension
	ErrCodeParseFailed = "E004" // CUE or YAML syntax error
	ErrCodeNotFound    = "E005" // Unknown template or path
	ErrCodeSchema      = "E006" // Template does not satisfy #Calendar
)

// LoadError reports a template that could not be turned into a calendar.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// document is the authored shape of a calendar. Relations carry no ids or
// positions; both are derived from list order.
type document struct {
	ID            string            `json:"id"`
	Name          string            `json:"name"`
	Origin        int64             `json:"origin"`
	Units         []ir.Unit         `json:"units"`
	Relations     []relationDoc     `json:"relations"`
	Presentations []ir.Presentation `json:"presentations"`
}

type relationDoc struct {
	Parent     ir.UnitID `json:"parent"`
	Child      ir.UnitID `json:"child"`
	Repeats    int64     `json:"repeats"`
	Label      *string   `json:"label"`
	ShortLabel *string   `json:"short_label"`
}

// Templates returns the names of the built-in templates, sorted.
func Templates() []string {
	entries, err := templateFS.ReadDir("templates")
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), ".cue"))
	}
	sort.Strings(names)
	return names
}

// Template loads a built-in template by name.
func Template(name string) (ir.Calendar, error) {
	file := path.Join("templates", name+".cue")
	src, err := templateFS.ReadFile(file)
	if err != nil {
		return ir.Calendar{}, &LoadError{
			Code:    ErrCodeNotFound,
			Message: fmt.Sprintf("unknown template %q (available: %s)", name, strings.Join(Templates(), ", ")),
		}
	}
	return Load(name+".cue", src)
}

// LoadFile reads a .cue, .yaml or .yml template from disk.
func LoadFile(filename string) (ir.Calendar, error) {
	src, err := os.ReadFile(filename)
	if os.IsNotExist(err) {
		return ir.Calendar{}, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("template file not found: %s", filename)}
	}
	if err != nil {
		return ir.Calendar{}, &LoadError{Code: ErrCodeReadFailed, Message: fmt.Sprintf("reading %s: %v", filename, err)}
	}
	return Load(filename, src)
}

// Resolve loads ref as a built-in template name when it is one, and as a
// file path otherwise.
func Resolve(ref string) (ir.Calendar, error) {
	for _, name := range Templates() {
		if name == ref {
			return Template(ref)
		}
	}
	return LoadFile(ref)
}

// Load decodes template source. The format is chosen by the filename's
// extension. The calendar id defaults to the file's base name.
//
// The source is unified with the embedded #Calendar schema, so syntax and
// schema violations both come back as a *LoadError carrying the CUE
// position of the first problem. Authored strings are NFC normalized.
func Load(filename string, src []byte) (ir.Calendar, error) {
	ctx := cuecontext.New()

	var v cue.Value
	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".cue":
		v = ctx.CompileBytes(src, cue.Filename(filename))
	case ".yaml", ".yml":
		f, err := cueyaml.Extract(filename, src)
		if err != nil {
			return ir.Calendar{}, fromCUEError(err, ErrCodeParseFailed)
		}
		v = ctx.BuildFile(f)
	default:
		return ir.Calendar{}, &LoadError{
			Code:    ErrCodeUnsupported,
			Message: fmt.Sprintf("unsupported template extension %q (want .cue, .yaml or .yml)", ext),
		}
	}
	if err := v.Err(); err != nil {
		return ir.Calendar{}, fromCUEError(err, ErrCodeParseFailed)
	}

	schema := ctx.CompileBytes(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return ir.Calendar{}, fmt.Errorf("embedded schema: %w", err)
	}

	v = schema.LookupPath(cue.ParsePath("#Calendar")).Unify(v)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return ir.Calendar{}, fromCUEError(err, ErrCodeSchema)
	}

	var doc document
	if err := v.Decode(&doc); err != nil {
		return ir.Calendar{}, fromCUEError(err, ErrCodeSchema)
	}

	if doc.ID == "" {
		base := filepath.Base(filename)
		doc.ID = strings.TrimSuffix(base, filepath.Ext(base))
	}
	return ir.Normalize(doc.calendar()), nil
}

func (d document) calendar() ir.Calendar {
	cal := ir.Calendar{
		ID:            d.ID,
		Name:          d.Name,
		Origin:        d.Origin,
		Units:         d.Units,
		Relations:     make([]ir.ChildRelation, 0, len(d.Relations)),
		Presentations: make([]ir.Presentation, 0, len(d.Presentations)),
	}
	if cal.Units == nil {
		cal.Units = []ir.Unit{}
	}

	seen := make(map[ir.UnitID]int32)
	for _, r := range d.Relations {
		n := seen[r.Parent]
		seen[r.Parent] = n + 1
		cal.Relations = append(cal.Relations, ir.ChildRelation{
			ID:         fmt.Sprintf("%s-%d", r.Parent, n),
			Parent:     r.Parent,
			Child:      r.Child,
			Repeats:    r.Repeats,
			Label:      r.Label,
			ShortLabel: r.ShortLabel,
			Position:   n * position.Gap,
		})
	}

	for _, p := range d.Presentations {
		if p.ID == "" {
			p.ID = p.Name
		}
		if p.Bindings == nil {
			p.Bindings = []ir.Binding{}
		}
		cal.Presentations = append(cal.Presentations, p)
	}
	return cal
}

// fromCUEError converts the first CUE error into a LoadError with its
// source position.
func fromCUEError(err error, code string) *LoadError {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return &LoadError{Code: code, Message: err.Error()}
	}

	first := errs[0]
	msg := strings.TrimSpace(first.Error())
	if path := strings.Join(first.Path(), "."); path != "" && !strings.Contains(msg, path) {
		msg = path + ": " + msg
	}
	le := &LoadError{Code: code, Message: msg}
	if positions := cueerrors.Positions(first); len(positions) > 0 {
		le.Pos = positions[0]
		// Schema positions point into the embedded schema; prefer the
		// template's own position when the error has one.
		for _, p := range positions {
			if p.Filename() != "schema.cue" {
				le.Pos = p
				break
			}
		}
	}
	return le
}
