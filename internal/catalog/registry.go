package catalog

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/keithlinneman/jslearn-web/internal/pathutil"
	"github.com/keithlinneman/jslearn-web/internal/xerrors"
)

var (
	// ErrNotFound is returned by Get when no module has the requested id.
	ErrNotFound = errors.New("module not found")

	// ErrInvalidCatalog wraps every validation failure from New/Parse.
	ErrInvalidCatalog = errors.New("invalid catalog")
)

// Module is one unit of the course.
// demo and overview are page data only and stay out of the API payload.
type Module struct {
	ID          int      `json:"id" yaml:"id"`
	Title       string   `json:"title" yaml:"title"`
	Description string   `json:"description" yaml:"description"`
	Filename    string   `json:"filename" yaml:"filename"`
	Topics      []string `json:"topics" yaml:"topics"`
	Demo        bool     `json:"-" yaml:"demo"`
	Overview    string   `json:"-" yaml:"overview"`
}

func (m Module) clone() Module {
	m.Topics = slices.Clone(m.Topics)
	if m.Topics == nil {
		m.Topics = []string{}
	}
	return m
}

// Registry is the immutable, ordered set of course modules.
type Registry struct {
	version string
	hash    string
	modules []Module
	index   map[int]int
}

// New validates mods and builds a Registry in declaration order.
// All problems are reported at once, each wrapped in ErrInvalidCatalog.
func New(version string, mods []Module) (*Registry, error) {
	var errs []error
	if len(mods) == 0 {
		errs = append(errs, fmt.Errorf("no modules defined"))
	}

	index := make(map[int]int, len(mods))
	out := make([]Module, 0, len(mods))
	for i, m := range mods {
		m.Title = strings.TrimSpace(m.Title)
		m.Description = strings.TrimSpace(m.Description)
		m.Overview = strings.TrimSpace(m.Overview)

		if m.ID <= 0 {
			errs = append(errs, fmt.Errorf("module #%d: id must be positive (got %d)", i+1, m.ID))
		} else if prev, dup := index[m.ID]; dup {
			errs = append(errs, fmt.Errorf("module #%d: duplicate id %d (first declared at #%d)", i+1, m.ID, prev+1))
		}
		if m.Title == "" {
			errs = append(errs, fmt.Errorf("module %d: title is required", m.ID))
		}
		if err := validateFilename(m.Filename); err != nil {
			errs = append(errs, fmt.Errorf("module %d: %w", m.ID, err))
		}

		if _, dup := index[m.ID]; !dup && m.ID > 0 {
			index[m.ID] = len(out)
		}
		out = append(out, m.clone())
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCatalog, errors.Join(errs...))
	}

	r := &Registry{
		version: strings.TrimSpace(version),
		modules: out,
		index:   index,
	}
	r.hash = r.computeHash()
	return r, nil
}

// filenames are served verbatim from a flat directory, so they must be a
// single path element
func validateFilename(name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return fmt.Errorf("filename is required")
	case strings.ContainsAny(name, "/\\\x00"):
		return fmt.Errorf("filename %q must not contain path separators", name)
	case pathutil.HasDotSegments(name):
		return fmt.Errorf("filename %q must not be a dot segment", name)
	}
	return nil
}

// List returns every module in declaration order.
func (r *Registry) List() []Module {
	out := make([]Module, len(r.modules))
	for i, m := range r.modules {
		out[i] = m.clone()
	}
	return out
}

// Get returns the module with the given id or an error wrapping ErrNotFound.
func (r *Registry) Get(id int) (Module, error) {
	i, ok := r.index[id]
	if !ok {
		return Module{}, xerrors.Wrapf(ErrNotFound, "module id %d", id)
	}
	return r.modules[i].clone(), nil
}

// Len is the number of modules.
func (r *Registry) Len() int { return len(r.modules) }

// HasDemo reports whether id exists and has an interactive demo.
func (r *Registry) HasDemo(id int) bool {
	i, ok := r.index[id]
	return ok && r.modules[i].Demo
}

// DemoIDs returns the ids with a demo, in declaration order.
func (r *Registry) DemoIDs() []int {
	ids := make([]int, 0, len(r.modules))
	for _, m := range r.modules {
		if m.Demo {
			ids = append(ids, m.ID)
		}
	}
	return ids
}

// WithDemoIDs returns a copy of r whose demo set is exactly ids.
// Every id must exist in r.
func (r *Registry) WithDemoIDs(ids []int) (*Registry, error) {
	want := make(map[int]bool, len(ids))
	var errs []error
	for _, id := range ids {
		if _, ok := r.index[id]; !ok {
			errs = append(errs, fmt.Errorf("demo id %d is not in the catalog", id))
			continue
		}
		want[id] = true
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCatalog, errors.Join(errs...))
	}

	mods := make([]Module, len(r.modules))
	for i, m := range r.modules {
		m = m.clone()
		m.Demo = want[m.ID]
		mods[i] = m
	}
	return New(r.version, mods)
}

// Version is the catalog version label, may be empty.
func (r *Registry) Version() string { return r.version }

// Hash is a hex SHA-256 over the catalog contents including demo flags.
func (r *Registry) Hash() string { return r.hash }

// ContentVersion and ContentHash satisfy httpmw.CatalogInfo.
func (r *Registry) ContentVersion() string { return r.version }
func (r *Registry) ContentHash() string    { return r.hash }

func (r *Registry) computeHash() string {
	type hashed struct {
		Module
		Demo     bool   `json:"demo"`
		Overview string `json:"overview,omitempty"`
	}
	rows := make([]hashed, len(r.modules))
	for i, m := range r.modules {
		rows[i] = hashed{Module: m, Demo: m.Demo, Overview: m.Overview}
	}
	// json.Marshal cannot fail for these field types
	b, _ := json.Marshal(struct {
		Version string   `json:"version"`
		Modules []hashed `json:"modules"`
	}{r.version, rows})
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// MaxIDs bounds how many ids one ParseIDs list may expand to.
const MaxIDs = 1000

// ParseIDs parses a comma separated id list such as "1,2,3" or "1-9,12".
// "none" yields an empty, non-nil list. Ranges are checked against MaxIDs
// before they are expanded.
func ParseIDs(s string) ([]int, error) {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "none") {
		return []int{}, nil
	}
	if s == "" {
		return nil, xerrors.New("empty id list")
	}

	var ids []int
	seen := make(map[int]bool)
	add := func(id int) {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		lo, hi, isRange := strings.Cut(part, "-")
		if !isRange {
			id, err := parsePositive(part)
			if err != nil {
				return nil, err
			}
			add(id)
			continue
		}
		from, err := parsePositive(lo)
		if err != nil {
			return nil, err
		}
		to, err := parsePositive(hi)
		if err != nil {
			return nil, err
		}
		if to < from {
			return nil, xerrors.Newf("invalid id range %q", part)
		}
		if to-from >= MaxIDs-len(ids) {
			return nil, xerrors.Newf("id range %q expands past %d ids", part, MaxIDs)
		}
		for id := from; id <= to; id++ {
			add(id)
		}
	}
	if len(ids) == 0 {
		return nil, xerrors.Newf("no ids in %q", s)
	}
	return ids, nil
}

func parsePositive(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, xerrors.Wrapf(err, "invalid id %q", s)
	}
	if n <= 0 {
		return 0, xerrors.Newf("id must be positive (got %d)", n)
	}
	return n, nil
}
