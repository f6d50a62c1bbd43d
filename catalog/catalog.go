package catalog

import (
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Kind is the capability of a catalog channel.
type Kind uint8

const (
	// KindReadWrite is a single channel used for reading and writing.
	KindReadWrite Kind = iota
	// KindReadOnly is a channel that cannot be written.
	KindReadOnly
	// KindWithRBV is a set-point channel paired with a "<suffix>_RBV" readback channel.
	KindWithRBV
)

const rbvSuffix = "_RBV"

// String returns string representation of the kind, as used in YAML catalogs.
func (k Kind) String() string {
	switch k {
	case KindReadWrite:
		return "rw"
	case KindReadOnly:
		return "ro"
	case KindWithRBV:
		return "rbv"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// ParseKind parses "rw", "ro" or "rbv", case-insensitively.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "rw", "":
		return KindReadWrite, nil
	case "ro":
		return KindReadOnly, nil
	case "rbv":
		return KindWithRBV, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidKind, s)
	}
}

// UnmarshalYAML decodes a kind from its string form.
func (k *Kind) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return fmt.Errorf("decode kind: %w", err)
	}
	parsed, err := ParseKind(raw)
	if err != nil {
		return err
	}
	*k = parsed

	return nil
}

// MarshalYAML renders the kind as a string.
func (k Kind) MarshalYAML() (interface{}, error) {
	return k.String(), nil
}

// Entry describes one signal of a device.
type Entry struct {
	// Attr is the logical attribute name, e.g. "acquire_time".
	Attr string
	// Suffix is the channel name relative to the device prefix, e.g. "AcquireTime".
	Suffix string
	Kind   Kind
	// String marks channels carrying text rather than numbers.
	String bool
	// Group is the name of the group the entry belongs to, empty for top-level entries.
	Group string
	// Doc is the documentation source of the entry. It may be nil.
	Doc *DocSource
}

// ReadSuffix returns the suffix of the channel the entry is read from.
func (e Entry) ReadSuffix() string {
	if e.Kind == KindWithRBV {
		return e.Suffix + rbvSuffix
	}

	return e.Suffix
}

// WriteSuffix returns the suffix of the channel the entry is written to.
// ok is false for read-only entries.
func (e Entry) WriteSuffix() (suffix string, ok bool) {
	if e.Kind == KindReadOnly {
		return "", false
	}

	return e.Suffix, true
}

// Documentation returns the documentation of the entry. A "X_RBV" suffix falls back to the
// documentation of "X".
func (e Entry) Documentation() string {
	suffixes := []string{e.Suffix}
	if base, found := strings.CutSuffix(e.Suffix, rbvSuffix); found {
		suffixes = append(suffixes, base)
	}

	if e.Doc != nil {
		for _, suffix := range suffixes {
			if text, ok := e.Doc.Lookup(suffix); ok {
				return text
			}
		}
	}

	return fmt.Sprintf("No documentation found [suffix=%s]", e.Suffix)
}

func (e Entry) validate() error {
	if e.Attr == "" || e.Suffix == "" {
		return fmt.Errorf("%w: attr=%q suffix=%q", ErrInvalidEntry, e.Attr, e.Suffix)
	}
	if e.Kind > KindWithRBV {
		return fmt.Errorf("%w: %s", ErrInvalidKind, e.Kind)
	}

	return nil
}

// Group is a named set of entries sharing one kind, e.g. the X and Y components of a size.
type Group struct {
	Name    string
	Doc     string
	Entries []Entry
}

// NewGroup builds a group of kind entries from attribute/suffix pairs.
func NewGroup(name string, doc string, kind Kind, attrSuffix ...[2]string) Group {
	g := Group{Name: name, Doc: doc, Entries: make([]Entry, 0, len(attrSuffix))}
	for _, pair := range attrSuffix {
		g.Entries = append(g.Entries, Entry{Attr: pair[0], Suffix: pair[1], Kind: kind, Group: name})
	}

	return g
}

// Catalog is an ordered table of entries.
type Catalog struct {
	name    string
	docs    *DocSource
	entries []Entry
	groups  []Group
	index   map[string]int
}

// New creates an empty catalog. docs becomes the documentation source of added entries
// that do not carry one. It may be nil.
func New(name string, docs *DocSource) *Catalog {
	return &Catalog{
		name:  name,
		docs:  docs,
		index: make(map[string]int),
	}
}

// Name returns the catalog name.
func (c *Catalog) Name() string { return c.name }

// Docs returns the default documentation source of the catalog.
func (c *Catalog) Docs() *DocSource { return c.docs }

// Add appends entries in order. It stops at the first invalid or duplicate entry.
func (c *Catalog) Add(entries ...Entry) error {
	for _, e := range entries {
		if err := e.validate(); err != nil {
			return err
		}
		if _, exists := c.index[e.Attr]; exists {
			return fmt.Errorf("%w: %s", ErrDuplicateAttr, e.Attr)
		}
		if e.Doc == nil {
			e.Doc = c.docs
		}
		c.index[e.Attr] = len(c.entries)
		c.entries = append(c.entries, e)
	}

	return nil
}

// AddGroup adds the entries of g and records the group.
func (c *Catalog) AddGroup(g Group) error {
	for i := range g.Entries {
		g.Entries[i].Group = g.Name
	}
	if err := c.Add(g.Entries...); err != nil {
		return fmt.Errorf("group %s: %w", g.Name, err)
	}
	c.groups = append(c.groups, g)

	return nil
}

// Entries returns a copy of the entries in insertion order.
func (c *Catalog) Entries() []Entry {
	return append([]Entry(nil), c.entries...)
}

// Groups returns a copy of the groups in insertion order.
func (c *Catalog) Groups() []Group {
	return append([]Group(nil), c.groups...)
}

// Len returns the number of entries.
func (c *Catalog) Len() int { return len(c.entries) }

// Lookup returns the entry of attr.
func (c *Catalog) Lookup(attr string) (Entry, bool) {
	idx, ok := c.index[attr]
	if !ok {
		return Entry{}, false
	}

	return c.entries[idx], true
}

// SearchOptions controls FindSignal.
type SearchOptions struct {
	// Regex treats the search text as a regular expression.
	Regex bool
	// CaseSensitive disables case folding.
	CaseSensitive bool
}

// Match is a FindSignal result.
type Match struct {
	Attr   string
	Suffix string
	Doc    string
}

// FindSignal returns the entries whose documentation contains text, in catalog order.
func (c *Catalog) FindSignal(text string, opts SearchOptions) ([]Match, error) {
	var match func(doc string) bool

	switch {
	case opts.Regex:
		pattern := "(?m)" + text
		if !opts.CaseSensitive {
			pattern = "(?i)" + pattern
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("compile search pattern %q: %w", text, err)
		}
		match = re.MatchString
	case opts.CaseSensitive:
		match = func(doc string) bool { return strings.Contains(doc, text) }
	default:
		lower := strings.ToLower(text)
		match = func(doc string) bool { return strings.Contains(strings.ToLower(doc), lower) }
	}

	var matches []Match
	for _, e := range c.entries {
		doc := e.Documentation()
		if match(doc) {
			matches = append(matches, Match{Attr: e.Attr, Suffix: e.Suffix, Doc: doc})
		}
	}

	return matches, nil
}
