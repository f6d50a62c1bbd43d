package catalog

// DocSource maps channel suffixes to documentation text.
type DocSource struct {
	name string
	docs map[string]string
}

// NewDocSource creates a documentation source named name.
func NewDocSource(name string, docs map[string]string) *DocSource {
	src := &DocSource{name: name, docs: make(map[string]string, len(docs))}
	for suffix, text := range docs {
		src.docs[suffix] = text
	}

	return src
}

// Name returns the name of the source, e.g. the document it was extracted from.
func (d *DocSource) Name() string { return d.name }

// Lookup returns the documentation of suffix.
func (d *DocSource) Lookup(suffix string) (string, bool) {
	if d == nil {
		return "", false
	}
	text, ok := d.docs[suffix]

	return text, ok
}

// Len returns the number of documented suffixes.
func (d *DocSource) Len() int {
	if d == nil {
		return 0
	}

	return len(d.docs)
}

// Merge returns a source holding the documentation of all sources. Earlier sources win on
// conflicting suffixes.
func Merge(name string, sources ...*DocSource) *DocSource {
	merged := &DocSource{name: name, docs: make(map[string]string)}
	for i := len(sources) - 1; i >= 0; i-- {
		if sources[i] == nil {
			continue
		}
		for suffix, text := range sources[i].docs {
			merged.docs[suffix] = text
		}
	}

	return merged
}
