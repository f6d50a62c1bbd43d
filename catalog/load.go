package catalog

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

type fileEntry struct {
	Attr   string `yaml:"attr"`
	Suffix string `yaml:"suffix"`
	Kind   Kind   `yaml:"kind,omitempty"`
	String bool   `yaml:"string,omitempty"`
}

type fileGroup struct {
	Name    string      `yaml:"name"`
	Doc     string      `yaml:"doc,omitempty"`
	Kind    Kind        `yaml:"kind,omitempty"`
	Members []fileEntry `yaml:"members"`
}

type file struct {
	Name    string            `yaml:"name"`
	DocName string            `yaml:"doc_source,omitempty"`
	Docs    map[string]string `yaml:"docs,omitempty"`
	Entries []fileEntry       `yaml:"entries"`
	Groups  []fileGroup       `yaml:"groups,omitempty"`
}

// Parse decodes a YAML catalog.
//
//	name: cam
//	doc_source: areaDetectorDoc
//	docs:
//	  AcquireTime: Exposure time in seconds
//	entries:
//	  - {attr: acquire_time, suffix: AcquireTime, kind: rbv}
//	  - {attr: port_name, suffix: PortName_RBV, kind: ro, string: true}
//	groups:
//	  - name: size
//	    kind: rbv
//	    members:
//	      - {attr: size_x, suffix: SizeX}
//	      - {attr: size_y, suffix: SizeY}
//
// Group members inherit the kind of their group unless they set one.
func Parse(data []byte) (*Catalog, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	var docs *DocSource
	if len(f.Docs) > 0 {
		name := f.DocName
		if name == "" {
			name = f.Name
		}
		docs = NewDocSource(name, f.Docs)
	}

	c := New(f.Name, docs)
	for _, fe := range f.Entries {
		if err := c.Add(fe.entry(KindReadWrite)); err != nil {
			return nil, err
		}
	}

	for _, fg := range f.Groups {
		g := Group{Name: fg.Name, Doc: fg.Doc}
		for _, fe := range fg.Members {
			g.Entries = append(g.Entries, fe.entry(fg.Kind))
		}
		if err := c.AddGroup(g); err != nil {
			return nil, err
		}
	}

	return c, nil
}

func (fe fileEntry) entry(groupKind Kind) Entry {
	kind := fe.Kind
	if kind == KindReadWrite {
		kind = groupKind
	}

	return Entry{Attr: fe.Attr, Suffix: fe.Suffix, Kind: kind, String: fe.String}
}

// Load decodes a YAML catalog from r.
func Load(r io.Reader) (*Catalog, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}

	return Parse(data)
}

// LoadFile decodes the YAML catalog stored at path.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}

	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}

	return c, nil
}
