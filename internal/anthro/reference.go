package anthro

import (
	"bufio"
	"fmt"
	"io"
	"io/fs"
	"math"
	"path"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// TableKey addresses one reference table.
type TableKey struct {
	Indicator Indicator
	Sex       Sex
}

func (k TableKey) String() string {
	return k.Indicator.Code() + "/" + k.Sex.String()
}

// AllTableKeys returns every (indicator, sex) combination.
func AllTableKeys() []TableKey {
	keys := make([]TableKey, 0, len(Indicators)*2)
	for _, ind := range Indicators {
		keys = append(keys, TableKey{ind, Male}, TableKey{ind, Female})
	}
	return keys
}

// Table is an immutable, key-sorted sequence of LMS entries for one
// (indicator, sex) pair.
type Table struct {
	key     TableKey
	entries []LMSEntry
}

// Key returns the table's (indicator, sex) address.
func (t *Table) Key() TableKey { return t.key }

// Len returns the number of reference points.
func (t *Table) Len() int { return len(t.entries) }

// Entry returns the i-th reference point.
func (t *Table) Entry(i int) LMSEntry { return t.entries[i] }

// Min returns the lowest key.
func (t *Table) Min() float64 { return t.entries[0].Key }

// Max returns the highest key.
func (t *Table) Max() float64 { return t.entries[len(t.entries)-1].Key }

// ReferenceTable holds all loaded tables. It is never mutated after Load
// returns, so any number of goroutines may query it without locking.
type ReferenceTable struct {
	tables       map[TableKey]*Table
	source       string
	illustrative bool
}

// Source is the provenance line from the manifest, empty when the tables
// were loaded without one.
func (r *ReferenceTable) Source() string { return r.source }

// Illustrative reports whether the manifest marked the data set as
// sample data that must not be used for real assessments.
func (r *ReferenceTable) Illustrative() bool { return r.illustrative }

// Table returns the table for (ind, sex).
func (r *ReferenceTable) Table(ind Indicator, sex Sex) (*Table, error) {
	key := TableKey{Indicator: ind, Sex: sex}
	t, ok := r.tables[key]
	if !ok {
		return nil, &MissingTableError{Table: key}
	}
	return t, nil
}

// Keys lists the loaded tables in indicator, then sex order.
func (r *ReferenceTable) Keys() []TableKey {
	keys := make([]TableKey, 0, len(r.tables))
	for k := range r.tables {
		keys = append(keys, k)
	}
	sortKeys(keys)
	return keys
}

func sortKeys(keys []TableKey) {
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Indicator != keys[j].Indicator {
			return keys[i].Indicator < keys[j].Indicator
		}
		return keys[i].Sex < keys[j].Sex
	})
}

// Load parses one text table per key. Each source has a single header
// line followed by rows of key, L, M, S separated by commas, tabs or
// spaces; extra trailing columns (WHO files carry SD and percentile
// columns) are ignored. Every key listed in required must end up with at
// least one row.
func Load(sources map[TableKey]io.Reader, required ...TableKey) (*ReferenceTable, error) {
	keys := make([]TableKey, 0, len(sources))
	for k := range sources {
		keys = append(keys, k)
	}
	sortKeys(keys)

	ref := &ReferenceTable{tables: make(map[TableKey]*Table, len(sources))}
	for _, k := range keys {
		entries, err := parseTable(k, sources[k])
		if err != nil {
			return nil, err
		}
		if len(entries) > 0 {
			ref.tables[k] = &Table{key: k, entries: entries}
		}
	}

	for _, k := range required {
		if _, ok := ref.tables[k]; !ok {
			return nil, &MissingTableError{Table: k}
		}
	}
	return ref, nil
}

func parseTable(key TableKey, r io.Reader) ([]LMSEntry, error) {
	var entries []LMSEntry
	sc := bufio.NewScanner(r)
	line := 0
	header := true
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		if header {
			header = false
			continue
		}

		fields := strings.FieldsFunc(text, func(r rune) bool {
			return r == ',' || r == ';' || r == '\t' || r == ' '
		})
		if len(fields) < 4 {
			return nil, &DataFormatError{Table: key, Line: line, Reason: fmt.Sprintf("expected 4 columns, got %d", len(fields))}
		}

		var vals [4]float64
		for i := 0; i < 4; i++ {
			v, err := strconv.ParseFloat(fields[i], 64)
			if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, &DataFormatError{Table: key, Line: line, Reason: fmt.Sprintf("non-numeric field %q", fields[i])}
			}
			vals[i] = v
		}
		e := LMSEntry{Key: vals[0], L: vals[1], M: vals[2], S: vals[3]}

		if e.M <= 0 {
			return nil, &DataFormatError{Table: key, Line: line, Reason: "M must be positive"}
		}
		if e.S <= 0 {
			return nil, &DataFormatError{Table: key, Line: line, Reason: "S must be positive"}
		}
		if n := len(entries); n > 0 {
			prev := entries[n-1].Key
			if e.Key == prev {
				return nil, &DataFormatError{Table: key, Line: line, Reason: fmt.Sprintf("duplicate key %g", e.Key)}
			}
			if e.Key < prev {
				return nil, &DataFormatError{Table: key, Line: line, Reason: fmt.Sprintf("key %g is not greater than previous key %g", e.Key, prev)}
			}
		}
		entries = append(entries, e)
	}
	if err := sc.Err(); err != nil {
		return nil, &DataFormatError{Table: key, Line: line, Reason: err.Error()}
	}
	return entries, nil
}

// Manifest lists the files that make up a reference data set.
type Manifest struct {
	Source       string          `yaml:"source"`
	Illustrative bool            `yaml:"illustrative"`
	Tables       []ManifestTable `yaml:"tables"`
}

// ManifestTable names the file holding one (indicator, sex) table.
type ManifestTable struct {
	Indicator string `yaml:"indicator"`
	Sex       string `yaml:"sex"`
	File      string `yaml:"file"`
	Required  bool   `yaml:"required"`
}

// ParseManifest decodes a YAML manifest.
func ParseManifest(b []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	if len(m.Tables) == 0 {
		return nil, fmt.Errorf("manifest lists no tables")
	}
	return &m, nil
}

// LoadFS reads the manifest at manifestPath inside fsys and loads every
// table it lists. File names are resolved relative to the manifest.
func LoadFS(fsys fs.FS, manifestPath string) (*ReferenceTable, error) {
	b, err := fs.ReadFile(fsys, manifestPath)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	man, err := ParseManifest(b)
	if err != nil {
		return nil, err
	}

	dir := path.Dir(manifestPath)
	sources := make(map[TableKey]io.Reader, len(man.Tables))
	var required []TableKey
	for _, mt := range man.Tables {
		ind, err := ParseIndicator(mt.Indicator)
		if err != nil {
			return nil, fmt.Errorf("manifest: %w", err)
		}
		sex, err := ParseSex(mt.Sex)
		if err != nil {
			return nil, fmt.Errorf("manifest: %w", err)
		}
		key := TableKey{Indicator: ind, Sex: sex}
		if _, dup := sources[key]; dup {
			return nil, fmt.Errorf("manifest: table %s listed twice", key)
		}

		f, err := fsys.Open(path.Join(dir, mt.File))
		if err != nil {
			if mt.Required {
				return nil, &MissingTableError{Table: key}
			}
			continue
		}
		defer f.Close()

		sources[key] = f
		if mt.Required {
			required = append(required, key)
		}
	}
	ref, err := Load(sources, required...)
	if err != nil {
		return nil, err
	}
	ref.source = man.Source
	ref.illustrative = man.Illustrative
	return ref, nil
}
