package anthro

import (
	"errors"
	"io"
	"strings"
	"testing"
	"testing/fstest"
)

const wfaBoys = `Month,L,M,S
0,0.3487,3.3464,0.14602
6,0.1257,7.9340,0.11316
12,0.0644,9.6479,0.10925
24,-0.0137,12.1515,0.11426
`

func src(s string) io.Reader { return strings.NewReader(s) }

func TestLoad_Valid(t *testing.T) {
	key := TableKey{WeightForAge, Male}
	ref, err := Load(map[TableKey]io.Reader{key: src(wfaBoys)}, key)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tbl, err := ref.Table(WeightForAge, Male)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tbl.Len() != 4 {
		t.Fatalf("expected 4 entries, got %d", tbl.Len())
	}
	if tbl.Min() != 0 || tbl.Max() != 24 {
		t.Errorf("expected domain [0,24], got [%g,%g]", tbl.Min(), tbl.Max())
	}
	if got := tbl.Entry(1); got.M != 7.9340 {
		t.Errorf("expected M 7.9340 at month 6, got %g", got.M)
	}
}

func TestLoad_WhitespaceAndExtraColumns(t *testing.T) {
	data := "Month\tL\tM\tS\tSD\n0\t1\t49.8842\t0.03795\t1.8931\n1\t1\t54.7244\t0.03557\t1.9465\n"
	key := TableKey{HeightForAge, Male}
	ref, err := Load(map[TableKey]io.Reader{key: src(data)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tbl, _ := ref.Table(HeightForAge, Male)
	if tbl.Len() != 2 {
		t.Errorf("expected 2 entries, got %d", tbl.Len())
	}
}

func TestLoad_DataFormatErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"non-numeric", "k,L,M,S\n0,1,abc,0.1\n"},
		{"too few columns", "k,L,M,S\n0,1,2\n"},
		{"duplicate key", "k,L,M,S\n0,1,3,0.1\n0,1,3.1,0.1\n"},
		{"decreasing key", "k,L,M,S\n1,1,3,0.1\n0,1,3.1,0.1\n"},
		{"zero M", "k,L,M,S\n0,1,0,0.1\n"},
		{"negative S", "k,L,M,S\n0,1,3,-0.1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := TableKey{WeightForAge, Female}
			_, err := Load(map[TableKey]io.Reader{key: src(tt.data)})
			var dfe *DataFormatError
			if !errors.As(err, &dfe) {
				t.Fatalf("expected DataFormatError, got %v", err)
			}
			if dfe.Line != 2 && dfe.Line != 3 {
				t.Errorf("expected error on a data line, got line %d", dfe.Line)
			}
		})
	}
}

func TestLoad_MissingRequiredTable(t *testing.T) {
	have := TableKey{WeightForAge, Male}
	want := TableKey{WeightForAge, Female}
	_, err := Load(map[TableKey]io.Reader{have: src(wfaBoys)}, have, want)
	var mte *MissingTableError
	if !errors.As(err, &mte) {
		t.Fatalf("expected MissingTableError, got %v", err)
	}
	if mte.Table != want {
		t.Errorf("expected missing %s, got %s", want, mte.Table)
	}
}

func TestLoad_HeaderOnlyCountsAsMissing(t *testing.T) {
	key := TableKey{BMIForAge, Male}
	_, err := Load(map[TableKey]io.Reader{key: src("Month,L,M,S\n")}, key)
	var mte *MissingTableError
	if !errors.As(err, &mte) {
		t.Fatalf("expected MissingTableError, got %v", err)
	}
}

func TestReferenceTable_UnknownTable(t *testing.T) {
	ref, err := Load(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := ref.Table(HeightForAge, Female); err == nil {
		t.Fatal("expected error for unloaded table")
	}
}

func TestLoadFS_Manifest(t *testing.T) {
	fsys := fstest.MapFS{
		"who/manifest.yaml": {Data: []byte(`source: test
tables:
  - indicator: wfa
    sex: male
    file: wfa_boys.csv
    required: true
  - indicator: hcfa
    sex: female
    file: hcfa_girls.csv
    required: false
`)},
		"who/wfa_boys.csv": {Data: []byte(wfaBoys)},
	}
	ref, err := LoadFS(fsys, "who/manifest.yaml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	keys := ref.Keys()
	if len(keys) != 1 || keys[0] != (TableKey{WeightForAge, Male}) {
		t.Errorf("expected only wfa/male loaded, got %v", keys)
	}
}

func TestLoadFS_MissingRequiredFile(t *testing.T) {
	fsys := fstest.MapFS{
		"manifest.yaml": {Data: []byte("tables:\n  - indicator: wfa\n    sex: L\n    file: nope.csv\n    required: true\n")},
	}
	_, err := LoadFS(fsys, "manifest.yaml")
	var mte *MissingTableError
	if !errors.As(err, &mte) {
		t.Fatalf("expected MissingTableError, got %v", err)
	}
}

func TestParseManifest_Empty(t *testing.T) {
	if _, err := ParseManifest([]byte("source: x\n")); err == nil {
		t.Fatal("expected error for manifest without tables")
	}
}
