// Package refdata bundles a sample reference data set so the server and
// tests can start without any files on disk. The sample is marked
// illustrative in its manifest; real deployments point Load at a
// directory holding the published WHO tables.
package refdata

import (
	"embed"
	"fmt"
	"io/fs"
	"os"

	"github.com/anthrogizi/anthrogizi/internal/anthro"
)

// ManifestName is the manifest file expected at the root of a reference
// data directory.
const ManifestName = "manifest.yaml"

//go:embed sample/*.yaml sample/*.csv
var bundled embed.FS

// FS returns the bundled reference data rooted at the manifest directory.
func FS() fs.FS {
	sub, err := fs.Sub(bundled, "sample")
	if err != nil {
		panic(err)
	}
	return sub
}

// Load reads reference tables from dir, or from the bundled data set when
// dir is empty.
func Load(dir string) (*anthro.ReferenceTable, error) {
	fsys := FS()
	if dir != "" {
		info, err := os.Stat(dir)
		if err != nil {
			return nil, fmt.Errorf("reference data dir: %w", err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("reference data dir %s is not a directory", dir)
		}
		fsys = os.DirFS(dir)
	}
	return anthro.LoadFS(fsys, ManifestName)
}
