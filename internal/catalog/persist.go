package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const indexFileSuffix = "_index.json"

// Save writes one <dimension>_index.json file per dimension into dir,
// each mapping tag -> sorted name list.
func (c *Catalog) Save(dir string) error {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}
	for _, dim := range c.Dimensions() {
		flat := make(map[string][]string, len(c.dims[dim]))
		for _, tag := range c.Tags(dim) {
			flat[tag] = c.Lookup(dim, tag)
		}
		data, err := json.MarshalIndent(flat, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal %s index: %w", dim, err)
		}
		path := filepath.Join(dir, dim+indexFileSuffix)
		if err := os.WriteFile(path, data, 0o640); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
	}
	return nil
}

// LoadDir rebuilds a catalog from the *_index.json files in dir. The
// dimension name is the file name minus the suffix. Reloading reproduces
// identical Lookup results for every pair present before Save.
func LoadDir(dir string) (*Catalog, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read index dir %s: %w", dir, err)
	}

	c := New()
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), indexFileSuffix) {
			continue
		}
		dim := strings.TrimSuffix(e.Name(), indexFileSuffix)
		data, err := os.ReadFile(filepath.Clean(filepath.Join(dir, e.Name())))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", e.Name(), err)
		}
		var flat map[string][]string
		if err := json.Unmarshal(data, &flat); err != nil {
			return nil, fmt.Errorf("parse %s: %w", e.Name(), err)
		}
		for tag, names := range flat {
			for _, name := range names {
				c.Add(dim, tag, name)
			}
		}
	}
	return c, nil
}
