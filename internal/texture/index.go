package texture

import (
	"io/fs"
	"path/filepath"
	"strings"
)

// formatRank orders icon formats sharing a stem. Alpha-capable formats win
// over JPEG.
var formatRank = map[string]int{
	".jpg":  1,
	".jpeg": 1,
	".tga":  2,
	".png":  3,
}

// Index maps icon keys to files under the icon directory.
type Index struct {
	root  string
	paths map[string]string
	ranks map[string]int
}

// iconKey reduces a dataset icon reference to its case-folded stem:
// "icons\Pool.PNG", "pool.jpg" and "Pool" all become "pool".
func iconKey(ref string) string {
	base := filepath.Base(strings.ReplaceAll(ref, "\\", "/"))
	return strings.ToLower(strings.TrimSuffix(base, filepath.Ext(base)))
}

// BuildIndex walks dir for icon files. Unreadable entries are skipped, and
// a missing directory yields an empty index.
func BuildIndex(dir string) *Index {
	idx := &Index{root: dir, paths: make(map[string]string), ranks: make(map[string]int)}
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		rank := formatRank[strings.ToLower(filepath.Ext(path))]
		if rank == 0 {
			return nil
		}
		key := iconKey(path)
		if rank > idx.ranks[key] {
			idx.paths[key], idx.ranks[key] = path, rank
		}
		return nil
	})
	return idx
}

// ResolvePath returns the file backing an icon reference.
func (idx *Index) ResolvePath(ref string) (string, bool) {
	path, ok := idx.paths[iconKey(ref)]
	return path, ok
}

func (idx *Index) Root() string { return idx.root }

// Len returns the number of distinct icons.
func (idx *Index) Len() int { return len(idx.paths) }
