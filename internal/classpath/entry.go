// Package classpath locates and parses class files in ordered classpath
// entries: directories of loose classes and jar/zip archives.
package classpath

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Kind classifies a classpath entry.
type Kind int

const (
	// KindMissing is a path that does not exist.
	KindMissing Kind = iota
	// KindDirectory is a directory of loose class files.
	KindDirectory
	// KindArchive is a jar or zip file.
	KindArchive
	// KindInvalid exists but is neither a directory nor an archive.
	KindInvalid
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindDirectory:
		return "directory"
	case KindArchive:
		return "archive"
	case KindInvalid:
		return "invalid"
	default:
		return "missing"
	}
}

// Entry is one element of a classpath.
type Entry struct {
	Path string
	Kind Kind
}

// Usable reports whether the entry can be searched.
func (e Entry) Usable() bool {
	return e.Kind == KindDirectory || e.Kind == KindArchive
}

// Classpath is an ordered list of entries. Earlier entries win.
type Classpath struct {
	Name    string
	Entries []Entry
}

// New inspects every path and returns the classpath.
func New(name string, paths []string) *Classpath {
	cp := &Classpath{Name: name}
	for _, p := range paths {
		cp.Entries = append(cp.Entries, Inspect(p))
	}
	return cp
}

// Usable returns the searchable entries in order.
func (c *Classpath) Usable() []Entry {
	if c == nil {
		return nil
	}
	out := make([]Entry, 0, len(c.Entries))
	for _, e := range c.Entries {
		if e.Usable() {
			out = append(out, e)
		}
	}
	return out
}

// Archives returns the archive entries in order.
func (c *Classpath) Archives() []Entry {
	if c == nil {
		return nil
	}
	var out []Entry
	for _, e := range c.Entries {
		if e.Kind == KindArchive {
			out = append(out, e)
		}
	}
	return out
}

// String joins the entry paths with the OS list separator.
func (c *Classpath) String() string {
	if c == nil {
		return ""
	}
	parts := make([]string, len(c.Entries))
	for i, e := range c.Entries {
		parts[i] = e.Path
	}
	return strings.Join(parts, string(os.PathListSeparator))
}

// Inspect classifies a path by looking at the filesystem.
func Inspect(path string) Entry {
	info, err := os.Stat(path)
	switch {
	case err != nil:
		return Entry{Path: path, Kind: KindMissing}
	case info.IsDir():
		return Entry{Path: path, Kind: KindDirectory}
	case info.Mode().IsRegular() && IsArchiveName(path):
		return Entry{Path: path, Kind: KindArchive}
	default:
		return Entry{Path: path, Kind: KindInvalid}
	}
}

// IsArchiveName reports whether the file name has a jar or zip extension.
func IsArchiveName(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".jar" || ext == ".zip"
}

// SplitList splits an OS path list, trimming blanks and dropping empty parts.
func SplitList(list string) []string {
	var out []string
	for _, p := range filepath.SplitList(list) {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// CollectJars returns every .jar below dir, sorted by path.
func CollectJars(dir string) ([]string, error) {
	var jars []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(path), ".jar") {
			jars = append(jars, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(jars)
	return jars, nil
}

// ExpandDir returns dir itself, for loose class files, followed by every jar
// found below it.
func ExpandDir(dir string) ([]string, error) {
	jars, err := CollectJars(dir)
	if err != nil {
		return nil, err
	}
	return append([]string{dir}, jars...), nil
}
