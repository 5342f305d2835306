package classpath

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/klauspost/compress/zip"

	"github.com/depdiscover/internal/classfile"
	"github.com/depdiscover/pkg/filter"
	"github.com/depdiscover/pkg/parallel"
	"github.com/depdiscover/pkg/utils"
)

const classExt = ".class"

// ErrIO marks failures reading a classpath entry. They abort an analysis run.
var ErrIO = errors.New("classpath I/O error")

// ClassSet is an insertion-ordered set of parsed classes keyed by name.
type ClassSet struct {
	names   []string
	classes map[string]*classfile.ClassDescriptor
}

func newClassSet() *ClassSet {
	return &ClassSet{classes: make(map[string]*classfile.ClassDescriptor)}
}

// add keeps the first class seen for a name.
func (s *ClassSet) add(cd *classfile.ClassDescriptor) {
	if _, ok := s.classes[cd.Name]; ok {
		return
	}
	s.names = append(s.names, cd.Name)
	s.classes[cd.Name] = cd
}

// Len returns the number of classes.
func (s *ClassSet) Len() int { return len(s.names) }

// Names returns class names in discovery order.
func (s *ClassSet) Names() []string { return s.names }

// Get returns the class with the given internal name.
func (s *ClassSet) Get(name string) (*classfile.ClassDescriptor, bool) {
	cd, ok := s.classes[name]
	return cd, ok
}

// Stats counts the work done by a Finder.
type Stats struct {
	ArchivesListed int
	ArchivesOpened int
	ClassesParsed  int
	ClassesSkipped int
}

// Finder searches classpath entries for class files. Archive listings are
// cached for the lifetime of the Finder, so one Finder should serve one run.
type Finder struct {
	logger utils.Logger

	mu       sync.Mutex
	listings map[string]*archiveListing
	stats    Stats
}

// NewFinder creates a Finder.
func NewFinder(logger utils.Logger) *Finder {
	if logger == nil {
		logger = &utils.NullLogger{}
	}
	return &Finder{
		logger:   logger,
		listings: make(map[string]*archiveListing),
	}
}

// Find returns every class selected by flt in the usable entries, in
// classpath order. When two entries provide the same class the first wins.
// Class files that fail to parse are skipped with a warning.
func (f *Finder) Find(ctx context.Context, entries []Entry, flt filter.Filter) (*ClassSet, error) {
	set := newClassSet()
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var err error
		switch e.Kind {
		case KindDirectory:
			err = f.findInDir(e.Path, flt, set)
		case KindArchive:
			err = f.findInArchive(e.Path, flt, set)
		default:
			continue
		}
		if err != nil {
			return nil, err
		}
	}
	return set, nil
}

// FindOne returns the first class with exactly the given internal name.
func (f *Finder) FindOne(ctx context.Context, entries []Entry, name string) (*classfile.ClassDescriptor, bool, error) {
	set, err := f.Find(ctx, entries, filter.NewExactFilter(name))
	if err != nil {
		return nil, false, err
	}
	cd, ok := set.Get(name)
	if !ok && set.Len() > 0 {
		// The file name matched but the class declares another name.
		cd, ok = set.Get(set.Names()[0])
	}
	return cd, ok, nil
}

// Prefetch lists the given archives concurrently so the sequential analysis
// finds their listings cached. Failures are returned joined; the analysis
// reports them again when it reaches the archive.
func (f *Finder) Prefetch(ctx context.Context, archives []Entry, cfg parallel.PoolConfig) error {
	var paths []string
	f.mu.Lock()
	for _, e := range archives {
		if _, ok := f.listings[e.Path]; !ok && e.Kind == KindArchive {
			paths = append(paths, e.Path)
		}
	}
	f.mu.Unlock()
	if len(paths) == 0 {
		return nil
	}

	pool := parallel.NewWorkerPool[string, *archiveListing](cfg)
	results := pool.ExecuteFunc(ctx, paths, func(ctx context.Context, path string) (*archiveListing, error) {
		return listArchive(path)
	})

	var errs []error
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range results {
		if r.Error != nil {
			errs = append(errs, r.Error)
			continue
		}
		f.listings[r.Input] = r.Result
		f.stats.ArchivesListed++
	}
	return errors.Join(errs...)
}

// Stats returns a snapshot of the work counters.
func (f *Finder) Stats() Stats {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stats
}

func (f *Finder) findInDir(dir string, flt filter.Filter, set *ClassSet) error {
	if name, ok := filter.ExactName(flt); ok {
		path := filepath.Join(dir, filepath.FromSlash(name)+classExt)
		data, err := os.ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%w: %v", ErrIO, err)
		}
		f.parseInto(path, data, set)
		return nil
	}

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, classExt) {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		if !flt.Match(strings.TrimSuffix(filepath.ToSlash(rel), classExt)) {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		f.parseInto(path, data, set)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIO, err)
	}
	return nil
}

func (f *Finder) findInArchive(path string, flt filter.Filter, set *ClassSet) error {
	l, err := f.listing(path)
	if err != nil {
		return err
	}

	var matched []string
	if name, ok := filter.ExactName(flt); ok {
		if _, ok := l.index[name+classExt]; ok {
			matched = append(matched, name+classExt)
		}
	} else {
		for _, n := range l.names {
			if flt.Match(strings.TrimSuffix(n, classExt)) {
				matched = append(matched, n)
			}
		}
	}
	if len(matched) == 0 {
		return nil
	}

	zr, err := zip.OpenReader(path)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrIO, path, err)
	}
	defer zr.Close()
	f.mu.Lock()
	f.stats.ArchivesOpened++
	f.mu.Unlock()

	want := make(map[string]struct{}, len(matched))
	for _, n := range matched {
		want[n] = struct{}{}
	}
	for _, zf := range zr.File {
		if _, ok := want[zf.Name]; !ok {
			continue
		}
		data, err := readZipFile(zf)
		if err != nil {
			return fmt.Errorf("%w: %s!/%s: %v", ErrIO, path, zf.Name, err)
		}
		f.parseInto(path+"!/"+zf.Name, data, set)
	}
	return nil
}

// archiveListing holds the class entry names of one archive.
type archiveListing struct {
	names []string
	index map[string]struct{}
}

// listing returns the cached listing of an archive, listing it on first use.
func (f *Finder) listing(path string) (*archiveListing, error) {
	f.mu.Lock()
	l, ok := f.listings[path]
	f.mu.Unlock()
	if ok {
		return l, nil
	}

	l, err := listArchive(path)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.listings[path] = l
	f.stats.ArchivesListed++
	f.mu.Unlock()
	return l, nil
}

func (f *Finder) parseInto(source string, data []byte, set *ClassSet) {
	cd, err := classfile.Parse(data)
	f.mu.Lock()
	defer f.mu.Unlock()
	if err != nil {
		f.stats.ClassesSkipped++
		f.logger.Warn("Skipping unreadable class file %s: %v", source, err)
		return
	}
	f.stats.ClassesParsed++
	set.add(cd)
}

func listArchive(path string) (*archiveListing, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrIO, path, err)
	}
	defer zr.Close()

	l := &archiveListing{index: make(map[string]struct{}, len(zr.File))}
	for _, zf := range zr.File {
		if strings.HasSuffix(zf.Name, classExt) && !zf.FileInfo().IsDir() {
			l.names = append(l.names, zf.Name)
			l.index[zf.Name] = struct{}{}
		}
	}
	return l, nil
}

func readZipFile(zf *zip.File) ([]byte, error) {
	rc, err := zf.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
