package classpath

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/depdiscover/internal/testutil"
	"github.com/depdiscover/pkg/filter"
	"github.com/depdiscover/pkg/parallel"
)

func mustFilter(t *testing.T, pattern string) filter.Filter {
	t.Helper()
	f, err := filter.ParsePattern(pattern)
	require.NoError(t, err)
	return f
}

func TestInspect(t *testing.T) {
	dir := t.TempDir()
	jar := testutil.WriteJar(t, filepath.Join(dir, "lib.jar"), testutil.ClassSet(testutil.NewClass("a/A")), nil)
	txt := testutil.WriteFile(t, dir, "notes.txt", "hello")

	assert.Equal(t, KindDirectory, Inspect(dir).Kind)
	assert.Equal(t, KindArchive, Inspect(jar).Kind)
	assert.Equal(t, KindInvalid, Inspect(txt).Kind)
	assert.Equal(t, KindMissing, Inspect(filepath.Join(dir, "nope")).Kind)

	assert.True(t, Inspect(dir).Usable())
	assert.False(t, Inspect(txt).Usable())
	assert.Equal(t, "archive", KindArchive.String())
}

func TestSplitList(t *testing.T) {
	sep := string(os.PathListSeparator)
	assert.Equal(t, []string{"a", "b/c.jar"}, SplitList(" a "+sep+sep+"b/c.jar"+sep))
	assert.Nil(t, SplitList(""))
}

func TestExpandDir(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteJar(t, filepath.Join(dir, "z.jar"), testutil.ClassSet(testutil.NewClass("z/Z")), nil)
	testutil.WriteJar(t, filepath.Join(dir, "sub", "a.jar"), testutil.ClassSet(testutil.NewClass("a/A")), nil)
	testutil.WriteFile(t, dir, "readme.md", "x")

	paths, err := ExpandDir(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{
		dir,
		filepath.Join(dir, "sub", "a.jar"),
		filepath.Join(dir, "z.jar"),
	}, paths)

	_, err = ExpandDir(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}

func TestClasspath_Entries(t *testing.T) {
	dir := t.TempDir()
	jar := testutil.WriteJar(t, filepath.Join(dir, "lib.jar"), testutil.ClassSet(testutil.NewClass("a/A")), nil)
	missing := filepath.Join(dir, "missing")

	cp := New("classpath", []string{dir, missing, jar})
	require.Len(t, cp.Entries, 3)
	assert.Equal(t, []Entry{{Path: dir, Kind: KindDirectory}, {Path: jar, Kind: KindArchive}}, cp.Usable())
	assert.Equal(t, []Entry{{Path: jar, Kind: KindArchive}}, cp.Archives())
	assert.Contains(t, cp.String(), missing)

	var nilCP *Classpath
	assert.Nil(t, nilCP.Usable())
	assert.Equal(t, "", nilCP.String())
}

func TestFinder_FindInDirectory(t *testing.T) {
	dir := testutil.WriteClassDir(t, t.TempDir(), testutil.ClassSet(
		testutil.NewClass("com/acme/Main"),
		testutil.NewClass("com/acme/util/Strings"),
		testutil.NewClass("org/other/Thing"),
	))
	entries := []Entry{Inspect(dir)}
	f := NewFinder(nil)
	ctx := context.Background()

	set, err := f.Find(ctx, entries, mustFilter(t, "com.acme.*"))
	require.NoError(t, err)
	assert.Equal(t, []string{"com/acme/Main", "com/acme/util/Strings"}, set.Names())

	set, err = f.Find(ctx, entries, mustFilter(t, "org.other.Thing"))
	require.NoError(t, err)
	assert.Equal(t, 1, set.Len())

	set, err = f.Find(ctx, entries, mustFilter(t, "zzz"))
	require.NoError(t, err)
	assert.Equal(t, 0, set.Len())
}

func TestFinder_FindInArchiveUsesCachedListing(t *testing.T) {
	dir := t.TempDir()
	jar := testutil.WriteJar(t, filepath.Join(dir, "lib.jar"), testutil.ClassSet(
		testutil.NewClass("lib/A"),
		testutil.NewClass("lib/B"),
	), map[string]string{"META-INF/MANIFEST.MF": "Manifest-Version: 1.0\n"})
	entries := []Entry{Inspect(jar)}
	f := NewFinder(nil)
	ctx := context.Background()

	cd, ok, err := f.FindOne(ctx, entries, "lib/B")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "lib/B", cd.Name)

	_, ok, err = f.FindOne(ctx, entries, "lib/Missing")
	require.NoError(t, err)
	assert.False(t, ok)

	stats := f.Stats()
	assert.Equal(t, 1, stats.ArchivesListed)
	// The archive is only opened when its listing contains the class.
	assert.Equal(t, 1, stats.ArchivesOpened)
	assert.Equal(t, 1, stats.ClassesParsed)
}

func TestFinder_FirstEntryWins(t *testing.T) {
	first := testutil.WriteClassDir(t, t.TempDir(), testutil.ClassSet(
		testutil.NewClass("dup/C").Extends("first/Base"),
	))
	jar := testutil.WriteJar(t, filepath.Join(t.TempDir(), "second.jar"), testutil.ClassSet(
		testutil.NewClass("dup/C").Extends("second/Base"),
	), nil)

	f := NewFinder(nil)
	cd, ok, err := f.FindOne(context.Background(), []Entry{Inspect(first), Inspect(jar)}, "dup/C")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "first/Base", cd.SuperName)
}

func TestFinder_SkipsUnparsableClasses(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteClassDir(t, dir, testutil.ClassSet(testutil.NewClass("ok/Good")))
	testutil.WriteFile(t, dir, "ok/Bad.class", "not a class file")

	f := NewFinder(nil)
	set, err := f.Find(context.Background(), []Entry{Inspect(dir)}, mustFilter(t, "*"))
	require.NoError(t, err)
	assert.Equal(t, []string{"ok/Good"}, set.Names())
	assert.Equal(t, 1, f.Stats().ClassesSkipped)
}

func TestFinder_CorruptArchiveIsFatal(t *testing.T) {
	bad := testutil.WriteFile(t, t.TempDir(), "broken.jar", "PK garbage")

	f := NewFinder(nil)
	_, err := f.Find(context.Background(), []Entry{{Path: bad, Kind: KindArchive}}, mustFilter(t, "*"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrIO))
}

func TestFinder_SkipsUnusableEntries(t *testing.T) {
	f := NewFinder(nil)
	set, err := f.Find(context.Background(), []Entry{
		{Path: "/does/not/exist", Kind: KindMissing},
		{Path: "/etc/hosts", Kind: KindInvalid},
	}, mustFilter(t, "*"))
	require.NoError(t, err)
	assert.Equal(t, 0, set.Len())
}

func TestFinder_CancelledContext(t *testing.T) {
	dir := testutil.WriteClassDir(t, t.TempDir(), testutil.ClassSet(testutil.NewClass("a/A")))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewFinder(nil).Find(ctx, []Entry{Inspect(dir)}, mustFilter(t, "*"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFinder_Prefetch(t *testing.T) {
	dir := t.TempDir()
	var entries []Entry
	for _, name := range []string{"a", "b", "c"} {
		jar := testutil.WriteJar(t, filepath.Join(dir, name+".jar"), testutil.ClassSet(testutil.NewClass(name+"/X")), nil)
		entries = append(entries, Inspect(jar))
	}
	broken := testutil.WriteFile(t, dir, "broken.jar", "nope")
	entries = append(entries, Entry{Path: broken, Kind: KindArchive})

	f := NewFinder(nil)
	err := f.Prefetch(context.Background(), entries, parallel.DefaultPoolConfig())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrIO))
	assert.Equal(t, 3, f.Stats().ArchivesListed)

	// Listings are reused: a second prefetch only retries the broken archive.
	_ = f.Prefetch(context.Background(), entries, parallel.DefaultPoolConfig())
	assert.Equal(t, 3, f.Stats().ArchivesListed)

	cd, ok, err := f.FindOne(context.Background(), entries[:3], "b/X")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "b/X", cd.Name)
	assert.Equal(t, 3, f.Stats().ArchivesListed)
}
