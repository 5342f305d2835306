package storage

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"
	"github.com/zeebo/blake3"

	apperrors "github.com/depdiscover/pkg/errors"
	"github.com/depdiscover/pkg/utils"
)

// SourceKind tells where a repository comes from.
type SourceKind int

const (
	SourceNone SourceKind = iota
	SourceDir
	SourceFile
	SourceURL
)

// String returns the option name of the kind.
func (k SourceKind) String() string {
	switch k {
	case SourceDir:
		return "dir"
	case SourceFile:
		return "file"
	case SourceURL:
		return "url"
	default:
		return "none"
	}
}

// Source locates a module repository.
type Source struct {
	Kind     SourceKind
	Location string
}

// ParseSource builds a source from the mutually exclusive url, dir and file
// options. The value "none" and all-empty options select no repository.
func ParseSource(rawURL, dir, file string) (Source, error) {
	var set []Source
	if rawURL != "" {
		set = append(set, Source{Kind: SourceURL, Location: rawURL})
	}
	if dir != "" {
		set = append(set, Source{Kind: SourceDir, Location: dir})
	}
	if file != "" {
		set = append(set, Source{Kind: SourceFile, Location: file})
	}
	switch {
	case len(set) > 1:
		return Source{}, apperrors.New(apperrors.CodeInvalidInput,
			"repository url, dir and file options are mutually exclusive")
	case len(set) == 0 || set[0].Location == "none":
		return Source{}, nil
	}
	return set[0], nil
}

// String returns "kind:location".
func (s Source) String() string {
	if s.Kind == SourceNone {
		return SourceNone.String()
	}
	return s.Kind.String() + ":" + s.Location
}

const (
	downloadsDir  = "downloads"
	cachePrefix   = "dd-"
	archiveSuffix = ".zip"
)

// Fetcher materializes repositories as local directories under a cache
// directory. Archives are extracted once per content hash and downloads are
// kept per URL, so repeated runs reuse earlier work.
type Fetcher struct {
	cacheDir string
	client   *http.Client
	open     Opener
	logger   utils.Logger
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithHTTPClient sets the client used for http and https URLs.
func WithHTTPClient(c *http.Client) FetcherOption {
	return func(f *Fetcher) {
		if c != nil {
			f.client = c
		}
	}
}

// WithOpener sets how object storage URLs are served.
func WithOpener(open Opener) FetcherOption {
	return func(f *Fetcher) {
		f.open = open
	}
}

// WithFetcherLogger sets the logger.
func WithFetcherLogger(logger utils.Logger) FetcherOption {
	return func(f *Fetcher) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// NewFetcher creates a fetcher caching under cacheDir.
func NewFetcher(cacheDir string, opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		cacheDir: cacheDir,
		client:   http.DefaultClient,
		logger:   &utils.NullLogger{},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// CacheDir returns the cache root.
func (f *Fetcher) CacheDir() string {
	return f.cacheDir
}

// Clean removes the whole cache directory.
func (f *Fetcher) Clean() error {
	if f.cacheDir == "" {
		return nil
	}
	if err := os.RemoveAll(f.cacheDir); err != nil {
		return apperrors.Wrap(apperrors.CodeIOError, "failed to clean cache", err)
	}
	f.logger.Info("Removed cache directory %s", f.cacheDir)
	return nil
}

// Resolve returns the directory holding the repository's archives. It
// returns "" for SourceNone.
func (f *Fetcher) Resolve(ctx context.Context, src Source) (string, error) {
	switch src.Kind {
	case SourceNone:
		return "", nil
	case SourceDir:
		f.logger.Debug("Loading repository from directory %s", src.Location)
		info, err := os.Stat(src.Location)
		if err != nil || !info.IsDir() {
			return "", apperrors.Newf(apperrors.CodeInvalidInput,
				"repository directory %s does not exist", src.Location)
		}
		return src.Location, nil
	case SourceFile:
		f.logger.Debug("Loading repository from file %s", src.Location)
		return f.Unpack(src.Location)
	case SourceURL:
		f.logger.Debug("Loading repository from URL %s", src.Location)
		archive, err := f.Download(ctx, src.Location)
		if err != nil {
			return "", err
		}
		return f.Unpack(archive)
	default:
		return "", apperrors.New(apperrors.CodeInvalidInput, "unknown repository source")
	}
}

// Download fetches rawURL into the cache unless it is already there and
// returns the local archive path.
func (f *Fetcher) Download(ctx context.Context, rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", apperrors.Wrap(apperrors.CodeInvalidInput, "invalid repository URL", err)
	}

	dest := filepath.Join(f.cacheDir, downloadsDir, cachePrefix+HashString(rawURL)+archiveSuffix)
	if fileExists(dest) {
		f.logger.Debug("Repository already downloaded in cache: %s", dest)
		return dest, nil
	}

	f.logger.Info("Downloading repository at %s ...", u.Redacted())
	switch u.Scheme {
	case "http", "https":
		err = f.downloadHTTP(ctx, u, dest)
	case "file":
		err = f.copyLocal(u.Path, dest)
	default:
		err = f.downloadObject(ctx, u, dest)
	}
	if err != nil {
		return "", apperrors.Wrap(apperrors.CodeDownloadError,
			fmt.Sprintf("failed to download repository %s", u.Redacted()), err)
	}
	f.logger.Info("Repository downloaded")
	return dest, nil
}

func (f *Fetcher) downloadHTTP(ctx context.Context, u *url.URL, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}
	return copyToFile(dest, resp.Body)
}

func (f *Fetcher) downloadObject(ctx context.Context, u *url.URL, dest string) error {
	if f.open == nil {
		return fmt.Errorf("unsupported URL scheme %q", u.Scheme)
	}
	store, err := f.open(u)
	if err != nil {
		return err
	}
	key := ObjectKey(u)
	ok, err := store.Exists(ctx, key)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("object not found: %s", store.URL(key))
	}
	return store.Fetch(ctx, key, dest)
}

func (f *Fetcher) copyLocal(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	return copyToFile(dest, in)
}

// Unpack makes the archive at path available as a directory in the cache,
// keyed by the archive content. A zip repository is extracted; a single jar
// is copied so that the directory can be scanned like any other repository.
func (f *Fetcher) Unpack(archive string) (string, error) {
	sum, err := HashFile(archive)
	if err != nil {
		return "", apperrors.Wrap(apperrors.CodeIOError,
			fmt.Sprintf("repository file %s is not readable", archive), err)
	}

	target := filepath.Join(f.cacheDir, cachePrefix+sum)
	if dirExists(target) {
		f.logger.Debug("Repository already unpacked in cache: %s", target)
		return target, nil
	}

	if err := os.MkdirAll(f.cacheDir, 0755); err != nil {
		return "", apperrors.Wrap(apperrors.CodeIOError, "failed to create cache directory", err)
	}
	staging, err := os.MkdirTemp(f.cacheDir, ".unpack-*")
	if err != nil {
		return "", apperrors.Wrap(apperrors.CodeIOError, "failed to create staging directory", err)
	}
	defer os.RemoveAll(staging)

	if strings.EqualFold(filepath.Ext(archive), ".jar") {
		err = f.copyLocal(archive, filepath.Join(staging, filepath.Base(archive)))
	} else {
		err = extractZip(archive, staging)
	}
	if err != nil {
		return "", apperrors.Wrap(apperrors.CodeIOError,
			fmt.Sprintf("failed to unpack repository %s", archive), err)
	}

	if err := os.Rename(staging, target); err != nil {
		return "", apperrors.Wrap(apperrors.CodeIOError, "failed to move repository into cache", err)
	}
	f.logger.Debug("Unpacked %s into %s", archive, target)
	return target, nil
}

// extractZip writes every regular entry of the archive below dir. Entries
// escaping dir are rejected.
func extractZip(archive, dir string) error {
	r, err := zip.OpenReader(archive)
	if err != nil {
		return err
	}
	defer r.Close()

	for _, zf := range r.File {
		name := path.Clean(strings.ReplaceAll(zf.Name, "\\", "/"))
		if path.IsAbs(name) || name == ".." || strings.HasPrefix(name, "../") {
			return fmt.Errorf("illegal entry name %q", zf.Name)
		}
		dest := filepath.Join(dir, filepath.FromSlash(name))
		if zf.FileInfo().IsDir() {
			if err := os.MkdirAll(dest, 0755); err != nil {
				return err
			}
			continue
		}
		if err := extractEntry(zf, dest); err != nil {
			return err
		}
	}
	return nil
}

func extractEntry(zf *zip.File, dest string) error {
	rc, err := zf.Open()
	if err != nil {
		return err
	}
	defer rc.Close()
	return copyToFile(dest, rc)
}

// HashString returns the hex BLAKE3 digest of s, shortened to 32 characters.
func HashString(s string) string {
	sum := blake3.Sum256([]byte(s))
	return hex.EncodeToString(sum[:16])
}

// HashFile returns the hex BLAKE3 digest of a file's content, shortened to
// 32 characters.
func HashFile(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	h := blake3.New()
	if _, err := io.Copy(h, file); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)[:16]), nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
