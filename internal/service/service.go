// Package service runs one discovery end to end: it materializes the
// provided classpath, runs the analysis, writes the result and hands the
// report to the optional run store, result publisher and graph exporter.
package service

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/depdiscover/internal/classpath"
	"github.com/depdiscover/internal/discovery"
	"github.com/depdiscover/internal/formatter"
	"github.com/depdiscover/internal/graph"
	"github.com/depdiscover/internal/repository"
	"github.com/depdiscover/internal/storage"
	"github.com/depdiscover/pkg/compression"
	"github.com/depdiscover/pkg/config"
	apperrors "github.com/depdiscover/pkg/errors"
	"github.com/depdiscover/pkg/model"
	"github.com/depdiscover/pkg/parallel"
	"github.com/depdiscover/pkg/telemetry"
	"github.com/depdiscover/pkg/utils"
	"github.com/depdiscover/pkg/writer"
)

// Request describes one discovery run. Relative paths are resolved against
// ProjectDir.
type Request struct {
	ProjectDir           string
	Classpath            []string
	AgainstClasspath     []string
	ProvidedClasspathDir string
	Repository           storage.Source
	EntryPoints          []string
	OutputFile           string
	OutputFormat         string
	CleanCache           bool
	Persist              bool
	ExportGraph          bool
}

// RequestFromConfig builds a request from the discovery, cache, repository,
// database and graph sections.
func RequestFromConfig(cfg *config.Config) (Request, error) {
	src, err := storage.ParseSource(cfg.Repository.URL, cfg.Repository.Dir, cfg.Repository.File)
	if err != nil {
		return Request{}, err
	}
	d := cfg.Discovery
	return Request{
		ProjectDir:           d.ProjectDir,
		Classpath:            d.Classpath,
		AgainstClasspath:     d.AgainstClasspath,
		ProvidedClasspathDir: d.ProvidedClasspathDir,
		Repository:           src,
		EntryPoints:          d.EntryPoints,
		OutputFile:           d.OutputFile,
		OutputFormat:         d.OutputFormat,
		CleanCache:           cfg.Cache.Clean,
		Persist:              cfg.Database.Enabled,
		ExportGraph:          cfg.Graph.Enabled,
	}, nil
}

func (r Request) resolve(p string) string {
	if p == "" || filepath.IsAbs(p) || r.ProjectDir == "" {
		return p
	}
	return filepath.Join(r.ProjectDir, p)
}

// Outcome is the result of a run. Result is nil when a fatal diagnostic was
// recorded.
type Outcome struct {
	Report       *model.Report
	Result       *discovery.Result
	Diagnostics  *discovery.Diagnostics
	OutputPath   string // "" when the result went to stdout or was not written
	PublishedURL string
	RunID        int64 // run store id, 0 when not persisted
	GraphStats   *graph.Stats
}

// ExitCode returns 1 when a fatal diagnostic was recorded, 0 otherwise.
func (o *Outcome) ExitCode() int {
	if o.Diagnostics != nil && o.Diagnostics.HasError() {
		return 1
	}
	return 0
}

// Service runs discoveries.
type Service struct {
	config    *config.Config
	logger    utils.Logger
	clock     utils.Clock
	stdout    io.Writer
	fetcher   *storage.Fetcher
	registry  *formatter.Registry
	runs      repository.RunStore
	publisher storage.Storage
	cypher    graph.CypherRunner
	newID     func() string
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(logger utils.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock sets the clock used for run timestamps and phase timings.
func WithClock(clock utils.Clock) Option {
	return func(s *Service) { s.clock = clock }
}

// WithStdout sets the writer used when the result file cannot be created.
func WithStdout(w io.Writer) Option {
	return func(s *Service) { s.stdout = w }
}

// WithFetcher replaces the repository fetcher.
func WithFetcher(f *storage.Fetcher) Option {
	return func(s *Service) { s.fetcher = f }
}

// WithRunStore uses store instead of opening the configured database.
func WithRunStore(store repository.RunStore) Option {
	return func(s *Service) { s.runs = store }
}

// WithPublisher uses store instead of the configured result storage.
func WithPublisher(store storage.Storage) Option {
	return func(s *Service) { s.publisher = store }
}

// WithCypherRunner uses runner instead of connecting to the configured Neo4j.
func WithCypherRunner(runner graph.CypherRunner) Option {
	return func(s *Service) { s.cypher = runner }
}

// WithIDGenerator sets the run id generator.
func WithIDGenerator(fn func() string) Option {
	return func(s *Service) { s.newID = fn }
}

// New creates a service.
func New(cfg *config.Config, opts ...Option) *Service {
	if cfg == nil {
		cfg = config.Default()
	}
	s := &Service{
		config:   cfg,
		logger:   &utils.NullLogger{},
		clock:    utils.NewRealClock(),
		stdout:   os.Stdout,
		registry: formatter.NewRegistry(),
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.fetcher == nil {
		s.fetcher = storage.NewFetcher(cfg.Cache.Dir,
			storage.WithOpener(storage.ConfigOpener(&cfg.Storage)),
			storage.WithFetcherLogger(s.logger))
	}
	return s
}

// Run performs the discovery. Fatal diagnostics are reported through the
// outcome, not the error. The error reports failures to prepare inputs,
// cancellation, and failures of the persist, publish and graph steps; in the
// latter case the outcome is returned as well.
func (s *Service) Run(ctx context.Context, req Request) (outcome *Outcome, err error) {
	runID := s.newID()
	ctx, span := telemetry.StartSpan(ctx, "discover.run", attribute.String("run_id", runID))
	defer func() { telemetry.EndSpan(span, err) }()

	timer := utils.NewTimer("discover", utils.WithClock(s.clock))
	begin := s.clock.Now()
	run := model.Run{
		RunUUID:      runID,
		Status:       model.RunStatusRunning,
		EntryPoints:  req.EntryPoints,
		OutputFormat: s.registry.Get(req.OutputFormat).Formats()[0],
		CreateTime:   begin,
		BeginTime:    &begin,
	}

	phase := timer.Start("prepare")
	primary, secondary, err := s.prepare(ctx, req)
	phase.Stop()
	if err != nil {
		return nil, err
	}
	run.Classpath = paths(primary)
	run.AgainstClasspath = paths(secondary)

	finder := classpath.NewFinder(s.logger)
	phase = timer.Start("index")
	archives := append(primary.Archives(), secondary.Archives()...)
	pool := parallel.DefaultPoolConfig().WithWorkers(s.config.Discovery.IndexWorkers)
	if err := finder.Prefetch(ctx, archives, pool); err != nil {
		s.logger.Debug("Prefetch: %v", err)
	}
	phase.Stop()

	engine := discovery.NewEngine(finder,
		discovery.WithLogger(s.logger),
		discovery.WithMaxHierarchyDepth(s.config.Discovery.MaxHierarchyDepth))
	phase = timer.Start("analyze")
	res, diag, err := engine.Run(ctx, discovery.Request{
		Primary:     primary,
		Secondary:   secondary,
		EntryPoints: req.EntryPoints,
	})
	phase.Stop()
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeAnalysisError, "discovery interrupted", err)
	}

	report := formatter.BuildReport(res, diag)
	outcome = &Outcome{Report: report, Result: res, Diagnostics: diag}

	if !diag.HasError() {
		phase = timer.Start("write")
		outcome.OutputPath, err = s.write(ctx, req, res)
		phase.Stop()
		if err != nil {
			return nil, err
		}
		run.OutputFile = outcome.OutputPath
	}

	end := s.clock.Now()
	run.EndTime = &end
	run.Status = model.RunStatusCompleted
	if diag.HasError() {
		run.Status = model.RunStatusFailed
	}
	run.Counts = report.Run.Counts
	run.Timings = timer.Milliseconds()
	report.Run = run
	timer.Log(s.logger)

	return outcome, s.deliver(ctx, req, outcome)
}

// prepare builds the primary and secondary classpaths. The primary
// classpath lists each directory followed by the jars below it. The
// secondary classpath is the against classpath followed by the jars of the
// provided classpath directory and of the repository.
func (s *Service) prepare(ctx context.Context, req Request) (*classpath.Classpath, *classpath.Classpath, error) {
	if req.CleanCache {
		s.logger.Info("Cleaning cache %s", s.fetcher.CacheDir())
		if err := s.fetcher.Clean(); err != nil {
			return nil, nil, err
		}
	}

	var primaryPaths []string
	for _, p := range req.Classpath {
		for _, part := range classpath.SplitList(p) {
			part = req.resolve(part)
			if !isDir(part) {
				primaryPaths = append(primaryPaths, part)
				continue
			}
			expanded, err := classpath.ExpandDir(part)
			if err != nil {
				return nil, nil, apperrors.Wrap(apperrors.CodeIOError, "failed to list classpath directory", err)
			}
			primaryPaths = append(primaryPaths, expanded...)
		}
	}

	var secondaryPaths []string
	for _, p := range req.AgainstClasspath {
		for _, part := range classpath.SplitList(p) {
			secondaryPaths = append(secondaryPaths, req.resolve(part))
		}
	}

	provided, err := s.providedDir(req)
	if err != nil {
		return nil, nil, err
	}
	repoDir, err := s.fetcher.Resolve(ctx, req.Repository)
	if err != nil {
		return nil, nil, err
	}
	for _, dir := range []string{provided, repoDir} {
		if !isDir(dir) {
			if dir != "" {
				s.logger.Debug("Skipping provided classpath %s: not a directory", dir)
			}
			continue
		}
		jars, err := classpath.CollectJars(dir)
		if err != nil {
			return nil, nil, apperrors.Wrap(apperrors.CodeIOError, "failed to list provided classpath", err)
		}
		s.logger.Debug("Provided classpath %s: %d jars", dir, len(jars))
		secondaryPaths = append(secondaryPaths, jars...)
	}

	return classpath.New("classpath", primaryPaths), classpath.New("against", secondaryPaths), nil
}

// providedDir returns the provided classpath directory. A zip archive is
// unpacked into the cache first.
func (s *Service) providedDir(req Request) (string, error) {
	dir := req.resolve(req.ProvidedClasspathDir)
	if strings.EqualFold(filepath.Ext(dir), ".zip") && fileExists(dir) {
		s.logger.Debug("Unpacking provided classpath %s", dir)
		return s.fetcher.Unpack(dir)
	}
	return dir, nil
}

// write renders the result. An output file that cannot be created is
// reported and the result goes to stdout instead.
func (s *Service) write(ctx context.Context, req Request, res *discovery.Result) (string, error) {
	_, span := telemetry.StartSpan(ctx, "discover.write")
	var err error
	defer func() { telemetry.EndSpan(span, err) }()

	out, openErr := writer.Open(req.resolve(req.OutputFile), s.stdout)
	if openErr != nil {
		s.logger.Warn("Writing result to stdout: %v", openErr)
	}
	defer out.Close()

	if err = s.registry.Write(out, req.OutputFormat, res); err != nil {
		return "", apperrors.Wrap(apperrors.CodeIOError, "failed to write result", err)
	}
	if err = out.Close(); err != nil {
		return "", apperrors.Wrap(apperrors.CodeIOError, "failed to close result file", err)
	}
	if out.Path != "" {
		s.logger.Info("Result written to %s", out.Path)
	}
	return out.Path, nil
}

// deliver runs the optional persist, publish and graph steps. Every enabled
// step runs; the first failure is returned.
func (s *Service) deliver(ctx context.Context, req Request, outcome *Outcome) error {
	var first error
	keep := func(err error) {
		if err != nil {
			s.logger.Error("%v", err)
			if first == nil {
				first = err
			}
		}
	}

	if req.Persist {
		keep(s.persist(ctx, outcome))
	}
	if s.config.Storage.PublishPrefix != "" && outcome.OutputPath != "" {
		keep(s.publish(ctx, outcome))
	}
	if req.ExportGraph && outcome.Result != nil {
		keep(s.exportGraph(ctx, outcome))
	}
	return first
}

func (s *Service) persist(ctx context.Context, outcome *Outcome) error {
	store := s.runs
	if store == nil {
		repos, closeRuns, err := OpenRunStore(s.config)
		if err != nil {
			return err
		}
		defer closeRuns()
		store = repos.Runs
	}

	id, err := store.SaveRun(ctx, outcome.Report)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeDatabaseError, "failed to persist run", err)
	}
	outcome.RunID = id
	outcome.Report.Run.ID = id
	s.logger.Info("Run %s stored (id %d)", outcome.Report.Run.RunUUID, id)
	return nil
}

// OpenRunStore opens the configured run database. The returned func closes
// the connection and the report codec.
func OpenRunStore(cfg *config.Config) (*repository.Repositories, func(), error) {
	codec, err := compression.NewCodec(compression.ParseLevel(cfg.Database.CompressionLevel))
	if err != nil {
		return nil, nil, apperrors.Wrap(apperrors.CodeDatabaseError, "failed to create report codec", err)
	}
	db := cfg.Database
	repos, err := repository.Open(&repository.DBConfig{
		Type:     db.Type,
		Mode:     repository.Mode(db.Mode),
		Path:     cfg.DatabasePath(),
		Host:     db.Host,
		Port:     db.Port,
		Database: db.Database,
		User:     db.User,
		Password: db.Password,
		MaxConns: db.MaxConns,
	}, codec)
	if err != nil {
		codec.Close()
		return nil, nil, apperrors.Wrap(apperrors.CodeDatabaseError, "failed to open run store", err)
	}
	return repos, func() {
		_ = repos.Close()
		codec.Close()
	}, nil
}

func (s *Service) publish(ctx context.Context, outcome *Outcome) error {
	store := s.publisher
	if store == nil {
		var err error
		if store, err = storage.NewStorage(&s.config.Storage); err != nil {
			return apperrors.Wrap(apperrors.CodeExportError, "failed to open result storage", err)
		}
	}

	key := path.Join(s.config.Storage.PublishPrefix, outcome.Report.Run.RunUUID, filepath.Base(outcome.OutputPath))
	if err := store.Publish(ctx, key, outcome.OutputPath); err != nil {
		return apperrors.Wrap(apperrors.CodeExportError, "failed to publish result", err)
	}
	outcome.PublishedURL = store.URL(key)
	s.logger.Info("Result published to %s", outcome.PublishedURL)
	return nil
}

func (s *Service) exportGraph(ctx context.Context, outcome *Outcome) error {
	runner := s.cypher
	if runner == nil {
		g := s.config.Graph
		neo, err := graph.NewNeo4jRunner(ctx, graph.Config{
			URI:      g.URI,
			User:     g.User,
			Password: g.Password,
			Database: g.Database,
		})
		if err != nil {
			return apperrors.Wrap(apperrors.CodeExportError, "failed to connect to graph database", err)
		}
		defer neo.Close(ctx)
		runner = neo
	}

	exporter := graph.NewExporter(runner,
		graph.WithBatchSize(s.config.Graph.BatchSize),
		graph.WithLogger(s.logger))
	if err := exporter.CreateIndexes(ctx); err != nil {
		return apperrors.Wrap(apperrors.CodeExportError, "failed to prepare graph", err)
	}
	stats, err := exporter.Export(ctx, outcome.Report)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeExportError, "failed to export graph", err)
	}
	outcome.GraphStats = stats
	return nil
}

func paths(cp *classpath.Classpath) []string {
	out := make([]string, 0, len(cp.Entries))
	for _, e := range cp.Entries {
		out = append(out, e.Path)
	}
	return out
}

func isDir(p string) bool {
	if p == "" {
		return false
	}
	info, err := os.Stat(p)
	return err == nil && info.IsDir()
}

func fileExists(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.Mode().IsRegular()
}

// String describes the request for logs.
func (r Request) String() string {
	return fmt.Sprintf("classpath=%v against=%v entry=%v repository=%s",
		r.Classpath, r.AgainstClasspath, r.EntryPoints, r.Repository)
}
