package service

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tmock "github.com/stretchr/testify/mock"

	"github.com/depdiscover/internal/mock"
	"github.com/depdiscover/internal/storage"
	"github.com/depdiscover/internal/testutil"
	"github.com/depdiscover/pkg/config"
	apperrors "github.com/depdiscover/pkg/errors"
	"github.com/depdiscover/pkg/model"
	"github.com/depdiscover/pkg/utils"
)

var start = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

// project lays out classpath/ with app/Main, which calls the missing
// ext/Gone.go()V, and providedClasspath/rt.jar with java/lang/Object.
func project(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	testutil.WriteClassDir(t, filepath.Join(dir, "classpath"), testutil.ClassSet(
		testutil.NewClass("app/Main").
			Method(testutil.AccPublic|testutil.AccStatic, "main", "()V").
			InvokeStatic("ext/Gone", "go", "()V").
			Return().
			Done(),
	))
	testutil.WriteJar(t, filepath.Join(dir, "providedClasspath", "rt.jar"),
		testutil.ClassSet(testutil.JDKObject()), nil)
	return dir
}

func newConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Cache.Dir = filepath.Join(t.TempDir(), "cache")
	cfg.Database.Path = filepath.Join(t.TempDir(), "runs.db")
	return cfg
}

func request(dir string) Request {
	return Request{
		ProjectDir:           dir,
		Classpath:            []string{"classpath"},
		ProvidedClasspathDir: "providedClasspath",
		EntryPoints:          []string{"*"},
		OutputFile:           "result.txt",
		OutputFormat:         "text",
	}
}

func newService(t *testing.T, cfg *config.Config, opts ...Option) (*Service, *bytes.Buffer) {
	t.Helper()
	var stdout bytes.Buffer
	base := []Option{
		WithClock(utils.NewMockClock(start)),
		WithStdout(&stdout),
		WithIDGenerator(func() string { return "run-1" }),
	}
	return New(cfg, append(base, opts...)...), &stdout
}

func TestService_Run(t *testing.T) {
	dir := project(t)
	svc, stdout := newService(t, newConfig(t))

	outcome, err := svc.Run(context.Background(), request(dir))
	require.NoError(t, err)

	assert.Equal(t, 0, outcome.ExitCode())
	require.NotNil(t, outcome.Result)
	assert.Equal(t, filepath.Join(dir, "result.txt"), outcome.OutputPath)
	assert.Empty(t, stdout.String())

	content := testutil.ReadFile(t, outcome.OutputPath)
	assert.Contains(t, content, "ext/Gone\n")
	assert.Contains(t, content, "ext/Gone.go()V\n")
	assert.NotContains(t, content, "java/lang/Object")

	run := outcome.Report.Run
	assert.Equal(t, "run-1", run.RunUUID)
	assert.Equal(t, model.RunStatusCompleted, run.Status)
	assert.Equal(t, "text", run.OutputFormat)
	assert.Equal(t, outcome.OutputPath, run.OutputFile)
	assert.Equal(t, start, run.CreateTime)
	assert.Equal(t, []string{filepath.Join(dir, "classpath")}, run.Classpath)
	assert.Equal(t, []string{filepath.Join(dir, "providedClasspath", "rt.jar")}, run.AgainstClasspath)
	assert.Equal(t, 1, run.Counts.EntryClasses)
	assert.Equal(t, 1, run.Counts.MissingMethods)
	assert.Contains(t, run.Timings, "analyze")
	assert.Contains(t, run.Timings, "write")

	assert.Zero(t, outcome.RunID)
	assert.Nil(t, outcome.GraphStats)
	assert.Empty(t, outcome.PublishedURL)
}

func TestService_Run_Formats(t *testing.T) {
	dir := project(t)
	svc, _ := newService(t, newConfig(t))

	req := request(dir)
	req.OutputFormat = "JSON"
	req.OutputFile = "out/result.json"
	outcome, err := svc.Run(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "json", outcome.Report.Run.OutputFormat)
	assert.Contains(t, testutil.ReadFile(t, outcome.OutputPath), `"require"`)

	req.OutputFormat = "yaml"
	req.OutputFile = "result.unknown"
	outcome, err = svc.Run(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "text", outcome.Report.Run.OutputFormat)
}

func TestService_Run_NoMatchingEntryPoint(t *testing.T) {
	dir := project(t)
	runs := &mock.MockRunStore{}
	runs.On("SaveRun", tmock.Anything, tmock.MatchedBy(func(r *model.Report) bool {
		return r.Run.Status == model.RunStatusFailed && len(r.Diagnostics) == 1
	})).Return(int64(3), nil)
	svc, _ := newService(t, newConfig(t), WithRunStore(runs))

	req := request(dir)
	req.EntryPoints = []string{"zzz"}
	req.Persist = true
	outcome, err := svc.Run(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, 1, outcome.ExitCode())
	assert.Nil(t, outcome.Result)
	assert.Empty(t, outcome.OutputPath)
	assert.False(t, testutil.FileExists(t, filepath.Join(dir, "result.txt")))
	require.Len(t, outcome.Report.Diagnostics, 1)
	assert.Equal(t, "M5", outcome.Report.Diagnostics[0].Code)
	assert.Equal(t, int64(3), outcome.RunID)
	runs.AssertExpectations(t)
}

func TestService_Run_UnwritableOutputFallsBackToStdout(t *testing.T) {
	dir := project(t)
	blocker := testutil.WriteFile(t, dir, "blocker", "x")
	svc, stdout := newService(t, newConfig(t))

	req := request(dir)
	req.OutputFile = filepath.Join(blocker, "result.txt")
	outcome, err := svc.Run(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, 0, outcome.ExitCode())
	assert.Empty(t, outcome.OutputPath)
	assert.Contains(t, stdout.String(), "ext/Gone.go()V")
}

func TestService_Run_ProvidedZip(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteClassDir(t, filepath.Join(dir, "classpath"), testutil.ClassSet(
		testutil.NewClass("app/Main").Method(testutil.AccPublic, "run", "()V").Return().Done(),
	))
	jar := testutil.WriteJar(t, filepath.Join(t.TempDir(), "rt.jar"), testutil.ClassSet(testutil.JDKObject()), nil)
	testutil.WriteJar(t, filepath.Join(dir, "provided.zip"), nil,
		map[string]string{"lib/rt.jar": testutil.ReadFile(t, jar)})

	cfg := newConfig(t)
	svc, _ := newService(t, cfg)
	req := request(dir)
	req.ProvidedClasspathDir = "provided.zip"
	outcome, err := svc.Run(context.Background(), req)
	require.NoError(t, err)

	require.Len(t, outcome.Report.Run.AgainstClasspath, 1)
	assert.Contains(t, outcome.Report.Run.AgainstClasspath[0], cfg.Cache.Dir)
	assert.Equal(t, 0, outcome.Report.Run.Counts.MissingTypes)
}

func TestService_Run_RepositoryDir(t *testing.T) {
	dir := project(t)
	repo := t.TempDir()
	testutil.WriteJar(t, filepath.Join(repo, "modules", "gone.jar"), testutil.ClassSet(
		testutil.NewClass("ext/Gone").Method(testutil.AccPublic|testutil.AccStatic, "go", "()V").Return().Done(),
	), nil)

	svc, _ := newService(t, newConfig(t))
	req := request(dir)
	req.Repository = storage.Source{Kind: storage.SourceDir, Location: repo}
	outcome, err := svc.Run(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, 0, outcome.Report.Run.Counts.MissingMethods)
	assert.Contains(t, outcome.Report.Run.AgainstClasspath, filepath.Join(repo, "modules", "gone.jar"))
	assert.Empty(t, testutil.ReadFile(t, outcome.OutputPath))
}

func TestService_Run_MissingRepository(t *testing.T) {
	dir := project(t)
	svc, _ := newService(t, newConfig(t))

	req := request(dir)
	req.Repository = storage.Source{Kind: storage.SourceFile, Location: filepath.Join(dir, "nope.zip")}
	_, err := svc.Run(context.Background(), req)
	require.Error(t, err)
}

func TestService_Run_Deliver(t *testing.T) {
	dir := project(t)
	cfg := newConfig(t)
	cfg.Storage.PublishPrefix = "results"

	runs := &mock.MockRunStore{}
	runs.ExpectSaveRun(42, nil)
	store := &mock.MockStorage{}
	store.ExpectPublish("results/run-1/result.txt", nil)
	store.On("URL", "results/run-1/result.txt").Return("https://bucket/results/run-1/result.txt")
	cypher := &mock.MockCypherRunner{}
	cypher.ExpectAnyRun(nil)

	svc, _ := newService(t, cfg, WithRunStore(runs), WithPublisher(store), WithCypherRunner(cypher))
	req := request(dir)
	req.Persist = true
	req.ExportGraph = true
	outcome, err := svc.Run(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, int64(42), outcome.RunID)
	assert.Equal(t, int64(42), outcome.Report.Run.ID)
	assert.Equal(t, "https://bucket/results/run-1/result.txt", outcome.PublishedURL)
	require.NotNil(t, outcome.GraphStats)
	assert.Equal(t, 1, outcome.GraphStats.Methods)

	runs.AssertExpectations(t)
	store.AssertExpectations(t)
	cypher.AssertExpectations(t)
}

func TestService_Run_DeliverFailures(t *testing.T) {
	dir := project(t)
	cfg := newConfig(t)

	runs := &mock.MockRunStore{}
	runs.ExpectSaveRun(0, errors.New("database is locked"))
	cypher := &mock.MockCypherRunner{}
	cypher.ExpectAnyRun(errors.New("neo4j unavailable"))

	svc, _ := newService(t, cfg, WithRunStore(runs), WithCypherRunner(cypher))
	req := request(dir)
	req.Persist = true
	req.ExportGraph = true
	outcome, err := svc.Run(context.Background(), req)

	require.Error(t, err)
	assert.True(t, apperrors.IsDatabaseError(err))
	require.NotNil(t, outcome)
	assert.Equal(t, 0, outcome.ExitCode())
	assert.FileExists(t, outcome.OutputPath)
	cypher.AssertCalled(t, "Run", tmock.Anything, tmock.Anything, tmock.Anything)
}

func TestService_Run_GraphFailureIsExportError(t *testing.T) {
	dir := project(t)
	cypher := &mock.MockCypherRunner{}
	cypher.ExpectAnyRun(errors.New("neo4j unavailable"))

	svc, _ := newService(t, newConfig(t), WithCypherRunner(cypher))
	req := request(dir)
	req.ExportGraph = true
	outcome, err := svc.Run(context.Background(), req)

	require.Error(t, err)
	assert.True(t, apperrors.IsExportError(err))
	assert.False(t, apperrors.IsDatabaseError(err))
	require.NotNil(t, outcome)
	assert.Nil(t, outcome.GraphStats)
	assert.FileExists(t, outcome.OutputPath)
}

func TestService_Run_PersistToSQLite(t *testing.T) {
	dir := project(t)
	cfg := newConfig(t)
	svc, _ := newService(t, cfg)

	req := request(dir)
	req.Persist = true
	outcome, err := svc.Run(context.Background(), req)
	require.NoError(t, err)
	assert.Positive(t, outcome.RunID)

	info, err := os.Stat(cfg.DatabasePath())
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func TestService_Run_CleanCache(t *testing.T) {
	dir := project(t)
	cfg := newConfig(t)
	stale := testutil.WriteFile(t, cfg.Cache.Dir, "stale", "old")
	svc, _ := newService(t, cfg)

	req := request(dir)
	req.CleanCache = true
	_, err := svc.Run(context.Background(), req)
	require.NoError(t, err)
	assert.NoFileExists(t, stale)
}

func TestService_Run_Canceled(t *testing.T) {
	dir := project(t)
	svc, _ := newService(t, newConfig(t))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := svc.Run(ctx, request(dir))
	require.Error(t, err)
	assert.True(t, apperrors.IsAnalysisError(err))
}

func TestRequestFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Discovery.ProjectDir = "/work"
	cfg.Repository.Dir = "/repo"
	cfg.Database.Enabled = true

	req, err := RequestFromConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, "/work", req.ProjectDir)
	assert.Equal(t, []string{"classpath"}, req.Classpath)
	assert.Equal(t, []string{"*"}, req.EntryPoints)
	assert.Equal(t, storage.SourceDir, req.Repository.Kind)
	assert.True(t, req.Persist)
	assert.False(t, req.ExportGraph)
	assert.Equal(t, filepath.Join("/work", "classpath"), req.resolve("classpath"))
	assert.Equal(t, "/abs", req.resolve("/abs"))

	cfg.Repository.URL = "https://example.com/repo.zip"
	_, err = RequestFromConfig(cfg)
	assert.Error(t, err)
}

func TestOutcome_ExitCode(t *testing.T) {
	assert.Equal(t, 0, (&Outcome{}).ExitCode())
}
