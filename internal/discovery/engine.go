// Package discovery computes the symbolic dependencies that escape a set of
// class files: a worklist walks every method reachable from the entry
// points through primary classes, and a resolver classifies each referenced
// type, method and field as found in the primary classpath, found in the
// secondary classpath, or not found.
package discovery

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"

	"github.com/depdiscover/internal/classfile"
	"github.com/depdiscover/internal/classpath"
	"github.com/depdiscover/pkg/filter"
	"github.com/depdiscover/pkg/telemetry"
	"github.com/depdiscover/pkg/utils"
)

// ClassFinder finds classes by filter and by exact name.
type ClassFinder interface {
	ClassSupplier
	Find(ctx context.Context, entries []classpath.Entry, flt filter.Filter) (*classpath.ClassSet, error)
}

// Request describes one analysis run.
type Request struct {
	Primary     *classpath.Classpath
	Secondary   *classpath.Classpath
	EntryPoints []string
}

// Stats summarizes the work of a run.
type Stats struct {
	EntryClasses int
	Enqueued     int
	Analyzed     int
	Duplicates   int
	Cache        CacheStats
}

// Engine runs the worklist analysis.
type Engine struct {
	finder    ClassFinder
	logger    utils.Logger
	maxDepth  int
	extractor Extractor
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(logger utils.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithMaxHierarchyDepth bounds hierarchy walks.
func WithMaxHierarchyDepth(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxDepth = n
		}
	}
}

// NewEngine creates an engine reading classes through finder.
func NewEngine(finder ClassFinder, opts ...Option) *Engine {
	e := &Engine{
		finder:   finder,
		logger:   &utils.NullLogger{},
		maxDepth: DefaultMaxHierarchyDepth,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run analyzes req. The result is nil when a fatal diagnostic was recorded.
// The error is non-nil only when ctx ends before the run completes.
func (e *Engine) Run(ctx context.Context, req Request) (*Result, *Diagnostics, error) {
	diag := NewDiagnostics()

	if req.Primary == nil || len(req.Primary.Entries) == 0 {
		diag.MissingClasspath()
		return nil, diag, nil
	}
	checkEntries(req.Primary, diag)
	checkEntries(req.Secondary, diag)
	if len(req.EntryPoints) == 0 {
		diag.MissingEntryPoint()
		return nil, diag, nil
	}

	worklist := NewWorklist()
	cache := NewDescriptorCache(e.finder)
	resolver := NewResolver(req.Primary, req.Secondary, cache, worklist, diag)
	resolver.SetMaxHierarchyDepth(e.maxDepth)

	entryClasses, err := e.seed(ctx, req, cache, resolver, worklist, diag)
	if err != nil || diag.HasError() {
		return nil, diag, err
	}

	stats, err := e.analyze(ctx, resolver, worklist, diag)
	if err != nil || diag.HasError() {
		return nil, diag, err
	}
	stats.EntryClasses = entryClasses
	stats.Cache = cache.Stats()

	res := resolver.Result()
	res.Stats = stats
	e.logger.Debug("Analyzed %d methods (%d duplicates), %d types, %d methods, %d fields",
		stats.Analyzed, stats.Duplicates, len(res.Types), len(res.Methods), len(res.Fields))
	return res, diag, nil
}

func checkEntries(cp *classpath.Classpath, diag *Diagnostics) {
	if cp == nil {
		return
	}
	for _, entry := range cp.Entries {
		switch entry.Kind {
		case classpath.KindMissing:
			diag.PathDoesNotExist(entry.Path)
		case classpath.KindInvalid:
			diag.InvalidClasspath(entry.Path)
		}
	}
}

// seed finds the entry classes, registers their supertypes and enqueues all
// their methods. It returns the number of entry classes.
func (e *Engine) seed(ctx context.Context, req Request, cache *DescriptorCache, resolver *Resolver,
	worklist *Worklist, diag *Diagnostics) (int, error) {
	ctx, span := telemetry.StartSpan(ctx, "discover.seed",
		attribute.StringSlice("entry_points", req.EntryPoints))
	defer span.End()

	entries := req.Primary.Usable()
	seen := make(map[string]bool)
	var classes []*classfile.ClassDescriptor
	for _, pattern := range req.EntryPoints {
		flt, err := filter.ParsePattern(pattern)
		if err != nil {
			e.logger.Warn("Ignoring entry point %q: %v", pattern, err)
			continue
		}
		set, err := e.finder.Find(ctx, entries, flt)
		if err != nil {
			return 0, ioFailure(ctx, diag, err)
		}
		for _, name := range set.Names() {
			if seen[name] {
				continue
			}
			seen[name] = true
			cd, _ := set.Get(name)
			classes = append(classes, cd)
		}
	}
	if len(classes) == 0 {
		diag.NoMatchingEntryPoint(req.EntryPoints, req.Primary.String())
		return 0, nil
	}

	for _, cd := range classes {
		cache.Put(req.Primary, cd)
	}
	for _, cd := range classes {
		supers := cd.Interfaces
		if cd.SuperName != "" {
			supers = append([]string{cd.SuperName}, supers...)
		}
		for _, name := range supers {
			if _, err := resolver.AddHierarchyType(ctx, cd.Name, name); err != nil {
				return 0, ioFailure(ctx, diag, err)
			}
		}
		for _, m := range cd.Methods {
			worklist.Push(&AnalyzedMethod{Class: cd, Method: m})
		}
	}
	span.SetAttributes(attribute.Int("entry_classes", len(classes)))
	e.logger.Debug("Seeded %d entry classes, %d methods", len(classes), worklist.Len())
	return len(classes), nil
}

type analyzedKey struct {
	class  *classfile.ClassDescriptor
	method *classfile.Member
}

// analyze drains the worklist. Each distinct method is extracted once even
// when it was enqueued several times.
func (e *Engine) analyze(ctx context.Context, resolver *Resolver, worklist *Worklist, diag *Diagnostics) (Stats, error) {
	ctx, span := telemetry.StartSpan(ctx, "discover.analyze")
	defer span.End()

	var stats Stats
	done := make(map[analyzedKey]bool)
	for {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		item, ok := worklist.Next()
		if !ok {
			break
		}
		key := analyzedKey{class: item.Class, method: item.Method}
		if done[key] {
			stats.Duplicates++
			continue
		}
		done[key] = true
		stats.Analyzed++

		sink := &resolverSink{ctx: ctx, resolver: resolver, caller: item}
		if err := e.extractor.Extract(item.Class, item.Method, sink); err != nil {
			if !errors.Is(err, ErrMalformedCode) {
				return stats, ioFailure(ctx, diag, err)
			}
			diag.MalformedCode(item.String(), err)
		}
		if item.Method.IsNative() {
			if _, err := resolver.AddNativeMethod(ctx, item.Class, item.Method); err != nil {
				return stats, ioFailure(ctx, diag, err)
			}
		}
	}
	stats.Enqueued = worklist.Len()

	types, methods, fields := resolver.Counts()
	span.SetAttributes(
		attribute.Int("methods_analyzed", stats.Analyzed),
		attribute.Int("types", types),
		attribute.Int("methods", methods),
		attribute.Int("fields", fields),
	)
	return stats, nil
}

// ioFailure records err as a fatal I/O diagnostic, unless the run was
// cancelled, in which case the context error is returned instead.
func ioFailure(ctx context.Context, diag *Diagnostics, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	diag.UnexpectedIOError(err)
	return nil
}

// resolverSink forwards extracted references to the resolver with the
// analyzed method as caller.
type resolverSink struct {
	ctx      context.Context
	resolver *Resolver
	caller   *AnalyzedMethod
}

func (s *resolverSink) TypeRef(name string) error {
	_, err := s.resolver.AddType(s.ctx, s.caller, name)
	return err
}

func (s *resolverSink) MethodRef(ref classfile.MemberRef) error {
	_, err := s.resolver.AddMethod(s.ctx, s.caller, ref)
	return err
}

func (s *resolverSink) FieldRef(ref classfile.MemberRef) error {
	_, err := s.resolver.AddField(s.ctx, s.caller, ref)
	return err
}
