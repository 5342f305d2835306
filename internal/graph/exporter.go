// Package graph exports discovery reports to a Neo4j property graph.
package graph

import (
	"context"
	"fmt"
	"strings"

	"github.com/depdiscover/pkg/model"
	"github.com/depdiscover/pkg/utils"
)

// DefaultBatchSize is the number of rows sent per UNWIND statement.
const DefaultBatchSize = 500

// CypherRunner executes a single Cypher statement.
type CypherRunner interface {
	Run(ctx context.Context, cypher string, params map[string]any) error
}

// Stats counts what an export sent to the graph.
type Stats struct {
	Types      int
	Methods    int
	Fields     int
	Edges      int
	Statements int
}

// Exporter upserts the dependencies of a report as nodes and the recorded
// provenance as relationships.
//
// Nodes: (:DiscoveryRun {run_id}), (:JavaType {name}),
// (:JavaMethod {key}) and (:JavaField {key}).
// Relationships: run REQUIRES dependency, type DECLARES member,
// method CALLS method, method ACCESSES field, method REFERENCES type and
// type USES type for supertypes.
type Exporter struct {
	runner    CypherRunner
	batchSize int
	logger    utils.Logger
}

// Option configures an Exporter.
type Option func(*Exporter)

// WithBatchSize sets the number of rows per statement.
func WithBatchSize(n int) Option {
	return func(e *Exporter) {
		if n > 0 {
			e.batchSize = n
		}
	}
}

// WithLogger sets the exporter logger.
func WithLogger(logger utils.Logger) Option {
	return func(e *Exporter) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewExporter creates an exporter writing through runner.
func NewExporter(runner CypherRunner, opts ...Option) *Exporter {
	e := &Exporter{
		runner:    runner,
		batchSize: DefaultBatchSize,
		logger:    &utils.NullLogger{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

var indexes = []string{
	"CREATE INDEX java_type_name IF NOT EXISTS FOR (n:JavaType) ON (n.name)",
	"CREATE INDEX java_method_key IF NOT EXISTS FOR (n:JavaMethod) ON (n.key)",
	"CREATE INDEX java_field_key IF NOT EXISTS FOR (n:JavaField) ON (n.key)",
	"CREATE INDEX discovery_run_id IF NOT EXISTS FOR (n:DiscoveryRun) ON (n.run_id)",
}

// CreateIndexes ensures the lookup indexes exist.
func (e *Exporter) CreateIndexes(ctx context.Context) error {
	for _, q := range indexes {
		if err := e.runner.Run(ctx, q, nil); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}
	return nil
}

// CleanRun removes a previous export of the run. Shared type and member
// nodes are kept.
func (e *Exporter) CleanRun(ctx context.Context, runUUID string) error {
	return e.runner.Run(ctx,
		"MATCH (r:DiscoveryRun {run_id: $run_id}) DETACH DELETE r",
		map[string]any{"run_id": runUUID})
}

// Export writes the report. The statements are idempotent, so exporting the
// same report twice leaves the graph unchanged.
func (e *Exporter) Export(ctx context.Context, report *model.Report) (*Stats, error) {
	stats := &Stats{}
	run := report.Run
	e.logger.Info("Exporting run %s to graph (%d dependencies)", run.RunUUID, len(report.Dependencies))

	if err := e.run(ctx, stats,
		`MERGE (r:DiscoveryRun {run_id: $run_id})
		 SET r.status = $status, r.create_time = $create_time,
		     r.types = $types, r.methods = $methods, r.fields = $fields`,
		map[string]any{
			"run_id":      run.RunUUID,
			"status":      run.Status.String(),
			"create_time": run.CreateTime.UTC().Format("2006-01-02T15:04:05Z"),
			"types":       run.Counts.Types,
			"methods":     run.Counts.Methods,
			"fields":      run.Counts.Fields,
		}); err != nil {
		return stats, err
	}

	var types, methods, fields []map[string]any
	var calls, accesses, references, uses []map[string]any
	for _, d := range report.Dependencies {
		switch d.Kind {
		case model.KindType:
			stats.Types++
			types = append(types, map[string]any{
				"name":      d.Owner,
				"printable": d.Printable,
				"state":     d.State,
			})
			for _, caller := range d.Callers {
				references = append(references, callerRow(caller, d.Owner))
			}
			for _, user := range d.Users {
				uses = append(uses, edgeRow(user, d.Owner))
			}
		case model.KindMethod:
			stats.Methods++
			key := MethodKey(d.Owner, d.Name, d.Descriptor)
			methods = append(methods, map[string]any{
				"key":        key,
				"owner":      d.Owner,
				"name":       d.Name,
				"descriptor": d.Descriptor,
				"printable":  d.Printable,
				"state":      d.State,
				"native":     d.Native,
				"interface":  d.Interface,
			})
			for _, caller := range d.Callers {
				calls = append(calls, callerRow(caller, key))
			}
		case model.KindField:
			stats.Fields++
			key := FieldKey(d.Owner, d.Name, d.Descriptor)
			fields = append(fields, map[string]any{
				"key":       key,
				"owner":     d.Owner,
				"name":      d.Name,
				"type":      d.Descriptor,
				"printable": d.Printable,
				"state":     d.State,
			})
			for _, caller := range d.Callers {
				accesses = append(accesses, callerRow(caller, key))
			}
		}
	}

	steps := []struct {
		name   string
		cypher string
		rows   []map[string]any
		edges  bool
	}{
		{"types", upsertTypes, types, false},
		{"methods", upsertMethods, methods, false},
		{"fields", upsertFields, fields, false},
		{"references", mergeReferences, references, true},
		{"uses", mergeUses, uses, true},
		{"calls", mergeCalls, calls, true},
		{"accesses", mergeAccesses, accesses, true},
	}
	for _, step := range steps {
		if len(step.rows) == 0 {
			continue
		}
		e.logger.Debug("Loading %d %s...", len(step.rows), step.name)
		for _, batch := range chunk(step.rows, e.batchSize) {
			params := map[string]any{"run_id": run.RunUUID, "batch": batch}
			if err := e.run(ctx, stats, step.cypher, params); err != nil {
				return stats, fmt.Errorf("failed to load %s: %w", step.name, err)
			}
		}
		if step.edges {
			stats.Edges += len(step.rows)
		}
	}

	e.logger.Info("Graph export finished: %d types, %d methods, %d fields, %d edges",
		stats.Types, stats.Methods, stats.Fields, stats.Edges)
	return stats, nil
}

func (e *Exporter) run(ctx context.Context, stats *Stats, cypher string, params map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	stats.Statements++
	return e.runner.Run(ctx, cypher, params)
}

const upsertTypes = `UNWIND $batch AS row
	MERGE (t:JavaType {name: row.name})
	SET t.printable = row.printable
	WITH t, row
	MATCH (r:DiscoveryRun {run_id: $run_id})
	MERGE (r)-[q:REQUIRES]->(t)
	SET q.state = row.state`

const upsertMethods = `UNWIND $batch AS row
	MERGE (m:JavaMethod {key: row.key})
	SET m.owner = row.owner, m.name = row.name, m.descriptor = row.descriptor,
	    m.printable = row.printable, m.native = row.native, m.interface = row.interface
	MERGE (t:JavaType {name: row.owner})
	MERGE (t)-[:DECLARES]->(m)
	WITH m, row
	MATCH (r:DiscoveryRun {run_id: $run_id})
	MERGE (r)-[q:REQUIRES]->(m)
	SET q.state = row.state`

const upsertFields = `UNWIND $batch AS row
	MERGE (f:JavaField {key: row.key})
	SET f.owner = row.owner, f.name = row.name, f.type = row.type, f.printable = row.printable
	MERGE (t:JavaType {name: row.owner})
	MERGE (t)-[:DECLARES]->(f)
	WITH f, row
	MATCH (r:DiscoveryRun {run_id: $run_id})
	MERGE (r)-[q:REQUIRES]->(f)
	SET q.state = row.state`

const mergeReferences = `UNWIND $batch AS row
	MERGE (c:JavaMethod {key: row.from})
	ON CREATE SET c.owner = row.owner
	WITH c, row
	MATCH (t:JavaType {name: row.to})
	MERGE (c)-[:REFERENCES]->(t)`

const mergeUses = `UNWIND $batch AS row
	MERGE (u:JavaType {name: row.from})
	WITH u, row
	MATCH (t:JavaType {name: row.to})
	MERGE (u)-[:USES]->(t)`

const mergeCalls = `UNWIND $batch AS row
	MERGE (c:JavaMethod {key: row.from})
	ON CREATE SET c.owner = row.owner
	WITH c, row
	MATCH (m:JavaMethod {key: row.to})
	MERGE (c)-[:CALLS]->(m)`

const mergeAccesses = `UNWIND $batch AS row
	MERGE (c:JavaMethod {key: row.from})
	ON CREATE SET c.owner = row.owner
	WITH c, row
	MATCH (f:JavaField {key: row.to})
	MERGE (c)-[:ACCESSES]->(f)`

// MethodKey returns the node key of a method: owner, a dot, the name and
// the descriptor. It matches the caller signatures stored in reports.
func MethodKey(owner, name, descriptor string) string {
	return owner + "." + name + descriptor
}

// FieldKey returns the node key of a field. The type is part of the key:
// class files may declare fields differing only in type.
func FieldKey(owner, name, descriptor string) string {
	return owner + "." + name + ":" + descriptor
}

// CallerOwner returns the declaring class of a caller signature.
func CallerOwner(signature string) string {
	if i := strings.IndexByte(signature, '('); i >= 0 {
		signature = signature[:i]
	}
	if i := strings.LastIndexByte(signature, '.'); i >= 0 {
		return signature[:i]
	}
	return signature
}

func edgeRow(from, to string) map[string]any {
	return map[string]any{"from": from, "to": to}
}

func callerRow(signature, to string) map[string]any {
	row := edgeRow(signature, to)
	row["owner"] = CallerOwner(signature)
	return row
}

func chunk(rows []map[string]any, size int) [][]map[string]any {
	if size <= 0 {
		size = DefaultBatchSize
	}
	var out [][]map[string]any
	for start := 0; start < len(rows); start += size {
		end := min(start+size, len(rows))
		out = append(out, rows[start:end])
	}
	return out
}
