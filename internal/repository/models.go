package repository

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/depdiscover/pkg/compression"
	"github.com/depdiscover/pkg/model"
)

// DiscoveryRun represents the discovery_run table.
type DiscoveryRun struct {
	ID               int64           `gorm:"column:id;primaryKey;autoIncrement"`
	RunUUID          string          `gorm:"column:run_uuid;type:varchar(64);uniqueIndex"`
	Status           model.RunStatus `gorm:"column:status"`
	Classpath        JSONField       `gorm:"column:classpath;type:text"`
	AgainstClasspath JSONField       `gorm:"column:against_classpath;type:text"`
	EntryPoints      JSONField       `gorm:"column:entry_points;type:text"`
	OutputFile       string          `gorm:"column:output_file;type:varchar(1024)"`
	OutputFormat     string          `gorm:"column:output_format;type:varchar(16)"`
	Counts           JSONField       `gorm:"column:counts;type:text"`
	Timings          JSONField       `gorm:"column:timings;type:text"`
	Report           []byte          `gorm:"column:report"`
	CreateTime       time.Time       `gorm:"column:create_time"`
	BeginTime        *time.Time      `gorm:"column:begin_time"`
	EndTime          *time.Time      `gorm:"column:end_time"`
}

// TableName returns the table name for DiscoveryRun.
func (DiscoveryRun) TableName() string {
	return "discovery_run"
}

// newRunRow converts a run and its encoded report into a row.
func newRunRow(run *model.Run, report []byte) (*DiscoveryRun, error) {
	row := &DiscoveryRun{
		RunUUID:      run.RunUUID,
		Status:       run.Status,
		OutputFile:   run.OutputFile,
		OutputFormat: run.OutputFormat,
		Report:       report,
		CreateTime:   run.CreateTime,
		BeginTime:    run.BeginTime,
		EndTime:      run.EndTime,
	}
	fields := []struct {
		dst *JSONField
		v   any
	}{
		{&row.Classpath, run.Classpath},
		{&row.AgainstClasspath, run.AgainstClasspath},
		{&row.EntryPoints, run.EntryPoints},
		{&row.Counts, run.Counts},
		{&row.Timings, run.Timings},
	}
	for _, f := range fields {
		data, err := json.Marshal(f.v)
		if err != nil {
			return nil, fmt.Errorf("failed to encode run field: %w", err)
		}
		*f.dst = data
	}
	return row, nil
}

// ToModel converts DiscoveryRun to model.Run.
func (r *DiscoveryRun) ToModel() (*model.Run, error) {
	run := &model.Run{
		ID:           r.ID,
		RunUUID:      r.RunUUID,
		Status:       r.Status,
		OutputFile:   r.OutputFile,
		OutputFormat: r.OutputFormat,
		CreateTime:   r.CreateTime,
		BeginTime:    r.BeginTime,
		EndTime:      r.EndTime,
	}
	fields := []struct {
		src JSONField
		v   any
	}{
		{r.Classpath, &run.Classpath},
		{r.AgainstClasspath, &run.AgainstClasspath},
		{r.EntryPoints, &run.EntryPoints},
		{r.Counts, &run.Counts},
		{r.Timings, &run.Timings},
	}
	for _, f := range fields {
		if f.src == nil {
			continue
		}
		if err := json.Unmarshal(f.src, f.v); err != nil {
			return nil, fmt.Errorf("failed to decode run %s: %w", r.RunUUID, err)
		}
	}
	return run, nil
}

// RunDependency represents the run_dependency table.
type RunDependency struct {
	ID         int64     `gorm:"column:id;primaryKey;autoIncrement"`
	RunID      int64     `gorm:"column:run_id;index:idx_run_dependency_kind,priority:1"`
	Kind       string    `gorm:"column:kind;type:varchar(16);index:idx_run_dependency_kind,priority:2"`
	Owner      string    `gorm:"column:owner;type:varchar(512)"`
	Name       string    `gorm:"column:name;type:varchar(255)"`
	Descriptor string    `gorm:"column:descriptor;type:text"`
	Printable  string    `gorm:"column:printable;type:text"`
	State      string    `gorm:"column:state;type:varchar(32)"`
	Native     bool      `gorm:"column:is_native"`
	Interface  bool      `gorm:"column:is_interface"`
	Callers    JSONField `gorm:"column:callers;type:text"`
	Users      JSONField `gorm:"column:users;type:text"`
}

// TableName returns the table name for RunDependency.
func (RunDependency) TableName() string {
	return "run_dependency"
}

func newDependencyRow(runID int64, d model.Dependency) RunDependency {
	row := RunDependency{
		RunID:      runID,
		Kind:       string(d.Kind),
		Owner:      d.Owner,
		Name:       d.Name,
		Descriptor: d.Descriptor,
		Printable:  d.Printable,
		State:      d.State,
		Native:     d.Native,
		Interface:  d.Interface,
	}
	if len(d.Callers) > 0 {
		row.Callers, _ = json.Marshal(d.Callers)
	}
	if len(d.Users) > 0 {
		row.Users, _ = json.Marshal(d.Users)
	}
	return row
}

// ToModel converts RunDependency to model.Dependency.
func (d *RunDependency) ToModel() model.Dependency {
	dep := model.Dependency{
		Kind:       model.DependencyKind(d.Kind),
		Owner:      d.Owner,
		Name:       d.Name,
		Descriptor: d.Descriptor,
		Printable:  d.Printable,
		State:      d.State,
		Native:     d.Native,
		Interface:  d.Interface,
	}
	if d.Callers != nil {
		_ = json.Unmarshal(d.Callers, &dep.Callers)
	}
	if d.Users != nil {
		_ = json.Unmarshal(d.Users, &dep.Users)
	}
	return dep
}

// encodeReport serializes a report, compressed when a codec is given.
func encodeReport(codec *compression.Codec, report *model.Report) ([]byte, error) {
	if codec == nil {
		return report.Marshal()
	}
	return codec.EncodeJSON(report)
}

// decodeReport reverses encodeReport. Uncompressed payloads are accepted
// with or without a codec.
func decodeReport(codec *compression.Codec, data []byte) (*model.Report, error) {
	if codec == nil {
		if compression.IsZstd(data) {
			return nil, errors.New("report is compressed but no codec is configured")
		}
		return model.UnmarshalReport(data)
	}
	var report model.Report
	if err := codec.DecodeJSON(data, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

// JSONField is a custom type for handling JSON columns.
type JSONField []byte

// Value implements driver.Valuer interface.
func (j JSONField) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return string(j), nil
}

// Scan implements sql.Scanner interface.
func (j *JSONField) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}

	switch v := value.(type) {
	case []byte:
		*j = append((*j)[0:0], v...)
		return nil
	case string:
		*j = []byte(v)
		return nil
	default:
		return errors.New("unsupported type for JSONField")
	}
}
