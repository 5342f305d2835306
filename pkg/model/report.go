package model

import (
	"encoding/json"
	"fmt"
)

// DependencyKind is the kind of a reported dependency.
type DependencyKind string

const (
	KindType   DependencyKind = "type"
	KindMethod DependencyKind = "method"
	KindField  DependencyKind = "field"
)

// Dependency is the serializable form of one resolved dependency. Names are
// internal (slash separated) names; Printable is the Java form.
type Dependency struct {
	Kind       DependencyKind `json:"kind"`
	Owner      string         `json:"owner"`
	Name       string         `json:"name,omitempty"`
	Descriptor string         `json:"descriptor,omitempty"`
	Printable  string         `json:"printable"`
	State      string         `json:"state"`
	Native     bool           `json:"native,omitempty"`
	Interface  bool           `json:"interface,omitempty"`
	Callers    []string       `json:"callers,omitempty"`
	Users      []string       `json:"users,omitempty"`
}

// Key returns a string identifying the dependency within a report.
func (d Dependency) Key() string {
	switch d.Kind {
	case KindType:
		return string(d.Kind) + ":" + d.Owner
	case KindField:
		return fmt.Sprintf("%s:%s.%s:%s", d.Kind, d.Owner, d.Name, d.Descriptor)
	default:
		return fmt.Sprintf("%s:%s.%s%s", d.Kind, d.Owner, d.Name, d.Descriptor)
	}
}

// IsMissing reports whether the dependency was found nowhere.
func (d Dependency) IsMissing() bool {
	return d.State == "not_found"
}

// Notification is the serializable form of a diagnostic.
type Notification struct {
	Code    string `json:"code"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Fatal   bool   `json:"fatal"`
}

// Requirements lists the printable names a dependency report requires, in
// report order.
type Requirements struct {
	Types   []string `json:"type"`
	Fields  []string `json:"field"`
	Methods []string `json:"method"`
	Natives []string `json:"native"`
}

// Len returns the total number of requirements.
func (r Requirements) Len() int {
	return len(r.Types) + len(r.Fields) + len(r.Methods) + len(r.Natives)
}

// Report is the complete, serializable outcome of a run.
type Report struct {
	Run          Run            `json:"run"`
	Requirements Requirements   `json:"require"`
	Dependencies []Dependency   `json:"dependencies"`
	Diagnostics  []Notification `json:"diagnostics,omitempty"`
}

// Marshal encodes the report as JSON.
func (r *Report) Marshal() ([]byte, error) {
	return json.Marshal(r)
}

// UnmarshalReport decodes a report produced by Marshal.
func UnmarshalReport(data []byte) (*Report, error) {
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to decode report: %w", err)
	}
	return &r, nil
}

// Filter returns the dependencies of the given kind. An empty kind matches
// all. When missingOnly is set only not-found dependencies are returned.
func (r *Report) Filter(kind DependencyKind, missingOnly bool) []Dependency {
	var out []Dependency
	for _, d := range r.Dependencies {
		if kind != "" && d.Kind != kind {
			continue
		}
		if missingOnly && !d.IsMissing() {
			continue
		}
		out = append(out, d)
	}
	return out
}
