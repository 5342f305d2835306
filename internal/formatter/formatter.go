// Package formatter renders discovery results: the required dependency
// lists in text, xml and json form, the serializable report, and console
// summaries.
package formatter

import (
	"io"
	"strings"

	"github.com/depdiscover/internal/discovery"
	"github.com/depdiscover/pkg/model"
)

// Output format names.
const (
	FormatText = "text"
	FormatXML  = "xml"
	FormatJSON = "json"
)

// DependencyWriter writes the required dependencies of a run.
type DependencyWriter interface {
	// Write renders req to w.
	Write(w io.Writer, req model.Requirements) error

	// Formats returns the format names this writer handles.
	Formats() []string

	// Naming returns how the writer expects dependency names to be spelled.
	Naming() Naming
}

// Naming selects the spelling of dependency names.
type Naming int

const (
	// JavaNames spells names as in Java source: "a.B.run(int)void".
	JavaNames Naming = iota
	// InternalNames keeps class file names: "a/B.run(I)V".
	InternalNames
)

// Registry maps format names to writers.
type Registry struct {
	writers  map[string]DependencyWriter
	fallback DependencyWriter
}

// NewRegistry creates a registry with the text, xml and json writers. Unknown
// formats fall back to text.
func NewRegistry() *Registry {
	r := &Registry{
		writers:  make(map[string]DependencyWriter),
		fallback: &TextWriter{},
	}

	r.Register(r.fallback)
	r.Register(&XMLWriter{})
	r.Register(&JSONWriter{})

	return r
}

// Register registers a writer under each of its format names.
func (r *Registry) Register(w DependencyWriter) {
	for _, f := range w.Formats() {
		r.writers[strings.ToLower(f)] = w
	}
}

// Get returns the writer for a format name, case-insensitively.
func (r *Registry) Get(format string) DependencyWriter {
	if w, ok := r.writers[strings.ToLower(strings.TrimSpace(format))]; ok {
		return w
	}
	return r.fallback
}

// Has reports whether a writer is registered for format.
func (r *Registry) Has(format string) bool {
	_, ok := r.writers[strings.ToLower(strings.TrimSpace(format))]
	return ok
}

// Write renders the requirements of res with the writer for format.
func (r *Registry) Write(w io.Writer, format string, res *discovery.Result) error {
	dw := r.Get(format)
	return dw.Write(w, RequirementsNamed(res, dw.Naming()))
}

// Requirements lists what res requires from its environment with Java names.
func Requirements(res *discovery.Result) model.Requirements {
	return RequirementsNamed(res, JavaNames)
}

// RequirementsNamed lists the missing types, missing fields, missing methods
// and native methods of res, each in result order, spelled per naming.
func RequirementsNamed(res *discovery.Result, naming Naming) model.Requirements {
	var req model.Requirements
	if res == nil {
		return req
	}

	typeName, fieldName, methodName := ClassName, FieldName, MethodName
	if naming == InternalNames {
		typeName = func(name string) string { return name }
		fieldName = func(owner, name string) string { return owner + "." + name }
		methodName = func(owner, name, desc string) string { return owner + "." + name + desc }
	}

	for _, d := range res.MissingTypes() {
		req.Types = append(req.Types, typeName(d.Name))
	}
	for _, d := range res.MissingFields() {
		req.Fields = append(req.Fields, fieldName(d.Key.Owner, d.Key.Name))
	}
	for _, d := range res.MissingMethods() {
		req.Methods = append(req.Methods, methodName(d.Key.Owner, d.Key.Name, d.Key.Descriptor))
	}
	for _, d := range res.NativeMethods() {
		req.Natives = append(req.Natives, methodName(d.Key.Owner, d.Key.Name, d.Key.Descriptor))
	}
	return req
}
