package formatter

import (
	"io"

	"github.com/depdiscover/pkg/model"
	"github.com/depdiscover/pkg/writer"
)

type jsonName struct {
	Name string `json:"name"`
}

type jsonRequire struct {
	Types   []jsonName `json:"type,omitempty"`
	Fields  []jsonName `json:"field,omitempty"`
	Methods []jsonName `json:"method,omitempty"`
	Natives []jsonName `json:"native,omitempty"`
}

type jsonDocument struct {
	Require jsonRequire `json:"require"`
}

// JSONWriter writes {"require":{"type":[{"name":...}],...}}. Empty groups
// are omitted.
type JSONWriter struct{}

// Formats returns the format names this writer handles.
func (w *JSONWriter) Formats() []string {
	return []string{FormatJSON}
}

// Naming returns JavaNames.
func (w *JSONWriter) Naming() Naming {
	return JavaNames
}

// Write renders the document, indented.
func (w *JSONWriter) Write(out io.Writer, req model.Requirements) error {
	doc := jsonDocument{Require: jsonRequire{
		Types:   names(req.Types),
		Fields:  names(req.Fields),
		Methods: names(req.Methods),
		Natives: names(req.Natives),
	}}
	return writer.NewPrettyJSONWriter[jsonDocument]().Write(doc, out)
}

func names(in []string) []jsonName {
	if len(in) == 0 {
		return nil
	}
	out := make([]jsonName, len(in))
	for i, n := range in {
		out[i] = jsonName{Name: n}
	}
	return out
}
