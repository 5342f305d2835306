package formatter

import (
	"bufio"
	"encoding/xml"
	"io"

	"github.com/depdiscover/pkg/model"
)

// XMLWriter writes a <require> document with one empty element per
// requirement, carrying the printable name in its name attribute.
type XMLWriter struct{}

// Formats returns the format names this writer handles.
func (w *XMLWriter) Formats() []string {
	return []string{FormatXML}
}

// Naming returns JavaNames.
func (w *XMLWriter) Naming() Naming {
	return JavaNames
}

// Write renders the document.
func (w *XMLWriter) Write(out io.Writer, req model.Requirements) error {
	bw := bufio.NewWriter(out)
	bw.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	bw.WriteString("<require>\n")
	groups := []struct {
		element string
		names   []string
	}{
		{"type", req.Types},
		{"field", req.Fields},
		{"method", req.Methods},
		{"native", req.Natives},
	}
	for _, g := range groups {
		for _, name := range g.names {
			bw.WriteString("\t<" + g.element + ` name="`)
			if err := xml.EscapeText(bw, []byte(name)); err != nil {
				return err
			}
			bw.WriteString("\"/>\n")
		}
	}
	bw.WriteString("</require>\n")
	return bw.Flush()
}
