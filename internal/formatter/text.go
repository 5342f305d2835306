package formatter

import (
	"bufio"
	"io"

	"github.com/depdiscover/pkg/model"
)

// NativePrefix marks native methods in text output.
const NativePrefix = "[NATIVE] "

// TextWriter writes one requirement per line.
type TextWriter struct{}

// Formats returns the format names this writer handles.
func (w *TextWriter) Formats() []string {
	return []string{FormatText, "txt"}
}

// Naming returns InternalNames: text output keeps class file names.
func (w *TextWriter) Naming() Naming {
	return InternalNames
}

// Write renders types, fields, methods and natives, one per line.
func (w *TextWriter) Write(out io.Writer, req model.Requirements) error {
	bw := bufio.NewWriter(out)
	for _, group := range [][]string{req.Types, req.Fields, req.Methods} {
		for _, name := range group {
			bw.WriteString(name)
			bw.WriteByte('\n')
		}
	}
	for _, name := range req.Natives {
		bw.WriteString(NativePrefix)
		bw.WriteString(name)
		bw.WriteByte('\n')
	}
	return bw.Flush()
}
