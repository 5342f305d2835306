package discovery

import (
	"fmt"
	"strings"

	apperrors "github.com/depdiscover/pkg/errors"
)

// Kind identifies a diagnostic. The numeric value is the user-visible code.
type Kind int

const (
	PathDoesNotExist     Kind = 1
	MissingClasspath     Kind = 2
	MissingEntryPoint    Kind = 3
	UnexpectedIOError    Kind = 4
	NoMatchingEntryPoint Kind = 5
	InvalidClasspath     Kind = 6
	CyclicHierarchy      Kind = 7
	MalformedCode        Kind = 8
)

var kindNames = map[Kind]string{
	PathDoesNotExist:     "PATH_DOES_NOT_EXIST",
	MissingClasspath:     "MISSING_CLASSPATH",
	MissingEntryPoint:    "MISSING_ENTRYPOINT",
	UnexpectedIOError:    "UNEXPECTED_IO_ERROR",
	NoMatchingEntryPoint: "NO_MATCHING_ENTRYPOINT",
	InvalidClasspath:     "INVALID_CLASSPATH",
	CyclicHierarchy:      "CYCLIC_HIERARCHY",
	MalformedCode:        "MALFORMED_CODE",
}

// String returns the kind name.
func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("KIND_%d", int(k))
}

// Code returns the short code, e.g. "M5".
func (k Kind) Code() string {
	return fmt.Sprintf("M%d", int(k))
}

// Warning reports whether the kind lets the run continue.
func (k Kind) Warning() bool {
	switch k {
	case PathDoesNotExist, InvalidClasspath, CyclicHierarchy, MalformedCode:
		return true
	default:
		return false
	}
}

// Notification is one recorded diagnostic.
type Notification struct {
	Kind    Kind
	Message string
}

// Fatal reports whether the notification fails the run.
func (n Notification) Fatal() bool { return !n.Kind.Warning() }

// String renders "[M<k>] - <message>".
func (n Notification) String() string {
	return fmt.Sprintf("[%s] - %s", n.Kind.Code(), n.Message)
}

// Diagnostics collects notifications for one run. Nothing is thrown eagerly:
// the caller decides pass or fail with HasError once the run ends.
type Diagnostics struct {
	items []Notification
}

// NewDiagnostics creates an empty collector.
func NewDiagnostics() *Diagnostics {
	return &Diagnostics{}
}

// Add records a notification.
func (d *Diagnostics) Add(kind Kind, format string, args ...interface{}) {
	d.items = append(d.items, Notification{Kind: kind, Message: fmt.Sprintf(format, args...)})
}

// PathDoesNotExist records a missing classpath path.
func (d *Diagnostics) PathDoesNotExist(path string) {
	d.Add(PathDoesNotExist, "Path %s does not exist", path)
}

// MissingClasspath records an empty primary classpath option.
func (d *Diagnostics) MissingClasspath() {
	d.Add(MissingClasspath, "Missing classpath option")
}

// MissingEntryPoint records an empty entry point option.
func (d *Diagnostics) MissingEntryPoint() {
	d.Add(MissingEntryPoint, "Missing entry point option")
}

// UnexpectedIOError records a fatal read failure.
func (d *Diagnostics) UnexpectedIOError(err error) {
	d.Add(UnexpectedIOError, "Unexpected IO error: %v", err)
}

// NoMatchingEntryPoint records that no class matched the entry points.
func (d *Diagnostics) NoMatchingEntryPoint(patterns []string, classpath string) {
	d.Add(NoMatchingEntryPoint, "No class matching '%s' in classpath '%s'", strings.Join(patterns, ","), classpath)
}

// InvalidClasspath records a path that is neither directory nor archive.
func (d *Diagnostics) InvalidClasspath(path string) {
	d.Add(InvalidClasspath, "Path %s is not a valid classpath", path)
}

// CyclicHierarchy records a hierarchy walk that was cut short.
func (d *Diagnostics) CyclicHierarchy(typeName string) {
	d.Add(CyclicHierarchy, "Cyclic or too deep hierarchy at %s", typeName)
}

// MalformedCode records a method whose bytecode could not be decoded.
func (d *Diagnostics) MalformedCode(method string, err error) {
	d.Add(MalformedCode, "Skipping malformed code in %s: %v", method, err)
}

// Items returns every notification in recording order.
func (d *Diagnostics) Items() []Notification {
	return d.items
}

// HasError reports whether any notification is fatal.
func (d *Diagnostics) HasError() bool {
	for _, n := range d.items {
		if n.Fatal() {
			return true
		}
	}
	return false
}

// Len returns the number of notifications.
func (d *Diagnostics) Len() int { return len(d.items) }

// Err returns an analysis AppError listing the fatal notifications, or nil.
func (d *Diagnostics) Err() error {
	var fatal []string
	for _, n := range d.items {
		if n.Fatal() {
			fatal = append(fatal, n.String())
		}
	}
	if len(fatal) == 0 {
		return nil
	}
	return apperrors.New(apperrors.CodeAnalysisError, strings.Join(fatal, "; "))
}

// Lines renders every notification, one per entry.
func (d *Diagnostics) Lines() []string {
	out := make([]string, len(d.items))
	for i, n := range d.items {
		out[i] = n.String()
	}
	return out
}
