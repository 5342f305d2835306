package discovery

import (
	"fmt"
	"sort"

	"github.com/depdiscover/internal/classfile"
)

// ResolutionState is where a dependency was found. It is assigned exactly
// once, when the dependency is created.
type ResolutionState int

const (
	Unresolved ResolutionState = iota
	FoundInPrimary
	FoundInSecondary
	NotFound
)

// String returns the string representation of the state.
func (s ResolutionState) String() string {
	switch s {
	case FoundInPrimary:
		return "primary"
	case FoundInSecondary:
		return "secondary"
	case NotFound:
		return "not_found"
	default:
		return "unresolved"
	}
}

// Found reports whether the state is one of the found states.
func (s ResolutionState) Found() bool {
	return s == FoundInPrimary || s == FoundInSecondary
}

// MethodSignature identifies a method by its declaring type.
type MethodSignature struct {
	Owner      string
	Name       string
	Descriptor string
}

// String returns the owner, a dot, the name and the descriptor.
func (s MethodSignature) String() string {
	return s.Owner + "." + s.Name + s.Descriptor
}

// AnalyzedMethod is one worklist item. The same method may appear more than
// once in a worklist; extraction is idempotent.
type AnalyzedMethod struct {
	Class  *classfile.ClassDescriptor
	Method *classfile.Member
}

// Signature returns the method signature of the item.
func (m *AnalyzedMethod) Signature() MethodSignature {
	return MethodSignature{Owner: m.Class.Name, Name: m.Method.Name, Descriptor: m.Method.Descriptor}
}

// String returns the signature text.
func (m *AnalyzedMethod) String() string {
	return m.Signature().String()
}

// provenance records who referenced a dependency. It never influences
// resolution.
type provenance struct {
	state   ResolutionState
	callers map[MethodSignature]struct{}
	users   map[string]struct{}
}

// State returns the resolution state.
func (p *provenance) State() ResolutionState { return p.state }

// IsNotFound reports whether the dependency resolved nowhere.
func (p *provenance) IsNotFound() bool { return p.state == NotFound }

func (p *provenance) setState(s ResolutionState) {
	if p.state != Unresolved {
		panic(fmt.Sprintf("discovery: state already set to %s", p.state))
	}
	if s == Unresolved {
		panic("discovery: cannot resolve to unresolved")
	}
	p.state = s
}

func (p *provenance) addCaller(caller *AnalyzedMethod) {
	if caller == nil {
		return
	}
	if p.callers == nil {
		p.callers = make(map[MethodSignature]struct{})
	}
	p.callers[caller.Signature()] = struct{}{}
}

func (p *provenance) addUser(name string) {
	if p.users == nil {
		p.users = make(map[string]struct{})
	}
	p.users[name] = struct{}{}
}

// Callers returns the methods that referenced the dependency, sorted.
func (p *provenance) Callers() []MethodSignature {
	out := make([]MethodSignature, 0, len(p.callers))
	for c := range p.callers {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return lessSignature(out[i], out[j]) })
	return out
}

// Users returns the classes that extend or implement the dependency, sorted.
func (p *provenance) Users() []string {
	out := make([]string, 0, len(p.users))
	for u := range p.users {
		out = append(out, u)
	}
	sort.Strings(out)
	return out
}

// TypeDependency is a referenced type. Descriptor is nil when NotFound.
type TypeDependency struct {
	provenance
	Name       string
	Descriptor *classfile.ClassDescriptor
}

// MethodKey identifies a method dependency.
type MethodKey struct {
	Owner      string
	Name       string
	Descriptor string
	Interface  bool
}

// Signature drops the interface flag.
func (k MethodKey) Signature() MethodSignature {
	return MethodSignature{Owner: k.Owner, Name: k.Name, Descriptor: k.Descriptor}
}

// MethodDependency is a referenced method.
type MethodDependency struct {
	provenance
	Key MethodKey
	// Native is set when any matching declaration is native.
	Native bool
}

// FieldKey identifies a field dependency.
type FieldKey struct {
	Owner string
	Type  string
	Name  string
}

// FieldDependency is a referenced field.
type FieldDependency struct {
	provenance
	Key FieldKey
}

func lessSignature(a, b MethodSignature) bool {
	if a.Owner != b.Owner {
		return a.Owner < b.Owner
	}
	if a.Name != b.Name {
		return a.Name < b.Name
	}
	return a.Descriptor < b.Descriptor
}
