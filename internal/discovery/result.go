package discovery

import "sort"

// Result holds every dependency of a run in deterministic order: types by
// name, methods by (owner, name, descriptor) and fields by (field type,
// field name). Fields are ordered by their value type, not their owner.
type Result struct {
	Types   []*TypeDependency
	Methods []*MethodDependency
	Fields  []*FieldDependency
	Stats   Stats
}

// Sort orders the three collections in place.
func (r *Result) Sort() {
	sort.SliceStable(r.Types, func(i, j int) bool {
		return r.Types[i].Name < r.Types[j].Name
	})
	sort.SliceStable(r.Methods, func(i, j int) bool {
		a, b := r.Methods[i].Key, r.Methods[j].Key
		if a.Owner != b.Owner {
			return a.Owner < b.Owner
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		if a.Descriptor != b.Descriptor {
			return a.Descriptor < b.Descriptor
		}
		return !a.Interface && b.Interface
	})
	sort.SliceStable(r.Fields, func(i, j int) bool {
		a, b := r.Fields[i].Key, r.Fields[j].Key
		if a.Type != b.Type {
			return a.Type < b.Type
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.Owner < b.Owner
	})
}

// MissingTypes returns the types found nowhere.
func (r *Result) MissingTypes() []*TypeDependency {
	var out []*TypeDependency
	for _, d := range r.Types {
		if d.IsNotFound() {
			out = append(out, d)
		}
	}
	return out
}

// MissingFields returns the fields found nowhere.
func (r *Result) MissingFields() []*FieldDependency {
	var out []*FieldDependency
	for _, d := range r.Fields {
		if d.IsNotFound() {
			out = append(out, d)
		}
	}
	return out
}

// MissingMethods returns the methods found nowhere.
func (r *Result) MissingMethods() []*MethodDependency {
	var out []*MethodDependency
	for _, d := range r.Methods {
		if d.IsNotFound() {
			out = append(out, d)
		}
	}
	return out
}

// NativeMethods returns the methods flagged native, resolved or not.
func (r *Result) NativeMethods() []*MethodDependency {
	var out []*MethodDependency
	for _, d := range r.Methods {
		if d.Native {
			out = append(out, d)
		}
	}
	return out
}

// CountByState counts all dependencies per resolution state.
func (r *Result) CountByState() map[ResolutionState]int {
	out := make(map[ResolutionState]int)
	for _, d := range r.Types {
		out[d.State()]++
	}
	for _, d := range r.Methods {
		out[d.State()]++
	}
	for _, d := range r.Fields {
		out[d.State()]++
	}
	return out
}
