package discovery

import (
	"context"

	"github.com/depdiscover/internal/classfile"
	"github.com/depdiscover/internal/classpath"
)

// DefaultMaxHierarchyDepth bounds superclass and interface walks.
const DefaultMaxHierarchyDepth = 256

// Resolver owns the dependency registry of one run. Every Add call resolves
// the dependency before returning it, and memoizes it by key.
//
// The caller argument is the method being analyzed, or nil while seeding.
// It only feeds provenance.
type Resolver struct {
	primary   *classpath.Classpath
	secondary *classpath.Classpath
	cache     *DescriptorCache
	worklist  *Worklist
	diag      *Diagnostics
	maxDepth  int

	types   map[string]*TypeDependency
	methods map[MethodKey]*MethodDependency
	fields  map[FieldKey]*FieldDependency

	cyclic map[string]bool
}

// NewResolver creates a resolver that enqueues primary methods on worklist.
func NewResolver(primary, secondary *classpath.Classpath, cache *DescriptorCache, worklist *Worklist, diag *Diagnostics) *Resolver {
	return &Resolver{
		primary:   primary,
		secondary: secondary,
		cache:     cache,
		worklist:  worklist,
		diag:      diag,
		maxDepth:  DefaultMaxHierarchyDepth,
		types:     make(map[string]*TypeDependency),
		methods:   make(map[MethodKey]*MethodDependency),
		fields:    make(map[FieldKey]*FieldDependency),
		cyclic:    make(map[string]bool),
	}
}

// SetMaxHierarchyDepth overrides the walk bound. Non-positive values keep
// the current bound.
func (r *Resolver) SetMaxHierarchyDepth(n int) {
	if n > 0 {
		r.maxDepth = n
	}
}

// AddType registers a reference to the named type.
func (r *Resolver) AddType(ctx context.Context, caller *AnalyzedMethod, name string) (*TypeDependency, error) {
	dep, ok := r.types[name]
	if !ok {
		dep = &TypeDependency{Name: name}
		cd, state, err := r.load(ctx, name)
		if err != nil {
			return nil, err
		}
		dep.Descriptor = cd
		dep.setState(state)
		r.types[name] = dep
	}
	dep.addCaller(caller)
	return dep, nil
}

// AddHierarchyType registers a supertype of user.
func (r *Resolver) AddHierarchyType(ctx context.Context, user, name string) (*TypeDependency, error) {
	dep, err := r.AddType(ctx, nil, name)
	if err != nil {
		return nil, err
	}
	dep.addUser(user)
	return dep, nil
}

func (r *Resolver) load(ctx context.Context, name string) (*classfile.ClassDescriptor, ResolutionState, error) {
	cd, ok, err := r.cache.Load(ctx, r.primary, name)
	if err != nil {
		return nil, Unresolved, err
	}
	if ok {
		return cd, FoundInPrimary, nil
	}
	cd, ok, err = r.cache.Load(ctx, r.secondary, name)
	if err != nil {
		return nil, Unresolved, err
	}
	if ok {
		return cd, FoundInSecondary, nil
	}
	return nil, NotFound, nil
}

// AddMethod registers a method reference. Calls on array types resolve on
// the root type.
func (r *Resolver) AddMethod(ctx context.Context, caller *AnalyzedMethod, ref classfile.MemberRef) (*MethodDependency, error) {
	dep, err := r.addMethod(ctx, caller, ref)
	if err != nil {
		return nil, err
	}
	dep.addCaller(caller)
	return dep, nil
}

// AddNativeMethod registers a native method declared by class and flags it.
func (r *Resolver) AddNativeMethod(ctx context.Context, class *classfile.ClassDescriptor, method *classfile.Member) (*MethodDependency, error) {
	dep, err := r.addMethod(ctx, nil, classfile.MemberRef{
		Owner:      class.Name,
		Name:       method.Name,
		Descriptor: method.Descriptor,
	})
	if err != nil {
		return nil, err
	}
	dep.Native = true
	return dep, nil
}

func (r *Resolver) addMethod(ctx context.Context, caller *AnalyzedMethod, ref classfile.MemberRef) (*MethodDependency, error) {
	if classfile.IsArray(ref.Owner) {
		ref.Owner = classfile.RootType
	}
	key := MethodKey{Owner: ref.Owner, Name: ref.Name, Descriptor: ref.Descriptor, Interface: ref.Interface}
	if dep, ok := r.methods[key]; ok {
		return dep, nil
	}

	dep := &MethodDependency{Key: key}
	r.methods[key] = dep
	if err := r.resolveMethod(ctx, caller, dep); err != nil {
		delete(r.methods, key)
		return nil, err
	}
	return dep, nil
}

func (r *Resolver) resolveMethod(ctx context.Context, caller *AnalyzedMethod, dep *MethodDependency) error {
	key := dep.Key
	owner, err := r.AddType(ctx, caller, key.Owner)
	if err != nil {
		return err
	}
	if owner.IsNotFound() {
		dep.setState(NotFound)
		return nil
	}

	match := func(cd *classfile.ClassDescriptor) *classfile.Member {
		return cd.Method(key.Name, key.Descriptor)
	}
	declaring, m, err := r.searchHierarchy(ctx, caller, owner, match)
	if err != nil {
		return err
	}
	if m != nil {
		dep.setState(declaring.State())
		if m.IsNative() {
			dep.Native = true
		}
		if declaring.State() == FoundInPrimary {
			r.worklist.Push(&AnalyzedMethod{Class: declaring.Descriptor, Method: m})
		}
		return nil
	}

	// No declaration anywhere in the loaded hierarchy: the method belongs to
	// the first supertype whose class file is unavailable, if any.
	seen := make(map[string]bool)
	current := owner
	for {
		if current.Descriptor == nil {
			dep.setState(current.State())
			_, err := r.AddMethod(ctx, caller, classfile.MemberRef{
				Owner:      current.Name,
				Name:       key.Name,
				Descriptor: key.Descriptor,
			})
			return err
		}
		super := current.Descriptor.SuperName
		if super == "" {
			dep.setState(NotFound)
			return nil
		}
		if seen[current.Name] || len(seen) >= r.maxDepth {
			r.reportCycle(current.Name)
			dep.setState(NotFound)
			return nil
		}
		seen[current.Name] = true
		if current, err = r.AddType(ctx, caller, super); err != nil {
			return err
		}
	}
}

// AddField registers a field reference. Fields are never analyzed further.
func (r *Resolver) AddField(ctx context.Context, caller *AnalyzedMethod, ref classfile.MemberRef) (*FieldDependency, error) {
	key := FieldKey{Owner: ref.Owner, Type: ref.Descriptor, Name: ref.Name}
	dep, ok := r.fields[key]
	if !ok {
		dep = &FieldDependency{Key: key}
		state, err := r.resolveField(ctx, caller, key)
		if err != nil {
			return nil, err
		}
		dep.setState(state)
		r.fields[key] = dep
	}
	dep.addCaller(caller)
	return dep, nil
}

func (r *Resolver) resolveField(ctx context.Context, caller *AnalyzedMethod, key FieldKey) (ResolutionState, error) {
	owner, err := r.AddType(ctx, caller, key.Owner)
	if err != nil {
		return Unresolved, err
	}
	if owner.IsNotFound() {
		return NotFound, nil
	}
	declaring, f, err := r.searchHierarchy(ctx, caller, owner, func(cd *classfile.ClassDescriptor) *classfile.Member {
		return cd.Field(key.Name, key.Type)
	})
	if err != nil {
		return Unresolved, err
	}
	if f == nil {
		return NotFound, nil
	}
	return declaring.State(), nil
}

// searchHierarchy looks for a member on start, then its superclass chain,
// then its interfaces in reverse declaration order, depth first. It returns
// the type declaring the first match.
func (r *Resolver) searchHierarchy(ctx context.Context, caller *AnalyzedMethod, start *TypeDependency,
	match func(*classfile.ClassDescriptor) *classfile.Member) (*TypeDependency, *classfile.Member, error) {
	path := make(map[string]bool)
	return r.search(ctx, caller, start, match, path)
}

func (r *Resolver) search(ctx context.Context, caller *AnalyzedMethod, td *TypeDependency,
	match func(*classfile.ClassDescriptor) *classfile.Member, path map[string]bool) (*TypeDependency, *classfile.Member, error) {
	cd := td.Descriptor
	if path[cd.Name] || len(path) >= r.maxDepth {
		r.reportCycle(cd.Name)
		return nil, nil, nil
	}
	if m := match(cd); m != nil {
		return td, m, nil
	}
	if cd.SuperName == "" {
		return nil, nil, nil
	}

	path[cd.Name] = true
	defer delete(path, cd.Name)

	super, err := r.AddType(ctx, caller, cd.SuperName)
	if err != nil {
		return nil, nil, err
	}
	if super.Descriptor != nil {
		if decl, m, err := r.search(ctx, caller, super, match, path); err != nil || m != nil {
			return decl, m, err
		}
	}
	for i := len(cd.Interfaces) - 1; i >= 0; i-- {
		iface, err := r.AddType(ctx, caller, cd.Interfaces[i])
		if err != nil {
			return nil, nil, err
		}
		if iface.Descriptor == nil {
			continue
		}
		if decl, m, err := r.search(ctx, caller, iface, match, path); err != nil || m != nil {
			return decl, m, err
		}
	}
	return nil, nil, nil
}

func (r *Resolver) reportCycle(name string) {
	if r.cyclic[name] {
		return
	}
	r.cyclic[name] = true
	r.diag.CyclicHierarchy(name)
}

// Counts returns the number of type, method and field dependencies.
func (r *Resolver) Counts() (types, methods, fields int) {
	return len(r.types), len(r.methods), len(r.fields)
}

// Result returns the sorted dependencies.
func (r *Resolver) Result() *Result {
	res := &Result{
		Types:   make([]*TypeDependency, 0, len(r.types)),
		Methods: make([]*MethodDependency, 0, len(r.methods)),
		Fields:  make([]*FieldDependency, 0, len(r.fields)),
	}
	for _, d := range r.types {
		res.Types = append(res.Types, d)
	}
	for _, d := range r.methods {
		res.Methods = append(res.Methods, d)
	}
	for _, d := range r.fields {
		res.Fields = append(res.Fields, d)
	}
	res.Sort()
	return res
}
