package runtime

import (
	"sync"

	"dario.cat/mergo"
	"github.com/sirupsen/logrus"
)

// Caller invokes a function with an explicit receiver. The interpreter
// installs itself so accessors go through normal context resolution.
type Caller interface {
	CallWithContext(fn *Function, this *Value, args []*Value) (*Value, error)
}

// Config configures a Store.
type Config struct {
	Mode   Mode
	Logger logrus.FieldLogger
}

type storeShared struct {
	caller Caller
	log    logrus.FieldLogger

	// relink serializes SetParent so the cycle check and the write are atomic.
	relink sync.Mutex
}

// Store implements property lookup and assignment over objects linked by
// parent references. A Store value is a view in one Mode; views made with
// WithMode share everything else.
type Store struct {
	mode   Mode
	shared *storeShared
}

// NewStore returns a store in the configured mode.
func NewStore(cfg Config) *Store {
	log := cfg.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Store{
		mode:   cfg.Mode,
		shared: &storeShared{log: log},
	}
}

// Mode returns the view's mode.
func (s *Store) Mode() Mode {
	return s.mode
}

// WithMode returns a view of the same store that reports in mode m.
func (s *Store) WithMode(m Mode) *Store {
	if m == s.mode {
		return s
	}
	return &Store{mode: m, shared: s.shared}
}

// SetCaller installs the function invoker used for getters and setters.
func (s *Store) SetCaller(c Caller) {
	s.shared.caller = c
}

// Logger returns the store's logger.
func (s *Store) Logger() logrus.FieldLogger {
	return s.shared.log
}

// Create returns a new empty object delegating to parent (which may be nil).
func (s *Store) Create(parent *Object) *Object {
	return newObject(parent)
}

// CreateWithDescriptors creates an object and seeds its own properties
// directly, bypassing writability and accessor rules.
func (s *Store) CreateWithDescriptors(parent *Object, descs map[string]PropertyDescriptor) *Object {
	obj := newObject(parent)
	for name, d := range descs {
		obj.props[name] = d.normalize()
	}
	return obj
}

// CreateConstructed creates the receiver of a construction call.
func (s *Store) CreateConstructed(parent *Object, ctor *Function) *Object {
	obj := newObject(parent)
	obj.constructorTag = ctor
	return obj
}

// DefineOwn installs d as an own property of obj, replacing whatever was
// there, including a descriptor of the other kind.
func (s *Store) DefineOwn(obj *Object, name string, d PropertyDescriptor) error {
	if obj == nil {
		return &Error{Kind: KindUndefinedContextAccess, Property: name}
	}
	obj.put(name, d)
	return nil
}

// HasOwn reports whether name is an own property of obj.
func (s *Store) HasOwn(obj *Object, name string) bool {
	if obj == nil {
		return false
	}
	_, ok := obj.own(name)
	return ok
}

// GetOwnDescriptor returns the own descriptor for name.
func (s *Store) GetOwnDescriptor(obj *Object, name string) (PropertyDescriptor, bool) {
	if obj == nil {
		return PropertyDescriptor{}, false
	}
	return obj.own(name)
}

// OwnKeys returns the own property names of obj in sorted order.
func (s *Store) OwnKeys(obj *Object) []string {
	if obj == nil {
		return nil
	}
	return obj.keys()
}

// Get returns the effective value of name on obj or its nearest ancestor
// owning it. Getters run with this bound to obj, not to the owner.
func (s *Store) Get(obj *Object, name string) (*Value, error) {
	if obj == nil {
		return s.absent(name)
	}
	_, d, ok := lookup(obj, name)
	if !ok {
		return Undefined, nil
	}
	if !d.IsAccessor {
		return d.Value, nil
	}
	if d.Getter == nil {
		return Undefined, nil
	}
	return s.invoke(d.Getter, NewObject(obj), nil)
}

// Set assigns v to name on obj following the shadowing rules:
//
//   - no owner in the chain: a new writable own property is created;
//   - an accessor anywhere in the chain: its setter runs against obj and no
//     own property is created;
//   - a read-only data property anywhere in the chain: nothing changes;
//   - a writable own data property: its value is replaced;
//   - a writable ancestor data property: obj gets a shadowing own property.
//
// Disallowed writes return an error only in Strict mode.
func (s *Store) Set(obj *Object, name string, v *Value) error {
	if obj == nil {
		_, err := s.absent(name)
		return err
	}
	if v == nil {
		v = Undefined
	}
	for {
		owner, d, found := lookup(obj, name)
		switch {
		case found && d.IsAccessor:
			if d.Setter == nil {
				return s.disallow(&Error{Kind: KindNoSetter, Property: name, Object: obj.label()})
			}
			_, err := s.invoke(d.Setter, NewObject(obj), []*Value{v})
			return err
		case found && !d.Writable:
			return s.disallow(&Error{Kind: KindReadOnlyViolation, Property: name, Object: obj.label()})
		case found && owner == obj:
			if obj.swapOwn(name, d, true, DataDescriptor(v, true)) {
				return nil
			}
		default:
			// Either a new property or a shadow of a writable ancestor.
			if obj.swapOwn(name, PropertyDescriptor{}, false, DataDescriptor(v, true)) {
				if found {
					s.shared.log.WithFields(logrus.Fields{
						"object":   obj.label(),
						"property": name,
						"owner":    owner.label(),
					}).Debug("shadowing inherited property")
				}
				return nil
			}
		}
		// obj changed between lookup and write; look again.
	}
}

// GetValue reads name from a context value. Non-object contexts fail with
// UndefinedContextAccess in Strict mode and read undefined otherwise.
func (s *Store) GetValue(ctx *Value, name string) (*Value, error) {
	return s.Get(ctx.AsObject(), name)
}

// SetValue writes name on a context value.
func (s *Store) SetValue(ctx *Value, name string, v *Value) error {
	return s.Set(ctx.AsObject(), name, v)
}

// Increment reads name through the chain and assigns the sum back, which
// shadows an inherited value on obj.
func (s *Store) Increment(obj *Object, name string, delta float64) (*Value, error) {
	cur, err := s.Get(obj, name)
	if err != nil {
		return nil, err
	}
	next := NewNumber(cur.ToNumber() + delta)
	if err := s.Set(obj, name, next); err != nil {
		return nil, err
	}
	return next, nil
}

// ParentOf returns the parent of obj.
func (s *Store) ParentOf(obj *Object) *Object {
	if obj == nil {
		return nil
	}
	return obj.Parent()
}

// SetParent relinks obj. A link that would make obj its own ancestor is
// rejected in either mode.
func (s *Store) SetParent(obj, parent *Object) error {
	if obj == nil {
		return &Error{Kind: KindUndefinedContextAccess, Property: "__proto__"}
	}
	s.shared.relink.Lock()
	defer s.shared.relink.Unlock()
	for p := parent; p != nil; p = p.Parent() {
		if p == obj {
			return &Error{Kind: KindCyclicParent, Object: obj.label()}
		}
	}
	obj.mu.Lock()
	obj.parent = parent
	obj.mu.Unlock()
	return nil
}

// IsPrototypeOf reports whether proto appears in obj's parent chain.
func (s *Store) IsPrototypeOf(proto, obj *Object) bool {
	if proto == nil || obj == nil {
		return false
	}
	for p := obj.Parent(); p != nil; p = p.Parent() {
		if p == proto {
			return true
		}
	}
	return false
}

// Mixin returns a new parentless object whose own properties are the union
// of the sources' own descriptors, later sources winning on conflicts. The
// result keeps no link to its sources.
func (s *Store) Mixin(sources ...*Object) (*Object, error) {
	merged := make(map[string]PropertyDescriptor)
	for _, src := range sources {
		if src == nil {
			continue
		}
		if err := mergo.Merge(&merged, src.snapshot(), mergo.WithOverride); err != nil {
			return nil, err
		}
	}
	return s.CreateWithDescriptors(nil, merged), nil
}

func (s *Store) absent(name string) (*Value, error) {
	if s.mode == Strict {
		return nil, &Error{Kind: KindUndefinedContextAccess, Property: name}
	}
	s.shared.log.WithField("property", name).Debug("ignored access on undefined context")
	return Undefined, nil
}

func (s *Store) disallow(err *Error) error {
	if s.mode == Strict {
		return err
	}
	s.shared.log.WithFields(logrus.Fields{
		"object":   err.Object,
		"property": err.Property,
		"kind":     err.Kind.String(),
	}).Debug("ignored disallowed write")
	return nil
}

// invoke runs an accessor. Without an installed Caller the store applies
// the lexical and hard-binding rules itself; it knows no global object, so
// a function bound to null or undefined gets the default binding of a
// realm-less store: undefined, or NoBindingError in strict mode.
func (s *Store) invoke(fn *Function, this *Value, args []*Value) (*Value, error) {
	if c := s.shared.caller; c != nil {
		return c.CallWithContext(fn, this, args)
	}
	switch {
	case fn.lexical:
		this = fn.lexicalThis
	case fn.bound && fn.boundThis.IsNullish():
		if s.mode == Strict {
			return nil, &Error{Kind: KindNoBinding, Object: fn.Name}
		}
		this = Undefined
	case fn.bound:
		this = fn.boundThis
	}
	return fn.Invoke(this, args)
}
