package testrunner

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/example/protolink/interpreter"
	"github.com/example/protolink/runtime"
)

// env holds the named values of one running scenario.
type env struct {
	interp *interpreter.Interpreter
	store  *runtime.Store
	realm  *runtime.Realm
	sched  *interpreter.Scheduler
	names  map[string]*runtime.Value
}

func newEnv(interp *interpreter.Interpreter, sched *interpreter.Scheduler) *env {
	realm := interp.Realm()
	e := &env{
		interp: interp,
		store:  interp.Store(),
		realm:  realm,
		sched:  sched,
		names:  make(map[string]*runtime.Value),
	}
	e.names["global"] = runtime.NewObject(realm.Global)
	e.names["Object.prototype"] = runtime.NewObject(realm.ObjectPrototype)
	e.names["Function.prototype"] = runtime.NewObject(realm.FunctionPrototype)
	return e
}

// lookup resolves a scenario name, falling back to the realm's globals so
// built-ins such as Object can be referenced directly.
func (e *env) lookup(name string) (*runtime.Value, error) {
	if v, ok := e.names[name]; ok {
		return v, nil
	}
	if e.store.HasOwn(e.realm.Global, name) {
		return e.store.Get(e.realm.Global, name)
	}
	return nil, errors.Errorf("unknown name %q", name)
}

func (e *env) bindName(name string, v *runtime.Value) error {
	if name == "" {
		return nil
	}
	if _, ok := e.names[name]; ok {
		return errors.Errorf("name %q is already defined", name)
	}
	e.names[name] = v
	return nil
}

func (e *env) object(name string) (*runtime.Object, error) {
	v, err := e.lookup(name)
	if err != nil {
		return nil, err
	}
	obj := v.AsObject()
	if obj == nil {
		return nil, errors.Errorf("%q is %s, not an object", name, v.TypeOf())
	}
	return obj, nil
}

func (e *env) function(name string) (*runtime.Function, error) {
	v, err := e.lookup(name)
	if err != nil {
		return nil, err
	}
	fn := v.AsFunction()
	if fn == nil {
		return nil, errors.Errorf("%q is %s, not a function", name, v.TypeOf())
	}
	return fn, nil
}

// parent maps a parent name: empty is Object.prototype, "null" is none.
func (e *env) parent(name string) (*runtime.Object, error) {
	switch name {
	case "":
		return e.realm.ObjectPrototype, nil
	case "null":
		return nil, nil
	}
	return e.object(name)
}

func (e *env) value(l *Literal) (*runtime.Value, error) {
	if l == nil {
		return runtime.Undefined, nil
	}
	if l.kind == litRef {
		return e.lookup(l.s)
	}
	return l.primitive(), nil
}

func (e *env) values(ls []Literal) ([]*runtime.Value, error) {
	out := make([]*runtime.Value, 0, len(ls))
	for i := range ls {
		v, err := e.value(&ls[i])
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// optional resolves a literal that may be absent, keeping nil for absent.
func (e *env) optional(l *Literal) (*runtime.Value, error) {
	if l == nil {
		return nil, nil
	}
	return e.value(l)
}

func (e *env) descriptor(value *Literal, writable *bool, get, set string) (runtime.PropertyDescriptor, error) {
	if get != "" || set != "" {
		var getter, setter *runtime.Function
		var err error
		if get != "" {
			if getter, err = e.function(get); err != nil {
				return runtime.PropertyDescriptor{}, err
			}
		}
		if set != "" {
			if setter, err = e.function(set); err != nil {
				return runtime.PropertyDescriptor{}, err
			}
		}
		return runtime.AccessorDescriptor(getter, setter), nil
	}
	v, err := e.value(value)
	if err != nil {
		return runtime.PropertyDescriptor{}, err
	}
	return runtime.DataDescriptor(v, writable == nil || *writable), nil
}

// build creates the declared objects and functions. Objects come first so
// functions can capture or bind to them; properties are installed last so
// they can reference functions.
func (e *env) build(sc Scenario) error {
	for _, spec := range sc.Objects {
		obj := e.store.Create(nil)
		obj.Label = spec.Name
		if err := e.bindName(spec.Name, runtime.NewObject(obj)); err != nil {
			return err
		}
	}
	for _, spec := range sc.Objects {
		obj, _ := e.object(spec.Name)
		parent, err := e.parent(spec.Parent)
		if err != nil {
			return errors.Wrapf(err, "object %s", spec.Name)
		}
		if err := e.store.SetParent(obj, parent); err != nil {
			return errors.Wrapf(err, "object %s", spec.Name)
		}
	}

	for _, spec := range sc.Functions {
		fn, err := e.buildFunction(spec)
		if err != nil {
			return errors.Wrapf(err, "function %s", spec.Name)
		}
		if err := e.bindName(spec.Name, fn.Value()); err != nil {
			return err
		}
	}

	for _, spec := range sc.Objects {
		obj, _ := e.object(spec.Name)
		names := make([]string, 0, len(spec.Properties))
		for name := range spec.Properties {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			p := spec.Properties[name]
			d, err := e.descriptor(p.Value, p.Writable, p.Get, p.Set)
			if err != nil {
				return errors.Wrapf(err, "object %s property %s", spec.Name, name)
			}
			if err := e.store.DefineOwn(obj, name, d); err != nil {
				return err
			}
		}
	}
	return nil
}

func (e *env) buildFunction(spec FunctionSpec) (*runtime.Function, error) {
	if spec.Bind != nil {
		target, err := e.function(spec.Bind.Target)
		if err != nil {
			return nil, err
		}
		this, err := e.value(spec.Bind.Context)
		if err != nil {
			return nil, err
		}
		args, err := e.values(spec.Bind.Args)
		if err != nil {
			return nil, err
		}
		return e.interp.Bind(target, this, args...), nil
	}
	body, err := e.compileBody(spec.Name, spec.Body)
	if err != nil {
		return nil, err
	}
	if spec.Lexical != nil {
		captured, err := e.value(spec.Lexical)
		if err != nil {
			return nil, err
		}
		return e.interp.Lexical(spec.Name, captured, body), nil
	}
	return e.interp.Function(spec.Name, body), nil
}
