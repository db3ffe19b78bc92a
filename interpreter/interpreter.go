package interpreter

import (
	"github.com/sirupsen/logrus"

	"github.com/example/protolink/runtime"
)

// Interpreter invokes functions: it resolves the context for a call site
// and runs the body against it.
type Interpreter struct {
	realm    *runtime.Realm
	store    *runtime.Store
	resolver *Resolver
	log      logrus.FieldLogger
}

// New creates an interpreter over realm and installs it as the store's
// accessor caller.
func New(realm *runtime.Realm) *Interpreter {
	store := realm.Store()
	interp := &Interpreter{
		realm:    realm,
		store:    store,
		resolver: NewResolver(store, realm.ObjectPrototype),
		log:      store.Logger(),
	}
	store.SetCaller(interp)
	return interp
}

// Realm returns the interpreter's realm.
func (interp *Interpreter) Realm() *runtime.Realm {
	return interp.realm
}

// Store returns the interpreter's store.
func (interp *Interpreter) Store() *runtime.Store {
	return interp.store
}

// Function creates a dynamic-context function in the interpreter's realm.
func (interp *Interpreter) Function(name string, body runtime.CallableFunc) *runtime.Function {
	return interp.realm.NewFunction(name, body)
}

// Lexical creates a function that always sees captured as its context.
func (interp *Interpreter) Lexical(name string, captured *runtime.Value, body runtime.CallableFunc) *runtime.Function {
	return interp.realm.NewLexicalFunction(name, captured, body)
}

// Bind hard-binds fn to this. The result ignores every later explicit or
// implicit context, but not construction.
func (interp *Interpreter) Bind(fn *runtime.Function, this *runtime.Value, args ...*runtime.Value) *runtime.Function {
	return interp.realm.NewBoundFunction(fn, this, args)
}

// Resolve computes the binding fn receives at site.
func (interp *Interpreter) Resolve(fn *runtime.Function, site CallSite) (Binding, error) {
	global, closedErr := interp.realm.GlobalContext()
	b, err := interp.resolver.ResolveContext(fn, site, global)
	if err != nil {
		return Binding{}, err
	}
	if b.Rule == RuleDefault && closedErr != nil {
		return Binding{}, closedErr
	}
	interp.log.WithFields(logrus.Fields{
		"function": fn.Name,
		"site":     site.Kind.String(),
		"rule":     b.Rule.String(),
	}).Trace("resolved context")
	return b, nil
}

// Call resolves the context for site and invokes fn. A construct call
// returns the object the body returned, or else the new object.
func (interp *Interpreter) Call(fn *runtime.Function, site CallSite) (*runtime.Value, error) {
	b, err := interp.Resolve(fn, site)
	if err != nil {
		return nil, err
	}
	return interp.invoke(fn, b, site.Args)
}

// CallValue calls callee, which must hold a function.
func (interp *Interpreter) CallValue(callee *runtime.Value, site CallSite) (*runtime.Value, error) {
	fn := callee.AsFunction()
	if fn == nil {
		name := "value"
		if callee != nil {
			name = callee.ToString()
		}
		return nil, &runtime.Error{Kind: runtime.KindNotCallable, Object: name}
	}
	return interp.Call(fn, site)
}

// CallWithContext calls fn as fn.call(this, args...). The store uses it to
// run getters and setters against the original receiver.
func (interp *Interpreter) CallWithContext(fn *runtime.Function, this *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	return interp.Call(fn, ExplicitCall(this, args...))
}

// CallMethod looks name up on obj and calls it with obj as the receiver.
func (interp *Interpreter) CallMethod(obj *runtime.Object, name string, args ...*runtime.Value) (*runtime.Value, error) {
	callee, err := interp.store.Get(obj, name)
	if err != nil {
		return nil, err
	}
	if callee.AsFunction() == nil {
		return nil, &runtime.Error{Kind: runtime.KindNotCallable, Object: name}
	}
	return interp.CallValue(callee, MemberAccess(obj, args...))
}

// IndirectCall evaluates (target.name = value)(args...): the assignment
// happens, then the assigned value is called as a bare reference.
func (interp *Interpreter) IndirectCall(target *runtime.Object, name string, value *runtime.Value, args ...*runtime.Value) (*runtime.Value, error) {
	if err := interp.store.Set(target, name, value); err != nil {
		return nil, err
	}
	return interp.CallValue(value, Bare(args...))
}

// Map calls fn for every item with thisArg as an explicit context, the way
// built-ins that take a context object do.
func (interp *Interpreter) Map(fn *runtime.Function, thisArg *runtime.Value, items []*runtime.Value) ([]*runtime.Value, error) {
	out := make([]*runtime.Value, 0, len(items))
	for i, item := range items {
		v, err := interp.Call(fn, ExplicitCall(thisArg, item, runtime.NewNumber(float64(i))))
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (interp *Interpreter) invoke(fn *runtime.Function, b Binding, args []*runtime.Value) (*runtime.Value, error) {
	result, err := fn.Invoke(b.This, args)
	if err != nil {
		return nil, err
	}
	// If a constructor returns an object, use that; otherwise use this.
	if b.Rule == RuleConstruct && result.AsObject() == nil {
		return b.This, nil
	}
	return result, nil
}
