package runtime

import "sync"

// Realm owns the global context object and the intrinsic prototypes. It is
// created once at startup and torn down with Close.
type Realm struct {
	store *Store

	Global            *Object
	ObjectPrototype   *Object
	FunctionPrototype *Object

	mu     sync.RWMutex
	closed bool
}

// NewRealm creates the intrinsics and the global object on store.
func NewRealm(store *Store) *Realm {
	objProto := store.Create(nil)
	objProto.Label = "Object.prototype"
	funcProto := store.Create(objProto)
	funcProto.Label = "Function.prototype"
	global := store.Create(objProto)
	global.Label = "global"
	return &Realm{
		store:             store,
		Global:            global,
		ObjectPrototype:   objProto,
		FunctionPrototype: funcProto,
	}
}

// Store returns the realm's store.
func (r *Realm) Store() *Store {
	return r.store
}

// GlobalContext returns the default-binding context.
func (r *Realm) GlobalContext() (*Value, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return nil, ErrRealmClosed
	}
	return NewObject(r.Global), nil
}

// NewFunction creates a dynamic-context function in this realm.
func (r *Realm) NewFunction(name string, body CallableFunc) *Function {
	return NewFunction(name, body, r.FunctionPrototype, r.ObjectPrototype)
}

// NewLexicalFunction creates a function bound to captured for its lifetime.
func (r *Realm) NewLexicalFunction(name string, captured *Value, body CallableFunc) *Function {
	return NewLexicalFunction(name, captured, body, r.FunctionPrototype)
}

// NewBoundFunction hard-binds target.
func (r *Realm) NewBoundFunction(target *Function, this *Value, args []*Value) *Function {
	return NewBoundFunction(target, this, args, r.FunctionPrototype)
}

// Closed reports whether Close has run.
func (r *Realm) Closed() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.closed
}

// Close drops every global binding. Later default bindings fail.
func (r *Realm) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.closed = true
	r.Global.mu.Lock()
	r.Global.props = make(map[string]PropertyDescriptor)
	r.Global.mu.Unlock()
}
