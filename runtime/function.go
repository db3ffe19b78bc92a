package runtime

// CallableFunc is the Go signature of a function body. The core treats the
// body as opaque: it only decides which this it receives.
type CallableFunc func(this *Value, args []*Value) (*Value, error)

// Function is a callable unit backed by an object, so functions carry
// properties of their own (including "prototype").
type Function struct {
	Name string
	Body CallableFunc

	object *Object

	lexical     bool
	lexicalThis *Value

	bound     bool
	boundThis *Value
	boundArgs []*Value
	target    *Function
}

// NewFunction creates a dynamic-context function. Its object delegates to
// funcProto and it gets a fresh designated prototype object (delegating to
// objProto) whose "constructor" points back at the function.
func NewFunction(name string, body CallableFunc, funcProto, objProto *Object) *Function {
	fn := newFunctionObject(name, body, funcProto)
	proto := newObject(objProto)
	proto.props["constructor"] = DataDescriptor(fn.Value(), true)
	fn.object.props["prototype"] = DataDescriptor(NewObject(proto), true)
	return fn
}

// NewLexicalFunction creates a function that always runs against captured,
// whatever its call site looks like.
func NewLexicalFunction(name string, captured *Value, body CallableFunc, funcProto *Object) *Function {
	fn := newFunctionObject(name, body, funcProto)
	if captured == nil {
		captured = Undefined
	}
	fn.lexical = true
	fn.lexicalThis = captured
	return fn
}

// NewBoundFunction hard-binds target to this. Binding an already bound
// function keeps the first context and appends args to the bound ones.
func NewBoundFunction(target *Function, this *Value, args []*Value, funcProto *Object) *Function {
	fn := newFunctionObject("bound "+target.Name, nil, funcProto)
	fn.bound = true
	fn.boundThis = this
	fn.target = target
	if target.bound {
		fn.boundThis = target.boundThis
		fn.target = target.target
		fn.boundArgs = append(fn.boundArgs, target.boundArgs...)
	}
	fn.boundArgs = append(fn.boundArgs, args...)
	return fn
}

func newFunctionObject(name string, body CallableFunc, funcProto *Object) *Function {
	fn := &Function{Name: name, Body: body}
	obj := newObject(funcProto)
	obj.fn = fn
	obj.props["name"] = DataDescriptor(NewString(name), false)
	fn.object = obj
	return fn
}

// Object returns the object backing fn.
func (fn *Function) Object() *Object {
	return fn.object
}

// Value wraps fn as a runtime value.
func (fn *Function) Value() *Value {
	return NewObject(fn.object)
}

// IsLexical reports whether fn ignores its call site.
func (fn *Function) IsLexical() bool {
	return fn.lexical
}

// CapturedContext returns the creation-time context of a lexical function.
func (fn *Function) CapturedContext() *Value {
	return fn.lexicalThis
}

// BoundContext returns the hard-bound context, if fn was produced by a bind.
func (fn *Function) BoundContext() (*Value, bool) {
	return fn.boundThis, fn.bound
}

// BoundArgs returns the arguments prepended on every call.
func (fn *Function) BoundArgs() []*Value {
	return fn.boundArgs
}

// Target returns the unbound function whose body and prototype fn uses.
func (fn *Function) Target() *Function {
	if fn.bound {
		return fn.target
	}
	return fn
}

// Invoke runs the target body with this and the bound arguments prepended.
// It performs no context resolution.
func (fn *Function) Invoke(this *Value, args []*Value) (*Value, error) {
	target := fn.Target()
	if target.Body == nil {
		return Undefined, nil
	}
	if len(fn.boundArgs) > 0 {
		full := make([]*Value, 0, len(fn.boundArgs)+len(args))
		full = append(full, fn.boundArgs...)
		args = append(full, args...)
	}
	res, err := target.Body(this, args)
	if err != nil {
		return nil, err
	}
	if res == nil {
		res = Undefined
	}
	return res, nil
}
