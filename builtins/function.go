package builtins

import (
	"github.com/pkg/errors"

	"github.com/example/protolink/interpreter"
	"github.com/example/protolink/runtime"
)

func (in *intrinsics) installFunction() *runtime.Function {
	proto := in.realm.FunctionPrototype

	in.setMethod(proto, "call", in.functionCall)
	in.setMethod(proto, "apply", in.functionApply)
	in.setMethod(proto, "bind", in.functionBind)

	ctor := in.interp.Function("Function", functionConstructorCall)
	_ = in.store.DefineOwn(ctor.Object(), "prototype", runtime.DataDescriptor(runtime.NewObject(proto), false))
	in.setHidden(proto, "constructor", ctor.Value())
	return ctor
}

func functionConstructorCall(this *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	return nil, errors.New("TypeError: Function constructor is not supported")
}

func calleeOf(this *runtime.Value, method string) (*runtime.Function, error) {
	fn := this.AsFunction()
	if fn == nil {
		return nil, &runtime.Error{Kind: runtime.KindNotCallable, Object: "Function.prototype." + method}
	}
	return fn, nil
}

// functionCall implements fn.call(thisArg, ...args).
func (in *intrinsics) functionCall(this *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	fn, err := calleeOf(this, "call")
	if err != nil {
		return nil, err
	}
	var rest []*runtime.Value
	if len(args) > 1 {
		rest = args[1:]
	}
	return in.interp.Call(fn, interpreter.ExplicitCall(argAt(args, 0), rest...))
}

// functionApply implements fn.apply(thisArg, arrayLike).
func (in *intrinsics) functionApply(this *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	fn, err := calleeOf(this, "apply")
	if err != nil {
		return nil, err
	}
	list, err := in.fromArrayLike(argAt(args, 1))
	if err != nil {
		return nil, err
	}
	return in.interp.Call(fn, interpreter.ExplicitApply(argAt(args, 0), list))
}

// functionBind implements fn.bind(thisArg, ...args).
func (in *intrinsics) functionBind(this *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	fn, err := calleeOf(this, "bind")
	if err != nil {
		return nil, err
	}
	var rest []*runtime.Value
	if len(args) > 1 {
		rest = args[1:]
	}
	return in.interp.Bind(fn, argAt(args, 0), rest...).Value(), nil
}
