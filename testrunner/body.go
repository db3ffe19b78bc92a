package testrunner

import (
	"github.com/pkg/errors"

	"github.com/example/protolink/interpreter"
	"github.com/example/protolink/runtime"
)

func argAt(args []*runtime.Value, i int) *runtime.Value {
	if i >= 0 && i < len(args) && args[i] != nil {
		return args[i]
	}
	return runtime.Undefined
}

// compileBody turns a BodySpec into a function body. Names it mentions are
// resolved when the body runs, so bodies may refer to values created by
// later steps.
func (e *env) compileBody(name string, b BodySpec) (runtime.CallableFunc, error) {
	if b.Arg < 0 {
		return nil, errors.Errorf("%s body: arg must not be negative, got %d", b.Kind, b.Arg)
	}
	switch b.Kind {
	case "", "noop":
		return func(this *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
			return runtime.Undefined, nil
		}, nil

	case "returnProp":
		return func(this *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
			return e.store.GetValue(this, b.Prop)
		}, nil

	// this[prop] = value, or args[arg] when no value is given
	case "assignProp":
		return func(this *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
			v := argAt(args, b.Arg)
			if b.Value != nil {
				var err error
				if v, err = e.value(b.Value); err != nil {
					return nil, err
				}
			}
			return runtime.Undefined, e.store.SetValue(this, b.Prop, v)
		}, nil

	case "increment":
		return func(this *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
			return e.store.Increment(this.AsObject(), b.Prop, 1)
		}, nil

	case "returnThis":
		return func(this *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
			return this, nil
		}, nil

	case "returnArg":
		return func(this *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
			return argAt(args, b.Arg), nil
		}, nil

	// value + this[prop] + args[arg], skipping the parts that are absent
	case "concat":
		return func(this *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
			var parts []*runtime.Value
			if b.Value != nil {
				prefix, err := e.value(b.Value)
				if err != nil {
					return nil, err
				}
				parts = append(parts, prefix)
			}
			if b.Prop != "" {
				v, err := e.store.GetValue(this, b.Prop)
				if err != nil {
					return nil, err
				}
				parts = append(parts, v)
			}
			if b.Arg >= 0 && b.Arg < len(args) {
				parts = append(parts, args[b.Arg])
			}
			if len(parts) == 0 {
				return runtime.NewString(""), nil
			}
			out := parts[0]
			for _, p := range parts[1:] {
				out = runtime.Add(out, p)
			}
			return out, nil
		}, nil

	case "returnValue":
		return func(this *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
			return e.value(b.Value)
		}, nil

	// return this[call](...args)
	case "callMethod":
		return func(this *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
			callArgs, err := e.forward(b.Args, args)
			if err != nil {
				return nil, err
			}
			callee, err := e.store.GetValue(this, b.Call)
			if err != nil {
				return nil, err
			}
			return e.interp.CallValue(callee, interpreter.MemberAccess(this.AsObject(), callArgs...))
		}, nil

	// return call(...args)
	case "callBare":
		return func(this *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
			fn, err := e.function(b.Call)
			if err != nil {
				return nil, err
			}
			callArgs, err := e.forward(b.Args, args)
			if err != nil {
				return nil, err
			}
			return e.interp.Call(fn, interpreter.Bare(callArgs...))
		}, nil

	// run each body in order against the same this; return the last result
	case "seq":
		parts := make([]runtime.CallableFunc, 0, len(b.Seq))
		for _, sub := range b.Seq {
			part, err := e.compileBody(name, sub)
			if err != nil {
				return nil, err
			}
			parts = append(parts, part)
		}
		return func(this *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
			last := runtime.Undefined
			for _, part := range parts {
				v, err := part(this, args)
				if err != nil {
					return nil, err
				}
				last = v
			}
			return last, nil
		}, nil

	// return call.call(this, ...args)
	case "callWith":
		return func(this *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
			fn, err := e.function(b.Call)
			if err != nil {
				return nil, err
			}
			callArgs, err := e.forward(b.Args, args)
			if err != nil {
				return nil, err
			}
			return e.interp.Call(fn, interpreter.ExplicitCall(this, callArgs...))
		}, nil

	// var o = new call(...args); o[prop] = value; return o
	case "construct":
		return func(this *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
			fn, err := e.function(b.Call)
			if err != nil {
				return nil, err
			}
			callArgs, err := e.forward(b.Args, args)
			if err != nil {
				return nil, err
			}
			o, err := e.interp.Call(fn, interpreter.Construct(callArgs...))
			if err != nil {
				return nil, err
			}
			if b.Prop != "" {
				v, err := e.value(b.Value)
				if err != nil {
					return nil, err
				}
				if err := e.store.SetValue(o, b.Prop, v); err != nil {
					return nil, err
				}
			}
			return o, nil
		}, nil

	// return () => <body>, capturing this
	case "arrow":
		if b.Body == nil {
			return nil, errors.New("arrow body needs a nested body")
		}
		inner, err := e.compileBody(name+" arrow", *b.Body)
		if err != nil {
			return nil, err
		}
		return func(this *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
			return e.interp.Lexical(name+" arrow", this, inner).Value(), nil
		}, nil
	}
	return nil, errors.Errorf("unknown body kind %q", b.Kind)
}

// forward uses the listed arguments when given, else passes the caller's on.
func (e *env) forward(spec []Literal, args []*runtime.Value) ([]*runtime.Value, error) {
	if len(spec) == 0 {
		return args, nil
	}
	return e.values(spec)
}
