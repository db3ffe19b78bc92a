package builtins

import (
	"github.com/pkg/errors"

	"github.com/example/protolink/runtime"
)

// installObject wires the Object constructor to the realm's
// Object.prototype and returns the constructor.
func (in *intrinsics) installObject() *runtime.Function {
	proto := in.realm.ObjectPrototype

	in.setMethod(proto, "hasOwnProperty", in.objectProtoHasOwnProperty)
	in.setMethod(proto, "isPrototypeOf", in.objectProtoIsPrototypeOf)

	ctor := in.interp.Function("Object", in.objectConstructorCall)
	ctorObj := ctor.Object()
	in.setMethod(ctorObj, "create", in.objectCreate)
	in.setMethod(ctorObj, "defineProperty", in.objectDefineProperty)
	in.setMethod(ctorObj, "getOwnPropertyDescriptor", in.objectGetOwnPropertyDescriptor)
	in.setMethod(ctorObj, "getPrototypeOf", in.objectGetPrototypeOf)
	in.setMethod(ctorObj, "setPrototypeOf", in.objectSetPrototypeOf)
	in.setMethod(ctorObj, "keys", in.objectKeys)
	in.setMethod(ctorObj, "assign", in.objectAssign)

	_ = in.store.DefineOwn(ctorObj, "prototype", runtime.DataDescriptor(runtime.NewObject(proto), false))
	in.setHidden(proto, "constructor", ctor.Value())
	return ctor
}

func (in *intrinsics) objectConstructorCall(this *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	if arg := argAt(args, 0); arg.AsObject() != nil {
		return arg, nil
	}
	return runtime.NewObject(in.newPlainObject()), nil
}

func (in *intrinsics) objectProtoHasOwnProperty(this *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	obj := this.AsObject()
	if obj == nil {
		return nil, &runtime.Error{Kind: runtime.KindUndefinedContextAccess, Property: "hasOwnProperty"}
	}
	return runtime.NewBool(in.store.HasOwn(obj, argAt(args, 0).ToString())), nil
}

func (in *intrinsics) objectProtoIsPrototypeOf(this *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	return runtime.NewBool(in.store.IsPrototypeOf(this.AsObject(), argAt(args, 0).AsObject())), nil
}

// objectCreate implements Object.create(proto[, descriptors]).
func (in *intrinsics) objectCreate(this *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	protoArg := argAt(args, 0)
	var parent *runtime.Object
	switch {
	case protoArg.Type == runtime.TypeNull:
	case protoArg.AsObject() != nil:
		parent = protoArg.AsObject()
	default:
		return nil, errors.Errorf("TypeError: Object prototype may only be an Object or null: %s", protoArg.ToString())
	}

	descs := make(map[string]runtime.PropertyDescriptor)
	if props := argAt(args, 1); !props.IsNullish() {
		propsObj, err := requireObject(props, "Object.create")
		if err != nil {
			return nil, err
		}
		for _, name := range in.store.OwnKeys(propsObj) {
			dv, err := in.store.Get(propsObj, name)
			if err != nil {
				return nil, err
			}
			d, err := in.toDescriptor(dv)
			if err != nil {
				return nil, err
			}
			descs[name] = d
		}
	}
	return runtime.NewObject(in.store.CreateWithDescriptors(parent, descs)), nil
}

func (in *intrinsics) objectDefineProperty(this *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	target := argAt(args, 0)
	obj, err := requireObject(target, "Object.defineProperty")
	if err != nil {
		return nil, err
	}
	d, err := in.toDescriptor(argAt(args, 2))
	if err != nil {
		return nil, err
	}
	if err := in.store.DefineOwn(obj, argAt(args, 1).ToString(), d); err != nil {
		return nil, err
	}
	return target, nil
}

func (in *intrinsics) objectGetOwnPropertyDescriptor(this *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	obj, err := requireObject(argAt(args, 0), "Object.getOwnPropertyDescriptor")
	if err != nil {
		return nil, err
	}
	d, ok := in.store.GetOwnDescriptor(obj, argAt(args, 1).ToString())
	if !ok {
		return runtime.Undefined, nil
	}
	return in.fromDescriptor(d), nil
}

func (in *intrinsics) objectGetPrototypeOf(this *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	obj, err := requireObject(argAt(args, 0), "Object.getPrototypeOf")
	if err != nil {
		return nil, err
	}
	return runtime.NewObject(in.store.ParentOf(obj)), nil
}

func (in *intrinsics) objectSetPrototypeOf(this *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	target := argAt(args, 0)
	obj, err := requireObject(target, "Object.setPrototypeOf")
	if err != nil {
		return nil, err
	}
	protoArg := argAt(args, 1)
	if protoArg.Type != runtime.TypeNull && protoArg.AsObject() == nil {
		return nil, errors.Errorf("TypeError: Object prototype may only be an Object or null: %s", protoArg.ToString())
	}
	if err := in.store.SetParent(obj, protoArg.AsObject()); err != nil {
		return nil, err
	}
	return target, nil
}

func (in *intrinsics) objectKeys(this *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	obj, err := requireObject(argAt(args, 0), "Object.keys")
	if err != nil {
		return nil, err
	}
	keys := in.store.OwnKeys(obj)
	items := make([]*runtime.Value, len(keys))
	for i, k := range keys {
		items[i] = runtime.NewString(k)
	}
	return in.newArrayLike(items), nil
}

// objectAssign copies each source's own values onto the target through
// ordinary assignment, so the target's setters and read-only ancestors
// apply.
func (in *intrinsics) objectAssign(this *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	target := argAt(args, 0)
	obj, err := requireObject(target, "Object.assign")
	if err != nil {
		return nil, err
	}
	for _, src := range args[1:] {
		srcObj := src.AsObject()
		if srcObj == nil {
			continue
		}
		for _, name := range in.store.OwnKeys(srcObj) {
			v, err := in.store.Get(srcObj, name)
			if err != nil {
				return nil, err
			}
			if err := in.store.Set(obj, name, v); err != nil {
				return nil, err
			}
		}
	}
	return target, nil
}
