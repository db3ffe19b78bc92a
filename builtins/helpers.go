package builtins

import (
	"math"
	"strconv"

	"github.com/pkg/errors"

	"github.com/example/protolink/interpreter"
	"github.com/example/protolink/runtime"
)

// intrinsics carries what the built-in bodies need at call time.
type intrinsics struct {
	interp *interpreter.Interpreter
	store  *runtime.Store
	realm  *runtime.Realm
}

func argAt(args []*runtime.Value, i int) *runtime.Value {
	if i < len(args) && args[i] != nil {
		return args[i]
	}
	return runtime.Undefined
}

func (in *intrinsics) setMethod(obj *runtime.Object, name string, fn runtime.CallableFunc) *runtime.Function {
	method := in.interp.Function(name, fn)
	in.setHidden(obj, name, method.Value())
	return method
}

func (in *intrinsics) setHidden(obj *runtime.Object, name string, v *runtime.Value) {
	// DefineOwn only fails on a nil object.
	_ = in.store.DefineOwn(obj, name, runtime.DataDescriptor(v, true))
}

func (in *intrinsics) newPlainObject() *runtime.Object {
	return in.store.Create(in.realm.ObjectPrototype)
}

// newArrayLike builds {0: items[0], ..., length: n}.
func (in *intrinsics) newArrayLike(items []*runtime.Value) *runtime.Value {
	obj := in.newPlainObject()
	obj.Label = "Array"
	for i, item := range items {
		in.setHidden(obj, strconv.Itoa(i), item)
	}
	in.setHidden(obj, "length", runtime.NewNumber(float64(len(items))))
	return runtime.NewObject(obj)
}

// maxApplyArgs caps the length of an argument list read from an array-like.
const maxApplyArgs = 1 << 16

// fromArrayLike reads the indexed elements of an array-like value.
// Undefined and null give no elements.
func (in *intrinsics) fromArrayLike(v *runtime.Value) ([]*runtime.Value, error) {
	if v.IsNullish() {
		return nil, nil
	}
	obj := v.AsObject()
	if obj == nil {
		return nil, errors.Errorf("TypeError: CreateListFromArrayLike called on non-object")
	}
	lenVal, err := in.store.Get(obj, "length")
	if err != nil {
		return nil, err
	}
	length := lenVal.ToNumber()
	if math.IsNaN(length) || length <= 0 {
		return nil, nil
	}
	if length > maxApplyArgs {
		return nil, errors.Errorf("RangeError: too many arguments in function call (length %s)", lenVal.ToString())
	}
	n := int(length)
	out := make([]*runtime.Value, 0, n)
	for i := 0; i < n; i++ {
		item, err := in.store.Get(obj, strconv.Itoa(i))
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, nil
}

// toDescriptor converts a {value, writable, get, set} object into a
// property descriptor. Fields that are absent default to false/undefined.
func (in *intrinsics) toDescriptor(v *runtime.Value) (runtime.PropertyDescriptor, error) {
	obj := v.AsObject()
	if obj == nil {
		return runtime.PropertyDescriptor{}, errors.Errorf("TypeError: Property description must be an object: %s", v.ToString())
	}
	get, err := in.store.Get(obj, "get")
	if err != nil {
		return runtime.PropertyDescriptor{}, err
	}
	set, err := in.store.Get(obj, "set")
	if err != nil {
		return runtime.PropertyDescriptor{}, err
	}
	if !get.IsNullish() || !set.IsNullish() {
		getter, setter := get.AsFunction(), set.AsFunction()
		if getter == nil && !get.IsNullish() {
			return runtime.PropertyDescriptor{}, errors.Errorf("TypeError: Getter must be a function: %s", get.ToString())
		}
		if setter == nil && !set.IsNullish() {
			return runtime.PropertyDescriptor{}, errors.Errorf("TypeError: Setter must be a function: %s", set.ToString())
		}
		return runtime.AccessorDescriptor(getter, setter), nil
	}
	value, err := in.store.Get(obj, "value")
	if err != nil {
		return runtime.PropertyDescriptor{}, err
	}
	writable, err := in.store.Get(obj, "writable")
	if err != nil {
		return runtime.PropertyDescriptor{}, err
	}
	return runtime.DataDescriptor(value, writable.ToBoolean()), nil
}

func (in *intrinsics) fromDescriptor(d runtime.PropertyDescriptor) *runtime.Value {
	obj := in.newPlainObject()
	if d.IsAccessor {
		in.setHidden(obj, "get", functionValue(d.Getter))
		in.setHidden(obj, "set", functionValue(d.Setter))
	} else {
		in.setHidden(obj, "value", d.Value)
		in.setHidden(obj, "writable", runtime.NewBool(d.Writable))
	}
	return runtime.NewObject(obj)
}

func functionValue(fn *runtime.Function) *runtime.Value {
	if fn == nil {
		return runtime.Undefined
	}
	return fn.Value()
}

func requireObject(v *runtime.Value, caller string) (*runtime.Object, error) {
	obj := v.AsObject()
	if obj == nil {
		return nil, errors.Errorf("TypeError: %s called on non-object", caller)
	}
	return obj, nil
}
