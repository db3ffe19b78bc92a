package builtins

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/protolink/interpreter"
	"github.com/example/protolink/runtime"
)

func plain(t *testing.T, interp *interpreter.Interpreter, props map[string]*runtime.Value) *runtime.Object {
	t.Helper()
	obj := interp.Store().Create(interp.Realm().ObjectPrototype)
	for k, v := range props {
		require.NoError(t, interp.Store().Set(obj, k, v))
	}
	return obj
}

func TestObjectCreateDelegates(t *testing.T) {
	interp, _ := setup(runtime.Permissive)
	store := interp.Store()
	foo := plain(t, interp, map[string]*runtime.Value{"something": runtime.NewNumber(42)})

	bar := callObject(t, interp, "create", runtime.NewObject(foo)).AsObject()
	require.NotNil(t, bar)
	assert.Same(t, foo, bar.Parent())
	v, err := store.Get(bar, "something")
	require.NoError(t, err)
	assert.Equal(t, 42.0, v.Number)

	isProto, err := interp.CallMethod(foo, "isPrototypeOf", runtime.NewObject(bar))
	require.NoError(t, err)
	assert.True(t, isProto.Bool)

	own, err := interp.CallMethod(bar, "hasOwnProperty", runtime.NewString("something"))
	require.NoError(t, err)
	assert.False(t, own.Bool)
}

func TestObjectCreateNull(t *testing.T) {
	interp, _ := setup(runtime.Permissive)
	store := interp.Store()

	bare := callObject(t, interp, "create", runtime.Null).AsObject()
	require.NotNil(t, bare)
	assert.Nil(t, bare.Parent())
	assert.False(t, store.HasOwn(bare, "prototype"))
	_, err := interp.CallMethod(bare, "hasOwnProperty", runtime.NewString("x"))
	assert.ErrorIs(t, err, runtime.ErrNotCallable)

	_, err = interp.CallMethod(global(t, interp, "Object"), "create", runtime.NewNumber(1))
	assert.Error(t, err)
}

func TestObjectCreateWithDescriptors(t *testing.T) {
	interp, _ := setup(runtime.Strict)
	store := interp.Store()
	descs := plain(t, interp, map[string]*runtime.Value{
		"a": runtime.NewObject(plain(t, interp, map[string]*runtime.Value{"value": runtime.NewNumber(2)})),
		"b": runtime.NewObject(plain(t, interp, map[string]*runtime.Value{
			"value":    runtime.NewNumber(3),
			"writable": runtime.True,
		})),
	})

	obj := callObject(t, interp, "create", runtime.NewObject(interp.Realm().ObjectPrototype), runtime.NewObject(descs)).AsObject()
	require.NotNil(t, obj)

	assert.ErrorIs(t, store.Set(obj, "a", runtime.NewNumber(5)), runtime.ErrReadOnlyViolation)
	require.NoError(t, store.Set(obj, "b", runtime.NewNumber(5)))
	a, _ := store.Get(obj, "a")
	b, _ := store.Get(obj, "b")
	assert.Equal(t, 2.0, a.Number)
	assert.Equal(t, 5.0, b.Number)
}

func TestObjectDefinePropertyAccessor(t *testing.T) {
	interp, _ := setup(runtime.Permissive)
	store := interp.Store()
	getter := interp.Function("get a", func(this *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
		return runtime.NewNumber(2), nil
	})
	myObject := plain(t, interp, nil)
	desc := plain(t, interp, map[string]*runtime.Value{"get": getter.Value()})

	_, err := interp.CallMethod(global(t, interp, "Object"), "defineProperty",
		runtime.NewObject(myObject), runtime.NewString("a"), runtime.NewObject(desc))
	require.NoError(t, err)

	require.NoError(t, store.Set(myObject, "a", runtime.NewNumber(3)))
	a, err := store.Get(myObject, "a")
	require.NoError(t, err)
	assert.Equal(t, 2.0, a.Number)

	d := callObject(t, interp, "getOwnPropertyDescriptor", runtime.NewObject(myObject), runtime.NewString("a")).AsObject()
	require.NotNil(t, d)
	got, _ := store.Get(d, "get")
	assert.Same(t, getter, got.AsFunction())
	set, _ := store.Get(d, "set")
	assert.Equal(t, runtime.TypeUndefined, set.Type)

	missing := callObject(t, interp, "getOwnPropertyDescriptor", runtime.NewObject(myObject), runtime.NewString("zzz"))
	assert.Equal(t, runtime.TypeUndefined, missing.Type)
}

func TestObjectDefinePropertyData(t *testing.T) {
	interp, _ := setup(runtime.Permissive)
	store := interp.Store()
	myObject := plain(t, interp, nil)
	desc := plain(t, interp, map[string]*runtime.Value{"value": runtime.NewNumber(2)})

	callObject(t, interp, "defineProperty", runtime.NewObject(myObject), runtime.NewString("a"), runtime.NewObject(desc))
	require.NoError(t, store.Set(myObject, "a", runtime.NewNumber(3)))
	a, _ := store.Get(myObject, "a")
	assert.Equal(t, 2.0, a.Number)

	d := callObject(t, interp, "getOwnPropertyDescriptor", runtime.NewObject(myObject), runtime.NewString("a")).AsObject()
	writable, _ := store.Get(d, "writable")
	assert.False(t, writable.Bool)
}

func TestObjectPrototypeLinks(t *testing.T) {
	interp, _ := setup(runtime.Permissive)
	a := plain(t, interp, nil)
	b := plain(t, interp, nil)

	got := callObject(t, interp, "getPrototypeOf", runtime.NewObject(a))
	assert.Same(t, interp.Realm().ObjectPrototype, got.AsObject())

	callObject(t, interp, "setPrototypeOf", runtime.NewObject(b), runtime.NewObject(a))
	assert.Same(t, a, b.Parent())

	_, err := interp.CallMethod(global(t, interp, "Object"), "setPrototypeOf", runtime.NewObject(a), runtime.NewObject(b))
	assert.ErrorIs(t, err, runtime.ErrCyclicParent)

	callObject(t, interp, "setPrototypeOf", runtime.NewObject(b), runtime.Null)
	assert.Equal(t, runtime.TypeNull, callObject(t, interp, "getPrototypeOf", runtime.NewObject(b)).Type)
}

func TestObjectKeysAndAssign(t *testing.T) {
	interp, _ := setup(runtime.Permissive)
	store := interp.Store()
	src := plain(t, interp, map[string]*runtime.Value{"b": runtime.NewNumber(2), "a": runtime.NewNumber(1)})
	target := plain(t, interp, map[string]*runtime.Value{"c": runtime.NewNumber(3)})

	keys := callObject(t, interp, "keys", runtime.NewObject(src)).AsObject()
	n, _ := store.Get(keys, "length")
	first, _ := store.Get(keys, "0")
	second, _ := store.Get(keys, "1")
	assert.Equal(t, 2.0, n.Number)
	assert.Equal(t, "a", first.Str)
	assert.Equal(t, "b", second.Str)

	out := callObject(t, interp, "assign", runtime.NewObject(target), runtime.NewObject(src), runtime.Undefined)
	assert.Same(t, target, out.AsObject())
	assert.Equal(t, []string{"a", "b", "c"}, store.OwnKeys(target))
	assert.Equal(t, []string{"a", "b"}, store.OwnKeys(src))
}

func TestObjectConstructorCall(t *testing.T) {
	interp, _ := setup(runtime.Permissive)
	ctor := global(t, interp, "Object").Function()
	require.NotNil(t, ctor)
	o := plain(t, interp, nil)

	same, err := interp.Call(ctor, interpreter.Bare(runtime.NewObject(o)))
	require.NoError(t, err)
	assert.Same(t, o, same.AsObject())

	fresh, err := interp.Call(ctor, interpreter.Bare())
	require.NoError(t, err)
	assert.Same(t, interp.Realm().ObjectPrototype, fresh.AsObject().Parent())
}
