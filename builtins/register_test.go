package builtins

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/protolink/interpreter"
	"github.com/example/protolink/runtime"
)

func setup(mode runtime.Mode) (*interpreter.Interpreter, *interpreter.Scheduler) {
	store := runtime.NewStore(runtime.Config{Mode: mode})
	interp := interpreter.New(runtime.NewRealm(store))
	sched := interpreter.NewScheduler(interp)
	RegisterAll(interp, sched)
	return interp, sched
}

// global returns the named global as an object.
func global(t *testing.T, interp *interpreter.Interpreter, name string) *runtime.Object {
	t.Helper()
	v, err := interp.Store().Get(interp.Realm().Global, name)
	require.NoError(t, err)
	require.NotNil(t, v.AsObject(), "global %s", name)
	return v.AsObject()
}

func callObject(t *testing.T, interp *interpreter.Interpreter, method string, args ...*runtime.Value) *runtime.Value {
	t.Helper()
	v, err := interp.CallMethod(global(t, interp, "Object"), method, args...)
	require.NoError(t, err)
	return v
}

func TestRegisterAllInstallsGlobals(t *testing.T) {
	interp, _ := setup(runtime.Permissive)
	store := interp.Store()
	realm := interp.Realm()

	for _, name := range []string{"Object", "Function", "setTimeout", "clearTimeout", "globalThis"} {
		assert.True(t, store.HasOwn(realm.Global, name), name)
	}
	for _, name := range []string{"hasOwnProperty", "isPrototypeOf", "constructor"} {
		assert.True(t, store.HasOwn(realm.ObjectPrototype, name), name)
	}
	for _, name := range []string{"call", "apply", "bind", "constructor"} {
		assert.True(t, store.HasOwn(realm.FunctionPrototype, name), name)
	}

	ctor, err := store.Get(realm.ObjectPrototype, "constructor")
	require.NoError(t, err)
	assert.Same(t, global(t, interp, "Object"), ctor.AsObject())
}

func TestRegisterAllWithoutScheduler(t *testing.T) {
	store := runtime.NewStore(runtime.Config{})
	interp := interpreter.New(runtime.NewRealm(store))
	RegisterAll(interp, nil)

	assert.True(t, store.HasOwn(interp.Realm().Global, "Object"))
	assert.False(t, store.HasOwn(interp.Realm().Global, "setTimeout"))
}

func TestConstructorFallsBackToObject(t *testing.T) {
	interp, _ := setup(runtime.Permissive)
	store := interp.Store()
	foo := interp.Function("Foo", nil)
	require.NoError(t, store.Set(foo.Object(), "prototype", runtime.NewObject(store.Create(interp.Realm().ObjectPrototype))))

	a1, err := interp.Call(foo, interpreter.Construct())
	require.NoError(t, err)
	ctor, err := store.Get(a1.AsObject(), "constructor")
	require.NoError(t, err)
	assert.Same(t, global(t, interp, "Object"), ctor.AsObject())
}
