package interpreter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/protolink/runtime"
)

func newTestInterp(mode runtime.Mode) *Interpreter {
	store := runtime.NewStore(runtime.Config{Mode: mode})
	return New(runtime.NewRealm(store))
}

func obj(t *testing.T, interp *Interpreter, label string, props map[string]*runtime.Value) *runtime.Object {
	t.Helper()
	o := interp.Store().Create(interp.Realm().ObjectPrototype)
	o.Label = label
	for k, v := range props {
		require.NoError(t, interp.Store().Set(o, k, v))
	}
	return o
}

func TestResolvePrecedence(t *testing.T) {
	interp := newTestInterp(runtime.Permissive)
	global := interp.Realm().Global
	objA := obj(t, interp, "objA", nil)
	objB := obj(t, interp, "objB", nil)
	owner := obj(t, interp, "owner", nil)
	captured := obj(t, interp, "captured", nil)

	plain := interp.Function("foo", nil)
	hard := interp.Bind(plain, runtime.NewObject(objA))
	arrow := interp.Lexical("arrow", runtime.NewObject(captured), nil)

	tests := []struct {
		name string
		fn   *runtime.Function
		site CallSite
		rule Rule
		want *runtime.Object
	}{
		{"lexical beats construct", arrow, Construct(), RuleLexical, captured},
		{"lexical beats explicit", arrow, ExplicitCall(runtime.NewObject(objB)), RuleLexical, captured},
		{"lexical beats member", arrow, MemberAccess(owner), RuleLexical, captured},
		{"hard beats explicit", hard, ExplicitCall(runtime.NewObject(objB)), RuleHard, objA},
		{"hard beats apply", hard, ExplicitApply(runtime.NewObject(objB), nil), RuleHard, objA},
		{"hard beats member", hard, MemberAccess(owner), RuleHard, objA},
		{"hard beats default", hard, Bare(), RuleHard, objA},
		{"explicit beats member", plain, ExplicitCall(runtime.NewObject(objB)), RuleExplicit, objB},
		{"apply binds context", plain, ExplicitApply(runtime.NewObject(objB), nil), RuleExplicit, objB},
		{"member beats default", plain, MemberAccess(owner), RuleImplicit, owner},
		{"null explicit falls to default", plain, ExplicitCall(runtime.Null), RuleDefault, global},
		{"undefined apply falls to default", plain, ExplicitApply(nil, nil), RuleDefault, global},
		{"bare is default", plain, Bare(), RuleDefault, global},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := interp.Resolve(tt.fn, tt.site)
			require.NoError(t, err)
			assert.Equal(t, tt.rule, b.Rule)
			assert.Same(t, tt.want, b.This.AsObject())
		})
	}
}

func TestConstructBeatsHardBinding(t *testing.T) {
	interp := newTestInterp(runtime.Permissive)
	objA := obj(t, interp, "objA", nil)
	foo := interp.Function("foo", nil)
	bar := interp.Bind(foo, runtime.NewObject(objA))

	b, err := interp.Resolve(bar, Construct())
	require.NoError(t, err)
	assert.Equal(t, RuleConstruct, b.Rule)
	created := b.This.AsObject()
	require.NotNil(t, created)
	assert.NotSame(t, objA, created)
	assert.Same(t, foo, created.ConstructorTag())

	protoVal, _ := interp.Store().Get(foo.Object(), "prototype")
	assert.Same(t, protoVal.AsObject(), created.Parent())
}

func TestConstructFallsBackToObjectPrototype(t *testing.T) {
	interp := newTestInterp(runtime.Permissive)
	foo := interp.Function("Foo", nil)
	require.NoError(t, interp.Store().Set(foo.Object(), "prototype", runtime.NewNumber(1)))

	b, err := interp.Resolve(foo, Construct())
	require.NoError(t, err)
	assert.Same(t, interp.Realm().ObjectPrototype, b.This.AsObject().Parent())
}

func TestDefaultBindingByMode(t *testing.T) {
	loose := newTestInterp(runtime.Permissive)
	b, err := loose.Resolve(loose.Function("foo", nil), Bare())
	require.NoError(t, err)
	assert.Same(t, loose.Realm().Global, b.This.AsObject())

	strict := newTestInterp(runtime.Strict)
	_, err = strict.Resolve(strict.Function("foo", nil), Bare())
	assert.ErrorIs(t, err, runtime.ErrNoBinding)
	_, err = strict.Resolve(strict.Function("foo", nil), ExplicitCall(runtime.Null))
	assert.ErrorIs(t, err, runtime.ErrNoBinding)

	owner := obj(t, strict, "owner", nil)
	b, err = strict.Resolve(strict.Function("foo", nil), MemberAccess(owner))
	require.NoError(t, err)
	assert.Equal(t, RuleImplicit, b.Rule)
}

func TestBindNullIsIgnored(t *testing.T) {
	interp := newTestInterp(runtime.Permissive)
	objB := obj(t, interp, "objB", nil)
	bound := interp.Bind(interp.Function("foo", nil), runtime.Null)

	b, err := interp.Resolve(bound, ExplicitCall(runtime.NewObject(objB)))
	require.NoError(t, err)
	assert.Equal(t, RuleDefault, b.Rule)
	assert.Same(t, interp.Realm().Global, b.This.AsObject())
}

func TestResolveAfterRealmClosed(t *testing.T) {
	interp := newTestInterp(runtime.Permissive)
	objA := obj(t, interp, "objA", nil)
	foo := interp.Function("foo", nil)
	interp.Realm().Close()

	_, err := interp.Resolve(foo, Bare())
	assert.ErrorIs(t, err, runtime.ErrRealmClosed)

	b, err := interp.Resolve(interp.Bind(foo, runtime.NewObject(objA)), Bare())
	require.NoError(t, err)
	assert.Equal(t, RuleHard, b.Rule)
}

func TestParseSiteKind(t *testing.T) {
	for _, k := range []SiteKind{SiteBare, SiteMember, SiteCall, SiteApply, SiteConstruct} {
		parsed, err := ParseSiteKind(k.String())
		require.NoError(t, err)
		assert.Equal(t, k, parsed)
	}
	k, err := ParseSiteKind("new")
	require.NoError(t, err)
	assert.Equal(t, SiteConstruct, k)
	_, err = ParseSiteKind("sideways")
	assert.Error(t, err)
}
