package runtime

import (
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(mode Mode) *Store {
	return NewStore(Config{Mode: mode})
}

func mustGet(t *testing.T, s *Store, obj *Object, name string) *Value {
	t.Helper()
	v, err := s.Get(obj, name)
	require.NoError(t, err)
	return v
}

func TestGetMissingPropertyIsUndefined(t *testing.T) {
	s := newTestStore(Permissive)
	parent := s.Create(nil)
	child := s.Create(parent)

	assert.Same(t, Undefined, mustGet(t, s, child, "nope"))
	assert.False(t, s.HasOwn(child, "nope"))
}

func TestSetCreatesOwnProperty(t *testing.T) {
	for _, mode := range []Mode{Permissive, Strict} {
		t.Run(mode.String(), func(t *testing.T) {
			s := newTestStore(mode)
			o := s.Create(nil)

			require.NoError(t, s.Set(o, "n", NewNumber(7)))
			assert.Equal(t, 7.0, mustGet(t, s, o, "n").Number)
			assert.True(t, s.HasOwn(o, "n"))

			d, ok := s.GetOwnDescriptor(o, "n")
			require.True(t, ok)
			assert.Equal(t, DataKind, d.Kind())
			assert.True(t, d.Writable)
		})
	}
}

func TestSetShadowsWritableAncestor(t *testing.T) {
	s := newTestStore(Permissive)
	parent := s.Create(nil)
	require.NoError(t, s.Set(parent, "a", NewNumber(2)))
	child := s.Create(parent)

	assert.False(t, s.HasOwn(child, "a"))
	require.NoError(t, s.Set(child, "a", NewNumber(3)))

	assert.Equal(t, 3.0, mustGet(t, s, child, "a").Number)
	assert.Equal(t, 2.0, mustGet(t, s, parent, "a").Number)
	assert.True(t, s.HasOwn(child, "a"))
	assert.True(t, s.HasOwn(parent, "a"))
}

func TestIncrementShadowsInheritedValue(t *testing.T) {
	s := newTestStore(Permissive)
	another := s.Create(nil)
	require.NoError(t, s.Set(another, "a", NewNumber(2)))
	mine := s.Create(another)

	next, err := s.Increment(mine, "a", 1)
	require.NoError(t, err)
	assert.Equal(t, 3.0, next.Number)
	assert.Equal(t, 2.0, mustGet(t, s, another, "a").Number)
	assert.True(t, s.HasOwn(mine, "a"))
}

func TestReadOnlyAncestorBlocksShadowing(t *testing.T) {
	for _, mode := range []Mode{Permissive, Strict} {
		t.Run(mode.String(), func(t *testing.T) {
			s := newTestStore(mode)
			parent := s.Create(nil)
			require.NoError(t, s.DefineOwn(parent, "foo", DataDescriptor(NewString("X"), false)))
			child := s.Create(parent)

			err := s.Set(child, "foo", NewString("Y"))
			if mode == Strict {
				assert.ErrorIs(t, err, ErrReadOnlyViolation)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, "X", mustGet(t, s, child, "foo").Str)
			assert.False(t, s.HasOwn(child, "foo"))
			assert.True(t, s.HasOwn(parent, "foo"))
		})
	}
}

func TestReadOnlyOwnPropertyUnchanged(t *testing.T) {
	for _, mode := range []Mode{Permissive, Strict} {
		t.Run(mode.String(), func(t *testing.T) {
			s := newTestStore(mode)
			another := s.Create(nil)
			mine := s.CreateWithDescriptors(another, map[string]PropertyDescriptor{
				"foo": DataDescriptor(NewNumber(56), false),
			})

			err := s.Set(mine, "foo", NewNumber(3))
			if mode == Strict {
				var rerr *Error
				require.True(t, errors.As(err, &rerr))
				assert.Equal(t, KindReadOnlyViolation, rerr.Kind)
				assert.Equal(t, "foo", rerr.Property)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, 56.0, mustGet(t, s, mine, "foo").Number)
			assert.True(t, s.HasOwn(mine, "foo"))
			assert.False(t, s.HasOwn(another, "foo"))
		})
	}
}

func TestAccessorSetterInterceptsAssignment(t *testing.T) {
	s := newTestStore(Permissive)
	setter := NewFunction("set foo", func(this *Value, args []*Value) (*Value, error) {
		return Undefined, s.SetValue(this, "ac", args[0])
	}, nil, nil)
	parent := s.CreateWithDescriptors(nil, map[string]PropertyDescriptor{
		"ac":  DataDescriptor(NewNumber(2), true),
		"foo": AccessorDescriptor(nil, setter),
	})
	child := s.Create(parent)

	require.NoError(t, s.Set(child, "foo", NewNumber(45)))

	assert.True(t, s.HasOwn(child, "ac"))
	assert.Equal(t, 45.0, mustGet(t, s, child, "ac").Number)
	assert.Equal(t, 2.0, mustGet(t, s, parent, "ac").Number)
	assert.False(t, s.HasOwn(child, "foo"))
	assert.True(t, s.HasOwn(parent, "foo"))
}

func TestGetterRunsAgainstReceiver(t *testing.T) {
	s := newTestStore(Permissive)
	getter := NewFunction("get label", func(this *Value, args []*Value) (*Value, error) {
		return s.GetValue(this, "name")
	}, nil, nil)
	parent := s.CreateWithDescriptors(nil, map[string]PropertyDescriptor{
		"name":  DataDescriptor(NewString("parent"), true),
		"label": AccessorDescriptor(getter, nil),
	})
	child := s.Create(parent)
	require.NoError(t, s.Set(child, "name", NewString("child")))

	assert.Equal(t, "child", mustGet(t, s, child, "label").Str)
	assert.Equal(t, "parent", mustGet(t, s, parent, "label").Str)
}

func TestAccessorWithoutSetter(t *testing.T) {
	for _, mode := range []Mode{Permissive, Strict} {
		t.Run(mode.String(), func(t *testing.T) {
			s := newTestStore(mode)
			parent := s.CreateWithDescriptors(nil, map[string]PropertyDescriptor{
				"foo": AccessorDescriptor(nil, nil),
			})
			child := s.Create(parent)

			err := s.Set(child, "foo", NewNumber(1))
			if mode == Strict {
				assert.ErrorIs(t, err, ErrNoSetter)
			} else {
				assert.NoError(t, err)
			}
			assert.False(t, s.HasOwn(child, "foo"))
			assert.Same(t, Undefined, mustGet(t, s, child, "foo"))
		})
	}
}

func TestDefineOwnReplacesKind(t *testing.T) {
	s := newTestStore(Strict)
	o := s.Create(nil)
	require.NoError(t, s.DefineOwn(o, "p", DataDescriptor(NewNumber(1), false)))

	getter := NewFunction("get p", func(this *Value, args []*Value) (*Value, error) {
		return NewString("computed"), nil
	}, nil, nil)
	require.NoError(t, s.DefineOwn(o, "p", AccessorDescriptor(getter, nil)))
	assert.Equal(t, "computed", mustGet(t, s, o, "p").Str)

	d, _ := s.GetOwnDescriptor(o, "p")
	assert.Equal(t, AccessorKind, d.Kind())
	assert.Nil(t, d.Value)

	require.NoError(t, s.DefineOwn(o, "p", DataDescriptor(NewNumber(9), true)))
	d, _ = s.GetOwnDescriptor(o, "p")
	assert.Equal(t, DataKind, d.Kind())
	assert.Nil(t, d.Getter)
	assert.Equal(t, 9.0, mustGet(t, s, o, "p").Number)
}

func TestDefineOwnBypassesParentRules(t *testing.T) {
	s := newTestStore(Strict)
	parent := s.CreateWithDescriptors(nil, map[string]PropertyDescriptor{
		"foo": DataDescriptor(NewString("locked"), false),
	})
	child := s.Create(parent)

	require.NoError(t, s.DefineOwn(child, "foo", DataDescriptor(NewString("mine"), true)))
	assert.Equal(t, "mine", mustGet(t, s, child, "foo").Str)
	assert.Equal(t, "locked", mustGet(t, s, parent, "foo").Str)
}

func TestRepeatedGetIsStable(t *testing.T) {
	s := newTestStore(Permissive)
	o := s.Create(nil)
	require.NoError(t, s.Set(o, "x", NewString("v")))
	first := mustGet(t, s, o, "x")
	for i := 0; i < 5; i++ {
		assert.Same(t, first, mustGet(t, s, o, "x"))
	}
}

func TestUndefinedContextAccess(t *testing.T) {
	strict := newTestStore(Strict)
	_, err := strict.GetValue(Undefined, "b")
	assert.ErrorIs(t, err, ErrUndefinedContextAccess)
	assert.ErrorIs(t, strict.SetValue(Undefined, "b", NewNumber(2)), ErrUndefinedContextAccess)

	loose := strict.WithMode(Permissive)
	v, err := loose.GetValue(Undefined, "b")
	require.NoError(t, err)
	assert.Same(t, Undefined, v)
	assert.NoError(t, loose.SetValue(Null, "b", NewNumber(2)))
}

func TestWithModeSharesHeap(t *testing.T) {
	s := newTestStore(Permissive)
	o := s.CreateWithDescriptors(nil, map[string]PropertyDescriptor{
		"ro": DataDescriptor(NewNumber(1), false),
	})
	assert.NoError(t, s.Set(o, "ro", NewNumber(2)))
	assert.ErrorIs(t, s.WithMode(Strict).Set(o, "ro", NewNumber(2)), ErrReadOnlyViolation)
	assert.Same(t, s, s.WithMode(Permissive))
}

func TestSetParentRejectsCycles(t *testing.T) {
	s := newTestStore(Permissive)
	a := s.Create(nil)
	b := s.Create(a)
	c := s.Create(b)

	assert.ErrorIs(t, s.SetParent(a, c), ErrCyclicParent)
	assert.ErrorIs(t, s.SetParent(a, a), ErrCyclicParent)
	assert.Nil(t, s.ParentOf(a))

	d := s.Create(nil)
	require.NoError(t, s.SetParent(c, d))
	assert.Same(t, d, s.ParentOf(c))
}

func TestIsPrototypeOf(t *testing.T) {
	s := newTestStore(Permissive)
	foo := s.Create(nil)
	bar := s.Create(foo)
	a := s.Create(bar)

	assert.True(t, s.IsPrototypeOf(bar, a))
	assert.True(t, s.IsPrototypeOf(foo, bar))
	assert.True(t, s.IsPrototypeOf(foo, a))
	assert.False(t, s.IsPrototypeOf(a, foo))
	assert.False(t, s.IsPrototypeOf(a, a))
}

func TestMixinLaterSourceWins(t *testing.T) {
	s := newTestStore(Permissive)
	vehicle := s.Create(nil)
	require.NoError(t, s.Set(vehicle, "engines", NewNumber(1)))
	require.NoError(t, s.Set(vehicle, "drive", NewString("vehicle")))
	car := s.Create(nil)
	require.NoError(t, s.Set(car, "wheels", NewNumber(4)))
	require.NoError(t, s.Set(car, "drive", NewString("car")))

	merged, err := s.Mixin(vehicle, car)
	require.NoError(t, err)

	assert.Nil(t, s.ParentOf(merged))
	assert.Equal(t, []string{"drive", "engines", "wheels"}, s.OwnKeys(merged))
	assert.Equal(t, "car", mustGet(t, s, merged, "drive").Str)
	assert.Equal(t, 1.0, mustGet(t, s, merged, "engines").Number)

	require.NoError(t, s.Set(merged, "engines", NewNumber(2)))
	assert.Equal(t, 1.0, mustGet(t, s, vehicle, "engines").Number)
	require.NoError(t, s.Set(vehicle, "horn", NewString("beep")))
	assert.False(t, s.HasOwn(merged, "horn"))
}

func TestConcurrentSetsDoNotInterleave(t *testing.T) {
	s := newTestStore(Permissive)
	parent := s.Create(nil)
	require.NoError(t, s.Set(parent, "n", NewNumber(0)))
	child := s.Create(parent)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				assert.NoError(t, s.Set(child, "n", NewNumber(float64(i))))
				v, err := s.Get(child, "n")
				assert.NoError(t, err)
				assert.Equal(t, TypeNumber, v.Type)
			}
		}(i)
	}
	wg.Wait()

	d, ok := s.GetOwnDescriptor(child, "n")
	require.True(t, ok)
	assert.True(t, d.Writable)
	assert.Equal(t, 0.0, mustGet(t, s, parent, "n").Number)
}

func TestConcurrentSetParentNeverLinksACycle(t *testing.T) {
	s := newTestStore(Permissive)
	for i := 0; i < 200; i++ {
		a, b := s.Create(nil), s.Create(nil)
		var wg sync.WaitGroup
		errs := make([]error, 2)
		wg.Add(2)
		go func() {
			defer wg.Done()
			errs[0] = s.SetParent(a, b)
		}()
		go func() {
			defer wg.Done()
			errs[1] = s.SetParent(b, a)
		}()
		wg.Wait()

		failed := 0
		for _, err := range errs {
			if err != nil {
				assert.ErrorIs(t, err, ErrCyclicParent)
				failed++
			}
		}
		require.Equal(t, 1, failed, "iteration %d", i)
		assert.False(t, s.ParentOf(a) == b && s.ParentOf(b) == a)
	}
}

func TestGetterBoundToNullWithoutCaller(t *testing.T) {
	var seen *Value
	getter := NewFunction("getA", func(this *Value, args []*Value) (*Value, error) {
		seen = this
		return NewNumber(1), nil
	}, nil, nil)
	bound := NewBoundFunction(getter, Null, nil, nil)

	s := newTestStore(Permissive)
	o := s.Create(nil)
	require.NoError(t, s.DefineOwn(o, "a", AccessorDescriptor(bound, nil)))
	assert.Equal(t, 1.0, mustGet(t, s, o, "a").Number)
	assert.Same(t, Undefined, seen)

	_, err := s.WithMode(Strict).Get(o, "a")
	assert.ErrorIs(t, err, ErrNoBinding)
}
