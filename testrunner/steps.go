package testrunner

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/pkg/errors"

	"github.com/example/protolink/common"
	"github.com/example/protolink/interpreter"
	"github.com/example/protolink/runtime"
)

// failure is an unmet expectation, as opposed to a broken scenario.
type failure struct {
	msg string
}

func (f *failure) Error() string {
	return f.msg
}

func failf(format string, args ...interface{}) error {
	return &failure{msg: fmt.Sprintf(format, args...)}
}

// stepFunc performs an op and returns its result value, if it has one.
type stepFunc func(ctx context.Context, s Step) (*runtime.Value, error)

func (e *env) ops() map[string]stepFunc {
	return map[string]stepFunc{
		"get":           e.opGet,
		"set":           e.opSet,
		"define":        e.opDefine,
		"hasOwn":        e.opHasOwn,
		"increment":     e.opIncrement,
		"call":          e.opCall,
		"indirect":      e.opIndirect,
		"map":           e.opMap,
		"bind":          e.opBind,
		"create":        e.opCreate,
		"setParent":     e.opSetParent,
		"mixin":         e.opMixin,
		"isPrototypeOf": e.opIsPrototypeOf,
		"defer":         e.opDefer,
		"cancel":        e.opCancel,
		"advance":       e.opAdvance,
		"close":         e.opClose,
	}
}

// compileSteps turns the steps into one pipeline. Unknown ops fail here,
// before anything runs.
func (e *env) compileSteps(steps []Step) (common.Executor, error) {
	ops := e.ops()
	executors := make([]common.Executor, 0, len(steps))
	for i, s := range steps {
		op, ok := ops[s.Op]
		if !ok {
			return nil, errors.Errorf("step %d: unknown op %q", i+1, s.Op)
		}
		if s.ExpectError != "" {
			if _, ok := runtime.ParseErrorKind(s.ExpectError); !ok {
				return nil, errors.Errorf("step %d: unknown error kind %q", i+1, s.ExpectError)
			}
		}
		executors = append(executors, e.stepExecutor(i, s, op))
	}
	return common.NewPipelineExecutor(executors...), nil
}

func (e *env) stepExecutor(i int, s Step, op stepFunc) common.Executor {
	return func(ctx context.Context) error {
		common.Logger(ctx).WithField("step", i+1).Tracef("%s %s.%s", s.Op, s.Object, s.Name)
		v, err := op(ctx, s)
		if err := e.check(s, v, err); err != nil {
			return errors.Wrapf(err, "step %d (%s)", i+1, s.Op)
		}
		return nil
	}
}

func (e *env) check(s Step, v *runtime.Value, opErr error) error {
	var f *failure
	if errors.As(opErr, &f) {
		return opErr
	}
	if s.ExpectError != "" {
		return expectKind(s.ExpectError, opErr)
	}
	if opErr != nil {
		var rtErr *runtime.Error
		if errors.As(opErr, &rtErr) {
			return failf("unexpected %s: %v", rtErr.Kind, opErr)
		}
		return opErr
	}
	if s.Expect != nil {
		want, err := e.value(s.Expect)
		if err != nil {
			return err
		}
		if !sameValue(v, want) {
			return failf("got %s, want %s", describe(v), describe(want))
		}
	}
	if s.As != "" && v != nil {
		if err := e.bindName(s.As, v); err != nil {
			return err
		}
	}
	if s.ExpectOwn != nil {
		obj, err := e.object(s.Object)
		if err != nil {
			return err
		}
		if has := e.store.HasOwn(obj, s.Name); has != *s.ExpectOwn {
			return failf("own property %s.%s: got %t, want %t", s.Object, s.Name, has, *s.ExpectOwn)
		}
	}
	return nil
}

func expectKind(name string, err error) error {
	want, _ := runtime.ParseErrorKind(name)
	if err == nil {
		return failf("expected %s, got no error", name)
	}
	var rtErr *runtime.Error
	if !errors.As(err, &rtErr) {
		return failf("expected %s, got %v", name, err)
	}
	if rtErr.Kind != want {
		return failf("expected %s, got %s", name, rtErr.Kind)
	}
	return nil
}

// sameValue is strict equality, except that NaN equals NaN.
func sameValue(got, want *runtime.Value) bool {
	if got == nil {
		got = runtime.Undefined
	}
	if got.Type == runtime.TypeNumber && want.Type == runtime.TypeNumber &&
		math.IsNaN(got.Number) && math.IsNaN(want.Number) {
		return true
	}
	return runtime.StrictEquals(got, want)
}

func describe(v *runtime.Value) string {
	if v == nil {
		return "nothing"
	}
	if obj := v.AsObject(); obj != nil && obj.Label != "" && v.AsFunction() == nil {
		return obj.Label
	}
	return v.String()
}

func (e *env) storeFor(s Step) *runtime.Store {
	if s.Mode != nil {
		return e.store.WithMode(*s.Mode)
	}
	return e.store
}

func (e *env) opGet(_ context.Context, s Step) (*runtime.Value, error) {
	obj, err := e.object(s.Object)
	if err != nil {
		return nil, err
	}
	return e.storeFor(s).Get(obj, s.Name)
}

func (e *env) opSet(_ context.Context, s Step) (*runtime.Value, error) {
	obj, err := e.object(s.Object)
	if err != nil {
		return nil, err
	}
	v, err := e.value(s.Value)
	if err != nil {
		return nil, err
	}
	return nil, e.storeFor(s).Set(obj, s.Name, v)
}

func (e *env) opDefine(_ context.Context, s Step) (*runtime.Value, error) {
	obj, err := e.object(s.Object)
	if err != nil {
		return nil, err
	}
	d, err := e.descriptor(s.Value, s.Writable, s.Get, s.Set)
	if err != nil {
		return nil, err
	}
	return nil, e.storeFor(s).DefineOwn(obj, s.Name, d)
}

func (e *env) opHasOwn(_ context.Context, s Step) (*runtime.Value, error) {
	obj, err := e.object(s.Object)
	if err != nil {
		return nil, err
	}
	return runtime.NewBool(e.store.HasOwn(obj, s.Name)), nil
}

func (e *env) opIncrement(_ context.Context, s Step) (*runtime.Value, error) {
	obj, err := e.object(s.Object)
	if err != nil {
		return nil, err
	}
	return e.storeFor(s).Increment(obj, s.Name, 1)
}

// site builds the call site for a step. A member site needs Object.
func (e *env) site(s Step) (interpreter.CallSite, error) {
	kind, err := interpreter.ParseSiteKind(s.Site)
	if err != nil {
		return interpreter.CallSite{}, err
	}
	args, err := e.values(s.Args)
	if err != nil {
		return interpreter.CallSite{}, err
	}
	switch kind {
	case interpreter.SiteMember:
		owner, err := e.object(s.Object)
		if err != nil {
			return interpreter.CallSite{}, err
		}
		return interpreter.MemberAccess(owner, args...), nil
	case interpreter.SiteCall, interpreter.SiteApply:
		ctx, err := e.optional(s.Context)
		if err != nil {
			return interpreter.CallSite{}, err
		}
		if kind == interpreter.SiteApply {
			return interpreter.ExplicitApply(ctx, args), nil
		}
		return interpreter.ExplicitCall(ctx, args...), nil
	case interpreter.SiteConstruct:
		return interpreter.Construct(args...), nil
	}
	return interpreter.Bare(args...), nil
}

// callee is the named function, or for a member site without one, the
// value of Object.Name.
func (e *env) callee(s Step, site interpreter.CallSite) (*runtime.Value, error) {
	if s.Function != "" {
		return e.lookup(s.Function)
	}
	if site.Kind == interpreter.SiteMember && s.Name != "" {
		return e.store.Get(site.Owner, s.Name)
	}
	return nil, errors.New("call needs function, or a member site with name")
}

func (e *env) opCall(_ context.Context, s Step) (*runtime.Value, error) {
	site, err := e.site(s)
	if err != nil {
		return nil, err
	}
	callee, err := e.callee(s, site)
	if err != nil {
		return nil, err
	}
	return e.interp.CallValue(callee, site)
}

// opIndirect evaluates (object.name = value)(args...).
func (e *env) opIndirect(_ context.Context, s Step) (*runtime.Value, error) {
	obj, err := e.object(s.Object)
	if err != nil {
		return nil, err
	}
	v, err := e.value(s.Value)
	if err != nil {
		return nil, err
	}
	args, err := e.values(s.Args)
	if err != nil {
		return nil, err
	}
	return e.interp.IndirectCall(obj, s.Name, v, args...)
}

func (e *env) opMap(_ context.Context, s Step) (*runtime.Value, error) {
	fn, err := e.function(s.Function)
	if err != nil {
		return nil, err
	}
	thisArg, err := e.optional(s.Context)
	if err != nil {
		return nil, err
	}
	items, err := e.values(s.Args)
	if err != nil {
		return nil, err
	}
	out, err := e.interp.Map(fn, thisArg, items)
	if err != nil {
		return nil, err
	}
	return nil, e.expectAll(s, out)
}

func (e *env) expectAll(s Step, got []*runtime.Value) error {
	if s.ExpectAll == nil {
		return nil
	}
	want, err := e.values(s.ExpectAll)
	if err != nil {
		return err
	}
	if len(got) != len(want) {
		return failf("got %d results, want %d", len(got), len(want))
	}
	for i := range got {
		if !sameValue(got[i], want[i]) {
			return failf("result %d: got %s, want %s", i, describe(got[i]), describe(want[i]))
		}
	}
	return nil
}

func (e *env) opBind(_ context.Context, s Step) (*runtime.Value, error) {
	fn, err := e.function(s.Function)
	if err != nil {
		return nil, err
	}
	this, err := e.value(s.Context)
	if err != nil {
		return nil, err
	}
	args, err := e.values(s.Args)
	if err != nil {
		return nil, err
	}
	return e.interp.Bind(fn, this, args...).Value(), nil
}

func (e *env) opCreate(_ context.Context, s Step) (*runtime.Value, error) {
	parent, err := e.parent(s.Parent)
	if err != nil {
		return nil, err
	}
	obj := e.store.Create(parent)
	obj.Label = s.As
	return runtime.NewObject(obj), nil
}

func (e *env) opSetParent(_ context.Context, s Step) (*runtime.Value, error) {
	obj, err := e.object(s.Object)
	if err != nil {
		return nil, err
	}
	parent, err := e.parent(s.Parent)
	if err != nil {
		return nil, err
	}
	return nil, e.store.SetParent(obj, parent)
}

func (e *env) opMixin(_ context.Context, s Step) (*runtime.Value, error) {
	sources := make([]*runtime.Object, 0, len(s.Sources))
	for _, name := range s.Sources {
		obj, err := e.object(name)
		if err != nil {
			return nil, err
		}
		sources = append(sources, obj)
	}
	merged, err := e.store.Mixin(sources...)
	if err != nil {
		return nil, err
	}
	merged.Label = s.As
	return runtime.NewObject(merged), nil
}

func (e *env) opIsPrototypeOf(_ context.Context, s Step) (*runtime.Value, error) {
	proto, err := e.object(s.Object)
	if err != nil {
		return nil, err
	}
	obj, err := e.object(s.Target)
	if err != nil {
		return nil, err
	}
	return runtime.NewBool(e.store.IsPrototypeOf(proto, obj)), nil
}

func delay(ms float64) time.Duration {
	return time.Duration(ms * float64(time.Millisecond))
}

// opDefer resolves the call now and queues it; the result is the timer id.
func (e *env) opDefer(_ context.Context, s Step) (*runtime.Value, error) {
	fn, err := e.function(s.Function)
	if err != nil {
		return nil, err
	}
	site, err := e.site(s)
	if err != nil {
		return nil, err
	}
	id, err := e.sched.Defer(fn, site, delay(s.Delay))
	if err != nil {
		return nil, err
	}
	return runtime.NewNumber(float64(id)), nil
}

func (e *env) opCancel(_ context.Context, s Step) (*runtime.Value, error) {
	v, err := e.lookup(s.Name)
	if err != nil {
		return nil, err
	}
	return runtime.NewBool(e.sched.Cancel(interpreter.TimerID(v.ToNumber()))), nil
}

// opAdvance runs what falls due. ExpectAll checks the values in run order;
// a failed invocation fails the step unless ExpectError names its kind.
func (e *env) opAdvance(ctx context.Context, s Step) (*runtime.Value, error) {
	outcomes, err := e.sched.Advance(ctx, delay(s.Delay))
	if err != nil {
		return nil, err
	}
	values := make([]*runtime.Value, 0, len(outcomes))
	var firstErr error
	for _, o := range outcomes {
		if o.Err != nil && firstErr == nil {
			firstErr = o.Err
		}
		values = append(values, o.Value)
	}
	if firstErr != nil {
		return nil, firstErr
	}
	return nil, e.expectAll(s, values)
}

func (e *env) opClose(_ context.Context, s Step) (*runtime.Value, error) {
	e.realm.Close()
	return nil, nil
}
