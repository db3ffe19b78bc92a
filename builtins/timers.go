package builtins

import (
	"math"
	"time"

	"github.com/example/protolink/interpreter"
	"github.com/example/protolink/runtime"
)

type timers struct {
	*intrinsics
	sched *interpreter.Scheduler
}

func (in *intrinsics) installTimers(sched *interpreter.Scheduler) {
	t := &timers{intrinsics: in, sched: sched}
	in.setMethod(in.realm.Global, "setTimeout", t.setTimeout)
	in.setMethod(in.realm.Global, "clearTimeout", t.clearTimeout)
}

// setTimeout(fn, delay, ...args) queues fn as a plain call, so fn sees the
// default binding unless it was bound beforehand.
func (t *timers) setTimeout(this *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	fn, err := calleeOf(argAt(args, 0), "setTimeout")
	if err != nil {
		return nil, err
	}
	ms := argAt(args, 1).ToNumber()
	if math.IsNaN(ms) || ms < 0 {
		ms = 0
	}
	delay := time.Duration(ms * float64(time.Millisecond))
	var rest []*runtime.Value
	if len(args) > 2 {
		rest = args[2:]
	}
	id, err := t.sched.Defer(fn, interpreter.Bare(rest...), delay)
	if err != nil {
		return nil, err
	}
	return runtime.NewNumber(float64(id)), nil
}

func (t *timers) clearTimeout(this *runtime.Value, args []*runtime.Value) (*runtime.Value, error) {
	t.sched.Cancel(interpreter.TimerID(argAt(args, 0).ToNumber()))
	return runtime.Undefined, nil
}
