package builtins

import (
	"github.com/example/protolink/interpreter"
	"github.com/example/protolink/runtime"
)

// RegisterAll installs the intrinsics on interp's realm: the Object and
// Function constructors with their prototype methods, and, when sched is
// non-nil, setTimeout and clearTimeout on the global object.
func RegisterAll(interp *interpreter.Interpreter, sched *interpreter.Scheduler) {
	in := &intrinsics{
		interp: interp,
		store:  interp.Store(),
		realm:  interp.Realm(),
	}

	// 1. Object (foundational - Function.prototype delegates to it)
	objectCtor := in.installObject()
	in.setHidden(in.realm.Global, "Object", objectCtor.Value())

	// 2. Function: call/apply/bind
	functionCtor := in.installFunction()
	in.setHidden(in.realm.Global, "Function", functionCtor.Value())

	// 3. Timers
	if sched != nil {
		in.installTimers(sched)
	}

	in.setHidden(in.realm.Global, "globalThis", runtime.NewObject(in.realm.Global))
}
