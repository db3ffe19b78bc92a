package interpreter

import (
	"github.com/example/protolink/runtime"
)

// Rule names the binding rule that produced a context.
type Rule int

const (
	RuleLexical Rule = iota
	RuleConstruct
	RuleHard
	RuleExplicit
	RuleImplicit
	RuleDefault
)

func (r Rule) String() string {
	switch r {
	case RuleLexical:
		return "lexical"
	case RuleConstruct:
		return "new"
	case RuleHard:
		return "hard"
	case RuleExplicit:
		return "explicit"
	case RuleImplicit:
		return "implicit"
	case RuleDefault:
		return "default"
	}
	return "unknown"
}

// Binding is the outcome of context resolution.
type Binding struct {
	This *runtime.Value
	Rule Rule
}

// Resolver decides which this a function receives at a call site.
type Resolver struct {
	store       *runtime.Store
	objectProto *runtime.Object
}

// NewResolver returns a resolver that allocates constructed objects on
// store. objectProto is the parent used when a constructor has no object
// in its "prototype" property.
func NewResolver(store *runtime.Store, objectProto *runtime.Object) *Resolver {
	return &Resolver{store: store, objectProto: objectProto}
}

// ResolveContext applies the binding rules in precedence order; the first
// that matches wins:
//
//  1. lexical functions use their captured context, whatever the site;
//  2. construction gets a fresh object delegating to the prototype;
//  3. a hard-bound context, then a non-null explicit context;
//  4. the immediate receiver of a member access;
//  5. a null explicit context falls through to
//  6. the default binding: global, or NoBindingError in strict mode.
func (r *Resolver) ResolveContext(fn *runtime.Function, site CallSite, global *runtime.Value) (Binding, error) {
	if fn.IsLexical() {
		return Binding{This: fn.CapturedContext(), Rule: RuleLexical}, nil
	}

	if site.Kind == SiteConstruct {
		target := fn.Target()
		parent := r.objectProto
		protoVal, err := r.store.Get(target.Object(), "prototype")
		if err != nil {
			return Binding{}, err
		}
		if proto := protoVal.AsObject(); proto != nil {
			parent = proto
		}
		obj := r.store.CreateConstructed(parent, target)
		return Binding{This: runtime.NewObject(obj), Rule: RuleConstruct}, nil
	}

	if this, ok := fn.BoundContext(); ok {
		if !this.IsNullish() {
			return Binding{This: this, Rule: RuleHard}, nil
		}
		// bind(null) is ignored like call(null), and still shadows the call site.
		return r.defaultBinding(fn, global)
	}
	if site.explicit() && !site.Context.IsNullish() {
		return Binding{This: site.Context, Rule: RuleExplicit}, nil
	}

	if site.Kind == SiteMember && site.Owner != nil {
		return Binding{This: runtime.NewObject(site.Owner), Rule: RuleImplicit}, nil
	}

	return r.defaultBinding(fn, global)
}

func (r *Resolver) defaultBinding(fn *runtime.Function, global *runtime.Value) (Binding, error) {
	if r.store.Mode() == runtime.Strict {
		return Binding{}, &runtime.Error{Kind: runtime.KindNoBinding, Object: fn.Name}
	}
	if global == nil {
		global = runtime.Undefined
	}
	return Binding{This: global, Rule: RuleDefault}, nil
}
