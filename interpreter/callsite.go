package interpreter

import (
	"fmt"
	"strings"

	"github.com/example/protolink/runtime"
)

// SiteKind is the shape of a call expression.
type SiteKind int

const (
	SiteBare SiteKind = iota
	SiteMember
	SiteCall
	SiteApply
	SiteConstruct
)

func (k SiteKind) String() string {
	switch k {
	case SiteBare:
		return "bare"
	case SiteMember:
		return "member"
	case SiteCall:
		return "call"
	case SiteApply:
		return "apply"
	case SiteConstruct:
		return "construct"
	}
	return "unknown"
}

// ParseSiteKind maps a site name to its kind.
func ParseSiteKind(s string) (SiteKind, error) {
	switch strings.ToLower(s) {
	case "", "bare":
		return SiteBare, nil
	case "member", "memberaccess":
		return SiteMember, nil
	case "call", "explicitcall":
		return SiteCall, nil
	case "apply", "explicitapply":
		return SiteApply, nil
	case "construct", "new":
		return SiteConstruct, nil
	}
	return SiteBare, fmt.Errorf("unknown call site %q", s)
}

// CallSite describes one invocation. It is built per call and never kept.
type CallSite struct {
	Kind    SiteKind
	Owner   *runtime.Object // SiteMember
	Context *runtime.Value  // SiteCall, SiteApply
	Args    []*runtime.Value
}

// Bare is a plain reference call: foo().
func Bare(args ...*runtime.Value) CallSite {
	return CallSite{Kind: SiteBare, Args: args}
}

// MemberAccess is obj.foo(). Only the immediate receiver counts.
func MemberAccess(owner *runtime.Object, args ...*runtime.Value) CallSite {
	return CallSite{Kind: SiteMember, Owner: owner, Args: args}
}

// ExplicitCall is foo.call(ctx, args...).
func ExplicitCall(ctx *runtime.Value, args ...*runtime.Value) CallSite {
	return CallSite{Kind: SiteCall, Context: ctx, Args: args}
}

// ExplicitApply is foo.apply(ctx, args).
func ExplicitApply(ctx *runtime.Value, args []*runtime.Value) CallSite {
	return CallSite{Kind: SiteApply, Context: ctx, Args: args}
}

// Construct is new foo(args...).
func Construct(args ...*runtime.Value) CallSite {
	return CallSite{Kind: SiteConstruct, Args: args}
}

func (cs CallSite) explicit() bool {
	return cs.Kind == SiteCall || cs.Kind == SiteApply
}
