package runtime

import "fmt"

// ErrorKind names an outcome reported by the object store or the resolver.
type ErrorKind int

const (
	KindReadOnlyViolation ErrorKind = iota + 1
	KindNoSetter
	KindNoBinding
	KindUndefinedContextAccess
	KindCyclicParent
	KindNotCallable
	KindRealmClosed
)

var kindNames = map[ErrorKind]string{
	KindReadOnlyViolation:      "ReadOnlyViolation",
	KindNoSetter:               "NoSetterError",
	KindNoBinding:              "NoBindingError",
	KindUndefinedContextAccess: "UndefinedContextAccess",
	KindCyclicParent:           "CyclicParentError",
	KindNotCallable:            "NotCallable",
	KindRealmClosed:            "RealmClosed",
}

func (k ErrorKind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// ParseErrorKind maps a kind name back to its ErrorKind.
func ParseErrorKind(s string) (ErrorKind, bool) {
	for k, name := range kindNames {
		if name == s {
			return k, true
		}
	}
	return 0, false
}

// Error is a named failure. Sentinels carry only a Kind and match any
// Error of the same kind under errors.Is.
type Error struct {
	Kind     ErrorKind
	Property string
	Object   string
}

var (
	ErrReadOnlyViolation      = &Error{Kind: KindReadOnlyViolation}
	ErrNoSetter               = &Error{Kind: KindNoSetter}
	ErrNoBinding              = &Error{Kind: KindNoBinding}
	ErrUndefinedContextAccess = &Error{Kind: KindUndefinedContextAccess}
	ErrCyclicParent           = &Error{Kind: KindCyclicParent}
	ErrNotCallable            = &Error{Kind: KindNotCallable}
	ErrRealmClosed            = &Error{Kind: KindRealmClosed}
)

func (e *Error) Error() string {
	switch e.Kind {
	case KindReadOnlyViolation:
		return fmt.Sprintf("TypeError: Cannot assign to read only property '%s' of object '%s'", e.Property, e.Object)
	case KindNoSetter:
		return fmt.Sprintf("TypeError: Cannot set property %s of %s which has only a getter", e.Property, e.Object)
	case KindNoBinding:
		return fmt.Sprintf("TypeError: no this binding for %s in strict mode", e.Object)
	case KindUndefinedContextAccess:
		return fmt.Sprintf("TypeError: Cannot access property '%s' of undefined", e.Property)
	case KindCyclicParent:
		return fmt.Sprintf("TypeError: Cyclic __proto__ value on %s", e.Object)
	case KindNotCallable:
		return fmt.Sprintf("TypeError: %s is not a function", e.Object)
	case KindRealmClosed:
		return "Error: realm is closed"
	}
	return e.Kind.String()
}

// Is matches sentinels by kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Property == "" && t.Object == ""
}
