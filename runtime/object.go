package runtime

import (
	"sort"
	"sync"
)

// DescriptorKind tells data properties from accessor properties.
type DescriptorKind int

const (
	DataKind DescriptorKind = iota
	AccessorKind
)

func (k DescriptorKind) String() string {
	if k == AccessorKind {
		return "accessor"
	}
	return "data"
}

// PropertyDescriptor is either a data descriptor {Value, Writable} or an
// accessor descriptor {Getter, Setter}. Descriptors are installed by value
// and never mutated in place.
type PropertyDescriptor struct {
	Value      *Value
	Writable   bool
	Getter     *Function
	Setter     *Function
	IsAccessor bool
}

// DataDescriptor builds a data descriptor.
func DataDescriptor(v *Value, writable bool) PropertyDescriptor {
	if v == nil {
		v = Undefined
	}
	return PropertyDescriptor{Value: v, Writable: writable}
}

// AccessorDescriptor builds an accessor descriptor. Either side may be nil.
func AccessorDescriptor(getter, setter *Function) PropertyDescriptor {
	return PropertyDescriptor{Getter: getter, Setter: setter, IsAccessor: true}
}

// Kind reports which of the two descriptor kinds d is.
func (d PropertyDescriptor) Kind() DescriptorKind {
	if d.IsAccessor {
		return AccessorKind
	}
	return DataKind
}

// normalize drops the fields that do not belong to the descriptor's kind.
func (d PropertyDescriptor) normalize() PropertyDescriptor {
	if d.IsAccessor {
		return AccessorDescriptor(d.Getter, d.Setter)
	}
	return DataDescriptor(d.Value, d.Writable)
}

// Object is a mapping from property names to descriptors with an optional
// parent link. Parents are shared and never owned by their children.
type Object struct {
	mu             sync.RWMutex
	props          map[string]PropertyDescriptor
	parent         *Object
	constructorTag *Function
	fn             *Function

	// Label names the object in logs and error messages.
	Label string
}

func newObject(parent *Object) *Object {
	return &Object{
		props:  make(map[string]PropertyDescriptor),
		parent: parent,
	}
}

// Parent returns the object lookups delegate to, or nil.
func (o *Object) Parent() *Object {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.parent
}

// ConstructorTag returns the function that constructed o, if any.
func (o *Object) ConstructorTag() *Function {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.constructorTag
}

// Function returns the callable backing a function object.
func (o *Object) Function() *Function {
	return o.fn
}

func (o *Object) own(name string) (PropertyDescriptor, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	d, ok := o.props[name]
	return d, ok
}

func (o *Object) put(name string, d PropertyDescriptor) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.props[name] = d.normalize()
}

// swapOwn installs next only if the own slot for name still matches
// expected (or is still absent when present is false).
func (o *Object) swapOwn(name string, expected PropertyDescriptor, present bool, next PropertyDescriptor) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	cur, ok := o.props[name]
	if ok != present || (ok && cur != expected) {
		return false
	}
	o.props[name] = next.normalize()
	return true
}

func (o *Object) snapshot() map[string]PropertyDescriptor {
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := make(map[string]PropertyDescriptor, len(o.props))
	for k, d := range o.props {
		out[k] = d
	}
	return out
}

func (o *Object) keys() []string {
	o.mu.RLock()
	keys := make([]string, 0, len(o.props))
	for k := range o.props {
		keys = append(keys, k)
	}
	o.mu.RUnlock()
	sort.Strings(keys)
	return keys
}

func (o *Object) label() string {
	if o == nil {
		return "undefined"
	}
	if o.Label != "" {
		return o.Label
	}
	if o.fn != nil && o.fn.Name != "" {
		return o.fn.Name
	}
	return "#<Object>"
}

// lookup walks o and its ancestors and returns the first owner of name.
func lookup(o *Object, name string) (*Object, PropertyDescriptor, bool) {
	for cur := o; cur != nil; cur = cur.Parent() {
		if d, ok := cur.own(name); ok {
			return cur, d, true
		}
	}
	return nil, PropertyDescriptor{}, false
}
