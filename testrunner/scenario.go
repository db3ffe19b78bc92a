package testrunner

import (
	"io"
	"math"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/example/protolink/runtime"
)

// Scenario is one YAML document: an object graph, some functions, and the
// steps to drive against them.
type Scenario struct {
	Name      string         `yaml:"name"`
	Skip      string         `yaml:"skip"`
	Mode      *runtime.Mode  `yaml:"mode"`
	Objects   []ObjectSpec   `yaml:"objects"`
	Functions []FunctionSpec `yaml:"functions"`
	Steps     []Step         `yaml:"steps"`
}

// ObjectSpec declares a named object. Parent names another object; empty
// means Object.prototype and "null" means no parent.
type ObjectSpec struct {
	Name       string                  `yaml:"name"`
	Parent     string                  `yaml:"parent"`
	Properties map[string]PropertySpec `yaml:"properties"`
}

// PropertySpec is either a bare value or a {value, writable, get, set}
// mapping. Writable defaults to true.
type PropertySpec struct {
	Value    *Literal `yaml:"value"`
	Writable *bool    `yaml:"writable"`
	Get      string   `yaml:"get"`
	Set      string   `yaml:"set"`
}

func (p *PropertySpec) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.MappingNode && !isLiteralMapping(node) {
		type plain PropertySpec
		return node.Decode((*plain)(p))
	}
	var lit Literal
	if err := node.Decode(&lit); err != nil {
		return err
	}
	p.Value = &lit
	return nil
}

// FunctionSpec declares a named function. Lexical makes it ignore its call
// site; Bind makes it a hard-bound wrapper around an earlier function.
type FunctionSpec struct {
	Name    string    `yaml:"name"`
	Body    BodySpec  `yaml:"body"`
	Lexical *Literal  `yaml:"lexical"`
	Bind    *BindSpec `yaml:"bind"`
}

// BodySpec selects one of the canned function bodies.
type BodySpec struct {
	Kind  string     `yaml:"kind"`
	Prop  string     `yaml:"prop"`
	Arg   int        `yaml:"arg"`
	Value *Literal   `yaml:"value"`
	Call  string     `yaml:"call"`
	Args  []Literal  `yaml:"args"`
	Body  *BodySpec  `yaml:"body"`
	Seq   []BodySpec `yaml:"seq"`
}

type BindSpec struct {
	Target  string    `yaml:"target"`
	Context *Literal  `yaml:"context"`
	Args    []Literal `yaml:"args"`
}

// Step is one operation plus its expectations.
type Step struct {
	Op       string        `yaml:"op"`
	Object   string        `yaml:"object"`
	Name     string        `yaml:"name"`
	Value    *Literal      `yaml:"value"`
	Writable *bool         `yaml:"writable"`
	Get      string        `yaml:"get"`
	Set      string        `yaml:"set"`
	Function string        `yaml:"function"`
	Site     string        `yaml:"site"`
	Context  *Literal      `yaml:"context"`
	Args     []Literal     `yaml:"args"`
	Delay    float64       `yaml:"delay"`
	Parent   string        `yaml:"parent"`
	Sources  []string      `yaml:"sources"`
	Target   string        `yaml:"target"`
	Mode     *runtime.Mode `yaml:"mode"`
	As       string        `yaml:"as"`

	Expect      *Literal  `yaml:"expect"`
	ExpectAll   []Literal `yaml:"expectAll"`
	ExpectError string    `yaml:"expectError"`
	ExpectOwn   *bool     `yaml:"expectOwn"`
}

type literalKind int

const (
	litNull literalKind = iota
	litUndefined
	litBool
	litNumber
	litString
	litRef
)

// Literal is a scalar, {ref: name}, {undefined: true} or {nullValue: true}.
// A bare YAML null also means null where it reaches the decoder, but a null
// optional field is indistinguishable from an absent one.
type Literal struct {
	kind literalKind
	b    bool
	n    float64
	s    string
}

var literalKeys = map[string]bool{"ref": true, "undefined": true, "nullValue": true}

func isLiteralMapping(node *yaml.Node) bool {
	if node.Kind != yaml.MappingNode || len(node.Content) != 2 {
		return false
	}
	return literalKeys[node.Content[0].Value]
}

func (l *Literal) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		switch node.ShortTag() {
		case "!!null":
			l.kind = litNull
		case "!!bool":
			l.kind = litBool
			return node.Decode(&l.b)
		case "!!int", "!!float":
			l.kind = litNumber
			return node.Decode(&l.n)
		default:
			l.kind = litString
			l.s = node.Value
		}
		return nil
	case yaml.MappingNode:
		var m struct {
			Ref       string `yaml:"ref"`
			Undefined bool   `yaml:"undefined"`
			Null      bool   `yaml:"nullValue"`
		}
		if err := node.Decode(&m); err != nil {
			return err
		}
		switch {
		case m.Ref != "":
			l.kind, l.s = litRef, m.Ref
		case m.Undefined:
			l.kind = litUndefined
		case m.Null:
			l.kind = litNull
		default:
			return errors.Errorf("line %d: literal mapping needs ref, undefined or nullValue", node.Line)
		}
		return nil
	}
	return errors.Errorf("line %d: unsupported literal", node.Line)
}

func (l Literal) String() string {
	switch l.kind {
	case litUndefined:
		return "undefined"
	case litBool:
		return runtime.NewBool(l.b).ToString()
	case litNumber:
		return runtime.NewNumber(l.n).ToString()
	case litString:
		return runtime.NewString(l.s).String()
	case litRef:
		return "ref " + l.s
	}
	return "null"
}

// primitive converts a non-reference literal.
func (l Literal) primitive() *runtime.Value {
	switch l.kind {
	case litUndefined:
		return runtime.Undefined
	case litBool:
		return runtime.NewBool(l.b)
	case litNumber:
		if math.IsNaN(l.n) {
			return runtime.NaN
		}
		return runtime.NewNumber(l.n)
	case litString:
		return runtime.NewString(l.s)
	}
	return runtime.Null
}

// decodeScenarios reads every YAML document in r.
func decodeScenarios(r io.Reader) ([]Scenario, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var out []Scenario
	for {
		var sc Scenario
		err := dec.Decode(&sc)
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, sc)
	}
}
