// Package expr implements the small condition language used by step `if`
// clauses: string literals, context identifiers (matrix.os, trigger.branch),
// contains/startsWith, ==, !=, !, && and || with parentheses.
package expr

import (
	"fmt"
	"strings"
)

// Context resolves identifiers referenced by an expression.
type Context map[string]string

// Eval parses and evaluates src against ctx. The result must be boolean;
// a bare string expression is an error.
func Eval(src string, ctx Context) (bool, error) {
	node, err := Parse(src)
	if err != nil {
		return false, err
	}
	v, err := node.eval(ctx)
	if err != nil {
		return false, err
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("expression %q does not evaluate to a boolean", src)
	}
	return b, nil
}

// Parse returns the AST for src without evaluating it. Useful for lint-time
// validation of conditions.
func Parse(src string) (Node, error) {
	p := &parser{lex: newLexer(src)}
	if err := p.next(); err != nil {
		return nil, err
	}
	node, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.tok.kind != tokEOF {
		return nil, fmt.Errorf("unexpected %q at offset %d", p.tok.text, p.tok.pos)
	}
	return node, nil
}

// Identifiers walks the AST and returns every identifier it references.
func Identifiers(node Node) []string {
	var ids []string
	var walk func(Node)
	walk = func(n Node) {
		switch t := n.(type) {
		case identNode:
			ids = append(ids, t.name)
		case notNode:
			walk(t.operand)
		case binaryNode:
			walk(t.left)
			walk(t.right)
		case callNode:
			for _, a := range t.args {
				walk(a)
			}
		}
	}
	walk(node)
	return ids
}

// Node is an evaluable expression fragment.
type Node interface {
	eval(ctx Context) (any, error)
}

type literalNode struct{ value any } // string or bool

func (n literalNode) eval(Context) (any, error) { return n.value, nil }

type identNode struct{ name string }

func (n identNode) eval(ctx Context) (any, error) {
	v, ok := ctx[n.name]
	if !ok {
		return nil, fmt.Errorf("unknown identifier %q", n.name)
	}
	return v, nil
}

type notNode struct{ operand Node }

func (n notNode) eval(ctx Context) (any, error) {
	v, err := n.operand.eval(ctx)
	if err != nil {
		return nil, err
	}
	b, ok := v.(bool)
	if !ok {
		return nil, fmt.Errorf("operand of ! is not boolean")
	}
	return !b, nil
}

type binaryNode struct {
	op          string // "==", "!=", "&&", "||"
	left, right Node
}

func (n binaryNode) eval(ctx Context) (any, error) {
	lv, err := n.left.eval(ctx)
	if err != nil {
		return nil, err
	}
	switch n.op {
	case "&&", "||":
		lb, ok := lv.(bool)
		if !ok {
			return nil, fmt.Errorf("left operand of %s is not boolean", n.op)
		}
		// short circuit
		if n.op == "&&" && !lb {
			return false, nil
		}
		if n.op == "||" && lb {
			return true, nil
		}
		rv, err := n.right.eval(ctx)
		if err != nil {
			return nil, err
		}
		rb, ok := rv.(bool)
		if !ok {
			return nil, fmt.Errorf("right operand of %s is not boolean", n.op)
		}
		return rb, nil
	case "==", "!=":
		rv, err := n.right.eval(ctx)
		if err != nil {
			return nil, err
		}
		eq := lv == rv
		if n.op == "!=" {
			eq = !eq
		}
		return eq, nil
	}
	return nil, fmt.Errorf("unknown operator %s", n.op)
}

type callNode struct {
	name string
	args []Node
}

func (n callNode) eval(ctx Context) (any, error) {
	if len(n.args) != 2 {
		return nil, fmt.Errorf("%s expects 2 arguments, got %d", n.name, len(n.args))
	}
	vals := make([]string, 2)
	for i, a := range n.args {
		v, err := a.eval(ctx)
		if err != nil {
			return nil, err
		}
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("argument %d of %s is not a string", i+1, n.name)
		}
		vals[i] = s
	}
	switch n.name {
	case "contains":
		return strings.Contains(vals[0], vals[1]), nil
	case "startsWith":
		return strings.HasPrefix(vals[0], vals[1]), nil
	}
	return nil, fmt.Errorf("unknown function %q", n.name)
}
