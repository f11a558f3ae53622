package condition

import (
	"fmt"
	"strings"
)

// Kind tags the supported predicate forms of a template-step condition.
type Kind int

const (
	// KindAlways matches every role (empty expression).
	KindAlways Kind = iota
	// KindIn is membership: role IN (a,b,c)
	KindIn
	// KindEq is equality: role = x
	KindEq
	// KindNeq is inequality: role != x
	KindNeq
)

// Expr is a parsed condition, evaluated against the requester's role code.
// Parse once at template load; Eval is allocation-free.
type Expr struct {
	Kind   Kind
	Values []string
}

// Parse compiles a condition expression. The grammar is deliberately tiny:
//
//	role IN (a,b,c)
//	role = x
//	role != x
//
// Anything else returns an error. Callers must treat a parse failure as
// "does not match" — unrecognized forms fail closed so a typo in template
// configuration can never widen an approval line.
func Parse(input string) (Expr, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return Expr{Kind: KindAlways}, nil
	}

	lower := strings.ToLower(s)
	if !strings.HasPrefix(lower, "role") {
		return Expr{}, fmt.Errorf("condition must start with 'role': %q", input)
	}
	rest := strings.TrimSpace(s[len("role"):])
	lowerRest := strings.ToLower(rest)

	switch {
	case strings.HasPrefix(lowerRest, "in"):
		list := strings.TrimSpace(rest[2:])
		if !strings.HasPrefix(list, "(") || !strings.HasSuffix(list, ")") {
			return Expr{}, fmt.Errorf("IN requires a parenthesized list: %q", input)
		}
		var values []string
		for _, v := range strings.Split(list[1:len(list)-1], ",") {
			v = strings.TrimSpace(v)
			if v != "" {
				values = append(values, v)
			}
		}
		if len(values) == 0 {
			return Expr{}, fmt.Errorf("IN list is empty: %q", input)
		}
		return Expr{Kind: KindIn, Values: values}, nil

	case strings.HasPrefix(rest, "!="):
		value := strings.TrimSpace(rest[2:])
		if value == "" {
			return Expr{}, fmt.Errorf("missing value after '!=': %q", input)
		}
		return Expr{Kind: KindNeq, Values: []string{value}}, nil

	case strings.HasPrefix(rest, "="):
		value := strings.TrimSpace(rest[1:])
		if value == "" {
			return Expr{}, fmt.Errorf("missing value after '=': %q", input)
		}
		return Expr{Kind: KindEq, Values: []string{value}}, nil
	}

	return Expr{}, fmt.Errorf("unrecognized condition form: %q", input)
}

// Eval reports whether the role code satisfies the expression.
func (e Expr) Eval(role string) bool {
	switch e.Kind {
	case KindAlways:
		return true
	case KindIn:
		for _, v := range e.Values {
			if v == role {
				return true
			}
		}
		return false
	case KindEq:
		return len(e.Values) == 1 && e.Values[0] == role
	case KindNeq:
		return len(e.Values) == 1 && e.Values[0] != role
	}
	return false
}
