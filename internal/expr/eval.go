package expr

import (
	"errors"
	"fmt"
	"strings"

	"github.com/KaramelBytes/datask-cli/internal/table"
)

// ExecutionError is any failure while parsing or evaluating generated code.
type ExecutionError struct {
	Source string
	Msg    string
}

func (e *ExecutionError) Error() string { return e.Msg }

// Outcome is the tagged result of an evaluation: exactly one of Value or
// Err is meaningful.
type Outcome struct {
	Value any
	Err   *ExecutionError
}

// OK reports whether evaluation succeeded.
func (o Outcome) OK() bool { return o.Err == nil }

// Text renders the value the way Python's str() would, or the error text.
func (o Outcome) Text() string {
	if o.Err != nil {
		return o.Err.Msg
	}
	return Format(o.Value)
}

// Env is the evaluation scope. Only names bound through NewEnv and Define
// are reachable, plus locals assigned by Exec.
type Env struct {
	globals map[string]any
	locals  map[string]any
}

// NewEnv binds the table as df together with len, max, min and range.
func NewEnv(t *table.Table) *Env {
	e := &Env{globals: map[string]any{}, locals: map[string]any{}}
	if t != nil {
		e.globals["df"] = NewFrame(t)
	}
	for name, fn := range builtins {
		e.globals[name] = &Builtin{Name: name, Fn: fn}
	}
	return e
}

// Define binds an extra global such as a plotting namespace.
func (e *Env) Define(name string, v any) { e.globals[name] = v }

// Evaluate parses and evaluates a single expression against t.
func Evaluate(src string, t *table.Table) Outcome {
	return NewEnv(t).Eval(src)
}

// Eval evaluates a single expression. It never panics.
func (e *Env) Eval(src string) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			out = Outcome{Err: &ExecutionError{Source: src, Msg: fmt.Sprintf("internal error: %v", r)}}
		}
	}()
	node, err := Parse(strings.TrimSpace(src))
	if err != nil {
		return Outcome{Err: wrapErr(src, err)}
	}
	v, err := e.eval(node)
	if err != nil {
		return Outcome{Err: wrapErr(src, err)}
	}
	return Outcome{Value: v}
}

// Exec runs a program of expression statements and single-name
// assignments. The first failure stops execution.
func (e *Env) Exec(src string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &ExecutionError{Source: src, Msg: fmt.Sprintf("internal error: %v", r)}
		}
	}()
	stmts, perr := ParseProgram(src)
	if perr != nil {
		return wrapErr(src, perr)
	}
	for _, st := range stmts {
		v, err := e.eval(st.Value)
		if err != nil {
			return wrapErr(src, err)
		}
		if st.Target != "" {
			if _, ok := e.globals[st.Target]; ok {
				return &ExecutionError{Source: src, Msg: fmt.Sprintf("cannot assign to reserved name '%s'", st.Target)}
			}
			e.locals[st.Target] = v
		}
	}
	return nil
}

func wrapErr(src string, err error) *ExecutionError {
	var ee *ExecutionError
	if errors.As(err, &ee) {
		return ee
	}
	return &ExecutionError{Source: src, Msg: err.Error()}
}

func errorf(format string, args ...any) error {
	return &ExecutionError{Msg: fmt.Sprintf(format, args...)}
}

func (e *Env) lookup(name string) (any, bool) {
	if v, ok := e.locals[name]; ok {
		return v, true
	}
	v, ok := e.globals[name]
	return v, ok
}

func (e *Env) eval(n Node) (any, error) {
	switch n := n.(type) {
	case *Literal:
		return n.Value, nil
	case *Name:
		v, ok := e.lookup(n.ID)
		if !ok {
			return nil, errorf("NameError: name '%s' is not defined", n.ID)
		}
		return v, nil
	case *ListExpr:
		items := make([]any, len(n.Elems))
		for i, el := range n.Elems {
			v, err := e.eval(el)
			if err != nil {
				return nil, err
			}
			items[i] = v
		}
		return &List{Items: items, Tuple: n.Tuple}, nil
	case *Attr:
		x, err := e.eval(n.X)
		if err != nil {
			return nil, err
		}
		return getAttr(x, n.Name)
	case *Index:
		x, err := e.eval(n.X)
		if err != nil {
			return nil, err
		}
		if s, ok := n.Key.(*SliceExpr); ok {
			sl, err := e.evalSlice(s)
			if err != nil {
				return nil, err
			}
			return sliceValue(x, sl)
		}
		key, err := e.eval(n.Key)
		if err != nil {
			return nil, err
		}
		return index(x, key)
	case *Call:
		return e.evalCall(n)
	case *Unary:
		x, err := e.eval(n.X)
		if err != nil {
			return nil, err
		}
		return unary(n.Op, x)
	case *Binary:
		l, err := e.eval(n.L)
		if err != nil {
			return nil, err
		}
		r, err := e.eval(n.R)
		if err != nil {
			return nil, err
		}
		return binary(n.Op, l, r)
	case *Compare:
		l, err := e.eval(n.L)
		if err != nil {
			return nil, err
		}
		r, err := e.eval(n.R)
		if err != nil {
			return nil, err
		}
		return compare(n.Op, l, r)
	case *BoolOp:
		l, err := e.eval(n.L)
		if err != nil {
			return nil, err
		}
		t, err := truthy(l)
		if err != nil {
			return nil, err
		}
		if (n.Op == "and" && !t) || (n.Op == "or" && t) {
			return l, nil
		}
		return e.eval(n.R)
	case *SliceExpr:
		return nil, errorf("SyntaxError: slice outside of subscript")
	}
	return nil, errorf("unsupported expression %T", n)
}

type slice struct {
	lo, hi, step *int64
}

func (e *Env) evalSlice(s *SliceExpr) (slice, error) {
	var out slice
	parts := []struct {
		n   Node
		dst **int64
	}{{s.Lo, &out.lo}, {s.Hi, &out.hi}, {s.Step, &out.step}}
	for _, p := range parts {
		if p.n == nil {
			continue
		}
		v, err := e.eval(p.n)
		if err != nil {
			return out, err
		}
		if v == nil {
			continue
		}
		i, ok := v.(int64)
		if !ok {
			if b, isBool := v.(bool); isBool {
				i, ok = boolInt(b), true
			}
		}
		if !ok {
			return out, errorf("TypeError: slice indices must be integers or None, not %s", TypeName(v))
		}
		*p.dst = &i
	}
	if out.step != nil && *out.step == 0 {
		return out, errorf("ValueError: slice step cannot be zero")
	}
	return out, nil
}

// positions resolves the slice against a sequence of length n.
func (s slice) positions(n int) []int {
	step := int64(1)
	if s.step != nil {
		step = *s.step
	}
	clamp := func(p *int64, def int64) int64 {
		if p == nil {
			return def
		}
		v := *p
		if v < 0 {
			v += int64(n)
			if v < 0 {
				if step < 0 {
					return -1
				}
				return 0
			}
		}
		if v >= int64(n) {
			if step < 0 {
				return int64(n) - 1
			}
			return int64(n)
		}
		return v
	}
	var out []int
	if step > 0 {
		lo, hi := clamp(s.lo, 0), clamp(s.hi, int64(n))
		for i := lo; i < hi; i += step {
			out = append(out, int(i))
		}
	} else {
		lo, hi := clamp(s.lo, int64(n)-1), clamp(s.hi, -1)
		if s.hi == nil {
			hi = -1
		}
		for i := lo; i > hi; i += step {
			out = append(out, int(i))
		}
	}
	return out
}

func (e *Env) evalCall(n *Call) (any, error) {
	fn, err := e.eval(n.Fn)
	if err != nil {
		return nil, err
	}
	args := make([]any, len(n.Args))
	for i, a := range n.Args {
		v, err := e.eval(a)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	var kwargs map[string]any
	if len(n.Kwargs) > 0 {
		kwargs = make(map[string]any, len(n.Kwargs))
		for _, kw := range n.Kwargs {
			v, err := e.eval(kw.Value)
			if err != nil {
				return nil, err
			}
			kwargs[kw.Name] = v
		}
	}
	switch f := fn.(type) {
	case *Builtin:
		return f.Fn(args, kwargs)
	case *boundMethod:
		return f.fn(f.recv, callArgs{name: f.name, pos: args, kw: kwargs})
	case Func:
		return f(args, kwargs)
	}
	return nil, errorf("TypeError: '%s' object is not callable", TypeName(fn))
}
