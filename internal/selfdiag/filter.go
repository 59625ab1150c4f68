package selfdiag

import (
	"strings"
	"time"

	"github.com/google/cel-go/cel"
)

// Filter wraps a compiled CEL program evaluated against scanned records.
// The zero Filter matches everything.
//
// Variables: ts_ms (int), message (string), params (list of string),
// text (string), size (int), now_ms (int).
type Filter struct {
	prog    cel.Program
	enabled bool
}

// NewFilter compiles expr. An empty expression yields a match-all filter.
func NewFilter(expr string) (Filter, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return Filter{}, nil
	}
	env, err := cel.NewEnv(
		cel.Variable("ts_ms", cel.IntType),
		cel.Variable("message", cel.StringType),
		cel.Variable("params", cel.ListType(cel.StringType)),
		cel.Variable("text", cel.StringType),
		cel.Variable("size", cel.IntType),
		cel.Variable("now_ms", cel.IntType),
	)
	if err != nil {
		return Filter{}, err
	}
	ast, iss := env.Compile(expr)
	if iss != nil && iss.Err() != nil {
		return Filter{}, iss.Err()
	}
	prog, err := env.Program(ast)
	if err != nil {
		return Filter{}, err
	}
	return Filter{prog: prog, enabled: true}, nil
}

// Match evaluates the filter against r. Evaluation errors and non-bool
// results count as no match.
func (f Filter) Match(r Record) bool {
	if !f.enabled {
		return true
	}
	params := r.Params
	if params == nil {
		params = []string{}
	}
	out, _, err := f.prog.Eval(map[string]any{
		"ts_ms":   r.Time.UnixMilli(),
		"message": r.Message,
		"params":  params,
		"text":    r.Text,
		"size":    int64(len(r.Text)),
		"now_ms":  time.Now().UnixMilli(),
	})
	if err != nil {
		return false
	}
	b, ok := out.Value().(bool)
	return ok && b
}

// Apply returns the records matching f, keeping at most limit of the most
// recent ones when limit > 0.
func (f Filter) Apply(recs []Record, limit int) []Record {
	out := make([]Record, 0, len(recs))
	for _, r := range recs {
		if f.Match(r) {
			out = append(out, r)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}
