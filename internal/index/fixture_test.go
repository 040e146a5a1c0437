package index

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"semidx/internal/ir"
)

// bigSource is a class too large for a 50-token budget whose methods
// individually fit it.
const bigSource = `class Big:
    def foo(self):
        return 1

    def bar(self):
        return 2
`

func mustIndex(t *testing.T, src, marker string) int {
	t.Helper()
	i := strings.Index(src, marker)
	require.GreaterOrEqual(t, i, 0, "marker %q not in source", marker)
	return i
}

// fixtureFile builds the parsed form of bigSource by hand, the way the
// external parser would.
func fixtureFile(t *testing.T) (*ir.File, *ir.Symbol, *ir.Symbol, *ir.Symbol) {
	t.Helper()
	code := &ir.Code{Bytes: []byte(bigSource)}
	f := ir.NewFile(code, "big.py", ir.LangPython)

	end := len(bigSource) - 1 // trailing newline excluded
	classBodyStart := mustIndex(t, bigSource, "    def foo")
	class := &ir.Symbol{
		Name:      "Big",
		Kind:      ir.ClassKind{},
		Language:  ir.LangPython,
		Substring: ir.Substring{Start: 0, End: end},
		BodySub:   &ir.Substring{Start: classBodyStart, End: end},
		Code:      code,
		Parent:    f.Root,
	}
	f.AddSymbol(class)

	method := func(name, ret string) *ir.Symbol {
		start := mustIndex(t, bigSource, "def "+name)
		bodyStart := mustIndex(t, bigSource, "return "+ret)
		bodyEnd := bodyStart + len("return "+ret)
		sym := &ir.Symbol{
			Name:      name,
			Scope:     "Big.",
			Kind:      ir.FunctionKind{},
			Language:  ir.LangPython,
			Substring: ir.Substring{Start: start, End: bodyEnd},
			BodySub:   &ir.Substring{Start: bodyStart, End: bodyEnd},
			Code:      code,
			Parent:    class,
		}
		f.AddSymbol(sym)
		return sym
	}
	foo := method("foo", "1")
	bar := method("bar", "2")

	return f, class, foo, bar
}

// funcFile builds a file containing a single small function.
func funcFile(t *testing.T, path, name string) *ir.File {
	t.Helper()
	src := fmt.Sprintf("def %s():\n    return 0\n", name)
	code := &ir.Code{Bytes: []byte(src)}
	f := ir.NewFile(code, path, ir.LangPython)

	bodyStart := mustIndex(t, src, "return 0")
	fn := &ir.Symbol{
		Name:      name,
		Kind:      ir.FunctionKind{},
		Language:  ir.LangPython,
		Substring: ir.Substring{Start: 0, End: len(src) - 1},
		BodySub:   &ir.Substring{Start: bodyStart, End: len(src) - 1},
		Code:      code,
		Parent:    f.Root,
	}
	f.AddSymbol(fn)
	return f
}

// fakeClient is an offline embedder.Client whose vectors depend only on
// the input text. An optional hook observes each call.
type fakeClient struct {
	hook func(text string) error

	mu    sync.Mutex
	texts []string
}

func (c *fakeClient) Embed(_ context.Context, text string) (ir.Vector, error) {
	if c.hook != nil {
		if err := c.hook(text); err != nil {
			return nil, err
		}
	}
	c.mu.Lock()
	c.texts = append(c.texts, text)
	c.mu.Unlock()

	var sum float32
	for _, r := range text {
		sum += float32(r)
	}
	return ir.Vector{sum, float32(len(text)), 1}, nil
}

func (c *fakeClient) Dimension() int { return 3 }
func (c *fakeClient) Model() string  { return "fake" }
func (c *fakeClient) Close() error   { return nil }

func (c *fakeClient) embedded() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.texts...)
}
