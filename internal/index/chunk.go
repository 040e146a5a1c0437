package index

import (
	"semidx/internal/ir"
	"semidx/internal/tokenizer"
)

const (
	// MaxInFlight caps concurrent embedding requests during a build.
	MaxInFlight = 16

	// bytesPerTokenCap is the fast-reject ratio: a symbol spanning more
	// than maxTokens*10 bytes cannot fit the budget, and tokenizing very
	// large buffers is itself a performance hazard.
	bytesPerTokenCap = 10
)

// DefaultKinds returns the symbol kinds indexed when none are requested.
func DefaultKinds() []ir.KindName {
	return []ir.KindName{
		ir.KindFunction, ir.KindClass, ir.KindDef,
		ir.KindSection, ir.KindStructure, ir.KindTheorem,
	}
}

// Options configures an index build.
type Options struct {
	// Kinds selects which symbol kinds get their own index entry.
	// Defaults to DefaultKinds.
	Kinds []ir.KindName
	// MaxTokens is the per-document token budget. Symbols over it are
	// decomposed recursively. Defaults to the embedding provider budget.
	MaxTokens int
	// Concurrency caps in-flight embedding requests. Defaults to
	// MaxInFlight.
	Concurrency int
}

func (o Options) withDefaults() Options {
	if len(o.Kinds) == 0 {
		o.Kinds = DefaultKinds()
	}
	if o.MaxTokens <= 0 {
		o.MaxTokens = defaultMaxTokens
	}
	if o.Concurrency <= 0 {
		o.Concurrency = MaxInFlight
	}
	return o
}

// item is one unit of an embedding plan: either text to embed
// (documentItem) or a pointer to a symbol embedded on its own
// (referenceItem).
type item interface {
	symbol() *ir.Symbol
}

// documentItem carries text whose vector will be assigned to sym.
type documentItem struct {
	sym  *ir.Symbol
	text string
}

func (d documentItem) symbol() *ir.Symbol { return d.sym }

// referenceItem marks that sym's own embedding, produced when sym is
// planned as a root, represents it inside an enclosing aggregate.
type referenceItem struct {
	sym *ir.Symbol
}

func (r referenceItem) symbol() *ir.Symbol { return r.sym }

// planner decides, per symbol, what text (if any) to embed and how to
// decompose symbols over the token budget.
type planner struct {
	tok       tokenizer.Tokenizer
	kinds     map[ir.KindName]bool
	maxTokens int
}

func newPlanner(tok tokenizer.Tokenizer, kinds []ir.KindName, maxTokens int) *planner {
	set := make(map[ir.KindName]bool, len(kinds))
	for _, k := range kinds {
		set[k] = true
	}
	return &planner{tok: tok, kinds: set, maxTokens: maxTokens}
}

// fitsBudget reports whether the symbol's full text fits the token
// budget. Byte length fast-rejects before the tokenizer is consulted.
func (p *planner) fitsBudget(sym *ir.Symbol) bool {
	if sym.Substring.Len() > p.maxTokens*bytesPerTokenCap {
		return false
	}
	return p.tok.Count(string(sym.Text())) <= p.maxTokens
}

// needsIndexing reports whether the symbol gets an index entry: its
// kind is requested, or it is a meta fragment whose parent is too large
// to embed as one unit (fallback coverage for oversized containers).
func (p *planner) needsIndexing(sym *ir.Symbol) bool {
	if p.kinds[sym.Kind.Name()] {
		return true
	}
	if sym.Kind.Meta() && sym.Parent != nil && !p.fitsBudget(sym.Parent) {
		return true
	}
	return false
}

// summaryDoc returns a signature-only document for Function and Class
// symbols; other kinds have no useful summary form.
func (p *planner) summaryDoc(sym *ir.Symbol) (documentItem, bool) {
	switch sym.Kind.Name() {
	case ir.KindFunction, ir.KindClass:
		return documentItem{sym: sym, text: string(sym.TextWithoutBody())}, true
	}
	return documentItem{}, false
}

// gatherNested collects reference items for indexable symbols nested
// under sym. Recursion strictly descends the tree, so it terminates.
func (p *planner) gatherNested(sym *ir.Symbol) []item {
	var items []item
	for _, child := range sym.Body {
		if p.needsIndexing(child) {
			items = append(items, referenceItem{sym: child})
			items = append(items, p.gatherNested(child)...)
		}
	}
	return items
}

// documentsFor plans the embedding items for one symbol. A symbol that
// fits the budget becomes exactly one document of its full text. An
// oversized symbol becomes an optional signature summary plus
// references to its indexable nested symbols, each of which is embedded
// when planned as a root itself.
func (p *planner) documentsFor(sym *ir.Symbol) []item {
	if !p.needsIndexing(sym) {
		return nil
	}
	if p.fitsBudget(sym) {
		return []item{documentItem{sym: sym, text: string(sym.Text())}}
	}

	var items []item
	if summary, ok := p.summaryDoc(sym); ok {
		items = append(items, summary)
	}
	return append(items, p.gatherNested(sym)...)
}
