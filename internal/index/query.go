package index

import (
	"context"
	"math"

	"semidx/internal/embedder"
	"semidx/internal/ir"
)

// Node is one node of a boolean similarity-expression tree. Similarity
// scores are clamped to [0,1]; degenerate vectors score 0.
type Node interface {
	Similarity(sym *ir.Symbol) float64
}

// Cosine computes the cosine similarity of two vectors: dot(a,b) /
// (|a|*|b|). Returns exactly 0 when either norm is zero, the dimensions
// differ, or the ratio is NaN.
func Cosine(a, b ir.Vector) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	result := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	if math.IsNaN(result) {
		return 0
	}
	return result
}

func clamp01(x float64) float64 {
	if math.IsNaN(x) || x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

// Text scores symbols by cosine similarity between their embedding and
// the embedding of a query string, fetched once at construction time.
type Text struct {
	Text string

	vector ir.Vector
}

// NewText embeds text with a single blocking call. The call runs
// outside the build concurrency pool.
func NewText(ctx context.Context, client embedder.Client, text string) (*Text, error) {
	vec, err := client.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	return &Text{Text: text, vector: vec}, nil
}

func (t *Text) Similarity(sym *ir.Symbol) float64 {
	if sym.Embedding == nil {
		return 0
	}
	return clamp01(Cosine(sym.Embedding, t.vector))
}

// Not inverts its child's similarity.
type Not struct {
	Node Node
}

func (n Not) Similarity(sym *ir.Symbol) float64 {
	return clamp01(1 - n.Node.Similarity(sym))
}

// And scores the minimum over its children: every branch must match.
type And struct {
	Nodes []Node
}

func NewAnd(nodes ...Node) And { return And{Nodes: nodes} }

func (a And) Similarity(sym *ir.Symbol) float64 {
	if len(a.Nodes) == 0 {
		return 0
	}
	score := a.Nodes[0].Similarity(sym)
	for _, n := range a.Nodes[1:] {
		if s := n.Similarity(sym); s < score {
			score = s
		}
	}
	return clamp01(score)
}

// Or scores the maximum over its children: any branch may match.
type Or struct {
	Nodes []Node
}

func NewOr(nodes ...Node) Or { return Or{Nodes: nodes} }

func (o Or) Similarity(sym *ir.Symbol) float64 {
	var score float64
	for _, n := range o.Nodes {
		if s := n.Similarity(sym); s > score {
			score = s
		}
	}
	return clamp01(score)
}

// Func wraps a caller-supplied scoring function, letting heuristic
// signals combine with embedding nodes in one formula.
type Func struct {
	Fn func(sym *ir.Symbol) float64
}

func (f Func) Similarity(sym *ir.Symbol) float64 {
	return clamp01(f.Fn(sym))
}

// Query pairs a similarity tree with a result-kind filter and a result
// count limit. The zero values of Kinds and Limit mean "Function kinds
// only" and 5 results.
type Query struct {
	Node  Node
	Kinds []ir.KindName
	Limit int
}

const defaultQueryLimit = 5

func (q Query) withDefaults() Query {
	if len(q.Kinds) == 0 {
		q.Kinds = []ir.KindName{ir.KindFunction}
	}
	if q.Limit <= 0 {
		q.Limit = defaultQueryLimit
	}
	return q
}

// Embedding associates a primary symbol with the aggregate symbols
// whose individually-computed vectors jointly represent it. For a
// symbol small enough to embed whole the aggregate is the symbol
// itself; never empty.
type Embedding struct {
	Symbol    *ir.Symbol
	Aggregate []*ir.Symbol
}

// Similarity is the maximum node similarity over the aggregate: a
// chunked symbol is a hit if any of its chunks satisfies the query.
func (e *Embedding) Similarity(q Query) float64 {
	var best float64
	for _, sym := range e.Aggregate {
		if s := q.Node.Similarity(sym); s > best {
			best = s
		}
	}
	return best
}
