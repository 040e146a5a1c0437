package index

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"semidx/internal/embedder"
	"semidx/internal/ir"
	"semidx/internal/tokenizer"
)

// Version tags the persisted index format. Load rejects blobs written
// by any other version.
const Version = "0.1.0"

const defaultMaxTokens = embedder.MaxTokens

// SymbolID identifies a symbol across a project: file path plus the
// symbol's scope-qualified id within that file.
type SymbolID struct {
	Path        string `json:"path"`
	QualifiedID string `json:"qualified_id"`
}

func (id SymbolID) String() string {
	return id.Path + "#" + id.QualifiedID
}

// Index maps symbols to their embeddings and answers ranked similarity
// searches. Built once by Build; immutable afterwards and safe for
// concurrent Search calls.
type Index struct {
	Project *ir.Project
	Version string

	embeddings map[SymbolID]*Embedding
	order      []SymbolID
}

// Result is one ranked search hit.
type Result struct {
	ID     SymbolID
	Score  float64
	Symbol *ir.Symbol
}

// entry is one planned index entry before vectors are fetched.
type entry struct {
	id    SymbolID
	sym   *ir.Symbol
	items []item
}

// Build creates an Index over the project. Phase one walks every file's
// symbol table and plans the documents to embed without any I/O; phase
// two fans the embedding requests out with bounded concurrency and
// fails the whole build on the first unrecoverable error, cancelling
// outstanding requests. Vectors are assigned only after every request
// has completed, so a failed build leaves no partial state behind.
func Build(ctx context.Context, client embedder.Client, tok tokenizer.Tokenizer, project *ir.Project, opts Options) (*Index, error) {
	opts = opts.withDefaults()
	p := newPlanner(tok, opts.Kinds, opts.MaxTokens)

	var docs []documentItem
	var entries []entry
	for _, file := range project.Files() {
		for _, sym := range file.Symbols() {
			if !p.needsIndexing(sym) {
				continue
			}
			items := p.documentsFor(sym)
			if len(items) == 0 {
				continue
			}
			for _, it := range items {
				if doc, ok := it.(documentItem); ok {
					docs = append(docs, doc)
				}
			}
			entries = append(entries, entry{
				id:    SymbolID{Path: file.Path, QualifiedID: sym.QualifiedID()},
				sym:   sym,
				items: items,
			})
		}
	}

	vectors := make([]ir.Vector, len(docs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Concurrency)
	for i, doc := range docs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			vec, err := client.Embed(gctx, doc.text)
			if err != nil {
				return fmt.Errorf("embed %s: %w", doc.sym.QualifiedID(), err)
			}
			vectors[i] = vec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i, doc := range docs {
		doc.sym.Embedding = vectors[i]
	}

	ix := &Index{
		Project:    project,
		Version:    Version,
		embeddings: make(map[SymbolID]*Embedding, len(entries)),
	}
	for _, e := range entries {
		aggregate := make([]*ir.Symbol, len(e.items))
		for i, it := range e.items {
			aggregate[i] = it.symbol()
		}
		ix.add(e.id, &Embedding{Symbol: e.sym, Aggregate: aggregate})
	}
	return ix, nil
}

// add registers an embedding entry, preserving insertion order.
func (ix *Index) add(id SymbolID, emb *Embedding) {
	if _, exists := ix.embeddings[id]; !exists {
		ix.order = append(ix.order, id)
	}
	ix.embeddings[id] = emb
}

// Len returns the number of indexed entries.
func (ix *Index) Len() int { return len(ix.order) }

// Lookup returns the embedding entry for a symbol id.
func (ix *Index) Lookup(id SymbolID) (*Embedding, bool) {
	emb, ok := ix.embeddings[id]
	return emb, ok
}

// Search scores every entry whose primary symbol's kind is in the
// query's kind set and returns the top entries by descending score. The
// sort is stable, so equal scores keep entry insertion order.
func (ix *Index) Search(q Query) []Result {
	q = q.withDefaults()
	kinds := make(map[ir.KindName]bool, len(q.Kinds))
	for _, k := range q.Kinds {
		kinds[k] = true
	}

	results := make([]Result, 0, len(ix.order))
	for _, id := range ix.order {
		emb := ix.embeddings[id]
		if !kinds[emb.Symbol.Kind.Name()] {
			continue
		}
		results = append(results, Result{
			ID:     id,
			Score:  emb.Similarity(q),
			Symbol: emb.Symbol,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > q.Limit {
		results = results[:q.Limit]
	}
	return results
}
