package index

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"semidx/internal/ir"
	"semidx/internal/tokenizer"
)

func TestBuildSmallProject(t *testing.T) {
	project := ir.NewProject("/src")
	project.AddFile(funcFile(t, "a.py", "alpha"))
	project.AddFile(funcFile(t, "b.py", "beta"))

	client := &fakeClient{}
	ix, err := Build(context.Background(), client, tokenizer.Runes{}, project, Options{MaxTokens: 100})
	require.NoError(t, err)

	assert.Equal(t, 2, ix.Len())
	assert.Equal(t, Version, ix.Version)

	emb, ok := ix.Lookup(SymbolID{Path: "a.py", QualifiedID: "alpha"})
	require.True(t, ok)
	require.Len(t, emb.Aggregate, 1)
	assert.Same(t, emb.Symbol, emb.Aggregate[0])
	assert.NotNil(t, emb.Symbol.Embedding)
	assert.Len(t, client.embedded(), 2)
}

func TestBuildDecomposesOversizedClass(t *testing.T) {
	f, class, foo, bar := fixtureFile(t)
	project := ir.NewProject("/src")
	project.AddFile(f)

	client := &fakeClient{}
	ix, err := Build(context.Background(), client, tokenizer.Runes{}, project, Options{
		Kinds:     []ir.KindName{ir.KindFunction, ir.KindClass},
		MaxTokens: 50,
	})
	require.NoError(t, err)

	require.Equal(t, 3, ix.Len())

	classEmb, ok := ix.Lookup(SymbolID{Path: "big.py", QualifiedID: "Big"})
	require.True(t, ok)
	assert.Same(t, class, classEmb.Symbol)
	require.Len(t, classEmb.Aggregate, 3)
	assert.Same(t, class, classEmb.Aggregate[0])
	assert.Same(t, foo, classEmb.Aggregate[1])
	assert.Same(t, bar, classEmb.Aggregate[2])

	// The class embeds its signature; the methods embed whole.
	assert.NotNil(t, class.Embedding)
	assert.NotNil(t, foo.Embedding)
	assert.NotNil(t, bar.Embedding)

	// Three documents went out: signature, foo, bar. None duplicates
	// another symbol's full text.
	texts := client.embedded()
	require.Len(t, texts, 3)
	assert.Contains(t, texts, string(class.TextWithoutBody()))
	assert.Contains(t, texts, string(foo.Text()))
	assert.Contains(t, texts, string(bar.Text()))

	results := ix.Search(Query{
		Node: Func{Fn: func(s *ir.Symbol) float64 {
			if s.Name == "foo" {
				return 1.0
			}
			return 0.0
		}},
		Kinds: []ir.KindName{ir.KindFunction},
	})
	require.Len(t, results, 2)
	assert.Equal(t, "Big.foo", results[0].ID.QualifiedID)
	assert.Equal(t, 1.0, results[0].Score)
	assert.Equal(t, "Big.bar", results[1].ID.QualifiedID)
	assert.Equal(t, 0.0, results[1].Score)
}

func TestSearchFiltersKindsAndLimits(t *testing.T) {
	f, _, _, _ := fixtureFile(t)
	project := ir.NewProject("/src")
	project.AddFile(f)
	project.AddFile(funcFile(t, "c.py", "gamma"))

	ix, err := Build(context.Background(), &fakeClient{}, tokenizer.Runes{}, project, Options{
		Kinds:     []ir.KindName{ir.KindFunction, ir.KindClass},
		MaxTokens: 50,
	})
	require.NoError(t, err)

	results := ix.Search(Query{Node: constNode(0.5), Kinds: []ir.KindName{ir.KindFunction}})
	require.Len(t, results, 3)
	for _, r := range results {
		assert.Equal(t, ir.KindFunction, r.Symbol.Kind.Name())
	}

	// Equal scores keep entry insertion order.
	assert.Equal(t, "Big.foo", results[0].ID.QualifiedID)
	assert.Equal(t, "Big.bar", results[1].ID.QualifiedID)
	assert.Equal(t, "gamma", results[2].ID.QualifiedID)

	limited := ix.Search(Query{Node: constNode(0.5), Kinds: []ir.KindName{ir.KindFunction}, Limit: 2})
	assert.Len(t, limited, 2)
}

func TestSearchScoresNonIncreasing(t *testing.T) {
	project := ir.NewProject("/src")
	for _, name := range []string{"aa", "bbb", "c", "dddd"} {
		project.AddFile(funcFile(t, name+".py", name))
	}

	ix, err := Build(context.Background(), &fakeClient{}, tokenizer.Runes{}, project, Options{MaxTokens: 100})
	require.NoError(t, err)

	results := ix.Search(Query{Node: Func{Fn: func(s *ir.Symbol) float64 {
		return float64(len(s.Name)) / 10
	}}, Limit: 10})
	require.Len(t, results, 4)
	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].Score, results[i].Score)
	}
	assert.Equal(t, "dddd", results[0].Symbol.Name)
}

func TestBuildBoundsConcurrency(t *testing.T) {
	project := ir.NewProject("/src")
	for i := 0; i < 100; i++ {
		project.AddFile(funcFile(t, string(rune('a'+i%26))+strings.Repeat("x", i/26)+".py", "fn"))
	}

	var inFlight, maxInFlight, calls atomic.Int32
	client := &fakeClient{hook: func(string) error {
		calls.Add(1)
		cur := inFlight.Add(1)
		for {
			max := maxInFlight.Load()
			if cur <= max || maxInFlight.CompareAndSwap(max, cur) {
				break
			}
		}
		time.Sleep(time.Millisecond)
		inFlight.Add(-1)
		return nil
	}}

	_, err := Build(context.Background(), client, tokenizer.Runes{}, project, Options{MaxTokens: 100})
	require.NoError(t, err)

	assert.Equal(t, int32(100), calls.Load())
	assert.LessOrEqual(t, maxInFlight.Load(), int32(MaxInFlight))
	assert.Greater(t, maxInFlight.Load(), int32(1))
}

func TestBuildFailsFast(t *testing.T) {
	project := ir.NewProject("/src")
	project.AddFile(funcFile(t, "good.py", "good"))
	project.AddFile(funcFile(t, "bad.py", "bad"))

	wantErr := errors.New("provider rejected content")
	client := &fakeClient{hook: func(text string) error {
		if strings.Contains(text, "bad") {
			return wantErr
		}
		return nil
	}}

	ix, err := Build(context.Background(), client, tokenizer.Runes{}, project, Options{MaxTokens: 100})
	require.Error(t, err)
	assert.Nil(t, ix)
	assert.ErrorIs(t, err, wantErr)
	assert.Contains(t, err.Error(), "bad")
}

func TestBuildLeavesNoPartialStateOnFailure(t *testing.T) {
	project := ir.NewProject("/src")
	good := funcFile(t, "good.py", "good")
	project.AddFile(good)
	project.AddFile(funcFile(t, "bad.py", "bad"))

	client := &fakeClient{hook: func(text string) error {
		if strings.Contains(text, "bad") {
			return errors.New("boom")
		}
		return nil
	}}

	_, err := Build(context.Background(), client, tokenizer.Runes{}, project, Options{MaxTokens: 100})
	require.Error(t, err)

	// Vectors are only assigned after every request succeeds.
	for _, sym := range good.Symbols() {
		assert.Nil(t, sym.Embedding)
	}
}

func TestBuildRespectsCancellation(t *testing.T) {
	project := ir.NewProject("/src")
	for i := 0; i < 40; i++ {
		project.AddFile(funcFile(t, string(rune('a'+i%26))+strings.Repeat("y", i/26)+".py", "fn"))
	}

	ctx, cancel := context.WithCancel(context.Background())
	var calls atomic.Int32
	client := &fakeClient{hook: func(string) error {
		if calls.Add(1) == 1 {
			cancel()
		}
		return ctx.Err()
	}}

	_, err := Build(ctx, client, tokenizer.Runes{}, project, Options{MaxTokens: 100, Concurrency: 1})
	require.Error(t, err)
	assert.Less(t, calls.Load(), int32(40))
}

func TestSymbolIDString(t *testing.T) {
	id := SymbolID{Path: "pkg/a.py", QualifiedID: "Big.foo"}
	assert.Equal(t, "pkg/a.py#Big.foo", id.String())
}
