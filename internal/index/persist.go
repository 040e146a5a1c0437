package index

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"

	"semidx/internal/ir"
)

// VersionError is returned by Load when the persisted format version
// differs from the running version. No Index is returned in that case.
type VersionError struct {
	Got  string
	Want string
}

func (e *VersionError) Error() string {
	return fmt.Sprintf("index version %q is not supported (want %q)", e.Got, e.Want)
}

// envelope wraps the payload so the version check happens before any
// payload decoding.
type envelope struct {
	Version string          `json:"version"`
	Payload json.RawMessage `json:"payload"`
}

// The symbol tree carries parent back-references, so it is persisted
// flattened: per file, symbol records in insertion order with the
// parent named by qualified id. Insertion order guarantees a parent is
// decoded before its children.

type kindRecord struct {
	Name         ir.KindName    `json:"name"`
	Parameters   []ir.Parameter `json:"parameters,omitempty"`
	ReturnType   string         `json:"return_type,omitempty"`
	HasReturn    bool           `json:"has_return,omitempty"`
	Superclasses string         `json:"superclasses,omitempty"`
	Function     string         `json:"function,omitempty"`
	Arguments    []string       `json:"arguments,omitempty"`
	Code         string         `json:"code,omitempty"`
	Condition    string         `json:"condition,omitempty"`
	Type         string         `json:"type,omitempty"`
}

func encodeKind(k ir.Kind) kindRecord {
	rec := kindRecord{Name: k.Name()}
	switch k := k.(type) {
	case ir.FunctionKind:
		rec.Parameters = k.Parameters
		rec.ReturnType = k.ReturnType
		rec.HasReturn = k.HasReturn
	case ir.ClassKind:
		rec.Superclasses = k.Superclasses
	case ir.CallKind:
		rec.Function = k.Function
		rec.Arguments = k.Arguments
	case ir.ExpressionKind:
		rec.Code = k.Code
	case ir.GuardKind:
		rec.Condition = k.Condition
	case ir.TypeDefinitionKind:
		rec.Type = k.Type
	case ir.ValueKind:
		rec.Type = k.Type
	}
	return rec
}

func decodeKind(rec kindRecord) (ir.Kind, error) {
	switch rec.Name {
	case ir.KindFunction:
		return ir.FunctionKind{Parameters: rec.Parameters, ReturnType: rec.ReturnType, HasReturn: rec.HasReturn}, nil
	case ir.KindClass:
		return ir.ClassKind{Superclasses: rec.Superclasses}, nil
	case ir.KindDef:
		return ir.DefKind{}, nil
	case ir.KindInterface:
		return ir.InterfaceKind{}, nil
	case ir.KindModule:
		return ir.ModuleKind{}, nil
	case ir.KindNamespace:
		return ir.NamespaceKind{}, nil
	case ir.KindSection:
		return ir.SectionKind{}, nil
	case ir.KindStructure:
		return ir.StructureKind{}, nil
	case ir.KindTheorem:
		return ir.TheoremKind{}, nil
	case ir.KindTypeDefinition:
		return ir.TypeDefinitionKind{Type: rec.Type}, nil
	case ir.KindValue:
		return ir.ValueKind{Type: rec.Type}, nil
	case ir.KindBody:
		return ir.BodyKind{}, nil
	case ir.KindCall:
		return ir.CallKind{Function: rec.Function, Arguments: rec.Arguments}, nil
	case ir.KindExpression:
		return ir.ExpressionKind{Code: rec.Code}, nil
	case ir.KindFile:
		return ir.FileKind{}, nil
	case ir.KindGuard:
		return ir.GuardKind{Condition: rec.Condition}, nil
	case ir.KindIf:
		return ir.IfKind{}, nil
	case ir.KindUnknown:
		return ir.UnknownKind{}, nil
	default:
		return nil, fmt.Errorf("unknown symbol kind %q", rec.Name)
	}
}

type symbolRecord struct {
	Name         string        `json:"name"`
	Scope        string        `json:"scope,omitempty"`
	Kind         kindRecord    `json:"kind"`
	Language     ir.Language   `json:"language"`
	Range        ir.Range      `json:"range"`
	Substring    ir.Substring  `json:"substring"`
	BodySub      *ir.Substring `json:"body_substring,omitempty"`
	DocstringSub *ir.Substring `json:"docstring_substring,omitempty"`
	Exported     bool          `json:"exported,omitempty"`
	Parent       string        `json:"parent,omitempty"` // qualified id, "" for the root
	Embedding    ir.Vector     `json:"embedding,omitempty"`
}

type fileRecord struct {
	Path     string         `json:"path"`
	Language ir.Language    `json:"language"`
	Code     string         `json:"code"`
	Imports  []ir.Import    `json:"imports,omitempty"`
	Symbols  []symbolRecord `json:"symbols"`
}

type entryRecord struct {
	Path        string   `json:"path"`
	QualifiedID string   `json:"qualified_id"`
	Aggregate   []string `json:"aggregate"` // qualified ids within the same file
}

type indexPayload struct {
	RootPath string        `json:"root_path"`
	Files    []fileRecord  `json:"files"`
	Entries  []entryRecord `json:"entries"`
}

// Save serializes the index as a zstd-compressed versioned blob.
func (ix *Index) Save(w io.Writer) error {
	payload := indexPayload{RootPath: ix.Project.RootPath}

	for _, f := range ix.Project.Files() {
		fr := fileRecord{
			Path:     f.Path,
			Language: f.Root.Language,
			Code:     string(f.Code.Bytes),
			Imports:  f.Imports,
		}
		for _, sym := range f.Symbols() {
			rec := symbolRecord{
				Name:         sym.Name,
				Scope:        sym.Scope,
				Kind:         encodeKind(sym.Kind),
				Language:     sym.Language,
				Range:        sym.Range,
				Substring:    sym.Substring,
				BodySub:      sym.BodySub,
				DocstringSub: sym.DocstringSub,
				Exported:     sym.Exported,
				Embedding:    sym.Embedding,
			}
			if sym.Parent != nil {
				rec.Parent = sym.Parent.QualifiedID()
			}
			fr.Symbols = append(fr.Symbols, rec)
		}
		payload.Files = append(payload.Files, fr)
	}

	for _, id := range ix.order {
		emb := ix.embeddings[id]
		rec := entryRecord{Path: id.Path, QualifiedID: id.QualifiedID}
		for _, sym := range emb.Aggregate {
			rec.Aggregate = append(rec.Aggregate, sym.QualifiedID())
		}
		payload.Entries = append(payload.Entries, rec)
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal index payload: %w", err)
	}

	zw, err := zstd.NewWriter(w)
	if err != nil {
		return fmt.Errorf("create compressor: %w", err)
	}
	if err := json.NewEncoder(zw).Encode(envelope{Version: ix.Version, Payload: raw}); err != nil {
		_ = zw.Close()
		return fmt.Errorf("encode index: %w", err)
	}
	return zw.Close()
}

// Load deserializes an index written by Save. A version mismatch fails
// with VersionError before any payload is decoded; a partially-valid
// Index is never returned.
func Load(r io.Reader) (*Index, error) {
	zr, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("create decompressor: %w", err)
	}
	defer zr.Close()

	var env envelope
	if err := json.NewDecoder(zr).Decode(&env); err != nil {
		return nil, fmt.Errorf("decode index: %w", err)
	}
	if env.Version != Version {
		return nil, &VersionError{Got: env.Version, Want: Version}
	}

	var payload indexPayload
	if err := json.Unmarshal(env.Payload, &payload); err != nil {
		return nil, fmt.Errorf("decode index payload: %w", err)
	}

	project := ir.NewProject(payload.RootPath)
	for _, fr := range payload.Files {
		f, err := decodeFile(fr)
		if err != nil {
			return nil, fmt.Errorf("file %s: %w", fr.Path, err)
		}
		project.AddFile(f)
	}

	ix := &Index{
		Project:    project,
		Version:    env.Version,
		embeddings: make(map[SymbolID]*Embedding, len(payload.Entries)),
	}
	for _, rec := range payload.Entries {
		f, ok := project.LookupFile(rec.Path)
		if !ok {
			return nil, fmt.Errorf("entry %s#%s: file not found", rec.Path, rec.QualifiedID)
		}
		sym, ok := f.Lookup(rec.QualifiedID)
		if !ok {
			return nil, fmt.Errorf("entry %s#%s: symbol not found", rec.Path, rec.QualifiedID)
		}
		emb := &Embedding{Symbol: sym, Aggregate: make([]*ir.Symbol, len(rec.Aggregate))}
		for i, qid := range rec.Aggregate {
			agg, ok := f.Lookup(qid)
			if !ok {
				return nil, fmt.Errorf("entry %s#%s: aggregate symbol %q not found", rec.Path, rec.QualifiedID, qid)
			}
			emb.Aggregate[i] = agg
		}
		ix.add(SymbolID{Path: rec.Path, QualifiedID: rec.QualifiedID}, emb)
	}
	return ix, nil
}

func decodeFile(fr fileRecord) (*ir.File, error) {
	code := &ir.Code{Bytes: []byte(fr.Code)}
	f := ir.NewFile(code, fr.Path, fr.Language)
	f.Imports = fr.Imports

	if len(fr.Symbols) == 0 {
		return nil, fmt.Errorf("no symbol records")
	}
	root := fr.Symbols[0]
	if root.Scope+root.Name != f.Root.QualifiedID() {
		return nil, fmt.Errorf("first symbol record %q is not the file root", root.Scope+root.Name)
	}
	f.Root.Embedding = root.Embedding

	for _, rec := range fr.Symbols[1:] {
		kind, err := decodeKind(rec.Kind)
		if err != nil {
			return nil, err
		}
		sym := &ir.Symbol{
			Name:         rec.Name,
			Scope:        rec.Scope,
			Kind:         kind,
			Language:     rec.Language,
			Range:        rec.Range,
			Substring:    rec.Substring,
			BodySub:      rec.BodySub,
			DocstringSub: rec.DocstringSub,
			Exported:     rec.Exported,
			Code:         code,
			Embedding:    rec.Embedding,
		}
		if rec.Parent != "" {
			parent, ok := f.Lookup(rec.Parent)
			if !ok {
				return nil, fmt.Errorf("symbol %q: parent %q not decoded yet", rec.Scope+rec.Name, rec.Parent)
			}
			sym.Parent = parent
		}
		f.AddSymbol(sym)
	}
	return f, nil
}

// DefaultPath returns where a project's index is persisted.
func DefaultPath(root string) string {
	return filepath.Join(root, ".semidx", "index.bin")
}

// SaveFile writes the index to path, creating parent directories as
// needed.
func (ix *Index) SaveFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create index directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create index file: %w", err)
	}
	if err := ix.Save(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// LoadFile reads an index written by SaveFile.
func LoadFile(path string) (*Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open index file: %w", err)
	}
	defer func() { _ = f.Close() }()
	return Load(f)
}
