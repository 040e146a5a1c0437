package ir

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
)

// Language tags the source language a symbol was parsed from.
type Language string

const (
	LangC          Language = "c"
	LangCpp        Language = "cpp"
	LangCSharp     Language = "c_sharp"
	LangGo         Language = "go"
	LangJava       Language = "java"
	LangJavaScript Language = "javascript"
	LangLean       Language = "lean"
	LangOCaml      Language = "ocaml"
	LangPython     Language = "python"
	LangReScript   Language = "rescript"
	LangRuby       Language = "ruby"
	LangTSX        Language = "tsx"
	LangTypeScript Language = "typescript"
)

// Vector is an embedding vector.
type Vector []float32

// Substring is a byte range [Start, End) into a file's source bytes.
type Substring struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Len returns the byte length of the range.
func (s Substring) Len() int { return s.End - s.Start }

// Pos is a zero-based line/column position.
type Pos struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// Range spans from Start to End position, inclusive of the end line.
type Range struct {
	Start Pos `json:"start"`
	End   Pos `json:"end"`
}

func (r Range) String() string {
	return fmt.Sprintf("(%d:%d)-(%d:%d)", r.Start.Line, r.Start.Column, r.End.Line, r.End.Column)
}

// Code holds the immutable source bytes of one file. Symbols reference
// slices of it by byte range and never copy or mutate it.
type Code struct {
	Bytes []byte
}

func (c *Code) String() string { return string(c.Bytes) }

// Symbol is one node of the parsed source tree: a function, class, file,
// or a synthetic control-flow fragment. Body owns the children in source
// order; Parent is the matching non-owning back reference.
//
// The tree is produced once by a parser and never structurally mutated;
// only Embedding is assigned later, exactly once, during index
// construction.
type Symbol struct {
	Name         string
	Scope        string // dotted prefix, e.g. "A.B." for a member of class B in class A
	Kind         Kind
	Language     Language
	Range        Range
	Substring    Substring
	BodySub      *Substring
	DocstringSub *Substring
	Exported     bool

	Code   *Code
	Parent *Symbol
	Body   []*Symbol

	Embedding Vector
}

// QualifiedID returns the scope-prefixed name identifying the symbol
// within its file.
func (s *Symbol) QualifiedID() string { return s.Scope + s.Name }

// Text returns the exact source bytes the symbol spans.
func (s *Symbol) Text() []byte {
	return s.Code.Bytes[s.Substring.Start:s.Substring.End]
}

// TextWithoutBody returns the symbol's source up to (but excluding) the
// start of its body, or the full span when the symbol has no body range.
// For Function and Class symbols this is the declaration signature.
func (s *Symbol) TextWithoutBody() []byte {
	if s.BodySub == nil {
		return s.Text()
	}
	return s.Code.Bytes[s.Substring.Start:s.BodySub.Start]
}

// Docstring returns the symbol's documentation text, or "" if none was
// recorded.
func (s *Symbol) Docstring() string {
	if s.DocstringSub == nil {
		return ""
	}
	return string(s.Code.Bytes[s.DocstringSub.Start:s.DocstringSub.End])
}

// Import records one import statement of a file.
type Import struct {
	Names      []string  `json:"names"`
	ModuleName string    `json:"module,omitempty"`
	Substring  Substring `json:"substring"`
}

// File owns the source bytes of one parsed file, its root File-kind
// symbol, and an insertion-ordered symbol table covering every symbol in
// the tree.
type File struct {
	Code    *Code
	Path    string
	Root    *Symbol
	Imports []Import

	table map[string]*Symbol
	order []*Symbol
}

// NewFile creates a File with a synthetic root symbol spanning the whole
// source.
func NewFile(code *Code, path string, lang Language) *File {
	f := &File{
		Code:  code,
		Path:  path,
		table: make(map[string]*Symbol),
	}
	f.Root = newFileSymbol(code, lang, path)
	f.AddSymbol(f.Root)
	return f
}

// newFileSymbol builds the root symbol covering all of code.
func newFileSymbol(code *Code, lang Language, path string) *Symbol {
	span := Substring{Start: 0, End: len(code.Bytes)}

	lastLine := bytes.Count(code.Bytes, []byte("\n"))
	if bytes.HasSuffix(code.Bytes, []byte("\n")) && lastLine > 0 {
		lastLine--
	}
	lastCol := span.End
	if i := bytes.LastIndexByte(code.Bytes, '\n'); i >= 0 && i < span.End-1 {
		lastCol = span.End - i - 1
	}

	body := span
	return &Symbol{
		Name:      path,
		Kind:      FileKind{},
		Language:  lang,
		Range:     Range{End: Pos{Line: lastLine, Column: lastCol}},
		Substring: span,
		BodySub:   &body,
		Code:      code,
	}
}

// AddSymbol links the symbol into its parent's body and registers it in
// the symbol table under its qualified id.
func (f *File) AddSymbol(sym *Symbol) {
	if sym.Parent != nil {
		sym.Parent.Body = append(sym.Parent.Body, sym)
	}
	qid := sym.QualifiedID()
	if _, exists := f.table[qid]; !exists {
		f.order = append(f.order, sym)
	}
	f.table[qid] = sym
}

// AddImport appends an import record.
func (f *File) AddImport(imp Import) {
	f.Imports = append(f.Imports, imp)
}

// Lookup returns the symbol with the given qualified id.
func (f *File) Lookup(qid string) (*Symbol, bool) {
	sym, ok := f.table[qid]
	return sym, ok
}

// Symbols returns every symbol of the file in insertion order, the root
// first. Callers must not mutate the returned slice.
func (f *File) Symbols() []*Symbol { return f.order }

// SearchName returns all symbols with the given unqualified name.
func (f *File) SearchName(name string) []*Symbol {
	return f.Search(func(n string) bool { return n == name })
}

// Search returns all symbols whose name satisfies the predicate. Linear
// scan; not a hot path.
func (f *File) Search(pred func(name string) bool) []*Symbol {
	var out []*Symbol
	for _, sym := range f.order {
		if pred(sym.Name) {
			out = append(out, sym)
		}
	}
	return out
}

// SearchImport returns the import of the given module, if present.
func (f *File) SearchImport(module string) (Import, bool) {
	for _, imp := range f.Imports {
		if imp.ModuleName == module {
			return imp, true
		}
	}
	return Import{}, false
}

// Functions returns every Function-kind symbol in the file.
func (f *File) Functions() []*Symbol {
	var out []*Symbol
	for _, sym := range f.order {
		if sym.Kind.Name() == KindFunction {
			out = append(out, sym)
		}
	}
	return out
}

// Reference points at a file, and optionally a symbol inside it. Its URI
// form is "path#qualifiedID", or just "path" when no symbol is named.
type Reference struct {
	FilePath    string
	QualifiedID string
}

// URI renders the reference as "path" or "path#qid".
func (r Reference) URI() string {
	if r.QualifiedID == "" {
		return r.FilePath
	}
	return r.FilePath + "#" + r.QualifiedID
}

// ParseReference splits a URI on the first '#'.
func ParseReference(uri string) Reference {
	path, qid, _ := strings.Cut(uri, "#")
	return Reference{FilePath: path, QualifiedID: qid}
}

// ResolvedReference is the file, and optionally symbol, a Reference
// resolved to.
type ResolvedReference struct {
	File   *File
	Symbol *Symbol
}

// Project owns an ordered list of parsed files under one root path.
type Project struct {
	RootPath string

	files []*File
}

// NewProject creates an empty project rooted at rootPath.
func NewProject(rootPath string) *Project {
	return &Project{RootPath: rootPath}
}

// AddFile appends a file to the project.
func (p *Project) AddFile(f *File) {
	p.files = append(p.files, f)
}

// Files returns the project's files in insertion order.
func (p *Project) Files() []*File { return p.files }

// LookupFile finds a file by absolute path, or by its root-relative path.
func (p *Project) LookupFile(path string) (*File, bool) {
	for _, f := range p.files {
		if f.Path == path || filepath.Join(p.RootPath, f.Path) == path {
			return f, true
		}
	}
	return nil, false
}

// Resolve maps a Reference to its file and, when the reference names one,
// its symbol.
func (p *Project) Resolve(ref Reference) (ResolvedReference, bool) {
	f, ok := p.LookupFile(ref.FilePath)
	if !ok {
		return ResolvedReference{}, false
	}
	res := ResolvedReference{File: f}
	if ref.QualifiedID != "" {
		res.Symbol, _ = f.Lookup(ref.QualifiedID)
	}
	return res, true
}

// LanguageForPath maps a file extension to its language tag.
func LanguageForPath(path string) (Language, bool) {
	switch ext := filepath.Ext(path); ext {
	case ".c":
		return LangC, true
	case ".cpp", ".cc", ".cxx", ".c++":
		return LangCpp, true
	case ".cs":
		return LangCSharp, true
	case ".go":
		return LangGo, true
	case ".java":
		return LangJava, true
	case ".js":
		return LangJavaScript, true
	case ".lean":
		return LangLean, true
	case ".ml":
		return LangOCaml, true
	case ".py":
		return LangPython, true
	case ".res":
		return LangReScript, true
	case ".rb":
		return LangRuby, true
	case ".ts":
		return LangTypeScript, true
	case ".tsx":
		return LangTSX, true
	default:
		return "", false
	}
}
