package parser

import (
	"fmt"
	"go/ast"
	goparser "go/parser"
	"go/token"
	"strings"

	"semidx/internal/ir"
)

// parseGo extracts a symbol tree from Go source using go/ast. Functions
// and methods become Function symbols (methods scoped by receiver
// type); structs, interfaces, and type aliases become Structure,
// Interface, and TypeDefinition symbols; top-level consts and vars
// become Value symbols.
func parseGo(code *ir.Code, path string) (*ir.File, error) {
	fset := token.NewFileSet()
	astFile, err := goparser.ParseFile(fset, path, code.Bytes, goparser.ParseComments)
	if astFile == nil {
		return nil, fmt.Errorf("parse go source: %w", err)
	}
	// A partial AST on syntax error still yields useful symbols.

	f := ir.NewFile(code, path, ir.LangGo)
	x := &goExtractor{fset: fset, code: code, file: f}

	for _, imp := range astFile.Imports {
		rec := ir.Import{
			ModuleName: strings.Trim(imp.Path.Value, `"`),
			Substring:  x.span(imp.Pos(), imp.End()),
		}
		if imp.Name != nil {
			rec.Names = []string{imp.Name.Name}
		}
		f.AddImport(rec)
	}

	for _, decl := range astFile.Decls {
		switch d := decl.(type) {
		case *ast.FuncDecl:
			x.addFunc(d)
		case *ast.GenDecl:
			x.addGenDecl(d)
		}
	}
	return f, nil
}

type goExtractor struct {
	fset *token.FileSet
	code *ir.Code
	file *ir.File
}

func (x *goExtractor) offset(pos token.Pos) int {
	return x.fset.Position(pos).Offset
}

func (x *goExtractor) span(start, end token.Pos) ir.Substring {
	return ir.Substring{Start: x.offset(start), End: x.offset(end)}
}

// pos converts a token position to the IR's zero-based form.
func (x *goExtractor) pos(p token.Pos) ir.Pos {
	position := x.fset.Position(p)
	return ir.Pos{Line: position.Line - 1, Column: position.Column - 1}
}

func (x *goExtractor) rng(start, end token.Pos) ir.Range {
	return ir.Range{Start: x.pos(start), End: x.pos(end)}
}

// exprText returns the source text of an expression.
func (x *goExtractor) exprText(expr ast.Expr) string {
	if expr == nil {
		return ""
	}
	s := x.span(expr.Pos(), expr.End())
	return string(x.code.Bytes[s.Start:s.End])
}

func (x *goExtractor) add(sym *ir.Symbol, doc *ast.CommentGroup) {
	sym.Code = x.code
	sym.Parent = x.file.Root
	if doc != nil {
		s := x.span(doc.Pos(), doc.End())
		sym.DocstringSub = &s
	}
	x.file.AddSymbol(sym)
}

func (x *goExtractor) addFunc(d *ast.FuncDecl) {
	kind := ir.FunctionKind{
		ReturnType: x.resultsText(d.Type),
		HasReturn:  d.Type.Results != nil,
	}
	if d.Type.Params != nil {
		for _, field := range d.Type.Params.List {
			typ := x.exprText(field.Type)
			if len(field.Names) == 0 {
				kind.Parameters = append(kind.Parameters, ir.Parameter{Type: typ})
				continue
			}
			for _, name := range field.Names {
				kind.Parameters = append(kind.Parameters, ir.Parameter{Name: name.Name, Type: typ})
			}
		}
	}

	sym := &ir.Symbol{
		Name:      d.Name.Name,
		Scope:     x.receiverScope(d),
		Kind:      kind,
		Language:  ir.LangGo,
		Range:     x.rng(d.Pos(), d.End()),
		Substring: x.span(d.Pos(), d.End()),
		Exported:  d.Name.IsExported(),
	}
	if d.Body != nil {
		body := x.span(d.Body.Lbrace, d.Body.Rbrace+1)
		sym.BodySub = &body
	}
	x.add(sym, d.Doc)
}

// receiverScope derives the scope prefix for methods: "T." for a method
// on T or *T, "" for plain functions.
func (x *goExtractor) receiverScope(d *ast.FuncDecl) string {
	if d.Recv == nil || len(d.Recv.List) == 0 {
		return ""
	}
	typ := d.Recv.List[0].Type
	for {
		switch t := typ.(type) {
		case *ast.StarExpr:
			typ = t.X
		case *ast.IndexExpr:
			typ = t.X
		case *ast.IndexListExpr:
			typ = t.X
		case *ast.Ident:
			return t.Name + "."
		default:
			return ""
		}
	}
}

func (x *goExtractor) resultsText(ft *ast.FuncType) string {
	if ft.Results == nil {
		return ""
	}
	return string(x.code.Bytes[x.offset(ft.Results.Pos()):x.offset(ft.Results.End())])
}

func (x *goExtractor) addGenDecl(d *ast.GenDecl) {
	for _, spec := range d.Specs {
		switch s := spec.(type) {
		case *ast.TypeSpec:
			x.addType(d, s)
		case *ast.ValueSpec:
			x.addValues(d, s)
		}
	}
}

func (x *goExtractor) addType(d *ast.GenDecl, s *ast.TypeSpec) {
	var kind ir.Kind
	var body *ir.Substring
	switch t := s.Type.(type) {
	case *ast.StructType:
		kind = ir.StructureKind{}
		if t.Fields != nil {
			b := x.span(t.Fields.Opening, t.Fields.Closing+1)
			body = &b
		}
	case *ast.InterfaceType:
		kind = ir.InterfaceKind{}
		if t.Methods != nil {
			b := x.span(t.Methods.Opening, t.Methods.Closing+1)
			body = &b
		}
	default:
		kind = ir.TypeDefinitionKind{Type: x.exprText(s.Type)}
	}

	doc := s.Doc
	if doc == nil {
		doc = d.Doc
	}
	start := d.Pos()
	if len(d.Specs) > 1 {
		start = s.Pos()
	}
	x.add(&ir.Symbol{
		Name:      s.Name.Name,
		Kind:      kind,
		Language:  ir.LangGo,
		Range:     x.rng(start, s.End()),
		Substring: x.span(start, s.End()),
		BodySub:   body,
		Exported:  s.Name.IsExported(),
	}, doc)
}

func (x *goExtractor) addValues(d *ast.GenDecl, s *ast.ValueSpec) {
	typ := x.exprText(s.Type)
	for _, name := range s.Names {
		if name.Name == "_" {
			continue
		}
		x.add(&ir.Symbol{
			Name:      name.Name,
			Kind:      ir.ValueKind{Type: typ},
			Language:  ir.LangGo,
			Range:     x.rng(s.Pos(), s.End()),
			Substring: x.span(s.Pos(), s.End()),
			Exported:  name.IsExported(),
		}, s.Doc)
	}
}
