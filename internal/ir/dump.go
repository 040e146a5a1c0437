package ir

import (
	"strings"
)

// DumpMap renders an indented outline of every file's symbol tree:
// declaration signatures for structural symbols, kind summaries for
// synthetic ones. Useful for inspecting what a parser produced.
func (p *Project) DumpMap(indent int) string {
	var lines []string
	for _, f := range p.files {
		lines = append(lines, strings.Repeat(" ", indent)+"File: "+f.Path)
		f.dumpMap(indent+2, &lines)
	}
	return strings.Join(lines, "\n")
}

func (f *File) dumpMap(indent int, lines *[]string) {
	var dump func(sym *Symbol, indent int)
	dump = func(sym *Symbol, indent int) {
		pad := strings.Repeat(" ", indent)
		switch {
		case sym.Kind.Name() == KindUnknown:
			// skip unparseable fragments
		case !sym.Kind.Meta():
			decl := strings.TrimSpace(string(sym.TextWithoutBody()))
			decl = strings.ReplaceAll(decl, "\n", "\n"+pad)
			*lines = append(*lines, pad+decl)
		default:
			*lines = append(*lines, pad+sym.Name+" <"+string(sym.Kind.Name())+">")
		}
		for _, child := range sym.Body {
			dump(child, indent+2)
		}
	}
	for _, sym := range f.Root.Body {
		dump(sym, indent)
	}
}
