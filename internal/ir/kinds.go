package ir

import "strings"

// KindName identifies a symbol kind variant.
type KindName string

const (
	KindBody           KindName = "Body"
	KindCall           KindName = "Call"
	KindClass          KindName = "Class"
	KindDef            KindName = "Def"
	KindExpression     KindName = "Expression"
	KindFile           KindName = "File"
	KindFunction       KindName = "Function"
	KindGuard          KindName = "Guard"
	KindIf             KindName = "If"
	KindInterface      KindName = "Interface"
	KindModule         KindName = "Module"
	KindNamespace      KindName = "Namespace"
	KindSection        KindName = "Section"
	KindStructure      KindName = "Structure"
	KindTheorem        KindName = "Theorem"
	KindTypeDefinition KindName = "TypeDefinition"
	KindUnknown        KindName = "Unknown"
	KindValue          KindName = "Value"
)

// Kind is the closed set of symbol kind variants. Structural kinds map to
// declarations authored in source; meta kinds are synthetic fragments
// (bodies, guards, calls) introduced while decomposing control flow.
//
// Variants carry only scalar payloads so a symbol tree serializes without
// reference cycles.
type Kind interface {
	Name() KindName
	// Meta reports whether the kind is synthetic rather than authored.
	Meta() bool
	// Signature returns extra identity detail appended after the symbol
	// name in dumps, or "" if the kind carries none.
	Signature() string
}

type structural struct{}

func (structural) Meta() bool        { return false }
func (structural) Signature() string { return "" }

type meta struct{}

func (meta) Meta() bool        { return true }
func (meta) Signature() string { return "" }

// Parameter describes one formal parameter of a function-like symbol.
type Parameter struct {
	Name     string
	Type     string
	Default  string
	Optional bool
}

func (p Parameter) String() string {
	var b strings.Builder
	b.WriteString(p.Name)
	if p.Optional {
		b.WriteString("?")
	}
	if p.Type != "" {
		b.WriteString(":")
		b.WriteString(p.Type)
	}
	if p.Default != "" {
		b.WriteString("=")
		b.WriteString(p.Default)
	}
	return b.String()
}

// FunctionKind represents a function or method declaration.
type FunctionKind struct {
	structural
	Parameters []Parameter
	ReturnType string
	HasReturn  bool
}

func (FunctionKind) Name() KindName { return KindFunction }

func (k FunctionKind) Signature() string {
	params := make([]string, len(k.Parameters))
	for i, p := range k.Parameters {
		params[i] = p.String()
	}
	sig := "(" + strings.Join(params, ", ") + ")"
	if k.ReturnType != "" {
		sig += " -> " + k.ReturnType
	}
	return sig
}

// ClassKind represents a class declaration.
type ClassKind struct {
	structural
	Superclasses string
}

func (ClassKind) Name() KindName { return KindClass }

func (k ClassKind) Signature() string { return k.Superclasses }

// DefKind represents a mathematical definition (Lean def).
type DefKind struct{ structural }

func (DefKind) Name() KindName { return KindDef }

// InterfaceKind represents an interface declaration.
type InterfaceKind struct{ structural }

func (InterfaceKind) Name() KindName { return KindInterface }

// ModuleKind represents a module declaration.
type ModuleKind struct{ structural }

func (ModuleKind) Name() KindName { return KindModule }

// NamespaceKind represents a namespace declaration.
type NamespaceKind struct{ structural }

func (NamespaceKind) Name() KindName { return KindNamespace }

// SectionKind represents a Lean section.
type SectionKind struct{ structural }

func (SectionKind) Name() KindName { return KindSection }

// StructureKind represents a Lean structure.
type StructureKind struct{ structural }

func (StructureKind) Name() KindName { return KindStructure }

// TheoremKind represents a Lean theorem.
type TheoremKind struct{ structural }

func (TheoremKind) Name() KindName { return KindTheorem }

// TypeDefinitionKind represents a type alias or definition.
type TypeDefinitionKind struct {
	structural
	Type string
}

func (TypeDefinitionKind) Name() KindName { return KindTypeDefinition }

// ValueKind represents a top-level value binding.
type ValueKind struct {
	structural
	Type string
}

func (ValueKind) Name() KindName { return KindValue }

// BodyKind represents the body block of a branch.
type BodyKind struct{ meta }

func (BodyKind) Name() KindName { return KindBody }

// CallKind represents a function call statement.
type CallKind struct {
	meta
	Function  string
	Arguments []string
}

func (CallKind) Name() KindName { return KindCall }

// ExpressionKind represents an expression statement.
type ExpressionKind struct {
	meta
	Code string
}

func (ExpressionKind) Name() KindName { return KindExpression }

// FileKind is the synthetic root symbol covering a whole file.
type FileKind struct{ meta }

func (FileKind) Name() KindName { return KindFile }

// GuardKind represents the guard condition of a conditional.
type GuardKind struct {
	meta
	Condition string
}

func (GuardKind) Name() KindName { return KindGuard }

// IfKind represents an if statement; its cases appear as child symbols.
type IfKind struct{ meta }

func (IfKind) Name() KindName { return KindIf }

// UnknownKind represents a construct the parser could not classify.
type UnknownKind struct{ meta }

func (UnknownKind) Name() KindName { return KindUnknown }

// KindNames lists every valid kind name.
func KindNames() []KindName {
	return []KindName{
		KindBody, KindCall, KindClass, KindDef, KindExpression, KindFile,
		KindFunction, KindGuard, KindIf, KindInterface, KindModule,
		KindNamespace, KindSection, KindStructure, KindTheorem,
		KindTypeDefinition, KindUnknown, KindValue,
	}
}

// ValidKindName reports whether name is a member of the closed kind set.
func ValidKindName(name KindName) bool {
	for _, n := range KindNames() {
		if n == name {
			return true
		}
	}
	return false
}
