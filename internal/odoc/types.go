package odoc

import "encoding/json"

// Node tags, as emitted by the odoc model extractor.
const (
	TagText           = "Text"
	TagType           = "Type"
	TagValue          = "Value"
	TagModuleType     = "ModuleType"
	TagModule         = "Module"
	TagIncludedModule = "IncludedModule"
)

// Module kind and functor result tags.
const (
	KindStruct  = "ModuleStruct"
	KindAlias   = "ModuleAlias"
	KindFunctor = "ModuleFunctor"
	KindWith    = "ModuleWith"
)

// Text element tags.
const (
	TextRaw       = "Raw"
	TextNewline   = "Newline"
	TextEmphasize = "Emphasize"
	TextBold      = "Bold"
	TextLink      = "Link"
	TextCode      = "Code"
	TextList      = "List"
	TextEnum      = "Enum"
	TextRef       = "Ref"
	TextTitle     = "Title"
	TextCodePre   = "CodePre"
)

// Model is the top-level documentation document.
type Model struct {
	Modules    map[string]Node `json:"modules"`
	EntryPoint Node            `json:"entry_point"`
}

// Node is one element of a module body. Exactly one payload field is set,
// matching Tag. Nodes with a tag this package does not know keep the raw
// payload in Raw so renderers can surface them.
type Node struct {
	Tag        string
	Text       []TextElement
	Type       *Type
	Value      *Value
	ModuleType *ModuleType
	Module     *Module
	Include    *ModuleRef
	Raw        json.RawMessage
}

// Name returns the declared name of the node, or "" for Text nodes.
func (n Node) Name() string {
	switch n.Tag {
	case TagType:
		return n.Type.Name
	case TagValue:
		return n.Value.Name
	case TagModuleType:
		return n.ModuleType.Name
	case TagModule:
		return n.Module.Name
	case TagIncludedModule:
		return n.Include.Name
	}
	return ""
}

// Signature is a type expression already rendered to source text.
type Signature struct {
	Rendered string `json:"rendered"`
}

// Info carries the doc comment attached to a declaration.
type Info struct {
	Description []TextElement
}

type Type struct {
	Name       string
	Parameters []string
	Manifest   *Signature
	Info       *Info
}

type Value struct {
	Name string
	Type Signature
	Info *Info
}

type ModuleType struct {
	Name     string
	Elements []Node
	Info     *Info
}

type Module struct {
	Name string
	Kind ModuleKind
	Info *Info
}

// ModuleRef names another module by its qualified path.
type ModuleRef struct {
	Name string `json:"name"`
}

// ModuleKind is the body of a module: a struct, an alias, or a functor.
type ModuleKind struct {
	Tag     string
	Struct  []Node
	Alias   *ModuleRef
	Functor *Functor
	Raw     json.RawMessage
}

type Functor struct {
	Parameter FunctorParameter
	Result    FunctorResult
}

// FunctorParameter is the `(Name : SIG)` part of a functor.
type FunctorParameter struct {
	Name      string
	Signature string
}

// FunctorResult is either a struct body or a `with`-constrained signature.
type FunctorResult struct {
	Tag    string
	Struct []Node
	With   string
	Raw    json.RawMessage
}

// TextElement is one piece of inline doc markup.
type TextElement struct {
	Tag      string
	Literal  string          // Raw, Code, CodePre
	Children []TextElement   // Emphasize, Bold, Link, Ref, Title
	Items    [][]TextElement // List, Enum
	Target   string          // Link, Ref
	Label    string          // Title
	Size     int             // Title
	Raw      json.RawMessage
}
