package odoc

// Constructors for building models in code.

func TextNode(elements ...TextElement) Node {
	return Node{Tag: TagText, Text: elements}
}

func TypeNode(t Type) Node {
	return Node{Tag: TagType, Type: &t}
}

func ValueNode(name, signature string) Node {
	return Node{Tag: TagValue, Value: &Value{Name: name, Type: Signature{Rendered: signature}}}
}

func ModuleTypeNode(name string, elements ...Node) Node {
	return Node{Tag: TagModuleType, ModuleType: &ModuleType{Name: name, Elements: elements}}
}

func StructNode(name string, body ...Node) Node {
	return Node{Tag: TagModule, Module: &Module{Name: name, Kind: ModuleKind{Tag: KindStruct, Struct: body}}}
}

func AliasNode(name, target string) Node {
	return Node{Tag: TagModule, Module: &Module{Name: name, Kind: ModuleKind{Tag: KindAlias, Alias: &ModuleRef{Name: target}}}}
}

func FunctorNode(name string, f Functor) Node {
	return Node{Tag: TagModule, Module: &Module{Name: name, Kind: ModuleKind{Tag: KindFunctor, Functor: &f}}}
}

func IncludeNode(target string) Node {
	return Node{Tag: TagIncludedModule, Include: &ModuleRef{Name: target}}
}

func Raw(s string) TextElement  { return TextElement{Tag: TextRaw, Literal: s} }
func Code(s string) TextElement { return TextElement{Tag: TextCode, Literal: s} }

func Ref(target string, content ...TextElement) TextElement {
	return TextElement{Tag: TextRef, Target: target, Children: content}
}

// NewModel wraps a root struct module as both the entry point and the only
// top-level module.
func NewModel(root Node) *Model {
	return &Model{
		Modules:    map[string]Node{root.Name(): root},
		EntryPoint: root,
	}
}
