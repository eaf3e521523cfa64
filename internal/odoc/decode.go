package odoc

import (
	"encoding/json"
	"fmt"
)

// tagged is the wire shape shared by every union in the model.
type tagged struct {
	Tag   string          `json:"tag"`
	Value json.RawMessage `json:"value"`
}

type wireInfo struct {
	Description struct {
		Value []TextElement `json:"value"`
	} `json:"description"`
}

func (w *wireInfo) info() *Info {
	if w == nil {
		return nil
	}
	return &Info{Description: w.Description.Value}
}

func (n *Node) UnmarshalJSON(data []byte) error {
	var t tagged
	if err := json.Unmarshal(data, &t); err != nil {
		return fmt.Errorf("decoding node: %w", err)
	}
	*n = Node{Tag: t.Tag}

	switch t.Tag {
	case TagText:
		if err := unmarshalValue(t.Value, &n.Text); err != nil {
			return fmt.Errorf("decoding Text node: %w", err)
		}
	case TagType:
		var v struct {
			Name       string            `json:"name"`
			Parameters []json.RawMessage `json:"parameters"`
			Manifest   *struct {
				Value Signature `json:"value"`
			} `json:"manifest"`
			Info *wireInfo `json:"info"`
		}
		if err := json.Unmarshal(t.Value, &v); err != nil {
			return fmt.Errorf("decoding Type node: %w", err)
		}
		n.Type = &Type{Name: v.Name, Info: v.Info.info()}
		for _, p := range v.Parameters {
			n.Type.Parameters = append(n.Type.Parameters, rawString(p))
		}
		if v.Manifest != nil {
			sig := v.Manifest.Value
			n.Type.Manifest = &sig
		}
	case TagValue:
		var v struct {
			Name string    `json:"name"`
			Type Signature `json:"type"`
			Info *wireInfo `json:"info"`
		}
		if err := json.Unmarshal(t.Value, &v); err != nil {
			return fmt.Errorf("decoding Value node: %w", err)
		}
		n.Value = &Value{Name: v.Name, Type: v.Type, Info: v.Info.info()}
	case TagModuleType:
		var v struct {
			Name     string    `json:"name"`
			Elements []Node    `json:"elements"`
			Info     *wireInfo `json:"info"`
		}
		if err := json.Unmarshal(t.Value, &v); err != nil {
			return fmt.Errorf("decoding ModuleType: %w", err)
		}
		n.ModuleType = &ModuleType{Name: v.Name, Elements: v.Elements, Info: v.Info.info()}
	case TagModule:
		var v struct {
			Name string     `json:"name"`
			Kind ModuleKind `json:"kind"`
			Info *wireInfo  `json:"info"`
		}
		if err := json.Unmarshal(t.Value, &v); err != nil {
			return fmt.Errorf("decoding Module: %w", err)
		}
		n.Module = &Module{Name: v.Name, Kind: v.Kind, Info: v.Info.info()}
	case TagIncludedModule:
		var ref ModuleRef
		if err := json.Unmarshal(t.Value, &ref); err != nil {
			return fmt.Errorf("decoding IncludedModule: %w", err)
		}
		n.Include = &ref
	default:
		n.Raw = append(json.RawMessage(nil), data...)
	}
	return nil
}

func (k *ModuleKind) UnmarshalJSON(data []byte) error {
	var t tagged
	if err := json.Unmarshal(data, &t); err != nil {
		return fmt.Errorf("decoding module kind: %w", err)
	}
	*k = ModuleKind{Tag: t.Tag}

	switch t.Tag {
	case KindStruct:
		if err := unmarshalValue(t.Value, &k.Struct); err != nil {
			return fmt.Errorf("decoding struct body: %w", err)
		}
	case KindAlias:
		var ref ModuleRef
		if err := json.Unmarshal(t.Value, &ref); err != nil {
			return fmt.Errorf("decoding alias: %w", err)
		}
		k.Alias = &ref
	case KindFunctor:
		var v struct {
			Parameter struct {
				Value struct {
					Name string `json:"name"`
					Kind struct {
						Value string `json:"value"`
					} `json:"kind"`
				} `json:"value"`
			} `json:"parameter"`
			Result FunctorResult `json:"result"`
		}
		if err := json.Unmarshal(t.Value, &v); err != nil {
			return fmt.Errorf("decoding functor: %w", err)
		}
		k.Functor = &Functor{
			Parameter: FunctorParameter{
				Name:      v.Parameter.Value.Name,
				Signature: v.Parameter.Value.Kind.Value,
			},
			Result: v.Result,
		}
	default:
		k.Raw = append(json.RawMessage(nil), data...)
	}
	return nil
}

func (r *FunctorResult) UnmarshalJSON(data []byte) error {
	var t tagged
	if err := json.Unmarshal(data, &t); err != nil {
		return fmt.Errorf("decoding functor result: %w", err)
	}
	*r = FunctorResult{Tag: t.Tag}

	switch t.Tag {
	case KindStruct:
		if err := unmarshalValue(t.Value, &r.Struct); err != nil {
			return fmt.Errorf("decoding functor result body: %w", err)
		}
	case KindWith:
		var v struct {
			Kind struct {
				Value string `json:"value"`
			} `json:"kind"`
		}
		if err := json.Unmarshal(t.Value, &v); err != nil {
			return fmt.Errorf("decoding functor result signature: %w", err)
		}
		r.With = v.Kind.Value
	default:
		r.Raw = append(json.RawMessage(nil), data...)
	}
	return nil
}

func (e *TextElement) UnmarshalJSON(data []byte) error {
	var t tagged
	if err := json.Unmarshal(data, &t); err != nil {
		return fmt.Errorf("decoding text element: %w", err)
	}
	*e = TextElement{Tag: t.Tag}

	var err error
	switch t.Tag {
	case TextRaw, TextCode, TextCodePre:
		err = unmarshalValue(t.Value, &e.Literal)
	case TextNewline:
	case TextEmphasize, TextBold:
		err = unmarshalValue(t.Value, &e.Children)
	case TextList, TextEnum:
		err = unmarshalValue(t.Value, &e.Items)
	case TextLink:
		var v struct {
			Target  string        `json:"target"`
			Content []TextElement `json:"content"`
		}
		err = json.Unmarshal(t.Value, &v)
		e.Target, e.Children = v.Target, v.Content
	case TextRef:
		var v struct {
			Reference struct {
				Target  string        `json:"target"`
				Content []TextElement `json:"content"`
			} `json:"reference"`
		}
		err = json.Unmarshal(t.Value, &v)
		e.Target, e.Children = v.Reference.Target, v.Reference.Content
	case TextTitle:
		var v struct {
			Size    int           `json:"size"`
			Label   string        `json:"label"`
			Content []TextElement `json:"content"`
		}
		err = json.Unmarshal(t.Value, &v)
		e.Size, e.Label, e.Children = v.Size, v.Label, v.Content
	default:
		e.Raw = append(json.RawMessage(nil), data...)
	}
	if err != nil {
		return fmt.Errorf("decoding %s element: %w", t.Tag, err)
	}
	return nil
}

// unmarshalValue tolerates a missing or null value.
func unmarshalValue(raw json.RawMessage, v any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return json.Unmarshal(raw, v)
}

// rawString returns a JSON string's contents, or the raw JSON text for any
// other value.
func rawString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}
