package form

import (
	"html/template"
	"sort"
	"strings"
)

// RenderProps are handed to a Component by Field.Render.
type RenderProps struct {
	Name     string
	Value    Value
	OnChange func(Input)
	OnBlur   func()
	Ref      func(*Field)

	// Error, Blurred and InitialValue are only set for ComponentFunc
	// components; bare tags never receive them.
	Error        string
	Blurred      bool
	InitialValue Value

	// Attrs are extra attributes from FieldConfig.
	Attrs map[string]string
}

// Component is the presentation primitive a Field renders through: a bare
// Tag or a ComponentFunc.
type Component interface {
	Render(RenderProps) (template.HTML, error)
	isTag() bool
}

// Tag renders a plain HTML form element ("input", "textarea", "select", ...).
type Tag string

func (Tag) isTag() bool { return true }

// Render writes the element with name, value and the configured attributes.
func (t Tag) Render(p RenderProps) (template.HTML, error) {
	name := string(t)
	if name == "" {
		name = "input"
	}

	var b strings.Builder
	b.WriteString("<")
	b.WriteString(template.HTMLEscapeString(name))
	writeAttr(&b, "name", p.Name)

	switch name {
	case "input":
		if p.Attrs["type"] == "checkbox" {
			if p.Value.Truthy() {
				b.WriteString(" checked")
			}
		} else {
			writeAttr(&b, "value", p.Value.String())
		}
		writeAttrs(&b, p.Attrs)
		b.WriteString(">")
	case "textarea":
		writeAttrs(&b, p.Attrs)
		b.WriteString(">")
		b.WriteString(template.HTMLEscapeString(p.Value.String()))
		b.WriteString("</textarea>")
	default:
		writeAttr(&b, "value", p.Value.String())
		writeAttrs(&b, p.Attrs)
		b.WriteString("></")
		b.WriteString(template.HTMLEscapeString(name))
		b.WriteString(">")
	}
	return template.HTML(b.String()), nil
}

// ComponentFunc is a custom component. It receives the auxiliary props
// (error, blurred, initial value) in addition to the tag props.
type ComponentFunc func(RenderProps) (template.HTML, error)

func (ComponentFunc) isTag() bool { return false }

// Render calls fn.
func (fn ComponentFunc) Render(p RenderProps) (template.HTML, error) {
	return fn(p)
}

func writeAttr(b *strings.Builder, key, value string) {
	b.WriteString(" ")
	b.WriteString(template.HTMLEscapeString(key))
	b.WriteString(`="`)
	b.WriteString(template.HTMLEscapeString(value))
	b.WriteString(`"`)
}

func writeAttrs(b *strings.Builder, attrs map[string]string) {
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		if k == "name" || k == "value" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		writeAttr(b, k, attrs[k])
	}
}
