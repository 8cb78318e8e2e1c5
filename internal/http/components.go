package http

import (
	"bytes"
	"html/template"

	"budget/internal/form"
	"budget/internal/state"
)

var (
	fieldTmpl = template.Must(template.New("field").Parse(
		`<div class="field{{if .ShowError}} invalid{{end}}">` +
			`<label for="{{.Name}}">{{.Label}}</label>{{.Control}}` +
			`{{if .ShowError}}<p class="field-error" id="{{.Name}}-error">{{.Error}}</p>{{end}}` +
			`</div>`))

	optionsTmpl = template.Must(template.New("options").Parse(
		`{{range .Options}}<option value="{{.ID}}"{{if eq .ID $.Selected}} selected{{end}}>{{.Name}}</option>{{end}}`))

	categoryTmpl = template.Must(template.New("category").Parse(
		`<div class="field{{if .ShowError}} invalid{{end}}">` +
			`<label for="{{.Name}}">Category</label>` +
			`<input type="search" name="q" placeholder="Filter categories" autocomplete="off" ` +
			`hx-get="/ui/categories" hx-trigger="keyup changed delay:250ms" hx-target="#{{.Name}}" hx-include="#{{.Name}}">` +
			`<select id="{{.Name}}" name="{{.Name}}" required>{{.Options}}</select>` +
			`{{if .ShowError}}<p class="field-error" id="{{.Name}}-error">{{.Error}}</p>{{end}}` +
			`</div>`))
)

type fieldData struct {
	Name      string
	Label     string
	Control   template.HTML
	Error     string
	ShowError bool
	Options   template.HTML
}

// labelled wraps a bare control with a label and, once the user has left
// the field, its validation message.
func labelled(label string, control form.Tag) form.Component {
	return form.ComponentFunc(func(p form.RenderProps) (template.HTML, error) {
		ctl, err := control.Render(p)
		if err != nil {
			return "", err
		}
		return execute(fieldTmpl, fieldData{
			Name:      p.Name,
			Label:     label,
			Control:   ctl,
			Error:     p.Error,
			ShowError: p.Blurred && p.Error != "",
		})
	})
}

// categorySelect renders the category picker with a filter box that reloads
// the options from /ui/categories.
func categorySelect(options []state.CategoryOption) form.Component {
	return form.ComponentFunc(func(p form.RenderProps) (template.HTML, error) {
		opts, err := renderOptions(options, p.Value.String())
		if err != nil {
			return "", err
		}
		return execute(categoryTmpl, fieldData{
			Name:      p.Name,
			Error:     p.Error,
			ShowError: p.Blurred && p.Error != "",
			Options:   opts,
		})
	})
}

func renderOptions(options []state.CategoryOption, selected string) (template.HTML, error) {
	return execute(optionsTmpl, struct {
		Options  []state.CategoryOption
		Selected string
	}{options, selected})
}

func execute(t *template.Template, data any) (template.HTML, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}
