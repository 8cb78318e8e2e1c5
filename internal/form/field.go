package form

import (
	"errors"
	"fmt"
	"html/template"
	"net/url"

	"budget/internal/broadcast"
)

// Scope is the handle a Form passes down to its fields. It is the only link
// between the two.
type Scope struct {
	broadcast *broadcast.Broadcast[FormData]
	declared  map[string]struct{}
}

// FormData returns the latest snapshot of the owning form.
func (s Scope) FormData() FormData {
	if s.broadcast == nil {
		return FormData{}
	}
	return s.broadcast.State()
}

// Subscribe registers fn for future snapshots.
func (s Scope) Subscribe(fn func(FormData)) (unsubscribe func()) {
	return s.broadcast.Subscribe(fn)
}

// Declares reports whether the owning form declares the field.
func (s Scope) Declares(name string) bool {
	_, ok := s.declared[name]
	return ok
}

// FieldConfig configures a Field.
type FieldConfig struct {
	// Component defaults to Tag("input").
	Component Component
	// Name must be declared on the owning form.
	Name string
	// Kind selects how submitted values are turned into events.
	Kind Kind
	// HandleRef is called with the field on Mount and with nil on Unmount.
	HandleRef func(*Field)
	// Attrs are passed through to the component.
	Attrs map[string]string
}

// Field connects one form field to a presentation component.
type Field struct {
	cfg         FieldConfig
	scope       Scope
	view        FieldView
	unsubscribe func()
}

// NewField validates the configuration against the scope and returns an
// unmounted field.
func NewField(scope Scope, cfg FieldConfig) (*Field, error) {
	if scope.broadcast == nil {
		return nil, errors.New("form: field created outside of a form scope")
	}
	if cfg.Name == "" {
		return nil, ErrEmptyFieldName
	}
	if !scope.Declares(cfg.Name) {
		return nil, fmt.Errorf("%w: %q", ErrUndeclaredField, cfg.Name)
	}
	if cfg.Component == nil {
		cfg.Component = Tag("input")
	}
	f := &Field{cfg: cfg, scope: scope}
	f.update(scope.FormData())
	return f, nil
}

// Name returns the field name.
func (f *Field) Name() string { return f.cfg.Name }

// Mounted reports whether the field is subscribed to its form.
func (f *Field) Mounted() bool { return f.unsubscribe != nil }

// Mount syncs the field with the current snapshot and subscribes to future
// ones. Mounting twice is a no-op.
func (f *Field) Mount() {
	if f.unsubscribe != nil {
		return
	}
	f.update(f.scope.FormData())
	f.unsubscribe = f.scope.Subscribe(f.update)
	if f.cfg.HandleRef != nil {
		f.cfg.HandleRef(f)
	}
}

// Unmount drops the subscription.
func (f *Field) Unmount() {
	if f.unsubscribe == nil {
		return
	}
	f.unsubscribe()
	f.unsubscribe = nil
	if f.cfg.HandleRef != nil {
		f.cfg.HandleRef(nil)
	}
}

// View returns the field's current slice of the form data.
func (f *Field) View() FieldView { return f.view }

// HandleChange normalizes the input and forwards it to the form.
func (f *Field) HandleChange(in Input) {
	if f.view.OnChange == nil {
		return
	}
	f.view.OnChange(Normalize(in))
}

// HandleBlur forwards a blur to the form.
func (f *Field) HandleBlur() {
	if f.view.OnBlur != nil {
		f.view.OnBlur()
	}
}

// Bind feeds a submitted value to the field as the event its control would
// have produced.
func (f *Field) Bind(posted url.Values) {
	f.HandleChange(EventFromPost(f.cfg.Kind, posted, f.cfg.Name))
}

// Render delegates to the configured component.
func (f *Field) Render() (template.HTML, error) {
	props := RenderProps{
		Name:     f.cfg.Name,
		Value:    f.view.Value,
		OnChange: f.HandleChange,
		OnBlur:   f.view.OnBlur,
		Ref:      f.cfg.HandleRef,
		Attrs:    f.cfg.Attrs,
	}
	if !f.cfg.Component.isTag() {
		props.Error = f.view.Error
		props.Blurred = f.view.Blurred
		props.InitialValue = f.view.InitialValue
	}
	return f.cfg.Component.Render(props)
}

func (f *Field) update(data FormData) {
	if view, ok := data.Fields[f.cfg.Name]; ok {
		f.view = view
	}
}
