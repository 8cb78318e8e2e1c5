// Package form manages form state for server-rendered forms.
//
// A Form owns the authoritative values and blurred flags of a fixed list of
// fields. Every mutation replaces the state wholesale, re-runs the validator
// and publishes a new immutable FormData snapshot through a broadcast.
// Fields (see Field) subscribe to that broadcast through the form's Scope and
// render their own slice of the snapshot.
//
// A Form is not safe for concurrent use; it is meant to be driven by the
// goroutine handling a single request.
package form

import (
	"errors"
	"fmt"
	"log/slog"

	"budget/internal/broadcast"
)

// ErrorKey is the reserved validator key holding the form-level error.
const ErrorKey = "_error"

var (
	ErrNoFields        = errors.New("form: no fields declared")
	ErrReservedField   = errors.New("form: field name " + ErrorKey + " is reserved")
	ErrDuplicateField  = errors.New("form: duplicate field name")
	ErrEmptyFieldName  = errors.New("form: empty field name")
	ErrUndeclaredField = errors.New("form: undeclared field")
)

// Errors maps field names (or ErrorKey) to an error message. A missing key
// means no error.
type Errors map[string]string

// AuxProps are ancillary values handed to the validator next to the field
// values, e.g. the set of known category ids.
type AuxProps map[string]any

// Validator inspects the values and returns the failing fields.
type Validator func(values Values, props AuxProps) Errors

// Config configures a Form.
type Config struct {
	// Fields is the ordered list of declared field names. Required.
	Fields []string
	// InitialValues seeds the values; fields missing here start as "".
	InitialValues Values
	// OnSubmit is called by HandleSubmit when the form is valid.
	OnSubmit func(Values)
	// OnFormDataChange is called with every new FormData snapshot.
	OnFormDataChange func(FormData)
	// Validate defaults to a validator that never reports errors.
	Validate Validator
	// Props are passed to Validate unchanged.
	Props AuxProps
}

// FormState is the authoritative state owned by a Form.
type FormState struct {
	Values  Values
	Blurred map[string]bool
}

// FieldView is one field's slice of a FormData snapshot.
type FieldView struct {
	Name         string
	Value        Value
	InitialValue Value
	Blurred      bool
	Error        string
	OnBlur       func()
	OnChange     func(Value)
}

// FormData is the derived, read-only snapshot published on every change.
type FormData struct {
	Fields map[string]FieldView
	Error  string
	Valid  bool

	form *Form
}

// InitializeForm resets the owning form with the given values.
func (d FormData) InitializeForm(values Values) {
	if d.form != nil {
		d.form.InitializeForm(values)
	}
}

// HandleSubmit submits the owning form. See Form.HandleSubmit.
func (d FormData) HandleSubmit() bool {
	if d.form == nil {
		return false
	}
	return d.form.HandleSubmit()
}

// Form is the form controller.
type Form struct {
	fields        []string
	declared      map[string]struct{}
	initialValues Values
	validate      Validator
	onSubmit      func(Values)
	onChange      func(FormData)
	props         AuxProps

	state     FormState
	broadcast *broadcast.Broadcast[FormData]
}

// New builds a Form, publishes its initial FormData and reports it to
// OnFormDataChange.
func New(cfg Config) (*Form, error) {
	if len(cfg.Fields) == 0 {
		return nil, ErrNoFields
	}
	declared := make(map[string]struct{}, len(cfg.Fields))
	for _, name := range cfg.Fields {
		switch {
		case name == "":
			return nil, ErrEmptyFieldName
		case name == ErrorKey:
			return nil, ErrReservedField
		}
		if _, dup := declared[name]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateField, name)
		}
		declared[name] = struct{}{}
	}

	validate := cfg.Validate
	if validate == nil {
		validate = func(Values, AuxProps) Errors { return Errors{} }
	}
	initial := cfg.InitialValues
	if initial == nil {
		initial = Values{}
	}

	f := &Form{
		fields:        append([]string(nil), cfg.Fields...),
		declared:      declared,
		initialValues: initial.clone(),
		validate:      validate,
		onSubmit:      cfg.OnSubmit,
		onChange:      cfg.OnFormDataChange,
		props:         cfg.Props,
		broadcast:     broadcast.New(FormData{}),
	}
	f.setFormState(f.initialFormState(initial))
	return f, nil
}

// Fields returns the declared field names in order.
func (f *Form) Fields() []string {
	return append([]string(nil), f.fields...)
}

// State returns the current form state. The maps must not be modified.
func (f *Form) State() FormState {
	return f.state
}

// FormData returns the latest published snapshot.
func (f *Form) FormData() FormData {
	return f.broadcast.State()
}

// Scope returns the handle nested fields use to reach this form.
func (f *Form) Scope() Scope {
	return Scope{broadcast: f.broadcast, declared: f.declared}
}

// HandleChange sets the value of a declared field. Undeclared names are
// ignored.
func (f *Form) HandleChange(field string, v Value) {
	if err := f.Change(field, v); err != nil {
		slog.Debug("Ignoring change for undeclared field", "field", field)
	}
}

// Change is HandleChange reporting undeclared names as ErrUndeclaredField.
func (f *Form) Change(field string, v Value) error {
	if !f.isDeclared(field) {
		return fmt.Errorf("%w: %q", ErrUndeclaredField, field)
	}
	values := f.state.Values.clone()
	values[field] = v
	f.setFormState(FormState{Values: values, Blurred: f.state.Blurred})
	return nil
}

// HandleBlur marks a declared field as blurred. Undeclared names are ignored.
func (f *Form) HandleBlur(field string) {
	if err := f.Blur(field); err != nil {
		slog.Debug("Ignoring blur for undeclared field", "field", field)
	}
}

// Blur is HandleBlur reporting undeclared names as ErrUndeclaredField.
func (f *Form) Blur(field string) error {
	if !f.isDeclared(field) {
		return fmt.Errorf("%w: %q", ErrUndeclaredField, field)
	}
	blurred := cloneBlurred(f.state.Blurred)
	blurred[field] = true
	f.setFormState(FormState{Values: f.state.Values, Blurred: blurred})
	return nil
}

// InitializeForm replaces the whole state with the given values; every field
// becomes un-blurred.
func (f *Form) InitializeForm(values Values) {
	f.setFormState(f.initialFormState(values))
}

// HandleSubmit validates the current values and marks every field blurred in
// a single publish. When there are no errors and OnSubmit is set it is called
// with the values and HandleSubmit returns true.
func (f *Form) HandleSubmit() bool {
	values := f.state.Values
	blurred := make(map[string]bool, len(f.fields))
	for _, name := range f.fields {
		blurred[name] = true
	}
	data := f.setFormState(FormState{Values: values, Blurred: blurred})

	if data.Valid && f.onSubmit != nil {
		f.onSubmit(values.clone())
		return true
	}
	return false
}

func (f *Form) isDeclared(field string) bool {
	_, ok := f.declared[field]
	return ok
}

func (f *Form) initialFormState(newValues Values) FormState {
	values := make(Values, len(f.fields))
	blurred := make(map[string]bool, len(f.fields))
	for _, name := range f.fields {
		if v, ok := newValues[name]; ok {
			values[name] = v
		} else {
			values[name] = String("")
		}
		blurred[name] = false
	}
	return FormState{Values: values, Blurred: blurred}
}

// setFormState publishes the snapshot derived from s and returns it.
func (f *Form) setFormState(s FormState) FormData {
	f.state = s
	data := f.formData()
	f.broadcast.SetState(data)
	if f.onChange != nil {
		f.onChange(data)
	}
	return data
}

func (f *Form) runValidator(values Values) Errors {
	errs := f.validate(values, f.props)
	if errs == nil {
		return Errors{}
	}
	return errs
}

// formData derives a snapshot from the current state with one validator run.
func (f *Form) formData() FormData {
	errs := f.runValidator(f.state.Values)

	fields := make(map[string]FieldView, len(f.fields))
	for _, name := range f.fields {
		name := name
		fields[name] = FieldView{
			Name:         name,
			Value:        f.state.Values[name],
			InitialValue: f.initialValues[name],
			Blurred:      f.state.Blurred[name],
			Error:        errs[name],
			OnBlur:       func() { f.HandleBlur(name) },
			OnChange:     func(v Value) { f.HandleChange(name, v) },
		}
	}

	return FormData{
		Fields: fields,
		Error:  errs[ErrorKey],
		Valid:  len(errs) == 0,
		form:   f,
	}
}

func cloneBlurred(in map[string]bool) map[string]bool {
	out := make(map[string]bool, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
