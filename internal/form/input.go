package form

import "net/url"

// Kind identifies the control a UI event came from.
type Kind int

const (
	KindText Kind = iota
	KindCheckbox
	KindSelect
	KindTextarea
)

// Input is what a presentation primitive hands to a field on change: either
// an already-normalized Raw value or a UI Event.
type Input interface {
	normalize() Value
}

// Raw passes a value through unchanged.
type Raw struct {
	Value Value
}

func (r Raw) normalize() Value { return r.Value }

// Event is a change event from a form control.
type Event struct {
	Kind    Kind
	Value   string
	Checked bool
}

// Checkboxes yield true when checked and the empty string otherwise.
func (e Event) normalize() Value {
	if e.Kind == KindCheckbox {
		if e.Checked {
			return Bool(true)
		}
		return String("")
	}
	return String(e.Value)
}

// Normalize converts an Input into a field value.
func Normalize(in Input) Value {
	if in == nil {
		return String("")
	}
	return in.normalize()
}

// EventFromPost builds the Event a control of the given kind would produce
// for a submitted form. A checkbox is checked iff its name was posted.
func EventFromPost(kind Kind, posted url.Values, name string) Event {
	if kind == KindCheckbox {
		_, checked := posted[name]
		return Event{Kind: kind, Checked: checked}
	}
	return Event{Kind: kind, Value: posted.Get(name)}
}
