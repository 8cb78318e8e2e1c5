package http

import (
	"fmt"
	"html/template"
	"net/url"
	"strings"
	"time"

	"budget/internal/core"
	"budget/internal/form"
	"budget/internal/state"
)

const (
	fieldDescription = "description"
	fieldAmount      = "amount"
	fieldInflow      = "inflow"
	fieldCategory    = "category"
	fieldDate        = "date"

	dateLayout = "2006-01-02"
	propCats   = "categories"
)

var transactionFields = []string{fieldDescription, fieldAmount, fieldInflow, fieldCategory, fieldDate}

// itemForm is the create/edit transaction form for one request.
type itemForm struct {
	form      *form.Form
	fields    []*form.Field
	submitted form.Values
}

// newItemForm builds and mounts the form. Call close when done.
func newItemForm(initial form.Values, s state.State) (*itemForm, error) {
	f := &itemForm{}
	frm, err := form.New(form.Config{
		Fields:        transactionFields,
		InitialValues: initial,
		Validate:      validateTransaction,
		Props:         form.AuxProps{propCats: state.GetCategories(s)},
		OnSubmit:      func(v form.Values) { f.submitted = v },
	})
	if err != nil {
		return nil, err
	}
	f.form = frm

	configs := []form.FieldConfig{
		{
			Name:      fieldDescription,
			Component: labelled("Description", form.Tag("input")),
			Attrs:     map[string]string{"id": fieldDescription, "type": "text", "maxlength": "200", "required": "required"},
		},
		{
			Name:      fieldAmount,
			Component: labelled("Amount", form.Tag("input")),
			Attrs:     map[string]string{"id": fieldAmount, "type": "text", "inputmode": "decimal", "placeholder": "0.00", "required": "required"},
		},
		{
			Name:      fieldInflow,
			Kind:      form.KindCheckbox,
			Component: labelled("Inflow", form.Tag("input")),
			Attrs:     map[string]string{"id": fieldInflow, "type": "checkbox"},
		},
		{
			Name:      fieldCategory,
			Kind:      form.KindSelect,
			Component: categorySelect(state.GetCategoryOptions(s)),
		},
		{
			Name:      fieldDate,
			Component: labelled("Date", form.Tag("input")),
			Attrs:     map[string]string{"id": fieldDate, "type": "date"},
		},
	}
	for _, cfg := range configs {
		fld, err := form.NewField(frm.Scope(), cfg)
		if err != nil {
			f.close()
			return nil, err
		}
		fld.Mount()
		f.fields = append(f.fields, fld)
	}
	return f, nil
}

func (f *itemForm) close() {
	for _, fld := range f.fields {
		fld.Unmount()
	}
}

// bind replays the posted values through the fields as change events.
func (f *itemForm) bind(posted url.Values) {
	for _, fld := range f.fields {
		fld.Bind(posted)
	}
}

// submit blurs every field and reports whether the values are valid.
func (f *itemForm) submit() (form.Values, bool) {
	ok := f.form.HandleSubmit()
	return f.submitted, ok
}

type itemFormView struct {
	Title      string
	Action     string
	CancelHref string
	Controls   []template.HTML
	Error      string
	SaveError  string
}

func (f *itemForm) view(title, action, cancel string) (itemFormView, error) {
	v := itemFormView{
		Title:      title,
		Action:     action,
		CancelHref: cancel,
		Error:      f.form.FormData().Error,
	}
	for _, fld := range f.fields {
		html, err := fld.Render()
		if err != nil {
			return itemFormView{}, fmt.Errorf("render %s: %w", fld.Name(), err)
		}
		v.Controls = append(v.Controls, html)
	}
	return v, nil
}

func validateTransaction(v form.Values, props form.AuxProps) form.Errors {
	errs := form.Errors{}

	desc := strings.TrimSpace(v.Get(fieldDescription))
	switch {
	case desc == "":
		errs[fieldDescription] = "Description is required"
	case len(desc) > 200:
		errs[fieldDescription] = "Description must be at most 200 characters"
	}

	if _, err := core.ParseDecimalToCents(v.Get(fieldAmount)); err != nil {
		errs[fieldAmount] = "Enter a positive amount, e.g. 12.50"
	}

	cats, _ := props[propCats].(core.Categories)
	switch cat := v.Get(fieldCategory); {
	case cat == "":
		errs[fieldCategory] = "Choose a category"
	case len(cats) > 0 && !cats.Has(cat):
		errs[fieldCategory] = "Unknown category"
	}

	if d := strings.TrimSpace(v.Get(fieldDate)); d != "" {
		if _, err := time.Parse(dateLayout, d); err != nil {
			errs[fieldDate] = "Use the YYYY-MM-DD format"
		}
	}
	return errs
}

// newTransactionValues are the defaults of the create form.
func newTransactionValues(now time.Time) form.Values {
	return form.Values{
		fieldCategory: form.String(state.GetDefaultCategoryID()),
		fieldDate:     form.String(now.Format(dateLayout)),
	}
}

func valuesFromTransaction(t core.Transaction) form.Values {
	abs := t.Value.Abs().Cents
	v := form.Values{
		fieldDescription: form.String(t.Description),
		fieldAmount:      form.String(fmt.Sprintf("%d.%02d", abs/100, abs%100)),
		fieldCategory:    form.String(t.CategoryID),
		fieldDate:        form.String(t.Date.ISO()),
	}
	if !t.Value.IsOutflow() {
		v[fieldInflow] = form.Bool(true)
	}
	return v
}

// transactionFromValues converts validated values. Unchecked inflow means
// the amount is an outflow; a blank date means today.
func transactionFromValues(id int64, v form.Values, now time.Time) (core.Transaction, error) {
	cents, err := core.ParseDecimalToCents(v.Get(fieldAmount))
	if err != nil {
		return core.Transaction{}, err
	}
	if !v[fieldInflow].Truthy() {
		cents = -cents
	}

	date := core.NewDate(now.Year(), int(now.Month()), now.Day())
	if d := strings.TrimSpace(v.Get(fieldDate)); d != "" {
		parsed, err := time.Parse(dateLayout, d)
		if err != nil {
			return core.Transaction{}, err
		}
		date = core.Date{Time: parsed}
	}

	return core.Transaction{
		ID:          id,
		CategoryID:  v.Get(fieldCategory),
		Description: sanitizeInput(v.Get(fieldDescription)),
		Value:       core.Money{Cents: cents},
		Date:        date,
	}, nil
}
