// Package views turns state snapshots into template-ready view models.
package views

import (
	"math"
	"strconv"

	"budget/internal/chart"
	"budget/internal/core"
	"budget/internal/state"
)

// GridRow is one line of the budget grid.
type GridRow struct {
	ID          int64
	Category    string
	Description string
	Date        string
	Amount      core.Amount
	Href        string
}

// Budget is the budget page.
type Budget struct {
	Rows    []GridRow
	Inflow  core.Amount
	Outflow core.Amount
	Balance core.Amount
}

// NewBudget builds the grid and its totals.
func NewBudget(s state.State) Budget {
	cats := state.GetCategories(s)
	txs := state.GetTransactions(s)
	rows := make([]GridRow, 0, len(txs))
	for _, t := range txs {
		rows = append(rows, NewGridRow(t, cats))
	}
	return Budget{
		Rows:    rows,
		Inflow:  core.FormatAmount(state.GetInflowBalance(s), true),
		Outflow: core.FormatAmount(state.GetOutflowBalance(s), true),
		Balance: state.GetFormattedBalance(s),
	}
}

// NewGridRow formats a single transaction.
func NewGridRow(t core.Transaction, cats core.Categories) GridRow {
	return GridRow{
		ID:          t.ID,
		Category:    cats.Name(t.CategoryID),
		Description: t.Description,
		Date:        t.Date.ISO(),
		Amount:      core.FormatAmount(t.Value, true),
		Href:        ItemHref(t.ID),
	}
}

// ItemHref is the details link of a transaction.
func ItemHref(id int64) string {
	return "/item/" + strconv.FormatInt(id, 10)
}

// ItemDetails describes one transaction relative to all money moved.
type ItemDetails struct {
	ID         int64
	Title      string
	Category   string
	Date       string
	Value      core.Amount
	Percentage string
	IsOutflow  bool
	Total      core.Amount
	Chart      chart.Chart
}

// NewItemDetails computes the share of the transaction in the sum of the
// absolute inflow and outflow balances. The percentage is signed before
// formatting, so outflows are flagged, and is 0 when nothing has been booked.
func NewItemDetails(s state.State, t core.Transaction) ItemDetails {
	total := state.GetOutflowBalance(s).Abs().Cents + state.GetInflowBalance(s).Abs().Cents

	var percentage float64
	if total != 0 {
		percentage = float64(t.Value.Cents) / float64(total) * 100
	}

	share := math.Abs(percentage)
	return ItemDetails{
		ID:         t.ID,
		Title:      t.Description,
		Category:   state.GetCategoryByID(t.CategoryID)(s),
		Date:       t.Date.ISO(),
		Value:      core.FormatAmount(t.Value, true),
		Percentage: strconv.FormatFloat(share, 'f', 2, 64),
		IsOutflow:  percentage < 0,
		Total:      core.FormatAmount(core.Money{Cents: total}, false),
		Chart: chart.Pie([]chart.Datum{
			{Label: t.Description, Value: share},
			{Label: "Everything else", Value: 100 - share},
		}, chart.Options{Width: 160, Height: 160, Percent: true}),
	}
}

// Report tab identifiers.
const (
	TabFlows    = "flows"
	TabSpending = "spending"
)

// Tab is one entry of the reports tab bar.
type Tab struct {
	ID       string
	Label    string
	Selected bool
}

var tabs = []Tab{
	{ID: TabFlows, Label: "Inflow vs Outflow"},
	{ID: TabSpending, Label: "Spending by Category"},
}

// NormalizeTab maps unknown or empty tab names to the flows tab.
func NormalizeTab(id string) string {
	for _, t := range tabs {
		if t.ID == id {
			return id
		}
	}
	return TabFlows
}

// Tabs returns the tab bar with the normalized selection marked.
func Tabs(selected string) []Tab {
	selected = NormalizeTab(selected)
	out := make([]Tab, len(tabs))
	for i, t := range tabs {
		t.Selected = t.ID == selected
		out[i] = t
	}
	return out
}

// Report is the reports page.
type Report struct {
	Tab   string
	Tabs  []Tab
	Chart chart.Chart
}

// NewReport builds the chart for the requested tab.
func NewReport(s state.State, tab string) Report {
	tab = NormalizeTab(tab)
	r := Report{Tab: tab, Tabs: Tabs(tab)}
	switch tab {
	case TabSpending:
		var data []chart.Datum
		for _, c := range state.GetSpendingByCategory(s) {
			data = append(data, chart.Datum{Label: c.Name, Value: c.Total.Dollars()})
		}
		r.Chart = chart.Donut(data, chart.Options{Width: 300, Height: 300, InnerRatio: 0.6})
	default:
		r.Chart = chart.Donut([]chart.Datum{
			{Label: "Inflow", Value: state.GetInflowBalance(s).Dollars(), Color: "#2ca02c"},
			{Label: "Outflow", Value: state.GetOutflowBalance(s).Abs().Dollars(), Color: "#d62728"},
		}, chart.Options{Width: 300, Height: 300, InnerRatio: 0.6})
	}
	return r
}
