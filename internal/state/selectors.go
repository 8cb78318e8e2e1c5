package state

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"

	"budget/internal/core"
)

// GetCategories returns the category table, or an empty table when none has
// been loaded.
func GetCategories(s State) core.Categories {
	if s.Categories == nil {
		return core.Categories{}
	}
	return s.Categories
}

// GetDefaultCategoryID returns the category preselected for new transactions.
func GetDefaultCategoryID() string {
	return core.DefaultCategoryID
}

// GetCategoryByID returns a selector for the category name with the given id.
func GetCategoryByID(id string) func(State) string {
	return func(s State) string {
		return GetCategories(s)[id]
	}
}

// GetTransactions returns transactions in ID order.
func GetTransactions(s State) []core.Transaction {
	return s.Transactions
}

// GetTransactionByID looks up a single transaction.
func GetTransactionByID(s State, id int64) (core.Transaction, bool) {
	for _, t := range s.Transactions {
		if t.ID == id {
			return t, true
		}
	}
	return core.Transaction{}, false
}

// GetInflowBalance sums positive transactions.
func GetInflowBalance(s State) core.Money {
	var total int64
	for _, t := range s.Transactions {
		if t.Value.Cents > 0 {
			total += t.Value.Cents
		}
	}
	return core.Money{Cents: total}
}

// GetOutflowBalance sums negative transactions. The result is zero or negative.
func GetOutflowBalance(s State) core.Money {
	var total int64
	for _, t := range s.Transactions {
		if t.Value.Cents < 0 {
			total += t.Value.Cents
		}
	}
	return core.Money{Cents: total}
}

// GetBalance is inflow plus outflow.
func GetBalance(s State) core.Money {
	return core.Money{Cents: GetInflowBalance(s).Cents + GetOutflowBalance(s).Cents}
}

// GetFormattedBalance formats the running balance with its sign.
func GetFormattedBalance(s State) core.Amount {
	return core.FormatAmount(GetBalance(s), true)
}

// CategoryTotal is the outflow booked against one category.
type CategoryTotal struct {
	CategoryID string
	Name       string
	Total      core.Money
}

// GetSpendingByCategory aggregates outflows per category, largest first.
// Totals are positive.
func GetSpendingByCategory(s State) []CategoryTotal {
	cats := GetCategories(s)
	sums := make(map[string]int64)
	for _, t := range s.Transactions {
		if t.Value.Cents < 0 {
			sums[t.CategoryID] -= t.Value.Cents
		}
	}
	out := make([]CategoryTotal, 0, len(sums))
	for id, cents := range sums {
		name := cats.Name(id)
		if name == "" {
			name = id
		}
		out = append(out, CategoryTotal{CategoryID: id, Name: name, Total: core.Money{Cents: cents}})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Total.Cents != out[j].Total.Cents {
			return out[i].Total.Cents > out[j].Total.Cents
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// CategoryOption is one entry of the category picker.
type CategoryOption struct {
	ID   string
	Name string
}

// GetCategoryOptions lists categories sorted by name.
func GetCategoryOptions(s State) []CategoryOption {
	cats := GetCategories(s)
	out := make([]CategoryOption, 0, len(cats))
	for id, name := range cats {
		out = append(out, CategoryOption{ID: id, Name: name})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// SearchCategories ranks categories against query. Prefix matches come
// first, then substring matches, then the closest names by edit distance.
// Names further than half the query length away are dropped. An empty query
// returns every category sorted by name.
func SearchCategories(s State, query string) []CategoryOption {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return GetCategoryOptions(s)
	}

	type ranked struct {
		opt   CategoryOption
		tier  int
		score int
	}
	maxDist := utf8.RuneCountInString(q) / 2
	var hits []ranked
	for _, opt := range GetCategoryOptions(s) {
		name := strings.ToLower(opt.Name)
		switch {
		case strings.HasPrefix(name, q):
			hits = append(hits, ranked{opt: opt, tier: 0})
		case strings.Contains(name, q):
			hits = append(hits, ranked{opt: opt, tier: 1})
		default:
			d := bestDistance(name, q)
			if d <= maxDist {
				hits = append(hits, ranked{opt: opt, tier: 2, score: d})
			}
		}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].tier != hits[j].tier {
			return hits[i].tier < hits[j].tier
		}
		return hits[i].score < hits[j].score
	})

	out := make([]CategoryOption, len(hits))
	for i, h := range hits {
		out[i] = h.opt
	}
	return out
}

// bestDistance compares q with the whole name and with each word of it, so
// "grocries" still finds "Groceries & Food".
func bestDistance(name, q string) int {
	best := levenshtein.ComputeDistance(name, q)
	for _, word := range strings.Fields(name) {
		if d := levenshtein.ComputeDistance(word, q); d < best {
			best = d
		}
	}
	return best
}
