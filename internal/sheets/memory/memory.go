package memory

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"budget/internal/core"
	"budget/internal/sheets"
)

var (
	_ sheets.TransactionStore    = (*Store)(nil)
	_ sheets.CategoryReader      = (*Store)(nil)
	_ sheets.TransactionExporter = (*Store)(nil)
)

// Store keeps transactions, categories and exported rows in memory.
type Store struct {
	mu     sync.Mutex
	cats   core.Categories
	items  map[int64]core.Transaction
	nextID int64
	rows   [][]string
}

func New(cats core.Categories) *Store {
	c := make(core.Categories, len(cats))
	for id, name := range cats {
		c[id] = name
	}
	return &Store{cats: c, items: map[int64]core.Transaction{}}
}

// NewFromFiles seeds categories from base/seed_categories.txt, one "id=name"
// pair per line. Missing or empty files fall back to the built-in table.
// Transactions are read from base/seed_transactions.txt, one
// "YYYY-MM-DD;category;amount;description" per line, where a leading "-"
// marks an outflow. Lines that do not parse are skipped.
func NewFromFiles(base string) *Store {
	cats := readCategories(filepath.Join(base, "seed_categories.txt"))
	if len(cats) == 0 {
		cats = core.SeedCategories()
	}
	s := New(cats)
	for _, t := range readTransactions(filepath.Join(base, "seed_transactions.txt"), cats) {
		s.nextID++
		t.ID = s.nextID
		s.items[t.ID] = t
	}
	return s
}

// ListTransactions returns transactions in ID order.
func (s *Store) ListTransactions(_ context.Context) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Transaction, 0, len(s.items))
	for _, t := range s.items {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) GetTransaction(_ context.Context, id int64) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.items[id]
	if !ok {
		return core.Transaction{}, fmt.Errorf("get transaction %d: %w", id, core.ErrNotFound)
	}
	return t, nil
}

// CreateTransaction stores the transaction under the next free ID.
func (s *Store) CreateTransaction(_ context.Context, t core.Transaction) (core.Transaction, error) {
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	t.ID = s.nextID
	s.items[t.ID] = t
	return t, nil
}

func (s *Store) UpdateTransaction(_ context.Context, t core.Transaction) error {
	if err := t.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[t.ID]; !ok {
		return fmt.Errorf("transaction %d: %w", t.ID, core.ErrNotFound)
	}
	s.items[t.ID] = t
	return nil
}

func (s *Store) DeleteTransaction(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return fmt.Errorf("transaction %d: %w", id, core.ErrNotFound)
	}
	delete(s.items, id)
	return nil
}

// ListCategories returns a copy of the category table.
func (s *Store) ListCategories(_ context.Context) (core.Categories, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(core.Categories, len(s.cats))
	for id, name := range s.cats {
		out[id] = name
	}
	return out, nil
}

// AppendTransaction records an exported row and returns a synthetic reference.
func (s *Store) AppendTransaction(_ context.Context, t core.Transaction, category string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, []string{
		fmt.Sprint(t.ID), t.Date.ISO(), category, t.Description, fmt.Sprintf("%.2f", t.Value.Dollars()),
	})
	return fmt.Sprintf("mem:%d", len(s.rows)), nil
}

// Rows returns the exported rows.
func (s *Store) Rows() [][]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]string(nil), s.rows...)
}

func readCategories(path string) core.Categories {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	out := core.Categories{}
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		id, name, ok := strings.Cut(line, "=")
		id, name = strings.TrimSpace(id), strings.TrimSpace(name)
		if !ok || id == "" || name == "" {
			continue
		}
		if _, dup := out[id]; dup {
			continue
		}
		out[id] = name
	}
	return out
}

func readTransactions(path string, cats core.Categories) []core.Transaction {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []core.Transaction
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, ";", 4)
		if len(parts) != 4 {
			continue
		}
		date, err := time.Parse("2006-01-02", strings.TrimSpace(parts[0]))
		if err != nil {
			continue
		}
		cents, err := core.ParseSignedDecimalToCents(parts[2])
		if err != nil {
			continue
		}
		t := core.Transaction{
			CategoryID:  strings.TrimSpace(parts[1]),
			Description: strings.TrimSpace(parts[3]),
			Value:       core.Money{Cents: cents},
			Date:        core.NewDate(date.Year(), int(date.Month()), date.Day()),
		}
		if t.Validate() != nil || !cats.Has(t.CategoryID) {
			continue
		}
		out = append(out, t)
	}
	return out
}
