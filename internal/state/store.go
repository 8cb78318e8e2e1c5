// Package state holds the in-process view of the budget (transactions and
// categories) and the selectors that derive view models from it.
//
// The Store is a reducer-style container: callers Dispatch actions, the
// matching reducer produces a new State, and the new State is published to
// subscribers through a broadcast.
package state

import (
	"sort"
	"sync"

	"budget/internal/broadcast"
	"budget/internal/core"
)

// State is an immutable snapshot. Reducers never modify a State in place.
type State struct {
	Transactions []core.Transaction
	Categories   core.Categories
}

// Action is a state transition understood by the Store.
type Action interface {
	reduce(State) State
}

// Load replaces the transactions and the category table in one step.
type Load struct {
	Transactions []core.Transaction
	Categories   core.Categories
}

// AddTransaction appends a transaction.
type AddTransaction struct {
	Transaction core.Transaction
}

// UpdateTransaction replaces the transaction with the same ID.
type UpdateTransaction struct {
	Transaction core.Transaction
}

// RemoveTransaction drops the transaction with the given ID.
type RemoveTransaction struct {
	ID int64
}

func (a Load) reduce(State) State {
	txs := append([]core.Transaction(nil), a.Transactions...)
	sort.SliceStable(txs, func(i, j int) bool { return txs[i].ID < txs[j].ID })
	cats := make(core.Categories, len(a.Categories))
	for id, name := range a.Categories {
		cats[id] = name
	}
	return State{Transactions: txs, Categories: cats}
}

func (a AddTransaction) reduce(s State) State {
	txs := make([]core.Transaction, 0, len(s.Transactions)+1)
	txs = append(txs, s.Transactions...)
	txs = append(txs, a.Transaction)
	return State{Transactions: txs, Categories: s.Categories}
}

func (a UpdateTransaction) reduce(s State) State {
	txs := make([]core.Transaction, len(s.Transactions))
	copy(txs, s.Transactions)
	for i := range txs {
		if txs[i].ID == a.Transaction.ID {
			txs[i] = a.Transaction
			break
		}
	}
	return State{Transactions: txs, Categories: s.Categories}
}

func (a RemoveTransaction) reduce(s State) State {
	txs := make([]core.Transaction, 0, len(s.Transactions))
	for _, t := range s.Transactions {
		if t.ID != a.ID {
			txs = append(txs, t)
		}
	}
	return State{Transactions: txs, Categories: s.Categories}
}

// Store serializes dispatches and publishes each resulting State.
type Store struct {
	mu        sync.Mutex
	broadcast *broadcast.Broadcast[State]
}

// NewStore returns a Store holding initial.
func NewStore(initial State) *Store {
	return &Store{broadcast: broadcast.New(initial)}
}

// State returns the current snapshot.
func (s *Store) State() State {
	return s.broadcast.State()
}

// Dispatch applies the action and notifies subscribers. Subscribers run
// synchronously and must not call Dispatch themselves.
func (s *Store) Dispatch(a Action) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.broadcast.SetState(a.reduce(s.broadcast.State()))
}

// Subscribe registers fn for every future State.
func (s *Store) Subscribe(fn func(State)) (unsubscribe func()) {
	return s.broadcast.Subscribe(fn)
}
