package statemachine

import "github.com/josh-kwaku/order-replay/internal/domain"

// Machine advances an order's lifecycle by event kind. Transition never fails:
// combinations with no business meaning land in Failed.
type Machine interface {
	Transition(kind domain.EventKind) Result
	CurrentState() domain.State
}

// FSM is a Machine backed by a Table. It holds the only mutable cell, the current
// state, and is not safe for concurrent use.
type FSM struct {
	table   *Table
	current domain.State
}

var _ Machine = (*FSM)(nil)

func New(table *Table, initial domain.State) *FSM {
	return &FSM{table: table, current: initial}
}

func (m *FSM) Transition(kind domain.EventKind) Result {
	res := m.table.Lookup(m.current, kind)
	m.current = res.State
	return res
}

func (m *FSM) CurrentState() domain.State {
	return m.current
}
