// Package execution defines the service that applies a transaction to the
// state of the contracts.
package execution

import (
	"time"

	"go.ezyvote.org/ezyvote/core/store"
	"go.ezyvote.org/ezyvote/core/txn"
)

// Step is the context of a transaction execution.
type Step struct {
	// Previous is the list of transactions executed before the current one in
	// the same batch.
	Previous []txn.Transaction

	// Current is the transaction to execute.
	Current txn.Transaction

	// Time is the execution time of the transaction. Every time-dependent
	// precondition is evaluated against it.
	Time time.Time

	// Log collects the notifications emitted by the contract. It can be nil,
	// in which case the notifications are dropped.
	Log *EventLog
}

// Emit appends a notification to the log of the step.
func (s Step) Emit(contract, name string, value interface{}) {
	if s.Log == nil {
		return
	}

	s.Log.Emit(contract, name, value)
}

// Event is a notification emitted by a contract while executing a
// transaction. It is only published if the transaction is committed.
type Event struct {
	Contract string
	Name     string
	Value    interface{}
}

// EventLog is the ordered list of notifications of an execution.
type EventLog struct {
	events []Event
}

// Emit appends a notification to the log.
func (l *EventLog) Emit(contract, name string, value interface{}) {
	l.events = append(l.events, Event{
		Contract: contract,
		Name:     name,
		Value:    value,
	})
}

// Events returns the notifications in the emission order, or nil if there is
// none.
func (l *EventLog) Events() []Event {
	if len(l.events) == 0 {
		return nil
	}

	return append([]Event{}, l.events...)
}

// Result is the result of a transaction execution.
type Result struct {
	// Accepted is the success state of the transaction.
	Accepted bool

	// Message gives a chance to the execution to explain why a transaction has
	// failed.
	Message string

	// Reason is the error that rejected the transaction, if any.
	Reason error

	// Events are the notifications of an accepted transaction.
	Events []Event
}

// Service is the execution service that defines the primitives to execute a
// transaction.
type Service interface {
	// Execute must apply the transaction to the snapshot and return the result
	// of it. A rejected transaction may have written to the snapshot, so the
	// caller must discard it.
	Execute(snap store.Snapshot, step Step) (Result, error)
}
