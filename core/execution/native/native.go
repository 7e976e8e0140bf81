// Package native implements an execution service to run native contracts.
//
// A native contract is written in Go and packaged with the application. A
// transaction selects the contract with the ContractArg argument.
package native

import (
	"sort"

	"go.ezyvote.org/ezyvote/core/execution"
	"go.ezyvote.org/ezyvote/core/store"
	"golang.org/x/xerrors"
)

const (
	// ContractArg is the argument key in the transaction to look up a contract.
	ContractArg = "ezyvote.ContractArg"
)

// Contract is the interface to implement to register a contract that will be
// executed natively.
type Contract interface {
	Execute(store.Snapshot, execution.Step) error

	// UID returns the unique 4 bytes identifier of the contract, which is also
	// the namespace of its keys in the state.
	UID() string
}

// Service is an execution service for packaged contracts. The contracts have
// complete access to the state and directly update it.
//
// - implements execution.Service
type Service struct {
	contracts    map[string]Contract
	contractUIDs map[string]struct{}
}

// NewExecution returns a new native execution.
func NewExecution() *Service {
	return &Service{
		contracts:    map[string]Contract{},
		contractUIDs: map[string]struct{}{},
	}
}

// Set stores the contract using the name as the key. It panics if the name or
// the UID is already registered, or if the UID is not 4 bytes long.
func (ns *Service) Set(name string, contract Contract) {
	if _, ok := ns.contracts[name]; ok {
		panic(xerrors.Errorf("contract '%s' already registered", name))
	}

	uid := contract.UID()

	if len(uid) != 4 {
		panic(xerrors.Errorf("contract UID '%x' for '%s' is not 4 bytes long", uid, name))
	}

	if _, ok := ns.contractUIDs[uid]; ok {
		panic(xerrors.Errorf("contract UID '%x' for '%s' already registered", uid, name))
	}

	ns.contracts[name] = contract
	ns.contractUIDs[uid] = struct{}{}
}

// Names returns the sorted names of the registered contracts.
func (ns *Service) Names() []string {
	names := make([]string, 0, len(ns.contracts))
	for name := range ns.contracts {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// Execute implements execution.Service. It runs the contract of the
// transaction. A contract error rejects the transaction, while an unknown
// contract is an error of the execution itself.
func (ns *Service) Execute(snap store.Snapshot, step execution.Step) (execution.Result, error) {
	name := string(step.Current.GetArg(ContractArg))

	contract := ns.contracts[name]
	if contract == nil {
		return execution.Result{}, xerrors.Errorf("unknown contract '%s'", name)
	}

	log := &execution.EventLog{}
	step.Log = log

	err := contract.Execute(snap, step)
	if err != nil {
		return execution.Result{
			Message: err.Error(),
			Reason:  err,
		}, nil
	}

	res := execution.Result{
		Accepted: true,
		Events:   log.Events(),
	}

	return res, nil
}
