// Package store defines interfaces for data persistence operations and the
// transaction scope that groups them.
//
// Every store interface has a WithTx method returning a copy bound to a
// transaction. A UnitOfWork opens one transaction, runs its steps in order
// against transaction-bound stores and commits or rolls back all of them
// together, so a multi-table workflow is never partially visible.
package store
