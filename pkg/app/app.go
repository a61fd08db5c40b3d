// Package app defines the runtime contract shared by the TaskChain binaries
// (API server, reconciliation worker).
package app

// Runner represents a runnable application component.
type Runner interface {
	Run() error
}
