//go:build !tinygo

package core

import "sync"

// criticalState is unused on regular Go, where a mutex stands in for
// disabling interrupts
type criticalState struct{}

var criticalMu sync.Mutex

func enterCritical() criticalState {
	criticalMu.Lock()
	return criticalState{}
}

func exitCritical(criticalState) {
	criticalMu.Unlock()
}
