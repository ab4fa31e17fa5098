package common

import "errors"

var ErrModulePaused = errors.New("module paused")

// PauseView exposes the governance-controlled pause bits consumed by engines.
type PauseView interface {
	IsPaused(module string) bool
}

// Guard rejects operations against a paused module.
func Guard(p PauseView, module string) error {
	if p == nil || module == "" {
		return nil
	}
	if p.IsPaused(module) {
		return ErrModulePaused
	}
	return nil
}
