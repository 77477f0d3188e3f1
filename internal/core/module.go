// Package core is the module system: modules register themselves from
// init(), are enabled by an entry in the configuration file, and move
// through Configure → Provision → Validate → Start → Stop.
package core

import "strings"

// ModuleID names a module, namespaced with a dot (e.g. "jobs.runner").
type ModuleID string

// ModuleInfo describes a registered module.
type ModuleInfo struct {
	ID ModuleID

	// New returns a fresh, unconfigured instance.
	New func() Module
}

// Module is implemented by every module.
type Module interface {
	ModuleInfo() ModuleInfo
}

// Namespace returns the part before the last dot ("jobs" for "jobs.runner").
func (id ModuleID) Namespace() string {
	if i := strings.LastIndexByte(string(id), '.'); i >= 0 {
		return string(id[:i])
	}
	return ""
}

// Name returns the part after the last dot.
func (id ModuleID) Name() string {
	if i := strings.LastIndexByte(string(id), '.'); i >= 0 {
		return string(id[i+1:])
	}
	return string(id)
}
