package dictionary

import (
	"sync"

	"github.com/charmbracelet/log"
)

// Reloader owns the current store and rebuilds it from disk on demand,
// e.g. when the files or the configuration change.
type Reloader struct {
	aliasPath  string
	entityPath string
	current    *Store
	onReload   []func(*Store)
	mu         sync.RWMutex
}

// NewReloader loads the files once. Problems other than a missing alias
// file are logged and the partial store is kept.
func NewReloader(aliasPath, entityPath string) (*Reloader, error) {
	rl := &Reloader{aliasPath: aliasPath, entityPath: entityPath}
	if err := rl.Reload(); err != nil {
		return nil, err
	}
	return rl, nil
}

// Store returns the current store.
func (rl *Reloader) Store() *Store {
	rl.mu.RLock()
	defer rl.mu.RUnlock()
	return rl.current
}

// OnReload registers fn to receive every new store.
func (rl *Reloader) OnReload(fn func(*Store)) {
	rl.mu.Lock()
	rl.onReload = append(rl.onReload, fn)
	rl.mu.Unlock()
}

// SetPaths changes the files used by the next Reload.
func (rl *Reloader) SetPaths(aliasPath, entityPath string) {
	rl.mu.Lock()
	rl.aliasPath, rl.entityPath = aliasPath, entityPath
	rl.mu.Unlock()
}

// Paths returns the files the store is built from.
func (rl *Reloader) Paths() (aliasPath, entityPath string) {
	rl.mu.RLock()
	defer rl.mu.RUnlock()
	return rl.aliasPath, rl.entityPath
}

// Reload rebuilds the store. The previous store stays in place when the
// alias file cannot be read.
func (rl *Reloader) Reload() error {
	aliasPath, entityPath := rl.Paths()
	s, err := LoadFiles(aliasPath, entityPath)
	if s == nil {
		return err
	}
	if err != nil {
		log.Warnf("Dictionary loaded with problems: %v", err)
	}

	rl.mu.Lock()
	rl.current = s
	hooks := append([]func(*Store){}, rl.onReload...)
	rl.mu.Unlock()

	for _, fn := range hooks {
		fn(s)
	}
	return nil
}
