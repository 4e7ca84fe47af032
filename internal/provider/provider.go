// Package provider defines the pluggable backend capability sets (backup,
// LLM) as explicit interfaces, and a registry object constructed once and
// passed by reference to consumers. There is no process-global registry.
package provider

import (
	"context"
	"fmt"
	"sort"
	"time"
)

// LLMProvider generates text completions.
type LLMProvider interface {
	Name() string
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// BackupInfo describes one stored backup archive.
type BackupInfo struct {
	Name    string
	Path    string
	Size    int64
	Created time.Time
}

// BackupProvider stores, restores and lists snapshots of the knowledge-base
// root.
type BackupProvider interface {
	Name() string
	// Backup archives home and returns the archive location.
	Backup(ctx context.Context, home string) (string, error)
	// Restore unpacks the named backup over home.
	Restore(ctx context.Context, home, name string) error
	List(home string) ([]BackupInfo, error)
}

// Registry holds the configured backend implementations.
type Registry struct {
	llm    map[string]LLMProvider
	backup map[string]BackupProvider
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		llm:    make(map[string]LLMProvider),
		backup: make(map[string]BackupProvider),
	}
}

// RegisterLLM adds an LLM backend. Later registrations with the same name
// replace earlier ones.
func (r *Registry) RegisterLLM(p LLMProvider) {
	r.llm[p.Name()] = p
}

// RegisterBackup adds a backup backend.
func (r *Registry) RegisterBackup(p BackupProvider) {
	r.backup[p.Name()] = p
}

// LLM returns the named LLM backend.
func (r *Registry) LLM(name string) (LLMProvider, error) {
	p, ok := r.llm[name]
	if !ok {
		return nil, fmt.Errorf("unknown llm provider %q (registered: %v)", name, r.llmNames())
	}
	return p, nil
}

// Backup returns the named backup backend.
func (r *Registry) Backup(name string) (BackupProvider, error) {
	p, ok := r.backup[name]
	if !ok {
		return nil, fmt.Errorf("unknown backup provider %q (registered: %v)", name, r.backupNames())
	}
	return p, nil
}

func (r *Registry) llmNames() []string {
	names := make([]string, 0, len(r.llm))
	for n := range r.llm {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) backupNames() []string {
	names := make([]string, 0, len(r.backup))
	for n := range r.backup {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
