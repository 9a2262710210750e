// Package admin is a small model-driven admin layer: registered model admins
// describe changelist columns, search, filters, detail fieldsets and permission
// gates, and the HTTP handlers render whatever the admin describes.
package admin

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

// ErrNoReverseMatch is returned by Reverse for unknown route names.
var ErrNoReverseMatch = errors.New("no reverse match")

// Standard per-model views.
const (
	ViewChangelist = "changelist"
	ViewAdd        = "add"
	ViewHistory    = "history"
	ViewDelete     = "delete"
	ViewChange     = "change"
)

// URLPattern is a named admin route. Path may contain a single "{id}" placeholder.
type URLPattern struct {
	Name string
	Path string
}

// Registered is anything the site can route to.
type Registered interface {
	Opts() *ModelAdmin
	URLs() []URLPattern
}

// Site holds the registered model admins and reverses route names into paths.
type Site struct {
	Prefix string

	mu       sync.RWMutex
	admins   map[string]Registered
	patterns map[string]string
	verbose  map[string]map[string]string
}

func NewSite() *Site {
	return &Site{
		Prefix:   "/admin",
		admins:   make(map[string]Registered),
		patterns: make(map[string]string),
		verbose:  make(map[string]map[string]string),
	}
}

// Register adds a model admin and its routes. Registering the same model twice is an error.
func (s *Site) Register(m Registered) error {
	opts := m.Opts()
	key := opts.Label()
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.admins[key]; ok {
		return fmt.Errorf("model %s is already registered", key)
	}
	opts.site = s
	s.admins[key] = m
	for _, p := range m.URLs() {
		s.patterns[p.Name] = p.Path
	}
	if len(opts.FieldVerboseNames) > 0 {
		s.verbose[key] = opts.FieldVerboseNames
	}
	return nil
}

// MustRegister is Register for startup wiring.
func (s *Site) MustRegister(m Registered) {
	if err := s.Register(m); err != nil {
		panic(err)
	}
}

// IsRegistered reports whether app_label.model has an admin.
func (s *Site) IsRegistered(appLabel, model string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.admins[appLabel+"."+model]
	return ok
}

// ModelAdmin returns the options of the admin registered for app_label.model, or nil.
func (s *Site) ModelAdmin(appLabel, model string) *ModelAdmin {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if m, ok := s.admins[appLabel+"."+model]; ok {
		return m.Opts()
	}
	return nil
}

// Reverse turns "admin:<app>_<model>_<view>" (the "admin:" prefix is optional) into a path.
func (s *Site) Reverse(name string, args ...string) (string, error) {
	name = strings.TrimPrefix(name, "admin:")
	s.mu.RLock()
	path, ok := s.patterns[name]
	s.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNoReverseMatch, name)
	}
	if strings.Contains(path, "{id}") {
		if len(args) != 1 || args[0] == "" {
			return "", fmt.Errorf("%w: %s needs one argument", ErrNoReverseMatch, name)
		}
		path = strings.Replace(path, "{id}", args[0], 1)
	}
	return path, nil
}

// FieldVerboseName returns the display label of a model field, falling back to the field name.
func (s *Site) FieldVerboseName(appLabel, model, field string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if names, ok := s.verbose[appLabel+"."+model]; ok {
		if v, ok := names[field]; ok {
			return v
		}
	}
	return field
}
