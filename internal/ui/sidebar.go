// Package ui holds per-session interface state that outlives a single
// request, so the shell's chrome stays consistent across navigations.
package ui

import "sync"

// Sidebar tracks whether the session's navigation drawer is open. The
// state is explicit rather than inferred from the last rendered page, so
// opening it on one view and navigating does not snap it shut.
type Sidebar struct {
	mu        sync.Mutex
	open      bool
	listeners []func(bool)
}

func NewSidebar() *Sidebar {
	return &Sidebar{}
}

func (s *Sidebar) Open() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open
}

// Set records the drawer state and tells listeners only on change.
func (s *Sidebar) Set(open bool) {
	s.mu.Lock()
	if s.open == open {
		s.mu.Unlock()
		return
	}
	s.open = open
	listeners := append([]func(bool){}, s.listeners...)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(open)
	}
}

// Toggle flips the drawer and returns the new state.
func (s *Sidebar) Toggle() bool {
	s.mu.Lock()
	s.open = !s.open
	open := s.open
	listeners := append([]func(bool){}, s.listeners...)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(open)
	}
	return open
}

// OnChange registers a listener invoked on every state change.
func (s *Sidebar) OnChange(fn func(open bool)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}
