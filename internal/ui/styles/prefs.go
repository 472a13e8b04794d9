// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"fmt"
	"sync"
)

// ThemeStore persists the palette and mode choice.
type ThemeStore interface {
	SetTheme(palette, mode string) error
}

// Prefs tracks the chosen palette and mode and writes every change through
// to a ThemeStore. Safe for concurrent use.
type Prefs struct {
	mu      sync.Mutex
	store   ThemeStore
	palette string
	mode    Mode
}

// NewPrefs starts from stored values, falling back to the given defaults and
// then to Red / light. store may be nil.
func NewPrefs(store ThemeStore, palette, mode string, defaultPalette, defaultMode string) *Prefs {
	p := &Prefs{store: store, palette: DefaultPalette, mode: DefaultMode}

	for _, name := range []string{palette, defaultPalette} {
		if pal, ok := LookupPalette(name); ok {
			p.palette = pal.Name
			break
		}
	}
	for _, name := range []string{mode, defaultMode} {
		if m, err := ParseMode(name); err == nil {
			p.mode = m
			break
		}
	}
	return p
}

// Current returns the palette name and mode.
func (p *Prefs) Current() (string, string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.palette, string(p.mode)
}

// Theme builds a Theme for the current choice.
func (p *Prefs) Theme() *Theme {
	palette, mode := p.Current()
	return NewTheme(palette, Mode(mode))
}

// SetPalette switches to a named palette.
func (p *Prefs) SetPalette(name string) error {
	pal, ok := LookupPalette(name)
	if !ok {
		return fmt.Errorf("unknown palette %q (available: %v)", name, PaletteNames())
	}
	p.mu.Lock()
	p.palette = pal.Name
	p.mu.Unlock()
	return p.save()
}

// SetMode switches between light and dark.
func (p *Prefs) SetMode(mode string) error {
	m, err := ParseMode(mode)
	if err != nil {
		return err
	}
	p.mu.Lock()
	p.mode = m
	p.mu.Unlock()
	return p.save()
}

// CyclePalette advances to the next palette and returns its name.
func (p *Prefs) CyclePalette() (string, error) {
	p.mu.Lock()
	p.palette = NextPalette(p.palette).Name
	name := p.palette
	p.mu.Unlock()
	return name, p.save()
}

// ToggleMode flips light and dark and returns the new mode.
func (p *Prefs) ToggleMode() (string, error) {
	p.mu.Lock()
	p.mode = p.mode.Toggle()
	mode := p.mode
	p.mu.Unlock()
	return string(mode), p.save()
}

func (p *Prefs) save() error {
	if p.store == nil {
		return nil
	}
	palette, mode := p.Current()
	if err := p.store.SetTheme(palette, mode); err != nil {
		return fmt.Errorf("remember theme: %w", err)
	}
	return nil
}
