// Package prefs stores editor preferences that outlive a session, such as
// window size and recently opened files.
package prefs

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
)

const (
	prefsFile  = "preferences.json"
	maxRecent  = 8
	recentKey  = "recent_sessions"
	AppDirName = "warpcal"
)

// Well-known keys.
const (
	KeyWindowWidth  = "window_width"
	KeyWindowHeight = "window_height"
	KeyLastDir      = "last_dir"
	KeyWireframe    = "wireframe"
)

// Prefs stores preferences as a JSON object.
type Prefs struct {
	mu     sync.RWMutex
	values map[string]interface{}
	path   string
}

// Load reads preferences from the user config directory. Missing or broken
// files yield empty preferences.
func Load() *Prefs {
	configDir, err := os.UserConfigDir()
	if err != nil {
		configDir = filepath.Join(os.Getenv("HOME"), ".config")
	}
	return LoadFrom(filepath.Join(configDir, AppDirName, prefsFile))
}

// LoadFrom reads preferences from path.
func LoadFrom(path string) *Prefs {
	p := &Prefs{values: make(map[string]interface{}), path: path}
	if data, err := os.ReadFile(path); err == nil {
		_ = json.Unmarshal(data, &p.values)
	}
	return p
}

// Path returns the preferences file.
func (p *Prefs) Path() string { return p.path }

// Save writes preferences to disk.
func (p *Prefs) Save() error {
	p.mu.RLock()
	data, err := json.MarshalIndent(p.values, "", "  ")
	p.mu.RUnlock()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p.path), 0o755); err != nil {
		return errors.Wrap(err, "creating preferences directory")
	}
	return os.WriteFile(p.path, data, 0o644)
}

// Float returns a number preference, or fallback if not set.
func (p *Prefs) Float(key string, fallback float64) float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if n, ok := p.values[key].(float64); ok {
		return n
	}
	return fallback
}

// SetFloat stores a number preference.
func (p *Prefs) SetFloat(key string, val float64) { p.set(key, val) }

// String returns a string preference, or "" if not set.
func (p *Prefs) String(key string) string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	s, _ := p.values[key].(string)
	return s
}

// SetString stores a string preference.
func (p *Prefs) SetString(key, val string) { p.set(key, val) }

// Bool returns a bool preference, or fallback if not set.
func (p *Prefs) Bool(key string, fallback bool) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if b, ok := p.values[key].(bool); ok {
		return b
	}
	return fallback
}

// SetBool stores a bool preference.
func (p *Prefs) SetBool(key string, val bool) { p.set(key, val) }

// Recent returns recently opened sessions, newest first.
func (p *Prefs) Recent() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	list, _ := p.values[recentKey].([]interface{})
	out := make([]string, 0, len(list))
	for _, v := range list {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// AddRecent moves path to the front of the recent list.
func (p *Prefs) AddRecent(path string) {
	list := []interface{}{path}
	for _, s := range p.Recent() {
		if s != path && len(list) < maxRecent {
			list = append(list, s)
		}
	}
	p.set(recentKey, list)
}

func (p *Prefs) set(key string, val interface{}) {
	p.mu.Lock()
	p.values[key] = val
	p.mu.Unlock()
}
