package theme

import (
	"fmt"
	"sort"
	"sync"
)

// Color is the int value used by discordgo.MessageEmbed.Color
type Color = int

// Theme holds the color roles used by command replies and prompts.
// Feature-specific roles fall back to a core role when left at zero.
type Theme struct {
	// Human-friendly name for the theme (unique within the registry).
	Name string

	// Core roles
	Primary Color
	Info    Color
	Success Color
	Warning Color
	Loading Color
	Error   Color
	Muted   Color

	// Prompt roles
	Prompt    Color // paged lists and pickers
	Filter    Color // webhook filter editor
	Expired   Color // stale prompt notice
	Dismissed Color // terminal view after stop

	// Board roles
	Board   Color
	Webhook Color
}

// Clone returns a copy of the Theme.
func (t *Theme) Clone() *Theme {
	cp := *t
	return &cp
}

// ensureDefaults fills zero-valued fields so themes can override a subset of roles.
func (t *Theme) ensureDefaults() {
	if t.Primary == 0 {
		t.Primary = 0x0079BF
	}
	if t.Info == 0 {
		t.Info = 0x3B82F6
	}
	if t.Success == 0 {
		t.Success = 0x57F287
	}
	if t.Warning == 0 {
		t.Warning = 0xF59E0B
	}
	if t.Loading == 0 {
		t.Loading = 0xFEE75C
	}
	if t.Error == 0 {
		t.Error = 0xED4245
	}
	if t.Muted == 0 {
		t.Muted = 0x99AAB5
	}

	if t.Prompt == 0 {
		t.Prompt = t.Primary
	}
	if t.Filter == 0 {
		t.Filter = t.Primary
	}
	if t.Expired == 0 {
		t.Expired = t.Warning
	}
	if t.Dismissed == 0 {
		t.Dismissed = t.Muted
	}
	if t.Board == 0 {
		t.Board = t.Primary
	}
	if t.Webhook == 0 {
		t.Webhook = t.Info
	}
}

// defaultTheme returns the built-in theme.
func defaultTheme() *Theme {
	th := &Theme{
		Name:    "default",
		Primary: 0x0079BF, // board blue

		Info:    0x3B82F6,
		Success: 0x57F287,
		Warning: 0xF59E0B,
		Loading: 0xFEE75C,
		Error:   0xED4245,
		Muted:   0x99AAB5,
	}
	th.ensureDefaults()
	return th
}

var (
	mu        sync.RWMutex
	registry  = map[string]*Theme{}
	currentTh = defaultTheme()
)

func init() {
	MustRegister(&Theme{
		Name:    "midnight",
		Primary: 0x1D2125,
		Prompt:  0x579DFF,
		Filter:  0x9F8FEF,
		Board:   0x579DFF,
		Webhook: 0x4BCE97,
	})
}

// Register adds a theme to the registry. It returns an error if the name is empty or already registered.
func Register(t *Theme) error {
	if t == nil {
		return fmt.Errorf("theme: cannot register nil theme")
	}
	if t.Name == "" {
		return fmt.Errorf("theme: name is required")
	}
	cp := t.Clone()
	cp.ensureDefaults()

	mu.Lock()
	defer mu.Unlock()
	if _, exists := registry[cp.Name]; exists {
		return fmt.Errorf("theme: theme %q already registered", cp.Name)
	}
	registry[cp.Name] = cp
	return nil
}

// MustRegister is like Register but panics on error.
func MustRegister(t *Theme) {
	if err := Register(t); err != nil {
		panic(err)
	}
}

// SetCurrent switches the active theme by name. An empty name restores the default.
func SetCurrent(name string) error {
	mu.Lock()
	defer mu.Unlock()
	if name == "" || name == "default" {
		currentTh = defaultTheme()
		return nil
	}
	th, ok := registry[name]
	if !ok {
		return fmt.Errorf("theme: theme %q not found", name)
	}
	currentTh = th.Clone()
	return nil
}

// Names lists the registered themes, sorted.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(registry)+1)
	out = append(out, "default")
	for name := range registry {
		out = append(out, name)
	}
	sort.Strings(out[1:])
	return out
}

// Current returns a copy of the current theme.
func Current() *Theme {
	mu.RLock()
	defer mu.RUnlock()
	return currentTh.Clone()
}

// Default returns a copy of the built-in default theme.
func Default() *Theme {
	return defaultTheme()
}

func Primary() Color   { return Current().Primary }
func Info() Color      { return Current().Info }
func Success() Color   { return Current().Success }
func Warning() Color   { return Current().Warning }
func Loading() Color   { return Current().Loading }
func Error() Color     { return Current().Error }
func Muted() Color     { return Current().Muted }
func Prompt() Color    { return Current().Prompt }
func Filter() Color    { return Current().Filter }
func Expired() Color   { return Current().Expired }
func Dismissed() Color { return Current().Dismissed }
func Board() Color     { return Current().Board }
func Webhook() Color   { return Current().Webhook }
