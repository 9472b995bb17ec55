// Package symbols resolves inline {TOKEN} references (mana, tap, ...) in card
// text into icon references.
package symbols

import (
	"sort"
	"strconv"
	"strings"
	"sync"
)

// Symbol is a resolvable token.
type Symbol struct {
	Key string `json:"key"`
	// Icon is an opaque reference the paint surface loads: a relative
	// "symbols/<name>.svg" path, or a file path once icons are loaded from
	// disk.
	Icon string `json:"icon"`
	// Offset re-aligns the icon to the text baseline, in px at scale 1.
	Offset float64 `json:"offset,omitempty"`
}

// baselineOffsets nudges a few icons that sit visibly high or low.
var baselineOffsets = map[string]float64{
	"T":  -1,
	"Q":  -1,
	"UT": -1,
}

// Registry maps token keys to symbols. The zero value is empty; use
// NewRegistry for the built-in set.
type Registry struct {
	// OnReload, when set, receives every icon reference bound before or
	// after a Watch reload, so decoded copies can be dropped.
	OnReload func(icons []string)

	mu      sync.RWMutex
	symbols map[string]Symbol
}

// NewRegistry returns a registry holding the built-in symbol set.
func NewRegistry() *Registry {
	r := &Registry{symbols: map[string]Symbol{}}
	for _, k := range builtinKeys() {
		r.symbols[k] = Symbol{Key: k, Icon: defaultIcon(k), Offset: baselineOffsets[k]}
	}
	return r
}

func defaultIcon(key string) string {
	return "symbols/" + IconName(key) + ".svg"
}

// iconNames overrides names that would collide once slashes are dropped.
var iconNames = map[string]string{
	"1/2": "HALF",
}

// IconName is the file base name used for a key: "W/U" -> "WU",
// "1/2" -> "HALF".
func IconName(key string) string {
	if name, ok := iconNames[key]; ok {
		return name
	}
	return strings.ReplaceAll(key, "/", "")
}

func builtinKeys() []string {
	colors := []string{"W", "U", "B", "R", "G"}
	keys := []string{"W", "U", "B", "R", "G", "C", "S", "X", "Y", "Z", "T", "Q", "UT", "E", "1/2", "C/P"}
	for i := 0; i <= 20; i++ {
		keys = append(keys, strconv.Itoa(i))
	}
	// allied and enemy hybrid pairs in the conventional order
	pairs := [][2]string{
		{"W", "U"}, {"U", "B"}, {"B", "R"}, {"R", "G"}, {"G", "W"},
		{"W", "B"}, {"U", "R"}, {"B", "G"}, {"R", "W"}, {"G", "U"},
	}
	for _, p := range pairs {
		keys = append(keys, p[0]+"/"+p[1], p[0]+"/"+p[1]+"/P")
	}
	for _, c := range colors {
		keys = append(keys, c+"/P", "2/"+c, "C/"+c)
	}
	return keys
}

// Lookup resolves a token key.
func (r *Registry) Lookup(key string) (Symbol, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.symbols[key]
	return s, ok
}

// Keys returns every registered key, sorted.
func (r *Registry) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.symbols))
	for k := range r.symbols {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// setIcons binds every key to its file in icons, or back to its default
// reference when it has none. It returns how many keys are file-backed and
// every reference bound before or after the swap.
func (r *Registry) setIcons(icons map[string]string) (int, []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	touched := map[string]struct{}{}
	for k, s := range r.symbols {
		touched[s.Icon] = struct{}{}
		if icon, ok := icons[IconName(k)]; ok {
			s.Icon = icon
			n++
		} else {
			s.Icon = defaultIcon(k)
		}
		touched[s.Icon] = struct{}{}
		r.symbols[k] = s
	}
	refs := make([]string, 0, len(touched))
	for ref := range touched {
		refs = append(refs, ref)
	}
	sort.Strings(refs)
	return n, refs
}

var builtin = NewRegistry()

// Builtin returns the shared built-in registry used when no registry is
// given. Never load icons into it; build one with NewRegistry instead.
func Builtin() *Registry { return builtin }
