// Package catalog lists the attributes and methods offered as a trailing
// api for each pandas return type.
package catalog

import (
	"slices"
	"strings"
	"sync"

	"github.com/rlch/pdchain"
)

// Entry is one attribute or method.
type Entry struct {
	// Name is the fully qualified pandas name, e.g. "pandas.DataFrame.head".
	Name string `json:"name"`
	// Code is what gets appended after the dot, e.g. "head()".
	Code string `json:"code"`
}

// IsMethod reports whether the entry is called rather than read.
func (e Entry) IsMethod() bool { return strings.HasSuffix(e.Code, ")") }

// Ident returns the attribute or method name without call or index syntax.
func (e Entry) Ident() string {
	if i := strings.IndexAny(e.Code, "(["); i >= 0 {
		return e.Code[:i]
	}

	return e.Code
}

var (
	mu      sync.RWMutex
	entries = make(map[pdchain.ReturnType][]Entry)
)

// Register adds entries for a return type, replacing any with the same code.
func Register(rt pdchain.ReturnType, es ...Entry) {
	mu.Lock()
	defer mu.Unlock()

	list := entries[rt]
	for _, e := range es {
		if i := slices.IndexFunc(list, func(x Entry) bool { return x.Code == e.Code }); i >= 0 {
			list[i] = e
			continue
		}

		list = append(list, e)
	}

	entries[rt] = list
}

// For returns the entries for a return type in registration order.
func For(rt pdchain.ReturnType) []Entry {
	mu.RLock()
	defer mu.RUnlock()

	return slices.Clone(entries[rt])
}

// Types returns the return types that have entries, sorted.
func Types() []pdchain.ReturnType {
	mu.RLock()
	defer mu.RUnlock()

	types := make([]pdchain.ReturnType, 0, len(entries))
	for rt := range entries {
		types = append(types, rt)
	}

	slices.Sort(types)

	return types
}

// Lookup finds the entry whose identifier matches api, ignoring a leading
// dot and any arguments, so "head(10)" matches "head()".
func Lookup(rt pdchain.ReturnType, api string) (Entry, bool) {
	want := Entry{Code: strings.TrimPrefix(api, ".")}.Ident()

	mu.RLock()
	defer mu.RUnlock()

	for _, e := range entries[rt] {
		if e.Ident() == want {
			return e, true
		}
	}

	return Entry{}, false
}

// Search returns entries whose identifier starts with prefix.
func Search(rt pdchain.ReturnType, prefix string) []Entry {
	prefix = strings.TrimPrefix(prefix, ".")

	var out []Entry

	for _, e := range For(rt) {
		if strings.HasPrefix(e.Ident(), prefix) {
			out = append(out, e)
		}
	}

	return out
}
