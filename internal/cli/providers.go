package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/eshaffer321/itemize/internal/adapters/providers"
)

// ParseProviders splits a comma-separated provider list, rejecting unknown
// names. Duplicates are dropped; an empty list means every enabled provider.
func ParseProviders(list string) ([]string, error) {
	var names []string
	seen := make(map[string]bool)
	for _, raw := range strings.Split(list, ",") {
		name := strings.ToLower(strings.TrimSpace(raw))
		if name == "" || seen[name] {
			continue
		}
		if !providers.IsKnown(name) {
			return nil, fmt.Errorf("unknown provider %q (known: %s)", name, strings.Join(providers.KnownProviders, ", "))
		}
		seen[name] = true
		names = append(names, name)
	}
	return names, nil
}

// PrintProviderStatus prints one line per provider with its auth check result
func PrintProviderStatus(w io.Writer, names []string, results map[string]providers.AuthResult) {
	for _, name := range names {
		res := results[name]
		line := fmt.Sprintf("  %-8s %s", name, res.Status)
		if res.StartingYear > 0 {
			line += fmt.Sprintf(" (orders since %d)", res.StartingYear)
		}
		if res.Message != "" {
			line += ": " + res.Message
		}
		fmt.Fprintln(w, line)
	}
}
