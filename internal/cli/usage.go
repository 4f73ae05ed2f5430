// ABOUTME: Usage text for sd commands
// ABOUTME: Usage lines are derived from each command's positional argument names

package cli

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/fatih/color"
)

// dashHint explains how to pass a label that begins with "-".
const dashHint = "Put -- before arguments that begin with -, e.g. sd api_create -- -v1"

var helpEntry = command{
	name:    "help",
	args:    []string{"commands..."},
	summary: "Display usage of all following <commands>, or of all commands if none are given",
}

// usage renders e.g. "service_create <service> <service_type> <api> <endpoint>".
func (c command) usage() string {
	parts := make([]string, 0, len(c.args)+1)
	parts = append(parts, c.name)
	for _, arg := range c.args {
		parts = append(parts, "<"+arg+">")
	}
	return strings.Join(parts, " ")
}

// printHelp writes usage for the named commands, or for all of them when names is empty.
// Unknown names are reported and yield ErrUsage after the rest are printed.
func printHelp(w io.Writer, table []command, names []string) error {
	entries := append(slices.Clone(table), helpEntry)
	slices.SortFunc(entries, func(a, b command) int { return strings.Compare(a.name, b.name) })

	if len(names) == 0 {
		fmt.Fprintf(w, "Usage: sd [--config <file>] <command> [--] <arguments...>\n")
		fmt.Fprintf(w, "%s\n", dashHint)
		color.New(color.FgYellow).Fprintf(w, "Where <command> is one of:\n")
		for _, e := range entries {
			names = append(names, e.name)
		}
	}

	cyan := color.New(color.FgCyan)
	var unknown bool
	for _, name := range names {
		i := slices.IndexFunc(entries, func(e command) bool { return e.name == name })
		if i < 0 {
			fmt.Fprintf(w, "Unknown command: %s\n", name)
			unknown = true
			continue
		}
		cyan.Fprintf(w, "  %s\n", entries[i].usage())
		fmt.Fprintf(w, "      %s\n", entries[i].summary)
	}

	if unknown {
		return ErrUsage
	}
	return nil
}
