// Command rendermap renders the trigger or mortality map of Spain to a
// self-contained HTML file.
//
// Usage:
//
//	rendermap triggers -o gatillos.html
//	rendermap mortality --year 2022 --month 7 -o mortalidad.html
//	rendermap periods
//
// Input paths default to the same environment variables as the map server
// and can be overridden with flags.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
