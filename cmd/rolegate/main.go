// cmd/rolegate/main.go
//
// Entry point for the rolegate CLI. Bare `rolegate` opens the dashboard;
// subcommands run individual workflow targets headlessly.

package main

import "os"

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
