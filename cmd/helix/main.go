// cmd/helix/main.go
package main

import (
	"github.com/ChenJellay/helix/internal/commands"
)

// Build-time variables injected via -ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// main starts the helix CLI by delegating to the cobra root command.
func main() {
	commands.SetVersionInfo(version, commit, date)
	commands.Execute()
}
