// Package banner prints the startup banner.
package banner

import (
	"fmt"
	"io"
	"strings"
)

// Version is the release reported by the banner and the CLI.
const Version = "0.3.0"

const art = `
 _    ___       _ __
| |  / (_)___ _(_) /
| | / / / __ '/ / /
| |/ / / /_/ / / /
|___/_/\__, /_/_/
      /____/  v%s - Activity Alerts
`

// Print writes the banner and the active storage mode to w.
func Print(w io.Writer, mode string) {
	fmt.Fprintf(w, art, Version)
	fmt.Fprintf(w, "storage: %s\n", mode)
	fmt.Fprintln(w, strings.Repeat("-", 48))
}
