package observability

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"golang.org/x/term"
)

var startTime = time.Now()

const (
	colorReset    = "\033[0m"
	colorNeonCyan = "\033[96m"
)

func termWidth() int {
	w, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		return 80
	}
	return w
}

// PrintBanner writes the centered start-up banner for app to stdout.
func PrintBanner(app string) {
	writeBanner(os.Stdout, termWidth(), term.IsTerminal(int(os.Stdout.Fd())), app)
}

func writeBanner(w io.Writer, width int, color bool, app string) {
	banner := `
 _____ _   ___ _  _____ __  __ ___ _____ _  _
|_   _/_\ / __| |/ / __|  \/  |_ _|_   _| || |
  | |/ _ \\__ \ ' <\__ \ |\/| || |  | | | __ |
  |_/_/ \_\___/_|\_\___/_|  |_|___| |_| |_||_|
`
	banner += fmt.Sprintf("\n        >> %s: TASK DECOMPOSITION ENGINE <<\n", strings.ToUpper(app))
	for _, l := range strings.Split(banner, "\n") {
		padding := (width - len(l)) / 2
		if padding < 0 {
			padding = 0
		}
		if color {
			fmt.Fprintf(w, "%s%s%s\n", strings.Repeat(" ", padding), colorNeonCyan+l, colorReset)
		} else {
			fmt.Fprintf(w, "%s%s\n", strings.Repeat(" ", padding), l)
		}
	}
}

// FormatStatus renders a status snapshot as a short multi-line report.
func FormatStatus(s Snapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Status: %s\n", s.Activity)
	if len(s.ActiveTasks) > 0 {
		active := append([]string(nil), s.ActiveTasks...)
		sort.Strings(active)
		for _, t := range active {
			display := t
			if r := []rune(display); len(r) > 40 {
				display = string(r[:37]) + "..."
			}
			fmt.Fprintf(&b, "  working on: %s\n", display)
		}
	}
	fmt.Fprintf(&b, "Decompositions: %d (fallback %d)\n", s.Completed, s.FallbackHit)
	fmt.Fprintf(&b, "Uptime: %v", s.Uptime)
	return b.String()
}
