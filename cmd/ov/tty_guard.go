package main

import (
	"os"
	"strings"
)

// init runs before Bubble Tea acquires the terminal.
//
// Lipgloss background detection can emit OSC/DSR control sequences to stdout.
// They are harmless in a real terminal but corrupt -json and -metrics output,
// so one-shot invocations set CI=1, which turns the probing off.
func init() {
	if os.Getenv("CI") != "" {
		return
	}

	if !shouldSuppressTTYQueries(os.Args[1:], os.Getenv("OV_ROBOT") == "1") {
		return
	}

	_ = os.Setenv("CI", "1")
}

func shouldSuppressTTYQueries(args []string, envRobot bool) bool {
	if envRobot {
		return true
	}

	for _, arg := range args {
		name := strings.TrimLeft(arg, "-")
		if name == arg {
			continue
		}
		if i := strings.IndexByte(name, '='); i >= 0 {
			name = name[:i]
		}
		switch name {
		case "json", "metrics", "snapshot", "export", "version", "help":
			return true
		}
	}

	return false
}
