package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/nconklindev/tablegrab/internal/api"
	"github.com/nconklindev/tablegrab/internal/session"
	"github.com/nconklindev/tablegrab/internal/ui"

	tea "github.com/charmbracelet/bubbletea"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func usage() {
	fmt.Fprintf(os.Stderr, `tablegrab %s
Terminal client for image-to-table extraction

Usage:
  tablegrab [--server URL] [image...]

Images given on the command line are staged immediately; more can be added
from the built-in file browser. Default server: %s
`, version, api.DefaultBaseURL)
}

func main() {
	baseURL := api.DefaultBaseURL
	var paths []string

	args := os.Args[1:]
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--version", "-v":
			fmt.Printf("tablegrab %s\ncommit: %s\nbuilt: %s\n", version, commit, date)
			return
		case "--help", "-h", "help":
			usage()
			return
		case "--server", "-s":
			if i+1 >= len(args) {
				fmt.Fprintln(os.Stderr, "Error: --server requires a URL")
				os.Exit(1)
			}
			i++
			baseURL = args[i]
		default:
			paths = append(paths, args[i])
		}
	}

	client := api.New(baseURL, newLogger())
	sess := session.New(client)

	// Stage command-line images up front; their rejections surface as
	// toasts once the UI is running.
	var initial []session.Outcome
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading %s: %v\n", path, err)
			os.Exit(1)
		}
		initial = append(initial, sess.Add(session.Candidate{
			Name: filepath.Base(path),
			Data: data,
		})...)
	}

	p := tea.NewProgram(ui.InitialModel(sess, client, initial), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

// newLogger writes request logs to a file; the TUI owns stdout. Logging is
// best effort, a failure to open the file silently discards logs.
func newLogger() *slog.Logger {
	logPath := filepath.Join(os.TempDir(), "tablegrab.log")
	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return slog.New(slog.DiscardHandler)
	}
	return slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: slog.LevelInfo}))
}
