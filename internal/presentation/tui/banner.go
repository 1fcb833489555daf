package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the storyflow ASCII art banner to w.
func PrintBanner(w io.Writer) {
	out := termenv.NewOutput(w)
	lines := []struct {
		text  string
		color string
	}{
		{`     _                  __ _`, "#34d399"},
		{` ___| |_ ___  _ __ _  _/ _| |_____ __ __`, "#2dd4bf"},
		{`(_-<  _/ _ \| '_ \ || |  _| / _ \ V  V /`, "#22d3ee"},
		{`/__/\__\___/|_|  \_, |_| |_\___/\_/\_/`, "#38bdf8"},
		{`                 |__/`, "#60a5fa"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, out.String(l.text).Foreground(out.Color(l.color)))
	}
	fmt.Fprintln(w)
}
