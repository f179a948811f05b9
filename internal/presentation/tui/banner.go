package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the actscript banner to w.
func PrintBanner(w io.Writer) {
	p := termenv.ColorProfile()
	lines := []struct {
		text  string
		color string
	}{
		{"             _                 _       _   ", "#818cf8"},
		{"   __ _  ___| |_ ___  ___ _ __(_)_ __ | |_ ", "#a78bfa"},
		{"  / _` |/ __| __/ __|/ __| '__| | '_ \\| __|", "#c084fc"},
		{" | (_| | (__| |_\\__ \\ (__| |  | | |_) | |_ ", "#e879f9"},
		{"  \\__,_|\\___|\\__|___/\\___|_|  |_| .__/ \\__|", "#f472b6"},
		{"                                |_|        ", "#fb7185"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w)
}

// Role styles a message role for terminal output.
func Role(role string) string {
	p := termenv.ColorProfile()
	color := "#a78bfa"
	switch role {
	case "system":
		color = "#818cf8"
	case "user":
		color = "#34d399"
	case "assistant":
		color = "#f472b6"
	}
	return termenv.String(role).Bold().Foreground(p.Color(color)).String()
}
