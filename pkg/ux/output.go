// Copyright (C) 2025 Lakestack Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See <https://www.gnu.org/licenses/agpl-3.0.html> for the full license text.

// Package ux provides rich terminal output styling for the lakestack CLI.
package ux

import (
	"fmt"
	"os"
	"sync/atomic"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

// Lakestack color palette - lake blues and shoreline greens
var (
	// Primary palette (brightest to darkest)
	ColorLakeBright  = lipgloss.Color("#38BDF8") // Bright sky blue - highlights
	ColorLakePrimary = lipgloss.Color("#0EA5E9") // Primary blue - main brand color
	ColorLakeDeep    = lipgloss.Color("#0369A1") // Deep water - borders, accents
	ColorShoreGreen  = lipgloss.Color("#34D399") // Shoreline green - success

	// Semantic colors
	ColorSuccess = lipgloss.Color("#34D399")
	ColorWarning = lipgloss.Color("#F4D03F")
	ColorError   = lipgloss.Color("#E74C3C")
	ColorMuted   = lipgloss.Color("#64748B")
)

// Styles provides pre-configured lipgloss styles.
var Styles = struct {
	Title     lipgloss.Style
	Subtitle  lipgloss.Style
	Bold      lipgloss.Style
	Muted     lipgloss.Style
	Success   lipgloss.Style
	Warning   lipgloss.Style
	Error     lipgloss.Style
	Highlight lipgloss.Style

	Box        lipgloss.Style
	WarningBox lipgloss.Style
	ErrorBox   lipgloss.Style
}{
	Title:     lipgloss.NewStyle().Bold(true).Foreground(ColorLakeBright),
	Subtitle:  lipgloss.NewStyle().Foreground(ColorLakePrimary),
	Bold:      lipgloss.NewStyle().Bold(true),
	Muted:     lipgloss.NewStyle().Foreground(ColorMuted),
	Success:   lipgloss.NewStyle().Foreground(ColorSuccess),
	Warning:   lipgloss.NewStyle().Foreground(ColorWarning),
	Error:     lipgloss.NewStyle().Foreground(ColorError),
	Highlight: lipgloss.NewStyle().Foreground(ColorLakeBright).Bold(true),

	Box: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorLakeDeep).
		Padding(0, 1),
	WarningBox: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorWarning).
		Padding(0, 1),
	ErrorBox: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorError).
		Padding(0, 1),
}

// Icon provides themed status icons.
type Icon string

const (
	IconSuccess Icon = "✓"
	IconWarning Icon = "⚠"
	IconError   Icon = "✗"
	IconPending Icon = "○"
	IconArrow   Icon = "→"
	IconBullet  Icon = "•"
)

// Render returns the icon with appropriate styling.
func (i Icon) Render() string {
	switch i {
	case IconSuccess:
		return Styles.Success.Render(string(i))
	case IconWarning:
		return Styles.Warning.Render(string(i))
	case IconError:
		return Styles.Error.Render(string(i))
	case IconPending:
		return Styles.Muted.Render(string(i))
	default:
		return string(i)
	}
}

// plainMode suppresses styling when stdout is not a terminal or the
// caller asked for machine-readable output. 0 = auto, 1 = forced plain,
// 2 = forced styled.
var plainMode atomic.Int32

// SetPlain forces plain (unstyled) output regardless of terminal state.
func SetPlain(plain bool) {
	if plain {
		plainMode.Store(1)
	} else {
		plainMode.Store(2)
	}
}

// IsPlain reports whether output should skip styling.
func IsPlain() bool {
	switch plainMode.Load() {
	case 1:
		return true
	case 2:
		return false
	default:
		return !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd())
	}
}

// Print helpers. Each falls back to unstyled text in plain mode so
// piped output stays grep-friendly.

// Title prints a styled title line.
func Title(text string) {
	if IsPlain() {
		fmt.Println(text)
		return
	}
	fmt.Println(Styles.Title.Render(text))
}

// Success prints a success line with a check mark.
func Success(text string) {
	if IsPlain() {
		fmt.Println("ok: " + text)
		return
	}
	fmt.Println(IconSuccess.Render() + " " + Styles.Success.Render(text))
}

// Warning prints a warning line.
func Warning(text string) {
	if IsPlain() {
		fmt.Println("warning: " + text)
		return
	}
	fmt.Println(IconWarning.Render() + " " + Styles.Warning.Render(text))
}

// Error prints an error line to stderr.
func Error(text string) {
	if IsPlain() {
		fmt.Fprintln(os.Stderr, "error: "+text)
		return
	}
	fmt.Fprintln(os.Stderr, IconError.Render()+" "+Styles.Error.Render(text))
}

// Info prints a neutral informational line.
func Info(text string) {
	if IsPlain() {
		fmt.Println(text)
		return
	}
	fmt.Println(IconArrow.Render() + " " + text)
}

// Muted prints a de-emphasized line.
func Muted(text string) {
	if IsPlain() {
		fmt.Println(text)
		return
	}
	fmt.Println(Styles.Muted.Render(text))
}

// Box prints content inside a rounded border with an optional title.
func Box(title, content string) {
	if IsPlain() {
		if title != "" {
			fmt.Println("== " + title + " ==")
		}
		fmt.Println(content)
		return
	}
	body := content
	if title != "" {
		body = Styles.Bold.Render(title) + "\n" + content
	}
	fmt.Println(Styles.Box.Render(body))
}

// ServiceStatus prints one service health line in a fixed-width layout.
func ServiceStatus(name string, healthy bool, detail string) {
	icon := IconSuccess
	if !healthy {
		icon = IconError
	}
	if IsPlain() {
		state := "healthy"
		if !healthy {
			state = "unhealthy"
		}
		fmt.Printf("%-8s %-10s %s\n", name, state, detail)
		return
	}
	fmt.Printf("%s %-8s %s\n", icon.Render(), name, Styles.Muted.Render(detail))
}
