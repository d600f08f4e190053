// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package ux provides terminal output styling for the quorum CLI.
package ux

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

// Quorum color palette - deep ocean teals and arctic waters
var (
	ColorTealBright  = lipgloss.Color("#2CD7C7") // highlights, success
	ColorTealPrimary = lipgloss.Color("#20B9B4") // main brand color
	ColorTealDeep    = lipgloss.Color("#16858E") // borders, accents
	ColorSlate       = lipgloss.Color("#2C4A54") // muted text

	ColorWarning = lipgloss.Color("#F4D03F")
	ColorError   = lipgloss.Color("#E74C3C")
)

// Styles provides pre-configured lipgloss styles.
var Styles = struct {
	Title   lipgloss.Style
	Bold    lipgloss.Style
	Muted   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Box     lipgloss.Style
}{
	Title:   lipgloss.NewStyle().Bold(true).Foreground(ColorTealBright),
	Bold:    lipgloss.NewStyle().Bold(true),
	Muted:   lipgloss.NewStyle().Foreground(ColorSlate),
	Success: lipgloss.NewStyle().Foreground(ColorTealBright),
	Warning: lipgloss.NewStyle().Foreground(ColorWarning),
	Error:   lipgloss.NewStyle().Foreground(ColorError),
	Box: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorTealDeep).
		Padding(0, 1),
}

// Icon provides themed status glyphs.
type Icon string

const (
	IconSuccess Icon = "✓"
	IconWarning Icon = "⚠"
	IconError   Icon = "✗"
	IconPending Icon = "○"
	IconArrow   Icon = "→"
)

// Render returns the icon with its semantic color.
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

var (
	plainMu    sync.RWMutex
	plainMode  bool
	plainOnce sync.Once
)

// initPlain detects non-interactive output once. NO_COLOR or a piped
// stdout switches to machine-friendly prefixes.
func initPlain() {
	plainOnce.Do(func() {
		if os.Getenv("NO_COLOR") != "" || !isatty.IsTerminal(os.Stdout.Fd()) {
			plainMode = true
		}
	})
}

// SetPlain overrides terminal detection, for --plain flags and tests.
func SetPlain(plain bool) {
	initPlain()
	plainMu.Lock()
	plainMode = plain
	plainMu.Unlock()
}

// Plain reports whether output is machine-friendly.
func Plain() bool {
	initPlain()
	plainMu.RLock()
	defer plainMu.RUnlock()
	return plainMode
}

// Title prints a styled section title. Suppressed in plain mode so
// piped output stays parseable.
func Title(text string) {
	if Plain() {
		return
	}
	fmt.Println(Styles.Title.Render(text))
}

// Success prints a success line with checkmark.
func Success(text string) {
	if Plain() {
		fmt.Printf("OK: %s\n", text)
		return
	}
	fmt.Printf("%s %s\n", IconSuccess.Render(), Styles.Success.Render(text))
}

// Warning prints a warning line.
func Warning(text string) {
	if Plain() {
		fmt.Fprintf(os.Stderr, "WARN: %s\n", text)
		return
	}
	fmt.Printf("%s %s\n", IconWarning.Render(), Styles.Warning.Render(text))
}

// Error prints an error line.
func Error(text string) {
	if Plain() {
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", text)
		return
	}
	fmt.Printf("%s %s\n", IconError.Render(), Styles.Error.Render(text))
}

// Info prints an informational line.
func Info(text string) {
	if Plain() {
		fmt.Println(text)
		return
	}
	fmt.Printf("%s %s\n", Styles.Muted.Render("│"), text)
}

// Muted prints secondary text, dropped entirely in plain mode.
func Muted(text string) {
	if Plain() {
		return
	}
	fmt.Println(Styles.Muted.Render(text))
}

// QuestionStatus prints one solved question with its confidence tier.
func QuestionStatus(id, answer, tier string) {
	icon := IconSuccess
	switch tier {
	case "arbitrated":
		icon = IconWarning
	case "low_confidence":
		icon = IconError
	}
	if Plain() {
		fmt.Printf("%s\t%s\t%s\n", id, tier, answer)
		return
	}
	fmt.Printf("%s %s %s %s\n",
		icon.Render(), Styles.Bold.Render(id), answer,
		Styles.Muted.Render("("+tier+")"))
}

// Summary prints the exam run totals.
func Summary(agreed, unresolved, total int) {
	if Plain() {
		fmt.Printf("SUMMARY: agreed=%d unresolved=%d total=%d\n", agreed, unresolved, total)
		return
	}
	fmt.Printf("\n%s %s  %s %s  %s %s\n",
		Styles.Success.Render(fmt.Sprintf("%d", agreed)), Styles.Muted.Render("agreed"),
		Styles.Warning.Render(fmt.Sprintf("%d", unresolved)), Styles.Muted.Render("unresolved"),
		Styles.Bold.Render(fmt.Sprintf("%d", total)), Styles.Muted.Render("total"),
	)
}

// Box prints titled content in a rounded box.
func Box(title, content string) {
	if Plain() {
		fmt.Printf("%s: %s\n", title, content)
		return
	}
	boxStyle := Styles.Box.Width(60)
	titleLine := Styles.Title.Render(title)
	fmt.Println(boxStyle.Render(titleLine + "\n" + content))
}

// Banner renders the CLI startup banner string.
func Banner(version string) string {
	if Plain() {
		return "quorum " + version
	}
	var b strings.Builder
	b.WriteString(Styles.Title.Render("Quorum"))
	b.WriteString(" ")
	b.WriteString(Styles.Muted.Render(version))
	return b.String()
}
