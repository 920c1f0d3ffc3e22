// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package ux provides styled terminal output for the spikecurator CLI.
//
// A Printer writes to one destination in one Mode. Rich mode uses the
// lipgloss palette below; machine mode writes plain, prefix-tagged lines
// suitable for scripts and logs.
package ux

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

// Mode controls how rich the output is.
type Mode string

const (
	// ModeRich enables colors and icons.
	ModeRich Mode = "rich"

	// ModeMinimal uses icons without colors.
	ModeMinimal Mode = "minimal"

	// ModeMachine writes plain text for scripting.
	ModeMachine Mode = "machine"
)

// ParseMode converts a mode name. "auto" and "" return ok=false so the
// caller can fall back to DetectMode.
func ParseMode(s string) (Mode, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "rich", "full":
		return ModeRich, true
	case "minimal", "min":
		return ModeMinimal, true
	case "machine", "plain", "quiet":
		return ModeMachine, true
	}
	return ModeMachine, false
}

// DetectMode returns ModeRich when w is a terminal and ModeMachine
// otherwise.
func DetectMode(w io.Writer) Mode {
	f, ok := w.(*os.File)
	if !ok {
		return ModeMachine
	}
	if isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()) {
		return ModeRich
	}
	return ModeMachine
}

// Palette.
var (
	ColorTeal    = lipgloss.Color("#20B9B4")
	ColorSuccess = lipgloss.Color("#2CD7C7")
	ColorWarning = lipgloss.Color("#F4D03F")
	ColorError   = lipgloss.Color("#E74C3C")
	ColorMuted   = lipgloss.Color("#2C4A54")
)

// Styles provides pre-configured lipgloss styles.
var Styles = struct {
	Title   lipgloss.Style
	Key     lipgloss.Style
	Muted   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
}{
	Title:   lipgloss.NewStyle().Bold(true).Foreground(ColorTeal),
	Key:     lipgloss.NewStyle().Foreground(ColorTeal),
	Muted:   lipgloss.NewStyle().Foreground(ColorMuted),
	Success: lipgloss.NewStyle().Foreground(ColorSuccess),
	Warning: lipgloss.NewStyle().Foreground(ColorWarning),
	Error:   lipgloss.NewStyle().Foreground(ColorError),
}

// Icon is a status marker.
type Icon string

const (
	IconSuccess Icon = "✓"
	IconWarning Icon = "⚠"
	IconError   Icon = "✗"
	IconBullet  Icon = "•"
)

// Printer writes styled lines to one destination.
type Printer struct {
	w    io.Writer
	mode Mode
}

// NewPrinter creates a printer.
func NewPrinter(w io.Writer, mode Mode) *Printer {
	return &Printer{w: w, mode: mode}
}

// Mode returns the printer's mode.
func (p *Printer) Mode() Mode { return p.mode }

func (p *Printer) icon(i Icon, style lipgloss.Style) string {
	if p.mode == ModeRich {
		return style.Render(string(i))
	}
	return string(i)
}

// Title prints a heading. Machine mode omits it.
func (p *Printer) Title(text string) {
	switch p.mode {
	case ModeMachine:
		return
	case ModeRich:
		fmt.Fprintln(p.w, Styles.Title.Render(text))
	default:
		fmt.Fprintln(p.w, text)
	}
}

// Info prints an informational line.
func (p *Printer) Info(text string) {
	if p.mode == ModeMachine {
		fmt.Fprintln(p.w, text)
		return
	}
	fmt.Fprintf(p.w, "%s %s\n", p.icon(IconBullet, Styles.Muted), text)
}

// KeyValue prints one labelled value.
func (p *Printer) KeyValue(key string, value any) {
	if p.mode == ModeMachine {
		fmt.Fprintf(p.w, "%s=%v\n", key, value)
		return
	}
	label := fmt.Sprintf("%-10s", key)
	if p.mode == ModeRich {
		label = Styles.Key.Render(label)
	}
	fmt.Fprintf(p.w, "  %s %v\n", label, value)
}

// Success prints a success line.
func (p *Printer) Success(text string) {
	switch p.mode {
	case ModeMachine:
		fmt.Fprintf(p.w, "OK: %s\n", text)
	case ModeRich:
		fmt.Fprintf(p.w, "%s %s\n", p.icon(IconSuccess, Styles.Success), Styles.Success.Render(text))
	default:
		fmt.Fprintf(p.w, "%s %s\n", IconSuccess, text)
	}
}

// Warning prints a warning line.
func (p *Printer) Warning(text string) {
	switch p.mode {
	case ModeMachine:
		fmt.Fprintf(p.w, "WARN: %s\n", text)
	case ModeRich:
		fmt.Fprintf(p.w, "%s %s\n", p.icon(IconWarning, Styles.Warning), Styles.Warning.Render(text))
	default:
		fmt.Fprintf(p.w, "%s %s\n", IconWarning, text)
	}
}

// Error prints an error line.
func (p *Printer) Error(text string) {
	switch p.mode {
	case ModeMachine:
		fmt.Fprintf(p.w, "ERROR: %s\n", text)
	case ModeRich:
		fmt.Fprintf(p.w, "%s %s\n", p.icon(IconError, Styles.Error), Styles.Error.Render(text))
	default:
		fmt.Fprintf(p.w, "%s %s\n", IconError, text)
	}
}
