// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package ux renders CLI output with lipgloss styling on terminals and
// plain text elsewhere.
package ux

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

// Palette
var (
	ColorTealBright  = lipgloss.Color("#2CD7C7")
	ColorTealPrimary = lipgloss.Color("#20B9B4")
	ColorTealDeep    = lipgloss.Color("#16858E")
	ColorSlate       = lipgloss.Color("#2C4A54")

	ColorSuccess = lipgloss.Color("#2CD7C7")
	ColorWarning = lipgloss.Color("#F4D03F")
	ColorError   = lipgloss.Color("#E74C3C")
)

// Styles are the lipgloss styles used in ModeStyled.
var Styles = struct {
	Title   lipgloss.Style
	Muted   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Key     lipgloss.Style
	Box     lipgloss.Style

	DiffAdded   lipgloss.Style
	DiffRemoved lipgloss.Style
	DiffHunk    lipgloss.Style
	DiffHeader  lipgloss.Style
}{
	Title:   lipgloss.NewStyle().Bold(true).Foreground(ColorTealBright),
	Muted:   lipgloss.NewStyle().Foreground(ColorSlate),
	Success: lipgloss.NewStyle().Foreground(ColorSuccess),
	Warning: lipgloss.NewStyle().Foreground(ColorWarning),
	Error:   lipgloss.NewStyle().Foreground(ColorError),
	Key:     lipgloss.NewStyle().Foreground(ColorTealPrimary),
	Box: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorTealDeep).
		Padding(0, 1),

	DiffAdded:   lipgloss.NewStyle().Foreground(ColorSuccess),
	DiffRemoved: lipgloss.NewStyle().Foreground(ColorError),
	DiffHunk:    lipgloss.NewStyle().Foreground(ColorTealPrimary),
	DiffHeader:  lipgloss.NewStyle().Bold(true),
}

// Icon is a status marker.
type Icon string

const (
	IconSuccess Icon = "✓"
	IconWarning Icon = "⚠"
	IconError   Icon = "✗"
	IconBullet  Icon = "•"
)

// Mode selects how a Printer formats output.
type Mode int

const (
	// ModeStyled uses colors, icons and boxes.
	ModeStyled Mode = iota

	// ModePlain uses icons without escape sequences.
	ModePlain

	// ModeMachine writes stable "LEVEL: text" lines for scripts.
	ModeMachine
)

// ParseMode converts a flag value. "auto" and "" pick by terminal.
func ParseMode(s string, f *os.File) (Mode, error) {
	switch strings.ToLower(s) {
	case "", "auto":
		return DetectMode(f), nil
	case "styled", "color":
		return ModeStyled, nil
	case "plain":
		return ModePlain, nil
	case "machine":
		return ModeMachine, nil
	}
	return ModePlain, fmt.Errorf("unknown output mode %q", s)
}

// DetectMode returns ModeStyled for terminals and ModePlain otherwise.
// NO_COLOR disables styling.
func DetectMode(f *os.File) Mode {
	if f == nil || os.Getenv("NO_COLOR") != "" {
		return ModePlain
	}
	if isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()) {
		return ModeStyled
	}
	return ModePlain
}

// Field is one line of a key/value block.
type Field struct {
	Key   string
	Value string
}

// Printer writes formatted output.
type Printer struct {
	w    io.Writer
	mode Mode
}

// NewPrinter creates a printer writing to w.
func NewPrinter(w io.Writer, mode Mode) *Printer {
	return &Printer{w: w, mode: mode}
}

// Mode returns the output mode.
func (p *Printer) Mode() Mode { return p.mode }

// Title prints a heading. Suppressed in ModeMachine.
func (p *Printer) Title(text string) {
	switch p.mode {
	case ModeMachine:
	case ModeStyled:
		fmt.Fprintln(p.w, Styles.Title.Render(text))
	default:
		fmt.Fprintln(p.w, text)
	}
}

// Success prints a success line.
func (p *Printer) Success(text string) {
	p.status("OK", IconSuccess, Styles.Success, text)
}

// Warning prints a warning line.
func (p *Printer) Warning(text string) {
	p.status("WARN", IconWarning, Styles.Warning, text)
}

// Error prints an error line.
func (p *Printer) Error(text string) {
	p.status("ERROR", IconError, Styles.Error, text)
}

// Info prints an informational line.
func (p *Printer) Info(text string) {
	switch p.mode {
	case ModeMachine:
		fmt.Fprintln(p.w, text)
	case ModeStyled:
		fmt.Fprintf(p.w, "%s %s\n", Styles.Muted.Render("│"), text)
	default:
		fmt.Fprintf(p.w, "%s %s\n", IconBullet, text)
	}
}

func (p *Printer) status(level string, icon Icon, style lipgloss.Style, text string) {
	switch p.mode {
	case ModeMachine:
		fmt.Fprintf(p.w, "%s: %s\n", level, text)
	case ModeStyled:
		fmt.Fprintf(p.w, "%s %s\n", style.Render(string(icon)), style.Render(text))
	default:
		fmt.Fprintf(p.w, "%s %s\n", icon, text)
	}
}

// Fields prints an aligned key/value block, boxed in ModeStyled. In
// ModeMachine keys are lowercased with spaces replaced by underscores.
func (p *Printer) Fields(title string, fields []Field) {
	if p.mode == ModeMachine {
		for _, f := range fields {
			key := strings.ReplaceAll(strings.ToLower(f.Key), " ", "_")
			fmt.Fprintf(p.w, "%s=%s\n", key, f.Value)
		}
		return
	}

	width := 0
	for _, f := range fields {
		width = max(width, len(f.Key))
	}
	var b strings.Builder
	if title != "" {
		if p.mode == ModeStyled {
			b.WriteString(Styles.Title.Render(title))
		} else {
			b.WriteString(title)
		}
		b.WriteByte('\n')
	}
	for i, f := range fields {
		key := fmt.Sprintf("%-*s", width, f.Key)
		if p.mode == ModeStyled {
			key = Styles.Key.Render(key)
		}
		b.WriteString(key + "  " + f.Value)
		if i < len(fields)-1 {
			b.WriteByte('\n')
		}
	}

	if p.mode == ModeStyled {
		fmt.Fprintln(p.w, Styles.Box.Render(b.String()))
		return
	}
	fmt.Fprintln(p.w, b.String())
}

// Diff prints a unified diff, coloring lines in ModeStyled.
func (p *Printer) Diff(unified []byte) {
	if p.mode != ModeStyled {
		p.w.Write(unified)
		return
	}
	scanner := bufio.NewScanner(bytes.NewReader(unified))
	scanner.Buffer(make([]byte, 64*1024), len(unified)+1)
	for scanner.Scan() {
		fmt.Fprintln(p.w, DiffLineStyle(scanner.Text()).Render(scanner.Text()))
	}
}

// DiffLineStyle returns the style for one line of a unified diff.
func DiffLineStyle(line string) lipgloss.Style {
	switch {
	case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
		return Styles.DiffHeader
	case strings.HasPrefix(line, "@@"):
		return Styles.DiffHunk
	case strings.HasPrefix(line, "+"):
		return Styles.DiffAdded
	case strings.HasPrefix(line, "-"):
		return Styles.DiffRemoved
	case strings.HasPrefix(line, `\`):
		return Styles.Muted
	}
	return lipgloss.NewStyle()
}
