// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/AleutianAI/spikecurator/services/curation/session"
)

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n\n")
	if len(m.rows) == 0 {
		b.WriteString(dimStyle.Render("no units"))
		b.WriteString("\n")
	}
	for i, row := range m.rows {
		b.WriteString(m.renderRow(i, row))
		b.WriteString("\n")
	}
	if m.status != "" {
		b.WriteString("\n")
		b.WriteString(statusStyle.Render(m.status))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(m.help.View(keys))
	return b.String()
}

func (m Model) renderHeader() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("Units (%d)", len(m.rows))))
	if cat, ok := m.currentCategory(); ok {
		b.WriteString(dimStyle.Render("  label: " + cat))
	}
	if len(m.marked) > 0 {
		b.WriteString(dimStyle.Render(fmt.Sprintf("  marked: %d", len(m.marked))))
	}
	if m.active {
		b.WriteString("  ")
		b.WriteString(activeBadge.Render("active"))
	}
	return b.String()
}

func (m Model) renderRow(i int, row session.UnitInfo) string {
	cursor := "  "
	if i == m.cursor {
		cursor = cursorStyle.Render("> ")
	}
	mark := " "
	if m.marked[row.ID] {
		mark = "*"
	}
	vis := "  "
	if row.Visible {
		vis = lipgloss.NewStyle().Foreground(lipgloss.Color(row.Color)).Render("██")
	}
	group := ""
	if row.Group >= 0 {
		group = fmt.Sprintf("g%d", row.Group)
	}
	split := ""
	if row.Split {
		split = "split"
	}

	line := fmt.Sprintf("%s%s %s %-8s %-8s %6d %-4s %-5s %s",
		cursor, mark, vis, row.ID, row.State, row.SpikeCount, group, split, formatLabels(row.Labels))
	switch row.State {
	case "removed":
		return removedStyle.Render(line)
	case "merged":
		return mergedStyle.Render(line)
	}
	return line
}

// formatLabels renders labels as "cat=v1,v2" pairs in category order.
func formatLabels(labels map[string][]string) string {
	if len(labels) == 0 {
		return ""
	}
	cats := make([]string, 0, len(labels))
	for c := range labels {
		cats = append(cats, c)
	}
	sort.Strings(cats)
	parts := make([]string, 0, len(cats))
	for _, c := range cats {
		parts = append(parts, c+"="+strings.Join(labels[c], ","))
	}
	return strings.Join(parts, " ")
}

// =============================================================================
// Styles
// =============================================================================

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	cursorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("212")).
			Bold(true)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	removedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Strikethrough(true)

	mergedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("75"))

	activeBadge = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Background(lipgloss.Color("22")).
			Padding(0, 1)
)
