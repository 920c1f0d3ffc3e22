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

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up       key.Binding
	Down     key.Binding
	Mark     key.Binding
	Toggle   key.Binding
	Only     key.Binding
	HideAll  key.Binding
	Merge    key.Binding
	Unmerge  key.Binding
	Delete   key.Binding
	Restore  key.Binding
	Label    key.Binding
	Category key.Binding
	Clear    key.Binding
	Save     key.Binding
	Focus    key.Binding
	Help     key.Binding
	Quit     key.Binding
}

var keys = keyMap{
	Up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("k/up", "up")),
	Down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("j/down", "down")),
	Mark:     key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "mark")),
	Toggle:   key.NewBinding(key.WithKeys("v"), key.WithHelp("v", "show/hide")),
	Only:     key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "show only")),
	HideAll:  key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "hide all")),
	Merge:    key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "merge marked")),
	Unmerge:  key.NewBinding(key.WithKeys("u"), key.WithHelp("u", "unmerge")),
	Delete:   key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete")),
	Restore:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "restore")),
	Label:    key.NewBinding(key.WithKeys("l"), key.WithHelp("l", "cycle label")),
	Category: key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next category")),
	Clear:    key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "clear selection")),
	Save:     key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "save")),
	Focus:    key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "focus")),
	Help:     key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
	Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Toggle, k.Merge, k.Delete, k.Label, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Mark, k.Focus},
		{k.Toggle, k.Only, k.HideAll, k.Clear},
		{k.Merge, k.Unmerge, k.Delete, k.Restore},
		{k.Label, k.Category, k.Save, k.Help, k.Quit},
	}
}
