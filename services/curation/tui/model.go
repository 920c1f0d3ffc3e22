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
	"context"
	"fmt"
	"slices"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/AleutianAI/spikecurator/services/curation/ledger"
	"github.com/AleutianAI/spikecurator/services/curation/session"
	"github.com/AleutianAI/spikecurator/services/curation/unit"
)

// =============================================================================
// Model
// =============================================================================

// Model is the bubbletea model of the unit table.
type Model struct {
	sess *session.Session
	view *View

	help help.Model

	rows        []session.UnitInfo
	cursor      int
	marked      map[unit.ID]bool
	categories  []string
	category    int
	showRemoved bool
	active      bool

	status   string
	width    int
	height   int
	quitting bool
}

// NewModel creates the table for sess. view must already be registered
// on the session's bus so that outside changes reach the table.
func NewModel(sess *session.Session, view *View) Model {
	m := Model{
		sess:        sess,
		view:        view,
		help:        help.New(),
		marked:      make(map[unit.ID]bool),
		showRemoved: view.ShowRemoved(),
	}
	sess.Do(func(s *session.Session) {
		m.categories = s.Ledger().Categories()
	})
	m.reload()
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return m.view.Wait()
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width

	case EventMsg:
		m.reload()
		return m, m.view.Wait()

	case ActiveMsg:
		m.active = msg.Active
		return m, m.view.Wait()

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.status = ""
	switch {
	case key.Matches(msg, keys.Quit):
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, keys.Help):
		m.help.ShowAll = !m.help.ShowAll

	case key.Matches(msg, keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}

	case key.Matches(msg, keys.Down):
		if m.cursor < len(m.rows)-1 {
			m.cursor++
		}

	case key.Matches(msg, keys.Mark):
		if row, ok := m.current(); ok {
			if m.marked[row.ID] {
				delete(m.marked, row.ID)
			} else {
				m.marked[row.ID] = true
			}
		}

	case key.Matches(msg, keys.Toggle):
		if row, ok := m.current(); ok {
			m.apply(func(s *session.Session) {
				if !s.ToggleUnit(m.view, row.ID, !row.Visible) {
					m.status = fmt.Sprintf("cannot show unit %s: %d units already visible",
						row.ID, s.Visibility().MaxVisibleUnits())
				}
			})
		}

	case key.Matches(msg, keys.Only):
		if row, ok := m.current(); ok {
			m.apply(func(s *session.Session) { s.ShowOnly(m.view, row.ID) })
		}

	case key.Matches(msg, keys.HideAll):
		m.apply(func(s *session.Session) { s.HideAll(m.view) })

	case key.Matches(msg, keys.Clear):
		m.apply(func(s *session.Session) { s.ClearSelection(m.view) })

	case key.Matches(msg, keys.Merge):
		ids := m.markedIDs()
		m.apply(func(s *session.Session) {
			if s.Merge(m.view, ids) {
				m.status = fmt.Sprintf("merged %d units", len(ids))
				clear(m.marked)
			} else {
				m.status = "merge needs at least two marked active units"
			}
		})

	case key.Matches(msg, keys.Unmerge):
		if row, ok := m.current(); ok && row.Group >= 0 {
			m.apply(func(s *session.Session) { s.Unmerge(m.view, row.Group) })
		}

	case key.Matches(msg, keys.Delete):
		ids := m.targets()
		m.apply(func(s *session.Session) {
			if s.Delete(m.view, ids) {
				clear(m.marked)
			}
		})

	case key.Matches(msg, keys.Restore):
		ids := m.targets()
		m.apply(func(s *session.Session) {
			if s.Restore(m.view, ids) {
				clear(m.marked)
			}
		})

	case key.Matches(msg, keys.Category):
		if len(m.categories) > 0 {
			m.category = (m.category + 1) % len(m.categories)
		}

	case key.Matches(msg, keys.Label):
		if row, ok := m.current(); ok {
			m.apply(func(s *session.Session) { m.cycleLabel(s, row) })
		}

	case key.Matches(msg, keys.Save):
		m.apply(func(s *session.Session) {
			if err := s.Save(context.Background()); err != nil {
				m.status = err.Error()
				return
			}
			m.status = "saved " + s.SnapshotKey()
		})

	case key.Matches(msg, keys.Focus):
		m.apply(func(s *session.Session) { s.Focus(m.view) })
		m.active = true
	}
	return m, nil
}

// apply runs fn under the session lock and reloads the rows. The table is
// the origin of the change, so no event comes back for it.
func (m *Model) apply(fn func(s *session.Session)) {
	m.sess.Do(fn)
	m.reload()
}

// cycleLabel moves the unit's label in the current category to the next
// option, and clears it after the last one.
func (m *Model) cycleLabel(s *session.Session, row session.UnitInfo) {
	cat, ok := m.currentCategory()
	if !ok {
		m.status = "no label categories"
		return
	}
	def := s.Ledger().LabelDefinitions()[cat]
	next := 0
	if cur, ok := s.Ledger().Label(row.ID, cat); ok {
		next = slices.Index(def.LabelOptions, cur) + 1
	}
	if err := s.SetLabel(m.view, row.ID, cat, nil); err != nil {
		m.status = err.Error()
		return
	}
	if next >= len(def.LabelOptions) {
		return
	}
	value := def.LabelOptions[next]
	if err := s.SetLabel(m.view, row.ID, cat, &value); err != nil {
		m.status = err.Error()
	}
}

func (m *Model) reload() {
	m.sess.Do(func(s *session.Session) {
		all := s.Units()
		rows := make([]session.UnitInfo, 0, len(all))
		for _, row := range all {
			if !m.showRemoved && row.State == ledger.Removed.String() {
				continue
			}
			rows = append(rows, row)
		}
		m.rows = rows
		m.active = s.IsActive(m.view)
	})
	if m.cursor >= len(m.rows) {
		m.cursor = max(len(m.rows)-1, 0)
	}
}

func (m Model) current() (session.UnitInfo, bool) {
	if m.cursor < 0 || m.cursor >= len(m.rows) {
		return session.UnitInfo{}, false
	}
	return m.rows[m.cursor], true
}

func (m Model) currentCategory() (string, bool) {
	if len(m.categories) == 0 {
		return "", false
	}
	return m.categories[m.category], true
}

// markedIDs returns the marked units in table order.
func (m Model) markedIDs() []unit.ID {
	var ids []unit.ID
	for _, row := range m.rows {
		if m.marked[row.ID] {
			ids = append(ids, row.ID)
		}
	}
	return ids
}

// targets returns the marked units, or the unit under the cursor when
// nothing is marked.
func (m Model) targets() []unit.ID {
	if ids := m.markedIDs(); len(ids) > 0 {
		return ids
	}
	if row, ok := m.current(); ok {
		return []unit.ID{row.ID}
	}
	return nil
}

// Rows returns the rows currently shown.
func (m Model) Rows() []session.UnitInfo { return m.rows }

// Status returns the last status line.
func (m Model) Status() string { return m.status }

// Run starts the table on the terminal and blocks until the user quits.
func Run(sess *session.Session, view *View, opts ...tea.ProgramOption) error {
	p := tea.NewProgram(NewModel(sess, view), opts...)
	_, err := p.Run()
	return err
}
