package tui

import (
	"strings"

	"github.com/sahilm/fuzzy"
	"github.com/samber/lo"

	"github.com/proofbyoutput/proofcoach/internal/record"
)

// historyModel holds the history browser state: the loaded entries, an
// incremental fuzzy filter over topics, and the cursor.
type historyModel struct {
	entries  []record.Entry
	filter   string
	filtered []record.Entry
	cursor   int
}

func newHistoryModel() historyModel {
	return historyModel{}
}

func (h *historyModel) setEntries(entries []record.Entry) {
	h.entries = entries
	h.applyFilter()
}

func (h *historyModel) filtering() bool {
	return h.filter != ""
}

func (h *historyModel) appendFilter(s string) {
	h.filter += s
	h.applyFilter()
}

func (h *historyModel) backspaceFilter() {
	if h.filter == "" {
		return
	}
	runes := []rune(h.filter)
	h.filter = string(runes[:len(runes)-1])
	h.applyFilter()
}

func (h *historyModel) clearFilter() {
	h.filter = ""
	h.applyFilter()
}

func (h *historyModel) applyFilter() {
	if h.filter == "" {
		h.filtered = h.entries
	} else {
		topics := lo.Map(h.entries, func(e record.Entry, _ int) string {
			return e.Topic
		})
		matches := fuzzy.Find(h.filter, topics)
		h.filtered = lo.Map(matches, func(m fuzzy.Match, _ int) record.Entry {
			return h.entries[m.Index]
		})
	}

	if h.cursor >= len(h.filtered) {
		h.cursor = len(h.filtered) - 1
	}
	if h.cursor < 0 {
		h.cursor = 0
	}
}

func (h *historyModel) moveCursor(delta int) {
	h.cursor += delta
	if h.cursor < 0 {
		h.cursor = 0
	}
	if h.cursor >= len(h.filtered) {
		h.cursor = len(h.filtered) - 1
	}
	if h.cursor < 0 {
		h.cursor = 0
	}
}

func (h *historyModel) selected() (record.Entry, bool) {
	if h.cursor < 0 || h.cursor >= len(h.filtered) {
		return record.Entry{}, false
	}
	return h.filtered[h.cursor], true
}

func (h *historyModel) visible() []record.Entry {
	return h.filtered
}

func (h *historyModel) filterLabel() string {
	if h.filter == "" {
		return ""
	}
	return "絞り込み: " + strings.TrimSpace(h.filter)
}
