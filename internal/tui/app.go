package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/proofbyoutput/proofcoach/internal/diagnose"
	"github.com/proofbyoutput/proofcoach/internal/record"
)

type screen int

const (
	screenForm screen = iota
	screenResult
	screenHistory
)

// Options configures the TUI.
type Options struct {
	Diagnoser    *diagnose.Diagnoser
	Records      *record.Manager
	Logger       *zap.Logger
	Version      string
	HistoryLimit int
}

// Model is the root bubbletea model.
type Model struct {
	diagnoser    *diagnose.Diagnoser
	records      *record.Manager
	logger       *zap.Logger
	version      string
	historyLimit int

	screen  screen
	topic   textinput.Model
	body    textarea.Model
	spin    spinner.Model
	busy    bool
	errMsg  string
	notice  string
	history historyModel

	// current holds the record shown on the result screen.
	current     *record.Record
	currentPrev *int

	width  int
	height int
}

type diagnosisDoneMsg struct {
	rec  *record.Record
	prev *int
	err  error
}

type historyLoadedMsg struct {
	entries []record.Entry
	err     error
}

// New creates the root model.
func New(opts Options) Model {
	topic := textinput.New()
	topic.Placeholder = "例: TypeScriptのUnion型 / HTTP 404と500の違い"
	topic.Focus()
	topic.CharLimit = 200

	body := textarea.New()
	body.Placeholder = "ここに自分の説明を書いてください。"
	body.SetHeight(10)

	spin := spinner.New()
	spin.Spinner = spinner.Dot
	spin.Style = warnStyle

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	historyLimit := opts.HistoryLimit
	if historyLimit <= 0 {
		historyLimit = 50
	}

	return Model{
		diagnoser:    opts.Diagnoser,
		records:      opts.Records,
		logger:       logger,
		version:      opts.Version,
		historyLimit: historyLimit,
		screen:       screenForm,
		topic:        topic,
		body:         body,
		spin:         spin,
		history:      newHistoryModel(),
		width:        80,
		height:       24,
	}
}

// Run starts the TUI and blocks until the user quits.
func Run(opts Options) error {
	p := tea.NewProgram(New(opts), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.body.SetWidth(min(msg.Width-4, 100))
		return m, nil

	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case diagnosisDoneMsg:
		m.busy = false
		if msg.err != nil {
			m.errMsg = diagnoseErrorMessage(msg.err)
			return m, nil
		}
		m.current = msg.rec
		m.currentPrev = msg.prev
		m.screen = screenResult
		m.notice = fmt.Sprintf("結果を保存しました: %s.json", msg.rec.ID)
		return m, nil

	case historyLoadedMsg:
		if msg.err != nil {
			m.errMsg = fmt.Sprintf("履歴の読み込みに失敗しました: %v", msg.err)
			m.screen = screenForm
			return m, nil
		}
		m.history.setEntries(msg.entries)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m.updateFocused(msg)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}

	if m.busy {
		return m, nil
	}

	switch m.screen {
	case screenForm:
		return m.handleFormKey(msg)
	case screenResult:
		return m.handleResultKey(msg)
	case screenHistory:
		return m.handleHistoryKey(msg)
	}
	return m, nil
}

func (m Model) handleFormKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "tab", "shift+tab":
		if m.topic.Focused() {
			m.topic.Blur()
			return m, m.body.Focus()
		}
		m.body.Blur()
		return m, m.topic.Focus()

	case "enter":
		if m.topic.Focused() {
			m.topic.Blur()
			return m, m.body.Focus()
		}

	case "ctrl+s":
		return m.submit()

	case "ctrl+r":
		m.screen = screenHistory
		m.errMsg = ""
		return m, m.loadHistory()
	}

	return m.updateFocused(msg)
}

func (m Model) handleResultKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "q":
		m.screen = screenForm
		m.notice = ""
		return m, m.topic.Focus()

	case "ctrl+y":
		if m.current != nil && m.current.Result != nil {
			if err := clipboard.WriteAll(m.current.Result.ImprovedExplanation); err != nil {
				m.errMsg = fmt.Sprintf("コピーに失敗しました: %v", err)
			} else {
				m.notice = "改善版説明をクリップボードにコピーしました"
			}
		}
		return m, nil

	case "ctrl+r":
		m.screen = screenHistory
		return m, m.loadHistory()
	}
	return m, nil
}

func (m Model) handleHistoryKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		if m.history.filtering() {
			m.history.clearFilter()
			return m, nil
		}
		m.screen = screenForm
		return m, m.topic.Focus()

	case "up", "ctrl+p":
		m.history.moveCursor(-1)
		return m, nil

	case "down", "ctrl+n":
		m.history.moveCursor(1)
		return m, nil

	case "enter":
		entry, ok := m.history.selected()
		if !ok {
			return m, nil
		}
		rec, err := m.records.Get(entry.File)
		if err != nil {
			m.errMsg = fmt.Sprintf("記録の読み込みに失敗しました: %v", err)
			return m, nil
		}
		var prev *int
		if score, ok, err := m.records.PreviousScore(rec.Topic, rec.CreatedAt); err == nil && ok {
			prev = &score
		}
		m.current = rec
		m.currentPrev = prev
		m.notice = ""
		m.screen = screenResult
		return m, nil

	case "backspace":
		m.history.backspaceFilter()
		return m, nil
	}

	if msg.Type == tea.KeyRunes {
		m.history.appendFilter(string(msg.Runes))
	}
	return m, nil
}

func (m Model) updateFocused(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	var cmd tea.Cmd

	if m.screen == screenForm {
		m.topic, cmd = m.topic.Update(msg)
		cmds = append(cmds, cmd)
		m.body, cmd = m.body.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	topic := strings.TrimSpace(m.topic.Value())
	explanation := m.body.Value()

	if err := m.diagnoser.Validate(topic, explanation); err != nil {
		m.errMsg = diagnoseErrorMessage(err)
		return m, nil
	}

	m.errMsg = ""
	m.notice = ""
	m.busy = true

	diagnoser := m.diagnoser
	records := m.records
	run := func() tea.Msg {
		result, err := diagnoser.Diagnose(context.Background(), topic, explanation)
		if err != nil {
			return diagnosisDoneMsg{err: err}
		}

		rec, err := records.Save(topic, explanation, result)
		if err != nil {
			return diagnosisDoneMsg{err: err}
		}

		var prev *int
		if score, ok, err := records.PreviousScore(rec.Topic, rec.CreatedAt); err == nil && ok {
			prev = &score
		}
		return diagnosisDoneMsg{rec: rec, prev: prev}
	}

	return m, tea.Batch(m.spin.Tick, run)
}

func (m Model) loadHistory() tea.Cmd {
	records := m.records
	limit := m.historyLimit
	return func() tea.Msg {
		entries, err := records.Recent(limit)
		return historyLoadedMsg{entries: entries, err: err}
	}
}

func diagnoseErrorMessage(err error) string {
	var verr *diagnose.ValidationError
	if errors.As(err, &verr) {
		return verr.Message
	}

	var uerr *diagnose.UpstreamError
	if errors.As(err, &uerr) {
		return fmt.Sprintf("AI呼び出しに失敗しました: %v", uerr.Err)
	}

	return fmt.Sprintf("エラーが発生しました: %v", err)
}
