package tui

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/proofbyoutput/proofcoach/internal/diagnose"
	"github.com/proofbyoutput/proofcoach/internal/record"
)

func newTestModel(t *testing.T) Model {
	t.Helper()

	dir := t.TempDir()
	records, err := record.NewManager(filepath.Join(dir, "outputs"), filepath.Join(dir, "history.db"), nil)
	require.NoError(t, err)

	diagnoser := diagnose.New(diagnose.Options{Models: []string{"test-model"}})

	return New(Options{
		Diagnoser: diagnoser,
		Records:   records,
		Version:   "test",
	})
}

func sampleRecord(score int) *record.Record {
	result := &diagnose.Result{
		Score:               score,
		Strengths:           []string{"定義が明確"},
		Tags:                []diagnose.TagFinding{{Name: "根拠", Description: "なぜそう言えるかの理由が不足", Advice: "理由を足す"}},
		ImproveTips:         []string{"具体例を足す"},
		ImprovedExplanation: "改善版の説明",
		Explanation30Sec:    "30秒の説明",
	}
	return &record.Record{
		CreatedAt: time.Now(),
		Topic:     "topic",
		Score:     score,
		Rank:      diagnose.RankForScore(score),
		Result:    result,
		ID:        "20260823_100000_topic",
	}
}

func TestView_FormShowsCharCounter(t *testing.T) {
	m := newTestModel(t)

	view := m.View()
	assert.Contains(t, view, "Proof by Output")
	assert.Contains(t, view, "トピック名")
	assert.Contains(t, view, "文字数: 0 / 最低 60")
}

func TestUpdate_DiagnosisDoneShowsResult(t *testing.T) {
	m := newTestModel(t)

	updated, _ := m.Update(diagnosisDoneMsg{rec: sampleRecord(85)})
	result := updated.(Model)

	assert.Equal(t, screenResult, result.screen)
	view := result.View()
	assert.Contains(t, view, "スコア 85 / 100")
	assert.Contains(t, view, "ランク A")
	assert.Contains(t, view, "比較対象なし")
	assert.Contains(t, view, "改善版の説明")
	assert.Contains(t, view, "30秒の説明")
}

func TestUpdate_DiagnosisErrorStaysOnForm(t *testing.T) {
	m := newTestModel(t)

	updated, _ := m.Update(diagnosisDoneMsg{err: &diagnose.ValidationError{Message: "トピック名は必須です"}})
	result := updated.(Model)

	assert.Equal(t, screenForm, result.screen)
	assert.Contains(t, result.View(), "トピック名は必須です")
}

func TestSubmit_ValidationErrorShownWithoutDiagnosis(t *testing.T) {
	m := newTestModel(t)
	m.topic.SetValue("トピック")
	m.body.SetValue("短い")

	updated, cmd := m.submit()
	result := updated.(Model)

	assert.Nil(t, cmd)
	assert.False(t, result.busy)
	assert.Contains(t, result.errMsg, "60文字以上")
}

func TestSubmit_ValidInputStartsDiagnosis(t *testing.T) {
	m := newTestModel(t)
	// No API key configured, so the client is nil; give the model a stub so
	// validation passes.
	m.diagnoser = diagnose.New(diagnose.Options{
		Client: completerFunc(func() (string, error) { return `{"score": 70}`, nil }),
		Models: []string{"test-model"},
	})
	m.topic.SetValue("トピック")
	m.body.SetValue(strings.Repeat("あ", 60))

	updated, cmd := m.submit()
	result := updated.(Model)

	assert.True(t, result.busy)
	assert.NotNil(t, cmd)
}

func TestUpdate_HistoryLoaded(t *testing.T) {
	m := newTestModel(t)
	m.screen = screenHistory

	entries := []record.Entry{
		{Topic: "a", Score: 60, Rank: "C", RecordedAt: time.Now(), File: "f1"},
		{Topic: "b", Score: 90, Rank: "S", RecordedAt: time.Now(), File: "f2"},
	}
	updated, _ := m.Update(historyLoadedMsg{entries: entries})
	result := updated.(Model)

	view := result.View()
	assert.Contains(t, view, "診断履歴")
	assert.Contains(t, view, "a | rank: C | score: 60")
	assert.Contains(t, view, "b | rank: S | score: 90")
}

func TestUpdate_CtrlCQuits(t *testing.T) {
	m := newTestModel(t)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

// completerFunc adapts a closure to diagnose.ChatCompleter.
type completerFunc func() (string, error)

func (f completerFunc) Complete(_ context.Context, _, _, _ string, _ float32) (string, error) {
	return f()
}
