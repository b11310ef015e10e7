package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/proofbyoutput/proofcoach/internal/config"
	"github.com/proofbyoutput/proofcoach/internal/diagnose"
	"github.com/proofbyoutput/proofcoach/internal/record"
)

// captureStdout captures stdout during the execution of fn and returns the captured output
func captureStdout(fn func()) string {
	oldStdout := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	fn()

	w.Close()
	os.Stdout = oldStdout

	var buf bytes.Buffer
	buf.ReadFrom(r)
	return buf.String()
}

type stubCompleter struct {
	reply string
}

func (s stubCompleter) Complete(_ context.Context, _, _, _ string, _ float32) (string, error) {
	return s.reply, nil
}

func newTestManager(t *testing.T) *record.Manager {
	t.Helper()
	dir := t.TempDir()
	records, err := record.NewManager(filepath.Join(dir, "outputs"), filepath.Join(dir, "history.db"), nil)
	require.NoError(t, err)
	return records
}

func TestDiagnoseOnce(t *testing.T) {
	records := newTestManager(t)
	diagnoser := diagnose.New(diagnose.Options{
		Client: stubCompleter{reply: `{
			"score": 82,
			"strengths": ["定義が明確"],
			"tags": [{"name": "根拠", "advice": "理由を足す"}],
			"improve_tips": ["具体例を足す"],
			"improved_explanation": "改善版",
			"explanation_30sec": "30秒版"
		}`},
		Models: []string{"test-model"},
	})

	explanation := strings.Repeat("あ", 60)
	out := captureStdout(func() {
		err := diagnoseOnce(context.Background(), diagnoser, records, "HTTPステータスコード", strings.NewReader(explanation))
		require.NoError(t, err)
	})

	assert.Contains(t, out, "スコア 82 / 100")
	assert.Contains(t, out, "ランク A")
	assert.Contains(t, out, "改善版")
	assert.Contains(t, out, "saved: ")

	entries, err := records.Recent(10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "HTTPステータスコード", entries[0].Topic)
	assert.Equal(t, 82, entries[0].Score)
}

func TestDiagnoseOnce_ValidationError(t *testing.T) {
	records := newTestManager(t)
	diagnoser := diagnose.New(diagnose.Options{
		Client: stubCompleter{reply: `{"score": 82}`},
		Models: []string{"test-model"},
	})

	err := diagnoseOnce(context.Background(), diagnoser, records, "トピック", strings.NewReader("短い"))
	require.Error(t, err)

	var verr *diagnose.ValidationError
	assert.ErrorAs(t, err, &verr)

	entries, err := records.Recent(10)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestPrintHistory(t *testing.T) {
	records := newTestManager(t)
	_, err := records.Save("goroutines", strings.Repeat("a", 60), &diagnose.Result{Score: 90})
	require.NoError(t, err)

	out := captureStdout(func() {
		require.NoError(t, printHistory(records, 10))
	})

	assert.Contains(t, out, "rank: S")
	assert.Contains(t, out, "score:  90")
	assert.Contains(t, out, "goroutines")
}

func TestPrintHistory_Empty(t *testing.T) {
	records := newTestManager(t)

	out := captureStdout(func() {
		require.NoError(t, printHistory(records, 10))
	})

	assert.Contains(t, out, "診断履歴はまだありません")
}

func TestNewDiagnoser_MissingAPIKeyIsValidationError(t *testing.T) {
	cfg := config.Default()
	cfg.APIKey = ""

	d := newDiagnoser(cfg, zap.NewNop())

	explanation := strings.Repeat("あ", 60)
	err := d.Validate("トピック", explanation)
	var verr *diagnose.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Message, "OPENAI_API_KEY")

	// Diagnose must surface the same error, never call a nil client.
	_, err = d.Diagnose(context.Background(), "トピック", explanation)
	assert.ErrorAs(t, err, &verr)
}

func TestNewDiagnoser_WithAPIKey(t *testing.T) {
	cfg := config.Default()
	cfg.APIKey = "sk-test"

	d := newDiagnoser(cfg, zap.NewNop())

	assert.NoError(t, d.Validate("トピック", strings.Repeat("あ", 60)))
}

func TestOutputsDir(t *testing.T) {
	cfg := config.Default()
	cfg.OutputsDir = "/tmp/custom-outputs"
	assert.Equal(t, "/tmp/custom-outputs", outputsDir(cfg))
}
