package diagnose

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubCompleter returns canned replies per model name.
type stubCompleter struct {
	replies map[string]string
	errs    map[string]error
	calls   []string
}

func (s *stubCompleter) Complete(_ context.Context, model, system, user string, _ float32) (string, error) {
	s.calls = append(s.calls, model)
	if err, ok := s.errs[model]; ok {
		return "", err
	}
	return s.replies[model], nil
}

const validReply = `{
	"score": 85,
	"strengths": ["定義が明確"],
	"tags": [{"name": "根拠", "description": "", "advice": "理由を1つ足しましょう"}],
	"improve_tips": ["具体例を足す"],
	"improved_explanation": "改善版",
	"explanation_30sec": "30秒版"
}`

var longEnough = strings.Repeat("あ", 60)

func TestValidate_TopicRequired(t *testing.T) {
	d := New(Options{Client: &stubCompleter{}})

	err := d.Validate("", longEnough)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Message, "トピック名は必須")
}

func TestValidate_ExplanationTooShort(t *testing.T) {
	d := New(Options{Client: &stubCompleter{}})

	err := d.Validate("トピック", strings.Repeat("あ", 59))

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Message, "60文字以上")
	assert.Contains(t, verr.Message, "現在59文字")
	assert.Contains(t, verr.Message, "あと1文字")
}

func TestValidate_MultibyteCountsAsCharacters(t *testing.T) {
	d := New(Options{Client: &stubCompleter{}})

	// 60 Japanese characters are well over 60 bytes but exactly at the limit.
	assert.NoError(t, d.Validate("トピック", longEnough))
}

func TestValidate_MissingClient(t *testing.T) {
	d := New(Options{Client: nil})

	err := d.Validate("トピック", longEnough)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Message, "OPENAI_API_KEY")
}

func TestDiagnose_Success(t *testing.T) {
	stub := &stubCompleter{replies: map[string]string{"m1": validReply}}
	d := New(Options{Client: stub, Models: []string{"m1"}})

	result, err := d.Diagnose(context.Background(), "トピック", longEnough)

	require.NoError(t, err)
	assert.Equal(t, 85, result.Score)
	assert.Equal(t, RankA, result.Rank())
	require.Len(t, result.Tags, 1)
	// Description was blank in the reply and gets backfilled from the taxonomy.
	assert.Equal(t, "なぜそう言えるかの理由が不足", result.Tags[0].Description)
}

func TestDiagnose_FallsBackToNextModel(t *testing.T) {
	stub := &stubCompleter{
		errs:    map[string]error{"m1": errors.New("model not available")},
		replies: map[string]string{"m2": validReply},
	}
	d := New(Options{Client: stub, Models: []string{"m1", "m2"}})

	result, err := d.Diagnose(context.Background(), "トピック", longEnough)

	require.NoError(t, err)
	assert.Equal(t, 85, result.Score)
	assert.Equal(t, []string{"m1", "m2"}, stub.calls)
}

func TestDiagnose_MalformedJSONTriggersFallback(t *testing.T) {
	stub := &stubCompleter{replies: map[string]string{
		"m1": "sorry, here is your JSON: {",
		"m2": validReply,
	}}
	d := New(Options{Client: stub, Models: []string{"m1", "m2"}})

	result, err := d.Diagnose(context.Background(), "トピック", longEnough)

	require.NoError(t, err)
	assert.Equal(t, 85, result.Score)
}

func TestDiagnose_AllCandidatesFail(t *testing.T) {
	stub := &stubCompleter{errs: map[string]error{
		"m1": errors.New("boom1"),
		"m2": errors.New("boom2"),
	}}
	d := New(Options{Client: stub, Models: []string{"m1", "m2"}})

	_, err := d.Diagnose(context.Background(), "トピック", longEnough)

	var uerr *UpstreamError
	require.ErrorAs(t, err, &uerr)
	assert.Equal(t, "m2", uerr.LastModel)
	assert.Contains(t, uerr.Error(), "boom2")
}

func TestDiagnose_NoModelsConfigured(t *testing.T) {
	d := New(Options{Client: &stubCompleter{}, Models: nil})

	_, err := d.Diagnose(context.Background(), "トピック", longEnough)

	var uerr *UpstreamError
	require.ErrorAs(t, err, &uerr)
}

func TestDiagnose_ValidationFailureNeverCallsClient(t *testing.T) {
	stub := &stubCompleter{replies: map[string]string{"m1": validReply}}
	d := New(Options{Client: stub, Models: []string{"m1"}})

	_, err := d.Diagnose(context.Background(), "", longEnough)

	require.Error(t, err)
	assert.Empty(t, stub.calls)
}

func TestParseResult_DefaultsAndClamping(t *testing.T) {
	tags := make([]string, 0, 5)
	for i := 0; i < 5; i++ {
		tags = append(tags, fmt.Sprintf(`{"name": "具体", "advice": "a%d"}`, i))
	}
	content := fmt.Sprintf(`{"score": 150, "tags": [%s]}`, strings.Join(tags, ","))

	result, err := parseResult(content)

	require.NoError(t, err)
	assert.Equal(t, 100, result.Score)
	assert.Len(t, result.Tags, MaxTags)
	assert.NotNil(t, result.Strengths)
	assert.NotNil(t, result.ImproveTips)
	assert.Empty(t, result.ImprovedExplanation)
}

func TestParseResult_NegativeScoreClamped(t *testing.T) {
	result, err := parseResult(`{"score": -5}`)

	require.NoError(t, err)
	assert.Equal(t, 0, result.Score)
	assert.Equal(t, RankD, result.Rank())
}

func TestCharCount(t *testing.T) {
	assert.Equal(t, 0, CharCount(""))
	assert.Equal(t, 5, CharCount("hello"))
	assert.Equal(t, 5, CharCount("こんにちは"))
}
