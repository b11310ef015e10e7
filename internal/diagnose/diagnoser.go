package diagnose

import (
	"context"
	"fmt"

	"github.com/rivo/uniseg"
	"go.uber.org/zap"
)

// DefaultMinChars is the minimum explanation length if not configured.
const DefaultMinChars = 60

// ChatCompleter performs a single chat completion call and returns the raw
// reply content. Implemented by llm.Client.
type ChatCompleter interface {
	Complete(ctx context.Context, model, system, user string, temperature float32) (string, error)
}

// ValidationError reports an input problem the user can fix. The message is
// shown to the user as-is.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// UpstreamError reports that every model candidate failed.
type UpstreamError struct {
	LastModel string
	Err       error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("all model candidates failed (last: %s): %v", e.LastModel, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// CharCount counts user-perceived characters (grapheme clusters), so
// Japanese text counts the way it does on screen.
func CharCount(text string) int {
	return uniseg.GraphemeClusterCount(text)
}

// Diagnoser validates input and runs the diagnosis call with model fallback.
type Diagnoser struct {
	client      ChatCompleter
	models      []string
	temperature float32
	minChars    int
	logger      *zap.Logger
}

// Options configures a Diagnoser.
type Options struct {
	Client      ChatCompleter
	Models      []string
	Temperature float32
	MinChars    int
	Logger      *zap.Logger
}

// New creates a Diagnoser.
func New(opts Options) *Diagnoser {
	minChars := opts.MinChars
	if minChars <= 0 {
		minChars = DefaultMinChars
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Diagnoser{
		client:      opts.Client,
		models:      opts.Models,
		temperature: opts.Temperature,
		minChars:    minChars,
		logger:      logger,
	}
}

// MinChars returns the configured minimum explanation length.
func (d *Diagnoser) MinChars() int {
	return d.minChars
}

// Validate checks the topic and explanation without calling the model.
func (d *Diagnoser) Validate(topic, explanation string) error {
	if topic == "" {
		return &ValidationError{
			Message: "トピック名は必須です。例: TypeScriptのUnion型",
		}
	}

	charCount := CharCount(explanation)
	if charCount < d.minChars {
		remain := d.minChars - charCount
		return &ValidationError{
			Message: fmt.Sprintf(
				"説明文は%d文字以上必要です（現在%d文字、あと%d文字）。\n"+
					"ヒント: 『〜とは』『なぜ使うか』『具体例』の3点を書くと到達しやすいです。",
				d.minChars, charCount, remain,
			),
		}
	}

	if d.client == nil {
		return &ValidationError{
			Message: "OPENAI_API_KEY が見つかりません。config.yaml または環境変数を確認してください。",
		}
	}

	return nil
}

// Diagnose validates the input and runs the chat completion, trying each
// model candidate in order until one returns a parseable result.
func (d *Diagnoser) Diagnose(ctx context.Context, topic, explanation string) (*Result, error) {
	if err := d.Validate(topic, explanation); err != nil {
		return nil, err
	}

	if len(d.models) == 0 {
		return nil, &UpstreamError{Err: fmt.Errorf("no model candidates configured")}
	}

	user := userPrompt(topic, explanation)

	var lastErr error
	var lastModel string
	for _, model := range d.models {
		content, err := d.client.Complete(ctx, model, systemPrompt, user, d.temperature)
		if err != nil {
			d.logger.Warn("model candidate failed",
				zap.String("model", model),
				zap.Error(err))
			lastErr = err
			lastModel = model
			continue
		}

		result, err := parseResult(content)
		if err != nil {
			d.logger.Warn("model reply was not valid JSON",
				zap.String("model", model),
				zap.Error(err))
			lastErr = err
			lastModel = model
			continue
		}

		d.logger.Info("diagnosis complete",
			zap.String("model", model),
			zap.Int("score", result.Score),
			zap.Int("tags", len(result.Tags)))
		return result, nil
	}

	return nil, &UpstreamError{LastModel: lastModel, Err: lastErr}
}
