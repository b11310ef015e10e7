package diagnose

import (
	"fmt"
	"strings"

	"github.com/samber/lo"
)

// systemPrompt instructs the model to act as an explanation coach and to
// answer with nothing but a JSON object matching the result schema.
var systemPrompt = fmt.Sprintf(`あなたは学習内容の説明文を診断するコーチです。
ユーザーの説明文を評価し、つまずきタグを返します。

# つまずきタグ定義
%s

# 出力ルール
- 必ず日本語
- 必ずJSONのみ（前置き・補足文は禁止）
- JSONの外に一切文字を書かない
- tags は上記6タグから最大%d個選ぶ
- score は 0〜100 の整数
- improve_tips は少なくとも1件、最大3件
- improved_explanation は200〜320文字
- explanation_30sec は80〜140文字

# JSONスキーマ
{
  "score": 0,
  "strengths": ["..."],
  "tags": [
    {
      "name": "論点",
      "description": "何について話しているかが曖昧",
      "advice": "改善方法を1文"
    }
  ],
  "improve_tips": ["..."],
  "improved_explanation": "...",
  "explanation_30sec": "..."
}`, taxonomyText(), MaxTags)

func taxonomyText() string {
	lines := lo.Map(Taxonomy, func(t Tag, _ int) string {
		return fmt.Sprintf("- %s：%s", t.Name, t.Description)
	})
	return strings.Join(lines, "\n")
}

// userPrompt carries the topic and the explanation under test.
func userPrompt(topic, explanation string) string {
	return fmt.Sprintf("[トピック]\n%s\n\n[説明文]\n%s\n", topic, explanation)
}
