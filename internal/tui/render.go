package tui

import (
	"fmt"
	"strings"

	"github.com/muesli/reflow/wordwrap"

	"github.com/proofbyoutput/proofcoach/internal/record"
)

// RenderRecord formats a saved diagnosis for terminal display, wrapped to
// width. prev is the previous same-topic score, nil when there is none.
func RenderRecord(rec *record.Record, prev *int, width int) string {
	if width <= 0 {
		width = 80
	}

	var b strings.Builder

	b.WriteString(sectionStyle.Render("診断結果"))
	b.WriteString("\n\n")

	delta := "比較対象なし"
	if prev != nil {
		diff := rec.Score - *prev
		sign := ""
		if diff >= 0 {
			sign = "+"
		}
		delta = fmt.Sprintf("%s%d（前回 %d）", sign, diff, *prev)
	}

	b.WriteString(fmt.Sprintf("%s  %s  %s\n",
		metricValueStyle.Render(fmt.Sprintf("スコア %d / 100", rec.Score)),
		rankStyle(string(rec.Rank)).Render(fmt.Sprintf("ランク %s", rec.Rank)),
		dimStyle.Render(fmt.Sprintf("前回比 %s", delta))))
	b.WriteString(dimStyle.Render(rec.Rank.Comment()))
	b.WriteString("\n")

	result := rec.Result
	if result == nil {
		return b.String()
	}

	if len(result.Strengths) > 0 {
		b.WriteString("\n" + sectionStyle.Render("良い点") + "\n")
		for _, s := range result.Strengths {
			b.WriteString(wordwrap.String("- "+s, width) + "\n")
		}
	}

	if len(result.Tags) > 0 {
		b.WriteString("\n" + sectionStyle.Render("検知タグ") + "\n")
		for _, tag := range result.Tags {
			b.WriteString(wordwrap.String(
				fmt.Sprintf("- %s：%s", labelStyle.Render(tag.Name), tag.Description), width) + "\n")
			if tag.Advice != "" {
				b.WriteString(wordwrap.String("  改善: "+tag.Advice, width) + "\n")
			}
		}
	}

	if len(result.ImproveTips) > 0 {
		b.WriteString("\n" + sectionStyle.Render("改善提案") + "\n")
		for _, tip := range result.ImproveTips {
			b.WriteString(wordwrap.String("- "+tip, width) + "\n")
		}
	}

	b.WriteString("\n" + sectionStyle.Render("改善版説明") + "\n")
	b.WriteString(wordwrap.String(result.ImprovedExplanation, width) + "\n")

	b.WriteString("\n" + sectionStyle.Render("30秒説明") + "\n")
	b.WriteString(wordwrap.String(result.Explanation30Sec, width) + "\n")

	return b.String()
}
