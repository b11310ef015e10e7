package tui

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/proofbyoutput/proofcoach/internal/diagnose"
)

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Proof by Output"))
	if m.version != "" {
		b.WriteString(dimStyle.Render(" " + m.version))
	}
	b.WriteString("\n")
	b.WriteString(taglineStyle.Render("理解は、アウトプットで証明する。"))
	b.WriteString("\n\n")

	switch m.screen {
	case screenForm:
		b.WriteString(m.viewForm())
	case screenResult:
		b.WriteString(m.viewResult())
	case screenHistory:
		b.WriteString(m.viewHistory())
	}

	return b.String()
}

func (m Model) viewForm() string {
	var b strings.Builder

	b.WriteString(labelStyle.Render("トピック名") + "\n")
	b.WriteString(m.topic.View() + "\n\n")

	b.WriteString(labelStyle.Render(fmt.Sprintf("説明文（%d文字以上）", m.diagnoser.MinChars())) + "\n")
	b.WriteString(m.body.View() + "\n")
	b.WriteString(m.viewCharCounter() + "\n")

	if m.busy {
		b.WriteString("\n" + m.spin.View() + " 診断中...\n")
	}
	if m.errMsg != "" {
		b.WriteString("\n" + errorStyle.Render(m.errMsg) + "\n")
	}

	b.WriteString("\n" + helpStyle.Render("tab: 入力切替  ctrl+s: 診断する  ctrl+r: 履歴  ctrl+c: 終了"))
	return b.String()
}

func (m Model) viewCharCounter() string {
	count := diagnose.CharCount(m.body.Value())
	minChars := m.diagnoser.MinChars()
	if count >= minChars {
		return okStyle.Render(fmt.Sprintf("文字数: %d / 最低 %d (OK)", count, minChars))
	}
	return warnStyle.Render(fmt.Sprintf("文字数: %d / 最低 %d (まだ不足)", count, minChars))
}

func (m Model) viewResult() string {
	var b strings.Builder

	if m.current != nil {
		b.WriteString(RenderRecord(m.current, m.currentPrev, min(m.width-2, 100)))
	}

	if m.notice != "" {
		b.WriteString("\n" + okStyle.Render(m.notice) + "\n")
	}
	if m.errMsg != "" {
		b.WriteString("\n" + errorStyle.Render(m.errMsg) + "\n")
	}

	b.WriteString("\n" + helpStyle.Render("ctrl+y: 改善版をコピー  ctrl+r: 履歴  esc: 戻る  ctrl+c: 終了"))
	return b.String()
}

func (m Model) viewHistory() string {
	var b strings.Builder

	b.WriteString(sectionStyle.Render("診断履歴") + "\n")
	if label := m.history.filterLabel(); label != "" {
		b.WriteString(dimStyle.Render(label) + "\n")
	}
	b.WriteString("\n")

	entries := m.history.visible()
	if len(entries) == 0 {
		b.WriteString(dimStyle.Render("まだ履歴がありません。診断を実行するとここに表示されます。") + "\n")
	}

	for i, entry := range entries {
		line := fmt.Sprintf("%s | rank: %s | score: %d | %s",
			entry.Topic,
			entry.RankValue(),
			entry.Score,
			humanize.Time(entry.RecordedAt))
		if i == m.history.cursor {
			b.WriteString(selectedStyle.Render("> "+line) + "\n")
		} else {
			b.WriteString("  " + line + "\n")
		}
	}

	if m.errMsg != "" {
		b.WriteString("\n" + errorStyle.Render(m.errMsg) + "\n")
	}

	b.WriteString("\n" + helpStyle.Render("文字入力: 絞り込み  enter: 詳細  esc: 戻る  ctrl+c: 終了"))
	return b.String()
}
