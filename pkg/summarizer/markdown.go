package summarizer

import (
	"fmt"
	"strings"
	"time"

	"github.com/ideamans/go-l10n"
)

func init() {
	l10n.Register("ja", l10n.LexiconMap{
		"Reading Summary":     "読書サマリー",
		"Session":             "セッション",
		"Settings":            "設定",
		"Reading":             "読書",
		"Cache":               "キャッシュ",
		"Generated":           "生成日時",
		"Source":              "ソース",
		"Started":             "開始",
		"Duration":            "時間",
		"Last error":          "最後のエラー",
		"Preset":              "プリセット",
		"Style":               "表示形式",
		"Direction":           "方向",
		"Offset first spread": "最初の見開きをずらす",
		"Position":            "位置",
		"Chapters visited":    "表示した章",
		"Position changes":    "位置の変化",
		"Marked read":         "既読にした章",
		"Failed read marks":   "既読化の失敗",
		"Remote requests":     "リモート要求",
		"Cache hits":          "キャッシュヒット",
		"Shared waits":        "共有待機",
		"Failed requests":     "失敗した要求",
		"Evictions":           "削除",
		"Chapters cached":     "キャッシュ中の章",
		"Page sizes known":    "サイズ取得済みページ",
		"Page size failures":  "サイズ取得失敗",
		"Window chapters":     "ウィンドウ内の章",
		"Window trims":        "ウィンドウの切り詰め",
		"%s page %d of %d":    "%s %d / %d ページ",
		"yes":                 "はい",
		"no":                  "いいえ",
		"none":                "なし",
	})
}

// MarkdownFormatter formats a Summary as a Markdown report.
type MarkdownFormatter struct{}

// NewMarkdownFormatter creates a new MarkdownFormatter.
func NewMarkdownFormatter() *MarkdownFormatter {
	return &MarkdownFormatter{}
}

// Format implements Formatter.
func (f *MarkdownFormatter) Format(s *Summary) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", l10n.T("Reading Summary"))
	row(&b, "Generated", s.GeneratedAt.Format("2006-01-02 15:04:05"))
	b.WriteString("\n")

	section(&b, "Session")
	row(&b, "Session", s.Session.ID)
	if s.Session.Source != "" {
		row(&b, "Source", s.Session.Source)
	}
	if !s.Session.StartedAt.IsZero() {
		row(&b, "Started", s.Session.StartedAt.Format("2006-01-02 15:04:05"))
	}
	row(&b, "Duration", s.Session.Duration.Round(time.Second).String())
	if s.Session.LastError != "" {
		row(&b, "Last error", s.Session.LastError)
	}
	b.WriteString("\n")

	section(&b, "Settings")
	if s.Settings.Preset != "" {
		row(&b, "Preset", s.Settings.Preset)
	}
	row(&b, "Style", s.Settings.Style)
	row(&b, "Direction", s.Settings.Direction)
	row(&b, "Offset first spread", yesNo(s.Settings.OffsetFirstSpread))
	b.WriteString("\n")

	section(&b, "Reading")
	if s.Reading.Chapter != "" {
		row(&b, "Position", l10n.F("%s page %d of %d", s.Reading.Chapter, s.Reading.Page, s.Reading.PageCount))
	}
	row(&b, "Chapters visited", list(s.Reading.Visited))
	row(&b, "Position changes", fmt.Sprint(s.Reading.Positions))
	row(&b, "Marked read", list(s.Reading.MarkedRead))
	if s.Reading.MarkReadFailures > 0 {
		row(&b, "Failed read marks", fmt.Sprint(s.Reading.MarkReadFailures))
	}
	b.WriteString("\n")

	section(&b, "Cache")
	row(&b, "Remote requests", fmt.Sprint(s.Cache.Requests))
	row(&b, "Cache hits", fmt.Sprint(s.Cache.Hits))
	row(&b, "Shared waits", fmt.Sprint(s.Cache.Shared))
	row(&b, "Failed requests", fmt.Sprint(s.Cache.Failures))
	row(&b, "Evictions", fmt.Sprint(s.Cache.Evictions))
	row(&b, "Chapters cached", fmt.Sprint(s.Cache.CachedChapters))
	row(&b, "Page sizes known", fmt.Sprint(s.Cache.AspectsKnown))
	row(&b, "Page size failures", fmt.Sprint(s.Cache.AspectFailures))
	if s.Cache.WindowChunks > 0 || s.Cache.WindowTrims > 0 {
		row(&b, "Window chapters", fmt.Sprint(s.Cache.WindowChunks))
		row(&b, "Window trims", fmt.Sprint(s.Cache.WindowTrims))
	}

	return b.String()
}

func section(b *strings.Builder, title string) {
	fmt.Fprintf(b, "## %s\n\n| | |\n|---|---|\n", l10n.T(title))
}

func row(b *strings.Builder, label, value string) {
	fmt.Fprintf(b, "| %s | %s |\n", l10n.T(label), strings.ReplaceAll(value, "|", "\\|"))
}

func yesNo(v bool) string {
	if v {
		return l10n.T("yes")
	}
	return l10n.T("no")
}

func list(items []string) string {
	if len(items) == 0 {
		return l10n.T("none")
	}
	return strings.Join(items, ", ")
}
