package main

import (
	"github.com/ideamans/go-l10n"
)

func init() {
	// Register Japanese translations for CLI help and messages
	l10n.Register("ja", l10n.LexiconMap{
		// Application and commands
		"Read manga from a Suwayomi server or its downloads directory.": "Suwayomi サーバーまたはダウンロードディレクトリの漫画を読む",
		"Read in the terminal, one page or spread at a time.":           "ターミナルで1ページまたは見開きずつ読む",
		"Read as a continuous vertical strip in a Chrome window.":       "Chrome ウィンドウで縦スクロールとして読む",
		"Print the two-page spreads of a chapter.":                      "章の見開き構成を表示",
		"Compose the spreads of a chapter into PNG files.":              "章の見開きを PNG ファイルに合成",
		"Show disk usage of the downloads directory.":                   "ダウンロードディレクトリのディスク使用量を表示",
		"Show version information.":                                     "バージョン情報を表示",
		"moku version %s":                                               "moku バージョン %s",

		// Global flags
		"Configuration file (YAML)":                    "設定ファイル（YAML）",
		"Suwayomi server URL (env: MOKU_SERVER)":       "Suwayomi サーバーの URL（環境変数: MOKU_SERVER）",
		"Server user name (env: MOKU_USERNAME)":        "サーバーのユーザー名（環境変数: MOKU_USERNAME）",
		"Server password (env: MOKU_PASSWORD)":         "サーバーのパスワード（環境変数: MOKU_PASSWORD）",
		"Reading preset (manga, webtoon, comic)":       "読書プリセット（manga, webtoon, comic）",
		"Presentation style (single, spread, scroll)":  "表示スタイル（single, spread, scroll）",
		"Reading direction (ltr, rtl)":                 "読む方向（ltr, rtl）",
		"Show the first page alone in spread mode":     "見開き表示で最初のページを単独で表示",
		"Path to Chrome executable (env: CHROME_PATH)": "Chrome実行ファイルのパス（環境変数: CHROME_PATH）",
		"Run browser in headless mode":                 "ブラウザをヘッドレスモードで実行",
		"Enable debug output":                          "デバッグ出力を有効化",
		"Directory for debug output":                   "デバッグ出力のディレクトリ",
		"Log level (debug, info, warn, error)":         "ログレベル（debug, info, warn, error）",
		"Suppress all log output":                      "全てのログ出力を抑制",

		// Source flags
		"Manga id on the server":                          "サーバー上の漫画 ID",
		"Manga directory inside the downloads directory":  "ダウンロードディレクトリ内の漫画ディレクトリ",
		"Chapter id to start at (default: first chapter)": "開始する章の ID（デフォルト: 最初の章）",
		"Page to start at":                                "開始ページ",

		// Command flags
		"Write log output to file while reading":               "読書中のログをファイルに出力",
		"Write a session summary to file (Markdown format)":    "セッションのサマリーをファイルに出力（Markdown形式）",
		"Strip width in pixels":                                "縦スクロールの幅（ピクセル）",
		"Output directory":                                     "出力ディレクトリ",
		"Export every chapter":                                 "全ての章を書き出す",
		"Spread height in pixels (default: 1200)":              "見開きの高さ（ピクセル、デフォルト: 1200）",
		"Gap between paired pages in pixels":                   "見開きページ間の隙間（ピクセル）",
		"Background color (hex, e.g., #141414)":                "背景色（16進数、例: #141414）",
		"Downloads directory (default: server data directory)": "ダウンロードディレクトリ（デフォルト: サーバーのデータディレクトリ）",
		"Print as JSON":                                        "JSON で表示",

		// Runtime messages
		"Failed to write summary: %s":  "サマリーの書き込みに失敗しました: %s",
		"%s: %d pages, %d groups (%s)": "%s: %d ページ, %d グループ (%s)",
		"Downloads: %s":                "ダウンロード: %s",
		"Manga:     %s":                "漫画:         %s",
		"Total:     %s":                "合計:         %s",
		"Free:      %s":                "空き:         %s",

		// Terminal reader
		"Page %d/%d":                   "%d/%d ページ",
		"offset":                       "オフセット",
		"loading...":                   "読み込み中...",
		"Go to page: %s":               "移動先ページ: %s",
		"End of series.":               "シリーズの最後です。",
		"Already at the first chapter": "最初の章です",
		"No more chapters":             "これ以上章はありません",
		"←/→: page  SPACE/BS: next/prev  [/]: chapter  G: jump  S: style  D: direction  O: offset  Q: quit": "←/→: ページ  SPACE/BS: 次/前  [/]: 章  G: 移動  S: スタイル  D: 方向  O: オフセット  Q: 終了",
	})
}
