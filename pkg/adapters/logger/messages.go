package logger

import "github.com/ideamans/go-l10n"

func init() {
	l10n.Register("ja", l10n.LexiconMap{
		// Session (info)
		"Session %s started with %d chapters": "セッション %s を開始しました (%d 章)",
		"Session %s closed":                   "セッション %s を終了しました",
		"Reading %s":                          "%s を表示中",
		"Navigation failed: %s":               "ページ移動に失敗しました: %s",
		"Interrupted, shutting down...":       "中断されました。終了します...",
		"Launching browser":                   "ブラウザを起動中",
		"Browser closed":                      "ブラウザを閉じました",
		"Exported %d spreads to %s":           "%d 枚の見開きを %s に書き出しました",
		"Summary written to %s":               "サマリーを %s に書き出しました",

		// Page cache
		"Cache hit for chapter %s":          "章 %s をキャッシュから取得",
		"Requesting pages of chapter %s":    "章 %s のページ一覧を要求中",
		"Cached chapter %s with %d pages":   "章 %s (%d ページ) をキャッシュしました",
		"Evicted chapter %s":                "章 %s をキャッシュから削除しました",
		"Stopped waiting for chapter %s":    "章 %s の待機を中止しました",
		"Failed to fetch chapter %s: %s":    "章 %s の取得に失敗しました: %s",
		"Prefetch of chapter %s failed: %s": "章 %s の先読みに失敗しました: %s",

		// Aspect oracle and images
		"Failed to measure %s: %s":            "%s のサイズ取得に失敗しました: %s",
		"Image %s has no usable size":         "画像 %s のサイズが不正です",
		"Prewarm stopped: %s":                 "サイズの先読みを中止しました: %s",
		"Preload of %s failed: %v":            "%s の先読みに失敗しました: %v",
		"Failed to decode page %d: %s":        "ページ %d のデコードに失敗しました: %s",
		"Drawing placeholder for page %d: %v": "ページ %d を代替表示します: %v",

		// Strip window
		"Window reset to chapter %s page %d":              "ウィンドウを章 %s の %d ページにリセットしました",
		"Appending chapter %s":                            "章 %s を追加中",
		"Trimmed chapter %s from window":                  "章 %s をウィンドウから外しました",
		"Dropping chapter %s, window was reset":           "ウィンドウがリセットされたため章 %s を破棄します",
		"Could not extend the strip after chapter %s: %s": "章 %s の後に続きを追加できませんでした: %s",
		"Could not measure chapter %s before trimming":    "章 %s の位置を測定できませんでした",
		"Sentinel reached, advancing to chapter %s":       "末尾に到達しました。章 %s へ進みます",
		"Failed to encode window snapshot: %s":            "ウィンドウ状態のエンコードに失敗しました: %s",
		"Failed to save window snapshot: %s":              "ウィンドウ状態の保存に失敗しました: %s",

		// Navigation and tracking
		"Showing chapter %s page %d":               "章 %s の %d ページを表示",
		"Failed to open chapter %s: %s":            "章 %s を開けませんでした: %s",
		"Failed to save navigation state: %s":      "ナビゲーション状態の保存に失敗しました: %s",
		"Chapter changed from %s to %s":            "章が %s から %s に変わりました",
		"Ignoring position in uncached chapter %s": "キャッシュにない章 %s の位置を無視します",

		// Read state
		"Marked chapter %s read":             "章 %s を既読にしました",
		"Failed to mark chapter %s read: %s": "章 %s を既読にできませんでした: %s",

		// Composition
		"Compositing %d spreads with %d workers": "%d 枚の見開きを %d ワーカーで合成中",
		"Composition completed":                  "合成が完了しました",
		"Failed to save spread %d: %v":           "見開き %d の保存に失敗しました: %v",

		// Export
		"Exporting %d chapters":                       "%d 章を書き出し中",
		"Failed to export chapter %s: %s":             "章 %s の書き出しに失敗しました: %s",
		"Exported chapter %s: %d pages in %d spreads": "章 %s を書き出しました: %d ページ、%d 見開き",
		"Export completed successfully":               "書き出しが完了しました",

		// Adapters
		"Retrying request (attempt %d): %v":  "リクエストを再試行中 (%d 回目): %v",
		"Found %d chapters in %s":            "%d 章を %s で見つけました",
		"Failed to read scroll position: %v": "スクロール位置の取得に失敗しました: %v",
		"Failed to scroll: %v":               "スクロールに失敗しました: %v",
		"Failed to measure page %s/%d: %v":   "ページ %s/%d の位置を測定できませんでした: %v",
		"Failed to measure sentinel: %v":     "末尾位置を測定できませんでした: %v",
		"Visibility poll failed: %v":         "表示状態の取得に失敗しました: %v",
	})
}
