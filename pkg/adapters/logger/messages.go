package logger

import "github.com/ideamans/go-l10n"

func init() {
	l10n.Register("ja", l10n.LexiconMap{
		// Orchestration level messages (info)
		"Converting %s at %s fps (%s)":  "%s を %s fps (%s) で変換中",
		"Sampling with %d workers":      "%d ワーカーでサンプリング中",
		"Sampled %d frames: %d events":  "%d フレームをサンプリングしました: %d イベント",
		"Output saved to %s":            "出力を %s に保存しました",
		"Interrupted, shutting down...": "中断されました。シャットダウン中...",

		// Sample stage
		"Sampling finished at frame %d: %d samples, %d jumps, %d events": "フレーム %d でサンプリング完了: %d サンプル, %d ジャンプ, %d イベント",
		"Changed sample with nothing visible at frame %d":                "フレーム %d で変化がありましたが表示内容がありません",
		"Event %d opened at frame %d, box %dx%d+%d+%d":                   "イベント %d をフレーム %d で開始, 領域 %dx%d+%d+%d",
		"Idle at frame %d, jumping %d frames":                            "フレーム %d で変化なし, %d フレームをスキップ",

		// Quantize stage
		"Palette is full with an opaque last entry, retrying with %d colors": "パレットが不透明色で埋まりました。%d 色で再試行します",

		// Encode stage
		"Event %d split %s at %d: %d -> %d pixels": "イベント %d を %s に %d で分割: %d -> %d ピクセル",

		// Warnings
		"Failed to close rendering engine: %s":          "レンダリングエンジンの終了に失敗しました: %s",
		"Failed to save debug frame %d: %s":             "デバッグフレーム %d の保存に失敗しました: %s",
		"Failed to save debug events: %s":               "デバッグイベントの保存に失敗しました: %s",
		"Failed to write %s: %s":                        "%s の書き込みに失敗しました: %s",
		"Failed to write summary: %s":                   "サマリーの書き込みに失敗しました: %s",
		"No events were produced, skipping description": "イベントが生成されなかったため、記述ファイルを省略します",
		"%d events have missing bitmaps":                "%d 件のイベントでビットマップが欠落しています",

		// Errors
		"Failed to open script: %s":             "スクリプトを開けませんでした: %s",
		"Failed to create output directory: %s": "出力ディレクトリの作成に失敗しました: %s",
		"Failed to convert script: %s":          "スクリプトの変換に失敗しました: %s",
		"Failed to build description: %s":       "記述ファイルの構築に失敗しました: %s",
		"Failed to write description: %s":       "記述ファイルの書き込みに失敗しました: %s",

		// Summary labels
		"Subtitle Summary":  "字幕サマリー",
		"Track":             "トラック",
		"Item":              "項目",
		"Value":             "値",
		"Track Name":        "トラック名",
		"Language":          "言語",
		"Format":            "フォーマット",
		"Content":           "コンテンツ",
		"Events":            "イベント",
		"Sampling":          "サンプリング",
		"Samples":           "サンプル数",
		"Idle Jumps":        "スキップ回数",
		"Merged Samples":    "統合サンプル数",
		"Empty Changes":     "空の変化",
		"Frames Covered":    "対象フレーム数",
		"Output":            "出力",
		"Bitmaps":           "ビットマップ数",
		"Bitmap Area":       "ビットマップ面積",
		"Uncompressed Size": "非圧縮サイズ",
		"Palette Retries":   "パレット再試行",
		"Write Failures":    "書き込み失敗",
		"Elapsed":           "経過時間",
		"Missing Bitmaps":   "欠落ビットマップ",
		"Generated at":      "生成日時",
	})
}
