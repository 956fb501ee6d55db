// Package main provides localization for the ass2bdnxml CLI.
package main

import (
	"github.com/ideamans/go-l10n"
)

func init() {
	// Register Japanese translations for CLI messages.
	// Labels shared with the summary are registered by the logger package.
	l10n.Register("ja", l10n.LexiconMap{
		// Flag categories
		"Style":   "スタイル",
		"Timing":  "タイミング",
		"Palette": "パレット",
		"Logging": "ログ",

		// Root command
		"Convert subtitle scripts to BDN XML and PNG bitmaps": "字幕スクリプトを BDN XML と PNG ビットマップに変換",
		"exactly one subtitle script is required":             "字幕スクリプトを1つだけ指定してください",

		// Commands
		"List supported frame rates and video formats": "対応するフレームレートと映像フォーマットを一覧表示",
		"Show version information":                     "バージョン情報を表示",
		"ass2bdnxml (Go) version %s":                   "ass2bdnxml (Go版) バージョン %s",
		"Frame rates":                                  "フレームレート",
		"Video formats":                                "映像フォーマット",
		"timecode base":                                "タイムコード基数",

		// General flags
		"YAML configuration file": "YAML設定ファイル",
		"Preset (bluray, dvd)":    "プリセット（bluray, dvd）",

		// Track flags
		"Track name":                         "トラック名",
		"Language code (ISO 639 or BCP 47)": "言語コード（ISO 639 または BCP 47）",

		// Format flags
		"Video format (1080p, 1080i, 720p, 576i, 480p, 480i)": "映像フォーマット（1080p, 1080i, 720p, 576i, 480p, 480i）",
		"Frame rate (23.976, 24, 25, 29.97, 50, 59.94)":       "フレームレート（23.976, 24, 25, 29.97, 50, 59.94）",
		"Render width (default: video width)":                 "描画幅（デフォルト: 映像の幅）",
		"Render height (default: video height)":               "描画高さ（デフォルト: 映像の高さ）",
		"Script storage width":                                "スクリプトの座標系の幅",
		"Script storage height":                               "スクリプトの座標系の高さ",
		"Pixel aspect ratio":                                  "ピクセルアスペクト比",

		// Style flags
		"Font directory":                            "フォントディレクトリ",
		"Enable font hinting":                       "フォントヒンティングを有効化",
		"Default font size at storage height":       "座標系の高さに対するデフォルトのフォントサイズ",
		"Default outline width":                     "デフォルトの縁取り幅",
		"Default fill color (hex, e.g., #ffffff)":   "デフォルトの文字色（16進数、例: #ffffff）",
		"Default outline color (hex, e.g., #000000)": "デフォルトの縁取り色（16進数、例: #000000）",

		// Timing flags
		"Timecode offset (HH:MM:SS:FF)":                          "タイムコードのオフセット（HH:MM:SS:FF）",
		"Subtract the offset instead of adding it":               "オフセットを加算せず減算する",
		"Content in timecode policy (auto, first-event, offset)": "コンテンツ開始タイムコードの決め方（auto, first-event, offset）",

		// Bitmap flags
		"Use the nonlinear DVD alpha":                                      "DVD向けの非線形アルファを使用",
		"Dimming factor for visible pixels (0-1)":                          "表示ピクセルの減光係数（0-1）",
		"Output full frame bitmaps":                                        "フレーム全体のビットマップを出力",
		"Minimum bitmap side in pixels":                                    "ビットマップの最小辺（ピクセル）",
		"Split mode (0 off, 1 horizontal, 2 auto, 3 both)":                 "分割モード（0 無効, 1 水平, 2 自動, 3 両方）",
		"Allow split bitmaps to overlap":                                   "分割ビットマップの重なりを許可",
		"Margin around horizontal cuts":                                    "水平分割の余白",
		"Margin around vertical cuts":                                      "垂直分割の余白",
		"Minimum region area before splitting, as a fraction of the frame": "分割を行う最小領域（フレームに対する割合）",

		// Palette flags
		"Palette size (0 = RGBA output, 1-256)":         "パレットサイズ（0 = RGBA出力, 1-256）",
		"Quantizer quality (0-100)":                     "減色の品質（0-100）",
		"Quantizer speed (1-10)":                        "減色の速度（1-10）",
		"Dithering level (0 disables)":                  "ディザリングの強さ（0 で無効）",
		"Reserve palette entry 0 for run-length coding": "ランレングス符号化のためにパレット0番を予約",
		"Quantize split bitmaps separately":             "分割ビットマップを個別に減色",

		// Sampling flags
		"Keep consecutive identical events":           "連続する同一イベントを保持",
		"Sample every Nth frame (0 = every frame)":    "Nフレームごとにサンプリング（0 = 全フレーム）",
		"Parallel bitmap workers (0 = number of CPUs)": "並列ビットマップワーカー数（0 = CPU数）",

		// Output flags
		"Output directory":           "出力ディレクトリ",
		"Markdown summary file path": "Markdownサマリーのファイルパス",
		"Enable debug output":        "デバッグ出力を有効化",
		"Directory for debug output (relative to the output directory)": "デバッグ出力先ディレクトリ（出力ディレクトリからの相対パス）",

		// Logging flags
		"Log level (debug, info, warn, error)": "ログレベル（debug, info, warn, error）",
		"Suppress all log output":              "すべてのログ出力を抑制",
	})
}
