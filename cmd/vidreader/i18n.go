// Package main provides localization for the vidreader CLI.
package main

import (
	"github.com/ideamans/go-l10n"
)

func init() {
	// Register Japanese translations for CLI messages.
	l10n.Register("ja", l10n.LexiconMap{
		// Flag categories
		"Configuration": "設定",
		"Logging":       "ログ",
		"Selection":     "フレーム選択",
		"Output":        "出力先",
		"Contact Sheet": "コンタクトシート",

		// Root command
		"Random access video frame reader": "ランダムアクセス可能な動画フレームリーダー",

		// Global flags
		"YAML configuration file":                               "YAML設定ファイル",
		"Codec engine (mp4, or astiav when built with it)":      "コーデックエンジン（mp4、ビルド時に有効化した場合は astiav）",
		"Path to the ffmpeg executable used for H.264":          "H.264のデコードに使うffmpeg実行ファイルのパス",
		"Log level (debug, info, warn, error)":                  "ログレベル（debug, info, warn, error）",
		"Log format (text, json, logfmt)":                       "ログ形式（text, json, logfmt）",
		"Suppress all log output":                               "全てのログ出力を抑制",
		"Serve Prometheus metrics on this address (e.g. :9090)": "このアドレスでPrometheusメトリクスを公開（例: :9090）",

		// Commands
		"Show stream and index information":                "ストリームとインデックスの情報を表示",
		"List keyframe positions and timestamps":           "キーフレームの位置とタイムスタンプを一覧表示",
		"Extract frames and compose a contact sheet":       "フレームを抽出しコンタクトシートを作成",
		"Decode frames sequentially and report throughput": "フレームを順にデコードし処理速度を表示",
		"Show version information":                         "バージョン情報を表示",
		"vidreader version %s":                             "vidreader バージョン %s",

		// Info and keyframes flags
		"Print JSON instead of Markdown":               "MarkdownではなくJSONで出力",
		"Write the report to a file instead of stdout": "標準出力ではなくファイルにレポートを書き込む",
		"Print JSON instead of a table":                "表ではなくJSONで出力",

		// Extract flags
		"Comma separated frame positions":                    "カンマ区切りのフレーム位置",
		"Select every keyframe":                              "全てのキーフレームを選択",
		"Number of evenly spaced frames":                     "等間隔に選ぶフレーム数",
		"Step between selected frames":                       "選択するフレームの間隔",
		"First frame of the range":                           "範囲の最初のフレーム",
		"End of the range, exclusive (0 = end of stream)":    "範囲の終端（含まない、0 = ストリームの終端）",
		"Frames decoded per batch":                           "バッチごとにデコードするフレーム数",
		"Output frame width (0 = native)":                    "出力フレームの幅（0 = 元のサイズ）",
		"Output frame height (0 = native)":                   "出力フレームの高さ（0 = 元のサイズ）",
		"Directory for frame images and index.json":          "フレーム画像とindex.jsonの出力ディレクトリ",
		"Do not write frame images":                          "フレーム画像を書き出さない",
		"Frame image format (png, jpeg)":                     "フレーム画像の形式（png, jpeg）",
		"JPEG quality (1-100)":                               "JPEG品質（1-100）",
		"Write an execution summary (Markdown) to this file": "実行サマリー（Markdown）をこのファイルに書き込む",
		"Contact sheet output path (.png or .jpg)":           "コンタクトシートの出力パス（.png または .jpg）",
		"Contact sheet columns":                              "コンタクトシートのカラム数",
		"Thumbnail width in pixels":                          "サムネイルの幅（ピクセル）",
		"Hide thumbnail labels":                              "サムネイルのラベルを非表示",

		// Play flags
		"Start at this frame (accurate seek)":   "このフレームから開始（正確なシーク）",
		"Stop after this many frames (0 = all)": "このフレーム数で停止（0 = 全て）",
		"Print one line per frame":              "フレームごとに1行出力",

		// Runtime messages
		"Extracted %d of %d frames at %dx%d":    "%d / %d フレームを %dx%d で抽出しました",
		"Substituted frames: %v":                "代替されたフレーム: %v",
		"Contact sheet saved to %s":             "コンタクトシートを %s に保存しました",
		"Decoded %d frames in %d ms (%.1f fps)": "%d フレームを %d ms でデコードしました (%.1f fps)",
		"Summary saved to %s":                   "サマリーを %s に保存しました",

		// Error messages
		"Exactly one video argument is required": "動画の引数を1つだけ指定してください",
		"Unsupported frame format: %s":           "未対応のフレーム形式です: %s",
	})
}
