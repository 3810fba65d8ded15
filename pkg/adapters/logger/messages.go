package logger

import "github.com/ideamans/go-l10n"

func init() {
	l10n.Register("ja", l10n.LexiconMap{
		// Orchestration level messages (info)
		"Starting extraction":           "抽出を開始します",
		"Selected %d of %d frames":      "%d / %d フレームを選択しました",
		"Extracted %d frames at %dx%d":  "%d フレームを %dx%d で抽出しました",
		"Composing %dx%d contact sheet": "%dx%d のコンタクトシートを作成中",
		"Extraction completed in %d ms": "抽出が %d ms で完了しました",
		"Interrupted, shutting down...": "中断されました。シャットダウン中...",

		// Reader
		"Opened video stream %d: %s %dx%d":                                   "動画ストリーム %d を開きました: %s %dx%d",
		"Indexed %d frames, %d keyframes in %d ms":                           "%d フレーム、%d キーフレームを %d ms でインデックス化しました",
		"Stream has duplicate timestamps, index is best effort":              "ストリームに重複したタイムスタンプがあります。インデックスは近似です",
		"Seek to frame %d landed on keyframe %d":                             "フレーム %d へのシークはキーフレーム %d に到達しました",
		"Accurate seek to frame %d from keyframe %d":                         "キーフレーム %d からフレーム %d へ正確にシーク中",
		"Seek to keyframe %d resumed at frame %d, retrying from %d":          "キーフレーム %d へのシークがフレーム %d から再開されました。%d から再試行します",
		"Seek to frame %d failed: decoder resumed at frame %d":               "フレーム %d へのシークに失敗しました: デコーダはフレーム %d から再開しました",
		"Seek to pts %d failed: %s":                                          "pts %d へのシークに失敗しました: %s",
		"Frame with pts %d is not in the index, assuming frame %d":           "pts %d のフレームはインデックスにありません。フレーム %d とみなします",
		"Frame %d could not be decoded, substituting the previous frame: %s": "フレーム %d をデコードできません。直前のフレームで代替します: %s",
		"Fault tolerance exceeded: %d substituted frames, limit %d":          "耐障害性の上限を超えました: 代替フレーム %d、上限 %d",
		"Batch of %d frames served with %d seeks in %d ms":                   "%d フレームのバッチを %d 回のシークで %d ms で返しました",
		"Reader closed": "リーダーを閉じました",

		// Extract stage
		"Extracting %d frames in batches of %d": "%d フレームを %d 件ずつ抽出中",
		"Extracted %d frames, %d substituted":   "%d フレームを抽出しました (代替 %d)",

		// Sheet stage
		"Compositing %d frames with %d workers": "%d フレームを %d ワーカーで合成中",
		"Composition completed":                 "合成が完了しました",

		// Encode stage
		"Encoded %dx%d image into %d bytes": "%dx%d の画像を %d バイトにエンコードしました",

		// Warnings
		"%d frames were substituted": "%d フレームが代替されました",

		// Errors
		"Failed to index stream: %s":          "ストリームのインデックス化に失敗しました: %s",
		"Failed to extract frames: %s":        "フレームの抽出に失敗しました: %s",
		"Failed to serialize index: %s":       "インデックスのシリアライズに失敗しました: %s",
		"Failed to save index: %s":            "インデックスの保存に失敗しました: %s",
		"Failed to compose contact sheet: %s": "コンタクトシートの作成に失敗しました: %s",
		"Failed to encode contact sheet: %s":  "コンタクトシートのエンコードに失敗しました: %s",
		"Failed to save contact sheet: %v":    "コンタクトシートの保存に失敗しました: %v",
		"Failed to write output: %s":          "出力の書き込みに失敗しました: %s",
		"Metrics server listening on %s":      "メトリクスサーバーを %s で待ち受けています",
		"Metrics server failed: %s":           "メトリクスサーバーでエラーが発生しました: %s",
	})
}
