package summarizer

import (
	"fmt"
	"strings"
	"time"
)

// MarkdownFormatter renders a Summary as a Markdown report.
type MarkdownFormatter struct{}

// NewMarkdownFormatter creates a new MarkdownFormatter.
func NewMarkdownFormatter() *MarkdownFormatter {
	return &MarkdownFormatter{}
}

// Format implements the Formatter interface.
func (f *MarkdownFormatter) Format(s *Summary) string {
	var b strings.Builder

	b.WriteString("# Video Summary\n\n")
	fmt.Fprintf(&b, "Generated: %s\n\n", s.GeneratedAt.Format(time.RFC3339))

	b.WriteString("## Source\n\n")
	b.WriteString("| Item | Value |\n|------|-------|\n")
	fmt.Fprintf(&b, "| Path | %s |\n", s.Source.Path)
	fmt.Fprintf(&b, "| Size | %s |\n", formatBytes(s.Source.Size))
	fmt.Fprintf(&b, "| Streams | %d (%d video) |\n\n", s.Source.Streams, s.Source.Video)

	b.WriteString("## Video Stream\n\n")
	b.WriteString("| Item | Value |\n|------|-------|\n")
	fmt.Fprintf(&b, "| Index | %d |\n", s.Stream.Index)
	fmt.Fprintf(&b, "| Codec | %s |\n", s.Stream.Codec)
	fmt.Fprintf(&b, "| Resolution | %dx%d |\n", s.Stream.Width, s.Stream.Height)
	fmt.Fprintf(&b, "| Frame Rate | %.3f fps |\n", s.Stream.FPS)
	fmt.Fprintf(&b, "| Time Base | %s |\n", s.Stream.TimeBase)
	if s.Stream.Rotation != 0 {
		fmt.Fprintf(&b, "| Rotation | %g° |\n", s.Stream.Rotation)
	}
	b.WriteString("\n")

	b.WriteString("## Frame Index\n\n")
	b.WriteString("| Item | Value |\n|------|-------|\n")
	fmt.Fprintf(&b, "| Frames | %d |\n", s.Index.Frames)
	fmt.Fprintf(&b, "| Keyframes | %d |\n", s.Index.Keyframes)
	fmt.Fprintf(&b, "| Longest GOP | %d frames |\n", s.Index.MaxGOP)
	fmt.Fprintf(&b, "| Duration | %s |\n", formatSeconds(s.Index.Duration))
	if s.Index.Degraded {
		b.WriteString("| Timestamps | Duplicate or non-monotonic (best effort) |\n")
	}
	b.WriteString("\n")

	if st := s.Settings; st != (Settings{}) {
		b.WriteString("## Settings\n\n")
		b.WriteString("| Item | Value |\n|------|-------|\n")
		fmt.Fprintf(&b, "| Engine | %s |\n", st.Engine)
		if st.Decoder != "" {
			fmt.Fprintf(&b, "| Decoder | %s |\n", st.Decoder)
		}
		fmt.Fprintf(&b, "| IO | %s |\n", st.IO)
		fmt.Fprintf(&b, "| Threads | %s |\n", formatThreads(st.Threads))
		fmt.Fprintf(&b, "| Fault Tolerance | %s |\n\n", formatFaultTol(st.FaultTol))
	}

	if e := s.Extraction; e != nil {
		b.WriteString("## Extraction\n\n")
		b.WriteString("| Item | Value |\n|------|-------|\n")
		fmt.Fprintf(&b, "| Frames | %d |\n", e.Frames)
		fmt.Fprintf(&b, "| Frame Size | %dx%d |\n", e.FrameWidth, e.FrameHeight)
		fmt.Fprintf(&b, "| Substituted | %s |\n", formatPositions(e.Failed))
		if e.SheetPath != "" {
			fmt.Fprintf(&b, "| Contact Sheet | %s (%s) |\n", e.SheetPath, formatBytes(e.SheetSize))
		}
		fmt.Fprintf(&b, "| Elapsed | %d ms |\n", e.ElapsedMs)
	}

	return b.String()
}

func formatBytes(n int64) string {
	const unit = 1024
	switch {
	case n >= unit*unit*unit:
		return fmt.Sprintf("%.2f GB", float64(n)/(unit*unit*unit))
	case n >= unit*unit:
		return fmt.Sprintf("%.2f MB", float64(n)/(unit*unit))
	case n >= unit:
		return fmt.Sprintf("%.2f KB", float64(n)/unit)
	default:
		return fmt.Sprintf("%d B", n)
	}
}

func formatSeconds(sec float64) string {
	d := time.Duration(sec * float64(time.Second)).Round(time.Millisecond)
	return fmt.Sprintf("%.3f s (%s)", sec, d)
}

func formatThreads(n int) string {
	if n <= 0 {
		return "auto"
	}
	return fmt.Sprintf("%d", n)
}

func formatFaultTol(s string) string {
	if s == "" || s == "-1" {
		return "disabled"
	}
	return s
}

func formatPositions(p []int64) string {
	if len(p) == 0 {
		return "none"
	}
	const limit = 10
	parts := make([]string, 0, min(len(p), limit))
	for _, pos := range p[:min(len(p), limit)] {
		parts = append(parts, fmt.Sprintf("%d", pos))
	}
	out := strings.Join(parts, ", ")
	if len(p) > limit {
		out += fmt.Sprintf(" (+%d more)", len(p)-limit)
	}
	return fmt.Sprintf("%d (%s)", len(p), out)
}
