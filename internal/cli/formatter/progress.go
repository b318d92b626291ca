package formatter

import (
	"fmt"
	"strings"
)

const (
	filledBlock = "█"
	emptyBlock  = "░"
)

// RenderProgress renders a node's done ratio as [████░░░░] 2/4. The bar is
// green once everyone is done, yellow past half and red below.
func RenderProgress(done, total, width int) string {
	if width < 2 {
		width = 2
	}
	if total <= 0 {
		return fmt.Sprintf("[%s] %s", Dim(strings.Repeat(emptyBlock, width)), Dim("no members"))
	}
	done = min(max(done, 0), total)

	filled := done * width / total
	bar := strings.Repeat(filledBlock, filled) + strings.Repeat(emptyBlock, width-filled)

	style := StyleRed
	switch {
	case done == total:
		style = StyleGreen
	case done*2 >= total:
		style = StyleYellow
	}
	return fmt.Sprintf("[%s] %d/%d", style.Render(bar), done, total)
}

// Sparkline renders counts as a row of block characters scaled to the
// largest value.
func Sparkline(counts []int) string {
	ticks := []rune("▁▂▃▄▅▆▇█")
	peak := 0
	for _, c := range counts {
		peak = max(peak, c)
	}
	var b strings.Builder
	for _, c := range counts {
		if peak == 0 || c <= 0 {
			b.WriteByte(' ')
			continue
		}
		idx := (c*len(ticks) - 1) / peak
		b.WriteString(StyleBlue.Render(string(ticks[idx])))
	}
	return b.String()
}
