package segmenter

import (
	"regexp"
	"strings"
)

var (
	pageArtifactRe = regexp.MustCompile(`(?i)^\s*(?:page\s+\d+(?:\s*(?:of|/)\s*\d+)?|\d+\s*/\s*\d+|-\s*\d+\s*-)\s*$`)
	// 三个及以上空格压缩为两个，保留列分隔
	wideGapRe   = regexp.MustCompile(` {3,}`)
	invisibleRe = regexp.MustCompile(`[\x{200b}\x{200c}\x{200d}\x{feff}]`)
)

// CleanText 规范换行、去掉页码行、压缩行内空白，保留行首缩进和空行分隔
func CleanText(text string) string {
	if text == "" {
		return ""
	}
	text = strings.NewReplacer("\r\n", "\n", "\r", "\n", "\f", "\n", "\u00a0", " ", "\v", "\n").Replace(text)
	text = invisibleRe.ReplaceAllString(text, "")

	var out []string
	blank := false
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, " \t")
		if pageArtifactRe.MatchString(line) {
			continue
		}
		if strings.TrimSpace(line) == "" {
			// 连续空行只保留一个
			if !blank && len(out) > 0 {
				out = append(out, "")
			}
			blank = true
			continue
		}
		blank = false
		body := strings.TrimLeft(line, " \t")
		indent := line[:len(line)-len(body)]
		out = append(out, indent+wideGapRe.ReplaceAllString(body, "  "))
	}
	return strings.TrimRight(strings.Join(out, "\n"), "\n")
}
