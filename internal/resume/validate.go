package resume

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	minResumeChars = 100
	maxResumeChars = 10000
)

// Validate judges whether resume text has a usable length. Length is counted
// in characters after trimming surrounding whitespace; both bounds are
// inclusive of the acceptable range.
func Validate(text string) (verdict string) {
	defer func() {
		if r := recover(); r != nil {
			verdict = fmt.Sprintf("简历文本验证失败: %v", r)
		}
	}()

	length := utf8.RuneCountInString(strings.TrimSpace(text))
	switch {
	case length < minResumeChars:
		return fmt.Sprintf("⚠️ 简历内容过短（仅%d字），建议补充更多详细信息，包括：教育背景、工作经历、技能、项目经验等。", length)
	case length > maxResumeChars:
		return fmt.Sprintf("⚠️ 简历内容过长（%d字），建议精简内容，突出重点，控制在1-2页（约1000-3000字）之间。", length)
	default:
		return fmt.Sprintf("✅ 简历文本长度适中（%d字），可以进行分析。", length)
	}
}
