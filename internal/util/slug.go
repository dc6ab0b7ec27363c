package util

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// isArabicDiacritic 阿拉伯语变音符号（tashkeel）、上标 alef 与 tatweel
func isArabicDiacritic(r rune) bool {
	return (r >= 0x064B && r <= 0x065F) ||
		r == 0x0670 ||
		(r >= 0x06D6 && r <= 0x06ED) ||
		r == 0x0640
}

func isSlugRune(r rune) bool {
	if unicode.IsDigit(r) || r == '-' {
		return true
	}
	if !unicode.IsLetter(r) {
		return false
	}
	return unicode.In(r, unicode.Latin, unicode.Arabic)
}

// Slugify 生成课程 slug：NFC 规范化、小写、空白与下划线转连字符，
// 去除阿拉伯语变音符号，只保留阿拉伯/拉丁字母、数字与连字符
func Slugify(title string) string {
	s := strings.ToLower(norm.NFC.String(title))

	var b strings.Builder
	pendingHyphen := false
	for _, r := range s {
		switch {
		case unicode.IsSpace(r) || r == '_' || r == '-':
			pendingHyphen = true
			continue
		case isArabicDiacritic(r):
			continue
		case !isSlugRune(r):
			continue
		}
		if pendingHyphen && b.Len() > 0 {
			b.WriteByte('-')
		}
		pendingHyphen = false
		b.WriteRune(r)
	}
	return b.String()
}

// CourseSlug 标题得到空 slug 时回退为 course-{id}
func CourseSlug(title string, id uint) string {
	if s := Slugify(title); s != "" {
		return s
	}
	return FallbackCourseSlug(id)
}

func FallbackCourseSlug(id uint) string {
	return fmt.Sprintf("course-%d", id)
}
