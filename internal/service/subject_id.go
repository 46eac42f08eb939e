package service

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// UnknownSubjectID 名称无法生成标识时的占位值
const UnknownSubjectID = "unknown-subject"

var (
	slugInvalid = regexp.MustCompile(`[^a-z0-9\s-]`)
	slugSpaces  = regexp.MustCompile(`\s+`)
	slugHyphens = regexp.MustCompile(`-+`)
)

// SubjectID 由课程名称生成稳定的科目标识：
// 同一科目在不同学期、不同班组下得到相同标识，用于批量标记完成。
//
// 规则：小写 → NFD 分解并去除组合附加符号 → 仅保留 [a-z0-9 空白 -] → 空白转连字符 → 合并/去除首尾连字符。
func SubjectID(name string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	normalized, _, err := transform.String(t, strings.ToLower(name))
	if err != nil {
		return UnknownSubjectID
	}

	slug := slugInvalid.ReplaceAllString(strings.TrimSpace(normalized), "")
	slug = slugSpaces.ReplaceAllString(slug, "-")
	slug = slugHyphens.ReplaceAllString(slug, "-")
	slug = strings.Trim(slug, "-")

	if slug == "" {
		return UnknownSubjectID
	}
	return slug
}
