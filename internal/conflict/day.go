package conflict

import (
	"fmt"
	"strings"
)

// Day 星期枚举，取值为小写英文星期名
type Day string

const (
	Monday    Day = "monday"
	Tuesday   Day = "tuesday"
	Wednesday Day = "wednesday"
	Thursday  Day = "thursday"
	Friday    Day = "friday"
	Saturday  Day = "saturday"
	Sunday    Day = "sunday"
)

// DaySet 有序的可排课星期集合
type DaySet []Day

// ── 版本化星期集合 ──
//
// 已存储的课程可能来自旧版本（仅周一至周五），
// 调用方应通过 CurrentDaySet 校验，而不是在各处硬编码星期列表。

var (
	// DaySetV1 初版：周一至周五
	DaySetV1 = DaySet{Monday, Tuesday, Wednesday, Thursday, Friday}
	// DaySetV2 当前版本：增加周六
	DaySetV2 = DaySet{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday}

	// CurrentDaySet 新数据校验所用的星期集合
	CurrentDaySet = DaySetV2
)

// Contains 判断星期是否属于集合
func (s DaySet) Contains(d Day) bool {
	for _, v := range s {
		if v == d {
			return true
		}
	}
	return false
}

// Strings 返回字符串形式（用于错误提示与校验标签）
func (s DaySet) Strings() []string {
	out := make([]string, len(s))
	for i, d := range s {
		out[i] = string(d)
	}
	return out
}

// ParseDay 按当前星期集合解析星期名（忽略大小写与首尾空白）
func ParseDay(raw string) (Day, error) {
	d := Day(strings.ToLower(strings.TrimSpace(raw)))
	if !CurrentDaySet.Contains(d) {
		return "", fmt.Errorf("无效的星期 %q，可选值: %s", raw, strings.Join(CurrentDaySet.Strings(), ", "))
	}
	return d, nil
}

// Offset 返回相对周一的天数偏移（monday=0 … sunday=6），未知星期返回 -1
func (d Day) Offset() int {
	switch d {
	case Monday:
		return 0
	case Tuesday:
		return 1
	case Wednesday:
		return 2
	case Thursday:
		return 3
	case Friday:
		return 4
	case Saturday:
		return 5
	case Sunday:
		return 6
	}
	return -1
}
