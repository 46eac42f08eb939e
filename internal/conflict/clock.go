package conflict

import (
	"fmt"
)

// Clock 一天内的时刻，以距 00:00 的分钟数表示。
// 取值范围 [0, 1440]，其中 1440 即 "24:00"，表示当天结束，不回绕到次日 00:00。
type Clock int

const (
	// Midnight 00:00
	Midnight Clock = 0
	// EndOfDay 24:00，仅作为结束时间的上界使用
	EndOfDay Clock = 24 * 60
)

// ParseClock 解析零填充的 24 小时制 "HH:MM"。
// 接受 00:00–23:59 以及 24:00。
func ParseClock(s string) (Clock, error) {
	if len(s) != 5 || s[2] != ':' {
		return 0, fmt.Errorf("时间格式无效 %q，应为 HH:MM", s)
	}
	for _, i := range []int{0, 1, 3, 4} {
		if s[i] < '0' || s[i] > '9' {
			return 0, fmt.Errorf("时间格式无效 %q，应为 HH:MM", s)
		}
	}
	hours := int(s[0]-'0')*10 + int(s[1]-'0')
	minutes := int(s[3]-'0')*10 + int(s[4]-'0')

	if minutes > 59 {
		return 0, fmt.Errorf("分钟超出范围 %q", s)
	}
	if hours > 24 || (hours == 24 && minutes != 0) {
		return 0, fmt.Errorf("小时超出范围 %q", s)
	}
	return Clock(hours*60 + minutes), nil
}

// MustParseClock 解析失败时 panic，仅用于常量与测试
func MustParseClock(s string) Clock {
	c, err := ParseClock(s)
	if err != nil {
		panic(err)
	}
	return c
}

// String 输出 "HH:MM"
func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

// Hour 小时部分
func (c Clock) Hour() int { return int(c) / 60 }

// Minute 分钟部分
func (c Clock) Minute() int { return int(c) % 60 }

// Before 严格早于
func (c Clock) Before(o Clock) bool { return c < o }

// After 严格晚于
func (c Clock) After(o Clock) bool { return c > o }

// Compare 三路比较：c<o 返回 -1，相等返回 0，c>o 返回 1
func Compare(c, o Clock) int {
	switch {
	case c < o:
		return -1
	case c > o:
		return 1
	}
	return 0
}
