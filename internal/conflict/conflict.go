// Package conflict 课程时间冲突检测核心。
//
// 纯函数实现：无 I/O、无全局可变状态，可在任意 goroutine 中并发调用。
// 输入合法性（start < end、星期取值）由调用方在调用前保证。
package conflict

// TimeSlot 每周重复的一个上课时段
type TimeSlot struct {
	Day   Day
	Start Clock
	End   Clock
}

// Valid 判断时段是否满足 Start < End 且星期属于当前集合
func (t TimeSlot) Valid() bool {
	return t.Start < t.End && CurrentDaySet.Contains(t.Day)
}

// Course 冲突检测所需的课程视图
type Course struct {
	ID         string
	Name       string
	Schedule   []TimeSlot
	InCalendar bool
}

// Conflict 跨课程冲突结果
type Conflict struct {
	// Course 与候选课程冲突的已入日历课程
	Course Course
	// NewSlot 候选课程中触发冲突的时段
	NewSlot TimeSlot
	// ConflictingSlot 已入日历课程中触发冲突的时段
	ConflictingSlot TimeSlot
}

// Overlaps 判断两个同一天的时段是否相交。
// 采用半开区间 [Start, End)：首尾相接（A 结束时 B 开始）不算冲突。
func Overlaps(a, b TimeSlot) bool {
	return a.Start < b.End && a.End > b.Start
}

// Collides 星期相同且时间相交
func Collides(a, b TimeSlot) bool {
	return a.Day == b.Day && Overlaps(a, b)
}

// CheckCrossConflict 检查候选课程与已入日历课程之间的冲突，返回遍历中遇到的第一个冲突。
//
// committed 由调用方预先筛选为已入日历的课程，这里不再按 InCalendar 过滤。
// excludeID 非空时跳过同 ID 的课程（编辑已入日历课程时排除其旧版本）。
// 遍历顺序：已入日历课程 → 候选时段 → 已入日历课程的时段。
func CheckCrossConflict(committed []Course, candidate Course, excludeID string) *Conflict {
	for _, existing := range committed {
		if excludeID != "" && existing.ID == excludeID {
			continue
		}
		for _, newSlot := range candidate.Schedule {
			for _, existingSlot := range existing.Schedule {
				if Collides(newSlot, existingSlot) {
					return &Conflict{
						Course:          existing,
						NewSlot:         newSlot,
						ConflictingSlot: existingSlot,
					}
				}
			}
		}
	}
	return nil
}

// CheckSelfConflict 检查同一课程的时段之间是否存在重叠
func CheckSelfConflict(schedule []TimeSlot) bool {
	for i := 0; i < len(schedule); i++ {
		for j := i + 1; j < len(schedule); j++ {
			if Collides(schedule[i], schedule[j]) {
				return true
			}
		}
	}
	return false
}
