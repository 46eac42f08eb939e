// Package validator 请求校验：在 go-playground/validator 上注册课表相关的自定义标签
package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/diegnghtmr/vale/internal/conflict"
)

// 自定义标签
const (
	TagClock      = "clock"       // HH:MM，允许 24:00
	TagStartClock = "start_clock" // HH:MM，不允许 24:00
	TagWeekday    = "weekday"     // 当前星期集合
	TagShift      = "shift"       // day | night
)

// Shifts 合法的上课时段类型
var Shifts = []string{"day", "night"}

// New 创建独立的校验器，与 gin 绑定共用 binding 标签
func New() *validator.Validate {
	v := validator.New()
	v.SetTagName("binding")
	if err := Register(v); err != nil {
		panic(err)
	}
	return v
}

// RegisterGin 在 gin 默认校验引擎上注册自定义标签
func RegisterGin() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return errors.New("gin 校验引擎不是 go-playground/validator")
	}
	return Register(v)
}

// Register 注册自定义标签与 JSON 字段名
func Register(v *validator.Validate) error {
	v.RegisterTagNameFunc(jsonFieldName)

	rules := map[string]validator.Func{
		TagClock:      validateClock,
		TagStartClock: validateStartClock,
		TagWeekday:    validateWeekday,
		TagShift:      validateShift,
	}
	for tag, fn := range rules {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return fmt.Errorf("注册校验标签 %s 失败: %w", tag, err)
		}
	}
	return nil
}

func jsonFieldName(f reflect.StructField) string {
	name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	if name == "" {
		return f.Name
	}
	return name
}

func validateClock(fl validator.FieldLevel) bool {
	_, err := conflict.ParseClock(fl.Field().String())
	return err == nil
}

func validateStartClock(fl validator.FieldLevel) bool {
	c, err := conflict.ParseClock(fl.Field().String())
	return err == nil && c < conflict.EndOfDay
}

func validateWeekday(fl validator.FieldLevel) bool {
	return conflict.CurrentDaySet.Contains(conflict.Day(fl.Field().String()))
}

func validateShift(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	for _, v := range Shifts {
		if s == v {
			return true
		}
	}
	return false
}

// FieldError 面向前端的字段错误
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Describe 将校验错误转换为字段错误列表；非校验错误返回 nil
func Describe(err error) []FieldError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	out := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, FieldError{
			Field:   trimRoot(fe.Namespace()),
			Message: describeTag(fe),
		})
	}
	return out
}

// trimRoot 去掉命名空间中的结构体名前缀：CreateCourseRequest.schedule[0].day → schedule[0].day
func trimRoot(ns string) string {
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func describeTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "不能为空"
	case "min":
		return fmt.Sprintf("不能小于 %s", fe.Param())
	case "max":
		return fmt.Sprintf("不能大于 %s", fe.Param())
	case "gte":
		return fmt.Sprintf("必须大于等于 %s", fe.Param())
	case "lte":
		return fmt.Sprintf("必须小于等于 %s", fe.Param())
	case "email":
		return "邮箱格式无效"
	case "uuid":
		return "ID 格式无效"
	case "oneof":
		return fmt.Sprintf("取值必须为 %s 之一", fe.Param())
	case TagClock, TagStartClock:
		return "时间格式无效，应为 HH:MM"
	case TagWeekday:
		return fmt.Sprintf("星期取值必须为 %s 之一", strings.Join(conflict.CurrentDaySet.Strings(), ", "))
	case TagShift:
		return fmt.Sprintf("时段取值必须为 %s 之一", strings.Join(Shifts, ", "))
	case "dive":
		return "元素无效"
	}
	return fmt.Sprintf("校验失败 (%s)", fe.Tag())
}
