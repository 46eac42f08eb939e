// Package errors 跨模块共享的业务错误
package errors

import "errors"

var (
	// ErrOptimisticLock 乐观锁冲突：课程已被其他请求修改
	ErrOptimisticLock = errors.New("数据已被其他操作修改，请刷新后重试")
	// ErrOwnership 资源不属于当前用户；对外按不存在处理
	ErrOwnership = errors.New("资源不属于当前用户")
)
