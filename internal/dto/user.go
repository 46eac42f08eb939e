package dto

// UserListRequest 用户列表查询参数（管理员）
type UserListRequest struct {
	PaginationRequest
}
