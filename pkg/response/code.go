package response

// 业务状态码
const (
	CodeSuccess = 0
	CodeError   = 1

	// 用户模块错误 100xx
	ErrUserExists   = 10001
	ErrUserNotFound = 10002
	ErrAuthFailed   = 10003
	ErrTokenInvalid = 10004
	ErrNoPermission = 10005
	ErrNotApproved  = 10006
	ErrUSNTaken     = 10007

	// 帖子模块错误 200xx
	ErrPostNotFound = 20001
	ErrReplyParent  = 20002

	// 私信模块错误 300xx
	ErrChatNotFound = 30001

	// 通知模块错误 400xx
	ErrNotificationNotFound = 40001

	// 系统错误 500xx
	ErrServerInternal  = 50001
	ErrInvalidParam    = 50002
	ErrTooManyRequests = 50003
	ErrExternalService = 50004
	ErrNotFound        = 50005
)
