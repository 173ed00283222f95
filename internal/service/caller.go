package service

// Caller 当前请求用户（由 JWT 中间件解析）
type Caller struct {
	Username string
	Name     string
	Role     string
}

// DisplayName 审计与评论中展示的名字
func (c Caller) DisplayName() string {
	if c.Name != "" {
		return c.Name
	}
	return c.Username
}
