package domain

import "time"

// 用户角色
const (
	RoleAdmin  = "admin" // 跨租户可见
	RoleUser   = "user"
	RoleViewer = "viewer"
)

// User 用户领域模型（对应 users 表）
// org_id 创建后不可变更
type User struct {
	UserID    string    `db:"user_id"`
	OrgID     string    `db:"org_id"` // NOT NULL, immutable
	Account   string    `db:"account"`
	Role      string    `db:"role"` // admin/user/viewer
	Active    bool      `db:"active"`
	CreatedAt time.Time `db:"created_at"`
}

// ValidRole reports whether role is one of the accepted role names.
func ValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleUser, RoleViewer:
		return true
	}
	return false
}

func (u *User) ToJSON() map[string]any {
	return map[string]any{
		"user_id":    u.UserID,
		"org_id":     u.OrgID,
		"account":    u.Account,
		"role":       u.Role,
		"active":     u.Active,
		"created_at": u.CreatedAt,
	}
}
