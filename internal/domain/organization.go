package domain

import "time"

// Organization 租户领域模型（对应 organizations 表）
// 租户是数据隔离的边界；正常运营下只停用不删除
type Organization struct {
	OrgID        string    `db:"org_id"`
	OrgName      string    `db:"org_name"` // UNIQUE
	ContactEmail string    `db:"contact_email"`
	ContactPhone string    `db:"contact_phone"`
	Active       bool      `db:"active"`
	CreatedAt    time.Time `db:"created_at"`
}

// ToJSON 转换为JSON格式（用于HTTP响应）
func (o *Organization) ToJSON() map[string]any {
	return map[string]any{
		"org_id":        o.OrgID,
		"org_name":      o.OrgName,
		"contact_email": o.ContactEmail,
		"contact_phone": o.ContactPhone,
		"active":        o.Active,
		"created_at":    o.CreatedAt,
	}
}
