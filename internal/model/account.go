package model

import (
	"time"
)

// AccountRole 账户角色
type AccountRole string

const (
	RoleAdministrator AccountRole = "ADMINISTRATOR"
	RoleFieldAgent    AccountRole = "FIELD_AGENT"
	RoleOther         AccountRole = "OTHER"
)

func (r AccountRole) IsValid() bool {
	switch r {
	case RoleAdministrator, RoleFieldAgent, RoleOther:
		return true
	}
	return false
}

// Account 余额持有者（收银员 / 外勤 / 管理员）
// 余额本身不落在这张表上，全部由 ledger_entry 折叠得到
type Account struct {
	ID        int64       `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Name      string      `gorm:"type:varchar(128)" json:"name"`
	Role      AccountRole `gorm:"type:varchar(20);not null" json:"role"`
	CreatedAt time.Time   `gorm:"autoCreateTime" json:"created_at"`
}

func (Account) TableName() string {
	return "account"
}
