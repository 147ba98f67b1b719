package model

type AuditLog struct {
	AuditID   uint64 `gorm:"column:audit_id;primaryKey;autoIncrement"`
	JobID     uint64 `gorm:"column:job_id;not null;index"`
	Actor     string `gorm:"column:actor;type:text;not null"`
	Action    string `gorm:"column:action;type:text;not null"`
	Detail    string `gorm:"column:detail;type:text;not null;default:''"`
	CreatedAt string `gorm:"column:created_at;type:text;not null"`
}

func (AuditLog) TableName() string {
	return "audit_log"
}
