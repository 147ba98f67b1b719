package model

type Job struct {
	JobID            uint64  `gorm:"column:job_id;primaryKey;autoIncrement"`
	DocumentRef      string  `gorm:"column:document_ref;type:text;not null"`
	Sender           string  `gorm:"column:sender;type:text;not null;index"`
	ContentType      string  `gorm:"column:content_type;type:text;not null"`
	Status           string  `gorm:"column:status;type:text;not null;index"`
	CurrentVersionID *uint64 `gorm:"column:current_version_id"`
	FailureReason    string  `gorm:"column:failure_reason;type:text;not null;default:''"`
	StageTimingsJSON string  `gorm:"column:stage_timings_json;type:text;not null;default:'{}'"`
	CreatedAt        string  `gorm:"column:created_at;type:text;not null"`
	UpdatedAt        string  `gorm:"column:updated_at;type:text;not null"`
	StartedAt        *string `gorm:"column:started_at;type:text"`
	FinishedAt       *string `gorm:"column:finished_at;type:text"`
}

func (Job) TableName() string {
	return "jobs"
}
