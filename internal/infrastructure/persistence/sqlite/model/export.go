package model

type Export struct {
	ExportID  uint64 `gorm:"column:export_id;primaryKey;autoIncrement"`
	JobID     uint64 `gorm:"column:job_id;not null;index"`
	VersionID uint64 `gorm:"column:version_id;not null"`
	Path      string `gorm:"column:path;type:text;not null"`
	Checksum  string `gorm:"column:checksum;type:text;not null"`
	RowCount  int    `gorm:"column:row_count;not null"`
	CreatedAt string `gorm:"column:created_at;type:text;not null"`
}

func (Export) TableName() string {
	return "exports"
}
