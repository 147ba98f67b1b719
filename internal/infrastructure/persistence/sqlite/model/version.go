package model

type Version struct {
	VersionID uint64  `gorm:"column:version_id;primaryKey;autoIncrement"`
	JobID     uint64  `gorm:"column:job_id;not null;index:idx_versions_job_seq,unique"`
	Sequence  int     `gorm:"column:sequence;not null;index:idx_versions_job_seq,unique"`
	Source    string  `gorm:"column:source;type:text;not null"`
	Author    string  `gorm:"column:author;type:text;not null;default:''"`
	ParentID  *uint64 `gorm:"column:parent_id"`
	Note      string  `gorm:"column:note;type:text;not null;default:''"`
	CreatedAt string  `gorm:"column:created_at;type:text;not null"`
}

func (Version) TableName() string {
	return "versions"
}
