package model

type Issue struct {
	IssueID      uint64 `gorm:"column:issue_id;primaryKey;autoIncrement"`
	VersionID    uint64 `gorm:"column:version_id;not null;index"`
	RowIdx       *int   `gorm:"column:row_idx"`
	Field        string `gorm:"column:field;type:text;not null;default:''"`
	Severity     string `gorm:"column:severity;type:text;not null"`
	Message      string `gorm:"column:message;type:text;not null"`
	SuggestedFix string `gorm:"column:suggested_fix;type:text;not null;default:''"`
}

func (Issue) TableName() string {
	return "issues"
}
