package model

type Record struct {
	RecordID   uint64  `gorm:"column:record_id;primaryKey;autoIncrement"`
	VersionID  uint64  `gorm:"column:version_id;not null;index:idx_records_version_row,unique"`
	RowIdx     int     `gorm:"column:row_idx;not null;index:idx_records_version_row,unique"`
	FieldsJSON string  `gorm:"column:fields_json;type:text;not null"`
	Confidence float64 `gorm:"column:confidence;not null"`
	Method     string  `gorm:"column:method;type:text;not null"`
}

func (Record) TableName() string {
	return "records"
}
