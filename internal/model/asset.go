package model

// Asset is a reservable resource row. IDs are assigned by the engine, never by
// the database, so that id 0 is valid and removed ids are not handed out again.
type Asset struct {
	ID          uint64 `gorm:"primaryKey;autoIncrement:false"`
	Name        string `gorm:"size:256;not null"`
	CreatedAtNs int64  `gorm:"not null"`
}
