package model

// Reservation is a reservation row. Instants are stored as nanoseconds since
// the Unix epoch so that both drivers keep full precision.
type Reservation struct {
	ID            uint64 `gorm:"primaryKey;autoIncrement:false"`
	AssetID       uint64 `gorm:"not null;index:idx_reservations_asset_window,priority:1"`
	UserID        string `gorm:"size:256;not null;index"`
	StartNs       int64  `gorm:"not null;index:idx_reservations_asset_window,priority:2"`
	EndNs         int64  `gorm:"not null"`
	Period        string `gorm:"size:16;not null"`
	CreatedAtNs   int64  `gorm:"not null"`
	CancelledAtNs *int64
}

// ReservationEvent is one entry of a reservation's audit trail.
type ReservationEvent struct {
	ID            int64  `gorm:"primaryKey"`
	ReservationID uint64 `gorm:"not null;index"`
	AssetID       uint64 `gorm:"not null"`
	UserID        string `gorm:"size:256;not null"`
	Kind          string `gorm:"size:16;not null"`
	StartNs       int64  `gorm:"not null"`
	EndNs         int64  `gorm:"not null"`
	AtNs          int64  `gorm:"not null;index"`
}
