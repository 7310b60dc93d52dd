package model

// Sequence names.
const (
	SequenceAssets       = "assets"
	SequenceReservations = "reservations"
)

// Sequence persists the next id to hand out for an entity kind.
type Sequence struct {
	Name string `gorm:"primaryKey;size:32"`
	Next uint64 `gorm:"not null"`
}
