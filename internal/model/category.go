package model

// Category groups tasks and notes by area (work, health, study, etc.).
type Category struct {
	ID        int64 `gorm:"primaryKey;autoIncrement:false"`
	UserID    int64 `gorm:"index"`
	Name      string
	ColorCode string
}
