package model

// Event is a time-boxed calendar entry. StartTime must precede EndTime.
type Event struct {
	ID        int64 `gorm:"primaryKey;autoIncrement:false"`
	UserID    int64 `gorm:"index"`
	Title     string
	StartTime string
	EndTime   string
	Location  string
	ColorCode string
	Position  int `gorm:"index"`
}

// Note is free text, optionally attached to a category or an event.
type Note struct {
	ID         int64  `gorm:"primaryKey;autoIncrement:false"`
	UserID     int64  `gorm:"index"`
	CategoryID *int64 `gorm:"index"`
	EventID    *int64 `gorm:"index"`
	Title      string
	Content    string
	ColorCode  string
	CreatedAt  string `gorm:"autoCreateTime:false"`
}
