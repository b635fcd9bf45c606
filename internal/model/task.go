package model

// Priority is the UI-facing priority of a task.
type Priority string

const (
	PriorityHigh   Priority = "HIGH"
	PriorityMedium Priority = "MEDIUM"
	PriorityLow    Priority = "LOW"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

// Status is the lifecycle state of a task.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Recurrence describes how a task repeats. The zero value means the task does not repeat.
type Recurrence string

const (
	RecurrenceNone     Recurrence = "NONE"
	RecurrenceDaily    Recurrence = "DAILY"
	RecurrenceWeekly   Recurrence = "WEEKLY"
	RecurrenceWeekdays Recurrence = "WEEKDAYS"
	RecurrenceWeekends Recurrence = "WEEKENDS"
	RecurrenceMonthly  Recurrence = "MONTHLY"
	RecurrenceYearly   Recurrence = "YEARLY"
)

func (r Recurrence) Valid() bool {
	switch r {
	case RecurrenceNone, RecurrenceDaily, RecurrenceWeekly, RecurrenceWeekdays,
		RecurrenceWeekends, RecurrenceMonthly, RecurrenceYearly:
		return true
	}
	return false
}

// Task is a local copy of a server task. IDs are always issued by the backend.
// DueDate keeps the raw wire string (date or date-time); it is parsed only when bucketing.
type Task struct {
	ID                int64  `gorm:"primaryKey;autoIncrement:false"`
	UserID            int64  `gorm:"index"`
	CategoryID        *int64 `gorm:"index"`
	Title             string
	Description       string
	Priority          Priority
	Status            Status `gorm:"index"`
	DueDate           string
	RecurrenceType    Recurrence
	RecurrenceEndDate string
	ColorCode         string
	CreatedAt         string    `gorm:"autoCreateTime:false"`
	SubTasks          []SubTask `gorm:"foreignKey:TaskID;constraint:OnDelete:CASCADE"`

	// Position is the index in the last server listing; it keeps server order in the mirror.
	Position int `gorm:"index"`
}

func (t Task) Completed() bool {
	return t.Status == StatusCompleted
}

// SubTask belongs to exactly one task and goes away with it.
type SubTask struct {
	ID          int64 `gorm:"primaryKey;autoIncrement:false"`
	TaskID      int64 `gorm:"index"`
	Title       string
	IsCompleted bool
	CreatedAt   string `gorm:"autoCreateTime:false"`
}
