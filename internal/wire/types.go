package wire

// Records as the backend sends them. The validate tags are the shape contract the
// gateway enforces after decoding; anything failing them never leaves the gateway.

type Task struct {
	ID                int64     `json:"id" validate:"required,gt=0"`
	UserID            int64     `json:"user_id"`
	CategoryID        *int64    `json:"category_id"`
	Title             string    `json:"title" validate:"required"`
	Description       *string   `json:"description"`
	PriorityID        int       `json:"priority_id" validate:"omitempty,oneof=1 2 3"`
	StatusID          int       `json:"status_id" validate:"omitempty,oneof=1 2 3"`
	DueDate           *string   `json:"due_date"`
	RecurrenceTypeID  *int      `json:"recurrence_type_id" validate:"omitempty,oneof=1 2 3 4 5 6 7"`
	RecurrenceEndDate *string   `json:"recurrence_end_date"`
	ColorCode         *string   `json:"color_code"`
	CreatedAt         string    `json:"created_at,omitempty"`
	SubTasks          []SubTask `json:"subtasks,omitempty" validate:"omitempty,dive"`
}

type SubTask struct {
	ID          int64  `json:"id" validate:"required,gt=0"`
	TaskID      int64  `json:"task_id"`
	Title       string `json:"title" validate:"required"`
	IsCompleted bool   `json:"is_completed"`
	CreatedAt   string `json:"created_at,omitempty"`
}

type Category struct {
	ID        int64   `json:"id" validate:"required,gt=0"`
	UserID    int64   `json:"user_id"`
	Name      string  `json:"name" validate:"required"`
	ColorCode *string `json:"color_code"`
}

type Event struct {
	ID        int64   `json:"id" validate:"required,gt=0"`
	UserID    int64   `json:"user_id"`
	Title     string  `json:"title" validate:"required"`
	StartTime string  `json:"start_time" validate:"required"`
	EndTime   string  `json:"end_time" validate:"required"`
	Location  *string `json:"location"`
	ColorCode *string `json:"color_code"`
}

type Note struct {
	ID         int64   `json:"id" validate:"required,gt=0"`
	UserID     int64   `json:"user_id"`
	CategoryID *int64  `json:"category_id"`
	EventID    *int64  `json:"event_id"`
	Title      string  `json:"title" validate:"required"`
	Content    string  `json:"content"`
	ColorCode  *string `json:"color_code"`
	CreatedAt  string  `json:"created_at,omitempty"`
}

type AuthResponse struct {
	UserID      int64  `json:"user_id" validate:"required,gt=0"`
	Username    string `json:"username"`
	Email       string `json:"email"`
	AccessToken string `json:"access_token" validate:"required"`
}

// Request bodies. Nil pointers are omitted so the same type serves partial updates.

type TaskPayload struct {
	Title             *string `json:"title,omitempty"`
	Description       *string `json:"description,omitempty"`
	CategoryID        *int64  `json:"category_id,omitempty"`
	PriorityID        *int    `json:"priority_id,omitempty"`
	StatusID          *int    `json:"status_id,omitempty"`
	DueDate           *string `json:"due_date,omitempty"`
	RecurrenceTypeID  *int    `json:"recurrence_type_id,omitempty"`
	RecurrenceEndDate *string `json:"recurrence_end_date,omitempty"`
	ColorCode         *string `json:"color_code,omitempty"`
}

type SubTaskPayload struct {
	Title       string `json:"title"`
	IsCompleted *bool  `json:"is_completed,omitempty"`
}

type CategoryPayload struct {
	Name      string  `json:"name"`
	ColorCode *string `json:"color_code,omitempty"`
}

type EventPayload struct {
	Title     string  `json:"title"`
	StartTime string  `json:"start_time"`
	EndTime   string  `json:"end_time"`
	Location  *string `json:"location,omitempty"`
	ColorCode *string `json:"color_code,omitempty"`
}

type NotePayload struct {
	Title      string  `json:"title"`
	Content    string  `json:"content"`
	CategoryID *int64  `json:"category_id,omitempty"`
	EventID    *int64  `json:"event_id,omitempty"`
	ColorCode  *string `json:"color_code,omitempty"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterRequest struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	BirthDate string `json:"birth_date,omitempty"`
	Password  string `json:"password"`
}
