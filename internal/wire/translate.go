package wire

import "calendar-planner/internal/model"

// TaskFromWire converts a backend task into the UI shape, resolving lookup codes.
// A missing recurrence code stays empty; an explicit NONE code becomes RecurrenceNone.
func TaskFromWire(t Task) model.Task {
	out := model.Task{
		ID:                t.ID,
		UserID:            t.UserID,
		CategoryID:        t.CategoryID,
		Title:             t.Title,
		Description:       deref(t.Description),
		Priority:          PriorityFromCode(t.PriorityID),
		Status:            StatusFromCode(t.StatusID),
		DueDate:           deref(t.DueDate),
		RecurrenceEndDate: deref(t.RecurrenceEndDate),
		ColorCode:         deref(t.ColorCode),
		CreatedAt:         t.CreatedAt,
	}
	if t.RecurrenceTypeID != nil {
		out.RecurrenceType = RecurrenceFromCode(*t.RecurrenceTypeID)
	}
	if len(t.SubTasks) > 0 {
		out.SubTasks = make([]model.SubTask, 0, len(t.SubTasks))
		for _, st := range t.SubTasks {
			sub := SubTaskFromWire(st)
			if sub.TaskID == 0 {
				sub.TaskID = t.ID
			}
			out.SubTasks = append(out.SubTasks, sub)
		}
	}
	return out
}

// TaskToWire is the inverse of TaskFromWire on the enum fields.
func TaskToWire(t model.Task) Task {
	out := Task{
		ID:                t.ID,
		UserID:            t.UserID,
		CategoryID:        t.CategoryID,
		Title:             t.Title,
		Description:       ref(t.Description),
		PriorityID:        PriorityCode(t.Priority),
		StatusID:          StatusCode(t.Status),
		DueDate:           ref(t.DueDate),
		RecurrenceEndDate: ref(t.RecurrenceEndDate),
		ColorCode:         ref(t.ColorCode),
		CreatedAt:         t.CreatedAt,
	}
	if t.RecurrenceType != "" {
		code := RecurrenceCode(t.RecurrenceType)
		out.RecurrenceTypeID = &code
	}
	for _, st := range t.SubTasks {
		out.SubTasks = append(out.SubTasks, SubTask{
			ID:          st.ID,
			TaskID:      st.TaskID,
			Title:       st.Title,
			IsCompleted: st.IsCompleted,
			CreatedAt:   st.CreatedAt,
		})
	}
	return out
}

// TaskPayloadFrom builds a create/full-update body. Priority and status always
// travel as codes; the remaining optional fields are omitted when empty.
func TaskPayloadFrom(t model.Task) TaskPayload {
	priority := PriorityCode(t.Priority)
	status := StatusCode(t.Status)
	p := TaskPayload{
		Title:             ref(t.Title),
		Description:       ref(t.Description),
		CategoryID:        t.CategoryID,
		PriorityID:        &priority,
		StatusID:          &status,
		DueDate:           ref(t.DueDate),
		RecurrenceEndDate: ref(t.RecurrenceEndDate),
		ColorCode:         ref(t.ColorCode),
	}
	if t.RecurrenceType != "" {
		code := RecurrenceCode(t.RecurrenceType)
		p.RecurrenceTypeID = &code
	}
	return p
}

// StatusPayload is the narrow status-only update body.
func StatusPayload(s model.Status) TaskPayload {
	code := StatusCode(s)
	return TaskPayload{StatusID: &code}
}

func SubTaskFromWire(s SubTask) model.SubTask {
	return model.SubTask{
		ID:          s.ID,
		TaskID:      s.TaskID,
		Title:       s.Title,
		IsCompleted: s.IsCompleted,
		CreatedAt:   s.CreatedAt,
	}
}

func CategoryFromWire(c Category) model.Category {
	return model.Category{
		ID:        c.ID,
		UserID:    c.UserID,
		Name:      c.Name,
		ColorCode: deref(c.ColorCode),
	}
}

func CategoryPayloadFrom(c model.Category) CategoryPayload {
	return CategoryPayload{Name: c.Name, ColorCode: ref(c.ColorCode)}
}

func EventFromWire(e Event) model.Event {
	return model.Event{
		ID:        e.ID,
		UserID:    e.UserID,
		Title:     e.Title,
		StartTime: e.StartTime,
		EndTime:   e.EndTime,
		Location:  deref(e.Location),
		ColorCode: deref(e.ColorCode),
	}
}

func EventPayloadFrom(e model.Event) EventPayload {
	return EventPayload{
		Title:     e.Title,
		StartTime: e.StartTime,
		EndTime:   e.EndTime,
		Location:  ref(e.Location),
		ColorCode: ref(e.ColorCode),
	}
}

func NoteFromWire(n Note) model.Note {
	return model.Note{
		ID:         n.ID,
		UserID:     n.UserID,
		CategoryID: n.CategoryID,
		EventID:    n.EventID,
		Title:      n.Title,
		Content:    n.Content,
		ColorCode:  deref(n.ColorCode),
		CreatedAt:  n.CreatedAt,
	}
}

func NotePayloadFrom(n model.Note) NotePayload {
	return NotePayload{
		Title:      n.Title,
		Content:    n.Content,
		CategoryID: n.CategoryID,
		EventID:    n.EventID,
		ColorCode:  ref(n.ColorCode),
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func ref(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
