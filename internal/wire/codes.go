package wire

import (
	"calendar-planner/internal/logger"
	"calendar-planner/internal/model"
)

// Lookup codes used by the backend for enum columns. Unknown values map to the
// defaults below with a warning rather than an error; shape checks happen in the gateway.
const (
	PriorityHighCode   = 1
	PriorityMediumCode = 2
	PriorityLowCode    = 3

	StatusPendingCode   = 1
	StatusCompletedCode = 2
	StatusCancelledCode = 3

	RecurrenceNoneCode     = 1
	RecurrenceDailyCode    = 2
	RecurrenceWeeklyCode   = 3
	RecurrenceWeekdaysCode = 4
	RecurrenceWeekendsCode = 5
	RecurrenceMonthlyCode  = 6
	RecurrenceYearlyCode   = 7
)

const (
	DefaultPriority   = model.PriorityMedium
	DefaultStatus     = model.StatusPending
	DefaultRecurrence = model.RecurrenceNone
)

var priorityByCode = map[int]model.Priority{
	PriorityHighCode:   model.PriorityHigh,
	PriorityMediumCode: model.PriorityMedium,
	PriorityLowCode:    model.PriorityLow,
}

var statusByCode = map[int]model.Status{
	StatusPendingCode:   model.StatusPending,
	StatusCompletedCode: model.StatusCompleted,
	StatusCancelledCode: model.StatusCancelled,
}

var recurrenceByCode = map[int]model.Recurrence{
	RecurrenceNoneCode:     model.RecurrenceNone,
	RecurrenceDailyCode:    model.RecurrenceDaily,
	RecurrenceWeeklyCode:   model.RecurrenceWeekly,
	RecurrenceWeekdaysCode: model.RecurrenceWeekdays,
	RecurrenceWeekendsCode: model.RecurrenceWeekends,
	RecurrenceMonthlyCode:  model.RecurrenceMonthly,
	RecurrenceYearlyCode:   model.RecurrenceYearly,
}

var (
	priorityCodes   = invert(priorityByCode)
	statusCodes     = invert(statusByCode)
	recurrenceCodes = invert(recurrenceByCode)
)

func invert[V comparable](m map[int]V) map[V]int {
	out := make(map[V]int, len(m))
	for code, v := range m {
		out[v] = code
	}
	return out
}

func PriorityFromCode(code int) model.Priority {
	if p, ok := priorityByCode[code]; ok {
		return p
	}
	logger.Warn("unknown priority code, using default", "code", code, "default", DefaultPriority)
	return DefaultPriority
}

func PriorityCode(p model.Priority) int {
	if code, ok := priorityCodes[p]; ok {
		return code
	}
	logger.Warn("unknown priority, using default", "priority", string(p), "default", DefaultPriority)
	return priorityCodes[DefaultPriority]
}

func StatusFromCode(code int) model.Status {
	if s, ok := statusByCode[code]; ok {
		return s
	}
	logger.Warn("unknown status code, using default", "code", code, "default", DefaultStatus)
	return DefaultStatus
}

func StatusCode(s model.Status) int {
	if code, ok := statusCodes[s]; ok {
		return code
	}
	logger.Warn("unknown status, using default", "status", string(s), "default", DefaultStatus)
	return statusCodes[DefaultStatus]
}

// RecurrenceFromCode treats a missing code (0) as NONE without warning.
func RecurrenceFromCode(code int) model.Recurrence {
	if code == 0 {
		return DefaultRecurrence
	}
	if r, ok := recurrenceByCode[code]; ok {
		return r
	}
	logger.Warn("unknown recurrence code, using default", "code", code, "default", DefaultRecurrence)
	return DefaultRecurrence
}

// RecurrenceCode treats an empty recurrence as NONE without warning.
func RecurrenceCode(r model.Recurrence) int {
	if r == "" {
		return RecurrenceNoneCode
	}
	if code, ok := recurrenceCodes[r]; ok {
		return code
	}
	logger.Warn("unknown recurrence, using default", "recurrence", string(r), "default", DefaultRecurrence)
	return RecurrenceNoneCode
}
