package ingest

import "fmt"

// MappingError: запись фида структурно битая (не мусорный словарь, а
// отсутствующее обязательное поле). Вся пачка отклоняется без сдвига курсора.
type MappingError struct {
	EventID string
	Field   string
}

func (e *MappingError) Error() string {
	if e.EventID == "" {
		return fmt.Sprintf("mapping: missing required field %s", e.Field)
	}
	return fmt.Sprintf("mapping event %s: missing required field %s", e.EventID, e.Field)
}

// ValidationError: событие прошло словарь, но несёт недопустимую пару
// (kind, status). Скорее всего баг маппинга у источника — пачку не глотаем.
type ValidationError struct {
	EventID    string
	Kind       string
	StatusCode string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid event %s: kind %s cannot have status code %s", e.EventID, e.Kind, e.StatusCode)
}
