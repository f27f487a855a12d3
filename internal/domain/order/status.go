package order

import (
	"strings"

	"github.com/Zhima-Mochi/minishop-sales/internal/domain/apperr"
)

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
)

// Spanish spellings used by existing front-ends.
var aliases = map[string]Status{
	"PENDING":    StatusPending,
	"PENDIENTE":  StatusPending,
	"COMPLETED":  StatusCompleted,
	"COMPLETADO": StatusCompleted,
	"CANCELLED":  StatusCancelled,
	"CANCELED":   StatusCancelled,
	"CANCELADO":  StatusCancelled,
}

// ParseStatus accepts canonical and Spanish status names, case-insensitively.
func ParseStatus(s string) (Status, error) {
	if st, ok := aliases[strings.ToUpper(strings.TrimSpace(s))]; ok {
		return st, nil
	}
	return "", apperr.Invalid("estado", "unknown status "+s)
}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}
