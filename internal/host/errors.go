package host

import "github.com/openclaw/lily/internal/domain"

// ErrUnknownTool builds the error returned when CallTool is asked for a
// name with no registered handler.
func ErrUnknownTool(name string) error {
	return domain.NewDomainError(domain.ErrCodeNotFound, "no tool handler registered for "+name, nil)
}
