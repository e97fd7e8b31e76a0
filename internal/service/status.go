package service

import (
	"fmt"

	"github.com/foodboard/api/internal/enum"
)

func statusIndex(s string) int {
	for i, v := range enum.OrderStatuses {
		if v == s {
			return i
		}
	}
	return -1
}

// NextStatus is the status one step forward. Advancing archived is rejected.
func NextStatus(current string) (string, error) {
	i := statusIndex(current)
	if i < 0 {
		return "", fmt.Errorf("%q: %w", current, ErrUnknownStatus)
	}
	if i == len(enum.OrderStatuses)-1 {
		return "", fmt.Errorf("cannot advance from %s: %w", current, ErrInvalidTransition)
	}
	return enum.OrderStatuses[i+1], nil
}

// PrevStatus is the status one step back. Retreating pending or archived is
// rejected; archived is terminal.
func PrevStatus(current string) (string, error) {
	i := statusIndex(current)
	if i < 0 {
		return "", fmt.Errorf("%q: %w", current, ErrUnknownStatus)
	}
	if i == 0 || current == enum.OrderStatusArchived {
		return "", fmt.Errorf("cannot retreat from %s: %w", current, ErrInvalidTransition)
	}
	return enum.OrderStatuses[i-1], nil
}

// ValidateTransition allows a single step in either direction, or a jump to
// archived from any non-archived status. Nothing leaves archived.
func ValidateTransition(current, target string) error {
	ci, ti := statusIndex(current), statusIndex(target)
	if ti < 0 {
		return fmt.Errorf("%q: %w", target, ErrUnknownStatus)
	}
	if ci < 0 {
		return fmt.Errorf("%q: %w", current, ErrUnknownStatus)
	}
	if current == enum.OrderStatusArchived {
		return fmt.Errorf("%s is terminal: %w", current, ErrInvalidTransition)
	}
	if target == enum.OrderStatusArchived {
		return nil
	}
	if d := ti - ci; d == 1 || d == -1 {
		return nil
	}
	return fmt.Errorf("%s -> %s: %w", current, target, ErrInvalidTransition)
}
