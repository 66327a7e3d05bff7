package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	devicedomain "github.com/micro-ha/iot-dashboard/internal/domain/device"
	"github.com/micro-ha/iot-dashboard/internal/pkg/utils"
)

// classify wraps a driver error with the matching backend error kind.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if isUnavailable(err) {
		return fmt.Errorf("%s: %w: %w", op, devicedomain.ErrBackendUnavailable, err)
	}
	return fmt.Errorf("%s: %w: %w", op, devicedomain.ErrQuery, err)
}

func isUnavailable(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, sql.ErrConnDone) {
		return true
	}
	text := strings.ToLower(err.Error())
	return strings.Contains(text, "database is locked") ||
		strings.Contains(text, "unable to open database") ||
		strings.Contains(text, "disk i/o error") ||
		strings.Contains(text, "sql: database is closed")
}

func isConstraintError(err error) bool {
	return utils.IsUniqueConstraintError(err) || utils.IsForeignKeyError(err)
}
