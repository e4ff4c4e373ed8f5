package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"NewsDigest/internal/domain"
	"NewsDigest/internal/ports"
)

// TestingListKey selects the recipient list used for test sends.
const TestingListKey = "Testing"

var emailShape = regexp.MustCompile(`^.+@.+\..+$`)

// ValidateEmails splits a comma separated list and keeps the addresses shaped like
// user@host.tld. Dropped entries are logged.
func ValidateEmails(list string, logger *slog.Logger) []string {
	if logger == nil {
		logger = slog.Default()
	}

	var valid []string
	for _, raw := range strings.Split(list, ",") {
		addr := strings.TrimSpace(raw)
		if addr == "" {
			continue
		}
		if !emailShape.MatchString(addr) {
			logger.Warn("invalid email address dropped", "address", addr)
			continue
		}
		valid = append(valid, addr)
	}
	return valid
}

// EmailList reads the recipient list stored under key in an email table whose
// rows are (type, list). The header row is skipped and keys match case-insensitively.
func EmailList(ctx context.Context, store ports.RowStore, table, key string) (string, error) {
	rows, err := store.ReadAll(ctx, table)
	if err != nil {
		return "", fmt.Errorf("read email table: %w", err)
	}

	for i, row := range rows {
		if i == 0 {
			continue
		}
		if strings.EqualFold(row.Cell(0), key) {
			return row.Cell(1), nil
		}
	}
	return "", &domain.StoreError{Table: table, Column: key, Err: domain.ErrColumnNotFound}
}
