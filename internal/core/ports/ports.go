package ports

import (
	"context"
	"time"

	"github.com/hive-corporation/iocscan/internal/core/domain"
)

// TextSource supplies one text document to scan (a threat report, a paste,
// a feed page). Extracting usable text from richer formats is the source's
// problem, not the scanner's.
type TextSource interface {
	FetchText(ctx context.Context) (string, error)
	Name() string
}

// IOCRepository persists scan output. scanID groups the records of one
// Detect call; source names where the scanned text came from.
type IOCRepository interface {
	SaveBatch(ctx context.Context, scanID, source string, iocs []domain.IOC) error
	FindByValue(ctx context.Context, value string) ([]domain.IOC, error)
	FindSince(ctx context.Context, since time.Time, limit int) ([]domain.IOC, error)
}
