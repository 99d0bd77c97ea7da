package seed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/studiowebux/todoload/internal/executor"
	"github.com/studiowebux/todoload/internal/types"
	"go.uber.org/zap"
)

// StepName tags every request issued during seeding
const StepName = "setup"

// Report lists which titles were posted and which were found already present
type Report struct {
	Created []string
	Skipped []string
}

// Seeder ensures a fixed list of todos exists on the target server
type Seeder struct {
	baseURL string
	doer    executor.Doer
	records []types.TodoRecord
	logger  *zap.Logger
}

// NewSeeder creates a seeder. A nil records slice selects DefaultRecords.
func NewSeeder(baseURL string, doer executor.Doer, records []types.TodoRecord, logger *zap.Logger) *Seeder {
	if records == nil {
		records = DefaultRecords()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Seeder{
		baseURL: strings.TrimRight(baseURL, "/"),
		doer:    doer,
		records: records,
		logger:  logger,
	}
}

// Seed lists the current collection and posts every record whose title does
// not occur anywhere in the raw listing body. Presence is a plain substring
// test over the whole body, so a title quoted inside another todo's
// description counts as present. Response statuses are not inspected and
// failed calls do not stop seeding; only ctx cancellation does.
func (s *Seeder) Seed(ctx context.Context) (*Report, error) {
	listing := s.doer.Do(ctx, &types.Request{
		Step:   StepName,
		Method: http.MethodGet,
		URL:    s.baseURL + "/todos",
	})
	if listing.Error != "" {
		s.logger.Warn("listing todos failed, seeding all records",
			zap.String("url", listing.URL),
			zap.String("error", listing.Error))
	}

	report := &Report{}
	for _, record := range s.records {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		if strings.Contains(listing.Body, record.Title) {
			report.Skipped = append(report.Skipped, record.Title)
			continue
		}

		body, err := json.Marshal(record)
		if err != nil {
			return report, fmt.Errorf("failed to encode todo %q: %w", record.Title, err)
		}

		result := s.doer.Do(ctx, &types.Request{
			Step:    StepName,
			Method:  http.MethodPost,
			URL:     s.baseURL + "/todos",
			Headers: map[string]string{"Content-Type": "application/json"},
			Body:    body,
		})
		s.logger.Debug("seeded todo",
			zap.String("title", record.Title),
			zap.Int("status", result.Status))
		report.Created = append(report.Created, record.Title)
	}

	s.logger.Info("seeding finished",
		zap.Int("created", len(report.Created)),
		zap.Int("skipped", len(report.Skipped)))

	return report, nil
}
