package notifier

import (
	"context"
	"log"
	"os"

	"job-killer/internal/model"
)

// LogNotifier writes run summaries to the process log, for deployments
// without SMTP.
type LogNotifier struct {
	logger *log.Logger
}

// NewLogNotifier creates a LogNotifier; a nil logger gets a default one.
func NewLogNotifier(logger *log.Logger) *LogNotifier {
	if logger == nil {
		logger = log.New(os.Stdout, "[notifier] ", log.LstdFlags)
	}
	return &LogNotifier{logger: logger}
}

// Notify logs the run summary.
func (n *LogNotifier) Notify(_ context.Context, s model.RunSummary) error {
	n.logger.Printf("run %s: %d imported, %d duplicates, %d filtered, %d errors across %d feeds",
		s.RunID, s.Imported, s.Duplicates, s.Filtered, s.Errors, s.Feeds)
	return nil
}
