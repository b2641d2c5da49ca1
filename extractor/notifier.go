package extractor

import (
	"katom-scraper/internal/types"
)

// LogNotifier reports run progress through the structured logger. It is the
// default notifier when no UI front end is attached.
type LogNotifier struct {
	logger types.Logger
}

// NewLogNotifier creates a notifier backed by the given logger.
func NewLogNotifier(logger types.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Progress(current, total int) {
	n.logger.Infof("Progress: %d/%d", current, total)
}

func (n *LogNotifier) Status(text string) {
	n.logger.Info(text)
}

func (n *LogNotifier) Error(msg string) {
	n.logger.Error(msg)
}

func (n *LogNotifier) Finished() {
	n.logger.Info("Processing finished")
}
