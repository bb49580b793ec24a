package eval

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
)

// interactionHeader is the CSV column layout of the low-score log.
var interactionHeader = []string{
	"timestamp", "question", "prediction", "reference", "faithfulness", "search_type",
}

// InteractionLog appends low-faithfulness interactions to a CSV file for
// later review. Best-effort: write failures are logged, never propagated.
type InteractionLog struct {
	mu        sync.Mutex
	path      string
	threshold float64
	logger    *zap.Logger
	now       func() time.Time
}

// NewInteractionLog creates a log writing to path for scores below threshold.
// An empty path disables logging.
func NewInteractionLog(path string, threshold float64, logger *zap.Logger) *InteractionLog {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InteractionLog{
		path:      path,
		threshold: threshold,
		logger:    logger,
		now:       time.Now,
	}
}

// Record appends one row when the faithfulness score falls below the
// threshold. Returns true when a row was written.
func (l *InteractionLog) Record(question, prediction, reference, searchType string, scores Scores) bool {
	if l.path == "" {
		return false
	}
	faith, ok := scores[MetricFaithfulness]
	if !ok || faith >= l.threshold {
		return false
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.append(question, prediction, reference, searchType, faith); err != nil {
		l.logger.Warn("interaction log write failed",
			zap.String("path", l.path), zap.Error(err))
		return false
	}

	l.logger.Info("low faithfulness interaction recorded",
		zap.Float64("faithfulness", faith),
		zap.String("search_type", searchType),
	)
	return true
}

func (l *InteractionLog) append(question, prediction, reference, searchType string, faith float64) error {
	_, statErr := os.Stat(l.path)
	fresh := os.IsNotExist(statErr)

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o640)
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if fresh {
		if err := w.Write(interactionHeader); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}
	row := []string{
		l.now().UTC().Format(time.RFC3339),
		question, prediction, reference,
		strconv.FormatFloat(faith, 'f', 4, 64),
		searchType,
	}
	if err := w.Write(row); err != nil {
		return fmt.Errorf("write row: %w", err)
	}
	w.Flush()
	return w.Error()
}
