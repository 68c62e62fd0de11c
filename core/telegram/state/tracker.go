package state

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/m3rciful/shopbot/core/logger"
)

// Deleter removes a message from a chat transcript.
type Deleter interface {
	Delete(ctx context.Context, chatID int64, messageID int) error
}

// FlushReport summarizes a cleanup pass.
type FlushReport struct {
	Attempted int
	Failed    int
}

// Tracker records stage-owned messages and deletes them when the stage is left.
type Tracker struct {
	deleter Deleter
}

// NewTracker returns a Tracker deleting through d.
func NewTracker(d Deleter) *Tracker {
	return &Tracker{deleter: d}
}

// Record appends a message to the session cleanup queue. Zero ids are ignored.
func (t *Tracker) Record(sess *Session, messageID int, origin Origin) bool {
	if sess == nil || messageID == 0 {
		return false
	}
	sess.Cleanup = append(sess.Cleanup, TrackedMessage{ID: messageID, Origin: origin})
	return true
}

// Flush tries to delete every queued message once and then empties the queue.
// Individual failures are logged and never returned.
func (t *Tracker) Flush(ctx context.Context, chatID int64, sess *Session) FlushReport {
	var report FlushReport
	if sess == nil {
		return report
	}
	queue := sess.Cleanup
	sess.Cleanup = nil
	for _, msg := range queue {
		report.Attempted++
		if err := t.deleteOne(ctx, chatID, msg.ID); err != nil {
			report.Failed++
			logger.LogEvent(ctx, logger.Cleanup, slog.LevelWarn, "cleanup.delete.fail",
				slog.String("status", "fail"),
				slog.Int("message_id", msg.ID),
				slog.String("origin", string(msg.Origin)),
				slog.String("err", logger.Err(err)),
			)
		}
	}
	if report.Attempted > 0 {
		logger.LogEvent(ctx, logger.Cleanup, slog.LevelDebug, "cleanup.flush",
			slog.String("status", "ok"),
			slog.Int("tracked", report.Attempted),
			slog.Int("deleted", report.Attempted-report.Failed),
			slog.Int("failed", report.Failed),
		)
	}
	return report
}

func (t *Tracker) deleteOne(ctx context.Context, chatID int64, messageID int) (err error) {
	if t.deleter == nil {
		return fmt.Errorf("no deleter configured")
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("delete panicked: %v", r)
		}
	}()
	return t.deleter.Delete(ctx, chatID, messageID)
}
