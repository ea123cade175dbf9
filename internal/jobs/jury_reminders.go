package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/ksInsandji/pensezy-edition/internal/models"
)

const reminderBatch = 100

type ReminderStore interface {
	DueForReminder(ctx context.Context, within time.Duration, batch int) ([]models.JuryView, error)
	MarkReminded(ctx context.Context, ids []int64) error
}

type Reminder interface {
	Reminder(ctx context.Context, j models.JuryView) error
}

// JuryReminders notifies jurys scheduled within advance and flags them so that
// each jury is reminded once. Jurys whose notification failed are retried next run.
func JuryReminders(store ReminderStore, n Reminder, advance time.Duration) Job {
	return func(ctx context.Context) error {
		due, err := store.DueForReminder(ctx, advance, reminderBatch)
		if err != nil {
			return err
		}
		if len(due) == 0 {
			return nil
		}

		var errs []error
		done := make([]int64, 0, len(due))
		for _, j := range due {
			if err := n.Reminder(ctx, j); err != nil {
				errs = append(errs, err)
				continue
			}
			done = append(done, j.ID)
		}
		if len(done) > 0 {
			if err := store.MarkReminded(ctx, done); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}
}
