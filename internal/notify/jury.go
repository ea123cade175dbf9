// Package notify sends jury convocations and reminders over Telegram.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ksInsandji/pensezy-edition/internal/db"
	"github.com/ksInsandji/pensezy-edition/internal/metrics"
	"github.com/ksInsandji/pensezy-edition/internal/models"
)

const (
	KindConvocation = "convocation"
	KindReminder    = "reminder"
)

type Source interface {
	JuryByID(ctx context.Context, id int64) (models.JuryView, error)
	JuryRecipients(ctx context.Context, juryID int64) ([]db.Recipient, error)
}

type Notifier struct {
	src    Source
	sender Sender
	loc    *time.Location
	log    *zap.Logger
}

func New(src Source, sender Sender, loc *time.Location, log *zap.Logger) *Notifier {
	if loc == nil {
		loc = time.Local
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Notifier{src: src, sender: sender, loc: loc, log: log}
}

// Convocations notifies every new jury; failures are logged and the rest continue.
func (n *Notifier) Convocations(ctx context.Context, juryIDs []int64) {
	for _, id := range juryIDs {
		j, err := n.src.JuryByID(ctx, id)
		if err != nil {
			n.log.Warn("convocation: load jury", zap.Int64("jury_id", id), zap.Error(err))
			continue
		}
		if err := n.send(ctx, KindConvocation, j); err != nil {
			n.log.Warn("convocation: send", zap.Int64("jury_id", id), zap.Error(err))
		}
	}
}

// Reminder notifies the members and the student of j. It fails only when no
// recipient with a chat could be reached.
func (n *Notifier) Reminder(ctx context.Context, j models.JuryView) error {
	return n.send(ctx, KindReminder, j)
}

func (n *Notifier) send(ctx context.Context, kind string, j models.JuryView) error {
	recipients, err := n.src.JuryRecipients(ctx, j.ID)
	if err != nil {
		return fmt.Errorf("recipients of jury %d: %w", j.ID, err)
	}
	var (
		errs      []error
		delivered int
		reachable int
	)
	for _, r := range recipients {
		if r.ChatID == nil {
			metrics.Notifications.WithLabelValues(kind, "skipped").Inc()
			continue
		}
		reachable++
		if err := n.sender.Send(*r.ChatID, Message(kind, j, r.Role, n.loc)); err != nil {
			metrics.Notifications.WithLabelValues(kind, "failed").Inc()
			errs = append(errs, fmt.Errorf("user %d: %w", r.UserID, err))
			continue
		}
		metrics.Notifications.WithLabelValues(kind, "sent").Inc()
		delivered++
	}
	if reachable > 0 && delivered == 0 {
		return errors.Join(errs...)
	}
	if len(errs) > 0 {
		n.log.Info("some notifications failed", zap.String("kind", kind), zap.Int64("jury_id", j.ID), zap.Error(errors.Join(errs...)))
	}
	return nil
}

// Message renders the text sent to one recipient. role is "étudiant" or the member role.
func Message(kind string, j models.JuryView, role string, loc *time.Location) string {
	at := j.ScheduledAt.In(loc)
	var b strings.Builder
	if kind == KindReminder {
		b.WriteString("Rappel : soutenance demain\n\n")
	} else {
		b.WriteString("Convocation à une soutenance de mémoire\n\n")
	}
	if role == "étudiant" {
		b.WriteString("Vous soutenez votre mémoire")
	} else {
		fmt.Fprintf(&b, "Vous siégez comme %s pour la soutenance de %s", role, j.StudentName)
	}
	if j.ThemeTitle != "" {
		fmt.Fprintf(&b, " « %s »", j.ThemeTitle)
	}
	b.WriteString(".\n")
	fmt.Fprintf(&b, "Date : %s à %s (%d min)\n", at.Format("02/01/2006"), at.Format("15:04"), j.DurationMinutes)
	fmt.Fprintf(&b, "Salle : %s\n", j.Room)
	fmt.Fprintf(&b, "Jury : %s (président), %s (rapporteur), %s (examinateur)", j.PresidentName, j.RapporteurName, j.ExaminateurName)
	return b.String()
}
