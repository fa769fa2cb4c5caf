package service

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/goserg/poolrating/internal/domain"
)

// Notifier delivers game events to the players involved.
type Notifier interface {
	NotifyGameSubmitted(ctx context.Context, game domain.Match) error
	// NotifyGameVerified receives the rating change of every participant.
	NotifyGameVerified(ctx context.Context, game domain.Match, changes map[string]domain.RatingSnapshot) error
}

// LogNotifier writes events to the log. Used when no chat bot is configured.
type LogNotifier struct {
	log *logrus.Entry
}

var _ Notifier = (*LogNotifier)(nil)

func NewLogNotifier(l *logrus.Logger) *LogNotifier {
	return &LogNotifier{
		log: l.WithField("from", "notifier"),
	}
}

func (n *LogNotifier) NotifyGameSubmitted(_ context.Context, game domain.Match) error {
	n.log.WithFields(logrus.Fields{
		"game_id":  game.ID,
		"player_a": game.PlayerA,
		"player_b": game.PlayerB,
		"winner":   game.Winner,
	}).Info("game waiting for verification")
	return nil
}

func (n *LogNotifier) NotifyGameVerified(_ context.Context, game domain.Match, changes map[string]domain.RatingSnapshot) error {
	for name, c := range changes {
		n.log.WithFields(logrus.Fields{
			"game_id": game.ID,
			"player":  name,
			"rating":  c.Rating,
			"delta":   c.Delta,
		}).Info("rating changed")
	}
	return nil
}
