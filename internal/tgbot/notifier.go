package tgbot

import (
	"context"
	"sort"

	"github.com/goserg/poolrating/internal/domain"
	"github.com/goserg/poolrating/internal/rating"
	"github.com/goserg/poolrating/internal/service"
)

var _ service.Notifier = (*Bot)(nil)

func participants(game domain.Match) []string {
	isTeam := game.Format.IsTeam()
	return append(rating.ParseTeam(game.PlayerA, isTeam), rating.ParseTeam(game.PlayerB, isTeam)...)
}

func (b *Bot) NotifyGameSubmitted(_ context.Context, game domain.Match) error {
	ids := b.subs.ChatIDs(participants(game)...)
	if len(ids) == 0 {
		return nil
	}
	text := printer.Sprintf("New game %s: %s vs %s, winner %s. Waiting for verification.\nGame id: %s",
		game.Date, game.PlayerA, game.PlayerB, game.Winner, game.ID)
	return b.sendTo(ids, text)
}

func (b *Bot) NotifyGameVerified(_ context.Context, game domain.Match, changes map[string]domain.RatingSnapshot) error {
	names := make([]string, 0, len(changes))
	for name := range changes {
		names = append(names, name)
	}
	sort.Strings(names)

	var firstErr error
	for _, name := range names {
		ids := b.subs.ChatIDs(name)
		if len(ids) == 0 {
			continue
		}
		c := changes[name]
		text := printer.Sprintf("%s vs %s verified, winner %s.\n%s: %.0f (%+.1f)",
			game.PlayerA, game.PlayerB, game.Winner, name, c.Rating, c.Delta)
		if err := b.sendTo(ids, text); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
