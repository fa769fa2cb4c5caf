package tgbot

import (
	"context"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const topSize = 10

var printer = message.NewPrinter(language.English)

type TopCommand struct {
	ratings Ratings
}

func (c *TopCommand) Run(ctx context.Context, _ int64, _ string) (string, error) {
	entries, err := c.ratings.Leaderboard(ctx)
	if err != nil {
		return "", err
	}
	if len(entries) == 0 {
		return "No rated games yet", nil
	}
	var b strings.Builder
	for i, e := range entries {
		if i == topSize {
			break
		}
		b.WriteString(printer.Sprintf("%d. %s (%d) %d-%d, %d%%\n", e.Rank, e.Player, e.Rating, e.Wins, e.Losses, e.WinRate))
	}
	return b.String(), nil
}

func (c *TopCommand) Help() string {
	return "Top of the leaderboard"
}

type StreaksCommand struct {
	ratings Ratings
}

func (c *StreaksCommand) Run(ctx context.Context, _ int64, _ string) (string, error) {
	leaders, err := c.ratings.StreakLeaders(ctx, 0)
	if err != nil {
		return "", err
	}
	if len(leaders) == 0 {
		return "Nobody is on a streak", nil
	}
	var b strings.Builder
	for _, e := range leaders {
		b.WriteString(printer.Sprintf("%s: %d wins in a row\n", e.Player, e.Streak))
	}
	return b.String(), nil
}

func (c *StreaksCommand) Help() string {
	return "Players on a winning streak"
}
