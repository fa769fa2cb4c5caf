package tgbot

import (
	"context"
	"errors"

	"github.com/goserg/poolrating/internal/domain"
	"github.com/goserg/poolrating/internal/storage"
)

var errNameRequired = errors.New("player name is required")

type MeCommand struct {
	ratings Ratings
}

func (c *MeCommand) Run(ctx context.Context, _ int64, args string) (string, error) {
	if args == "" {
		return "", errNameRequired
	}
	entry, err := c.ratings.FindPlayer(ctx, args)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return "", errors.New("player " + args + " not found")
		}
		return "", err
	}
	return printPlayer(entry), nil
}

func (c *MeCommand) Help() string {
	return "/me <name> shows the rating of a player"
}

func printPlayer(e domain.LeaderboardEntry) string {
	return printer.Sprintf(
		"%s\nRank: %d\nRating: %d ±%d\nRecord: %d-%d (%d%%)\nStreak: %d",
		e.Player, e.Rank, e.Rating, e.RD, e.Wins, e.Losses, e.WinRate, e.Streak,
	)
}

type SubCommand struct {
	ratings Ratings
	subs    *subscriptions
}

func (c *SubCommand) Run(ctx context.Context, chatID int64, args string) (string, error) {
	if args == "" {
		return "", errNameRequired
	}
	entry, err := c.ratings.FindPlayer(ctx, args)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return "", errors.New("player " + args + " not found")
		}
		return "", err
	}
	c.subs.Add(entry.Player, chatID)
	return "Subscribed to " + entry.Player + ", use /unsub " + entry.Player + " to stop", nil
}

func (c *SubCommand) Help() string {
	return "/sub <name> sends you the games of a player"
}

type UnsubCommand struct {
	subs *subscriptions
}

func (c *UnsubCommand) Run(_ context.Context, chatID int64, args string) (string, error) {
	if args == "" {
		return "", errNameRequired
	}
	if !c.subs.Remove(args, chatID) {
		return "You are not subscribed to " + args, nil
	}
	return "Unsubscribed from " + args, nil
}

func (c *UnsubCommand) Help() string {
	return "/unsub <name> stops notifications about a player"
}
