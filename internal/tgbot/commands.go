package tgbot

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/goserg/poolrating/internal/domain"
)

var ErrBadRequest = errors.New("unknown command, see /help")

// Ratings is the read side of the rating service used by the bot.
type Ratings interface {
	Leaderboard(ctx context.Context) ([]domain.LeaderboardEntry, error)
	StreakLeaders(ctx context.Context, min int) ([]domain.LeaderboardEntry, error)
	FindPlayer(ctx context.Context, name string) (domain.LeaderboardEntry, error)
}

type Command interface {
	Run(ctx context.Context, chatID int64, args string) (string, error)
	Help() string
}

type Commands struct {
	list map[string]Command
}

func NewCommands(ratings Ratings, subs *subscriptions) *Commands {
	hc := &HelpCommand{}
	c := &Commands{
		list: map[string]Command{
			"help":    hc,
			"start":   hc,
			"top":     &TopCommand{ratings: ratings},
			"streaks": &StreaksCommand{ratings: ratings},
			"me":      &MeCommand{ratings: ratings},
			"sub":     &SubCommand{ratings: ratings, subs: subs},
			"unsub":   &UnsubCommand{subs: subs},
		},
	}
	hc.commands = c.list
	return c
}

func (c *Commands) RunCommand(ctx context.Context, chatID int64, cmd string, args string) (string, error) {
	command, ok := c.list[cmd]
	if !ok {
		return "", ErrBadRequest
	}
	return command.Run(ctx, chatID, args)
}

type HelpCommand struct {
	commands map[string]Command
}

func (c *HelpCommand) Run(_ context.Context, _ int64, args string) (string, error) {
	if command, ok := c.commands[strings.TrimPrefix(args, "/")]; ok {
		return command.Help(), nil
	}
	names := make([]string, 0, len(c.commands))
	for name := range c.commands {
		if name == "start" {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString("Available commands:\n")
	for _, name := range names {
		b.WriteString("/")
		b.WriteString(name)
		b.WriteString("\n")
	}
	b.WriteString("Use /help <command> for details")
	return b.String(), nil
}

func (c *HelpCommand) Help() string {
	return "Lists the available commands"
}
