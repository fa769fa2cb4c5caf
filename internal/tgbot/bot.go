package tgbot

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"github.com/goserg/poolrating/internal/config"
)

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type Bot struct {
	api  *tgbotapi.BotAPI
	send sender
	log  *logrus.Entry

	subs     *subscriptions
	commands *Commands
}

func New(ratings Ratings, cfg config.TgBot, l *logrus.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.TelegramApiToken)
	if err != nil {
		return nil, fmt.Errorf("telegram api token: %w", err)
	}
	api.Debug = cfg.Debug
	if _, err := api.GetMe(); err != nil {
		return nil, err
	}
	b := newBot(api, ratings, l)
	b.api = api
	return b, nil
}

func newBot(s sender, ratings Ratings, l *logrus.Logger) *Bot {
	subs := newSubs()
	return &Bot{
		send:     s,
		log:      l.WithField("name", "tg_bot"),
		subs:     subs,
		commands: NewCommands(ratings, subs),
	}
}

// Run polls for updates until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	defer b.api.StopReceivingUpdates()

	b.log.Info("bot started")
	for {
		select {
		case <-ctx.Done():
			return nil
		case update := <-updates:
			b.handleMessage(ctx, update)
		}
	}
}

func (b *Bot) handleMessage(ctx context.Context, update tgbotapi.Update) {
	if update.Message == nil || !update.Message.IsCommand() {
		return
	}
	log := b.log.WithFields(logrus.Fields{
		"chat_id": update.Message.Chat.ID,
		"text":    update.Message.Text,
	})

	text, err := b.commands.RunCommand(
		ctx,
		update.Message.Chat.ID,
		update.Message.Command(),
		strings.TrimSpace(update.Message.CommandArguments()),
	)
	if err != nil {
		text = err.Error()
	}
	msg := tgbotapi.NewMessage(update.Message.Chat.ID, text)
	if _, err := b.send.Send(msg); err != nil {
		log.WithError(err).Error("send error")
	}
}

func (b *Bot) sendTo(chatIDs []int64, text string) error {
	var firstErr error
	for _, id := range chatIDs {
		if _, err := b.send.Send(tgbotapi.NewMessage(id, text)); err != nil {
			b.log.WithError(err).WithField("chat_id", id).Error("notification not delivered")
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
