package service

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"hyper_monitor/internal/modules/config"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"
)

// botAPI is the part of *tgbot.BotAPI the bot uses.
type botAPI interface {
	Send(c tgbot.Chattable) (tgbot.Message, error)
	Request(c tgbot.Chattable) (*tgbot.APIResponse, error)
	GetUpdatesChan(config tgbot.UpdateConfig) tgbot.UpdatesChannel
	StopReceivingUpdates()
}

// Bot owns the Telegram connection. It also serves as the monitor's
// notification sender.
type Bot struct {
	api         botAPI
	out         botAPI
	pollTimeout int
}

func NewBot(cfg *config.Config) (*Bot, error) {
	return newBot(cfg, tgbot.APIEndpoint)
}

// newBot uses one client for long polling and a second one, limited to
// send_timeout, for outgoing messages.
func newBot(cfg *config.Config, endpoint string) (*Bot, error) {
	var transport http.RoundTripper
	if cfg.Telegram.ProxyURL != "" {
		proxy, err := url.Parse(cfg.Telegram.ProxyURL)
		if err != nil {
			return nil, errors.Wrap(err, "parse proxy_url")
		}
		transport = &http.Transport{Proxy: http.ProxyURL(proxy)}
	}
	poll := &http.Client{
		Timeout:   time.Duration(cfg.Telegram.PollTimeout+15) * time.Second,
		Transport: transport,
	}

	b, err := tgbot.NewBotAPIWithClient(cfg.Telegram.Token, endpoint, poll)
	if err != nil {
		return nil, errors.Wrap(err, "telegram auth")
	}
	out := *b
	out.Client = &http.Client{Timeout: cfg.Monitor.SendTimeout, Transport: transport}

	return &Bot{api: b, out: &out, pollTimeout: cfg.Telegram.PollTimeout}, nil
}

// Send delivers an HTML message. The HTTP request is limited to
// send_timeout. A ctx that ends earlier abandons the wait, and the request
// may still reach Telegram until that limit.
func (b *Bot) Send(ctx context.Context, chatID int64, text string) error {
	msg := tgbot.NewMessage(chatID, text)
	msg.ParseMode = tgbot.ModeHTML
	msg.DisableWebPagePreview = true
	_, err := b.send(ctx, msg)
	return err
}

func (b *Bot) SendMessage(ctx context.Context, msg tgbot.MessageConfig) (tgbot.Message, error) {
	return b.send(ctx, msg)
}

func (b *Bot) editText(chatID int64, msgID int, text string) error {
	edit := tgbot.NewEditMessageText(chatID, msgID, text)
	edit.ParseMode = tgbot.ModeHTML
	edit.DisableWebPagePreview = true
	_, err := b.out.Request(edit)
	return err
}

func (b *Bot) send(ctx context.Context, c tgbot.Chattable) (tgbot.Message, error) {
	type result struct {
		msg tgbot.Message
		err error
	}
	ch := make(chan result, 1)
	go func() {
		m, err := b.out.Send(c)
		ch <- result{m, err}
	}()
	select {
	case r := <-ch:
		return r.msg, r.err
	case <-ctx.Done():
		return tgbot.Message{}, ctx.Err()
	}
}

func (b *Bot) updates() tgbot.UpdatesChannel {
	u := tgbot.NewUpdate(0)
	u.Timeout = b.pollTimeout
	return b.api.GetUpdatesChan(u)
}

func (b *Bot) stop() {
	b.api.StopReceivingUpdates()
}
