package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"hyper_monitor/internal/models"
	"hyper_monitor/internal/modules/config"
	"hyper_monitor/internal/monitor"
	"hyper_monitor/pkg/logger"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// MonitorService is what the commands need from the monitor core.
type MonitorService interface {
	EnsureUser(ctx context.Context, userID int64) (bool, error)
	Subscribe(ctx context.Context, userID int64, address string) (monitor.SubscribeOutcome, error)
	Unsubscribe(ctx context.Context, userID int64, address string) (monitor.UnsubscribeOutcome, error)
	ListAddresses(userID int64) []string
	SnapshotNow(ctx context.Context, address string) (*models.Snapshot, error)
}

// Telegram handles chat commands.
type Telegram struct {
	bot   *Bot
	cfg   *config.Config
	svc   MonitorService
	await *awaitStore

	cancel  context.CancelFunc
	mu      sync.Mutex
	stopped bool
	wg      sync.WaitGroup
}

func NewTelegram(cfg *config.Config, bot *Bot, svc MonitorService) *Telegram {
	return &Telegram{
		bot:   bot,
		cfg:   cfg,
		svc:   svc,
		await: newAwaitStore(),
	}
}

// Start polls updates until Stop. Each update is handled in its own
// goroutine so a slow /query does not block other chats.
func (t *Telegram) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	t.cancel = cancel
	updates := t.bot.updates()
	go func() {
		for update := range updates {
			t.mu.Lock()
			if t.stopped {
				t.mu.Unlock()
				return
			}
			t.wg.Add(1)
			t.mu.Unlock()

			go func(u tgbot.Update) {
				defer t.wg.Done()
				t.handleUpdate(ctx, u)
			}(update)
		}
	}()
}

// Stop lets in-flight commands finish; their sends are bounded by
// send_timeout.
func (t *Telegram) Stop() {
	t.bot.stop()
	t.mu.Lock()
	t.stopped = true
	t.mu.Unlock()
	t.wg.Wait()
	if t.cancel != nil {
		t.cancel()
	}
}

func (t *Telegram) reply(ctx context.Context, chatID int64, text string) {
	ctx, cancel := context.WithTimeout(ctx, t.cfg.Monitor.SendTimeout)
	defer cancel()
	if err := t.bot.Send(ctx, chatID, text); err != nil {
		logger.Error("[TG] reply to %d: %v", chatID, err)
	}
}

func (t *Telegram) handleUpdate(ctx context.Context, update tgbot.Update) {
	msg := update.Message
	if msg == nil || msg.Chat == nil {
		return
	}
	chatID := msg.Chat.ID
	userID := senderID(msg)

	if !t.cfg.IsAuthorized(userID) {
		logger.Warn("[TG] unauthorized user %d", userID)
		t.reply(ctx, chatID, textUnauthorized)
		return
	}

	var err error
	if msg.IsCommand() {
		err = t.handleCommand(ctx, msg, userID)
	} else if key, ok := t.peekAwait(chatID); ok && key == awaitAddress {
		err = t.handleAwaitedAddress(ctx, msg, userID)
	}
	if err != nil {
		logger.Error("[TG] /%s from %d: %v", msg.Command(), userID, err)
		t.reply(ctx, chatID, textInternal)
	}
}

func (t *Telegram) handleCommand(ctx context.Context, msg *tgbot.Message, userID int64) error {
	chatID := msg.Chat.ID
	switch msg.Command() {
	case "start":
		return t.handleStart(ctx, msg, userID)
	case "help":
		t.reply(ctx, chatID, formatHelp())
	case "query":
		return t.handleQuery(ctx, msg)
	case "monitor":
		return t.handleMonitor(ctx, msg, userID)
	case "stop_monitor":
		return t.handleStopMonitor(ctx, msg, userID)
	case "add_address":
		t.setAwait(chatID, awaitAddress)
		t.reply(ctx, chatID, textAskAddress)
	case "cancel":
		t.clearAwait(chatID)
		t.reply(ctx, chatID, textCancelled)
	case "status":
		t.handleStatus(ctx, chatID, userID)
	default:
		t.reply(ctx, chatID, "Unknown command, see /help")
	}
	return nil
}

// handleStart registers the user and gives a new user the default address.
func (t *Telegram) handleStart(ctx context.Context, msg *tgbot.Message, userID int64) error {
	if _, err := t.svc.EnsureUser(ctx, userID); err != nil {
		return err
	}
	def := t.cfg.Monitor.DefaultAddress
	if def != "" {
		addr, err := NormalizeAddress(def)
		if err != nil {
			return err
		}
		def = addr
	}
	if len(t.svc.ListAddresses(userID)) == 0 && def != "" {
		if _, err := t.svc.Subscribe(ctx, userID, def); err != nil {
			return err
		}
	}
	t.reply(ctx, msg.Chat.ID, formatStart(firstName(msg), def))
	return nil
}

// addressArg validates the optional argument, falling back to the default
// address. A ValidationError has already been answered.
func (t *Telegram) addressArg(ctx context.Context, msg *tgbot.Message) (string, error) {
	raw := firstArg(msg)
	if raw == "" {
		raw = t.cfg.Monitor.DefaultAddress
	}
	addr, err := NormalizeAddress(raw)
	if err != nil {
		t.reply(ctx, msg.Chat.ID, textBadAddress)
	}
	return addr, err
}

func (t *Telegram) handleQuery(ctx context.Context, msg *tgbot.Message) error {
	addr, err := t.addressArg(ctx, msg)
	if err != nil {
		return ignoreValidation(err)
	}

	chatID := msg.Chat.ID
	wait, err := t.bot.SendMessage(ctx, tgbot.NewMessage(chatID, textWait))
	if err != nil {
		return fmt.Errorf("send wait message: %w", err)
	}

	text := ""
	snap, err := t.svc.SnapshotNow(ctx, addr)
	if err != nil {
		logger.Warn("[TG] query %s: %v", addr, err)
		text = fmt.Sprintf("Could not fetch data for <code>%s</code>, please check the address and try again.", addr)
	} else {
		text = formatSnapshot(snap)
	}

	if err := t.bot.editText(chatID, wait.MessageID, text); err != nil {
		logger.Warn("[TG] edit query reply: %v", err)
		return t.bot.Send(ctx, chatID, text)
	}
	return nil
}

func (t *Telegram) handleMonitor(ctx context.Context, msg *tgbot.Message, userID int64) error {
	addr, err := t.addressArg(ctx, msg)
	if err != nil {
		return ignoreValidation(err)
	}
	return t.subscribe(ctx, msg.Chat.ID, userID, addr, "Started monitoring")
}

func (t *Telegram) subscribe(ctx context.Context, chatID, userID int64, addr, okText string) error {
	out, err := t.svc.Subscribe(ctx, userID, addr)
	if err != nil {
		return err
	}
	if out == monitor.AlreadySubscribed {
		t.reply(ctx, chatID, fmt.Sprintf("Already monitoring <code>%s</code>", addr))
		return nil
	}
	logger.Info("[TG] user %d subscribed to %s", userID, addr)
	t.reply(ctx, chatID, fmt.Sprintf("%s <code>%s</code>", okText, addr))
	return nil
}

func (t *Telegram) handleStopMonitor(ctx context.Context, msg *tgbot.Message, userID int64) error {
	chatID := msg.Chat.ID
	raw := firstArg(msg)
	if raw == "" {
		t.reply(ctx, chatID, "Specify the address to stop monitoring: /stop_monitor &lt;address&gt;")
		return nil
	}
	addr, err := NormalizeAddress(raw)
	if err != nil {
		t.reply(ctx, chatID, textBadAddress)
		return nil
	}
	if len(t.svc.ListAddresses(userID)) == 0 {
		t.reply(ctx, chatID, textNoAddresses)
		return nil
	}

	out, err := t.svc.Unsubscribe(ctx, userID, addr)
	if err != nil {
		return err
	}
	if out == monitor.NotSubscribed {
		t.reply(ctx, chatID, fmt.Sprintf("Address not monitored: <code>%s</code>", addr))
		return nil
	}
	logger.Info("[TG] user %d unsubscribed from %s", userID, addr)
	t.reply(ctx, chatID, fmt.Sprintf("Stopped monitoring <code>%s</code>", addr))
	return nil
}

// handleAwaitedAddress is the second step of /add_address. A malformed
// address keeps the conversation open.
func (t *Telegram) handleAwaitedAddress(ctx context.Context, msg *tgbot.Message, userID int64) error {
	chatID := msg.Chat.ID
	addr, err := NormalizeAddress(strings.TrimSpace(msg.Text))
	if err != nil {
		t.reply(ctx, chatID, textBadAddress)
		return nil
	}
	t.clearAwait(chatID)
	return t.subscribe(ctx, chatID, userID, addr, "Added address")
}

func (t *Telegram) handleStatus(ctx context.Context, chatID, userID int64) {
	addrs := t.svc.ListAddresses(userID)
	if len(addrs) == 0 {
		t.reply(ctx, chatID, textNoAddresses)
		return
	}
	t.reply(ctx, chatID, formatStatus(addrs))
}

func ignoreValidation(err error) error {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return nil
	}
	return err
}
