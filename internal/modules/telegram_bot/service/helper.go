package service

import (
	"strings"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// firstArg returns the first word after the command, if any.
func firstArg(msg *tgbot.Message) string {
	fields := strings.Fields(msg.CommandArguments())
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// senderID is the user behind a message; for channel posts From is nil.
func senderID(msg *tgbot.Message) int64 {
	if msg.From != nil {
		return msg.From.ID
	}
	return msg.Chat.ID
}

func firstName(msg *tgbot.Message) string {
	if msg.From != nil && msg.From.FirstName != "" {
		return msg.From.FirstName
	}
	return "there"
}
