package notify

import (
	"context"
	"html"
	"regexp"
	"strings"

	"hyper_monitor/pkg/logger"
)

var tagRe = regexp.MustCompile(`</?[a-zA-Z][^>]*>`)

// Log is the sender used without a Telegram token: notifications go to the
// process log.
type Log struct{}

func NewLog() *Log { return &Log{} }

func (l *Log) Send(ctx context.Context, userID int64, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	logger.Info("[NOTIFY] user=%d\n%s", userID, PlainText(text))
	return nil
}

// PlainText strips the HTML markup used in Telegram messages.
func PlainText(s string) string {
	s = tagRe.ReplaceAllString(s, "")
	return strings.TrimSpace(html.UnescapeString(s))
}
