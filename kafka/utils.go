package kafka

import (
	"strings"
	"unicode"

	"github.com/sirupsen/logrus"
)

// sanitizeTopic lower-cases topic and turns path separators into dashes, which
// some managed brokers reject.
func sanitizeTopic(topic string) string {
	var b strings.Builder
	b.Grow(len(topic))
	for _, r := range topic {
		switch r {
		case '/':
			b.WriteByte('-')
		default:
			b.WriteRune(unicode.ToLower(r))
		}
	}

	return b.String()
}

// sanitizeGroupID keeps broker-safe characters, collapsing every other run
// into a single dash. The result is capped at 255 bytes.
func sanitizeGroupID(s string) string {
	b := strings.Builder{}
	b.Grow(len(s))
	lastDash := false
	for _, r := range s {
		if r == '/' || r == ':' || r == '.' || r == '-' || r == '_' || r == '@' || r == '+' {
			b.WriteRune(r)
			lastDash = false
			continue
		}
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			lastDash = false
			continue
		}
		// normalize others to single dash
		if !lastDash {
			b.WriteByte('-')
			lastDash = true
		}
	}
	res := strings.Trim(b.String(), "-")
	if res == "" {
		return "consumer"
	}
	if len(res) > 255 {
		return res[:255]
	}
	return res
}

func trace(l *logrus.Entry, message string, args ...any) {
	l.WithField("source", "consumer").Tracef(message, args...)
}

// readerLogger routes kafka-go's reader logs into the consumer's entry:
// chatter at trace, reader errors at warn.
type readerLogger struct {
	entry *logrus.Entry
	level logrus.Level
}

func (l readerLogger) Printf(message string, args ...any) {
	l.entry.WithField("source", "reader").Logf(l.level, message, args...)
}
