package logger

import (
	"log/slog"
	"strings"
	"time"
)

// Error creates an attribute for a single error under the key "error".
// If err is nil, it returns an empty Attr.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// AccountID records the account identifier under the key "account_id".
// Zero ids are not logged.
func AccountID(id int64) slog.Attr {
	if id == 0 {
		return slog.Attr{}
	}
	return slog.Int64("account_id", id)
}

// Email records a masked email address under the key "email".
// Only the first character of the local part and the domain are kept.
func Email(addr string) slog.Attr {
	if addr == "" {
		return slog.Attr{}
	}
	return slog.String("email", MaskEmail(addr))
}

// MaskEmail hides most of the local part of an address: "alice@x.com" becomes "a***@x.com".
func MaskEmail(addr string) string {
	at := strings.LastIndexByte(addr, '@')
	if at <= 0 {
		return "***"
	}
	return addr[:1] + "***" + addr[at:]
}

// RequestID records the request identifier under the key "request_id".
func RequestID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("request_id", id)
}

// TokenID records a session token id under the key "token_id".
func TokenID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("token_id", id)
}

// Component records the component name under the key "component".
func Component(name string) slog.Attr {
	return slog.String("component", name)
}

// Event records the event name under the key "event".
func Event(name string) slog.Attr {
	return slog.String("event", name)
}

func Duration(d time.Duration) slog.Attr {
	return slog.Duration("duration", d)
}

func Method(m string) slog.Attr {
	return slog.String("method", m)
}

func Path(p string) slog.Attr {
	return slog.String("path", p)
}

func Status(code int) slog.Attr {
	return slog.Int("status_code", code)
}

func Attempt(n int) slog.Attr {
	return slog.Int("attempt", n)
}
