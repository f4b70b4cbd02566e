// utilitários pequenos de formatação para headers e mensagens da cota.

package ratelimit

import (
	"strconv"
	"time"
)

// layout equivalente ao toLocaleString("de-DE") que o frontend já exibe
const germanLayout = "2.1.2006, 15:04:05"

func formatInt(v int) string { return strconv.Itoa(v) }

// FormatResetISO segue o formato de Date.toISOString (UTC, milissegundos, "Z").
func FormatResetISO(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}

// FormatGerman formata t no fuso loc (UTC quando nil) no padrão alemão.
func FormatGerman(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(germanLayout)
}

func retryAfterSeconds(d time.Duration) string {
	return strconv.FormatInt(int64(d/time.Second), 10)
}
