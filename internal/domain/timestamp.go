package domain

import (
	"fmt"
	"strings"
	"time"
)

// naiveLayouts son formatos ISO-8601 sin offset. Un timestamp en estos formatos
// se interpreta como UTC: es el contrato explícito del engine para horas "naive".
var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
}

// ParseTimestamp parsea un timestamp con o sin zona horaria.
// Con offset (RFC3339) se convierte a UTC; sin offset se asume UTC.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), nil
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("domain.ParseTimestamp: unrecognized timestamp %q", s)
}

// NormalizeUTC devuelve t en UTC y sin lectura monotónica, de modo que dos
// instantes iguales sean iguales también con ==.
func NormalizeUTC(t time.Time) time.Time {
	return t.UTC().Round(0)
}
