package domain

import "strings"

// ConditionLabel identifica un régimen de mercado (tendencia × volatilidad).
// Es opaco para el engine: solo se usa como clave de partición.
type ConditionLabel string

// ConditionUnknown se usa cuando el clasificador no pudo decidir.
const ConditionUnknown ConditionLabel = "unknown"

// OrUnknown devuelve ConditionUnknown si la etiqueta está vacía.
func (c ConditionLabel) OrUnknown() ConditionLabel {
	if strings.TrimSpace(string(c)) == "" {
		return ConditionUnknown
	}
	return c
}

func (c ConditionLabel) String() string {
	return string(c.OrUnknown())
}

// Title devuelve la etiqueta legible para reportes: "bull_low_vol" → "Bull Low Vol".
func (c ConditionLabel) Title() string {
	parts := strings.Split(c.String(), "_")
	for i, p := range parts {
		if p == "" {
			continue
		}
		parts[i] = strings.ToUpper(p[:1]) + p[1:]
	}
	return strings.Join(parts, " ")
}
