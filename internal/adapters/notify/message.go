package notify

import (
	"fmt"
	"strings"

	"github.com/alejandrodnm/ethcast/internal/domain"
)

// formatMessage arma el texto plano que se envía a los canales de chat.
func formatMessage(r domain.RunReport) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s $%.2f (%s)\n", r.Symbol, r.BasePrice, r.Condition.Title())

	for _, name := range r.HorizonNames() {
		hf := r.Horizons[name]
		fmt.Fprintf(&sb, "%s: $%.2f (%+.2f%%) [%s]\n",
			name, hf.EnsemblePrice, pctChange(hf.EnsemblePrice, r.BasePrice), hf.WeightSource)
	}

	s := r.Summary
	if s.TotalValidations > 0 {
		fmt.Fprintf(&sb, "Accuracy: %.1f%% direction, %.3f%% avg error (%d validations)\n",
			s.DirectionalAccuracyPct, s.EnsembleAvgErrorPct, s.TotalValidations)
	} else {
		fmt.Fprintf(&sb, "Accuracy: no validations yet\n")
	}
	if r.Validated > 0 {
		fmt.Fprintf(&sb, "Validated this run: %d\n", r.Validated)
	}
	if r.AccuracyAlert {
		fmt.Fprintf(&sb, "ALERT: directional accuracy below 50%%\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}
