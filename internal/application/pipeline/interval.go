package pipeline

import (
	"fmt"
	"strconv"
	"time"
)

// IntervalDuration convierte un intervalo de velas de Binance ("1m", "4h",
// "1d", "1w") en time.Duration.
func IntervalDuration(interval string) (time.Duration, error) {
	if len(interval) < 2 {
		return 0, fmt.Errorf("invalid candle interval %q", interval)
	}
	n, err := strconv.Atoi(interval[:len(interval)-1])
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid candle interval %q", interval)
	}
	unit := map[byte]time.Duration{
		'm': time.Minute,
		'h': time.Hour,
		'd': 24 * time.Hour,
		'w': 7 * 24 * time.Hour,
	}[interval[len(interval)-1]]
	if unit == 0 {
		return 0, fmt.Errorf("invalid candle interval %q", interval)
	}
	return time.Duration(n) * unit, nil
}
