package formatting

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Metric value kinds understood by FormatMetric.
const (
	KindPercent         = "percent"
	KindCurrency        = "currency"
	KindCount           = "count"
	KindDurationMinutes = "duration_minutes"
	KindRatio           = "ratio"
)

// FormatMetric renders a metric value for display according to its kind.
// Unknown kinds fall back to a bare number.
func FormatMetric(kind string, value float64) string {
	switch kind {
	case KindPercent:
		return strconv.FormatFloat(value, 'f', 1, 64) + "%"
	case KindCurrency:
		return formatCurrency(value)
	case KindCount:
		return strconv.FormatInt(int64(math.Round(value)), 10)
	case KindDurationMinutes:
		return formatMinutes(value)
	case KindRatio:
		return strconv.FormatFloat(value, 'f', 2, 64)
	default:
		return strconv.FormatFloat(value, 'f', -1, 64)
	}
}

func formatCurrency(value float64) string {
	negative := value < 0
	if negative {
		value = -value
	}

	whole := int64(value)
	cents := int64(math.Round((value - float64(whole)) * 100))
	if cents == 100 {
		whole++
		cents = 0
	}

	formatted := fmt.Sprintf("$%s.%02d", groupThousands(whole), cents)
	if negative {
		return "-" + formatted
	}
	return formatted
}

func formatMinutes(value float64) string {
	total := int64(math.Round(value))
	if total < 60 {
		return fmt.Sprintf("%dm", total)
	}

	hours := total / 60
	minutes := total % 60
	if minutes == 0 {
		return fmt.Sprintf("%dh", hours)
	}
	return fmt.Sprintf("%dh %dm", hours, minutes)
}

func groupThousands(n int64) string {
	s := strconv.FormatInt(n, 10)
	if len(s) <= 3 {
		return s
	}

	var b strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}
