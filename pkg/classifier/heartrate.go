package classifier

import "fmt"

// HeartRateKind names a heart-rate alert condition.
type HeartRateKind string

const (
	HeartRateHigh      HeartRateKind = "high"
	HeartRateIrregular HeartRateKind = "irregular"
)

// Alert titles double as suppression keys.
const (
	TitleHighHeartRate      = "High Heart Rate"
	TitleIrregularHeartbeat = "Irregular Heartbeat"
)

const (
	highHeartRateThreshold  = 120
	irregularLowerThreshold = 40
	irregularUpperThreshold = 180
)

// HeartRateAlert is one condition raised by a heart-rate sample.
type HeartRateAlert struct {
	Kind    HeartRateKind `json:"kind"`
	Title   string        `json:"title"`
	Message string        `json:"message"`
}

// ClassifyHeartRate returns every alert the sample raises. The high and
// irregular conditions are independent, so a value above 180 raises both.
func ClassifyHeartRate(bpm int, source string) []HeartRateAlert {
	var out []HeartRateAlert

	if bpm > highHeartRateThreshold {
		msg := fmt.Sprintf("Heart rate %d bpm", bpm)
		if source != "" {
			msg += fmt.Sprintf(" (%s)", source)
		}
		out = append(out, HeartRateAlert{Kind: HeartRateHigh, Title: TitleHighHeartRate, Message: msg})
	}

	if bpm < irregularLowerThreshold || bpm > irregularUpperThreshold {
		out = append(out, HeartRateAlert{
			Kind:    HeartRateIrregular,
			Title:   TitleIrregularHeartbeat,
			Message: fmt.Sprintf("Potential irregular heartbeat detected: %d bpm", bpm),
		})
	}

	return out
}
