package classifier

import "fmt"

// Category is a blood-pressure severity tier.
type Category string

const (
	Normal   Category = "normal"
	Elevated Category = "elevated"
	Stage1   Category = "stage1"
	Stage2   Category = "stage2"
	Crisis   Category = "crisis"
)

var ranks = map[Category]int{
	Normal:   0,
	Elevated: 1,
	Stage1:   2,
	Stage2:   3,
	Crisis:   4,
}

// Rank orders categories: normal < elevated < stage1 < stage2 < crisis.
// Unknown categories rank below normal.
func (c Category) Rank() int {
	r, ok := ranks[c]
	if !ok {
		return -1
	}
	return r
}

// Status is the derived classification of a reading. It is never stored.
type Status struct {
	Category     Category `json:"category"`
	Message      string   `json:"message"`
	SeverityRank int      `json:"severity_rank"`
}

var messages = map[Category]string{
	Normal:   "Normal",
	Elevated: "Elevated",
	Stage1:   "High Blood Pressure (Stage 1)",
	Stage2:   "High Blood Pressure (Stage 2)",
	Crisis:   "Hypertensive Crisis",
}

// ClassifySystolic maps a systolic value to its sub-category.
func ClassifySystolic(systolic int) Category {
	switch {
	case systolic >= 180:
		return Crisis
	case systolic >= 140:
		return Stage2
	case systolic >= 130:
		return Stage1
	case systolic >= 120:
		return Elevated
	default:
		return Normal
	}
}

// ClassifyDiastolic maps a diastolic value to its sub-category.
// Diastolic has no elevated tier.
func ClassifyDiastolic(diastolic int) Category {
	switch {
	case diastolic >= 120:
		return Crisis
	case diastolic >= 90:
		return Stage2
	case diastolic >= 80:
		return Stage1
	default:
		return Normal
	}
}

// Classify returns the more severe of the systolic and diastolic categories.
func Classify(systolic, diastolic int) Status {
	cat := ClassifySystolic(systolic)
	if d := ClassifyDiastolic(diastolic); d.Rank() >= cat.Rank() {
		cat = d
	}
	return Status{
		Category:     cat,
		Message:      messages[cat],
		SeverityRank: cat.Rank(),
	}
}

// Alert describes the notification a non-normal reading produces.
type Alert struct {
	Title   string
	Message string
}

var alertTitles = map[Category]string{
	Elevated: "Elevated Blood Pressure",
	Stage1:   "Hypertension Stage 1",
	Stage2:   "Hypertension Stage 2",
	Crisis:   "Hypertensive Crisis",
}

var alertLabels = map[Category]string{
	Elevated: "Elevated",
	Stage1:   "Stage 1",
	Stage2:   "Stage 2",
	Crisis:   "Crisis",
}

// AlertFor returns the alert for a reading, or false when the reading is normal.
func AlertFor(systolic, diastolic int) (Alert, bool) {
	status := Classify(systolic, diastolic)
	title, ok := alertTitles[status.Category]
	if !ok {
		return Alert{}, false
	}
	return Alert{
		Title:   title,
		Message: fmt.Sprintf("%d/%d mmHg, %s", systolic, diastolic, alertLabels[status.Category]),
	}, true
}
