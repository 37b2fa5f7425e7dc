package classifier

import "fmt"

// ManualEntry is a set of self-reported vitals. Zero fields are absent.
type ManualEntry struct {
	HeartRate  int     `json:"heart_rate,omitempty"`
	SpO2       int     `json:"spo2,omitempty"`
	SleepHours float64 `json:"sleep_hours,omitempty"`
	Systolic   int     `json:"systolic,omitempty"`
	Diastolic  int     `json:"diastolic,omitempty"`
}

// Insight is a short analysis of a manual entry.
type Insight struct {
	Title           string   `json:"title"`
	Summary         string   `json:"summary"`
	Recommendations []string `json:"recommendations"`
}

// Analyze returns an insight for the first present metric, checked in the
// order heart rate, SpO2, sleep, blood pressure. An empty entry gets a
// generic insight.
func Analyze(e ManualEntry) Insight {
	switch {
	case e.HeartRate > 0:
		in := Insight{
			Title:   "Heart Rate Analysis",
			Summary: fmt.Sprintf("Your latest heart rate is %d bpm.", e.HeartRate),
		}
		switch {
		case e.HeartRate > 100:
			in.Recommendations = []string{
				"Your heart rate is a bit high. Consider some deep breathing exercises.",
				"Avoid caffeine for a few hours.",
			}
		case e.HeartRate < 60:
			in.Recommendations = []string{
				"Your heart rate is a bit low. If you feel dizzy, please consult a doctor.",
				"A brisk walk could help.",
			}
		default:
			in.Recommendations = []string{
				"Your heart rate is in a healthy range. Keep it up!",
				"Regular cardio exercise helps maintain a healthy heart.",
			}
		}
		return in

	case e.SpO2 > 0:
		in := Insight{
			Title:   "Blood Oxygen Analysis",
			Summary: fmt.Sprintf("Your latest SpO2 is %d%%.", e.SpO2),
		}
		if e.SpO2 < 95 {
			in.Recommendations = []string{
				"Your blood oxygen is slightly low. Try some deep, slow breaths.",
				"Ensure your room is well-ventilated.",
			}
		} else {
			in.Recommendations = []string{
				"Your blood oxygen level is excellent. Great job!",
				"Maintaining good air quality at home can help.",
			}
		}
		return in

	case e.SleepHours > 0:
		in := Insight{
			Title:   "Sleep Pattern Analysis",
			Summary: fmt.Sprintf("You slept for %g hours.", e.SleepHours),
		}
		if e.SleepHours < 7 {
			in.Recommendations = []string{
				"You might need more sleep. Aim for 7-9 hours per night.",
				"Establish a relaxing bedtime routine.",
			}
		} else {
			in.Recommendations = []string{
				"You're getting a healthy amount of sleep. Keep this great habit!",
				"A consistent sleep schedule, even on weekends, is beneficial.",
			}
		}
		return in

	case e.Systolic > 0 || e.Diastolic > 0:
		in := Insight{
			Title:   "Blood Pressure Analysis",
			Summary: fmt.Sprintf("Your blood pressure is %d/%d mmHg.", e.Systolic, e.Diastolic),
		}
		// Thresholds are looser than Classify's.
		if e.Systolic > 130 || e.Diastolic > 85 {
			in.Recommendations = []string{
				"Your blood pressure is slightly elevated. Monitoring your sodium intake is a good idea.",
				"Regular exercise can help manage blood pressure.",
			}
		} else {
			in.Recommendations = []string{
				"Your blood pressure is in the normal range. Excellent!",
				"A balanced diet contributes to healthy blood pressure.",
			}
		}
		return in

	default:
		return Insight{
			Title:   "Your Manual Entry Analysis",
			Summary: "Here are your personalized insights based on your latest entry.",
			Recommendations: []string{
				"Keep up the consistent health tracking!",
				"Stay hydrated throughout the day.",
			},
		}
	}
}
