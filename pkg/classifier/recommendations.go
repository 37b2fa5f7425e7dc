package classifier

// Recommendations returns lifestyle advice for a reading's category.
func Recommendations(systolic, diastolic int) []string {
	switch cat := Classify(systolic, diastolic).Category; cat {
	case Normal:
		return []string{
			"Your blood pressure is in a healthy range. Keep up your good habits!",
			"Continue regular exercise and a balanced diet.",
		}
	case Elevated:
		return []string{
			"Try relaxation techniques like deep breathing or meditation.",
			"Reduce sodium intake and increase physical activity.",
			"Limit caffeine and alcohol consumption.",
		}
	case Stage1:
		return []string{
			"Monitor your blood pressure regularly (daily if possible).",
			"Consult your doctor about lifestyle changes or medication.",
			"Reduce stress through exercise, yoga, or counseling.",
			"Limit sodium, maintain healthy weight, and avoid smoking.",
		}
	default:
		recs := []string{
			"Seek medical attention as soon as possible.",
			"Do not engage in strenuous activities.",
			"Follow your doctor's treatment plan closely.",
			"Monitor blood pressure multiple times daily.",
		}
		if cat == Crisis {
			recs = append(recs, "Call emergency services if experiencing symptoms like severe headache, chest pain, or vision changes.")
		}
		return recs
	}
}
