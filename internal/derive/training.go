package derive

import (
	"math"
	"strings"

	"example.com/fitsync/internal/resolve"
)

// trainingStatusLabels maps upstream numeric status codes to labels.
var trainingStatusLabels = map[int]string{
	0: "No Status",
	1: "Detraining",
	2: "Recovery",
	3: "Maintaining",
	4: "Productive",
	5: "Peaking",
	6: "Overreaching",
	7: "Unproductive",
}

// TrainingInputs carries the raw payloads of the independent upstream
// calls feeding the health snapshot. Any of them may be nil when its
// fetch failed; resolution of the others proceeds regardless.
type TrainingInputs struct {
	MaxMetrics        any
	FitnessAge        any
	HRV               any
	TrainingReadiness any
	TrainingStatus    any
}

// TrainingSummary holds the resolved sub-metrics. Each field is nil
// when no candidate source produced a usable value.
type TrainingSummary struct {
	VO2Max         *float64
	FitnessAge     *int
	HRV            *float64
	ReadinessScore *int
	ReadinessLevel *string
	TrainingStatus *string
}

var (
	vo2PreciseField = resolve.NewField("vo2_max",
		resolve.At(resolve.Number, "vo2MaxPreciseValue"),
		resolve.At(resolve.Number, "vo2MaxValue"),
	)
	vo2FallbackField = resolve.NewField("vo2_max",
		resolve.At(resolve.Number, "mostRecentVO2Max", "generic", "vo2MaxPreciseValue"),
		resolve.At(resolve.Number, "mostRecentVO2Max", "generic", "vo2MaxValue"),
	)
	fitnessAgeField = resolve.NewField("fitness_age",
		resolve.At(resolve.Number, "fitnessAge"),
	)
	hrvField = resolve.NewField("hrv_value",
		resolve.At(resolve.Number, "hrvSummary", "weeklyAvg"),
	)
	readinessScoreField = resolve.NewField("training_readiness",
		resolve.At(resolve.Number, "score"),
		resolve.At(resolve.Number, "trainingReadinessScore"),
		resolve.At(resolve.Number, "trainingReadiness"),
	)
	statusValueField = resolve.NewField("training_status",
		resolve.At(resolve.String, "trainingStatus", "value"),
		resolve.At(resolve.String, "trainingStatus"),
	)
)

// ResolveTraining runs every sub-metric's fallback chain over the raw
// payloads. A failed upstream call contributes nothing; whatever can be
// resolved is.
func ResolveTraining(in TrainingInputs) TrainingSummary {
	var out TrainingSummary

	maxMetrics := resolve.Normalize(in.MaxMetrics)
	if v, ok := vo2PreciseField.Number(maxMetrics); ok {
		out.VO2Max = &v
	} else if v, ok := vo2FallbackField.Number(resolve.Normalize(in.TrainingStatus)); ok {
		out.VO2Max = &v
	}

	if v, ok := fitnessAgeField.Number(resolve.Normalize(in.FitnessAge)); ok {
		age := int(math.Round(v))
		out.FitnessAge = &age
	} else if v, ok := fitnessAgeField.Number(maxMetrics); ok {
		age := int(math.Round(v))
		out.FitnessAge = &age
	}

	if v, ok := hrvField.Number(resolve.Normalize(in.HRV)); ok {
		out.HRV = &v
	}

	if score, ok := readinessScoreField.Int(resolve.Normalize(in.TrainingReadiness)); ok {
		out.ReadinessScore = &score
		if level, ok := resolve.AsString(resolve.Normalize(in.TrainingReadiness)["level"]); ok {
			out.ReadinessLevel = &level
		}
	} else if code, label, ok := decodeDeviceStatus(in.TrainingStatus); ok {
		out.ReadinessScore = &code
		out.ReadinessLevel = &label
	}

	if v, ok := statusValueField.String(resolve.Normalize(in.TrainingStatus)); ok {
		out.TrainingStatus = &v
	}

	return out
}

// decodeDeviceStatus walks the per-device status table inside a
// training-status payload. The table is keyed by device identifier; the
// first device with usable data wins. A feedback phrase of the form
// "WORD_n" overrides the table-derived label with its leading word.
func decodeDeviceStatus(payload any) (int, string, bool) {
	doc := resolve.Normalize(payload)
	recent, ok := resolve.AsMap(doc["mostRecentTrainingStatus"])
	if !ok {
		return 0, "", false
	}
	byDevice, ok := resolve.AsMap(recent["latestTrainingStatusData"])
	if !ok {
		return 0, "", false
	}
	for _, raw := range byDevice {
		device, ok := resolve.AsMap(raw)
		if !ok {
			continue
		}
		codeValue, ok := resolve.AsNumber(device["trainingStatus"])
		if !ok {
			continue
		}
		code := int(codeValue)
		label := trainingStatusLabels[code]
		if phrase, ok := resolve.AsString(device["trainingStatusFeedbackPhrase"]); ok {
			word := strings.SplitN(phrase, "_", 2)[0]
			if word != "" {
				label = strings.ToUpper(word[:1]) + strings.ToLower(word[1:])
			}
		}
		return code, label, true
	}
	return 0, "", false
}
