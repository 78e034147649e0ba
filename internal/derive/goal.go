package derive

import (
	"time"

	"example.com/fitsync/internal/domain"
)

// DefaultMonthlyRunningGoalKm is the monthly running distance target.
const DefaultMonthlyRunningGoalKm = 100.0

// runningTypes are the activity type keys that count toward the goal.
var runningTypes = map[string]bool{
	"running":           true,
	"trail_running":     true,
	"treadmill_running": true,
}

// RunDetail is one counted run, retained for display.
type RunDetail struct {
	Date       string   `json:"date"`
	Name       string   `json:"activity_name,omitempty"`
	DistanceKm float64  `json:"distance_km"`
	DurationS  float64  `json:"duration_seconds"`
	Calories   int      `json:"calories"`
	AverageHR  *int     `json:"average_hr,omitempty"`
	PaceMinKm  *float64 `json:"pace_min_per_km,omitempty"`
}

// GoalProjection is the month-to-date running goal status. It is
// recomputed on every read, never persisted.
type GoalProjection struct {
	GoalKm           float64     `json:"goal_km"`
	TotalDistanceKm  float64     `json:"total_distance_km"`
	TotalDurationS   float64     `json:"total_duration_seconds"`
	TotalCalories    int         `json:"total_calories"`
	RunCount         int         `json:"run_count"`
	RemainingKm      float64     `json:"remaining_km"`
	DaysElapsed      int         `json:"days_elapsed"`
	DaysRemaining    int         `json:"days_remaining"`
	PaceNeededPerDay float64     `json:"pace_needed_km_per_day"`
	OnTrack          bool        `json:"on_track"`
	Runs             []RunDetail `json:"runs"`
}

// ProjectRunningGoal filters the month's activities down to runs and
// projects progress against a linear pace toward goalKm. today anchors
// the elapsed-days math; activities outside running types are ignored.
func ProjectRunningGoal(activities []domain.ActivityRecord, goalKm float64, today time.Time) GoalProjection {
	monthStart := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, today.Location())
	daysInMonth := time.Date(today.Year(), today.Month()+1, 0, 0, 0, 0, 0, today.Location()).Day()

	p := GoalProjection{
		GoalKm: goalKm,
		Runs:   []RunDetail{},
	}
	for _, act := range activities {
		if act.Type == nil || !runningTypes[*act.Type] {
			continue
		}
		detail := RunDetail{Date: act.Date.Format(domain.DayFormat)}
		if act.Name != nil {
			detail.Name = *act.Name
		}
		if act.DistanceMeters != nil {
			detail.DistanceKm = round2(*act.DistanceMeters / 1000)
		}
		if act.DurationSec != nil {
			detail.DurationS = *act.DurationSec
		}
		if act.Calories != nil {
			detail.Calories = *act.Calories
		}
		detail.AverageHR = act.AverageHR
		if detail.DistanceKm > 0 && detail.DurationS > 0 {
			pace := round2(detail.DurationS / 60 / detail.DistanceKm)
			detail.PaceMinKm = &pace
		}
		p.TotalDistanceKm += detail.DistanceKm
		p.TotalDurationS += detail.DurationS
		p.TotalCalories += detail.Calories
		p.RunCount++
		p.Runs = append(p.Runs, detail)
	}

	p.TotalDistanceKm = round2(p.TotalDistanceKm)
	p.RemainingKm = round2(goalKm - p.TotalDistanceKm)
	if p.RemainingKm < 0 {
		p.RemainingKm = 0
	}
	p.DaysElapsed = int(today.Sub(monthStart).Hours()/24) + 1
	p.DaysRemaining = daysInMonth - p.DaysElapsed
	if p.DaysRemaining < 0 {
		p.DaysRemaining = 0
	}
	if p.DaysRemaining > 0 {
		p.PaceNeededPerDay = round2(p.RemainingKm / float64(p.DaysRemaining))
	}
	target := goalKm / float64(daysInMonth) * float64(p.DaysElapsed)
	p.OnTrack = p.TotalDistanceKm >= target
	return p
}
