// Package leveling converts cumulative XP into levels.
//
// Advancing from level l to l+1 costs 100 + 50*l XP, so the cumulative XP
// needed to stand at level L is
//
//	T(L) = sum_{l=1}^{L-1} (100 + 50*l) = 25*L^2 + 75*L - 100
//
// with T(1) = 0, T(2) = 150 and T(3) = 350.
//
// Levels stop at MaxLevel so every threshold, including the one above the
// cap, fits in an int64. XP is capped at MaxXP.
package leveling

import "math"

const (
	baseCost    = 100
	costPerStep = 50
)

const (
	MaxLevel = 600_000_000

	// MaxXP is the threshold of MaxLevel. XP above it never raises the level.
	MaxXP int64 = 25*MaxLevel*MaxLevel + 75*MaxLevel - 100
)

// StepCost is the XP needed to advance from level to level+1.
func StepCost(level int) int64 {
	if level < 1 {
		level = 1
	}
	return baseCost + costPerStep*int64(level)
}

// Threshold is the cumulative XP at which level is reached. Levels past
// MaxLevel+1 saturate at math.MaxInt64.
func Threshold(level int) int64 {
	if level <= 1 {
		return 0
	}
	if level > MaxLevel+1 {
		return math.MaxInt64
	}
	l := int64(level)
	return 25*l*l + 75*l - 100
}

// LevelOf is the largest level whose threshold does not exceed xp.
func LevelOf(xp int64) int {
	if xp <= 0 {
		return 1
	}
	if xp >= MaxXP {
		return MaxLevel
	}

	// Positive root of 25L^2 + 75L - (100+xp) = 0, corrected against
	// Threshold so float rounding never moves a boundary.
	est := (-75 + math.Sqrt(5625+100*(100+float64(xp)))) / 50
	level := int(est)
	if level < 1 {
		level = 1
	}
	if level > MaxLevel {
		level = MaxLevel
	}
	for level > 1 && Threshold(level) > xp {
		level--
	}
	for level < MaxLevel && Threshold(level+1) <= xp {
		level++
	}
	return level
}

// Progress describes the outcome of adding XP.
type Progress struct {
	OldXP        int64 `json:"old_xp"`
	NewXP        int64 `json:"new_xp"`
	OldLevel     int   `json:"old_level"`
	NewLevel     int   `json:"new_level"`
	LevelsGained int   `json:"levels_gained"`
}

func (p Progress) LevelUp() bool {
	return p.NewLevel > p.OldLevel
}

// AddXP returns xp+delta capped at MaxXP. It never returns less than xp,
// and negative deltas are ignored.
func AddXP(xp, delta int64) int64 {
	if delta <= 0 || xp >= MaxXP {
		return xp
	}
	if delta > MaxXP-xp {
		return MaxXP
	}
	return xp + delta
}

// ScaleXP returns xp*n capped at MaxXP.
func ScaleXP(xp, n int64) int64 {
	if xp <= 0 || n <= 0 {
		return 0
	}
	if xp > MaxXP/n {
		return MaxXP
	}
	return xp * n
}

// Apply adds delta to xp with AddXP. XP only moves down through an explicit
// override.
func Apply(xp int64, delta int64) Progress {
	oldLevel := LevelOf(xp)
	newXP := AddXP(xp, delta)
	newLevel := LevelOf(newXP)

	return Progress{
		OldXP:        xp,
		NewXP:        newXP,
		OldLevel:     oldLevel,
		NewLevel:     newLevel,
		LevelsGained: newLevel - oldLevel,
	}
}

// Standing is a user's position inside the current level.
type Standing struct {
	Level          int     `json:"level"`
	XP             int64   `json:"xp"`
	LevelStartXP   int64   `json:"level_start_xp"`
	NextLevelXP    int64   `json:"next_level_xp"`
	XPIntoLevel    int64   `json:"xp_into_level"`
	XPForNextLevel int64   `json:"xp_for_next_level"`
	Percent        float64 `json:"progress_percent"`
}

func Describe(xp int64) Standing {
	if xp < 0 {
		xp = 0
	}
	level := LevelOf(xp)
	start := Threshold(level)
	next := Threshold(level + 1)
	into := xp - start
	step := next - start

	return Standing{
		Level:          level,
		XP:             xp,
		LevelStartXP:   start,
		NextLevelXP:    next,
		XPIntoLevel:    into,
		XPForNextLevel: step,
		Percent:        math.Round(float64(into)*10000/float64(step)) / 100,
	}
}
