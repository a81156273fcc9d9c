package service

// levelThresholds lists the minimum experience for levels 5 down to 1.
var levelThresholds = [...]int{100, 75, 50, 25, 10}

// LevelFor derives the level from experience. It is total: negative
// experience is level 0.
func LevelFor(experience int) int {
	for i, threshold := range levelThresholds {
		if experience >= threshold {
			return len(levelThresholds) - i
		}
	}
	return 0
}
