package interview

// TotalStages is the number of phases an interview moves through.
const TotalStages = 5

var stageLabels = map[int]string{
	1: "Warm Up",
	2: "Daily Operations",
	3: "Pain Points",
	4: "Data & Communication",
	5: "Wishes",
}

// DeriveStage maps an exchange count (user-authored turns so far) to the
// interview phase. Pure and total over all non-negative counts, so a
// replayed message log always reproduces the same phase sequence.
func DeriveStage(exchangeCount int) int {
	switch {
	case exchangeCount <= 3:
		return 1
	case exchangeCount <= 10:
		return 2
	case exchangeCount <= 16:
		return 3
	case exchangeCount <= 21:
		return 4
	default:
		return 5
	}
}

// StageLabel returns the human-readable name of a phase.
func StageLabel(stage int) string {
	return stageLabels[stage]
}
