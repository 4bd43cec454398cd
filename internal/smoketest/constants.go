package smoketest

// Worker configuration constants.
const (
	WorkerChannelMultiplier = 2
)

// Runner configuration constants.
const (
	PercentageMultiplier = 100
	// averageTolerance absorbs float formatting differences in JSON responses.
	averageTolerance = 1e-9
)
