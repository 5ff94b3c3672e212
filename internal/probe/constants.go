package probe

// HTTP status code constants.
const (
	StatusOK = 200
)

// Worker configuration constants.
const (
	WorkerChannelMultiplier = 2
)

const (
	PercentageMultiplier = 100

	// distanceTolerance absorbs JSON float rounding when distances are
	// compared against the radius or recomputed.
	distanceTolerance = 1e-6
)
