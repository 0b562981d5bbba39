package arenadto

// Failure codes reported to callers. Rule violations are deterministic and
// never retried; Contention means the optimistic commit bound was exhausted.
const (
	CodeGameFull       = "GAME_FULL"
	CodeInvalidState   = "INVALID_STATE"
	CodeNotYourTurn    = "NOT_YOUR_TURN"
	CodeOutOfRange     = "OUT_OF_RANGE"
	CodePositionTaken  = "POSITION_TAKEN"
	CodeContention     = "CONTENTION"
	CodeInvalidRequest = "INVALID_REQUEST"
	CodeNotFound       = "NOT_FOUND"
)
