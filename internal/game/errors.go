package game

// Rule errors are deterministic client-rule violations: reported verbatim to
// the offending caller, never retried by the engine.
var (
	ErrGameFull       = errf("game already has two players")
	ErrInvalidState   = errf("game is not in progress")
	ErrNotYourTurn    = errf("not your turn")
	ErrOutOfRange     = errf("position out of range")
	ErrPositionTaken  = errf("position already taken")
	ErrNotParticipant = errf("player is not in this game")
)

type staticErr string

func (e staticErr) Error() string { return string(e) }
func errf(s string) error         { return staticErr(s) }
