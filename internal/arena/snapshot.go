package arena

import (
	"tictac-server/internal/game"
	"tictac-server/pkg/arenadto"
)

// SnapshotOf renders the broadcast view of a session. The board is derived
// by replaying the move list; empty cells are "".
func SnapshotOf(sess *game.Session) *arenadto.Snapshot {
	if sess == nil {
		return nil
	}
	var board [9]string
	for i, cell := range game.BoardOf(sess.Moves) {
		board[i] = string(cell)
	}
	return &arenadto.Snapshot{
		SessionID:        sess.ID,
		PlayerXID:        sess.PlayerXID,
		PlayerXName:      sess.PlayerXName,
		PlayerXConnected: sess.PlayerXConn != "",
		PlayerOID:        sess.PlayerOID,
		PlayerOName:      sess.PlayerOName,
		PlayerOConnected: sess.PlayerOConn != "",
		Status:           string(sess.Status),
		CurrentTurn:      string(sess.Turn),
		Winner:           string(sess.Winner),
		WinningLine:      sess.WinningLine,
		Board:            board,
		Version:          sess.Version,
		CreatedAt:        sess.CreatedAt,
		CompletedAt:      sess.CompletedAt,
	}
}
