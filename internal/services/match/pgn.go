package match

import (
	"fmt"
	"strings"

	nchess "github.com/corentings/chess/v2"

	"github.com/chessroom/chessroom/internal/model"
)

// PGN renders a match's move ledger as PGN text.
//
// The server records moves without validating them (clients own legality), so
// the replay here is a formatting convenience only: if the stored notation
// does not replay cleanly, the export falls back to a plain numbered move
// list rather than rejecting the match.
func PGN(m *model.Match) string {
	game := nchess.NewGame()
	for _, mv := range m.Moves {
		if err := game.PushNotationMove(mv.SAN, nchess.AlgebraicNotation{}, nil); err != nil {
			return rawMoveText(m)
		}
	}
	return strings.TrimSpace(game.String())
}

// rawMoveText formats the stored notation as a numbered move list
func rawMoveText(m *model.Match) string {
	var sb strings.Builder
	for i, mv := range m.Moves {
		if i%2 == 0 {
			if i > 0 {
				sb.WriteByte(' ')
			}
			fmt.Fprintf(&sb, "%d.", i/2+1)
		}
		sb.WriteByte(' ')
		sb.WriteString(mv.SAN)
	}
	return sb.String()
}
