package commands

import (
	"fmt"
	"strings"

	"partyvote/internal/domain"
)

const (
	mentionReply = "what do you want?"

	helpText = "Commands:\n" +
		"kill <@player>  vote to kill a player\n" +
		"pray <name>  pray for someone\n" +
		"move <row> <col>  place your mark (0-2)\n" +
		"tally [kill|prayer]  show the votes\n" +
		"board  show the board\n" +
		"wins  show the scoreboard\n" +
		"reset  clear the board"
)

// NameFunc resolves a player id to a display name
type NameFunc func(playerID, fallback string) string

func mention(playerID string) string {
	return "<@" + playerID + ">"
}

func RenderKill(voterID, target string) string {
	return fmt.Sprintf("%s has voted to kill %s", mention(voterID), target)
}

func RenderPrayer(target string) string {
	return fmt.Sprintf("Your prayer for %s has been heard.", target)
}

// RenderTally lists each target with its vote count and voters
func RenderTally(category domain.Category, tally []domain.TallyEntry, name NameFunc) string {
	if len(tally) == 0 {
		return fmt.Sprintf("No %s votes yet.", strings.ToLower(string(category)))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s votes:", category)
	for _, entry := range tally {
		voters := make([]string, 0, len(entry.Voters))
		for _, v := range entry.Voters {
			voters = append(voters, name(v.ID, v.Name))
		}
		fmt.Fprintf(&b, "\n%s: %d (%s)", entry.Target, entry.Count, strings.Join(voters, ", "))
	}
	return b.String()
}

func RenderBoard(board domain.Board, turn domain.Mark) string {
	return fmt.Sprintf("%s\n%s to move", board, turn)
}

// RenderMove describes an accepted move. On a win or tie the printed board
// is the final one; the live board has already been cleared.
func RenderMove(result domain.MoveResult, name NameFunc) string {
	switch result.Outcome {
	case domain.OutcomeWon:
		return fmt.Sprintf("%s\n%s wins as %s! Board reset, %s to move.",
			result.Board, name(result.Winner, ""), result.Mark, result.NextTurn)
	case domain.OutcomeTie:
		return fmt.Sprintf("%s\nIt's a tie. Board reset, %s to move.", result.Board, result.NextTurn)
	}
	return fmt.Sprintf("%s played %s at %d %d\n%s\n%s to move",
		name(result.PlayerID, ""), result.Mark, result.Row, result.Col, result.Board, result.NextTurn)
}

func RenderWins(wins []domain.WinCount, name NameFunc) string {
	if len(wins) == 0 {
		return "No wins yet."
	}
	var b strings.Builder
	b.WriteString("Wins:")
	for i, w := range wins {
		fmt.Fprintf(&b, "\n%d. %s - %d", i+1, name(w.PlayerID, ""), w.Wins)
	}
	return b.String()
}

func RenderReset(turn domain.Mark) string {
	return fmt.Sprintf("Board reset. %s to move.", turn)
}
