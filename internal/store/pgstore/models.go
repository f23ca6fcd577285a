package pgstore

import (
	"fmt"
	"time"

	"partyvote/internal/domain"
)

type voteModel struct {
	VoterID   string    `gorm:"column:voter_id;primaryKey"`
	Category  string    `gorm:"column:category;primaryKey"`
	VoterName string    `gorm:"column:voter_name"`
	Target    string    `gorm:"column:target;index"`
	CastAt    time.Time `gorm:"column:cast_at"`
}

func (voteModel) TableName() string {
	return "votes"
}

func voteModelFromEntity(vote domain.Vote) voteModel {
	return voteModel{
		VoterID:   vote.VoterID,
		Category:  string(vote.Category),
		VoterName: vote.VoterName,
		Target:    vote.Target,
		CastAt:    vote.CastAt.UTC(),
	}
}

func (m voteModel) toEntity() domain.Vote {
	return domain.Vote{
		VoterID:   m.VoterID,
		VoterName: m.VoterName,
		Target:    m.Target,
		Category:  domain.Category(m.Category),
		CastAt:    m.CastAt.UTC(),
	}
}

type boardCellModel struct {
	CellIndex int    `gorm:"column:cell_index;primaryKey;autoIncrement:false"`
	Mark      string `gorm:"column:mark"`
}

func (boardCellModel) TableName() string {
	return "board_cells"
}

type turnModel struct {
	ID        int       `gorm:"column:id;primaryKey;autoIncrement:false"`
	Mark      string    `gorm:"column:mark"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (turnModel) TableName() string {
	return "turn_marker"
}

type winModel struct {
	PlayerID string `gorm:"column:player_id;primaryKey"`
	Wins     int    `gorm:"column:wins"`
}

func (winModel) TableName() string {
	return "win_counts"
}

func cellsFromBoard(board domain.Board) []boardCellModel {
	cells := make([]boardCellModel, 0, len(board))
	for i, mark := range board {
		cells = append(cells, boardCellModel{CellIndex: i, Mark: mark.String()})
	}
	return cells
}

func boardFromCells(cells []boardCellModel) (domain.Board, error) {
	var board domain.Board
	for _, cell := range cells {
		if cell.CellIndex < 0 || cell.CellIndex >= domain.CellCount {
			return domain.Board{}, fmt.Errorf("cell index %d out of range", cell.CellIndex)
		}
		mark, err := domain.ParseMark(cell.Mark)
		if err != nil {
			return domain.Board{}, fmt.Errorf("cell %d: %w", cell.CellIndex, err)
		}
		board[cell.CellIndex] = mark
	}
	return board, nil
}
