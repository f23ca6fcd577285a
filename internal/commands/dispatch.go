package commands

import (
	"context"
	"log/slog"
	"strings"

	"partyvote/internal/app"
	"partyvote/internal/domain"
)

// DefaultMainChannel is the only channel that accepts votes and moves unless configured otherwise
const DefaultMainChannel = "main_chat"

// Ledger is the part of app.VoteLedger the dispatcher uses
type Ledger interface {
	CastVote(ctx context.Context, voterID, voterName, target string, category domain.Category) error
	Tally(category domain.Category) []domain.TallyEntry
}

// Engine is the part of app.MatchEngine the dispatcher uses
type Engine interface {
	ApplyMove(ctx context.Context, playerID string, row, col int) (domain.MoveResult, error)
	ResetBoard(ctx context.Context) error
	Board() (domain.Board, domain.Mark)
	WinCounts() []domain.WinCount
}

// Names is the part of the player directory the dispatcher uses
type Names interface {
	Remember(player domain.Player)
	DisplayName(ctx context.Context, playerID, fallback string) string
}

// Request is one chat message addressed to the game
type Request struct {
	PlayerID    string
	PlayerName  string
	Channel     string
	Text        string
	MentionsBot bool
}

// Reply is the text to send back. InChannel replies are visible to
// everyone; the rest go to the requester only.
type Reply struct {
	Text      string `json:"text"`
	InChannel bool   `json:"inChannel"`
}

// Config holds the collaborators of a Dispatcher
type Config struct {
	Ledger      Ledger
	Engine      Engine
	Names       Names // optional
	MainChannel string
	Logger      *slog.Logger
}

// Dispatcher routes chat commands to the ledger and engine
type Dispatcher struct {
	ledger      Ledger
	engine      Engine
	names       Names
	mainChannel string
	logger      *slog.Logger
}

func NewDispatcher(cfg Config) *Dispatcher {
	d := &Dispatcher{
		ledger:      cfg.Ledger,
		engine:      cfg.Engine,
		names:       cfg.Names,
		mainChannel: cfg.MainChannel,
		logger:      app.ResolveLogger(cfg.Logger),
	}
	if d.mainChannel == "" {
		d.mainChannel = DefaultMainChannel
	}
	return d
}

// MainChannel returns the channel votes and moves are accepted from
func (d *Dispatcher) MainChannel() string {
	return d.mainChannel
}

// Dispatch runs one chat command. Errors are domain errors; transports turn
// them into text with UserMessage.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) (Reply, error) {
	if req.MentionsBot && strings.TrimSpace(req.Text) == "" {
		return Reply{Text: mentionReply}, nil
	}

	cmd, err := Parse(req.Text)
	if err != nil {
		return Reply{}, err
	}

	if d.names != nil && req.PlayerID != "" && req.PlayerName != "" {
		d.names.Remember(domain.NewPlayer(req.PlayerID, req.PlayerName))
	}

	if cmd.MutatesState() && req.Channel != d.mainChannel {
		d.logger.Debug("command rejected outside main channel",
			"command", cmd.Kind,
			"channel", req.Channel,
			"playerID", req.PlayerID,
		)
		return Reply{}, domain.ErrWrongChannel
	}

	switch cmd.Kind {
	case KindKill:
		if !IsMention(cmd.Args) {
			return Reply{}, domain.ErrInvalidTarget
		}
		if err := d.ledger.CastVote(ctx, req.PlayerID, req.PlayerName, cmd.Args, domain.CategoryKill); err != nil {
			return Reply{}, err
		}
		return Reply{Text: RenderKill(req.PlayerID, strings.TrimSpace(cmd.Args)), InChannel: true}, nil

	case KindPray:
		if err := d.ledger.CastVote(ctx, req.PlayerID, req.PlayerName, cmd.Args, domain.CategoryPrayer); err != nil {
			return Reply{}, err
		}
		return Reply{Text: RenderPrayer(strings.TrimSpace(cmd.Args))}, nil

	case KindMove:
		result, err := d.engine.ApplyMove(ctx, req.PlayerID, cmd.Row, cmd.Col)
		if err != nil {
			return Reply{}, err
		}
		return Reply{Text: RenderMove(result, d.nameFunc(ctx)), InChannel: true}, nil

	case KindReset:
		if err := d.engine.ResetBoard(ctx); err != nil {
			return Reply{}, err
		}
		_, turn := d.engine.Board()
		return Reply{Text: RenderReset(turn), InChannel: true}, nil

	case KindTally:
		return Reply{Text: RenderTally(cmd.Category, d.ledger.Tally(cmd.Category), d.nameFunc(ctx))}, nil

	case KindBoard:
		board, turn := d.engine.Board()
		return Reply{Text: RenderBoard(board, turn)}, nil

	case KindWins:
		return Reply{Text: RenderWins(d.engine.WinCounts(), d.nameFunc(ctx))}, nil
	}

	return Reply{Text: helpText}, nil
}

func (d *Dispatcher) nameFunc(ctx context.Context) NameFunc {
	return func(playerID, fallback string) string {
		if d.names == nil {
			if fallback != "" {
				return fallback
			}
			return playerID
		}
		return d.names.DisplayName(ctx, playerID, fallback)
	}
}
