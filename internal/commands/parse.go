// Package commands turns chat text into ledger and engine calls and renders
// their results back into chat text.
package commands

import (
	"regexp"
	"strconv"
	"strings"

	"partyvote/internal/domain"
)

// Kind identifies a chat command
type Kind string

const (
	KindKill  Kind = "kill"
	KindPray  Kind = "pray"
	KindMove  Kind = "move"
	KindTally Kind = "tally"
	KindBoard Kind = "board"
	KindWins  Kind = "wins"
	KindReset Kind = "reset"
	KindHelp  Kind = "help"
)

// Command is a parsed chat command
type Command struct {
	Kind     Kind
	Args     string // raw argument text for kill and pray
	Row, Col int
	Category domain.Category
}

// mentionPattern matches a single chat user mention such as <@U024BE7LH>
var mentionPattern = regexp.MustCompile(`^<[^<>\s]+>$`)

// IsMention reports whether s is exactly one user mention
func IsMention(s string) bool {
	return mentionPattern.MatchString(strings.TrimSpace(s))
}

// Parse reads a command word, optionally prefixed with / or !, and its
// arguments. Kill targets are validated by the dispatcher, not here.
func Parse(text string) (Command, error) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return Command{}, domain.ErrInvalidCommand
	}

	word := strings.ToLower(strings.TrimLeft(fields[0], "/!"))
	args := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(text), fields[0]))
	rest := fields[1:]

	switch Kind(word) {
	case KindKill:
		return Command{Kind: KindKill, Args: args, Category: domain.CategoryKill}, nil
	case KindPray, "prayer":
		return Command{Kind: KindPray, Args: args, Category: domain.CategoryPrayer}, nil
	case KindMove:
		if len(rest) != 2 {
			return Command{}, domain.ErrInvalidCommand
		}
		row, err := strconv.Atoi(rest[0])
		if err != nil {
			return Command{}, domain.ErrInvalidCommand
		}
		col, err := strconv.Atoi(rest[1])
		if err != nil {
			return Command{}, domain.ErrInvalidCommand
		}
		return Command{Kind: KindMove, Row: row, Col: col}, nil
	case KindTally, "votes":
		category := domain.CategoryKill
		if len(rest) > 0 {
			c, err := domain.ParseCategory(rest[0])
			if err != nil {
				return Command{}, err
			}
			category = c
		}
		return Command{Kind: KindTally, Category: category}, nil
	case KindBoard:
		return Command{Kind: KindBoard}, nil
	case KindWins, "scores":
		return Command{Kind: KindWins}, nil
	case KindReset:
		return Command{Kind: KindReset}, nil
	case KindHelp:
		return Command{Kind: KindHelp}, nil
	}
	return Command{}, domain.ErrInvalidCommand
}

// MutatesState reports whether the command is restricted to the main channel
func (c Command) MutatesState() bool {
	switch c.Kind {
	case KindKill, KindPray, KindMove, KindReset:
		return true
	}
	return false
}
