// Package directory resolves player ids to display names. It is used for
// display only, never for authorization.
package directory

import (
	"context"
	"errors"
	"log/slog"

	lru "github.com/hashicorp/golang-lru/v2"

	"partyvote/internal/domain"
)

// DefaultCacheSize is used when a non-positive size is configured
const DefaultCacheSize = 256

// Resolver looks a player up in an external roster, such as a chat platform
type Resolver interface {
	Resolve(ctx context.Context, playerID string) (domain.Player, error)
}

// ResolverFunc adapts a function to Resolver
type ResolverFunc func(ctx context.Context, playerID string) (domain.Player, error)

func (f ResolverFunc) Resolve(ctx context.Context, playerID string) (domain.Player, error) {
	return f(ctx, playerID)
}

// Directory remembers names seen in commands and falls back to an upstream
// resolver on a cache miss
type Directory struct {
	cache    *lru.Cache[string, domain.Player]
	upstream Resolver
	logger   *slog.Logger
}

// New creates a directory. upstream may be nil.
func New(size int, upstream Resolver, logger *slog.Logger) (*Directory, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	cache, err := lru.New[string, domain.Player](size)
	if err != nil {
		return nil, err
	}
	return &Directory{cache: cache, upstream: upstream, logger: logger}, nil
}

// Remember records the latest display name for a player
func (d *Directory) Remember(player domain.Player) {
	if player.ID == "" || player.Name == "" {
		return
	}
	d.cache.Add(player.ID, player)
}

// Resolve returns the player for id, or domain.ErrPlayerNotFound
func (d *Directory) Resolve(ctx context.Context, playerID string) (domain.Player, error) {
	if player, ok := d.cache.Get(playerID); ok {
		return player, nil
	}
	if d.upstream == nil {
		return domain.Player{}, domain.ErrPlayerNotFound
	}

	player, err := d.upstream.Resolve(ctx, playerID)
	if err != nil {
		if !errors.Is(err, domain.ErrPlayerNotFound) {
			d.logger.Warn("player lookup failed", "playerID", playerID, "error", err)
		}
		return domain.Player{}, domain.ErrPlayerNotFound
	}
	d.Remember(player)
	return player, nil
}

// DisplayName never fails: a miss yields fallback, or domain.UnknownPlayerName
// when fallback is empty
func (d *Directory) DisplayName(ctx context.Context, playerID, fallback string) string {
	player, err := d.Resolve(ctx, playerID)
	if err == nil {
		return player.Name
	}
	if fallback != "" {
		return fallback
	}
	return domain.UnknownPlayerName
}

// Len returns the number of cached players
func (d *Directory) Len() int {
	return d.cache.Len()
}
