// Package discord runs the chat game inside a Discord guild: !commands are
// dispatched like any other chat text, and vote summaries are posted to a
// broadcast channel.
package discord

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"partyvote/internal/app"
	"partyvote/internal/commands"
	"partyvote/internal/directory"
	"partyvote/internal/domain"
)

// commandTimeout bounds the handling of one chat message
const commandTimeout = 10 * time.Second

// api is the subset of *discordgo.Session the adapter calls
type api interface {
	ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	UserChannelCreate(recipientID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	Channel(channelID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	User(userID string, options ...discordgo.RequestOption) (*discordgo.User, error)
}

// NewSession creates an unopened bot session
func NewSession(token string) (*discordgo.Session, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("discord session: %w", err)
	}
	s.Identify.Intents = discordgo.IntentsGuildMessages | discordgo.IntentsDirectMessages | discordgo.IntentsMessageContent
	return s, nil
}

// Bot routes guild messages through the command dispatcher
type Bot struct {
	session    *discordgo.Session
	dispatcher *commands.Dispatcher
	logger     *slog.Logger
}

func NewBot(session *discordgo.Session, dispatcher *commands.Dispatcher, logger *slog.Logger) *Bot {
	return &Bot{
		session:    session,
		dispatcher: dispatcher,
		logger:     app.ResolveLogger(logger).With("transport", "discord"),
	}
}

// Open connects to the gateway
func (b *Bot) Open() error {
	b.session.AddHandler(b.onMessageCreate)
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("discord open: %w", err)
	}
	b.logger.Info("discord bot connected")
	return nil
}

// Close disconnects from the gateway
func (b *Bot) Close() error {
	return b.session.Close()
}

func (b *Bot) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	selfID := ""
	if s.State != nil && s.State.User != nil {
		selfID = s.State.User.ID
	}
	b.handleMessage(s, selfID, m)
}

// handleMessage answers messages that start with ! or mention the bot
func (b *Bot) handleMessage(s api, selfID string, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot {
		return
	}

	text := strings.TrimSpace(m.Content)
	mentioned := mentionsUser(m.Message, selfID)
	if mentioned {
		text = stripMention(text, selfID)
	}
	if !mentioned && !strings.HasPrefix(text, "!") {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	reply, err := b.dispatcher.Dispatch(ctx, commands.Request{
		PlayerID:    m.Author.ID,
		PlayerName:  displayName(m.Author),
		Channel:     channelName(s, m.ChannelID),
		Text:        text,
		MentionsBot: mentioned,
	})
	if err != nil {
		b.logger.Debug("command rejected", "playerID", m.Author.ID, "error", err)
		b.respond(s, m, commands.UserMessage(err), false)
		return
	}
	b.respond(s, m, reply.Text, reply.InChannel)
}

// respond posts in the source channel, or as a direct message when the
// reply is private. A failed DM falls back to the channel.
func (b *Bot) respond(s api, m *discordgo.MessageCreate, text string, inChannel bool) {
	if !inChannel {
		if dm, err := s.UserChannelCreate(m.Author.ID); err == nil {
			if _, err := s.ChannelMessageSend(dm.ID, text); err == nil {
				return
			}
		}
	}
	if _, err := s.ChannelMessageSend(m.ChannelID, text); err != nil {
		b.logger.Warn("discord send failed", "channelID", m.ChannelID, "error", err)
	}
}

func mentionsUser(m *discordgo.Message, userID string) bool {
	if userID == "" {
		return false
	}
	for _, u := range m.Mentions {
		if u != nil && u.ID == userID {
			return true
		}
	}
	return false
}

func stripMention(text, userID string) string {
	text = strings.ReplaceAll(text, "<@!"+userID+">", "")
	text = strings.ReplaceAll(text, "<@"+userID+">", "")
	return strings.TrimSpace(text)
}

func displayName(u *discordgo.User) string {
	if u.GlobalName != "" {
		return u.GlobalName
	}
	return u.Username
}

// channelName resolves a channel id to its name so --main-channel can be
// configured by name. Unknown channels keep their id.
func channelName(s api, channelID string) string {
	ch, err := s.Channel(channelID)
	if err != nil || ch.Name == "" {
		return channelID
	}
	return ch.Name
}

// Resolver looks players up through the Discord API
func Resolver(s api) directory.Resolver {
	return directory.ResolverFunc(func(_ context.Context, playerID string) (domain.Player, error) {
		u, err := s.User(playerID)
		if err != nil {
			return domain.Player{}, fmt.Errorf("discord user %s: %w: %w", playerID, domain.ErrPlayerNotFound, err)
		}
		return domain.NewPlayer(u.ID, displayName(u)), nil
	})
}
