package handlers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"guessr/core"
	"guessr/models"
	"guessr/services"
)

// DiscordEventsHandler owns the bot session and translates slash commands
// into round-engine operations.
type DiscordEventsHandler struct {
	discordSDKClient   *discordgo.Session
	roundsService      services.RoundsService
	scoresService      services.ScoresService
	registeredCommands []*discordgo.ApplicationCommand
}

func NewDiscordEventsHandler(
	session *discordgo.Session,
	roundsService services.RoundsService,
	scoresService services.ScoresService,
) *DiscordEventsHandler {
	handler := &DiscordEventsHandler{
		discordSDKClient: session,
		roundsService:    roundsService,
		scoresService:    scoresService,
	}

	session.AddHandler(handler.handleInteractionCreate)
	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentMessageContent

	return handler
}

// StartBot opens the Discord connection and registers the slash commands
func (h *DiscordEventsHandler) StartBot() error {
	if err := h.discordSDKClient.Open(); err != nil {
		return fmt.Errorf("failed to open Discord session: %w", err)
	}

	for _, command := range commandDefinitions() {
		registered, err := h.discordSDKClient.ApplicationCommandCreate(
			h.discordSDKClient.State.User.ID,
			"",
			command,
		)
		if err != nil {
			return fmt.Errorf("failed to register command %s: %w", command.Name, err)
		}
		h.registeredCommands = append(h.registeredCommands, registered)
	}

	log.Printf("🤖 Discord bot is now running with %d commands registered", len(h.registeredCommands))
	return nil
}

// StopBot gracefully closes the Discord connection
func (h *DiscordEventsHandler) StopBot() {
	h.discordSDKClient.Close()
}

// PostRoundReveal announces a finished round in its game channel. Called from
// the timer expiry path where there is no interaction to respond to.
func (h *DiscordEventsHandler) PostRoundReveal(reveal *models.RoundReveal) {
	content := formatReveal(reveal)
	if _, err := h.discordSDKClient.ChannelMessageSend(reveal.Round.GameChannelID, content); err != nil {
		log.Printf("❌ Failed to post reveal for round %s: %v", reveal.Round.ID, err)
	}
}

var (
	minTimeoutSeconds  = float64(10)
	minContextMessages = float64(1)
)

func commandDefinitions() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:        "start",
			Description: "Start a round: guess where and when the mystery message was posted",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "timeout",
					Description: "Seconds until the round ends (10-600)",
					Required:    false,
					MinValue:    &minTimeoutSeconds,
					MaxValue:    600,
				},
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "context",
					Description: "How many surrounding messages to show (1-10)",
					Required:    false,
					MinValue:    &minContextMessages,
					MaxValue:    10,
				},
			},
		},
		{
			Name:        "guess",
			Description: "Submit your guess for the current round",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionChannel,
					Name:        "channel",
					Description: "Which channel the message was posted in",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "time",
					Description: "When it was posted, e.g. 2023-06-15, June 2023 or just 2023",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionUser,
					Name:        "author",
					Description: "Who posted it (optional, bonus points)",
					Required:    false,
				},
			},
		},
		{
			Name:        "skip",
			Description: "Cancel the current round and reveal the answer (requires Manage Messages)",
		},
		{
			Name:        "leaderboard",
			Description: "Show the guild's top guessers",
		},
		{
			Name:        "stats",
			Description: "Show a player's score, rank and perfect guesses",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionUser,
					Name:        "user",
					Description: "Player to look up (defaults to you)",
					Required:    false,
				},
			},
		},
		{
			Name:        "guessrhelp",
			Description: "How to play",
		},
	}
}

func (h *DiscordEventsHandler) handleInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	if i.GuildID == "" {
		h.respondEphemeral(s, i, "This bot only works inside a server.")
		return
	}

	name := i.ApplicationCommandData().Name
	log.Printf("📨 Slash command /%s in guild %s, channel %s", name, i.GuildID, i.ChannelID)

	switch name {
	case "start":
		h.handleStart(s, i)
	case "guess":
		h.handleGuess(s, i)
	case "skip":
		h.handleSkip(s, i)
	case "leaderboard":
		h.handleLeaderboard(s, i)
	case "stats":
		h.handleStats(s, i)
	case "guessrhelp":
		h.respondEphemeral(s, i, helpText())
	default:
		log.Printf("⚠️ Unknown command: %s", name)
	}
}

func (h *DiscordEventsHandler) handleStart(s *discordgo.Session, i *discordgo.InteractionCreate) {
	// Target selection walks guild history, so acknowledge first
	if err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	}); err != nil {
		log.Printf("❌ Failed to defer /start response: %v", err)
		return
	}

	opts := models.RoundOptions{}
	options := optionMap(i)
	if timeoutOpt, ok := options["timeout"]; ok {
		opts.Timeout = time.Duration(timeoutOpt.IntValue()) * time.Second
	}
	if contextOpt, ok := options["context"]; ok {
		opts.ContextMessages = int(contextOpt.IntValue())
	}

	ctx := context.Background()
	start, err := h.roundsService.StartRound(ctx, i.GuildID, i.ChannelID, opts)
	if err != nil {
		h.followUp(s, i, startErrorMessage(err))
		return
	}

	h.followUp(s, i, formatRoundStart(start))
}

func (h *DiscordEventsHandler) handleGuess(s *discordgo.Session, i *discordgo.InteractionCreate) {
	options := optionMap(i)

	channelOpt, ok := options["channel"]
	if !ok {
		h.respondEphemeral(s, i, "You need to pick a channel.")
		return
	}
	timeOpt, ok := options["time"]
	if !ok {
		h.respondEphemeral(s, i, "You need to guess a time.")
		return
	}

	timestampMs, err := ParseTimeGuess(timeOpt.StringValue())
	if err != nil {
		h.respondEphemeral(s, i,
			"I couldn't read that time. Try formats like `2023-06-15`, `June 2023` or `2023`.")
		return
	}

	sub := models.GuessSubmission{
		ChannelID:   channelOpt.Value.(string),
		TimestampMs: timestampMs,
	}
	if authorOpt, ok := options["author"]; ok {
		authorID := authorOpt.Value.(string)
		sub.AuthorID = &authorID
	}

	playerID := i.Member.User.ID
	ctx := context.Background()
	guess, _, err := h.roundsService.SubmitGuess(ctx, i.GuildID, i.ChannelID, playerID, sub)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrRoundNotActive):
			h.respondEphemeral(s, i, "There's no active round here. Start one with `/start`.")
		case errors.Is(err, core.ErrDuplicateGuess):
			h.respondEphemeral(s, i, "You've already guessed this round. Your first guess stands.")
		default:
			log.Printf("❌ Failed to submit guess: %v", err)
			h.respondEphemeral(s, i, "Something went wrong submitting your guess.")
		}
		return
	}

	h.respond(s, i, formatGuessReceipt(playerID, guess))
}

func (h *DiscordEventsHandler) handleSkip(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Member == nil || i.Member.Permissions&discordgo.PermissionManageMessages == 0 {
		h.respondEphemeral(s, i, "You need the Manage Messages permission to skip a round.")
		return
	}

	ctx := context.Background()
	maybeReveal, err := h.roundsService.SkipRound(ctx, i.GuildID, i.ChannelID)
	if err != nil {
		if errors.Is(err, core.ErrRoundNotActive) {
			h.respondEphemeral(s, i, "There's no active round here to skip.")
			return
		}
		log.Printf("❌ Failed to skip round: %v", err)
		h.respondEphemeral(s, i, "Something went wrong skipping the round.")
		return
	}

	reveal, ok := maybeReveal.Get()
	if !ok {
		h.respondEphemeral(s, i, "The round ended on its own just before the skip.")
		return
	}
	h.respond(s, i, "⏭️ Round skipped, no points awarded.\n"+formatReveal(reveal))
}

func (h *DiscordEventsHandler) handleLeaderboard(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx := context.Background()
	leaderboard, err := h.scoresService.GetLeaderboard(ctx, i.GuildID, 10)
	if err != nil {
		log.Printf("❌ Failed to get leaderboard: %v", err)
		h.respondEphemeral(s, i, "Something went wrong fetching the leaderboard.")
		return
	}
	h.respond(s, i, formatLeaderboard(leaderboard))
}

func (h *DiscordEventsHandler) handleStats(s *discordgo.Session, i *discordgo.InteractionCreate) {
	playerID := i.Member.User.ID
	if userOpt, ok := optionMap(i)["user"]; ok {
		playerID = userOpt.Value.(string)
	}

	ctx := context.Background()
	maybeStats, err := h.scoresService.GetPlayerStats(ctx, i.GuildID, playerID)
	if err != nil {
		log.Printf("❌ Failed to get player stats: %v", err)
		h.respondEphemeral(s, i, "Something went wrong fetching player stats.")
		return
	}

	stats, ok := maybeStats.Get()
	if !ok {
		h.respondEphemeral(s, i, fmt.Sprintf("<@%s> hasn't scored in any rounds yet.", playerID))
		return
	}
	h.respond(s, i, formatPlayerStats(stats))
}

func optionMap(i *discordgo.InteractionCreate) map[string]*discordgo.ApplicationCommandInteractionDataOption {
	options := i.ApplicationCommandData().Options
	mapped := make(map[string]*discordgo.ApplicationCommandInteractionDataOption, len(options))
	for _, option := range options {
		mapped[option.Name] = option
	}
	return mapped
}

func (h *DiscordEventsHandler) respond(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Content: content},
	})
	if err != nil {
		log.Printf("❌ Failed to respond to interaction: %v", err)
	}
}

func (h *DiscordEventsHandler) respondEphemeral(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		log.Printf("❌ Failed to respond to interaction: %v", err)
	}
}

func (h *DiscordEventsHandler) followUp(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	_, err := s.FollowupMessageCreate(i.Interaction, true, &discordgo.WebhookParams{Content: content})
	if err != nil {
		log.Printf("❌ Failed to send follow-up message: %v", err)
	}
}

func startErrorMessage(err error) string {
	switch {
	case errors.Is(err, core.ErrRoundAlreadyActive):
		return "A round is already running in this channel. Finish it or `/skip` it first."
	case errors.Is(err, core.ErrNoEligibleMessage):
		return "I couldn't find a good mystery message in this server's history. Try again in a livelier server."
	default:
		log.Printf("❌ Failed to start round: %v", err)
		return "Something went wrong starting the round."
	}
}

func helpText() string {
	return strings.Join([]string{
		"**How to play**",
		"`/start` picks a random old message from this server and shows it with its surrounding conversation, but hides where, when and by whom it was posted.",
		"`/guess channel time [author]` submits your answer. One guess per round; the first one stands.",
		"Points: 500 for the right channel, up to 500 for the time (closer is better), 500 bonus for the right author.",
		"When the timer runs out the answer is revealed and points are added to the leaderboard.",
		"`/leaderboard` and `/stats` show standings. `/skip` (moderators) cancels a round without points.",
	}, "\n")
}
