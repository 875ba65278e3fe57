package services

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"cantonscan/models"
)

// DiscordBotService delivers alerts to a Discord channel. With no token or
// channel configured it constructs disabled and every send is a no-op error,
// so callers never need a nil check.
type DiscordBotService struct {
	session   *discordgo.Session
	channelID string
	botID     string
	enabled   bool
}

func NewDiscordBotService(token, channelID string) (*DiscordBotService, error) {
	if token == "" || channelID == "" {
		log.Println("Discord bot not configured, notifications disabled")
		return &DiscordBotService{enabled: false}, nil
	}

	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create Discord session: %w", err)
	}

	user, err := session.User("@me")
	if err != nil {
		return nil, fmt.Errorf("failed to get bot user: %w", err)
	}

	bot := &DiscordBotService{
		session:   session,
		channelID: channelID,
		botID:     user.ID,
		enabled:   true,
	}
	session.AddHandler(bot.messageHandler)

	if err := session.Open(); err != nil {
		return nil, fmt.Errorf("failed to open Discord connection: %w", err)
	}

	log.Printf("Discord bot connected, channel: %s", channelID)
	return bot, nil
}

func (d *DiscordBotService) Enabled() bool {
	return d.enabled
}

func (d *DiscordBotService) Close() {
	if d.enabled && d.session != nil {
		log.Println("Closing Discord bot connection...")
		d.session.Close()
	}
}

func (d *DiscordBotService) messageHandler(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author.ID == d.botID || m.ChannelID != d.channelID {
		return
	}
	if !strings.HasPrefix(m.Content, "!canton") {
		return
	}

	args := strings.Fields(m.Content)
	if len(args) < 2 {
		return
	}
	switch args[1] {
	case "ping":
		s.ChannelMessageSend(m.ChannelID, "Pong! Canton scan bot is online.")
	case "help":
		help := "**Canton Scan Bot Commands:**\n" +
			"`!canton ping` - Check if bot is online\n" +
			"`!canton help` - Show this help message"
		s.ChannelMessageSend(m.ChannelID, help)
	default:
		s.ChannelMessageSend(m.ChannelID, fmt.Sprintf("Unknown command: `%s`. Try `!canton help`", args[1]))
	}
}

// SendAlert posts one alert to the configured channel as an embed.
func (d *DiscordBotService) SendAlert(alert *models.Alert) error {
	if !d.enabled {
		return fmt.Errorf("discord bot not enabled")
	}

	embed := d.buildEmbed(alert)
	if _, err := d.session.ChannelMessageSendEmbed(d.channelID, embed); err != nil {
		return fmt.Errorf("failed to send Discord message: %w", err)
	}
	log.Printf("Alert sent to Discord: %s", alert.Name)
	return nil
}

func (d *DiscordBotService) buildEmbed(alert *models.Alert) *discordgo.MessageEmbed {
	fields := []*discordgo.MessageEmbedField{
		{Name: "Rule", Value: strings.ReplaceAll(alert.RuleType, "_", " "), Inline: true},
		{Name: "Severity", Value: strings.ToUpper(alert.Severity), Inline: true},
	}
	for key, value := range alert.Context {
		fields = append(fields, &discordgo.MessageEmbedField{
			Name:   strings.Title(strings.ReplaceAll(key, "_", " ")),
			Value:  fmt.Sprintf("%v", value),
			Inline: true,
		})
	}

	return &discordgo.MessageEmbed{
		Title:       alert.Name,
		Description: alert.Description,
		Color:       colorForSeverity(alert.Severity),
		Fields:      fields,
		Footer:      &discordgo.MessageEmbedFooter{Text: "Alert ID: " + alert.ID},
		Timestamp:   time.Now().Format(time.RFC3339),
	}
}

func colorForSeverity(severity string) int {
	switch severity {
	case models.HealthCritical:
		return 15158332 // red
	case models.HealthWarning:
		return 15844367 // gold
	default:
		return 3447003 // blue
	}
}
