package notifier

import (
	"context"
	"fmt"
	"log"

	"github.com/bwmarrin/discordgo"
)

type DiscordNotifier struct {
	session   *discordgo.Session
	channelID string
}

func NewDiscordNotifier(session *discordgo.Session, channelID string) *DiscordNotifier {
	return &DiscordNotifier{
		session:   session,
		channelID: channelID,
	}
}

// NewDiscordNotifierFromToken opens a bot session for the given token.
func NewDiscordNotifierFromToken(token, channelID string) (*DiscordNotifier, error) {
	if token == "" {
		return nil, fmt.Errorf("discord bot token is empty")
	}
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, err
	}
	return NewDiscordNotifier(session, channelID), nil
}

func (n *DiscordNotifier) Notify(_ context.Context, event Event) error {
	if n.session == nil {
		return fmt.Errorf("discord session is nil")
	}
	if n.channelID == "" {
		return fmt.Errorf("discord channel ID is empty")
	}

	_, err := n.session.ChannelMessageSend(n.channelID, FormatMessage(event))
	if err != nil {
		log.Printf("Failed to send discord message: %v", err)
		return err
	}

	return nil
}

// FormatMessage renders the channel message for an event.
func FormatMessage(event Event) string {
	switch event.Kind {
	case TrailCompleted:
		return fmt.Sprintf("🥾 **Trail Completed**\n**User:** %d\n**Trail:** %s", event.UserID, event.TrailID)
	case RewardUnlocked:
		return fmt.Sprintf("🎁 **Reward Unlocked**\n**User:** %d\n**Reward:** %s", event.UserID, event.RewardID)
	case RewardRedeemed:
		return fmt.Sprintf("☕ **Reward Redeemed**\n**User:** %d\n**Reward:** %s\n**At:** %s",
			event.UserID, event.RewardID, event.At.Format("2006-01-02 15:04:05"))
	case AchievementEarned:
		return fmt.Sprintf("🏆 **Achievement Earned**\n**User:** %d\n**Achievement:** %s", event.UserID, event.AchievementID)
	default:
		return fmt.Sprintf("**%s**\n**User:** %d", event.Kind, event.UserID)
	}
}
