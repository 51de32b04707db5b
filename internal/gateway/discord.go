package gateway

import (
	"context"
	"log"

	"github.com/bwmarrin/discordgo"
)

const discordLimit = 2000

type DiscordGateway struct {
	Session *discordgo.Session
	Handler *Handler
	done    chan struct{}
}

func NewDiscordGateway(token string, handler *Handler) (*DiscordGateway, error) {
	dg, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, err
	}
	dg.Identify.Intents = discordgo.IntentGuildMessages | discordgo.IntentDirectMessages | discordgo.IntentMessageContent

	g := &DiscordGateway{
		Session: dg,
		Handler: handler,
		done:    make(chan struct{}),
	}
	dg.AddHandler(g.onMessage)
	return g, nil
}

func (g *DiscordGateway) onMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot {
		return
	}
	if s.State != nil && s.State.User != nil && m.Author.ID == s.State.User.ID {
		return
	}

	log.Printf("[%s] %s", m.Author.Username, m.Content)

	go func() {
		reply := g.Handler.Handle(context.Background(), m.ChannelID, m.Content)
		if err := g.Send(m.ChannelID, reply); err != nil {
			log.Printf("Error sending reply to %s: %v", m.ChannelID, err)
		}
	}()
}

// Start opens the gateway connection and blocks until Stop.
func (g *DiscordGateway) Start() error {
	if err := g.Session.Open(); err != nil {
		return err
	}
	if g.Session.State != nil && g.Session.State.User != nil {
		log.Printf("Authorized on Discord as %s", g.Session.State.User.Username)
	}
	<-g.done
	return nil
}

func (g *DiscordGateway) Send(chatID string, text string) error {
	for _, chunk := range splitMessage(text, discordLimit) {
		if _, err := g.Session.ChannelMessageSend(chatID, chunk); err != nil {
			return err
		}
	}
	return nil
}

func (g *DiscordGateway) Stop() error {
	select {
	case <-g.done:
	default:
		close(g.done)
	}
	return g.Session.Close()
}
