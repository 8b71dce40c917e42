package discord_publisher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/dustin/go-humanize"

	"bracket_stripes/composite_renderer"
	"bracket_stripes/entities"
)

const defaultQuality = 90

type Publisher interface {
	Publish(ctx context.Context, post Post) (string, error)
	Close() error
}

// Post is one finished composite with the sequence that produced it.
type Post struct {
	Image    *composite_renderer.StripedImage
	Sequence *entities.CaptureSequence
}

type Config struct {
	BotToken  string
	ChannelID string
	// Quality of the posted JPEG. Defaults to 90.
	Quality int
}

// messageSender is the part of *discordgo.Session the publisher uses.
type messageSender interface {
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

type publisherImpl struct {
	session   *discordgo.Session
	sender    messageSender
	channelID string
	quality   int
}

func New(cfg Config) (Publisher, error) {
	if cfg.BotToken == "" {
		return nil, errors.New("missing bot token")
	}

	session, err := discordgo.New("Bot " + cfg.BotToken)
	if err != nil {
		return nil, err
	}

	return newPublisher(session, session, cfg)
}

func newPublisher(session *discordgo.Session, sender messageSender, cfg Config) (*publisherImpl, error) {
	if cfg.ChannelID == "" {
		return nil, errors.New("missing channel ID")
	}

	quality := cfg.Quality
	if quality == 0 {
		quality = defaultQuality
	}

	return &publisherImpl{
		session:   session,
		sender:    sender,
		channelID: cfg.ChannelID,
		quality:   quality,
	}, nil
}

// Publish posts the composite as a JPEG attachment with an embed describing
// the brackets, and returns the message ID.
func (p *publisherImpl) Publish(ctx context.Context, post Post) (string, error) {
	if post.Image == nil {
		return "", errors.New("missing image")
	}

	var buf bytes.Buffer
	if err := post.Image.EncodeJPEG(&buf, p.quality); err != nil {
		return "", fmt.Errorf("error encoding composite: %w", err)
	}

	name := "bracket_" + time.Now().Format("20060102150405") + ".jpg"
	if post.Sequence != nil && post.Sequence.SequenceID != "" {
		name = "bracket_" + post.Sequence.SequenceID + ".jpg"
	}

	log.Printf("Publishing %s (%s) to channel %s", name, humanize.IBytes(uint64(buf.Len())), p.channelID)

	message, err := p.sender.ChannelMessageSendComplex(p.channelID, &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{sequenceEmbed(post, name)},
		Files: []*discordgo.File{
			{
				ContentType: "image/jpeg",
				Name:        name,
				Reader:      &buf,
			},
		},
	}, discordgo.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("error sending composite: %w", err)
	}

	return message.ID, nil
}

func sequenceEmbed(post Post, attachment string) *discordgo.MessageEmbed {
	bounds := post.Image.Image.Bounds()
	embed := &discordgo.MessageEmbed{
		Title:     "Bracketed capture",
		Timestamp: time.Now().Format(time.RFC3339),
		Image: &discordgo.MessageEmbedImage{
			URL: "attachment://" + attachment,
		},
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Size", Value: fmt.Sprintf("%dx%d", bounds.Dx(), bounds.Dy()), Inline: true},
			{Name: "Orientation", Value: post.Image.Orientation.String(), Inline: true},
		},
	}

	sequence := post.Sequence
	if sequence == nil {
		return embed
	}

	if !sequence.CreatedAt.IsZero() {
		embed.Timestamp = sequence.CreatedAt.Format(time.RFC3339)
	}
	embed.Description = fmt.Sprintf("Sequence `%s`", sequence.SequenceID)

	brackets := make([]string, 0, len(sequence.Brackets))
	for _, bracket := range sequence.Brackets {
		brackets = append(brackets, bracket.String())
	}
	if len(brackets) > 0 {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  "Brackets",
			Value: strings.Join(brackets, "\n"),
		})
	}

	embed.Fields = append(embed.Fields,
		&discordgo.MessageEmbedField{Name: "Stripes", Value: fmt.Sprintf("%d px, stride %d", sequence.StripeWidth, sequence.Stride), Inline: true},
		&discordgo.MessageEmbedField{Name: "Render", Value: fmt.Sprintf("%.3f msec", sequence.RenderMillis), Inline: true},
	)

	return embed
}

func (p *publisherImpl) Close() error {
	if p.session == nil {
		return nil
	}
	return p.session.Close()
}
