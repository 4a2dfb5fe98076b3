// Package motivation serves the encouraging messages shown to parents and
// pushes one to websocket subscribers at a fixed interval.
package motivation

import (
	"context"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/anthrogizi/anthrogizi/internal/platform/websocket"
)

// EventMessage is the event type carrying a message on the motivation
// topic.
const EventMessage = "motivation.message"

var defaultMessages = []string{
	"Setiap anak adalah bakat istimewa yang sedang berkembang ✨",
	"Gizi yang baik hari ini adalah investasi masa depan 💪",
	"Perkembangan anak adalah perjalanan, bukan perlombaan 🌱",
	"Konsistensi dalam gizi memberikan hasil terbaik 🎯",
	"Setiap langkah kecil menuju kesehatan sangat berarti 💖",
	"Anak yang sehat adalah anak yang bahagia 😊",
	"Pertumbuhan optimal membutuhkan cinta, nutrisi, dan perhatian ❤️",
	"Anda melakukan pekerjaan luar biasa sebagai orang tua 👏",
	"Gizi seimbang kunci tumbuh kembang cerdas 🧠",
	"Hari ini adalah hari yang tepat untuk memulai kebiasaan baik 🌟",
}

// Messages returns a copy of the built-in message list.
func Messages() []string {
	out := make([]string, len(defaultMessages))
	copy(out, defaultMessages)
	return out
}

// Picker chooses messages. The zero value is not usable; use NewPicker.
type Picker struct {
	messages []string
	intn     func(n int) int
}

func NewPicker(messages []string) *Picker {
	if len(messages) == 0 {
		messages = defaultMessages
	}
	return &Picker{messages: messages, intn: rand.IntN}
}

func (p *Picker) Random() string {
	return p.messages[p.intn(len(p.messages))]
}

type messagePayload struct {
	Message string `json:"message"`
}

type Handler struct {
	picker *Picker
}

func NewHandler(picker *Picker) *Handler { return &Handler{picker: picker} }

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/motivational-message", h.Get)
}

func (h *Handler) Get(c echo.Context) error {
	return c.JSON(http.StatusOK, messagePayload{Message: h.picker.Random()})
}

// Broadcaster publishes a random message on the motivation topic every
// interval until its context is cancelled.
type Broadcaster struct {
	picker *Picker
	events websocket.EventPublisher
	logger zerolog.Logger
}

func NewBroadcaster(picker *Picker, events websocket.EventPublisher, logger zerolog.Logger) *Broadcaster {
	return &Broadcaster{picker: picker, events: events, logger: logger}
}

func (b *Broadcaster) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	b.logger.Info().Dur("interval", interval).Msg("motivation broadcaster started")
	for {
		select {
		case <-ctx.Done():
			b.logger.Info().Msg("motivation broadcaster stopped")
			return
		case <-ticker.C:
			b.publish(ctx)
		}
	}
}

func (b *Broadcaster) publish(ctx context.Context) {
	ev, err := websocket.NewEvent(websocket.TopicMotivation, EventMessage, messagePayload{Message: b.picker.Random()})
	if err == nil {
		err = b.events.Publish(ctx, ev)
	}
	if err != nil {
		b.logger.Warn().Err(err).Msg("failed to publish motivational message")
	}
}
