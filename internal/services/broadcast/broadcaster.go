package broadcast

import (
	"log/slog"

	"github.com/mcoot/trivia-go/internal/metrics"
	"github.com/mcoot/trivia-go/internal/model"
	"github.com/mcoot/trivia-go/internal/protocol"
)

// Sender delivers one framed payload to one connection
type Sender interface {
	Send(id model.ConnID, payload []byte) error
}

// Report counts the outcome of one broadcast
type Report struct {
	Sent   int
	Failed int
}

// Broadcaster fans one message out to a set of players.
// Each send is independent: a failure is logged and counted, and the
// remaining recipients are still tried.
type Broadcaster struct {
	sender  Sender
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// New creates a new Broadcaster
func New(sender Sender, metrics *metrics.Metrics, logger *slog.Logger) *Broadcaster {
	return &Broadcaster{
		sender:  sender,
		metrics: metrics,
		logger:  logger.With(slog.String("component", "broadcaster")),
	}
}

// Broadcast encodes msg once and sends it to every recipient in order
func (b *Broadcaster) Broadcast(recipients []model.Player, msg protocol.Message) Report {
	payload := protocol.Frame(msg)
	kind := string(msg.Kind())

	var report Report
	for _, p := range recipients {
		if err := b.sender.Send(p.ConnID, payload); err != nil {
			report.Failed++
			b.metrics.BroadcastFailed(kind)
			b.logger.Warn("send failed",
				slog.String("kind", kind),
				slog.String("conn_id", string(p.ConnID)),
				slog.String("player", p.Name),
				slog.Any("error", err))
			continue
		}
		report.Sent++
	}

	b.logger.Debug("broadcast",
		slog.String("kind", kind),
		slog.Int("sent", report.Sent),
		slog.Int("failed", report.Failed))
	return report
}

// Interface for dependency injection
type BroadcasterInterface interface {
	Broadcast(recipients []model.Player, msg protocol.Message) Report
}

var _ BroadcasterInterface = (*Broadcaster)(nil)
