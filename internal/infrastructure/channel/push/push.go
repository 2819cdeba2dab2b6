package push

import (
	"context"
	"errors"
	"fmt"

	"github.com/bidmarket/notifier/internal/domain"
	"github.com/bidmarket/notifier/internal/domain/port/channel"
	"github.com/bidmarket/notifier/internal/resilience/circuitbreaker"
	"github.com/bidmarket/notifier/pkg/logger"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// DefaultChunkSize is the hard per-call message cap enforced by the
// multicast network.
const DefaultChunkSize = 500

// Message is one token-addressed payload headed for a delivery network.
type Message struct {
	Token   string
	Content domain.PushContent
}

// Gateway delivers a set of messages to one push delivery network.
// Implementations own the provider wire protocol.
type Gateway interface {
	Name() string
	Deliver(ctx context.Context, messages []Message) error
}

// Sender implements channel.PushSender. Each delivery is cloned once per
// device token, routed by token shape to one of two networks, and the
// multicast network is called in chunks of at most chunkSize messages.
type Sender struct {
	multicast Gateway // token-capped network (FCM-style tokens)
	direct    Gateway // per-device network (64-hex APNs-style tokens)
	chunkSize int

	multicastBreaker *gobreaker.CircuitBreaker
	directBreaker    *gobreaker.CircuitBreaker
}

// NewSender wires the two delivery networks. chunkSize <= 0 falls back to
// DefaultChunkSize.
func NewSender(multicast, direct Gateway, chunkSize int) *Sender {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &Sender{
		multicast:        multicast,
		direct:           direct,
		chunkSize:        chunkSize,
		multicastBreaker: circuitbreaker.New(circuitbreaker.PushGatewayConfig(multicast.Name())),
		directBreaker:    circuitbreaker.New(circuitbreaker.PushGatewayConfig(direct.Name())),
	}
}

// Send fans the batch out across both networks. Failures are accumulated
// and returned; they never panic past this boundary.
func (s *Sender) Send(ctx context.Context, batch channel.PushBatch) error {
	multicastMsgs, directMsgs := s.route(batch)
	if len(multicastMsgs) == 0 && len(directMsgs) == 0 {
		return nil
	}

	var errs []error
	for _, chunk := range chunkMessages(multicastMsgs, s.chunkSize) {
		if err := s.deliver(ctx, s.multicast, s.multicastBreaker, chunk); err != nil {
			errs = append(errs, err)
		}
	}
	if len(directMsgs) > 0 {
		if err := s.deliver(ctx, s.direct, s.directBreaker, directMsgs); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// route clones each delivery across the recipient's tokens and partitions
// the clones by token shape.
func (s *Sender) route(batch channel.PushBatch) (multicast, direct []Message) {
	for _, d := range batch.Deliveries {
		for _, token := range d.Tokens {
			msg := Message{Token: token, Content: d.Content}
			if isDirectToken(token) {
				direct = append(direct, msg)
			} else {
				multicast = append(multicast, msg)
			}
		}
	}
	return multicast, direct
}

func (s *Sender) deliver(ctx context.Context, gw Gateway, cb *gobreaker.CircuitBreaker, msgs []Message) error {
	_, err := cb.Execute(func() (interface{}, error) {
		return nil, gw.Deliver(ctx, msgs)
	})
	if err != nil {
		logger.L().Error("Push network delivery failed",
			zap.String("network", gw.Name()),
			zap.Int("messageCount", len(msgs)),
			zap.String("traceID", logger.TraceIDFromContext(ctx)),
			zap.Error(err),
		)
		return fmt.Errorf("push network %s: %w", gw.Name(), err)
	}
	logger.L().Debug("Push chunk delivered",
		zap.String("network", gw.Name()),
		zap.Int("messageCount", len(msgs)),
	)
	return nil
}

func chunkMessages(msgs []Message, size int) [][]Message {
	if len(msgs) == 0 {
		return nil
	}
	chunks := make([][]Message, 0, (len(msgs)+size-1)/size)
	for start := 0; start < len(msgs); start += size {
		end := start + size
		if end > len(msgs) {
			end = len(msgs)
		}
		chunks = append(chunks, msgs[start:end])
	}
	return chunks
}

// isDirectToken reports whether the token has the 64-hex shape of the
// per-device network; everything else goes to the multicast network.
func isDirectToken(token string) bool {
	if len(token) != 64 {
		return false
	}
	for _, r := range token {
		switch {
		case r >= '0' && r <= '9':
		case r >= 'a' && r <= 'f':
		case r >= 'A' && r <= 'F':
		default:
			return false
		}
	}
	return true
}

var _ channel.PushSender = (*Sender)(nil)
