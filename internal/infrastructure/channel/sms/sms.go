package sms

import (
	"context"
	"errors"
	"fmt"

	"github.com/bidmarket/notifier/internal/domain"
	"github.com/bidmarket/notifier/internal/domain/port/channel"
	"github.com/bidmarket/notifier/internal/resilience/circuitbreaker"
	"github.com/bidmarket/notifier/pkg/logger"
	"github.com/bidmarket/notifier/pkg/phone"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// Carrier delivers one message to one E.164 number. There is no batch API;
// implementations own the provider wire protocol.
type Carrier interface {
	Name() string
	Deliver(ctx context.Context, number, message string) error
}

// Sender implements channel.SMSSender. Numbers are normalized to
// international format; the carrier is chosen by the request's
// primary/secondary selector combined with whether the number is domestic,
// with a defined fallback carrier per combination.
type Sender struct {
	domestic      Carrier
	international Carrier
	callingCode   string

	breakers map[string]*gobreaker.CircuitBreaker
}

// NewSender wires the two carriers. callingCode (e.g. "+82") defines which
// numbers count as domestic.
func NewSender(domestic, international Carrier, callingCode string) *Sender {
	return &Sender{
		domestic:      domestic,
		international: international,
		callingCode:   callingCode,
		breakers: map[string]*gobreaker.CircuitBreaker{
			domestic.Name():      circuitbreaker.New(circuitbreaker.SMSCarrierConfig(domestic.Name())),
			international.Name(): circuitbreaker.New(circuitbreaker.SMSCarrierConfig(international.Name())),
		},
	}
}

// Send delivers the batch message individually to every number. Numbers
// that fail to normalize are skipped and logged; carrier failures per
// number fall back once and are otherwise accumulated.
func (s *Sender) Send(ctx context.Context, batch channel.SMSBatch) error {
	if len(batch.Numbers) == 0 {
		return nil
	}

	var errs []error
	for _, raw := range batch.Numbers {
		number, err := phone.Normalize(raw, s.callingCode)
		if err != nil {
			logger.L().Warn("Skipping unnormalizable phone number",
				zap.String("traceID", logger.TraceIDFromContext(ctx)),
				zap.Error(err),
			)
			continue
		}
		if err := s.sendOne(ctx, number, batch.Message, batch.Selector); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *Sender) sendOne(ctx context.Context, number, message string, sel domain.CarrierSelector) error {
	first, fallback := s.pick(sel, phone.IsDomestic(number, s.callingCode))

	err := s.deliver(ctx, first, number, message)
	if err == nil {
		return nil
	}
	logger.L().Warn("SMS carrier failed, trying fallback",
		zap.String("carrier", first.Name()),
		zap.String("fallback", fallback.Name()),
		zap.String("traceID", logger.TraceIDFromContext(ctx)),
		zap.Error(err),
	)
	if fbErr := s.deliver(ctx, fallback, number, message); fbErr != nil {
		return fmt.Errorf("sms delivery failed on %s and %s: %w", first.Name(), fallback.Name(), errors.Join(err, fbErr))
	}
	return nil
}

// pick returns the carrier ordering for a selector/domestic combination.
// The primary selector prefers the domestic carrier for domestic numbers;
// the secondary selector always leads with the international carrier.
func (s *Sender) pick(sel domain.CarrierSelector, domestic bool) (first, fallback Carrier) {
	if sel == domain.CarrierSecondary {
		return s.international, s.domestic
	}
	if domestic {
		return s.domestic, s.international
	}
	return s.international, s.domestic
}

func (s *Sender) deliver(ctx context.Context, c Carrier, number, message string) error {
	_, err := s.breakers[c.Name()].Execute(func() (interface{}, error) {
		return nil, c.Deliver(ctx, number, message)
	})
	return err
}

var _ channel.SMSSender = (*Sender)(nil)
