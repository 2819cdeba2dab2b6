package sms

import (
	"context"
	"errors"
	"testing"

	"github.com/bidmarket/notifier/internal/domain"
	"github.com/bidmarket/notifier/internal/domain/port/channel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCarrier struct {
	name  string
	sent  []string // numbers
	fail  bool
	calls int
}

func (c *fakeCarrier) Name() string { return c.name }

func (c *fakeCarrier) Deliver(ctx context.Context, number, message string) error {
	c.calls++
	if c.fail {
		return errors.New(c.name + " rejected")
	}
	c.sent = append(c.sent, number)
	return nil
}

var _ Carrier = (*fakeCarrier)(nil)

func newTestSender() (*Sender, *fakeCarrier, *fakeCarrier) {
	domestic := &fakeCarrier{name: "kt-bizmsg"}
	intl := &fakeCarrier{name: "twilio"}
	return NewSender(domestic, intl, "+82"), domestic, intl
}

func TestSend_NormalizesAndRoutesDomestic(t *testing.T) {
	sender, domestic, intl := newTestSender()

	batch := channel.SMSBatch{
		Numbers:  []string{"010-1234-5678"},
		Message:  "Your auction won",
		Selector: domain.CarrierPrimary,
	}
	require.NoError(t, sender.Send(context.Background(), batch))

	assert.Equal(t, []string{"+821012345678"}, domestic.sent)
	assert.Zero(t, intl.calls)
}

func TestSend_InternationalGoesToInternationalCarrier(t *testing.T) {
	sender, domestic, intl := newTestSender()

	batch := channel.SMSBatch{
		Numbers:  []string{"+14155552671"},
		Message:  "m",
		Selector: domain.CarrierPrimary,
	}
	require.NoError(t, sender.Send(context.Background(), batch))

	assert.Zero(t, domestic.calls)
	assert.Equal(t, []string{"+14155552671"}, intl.sent)
}

func TestSend_SecondarySelectorLeadsWithInternational(t *testing.T) {
	sender, domestic, intl := newTestSender()

	batch := channel.SMSBatch{
		Numbers:  []string{"010-1234-5678"},
		Message:  "m",
		Selector: domain.CarrierSecondary,
	}
	require.NoError(t, sender.Send(context.Background(), batch))

	assert.Zero(t, domestic.calls)
	assert.Equal(t, []string{"+821012345678"}, intl.sent)
}

func TestSend_FallbackCarrier(t *testing.T) {
	sender, domestic, intl := newTestSender()
	domestic.fail = true

	batch := channel.SMSBatch{
		Numbers:  []string{"010-1234-5678"},
		Message:  "m",
		Selector: domain.CarrierPrimary,
	}
	require.NoError(t, sender.Send(context.Background(), batch))

	assert.Equal(t, 1, domestic.calls)
	assert.Equal(t, []string{"+821012345678"}, intl.sent)
}

func TestSend_BothCarriersFail(t *testing.T) {
	sender, domestic, intl := newTestSender()
	domestic.fail = true
	intl.fail = true

	batch := channel.SMSBatch{
		Numbers:  []string{"010-1234-5678"},
		Message:  "m",
		Selector: domain.CarrierPrimary,
	}
	err := sender.Send(context.Background(), batch)

	assert.Error(t, err)
	assert.Equal(t, 1, domestic.calls)
	assert.Equal(t, 1, intl.calls)
}

func TestSend_InvalidNumberSkippedNotFatal(t *testing.T) {
	sender, domestic, _ := newTestSender()

	batch := channel.SMSBatch{
		Numbers:  []string{"not-a-number", "010-1234-5678"},
		Message:  "m",
		Selector: domain.CarrierPrimary,
	}
	require.NoError(t, sender.Send(context.Background(), batch))

	assert.Equal(t, []string{"+821012345678"}, domestic.sent)
}

func TestSend_EmptyBatch(t *testing.T) {
	sender, domestic, intl := newTestSender()
	require.NoError(t, sender.Send(context.Background(), channel.SMSBatch{Message: "m"}))
	assert.Zero(t, domestic.calls)
	assert.Zero(t, intl.calls)
}
