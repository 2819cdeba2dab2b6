// Package dispatch implements the multi-channel fan-out orchestrator: the
// single choke point every business-event handler funnels through.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/bidmarket/notifier/internal/domain"
	"github.com/bidmarket/notifier/internal/domain/port/channel"
	"github.com/bidmarket/notifier/internal/domain/port/store"
	"github.com/bidmarket/notifier/internal/observability/metrics"
	"github.com/bidmarket/notifier/internal/observability/tracing"
	"github.com/bidmarket/notifier/internal/usecases/recipient"
	"github.com/bidmarket/notifier/pkg/logger"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// RecipientResolver resolves one user id into eligibility and endpoints.
type RecipientResolver interface {
	Resolve(ctx context.Context, userID string, q recipient.Query) (*recipient.Resolution, error)
}

// Options tune orchestrator behavior.
type Options struct {
	// SMSEnabled gates actual SMS transmission; disabled outside
	// production-like environments regardless of eligibility.
	SMSEnabled bool
	// ResolveParallelism bounds concurrent recipient resolution.
	ResolveParallelism int
}

// Orchestrator validates a dispatch request, resolves recipients,
// partitions them per channel, invokes the channel senders concurrently,
// and aggregates the results. One channel's failure never blocks the
// others.
//
// The core performs no internal retries and carries no cross-invocation
// idempotency key for email/SMS: the surrounding queue redelivers
// at-least-once, so a retried job may duplicate delivery on those
// channels. Only the chat-inbox path deduplicates.
type Orchestrator struct {
	categories store.CategoryStore
	resolver   RecipientResolver
	inbox      store.InboxStore
	email      channel.EmailSender
	push       channel.PushSender
	sms        channel.SMSSender
	opts       Options
}

func NewOrchestrator(
	categories store.CategoryStore,
	resolver RecipientResolver,
	inbox store.InboxStore,
	email channel.EmailSender,
	push channel.PushSender,
	sms channel.SMSSender,
	opts Options,
) *Orchestrator {
	if opts.ResolveParallelism <= 0 {
		opts.ResolveParallelism = 8
	}
	return &Orchestrator{
		categories: categories,
		resolver:   resolver,
		inbox:      inbox,
		email:      email,
		push:       push,
		sms:        sms,
		opts:       opts,
	}
}

// PushTargets builds a target list from parallel user id and payload
// slices, failing fast when the counts differ.
func PushTargets(userIDs []string, contents []domain.PushContent) ([]domain.Target, error) {
	if len(userIDs) != len(contents) {
		return nil, fmt.Errorf("%d payloads for %d recipients: %w",
			len(contents), len(userIDs), ErrPushPayloadMismatch)
	}
	targets := make([]domain.Target, len(userIDs))
	for i, id := range userIDs {
		content := contents[i]
		targets[i] = domain.Target{UserID: id, Push: &content}
	}
	return targets, nil
}

// Validate checks the structural invariants of a request.
func Validate(req domain.DispatchRequest) error {
	if !req.Channels().Any() {
		return ErrNoChannelSelected
	}
	if req.Email != nil {
		if req.Email.Subject == "" || req.Email.Body == "" {
			return ErrEmailParamsMissing
		}
		if req.Email.Locale != "" && !req.Email.Locale.Known() {
			return ErrUnknownLocale
		}
	}
	if req.SMS != nil && req.SMS.Message == "" {
		return ErrSMSParamsMissing
	}
	if req.Push != nil {
		for _, t := range req.Targets {
			if t.Push == nil || (t.Push.Title == "" && t.Push.Body == "") {
				return ErrPushPayloadMissing
			}
		}
	}
	return nil
}

// Dispatch runs one fan-out. A validation failure or an all-recipients-
// not-found miss returns an error; provider failures are reflected in the
// per-channel outcomes only.
func (o *Orchestrator) Dispatch(ctx context.Context, req domain.DispatchRequest) (domain.DispatchResult, error) {
	ctx, span := tracing.Tracer.Start(ctx, "Orchestrator.Dispatch")
	defer span.End()

	requested := req.Channels()
	result := domain.DispatchResult{
		Channels: map[domain.Channel]domain.ChannelOutcome{
			domain.ChannelEmail: {Requested: requested.Email},
			domain.ChannelPush:  {Requested: requested.Push},
			domain.ChannelSMS:   {Requested: requested.SMS},
		},
	}

	if err := Validate(req); err != nil {
		return result, err
	}

	// Nothing to do is not a failure.
	if len(req.Targets) == 0 {
		result.Sent = true
		return result, nil
	}

	category := o.lookupCategory(ctx, req.Category)

	resolutions, notFound := o.resolveTargets(ctx, req, category)
	if notFound == len(req.Targets) {
		return result, fmt.Errorf("resolving %d recipients: %w",
			len(req.Targets), recipient.ErrAllRecipientsNotFound)
	}

	b := o.buildBuckets(ctx, req, resolutions)
	eligible := len(b.emails) + len(b.pushes) + len(b.phones)

	if len(b.phones) > 0 && !o.opts.SMSEnabled {
		logger.L().Info("SMS transmission disabled in this environment, dropping bucket",
			zap.Int("recipientCount", len(b.phones)),
			zap.String("traceID", logger.TraceIDFromContext(ctx)),
		)
		b.phones = nil
	}

	o.dispatchBuckets(ctx, req, b, &result)

	anyDelivered := false
	for _, outcome := range result.Channels {
		if outcome.Delivered {
			anyDelivered = true
		}
	}
	result.Sent = anyDelivered || eligible == 0
	return result, nil
}

// lookupCategory resolves the category once per dispatch. A missing
// category is a warning, not a failure: the dispatch proceeds as
// uncategorized, which sends by default.
func (o *Orchestrator) lookupCategory(ctx context.Context, name string) *domain.Category {
	if name == "" {
		return nil
	}
	category, err := o.categories.GetCategory(ctx, name)
	if err != nil {
		if errors.Is(err, store.ErrCategoryNotFound) {
			logger.L().Warn("Notification category not found, sending by default",
				zap.String("category", name),
			)
		} else {
			logger.L().Warn("Category lookup failed, sending by default",
				zap.String("category", name),
				zap.Error(err),
			)
		}
		return nil
	}
	return category
}

// resolveTargets resolves every target in parallel, bounded by
// ResolveParallelism. The returned slice is index-aligned with
// req.Targets; unresolved entries are nil.
func (o *Orchestrator) resolveTargets(ctx context.Context, req domain.DispatchRequest, category *domain.Category) ([]*recipient.Resolution, int) {
	query := recipient.Query{
		Requested:  req.Channels(),
		Category:   category,
		BanRelated: req.BanRelated,
		Important:  req.Important,
	}

	resolutions := make([]*recipient.Resolution, len(req.Targets))
	var mu sync.Mutex
	notFound := 0

	var eg errgroup.Group
	eg.SetLimit(o.opts.ResolveParallelism)
	for i, target := range req.Targets {
		i, target := i, target
		eg.Go(func() error {
			res, err := o.resolver.Resolve(ctx, target.UserID, query)
			if err != nil {
				if errors.Is(err, store.ErrRecipientNotFound) {
					logger.L().Warn("Recipient not found, skipping",
						zap.String("userID", target.UserID),
					)
					metrics.RecipientsResolved.WithLabelValues("not_found").Inc()
					mu.Lock()
					notFound++
					mu.Unlock()
					return nil
				}
				logger.L().Error("Recipient resolution failed, skipping",
					zap.String("userID", target.UserID),
					zap.Error(err),
				)
				return nil
			}
			if res.Suppressed {
				metrics.RecipientsResolved.WithLabelValues("suppressed").Inc()
			} else {
				metrics.RecipientsResolved.WithLabelValues("resolved").Inc()
			}
			resolutions[i] = res
			return nil
		})
	}
	// Goroutines never return errors; Wait only synchronizes.
	_ = eg.Wait()

	return resolutions, notFound
}

type channelBuckets struct {
	emails []string
	pushes []channel.PushDelivery
	phones []string
}

// buildBuckets partitions resolved recipients into the three channel
// buckets and writes the in-app inbox record for each push delivery.
func (o *Orchestrator) buildBuckets(ctx context.Context, req domain.DispatchRequest, resolutions []*recipient.Resolution) channelBuckets {
	var b channelBuckets
	for i, res := range resolutions {
		if res == nil || res.Suppressed {
			continue
		}
		if res.EmailAddress != "" {
			b.emails = append(b.emails, res.EmailAddress)
		}
		if req.Push != nil && len(res.PushTokens) > 0 {
			content := o.upsertInbox(ctx, req, res.UserID, req.Targets[i].Push)
			b.pushes = append(b.pushes, channel.PushDelivery{
				UserID:  res.UserID,
				Tokens:  res.PushTokens,
				Content: content,
			})
		}
		if res.PhoneNumber != "" {
			b.phones = append(b.phones, res.PhoneNumber)
		}
	}
	return b
}

// upsertInbox creates or refreshes the in-app inbox record backing a push.
// For the chat category an existing unread record for (recipient, sender)
// is refreshed in place and reused as the push payload. The store's upsert
// is atomic per key, so concurrent dispatches to the same pair serialize.
// An inbox write failure never blocks the push itself.
func (o *Orchestrator) upsertInbox(ctx context.Context, req domain.DispatchRequest, userID string, content *domain.PushContent) domain.PushContent {
	payload := *content

	inboxType := req.Push.InboxType
	if inboxType == "" {
		inboxType = req.Category
	}
	dedup := req.Category == domain.CategoryChat

	record, err := o.inbox.Upsert(ctx, domain.InboxUpsert{
		UserID:      userID,
		Type:        inboxType,
		SenderID:    req.SenderID,
		Title:       payload.Title,
		Body:        payload.Body,
		DedupUnread: dedup,
	})
	if err != nil {
		logger.L().Error("Inbox upsert failed, pushing without record reference",
			zap.String("userID", userID),
			zap.String("inboxType", inboxType),
			zap.Error(err),
		)
		return payload
	}

	if dedup && record.UpdatedAt.After(record.CreatedAt) {
		metrics.InboxDedupHits.Inc()
	}
	if payload.Metadata == nil {
		payload.Metadata = make(map[string]string, 1)
	}
	payload.Metadata["inbox_record_id"] = record.ID
	payload.Title = record.Title
	payload.Body = record.Body
	return payload
}

// dispatchBuckets invokes the three channel senders concurrently. Each
// channel's failure (including a panic) is caught, logged, and recorded on
// its own outcome without aborting siblings.
func (o *Orchestrator) dispatchBuckets(ctx context.Context, req domain.DispatchRequest, b channelBuckets, result *domain.DispatchResult) {
	var mu sync.Mutex
	var wg sync.WaitGroup

	run := func(ch domain.Channel, recipients int, send func() error) {
		if recipients == 0 {
			return
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			metrics.DispatchesAttempted.WithLabelValues(string(ch)).Inc()

			err := func() (err error) {
				defer func() {
					if r := recover(); r != nil {
						err = fmt.Errorf("channel sender panic: %v", r)
					}
				}()
				return send()
			}()

			mu.Lock()
			defer mu.Unlock()
			outcome := result.Channels[ch]
			outcome.Attempted = true
			outcome.Recipients = recipients
			if err != nil {
				metrics.DispatchesFailed.WithLabelValues(string(ch)).Inc()
				logger.L().Error("Channel dispatch failed",
					zap.String("channel", string(ch)),
					zap.Int("recipientCount", recipients),
					zap.String("traceID", logger.TraceIDFromContext(ctx)),
					zap.Error(err),
				)
				outcome.Error = err.Error()
			} else {
				metrics.DispatchesDelivered.WithLabelValues(string(ch)).Inc()
				outcome.Delivered = true
			}
			result.Channels[ch] = outcome
		}()
	}

	run(domain.ChannelEmail, len(b.emails), func() error {
		return o.email.Send(ctx, channel.EmailBatch{
			To:      b.emails,
			CC:      req.Email.CC,
			BCC:     req.Email.BCC,
			Subject: req.Email.Subject,
			Body:    req.Email.Body,
			Locale:  req.Email.Locale,
		})
	})
	run(domain.ChannelPush, len(b.pushes), func() error {
		return o.push.Send(ctx, channel.PushBatch{Deliveries: b.pushes})
	})
	run(domain.ChannelSMS, len(b.phones), func() error {
		return o.sms.Send(ctx, channel.SMSBatch{
			Numbers:  b.phones,
			Message:  req.SMS.Message,
			Selector: req.SMS.Selector,
		})
	})

	wg.Wait()
}
