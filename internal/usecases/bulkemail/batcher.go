// Package bulkemail splits large, locale-mixed recipient lists into
// per-locale, size-bounded chunks and issues one orchestrator call per
// chunk.
package bulkemail

import (
	"context"
	"fmt"

	"github.com/bidmarket/notifier/internal/domain"
	"github.com/bidmarket/notifier/pkg/logger"
	"go.uber.org/zap"
)

// DefaultChunkSize caps the recipient count per orchestrator call.
const DefaultChunkSize = 1000

// Recipient is one bulk recipient tagged with a content locale.
type Recipient struct {
	UserID string
	Locale domain.Locale
}

// Content is the per-locale subject/body pair.
type Content struct {
	Subject string
	Body    string
}

// Request describes one bulk email send.
type Request struct {
	Category   string
	Recipients []Recipient
	Content    map[domain.Locale]Content
}

// Summary reports what the batcher did.
type Summary struct {
	Chunks  int // orchestrator calls issued
	Failed  int // chunks that did not send
	Skipped int // recipients dropped (unrecognized locale, missing content)
}

// Dispatcher is the orchestrator-shaped dependency.
type Dispatcher interface {
	Dispatch(ctx context.Context, req domain.DispatchRequest) (domain.DispatchResult, error)
}

// Batcher fans a bulk request out to the dispatcher. Processing is
// strictly best-effort: a failed chunk is logged and counted, and
// iteration always continues to the remaining chunks.
type Batcher struct {
	dispatcher Dispatcher
	chunkSize  int
}

func NewBatcher(dispatcher Dispatcher, chunkSize int) *Batcher {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &Batcher{
		dispatcher: dispatcher,
		chunkSize:  chunkSize,
	}
}

// Send partitions recipients by locale, chunks each partition, and issues
// one dispatch per chunk. It returns an error only when every issued
// chunk failed.
func (b *Batcher) Send(ctx context.Context, req Request) (Summary, error) {
	var summary Summary

	partitions := make(map[domain.Locale][]string)
	for _, r := range req.Recipients {
		if !r.Locale.Known() {
			logger.L().Warn("Skipping bulk recipient with unrecognized locale",
				zap.String("userID", r.UserID),
				zap.String("locale", string(r.Locale)),
			)
			summary.Skipped++
			continue
		}
		partitions[r.Locale] = append(partitions[r.Locale], r.UserID)
	}

	for locale, userIDs := range partitions {
		content, ok := req.Content[locale]
		if !ok {
			logger.L().Warn("No bulk email content for locale, skipping partition",
				zap.String("locale", string(locale)),
				zap.Int("recipientCount", len(userIDs)),
			)
			summary.Skipped += len(userIDs)
			continue
		}

		for start := 0; start < len(userIDs); start += b.chunkSize {
			end := start + b.chunkSize
			if end > len(userIDs) {
				end = len(userIDs)
			}
			chunk := userIDs[start:end]

			targets := make([]domain.Target, len(chunk))
			for i, id := range chunk {
				targets[i] = domain.Target{UserID: id}
			}

			summary.Chunks++
			result, err := b.dispatcher.Dispatch(ctx, domain.DispatchRequest{
				Category: req.Category,
				Targets:  targets,
				Email: &domain.EmailParams{
					Subject: content.Subject,
					Body:    content.Body,
					Locale:  locale,
				},
			})
			if err != nil || !result.Sent {
				summary.Failed++
				logger.L().Error("Bulk email chunk failed, continuing",
					zap.String("category", req.Category),
					zap.String("locale", string(locale)),
					zap.Int("chunkSize", len(chunk)),
					zap.Error(err),
				)
			}
		}
	}

	if summary.Chunks > 0 && summary.Failed == summary.Chunks {
		return summary, fmt.Errorf("all %d bulk email chunks failed", summary.Chunks)
	}
	return summary, nil
}
