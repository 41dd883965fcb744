package services

import (
	"bufio"
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/runwiththewinners/bounties/models"
	"go.uber.org/zap"
)

// StreamInterval is how often the review stream polls for new submissions.
var StreamInterval = 2 * time.Second

// StreamPending writes one "submission" event per newly created pending
// submission until ctx is done or the client goes away. Submissions that
// existed before the stream opened are not replayed.
func (s *SubmissionService) StreamPending(ctx context.Context, w *bufio.Writer) {
	ticker := time.NewTicker(StreamInterval)
	defer ticker.Stop()

	cursor := s.Now()

	// Initial keepalive (comment event)
	w.WriteString(":\n\n")
	if err := w.Flush(); err != nil {
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			subs, err := s.ListSince(ctx, models.SubmissionStatusPending, cursor)
			if err != nil {
				s.Log.Warn("review stream query failed", zap.Error(err))
				continue
			}
			if len(subs) == 0 {
				// keepalive so proxies do not drop an idle stream
				w.WriteString(":\n\n")
			}
			for _, sub := range subs {
				payload, err := json.Marshal(sub)
				if err != nil {
					continue
				}
				fmt.Fprintf(w, "event: submission\nid: %s\ndata: %s\n\n", sub.ID, payload)
			}
			if len(subs) > 0 {
				cursor = subs[len(subs)-1].CreatedAt
			}

			if err := w.Flush(); err != nil {
				// client disconnected
				return
			}
		}
	}
}
