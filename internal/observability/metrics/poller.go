package metrics

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// PollFunc is a single run of a background poller
type PollFunc = func(ctx context.Context) error

// RecordPollerDuration wraps f so that every run is timed under the given
// poller name, labelled with its outcome
func RecordPollerDuration(poller string, f PollFunc) PollFunc {
	return func(ctx context.Context) error {
		start := time.Now()
		err := f(ctx)
		d := time.Since(start)

		status := Success
		if err != nil {
			status = Error
		}
		pollerDurationHistogram.WithLabelValues(poller, status.String()).Observe(d.Seconds())
		log.Ctx(ctx).Debug().Str("poller", poller).Dur("duration", d).Stringer("status", status).Msg("poll finished")

		return err
	}
}
