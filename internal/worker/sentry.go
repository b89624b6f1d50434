package worker

import (
	"context"
	"errors"
	"strconv"

	"github.com/getsentry/sentry-go"
	"github.com/hibiken/asynq"
)

// SentryMiddleware reports job panics and faults to Sentry under the job's
// owner. Pipeline failures marked asynq.SkipRetry are not reported.
func SentryMiddleware(h asynq.Handler) asynq.Handler {
	return asynq.HandlerFunc(func(ctx context.Context, t *asynq.Task) error {
		env := decodeEnvelope(t)
		retryCount, _ := asynq.GetRetryCount(ctx)

		hub := sentry.CurrentHub().Clone()
		hub.ConfigureScope(func(scope *sentry.Scope) {
			scope.SetUser(sentry.User{ID: env.Owner})
			scope.SetTag("task_type", t.Type())
			scope.SetTag("job_id", env.JobID)
			scope.SetTag("source_kind", string(sourceKind(t.Type())))
			scope.SetTag("retry_count", strconv.Itoa(retryCount))
		})
		ctx = sentry.SetHubOnContext(ctx, hub)

		defer func() {
			if r := recover(); r != nil {
				hub.RecoverWithContext(ctx, r)
				panic(r)
			}
		}()

		err := h.ProcessTask(ctx, t)
		if err != nil && !errors.Is(err, asynq.SkipRetry) {
			hub.CaptureException(err)
		}
		return err
	})
}
