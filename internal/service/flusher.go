package service

import (
	"context"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/sirupsen/logrus"
)

// RunFlusher flushes dirty scanners every interval until ctx is cancelled
func RunFlusher(ctx context.Context, svc Service, interval time.Duration, log *logrus.Logger) error {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return err
	}

	_, err = scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			if _, err := svc.Flush(ctx); err != nil {
				log.WithError(err).Error("Scheduled flush failed")
			}
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return err
	}

	log.WithField("interval", interval.String()).Info("Starting scanner flush job")
	scheduler.Start()

	<-ctx.Done()

	return scheduler.Shutdown()
}
