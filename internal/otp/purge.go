package otp

import (
	"context"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// StartPurger runs p.Purge on the given cron spec (e.g. "@every 1m") until the returned
// scheduler is stopped.
func StartPurger(spec string, p Purger, log logrus.FieldLogger) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		if n := p.Purge(context.Background()); n > 0 {
			log.WithField("purged", n).Debug("expired otp codes purged")
		}
	})
	if err != nil {
		return nil, err
	}
	c.Start()
	return c, nil
}
