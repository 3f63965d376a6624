package engine

import (
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Logger is global since we will need it everywhere
var Logger = slog.Default()

// cacheSweepInterval is how often idle parsed attachments are looked for
const cacheSweepInterval = time.Minute

// InitializeSchedules starts the background jobs and returns a function that
// stops them and releases cached documents
func (serverHandler *ServerHandler) InitializeSchedules() func() {
	// Nobody holding a valid URL can come back after the URL lifetime, so
	// that is how long an idle document is worth keeping
	maxIdle := serverHandler.ServerConfig.URLLifetime
	if maxIdle <= 0 {
		maxIdle = 5 * time.Minute
	}

	c := cron.New()
	var sweepJob cron.Job
	sweepJob = cron.FuncJob(func() {
		if n := serverHandler.cache.evictIdle(maxIdle); n > 0 {
			Logger.Debug("Evicted idle attachments", "count", n)
		}
	})
	sweepJob = cron.NewChain(cron.SkipIfStillRunning(cron.DefaultLogger)).Then(sweepJob) //ensure we don't kick off another if old one is still running
	c.Schedule(cron.Every(cacheSweepInterval), sweepJob)
	Logger.Info("Adding attachment cache sweep", "interval", cacheSweepInterval, "maxIdle", maxIdle)
	c.Start()

	return func() {
		<-c.Stop().Done()
		serverHandler.cache.close()
	}
}
