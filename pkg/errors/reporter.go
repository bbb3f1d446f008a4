package errors

import (
	"os"
	"time"

	"github.com/certifi/gocertifi"
	"github.com/getsentry/sentry-go"

	"questrail.io/questrail/pkg/log"
)

var (
	reporters []Reporter
)

func init() {
	reporters = make([]Reporter, 0)
	if os.Getenv(debugMode) == "" {
		log.Info("Env DEBUG not set, report errors enabled.")
	} else {
		log.Info("Env DEBUG set, report errors disabled.")
	}
}

func report(err error) {
	if reporters == nil || err == nil {
		return
	}
	if os.Getenv(debugMode) != "" {
		return
	}
	for _, r := range reporters {
		r.Report(err)
	}
}

type Reporter interface {
	Report(error)
}

type sentryReporter struct {
	limiter *rateLimiter
}

func (s *sentryReporter) Report(err error) {
	if stacks := StackOf(err); len(stacks) > 0 {
		if limited, _ := s.limiter.StackBasedRateLimited(stacks[0]); limited {
			return
		}
	}
	sentry.CaptureException(err)
}

// Reporting is suppressed entirely while this env var is set.
const debugMode = "DEBUG"

// NewSentryReporter registers a sentry reporter for all *AndReport
// constructors. An empty DSN leaves reporting disabled.
func NewSentryReporter(sentryDSN string) error {
	if sentryDSN == "" {
		log.Warn("empty DSN found, skipping sentry reporter initialization.")
		return nil
	}
	sentryClientOptions := sentry.ClientOptions{
		Dsn: sentryDSN,
	}

	rootCAs, err := gocertifi.CACerts()
	if err != nil {
		return Wrap(err, "init sentry CA")
	}

	sentryClientOptions.CaCerts = rootCAs
	err = sentry.Init(sentryClientOptions)
	if err != nil {
		return Wrap(err, "init sentry")
	}
	log.Info("sentry error reporter initialized.")
	reporters = append(reporters, &sentryReporter{limiter: newRateLimiter(time.Minute)})
	return nil
}
