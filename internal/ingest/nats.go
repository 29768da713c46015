// Package ingest wires the single producer side of the splitter to a NATS
// subject: every message received becomes one frame broadcast through the
// splitter, rate-limited so a misbehaving upstream publisher cannot starve
// the broadcast loop.
package ingest

import (
	"fmt"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/d13mon/ISplitter/internal/config"
	"github.com/d13mon/ISplitter/internal/metrics"
	"github.com/d13mon/ISplitter/pkg/frame"
	"github.com/d13mon/ISplitter/splitter"
)

// Ingestor subscribes to one NATS subject and feeds every message into a
// Splitter as the stream's single producer.
type Ingestor struct {
	conn    *nats.Conn
	sub     *nats.Subscription
	splitr  *splitter.Splitter
	limiter *rate.Limiter
	metrics *metrics.Registry
	logger  *zap.Logger

	putTimeoutMs int
}

// New connects to NATS and returns an Ingestor ready to Subscribe.
func New(cfg config.IngestConfig, secretToken string, splitr *splitter.Splitter, putTimeoutMs int, metricsRegistry *metrics.Registry, logger *zap.Logger) (*Ingestor, error) {
	opts := []nats.Option{
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.MaxReconnects(-1),
	}
	if secretToken != "" {
		opts = append(opts, nats.Token(secretToken))
	}

	in := &Ingestor{
		splitr:       splitr,
		limiter:      rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst),
		metrics:      metricsRegistry,
		logger:       logger,
		putTimeoutMs: putTimeoutMs,
	}

	opts = append(opts,
		nats.ConnectHandler(func(c *nats.Conn) {
			logger.Info("connected to nats", zap.String("url", c.ConnectedUrl()))
		}),
		nats.DisconnectErrHandler(func(c *nats.Conn, err error) {
			logger.Warn("disconnected from nats", zap.Error(err))
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("reconnected to nats", zap.String("url", c.ConnectedUrl()))
		}),
		nats.ErrorHandler(func(c *nats.Conn, s *nats.Subscription, err error) {
			logger.Error("nats error", zap.Error(err))
			if in.metrics != nil {
				in.metrics.IngestErrors.Inc()
			}
		}),
	)

	conn, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	in.conn = conn
	return in, nil
}

// Subscribe starts forwarding messages on subject into the splitter.
func (in *Ingestor) Subscribe(subject string) error {
	sub, err := in.conn.Subscribe(subject, in.handle)
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", subject, err)
	}
	in.sub = sub
	return nil
}

func (in *Ingestor) handle(msg *nats.Msg) {
	if !in.limiter.Allow() {
		if in.metrics != nil {
			in.metrics.IngestErrors.Inc()
		}
		return
	}

	f := frame.New(msg.Data)
	code := in.splitr.Put(f, in.putTimeoutMs)

	if in.metrics != nil {
		in.metrics.FramesIngested.Inc()
		if code == splitter.DataDropped {
			in.metrics.FramesDropped.Inc()
		}
	}
}

// Close unsubscribes and closes the underlying NATS connection.
func (in *Ingestor) Close() {
	if in.sub != nil {
		_ = in.sub.Unsubscribe()
	}
	if in.conn != nil {
		in.conn.Close()
	}
}
