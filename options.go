package kvcachego

type options struct {
	logger           *Logger
	metricsCollector MetricsCollector
}

// Option configures cache constructor behavior.
type Option func(*options)

// WithLogger configures structured logging for cache operations.
// Pass nil to keep logging disabled.
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithMetricsCollector configures a metrics collector for monitoring
// operations. Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &kvcachego.BasicMetricsCollector{}
//	cache, err := kvcachego.New(cfg, store, kvcachego.WithMetricsCollector(metrics))
//	...
//	stats := metrics.GetStats()
func WithMetricsCollector(collector MetricsCollector) Option {
	return func(o *options) {
		if collector == nil {
			collector = NoopMetricsCollector{}
		}
		o.metricsCollector = collector
	}
}

func applyOptions(optFns []Option) options {
	opts := options{
		logger:           NoopLogger(),
		metricsCollector: NoopMetricsCollector{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return opts
}
