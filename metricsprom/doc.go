// Package metricsprom exports the cache's operation metrics to Prometheus.
// Pass the Adapter to the cache via kvcachego.WithMetricsCollector.
package metricsprom
