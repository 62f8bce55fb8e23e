/*
Package observability turns engine lifecycle events into metrics and logs.

Metrics registers Prometheus collectors and exposes them as
domain.LifecycleHooks; LoggingHooks does the same for slog. Use MergeHooks to
attach both to one signal:

	m, _ := observability.NewMetrics(prometheus.DefaultRegisterer)
	sig, _ := signaltree.Create(desc, signaltree.WithLifecycleHooks(
		observability.MergeHooks(m.Hooks(), observability.LoggingHooks(logger)),
	))
*/
package observability
