/*
Package observability exposes engine activity as Prometheus metrics.

Metrics are collected through domain.LifecycleHooks, so the engine itself stays
free of any monitoring dependency:

	metrics := observability.NewMetrics()
	engine, _ := storyflow.New(path, storyflow.WithLifecycleHooks(metrics.Hooks()))
	http.Handle("/metrics", metrics.Handler())

Chain combines the metrics hooks with any other hooks a host registers.
*/
package observability
