// Package metrics records task, release and run metrics for buildmaster.
//
// Components receive a Recorder through the orchestration session. The default
// is NoopRecorder; when metrics.textfile is configured the session installs a
// PrometheusRecorder and writes the registry to a node-exporter textfile when
// the run ends:
//
//	reg := prom.NewRegistry()
//	rec := metrics.NewPrometheusRecorder(reg)
//	// ... run tasks ...
//	_ = metrics.WriteTextfile(path, reg)
package metrics
