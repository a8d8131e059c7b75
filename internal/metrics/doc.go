// Package metrics records build and stage metrics.
//
// Components receive a Recorder and default to NoopRecorder, so metrics
// collection never needs nil checks:
//
//	recorder := metrics.Recorder(metrics.NoopRecorder{})
//	if cfg.Build.MetricsFile != "" {
//	    recorder = metrics.NewPrometheusRecorder(nil)
//	}
//
// PrometheusRecorder keeps its own registry. Its contents can be exported
// in the node_exporter textfile format after a one-shot build
// (WriteTextfile) or served over HTTP while watching (HTTPHandler).
package metrics
