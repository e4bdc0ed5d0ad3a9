package kafkastream

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/twmb/franz-go/plugin/kprom"
)

const metricsNamespace = "testprobe_kafka"

// newMetricsHook builds a kprom client hook scoped to one stream (producer
// or consumer) for one topic, registered against reg. A nil reg falls
// back to the default Prometheus registerer.
func newMetricsHook(component, topic string, reg prometheus.Registerer) *kprom.Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	return kprom.NewMetrics(metricsNamespace,
		kprom.Registerer(prometheus.WrapRegistererWith(prometheus.Labels{
			"component": component,
			"topic":     topic,
		}, reg)),
	)
}

// newBrokerConfirmFailureCounter counts asynchronous broker-confirmation
// failures for one producer stream. The ack handed back through
// ProduceReply is per-enqueue (spec.md §4.3.1); a broker rejecting the
// record afterwards is only observable here, not by the caller blocked
// on replyTo.
func newBrokerConfirmFailureCounter(topic string, reg prometheus.Registerer) prometheus.Counter {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	c := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace:   metricsNamespace,
		Name:        "producer_broker_confirm_failures_total",
		Help:        "Records whose broker confirmation failed after a per-enqueue ack was already returned.",
		ConstLabels: prometheus.Labels{"topic": topic},
	})
	reg.Register(c)
	return c
}
