// Copyright (c) 2025 The forkd developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/forkpoint/forkd/log"
)

const namespace = "forkd_metrics"

var logger = log.WithContext("pkg", "metrics")

// InitializePrometheusMetrics sets the prometheus implementation as the
// default metrics service. Calling it twice is a no-op.
func InitializePrometheusMetrics() {
	if _, ok := metrics.(*prometheusMetrics); !ok {
		metrics = newPrometheusMetrics()
	}
}

type prometheusMetrics struct {
	counters      sync.Map
	counterVecs   sync.Map
	gauges        sync.Map
	histogramVecs sync.Map
}

func newPrometheusMetrics() Metrics {
	return &prometheusMetrics{}
}

func (o *prometheusMetrics) GetOrCreateCountMeter(name string) CountMeter {
	if m, ok := o.counters.Load(name); ok {
		return m.(CountMeter)
	}
	meter := o.newCountMeter(name)
	o.counters.Store(name, meter)
	return meter
}

func (o *prometheusMetrics) GetOrCreateCountVecMeter(name string, labels []string) CountVecMeter {
	if m, ok := o.counterVecs.Load(name); ok {
		return m.(CountVecMeter)
	}
	meter := o.newCountVecMeter(name, labels)
	o.counterVecs.Store(name, meter)
	return meter
}

func (o *prometheusMetrics) GetOrCreateGaugeMeter(name string) GaugeMeter {
	if m, ok := o.gauges.Load(name); ok {
		return m.(GaugeMeter)
	}
	meter := o.newGaugeMeter(name)
	o.gauges.Store(name, meter)
	return meter
}

func (o *prometheusMetrics) GetOrCreateHistogramVecMeter(name string, labels []string, buckets []int64) HistogramVecMeter {
	if m, ok := o.histogramVecs.Load(name); ok {
		return m.(HistogramVecMeter)
	}
	meter := o.newHistogramVecMeter(name, labels, buckets)
	o.histogramVecs.Store(name, meter)
	return meter
}

func (o *prometheusMetrics) GetOrCreateHandler() http.Handler {
	return promhttp.Handler()
}

func (o *prometheusMetrics) newCountMeter(name string) CountMeter {
	meter := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      name,
	})
	if err := prometheus.Register(meter); err != nil {
		logger.Warn("unable to register metric", "name", name, "err", err)
	}
	return &promCountMeter{meter}
}

func (o *prometheusMetrics) newCountVecMeter(name string, labels []string) CountVecMeter {
	meter := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      name,
	}, labels)
	if err := prometheus.Register(meter); err != nil {
		logger.Warn("unable to register metric", "name", name, "err", err)
	}
	return &promCountVecMeter{meter}
}

func (o *prometheusMetrics) newGaugeMeter(name string) GaugeMeter {
	meter := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      name,
	})
	if err := prometheus.Register(meter); err != nil {
		logger.Warn("unable to register metric", "name", name, "err", err)
	}
	return &promGaugeMeter{meter}
}

func (o *prometheusMetrics) newHistogramVecMeter(name string, labels []string, buckets []int64) HistogramVecMeter {
	floatBuckets := make([]float64, 0, len(buckets))
	for _, b := range buckets {
		floatBuckets = append(floatBuckets, float64(b))
	}
	meter := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      name,
		Buckets:   floatBuckets,
	}, labels)
	if err := prometheus.Register(meter); err != nil {
		logger.Warn("unable to register metric", "name", name, "err", err)
	}
	return &promHistogramVecMeter{meter}
}

type promCountMeter struct {
	counter prometheus.Counter
}

func (c *promCountMeter) Add(v int64) {
	c.counter.Add(float64(v))
}

type promCountVecMeter struct {
	counter *prometheus.CounterVec
}

func (c *promCountVecMeter) AddWithLabel(v int64, labels map[string]string) {
	c.counter.With(labels).Add(float64(v))
}

type promGaugeMeter struct {
	gauge prometheus.Gauge
}

func (c *promGaugeMeter) Add(v int64) {
	c.gauge.Add(float64(v))
}

func (c *promGaugeMeter) Set(v int64) {
	c.gauge.Set(float64(v))
}

type promHistogramVecMeter struct {
	histogram *prometheus.HistogramVec
}

func (c *promHistogramVecMeter) ObserveWithLabels(v int64, labels map[string]string) {
	c.histogram.With(labels).Observe(float64(v))
}
