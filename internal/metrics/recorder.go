package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Kelony11/image-finder/internal/crawler"
	"github.com/Kelony11/image-finder/internal/model"
)

const namespace = "imagefinder"

// Harvest outcome label values.
const (
	OutcomeComplete  = "complete"
	OutcomeCancelled = "cancelled"
	OutcomeAborted   = "aborted"
)

// Recorder collects crawl metrics. It is safe for concurrent use, so a single
// Recorder may observe every spider of a batch.
type Recorder struct {
	registry *prometheus.Registry

	pages        *prometheus.CounterVec
	pageImages   prometheus.Counter
	fetchSeconds prometheus.Histogram
	frontier     *prometheus.GaugeVec
	harvests     *prometheus.CounterVec
	harvestSize  *prometheus.GaugeVec
}

var _ crawler.Observer = (*Recorder)(nil)

// NewRecorder creates a Recorder with its own registry.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		pages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pages_total",
			Help:      "Pages dispatched, by final status.",
		}, []string{"status"}),
		pageImages: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "images_discovered_total",
			Help:      "Image references found on pages, before deduplication across pages.",
		}),
		fetchSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "page_fetch_seconds",
			Help:      "Time spent on a page, politeness delay included.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		frontier: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "frontier_size",
			Help:      "Number of pages in the most recently finished layer, by depth.",
		}, []string{"depth"}),
		harvests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "harvests_total",
			Help:      "Finished crawls, by outcome.",
		}, []string{"outcome"}),
		harvestSize: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "harvest_images",
			Help:      "Distinct images in the latest harvest, by host.",
		}, []string{"host"}),
	}

	r.registry.MustRegister(
		r.pages,
		r.pageImages,
		r.fetchSeconds,
		r.frontier,
		r.harvests,
		r.harvestSize,
	)
	return r
}

// Registry returns the registry holding the recorder's collectors.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// PageDone implements crawler.Observer.
func (r *Recorder) PageDone(res crawler.PageResult) {
	r.pages.WithLabelValues(res.Status.String()).Inc()
	if res.Status == model.PageSkipped {
		return
	}
	r.pageImages.Add(float64(res.Images.Len()))
	r.fetchSeconds.Observe(res.Elapsed.Seconds())
}

// LayerDone implements crawler.Observer.
func (r *Recorder) LayerDone(depth, size int) {
	r.frontier.WithLabelValues(strconv.Itoa(depth)).Set(float64(size))
}

// ObserveHarvest records the outcome of a finished crawl.
func (r *Recorder) ObserveHarvest(h *model.Harvest) {
	switch {
	case h.Aborted != "":
		r.harvests.WithLabelValues(OutcomeAborted).Inc()
		return
	case h.Cancelled:
		r.harvests.WithLabelValues(OutcomeCancelled).Inc()
	default:
		r.harvests.WithLabelValues(OutcomeComplete).Inc()
	}
	r.harvestSize.WithLabelValues(h.RootHost).Set(float64(h.ImageCount()))
}

// WriteTextfile writes every metric to path in the Prometheus text format,
// as read by the node exporter textfile collector. The file is replaced
// atomically.
func (r *Recorder) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}
