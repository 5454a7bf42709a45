// Package metrics records crawl metrics with Prometheus collectors.
//
// A Recorder implements crawler.Observer, so it can be handed to a Spider
// with crawler.WithObserver. Metrics live in a private registry rather than
// the global default one, and are exported by writing a node-exporter
// textfile once the crawl is over:
//
//	rec := metrics.NewRecorder()
//	spider := crawler.NewSpider(nil, crawler.WithObserver(rec))
//	harvest := spider.Crawl(ctx, seed)
//	rec.ObserveHarvest(harvest)
//	_ = rec.WriteTextfile("/var/lib/node_exporter/imagefinder.prom")
package metrics
