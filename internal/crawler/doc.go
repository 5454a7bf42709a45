// Package crawler harvests image URLs from a single website.
//
// # Architecture
//
// The crawler package is designed around the Spider type, which coordinates
// a breadth-first crawl from one seed URL. It is not a general-purpose
// crawler: it never leaves the seed's host, and it is bounded by a depth
// ceiling, a page budget, a fixed worker count and a politeness delay.
//
// Design decision: We implement our own crawler rather than using a third-party
// library because:
//  1. The crawl must be layer-synchronous (depth N finishes before N+1 starts)
//  2. We need tight control over request timing to avoid overwhelming sites
//  3. Only images and same-host anchors are extracted, which keeps parsing small
//
// # Components
//
//   - Normalize: canonical URL form used for deduplication
//   - Fetcher / HTTPFetcher: retrieves a page, following redirects
//   - Parser: HTML parser that extracts images, icons and anchors
//   - Worker: fetch + parse + link filtering for one page
//   - Spider: BFS orchestration, deduplication and budgets
//
// # Concurrency
//
// Each layer is dispatched to a bounded pool of goroutines. Workers are pure:
// they only read the root host and return an immutable PageResult over a
// channel. The goroutine that called Crawl is the only one that touches the
// visited set, the next frontier and the image set, so no locks guard them.
//
// # Usage
//
//	spider := crawler.NewSpider(nil, crawler.WithMaxDepth(2), crawler.WithWorkers(8))
//	harvest := spider.Crawl(ctx, "https://example.com/")
//	for _, img := range harvest.Images.Sorted() {
//		fmt.Println(img)
//	}
//
// # Failure Handling
//
// Crawl never returns an error. A bad seed yields an empty harvest with the
// reason in Harvest.Aborted. A page that fails for any reason is recorded
// with its error and contributes nothing; the rest of the crawl carries on.
package crawler
