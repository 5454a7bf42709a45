package pipeline

import "errors"

// ErrCrawlAborted is returned by CrawlStep when the crawl could not start,
// for example because the seed is not a valid absolute URL.
var ErrCrawlAborted = errors.New("crawl aborted")
