// Package pipeline runs the per-seed harvesting workflow and batches it
// across several seeds.
//
// A seed goes through main steps (crawl) followed by final steps (persist,
// report). Each stage is implemented as a Step that receives the Run and
// can modify it.
//
// Design decision: We use a pipeline pattern instead of direct function calls
// because:
// 1. It allows easy addition/removal of steps without modifying core logic
// 2. It provides consistent error handling and logging across steps
// 3. It supports cancellation via context for long-running crawls
//
// Final steps run even after the context is cancelled, so an interrupted
// crawl still has its partial harvest stored and reported.
//
// BatchHarvester runs one pipeline per seed with concurrency control using
// errgroup.
package pipeline
