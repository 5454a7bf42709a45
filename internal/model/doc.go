// Package model defines the data structures shared by the crawler, the
// database and the report writers.
//
// This package contains the following main types:
//   - URLSet: An insertion-ordered set of URL strings
//   - Harvest: The result of one crawl, including the discovered image set
//   - PageRecord: What happened to a single page during a crawl
//   - HarvestSummary: A light view of a stored harvest used for history listings
//
// Design decision: We separate models into their own package to avoid circular
// dependencies. The crawler produces a Harvest, while the database, pipeline and
// report packages consume it; centralizing the types prevents import cycles.
//
// The models are designed to be serializable to JSON for report output and
// database storage.
package model
