// Package crawler implements the run orchestration for the Banco de España
// document crawler: the listing crawler that walks paginated search results
// per category, and the scraper that fetches each document page, hands it to
// the extraction pipeline, and aggregates successes and errors.
package crawler
