// Package main hosts the bdecrawler entrypoint.
//
// Architecture overview:
//   - Listing crawl: internal/crawler.SearchCrawler pages through the search
//     listing of every category path for the query window and stops a path at
//     the first empty page or fetch error.
//   - Document processing: internal/crawler.Scraper fetches each document page
//     and hands it to internal/parser.Assembler, bounded by scrape.concurrency.
//     Every document ends up as exactly one success or one error record, in
//     crawl order.
//   - Extraction: the assembler keeps the page HTML when no PDF is linked.
//     Otherwise it downloads the first PDF, stores it zlib-compressed and
//     base64-encoded, and reads the text from its text layer or, for scanned
//     files, from OCR over rasterized pages. Language and tables are best
//     effort: failures leave the field empty.
//   - Output: internal/output writes {start}_{end}_{run}.json through the
//     configured BlobStore (local, memory or GCS). A Postgres archive and a
//     Pub/Sub run notification are optional and never fail the run.
//   - Plumbing: Viper loads config from defaults, file, BDE_* env and flags;
//     zap logs to stderr and logs/{date}-run.log; Prometheus metrics and run
//     status are served by internal/api when metrics.addr is set.
//
// Quick checklist:
//   - Run locally: go run . scrape --start 2022-11-01 --end 2022-12-31.
//   - Restrict categories with --category (repeatable) and tune --concurrency.
//   - OCR needs Tesseract with the eng and spa language packs installed.
package main
