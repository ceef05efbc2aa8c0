// Package wpbridge is a WordPress REST API source connector for
// content-graph builders. It discovers a site's declared content types,
// retrieves every record with bounded-concurrency pagination, normalizes
// heterogeneous JSON into a canonical node/field model with typed
// cross-entity references, optionally downloads referenced images with
// atomic staging, and hands the result to a pluggable sink.
//
// # Architecture
//
// The pipeline is four leaf packages driven by one orchestrator:
//
//  1. pkg/wp — HTTP transport and the paginated fetcher. Page 1 of a
//     collection is fetched synchronously to learn the page count; the
//     rest are fetched under a semaphore bound. Authorization denials
//     (401/403) are soft: the collection is simply empty.
//
//  2. pkg/normalize — the recursive rewrite from raw records to nodes:
//     internal link keys stripped, keys camel-cased, embedded
//     foreign-entity pointers turned into typed references, embedded
//     images turned into asset descriptors. Shape recognition is a pure
//     classification function.
//
//  3. pkg/assets — idempotent image downloads: deterministic slugged
//     destination paths, staging files renamed atomically into place,
//     concurrent requests for one destination collapsed via
//     singleflight.
//
//  4. pkg/graph — the Sink boundary to the host content-graph store,
//     with an in-memory implementation for tests and an NDJSON file
//     sink for inspecting runs on disk.
//
// internal/pipeline sequences one run: DiscoverTypes, IngestUsers,
// IngestTaxonomies, IngestPosts. A stage is complete only once every
// asset download it scheduled has finished.
//
// # Quick Start
//
//	import (
//	    "context"
//	    "github.com/ajitpratap0/wpbridge/internal/pipeline"
//	    "github.com/ajitpratap0/wpbridge/pkg/config"
//	    "github.com/ajitpratap0/wpbridge/pkg/graph"
//	    "github.com/ajitpratap0/wpbridge/pkg/wp"
//	)
//
//	cfg := config.Default()
//	cfg.WordPress.BaseURL = "https://example.com"
//
//	client := wp.NewClient(cfg, logger)
//	fetcher := wp.NewFetcher(client, cfg, logger)
//	sink, _ := graph.NewJSONSink("out")
//
//	orch := pipeline.New(cfg, client, fetcher, sink, nil, logger)
//	err := orch.Run(context.Background())
//
// Or use the CLI:
//
//	wpbridge ingest --base-url https://example.com --output ./out
package wpbridge
