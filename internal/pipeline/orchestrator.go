// Package pipeline sequences one ingestion run: entity-type discovery,
// author ingestion, taxonomy ingestion and post ingestion, wiring
// references between them and handing normalized nodes to the sink.
package pipeline

import (
	"context"
	"net/url"
	"os"
	"sort"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/ajitpratap0/wpbridge/pkg/assets"
	"github.com/ajitpratap0/wpbridge/pkg/config"
	"github.com/ajitpratap0/wpbridge/pkg/fragments"
	"github.com/ajitpratap0/wpbridge/pkg/graph"
	"github.com/ajitpratap0/wpbridge/pkg/logger"
	"github.com/ajitpratap0/wpbridge/pkg/metrics"
	"github.com/ajitpratap0/wpbridge/pkg/normalize"
	"github.com/ajitpratap0/wpbridge/pkg/observability"
	"github.com/ajitpratap0/wpbridge/pkg/wp"
)

// attachmentType is the raw API name of the media entity type.
const attachmentType = "attachment"

// discoveredType is one post type learned during DiscoverTypes.
type discoveredType struct {
	raw        string
	restBase   string
	canonical  string
	collection graph.Collection
}

// discoveredTaxonomy is one taxonomy learned during IngestTaxonomies.
type discoveredTaxonomy struct {
	raw       string
	restBase  string
	canonical string
}

// Orchestrator drives one run through its stages in order. Each stage is
// fully executed, including every asset download it scheduled, before
// the next begins. Entity types and taxonomies are fixed once their
// discovery stage completes; nothing is discovered mid-run.
type Orchestrator struct {
	cfg        *config.Config
	client     *wp.Client
	fetcher    *wp.Fetcher
	sink       graph.Sink
	scheduler  *assets.Scheduler
	normalizer *normalize.Normalizer
	logger     *zap.Logger

	postTypes  []discoveredType
	taxonomies []discoveredTaxonomy
	authorType string
}

// New creates an orchestrator. scheduler may be nil when no image
// download flag is enabled.
func New(cfg *config.Config, client *wp.Client, fetcher *wp.Fetcher, sink graph.Sink, scheduler *assets.Scheduler, logger *zap.Logger) *Orchestrator {
	normalizer := normalize.New(normalize.Options{
		TypePrefix:     cfg.WordPress.TypePrefix,
		DownloadImages: cfg.Assets.DownloadACFImages,
	}, scheduler, logger)

	return &Orchestrator{
		cfg:        cfg,
		client:     client,
		fetcher:    fetcher,
		sink:       sink,
		scheduler:  scheduler,
		normalizer: normalizer,
		logger:     logger.With(zap.String("component", "orchestrator")),
		authorType: graph.CanonicalName(cfg.WordPress.TypePrefix, "author"),
	}
}

// Run executes the full state machine:
// DiscoverTypes → IngestUsers → IngestTaxonomies → IngestPosts → Done.
func (o *Orchestrator) Run(ctx context.Context) error {
	stages := []struct {
		name string
		fn   func(context.Context) error
	}{
		{"discover_types", o.discoverTypes},
		{"ingest_users", o.ingestUsers},
		{"ingest_taxonomies", o.ingestTaxonomies},
		{"ingest_posts", o.ingestPosts},
	}

	for _, stage := range stages {
		stageCtx, span := observability.StartSpan(ctx, "wpbridge.stage",
			attribute.String("stage", stage.name))
		stageCtx = context.WithValue(stageCtx, logger.StageKey, stage.name)
		log := o.logger.With(logger.Fields(stageCtx)...)

		err := stage.fn(stageCtx)
		if err == nil {
			// A stage is complete only once its scheduled downloads are.
			o.waitForDownloads()
		}
		observability.EndSpan(span, err)
		if err != nil {
			return err
		}
		log.Info("stage complete")
	}

	return nil
}

func (o *Orchestrator) waitForDownloads() {
	if o.scheduler != nil {
		o.scheduler.Wait()
	}
}

// discoverTypes fetches the API's declared content types and registers
// each as an entity type, remembering the REST collection path for later.
func (o *Orchestrator) discoverTypes(ctx context.Context) error {
	var types map[string]wp.TypeInfo
	if err := o.client.GetJSON(ctx, "types", nil, &types); err != nil {
		return err
	}

	names := make([]string, 0, len(types))
	for name := range types {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		info := types[name]
		restBase := info.RestBase
		if restBase == "" {
			restBase = name
		}

		canonical := graph.CanonicalName(o.cfg.WordPress.TypePrefix, name)
		collection, err := o.sink.RegisterEntityType(canonical, o.routeFor(name, restBase))
		if err != nil {
			return err
		}

		o.postTypes = append(o.postTypes, discoveredType{
			raw:        name,
			restBase:   restBase,
			canonical:  canonical,
			collection: collection,
		})
	}

	o.logger.Info("discovered content types", zap.Int("count", len(o.postTypes)))
	return nil
}

// ingestUsers fetches all users and registers them as Author nodes with
// a namespaced avatar mapping.
func (o *Orchestrator) ingestUsers(ctx context.Context) error {
	collection, err := o.sink.RegisterEntityType(o.authorType, o.routeFor("author", "author"))
	if err != nil {
		return err
	}

	records, err := o.fetcher.FetchAll(ctx, "users", nil)
	if err != nil {
		return err
	}

	for _, rec := range records {
		node := o.normalizer.Normalize(ctx, rec, false)
		if name, ok := rec["name"]; ok {
			node["title"] = name
		}

		// Namespace every avatar-size field: {"24": url} -> {"avatar24": url}.
		if urls, ok := rec["avatar_urls"].(map[string]interface{}); ok {
			avatars := make(map[string]interface{}, len(urls))
			for size, u := range urls {
				avatars["avatar"+size] = u
			}
			node["avatars"] = avatars
			delete(node, "avatarUrls")
		}

		if err := collection.AddNode(node); err != nil {
			return err
		}
		metrics.RecordsNormalized.WithLabelValues(o.authorType).Inc()
	}

	o.logger.Info("ingested users", zap.Int("count", len(records)))
	return nil
}

// ingestTaxonomies fetches declared taxonomies and registers each term
// as a minimal node, remembering the taxonomy's REST path for the post
// stage.
func (o *Orchestrator) ingestTaxonomies(ctx context.Context) error {
	var taxonomies map[string]wp.TaxonomyInfo
	if err := o.client.GetJSON(ctx, "taxonomies", nil, &taxonomies); err != nil {
		return err
	}

	names := make([]string, 0, len(taxonomies))
	for name := range taxonomies {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		info := taxonomies[name]
		restBase := info.RestBase
		if restBase == "" {
			restBase = name
		}

		canonical := graph.CanonicalName(o.cfg.WordPress.TypePrefix, name)
		collection, err := o.sink.RegisterEntityType(canonical, o.routeFor(name, restBase))
		if err != nil {
			return err
		}

		terms, err := o.fetcher.FetchAll(ctx, restBase, nil)
		if err != nil {
			return err
		}

		for _, term := range terms {
			node := map[string]interface{}{
				"id":      term["id"],
				"title":   term["name"],
				"slug":    term["slug"],
				"content": term["description"],
				"count":   term["count"],
			}
			if err := collection.AddNode(node); err != nil {
				return err
			}
			metrics.RecordsNormalized.WithLabelValues(canonical).Inc()
		}

		o.taxonomies = append(o.taxonomies, discoveredTaxonomy{
			raw:       name,
			restBase:  restBase,
			canonical: canonical,
		})

		o.logger.Info("ingested taxonomy",
			zap.String("taxonomy", name),
			zap.Int("terms", len(terms)))
	}

	return nil
}

// ingestPosts fetches every discovered post type with embedded relations
// and registers each record as a node with its references attached.
// Records are processed one at a time in fetch order; nodes reach the
// sink only after the type's scheduled downloads have settled, so their
// fragment paths can be trusted.
func (o *Orchestrator) ingestPosts(ctx context.Context) error {
	query := url.Values{"_embed": {"1"}}

	for _, t := range o.postTypes {
		typeCtx := context.WithValue(ctx, logger.EntityTypeKey, t.canonical)

		records, err := o.fetcher.FetchAll(typeCtx, t.restBase, query)
		if err != nil {
			return err
		}

		nodes := make([]map[string]interface{}, 0, len(records))
		for _, rec := range records {
			nodes = append(nodes, o.buildPostNode(typeCtx, t, rec))
		}

		o.waitForDownloads()

		for _, node := range nodes {
			o.finalizeFragments(node)
			if err := t.collection.AddNode(node); err != nil {
				return err
			}
			metrics.RecordsNormalized.WithLabelValues(t.canonical).Inc()
		}

		o.logger.With(logger.Fields(typeCtx)...).Info("ingested post type",
			zap.Int("records", len(records)))
	}

	return nil
}

// finalizeFragments downgrades image fragments whose download never
// produced a file, so every LocalPath handed to the sink points at a
// real local copy. Runs after the download barrier.
func (o *Orchestrator) finalizeFragments(node map[string]interface{}) {
	frags, ok := node["contentFragments"].([]fragments.Fragment)
	if !ok {
		return
	}
	for i, frag := range frags {
		if frag.Kind != fragments.KindImage || frag.LocalPath == "" {
			continue
		}
		if _, err := os.Stat(frag.LocalPath); err != nil {
			frags[i] = frag.AsHTML()
		}
	}
}

// buildPostNode normalizes one record and attaches its references,
// fragments and downloaded featured image.
func (o *Orchestrator) buildPostNode(ctx context.Context, t discoveredType, rec wp.Record) map[string]interface{} {
	node := o.normalizer.Normalize(ctx, rec, false)

	// Every post points at an author; absent authors get the sentinel id.
	authorID := interface{}("0")
	if v, ok := rec["author"]; ok && v != nil {
		authorID = v
	}
	node["author"] = graph.NewReference(o.authorType, authorID)

	if t.raw != attachmentType {
		if fm, ok := rec["featured_media"]; ok && fm != nil {
			attachment := graph.CanonicalName(o.cfg.WordPress.TypePrefix, attachmentType)
			node["featuredMedia"] = graph.NewReference(attachment, fm)
		}
	}

	for _, tax := range o.taxonomies {
		ids, ok := rec[tax.restBase].([]interface{})
		if !ok {
			continue
		}
		refs := make([]interface{}, len(ids))
		for i, id := range ids {
			refs[i] = graph.NewReference(tax.canonical, id)
		}
		node[normalize.CamelCase(tax.restBase)] = refs
	}

	if o.cfg.Assets.SplitPostContent {
		if content, ok := node["content"].(string); ok {
			node["contentFragments"] = o.splitContent(ctx, content)
		}
	}

	if o.cfg.Assets.DownloadFeaturedImages && o.scheduler != nil {
		if localPath, ok := o.fetchFeaturedImage(ctx, rec); ok {
			node["featuredImage"] = localPath
		}
	}

	return node
}

// splitContent splits a post body into ordered fragments, scheduling a
// download for each inline image. Images that cannot be resolved, or
// whose downloading is disabled, fall back to plain html fragments.
func (o *Orchestrator) splitContent(ctx context.Context, content string) []fragments.Fragment {
	frags := fragments.Split(content)
	for i, frag := range frags {
		if frag.Kind != fragments.KindImage {
			continue
		}
		if !o.cfg.Assets.DownloadPostImages || o.scheduler == nil || frag.Src == "" {
			frags[i] = frag.AsHTML()
			continue
		}
		frags[i].LocalPath = o.scheduler.Schedule(ctx, frag.Src, assets.FileNameFromURL(frag.Src))
	}
	return frags
}

// fetchFeaturedImage downloads the record's embedded featured media.
// A failure is logged and the field is omitted; it never aborts the record.
func (o *Orchestrator) fetchFeaturedImage(ctx context.Context, rec wp.Record) (string, bool) {
	embedded, ok := rec["_embedded"].(map[string]interface{})
	if !ok {
		return "", false
	}
	media, ok := embedded["wp:featuredmedia"].([]interface{})
	if !ok || len(media) == 0 {
		return "", false
	}
	first, ok := media[0].(map[string]interface{})
	if !ok {
		return "", false
	}
	src, ok := first["source_url"].(string)
	if !ok || src == "" {
		return "", false
	}

	localPath, err := o.scheduler.Fetch(ctx, src, assets.FileNameFromURL(src))
	if err != nil {
		o.logger.Warn("failed to download featured image, omitting field",
			zap.String("url", src),
			zap.Error(err))
		return "", false
	}
	return localPath, true
}

// routeFor returns the display route template for a raw type name,
// honoring per-type overrides from configuration.
func (o *Orchestrator) routeFor(raw, restBase string) string {
	if route, ok := o.cfg.WordPress.Routes[raw]; ok {
		return route
	}
	return "/" + restBase + "/:slug"
}
