package normalize

import (
	"context"

	"go.uber.org/zap"

	"github.com/ajitpratap0/wpbridge/pkg/assets"
	"github.com/ajitpratap0/wpbridge/pkg/graph"
	"github.com/ajitpratap0/wpbridge/pkg/wp"
)

// linkMarkerPrefix marks the API's internal link/embed keys, which never
// survive normalization.
const linkMarkerPrefix = "_"

// attachmentTypeName is the raw type name attachment-shaped objects refer to.
const attachmentTypeName = "attachment"

// Options configures a Normalizer.
type Options struct {
	// TypePrefix derives canonical entity type names
	TypePrefix string
	// DownloadImages enables asset descriptors inside special field groups
	DownloadImages bool
	// SpecialGroupKeys are record fields whose subtrees form a special
	// field group (custom-field data); traversal inside them enables
	// image recognition. Defaults to ["acf"].
	SpecialGroupKeys []string
}

// Normalizer rewrites raw records into canonical nodes. With image
// downloading disabled it is a pure function of its input; with it
// enabled, the output at image sites is still deterministic (same local
// path every time) but a download is scheduled as a side effect.
type Normalizer struct {
	opts      Options
	scheduler *assets.Scheduler
	logger    *zap.Logger
}

// New creates a Normalizer. scheduler may be nil when image downloading
// is disabled.
func New(opts Options, scheduler *assets.Scheduler, logger *zap.Logger) *Normalizer {
	if opts.SpecialGroupKeys == nil {
		opts.SpecialGroupKeys = []string{"acf"}
	}
	return &Normalizer{
		opts:      opts,
		scheduler: scheduler,
		logger:    logger.With(zap.String("component", "normalizer")),
	}
}

// Normalize rewrites one record into a canonical node. inSpecialGroup
// marks traversal inside a special field group (custom-field data), the
// only place image recognition may fire.
func (n *Normalizer) Normalize(ctx context.Context, record wp.Record, inSpecialGroup bool) map[string]interface{} {
	return n.normalizeMap(ctx, record, inSpecialGroup)
}

func (n *Normalizer) normalizeMap(ctx context.Context, m map[string]interface{}, inSpecialGroup bool) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for key, value := range m {
		if len(key) > 0 && key[:1] == linkMarkerPrefix {
			continue
		}
		out[CamelCase(key)] = n.normalizeValue(ctx, value, inSpecialGroup || n.isSpecialGroupKey(key))
	}
	return out
}

func (n *Normalizer) isSpecialGroupKey(key string) bool {
	for _, k := range n.opts.SpecialGroupKeys {
		if k == key {
			return true
		}
	}
	return false
}

func (n *Normalizer) normalizeValue(ctx context.Context, value interface{}, inSpecialGroup bool) interface{} {
	switch v := value.(type) {
	case nil:
		return nil

	case []interface{}:
		out := make([]interface{}, len(v))
		for i, elem := range v {
			out[i] = n.normalizeValue(ctx, elem, inSpecialGroup)
		}
		return out

	case map[string]interface{}:
		allowImages := inSpecialGroup && n.allowDownloads()
		switch Classify(v, allowImages) {
		case KindImage:
			return n.assetDescriptor(ctx, v)
		case KindEntityRef:
			postType, _ := v["post_type"].(string)
			return graph.NewReference(graph.CanonicalName(n.opts.TypePrefix, postType), idField(v))
		case KindAttachmentRef:
			return graph.NewReference(graph.CanonicalName(n.opts.TypePrefix, attachmentTypeName), idField(v))
		case KindRendered:
			return v["rendered"]
		default:
			return n.normalizeMap(ctx, v, inSpecialGroup)
		}

	case string:
		if inSpecialGroup && n.allowDownloads() && IsImageURL(v) {
			return n.scheduler.Schedule(ctx, v, assets.FileNameFromURL(v))
		}
		return v

	default:
		// Scalars pass through untouched.
		return value
	}
}

// assetDescriptor schedules the download and replaces the image object
// with its {src, title, alt} descriptor.
func (n *Normalizer) assetDescriptor(ctx context.Context, image map[string]interface{}) map[string]interface{} {
	remoteURL, _ := image["url"].(string)
	fileName, _ := image["filename"].(string)
	localPath := n.scheduler.Schedule(ctx, remoteURL, fileName)

	return map[string]interface{}{
		"src":   localPath,
		"title": image["title"],
		"alt":   image["alt"],
	}
}

func (n *Normalizer) allowDownloads() bool {
	return n.opts.DownloadImages && n.scheduler != nil
}
