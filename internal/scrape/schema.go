package scrape

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/JakeFAU/embedscraper/internal/embed"
	"github.com/JakeFAU/embedscraper/internal/mapping"
	"github.com/JakeFAU/embedscraper/internal/media"
	"github.com/JakeFAU/embedscraper/internal/source"
)

// DefaultMaxFiles bounds the number of files attached to an embed.
const DefaultMaxFiles = 5

// Image locations, most specific first. A lone og:image is a scalar at
// og.image while repeated or annotated images are records under
// og.image.image.
var imagePaths = []string{
	"og.image.image", "og.image", "og.image.url", "og.image.secure_url",
	"twitter.image.image", "twitter.image", "twitter.image.src",
}

// schemaContext carries what transforms need. Schemas are built from it per
// request.
type schemaContext struct {
	proxy     media.Proxy
	maxFiles  int
	thumbhash *media.ThumbhashClient
}

// SchemaFor returns the rule schema for a platform.
func (sc schemaContext) SchemaFor(platform source.Platform) mapping.Schema {
	if platform == source.YouTube {
		return sc.youtubeSchema()
	}
	return sc.baseSchema()
}

func (sc schemaContext) baseSchema() mapping.Schema {
	maxFiles := sc.maxFiles
	if maxFiles <= 0 {
		maxFiles = DefaultMaxFiles
	}
	files := mapping.Schema{
		"url":    mapping.Scalar(imagePaths...).WithTransform(sc.proxyTransform),
		"rawUrl": mapping.Scalar(imagePaths...),
		"type":   mapping.Scalar(imagePaths...).WithTransform(constant(string(embed.FileTypeImage))),
		"width":  mapping.Scalar("og.image.width", "twitter.image.width").WithTransform(parseInt),
		"height": mapping.Scalar("og.image.height", "twitter.image.height").WithTransform(parseInt),
	}
	if sc.thumbhash != nil {
		files["thumbHash"] = mapping.Scalar(imagePaths...).WithTransform(sc.thumbhashTransform)
	}

	return mapping.Schema{
		"description": mapping.Scalar("og.description", "twitter.description", "description"),
		"title":       mapping.Scalar("og.title", "twitter.title", "title"),
		"url":         mapping.Scalar("og.url", "twitter.url", "url"),
		"color":       mapping.Scalar("theme-color").WithTransform(parseColor),
		"author": mapping.Nested(mapping.Schema{
			"name": mapping.Scalar("author_name"),
			"url":  mapping.Scalar("author_url"),
		}),
		"provider": mapping.Nested(mapping.Schema{
			"name": mapping.Scalar("provider_name", "og.site_name"),
			"url":  mapping.Scalar("provider_url"),
		}),
		"files": mapping.Grouped(maxFiles, files),
	}
}

func (sc schemaContext) youtubeSchema() mapping.Schema {
	return mapping.Schema{
		"author": mapping.Nested(mapping.Schema{
			"name":    mapping.Scalar(keyYouTubeAuthor, "author_name"),
			"url":     mapping.Scalar(keyYouTubeAuthorLink, "author_url"),
			"iconUrl": mapping.Scalar(keyYouTubeChannelIcon).WithTransform(sc.proxyTransform),
		}),
		"color":       mapping.Scalar("theme-color").WithTransform(parseColor),
		"title":       mapping.Scalar("og.title", "title"),
		"description": mapping.Scalar("og.description", "description"),
		"iframeSource": mapping.Nested(mapping.Schema{
			"url": mapping.Scalar(
				"og.video.url", "og.video.secure_url", "og.video.embed_url", "og.video.iframe_url", "og.video.video",
			),
			"provider": mapping.Scalar("og.site_name"),
		}),
	}
}

func (sc schemaContext) proxyTransform(_ context.Context, raw string) (any, error) {
	return sc.proxy.External(raw), nil
}

func (sc schemaContext) thumbhashTransform(ctx context.Context, raw string) (any, error) {
	if hash := sc.thumbhash.BestEffort(ctx, raw); hash != "" {
		return hash, nil
	}
	return nil, nil
}

func constant(v string) mapping.Transform {
	return func(context.Context, string) (any, error) {
		return v, nil
	}
}

func parseInt(_ context.Context, raw string) (any, error) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return nil, nil
	}
	return n, nil
}

var rgbComponents = regexp.MustCompile(`\d+`)

// parseColor packs #rgb, #rrggbb, rgb()/rgba() and plain decimal colors
// into a single integer. Anything else is dropped.
func parseColor(_ context.Context, raw string) (any, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case strings.HasPrefix(s, "#"):
		hex := s[1:]
		if len(hex) == 3 {
			hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
		}
		if len(hex) == 8 {
			hex = hex[:6]
		}
		if len(hex) != 6 {
			return nil, nil
		}
		n, err := strconv.ParseInt(hex, 16, 32)
		if err != nil {
			return nil, nil
		}
		return int(n), nil
	case strings.HasPrefix(s, "rgb"):
		parts := rgbComponents.FindAllString(s, 3)
		if len(parts) < 3 {
			return nil, nil
		}
		var packed int
		for _, p := range parts {
			c, err := strconv.Atoi(p)
			if err != nil || c > 255 {
				return nil, nil
			}
			packed = packed<<8 | c
		}
		return packed, nil
	default:
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			return nil, nil
		}
		return n, nil
	}
}
