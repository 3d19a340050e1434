package scrape

import (
	"regexp"
	"strings"

	"github.com/JakeFAU/embedscraper/internal/embed"
	"github.com/JakeFAU/embedscraper/internal/htmlscan"
	"github.com/JakeFAU/embedscraper/internal/metadata"
)

// Raw keys injected by the YouTube augmentation.
const (
	keyYouTubeAuthor      = "youtube_author"
	keyYouTubeAuthorLink  = "youtube_author_link"
	keyYouTubeChannelIcon = "youtube_channel_icon"
)

var channelIconPattern = regexp.MustCompile(
	`"videoSecondaryInfoRenderer":\s*{\s*"owner":\s*{\s*"videoOwnerRenderer":\s*{\s*"thumbnail":\s*{\s*"thumbnails":\s*\[\s*{\s*"url":\s*"([^"]+)"`,
)

// youtubeAugment reads the channel identity from watch page markup and the
// initial player data embedded in its scripts.
func youtubeAugment(doc *htmlscan.Document) *metadata.Pairs {
	pairs := metadata.NewPairs()
	if name, ok := doc.Attr(`span[itemprop="author"] link[itemprop="name"]`, "content"); ok {
		pairs.Add(keyYouTubeAuthor, name)
	}
	if link, ok := doc.Attr(`span[itemprop="author"] link[itemprop="url"]`, "href"); ok {
		pairs.Add(keyYouTubeAuthorLink, link)
	}
	if m := channelIconPattern.FindStringSubmatch(doc.Raw()); len(m) == 2 {
		pairs.Add(keyYouTubeChannelIcon, strings.Replace(m[1], "=s48", "=s256", 1))
	}
	return pairs
}

func youtubeEmbedURL(videoID string) string {
	return "https://www.youtube.com/embed/" + videoID
}

func youtubeThumbnailURL(videoID string) string {
	return "https://i.ytimg.com/vi/" + videoID + "/maxresdefault.jpg"
}

const youtubeProvider = "YouTube"

func youtubeIframe(videoID string) *embed.IframeSource {
	return &embed.IframeSource{Provider: youtubeProvider, URL: youtubeEmbedURL(videoID)}
}
