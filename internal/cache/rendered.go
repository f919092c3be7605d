package cache

import (
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

const (
	DefaultRenderedTTL     = 30 * time.Minute
	DefaultRenderedCleanup = 10 * time.Minute
)

// RenderedContent is a post body rendered to HTML. Extra carries whatever
// metadata the renderer produced alongside it.
type RenderedContent struct {
	HTML  []byte
	Extra any
}

var (
	renderedMu    sync.RWMutex
	renderedCache = gocache.New(DefaultRenderedTTL, DefaultRenderedCleanup)
)

// ConfigureRendered replaces the rendered content cache with one using the
// given expiry. Existing entries are dropped.
func ConfigureRendered(ttl, cleanup time.Duration) {
	renderedMu.Lock()
	defer renderedMu.Unlock()
	renderedCache = gocache.New(ttl, cleanup)
}

func rendered() *gocache.Cache {
	renderedMu.RLock()
	defer renderedMu.RUnlock()
	return renderedCache
}

func renderedKey(contentHash, syntaxTheme string) string {
	return contentHash + ":" + syntaxTheme
}

func GetRenderedMarkdown(contentHash, syntaxTheme string) (*RenderedContent, bool) {
	v, ok := rendered().Get(renderedKey(contentHash, syntaxTheme))
	if !ok {
		return nil, false
	}
	rc, ok := v.(*RenderedContent)
	return rc, ok
}

func SetRenderedMarkdown(contentHash, syntaxTheme string, html []byte, extra any) {
	rendered().SetDefault(renderedKey(contentHash, syntaxTheme), &RenderedContent{
		HTML:  html,
		Extra: extra,
	})
}

func RenderedCount() int {
	return rendered().ItemCount()
}

func ClearRenderedMarkdownCache() {
	rendered().Flush()
}
