package texture

import (
	"image"
	"sync"

	"github.com/rs/zerolog"
)

// Resolver resolves an icon reference to a decoded image.
type Resolver interface {
	Resolve(name string) *image.NRGBA
}

// Cache decodes each indexed icon at most once and shares the result
// between turntable workers. Icons that fail to decode stay nil.
type Cache struct {
	index *Index
	log   zerolog.Logger

	mu    sync.Mutex
	icons map[string]*lazyIcon
}

type lazyIcon struct {
	once sync.Once
	img  *image.NRGBA
}

func NewCache(index *Index, log zerolog.Logger) *Cache {
	return &Cache{index: index, log: log, icons: make(map[string]*lazyIcon)}
}

// Resolve returns the icon for a dataset reference such as "icons/Pool.png",
// or nil when no file matches or the file does not decode.
func (c *Cache) Resolve(name string) *image.NRGBA {
	path, ok := c.index.ResolvePath(name)
	if !ok {
		return nil
	}

	c.mu.Lock()
	icon, ok := c.icons[path]
	if !ok {
		icon = &lazyIcon{}
		c.icons[path] = icon
	}
	c.mu.Unlock()

	icon.once.Do(func() {
		img, err := LoadTexture(path)
		if err != nil {
			c.log.Warn().Err(err).Str("icon", name).Msg("icon skipped")
			return
		}
		icon.img = img
	})
	return icon.img
}

// Len returns the number of icon files looked up so far, including ones
// that failed to decode.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.icons)
}
