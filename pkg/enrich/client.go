package enrich

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/causalcanvas/pkg/cache"
	"github.com/matzehuels/causalcanvas/pkg/httputil"
	"github.com/matzehuels/causalcanvas/pkg/observability"
)

// DefaultCardTTL is how long a remote card stays cached.
const DefaultCardTTL = 30 * 24 * time.Hour

const rationaleKeyType = "rationale"

// ClientConfig configures [NewClient].
type ClientConfig struct {
	Endpoint string // base URL; the card is fetched from <Endpoint>/edge/rationale
	Timeout  time.Duration
	Retries  int
	Cache    cache.Cache
	Keyer    cache.Keyer
	TTL      time.Duration
	Logger   *log.Logger
}

// Client fetches cards from a remote rationale service.
type Client struct {
	url   string
	http  *httputil.Client
	cache cache.Cache
	keyer cache.Keyer
	ttl   time.Duration
	log   *log.Logger
}

// NewClient returns a client for cfg.Endpoint.
func NewClient(cfg ClientConfig) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	hc := httputil.NewClient(cfg.Timeout)
	if cfg.Retries > 0 {
		hc.Attempts = cfg.Retries
	}
	if cfg.Cache == nil {
		cfg.Cache = cache.NewNullCache()
	}
	if cfg.Keyer == nil {
		cfg.Keyer = cache.NewDefaultKeyer()
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultCardTTL
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	return &Client{
		url:   strings.TrimRight(cfg.Endpoint, "/") + "/edge/rationale",
		http:  hc,
		cache: cfg.Cache,
		keyer: cfg.Keyer,
		ttl:   cfg.TTL,
		log:   cfg.Logger,
	}
}

type rationaleRequest struct {
	AName string `json:"a_name"`
	BName string `json:"b_name"`
}

// Rationale returns the cached card for from → to, or fetches and caches
// it.
func (c *Client) Rationale(ctx context.Context, from, to string) (Card, error) {
	key := c.keyer.RationaleKey(from, to)
	hooks := observability.Cache()
	card, err := cache.GetJSON[Card](ctx, c.cache, key)
	if err == nil {
		hooks.OnCacheHit(ctx, rationaleKeyType)
		return card, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		c.log.Warn("cache read failed", "err", err)
	}
	hooks.OnCacheMiss(ctx, rationaleKeyType)

	card = Card{}
	if err := c.http.PostJSON(ctx, c.url, rationaleRequest{AName: from, BName: to}, &card); err != nil {
		return Card{}, err
	}
	card = card.Clean()
	if n, err := cache.SetJSON(ctx, c.cache, key, card, c.ttl); err != nil {
		c.log.Warn("cache write failed", "err", err)
	} else {
		hooks.OnCacheSet(ctx, rationaleKeyType, n)
	}
	return card, nil
}

// Fallback asks Primary and answers with [FallbackCard] when it fails or
// returns an empty card.
type Fallback struct {
	Primary Enricher
	Logger  *log.Logger
}

func (f Fallback) Rationale(ctx context.Context, from, to string) (Card, error) {
	if f.Primary != nil {
		card, err := f.Primary.Rationale(ctx, from, to)
		if err == nil && !card.IsEmpty() {
			return card, nil
		}
		if err != nil && f.Logger != nil {
			f.Logger.Warn("enrichment failed, using fallback", "from", from, "to", to, "err", err)
		}
	}
	return FallbackCard(), nil
}
