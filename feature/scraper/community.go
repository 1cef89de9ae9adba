package scraper

import (
	"context"
	"fmt"
	"html"
	"regexp"
	"strings"

	"upgrade-tracker/feature/catalog/models"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// CommunityConfig points the scraper at the community trade board.
type CommunityConfig struct {
	// BaseURL is the board's root.
	BaseURL string `mapstructure:"base_url" default:"https://www.reddit.com"`
	// Board is the trading board name.
	Board string `mapstructure:"board" default:"starcitizen_trades"`
	// StoreFlair selects store posts from the listing.
	StoreFlair string `mapstructure:"store_flair" default:"store"`
	// PostLimit caps how many recent posts are parsed per fetch.
	PostLimit int `mapstructure:"post_limit" default:"10"`
	// UserAgent identifies this scraper to the board.
	UserAgent string `mapstructure:"user_agent" default:"upgrade-tracker/1.0"`
	// ClientID and ClientSecret are passed through when the board
	// requires registered API access. Left empty for anonymous reads.
	ClientID     string `mapstructure:"client_id" default:""`
	ClientSecret string `mapstructure:"client_secret" default:""`
}

// traderFlairPattern accepts only sellers with an established trade
// history, e.g. "RSI handle, Trader, Trades: 42".
var traderFlairPattern = regexp.MustCompile(`^RSI \S+, Trader, Trades: [1-9][0-9]*$`)

// Community scrapes free-text store posts from the trade board and
// parses their offer tables. The records it returns still carry noisy
// ship names for the pipeline's resolver.
type Community struct {
	client *resty.Client
	cfg    CommunityConfig
	logger *zap.Logger
}

// NewCommunity creates a community-board scraper.
func NewCommunity(cfg CommunityConfig, logger *zap.Logger) *Community {
	if cfg.PostLimit <= 0 {
		cfg.PostLimit = 10
	}
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetHeader("User-Agent", cfg.UserAgent)
	if cfg.ClientID != "" {
		client.SetBasicAuth(cfg.ClientID, cfg.ClientSecret)
	}
	return &Community{client: client, cfg: cfg, logger: logger}
}

type boardListing struct {
	Data struct {
		Children []struct {
			Data struct {
				Author          string `json:"author"`
				AuthorFlairText string `json:"author_flair_text"`
				Permalink       string `json:"permalink"`
				SelftextHTML    string `json:"selftext_html"`
			} `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

// Standalones fetches the latest store posts and returns their direct
// purchase offers.
func (c *Community) Standalones(ctx context.Context) ([]models.RawOffer, error) {
	offers, err := c.fetchOffers(ctx)
	if err != nil {
		return nil, err
	}
	var out []models.RawOffer
	for _, o := range offers {
		if !o.IsUpgrade() {
			out = append(out, o)
		}
	}
	return out, nil
}

// Upgrades fetches the latest store posts and returns their
// ship-to-ship offers.
func (c *Community) Upgrades(ctx context.Context) ([]models.RawOffer, error) {
	offers, err := c.fetchOffers(ctx)
	if err != nil {
		return nil, err
	}
	var out []models.RawOffer
	for _, o := range offers {
		if o.IsUpgrade() {
			out = append(out, o)
		}
	}
	return out, nil
}

func (c *Community) fetchOffers(ctx context.Context) ([]models.RawOffer, error) {
	var listing boardListing
	resp, err := c.client.R().
		SetContext(ctx).
		SetResult(&listing).
		SetQueryParams(map[string]string{
			"q":           fmt.Sprintf("flair:%q", c.cfg.StoreFlair),
			"restrict_sr": "1",
			"sort":        "new",
			"limit":       fmt.Sprintf("%d", c.cfg.PostLimit),
		}).
		Get(fmt.Sprintf("/r/%s/search.json", c.cfg.Board))
	if err != nil {
		return nil, fmt.Errorf("fetch trade board listing: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("trade board returned %s", resp.Status())
	}

	var offers []models.RawOffer
	parsed := 0
	for _, child := range listing.Data.Children {
		post := child.Data
		if !traderFlairPattern.MatchString(post.AuthorFlairText) {
			c.logger.Debug("post skipped, seller flair not trusted",
				zap.String("author", post.Author))
			continue
		}
		if post.SelftextHTML == "" {
			continue
		}
		// The listing delivers entity-escaped HTML.
		body := html.UnescapeString(post.SelftextHTML)
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
		if err != nil {
			c.logger.Warn("post body unparsable",
				zap.String("permalink", post.Permalink), zap.Error(err))
			continue
		}
		postOffers := parseOfferTables(doc, post.Author, c.cfg.BaseURL+post.Permalink, c.logger)
		offers = append(offers, postOffers...)
		parsed++
	}
	c.logger.Info("trade board fetched",
		zap.Int("posts", parsed), zap.Int("offers", len(offers)))
	return offers, nil
}
