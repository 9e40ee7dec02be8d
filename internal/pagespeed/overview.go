package pagespeed

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/pool"
)

// Overview audits the site root on mobile and desktop concurrently. A
// partial overview is returned when one strategy fails; ErrUnavailable is
// returned only when both fail.
func (c *Client) Overview(ctx context.Context, site string) (*Overview, error) {
	var mobile, desktop *Result
	var mobileErr, desktopErr error

	wg := conc.NewWaitGroup()
	wg.Go(func() {
		mobile, mobileErr = c.Analyze(ctx, site, Mobile)
	})
	wg.Go(func() {
		desktop, desktopErr = c.Analyze(ctx, site, Desktop)
	})
	wg.Wait()

	overview := NewOverview(mobile, desktop)
	if !overview.Available {
		return overview, fmt.Errorf("%w: mobile: %v; desktop: %v", ErrUnavailable, mobileErr, desktopErr)
	}
	return overview, nil
}

// PageScore is the compact mobile result for one page.
type PageScore struct {
	Score int     `json:"score"`
	LCP   float64 `json:"lcp"`
	CLS   float64 `json:"cls"`
}

// KeyPages audits each path on mobile with at most workers requests in
// flight. Pages whose audit fails are left out.
func (c *Client) KeyPages(ctx context.Context, site string, paths []string, workers int) map[string]PageScore {
	if len(paths) == 0 {
		paths = []string{"/"}
	}
	if workers <= 0 {
		workers = 1
	}

	results := make(map[string]PageScore, len(paths))
	var mu sync.Mutex

	p := pool.New().WithMaxGoroutines(workers).WithContext(ctx)
	for _, path := range paths {
		p.Go(func(ctx context.Context) error {
			r, err := c.Analyze(ctx, PageURL(site, path), Mobile)
			if err != nil {
				zerolog.Ctx(ctx).Debug().Err(err).Str("path", path).Msg("skipping page")
				return nil
			}
			mu.Lock()
			results[path] = PageScore{
				Score: r.Score,
				LCP:   round(r.Metrics.LCP, 2),
				CLS:   round(r.Metrics.CLS, 3),
			}
			mu.Unlock()
			return nil
		})
	}
	_ = p.Wait()

	return results
}
