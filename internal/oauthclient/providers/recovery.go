package providers

import (
	"golang.org/x/sync/singleflight"

	"github.com/jamesprial/mcp-oauth-2.1/pkg/oauth"
)

// invalidClientRecovery serializes the invalid_client recovery path
// (spec §5: "must serialize through a mutex so at most one
// re-registration runs at a time") across concurrent callers sharing the
// same resource key.
type invalidClientRecovery struct {
	group singleflight.Group
}

// Do runs recover for key, collapsing concurrent callers into a single
// in-flight recovery; every caller observes the same result.
func (r *invalidClientRecovery) Do(key string, recover func() (*oauth.TokenSet, error)) (*oauth.TokenSet, error) {
	v, err, _ := r.group.Do(key, func() (any, error) {
		return recover()
	})
	if err != nil {
		return nil, err
	}
	return v.(*oauth.TokenSet), nil
}
