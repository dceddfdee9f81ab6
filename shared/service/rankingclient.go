// shared/service/rankingclient.go
package service

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/cockroachdb/errors"

	"github.com/RocketLeagueLatvia/discord-bot/shared/api"
)

// ErrRankingPlayerNotFound is returned when the ranking API has no record of the
// Steam account.
var ErrRankingPlayerNotFound = errors.New("player not found in ranking API")

// RankingProfile is the ranking API's answer for one Steam account.
type RankingProfile struct {
	Nick   string  `json:"nick"`
	MaxMMR flexInt `json:"maxmmr"`
	Error  *string `json:"error,omitempty"`
}

// flexInt accepts both "2000" and 2000. The ranking API sends numbers as strings.
// Set is false when the field was missing or null.
type flexInt struct {
	Value int
	Set   bool
}

func (f *flexInt) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" || s == "" || s == `""` {
		*f = flexInt{}
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var unquoted string
		if err := sonic.UnmarshalString(s, &unquoted); err != nil {
			return err
		}
		s = unquoted
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return errors.Wrapf(err, "invalid maxmmr %q", s)
	}
	*f = flexInt{Value: n, Set: true}
	return nil
}

// RankingClient looks up a player's best matchmaking rating by steamid64.
type RankingClient struct {
	client *api.Client
}

// NewRankingClient creates a client for the API rooted at baseURL. The steamid64 is
// appended directly, so baseURL should end with a slash.
func NewRankingClient(baseURL string, httpClient *http.Client) *RankingClient {
	return &RankingClient{client: api.NewClient(baseURL, httpClient)}
}

// GetMaxMMR returns the player's maxmmr. A response without a rating counts as not
// found, so callers never store a made-up zero.
func (rc *RankingClient) GetMaxMMR(ctx context.Context, steamID64 string) (int, error) {
	if _, err := strconv.ParseUint(steamID64, 10, 64); err != nil {
		return 0, errors.Wrapf(ErrRankingPlayerNotFound, "steamid64 %q is not numeric", steamID64)
	}

	var profile RankingProfile
	if err := rc.client.Get(ctx, steamID64, &profile); err != nil {
		if api.IsHTTPError(err, http.StatusNotFound) {
			return 0, errors.Wrapf(ErrRankingPlayerNotFound, "steamid64 %s", steamID64)
		}
		return 0, errors.Wrapf(err, "failed to fetch maxmmr for %s", steamID64)
	}
	if profile.Error != nil {
		return 0, errors.Wrapf(ErrRankingPlayerNotFound, "steamid64 %s: %s", steamID64, *profile.Error)
	}
	if !profile.MaxMMR.Set {
		return 0, errors.Wrapf(ErrRankingPlayerNotFound, "steamid64 %s: no maxmmr in response", steamID64)
	}
	return profile.MaxMMR.Value, nil
}
