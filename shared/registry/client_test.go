package registry

import (
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RocketLeagueLatvia/discord-bot/shared/logging"
)

func entry(t *testing.T, id string, lastSeen time.Time) string {
	t.Helper()
	s, err := sonic.MarshalString(ServiceInfo{ServiceID: id, ServiceType: BotServiceType, LastSeen: lastSeen.UnixMilli()})
	require.NoError(t, err)
	return s
}

func TestActiveServices_FiltersStaleAndMalformed(t *testing.T) {
	now := time.Now()
	entries := map[string]string{
		"fresh":     entry(t, "fresh", now.Add(-2*time.Second)),
		"stale":     entry(t, "stale", now.Add(-time.Minute)),
		"malformed": "{not json",
	}

	active := activeServices(entries, now, 15*time.Second, logging.NewNop())

	require.Len(t, active, 1)
	assert.Equal(t, "fresh", active["fresh"].ServiceID)
}

func TestActiveServices_LastSeenIsMilliseconds(t *testing.T) {
	now := time.Now()
	entries := map[string]string{"a": entry(t, "a", now.Add(-500*time.Millisecond))}

	active := activeServices(entries, now, time.Second, logging.NewNop())

	assert.Contains(t, active, "a")
}
