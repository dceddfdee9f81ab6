package cluster

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RocketLeagueLatvia/discord-bot/shared/logging"
	"github.com/RocketLeagueLatvia/discord-bot/shared/registry"
)

type fakeLister struct {
	services map[string]registry.ServiceInfo
	err      error
}

func (f *fakeLister) GetActiveServices(context.Context, string) (map[string]registry.ServiceInfo, error) {
	return f.services, f.err
}

func newManager(lister ServiceLister, id string) *ServiceAssignmentManager {
	return NewServiceAssignmentManager(lister, id, registry.BotServiceType, time.Minute, logging.NewNop())
}

func TestIsResponsible_LoneInstanceOwnsEverything(t *testing.T) {
	sam := newManager(&fakeLister{}, "bot-a")

	for i := 0; i < 20; i++ {
		ok, err := sam.IsResponsible(fmt.Sprintf("player-%d", i))
		require.NoError(t, err)
		assert.True(t, ok)
	}
}

func TestIsResponsible_PartitionsAcrossInstances(t *testing.T) {
	lister := &fakeLister{services: map[string]registry.ServiceInfo{
		"bot-a": {ServiceID: "bot-a"},
		"bot-b": {ServiceID: "bot-b"},
	}}
	a := newManager(lister, "bot-a")
	b := newManager(lister, "bot-b")
	a.UpdateRing()
	b.UpdateRing()

	for i := 0; i < 50; i++ {
		id := fmt.Sprintf("player-%d", i)
		okA, err := a.IsResponsible(id)
		require.NoError(t, err)
		okB, err := b.IsResponsible(id)
		require.NoError(t, err)
		assert.NotEqual(t, okA, okB, "exactly one instance owns %s", id)
	}
}

func TestUpdateRing_KeepsRingOnListError(t *testing.T) {
	sam := newManager(&fakeLister{err: errors.New("redis down")}, "bot-a")

	sam.UpdateRing()

	ok, err := sam.IsResponsible("player-1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestIsResponsible_EmptyRing(t *testing.T) {
	sam := newManager(&fakeLister{services: map[string]registry.ServiceInfo{}}, "bot-a")
	sam.UpdateRing()

	_, err := sam.IsResponsible("player-1")
	assert.Error(t, err)
}
