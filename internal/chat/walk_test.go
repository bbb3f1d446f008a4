package chat

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"questrail.io/questrail/internal/database"
)

func seedRoute(t *testing.T, f *fixture, pointNames ...string) *database.Route {
	t.Helper()
	route := &database.Route{Name: "Old town", Description: "A stroll through the old town", IsActive: true}
	require.NoError(t, f.store.CreateRoute(route))
	for i, name := range pointNames {
		point := &database.Point{
			Name:        name,
			Description: name + " description",
			Latitude:    float64(i),
			Longitude:   float64(i),
			TextContent: "Story of " + name,
		}
		require.NoError(t, f.store.CreatePoint(point))
		require.NoError(t, f.store.AddPointPhoto(point.ID, "points/photos/"+name, name))
		require.NoError(t, f.store.AppendRoutePoint(route.ID, point.ID))
	}
	return route
}

func TestWalkHappyPath(t *testing.T) {
	f := newFixture()
	f.seedTraveler()
	route := seedRoute(t, f, "Square", "Bridge")

	f.callback(travelerChatID, "walk_start:"+route.ID)
	sess := f.session(travelerChatID)
	require.Equal(t, StateWalking, sess.State)
	require.Len(t, sess.Walk.Stops, 2)
	require.Equal(t, 0, sess.Walk.Index)
	require.Equal(t, 1, f.channel.textsContaining("Stop 1 of 2"))

	f.callback(travelerChatID, "walk_next:0")
	require.Equal(t, 1, f.session(travelerChatID).Walk.Index)
	require.Equal(t, 1, f.channel.textsContaining("Stop 2 of 2"))

	// A stale double tap of the first button must not advance again.
	f.callback(travelerChatID, "walk_next:0")
	require.Equal(t, 1, f.session(travelerChatID).Walk.Index)
	require.Equal(t, 1, f.channel.textsContaining("Stop 2 of 2"))

	f.callback(travelerChatID, "walk_next:1")
	require.Equal(t, 1, f.channel.textsContaining("Congratulations"))
	require.Nil(t, f.session(travelerChatID))

	require.Eventually(t, func() bool {
		return f.channel.textsContaining("How did you like") == 1
	}, time.Second, 5*time.Millisecond)
}

func TestWalkSnapshotIgnoresLaterEdits(t *testing.T) {
	f := newFixture()
	f.seedTraveler()
	route := seedRoute(t, f, "Square", "Bridge")

	f.callback(travelerChatID, "walk_start:"+route.ID)

	// The route grows while the walk is in flight; the walker still
	// sees the two stops they started with.
	extra := &database.Point{Name: "Tower"}
	require.NoError(t, f.store.CreatePoint(extra))
	require.NoError(t, f.store.AppendRoutePoint(route.ID, extra.ID))

	f.callback(travelerChatID, "walk_next:0")
	f.callback(travelerChatID, "walk_next:1")
	require.Equal(t, 1, f.channel.textsContaining("Congratulations"))
	require.Zero(t, f.channel.textsContaining("Tower"))
}

func TestWalkFeedbackCancelledByNextWalk(t *testing.T) {
	f := newFixture()
	f.seedTraveler()
	route := seedRoute(t, f, "Square")

	f.callback(travelerChatID, "walk_start:"+route.ID)
	f.callback(travelerChatID, "walk_next:0")
	require.Equal(t, 1, f.channel.textsContaining("Congratulations"))

	// Starting another walk before the prompt fires swallows it.
	f.callback(travelerChatID, "walk_start:"+route.ID)
	time.Sleep(100 * time.Millisecond)
	require.Zero(t, f.channel.textsContaining("How did you like"))
}

func TestWalkUnavailableRoute(t *testing.T) {
	f := newFixture()
	f.seedTraveler()
	route := seedRoute(t, f, "Square")
	require.NoError(t, f.store.UpdateRouteField(route.ID, "is_active", false))

	f.callback(travelerChatID, "walk_start:"+route.ID)
	require.Contains(t, f.channel.lastText(), "no longer available")
	require.Equal(t, StateIdle, f.session(travelerChatID).State)
}

func TestWalkEmptyRoute(t *testing.T) {
	f := newFixture()
	f.seedTraveler()
	route := &database.Route{Name: "Draft", IsActive: true}
	require.NoError(t, f.store.CreateRoute(route))

	f.callback(travelerChatID, "walk_start:"+route.ID)
	require.Contains(t, f.channel.lastText(), "no waypoints yet")
	require.Equal(t, StateIdle, f.session(travelerChatID).State)
}

func TestWalkRequiresVerifiedUser(t *testing.T) {
	f := newFixture()
	f.store.GetOrCreateUser(travelerChatID, "Unverified")
	route := seedRoute(t, f, "Square")

	f.callback(travelerChatID, "walk_start:"+route.ID)
	require.Nil(t, f.session(travelerChatID).Walk)
	msgs := f.channel.messages()
	require.Equal(t, "contact_request", msgs[len(msgs)-1].Kind)
}
