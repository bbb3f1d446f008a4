package chat

import (
	"testing"

	"github.com/stretchr/testify/require"

	"questrail.io/questrail/internal/database"
)

func TestRouteCreationDialogue(t *testing.T) {
	f := newFixture()
	f.seedAdmin()

	f.callback(adminChatID, "rt_create")
	require.Equal(t, StateRouteName, f.session(adminChatID).State)

	f.text(adminChatID, "Harbor walk")
	require.Equal(t, StateRouteDescription, f.session(adminChatID).State)

	f.text(adminChatID, "Along the waterfront")
	require.Equal(t, StateIdle, f.session(adminChatID).State)

	routes, _ := f.store.Routes()
	require.Len(t, routes, 1)
	require.Equal(t, "Harbor walk", routes[0].Name)
	require.True(t, routes[0].IsActive)
}

func TestRouteToggleVisibility(t *testing.T) {
	f := newFixture()
	f.seedAdmin()
	route := seedRoute(t, f, "Square")

	f.callback(adminChatID, "rt_edit:"+route.ID)
	f.callback(adminChatID, "rt_f:active")
	got, _ := f.store.Route(route.ID)
	require.False(t, got.IsActive)

	// Hidden routes disappear from the traveler listing.
	f.seedTraveler()
	f.text(travelerChatID, menuRoutes)
	require.Equal(t, 1, f.channel.textsContaining("No routes are available"))
}

func TestRouteRemoveWaypointKeepsPoint(t *testing.T) {
	f := newFixture()
	f.seedAdmin()
	route := seedRoute(t, f, "Square", "Bridge")
	ids, _ := f.store.RouteMemberPointIDs(route.ID)
	require.Len(t, ids, 2)

	f.callback(adminChatID, "rt_rm_pt:"+route.ID)
	msgs := f.channel.messages()
	data := msgs[len(msgs)-1].Keyboard[0][0].Callback
	f.callback(adminChatID, data)

	ids, _ = f.store.RouteMemberPointIDs(route.ID)
	require.Len(t, ids, 1)
	points, _ := f.store.Points()
	require.Len(t, points, 2)
}

func TestRouteMembershipCallbacksRequireAdmin(t *testing.T) {
	f := newFixture()
	f.seedAdmin()
	route := seedRoute(t, f, "Square")
	extra := &database.Point{Name: "Bridge"}
	require.NoError(t, f.store.CreatePoint(extra))

	f.seedTraveler()
	f.callback(travelerChatID, "sel_add:"+route.ID+":"+extra.ID)
	ids, _ := f.store.RouteMemberPointIDs(route.ID)
	require.Len(t, ids, 1)

	f.callback(travelerChatID, "sel_rm:"+route.ID+":"+ids[0])
	ids, _ = f.store.RouteMemberPointIDs(route.ID)
	require.Len(t, ids, 1)
	require.Empty(t, f.channel.messages())
}

func TestRouteCreationRejectsEmptyName(t *testing.T) {
	f := newFixture()
	f.seedAdmin()

	f.callback(adminChatID, "rt_create")
	f.text(adminChatID, "   ")
	require.Equal(t, StateRouteName, f.session(adminChatID).State)
	require.Equal(t, 1, f.channel.textsContaining("cannot be empty"))

	f.text(adminChatID, "Harbor walk")
	require.Equal(t, StateRouteDescription, f.session(adminChatID).State)

	f.text(adminChatID, "\n ")
	require.Equal(t, StateRouteDescription, f.session(adminChatID).State)

	f.text(adminChatID, "Along the waterfront")
	routes, _ := f.store.Routes()
	require.Len(t, routes, 1)
}

func TestRouteDeleteKeepsPoints(t *testing.T) {
	f := newFixture()
	f.seedAdmin()
	route := seedRoute(t, f, "Square")

	f.callback(adminChatID, "rt_del:"+route.ID)
	got, _ := f.store.Route(route.ID)
	require.Nil(t, got)
	points, _ := f.store.Points()
	require.Len(t, points, 1)
}
