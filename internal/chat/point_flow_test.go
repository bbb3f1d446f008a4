package chat

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"questrail.io/questrail/internal/database"
)

func TestPointCreationDialogue(t *testing.T) {
	f := newFixture()
	f.seedAdmin()

	f.callback(adminChatID, "pt_create")
	require.Equal(t, StatePointName, f.session(adminChatID).State)

	f.text(adminChatID, "Old Lighthouse")
	require.Equal(t, StatePointDescription, f.session(adminChatID).State)

	f.text(adminChatID, "The oldest lighthouse in town")
	require.Equal(t, StatePointLocation, f.session(adminChatID).State)

	// A text message is not a location; the dialogue re-prompts and
	// stays put.
	f.text(adminChatID, "it is near the port")
	require.Equal(t, StatePointLocation, f.session(adminChatID).State)
	require.Contains(t, f.channel.lastText(), "location attachment")

	f.location(adminChatID, 59.95, 30.31)
	sess := f.session(adminChatID)
	require.Equal(t, StatePointContent, sess.State)
	require.NotEmpty(t, sess.PointID)

	point, err := f.store.Point(sess.PointID)
	require.NoError(t, err)
	require.Equal(t, "Old Lighthouse", point.Name)
	require.Equal(t, "The oldest lighthouse in town", point.Description)
	require.Equal(t, 59.95, point.Latitude)

	f.callback(adminChatID, "content:text")
	require.Equal(t, StatePointText, f.session(adminChatID).State)
	f.text(adminChatID, "Ships wrecked here for centuries...")
	require.Equal(t, StatePointContent, f.session(adminChatID).State)
	point, _ = f.store.Point(sess.PointID)
	require.Equal(t, "Ships wrecked here for centuries...", point.TextContent)

	f.callback(adminChatID, "content:done")
	require.Equal(t, StateIdle, f.session(adminChatID).State)
}

func TestPointCreationRequiresAdmin(t *testing.T) {
	f := newFixture()
	f.seedTraveler()

	f.callback(travelerChatID, "pt_create")
	require.Equal(t, StateIdle, f.session(travelerChatID).State)
	// Unauthorized taps are dropped without a reply.
	require.Empty(t, f.channel.messages())
}

func TestPointCreationRejectsEmptyName(t *testing.T) {
	f := newFixture()
	f.seedAdmin()

	f.callback(adminChatID, "pt_create")
	f.text(adminChatID, "  \n ")
	require.Equal(t, StatePointName, f.session(adminChatID).State)
	require.Equal(t, 1, f.channel.textsContaining("cannot be empty"))

	f.text(adminChatID, "Clock tower")
	require.Equal(t, StatePointDescription, f.session(adminChatID).State)

	f.text(adminChatID, " ")
	require.Equal(t, StatePointDescription, f.session(adminChatID).State)
}

func TestHandlerErrorResetsSession(t *testing.T) {
	f := newFixture()
	f.seedAdmin()
	point := &database.Point{Name: "Gate", Description: "City gate"}
	require.NoError(t, f.store.CreatePoint(point))

	f.callback(adminChatID, "pt_edit:"+point.ID)
	f.callback(adminChatID, "pt_f:text")
	require.Equal(t, StatePointEditText, f.session(adminChatID).State)

	f.store.updateErr = errors.New("connection reset")
	f.text(adminChatID, "new story text")
	require.Equal(t, StateIdle, f.session(adminChatID).State)
	require.Equal(t, 1, f.channel.textsContaining(msgInternalError))
}

func TestPointPhotoCaptionLoop(t *testing.T) {
	f := newFixture()
	f.seedAdmin()

	f.callback(adminChatID, "pt_create")
	f.text(adminChatID, "Fountain")
	f.text(adminChatID, "A fountain")
	f.location(adminChatID, 1, 2)
	pointID := f.session(adminChatID).PointID

	f.callback(adminChatID, "content:photo")
	f.photo(adminChatID, "file-1", "")
	require.Equal(t, StatePointPhotoCaption, f.session(adminChatID).State)

	f.text(adminChatID, "The fountain at dusk")
	require.Equal(t, StatePointContent, f.session(adminChatID).State)

	point, _ := f.store.Point(pointID)
	require.Len(t, point.Photos, 1)
	require.Equal(t, "The fountain at dusk", point.Photos[0].Caption)

	// A captioned photo skips the extra question.
	f.callback(adminChatID, "content:photo")
	f.photo(adminChatID, "file-2", "Close up")
	require.Equal(t, StatePointContent, f.session(adminChatID).State)
	point, _ = f.store.Point(pointID)
	require.Len(t, point.Photos, 2)
}

func TestPointEditName(t *testing.T) {
	f := newFixture()
	f.seedAdmin()
	point := &database.Point{Name: "Gate", Description: "City gate"}
	require.NoError(t, f.store.CreatePoint(point))

	f.callback(adminChatID, "pt_edit:"+point.ID)
	f.callback(adminChatID, "pt_f:name")
	require.Equal(t, StatePointEditName, f.session(adminChatID).State)

	f.text(adminChatID, "Northern Gate")
	require.Equal(t, StateIdle, f.session(adminChatID).State)
	point, _ = f.store.Point(point.ID)
	require.Equal(t, "Northern Gate", point.Name)
}

func TestPointEditPhotoReplacesAndCleansBlob(t *testing.T) {
	f := newFixture()
	f.seedAdmin()
	point := &database.Point{Name: "Arch"}
	require.NoError(t, f.store.CreatePoint(point))
	require.NoError(t, f.store.AddPointPhoto(point.ID, "points/photos/old", "old"))

	f.callback(adminChatID, "pt_edit:"+point.ID)
	f.callback(adminChatID, "pt_f:photo")
	f.photo(adminChatID, "file-new", "new one")

	point, _ = f.store.Point(point.ID)
	require.Len(t, point.Photos, 1)
	require.Equal(t, "points/photos/file-new", point.Photos[0].Path)
	require.Contains(t, f.blobs.deleted, "points/photos/old")
}

func TestPointDeleteGuardedByRouteMembership(t *testing.T) {
	f := newFixture()
	f.seedAdmin()
	point := &database.Point{Name: "Pier"}
	require.NoError(t, f.store.CreatePoint(point))
	route := &database.Route{Name: "Harbor walk", IsActive: true}
	require.NoError(t, f.store.CreateRoute(route))
	require.NoError(t, f.store.AppendRoutePoint(route.ID, point.ID))

	f.callback(adminChatID, "pt_del:"+point.ID)
	require.Contains(t, f.channel.lastText(), "part of a route")
	got, _ := f.store.Point(point.ID)
	require.NotNil(t, got)

	require.NoError(t, f.store.RemoveRoutePoint(route.ID, point.ID))
	f.callback(adminChatID, "pt_del:"+point.ID)
	got, _ = f.store.Point(point.ID)
	require.Nil(t, got)
}
