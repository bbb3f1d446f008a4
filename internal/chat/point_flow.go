package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"questrail.io/questrail/internal/database"
	"questrail.io/questrail/pkg/errors"
	"questrail.io/questrail/pkg/log"
)

func (e *Engine) cbPointCreate(ctx context.Context, r *request, _ string) error {
	if ok, err := e.requireAdmin(ctx, r); !ok {
		return err
	}
	r.sess.Reset()
	r.sess.PointDraft = &PointDraft{}
	r.sess.State = StatePointName
	return e.sayf(ctx, r.ev.ChatID, "Creating a new waypoint. What is its name?")
}

func (e *Engine) onPointName(ctx context.Context, r *request) error {
	name := strings.TrimSpace(r.ev.Text)
	if name == "" {
		return e.sayf(ctx, r.ev.ChatID, "The name cannot be empty. What is the waypoint name?")
	}
	r.sess.PointDraft.Name = name
	r.sess.State = StatePointDescription
	return e.sayf(ctx, r.ev.ChatID, "Now send a description for the waypoint.")
}

func (e *Engine) onPointDescription(ctx context.Context, r *request) error {
	description := strings.TrimSpace(r.ev.Text)
	if description == "" {
		return e.sayf(ctx, r.ev.ChatID, "The description cannot be empty. Send one for the waypoint.")
	}
	r.sess.PointDraft.Description = description
	r.sess.State = StatePointLocation
	return e.sayf(ctx, r.ev.ChatID, "Share the waypoint location (use the location attachment).")
}

func (e *Engine) onPointLocation(ctx context.Context, r *request) error {
	point := &database.Point{
		Name:        r.sess.PointDraft.Name,
		Description: r.sess.PointDraft.Description,
		Latitude:    r.ev.Latitude,
		Longitude:   r.ev.Longitude,
		CreatedBy:   r.user.ID,
		CreatedAt:   time.Now(),
	}
	if err := e.store.CreatePoint(point); err != nil {
		return err
	}
	r.sess.PointID = point.ID
	r.sess.State = StatePointContent
	return e.showContentMenu(ctx, r.ev.ChatID,
		fmt.Sprintf("Waypoint %q saved. Now attach the story content, piece by piece.", point.Name))
}

var contentMenu = Keyboard{
	{{Label: "📝 Text", Callback: "content:text"}, {Label: "📷 Photo", Callback: "content:photo"}},
	{{Label: "🎧 Audio", Callback: "content:audio"}, {Label: "🎬 Video", Callback: "content:video"}},
	{{Label: "✔️ Done", Callback: "content:done"}},
}

func (e *Engine) showContentMenu(ctx context.Context, chatID int64, text string) error {
	return e.channel.SendTextWithKeyboard(ctx, chatID, text, contentMenu)
}

func (e *Engine) cbPointContent(ctx context.Context, r *request, arg string) error {
	if r.sess.PointID == "" {
		return e.sayf(ctx, r.ev.ChatID, msgExpiredButton)
	}
	switch arg {
	case "text":
		r.sess.State = StatePointText
		return e.sayf(ctx, r.ev.ChatID, "Send the story text for this waypoint.")
	case "photo":
		r.sess.State = StatePointPhoto
		return e.sayf(ctx, r.ev.ChatID, "Send a photo for this waypoint.")
	case "audio":
		r.sess.State = StatePointAudio
		return e.sayf(ctx, r.ev.ChatID, "Send an audio file for this waypoint.")
	case "video":
		r.sess.State = StatePointVideo
		return e.sayf(ctx, r.ev.ChatID, "Send a video for this waypoint.")
	case "done":
		pointID := r.sess.PointID
		r.sess.Reset()
		if err := e.sayf(ctx, r.ev.ChatID, "Waypoint is ready."); err != nil {
			return err
		}
		return e.showPoint(ctx, r, pointID)
	}
	return nil
}

func (e *Engine) onPointText(ctx context.Context, r *request) error {
	if err := e.store.UpdatePointField(r.sess.PointID, "text_content", r.ev.Text); err != nil {
		return err
	}
	r.sess.State = StatePointContent
	return e.showContentMenu(ctx, r.ev.ChatID, "Text saved. Anything else?")
}

func (e *Engine) onPointPhoto(ctx context.Context, r *request) error {
	path, err := e.channel.StoreInboundMedia(ctx, r.ev.FileID, "points/photos")
	if err != nil {
		return err
	}
	if caption := strings.TrimSpace(r.ev.Text); caption != "" {
		if err := e.store.AddPointPhoto(r.sess.PointID, path, caption); err != nil {
			return err
		}
		r.sess.State = StatePointContent
		return e.showContentMenu(ctx, r.ev.ChatID, "Photo saved. Anything else?")
	}
	if r.sess.PointDraft == nil {
		r.sess.PointDraft = &PointDraft{}
	}
	r.sess.PointDraft.PendingPhotoPath = path
	r.sess.State = StatePointPhotoCaption
	return e.sayf(ctx, r.ev.ChatID, "Send a caption for the photo.")
}

func (e *Engine) onPointPhotoCaption(ctx context.Context, r *request) error {
	err := e.store.AddPointPhoto(r.sess.PointID, r.sess.PointDraft.PendingPhotoPath, strings.TrimSpace(r.ev.Text))
	if err != nil {
		return err
	}
	r.sess.PointDraft.PendingPhotoPath = ""
	r.sess.State = StatePointContent
	return e.showContentMenu(ctx, r.ev.ChatID, "Photo saved. Anything else?")
}

func (e *Engine) onPointAudio(ctx context.Context, r *request) error {
	path, err := e.channel.StoreInboundMedia(ctx, r.ev.FileID, "points/audios")
	if err != nil {
		return err
	}
	if err := e.store.AddPointAudio(r.sess.PointID, path); err != nil {
		return err
	}
	r.sess.State = StatePointContent
	return e.showContentMenu(ctx, r.ev.ChatID, "Audio saved. Anything else?")
}

func (e *Engine) onPointVideo(ctx context.Context, r *request) error {
	path, err := e.channel.StoreInboundMedia(ctx, r.ev.FileID, "points/videos")
	if err != nil {
		return err
	}
	if err := e.store.AddPointVideo(r.sess.PointID, path); err != nil {
		return err
	}
	r.sess.State = StatePointContent
	return e.showContentMenu(ctx, r.ev.ChatID, "Video saved. Anything else?")
}

func (e *Engine) cbPointList(ctx context.Context, r *request, _ string) error {
	if ok, err := e.requireAdmin(ctx, r); !ok {
		return err
	}
	points, err := e.store.Points()
	if err != nil {
		return err
	}
	if len(points) == 0 {
		return e.sayf(ctx, r.ev.ChatID, "No waypoints yet. Create the first one!")
	}
	var kb Keyboard
	for _, point := range points {
		kb = append(kb, []Button{{Label: point.Name, Callback: "pt_view:" + point.ID}})
	}
	return e.channel.SendTextWithKeyboard(ctx, r.ev.ChatID, "Waypoints:", kb)
}

func (e *Engine) cbPointView(ctx context.Context, r *request, pointID string) error {
	if ok, err := e.requireAdmin(ctx, r); !ok {
		return err
	}
	return e.showPoint(ctx, r, pointID)
}

func (e *Engine) showPoint(ctx context.Context, r *request, pointID string) error {
	point, err := e.store.Point(pointID)
	if err != nil {
		return err
	}
	if point == nil {
		return e.sayf(ctx, r.ev.ChatID, "Waypoint not found.")
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%v\n\n%v\n", point.Name, point.Description)
	fmt.Fprintf(&b, "\nContent: %v photo(s), %v audio(s), %v video(s)",
		len(point.Photos), len(point.Audios), len(point.Videos))
	if point.TextContent != "" {
		b.WriteString(", story text set")
	}
	if refs, err := e.store.PointReferences(pointID); err == nil && refs > 0 {
		fmt.Fprintf(&b, "\nUsed by %v route(s).", refs)
	}
	kb := Keyboard{
		{{Label: "✏️ Edit", Callback: "pt_edit:" + point.ID}, {Label: "🗑 Delete", Callback: "pt_del:" + point.ID}},
		{{Label: "« Waypoints", Callback: "pt_list"}},
	}
	if err := e.channel.SendLocation(ctx, r.ev.ChatID, point.Latitude, point.Longitude); err != nil {
		log.Error(err)
	}
	return e.channel.SendTextWithKeyboard(ctx, r.ev.ChatID, b.String(), kb)
}

func (e *Engine) cbPointEditMenu(ctx context.Context, r *request, pointID string) error {
	if ok, err := e.requireAdmin(ctx, r); !ok {
		return err
	}
	r.sess.Reset()
	r.sess.PointID = pointID
	kb := Keyboard{
		{{Label: "Name", Callback: "pt_f:name"}, {Label: "Description", Callback: "pt_f:desc"}},
		{{Label: "Location", Callback: "pt_f:loc"}, {Label: "Story text", Callback: "pt_f:text"}},
		{{Label: "Photo", Callback: "pt_f:photo"}, {Label: "Audio", Callback: "pt_f:audio"}},
		{{Label: "Video", Callback: "pt_f:video"}},
		{{Label: "« Back", Callback: "pt_view:" + pointID}},
	}
	return e.channel.SendTextWithKeyboard(ctx, r.ev.ChatID, "What do you want to change?", kb)
}

func (e *Engine) cbPointEditField(ctx context.Context, r *request, field string) error {
	if r.sess.PointID == "" {
		return e.sayf(ctx, r.ev.ChatID, msgExpiredButton)
	}
	switch field {
	case "name":
		r.sess.State = StatePointEditName
		return e.sayf(ctx, r.ev.ChatID, "Send the new name.")
	case "desc":
		r.sess.State = StatePointEditDescription
		return e.sayf(ctx, r.ev.ChatID, "Send the new description.")
	case "loc":
		r.sess.State = StatePointEditLocation
		return e.sayf(ctx, r.ev.ChatID, "Share the new location.")
	case "text":
		r.sess.State = StatePointEditText
		return e.sayf(ctx, r.ev.ChatID, "Send the new story text.")
	case "photo":
		r.sess.State = StatePointEditPhoto
		return e.sayf(ctx, r.ev.ChatID, "Send the new photo. It replaces the current photos.")
	case "audio":
		r.sess.State = StatePointEditAudio
		return e.sayf(ctx, r.ev.ChatID, "Send the new audio. It replaces the current audios.")
	case "video":
		r.sess.State = StatePointEditVideo
		return e.sayf(ctx, r.ev.ChatID, "Send the new video. It replaces the current videos.")
	}
	return nil
}

func (e *Engine) finishPointEdit(ctx context.Context, r *request) error {
	pointID := r.sess.PointID
	r.sess.Reset()
	if err := e.sayf(ctx, r.ev.ChatID, "Updated."); err != nil {
		return err
	}
	return e.showPoint(ctx, r, pointID)
}

func (e *Engine) onPointEditName(ctx context.Context, r *request) error {
	name := strings.TrimSpace(r.ev.Text)
	if name == "" {
		return e.sayf(ctx, r.ev.ChatID, "The name cannot be empty. Send a new one.")
	}
	if err := e.store.UpdatePointField(r.sess.PointID, "name", name); err != nil {
		return err
	}
	return e.finishPointEdit(ctx, r)
}

func (e *Engine) onPointEditDescription(ctx context.Context, r *request) error {
	if err := e.store.UpdatePointField(r.sess.PointID, "description", strings.TrimSpace(r.ev.Text)); err != nil {
		return err
	}
	return e.finishPointEdit(ctx, r)
}

func (e *Engine) onPointEditLocation(ctx context.Context, r *request) error {
	if err := e.store.UpdatePointLocation(r.sess.PointID, r.ev.Latitude, r.ev.Longitude); err != nil {
		return err
	}
	return e.finishPointEdit(ctx, r)
}

func (e *Engine) onPointEditText(ctx context.Context, r *request) error {
	if err := e.store.UpdatePointField(r.sess.PointID, "text_content", r.ev.Text); err != nil {
		return err
	}
	return e.finishPointEdit(ctx, r)
}

func (e *Engine) onPointEditPhoto(ctx context.Context, r *request) error {
	path, err := e.channel.StoreInboundMedia(ctx, r.ev.FileID, "points/photos")
	if err != nil {
		return err
	}
	if caption := strings.TrimSpace(r.ev.Text); caption != "" {
		return e.replacePointPhoto(ctx, r, path, caption)
	}
	if r.sess.PointDraft == nil {
		r.sess.PointDraft = &PointDraft{}
	}
	r.sess.PointDraft.PendingPhotoPath = path
	r.sess.State = StatePointEditPhotoCaption
	return e.sayf(ctx, r.ev.ChatID, "Send a caption for the photo.")
}

func (e *Engine) onPointEditPhotoCaption(ctx context.Context, r *request) error {
	return e.replacePointPhoto(ctx, r, r.sess.PointDraft.PendingPhotoPath, strings.TrimSpace(r.ev.Text))
}

func (e *Engine) replacePointPhoto(ctx context.Context, r *request, path, caption string) error {
	stale, err := e.mediaPathsOfKind(r.sess.PointID, MediaPhoto)
	if err != nil {
		return err
	}
	if err := e.store.ReplacePointPhotos(r.sess.PointID, path, caption); err != nil {
		return err
	}
	e.blobs.DeleteFiles(ctx, stale)
	return e.finishPointEdit(ctx, r)
}

func (e *Engine) onPointEditAudio(ctx context.Context, r *request) error {
	path, err := e.channel.StoreInboundMedia(ctx, r.ev.FileID, "points/audios")
	if err != nil {
		return err
	}
	stale, err := e.mediaPathsOfKind(r.sess.PointID, MediaAudio)
	if err != nil {
		return err
	}
	if err := e.store.ReplacePointAudios(r.sess.PointID, path); err != nil {
		return err
	}
	e.blobs.DeleteFiles(ctx, stale)
	return e.finishPointEdit(ctx, r)
}

func (e *Engine) onPointEditVideo(ctx context.Context, r *request) error {
	path, err := e.channel.StoreInboundMedia(ctx, r.ev.FileID, "points/videos")
	if err != nil {
		return err
	}
	stale, err := e.mediaPathsOfKind(r.sess.PointID, MediaVideo)
	if err != nil {
		return err
	}
	if err := e.store.ReplacePointVideos(r.sess.PointID, path); err != nil {
		return err
	}
	e.blobs.DeleteFiles(ctx, stale)
	return e.finishPointEdit(ctx, r)
}

func (e *Engine) mediaPathsOfKind(pointID string, kind MediaKind) ([]string, error) {
	point, err := e.store.Point(pointID)
	if err != nil || point == nil {
		return nil, err
	}
	var paths []string
	switch kind {
	case MediaPhoto:
		for _, photo := range point.Photos {
			paths = append(paths, photo.Path)
		}
	case MediaAudio:
		for _, audio := range point.Audios {
			paths = append(paths, audio.Path)
		}
	case MediaVideo:
		for _, video := range point.Videos {
			paths = append(paths, video.Path)
		}
	}
	return paths, nil
}

// cbPointDelete removes the waypoint unless some route still walks
// through it.
func (e *Engine) cbPointDelete(ctx context.Context, r *request, pointID string) error {
	if ok, err := e.requireAdmin(ctx, r); !ok {
		return err
	}
	stale, err := e.store.PointMediaPaths(pointID)
	if err != nil {
		return err
	}
	err = e.store.DeletePointGuarded(pointID)
	if errors.Is(err, database.ErrPointReferenced) {
		return e.sayf(ctx, r.ev.ChatID, "This waypoint is part of a route. Remove it from the route first.")
	}
	if err != nil {
		return err
	}
	e.blobs.DeleteFiles(ctx, stale)
	return e.sayf(ctx, r.ev.ChatID, "Waypoint deleted.")
}
