package chat

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"questrail.io/questrail/pkg/log"
)

// cbWalkStart snapshots the route and puts the traveler on the first
// stop. Edits made to the route afterwards do not affect this walk.
func (e *Engine) cbWalkStart(ctx context.Context, r *request, routeID string) error {
	if ok, err := e.requireVerified(ctx, r); !ok {
		return err
	}
	route, err := e.store.Route(routeID)
	if err != nil {
		return err
	}
	if route == nil || !route.IsActive {
		return e.sayf(ctx, r.ev.ChatID, "This route is no longer available.")
	}
	members, err := e.store.OrderedRoutePoints(routeID)
	if err != nil {
		return err
	}
	stops := SnapshotStops(members)
	if len(stops) == 0 {
		return e.sayf(ctx, r.ev.ChatID, "This route has no waypoints yet, check back later.")
	}
	r.sess.Reset()
	r.sess.Walk = &WalkCursor{
		RouteID:   route.ID,
		RouteName: route.Name,
		Stops:     stops,
	}
	r.sess.State = StateWalking
	e.cancelFeedback(r.ev.ChatID)

	if route.CoverPhotoPath != "" {
		if url, err := e.media.AccessURL(ctx, route.CoverPhotoPath); err != nil {
			log.Error(err)
		} else if err := e.channel.SendPhoto(ctx, r.ev.ChatID, url, route.Name); err != nil {
			log.Error(err)
		}
	}
	if err := e.sayf(ctx, r.ev.ChatID, "%v\n\n%v\n\nThe route has %v stop(s). Off we go!",
		route.Name, route.Description, len(stops)); err != nil {
		return err
	}
	return e.sendStop(ctx, r.ev.ChatID, r.sess.Walk)
}

// cbWalkNext advances exactly one stop. The button carries the index
// it was issued for, so a stale double-tap is ignored instead of
// skipping a stop.
func (e *Engine) cbWalkNext(ctx context.Context, r *request, arg string) error {
	walk := r.sess.Walk
	if walk == nil || r.sess.State != StateWalking {
		return e.sayf(ctx, r.ev.ChatID, msgExpiredButton)
	}
	idx, err := strconv.Atoi(arg)
	if err != nil || idx != walk.Index {
		return nil
	}
	walk.Index++
	if walk.Index < len(walk.Stops) {
		return e.sendStop(ctx, r.ev.ChatID, walk)
	}
	routeName := walk.RouteName
	r.sess.Reset()
	e.sessions.Drop(r.ev.ChatID)
	if err := e.sayf(ctx, r.ev.ChatID,
		"🏁 That was the last stop — you have completed %q. Congratulations!", routeName); err != nil {
		return err
	}
	e.scheduleFeedback(r.ev.ChatID, routeName)
	return nil
}

// sendStop emits the waypoint bundle: heading, pinned location, story
// text and media, then the advance button.
func (e *Engine) sendStop(ctx context.Context, chatID int64, walk *WalkCursor) error {
	stop := walk.Stops[walk.Index]
	header := fmt.Sprintf("Stop %v of %v: %v\n\n%v", walk.Index+1, len(walk.Stops), stop.Name, stop.Description)
	if err := e.sayf(ctx, chatID, header); err != nil {
		return err
	}
	if err := e.channel.SendLocation(ctx, chatID, stop.Latitude, stop.Longitude); err != nil {
		return err
	}
	if stop.TextContent != "" {
		if err := e.sayf(ctx, chatID, stop.TextContent); err != nil {
			return err
		}
	}
	if err := e.sendStopMedia(ctx, chatID, stop); err != nil {
		log.Error(err)
	}
	label := "Next stop ▶"
	if walk.Index == len(walk.Stops)-1 {
		label = "Finish 🏁"
	}
	kb := Keyboard{{{Label: label, Callback: "walk_next:" + strconv.Itoa(walk.Index)}}}
	return e.channel.SendTextWithKeyboard(ctx, chatID, "When you are done at this stop, tap below.", kb)
}

func (e *Engine) sendStopMedia(ctx context.Context, chatID int64, stop WalkStop) error {
	var group []Media
	for i, path := range stop.PhotoPaths {
		url, err := e.media.AccessURL(ctx, path)
		if err != nil {
			return err
		}
		caption := ""
		if i < len(stop.Captions) {
			caption = stop.Captions[i]
		}
		group = append(group, Media{Kind: MediaPhoto, URL: url, Caption: caption})
	}
	for _, path := range stop.VideoPaths {
		url, err := e.media.AccessURL(ctx, path)
		if err != nil {
			return err
		}
		group = append(group, Media{Kind: MediaVideo, URL: url})
	}
	if len(group) == 1 {
		m := group[0]
		if m.Kind == MediaPhoto {
			if err := e.channel.SendPhoto(ctx, chatID, m.URL, m.Caption); err != nil {
				return err
			}
		} else if err := e.channel.SendVideo(ctx, chatID, m.URL, m.Caption); err != nil {
			return err
		}
	} else if len(group) > 1 {
		if err := e.channel.SendMediaGroup(ctx, chatID, group); err != nil {
			return err
		}
	}
	for _, path := range stop.AudioPaths {
		url, err := e.media.AccessURL(ctx, path)
		if err != nil {
			return err
		}
		if err := e.channel.SendAudio(ctx, chatID, url, ""); err != nil {
			return err
		}
	}
	return nil
}

// scheduleFeedback asks for impressions a while after the finish, so
// the prompt lands once the traveler is on the way home. Starting
// another walk first cancels it.
func (e *Engine) scheduleFeedback(chatID int64, routeName string) {
	token := e.walkGen.Inc()
	e.feedbackMu.Lock()
	e.feedback[chatID] = token
	e.feedbackMu.Unlock()

	time.AfterFunc(e.feedbackDelay, func() {
		e.feedbackMu.Lock()
		current, ok := e.feedback[chatID]
		if ok && current == token {
			delete(e.feedback, chatID)
		}
		e.feedbackMu.Unlock()
		if !ok || current != token {
			return
		}
		err := e.channel.SendText(context.Background(), chatID,
			fmt.Sprintf("How did you like %q? Reply here with your impressions — we read everything.", routeName))
		if err != nil {
			log.Error(err)
		}
	})
}

func (e *Engine) cancelFeedback(chatID int64) {
	e.feedbackMu.Lock()
	delete(e.feedback, chatID)
	e.feedbackMu.Unlock()
}
