package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gopkg.in/fatih/set.v0"

	"questrail.io/questrail/internal/database"
	"questrail.io/questrail/pkg/log"
)

func (e *Engine) cbRouteCreate(ctx context.Context, r *request, _ string) error {
	if ok, err := e.requireAdmin(ctx, r); !ok {
		return err
	}
	r.sess.Reset()
	r.sess.RouteDraft = &RouteDraft{}
	r.sess.State = StateRouteName
	return e.sayf(ctx, r.ev.ChatID, "Creating a new route. What is its name?")
}

func (e *Engine) onRouteName(ctx context.Context, r *request) error {
	name := strings.TrimSpace(r.ev.Text)
	if name == "" {
		return e.sayf(ctx, r.ev.ChatID, "The name cannot be empty. What is the route name?")
	}
	r.sess.RouteDraft.Name = name
	r.sess.State = StateRouteDescription
	return e.sayf(ctx, r.ev.ChatID, "Now send a description for the route.")
}

func (e *Engine) onRouteDescription(ctx context.Context, r *request) error {
	description := strings.TrimSpace(r.ev.Text)
	if description == "" {
		return e.sayf(ctx, r.ev.ChatID, "The description cannot be empty. Send one for the route.")
	}
	route := &database.Route{
		Name:        r.sess.RouteDraft.Name,
		Description: description,
		IsActive:    true,
		CreatedBy:   r.user.ID,
		CreatedAt:   time.Now(),
	}
	if err := e.store.CreateRoute(route); err != nil {
		return err
	}
	r.sess.Reset()
	if err := e.sayf(ctx, r.ev.ChatID, "Route %q saved. Now add waypoints to it.", route.Name); err != nil {
		return err
	}
	return e.showRoute(ctx, r, route.ID)
}

func (e *Engine) cbRouteList(ctx context.Context, r *request, _ string) error {
	if ok, err := e.requireAdmin(ctx, r); !ok {
		return err
	}
	routes, err := e.store.Routes()
	if err != nil {
		return err
	}
	if len(routes) == 0 {
		return e.sayf(ctx, r.ev.ChatID, "No routes yet. Create the first one!")
	}
	var kb Keyboard
	for _, route := range routes {
		label := route.Name
		if !route.IsActive {
			label += " (hidden)"
		}
		kb = append(kb, []Button{{Label: label, Callback: "rt_view:" + route.ID}})
	}
	return e.channel.SendTextWithKeyboard(ctx, r.ev.ChatID, "Routes:", kb)
}

func (e *Engine) cbRouteView(ctx context.Context, r *request, routeID string) error {
	if ok, err := e.requireAdmin(ctx, r); !ok {
		return err
	}
	return e.showRoute(ctx, r, routeID)
}

func (e *Engine) showRoute(ctx context.Context, r *request, routeID string) error {
	route, err := e.store.Route(routeID)
	if err != nil {
		return err
	}
	if route == nil {
		return e.sayf(ctx, r.ev.ChatID, "Route not found.")
	}
	members, err := e.store.OrderedRoutePoints(routeID)
	if err != nil {
		return err
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%v\n\n%v\n\n", route.Name, route.Description)
	if route.IsActive {
		b.WriteString("Visible to travelers.\n")
	} else {
		b.WriteString("Hidden from travelers.\n")
	}
	if len(members) == 0 {
		b.WriteString("\nNo waypoints yet.")
	} else {
		b.WriteString("\nWaypoints in order:\n")
		for i, member := range members {
			name := member.PointID
			if member.Point != nil {
				name = member.Point.Name
			}
			fmt.Fprintf(&b, "%v. %v\n", i+1, name)
		}
	}
	kb := Keyboard{
		{{Label: "➕ Add waypoint", Callback: "rt_add_pt:" + route.ID}, {Label: "➖ Remove waypoint", Callback: "rt_rm_pt:" + route.ID}},
		{{Label: "✏️ Edit", Callback: "rt_edit:" + route.ID}, {Label: "🗑 Delete", Callback: "rt_del:" + route.ID}},
		{{Label: "« Routes", Callback: "rt_list"}},
	}
	if route.CoverPhotoPath != "" {
		if url, err := e.media.AccessURL(ctx, route.CoverPhotoPath); err != nil {
			log.Error(err)
		} else if err := e.channel.SendPhoto(ctx, r.ev.ChatID, url, route.Name); err != nil {
			log.Error(err)
		}
	}
	return e.channel.SendTextWithKeyboard(ctx, r.ev.ChatID, b.String(), kb)
}

func (e *Engine) cbRouteEditMenu(ctx context.Context, r *request, routeID string) error {
	if ok, err := e.requireAdmin(ctx, r); !ok {
		return err
	}
	r.sess.Reset()
	r.sess.RouteID = routeID
	kb := Keyboard{
		{{Label: "Name", Callback: "rt_f:name"}, {Label: "Description", Callback: "rt_f:desc"}},
		{{Label: "Cover photo", Callback: "rt_f:cover"}, {Label: "Show/hide", Callback: "rt_f:active"}},
		{{Label: "« Back", Callback: "rt_view:" + routeID}},
	}
	return e.channel.SendTextWithKeyboard(ctx, r.ev.ChatID, "What do you want to change?", kb)
}

func (e *Engine) cbRouteEditField(ctx context.Context, r *request, field string) error {
	if r.sess.RouteID == "" {
		return e.sayf(ctx, r.ev.ChatID, msgExpiredButton)
	}
	switch field {
	case "name":
		r.sess.State = StateRouteEditName
		return e.sayf(ctx, r.ev.ChatID, "Send the new route name.")
	case "desc":
		r.sess.State = StateRouteEditDescription
		return e.sayf(ctx, r.ev.ChatID, "Send the new route description.")
	case "cover":
		r.sess.State = StateRouteEditCover
		return e.sayf(ctx, r.ev.ChatID, "Send the new cover photo.")
	case "active":
		route, err := e.store.Route(r.sess.RouteID)
		if err != nil {
			return err
		}
		if route == nil {
			return e.sayf(ctx, r.ev.ChatID, "Route not found.")
		}
		if err := e.store.UpdateRouteField(route.ID, "is_active", !route.IsActive); err != nil {
			return err
		}
		return e.finishRouteEdit(ctx, r)
	}
	return nil
}

func (e *Engine) finishRouteEdit(ctx context.Context, r *request) error {
	routeID := r.sess.RouteID
	r.sess.Reset()
	if err := e.sayf(ctx, r.ev.ChatID, "Updated."); err != nil {
		return err
	}
	return e.showRoute(ctx, r, routeID)
}

func (e *Engine) onRouteEditName(ctx context.Context, r *request) error {
	name := strings.TrimSpace(r.ev.Text)
	if name == "" {
		return e.sayf(ctx, r.ev.ChatID, "The name cannot be empty. Send a new one.")
	}
	if err := e.store.UpdateRouteField(r.sess.RouteID, "name", name); err != nil {
		return err
	}
	return e.finishRouteEdit(ctx, r)
}

func (e *Engine) onRouteEditDescription(ctx context.Context, r *request) error {
	if err := e.store.UpdateRouteField(r.sess.RouteID, "description", strings.TrimSpace(r.ev.Text)); err != nil {
		return err
	}
	return e.finishRouteEdit(ctx, r)
}

func (e *Engine) onRouteEditCover(ctx context.Context, r *request) error {
	path, err := e.channel.StoreInboundMedia(ctx, r.ev.FileID, "routes/covers")
	if err != nil {
		return err
	}
	route, err := e.store.Route(r.sess.RouteID)
	if err != nil {
		return err
	}
	if err := e.store.UpdateRouteField(r.sess.RouteID, "cover_photo_path", path); err != nil {
		return err
	}
	if route != nil && route.CoverPhotoPath != "" {
		e.blobs.DeleteFiles(ctx, []string{route.CoverPhotoPath})
	}
	return e.finishRouteEdit(ctx, r)
}

func (e *Engine) cbRouteDelete(ctx context.Context, r *request, routeID string) error {
	if ok, err := e.requireAdmin(ctx, r); !ok {
		return err
	}
	if err := e.store.DeleteRoute(routeID); err != nil {
		return err
	}
	return e.sayf(ctx, r.ev.ChatID, "Route deleted. Its waypoints are untouched.")
}

// cbRouteAddPointMenu lists waypoints not yet on the route. The
// composite route+point payload exceeds the callback limit, so the
// buttons go through the ref index.
func (e *Engine) cbRouteAddPointMenu(ctx context.Context, r *request, routeID string) error {
	if ok, err := e.requireAdmin(ctx, r); !ok {
		return err
	}
	points, err := e.store.Points()
	if err != nil {
		return err
	}
	memberIDs, err := e.store.RouteMemberPointIDs(routeID)
	if err != nil {
		return err
	}
	members := set.New(set.NonThreadSafe)
	for _, id := range memberIDs {
		members.Add(id)
	}
	var kb Keyboard
	for _, point := range points {
		if members.Has(point.ID) {
			continue
		}
		data, err := e.callbackData(ctx, "sel_add", routeID+":"+point.ID)
		if err != nil {
			return err
		}
		kb = append(kb, []Button{{Label: point.Name, Callback: data}})
	}
	if len(kb) == 0 {
		return e.sayf(ctx, r.ev.ChatID, "Every waypoint is already on this route.")
	}
	return e.channel.SendTextWithKeyboard(ctx, r.ev.ChatID, "Pick a waypoint to append:", kb)
}

func (e *Engine) cbRouteAddPoint(ctx context.Context, r *request, arg string) error {
	if ok, err := e.requireAdmin(ctx, r); !ok {
		return err
	}
	routeID, pointID := splitCallback(arg)
	if routeID == "" || pointID == "" {
		return e.sayf(ctx, r.ev.ChatID, msgExpiredButton)
	}
	if err := e.store.AppendRoutePoint(routeID, pointID); err != nil {
		return err
	}
	return e.showRoute(ctx, r, routeID)
}

func (e *Engine) cbRouteRemovePointMenu(ctx context.Context, r *request, routeID string) error {
	if ok, err := e.requireAdmin(ctx, r); !ok {
		return err
	}
	members, err := e.store.OrderedRoutePoints(routeID)
	if err != nil {
		return err
	}
	if len(members) == 0 {
		return e.sayf(ctx, r.ev.ChatID, "This route has no waypoints.")
	}
	var kb Keyboard
	for _, member := range members {
		label := member.PointID
		if member.Point != nil {
			label = member.Point.Name
		}
		data, err := e.callbackData(ctx, "sel_rm", routeID+":"+member.PointID)
		if err != nil {
			return err
		}
		kb = append(kb, []Button{{Label: label, Callback: data}})
	}
	return e.channel.SendTextWithKeyboard(ctx, r.ev.ChatID, "Pick a waypoint to remove:", kb)
}

func (e *Engine) cbRouteRemovePoint(ctx context.Context, r *request, arg string) error {
	if ok, err := e.requireAdmin(ctx, r); !ok {
		return err
	}
	routeID, pointID := splitCallback(arg)
	if routeID == "" || pointID == "" {
		return e.sayf(ctx, r.ev.ChatID, msgExpiredButton)
	}
	if err := e.store.RemoveRoutePoint(routeID, pointID); err != nil {
		return err
	}
	return e.showRoute(ctx, r, routeID)
}
