package chat

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"questrail.io/questrail/internal/database"
)

// fakeStore is an in-memory Store used by the dialogue tests.
type fakeStore struct {
	mu sync.Mutex

	users       map[int64]*database.User
	points      map[string]*database.Point
	routes      map[string]*database.Route
	routePoints map[string][]*database.RoutePoint
	quests      map[string]*database.Quest
	progresses  map[string]*database.QuestProgress
	codes       map[string][]string
	issued      map[string][]*database.PromoCode
	events      []*database.InboundEvent

	// updateErr makes the point/route field updates fail when set.
	updateErr error

	nextID int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:       make(map[int64]*database.User),
		points:      make(map[string]*database.Point),
		routes:      make(map[string]*database.Route),
		routePoints: make(map[string][]*database.RoutePoint),
		quests:      make(map[string]*database.Quest),
		progresses:  make(map[string]*database.QuestProgress),
		codes:       make(map[string][]string),
		issued:      make(map[string][]*database.PromoCode),
	}
}

func (f *fakeStore) id(prefix string) string {
	f.nextID++
	return fmt.Sprintf("%v-%08d-0000-0000-0000-000000000000", prefix, f.nextID)
}

func (f *fakeStore) GetOrCreateUser(telegramID int64, name string) (*database.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if user, ok := f.users[telegramID]; ok {
		return user, nil
	}
	user := &database.User{ID: f.id("user"), TelegramID: telegramID, Name: name}
	f.users[telegramID] = user
	return user, nil
}

func (f *fakeStore) UserByTelegramID(telegramID int64) (*database.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.users[telegramID], nil
}

func (f *fakeStore) VerifyUserPhone(telegramID int64, phone string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if user, ok := f.users[telegramID]; ok {
		user.PhoneNumber = phone
		user.IsVerified = true
	}
	return nil
}

func (f *fakeStore) CreatePoint(p *database.Point) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p.ID == "" {
		p.ID = f.id("point")
	}
	f.points[p.ID] = p
	return nil
}

func (f *fakeStore) Point(id string) (*database.Point, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.points[id], nil
}

func (f *fakeStore) Points() ([]*database.Point, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var points []*database.Point
	for _, p := range f.points {
		points = append(points, p)
	}
	return points, nil
}

func (f *fakeStore) UpdatePointField(id, column string, value interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	point, ok := f.points[id]
	if !ok {
		return nil
	}
	switch column {
	case "name":
		point.Name = value.(string)
	case "description":
		point.Description = value.(string)
	case "text_content":
		point.TextContent = value.(string)
	}
	return nil
}

func (f *fakeStore) UpdatePointLocation(id string, lat, lon float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if point, ok := f.points[id]; ok {
		point.Latitude = lat
		point.Longitude = lon
	}
	return nil
}

func (f *fakeStore) DeletePointGuarded(id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, members := range f.routePoints {
		for _, member := range members {
			if member.PointID == id {
				return database.ErrPointReferenced
			}
		}
	}
	delete(f.points, id)
	return nil
}

func (f *fakeStore) PointMediaPaths(id string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	point, ok := f.points[id]
	if !ok {
		return nil, nil
	}
	var paths []string
	for _, photo := range point.Photos {
		paths = append(paths, photo.Path)
	}
	for _, audio := range point.Audios {
		paths = append(paths, audio.Path)
	}
	for _, video := range point.Videos {
		paths = append(paths, video.Path)
	}
	return paths, nil
}

func (f *fakeStore) AddPointPhoto(pointID, path, caption string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	point := f.points[pointID]
	point.Photos = append(point.Photos, &database.PointPhoto{PointID: pointID, Path: path, Caption: caption})
	return nil
}

func (f *fakeStore) AddPointAudio(pointID, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	point := f.points[pointID]
	point.Audios = append(point.Audios, &database.PointAudio{PointID: pointID, Path: path})
	return nil
}

func (f *fakeStore) AddPointVideo(pointID, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	point := f.points[pointID]
	point.Videos = append(point.Videos, &database.PointVideo{PointID: pointID, Path: path})
	return nil
}

func (f *fakeStore) ReplacePointPhotos(pointID, path, caption string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	point := f.points[pointID]
	point.Photos = []*database.PointPhoto{{PointID: pointID, Path: path, Caption: caption}}
	return nil
}

func (f *fakeStore) ReplacePointAudios(pointID, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	point := f.points[pointID]
	point.Audios = []*database.PointAudio{{PointID: pointID, Path: path}}
	return nil
}

func (f *fakeStore) ReplacePointVideos(pointID, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	point := f.points[pointID]
	point.Videos = []*database.PointVideo{{PointID: pointID, Path: path}}
	return nil
}

func (f *fakeStore) CreateRoute(r *database.Route) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r.ID == "" {
		r.ID = f.id("route")
	}
	f.routes[r.ID] = r
	return nil
}

func (f *fakeStore) Route(id string) (*database.Route, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.routes[id], nil
}

func (f *fakeStore) Routes() ([]*database.Route, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var routes []*database.Route
	for _, r := range f.routes {
		routes = append(routes, r)
	}
	return routes, nil
}

func (f *fakeStore) ActiveRoutes() ([]*database.Route, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var routes []*database.Route
	for _, r := range f.routes {
		if r.IsActive {
			routes = append(routes, r)
		}
	}
	return routes, nil
}

func (f *fakeStore) UpdateRouteField(id, column string, value interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	route, ok := f.routes[id]
	if !ok {
		return nil
	}
	switch column {
	case "name":
		route.Name = value.(string)
	case "description":
		route.Description = value.(string)
	case "cover_photo_path":
		route.CoverPhotoPath = value.(string)
	case "is_active":
		route.IsActive = value.(bool)
	}
	return nil
}

func (f *fakeStore) DeleteRoute(id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.routes, id)
	delete(f.routePoints, id)
	return nil
}

func (f *fakeStore) OrderedRoutePoints(routeID string) ([]*database.RoutePoint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	members := f.routePoints[routeID]
	out := make([]*database.RoutePoint, 0, len(members))
	for _, member := range members {
		copied := *member
		copied.Point = f.points[member.PointID]
		out = append(out, &copied)
	}
	return out, nil
}

func (f *fakeStore) AppendRoutePoint(routeID, pointID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	members := f.routePoints[routeID]
	f.routePoints[routeID] = append(members, &database.RoutePoint{
		ID: f.id("member"), RouteID: routeID, PointID: pointID, Order: len(members) + 1,
	})
	return nil
}

func (f *fakeStore) RemoveRoutePoint(routeID, pointID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	members := f.routePoints[routeID]
	for i, member := range members {
		if member.PointID == pointID {
			f.routePoints[routeID] = append(members[:i], members[i+1:]...)
			return nil
		}
	}
	return nil
}

func (f *fakeStore) PointReferences(pointID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var refs int64
	for _, members := range f.routePoints {
		for _, member := range members {
			if member.PointID == pointID {
				refs++
			}
		}
	}
	return refs, nil
}

func (f *fakeStore) RouteMemberPointIDs(routeID string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []string
	for _, member := range f.routePoints[routeID] {
		ids = append(ids, member.PointID)
	}
	return ids, nil
}

func (f *fakeStore) ActiveQuests() ([]*database.Quest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var quests []*database.Quest
	for _, q := range f.quests {
		if q.IsActive {
			quests = append(quests, q)
		}
	}
	return quests, nil
}

func (f *fakeStore) Quest(id string) (*database.Quest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.quests[id], nil
}

func (f *fakeStore) SubmitProgress(userID, questID, proofPath string) (*database.QuestProgress, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, progress := range f.progresses {
		if progress.UserID == userID && progress.QuestID == questID {
			return nil, database.ErrProgressExists
		}
	}
	progress := &database.QuestProgress{
		ID:      f.id("prog"),
		UserID:  userID,
		QuestID: questID, PhotoPath: proofPath,
		Status: database.ProgressStatusPending,
	}
	f.progresses[progress.ID] = progress
	return progress, nil
}

func (f *fakeStore) AddPromoCodes(questID string, codes []string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.codes[questID] = append(f.codes[questID], codes...)
	return len(codes), nil
}

func (f *fakeStore) UnusedPromoCodes(questID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.codes[questID])), nil
}

func (f *fakeStore) IssuedPromoCodes(userID string) ([]*database.PromoCode, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.issued[userID], nil
}

func (f *fakeStore) DumpInboundEvent(e *database.InboundEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, e)
	return nil
}

type sentMessage struct {
	ChatID   int64
	Kind     string
	Text     string
	Keyboard Keyboard
	Menu     [][]string
	URL      string
	Media    []Media
}

// fakeChannel records every outbound send for assertions.
type fakeChannel struct {
	mu   sync.Mutex
	sent []sentMessage
}

func (c *fakeChannel) record(m sentMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, m)
}

func (c *fakeChannel) messages() []sentMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]sentMessage, len(c.sent))
	copy(out, c.sent)
	return out
}

func (c *fakeChannel) lastText() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := len(c.sent) - 1; i >= 0; i-- {
		if c.sent[i].Text != "" {
			return c.sent[i].Text
		}
	}
	return ""
}

func (c *fakeChannel) textsContaining(substr string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	count := 0
	for _, m := range c.sent {
		if strings.Contains(m.Text, substr) {
			count++
		}
	}
	return count
}

func (c *fakeChannel) SendText(_ context.Context, chatID int64, text string) error {
	c.record(sentMessage{ChatID: chatID, Kind: "text", Text: text})
	return nil
}

func (c *fakeChannel) SendTextWithKeyboard(_ context.Context, chatID int64, text string, kb Keyboard) error {
	c.record(sentMessage{ChatID: chatID, Kind: "keyboard", Text: text, Keyboard: kb})
	return nil
}

func (c *fakeChannel) SendMenu(_ context.Context, chatID int64, text string, menu [][]string) error {
	c.record(sentMessage{ChatID: chatID, Kind: "menu", Text: text, Menu: menu})
	return nil
}

func (c *fakeChannel) SendContactRequest(_ context.Context, chatID int64, text string) error {
	c.record(sentMessage{ChatID: chatID, Kind: "contact_request", Text: text})
	return nil
}

func (c *fakeChannel) SendLocation(_ context.Context, chatID int64, lat, lon float64) error {
	c.record(sentMessage{ChatID: chatID, Kind: "location"})
	return nil
}

func (c *fakeChannel) SendPhoto(_ context.Context, chatID int64, url, caption string) error {
	c.record(sentMessage{ChatID: chatID, Kind: "photo", URL: url, Text: caption})
	return nil
}

func (c *fakeChannel) SendPhotoData(_ context.Context, chatID int64, _ []byte, caption string) error {
	c.record(sentMessage{ChatID: chatID, Kind: "photo_data", Text: caption})
	return nil
}

func (c *fakeChannel) SendAudio(_ context.Context, chatID int64, url, caption string) error {
	c.record(sentMessage{ChatID: chatID, Kind: "audio", URL: url, Text: caption})
	return nil
}

func (c *fakeChannel) SendVideo(_ context.Context, chatID int64, url, caption string) error {
	c.record(sentMessage{ChatID: chatID, Kind: "video", URL: url, Text: caption})
	return nil
}

func (c *fakeChannel) SendMediaGroup(_ context.Context, chatID int64, media []Media) error {
	c.record(sentMessage{ChatID: chatID, Kind: "media_group", Media: media})
	return nil
}

func (c *fakeChannel) StoreInboundMedia(_ context.Context, fileID, keyPrefix string) (string, error) {
	return keyPrefix + "/" + fileID, nil
}

// fakeRefs is an in-memory callback ref index.
type fakeRefs struct {
	mu      sync.Mutex
	entries map[string]string
	next    int
}

func newFakeRefs() *fakeRefs {
	return &fakeRefs{entries: make(map[string]string)}
}

func (f *fakeRefs) NewRef(_ context.Context, payload string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next++
	ref := fmt.Sprintf("ref%04d", f.next)
	f.entries[ref] = payload
	return ref, nil
}

func (f *fakeRefs) Resolve(_ context.Context, ref string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.entries[ref], nil
}

type fakeBlobs struct {
	mu      sync.Mutex
	deleted []string
}

func (f *fakeBlobs) DeleteFiles(_ context.Context, keys []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, keys...)
}

type fakeMedia struct{}

func (fakeMedia) AccessURL(_ context.Context, path string) (string, error) {
	return "https://blob.test/" + path, nil
}

type verdict struct {
	ProgressID string
	Comment    string
	Approve    bool
}

type fakeApprovals struct {
	mu       sync.Mutex
	verdicts []verdict
	err      error
}

func (f *fakeApprovals) Approve(_ context.Context, progressID, comment string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.verdicts = append(f.verdicts, verdict{ProgressID: progressID, Comment: comment, Approve: true})
	return f.err
}

func (f *fakeApprovals) Reject(_ context.Context, progressID, comment string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.verdicts = append(f.verdicts, verdict{ProgressID: progressID, Comment: comment, Approve: false})
	return f.err
}

const (
	adminGroupID   = int64(-100500)
	adminChatID    = int64(1001)
	travelerChatID = int64(2002)
)

type fixture struct {
	store     *fakeStore
	channel   *fakeChannel
	blobs     *fakeBlobs
	refs      *fakeRefs
	approvals *fakeApprovals
	engine    *Engine
}

func newFixture() *fixture {
	f := &fixture{
		store:     newFakeStore(),
		channel:   &fakeChannel{},
		blobs:     &fakeBlobs{},
		refs:      newFakeRefs(),
		approvals: &fakeApprovals{},
	}
	f.engine = NewEngine(Config{
		Store:         f.store,
		Channel:       f.channel,
		Media:         fakeMedia{},
		Blobs:         f.blobs,
		Refs:          f.refs,
		Approvals:     f.approvals,
		AdminGroupID:  adminGroupID,
		FeedbackDelay: 30 * time.Millisecond,
	})
	return f
}

// seedAdmin registers a verified admin in chat adminChatID.
func (f *fixture) seedAdmin() *database.User {
	user, _ := f.store.GetOrCreateUser(adminChatID, "Admin")
	user.IsVerified = true
	user.IsAdmin = true
	return user
}

func (f *fixture) seedTraveler() *database.User {
	user, _ := f.store.GetOrCreateUser(travelerChatID, "Traveler")
	user.IsVerified = true
	return user
}

func (f *fixture) text(chatID int64, text string) {
	f.engine.HandleEvent(context.Background(), &Event{
		ChatID: chatID, SenderID: chatID, SenderName: "tester",
		Kind: EventText, Text: text,
	})
}

func (f *fixture) callback(chatID int64, data string) {
	f.engine.HandleEvent(context.Background(), &Event{
		ChatID: chatID, SenderID: chatID, SenderName: "tester",
		Kind: EventCallback, Text: data,
	})
}

func (f *fixture) location(chatID int64, lat, lon float64) {
	f.engine.HandleEvent(context.Background(), &Event{
		ChatID: chatID, SenderID: chatID, SenderName: "tester",
		Kind: EventLocation, Latitude: lat, Longitude: lon,
	})
}

func (f *fixture) photo(chatID int64, fileID, caption string) {
	f.engine.HandleEvent(context.Background(), &Event{
		ChatID: chatID, SenderID: chatID, SenderName: "tester",
		Kind: EventPhoto, FileID: fileID, Text: caption,
	})
}

func (f *fixture) session(chatID int64) *Session {
	return f.engine.Sessions().Get(chatID)
}
