package chat

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/fatih/structs"
	"go.uber.org/atomic"

	"questrail.io/questrail/internal/database"
	"questrail.io/questrail/internal/databus"
	"questrail.io/questrail/pkg/common"
	"questrail.io/questrail/pkg/errors"
	"questrail.io/questrail/pkg/log"
)

const inboundEventTopic = "questrail.chat.inbound"

// Approvals reviews quest submissions. Implemented by the reward
// allocator; the engine only relays admin verdicts to it.
type Approvals interface {
	Approve(ctx context.Context, progressID, comment string) error
	Reject(ctx context.Context, progressID, comment string) error
}

type Config struct {
	Store     Store
	Channel   Channel
	Media     MediaResolver
	Blobs     BlobStore
	Refs      CallbackIndex
	Approvals Approvals
	// AdminGroupID is the review group chat; events from it are
	// routed to the admin command set only.
	AdminGroupID  int64
	FeedbackDelay time.Duration
}

type request struct {
	ev   *Event
	user *database.User
	sess *Session
}

type handlerFunc func(ctx context.Context, r *request) error

// callbackFunc receives the payload after the verb, already resolved
// through the ref index when the payload was indirected.
type callbackFunc func(ctx context.Context, r *request, arg string) error

type stateKey struct {
	state State
	kind  EventKind
}

type Engine struct {
	store         Store
	channel       Channel
	media         MediaResolver
	blobs         BlobStore
	refs          CallbackIndex
	approvals     Approvals
	adminGroupID  int64
	feedbackDelay time.Duration

	sessions *Sessions

	commands      map[string]handlerFunc
	callbacks     map[string]callbackFunc
	stateHandlers map[stateKey]handlerFunc

	// walkGen issues tokens that invalidate scheduled feedback
	// prompts when the chat moves on before the timer fires.
	walkGen    *atomic.Uint64
	feedbackMu sync.Mutex
	feedback   map[int64]uint64
}

func NewEngine(conf Config) *Engine {
	e := &Engine{
		store:         conf.Store,
		channel:       conf.Channel,
		media:         conf.Media,
		blobs:         conf.Blobs,
		refs:          conf.Refs,
		approvals:     conf.Approvals,
		adminGroupID:  conf.AdminGroupID,
		feedbackDelay: conf.FeedbackDelay,
		sessions:      NewSessions(),
		walkGen:       atomic.NewUint64(0),
		feedback:      make(map[int64]uint64),
	}
	e.commands = map[string]handlerFunc{
		"/start":         e.cmdStart,
		"/cancel":        e.cmdCancel,
		menuRoutes:       e.cmdRoutes,
		menuQuests:       e.cmdQuests,
		menuMyPromoCodes: e.cmdMyPromoCodes,
		menuManagePoints: e.cmdManagePoints,
		menuManageRoutes: e.cmdManageRoutes,
	}
	e.callbacks = map[string]callbackFunc{
		"pt_create":   e.cbPointCreate,
		"pt_list":     e.cbPointList,
		"pt_view":     e.cbPointView,
		"pt_edit":     e.cbPointEditMenu,
		"pt_del":      e.cbPointDelete,
		"pt_f":        e.cbPointEditField,
		"content":     e.cbPointContent,
		"rt_create":   e.cbRouteCreate,
		"rt_list":     e.cbRouteList,
		"rt_view":     e.cbRouteView,
		"rt_edit":     e.cbRouteEditMenu,
		"rt_del":      e.cbRouteDelete,
		"rt_f":        e.cbRouteEditField,
		"rt_add_pt":   e.cbRouteAddPointMenu,
		"rt_rm_pt":    e.cbRouteRemovePointMenu,
		"sel_add":     e.cbRouteAddPoint,
		"sel_rm":      e.cbRouteRemovePoint,
		"walk_start":  e.cbWalkStart,
		"walk_next":   e.cbWalkNext,
		"quest_start": e.cbQuestStart,
		"appr":        e.cbApprove,
		"rej":         e.cbReject,
		"back_main":   e.cbBackMain,
	}
	e.stateHandlers = map[stateKey]handlerFunc{
		{StatePointName, EventText}:         e.onPointName,
		{StatePointDescription, EventText}:  e.onPointDescription,
		{StatePointLocation, EventLocation}: e.onPointLocation,
		{StatePointText, EventText}:         e.onPointText,
		{StatePointPhoto, EventPhoto}:       e.onPointPhoto,
		{StatePointPhotoCaption, EventText}: e.onPointPhotoCaption,
		{StatePointAudio, EventAudio}:       e.onPointAudio,
		{StatePointVideo, EventVideo}:       e.onPointVideo,

		{StatePointEditName, EventText}:         e.onPointEditName,
		{StatePointEditDescription, EventText}:  e.onPointEditDescription,
		{StatePointEditLocation, EventLocation}: e.onPointEditLocation,
		{StatePointEditText, EventText}:         e.onPointEditText,
		{StatePointEditPhoto, EventPhoto}:       e.onPointEditPhoto,
		{StatePointEditPhotoCaption, EventText}: e.onPointEditPhotoCaption,
		{StatePointEditAudio, EventAudio}:       e.onPointEditAudio,
		{StatePointEditVideo, EventVideo}:       e.onPointEditVideo,

		{StateRouteName, EventText}:            e.onRouteName,
		{StateRouteDescription, EventText}:     e.onRouteDescription,
		{StateRouteEditName, EventText}:        e.onRouteEditName,
		{StateRouteEditDescription, EventText}: e.onRouteEditDescription,
		{StateRouteEditCover, EventPhoto}:      e.onRouteEditCover,

		{StateQuestProof, EventPhoto}: e.onQuestProof,
	}
	return e
}

func (e *Engine) Sessions() *Sessions {
	return e.sessions
}

// HandleEvent runs one inbound event to completion. Events of the same
// chat must arrive here serially; the dispatcher guarantees that.
func (e *Engine) HandleEvent(ctx context.Context, ev *Event) {
	defer func() {
		if cause := recover(); cause != nil {
			log.Error(errors.ErrorfAndReport("handle chat event panic: %v", cause))
		}
	}()
	go e.recordEvent(ev)

	if ev.Kind == EventContact {
		if err := e.onContact(ctx, ev); err != nil {
			log.Error(err)
		}
		return
	}

	user, err := e.store.GetOrCreateUser(ev.SenderID, ev.SenderName)
	if err != nil {
		log.Error(err)
		return
	}

	if ev.ChatID == e.adminGroupID {
		if err := e.handleAdminGroup(ctx, ev, user); err != nil {
			log.Error(err)
		}
		return
	}

	r := &request{ev: ev, user: user, sess: e.sessions.GetOrCreate(ev.ChatID)}
	if err := e.route(ctx, r); err != nil {
		log.Error(err)
		// A half-finished dialogue would otherwise swallow every
		// following message.
		r.sess.Reset()
		e.sayf(ctx, ev.ChatID, msgInternalError)
	}
}

func (e *Engine) route(ctx context.Context, r *request) error {
	if r.ev.Kind == EventCallback {
		return e.routeCallback(ctx, r)
	}
	if r.ev.Kind == EventText {
		if handler, ok := e.commands[strings.TrimSpace(r.ev.Text)]; ok {
			return handler(ctx, r)
		}
	}
	if handler, ok := e.stateHandlers[stateKey{r.sess.State, r.ev.Kind}]; ok {
		return handler(ctx, r)
	}
	return e.hintExpected(ctx, r)
}

func (e *Engine) routeCallback(ctx context.Context, r *request) error {
	verb, arg := splitCallback(r.ev.Text)
	if verb == "ref" {
		payload, err := e.refs.Resolve(ctx, arg)
		if err != nil {
			return err
		}
		if payload == "" {
			return e.sayf(ctx, r.ev.ChatID, msgExpiredButton)
		}
		verb, arg = splitCallback(payload)
	}
	handler, ok := e.callbacks[verb]
	if !ok {
		log.Warnf("Unknown callback verb %v from chat %v", verb, r.ev.ChatID)
		return nil
	}
	return handler(ctx, r, arg)
}

func splitCallback(data string) (verb, arg string) {
	if idx := strings.Index(data, ":"); idx >= 0 {
		return data[:idx], data[idx+1:]
	}
	return data, ""
}

// callbackData inlines the payload when it fits the transport limit
// and indirects through the ref index otherwise.
func (e *Engine) callbackData(ctx context.Context, verb, arg string) (string, error) {
	data := verb
	if arg != "" {
		data = verb + ":" + arg
	}
	if len(data) <= 64 {
		return data, nil
	}
	ref, err := e.refs.NewRef(ctx, data)
	if err != nil {
		return "", err
	}
	return "ref:" + ref, nil
}

// hintExpected re-prompts when the message shape does not match what
// the current state is waiting for. Unknown input in idle is ignored.
func (e *Engine) hintExpected(ctx context.Context, r *request) error {
	hint, ok := stateHints[r.sess.State]
	if !ok {
		return nil
	}
	return e.sayf(ctx, r.ev.ChatID, hint)
}

var stateHints = map[State]string{
	StatePointName:             "Send the waypoint name as a text message.",
	StatePointDescription:      "Send the waypoint description as a text message.",
	StatePointLocation:         "Share the waypoint location using the location attachment.",
	StatePointContent:          "Pick a content type with the buttons above, or finish.",
	StatePointText:             "Send the story text as a text message.",
	StatePointPhoto:            "Send a photo.",
	StatePointPhotoCaption:     "Send a caption for the photo as a text message.",
	StatePointAudio:            "Send an audio file.",
	StatePointVideo:            "Send a video.",
	StatePointEditName:         "Send the new name as a text message.",
	StatePointEditDescription:  "Send the new description as a text message.",
	StatePointEditLocation:     "Share the new location using the location attachment.",
	StatePointEditText:         "Send the new story text as a text message.",
	StatePointEditPhoto:        "Send the new photo.",
	StatePointEditPhotoCaption: "Send a caption for the photo as a text message.",
	StatePointEditAudio:        "Send the new audio file.",
	StatePointEditVideo:        "Send the new video.",
	StateRouteName:             "Send the route name as a text message.",
	StateRouteDescription:      "Send the route description as a text message.",
	StateRouteEditName:         "Send the new route name as a text message.",
	StateRouteEditDescription:  "Send the new route description as a text message.",
	StateRouteEditCover:        "Send the new cover photo.",
	StateQuestProof:            "Send a photo as proof of completion.",
}

func (e *Engine) sayf(ctx context.Context, chatID int64, format string, args ...interface{}) error {
	if len(args) == 0 {
		return e.channel.SendText(ctx, chatID, format)
	}
	return e.channel.SendText(ctx, chatID, fmt.Sprintf(format, args...))
}

// recordEvent mirrors the update into the dump table and onto the bus.
func (e *Engine) recordEvent(ev *Event) {
	defer func() {
		if cause := recover(); cause != nil {
			log.Error(errors.ErrorfAndReport("record chat event panic: %v", cause))
		}
	}()
	eventType := database.InboundEventTypeMessage
	if ev.Kind == EventCallback {
		eventType = database.InboundEventTypeCallback
	}
	dump := &database.InboundEvent{
		ChatID:    ev.ChatID,
		EventType: eventType,
		Event:     database.JSONBMap(structs.Map(ev)),
		EventTime: time.Now(),
	}
	if err := e.store.DumpInboundEvent(dump); err != nil {
		log.Error(err)
	}
	if bus := databus.GetDataBus(); bus != nil {
		if err := bus.Publish(inboundBusEvent{dump}); err != nil {
			log.Error(err)
		}
	}
}

type inboundBusEvent struct {
	*database.InboundEvent
}

func (e inboundBusEvent) Serialize() []byte {
	return []byte(common.MustGetJSONString(e.InboundEvent))
}

func (e inboundBusEvent) Topic() string {
	return inboundEventTopic
}
