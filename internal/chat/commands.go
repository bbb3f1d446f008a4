package chat

import (
	"context"
	"fmt"
	"strings"

	"questrail.io/questrail/internal/database"
	"questrail.io/questrail/pkg/errors"
	"questrail.io/questrail/pkg/log"
)

const (
	menuRoutes       = "🗺 Routes"
	menuQuests       = "🎯 Quests"
	menuMyPromoCodes = "🎁 My promo codes"
	menuManagePoints = "📍 Manage waypoints"
	menuManageRoutes = "🛤 Manage routes"

	msgInternalError = "Something went wrong, please try again."
	msgExpiredButton = "That button has expired, please open the menu again."
)

func mainMenu(isAdmin bool) [][]string {
	menu := [][]string{
		{menuRoutes, menuQuests},
		{menuMyPromoCodes},
	}
	if isAdmin {
		menu = append(menu, []string{menuManagePoints, menuManageRoutes})
	}
	return menu
}

func (e *Engine) cmdStart(ctx context.Context, r *request) error {
	r.sess.Reset()
	if !r.user.IsVerified {
		return e.channel.SendContactRequest(ctx, r.ev.ChatID,
			fmt.Sprintf("Hi %v! To get started, please share your phone number with the button below.", r.user.Name))
	}
	return e.channel.SendMenu(ctx, r.ev.ChatID, "Welcome back! Pick something from the menu.", mainMenu(r.user.IsAdmin))
}

// onContact completes phone verification. The adapter only forwards
// contacts that belong to the sender, so the phone is trusted here.
func (e *Engine) onContact(ctx context.Context, ev *Event) error {
	user, err := e.store.GetOrCreateUser(ev.SenderID, ev.SenderName)
	if err != nil {
		return err
	}
	if err := e.store.VerifyUserPhone(ev.SenderID, ev.Phone); err != nil {
		return err
	}
	if sess := e.sessions.Get(ev.ChatID); sess != nil {
		sess.Reset()
	}
	return e.channel.SendMenu(ctx, ev.ChatID, "Thanks, you are verified! Pick something from the menu.", mainMenu(user.IsAdmin))
}

func (e *Engine) cmdCancel(ctx context.Context, r *request) error {
	r.sess.Reset()
	e.sessions.Drop(r.ev.ChatID)
	return e.channel.SendMenu(ctx, r.ev.ChatID, "Cancelled.", mainMenu(r.user.IsAdmin))
}

func (e *Engine) cbBackMain(ctx context.Context, r *request, _ string) error {
	r.sess.Reset()
	return e.channel.SendMenu(ctx, r.ev.ChatID, "Main menu.", mainMenu(r.user.IsAdmin))
}

func (e *Engine) requireVerified(ctx context.Context, r *request) (bool, error) {
	if r.user.IsVerified {
		return true, nil
	}
	err := e.channel.SendContactRequest(ctx, r.ev.ChatID,
		"Please share your phone number first with the button below.")
	return false, err
}

// Unauthorized mutating events are dropped without a reply.
func (e *Engine) requireAdmin(_ context.Context, r *request) (bool, error) {
	return r.user.IsAdminUser(), nil
}

func (e *Engine) cmdRoutes(ctx context.Context, r *request) error {
	if ok, err := e.requireVerified(ctx, r); !ok {
		return err
	}
	routes, err := e.store.ActiveRoutes()
	if err != nil {
		return err
	}
	if len(routes) == 0 {
		return e.sayf(ctx, r.ev.ChatID, "No routes are available yet, check back later.")
	}
	var kb Keyboard
	for _, route := range routes {
		data, err := e.callbackData(ctx, "walk_start", route.ID)
		if err != nil {
			return err
		}
		kb = append(kb, []Button{{Label: route.Name, Callback: data}})
	}
	return e.channel.SendTextWithKeyboard(ctx, r.ev.ChatID, "Pick a route to walk:", kb)
}

func (e *Engine) cmdQuests(ctx context.Context, r *request) error {
	if ok, err := e.requireVerified(ctx, r); !ok {
		return err
	}
	quests, err := e.store.ActiveQuests()
	if err != nil {
		return err
	}
	if len(quests) == 0 {
		return e.sayf(ctx, r.ev.ChatID, "No quests are running right now.")
	}
	var kb Keyboard
	for _, quest := range quests {
		data, err := e.callbackData(ctx, "quest_start", quest.ID)
		if err != nil {
			return err
		}
		kb = append(kb, []Button{{Label: quest.Name, Callback: data}})
	}
	return e.channel.SendTextWithKeyboard(ctx, r.ev.ChatID, "Pick a quest:", kb)
}

func (e *Engine) cmdMyPromoCodes(ctx context.Context, r *request) error {
	if ok, err := e.requireVerified(ctx, r); !ok {
		return err
	}
	codes, err := e.store.IssuedPromoCodes(r.user.ID)
	if err != nil {
		return err
	}
	if len(codes) == 0 {
		return e.sayf(ctx, r.ev.ChatID, "You have no promo codes yet. Complete a quest to earn one!")
	}
	var b strings.Builder
	b.WriteString("Your promo codes:\n")
	for _, code := range codes {
		fmt.Fprintf(&b, "• %v\n", code.Code)
	}
	return e.sayf(ctx, r.ev.ChatID, b.String())
}

func (e *Engine) cbQuestStart(ctx context.Context, r *request, questID string) error {
	quest, err := e.store.Quest(questID)
	if err != nil {
		return err
	}
	if quest == nil || !quest.IsActive {
		return e.sayf(ctx, r.ev.ChatID, "This quest is no longer available.")
	}
	r.sess.Reset()
	r.sess.QuestID = quest.ID
	r.sess.State = StateQuestProof
	var b strings.Builder
	fmt.Fprintf(&b, "%v\n\n%v\n", quest.Name, quest.Description)
	if quest.Location != "" {
		fmt.Fprintf(&b, "\nLocation: %v\n", quest.Location)
	}
	b.WriteString("\nWhen you are done, send a photo here as proof.")
	if err := e.sayf(ctx, r.ev.ChatID, b.String()); err != nil {
		return err
	}
	if quest.Latitude != nil && quest.Longitude != nil {
		return e.channel.SendLocation(ctx, r.ev.ChatID, *quest.Latitude, *quest.Longitude)
	}
	return nil
}

func (e *Engine) onQuestProof(ctx context.Context, r *request) error {
	path, err := e.channel.StoreInboundMedia(ctx, r.ev.FileID, "quest-proofs")
	if err != nil {
		return err
	}
	progress, err := e.store.SubmitProgress(r.user.ID, r.sess.QuestID, path)
	if errors.Is(err, database.ErrProgressExists) {
		r.sess.Reset()
		return e.sayf(ctx, r.ev.ChatID, "You have already submitted this quest, hang tight while we review it.")
	}
	if err != nil {
		return err
	}
	r.sess.Reset()
	if err := e.sayf(ctx, r.ev.ChatID, "Got it! Your submission is on review, we will let you know the verdict."); err != nil {
		return err
	}
	e.announceSubmission(ctx, progress, r.user)
	return nil
}

// announceSubmission posts the pending submission into the review
// group with inline verdict buttons.
func (e *Engine) announceSubmission(ctx context.Context, progress *database.QuestProgress, user *database.User) {
	if e.adminGroupID == 0 {
		return
	}
	quest, err := e.store.Quest(progress.QuestID)
	if err != nil {
		log.Error(err)
		return
	}
	questName := progress.QuestID
	if quest != nil {
		questName = quest.Name
	}
	text := fmt.Sprintf("New submission %v\nQuest: %v\nUser: %v (%v)",
		progress.ID, questName, user.Name, user.PhoneNumber)
	kb := Keyboard{{
		{Label: "✅ Approve", Callback: "appr:" + progress.ID},
		{Label: "❌ Reject", Callback: "rej:" + progress.ID},
	}}
	url, err := e.media.AccessURL(ctx, progress.PhotoPath)
	if err != nil {
		log.Error(err)
		url = ""
	}
	if url != "" {
		if err := e.channel.SendPhoto(ctx, e.adminGroupID, url, text); err != nil {
			log.Error(err)
		}
		if err := e.channel.SendTextWithKeyboard(ctx, e.adminGroupID, "Verdict for "+progress.ID+":", kb); err != nil {
			log.Error(err)
		}
		return
	}
	if err := e.channel.SendTextWithKeyboard(ctx, e.adminGroupID, text, kb); err != nil {
		log.Error(err)
	}
}

func (e *Engine) handleAdminGroup(ctx context.Context, ev *Event, user *database.User) error {
	if ev.Kind == EventCallback {
		r := &request{ev: ev, user: user, sess: e.sessions.GetOrCreate(ev.ChatID)}
		return e.routeCallback(ctx, r)
	}
	if ev.Kind != EventText {
		return nil
	}
	fields := strings.Fields(ev.Text)
	if len(fields) == 0 {
		return nil
	}
	switch fields[0] {
	case "/approve":
		if len(fields) < 2 {
			return e.sayf(ctx, ev.ChatID, "Usage: /approve <submission-id> [comment]")
		}
		return e.reviewSubmission(ctx, ev.ChatID, fields[1], strings.Join(fields[2:], " "), true)
	case "/reject":
		if len(fields) < 2 {
			return e.sayf(ctx, ev.ChatID, "Usage: /reject <submission-id> [comment]")
		}
		return e.reviewSubmission(ctx, ev.ChatID, fields[1], strings.Join(fields[2:], " "), false)
	case "/add_codes":
		if len(fields) < 3 {
			return e.sayf(ctx, ev.ChatID, "Usage: /add_codes <quest-id> <code> [code...]")
		}
		added, err := e.store.AddPromoCodes(fields[1], fields[2:])
		if err != nil {
			return err
		}
		unused, err := e.store.UnusedPromoCodes(fields[1])
		if err != nil {
			return err
		}
		return e.sayf(ctx, ev.ChatID, "Added %v promo code(s), %v now in stock.", added, unused)
	}
	return nil
}

// Verdict buttons live in the review group, but the callback data is
// plain text anyone could replay from a private chat.
func (e *Engine) canReview(r *request) bool {
	return r.ev.ChatID == e.adminGroupID || r.user.IsAdminUser()
}

func (e *Engine) cbApprove(ctx context.Context, r *request, progressID string) error {
	if !e.canReview(r) {
		return nil
	}
	return e.reviewSubmission(ctx, r.ev.ChatID, progressID, "", true)
}

func (e *Engine) cbReject(ctx context.Context, r *request, progressID string) error {
	if !e.canReview(r) {
		return nil
	}
	return e.reviewSubmission(ctx, r.ev.ChatID, progressID, "", false)
}

func (e *Engine) reviewSubmission(ctx context.Context, chatID int64, progressID, comment string, approve bool) error {
	var err error
	if approve {
		err = e.approvals.Approve(ctx, progressID, comment)
	} else {
		err = e.approvals.Reject(ctx, progressID, comment)
	}
	switch {
	case errors.Is(err, database.ErrProgressNotFound):
		return e.sayf(ctx, chatID, "Submission %v not found.", progressID)
	case errors.Is(err, database.ErrProgressAlreadyReviewed):
		return e.sayf(ctx, chatID, "Submission %v was already reviewed.", progressID)
	case errors.Is(err, database.ErrNoPromoCodeAvailable):
		return e.sayf(ctx, chatID, "No promo codes left for this quest. Add some with /add_codes and approve again.")
	case err != nil:
		return err
	}
	verdict := "rejected"
	if approve {
		verdict = "approved"
	}
	return e.sayf(ctx, chatID, "Submission %v %v.", progressID, verdict)
}

func (e *Engine) cmdManagePoints(ctx context.Context, r *request) error {
	if ok, err := e.requireAdmin(ctx, r); !ok {
		return err
	}
	kb := Keyboard{
		{{Label: "➕ New waypoint", Callback: "pt_create"}},
		{{Label: "📋 List waypoints", Callback: "pt_list"}},
	}
	return e.channel.SendTextWithKeyboard(ctx, r.ev.ChatID, "Waypoint management:", kb)
}

func (e *Engine) cmdManageRoutes(ctx context.Context, r *request) error {
	if ok, err := e.requireAdmin(ctx, r); !ok {
		return err
	}
	kb := Keyboard{
		{{Label: "➕ New route", Callback: "rt_create"}},
		{{Label: "📋 List routes", Callback: "rt_list"}},
	}
	return e.channel.SendTextWithKeyboard(ctx, r.ev.ChatID, "Route management:", kb)
}
