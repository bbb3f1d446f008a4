// Package http exposes the read-mostly management API. Reads are open;
// mutations require the configured write token.
package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"questrail.io/questrail/internal/blob"
	"questrail.io/questrail/internal/database"
	"questrail.io/questrail/internal/reward"
	"questrail.io/questrail/pkg/errors"
	"questrail.io/questrail/pkg/log"
)

type Server struct {
	listenAddr string
	writeToken string
	allocator  *reward.Allocator
}

func NewServer(listenAddr, writeToken string, allocator *reward.Allocator) *Server {
	if listenAddr == "" {
		listenAddr = ":8080"
	}
	return &Server{listenAddr: listenAddr, writeToken: writeToken, allocator: allocator}
}

// Run blocks serving the API.
func (s *Server) Run() {
	gin.SetMode(gin.ReleaseMode)
	router := gin.Default()
	router.Use(gin.Recovery())

	router.GET("/health", func(ctx *gin.Context) {
		ctx.JSONP(http.StatusOK, map[string]interface{}{"status": "ok"})
	})

	api := router.Group("/api")
	api.GET("/users", s.listUsers)
	api.GET("/quests", s.listQuests)
	api.GET("/quests/:id", s.getQuest)
	api.GET("/promocodes", s.listPromoCodes)
	api.GET("/progress", s.listProgress)
	api.GET("/progress/:id", s.getProgress)
	api.GET("/routes", s.listRoutes)
	api.GET("/routes/:id", s.getRoute)

	authorized := api.Group("", s.requireToken)
	authorized.POST("/quests", s.createQuest)
	authorized.POST("/quests/:id/toggle_active", s.toggleQuestActive)
	authorized.POST("/promocodes", s.addPromoCodes)
	authorized.POST("/progress/:id/approve", s.approveProgress)
	authorized.POST("/progress/:id/reject", s.rejectProgress)

	if err := router.Run(s.listenAddr); err != nil {
		log.Fatal(err)
	}
}

// requireToken checks "Authorization: Token <token>" on mutations.
func (s *Server) requireToken(ctx *gin.Context) {
	header := ctx.GetHeader("Authorization")
	if s.writeToken == "" || header != "Token "+s.writeToken {
		ctx.AbortWithStatusJSON(http.StatusUnauthorized, map[string]interface{}{
			"error": "valid token required",
		})
		return
	}
	ctx.Next()
}

func internalError(ctx *gin.Context, err error) {
	log.Error(err)
	ctx.JSONP(http.StatusInternalServerError, map[string]interface{}{
		"error": "internal error",
	})
}

func (s *Server) listUsers(ctx *gin.Context) {
	users, err := database.User{}.SelectAll()
	if err != nil {
		internalError(ctx, err)
		return
	}
	ctx.JSONP(http.StatusOK, map[string]interface{}{"users": users})
}

func (s *Server) listQuests(ctx *gin.Context) {
	var (
		quests []*database.Quest
		err    error
	)
	if ctx.Query("active") == "true" {
		quests, err = database.Quest{}.SelectActive()
	} else {
		quests, err = database.Quest{}.SelectAll()
	}
	if err != nil {
		internalError(ctx, err)
		return
	}
	ctx.JSONP(http.StatusOK, map[string]interface{}{"quests": quests})
}

func (s *Server) getQuest(ctx *gin.Context) {
	quest, err := database.Quest{}.SelectOne(ctx.Param("id"))
	if err != nil {
		internalError(ctx, err)
		return
	}
	if quest == nil {
		ctx.JSONP(http.StatusNotFound, map[string]interface{}{"error": "quest not found"})
		return
	}
	ctx.JSONP(http.StatusOK, map[string]interface{}{"quest": quest})
}

type createQuestRequest struct {
	Name        string   `json:"name" binding:"required"`
	Description string   `json:"description"`
	Location    string   `json:"location"`
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
}

func (s *Server) createQuest(ctx *gin.Context) {
	var req createQuestRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSONP(http.StatusBadRequest, map[string]interface{}{"error": err.Error()})
		return
	}
	quest := database.Quest{
		Name:        req.Name,
		Description: req.Description,
		Location:    req.Location,
		Latitude:    req.Latitude,
		Longitude:   req.Longitude,
		IsActive:    true,
		CreatedAt:   time.Now(),
	}
	if err := quest.Create(); err != nil {
		internalError(ctx, err)
		return
	}
	ctx.JSONP(http.StatusCreated, map[string]interface{}{"success": true})
}

func (s *Server) toggleQuestActive(ctx *gin.Context) {
	active, err := database.Quest{}.ToggleActive(ctx.Param("id"))
	if errors.Is(err, database.ErrQuestNotFound) {
		ctx.JSONP(http.StatusNotFound, map[string]interface{}{"error": "quest not found"})
		return
	}
	if err != nil {
		internalError(ctx, err)
		return
	}
	ctx.JSONP(http.StatusOK, map[string]interface{}{"is_active": active})
}

type addPromoCodesRequest struct {
	QuestID string   `json:"quest_id" binding:"required"`
	Codes   []string `json:"codes" binding:"required"`
}

func (s *Server) addPromoCodes(ctx *gin.Context) {
	var req addPromoCodesRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSONP(http.StatusBadRequest, map[string]interface{}{"error": err.Error()})
		return
	}
	added, err := database.PromoCode{}.BulkCreate(req.QuestID, req.Codes)
	if err != nil {
		internalError(ctx, err)
		return
	}
	ctx.JSONP(http.StatusCreated, map[string]interface{}{"added": added})
}

func (s *Server) listPromoCodes(ctx *gin.Context) {
	codes, err := database.PromoCode{}.SelectAll()
	if err != nil {
		internalError(ctx, err)
		return
	}
	ctx.JSONP(http.StatusOK, map[string]interface{}{"promocodes": codes})
}

func (s *Server) listProgress(ctx *gin.Context) {
	var (
		progresses []*database.QuestProgress
		err        error
	)
	if status := ctx.Query("status"); status != "" {
		progresses, err = database.QuestProgress{}.SelectByStatus(database.ProgressStatus(status))
	} else {
		progresses, err = database.QuestProgress{}.SelectAll()
	}
	if err != nil {
		internalError(ctx, err)
		return
	}
	ctx.JSONP(http.StatusOK, map[string]interface{}{"progress": progresses})
}

func (s *Server) getProgress(ctx *gin.Context) {
	progress, err := database.QuestProgress{}.SelectOne(ctx.Param("id"))
	if err != nil {
		internalError(ctx, err)
		return
	}
	if progress == nil {
		ctx.JSONP(http.StatusNotFound, map[string]interface{}{"error": "progress not found"})
		return
	}
	ctx.JSONP(http.StatusOK, map[string]interface{}{"progress": progress})
}

type reviewRequest struct {
	Comment string `json:"comment"`
}

func (s *Server) approveProgress(ctx *gin.Context) {
	s.review(ctx, true)
}

func (s *Server) rejectProgress(ctx *gin.Context) {
	s.review(ctx, false)
}

func (s *Server) review(ctx *gin.Context, approve bool) {
	var req reviewRequest
	if err := ctx.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		ctx.JSONP(http.StatusBadRequest, map[string]interface{}{"error": err.Error()})
		return
	}
	var err error
	if approve {
		err = s.allocator.Approve(ctx.Request.Context(), ctx.Param("id"), req.Comment)
	} else {
		err = s.allocator.Reject(ctx.Request.Context(), ctx.Param("id"), req.Comment)
	}
	switch {
	case errors.Is(err, database.ErrProgressNotFound):
		ctx.JSONP(http.StatusNotFound, map[string]interface{}{"error": "progress not found"})
	case errors.Is(err, database.ErrProgressAlreadyReviewed):
		ctx.JSONP(http.StatusConflict, map[string]interface{}{"error": "progress already reviewed"})
	case errors.Is(err, database.ErrNoPromoCodeAvailable):
		ctx.JSONP(http.StatusConflict, map[string]interface{}{"error": "no promo code available for quest"})
	case err != nil:
		internalError(ctx, err)
	default:
		ctx.JSONP(http.StatusOK, map[string]interface{}{"success": true})
	}
}

func (s *Server) listRoutes(ctx *gin.Context) {
	var (
		routes []*database.Route
		err    error
	)
	if ctx.Query("active") == "true" {
		routes, err = database.Route{}.SelectActive()
	} else {
		routes, err = database.Route{}.SelectAll()
	}
	if err != nil {
		internalError(ctx, err)
		return
	}
	ctx.JSONP(http.StatusOK, map[string]interface{}{"routes": routes})
}

// getRoute nests the ordered waypoints with temporary media URLs, the
// shape external route viewers consume.
func (s *Server) getRoute(ctx *gin.Context) {
	route, err := database.Route{}.SelectOne(ctx.Param("id"))
	if err != nil {
		internalError(ctx, err)
		return
	}
	if route == nil {
		ctx.JSONP(http.StatusNotFound, map[string]interface{}{"error": "route not found"})
		return
	}
	members, err := database.Route{}.SelectOrderedPoints(route.ID)
	if err != nil {
		internalError(ctx, err)
		return
	}
	points := make([]map[string]interface{}, 0, len(members))
	for _, member := range members {
		if member.Point == nil {
			continue
		}
		points = append(points, map[string]interface{}{
			"order": member.Order,
			"point": member.Point,
			"media": pointMediaURLs(ctx.Request.Context(), member.Point),
		})
	}
	response := map[string]interface{}{"route": route, "points": points}
	if route.CoverPhotoPath != "" {
		if url, err := blob.Client.AccessURL(ctx.Request.Context(), route.CoverPhotoPath); err != nil {
			log.Error(err)
		} else {
			response["cover_url"] = url
		}
	}
	ctx.JSONP(http.StatusOK, response)
}

func pointMediaURLs(ctx context.Context, point *database.Point) map[string][]string {
	urls := map[string][]string{}
	appendURL := func(kind, path string) {
		url, err := blob.Client.AccessURL(ctx, path)
		if err != nil {
			log.Error(err)
			return
		}
		urls[kind] = append(urls[kind], url)
	}
	for _, photo := range point.Photos {
		appendURL("photos", photo.Path)
	}
	for _, audio := range point.Audios {
		appendURL("audios", audio.Path)
	}
	for _, video := range point.Videos {
		appendURL("videos", video.Path)
	}
	return urls
}
