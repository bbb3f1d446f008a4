package chat

import (
	"questrail.io/questrail/internal/database"
)

// Store is the persistence surface the dialogue engine needs. The
// production binding delegates to the database package; tests swap in
// an in-memory fake.
type Store interface {
	GetOrCreateUser(telegramID int64, name string) (*database.User, error)
	UserByTelegramID(telegramID int64) (*database.User, error)
	VerifyUserPhone(telegramID int64, phone string) error

	CreatePoint(p *database.Point) error
	Point(id string) (*database.Point, error)
	Points() ([]*database.Point, error)
	UpdatePointField(id, column string, value interface{}) error
	UpdatePointLocation(id string, lat, lon float64) error
	DeletePointGuarded(id string) error
	PointMediaPaths(id string) ([]string, error)
	PointReferences(id string) (int64, error)
	AddPointPhoto(pointID, path, caption string) error
	AddPointAudio(pointID, path string) error
	AddPointVideo(pointID, path string) error
	ReplacePointPhotos(pointID, path, caption string) error
	ReplacePointAudios(pointID, path string) error
	ReplacePointVideos(pointID, path string) error

	CreateRoute(r *database.Route) error
	Route(id string) (*database.Route, error)
	Routes() ([]*database.Route, error)
	ActiveRoutes() ([]*database.Route, error)
	UpdateRouteField(id, column string, value interface{}) error
	DeleteRoute(id string) error
	OrderedRoutePoints(routeID string) ([]*database.RoutePoint, error)
	AppendRoutePoint(routeID, pointID string) error
	RemoveRoutePoint(routeID, pointID string) error
	RouteMemberPointIDs(routeID string) ([]string, error)

	ActiveQuests() ([]*database.Quest, error)
	Quest(id string) (*database.Quest, error)
	SubmitProgress(userID, questID, proofPath string) (*database.QuestProgress, error)
	AddPromoCodes(questID string, codes []string) (int, error)
	UnusedPromoCodes(questID string) (int64, error)
	IssuedPromoCodes(userID string) ([]*database.PromoCode, error)

	DumpInboundEvent(e *database.InboundEvent) error
}

type gormStore struct{}

// NewStore returns the Store bound to the global postgres connection.
func NewStore() Store {
	return gormStore{}
}

func (gormStore) GetOrCreateUser(telegramID int64, name string) (*database.User, error) {
	return database.User{}.GetOrCreate(telegramID, name)
}

func (gormStore) UserByTelegramID(telegramID int64) (*database.User, error) {
	return database.User{}.SelectByTelegramID(telegramID)
}

func (gormStore) VerifyUserPhone(telegramID int64, phone string) error {
	return database.User{}.UpdateVerifiedPhone(telegramID, phone)
}

func (gormStore) CreatePoint(p *database.Point) error {
	return p.Create()
}

func (gormStore) Point(id string) (*database.Point, error) {
	return database.Point{}.SelectOne(id)
}

func (gormStore) Points() ([]*database.Point, error) {
	return database.Point{}.SelectAll()
}

func (gormStore) UpdatePointField(id, column string, value interface{}) error {
	return database.Point{}.UpdateField(id, column, value)
}

func (gormStore) UpdatePointLocation(id string, lat, lon float64) error {
	return database.Point{}.UpdateLocation(id, lat, lon)
}

func (gormStore) DeletePointGuarded(id string) error {
	return database.Point{}.DeleteGuarded(id)
}

func (gormStore) PointReferences(id string) (int64, error) {
	return database.RoutePoint{}.CountReferences(id)
}

func (gormStore) PointMediaPaths(id string) ([]string, error) {
	return database.Point{}.MediaPaths(id)
}

func (gormStore) AddPointPhoto(pointID, path, caption string) error {
	photo := &database.PointPhoto{PointID: pointID, Path: path, Caption: caption}
	return photo.Create()
}

func (gormStore) AddPointAudio(pointID, path string) error {
	audio := &database.PointAudio{PointID: pointID, Path: path}
	return audio.Create()
}

func (gormStore) AddPointVideo(pointID, path string) error {
	video := &database.PointVideo{PointID: pointID, Path: path}
	return video.Create()
}

func (gormStore) ReplacePointPhotos(pointID, path, caption string) error {
	return database.Point{}.ReplacePhotos(pointID, path, caption)
}

func (gormStore) ReplacePointAudios(pointID, path string) error {
	return database.Point{}.ReplaceAudios(pointID, path)
}

func (gormStore) ReplacePointVideos(pointID, path string) error {
	return database.Point{}.ReplaceVideos(pointID, path)
}

func (gormStore) CreateRoute(r *database.Route) error {
	return r.Create()
}

func (gormStore) Route(id string) (*database.Route, error) {
	return database.Route{}.SelectOne(id)
}

func (gormStore) Routes() ([]*database.Route, error) {
	return database.Route{}.SelectAll()
}

func (gormStore) ActiveRoutes() ([]*database.Route, error) {
	return database.Route{}.SelectActive()
}

func (gormStore) UpdateRouteField(id, column string, value interface{}) error {
	return database.Route{}.UpdateField(id, column, value)
}

func (gormStore) DeleteRoute(id string) error {
	return database.Route{}.Delete(id)
}

func (gormStore) OrderedRoutePoints(routeID string) ([]*database.RoutePoint, error) {
	return database.Route{}.SelectOrderedPoints(routeID)
}

func (gormStore) AppendRoutePoint(routeID, pointID string) error {
	_, err := database.Route{}.AppendPoint(routeID, pointID)
	return err
}

func (gormStore) RemoveRoutePoint(routeID, pointID string) error {
	return database.Route{}.RemovePoint(routeID, pointID)
}

func (gormStore) RouteMemberPointIDs(routeID string) ([]string, error) {
	return database.RoutePoint{}.MemberPointIDs(routeID)
}

func (gormStore) ActiveQuests() ([]*database.Quest, error) {
	return database.Quest{}.SelectActive()
}

func (gormStore) Quest(id string) (*database.Quest, error) {
	return database.Quest{}.SelectOne(id)
}

func (gormStore) SubmitProgress(userID, questID, proofPath string) (*database.QuestProgress, error) {
	return database.QuestProgress{}.Submit(userID, questID, proofPath)
}

func (gormStore) AddPromoCodes(questID string, codes []string) (int, error) {
	return database.PromoCode{}.BulkCreate(questID, codes)
}

func (gormStore) UnusedPromoCodes(questID string) (int64, error) {
	return database.PromoCode{}.CountUnused(questID)
}

func (gormStore) IssuedPromoCodes(userID string) ([]*database.PromoCode, error) {
	return database.PromoCode{}.SelectIssuedTo(userID)
}

func (gormStore) DumpInboundEvent(e *database.InboundEvent) error {
	return e.Create()
}
