package database

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"questrail.io/questrail/pkg/errors"
)

type Route struct {
	ID             string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	Name           string    `gorm:"type:varchar(255)" json:"name"`
	Description    string    `gorm:"type:text" json:"description"`
	CoverPhotoPath string    `gorm:"type:varchar(500)" json:"cover_photo_path"`
	IsActive       bool      `gorm:"type:bool;default:true" json:"is_active"`
	CreatedBy      string    `gorm:"type:varchar(36)" json:"created_by"`
	CreatedAt      time.Time `gorm:"type:timestamp" json:"created_at"`
}

// RoutePoint orders a point within a route. Order values need not be
// contiguous; only the relative order matters.
type RoutePoint struct {
	ID      string `gorm:"type:varchar(36);primaryKey" json:"id"`
	RouteID string `gorm:"type:varchar(36);uniqueIndex:uni_route_point" json:"route_id"`
	PointID string `gorm:"type:varchar(36);uniqueIndex:uni_route_point" json:"point_id"`
	Order   int    `gorm:"column:ord;type:int" json:"order"`

	Point *Point `gorm:"foreignKey:PointID" json:"point,omitempty"`
}

func (in Route) Create() error {
	err := Postgres.Create(&in).Error
	return errors.WrapAndReport(err, "create route")
}

func (Route) SelectOne(id string) (*Route, error) {
	var entity Route
	err := Postgres.Where("id = ?", id).First(&entity).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.WrapAndReport(err, "query route")
	}
	return &entity, nil
}

func (Route) SelectAll() ([]*Route, error) {
	var entities []*Route
	err := Postgres.Order("created_at DESC").Find(&entities).Error
	if err != nil {
		return nil, errors.WrapAndReport(err, "query routes")
	}
	return entities, nil
}

func (Route) SelectActive() ([]*Route, error) {
	var entities []*Route
	err := Postgres.Where("is_active").Order("created_at").Find(&entities).Error
	if err != nil {
		return nil, errors.WrapAndReport(err, "query active routes")
	}
	return entities, nil
}

func (Route) UpdateField(id, column string, value interface{}) error {
	err := Postgres.Model(&Route{}).Where("id = ?", id).Update(column, value).Error
	return errors.WrapAndReport(err, "update route field")
}

// Delete removes the route and its memberships. Points survive.
func (Route) Delete(id string) error {
	return Postgres.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("route_id = ?", id).Delete(&RoutePoint{}).Error; err != nil {
			return errors.Wrap(err, "delete route memberships")
		}
		err := tx.Where("id = ?", id).Delete(&Route{}).Error
		return errors.Wrap(err, "delete route")
	})
}

// SelectOrderedPoints returns the route's memberships with points
// preloaded, ascending by order.
func (Route) SelectOrderedPoints(routeID string) ([]*RoutePoint, error) {
	var entities []*RoutePoint
	err := Postgres.Preload("Point").Preload("Point.Photos").
		Preload("Point.Audios").Preload("Point.Videos").
		Where("route_id = ?", routeID).Order("ord").Find(&entities).Error
	if err != nil {
		return nil, errors.WrapAndReport(err, "query route points")
	}
	return entities, nil
}

// AppendPoint adds the point at the tail: order = max + 1.
func (Route) AppendPoint(routeID, pointID string) (*RoutePoint, error) {
	entity := RoutePoint{
		ID:      uuid.New().String(),
		RouteID: routeID,
		PointID: pointID,
	}
	err := Postgres.Transaction(func(tx *gorm.DB) error {
		var maxOrder *int
		err := tx.Model(&RoutePoint{}).Where("route_id = ?", routeID).
			Select("MAX(ord)").Scan(&maxOrder).Error
		if err != nil {
			return errors.Wrap(err, "query max route point order")
		}
		if maxOrder != nil {
			entity.Order = *maxOrder + 1
		} else {
			entity.Order = 1
		}
		err = tx.Create(&entity).Error
		if IsDuplicateKeyErr(err) {
			return errors.Errorf("point %v already on route %v", pointID, routeID)
		}
		return errors.Wrap(err, "create route point")
	})
	if err != nil {
		return nil, err
	}
	return &entity, nil
}

func (Route) RemovePoint(routeID, pointID string) error {
	result := Postgres.Where("route_id = ? AND point_id = ?", routeID, pointID).
		Delete(&RoutePoint{})
	if result.Error != nil {
		return errors.WrapAndReport(result.Error, "delete route point")
	}
	if result.RowsAffected == 0 {
		return errors.Errorf("point %v not on route %v", pointID, routeID)
	}
	return nil
}

// CountReferences reports how many routes contain the point.
func (RoutePoint) CountReferences(pointID string) (int64, error) {
	var count int64
	err := Postgres.Model(&RoutePoint{}).Where("point_id = ?", pointID).Count(&count).Error
	if err != nil {
		return 0, errors.WrapAndReport(err, "count point references")
	}
	return count, nil
}

// MemberPointIDs returns ids of points already on the route.
func (RoutePoint) MemberPointIDs(routeID string) ([]string, error) {
	var ids []string
	err := Postgres.Model(&RoutePoint{}).Where("route_id = ?", routeID).
		Pluck("point_id", &ids).Error
	if err != nil {
		return nil, errors.WrapAndReport(err, "query route member point ids")
	}
	return ids, nil
}
