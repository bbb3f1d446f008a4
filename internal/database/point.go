package database

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"questrail.io/questrail/pkg/errors"
)

var (
	ErrPointReferenced = errors.New("point referenced by a route")
)

type Point struct {
	ID          string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	Name        string    `gorm:"type:varchar(255)" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	Latitude    float64   `gorm:"type:float8" json:"latitude"`
	Longitude   float64   `gorm:"type:float8" json:"longitude"`
	TextContent string    `gorm:"type:text" json:"text_content"`
	CreatedBy   string    `gorm:"type:varchar(36)" json:"created_by"`
	CreatedAt   time.Time `gorm:"type:timestamp" json:"created_at"`

	Photos []*PointPhoto `gorm:"foreignKey:PointID" json:"photos,omitempty"`
	Audios []*PointAudio `gorm:"foreignKey:PointID" json:"audios,omitempty"`
	Videos []*PointVideo `gorm:"foreignKey:PointID" json:"videos,omitempty"`
}

type PointPhoto struct {
	ID      string `gorm:"type:varchar(36);primaryKey" json:"id"`
	PointID string `gorm:"type:varchar(36);index" json:"point_id"`
	Path    string `gorm:"type:varchar(500)" json:"path"`
	Caption string `gorm:"type:text" json:"caption"`
}

type PointAudio struct {
	ID      string `gorm:"type:varchar(36);primaryKey" json:"id"`
	PointID string `gorm:"type:varchar(36);index" json:"point_id"`
	Path    string `gorm:"type:varchar(500)" json:"path"`
}

type PointVideo struct {
	ID      string `gorm:"type:varchar(36);primaryKey" json:"id"`
	PointID string `gorm:"type:varchar(36);index" json:"point_id"`
	Path    string `gorm:"type:varchar(500)" json:"path"`
}

func (in Point) Create() error {
	err := Postgres.Create(&in).Error
	return errors.WrapAndReport(err, "create point")
}

func (Point) SelectOne(id string) (*Point, error) {
	var entity Point
	err := Postgres.Preload("Photos").Preload("Audios").Preload("Videos").
		Where("id = ?", id).First(&entity).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.WrapAndReport(err, "query point")
	}
	return &entity, nil
}

func (Point) SelectAll() ([]*Point, error) {
	var entities []*Point
	err := Postgres.Order("created_at DESC").Find(&entities).Error
	if err != nil {
		return nil, errors.WrapAndReport(err, "query points")
	}
	return entities, nil
}

func (Point) UpdateField(id, column string, value interface{}) error {
	err := Postgres.Model(&Point{}).Where("id = ?", id).Update(column, value).Error
	return errors.WrapAndReport(err, "update point field")
}

func (Point) UpdateLocation(id string, lat, lon float64) error {
	err := Postgres.Model(&Point{}).Where("id = ?", id).Updates(map[string]interface{}{
		"latitude":  lat,
		"longitude": lon,
	}).Error
	return errors.WrapAndReport(err, "update point location")
}

// DeleteGuarded removes the point and its media rows unless any route
// still references it. The guard lives here, not in the schema, so the
// caller gets a distinct error to surface.
func (Point) DeleteGuarded(id string) error {
	return Postgres.Transaction(func(tx *gorm.DB) error {
		var refs int64
		if err := tx.Model(&RoutePoint{}).Where("point_id = ?", id).Count(&refs).Error; err != nil {
			return errors.Wrap(err, "count point references")
		}
		if refs > 0 {
			return ErrPointReferenced
		}
		for _, media := range []interface{}{&PointPhoto{}, &PointAudio{}, &PointVideo{}} {
			if err := tx.Where("point_id = ?", id).Delete(media).Error; err != nil {
				return errors.Wrap(err, "delete point media")
			}
		}
		err := tx.Where("id = ?", id).Delete(&Point{}).Error
		return errors.Wrap(err, "delete point")
	})
}

// MediaPaths returns the blob paths owned by the point, for blob-store
// cleanup after a successful delete.
func (Point) MediaPaths(id string) ([]string, error) {
	point, err := Point{}.SelectOne(id)
	if err != nil || point == nil {
		return nil, err
	}
	var paths []string
	for _, p := range point.Photos {
		paths = append(paths, p.Path)
	}
	for _, a := range point.Audios {
		paths = append(paths, a.Path)
	}
	for _, v := range point.Videos {
		paths = append(paths, v.Path)
	}
	return paths, nil
}

func (in PointPhoto) Create() error {
	if in.ID == "" {
		in.ID = uuid.New().String()
	}
	err := Postgres.Create(&in).Error
	return errors.WrapAndReport(err, "create point photo")
}

func (in PointAudio) Create() error {
	if in.ID == "" {
		in.ID = uuid.New().String()
	}
	err := Postgres.Create(&in).Error
	return errors.WrapAndReport(err, "create point audio")
}

func (in PointVideo) Create() error {
	if in.ID == "" {
		in.ID = uuid.New().String()
	}
	err := Postgres.Create(&in).Error
	return errors.WrapAndReport(err, "create point video")
}

// ReplacePhotos swaps the photo set for the single-slot edit flow.
func (Point) ReplacePhotos(pointID, path, caption string) error {
	return Postgres.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("point_id = ?", pointID).Delete(&PointPhoto{}).Error; err != nil {
			return errors.Wrap(err, "delete point photos")
		}
		entity := PointPhoto{ID: uuid.New().String(), PointID: pointID, Path: path, Caption: caption}
		return errors.Wrap(tx.Create(&entity).Error, "create point photo")
	})
}

func (Point) ReplaceAudios(pointID, path string) error {
	return Postgres.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("point_id = ?", pointID).Delete(&PointAudio{}).Error; err != nil {
			return errors.Wrap(err, "delete point audios")
		}
		entity := PointAudio{ID: uuid.New().String(), PointID: pointID, Path: path}
		return errors.Wrap(tx.Create(&entity).Error, "create point audio")
	})
}

func (Point) ReplaceVideos(pointID, path string) error {
	return Postgres.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("point_id = ?", pointID).Delete(&PointVideo{}).Error; err != nil {
			return errors.Wrap(err, "delete point videos")
		}
		entity := PointVideo{ID: uuid.New().String(), PointID: pointID, Path: path}
		return errors.Wrap(tx.Create(&entity).Error, "create point video")
	})
}
