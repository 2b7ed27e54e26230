package store

import (
	"time"

	"geo-tools/cmd/geomodel/structural"
)

type dslDocumentModel struct {
	ID               int64    `gorm:"primaryKey"`
	DocumentID       *int64   `gorm:"column:document_id"`
	Name             string   `gorm:"not null;default:''"`
	RawDSL           string   `gorm:"column:raw_dsl;not null"`
	IsValid          bool     `gorm:"not null;default:false"`
	ValidationErrors []string `gorm:"serializer:json"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (dslDocumentModel) TableName() string { return "dsl_documents" }

type geologicalModel struct {
	ID            int64                      `gorm:"primaryKey"`
	Name          string                     `gorm:"not null"`
	DocumentID    *int64                     `gorm:"column:document_id"`
	DSLDocumentID *int64                     `gorm:"column:dsl_document_id"`
	Status        string                     `gorm:"not null;default:'pending'"`
	Extent        structural.ModelExtent     `gorm:"column:extent_json;serializer:json"`
	Resolution    structural.ModelResolution `gorm:"column:resolution_json;serializer:json"`
	EventOrder    []string                   `gorm:"column:event_order_json;serializer:json"`
	CreatedAt     time.Time
	UpdatedAt     time.Time

	Surfaces      []surfaceModel      `gorm:"foreignKey:ModelID"`
	Groups        []groupModel        `gorm:"foreignKey:ModelID"`
	SurfacePoints []surfacePointModel `gorm:"foreignKey:ModelID"`
	Orientations  []orientationModel  `gorm:"foreignKey:ModelID"`
}

func (geologicalModel) TableName() string { return "geological_models" }

type surfaceModel struct {
	ID        int64    `gorm:"primaryKey"`
	ModelID   int64    `gorm:"not null;index"`
	Position  int      `gorm:"not null"`
	SurfaceID string   `gorm:"column:surface_id;not null"`
	Name      string   `gorm:"not null"`
	RockID    string   `gorm:"column:rock_id;not null"`
	RockType  string   `gorm:"column:rock_type;not null"`
	AgeMa     *float64 `gorm:"column:age_ma"`
}

func (surfaceModel) TableName() string { return "model_surfaces" }

type groupModel struct {
	ID         int64    `gorm:"primaryKey"`
	ModelID    int64    `gorm:"not null;index"`
	GroupIndex int      `gorm:"not null"`
	GroupName  string   `gorm:"not null"`
	Surfaces   []string `gorm:"column:surfaces_json;serializer:json"`
	Relation   string   `gorm:"not null"`
}

func (groupModel) TableName() string { return "model_groups" }

type surfacePointModel struct {
	ID      int64   `gorm:"primaryKey"`
	ModelID int64   `gorm:"not null;index"`
	X       float64 `gorm:"column:x"`
	Y       float64 `gorm:"column:y"`
	Z       float64 `gorm:"column:z"`
	Surface string  `gorm:"not null"`
	Series  string
}

func (surfacePointModel) TableName() string { return "surface_points" }

type orientationModel struct {
	ID       int64   `gorm:"primaryKey"`
	ModelID  int64   `gorm:"not null;index"`
	X        float64 `gorm:"column:x"`
	Y        float64 `gorm:"column:y"`
	Z        float64 `gorm:"column:z"`
	Azimuth  float64 `gorm:"not null"`
	Dip      float64 `gorm:"not null"`
	Polarity float64 `gorm:"not null;default:1"`
	Surface  string  `gorm:"not null"`
	Series   string
}

func (orientationModel) TableName() string { return "orientations" }
