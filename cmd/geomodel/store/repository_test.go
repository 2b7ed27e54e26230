package store

import (
	"context"
	"path/filepath"
	"testing"

	"geo-tools/cmd/geomodel/structural"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()
	ctx := context.Background()
	db, err := OpenAndMigrate(ctx, filepath.Join(t.TempDir(), "geomodel_test.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return NewRepository(db)
}

func sampleData(dslDocID *int64) *structural.ModelData {
	age := 300.0
	return &structural.ModelData{
		Config: structural.ModelConfig{
			Name:          "coast",
			DSLDocumentID: dslDocID,
			Surfaces: []structural.SurfaceConfig{
				{SurfaceID: "D1", Name: "Shale", RockID: "R1", RockType: "sedimentary", AgeMa: &age},
				{SurfaceID: "D2", Name: "Sandstone", RockID: "R2", RockType: "sedimentary"},
			},
			StructuralGroups: []structural.StructuralGroupConfig{
				{GroupIndex: 0, GroupName: "Group_D2", Surfaces: []string{"D2"}, Relation: structural.RelationOnlap},
				{GroupIndex: 1, GroupName: "Group_D1", Surfaces: []string{"D1"}, Relation: structural.RelationBasement},
			},
			Extent:     structural.DefaultExtent(),
			Resolution: structural.DefaultResolution(),
			EventOrder: []string{"D1", "E1", "D2"},
		},
		SurfacePoints: []structural.SurfacePoint{
			{X: 1, Y: 2, Z: -800, Surface: "D1", Series: "Group_D1"},
			{X: 3, Y: 4, Z: -810, Surface: "D1", Series: "Group_D1"},
			{X: 5, Y: 6, Z: -100, Surface: "D2", Series: "Group_D2"},
		},
		Orientations: []structural.Orientation{
			{X: 0, Y: 0, Z: -800, Azimuth: 10, Dip: 5, Polarity: 1, Surface: "D1", Series: "Group_D1"},
		},
	}
}

func TestDocuments(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	first, err := repo.SaveDocument(ctx, Document{Name: "a", RawDSL: "ROCK R1 [ name: \"A\" ]\n", IsValid: true})
	require.NoError(t, err)
	assert.NotZero(t, first.ID)
	assert.False(t, first.CreatedAt.IsZero())

	second, err := repo.SaveDocument(ctx, Document{Name: "b", RawDSL: "DEPOSITION D1 [ rock: R9 ]\n", ValidationErrors: []string{"Undefined rock 'R9'"}})
	require.NoError(t, err)

	t.Run("get", func(t *testing.T) {
		got, err := repo.GetDocument(ctx, second.ID)
		require.NoError(t, err)
		assert.Equal(t, "b", got.Name)
		assert.False(t, got.IsValid)
		assert.Equal(t, []string{"Undefined rock 'R9'"}, got.ValidationErrors)
	})

	t.Run("update in place", func(t *testing.T) {
		first.RawDSL = "ROCK R1 [ name: \"B\" ]\n"
		_, err := repo.SaveDocument(ctx, first)
		require.NoError(t, err)
		got, err := repo.GetDocument(ctx, first.ID)
		require.NoError(t, err)
		assert.Equal(t, first.RawDSL, got.RawDSL)
	})

	t.Run("list newest first", func(t *testing.T) {
		docs, err := repo.ListDocuments(ctx, 0)
		require.NoError(t, err)
		require.Len(t, docs, 2)
		assert.Equal(t, second.ID, docs[0].ID)

		docs, err = repo.ListDocuments(ctx, 1)
		require.NoError(t, err)
		assert.Len(t, docs, 1)
	})

	t.Run("missing", func(t *testing.T) {
		_, err := repo.GetDocument(ctx, 999)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestModels(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	doc, err := repo.SaveDocument(ctx, Document{Name: "src", RawDSL: "x"})
	require.NoError(t, err)

	want := sampleData(&doc.ID)
	id, err := repo.SaveModel(ctx, want)
	require.NoError(t, err)

	t.Run("round trip", func(t *testing.T) {
		summary, got, err := repo.GetModel(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, StatusComputed, summary.Status)
		assert.Equal(t, 2, summary.SurfaceCount)
		assert.Equal(t, 3, summary.SurfacePointCount)
		assert.Equal(t, want, got)
	})

	t.Run("config only is pending", func(t *testing.T) {
		cfgOnly := &structural.ModelData{Config: sampleData(nil).Config}
		id2, err := repo.SaveModel(ctx, cfgOnly)
		require.NoError(t, err)

		list, err := repo.ListModels(ctx, 0)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, id2, list[0].ID)
		assert.Equal(t, StatusPending, list[0].Status)
		assert.Equal(t, 0, list[0].SurfacePointCount)
		assert.Equal(t, 2, list[0].GroupCount)
		assert.Equal(t, 3, list[1].SurfacePointCount)
		assert.Equal(t, 1, list[1].OrientationCount)
	})

	t.Run("status", func(t *testing.T) {
		require.NoError(t, repo.SetModelStatus(ctx, id, StatusFailed))
		summary, _, err := repo.GetModel(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, StatusFailed, summary.Status)

		assert.ErrorIs(t, repo.SetModelStatus(ctx, id, "done"), ErrInvalidStatus)
		assert.ErrorIs(t, repo.SetModelStatus(ctx, 999, StatusPending), ErrNotFound)
	})

	t.Run("delete cascades", func(t *testing.T) {
		require.NoError(t, repo.DeleteModel(ctx, id))
		_, _, err := repo.GetModel(ctx, id)
		assert.ErrorIs(t, err, ErrNotFound)

		var n int64
		require.NoError(t, repo.db.Model(&surfacePointModel{}).Where("model_id = ?", id).Count(&n).Error)
		assert.Zero(t, n)
	})
}
