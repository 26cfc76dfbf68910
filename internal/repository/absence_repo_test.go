package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/noah-isme/scolarite-api/internal/models"
)

func TestAbsenceRepositoryListFiltersByLevel(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAbsenceRepository(db)
	ctx := context.Background()

	records := []models.AbsenceRecord{
		{LastName: "Dupont", FirstName: "Jean", CNE: "CNE001", Level: models.LevelL2, HoursAbsent: 60, HoursTotal: 100},
		{LastName: "Martin", FirstName: "Marie", CNE: "CNE002", Level: models.LevelL1, HoursAbsent: 85, HoursTotal: 100},
		{LastName: "Thomas", FirstName: "Luc", CNE: "CNE005", Level: models.LevelL2, HoursAbsent: 90, HoursTotal: 100},
	}
	for i := range records {
		require.NoError(t, repo.Create(ctx, &records[i]))
	}

	all, err := repo.List(ctx, AbsenceFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)

	l2, err := repo.List(ctx, AbsenceFilter{Level: models.LevelL2})
	require.NoError(t, err)
	require.Len(t, l2, 2)
	for _, record := range l2 {
		require.Equal(t, models.LevelL2, record.Level)
	}
}

func TestAbsenceRepositoryUpdateAndDelete(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAbsenceRepository(db)
	ctx := context.Background()

	record := models.AbsenceRecord{LastName: "Petit", FirstName: "Paul", CNE: "CNE007", Level: models.LevelL1, HoursAbsent: 70, HoursTotal: 100}
	require.NoError(t, repo.Create(ctx, &record))

	duplicate := models.AbsenceRecord{LastName: "Autre", FirstName: "Paul", CNE: "CNE007", Level: models.LevelL1, HoursAbsent: 1, HoursTotal: 100}
	require.Error(t, repo.Create(ctx, &duplicate), "cne is unique")

	record.HoursAbsent = 10
	require.NoError(t, repo.Update(ctx, &record))

	fetched, err := repo.GetByCNE(ctx, "CNE007")
	require.NoError(t, err)
	require.Equal(t, 10.0, fetched.HoursAbsent)

	require.NoError(t, repo.Delete(ctx, record.ID))
	require.ErrorIs(t, repo.Delete(ctx, record.ID), gorm.ErrRecordNotFound)

	missing := models.AbsenceRecord{ID: 999, LastName: "X", FirstName: "Y", CNE: "CNE999", Level: models.LevelL1, HoursTotal: 10}
	require.ErrorIs(t, repo.Update(ctx, &missing), gorm.ErrRecordNotFound)
}
