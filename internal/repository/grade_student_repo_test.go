package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/noah-isme/scolarite-api/internal/models"
)

func TestGradeStudentRepositoryCRUD(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGradeStudentRepository(db)
	ctx := context.Background()

	student := models.GradeStudent{LastName: "Alami", FirstName: "Ahmed", CNE: "CNE001", Note1: floatPtr(14), Note2: floatPtr(12), Module: "Java"}
	require.NoError(t, repo.Create(ctx, &student))
	require.NotZero(t, student.ID)

	fetched, err := repo.GetByCNE(ctx, "CNE001")
	require.NoError(t, err)
	require.Equal(t, student.ID, fetched.ID)

	exists, err := repo.ExistsByCNE(ctx, "CNE001", 0)
	require.NoError(t, err)
	require.True(t, exists)

	exists, err = repo.ExistsByCNE(ctx, "CNE001", student.ID)
	require.NoError(t, err)
	require.False(t, exists, "the record itself is excluded")

	fetched.Note2 = nil
	fetched.Module = "Spring"
	require.NoError(t, repo.Update(ctx, &fetched))

	updated, err := repo.GetByID(ctx, student.ID)
	require.NoError(t, err)
	require.Nil(t, updated.Note2, "clearing a note must persist NULL")
	require.Equal(t, "Spring", updated.Module)

	require.NoError(t, repo.Delete(ctx, student.ID))
	_, err = repo.GetByID(ctx, student.ID)
	require.True(t, errors.Is(err, gorm.ErrRecordNotFound))

	require.ErrorIs(t, repo.Delete(ctx, student.ID), gorm.ErrRecordNotFound)
}

func TestGradeStudentRepositoryListOrdersByID(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGradeStudentRepository(db)
	ctx := context.Background()

	for _, cne := range []string{"CNE010", "CNE011", "CNE012"} {
		require.NoError(t, repo.Create(ctx, &models.GradeStudent{LastName: cne, FirstName: "x", CNE: cne}))
	}

	students, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, students, 3)
	require.Equal(t, "CNE010", students[0].CNE)
	require.Equal(t, "CNE012", students[2].CNE)
}
