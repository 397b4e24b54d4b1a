package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classboard/classboard-api/internal/models"
)

func TestMembershipRepositoryListStudentMemberships(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewMembershipRepository(db)

	className := "Matematica 7A"
	rows := sqlmock.NewRows([]string{"id", "class_id", "user_id", "role", "created_at", "class_name"}).
		AddRow("m1", "c1", "s1", "student", time.Now(), className).
		AddRow("m2", "c1", "s2", "student", time.Now(), className).
		AddRow("m3", "c2", "s3", "student", time.Now(), nil)
	mock.ExpectQuery("SELECT m.id, m.class_id, m.user_id, m.role, m.created_at, c.name AS class_name FROM class_members m LEFT JOIN classes c ON c.id = m.class_id WHERE m.role = (.+) ORDER BY m.created_at ASC").
		WithArgs(models.RoleStudent).
		WillReturnRows(rows)

	members, err := repo.ListStudentMemberships(context.Background())
	require.NoError(t, err)
	require.Len(t, members, 3)
	assert.Equal(t, "Matematica 7A", *members[0].ClassName)
	assert.Nil(t, members[2].ClassName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMembershipRepositoryExists(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewMembershipRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM class_members WHERE class_id = $1 AND user_id = $2 LIMIT 1")).
		WithArgs("c1", "s1").
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))

	exists, err := repo.Exists(context.Background(), "c1", "s1")
	require.NoError(t, err)
	assert.True(t, exists)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM class_members WHERE class_id = $1 AND user_id = $2 LIMIT 1")).
		WithArgs("c1", "s9").
		WillReturnRows(sqlmock.NewRows([]string{"1"}))

	exists, err = repo.Exists(context.Background(), "c1", "s9")
	require.NoError(t, err)
	assert.False(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMembershipRepositoryCreateAndDelete(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewMembershipRepository(db)

	mock.ExpectExec("INSERT INTO class_members").
		WithArgs(sqlmock.AnyArg(), "c1", "s1", models.RoleStudent, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	membership := &models.ClassMembership{ClassID: "c1", UserID: "s1", Role: models.RoleStudent}
	require.NoError(t, repo.Create(context.Background(), membership))
	assert.NotEmpty(t, membership.ID)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM class_members WHERE id = $1")).
		WithArgs(membership.ID).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, repo.Delete(context.Background(), membership.ID))
	assert.NoError(t, mock.ExpectationsWereMet())
}
