package service

import (
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jansarthi/models"
	"jansarthi/repository"
)

func newTestUserService(t *testing.T) (*UserService, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewUserService(
		repository.NewUserRepository(db),
		repository.NewLocalityRepository(db),
	), mock
}

func TestCreateRepresentativeRequiresActiveLocality(t *testing.T) {
	t.Run("missing locality", func(t *testing.T) {
		svc, _ := newTestUserService(t)
		_, err := svc.CreateUser(models.CreateUserRequest{
			Name:         "Asha",
			MobileNumber: "9876543210",
			Role:         models.RoleRepresentative,
		})
		var vErr *ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Contains(t, vErr.Message, "locality")
	})

	t.Run("inactive locality", func(t *testing.T) {
		svc, mock := newTestUserService(t)
		localityID := int64(5)
		inactive := sqlmock.NewRows([]string{"id", "name", "type", "is_active", "created_at", "updated_at"}).
			AddRow(5, "Shastri Nagar", "ward", false, testTime(), testTime())
		mock.ExpectQuery("FROM localities WHERE id = \\?").WithArgs(localityID).
			WillReturnRows(inactive)

		_, err := svc.CreateUser(models.CreateUserRequest{
			Name:         "Asha",
			MobileNumber: "9876543210",
			Role:         models.RoleRepresentative,
			LocalityID:   &localityID,
		})
		var vErr *ValidationError
		require.ErrorAs(t, err, &vErr)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestCreateUserUpgradesExistingCitizen(t *testing.T) {
	svc, mock := newTestUserService(t)
	localityID := int64(5)

	mock.ExpectQuery("FROM localities WHERE id = \\?").WithArgs(localityID).
		WillReturnRows(localityRow(localityID, "Shastri Nagar", models.LocalityWard))
	mock.ExpectQuery("WHERE mobile_number = \\?").WithArgs("9876543210").
		WillReturnRows(userRow(12, "Asha", models.RoleCitizen, true))
	mock.ExpectExec("UPDATE users").
		WillReturnResult(sqlmock.NewResult(0, 1))

	user, err := svc.CreateUser(models.CreateUserRequest{
		Name:         "Asha",
		MobileNumber: "9876543210",
		Role:         models.RoleRepresentative,
		LocalityID:   &localityID,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(12), user.ID)
	assert.Equal(t, models.RoleRepresentative, user.Role)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateUserDuplicateSameRoleConflicts(t *testing.T) {
	svc, mock := newTestUserService(t)

	mock.ExpectQuery("WHERE mobile_number = \\?").WithArgs("9876543210").
		WillReturnRows(userRow(12, "Suresh", models.RolePWDWorker, true))

	_, err := svc.CreateUser(models.CreateUserRequest{
		Name:         "Suresh",
		MobileNumber: "9876543210",
		Role:         models.RolePWDWorker,
	})
	var cErr *ConflictError
	require.ErrorAs(t, err, &cErr)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateUserValidation(t *testing.T) {
	svc, _ := newTestUserService(t)
	var vErr *ValidationError

	_, err := svc.CreateUser(models.CreateUserRequest{
		Name: "Suresh", MobileNumber: "12345", Role: models.RolePWDWorker,
	})
	require.ErrorAs(t, err, &vErr)

	_, err = svc.CreateUser(models.CreateUserRequest{
		Name: "Suresh", MobileNumber: "9876543210", Role: models.RoleCitizen,
	})
	require.ErrorAs(t, err, &vErr)
}

func TestDeactivateUserRefusesSelf(t *testing.T) {
	svc, _ := newTestUserService(t)

	err := svc.DeactivateUser(7, 7)
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Contains(t, vErr.Message, "yourself")
}

func TestDeactivateUser(t *testing.T) {
	svc, mock := newTestUserService(t)

	mock.ExpectQuery("FROM users WHERE id = \\?").WithArgs(int64(7)).
		WillReturnRows(userRow(7, "Suresh", models.RolePWDWorker, true))
	mock.ExpectExec("UPDATE users SET is_active = FALSE").WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, svc.DeactivateUser(7, 1))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetUserNotFound(t *testing.T) {
	svc, mock := newTestUserService(t)
	mock.ExpectQuery("FROM users WHERE id = \\?").WithArgs(int64(99)).
		WillReturnError(sql.ErrNoRows)

	_, err := svc.GetUser(99)
	require.ErrorIs(t, err, ErrUserNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}
