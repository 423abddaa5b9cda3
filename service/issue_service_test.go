package service

import (
	"context"
	"database/sql"
	"math"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jansarthi/models"
	"jansarthi/repository"
)

func testTime() time.Time {
	return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
}

func newTestIssueService(t *testing.T) (*IssueService, sqlmock.Sqlmock, *fakeStore) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store := newFakeStore()
	issueRepo := repository.NewIssueRepository(db)
	localityRepo := repository.NewLocalityRepository(db)
	userRepo := repository.NewUserRepository(db)
	photos := NewPhotoManager(issueRepo, store, testPhotoConfig())
	resolver := NewRepresentativeResolver(userRepo)
	svc := NewIssueService(issueRepo, localityRepo, userRepo, resolver, photos)
	return svc, mock, store
}

var issueCols = []string{
	"id", "issue_type", "description", "latitude", "longitude", "locality_id",
	"status", "user_id", "assigned_parshad_id", "assignment_notes",
	"progress_notes", "completion_description", "completion_photo_key",
	"completed_at", "completed_by_id", "created_at", "updated_at",
}

// issueRow builds one issues row with the given status, assignee and
// completion timestamp; everything else is a fixed plausible issue.
func issueRow(id int64, status models.IssueStatus, parshadID, completedAt interface{}) *sqlmock.Rows {
	return sqlmock.NewRows(issueCols).AddRow(
		id, "water", "Broken pipe flooding the lane", 28.6, 77.2, nil,
		string(status), 9, parshadID, nil,
		nil, nil, nil,
		completedAt, nil, testTime(), testTime(),
	)
}

// issueRowInLocality is issueRow with the locality FK populated, for
// flows that resolve the locality.
func issueRowInLocality(id int64, status models.IssueStatus, localityID int64, parshadID interface{}) *sqlmock.Rows {
	return sqlmock.NewRows(issueCols).AddRow(
		id, "water", "Broken pipe flooding the lane", 28.6, 77.2, localityID,
		string(status), 9, parshadID, nil,
		nil, nil, nil,
		nil, nil, testTime(), testTime(),
	)
}

var userCols = []string{
	"id", "name", "mobile_number", "role", "is_active", "is_verified",
	"locality_id", "created_at", "updated_at",
}

func userRow(id int64, name string, role models.UserRole, active bool) *sqlmock.Rows {
	return sqlmock.NewRows(userCols).AddRow(
		id, name, "9876543210", string(role), active, true, 5, testTime(), testTime(),
	)
}

func localityRow(id int64, name string, localityType models.LocalityType) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "name", "type", "is_active", "created_at", "updated_at"}).
		AddRow(id, name, string(localityType), true, testTime(), testTime())
}

func expectIssueDetail(mock sqlmock.Sqlmock, id int64, status models.IssueStatus, parshadID interface{}) {
	mock.ExpectQuery("FROM issues WHERE id = \\?").WithArgs(id).
		WillReturnRows(issueRow(id, status, parshadID, nil))
	mock.ExpectQuery("FROM issue_photos WHERE issue_id = \\?").WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"id", "issue_id", "object_key", "filename", "file_size", "content_type", "created_at"}))
}

func TestCreateIssueAutoAssignsActiveRepresentative(t *testing.T) {
	svc, mock, store := newTestIssueService(t)
	localityID := int64(5)
	userID := int64(9)

	mock.ExpectQuery("FROM localities WHERE id = \\?").WithArgs(localityID).
		WillReturnRows(localityRow(localityID, "Shastri Nagar", models.LocalityWard))
	mock.ExpectQuery("FROM users").WithArgs(string(models.RoleRepresentative), localityID).
		WillReturnRows(userRow(3, "Asha", models.RoleRepresentative, true))

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO issues").
		WithArgs("water", "Broken pipe flooding the lane", 28.6, 77.2, localityID,
			string(models.StatusAssigned), userID, int64(3),
			"Auto-assigned to Parshad Asha of ward 5").
		WillReturnResult(sqlmock.NewResult(42, 1))
	mock.ExpectExec("INSERT INTO issue_photos").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	resp, err := svc.CreateIssue(context.Background(), models.CreateIssueInput{
		IssueType:   models.IssueWater,
		Description: "Broken pipe flooding the lane",
		Latitude:    28.6,
		Longitude:   77.2,
		LocalityID:  &localityID,
		UserID:      &userID,
		Photos:      []models.PhotoUpload{jpeg("pipe.jpg", 100)},
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusAssigned, resp.Status)
	require.NotNil(t, resp.AssignedParshadID)
	assert.Equal(t, int64(3), *resp.AssignedParshadID)
	assert.Equal(t, "Auto-assigned to Parshad Asha of ward 5", resp.AssignmentNotes)
	assert.Equal(t, 1, store.count())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateIssueWithoutRepresentativeStaysReported(t *testing.T) {
	svc, mock, _ := newTestIssueService(t)
	localityID := int64(5)

	mock.ExpectQuery("FROM localities WHERE id = \\?").WithArgs(localityID).
		WillReturnRows(localityRow(localityID, "Rampur", models.LocalityVillage))
	mock.ExpectQuery("FROM users").WithArgs(string(models.RoleRepresentative), localityID).
		WillReturnError(sql.ErrNoRows)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO issues").
		WithArgs("road", "Potholes all along the main street", 28.6, 77.2, localityID,
			string(models.StatusReported), nil, nil,
			"No Pradhan assigned to village 5. Issue is unassigned.").
		WillReturnResult(sqlmock.NewResult(43, 1))
	mock.ExpectCommit()

	resp, err := svc.CreateIssue(context.Background(), models.CreateIssueInput{
		IssueType:   models.IssueRoad,
		Description: "Potholes all along the main street",
		Latitude:    28.6,
		Longitude:   77.2,
		LocalityID:  &localityID,
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusReported, resp.Status)
	assert.Nil(t, resp.AssignedParshadID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateIssueRejectsInvalidPhotoBatchBeforeAnyWrite(t *testing.T) {
	svc, mock, store := newTestIssueService(t)
	localityID := int64(5)

	_, err := svc.CreateIssue(context.Background(), models.CreateIssueInput{
		IssueType:   models.IssueWater,
		Description: "Broken pipe flooding the lane",
		Latitude:    28.6,
		Longitude:   77.2,
		LocalityID:  &localityID,
		Photos: []models.PhotoUpload{
			jpeg("a.jpg", 1), jpeg("b.jpg", 1), jpeg("c.jpg", 1), jpeg("d.jpg", 1),
		},
	})
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)

	// no issue row, no photo row, no blob: the batch failed validation
	// before anything was written
	assert.Equal(t, 0, store.count())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateIssueCleansUpBlobsWhenTransactionFails(t *testing.T) {
	svc, mock, store := newTestIssueService(t)
	localityID := int64(5)

	mock.ExpectQuery("FROM localities WHERE id = \\?").WithArgs(localityID).
		WillReturnRows(localityRow(localityID, "Shastri Nagar", models.LocalityWard))
	mock.ExpectQuery("FROM users").WithArgs(string(models.RoleRepresentative), localityID).
		WillReturnRows(userRow(3, "Asha", models.RoleRepresentative, true))

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO issues").
		WillReturnError(sql.ErrConnDone)
	mock.ExpectRollback()

	_, err := svc.CreateIssue(context.Background(), models.CreateIssueInput{
		IssueType:   models.IssueWater,
		Description: "Broken pipe flooding the lane",
		Latitude:    28.6,
		Longitude:   77.2,
		LocalityID:  &localityID,
		Photos:      []models.PhotoUpload{jpeg("pipe.jpg", 100), jpeg("pipe2.jpg", 100)},
	})
	require.Error(t, err)

	// uploaded blobs were compensated away
	assert.Equal(t, 0, store.count())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTransitionAcceptsOnlyImmediateSuccessor(t *testing.T) {
	tests := []struct {
		name    string
		current models.IssueStatus
		target  models.IssueStatus
	}{
		{"skip ahead", models.StatusAssigned, models.StatusPWDWorking},
		{"regress", models.StatusPWDWorking, models.StatusAssigned},
		{"repeat current", models.StatusPWDWorking, models.StatusPWDWorking},
		{"terminal state", models.StatusRepresentativeReviewed, models.StatusReported},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, mock, _ := newTestIssueService(t)
			mock.ExpectQuery("FROM issues WHERE id = \\?").WithArgs(int64(1)).
				WillReturnRows(issueRow(1, tt.current, int64(3), nil))
			mock.ExpectQuery("FROM users WHERE id = \\?").WithArgs(int64(3)).
				WillReturnRows(userRow(3, "Asha", models.RoleRepresentative, true))

			_, err := svc.TransitionIssue(context.Background(), 1, 3, models.TransitionInput{Target: tt.target})
			var tErr *InvalidTransitionError
			require.ErrorAs(t, err, &tErr)
			assert.Equal(t, tt.current, tErr.Current)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestTransitionEnforcesRoles(t *testing.T) {
	tests := []struct {
		name    string
		current models.IssueStatus
		target  models.IssueStatus
		actor   *sqlmock.Rows
		actorID int64
	}{
		{
			name:    "citizen cannot acknowledge",
			current: models.StatusAssigned,
			target:  models.StatusRepresentativeAcknowledged,
			actor:   userRow(9, "Ravi", models.RoleCitizen, true),
			actorID: 9,
		},
		{
			name:    "unassigned representative cannot acknowledge",
			current: models.StatusAssigned,
			target:  models.StatusRepresentativeAcknowledged,
			actor:   userRow(4, "Meena", models.RoleRepresentative, true),
			actorID: 4,
		},
		{
			name:    "representative cannot start work",
			current: models.StatusRepresentativeAcknowledged,
			target:  models.StatusPWDWorking,
			actor:   userRow(3, "Asha", models.RoleRepresentative, true),
			actorID: 3,
		},
		{
			name:    "pwd worker cannot review",
			current: models.StatusPWDCompleted,
			target:  models.StatusRepresentativeReviewed,
			actor:   userRow(7, "Suresh", models.RolePWDWorker, true),
			actorID: 7,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, mock, _ := newTestIssueService(t)
			mock.ExpectQuery("FROM issues WHERE id = \\?").WithArgs(int64(1)).
				WillReturnRows(issueRow(1, tt.current, int64(3), nil))
			mock.ExpectQuery("FROM users WHERE id = \\?").WithArgs(tt.actorID).
				WillReturnRows(tt.actor)

			_, err := svc.TransitionIssue(context.Background(), 1, tt.actorID, models.TransitionInput{Target: tt.target})
			var tErr *InvalidTransitionError
			require.ErrorAs(t, err, &tErr)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestTransitionHappyPath(t *testing.T) {
	svc, mock, _ := newTestIssueService(t)

	mock.ExpectQuery("FROM issues WHERE id = \\?").WithArgs(int64(1)).
		WillReturnRows(issueRow(1, models.StatusAssigned, int64(3), nil))
	mock.ExpectQuery("FROM users WHERE id = \\?").WithArgs(int64(3)).
		WillReturnRows(userRow(3, "Asha", models.RoleRepresentative, true))
	mock.ExpectExec("UPDATE issues").
		WithArgs(string(models.StatusRepresentativeAcknowledged), sqlmock.AnyArg(), int64(1), string(models.StatusAssigned)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	expectIssueDetail(mock, 1, models.StatusRepresentativeAcknowledged, int64(3))

	resp, err := svc.TransitionIssue(context.Background(), 1, 3, models.TransitionInput{
		Target: models.StatusRepresentativeAcknowledged,
		Notes:  "Verified on site",
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusRepresentativeAcknowledged, resp.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTransitionLosesRaceToConcurrentUpdate(t *testing.T) {
	svc, mock, _ := newTestIssueService(t)

	mock.ExpectQuery("FROM issues WHERE id = \\?").WithArgs(int64(1)).
		WillReturnRows(issueRow(1, models.StatusAssigned, int64(3), nil))
	mock.ExpectQuery("FROM users WHERE id = \\?").WithArgs(int64(3)).
		WillReturnRows(userRow(3, "Asha", models.RoleRepresentative, true))
	// another request moved the issue forward between our read and write
	mock.ExpectExec("UPDATE issues").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("FROM issues WHERE id = \\?").WithArgs(int64(1)).
		WillReturnRows(issueRow(1, models.StatusRepresentativeAcknowledged, int64(3), nil))

	_, err := svc.TransitionIssue(context.Background(), 1, 3, models.TransitionInput{
		Target: models.StatusRepresentativeAcknowledged,
	})
	var tErr *InvalidTransitionError
	require.ErrorAs(t, err, &tErr)
	assert.Equal(t, models.StatusRepresentativeAcknowledged, tErr.Current)
	assert.Contains(t, tErr.Reason, "concurrently")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCompletionRequiresDescriptionAndSetsFieldsOnce(t *testing.T) {
	t.Run("missing description", func(t *testing.T) {
		svc, mock, _ := newTestIssueService(t)
		mock.ExpectQuery("FROM issues WHERE id = \\?").WithArgs(int64(1)).
			WillReturnRows(issueRow(1, models.StatusPWDWorking, int64(3), nil))
		mock.ExpectQuery("FROM users WHERE id = \\?").WithArgs(int64(7)).
			WillReturnRows(userRow(7, "Suresh", models.RolePWDWorker, true))

		_, err := svc.TransitionIssue(context.Background(), 1, 7, models.TransitionInput{
			Target: models.StatusPWDCompleted,
		})
		var vErr *ValidationError
		require.ErrorAs(t, err, &vErr)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("completes with photo", func(t *testing.T) {
		svc, mock, store := newTestIssueService(t)
		mock.ExpectQuery("FROM issues WHERE id = \\?").WithArgs(int64(1)).
			WillReturnRows(issueRow(1, models.StatusPWDWorking, int64(3), nil))
		mock.ExpectQuery("FROM users WHERE id = \\?").WithArgs(int64(7)).
			WillReturnRows(userRow(7, "Suresh", models.RolePWDWorker, true))
		mock.ExpectExec("UPDATE issues").
			WithArgs(string(models.StatusPWDCompleted), "Pipe replaced", sqlmock.AnyArg(),
				sqlmock.AnyArg(), int64(7), int64(1), string(models.StatusPWDWorking)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		expectIssueDetail(mock, 1, models.StatusPWDCompleted, int64(3))

		photo := jpeg("after.jpg", 100)
		resp, err := svc.TransitionIssue(context.Background(), 1, 7, models.TransitionInput{
			Target:                models.StatusPWDCompleted,
			CompletionDescription: "Pipe replaced",
			CompletionPhoto:       &photo,
		})
		require.NoError(t, err)
		assert.Equal(t, models.StatusPWDCompleted, resp.Status)
		assert.Equal(t, 1, store.count())
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("refuses a second completion", func(t *testing.T) {
		svc, mock, _ := newTestIssueService(t)
		// a row stuck in pwd_working but already carrying completion data
		mock.ExpectQuery("FROM issues WHERE id = \\?").WithArgs(int64(1)).
			WillReturnRows(issueRow(1, models.StatusPWDWorking, int64(3), testTime()))
		mock.ExpectQuery("FROM users WHERE id = \\?").WithArgs(int64(7)).
			WillReturnRows(userRow(7, "Suresh", models.RolePWDWorker, true))

		_, err := svc.TransitionIssue(context.Background(), 1, 7, models.TransitionInput{
			Target:                models.StatusPWDCompleted,
			CompletionDescription: "Pipe replaced",
		})
		var tErr *InvalidTransitionError
		require.ErrorAs(t, err, &tErr)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

// The Asha scenario: while Asha is the active representative of ward 5 new
// issues are assigned to her; once she is deactivated new issues come in
// unassigned, and after Meena takes over they go to Meena. Existing
// assignments are never touched.
func TestReassignmentAffectsOnlyNewIssues(t *testing.T) {
	svc, mock, _ := newTestIssueService(t)
	localityID := int64(5)

	input := models.CreateIssueInput{
		IssueType:   models.IssueWater,
		Description: "Broken pipe flooding the lane",
		Latitude:    28.6,
		Longitude:   77.2,
		LocalityID:  &localityID,
	}

	// issue 1: Asha active
	mock.ExpectQuery("FROM localities WHERE id = \\?").WithArgs(localityID).
		WillReturnRows(localityRow(localityID, "Shastri Nagar", models.LocalityWard))
	mock.ExpectQuery("FROM users").WithArgs(string(models.RoleRepresentative), localityID).
		WillReturnRows(userRow(3, "Asha", models.RoleRepresentative, true))
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO issues").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	first, err := svc.CreateIssue(context.Background(), input)
	require.NoError(t, err)
	require.NotNil(t, first.AssignedParshadID)
	assert.Equal(t, int64(3), *first.AssignedParshadID)

	// issue 2: Asha deactivated, nobody serves the ward
	mock.ExpectQuery("FROM localities WHERE id = \\?").WithArgs(localityID).
		WillReturnRows(localityRow(localityID, "Shastri Nagar", models.LocalityWard))
	mock.ExpectQuery("FROM users").WithArgs(string(models.RoleRepresentative), localityID).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO issues").WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()

	second, err := svc.CreateIssue(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, models.StatusReported, second.Status)
	assert.Nil(t, second.AssignedParshadID)

	// issue 3: Meena appointed
	mock.ExpectQuery("FROM localities WHERE id = \\?").WithArgs(localityID).
		WillReturnRows(localityRow(localityID, "Shastri Nagar", models.LocalityWard))
	mock.ExpectQuery("FROM users").WithArgs(string(models.RoleRepresentative), localityID).
		WillReturnRows(userRow(4, "Meena", models.RoleRepresentative, true))
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO issues").WillReturnResult(sqlmock.NewResult(3, 1))
	mock.ExpectCommit()

	third, err := svc.CreateIssue(context.Background(), input)
	require.NoError(t, err)
	require.NotNil(t, third.AssignedParshadID)
	assert.Equal(t, int64(4), *third.AssignedParshadID)

	// the first issue keeps its original assignee
	assert.Equal(t, int64(3), *first.AssignedParshadID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAdminAssignmentBindsRepresentative(t *testing.T) {
	svc, mock, _ := newTestIssueService(t)
	localityID := int64(5)

	mock.ExpectQuery("FROM issues WHERE id = \\?").WithArgs(int64(1)).
		WillReturnRows(issueRowInLocality(1, models.StatusReported, localityID, nil))
	mock.ExpectQuery("FROM users WHERE id = \\?").WithArgs(int64(2)).
		WillReturnRows(userRow(2, "Admin", models.RoleAdmin, true))
	mock.ExpectQuery("FROM localities WHERE id = \\?").WithArgs(localityID).
		WillReturnRows(localityRow(localityID, "Shastri Nagar", models.LocalityWard))
	mock.ExpectQuery("FROM users").WithArgs(string(models.RoleRepresentative), localityID).
		WillReturnRows(userRow(3, "Asha", models.RoleRepresentative, true))
	// status and assignee land in one conditional update
	mock.ExpectExec("UPDATE issues").
		WithArgs(string(models.StatusAssigned), int64(3),
			"Auto-assigned to Parshad Asha of ward 5",
			int64(1), string(models.StatusReported)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	// detail read after the transition
	mock.ExpectQuery("FROM issues WHERE id = \\?").WithArgs(int64(1)).
		WillReturnRows(issueRowInLocality(1, models.StatusAssigned, localityID, int64(3)))
	mock.ExpectQuery("FROM issue_photos WHERE issue_id = \\?").WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "issue_id", "object_key", "filename", "file_size", "content_type", "created_at"}))
	mock.ExpectQuery("FROM localities WHERE id = \\?").WithArgs(localityID).
		WillReturnRows(localityRow(localityID, "Shastri Nagar", models.LocalityWard))

	resp, err := svc.TransitionIssue(context.Background(), 1, 2, models.TransitionInput{
		Target: models.StatusAssigned,
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusAssigned, resp.Status)
	require.NotNil(t, resp.AssignedParshadID)
	assert.Equal(t, int64(3), *resp.AssignedParshadID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAdminAssignmentRefusedWithoutRepresentative(t *testing.T) {
	t.Run("unserved locality", func(t *testing.T) {
		svc, mock, _ := newTestIssueService(t)
		localityID := int64(5)

		mock.ExpectQuery("FROM issues WHERE id = \\?").WithArgs(int64(1)).
			WillReturnRows(issueRowInLocality(1, models.StatusReported, localityID, nil))
		mock.ExpectQuery("FROM users WHERE id = \\?").WithArgs(int64(2)).
			WillReturnRows(userRow(2, "Admin", models.RoleAdmin, true))
		mock.ExpectQuery("FROM localities WHERE id = \\?").WithArgs(localityID).
			WillReturnRows(localityRow(localityID, "Shastri Nagar", models.LocalityWard))
		mock.ExpectQuery("FROM users").WithArgs(string(models.RoleRepresentative), localityID).
			WillReturnError(sql.ErrNoRows)

		_, err := svc.TransitionIssue(context.Background(), 1, 2, models.TransitionInput{
			Target: models.StatusAssigned,
		})
		var tErr *InvalidTransitionError
		require.ErrorAs(t, err, &tErr)
		assert.Contains(t, tErr.Reason, "no active representative")
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("issue without locality", func(t *testing.T) {
		svc, mock, _ := newTestIssueService(t)

		mock.ExpectQuery("FROM issues WHERE id = \\?").WithArgs(int64(1)).
			WillReturnRows(issueRow(1, models.StatusReported, nil, nil))
		mock.ExpectQuery("FROM users WHERE id = \\?").WithArgs(int64(2)).
			WillReturnRows(userRow(2, "Admin", models.RoleAdmin, true))

		_, err := svc.TransitionIssue(context.Background(), 1, 2, models.TransitionInput{
			Target: models.StatusAssigned,
		})
		var tErr *InvalidTransitionError
		require.ErrorAs(t, err, &tErr)
		assert.Contains(t, tErr.Reason, "no locality")
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestCreateIssueRejectsNonFiniteCoordinates(t *testing.T) {
	svc, mock, _ := newTestIssueService(t)
	localityID := int64(5)

	for _, coords := range [][2]float64{
		{math.NaN(), 77.2},
		{28.6, math.NaN()},
	} {
		_, err := svc.CreateIssue(context.Background(), models.CreateIssueInput{
			IssueType:   models.IssueWater,
			Description: "Broken pipe flooding the lane",
			Latitude:    coords[0],
			Longitude:   coords[1],
			LocalityID:  &localityID,
		})
		var vErr *ValidationError
		require.ErrorAs(t, err, &vErr)
	}
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAddPhotos(t *testing.T) {
	t.Run("reporter attaches a photo", func(t *testing.T) {
		svc, mock, store := newTestIssueService(t)
		store.objects["issues/existing.jpg"] = []byte("x")

		mock.ExpectQuery("FROM issues WHERE id = \\?").WithArgs(int64(1)).
			WillReturnRows(issueRow(1, models.StatusReported, nil, nil))
		mock.ExpectQuery("FROM users WHERE id = \\?").WithArgs(int64(9)).
			WillReturnRows(userRow(9, "Ravi", models.RoleCitizen, true))
		// cap check against photos already attached
		mock.ExpectQuery("FROM issue_photos WHERE issue_id = \\?").WithArgs(int64(1)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "issue_id", "object_key", "filename", "file_size", "content_type", "created_at"}))
		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO issue_photos").
			WillReturnResult(sqlmock.NewResult(11, 1))
		mock.ExpectCommit()
		// detail read
		mock.ExpectQuery("FROM issues WHERE id = \\?").WithArgs(int64(1)).
			WillReturnRows(issueRow(1, models.StatusReported, nil, nil))
		mock.ExpectQuery("FROM issue_photos WHERE issue_id = \\?").WithArgs(int64(1)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "issue_id", "object_key", "filename", "file_size", "content_type", "created_at"}).
				AddRow(11, 1, "issues/existing.jpg", "more.jpg", 100, "image/jpeg", testTime()))

		resp, err := svc.AddPhotos(context.Background(), 1, 9, []models.PhotoUpload{jpeg("more.jpg", 100)})
		require.NoError(t, err)
		require.Len(t, resp.Photos, 1)
		assert.Contains(t, resp.Photos[0].URL, "https://blobs.example.com/")
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("stranger is refused", func(t *testing.T) {
		svc, mock, _ := newTestIssueService(t)

		mock.ExpectQuery("FROM issues WHERE id = \\?").WithArgs(int64(1)).
			WillReturnRows(issueRow(1, models.StatusReported, nil, nil))
		mock.ExpectQuery("FROM users WHERE id = \\?").WithArgs(int64(4)).
			WillReturnRows(userRow(4, "Meena", models.RoleCitizen, true))

		_, err := svc.AddPhotos(context.Background(), 1, 4, []models.PhotoUpload{jpeg("more.jpg", 100)})
		var vErr *ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Contains(t, vErr.Message, "reporter")
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty batch is refused", func(t *testing.T) {
		svc, _, _ := newTestIssueService(t)
		_, err := svc.AddPhotos(context.Background(), 1, 9, nil)
		var vErr *ValidationError
		require.ErrorAs(t, err, &vErr)
	})
}

func TestGetIssueNotFound(t *testing.T) {
	svc, mock, _ := newTestIssueService(t)
	mock.ExpectQuery("FROM issues WHERE id = \\?").WithArgs(int64(99)).
		WillReturnError(sql.ErrNoRows)

	_, err := svc.GetIssue(context.Background(), 99)
	require.ErrorIs(t, err, ErrIssueNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteIssueRemovesRowsAndBlobs(t *testing.T) {
	svc, mock, store := newTestIssueService(t)

	// seed two blobs so the delete has something to clean up
	uploaded, err := svc.photos.Upload(context.Background(), []models.PhotoUpload{
		jpeg("a.jpg", 10), jpeg("b.jpg", 10),
	})
	require.NoError(t, err)
	require.Equal(t, 2, store.count())

	mock.ExpectQuery("FROM issues WHERE id = \\?").WithArgs(int64(1)).
		WillReturnRows(issueRow(1, models.StatusReported, nil, nil))
	keyRows := sqlmock.NewRows([]string{"object_key"})
	for _, p := range uploaded {
		keyRows.AddRow(p.ObjectKey)
	}
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT object_key FROM issue_photos").WithArgs(int64(1)).
		WillReturnRows(keyRows)
	mock.ExpectExec("DELETE FROM issue_photos").WithArgs(int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("DELETE FROM issues").WithArgs(int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, svc.DeleteIssue(context.Background(), 1))
	assert.Equal(t, 0, store.count())
	require.NoError(t, mock.ExpectationsWereMet())
}
