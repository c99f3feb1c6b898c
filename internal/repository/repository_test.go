package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/gymdesk/internal/model"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return db, mock
}

var planCols = []string{"id", "name", "duration_months", "price", "price_efectivo", "price_debito_automatico",
	"price_tarjeta_transferencia", "is_active", "description", "created_at", "updated_at"}

func TestPlanListHidesInactiveByDefault(t *testing.T) {
	db, mock := newMock(t)
	now := time.Now()
	mock.ExpectQuery(`FROM membership_plans WHERE is_active = 1 ORDER BY duration_months, name`).
		WillReturnRows(sqlmock.NewRows(planCols).
			AddRow(1, "Socio_Basic", 1, "30000.00", "28000.00", nil, nil, true, "", now, now).
			AddRow(2, "Socio_Trimestral", 3, "85000.00", nil, nil, nil, true, "", now, now))

	plans, err := NewPlanRepo(db).List(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, plans, 2)
	assert.Equal(t, "Socio_Basic", plans[0].Name)
	assert.Equal(t, "30000", plans[0].Price.String())
	assert.True(t, plans[0].PriceEfectivo.Valid)
	assert.False(t, plans[1].PriceEfectivo.Valid)
}

func TestPlanListIncludeInactive(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(`FROM membership_plans ORDER BY duration_months, name`).
		WillReturnRows(sqlmock.NewRows(planCols))

	plans, err := NewPlanRepo(db).List(context.Background(), true)
	require.NoError(t, err)
	assert.NotNil(t, plans)
	assert.Empty(t, plans)
}

func TestPlanGetMissing(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(`FROM membership_plans WHERE id = \?`).WithArgs(99).
		WillReturnRows(sqlmock.NewRows(planCols))

	_, err := NewPlanRepo(db).GetByID(context.Background(), 99)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPlanCreateDuplicateName(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec(`INSERT INTO membership_plans`).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'Socio_Basic'"})

	err := NewPlanRepo(db).Create(context.Background(), &model.MembershipPlan{Name: "Socio_Basic", DurationMonths: 1})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestMembershipExpiringWindow(t *testing.T) {
	db, mock := newMock(t)
	from := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 7)
	mock.ExpectQuery(`WHERE m.status = \? AND m.end_date >= \? AND m.end_date <= \?`).
		WithArgs(model.MembershipActive, from, to).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	out, err := NewMembershipRepo(db).Expiring(context.Background(), from, to)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestProspectMarkConvertedTwice(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec(`UPDATE prospects SET converted_to_lead = 1`).
		WithArgs(4, 9).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE prospects SET converted_to_lead = 1`).
		WithArgs(4, 9).
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := NewProspectRepo(db)
	require.NoError(t, repo.MarkConvertedTx(context.Background(), db, 9, 4))
	assert.ErrorIs(t, repo.MarkConvertedTx(context.Background(), db, 9, 4), ErrConflict)
}

func TestLeadMarkConvertedTwice(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec(`UPDATE leads SET status = \?, converted_to_user = 1`).
		WithArgs(model.LeadConverted, 5).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := NewLeadRepo(db).MarkConvertedTx(context.Background(), db, 5)
	assert.ErrorIs(t, err, ErrConflict)
}

func TestLogInsertSystemActor(t *testing.T) {
	db, mock := newMock(t)
	at := time.Date(2025, 5, 2, 10, 0, 0, 0, time.UTC)
	mock.ExpectExec(`INSERT INTO logs`).
		WithArgs(model.ActionProspectCreated, "Prospect Leo captured", nil, model.PerformerSystem, model.SystemName,
			model.EntityProspect, 41, "Leo", nil, nil, nil, `{"utmSource":"ig"}`, at).
		WillReturnResult(sqlmock.NewResult(17, 1))

	id, err := NewLogRepo(db).Insert(context.Background(), model.LogEntry{
		ActionType:  model.ActionProspectCreated,
		Description: "Prospect Leo captured",
		EntityType:  model.EntityProspect,
		EntityID:    41,
		EntityName:  "Leo",
		Metadata:    map[string]any{"utmSource": "ig"},
	}, at)
	require.NoError(t, err)
	assert.Equal(t, uint64(17), id)
}

func TestLogInsertStaffActor(t *testing.T) {
	db, mock := newMock(t)
	user := uint64(8)
	mock.ExpectExec(`INSERT INTO logs`).
		WithArgs(model.ActionUserUpdated, "x", 3, model.PerformerStaff, "Ana",
			model.EntityUser, 8, "Eva", 8, nil, `{"new":{"phone":"2"},"old":{"phone":"1"}}`, nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(18, 1))

	_, err := NewLogRepo(db).Insert(context.Background(), model.LogEntry{
		ActionType:    model.ActionUserUpdated,
		Description:   "x",
		PerformedBy:   model.StaffActor(3, "Ana"),
		EntityType:    model.EntityUser,
		EntityID:      8,
		EntityName:    "Eva",
		RelatedUserID: &user,
		Changes:       model.Snapshot(map[string]any{"phone": "1"}, map[string]any{"phone": "2"}),
	}, time.Now())
	require.NoError(t, err)
}

func TestLogListByUser(t *testing.T) {
	db, mock := newMock(t)
	cols := []string{"id", "action_type", "description", "performed_by_id", "performed_by_type", "performed_by_name",
		"entity_type", "entity_id", "entity_name", "related_user_id", "related_membership_id", "changes", "metadata", "created_at"}
	mock.ExpectQuery(`FROM logs WHERE related_user_id = \? ORDER BY created_at DESC, id DESC LIMIT \?`).
		WithArgs(8, DefaultLogLimit).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow(3, "user_updated", "x", nil, "system", "Sistema", "user", 8, "Eva", 8, nil,
				[]byte(`{"old":{"phone":"1"}}`), nil, time.Now()))

	user := uint64(8)
	rows, err := NewLogRepo(db).List(context.Background(), model.LogFilter{UserID: &user})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Nil(t, rows[0].PerformedBy.ID)
	assert.Equal(t, model.PerformerSystem, rows[0].PerformedBy.Type)
	assert.Equal(t, map[string]any{"phone": "1"}, rows[0].Changes["old"])
	assert.Nil(t, rows[0].Metadata)
	require.NotNil(t, rows[0].RelatedUserID)
	assert.Equal(t, uint64(8), *rows[0].RelatedUserID)
}

func TestLogListCapsLimit(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(`FROM logs ORDER BY created_at DESC, id DESC LIMIT \?`).
		WithArgs(MaxLogLimit).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := NewLogRepo(db).List(context.Background(), model.LogFilter{Limit: 10_000})
	require.NoError(t, err)
}

func TestCompletedBetweenArgs(t *testing.T) {
	db, mock := newMock(t)
	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 3, 31, 23, 59, 59, 0, time.UTC)
	mock.ExpectQuery(`WHERE pa.payment_status = \? AND pa.payment_date >= \? AND pa.payment_date <= \?`).
		WithArgs(model.PaymentCompleted, start, end).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	out, err := NewPaymentRepo(db).CompletedBetween(context.Background(), start, end)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestIsDuplicate(t *testing.T) {
	assert.True(t, isDuplicate(&mysql.MySQLError{Number: 1062}))
	assert.False(t, isDuplicate(&mysql.MySQLError{Number: 1451}))
	assert.True(t, isDuplicate(errors.New("Error 1062 (23000): Duplicate entry")))
	assert.False(t, isDuplicate(nil))
}

func TestClampLimit(t *testing.T) {
	assert.Equal(t, 50, clampLimit(0, 50, 500))
	assert.Equal(t, 20, clampLimit(20, 50, 500))
	assert.Equal(t, 500, clampLimit(900, 50, 500))
}

func TestRefreshTokenRotation(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(`FROM refresh_tokens\s+WHERE token_hash = \? AND revoked_at IS NULL AND expires_at > \?`).
		WithArgs("h1", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"staff_id"}).AddRow(7))
	mock.ExpectExec(`UPDATE refresh_tokens SET revoked_at = UTC_TIMESTAMP\(\) WHERE token_hash = \?`).
		WithArgs("h1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE refresh_tokens SET revoked_at = UTC_TIMESTAMP\(\) WHERE token_hash = \?`).
		WithArgs("h1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := NewTokenRepo(db)
	id, err := repo.ValidateRefresh(context.Background(), "h1")
	require.NoError(t, err)
	assert.Equal(t, uint64(7), id)
	require.NoError(t, repo.RevokeByHash(context.Background(), "h1"))
	assert.ErrorIs(t, repo.RevokeByHash(context.Background(), "h1"), ErrNotFound)
}

func TestRefreshTokenUnknown(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(`FROM refresh_tokens`).WillReturnError(sql.ErrNoRows)

	_, err := NewTokenRepo(db).ValidateRefresh(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}
