package db

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"reciclaai/internal/reputation"
	"reciclaai/models"
)

func newMockStorage(t *testing.T) (*Storage, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })
	return NewStorage(sqlx.NewDb(mockDB, "sqlmock")), mock
}

func TestAcceptCollectionRequest(t *testing.T) {
	s, mock := newMockStorage(t)

	mock.ExpectExec(regexp.QuoteMeta("SET collector_id=$1, status='ACCEPTED'")).
		WithArgs(7, 3).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := s.AcceptCollectionRequest(context.Background(), 3, 7)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

// Проигранная гонка: условный UPDATE не нашёл строку в статусе REQUESTED
func TestAcceptCollectionRequestLostRace(t *testing.T) {
	s, mock := newMockStorage(t)

	mock.ExpectExec(regexp.QuoteMeta("SET collector_id=$1, status='ACCEPTED'")).
		WithArgs(7, 3).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := s.AcceptCollectionRequest(context.Background(), 3, 7)
	require.ErrorIs(t, err, ErrNoMatch)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelCollectionRequestNoMatch(t *testing.T) {
	s, mock := newMockStorage(t)

	mock.ExpectExec(regexp.QuoteMeta("SET status='CANCELLED'")).
		WithArgs(3, 11).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := s.CancelCollectionRequest(context.Background(), 3, 11)
	require.ErrorIs(t, err, ErrNoMatch)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkAwaitingConfirmationRequiresCooperative(t *testing.T) {
	s, mock := newMockStorage(t)

	mock.ExpectExec(regexp.QuoteMeta("cooperative_id IS NOT NULL")).
		WithArgs(3, 7).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := s.MarkAwaitingConfirmation(context.Background(), 3, 7)
	require.ErrorIs(t, err, ErrNoMatch)
	require.NoError(t, mock.ExpectationsWereMet())
}

// Оценка выполняется в одной транзакции: вставка следа оценки, блокировка
// строки оцениваемого, пересчёт среднего, запись
func TestSubmitProducerRating(t *testing.T) {
	s, mock := newMockStorage(t)
	score, err := reputation.ParseScore("5")
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO rating_submission (request_id, rater_role)")).
		WithArgs(3, "collector").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT rating_average, rating_count FROM producer WHERE id=$1 FOR UPDATE")).
		WithArgs(9).
		WillReturnRows(sqlmock.NewRows([]string{"rating_average", "rating_count"}).AddRow("0.00", 0))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE producer SET rating_average=$1, rating_count=$2 WHERE id=$3")).
		WithArgs("5.00", 1, 9).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	next, err := s.SubmitProducerRating(context.Background(), 3, 9, score)
	require.NoError(t, err)
	require.Equal(t, "5.00", next)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmitCollectorRatingSecondSubmission(t *testing.T) {
	s, mock := newMockStorage(t)
	score, err := reputation.ParseScore("3")
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO rating_submission (request_id, rater_role)")).
		WithArgs(4, "producer").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT rating_average, rating_count FROM collector WHERE id=$1 FOR UPDATE")).
		WithArgs(6).
		WillReturnRows(sqlmock.NewRows([]string{"rating_average", "rating_count"}).AddRow("5.00", 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE collector SET rating_average=$1, rating_count=$2 WHERE id=$3")).
		WithArgs("4.00", 2, 6).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	next, err := s.SubmitCollectorRating(context.Background(), 4, 6, score)
	require.NoError(t, err)
	require.Equal(t, "4.00", next)
	require.NoError(t, mock.ExpectationsWereMet())
}

// Повторная оценка той же заявки той же стороной упирается в ограничение
// уникальности и откатывается
func TestSubmitProducerRatingDuplicate(t *testing.T) {
	s, mock := newMockStorage(t)
	score, err := reputation.ParseScore("4")
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO rating_submission (request_id, rater_role)")).
		WithArgs(3, "collector").
		WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectRollback()

	_, err = s.SubmitProducerRating(context.Background(), 3, 9, score)
	require.ErrorIs(t, err, ErrDuplicate)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReplaceCooperativeMaterials(t *testing.T) {
	s, mock := newMockStorage(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO cooperative_material (cooperative_id, material, offered_price)")).
		WithArgs(2, "Plastic", "1.20").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO cooperative_material (cooperative_id, material, offered_price)")).
		WithArgs(2, "Glass", "0.45").
		WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM cooperative_material")).
		WithArgs(2, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := s.ReplaceCooperativeMaterials(context.Background(), 2, []models.CooperativeMaterial{
		{Material: "Plastic", OfferedPrice: "1.20"},
		{Material: "Glass", OfferedPrice: "0.45"},
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
