package store

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestLoadChallengeState_AggregatesTodayPNL(t *testing.T) {
	s, mock := newMockStore(t)

	stateRows := sqlmock.NewRows([]string{
		"status", "current_balance", "id", "account_size", "max_daily_loss", "profit_target",
	}).AddRow("ACTIVE", "99400.00", int64(1), "100000.00", "1000.00", "10000.00")
	mock.ExpectQuery("SELECT uc.status").WithArgs(int64(7)).WillReturnRows(stateRows)

	pnlRows := sqlmock.NewRows([]string{"coalesce"}).AddRow("-600.00")
	mock.ExpectQuery("SELECT COALESCE").WithArgs(int64(7)).WillReturnRows(pnlRows)

	st, err := s.LoadChallengeState(context.Background(), 7)
	if err != nil {
		t.Fatalf("LoadChallengeState returned error: %v", err)
	}
	if st.TodayPNL.String() != "-600.00" {
		t.Errorf("TodayPNL = %s, want -600.00", st.TodayPNL)
	}
	if st.MaxDailyLoss == nil || st.MaxDailyLoss.String() != "1000.00" {
		t.Errorf("MaxDailyLoss = %v, want 1000.00", st.MaxDailyLoss)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestSetChallengeFailed_UpdatesBothTables(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE user_challenges SET status = 'FAILED'").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE trading_accounts SET is_active = false").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := s.SetChallengeFailed(context.Background(), 7, 1); err != nil {
		t.Fatalf("SetChallengeFailed returned error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestSetChallengePassed(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec("UPDATE user_challenges SET status = 'PASSED'").WillReturnResult(sqlmock.NewResult(0, 1))

	if err := s.SetChallengePassed(context.Background(), 7); err != nil {
		t.Fatalf("SetChallengePassed returned error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}
