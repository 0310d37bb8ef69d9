package engine

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"quotefeed/internal/store"
)

func TestRuleEvaluator_DailyLossFailsChallenge(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()
	s := store.NewForTesting(db)
	re := NewRuleEvaluator(s)

	stateRows := sqlmock.NewRows([]string{
		"status", "current_balance", "id", "account_size", "max_daily_loss", "profit_target",
	}).AddRow("ACTIVE", "98900.00", int64(1), "100000.00", "1000.00", "10000.00")
	mock.ExpectQuery("SELECT uc.status").WithArgs(int64(7)).WillReturnRows(stateRows)

	pnlRows := sqlmock.NewRows([]string{"coalesce"}).AddRow("-1100.00")
	mock.ExpectQuery("SELECT COALESCE").WithArgs(int64(7)).WillReturnRows(pnlRows)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE user_challenges SET status = 'FAILED'").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE trading_accounts SET is_active = false").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := re.Evaluate(context.Background(), 7); err != nil {
		t.Fatalf("Evaluate returned error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestRuleEvaluator_ProfitTargetPassesChallenge(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()
	s := store.NewForTesting(db)
	re := NewRuleEvaluator(s)

	stateRows := sqlmock.NewRows([]string{
		"status", "current_balance", "id", "account_size", "max_daily_loss", "profit_target",
	}).AddRow("ACTIVE", "110500.00", int64(1), "100000.00", "1000.00", "10000.00")
	mock.ExpectQuery("SELECT uc.status").WithArgs(int64(7)).WillReturnRows(stateRows)

	pnlRows := sqlmock.NewRows([]string{"coalesce"}).AddRow("2000.00")
	mock.ExpectQuery("SELECT COALESCE").WithArgs(int64(7)).WillReturnRows(pnlRows)

	mock.ExpectExec("UPDATE user_challenges SET status = 'PASSED'").WillReturnResult(sqlmock.NewResult(0, 1))

	if err := re.Evaluate(context.Background(), 7); err != nil {
		t.Fatalf("Evaluate returned error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestRuleEvaluator_TerminalStateIsNoop(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()
	s := store.NewForTesting(db)
	re := NewRuleEvaluator(s)

	stateRows := sqlmock.NewRows([]string{
		"status", "current_balance", "id", "account_size", "max_daily_loss", "profit_target",
	}).AddRow("FAILED", "50000.00", int64(1), "100000.00", "1000.00", "10000.00")
	mock.ExpectQuery("SELECT uc.status").WithArgs(int64(7)).WillReturnRows(stateRows)

	pnlRows := sqlmock.NewRows([]string{"coalesce"}).AddRow("-50000.00")
	mock.ExpectQuery("SELECT COALESCE").WithArgs(int64(7)).WillReturnRows(pnlRows)

	if err := re.Evaluate(context.Background(), 7); err != nil {
		t.Fatalf("Evaluate returned error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unexpected write on terminal status: %v", err)
	}
}
