package workflow

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/mmdatafocus/planning_backend/models"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// newMockDB opens gorm over a sqlmock connection. SkipDefaultTransaction keeps
// single-statement writes out of implicit BEGIN/COMMIT pairs so expectations
// stay readable; tests that care about rollback open a transaction explicitly.
func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	db, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      conn,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{SkipDefaultTransaction: true})
	if err != nil {
		t.Fatalf("gorm.Open: %v", err)
	}
	return db, mock
}

func scheduleRows(id int, status models.ScheduleStatus, committedAt *time.Time) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "tenant_id", "run_id", "status", "committed_at", "created_at"}).
		AddRow(id, "t1", "run-1", string(status), committedAt, time.Now())
}

func TestCommitScheduleRejectsCommittedSchedule(t *testing.T) {
	db, mock := newMockDB(t)
	committedAt := time.Date(2026, 9, 7, 12, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT (.+) FROM `schedules`").
		WillReturnRows(scheduleRows(7, models.ScheduleStatusCommitted, &committedAt))

	collector := NewEventBus(nil).NewCollector()
	_, err := CommitSchedule(context.Background(), db, collector, 7)
	if err != models.ErrAlreadyCommitted {
		t.Fatalf("expected ErrAlreadyCommitted, got %v", err)
	}
	if collector.Pending() != 0 {
		t.Fatalf("a rejected commit must not queue events, got %d", collector.Pending())
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCommitScheduleRollsBackOnOrderConflict(t *testing.T) {
	db, mock := newMockDB(t)
	periodDate := time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM `schedules`").
		WillReturnRows(scheduleRows(7, models.ScheduleStatusDraft, nil))
	mock.ExpectQuery("SELECT (.+) FROM `schedule_assignments`").
		WillReturnRows(sqlmock.NewRows([]string{"id", "schedule_id", "tenant_id", "order_id", "line_id", "period_date", "shift_no", "assigned_qty", "assigned_hours", "position"}).
			AddRow(1, 7, "t1", 41, 1, periodDate, 1, "10.0000", "2.5000", 0).
			AddRow(2, 7, "t1", 42, 1, periodDate, 1, "5.0000", "1.2500", 1))
	// First order flips PENDING -> SCHEDULED; the second was grabbed by a
	// racing writer, so the guarded update matches no row.
	mock.ExpectExec("UPDATE `manufacturing_orders`").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE `manufacturing_orders`").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	collector := NewEventBus(nil).NewCollector()
	err := db.Transaction(func(tx *gorm.DB) error {
		_, err := CommitSchedule(context.Background(), tx, collector, 7)
		return err
	})
	if err != models.ErrOrderStateConflict {
		t.Fatalf("expected ErrOrderStateConflict, got %v", err)
	}
	if collector.Pending() != 0 {
		t.Fatalf("a failed commit must not queue events, got %d", collector.Pending())
	}
	// No schedule update, no commitment insert, no outbox row: the rollback
	// expectation right after the conflicting order update proves it.
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCommitScheduleStampsAndSeedsCommitments(t *testing.T) {
	db, mock := newMockDB(t)
	periodDate := time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM `schedules`").
		WillReturnRows(scheduleRows(7, models.ScheduleStatusDraft, nil))
	mock.ExpectQuery("SELECT (.+) FROM `schedule_assignments`").
		WillReturnRows(sqlmock.NewRows([]string{"id", "schedule_id", "tenant_id", "order_id", "line_id", "period_date", "shift_no", "assigned_qty", "assigned_hours", "position"}).
			AddRow(1, 7, "t1", 41, 1, periodDate, 1, "10.0000", "2.5000", 0).
			AddRow(2, 7, "t1", 42, 1, periodDate, 1, "5.0000", "1.2500", 1).
			AddRow(3, 7, "t1", 42, 1, periodDate, 2, "4.0000", "1.0000", 2))
	mock.ExpectExec("UPDATE `manufacturing_orders`").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE `manufacturing_orders`").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE `schedules`").WillReturnResult(sqlmock.NewResult(0, 1))
	// Three assignments over two (date, shift) periods -> two commitment rows.
	mock.ExpectExec("INSERT INTO `kpi_commitments`").WillReturnResult(sqlmock.NewResult(1, 2))
	mock.ExpectExec("INSERT INTO `planning_event_records`").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	collector := NewEventBus(nil).NewCollector()
	var schedule *models.Schedule
	err := db.Transaction(func(tx *gorm.DB) error {
		var err error
		schedule, err = CommitSchedule(context.Background(), tx, collector, 7)
		return err
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if schedule.Status != models.ScheduleStatusCommitted || schedule.CommittedAt == nil {
		t.Fatalf("schedule must come back stamped COMMITTED, got %+v", schedule)
	}
	if collector.Pending() != 1 {
		t.Fatalf("expected 1 queued commit event, got %d", collector.Pending())
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
