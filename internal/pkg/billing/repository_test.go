package billing

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ManuelReschke/CourseFox/app/models"
)

// dryRunDB renders MySQL statements without a server.
func dryRunDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(mysql.New(mysql.Config{
		DSN:                       "coursefox:secret@tcp(127.0.0.1:3306)/coursefox?parseTime=True",
		SkipInitializeWithVersion: true,
	}), &gorm.Config{
		DryRun:               true,
		DisableAutomaticPing: true,
		// Create/Updates otherwise open a transaction, which dials the server even in DryRun.
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return db
}

func TestInsertLedgerRowNeverOverwritesStatus(t *testing.T) {
	stmt := insertLedgerRow(dryRunDB(t), ledgerRow(PaymentStatusUpdate{
		Provider:      "mercadopago",
		CorrelationID: "corr-1",
		Status:        models.PaymentStatusRejected,
		UserID:        7,
		CourseID:      42,
	})).Statement

	sql := stmt.SQL.String()
	require.Contains(t, sql, "INSERT INTO `payments`")
	require.Contains(t, sql, "ON DUPLICATE KEY UPDATE")
	conflict := sql[strings.Index(sql, "ON DUPLICATE KEY UPDATE"):]
	assert.NotContains(t, conflict, "`status`")
	assert.NotContains(t, conflict, "`raw_payload_json`")
}

func TestGuardedStatusUpdateRestrictsSourceStatuses(t *testing.T) {
	u := PaymentStatusUpdate{CorrelationID: "corr-1", Status: models.PaymentStatusRejected, StatusDetail: "cc_rejected"}
	stmt := guardedStatusUpdate(dryRunDB(t), u, "correlation_id = ?", u.CorrelationID).Statement

	sql := stmt.SQL.String()
	assert.Contains(t, sql, "UPDATE `payments` SET")
	assert.Contains(t, sql, "correlation_id = ?")
	assert.Contains(t, sql, "status IN (?,?)")
	assert.Contains(t, stmt.Vars, models.PaymentStatusCreated)
	assert.NotContains(t, stmt.Vars, models.PaymentStatusApproved)
	assert.NotContains(t, stmt.Vars, models.PaymentStatusRefunded)
}

func TestInsertWebhookEventIgnoresDuplicates(t *testing.T) {
	stmt := insertWebhookEvent(dryRunDB(t), &models.WebhookEvent{Provider: "paypal", EventID: "WH-1"}).Statement

	sql := stmt.SQL.String()
	require.Contains(t, sql, "INSERT INTO `webhook_events`")
	require.Contains(t, sql, "ON DUPLICATE KEY UPDATE")
	conflict := sql[strings.Index(sql, "ON DUPLICATE KEY UPDATE"):]
	assert.NotContains(t, conflict, "`processed_at`")
	assert.NotContains(t, conflict, "`processing_error`")
}
