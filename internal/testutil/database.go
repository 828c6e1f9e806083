package testutil

import (
	"database/sql"
	"fmt"
	"testing"

	_ "github.com/go-sql-driver/mysql"
)

// SetupTestDB opens the integration-test database. Expects a MySQL instance
// on localhost:3306 with a database named 'absstitch_test'; tests are
// skipped when it is not reachable.
func SetupTestDB(t *testing.T) *sql.DB {
	dsn := "root:@tcp(localhost:3306)/absstitch_test?parseTime=true"
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	if err := db.Ping(); err != nil {
		t.Skipf("test database not available: %v", err)
	}

	return db
}

func CleanupTestDB(t *testing.T, db *sql.DB) {
	if db == nil {
		return
	}

	tables := []string{"invoice_orders", "invoices", "notifications", "activity_log", "orders", "designs"}
	for _, table := range tables {
		if _, err := db.Exec(fmt.Sprintf("DELETE FROM %s", table)); err != nil {
			t.Logf("failed to clean table %s: %v", table, err)
		}
	}

	db.Close()
}

func SetupTestTables(t *testing.T, db *sql.DB) {
	createOrders := `
	CREATE TABLE IF NOT EXISTS orders (
		id VARCHAR(36) NOT NULL PRIMARY KEY,
		order_number VARCHAR(50) NOT NULL,
		customer_id VARCHAR(36) NOT NULL,
		status VARCHAR(20) NOT NULL DEFAULT 'new',
		assigned_sales_rep_id VARCHAR(36),
		assigned_designer_id VARCHAR(36),
		assigned_role VARCHAR(20),
		total_amount DECIMAL(10,2) NOT NULL DEFAULT 0.00,
		payment_status VARCHAR(10) NOT NULL DEFAULT 'unpaid',
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		INDEX idx_customer (customer_id),
		INDEX idx_status (status),
		INDEX idx_payment (payment_status)
	)`

	createInvoices := `
	CREATE TABLE IF NOT EXISTS invoices (
		id VARCHAR(36) NOT NULL PRIMARY KEY,
		invoice_number VARCHAR(50) NOT NULL,
		customer_id VARCHAR(36) NOT NULL,
		title VARCHAR(255) NOT NULL,
		total_amount DECIMAL(10,2) NOT NULL DEFAULT 0.00,
		status VARCHAR(10) NOT NULL DEFAULT 'unpaid',
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		INDEX idx_customer (customer_id)
	)`

	createInvoiceOrders := `
	CREATE TABLE IF NOT EXISTS invoice_orders (
		invoice_id VARCHAR(36) NOT NULL,
		order_id VARCHAR(36) NOT NULL,
		PRIMARY KEY (invoice_id, order_id),
		FOREIGN KEY (invoice_id) REFERENCES invoices(id) ON DELETE CASCADE
	)`

	createDesigns := `
	CREATE TABLE IF NOT EXISTS designs (
		id VARCHAR(36) NOT NULL PRIMARY KEY,
		title VARCHAR(255) NOT NULL,
		category VARCHAR(100) NOT NULL,
		price DECIMAL(10,2) NOT NULL DEFAULT 0.00,
		is_active TINYINT(1) NOT NULL DEFAULT 1,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
	)`

	createNotifications := `
	CREATE TABLE IF NOT EXISTS notifications (
		id VARCHAR(36) NOT NULL PRIMARY KEY,
		user_id VARCHAR(36) NOT NULL,
		title VARCHAR(255) NOT NULL,
		message TEXT NOT NULL,
		related_id VARCHAR(36),
		read_at DATETIME,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		INDEX idx_user (user_id)
	)`

	createActivityLog := `
	CREATE TABLE IF NOT EXISTS activity_log (
		id VARCHAR(36) NOT NULL PRIMARY KEY,
		action VARCHAR(100) NOT NULL,
		resource_type VARCHAR(50) NOT NULL,
		resource_id VARCHAR(36) NOT NULL,
		details TEXT,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`

	tables := []struct {
		name  string
		query string
	}{
		{"orders", createOrders},
		{"invoices", createInvoices},
		{"invoice_orders", createInvoiceOrders},
		{"designs", createDesigns},
		{"notifications", createNotifications},
		{"activity_log", createActivityLog},
	}

	for _, tbl := range tables {
		if _, err := db.Exec(tbl.query); err != nil {
			t.Logf("failed to create table %s: %v", tbl.name, err)
		}
	}
}
