package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

type MySQLNotificationRepository struct {
	db *sql.DB
}

func NewMySQLNotificationRepository(db *sql.DB) *MySQLNotificationRepository {
	return &MySQLNotificationRepository{db: db}
}

func (r *MySQLNotificationRepository) Notify(ctx context.Context, userID, title, message string, relatedID *string) error {
	query := `
		INSERT INTO notifications (id, user_id, title, message, related_id)
		VALUES (?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query, uuid.New().String(), userID, title, message, relatedID)
	if err != nil {
		return fmt.Errorf("inserting notification: %w", err)
	}
	return nil
}

func (r *MySQLNotificationRepository) LogActivity(ctx context.Context, action, resourceType, resourceID string, details *string) error {
	query := `
		INSERT INTO activity_log (id, action, resource_type, resource_id, details)
		VALUES (?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query, uuid.New().String(), action, resourceType, resourceID, details)
	if err != nil {
		return fmt.Errorf("appending activity log: %w", err)
	}
	return nil
}
