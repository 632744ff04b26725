package database

import (
	"context"
	"database/sql"
	"fmt"
)

// schema is applied in order by Migrate.  Every statement is idempotent.
//
// users.email uses a binary collation so uniqueness is case-sensitive,
// matching how addresses are compared at login.  tickets carries the
// (user_id, event_id) unique key that backs the one-ticket-per-event rule.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		name          VARCHAR(255) NOT NULL,
		email         VARCHAR(255) CHARACTER SET utf8mb4 COLLATE utf8mb4_bin NOT NULL,
		password_hash VARCHAR(255) NOT NULL,
		role          ENUM('admin','organizer','participant') NOT NULL DEFAULT 'participant',
		created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE KEY uq_users_email (email)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS events (
		id          BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		title       VARCHAR(255) NOT NULL,
		description TEXT NOT NULL,
		date        DATETIME NOT NULL,
		capacity    INT UNSIGNED NOT NULL,
		created_by  BIGINT UNSIGNED NOT NULL,
		is_closed   TINYINT(1) NOT NULL DEFAULT 0,
		created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		KEY idx_events_date (date),
		CONSTRAINT chk_events_capacity CHECK (capacity > 0),
		CONSTRAINT fk_events_created_by FOREIGN KEY (created_by) REFERENCES users (id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS tickets (
		id         BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		user_id    BIGINT UNSIGNED NOT NULL,
		event_id   BIGINT UNSIGNED NOT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE KEY uq_tickets_user_event (user_id, event_id),
		KEY idx_tickets_event (event_id),
		CONSTRAINT fk_tickets_user FOREIGN KEY (user_id) REFERENCES users (id),
		CONSTRAINT fk_tickets_event FOREIGN KEY (event_id) REFERENCES events (id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// Migrate creates the tables the service needs if they do not exist yet.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
	}
	return nil
}
