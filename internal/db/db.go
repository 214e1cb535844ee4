package db

import (
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// Connect initializes the database connection and runs migrations.
func Connect(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}

	if err := runMigrations(db); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return db, nil
}

func runMigrations(db *sqlx.DB) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS users (
            user_id TEXT PRIMARY KEY,
            username TEXT NOT NULL,
            email TEXT NOT NULL
        );`,
		`CREATE TABLE IF NOT EXISTS admin (
            id SERIAL PRIMARY KEY,
            available BOOLEAN NOT NULL DEFAULT TRUE,
            role TEXT NOT NULL DEFAULT 'csr'
        );`,
		`CREATE TABLE IF NOT EXISTS chat_room (
            id SERIAL PRIMARY KEY,
            room_id TEXT NOT NULL UNIQUE,
            status SMALLINT NOT NULL DEFAULT 0,
            date DATE NOT NULL DEFAULT CURRENT_DATE,
            "user" TEXT NOT NULL,
            csr INT REFERENCES admin(id)
        );`,
		`CREATE UNIQUE INDEX IF NOT EXISTS chat_room_open_customer
            ON chat_room ("user") WHERE status = 0;`,
		`CREATE TABLE IF NOT EXISTS chats (
            id SERIAL PRIMARY KEY,
            sender TEXT NOT NULL,
            message TEXT NOT NULL,
            kind TEXT NOT NULL DEFAULT 'text',
            time TEXT NOT NULL,
            chat_room_id INT NOT NULL REFERENCES chat_room(id) ON DELETE CASCADE
        );`,
	}

	for _, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return err
		}
	}
	log.Println("database migrations applied")
	return nil
}
