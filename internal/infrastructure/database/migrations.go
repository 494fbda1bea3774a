package database

import (
	"database/sql"
)

// Migrations returns the schema history of the service
func Migrations() []Migration {
	return []Migration{
		{
			Version: 1,
			Name:    "create_items_table",
			Up: func(tx *sql.Tx, dialect Dialect) error {
				ddl := `
					CREATE TABLE IF NOT EXISTS items (
						id INTEGER PRIMARY KEY AUTOINCREMENT,
						name TEXT NOT NULL,
						description TEXT NOT NULL DEFAULT '',
						status TEXT NOT NULL DEFAULT '',
						email TEXT NOT NULL
					)`
				if dialect == DialectMySQL {
					ddl = `
						CREATE TABLE IF NOT EXISTS items (
							id BIGINT AUTO_INCREMENT PRIMARY KEY,
							name VARCHAR(255) NOT NULL,
							description TEXT NOT NULL,
							status VARCHAR(64) NOT NULL DEFAULT '',
							email VARCHAR(255) NOT NULL
						) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`
				}
				_, err := tx.Exec(ddl)
				return err
			},
		},
	}
}
