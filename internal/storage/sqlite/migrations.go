package sqlite

import "github.com/jmoiron/sqlx"

// schema sets up the database on open. Every statement is idempotent.
// result_groups must exist before result_group_members due to the foreign key.
const schema = `
CREATE TABLE IF NOT EXISTS member_results (
    id TEXT PRIMARY KEY,
    start_time INTEGER NOT NULL,
    end_time INTEGER NOT NULL,
    created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS result_groups (
    created_seq INTEGER PRIMARY KEY AUTOINCREMENT,
    id TEXT NOT NULL UNIQUE,
    owner_config_id INTEGER NOT NULL,
    dimension_signature TEXT NOT NULL,
    start_time INTEGER,
    end_time INTEGER,
    created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS result_group_members (
    group_id TEXT NOT NULL,
    position INTEGER NOT NULL,
    member_id TEXT NOT NULL,
    start_time INTEGER NOT NULL,
    end_time INTEGER NOT NULL,
    PRIMARY KEY (group_id, position),
    FOREIGN KEY (group_id) REFERENCES result_groups(id) ON DELETE CASCADE,
    FOREIGN KEY (member_id) REFERENCES member_results(id)
);

CREATE INDEX IF NOT EXISTS idx_result_groups_partition
    ON result_groups(owner_config_id, dimension_signature, created_seq);
CREATE INDEX IF NOT EXISTS idx_result_group_members_member_id
    ON result_group_members(member_id);
`

// runMigrations executes the schema setup.
func runMigrations(db *sqlx.DB) error {
	_, err := db.Exec(schema)
	return err
}
