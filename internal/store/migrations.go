package store

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

// migrations is the ordered list of schema migrations.
// Each migration's version must be sequential starting from 1.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS session (
	id           INTEGER PRIMARY KEY CHECK (id = 1),
	name         TEXT NOT NULL DEFAULT '',
	email        TEXT NOT NULL,
	picture      TEXT NOT NULL DEFAULT '',
	subject      TEXT NOT NULL DEFAULT '',
	signed_in_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
}
