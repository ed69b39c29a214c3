package db

// SchemaSQL defines the turn table. Turns are immutable once written; there
// are no UPDATE paths in this service.
const SchemaSQL = `
DEFINE TABLE IF NOT EXISTS turn SCHEMAFULL;

DEFINE FIELD IF NOT EXISTS owner ON turn TYPE string;
DEFINE FIELD IF NOT EXISTS prompt ON turn TYPE string;
DEFINE FIELD IF NOT EXISTS response ON turn TYPE string;
DEFINE FIELD IF NOT EXISTS created_at ON turn TYPE datetime;

DEFINE INDEX IF NOT EXISTS turn_owner_idx ON turn FIELDS owner;
DEFINE INDEX IF NOT EXISTS turn_owner_created_idx ON turn FIELDS owner, created_at;
`
