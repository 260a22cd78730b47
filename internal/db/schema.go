package db

// SchemaSQL defines one table per collection. Each row holds a record's
// JSON text and its position in the collection.
const SchemaSQL = `
    DEFINE TABLE IF NOT EXISTS people SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS position ON people TYPE int;
    DEFINE FIELD IF NOT EXISTS record ON people TYPE string;
    DEFINE FIELD IF NOT EXISTS saved ON people TYPE datetime DEFAULT time::now();
    DEFINE INDEX IF NOT EXISTS people_position ON people FIELDS position;

    DEFINE TABLE IF NOT EXISTS tasks SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS position ON tasks TYPE int;
    DEFINE FIELD IF NOT EXISTS record ON tasks TYPE string;
    DEFINE FIELD IF NOT EXISTS saved ON tasks TYPE datetime DEFAULT time::now();
    DEFINE INDEX IF NOT EXISTS tasks_position ON tasks FIELDS position;

    DEFINE TABLE IF NOT EXISTS topics SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS position ON topics TYPE int;
    DEFINE FIELD IF NOT EXISTS record ON topics TYPE string;
    DEFINE FIELD IF NOT EXISTS saved ON topics TYPE datetime DEFAULT time::now();
    DEFINE INDEX IF NOT EXISTS topics_position ON topics FIELDS position;
`
