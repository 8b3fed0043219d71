package sqlite

// schemaSQL creates the records table, its secondary indexes, the FTS5
// mirror of the message column, and the triggers that keep the two in
// sync.
const schemaSQL = `
CREATE TABLE IF NOT EXISTS records (
    id           INTEGER PRIMARY KEY,
    source       TEXT NOT NULL,
    category     TEXT NOT NULL,
    severity     INTEGER NOT NULL,
    message      TEXT NOT NULL,
    emit_time    REAL NOT NULL,
    receive_time REAL NOT NULL,
    frame        INTEGER,
    file         TEXT,
    line         INTEGER,
    session_id   TEXT NOT NULL,
    instance_id  TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_records_source       ON records(source);
CREATE INDEX IF NOT EXISTS idx_records_severity     ON records(severity);
CREATE INDEX IF NOT EXISTS idx_records_emit_time     ON records(emit_time);
CREATE INDEX IF NOT EXISTS idx_records_category     ON records(category);
CREATE INDEX IF NOT EXISTS idx_records_receive_time ON records(receive_time);
CREATE INDEX IF NOT EXISTS idx_records_session      ON records(session_id);
CREATE INDEX IF NOT EXISTS idx_records_instance     ON records(instance_id);
CREATE INDEX IF NOT EXISTS idx_records_session_inst ON records(session_id, instance_id);

CREATE VIRTUAL TABLE IF NOT EXISTS records_fts USING fts5(
    message,
    content='records',
    content_rowid='id',
    tokenize='porter unicode61 remove_diacritics 1'
);

CREATE TRIGGER IF NOT EXISTS records_ai AFTER INSERT ON records BEGIN
    INSERT INTO records_fts(rowid, message) VALUES (new.id, new.message);
END;

CREATE TRIGGER IF NOT EXISTS records_ad AFTER DELETE ON records BEGIN
    INSERT INTO records_fts(records_fts, rowid, message)
        VALUES('delete', old.id, old.message);
END;

CREATE TRIGGER IF NOT EXISTS records_au AFTER UPDATE ON records BEGIN
    INSERT INTO records_fts(records_fts, rowid, message)
        VALUES('delete', old.id, old.message);
    INSERT INTO records_fts(rowid, message) VALUES (new.id, new.message);
END;
`

// pragmaSQL enables write-ahead logging with normal-synchronous durability.
const pragmaSQL = `
PRAGMA journal_mode = WAL;
PRAGMA synchronous = NORMAL;
PRAGMA busy_timeout = 5000;
`
