package storage

// schemaDDL creates every table, index, and FTS5 mirror the store needs.
// Modeled as one versioned migration-runner body rather than a single
// monolithic script, following the raw-SQL schema idiom of the pack's
// SQLite-backed stores.
const schemaDDL = `
CREATE TABLE IF NOT EXISTS decisions (
	id TEXT PRIMARY KEY,
	session_id TEXT NOT NULL,
	timestamp TEXT NOT NULL,
	category TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	rationale TEXT NOT NULL DEFAULT '',
	classification TEXT NOT NULL DEFAULT '',
	importance REAL NOT NULL DEFAULT 0,
	ttl_class TEXT NOT NULL,
	expires_at TEXT,
	last_accessed_at TEXT NOT NULL,
	entity TEXT NOT NULL DEFAULT '',
	fact_key TEXT NOT NULL DEFAULT '',
	fact_value TEXT NOT NULL DEFAULT '',
	tags TEXT NOT NULL DEFAULT '[]'
);

CREATE INDEX IF NOT EXISTS idx_decisions_ttl_class ON decisions(ttl_class);
CREATE INDEX IF NOT EXISTS idx_decisions_expires_at ON decisions(expires_at);
CREATE INDEX IF NOT EXISTS idx_decisions_entity ON decisions(entity);
CREATE INDEX IF NOT EXISTS idx_decisions_entity_key ON decisions(entity, fact_key);
CREATE INDEX IF NOT EXISTS idx_decisions_importance ON decisions(importance DESC);
CREATE INDEX IF NOT EXISTS idx_decisions_timestamp ON decisions(timestamp);

CREATE VIRTUAL TABLE IF NOT EXISTS decisions_fts USING fts5(
	description, rationale, entity, fact_key, fact_value, tags,
	content='decisions', content_rowid='rowid'
);

CREATE TRIGGER IF NOT EXISTS decisions_ai AFTER INSERT ON decisions BEGIN
	INSERT INTO decisions_fts(rowid, description, rationale, entity, fact_key, fact_value, tags)
	VALUES (new.rowid, new.description, new.rationale, new.entity, new.fact_key, new.fact_value, new.tags);
END;

CREATE TRIGGER IF NOT EXISTS decisions_ad AFTER DELETE ON decisions BEGIN
	INSERT INTO decisions_fts(decisions_fts, rowid, description, rationale, entity, fact_key, fact_value, tags)
	VALUES ('delete', old.rowid, old.description, old.rationale, old.entity, old.fact_key, old.fact_value, old.tags);
END;

CREATE TRIGGER IF NOT EXISTS decisions_au AFTER UPDATE ON decisions BEGIN
	INSERT INTO decisions_fts(decisions_fts, rowid, description, rationale, entity, fact_key, fact_value, tags)
	VALUES ('delete', old.rowid, old.description, old.rationale, old.entity, old.fact_key, old.fact_value, old.tags);
	INSERT INTO decisions_fts(rowid, description, rationale, entity, fact_key, fact_value, tags)
	VALUES (new.rowid, new.description, new.rationale, new.entity, new.fact_key, new.fact_value, new.tags);
END;

CREATE TABLE IF NOT EXISTS vectors (
	id TEXT PRIMARY KEY,
	decision_id TEXT NOT NULL REFERENCES decisions(id) ON DELETE CASCADE,
	content TEXT NOT NULL,
	embedding TEXT NOT NULL,
	model_id TEXT NOT NULL,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_vectors_decision_id ON vectors(decision_id);
CREATE INDEX IF NOT EXISTS idx_vectors_model_id ON vectors(model_id);

CREATE TABLE IF NOT EXISTS entities (
	name TEXT PRIMARY KEY,
	display_name TEXT NOT NULL,
	provenance TEXT NOT NULL DEFAULT '',
	added_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS security_events (
	id TEXT PRIMARY KEY,
	timestamp TEXT NOT NULL,
	event_type TEXT NOT NULL,
	source_role TEXT NOT NULL DEFAULT '',
	target_entity TEXT NOT NULL DEFAULT '',
	target_key TEXT NOT NULL DEFAULT '',
	target_value TEXT NOT NULL DEFAULT '',
	matched_pattern TEXT NOT NULL DEFAULT '',
	source_snippet TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_security_events_timestamp ON security_events(timestamp);

CREATE TABLE IF NOT EXISTS pipelines (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	status TEXT NOT NULL,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL,
	started_at TEXT,
	completed_at TEXT,
	creator_tag TEXT NOT NULL DEFAULT '',
	trigger_msg TEXT NOT NULL DEFAULT '',
	config TEXT NOT NULL DEFAULT '{}',
	summary TEXT NOT NULL DEFAULT '',
	error TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_pipelines_status ON pipelines(status);
CREATE INDEX IF NOT EXISTS idx_pipelines_created_at ON pipelines(created_at);

CREATE TABLE IF NOT EXISTS pipeline_steps (
	id TEXT PRIMARY KEY,
	pipeline_id TEXT NOT NULL REFERENCES pipelines(id) ON DELETE CASCADE,
	name TEXT NOT NULL,
	step_type TEXT NOT NULL,
	status TEXT NOT NULL,
	tier TEXT NOT NULL DEFAULT '',
	executor TEXT NOT NULL DEFAULT '',
	prompt_template TEXT NOT NULL DEFAULT '',
	depends_on_all INTEGER NOT NULL DEFAULT 1,
	retry_count INTEGER NOT NULL DEFAULT 0,
	max_retries INTEGER NOT NULL DEFAULT 0,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL,
	started_at TEXT,
	completed_at TEXT,
	input_artifact TEXT NOT NULL DEFAULT '{}',
	output_artifact TEXT NOT NULL DEFAULT '',
	result_summary TEXT NOT NULL DEFAULT '',
	error TEXT NOT NULL DEFAULT '',
	UNIQUE(pipeline_id, name)
);
CREATE INDEX IF NOT EXISTS idx_steps_pipeline_status ON pipeline_steps(pipeline_id, status);

CREATE TABLE IF NOT EXISTS pipeline_edges (
	pipeline_id TEXT NOT NULL REFERENCES pipelines(id) ON DELETE CASCADE,
	parent_step_id TEXT NOT NULL REFERENCES pipeline_steps(id) ON DELETE CASCADE,
	child_step_id TEXT NOT NULL REFERENCES pipeline_steps(id) ON DELETE CASCADE,
	condition_kind INTEGER NOT NULL DEFAULT 0,
	condition_value TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (parent_step_id, child_step_id)
);
CREATE INDEX IF NOT EXISTS idx_edges_pipeline ON pipeline_edges(pipeline_id);

CREATE TABLE IF NOT EXISTS pipeline_triggers (
	id TEXT PRIMARY KEY,
	pipeline_id TEXT NOT NULL REFERENCES pipelines(id) ON DELETE CASCADE,
	cron_expr TEXT NOT NULL,
	timezone TEXT NOT NULL DEFAULT 'UTC',
	enabled INTEGER NOT NULL DEFAULT 1,
	last_fired TEXT,
	next_fire TEXT
);
CREATE INDEX IF NOT EXISTS idx_triggers_enabled ON pipeline_triggers(enabled);

CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER PRIMARY KEY,
	description TEXT NOT NULL,
	applied_at TEXT NOT NULL
);
`
