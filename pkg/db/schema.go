package db

const schema = `
-- Performance and reliability settings
PRAGMA journal_mode = WAL;
PRAGMA synchronous = NORMAL;
PRAGMA foreign_keys = ON;
PRAGMA temp_store = MEMORY;

-- Courses: one row per CourseRecord, keyed by the stable record id
CREATE TABLE IF NOT EXISTS courses (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    provider TEXT NOT NULL,
    instructor TEXT NOT NULL,
    level INTEGER NOT NULL CHECK (level BETWEEN 1 AND 5),
    heat INTEGER NOT NULL CHECK (heat BETWEEN 0 AND 100),
    trend TEXT NOT NULL,
    tags TEXT NOT NULL,              -- JSON array of strings
    description TEXT,
    duration TEXT NOT NULL,
    status TEXT NOT NULL,
    status_color TEXT NOT NULL,
    image_src TEXT NOT NULL,
    rarity_level TEXT NOT NULL,
    language TEXT,
    source_url TEXT,
    synthetic BOOLEAN DEFAULT 0,
    enriched BOOLEAN DEFAULT 0,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_courses_status ON courses(status);
CREATE INDEX IF NOT EXISTS idx_courses_rarity ON courses(rarity_level);
CREATE INDEX IF NOT EXISTS idx_courses_heat ON courses(heat);
CREATE INDEX IF NOT EXISTS idx_courses_synthetic ON courses(synthetic) WHERE synthetic = 1;

-- Crawl runs: one summary row per completed or interrupted run
CREATE TABLE IF NOT EXISTS crawl_runs (
    run_id TEXT PRIMARY KEY,
    seed TEXT NOT NULL,
    adapter TEXT,
    phase TEXT NOT NULL,
    started_at TIMESTAMP NOT NULL,
    ended_at TIMESTAMP,

    pages_total INTEGER DEFAULT 0,
    pages_fetched INTEGER DEFAULT 0,
    pages_synthetic INTEGER DEFAULT 0,
    pages_resumed INTEGER DEFAULT 0,

    extracted INTEGER DEFAULT 0,
    synthesized INTEGER DEFAULT 0,
    deduplicated INTEGER DEFAULT 0,
    enriched INTEGER DEFAULT 0,
    invalid INTEGER DEFAULT 0,
    total INTEGER DEFAULT 0,

    inserted INTEGER DEFAULT 0,
    updated INTEGER DEFAULT 0,
    failed_chunks INTEGER DEFAULT 0,

    output_file TEXT
);

CREATE INDEX IF NOT EXISTS idx_runs_started ON crawl_runs(started_at);
`
