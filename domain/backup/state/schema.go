// Copyright 2025 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package state

const schema = `
CREATE TABLE IF NOT EXISTS backup (
    id          TEXT NOT NULL PRIMARY KEY,
    archive_ref TEXT NOT NULL,
    created_at  DATETIME NOT NULL,
    restored    BOOLEAN NOT NULL DEFAULT FALSE,
    size        INTEGER NOT NULL DEFAULT 0,
    checksum    TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_backup_created_at
ON backup (created_at);
`
