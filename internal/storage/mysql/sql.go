package mysql

const createCacheTableSQL = `
CREATE TABLE IF NOT EXISTS geocode_cache (
  cache_key  VARCHAR(512) NOT NULL PRIMARY KEY,
  payload    JSON         NOT NULL,
  expires_at DATETIME     NULL,
  updated_at TIMESTAMP    NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
) CHARACTER SET utf8mb4 COLLATE utf8mb4_bin
`

// Expired rows read as misses; they are overwritten on the next put.
const getEntrySQL = `
SELECT payload
FROM geocode_cache
WHERE cache_key = ?
  AND (expires_at IS NULL OR expires_at > UTC_TIMESTAMP())
`

const upsertEntrySQL = `
INSERT INTO geocode_cache (cache_key, payload, expires_at)
VALUES (?, ?, ?)
ON DUPLICATE KEY UPDATE
  payload    = VALUES(payload),
  expires_at = VALUES(expires_at),
  updated_at = CURRENT_TIMESTAMP
`

const deleteEntrySQL = `DELETE FROM geocode_cache WHERE cache_key = ?`
