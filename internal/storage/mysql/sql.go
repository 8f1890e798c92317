package mysql

// Note: `text` is reserved; keep it quoted everywhere.
const insertReviewsPrefix = "INSERT INTO reviews\n  (business_id, source_id, version, user_name, rating, lang, `text`, reviewed_at)\nVALUES "

// Use VALUES(col) for broad compatibility; COALESCE keeps old value if new is NULL.
const insertReviewsOnDup = " ON DUPLICATE KEY UPDATE\n" +
	"  version     = VALUES(version),\n" +
	"  user_name   = COALESCE(VALUES(user_name), reviews.user_name),\n" +
	"  rating      = VALUES(rating),\n" +
	"  lang        = COALESCE(VALUES(lang), reviews.lang),\n" +
	"  `text`      = VALUES(`text`),\n" +
	"  reviewed_at = COALESCE(VALUES(reviewed_at), reviews.reviewed_at),\n" +
	"  updated_at  = CURRENT_TIMESTAMP\n"

// rows per INSERT; keeps big exports under max_allowed_packet
const upsertBatch = 500

// -----------------------------------------------------------------------------
// READ QUERIES
// -----------------------------------------------------------------------------

// Oldest first, so sentence order (and first-review metadata) is stable
// across rebuilds. An empty version matches every version.
const listReviewsSQL = "SELECT\n" +
	"  id, business_id, source_id, version, user_name, rating, lang, `text`, reviewed_at\n" +
	"FROM reviews\n" +
	"WHERE business_id = ? AND (? = '' OR version = ?)\n" +
	"ORDER BY reviewed_at IS NULL, reviewed_at, id"
