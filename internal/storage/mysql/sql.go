package mysql

const upsertProfileSQL = `
INSERT INTO profiles
  (id, name, execution_ts)
VALUES
  (?, ?, ?)
ON DUPLICATE KEY UPDATE
  name         = VALUES(name),
  execution_ts = COALESCE(VALUES(execution_ts), profiles.execution_ts),
  updated_at   = CURRENT_TIMESTAMP
`

// Batch append path. INSERT IGNORE makes the duplicate check and the append
// one atomic statement against the (profile_id, review_id) unique key, so
// concurrent deliveries of the same review cannot double-insert.
const insertReviewsPrefix = `INSERT IGNORE INTO reviews
  (profile_id, review_id, reviewer_name, reviewer_photo_url, star_rating,
   comment, create_time, update_time, reply_comment, reply_update_time,
   reply_ai, resource_name, raw)
VALUES `

const insertReviewsRow = "(?,?,?,?,?,?,?,?,?,?,?,?,?)"

// Webhook path: full last-write-wins replace keyed by the same unique key.
const upsertReviewSQL = insertReviewsPrefixNoIgnore + insertReviewsRow + `
ON DUPLICATE KEY UPDATE
  reviewer_name      = VALUES(reviewer_name),
  reviewer_photo_url = VALUES(reviewer_photo_url),
  star_rating        = VALUES(star_rating),
  comment            = VALUES(comment),
  create_time        = VALUES(create_time),
  update_time        = VALUES(update_time),
  reply_comment      = VALUES(reply_comment),
  reply_update_time  = VALUES(reply_update_time),
  reply_ai           = VALUES(reply_ai),
  resource_name      = VALUES(resource_name),
  raw                = VALUES(raw)
`

const insertReviewsPrefixNoIgnore = `INSERT INTO reviews
  (profile_id, review_id, reviewer_name, reviewer_photo_url, star_rating,
   comment, create_time, update_time, reply_comment, reply_update_time,
   reply_ai, resource_name, raw)
VALUES `

const insertMissSQL = `
INSERT INTO ingest_misses (profile_id, http_status, reason)
VALUES (?, ?, ?)
ON DUPLICATE KEY UPDATE seen_at = CURRENT_TIMESTAMP, http_status = VALUES(http_status)
`

// -----------------------------------------------------------------------------
// READ QUERIES
// -----------------------------------------------------------------------------

// Shared SELECT list for review reads; p.name backs the flattened
// businessProfileName annotation.
const selectReviewColumns = `
SELECT
  r.review_id,
  r.profile_id,
  p.name,
  r.reviewer_name,
  r.reviewer_photo_url,
  r.star_rating,
  r.comment,
  r.create_time,
  r.update_time,
  r.reply_comment,
  r.reply_update_time,
  r.reply_ai,
  r.resource_name
FROM reviews r
LEFT JOIN profiles p ON p.id = r.profile_id
`

const countReviewsPrefix = `
SELECT COUNT(*)
FROM reviews r
LEFT JOIN profiles p ON p.id = r.profile_id
`
