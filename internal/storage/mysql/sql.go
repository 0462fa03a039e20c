package mysql

// -----------------------------------------------------------------------------
// TARGETS
// -----------------------------------------------------------------------------

const insertTargetSQL = `
INSERT INTO targets
  (kind, id, name, location, category, description, images, price, duration,
   average_rating, total_reviews, created_at, updated_at)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

const targetColumns = `
  kind, id, name, location, category, description, images, price, duration,
  average_rating, total_reviews, created_at, updated_at`

const getTargetSQL = `SELECT` + targetColumns + `
FROM targets
WHERE kind = ? AND id = ?
`

const listTargetsSQL = `SELECT` + targetColumns + `
FROM targets
WHERE kind = ?
ORDER BY name, id
LIMIT ?
`

const listTargetRefsSQL = `SELECT kind, id FROM targets ORDER BY kind, id`

// updated_at is always bumped so RowsAffected reports a match even when the
// rating itself did not change.
const setRatingCacheSQL = `
UPDATE targets
SET average_rating = ?, total_reviews = ?, updated_at = ?
WHERE kind = ? AND id = ?
`

// INSERT IGNORE keeps the push idempotent, like $addToSet.
const pushReviewRefSQL = `
INSERT IGNORE INTO target_review_refs (target_kind, target_id, review_id)
VALUES (?, ?, ?)
`

const pullReviewRefSQL = `
DELETE FROM target_review_refs
WHERE target_kind = ? AND target_id = ? AND review_id = ?
`

const listReviewRefsSQL = `
SELECT review_id
FROM target_review_refs
WHERE target_kind = ? AND target_id = ?
ORDER BY added_at, review_id
`

// -----------------------------------------------------------------------------
// REVIEWS
// -----------------------------------------------------------------------------

// uq_reviews_author_target rejects a second review by the same author.
const insertReviewSQL = `
INSERT INTO reviews
  (id, author_id, target_kind, target_id, rating, comment, images, verified, created_at, updated_at)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

// created_at is never rewritten.
const updateReviewSQL = `
UPDATE reviews
SET rating = ?, comment = ?, images = ?, updated_at = ?
WHERE id = ?
`

const deleteReviewSQL = `DELETE FROM reviews WHERE id = ?`

const reviewColumns = `
  id, author_id, target_kind, target_id, rating, comment, images, verified, created_at, updated_at`

const getReviewSQL = `SELECT` + reviewColumns + `
FROM reviews
WHERE id = ?
`

// Newest first; aligns with idx_reviews_target_created.
const listReviewsSQL = `SELECT` + reviewColumns + `
FROM reviews
WHERE target_kind = ? AND target_id = ?
ORDER BY created_at DESC, id DESC
LIMIT ?
`

const listAllReviewsSQL = `SELECT` + reviewColumns + `
FROM reviews
WHERE target_kind = ? AND target_id = ?
ORDER BY created_at DESC, id DESC
`

// -----------------------------------------------------------------------------
// BOOKINGS
// -----------------------------------------------------------------------------

const insertBookingSQL = `
INSERT INTO bookings
  (id, user_id, target_kind, target_id, snapshot, items, travelers, travel_date,
   total_amount, status, payment_status, created_at, updated_at)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

const bookingColumns = `
  id, user_id, target_kind, target_id, snapshot, items, travelers, travel_date,
  total_amount, status, payment_status, created_at, updated_at`

const getBookingSQL = `SELECT` + bookingColumns + `
FROM bookings
WHERE id = ?
`

const listBookingsByUserSQL = `SELECT` + bookingColumns + `
FROM bookings
WHERE user_id = ?
ORDER BY created_at DESC, id DESC
`

const listBookingsSQL = `SELECT` + bookingColumns + `
FROM bookings
ORDER BY created_at DESC, id DESC
LIMIT ?
`

const updateBookingStatusSQL = `UPDATE bookings SET status = ?, updated_at = ? WHERE id = ?`

const updatePaymentStatusSQL = `UPDATE bookings SET payment_status = ?, updated_at = ? WHERE id = ?`

const deleteBookingSQL = `DELETE FROM bookings WHERE id = ?`
