// Package testdb provides helpers for tests that run against a real
// PostgreSQL database. Tests using it are skipped unless DATABASE_URL is set.
//
// Every test gets its own transaction which is rolled back afterwards, so
// tests never see each other's rows and can run in parallel:
//
//	db := testdb.Open(t)
//	testdb.WithTx(t, db, func(t *testing.T, tx *sqlx.Tx) {
//		userID := testdb.CreateUser(t, tx, "alice")
//		...
//	})
package testdb
