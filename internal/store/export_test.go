package store

import "database/sql"

// BumpSchemaVersionForTest marks the database at path as written by a newer
// schema.
func BumpSchemaVersionForTest(path string) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return err
	}
	defer db.Close()
	_, err = db.Exec(`PRAGMA user_version = 99`)
	return err
}
