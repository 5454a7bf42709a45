package database

import "errors"

var (
	// ErrNilHarvest is returned when SaveHarvest is given a nil harvest.
	ErrNilHarvest = errors.New("harvest is nil")

	// ErrDatabaseNotFound is returned when the database file does not exist
	// and Options.CreateIfNotExists is false.
	ErrDatabaseNotFound = errors.New("database not found")
)
