package db

import "gorm.io/gorm"

// EnsurePostGIS enables the spatial extension the productions geometry
// column depends on.
func EnsurePostGIS(d *gorm.DB) error {
	return d.Exec(`CREATE EXTENSION IF NOT EXISTS postgis`).Error
}
