package production

import (
	"fmt"

	"gorm.io/gorm"
)

// Migrate creates the productions table and its indexes.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&Production{}); err != nil {
		return fmt.Errorf("auto-migrate productions: %w", err)
	}

	// Spatial index for the map layers
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_productions_geom
		ON productions USING GIST (geom);
	`).Error; err != nil {
		return fmt.Errorf("create idx_productions_geom: %w", err)
	}
	return nil
}
