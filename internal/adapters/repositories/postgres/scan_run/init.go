package scan_run

import (
	"github.com/iwtcode/spectrumService/internal/interfaces"
	"gorm.io/gorm"
)

type ScanRunRepositoryImpl struct {
	db *gorm.DB
}

func NewScanRunRepository(db *gorm.DB) interfaces.ScanRunRepository {
	return &ScanRunRepositoryImpl{db: db}
}
