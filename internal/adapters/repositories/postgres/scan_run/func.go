package scan_run

import (
	"github.com/iwtcode/spectrumService/internal/domain/entities"
	"gorm.io/gorm"
)

func (r *ScanRunRepositoryImpl) Create(run *entities.ScanRun) error {
	return r.db.Create(run).Error
}

func (r *ScanRunRepositoryImpl) Update(run *entities.ScanRun) error {
	result := r.db.Model(&entities.ScanRun{}).Where("run_id = ?", run.RunID).Updates(map[string]interface{}{
		"status":        run.Status,
		"segment_index": run.SegmentIndex,
		"partial":       run.Partial,
		"output_dir":    run.OutputDir,
		"last_error":    run.LastError,
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *ScanRunRepositoryImpl) GetByRunID(runID string) (*entities.ScanRun, error) {
	var run entities.ScanRun
	err := r.db.Where("run_id = ?", runID).First(&run).Error
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// GetAll возвращает все запуски, свежие первыми
func (r *ScanRunRepositoryImpl) GetAll() ([]entities.ScanRun, error) {
	var runs []entities.ScanRun
	if err := r.db.Order("created_at desc").Find(&runs).Error; err != nil {
		return nil, err
	}
	return runs, nil
}

// GetUnfinished возвращает запуски, не дошедшие до терминального статуса
func (r *ScanRunRepositoryImpl) GetUnfinished() ([]entities.ScanRun, error) {
	var runs []entities.ScanRun
	err := r.db.Where("status NOT IN ?", []string{entities.StatusCompleted, entities.StatusFailed}).Find(&runs).Error
	if err != nil {
		return nil, err
	}
	return runs, nil
}
