package usecases

import (
	"github.com/iwtcode/spectrumService/internal/domain/entities"
	"github.com/iwtcode/spectrumService/internal/domain/models"
)

func (u *Usecase) StartScan(plan models.ScanPlan) (string, error) {
	return u.scan.Start(plan)
}

func (u *Usecase) PauseScan() error {
	return u.scan.Pause()
}

func (u *Usecase) ResumeScan() error {
	return u.scan.Resume()
}

func (u *Usecase) StopScan() error {
	return u.scan.Stop()
}

func (u *Usecase) ScanStatus() models.ScanStatus {
	return u.scan.Status()
}

// ListRuns возвращает историю запусков из БД
func (u *Usecase) ListRuns() ([]entities.ScanRun, error) {
	return u.repo.GetAll()
}
