package usecases

import (
	"github.com/iwtcode/spectrumService/internal/domain/models"
)

// Connect устанавливает соединение с прибором и снимает его идентификацию
func (u *Usecase) Connect() (*models.ConnectionInfo, error) {
	if err := u.transport.Connect(); err != nil {
		return nil, err
	}
	return u.CheckConnection(), nil
}

func (u *Usecase) Disconnect() error {
	return u.transport.Close()
}

func (u *Usecase) CheckConnection() *models.ConnectionInfo {
	return &models.ConnectionInfo{
		Identity:  u.transport.Identity(),
		Model:     u.transport.Model(),
		Connected: u.transport.IsConnected(),
	}
}
