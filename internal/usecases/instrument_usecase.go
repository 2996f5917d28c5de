package usecases

import (
	"github.com/iwtcode/spectrumService/internal/domain/models"
)

func (u *Usecase) SetParameter(parameter string, values ...string) (models.TypedValue, error) {
	return u.instrument.RequestSet(parameter, values...)
}

func (u *Usecase) GetParameter(parameter string) (models.TypedValue, error) {
	return u.instrument.RequestGet(parameter)
}

func (u *Usecase) DoAction(parameter string) error {
	return u.instrument.RequestDo(parameter)
}

// ListParameters возвращает последние подтвержденные состояния всех
// управляемых параметров
func (u *Usecase) ListParameters() []models.InstrumentState {
	return u.instrument.States()
}
