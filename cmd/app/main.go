// @title Spectrum Service API
// @version 1.0.0
// @description API для управления анализатором спектра по SCPI, многосегментного сканирования и отправки данных в Kafka.
// @host localhost:8082
// @BasePath /api/v1
package main

import "github.com/iwtcode/spectrumService/internal/app"

func main() {
	// Создаем и запускаем новый экземпляр приложения fx
	app.New().Run()
}
