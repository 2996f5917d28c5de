package app

import (
	"context"
	"net/http"
	"time"

	"github.com/iwtcode/spectrumService/internal/adapters/handlers"
	"github.com/iwtcode/spectrumService/internal/adapters/repositories/postgres"
	"github.com/iwtcode/spectrumService/internal/config"
	"github.com/iwtcode/spectrumService/internal/interfaces"
	"github.com/iwtcode/spectrumService/internal/middleware/logging"
	"github.com/iwtcode/spectrumService/internal/services/bus"
	"github.com/iwtcode/spectrumService/internal/services/instrument_service"
	"github.com/iwtcode/spectrumService/internal/services/kafka"
	"github.com/iwtcode/spectrumService/internal/services/recorder"
	"github.com/iwtcode/spectrumService/internal/services/scan_service"
	"github.com/iwtcode/spectrumService/internal/services/visa_service"
	"github.com/iwtcode/spectrumService/internal/services/yak_service"
	"github.com/iwtcode/spectrumService/internal/usecases"

	"go.uber.org/fx"
)

// New создает новый экземпляр fx.App
func New() *fx.App {
	return fx.New(
		ConfigModule,
		LoggingModule,
		RepositoryModule,
		ProducerModule,
		BusModule,
		ServiceModule,
		UsecaseModule,
		HttpServerModule,
		// Invoke-функции для запуска фоновых задач и хуков жизненного цикла
		fx.Invoke(InvokeConnectInstrument),
		fx.Invoke(InvokeFailInterrupted),
		fx.Invoke(InvokePeakWorker),
		fx.Invoke(InvokeKafkaMirror),
		fx.Invoke(InvokeShutdownServices),
	)
}

// --- Модули FX ---

var ConfigModule = fx.Module("config_module",
	fx.Provide(config.LoadConfiguration),
)

func ProvideLogger(cfg *config.AppConfig) *logging.Logger {
	loggerCfg := &logging.Config{
		Enabled:    cfg.Logging.Enable,
		Level:      cfg.Logging.Level,
		LogsDir:    cfg.Logging.LogsDir,
		SavingDays: uint(cfg.Logging.SavingDays),
	}
	return logging.NewLogger(loggerCfg, "SpectrumServiceApp")
}

var LoggingModule = fx.Module("logging_module",
	fx.Provide(ProvideLogger),
)

var RepositoryModule = fx.Module("repository_module",
	fx.Provide(postgres.NewRepository),
)

var ProducerModule = fx.Module("producer_module",
	fx.Provide(kafka.NewKafkaProducer),
)

var BusModule = fx.Module("bus_module",
	fx.Provide(bus.NewBus),
)

func ProvideBindingTable(cfg *config.AppConfig, logger *logging.Logger) (*yak_service.BindingTable, error) {
	return yak_service.LoadBindings(cfg.Yak.CommandsPath, logger)
}

func ProvideInstrumentService(svc *instrument_service.Service) interfaces.InstrumentService {
	return svc
}

func ProvideScanService(o *scan_service.Orchestrator) interfaces.ScanService {
	return o
}

var ServiceModule = fx.Module("service_module",
	fx.Provide(
		visa_service.NewClient,
		ProvideBindingTable,
		yak_service.NewTranslator,
		instrument_service.NewInstrumentService,
		ProvideInstrumentService,
		instrument_service.NewPeakWorker,
		recorder.NewRecorder,
		scan_service.NewOrchestrator,
		ProvideScanService,
	),
)

var UsecaseModule = fx.Module("usecases_module",
	fx.Provide(usecases.NewUsecases),
)

var HttpServerModule = fx.Module("http_server_module",
	fx.Provide(
		handlers.NewHandler,
		handlers.ProvideRouter,
	),
	fx.Invoke(InvokeHttpServer),
)

// InvokeConnectInstrument подключается к прибору при старте.
// Недоступный прибор не валит сервис: подключиться можно позже через API.
func InvokeConnectInstrument(lc fx.Lifecycle, transport interfaces.Transport, logger *logging.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := transport.Connect(); err != nil {
				logger.Warn("Instrument is not reachable on startup", "error", err)
				return nil
			}
			logger.Info("Instrument connected on startup", "model", transport.Model())
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return transport.Close()
		},
	})
}

// InvokeFailInterrupted закрывает запуски, оборванные рестартом сервиса
func InvokeFailInterrupted(lc fx.Lifecycle, orchestrator *scan_service.Orchestrator, logger *logging.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := orchestrator.FailInterrupted(); err != nil {
				logger.Warn("Failed to close interrupted scan runs", "error", err)
			}
			return nil
		},
	})
}

// InvokePeakWorker запускает фоновый публикатор активного пика
func InvokePeakWorker(lc fx.Lifecycle, cfg *config.AppConfig, worker interfaces.PeakWorker, logger *logging.Logger) {
	if !cfg.Peak.Enable {
		logger.Info("Peak worker is disabled")
		return
	}

	workerCtx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go worker.Run(workerCtx)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			cancel()
			return nil
		},
	})
}

// InvokeKafkaMirror зеркалирует события шины во внешнюю Kafka.
// Без брокера в конфигурации сервис работает автономно.
func InvokeKafkaMirror(lc fx.Lifecycle, cfg *config.AppConfig, producer interfaces.KafkaService, eventBus interfaces.EventBus, logger *logging.Logger) {
	if cfg.KafkaBroker == "" {
		logger.Info("Kafka broker is not configured, mirror is disabled")
		return
	}

	mirror := kafka.NewMirror(producer, eventBus, logger)
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			mirror.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			mirror.Stop()
			return producer.Close()
		},
	})
}

// InvokeShutdownServices останавливает внутренние горутины сервисов
func InvokeShutdownServices(lc fx.Lifecycle, instrument *instrument_service.Service, orchestrator *scan_service.Orchestrator) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			orchestrator.Close()
			instrument.Close()
			return nil
		},
	})
}

// InvokeHttpServer запускает HTTP-сервер.
func InvokeHttpServer(lc fx.Lifecycle, cfg *config.AppConfig, h http.Handler, logger *logging.Logger) {
	serverAddr := ":" + cfg.ServerPort
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      h,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			logger.Info("HTTP Server is starting", "address", serverAddr)
			go func() {
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					logger.Error("Failed to start server", "error", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("Stopping HTTP server...")
			return server.Shutdown(ctx)
		},
	})
}
