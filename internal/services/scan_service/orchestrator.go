package scan_service

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"

	"github.com/google/uuid"

	"github.com/iwtcode/spectrumService/internal/config"
	"github.com/iwtcode/spectrumService/internal/domain/entities"
	"github.com/iwtcode/spectrumService/internal/domain/models"
	"github.com/iwtcode/spectrumService/internal/interfaces"
	"github.com/iwtcode/spectrumService/internal/middleware/logging"
	"github.com/iwtcode/spectrumService/internal/services/bus"
	"github.com/iwtcode/spectrumService/internal/services/processing"
	"github.com/iwtcode/spectrumService/internal/services/recorder"
)

// Параметры настройки сегмента в таблице команд
const (
	paramFreqStart = "frequency_start"
	paramFreqStop  = "frequency_stop"
	paramRBW       = "rbw"
)

type segmentResult struct {
	index    int
	spectrum models.Spectrum
	err      error
}

type controlMsg struct {
	kind  controlKind
	plan  models.ScanPlan
	reply chan controlReply
}

type controlReply struct {
	runID string
	err   error
}

// activeRun - изменяемое состояние текущего запуска. Доступно только из
// цикла оркестратора.
type activeRun struct {
	entity   *entities.ScanRun
	plan     models.ScanPlan
	dir      string
	spectra  []models.Spectrum
	next     int // индекс следующего сегмента
	inFlight bool
	cancel   context.CancelFunc
	results  chan segmentResult
}

// Orchestrator ведет скан по плану: настраивает прибор на сегмент, ждет
// воркера захвата, складывает результаты и двигает состояние запуска.
// Все управляющие события и завершения сегментов обрабатываются одной
// горутиной строго по одному - гонок за состояние запуска нет.
type Orchestrator struct {
	cfg        config.ScanConfig
	instrument interfaces.InstrumentService
	worker     *Worker
	bus        interfaces.EventBus
	repo       interfaces.ScanRunRepository
	recorder   *recorder.Recorder
	logger     *logging.Logger

	control chan controlMsg
	done    chan struct{}
	stopSub func()

	statusMu sync.RWMutex
	status   models.ScanStatus
}

func NewOrchestrator(
	cfg *config.AppConfig,
	instrument interfaces.InstrumentService,
	translator interfaces.Translator,
	eventBus interfaces.EventBus,
	repo interfaces.ScanRunRepository,
	rec *recorder.Recorder,
	logger *logging.Logger,
) *Orchestrator {
	o := &Orchestrator{
		cfg:        cfg.Scan,
		instrument: instrument,
		worker:     NewWorker(translator, cfg.Scan, logger),
		bus:        eventBus,
		repo:       repo,
		recorder:   rec,
		logger:     logger.WithPrefix("SCAN"),
		control:    make(chan controlMsg),
		done:       make(chan struct{}),
		status:     models.ScanStatus{State: entities.StatusIdle},
	}

	go o.loop()
	o.subscribeControl()

	return o
}

// subscribeControl принимает pause/resume/stop с шины: дисплей управляет
// сканом тем же путем, что и параметрами прибора
func (o *Orchestrator) subscribeControl() {
	events, unsubscribe := o.bus.Subscribe(bus.TopicScanControl, 16)
	o.stopSub = unsubscribe

	go func() {
		for ev := range events {
			action, ok := ev.Payload.(string)
			if !ok {
				o.logger.Warn("Unexpected payload on control topic", "topic", ev.Topic)
				continue
			}
			var err error
			switch action {
			case "pause":
				err = o.Pause()
			case "resume":
				err = o.Resume()
			case "stop":
				err = o.Stop()
			default:
				o.logger.Warn("Unknown scan control action", "action", action)
				continue
			}
			if err != nil {
				o.logger.Warn("Scan control action rejected", "action", action, "error", err)
			}
		}
	}()
}

func (o *Orchestrator) Close() {
	if o.stopSub != nil {
		o.stopSub()
	}
	close(o.done)
}

// Start запускает выполнение плана и возвращает идентификатор запуска
func (o *Orchestrator) Start(plan models.ScanPlan) (string, error) {
	if err := validatePlan(plan); err != nil {
		return "", err
	}
	reply := o.send(controlMsg{kind: ctrlStart, plan: plan})
	return reply.runID, reply.err
}

// Pause приостанавливает скан после текущего сегмента.
// Начатый захват всегда доводится до конца.
func (o *Orchestrator) Pause() error {
	return o.send(controlMsg{kind: ctrlPause}).err
}

// Resume продолжает скан со следующего незахваченного сегмента
func (o *Orchestrator) Resume() error {
	return o.send(controlMsg{kind: ctrlResume}).err
}

// Stop досрочно завершает скан. Текущий захват дорабатывает, запуск
// закрывается как Completed с пометкой о частичном результате.
func (o *Orchestrator) Stop() error {
	return o.send(controlMsg{kind: ctrlStop}).err
}

// Status возвращает снимок состояния последнего запуска
func (o *Orchestrator) Status() models.ScanStatus {
	o.statusMu.RLock()
	defer o.statusMu.RUnlock()
	return o.status
}

func (o *Orchestrator) send(msg controlMsg) controlReply {
	msg.reply = make(chan controlReply, 1)
	select {
	case o.control <- msg:
		return <-msg.reply
	case <-o.done:
		return controlReply{err: fmt.Errorf("оркестратор остановлен")}
	}
}

func validatePlan(plan models.ScanPlan) error {
	if len(plan.Segments) == 0 {
		return fmt.Errorf("план '%s' не содержит ни одного сегмента", plan.Name)
	}
	for i, seg := range plan.Segments {
		if seg.StopHz <= seg.StartHz {
			return fmt.Errorf("сегмент %d: stop (%v Гц) должен быть больше start (%v Гц)", i, seg.StopHz, seg.StartHz)
		}
		if seg.DwellMs < 0 {
			return fmt.Errorf("сегмент %d: отрицательный dwell", i)
		}
	}
	return nil
}

// loop - единственный владелец состояния запуска
func (o *Orchestrator) loop() {
	var run *activeRun
	state := stateIdle

	for {
		var results chan segmentResult
		if run != nil {
			results = run.results
		}

		select {
		case <-o.done:
			if run != nil && run.cancel != nil {
				run.cancel()
			}
			return
		case msg := <-o.control:
			state, run = o.handleControl(state, run, msg)
		case res := <-results:
			state, run = o.handleSegmentDone(state, run, res)
		}
	}
}

func (o *Orchestrator) handleControl(state runState, run *activeRun, msg controlMsg) (runState, *activeRun) {
	next, err := transition(state, msg.kind)
	if err != nil {
		msg.reply <- controlReply{err: err}
		return state, run
	}

	switch msg.kind {
	case ctrlStart:
		newRun, startErr := o.beginRun(msg.plan)
		if startErr != nil {
			msg.reply <- controlReply{err: startErr}
			return state, run
		}
		run = newRun
		o.logger.Info("Scan started", "run_id", run.entity.RunID, "plan", run.plan.Name, "segments", len(run.plan.Segments))
		o.publishStatus(next, run)
		state = o.startSegment(next, run)
		msg.reply <- controlReply{runID: run.entity.RunID}
		return state, o.clearIfIdle(state, run)

	case ctrlPause:
		o.logger.Info("Scan paused", "run_id", run.entity.RunID, "segment", run.next)
		o.persist(run, next, "")
		o.publishStatus(next, run)
		msg.reply <- controlReply{}
		return next, run

	case ctrlResume:
		o.logger.Info("Scan resumed", "run_id", run.entity.RunID, "segment", run.next)
		o.persist(run, next, "")
		o.publishStatus(next, run)
		if !run.inFlight {
			next = o.startSegment(next, run)
		}
		msg.reply <- controlReply{}
		return next, o.clearIfIdle(next, run)

	case ctrlStop:
		o.logger.Info("Scan stop requested", "run_id", run.entity.RunID, "segment", run.next)
		if run.inFlight {
			// Захват дорабатывает, завершение придет через results
			run.cancel()
			o.persist(run, next, "")
			o.publishStatus(next, run)
			msg.reply <- controlReply{}
			return next, run
		}
		next = o.finishRun(next, run, nil)
		msg.reply <- controlReply{}
		return next, o.clearIfIdle(next, run)
	}

	msg.reply <- controlReply{err: fmt.Errorf("неизвестное управляющее событие %s", msg.kind)}
	return state, run
}

// beginRun создает запись запуска и его выходную директорию
func (o *Orchestrator) beginRun(plan models.ScanPlan) (*activeRun, error) {
	planJSON, _ := json.Marshal(plan)
	entity := &entities.ScanRun{
		RunID:    uuid.New().String(),
		PlanName: plan.Name,
		PlanJSON: string(planJSON),
		Status:   entities.StatusRunning,
	}

	dir, err := o.recorder.EnsureRunDir(o.cfg.OutputDir, entity.RunID)
	if err != nil {
		return nil, err
	}
	entity.OutputDir = dir

	if err := o.repo.Create(entity); err != nil {
		return nil, fmt.Errorf("не удалось сохранить запуск: %w", err)
	}

	return &activeRun{
		entity:  entity,
		plan:    plan,
		dir:     dir,
		results: make(chan segmentResult, 1),
	}, nil
}

// startSegment настраивает прибор и запускает захват очередного сегмента.
// Когда сегменты кончились - закрывает запуск.
func (o *Orchestrator) startSegment(state runState, run *activeRun) runState {
	if run.next >= len(run.plan.Segments) {
		return o.finishRun(state, run, nil)
	}

	idx := run.next
	seg := run.plan.Segments[idx]
	ctx, cancel := context.WithCancel(context.Background())
	run.inFlight = true
	run.cancel = cancel

	go func() {
		defer cancel()
		if err := o.setupSegment(seg); err != nil {
			run.results <- segmentResult{index: idx, err: fmt.Errorf("настройка сегмента %d: %w", idx, err)}
			return
		}
		sp, err := o.worker.Capture(ctx, idx, seg)
		run.results <- segmentResult{index: idx, spectrum: sp, err: err}
	}()

	return state
}

// setupSegment - синхронная настройка прибора на границы сегмента.
// Каждый set подтверждается менеджером параметра до старта захвата.
func (o *Orchestrator) setupSegment(seg models.Segment) error {
	if _, err := o.instrument.RequestSet(paramFreqStart, formatHz(seg.StartHz)); err != nil {
		return err
	}
	if _, err := o.instrument.RequestSet(paramFreqStop, formatHz(seg.StopHz)); err != nil {
		return err
	}
	if seg.RBWHz > 0 {
		if _, err := o.instrument.RequestSet(paramRBW, formatHz(seg.RBWHz)); err != nil {
			return err
		}
	}
	return nil
}

func formatHz(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func (o *Orchestrator) handleSegmentDone(state runState, run *activeRun, res segmentResult) (runState, *activeRun) {
	run.inFlight = false
	run.cancel = nil

	if res.err != nil {
		return o.failRun(state, run, fmt.Errorf("сегмент %d: %w", res.index, res.err)), nil
	}

	run.spectra = append(run.spectra, res.spectrum)
	run.next = res.index + 1

	if _, err := o.recorder.WriteSegmentCSV(run.dir, res.spectrum); err != nil {
		return o.failRun(state, run, err), nil
	}

	o.bus.Publish(bus.TopicSpectrum(res.index), run.entity.RunID, res.spectrum)
	o.persist(run, state, "")
	o.logger.Info("Segment captured", "run_id", run.entity.RunID, "segment", res.index, "points", len(res.spectrum.Freqs))

	switch state {
	case stateRunning:
		state = o.startSegment(state, run)
		return state, o.clearIfIdle(state, run)
	case statePaused:
		o.publishStatus(state, run)
		return state, run
	case stateStopping:
		state = o.finishRun(state, run, nil)
		return state, o.clearIfIdle(state, run)
	}

	return state, run
}

// finishRun закрывает запуск: склейка, выходные файлы, терминальный статус.
// Запуск, остановленный досрочно, завершается как Completed с пометкой
// о частичном результате.
func (o *Orchestrator) finishRun(state runState, run *activeRun, runErr error) runState {
	if runErr != nil {
		return o.failRun(state, run, runErr)
	}

	partial := run.next < len(run.plan.Segments)

	if len(run.spectra) > 0 {
		trace, err := processing.Stitch(run.spectra, models.StitchPolicy(o.cfg.StitchPolicy))
		if err != nil {
			return o.failRun(state, run, fmt.Errorf("склейка трассы: %w", err))
		}
		if _, err := o.recorder.WriteStitchedCSV(run.dir, trace); err != nil {
			return o.failRun(state, run, err)
		}
		if _, err := o.recorder.WriteRunParquet(run.dir, run.entity.RunID, run.plan, run.spectra); err != nil {
			return o.failRun(state, run, err)
		}
		o.bus.Publish(bus.TopicStitched, run.entity.RunID, trace)
	}

	run.entity.Partial = partial
	final, _ := transition(state, ctrlRunDone)
	o.persist(run, final, "")
	o.publishStatus(final, run)
	o.logger.Info("Scan completed", "run_id", run.entity.RunID, "segments", len(run.spectra), "partial", partial)

	// Терминальное состояние архивировано - оркестратор снова свободен
	return stateIdle
}

// failRun переводит запуск в Failed. Уже записанные сегменты остаются
// на диске как частичный результат.
func (o *Orchestrator) failRun(state runState, run *activeRun, cause error) runState {
	final, _ := transition(state, ctrlRunFailed)
	run.entity.Partial = run.next < len(run.plan.Segments)
	o.persist(run, final, cause.Error())
	o.publishStatus(final, run)
	o.bus.Publish(bus.TopicError("scan"), run.entity.RunID, models.ErrorEvent{
		Source:  "scan",
		Message: cause.Error(),
	})
	o.logger.Error("Scan failed", "run_id", run.entity.RunID, "segment", run.next, "error", cause)

	return stateIdle
}

// clearIfIdle сбрасывает ссылку на запуск после его завершения
func (o *Orchestrator) clearIfIdle(state runState, run *activeRun) *activeRun {
	if state == stateIdle {
		return nil
	}
	return run
}

// persist обновляет запись запуска в БД; ошибка БД не валит скан
func (o *Orchestrator) persist(run *activeRun, state runState, lastError string) {
	run.entity.Status = state.String()
	run.entity.SegmentIndex = run.next
	if lastError != "" {
		run.entity.LastError = lastError
	}
	if err := o.repo.Update(run.entity); err != nil {
		o.logger.Warn("Failed to persist scan run", "run_id", run.entity.RunID, "error", err)
	}
}

// publishStatus обновляет снимок статуса и публикует его на шину
func (o *Orchestrator) publishStatus(state runState, run *activeRun) {
	status := models.ScanStatus{
		RunID:         run.entity.RunID,
		State:         state.String(),
		SegmentIndex:  run.next,
		SegmentsTotal: len(run.plan.Segments),
		Partial:       run.entity.Partial,
		Error:         run.entity.LastError,
		OutputDir:     run.dir,
	}

	o.statusMu.Lock()
	o.status = status
	o.statusMu.Unlock()

	o.bus.Publish(bus.TopicScanStatus, run.entity.RunID, status)
}

// FailInterrupted закрывает запуски, не дожившие до терминального статуса
// из-за рестарта сервиса
func (o *Orchestrator) FailInterrupted() error {
	runs, err := o.repo.GetUnfinished()
	if err != nil {
		return fmt.Errorf("не удалось получить незавершенные запуски: %w", err)
	}

	for i := range runs {
		run := &runs[i]
		run.Status = entities.StatusFailed
		run.Partial = true
		run.LastError = "сервис был перезапущен во время выполнения"
		if err := o.repo.Update(run); err != nil {
			o.logger.Warn("Failed to close interrupted run", "run_id", run.RunID, "error", err)
			continue
		}
		o.logger.Warn("Interrupted run closed as failed", "run_id", run.RunID)
	}

	return nil
}
