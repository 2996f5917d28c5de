package scan_service

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iwtcode/spectrumService/internal/config"
	"github.com/iwtcode/spectrumService/internal/domain/entities"
	"github.com/iwtcode/spectrumService/internal/domain/models"
	"github.com/iwtcode/spectrumService/internal/middleware/logging"
	"github.com/iwtcode/spectrumService/internal/services/bus"
	"github.com/iwtcode/spectrumService/internal/services/recorder"
)

// fakeInstrument принимает любые set-запросы; может быть настроен на отказ
type fakeInstrument struct {
	mu      sync.Mutex
	sets    []string
	failSet bool
}

func (f *fakeInstrument) RequestSet(parameter string, values ...string) (models.TypedValue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSet {
		return models.TypedValue{}, fmt.Errorf("прибор отказал на параметре '%s'", parameter)
	}
	f.sets = append(f.sets, parameter)
	return models.TypedValue{}, nil
}

func (f *fakeInstrument) RequestGet(string) (models.TypedValue, error) { return models.TypedValue{}, nil }
func (f *fakeInstrument) RequestDo(string) error                      { return nil }
func (f *fakeInstrument) States() []models.InstrumentState            { return nil }
func (f *fakeInstrument) Parameters() []string                        { return nil }

// fakeTraceTranslator отдает фиксированную трассу на каждое чтение
type fakeTraceTranslator struct {
	mu        sync.Mutex
	amps      []float64
	failTrace bool
}

func (f *fakeTraceTranslator) Translate(cmd models.AbstractCommand) (models.TypedValue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failTrace {
		return models.TypedValue{}, fmt.Errorf("трасса недоступна")
	}
	return models.TypedValue{Kind: models.ParseFloatList, Floats: append([]float64(nil), f.amps...)}, nil
}

func (f *fakeTraceTranslator) HasBinding(models.Action, string) bool { return true }
func (f *fakeTraceTranslator) Bindings() []models.CommandBinding     { return nil }

// memRepo - потокобезопасное хранилище запусков в памяти
type memRepo struct {
	mu   sync.Mutex
	runs map[string]entities.ScanRun
}

func newMemRepo() *memRepo {
	return &memRepo{runs: make(map[string]entities.ScanRun)}
}

func (r *memRepo) Create(run *entities.ScanRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs[run.RunID] = *run
	return nil
}

func (r *memRepo) Update(run *entities.ScanRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs[run.RunID] = *run
	return nil
}

func (r *memRepo) GetByRunID(runID string) (*entities.ScanRun, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	run, ok := r.runs[runID]
	if !ok {
		return nil, fmt.Errorf("запуск '%s' не найден", runID)
	}
	return &run, nil
}

func (r *memRepo) GetAll() ([]entities.ScanRun, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]entities.ScanRun, 0, len(r.runs))
	for _, run := range r.runs {
		out = append(out, run)
	}
	return out, nil
}

func (r *memRepo) GetUnfinished() ([]entities.ScanRun, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []entities.ScanRun
	for _, run := range r.runs {
		if !entities.IsTerminal(run.Status) {
			out = append(out, run)
		}
	}
	return out, nil
}

type testEnv struct {
	orchestrator *Orchestrator
	instrument   *fakeInstrument
	translator   *fakeTraceTranslator
	repo         *memRepo
	outputDir    string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	logger := logging.NewLogger(&logging.Config{Enabled: false, Level: "ERROR"}, "TEST")
	outputDir := t.TempDir()

	cfg := &config.AppConfig{
		Scan: config.ScanConfig{
			OutputDir:      outputDir,
			PollInterval:   2 * time.Millisecond,
			DwellSlack:     100 * time.Millisecond,
			StitchPolicy:   "last",
			AverageTraces:  false,
			StabilityDelta: 0.1,
			StabilityCount: 0,
		},
	}

	env := &testEnv{
		instrument: &fakeInstrument{},
		translator: &fakeTraceTranslator{amps: []float64{-80, -75, -70, -65}},
		repo:       newMemRepo(),
		outputDir:  outputDir,
	}

	eventBus := bus.NewBus(logger)
	env.orchestrator = NewOrchestrator(cfg, env.instrument, env.translator, eventBus, env.repo, recorder.NewRecorder(logger), logger)
	t.Cleanup(env.orchestrator.Close)

	return env
}

func plan(segments ...models.Segment) models.ScanPlan {
	return models.ScanPlan{Name: "test-plan", Segments: segments}
}

func segment(startHz, stopHz float64, dwellMs int64) models.Segment {
	return models.Segment{StartHz: startHz, StopHz: stopHz, RBWHz: 1000, DwellMs: dwellMs}
}

func waitForState(t *testing.T, o *Orchestrator, state string) {
	t.Helper()
	require.Eventually(t, func() bool {
		return o.Status().State == state
	}, 3*time.Second, 2*time.Millisecond, "не дождались состояния '%s', текущее '%s'", state, o.Status().State)
}

func TestStatusIdleBeforeFirstRun(t *testing.T) {
	env := newTestEnv(t)
	require.Equal(t, entities.StatusIdle, env.orchestrator.Status().State)
}

func TestScanCompletesAllSegments(t *testing.T) {
	env := newTestEnv(t)

	runID, err := env.orchestrator.Start(plan(
		segment(1e6, 2e6, 5),
		segment(2e6, 3e6, 5),
		segment(3e6, 4e6, 5),
	))
	require.NoError(t, err)
	require.NotEmpty(t, runID)

	waitForState(t, env.orchestrator, entities.StatusCompleted)

	status := env.orchestrator.Status()
	require.Equal(t, 3, status.SegmentIndex, "Все сегменты должны быть захвачены")
	require.False(t, status.Partial)

	// На каждый сегмент свой CSV плюс склейка и parquet-архив
	runDir := filepath.Join(env.outputDir, runID)
	for _, name := range []string{"segment_000.csv", "segment_001.csv", "segment_002.csv", "stitched.csv", "trace.parquet"} {
		_, err := os.Stat(filepath.Join(runDir, name))
		require.NoError(t, err, "ожидался файл %s", name)
	}

	saved, err := env.repo.GetByRunID(runID)
	require.NoError(t, err)
	require.Equal(t, entities.StatusCompleted, saved.Status)
}

func TestStartRejectsEmptyPlan(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.orchestrator.Start(plan())
	require.Error(t, err)
}

func TestStartRejectsInvertedSegment(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.orchestrator.Start(plan(segment(2e6, 1e6, 5)))
	require.Error(t, err)
}

func TestControlRejectedWhenIdle(t *testing.T) {
	env := newTestEnv(t)

	require.ErrorIs(t, env.orchestrator.Pause(), ErrInvalidStateTransition)
	require.ErrorIs(t, env.orchestrator.Resume(), ErrInvalidStateTransition)
	require.ErrorIs(t, env.orchestrator.Stop(), ErrInvalidStateTransition)
}

func TestStartRejectedWhileRunning(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.orchestrator.Start(plan(segment(1e6, 2e6, 200)))
	require.NoError(t, err)

	_, err = env.orchestrator.Start(plan(segment(1e6, 2e6, 5)))
	require.ErrorIs(t, err, ErrInvalidStateTransition, "Второй запуск поверх активного недопустим")

	require.NoError(t, env.orchestrator.Stop())
	waitForState(t, env.orchestrator, entities.StatusCompleted)
}

func TestPauseDoesNotTruncateCapture(t *testing.T) {
	env := newTestEnv(t)

	runID, err := env.orchestrator.Start(plan(
		segment(1e6, 2e6, 30),
		segment(2e6, 3e6, 30),
	))
	require.NoError(t, err)
	require.NoError(t, env.orchestrator.Pause())

	// Начатый захват дорабатывает до конца и попадает на диск,
	// но следующий сегмент на паузе не стартует
	require.Eventually(t, func() bool {
		return env.orchestrator.Status().SegmentIndex == 1
	}, 3*time.Second, 2*time.Millisecond)
	require.Equal(t, entities.StatusPaused, env.orchestrator.Status().State)

	_, err = os.Stat(filepath.Join(env.outputDir, runID, "segment_000.csv"))
	require.NoError(t, err, "Сегмент, захваченный до паузы, должен быть записан целиком")

	time.Sleep(50 * time.Millisecond)
	require.Equal(t, 1, env.orchestrator.Status().SegmentIndex, "На паузе новые сегменты не стартуют")

	require.NoError(t, env.orchestrator.Resume())
	waitForState(t, env.orchestrator, entities.StatusCompleted)
	require.Equal(t, 2, env.orchestrator.Status().SegmentIndex)
}

func TestStopProducesPartialResult(t *testing.T) {
	env := newTestEnv(t)

	runID, err := env.orchestrator.Start(plan(
		segment(1e6, 2e6, 100),
		segment(2e6, 3e6, 100),
		segment(3e6, 4e6, 100),
	))
	require.NoError(t, err)
	require.NoError(t, env.orchestrator.Stop())

	waitForState(t, env.orchestrator, entities.StatusCompleted)

	status := env.orchestrator.Status()
	require.True(t, status.Partial, "Остановленный скан помечается частичным")
	require.Less(t, status.SegmentIndex, 3)

	// Даже частичный результат склеивается
	_, err = os.Stat(filepath.Join(env.outputDir, runID, "stitched.csv"))
	require.NoError(t, err)

	saved, err := env.repo.GetByRunID(runID)
	require.NoError(t, err)
	require.Equal(t, entities.StatusCompleted, saved.Status)
	require.True(t, saved.Partial)
}

func TestSetupFailureFailsRun(t *testing.T) {
	env := newTestEnv(t)
	env.instrument.failSet = true

	runID, err := env.orchestrator.Start(plan(segment(1e6, 2e6, 5)))
	require.NoError(t, err)

	waitForState(t, env.orchestrator, entities.StatusFailed)
	require.NotEmpty(t, env.orchestrator.Status().Error)

	saved, err := env.repo.GetByRunID(runID)
	require.NoError(t, err)
	require.Equal(t, entities.StatusFailed, saved.Status)
}

func TestTraceFailureFailsRun(t *testing.T) {
	env := newTestEnv(t)
	env.translator.failTrace = true

	_, err := env.orchestrator.Start(plan(segment(1e6, 2e6, 5)))
	require.NoError(t, err)

	waitForState(t, env.orchestrator, entities.StatusFailed)
}

func TestNewRunAllowedAfterFailure(t *testing.T) {
	env := newTestEnv(t)
	env.translator.failTrace = true

	_, err := env.orchestrator.Start(plan(segment(1e6, 2e6, 5)))
	require.NoError(t, err)
	waitForState(t, env.orchestrator, entities.StatusFailed)

	env.translator.mu.Lock()
	env.translator.failTrace = false
	env.translator.mu.Unlock()

	_, err = env.orchestrator.Start(plan(segment(1e6, 2e6, 5)))
	require.NoError(t, err, "После терминального состояния оркестратор снова свободен")
	waitForState(t, env.orchestrator, entities.StatusCompleted)
}

func TestFailInterruptedClosesStaleRuns(t *testing.T) {
	env := newTestEnv(t)

	stale := &entities.ScanRun{RunID: "stale-run", Status: entities.StatusRunning}
	require.NoError(t, env.repo.Create(stale))

	require.NoError(t, env.orchestrator.FailInterrupted())

	saved, err := env.repo.GetByRunID("stale-run")
	require.NoError(t, err)
	require.Equal(t, entities.StatusFailed, saved.Status)
	require.True(t, saved.Partial)
}

func TestSegmentSetupOrder(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.orchestrator.Start(plan(segment(1e6, 2e6, 5)))
	require.NoError(t, err)
	waitForState(t, env.orchestrator, entities.StatusCompleted)

	env.instrument.mu.Lock()
	defer env.instrument.mu.Unlock()
	require.Equal(t, []string{paramFreqStart, paramFreqStop, paramRBW}, env.instrument.sets,
		"Перед захватом выставляются границы сегмента и полоса")
}

func TestTransitionTable(t *testing.T) {
	cases := []struct {
		from runState
		ev   controlKind
		to   runState
		ok   bool
	}{
		{stateIdle, ctrlStart, stateRunning, true},
		{stateRunning, ctrlPause, statePaused, true},
		{statePaused, ctrlResume, stateRunning, true},
		{stateRunning, ctrlStop, stateStopping, true},
		{statePaused, ctrlStop, stateStopping, true},
		{stateStopping, ctrlRunDone, stateCompleted, true},
		{stateRunning, ctrlRunDone, stateCompleted, true},
		{stateRunning, ctrlRunFailed, stateFailed, true},
		{stateIdle, ctrlPause, stateIdle, false},
		{stateIdle, ctrlStop, stateIdle, false},
		{statePaused, ctrlPause, statePaused, false},
		{stateRunning, ctrlStart, stateRunning, false},
		{stateRunning, ctrlResume, stateRunning, false},
	}

	for _, tc := range cases {
		got, err := transition(tc.from, tc.ev)
		if tc.ok {
			require.NoError(t, err, "%s + %s", tc.from, tc.ev)
			require.Equal(t, tc.to, got)
		} else {
			require.ErrorIs(t, err, ErrInvalidStateTransition, "%s + %s", tc.from, tc.ev)
		}
	}
}
