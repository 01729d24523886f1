// Package game содержит машину ходов: управляющую горутину сессии,
// арбитр ввода игрока и формат сообщений хода.
package game

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"novel-game/internal/model"
	"novel-game/internal/parser"
	"novel-game/internal/service"
	"novel-game/internal/worker"
)

// EventSink получает события для UI. Publish вызывается только из
// управляющей горутины и не должен надолго блокироваться.
type EventSink interface {
	Publish(event model.UIEvent)
}

// Randomizer - источник случайности для событий хода.
type Randomizer interface {
	Float64() float64
	IntN(n int) int
}

type globalRand struct{}

func (globalRand) Float64() float64 { return rand.Float64() }
func (globalRand) IntN(n int) int { return rand.IntN(n) }

const (
	defaultPollInterval   = time.Second
	defaultCloseTimeout   = 5 * time.Second
	defaultEventChance    = 0.3
	fragmentChannelBuffer = 64
)

// Options - параметры игрового цикла.
type Options struct {
	RandomEvents           []string
	RandomEventProbability float64       // < 0 означает значение по умолчанию 0.3
	PollInterval           time.Duration // Период проверки флага остановки
	CloseTimeout           time.Duration // Ожидание выхода цикла в Close
	TranscriptPath         string        // Пусто - дамп диалога отключен

	Random Randomizer           // nil - math/rand/v2
	Tokens service.TokenCounter // nil - оценка токенов не ведется
}

// Loop - машина ходов одной сессии.
//
// Сессией, парсером и накопителями хода владеет только горутина Run.
// Воркеры пишут в каналы fragments и imageResults, выбор игрока приходит
// через InputArbiter, все остальное читается через Snapshot.
type Loop struct {
	session *model.Session
	parser  *parser.MarkerParser
	arbiter *InputArbiter
	streams *worker.StreamWorker
	images  *worker.ImageWorker
	sink    EventSink
	opts    Options
	logger  *zap.Logger

	fragments    chan worker.StreamMessage
	imageResults chan worker.ImageResult
	retries      chan struct{}

	// Накопители хода
	reply            strings.Builder
	slots            [model.ChoiceSlots]strings.Builder
	imagePrompt      strings.Builder
	imageOutstanding bool

	snapshot     atomic.Pointer[model.SessionSnapshot]
	started      atomic.Bool
	terminating  atomic.Bool
	streamFailed atomic.Bool
	done         chan struct{}
}

// NewLoop собирает цикл. images == nil отключает генерацию картинок.
func NewLoop(
	session *model.Session,
	streams *worker.StreamWorker,
	images *worker.ImageWorker,
	sink EventSink,
	opts Options,
	logger *zap.Logger,
) *Loop {
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}
	if opts.CloseTimeout <= 0 {
		opts.CloseTimeout = defaultCloseTimeout
	}
	if opts.RandomEventProbability < 0 {
		opts.RandomEventProbability = defaultEventChance
	}
	if opts.Random == nil {
		opts.Random = globalRand{}
	}

	l := &Loop{
		session:      session,
		parser:       parser.New(),
		arbiter:      NewInputArbiter(),
		streams:      streams,
		images:       images,
		sink:         sink,
		opts:         opts,
		logger:       logger.Named("game").With(zap.String("session_id", session.ID.String())),
		fragments:    make(chan worker.StreamMessage, fragmentChannelBuffer),
		imageResults: make(chan worker.ImageResult, 1),
		retries:      make(chan struct{}, 1),
		done:         make(chan struct{}),
	}
	l.publishSnapshot()
	return l
}

// Run запускает первый ход и крутит управляющий цикл до Shutdown или
// отмены ctx. Сетевые запросы воркеров при выходе не прерываются,
// их результаты просто отбрасываются.
func (l *Loop) Run(ctx context.Context) error {
	if !l.started.CompareAndSwap(false, true) {
		return model.ErrAlreadyStarted
	}

	workerCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer l.finish()

	ticker := time.NewTicker(l.opts.PollInterval)
	defer ticker.Stop()

	l.logger.Info("Game loop started", zap.Int("max_turns", l.session.MaxTurns))
	l.startStreaming(workerCtx)

	for {
		select {
		case <-ctx.Done():
			l.logger.Info("Game loop context cancelled")
			return nil
		case <-ticker.C:
		case msg := <-l.fragments:
			if !l.terminating.Load() {
				l.onFragment(workerCtx, msg)
			}
		case res := <-l.imageResults:
			if !l.terminating.Load() {
				l.onImageResult(res)
			}
		case <-l.arbiter.Notify():
			if !l.terminating.Load() {
				l.onChoice(workerCtx)
			}
		case <-l.retries:
			if !l.terminating.Load() {
				l.onRetry(workerCtx)
			}
		}

		if l.terminating.Load() {
			l.logger.Info("Shutdown observed, leaving game loop", zap.Int("turn", l.session.Turn))
			return nil
		}
	}
}

// Shutdown просит цикл завершиться. Безопасен из любой горутины;
// цикл замечает флаг не позже чем через PollInterval.
func (l *Loop) Shutdown() {
	l.terminating.Store(true)
}

// Close вызывает Shutdown и ждет выхода цикла не дольше CloseTimeout.
func (l *Loop) Close(ctx context.Context) error {
	l.Shutdown()
	if l.started.CompareAndSwap(false, true) {
		// Run не запускался, закрываем сессию сами
		l.finish()
		return nil
	}

	timer := time.NewTimer(l.opts.CloseTimeout)
	defer timer.Stop()
	select {
	case <-l.done:
		return nil
	case <-timer.C:
		return model.ErrCloseTimeout
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", model.ErrCloseTimeout, ctx.Err())
	}
}

// Done закрывается после выхода управляющего цикла.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

// SubmitChoice передает клик игрока арбитру. Клик вне окна приема
// отбрасывается без ошибки, результат нужен только для ответа UI.
func (l *Loop) SubmitChoice(index int) bool {
	if l.terminating.Load() {
		return false
	}
	if !l.arbiter.Submit(index) {
		choicesDropped.Inc()
		l.logger.Debug("Choice dropped", zap.Int("slot", index), zap.Stringer("state", l.arbiter.State()))
		return false
	}
	return true
}

// Retry перезапускает стрим текущего хода после ошибки стрима.
func (l *Loop) Retry() error {
	if l.terminating.Load() {
		return model.ErrSessionClosed
	}
	if !l.streamFailed.Load() {
		return model.ErrNothingToRetry
	}
	select {
	case l.retries <- struct{}{}:
	default:
	}
	return nil
}

// Snapshot возвращает последнее опубликованное состояние сессии.
func (l *Loop) Snapshot() model.SessionSnapshot {
	return *l.snapshot.Load()
}

func (l *Loop) setState(state model.GameState) {
	l.session.State = state
	l.arbiter.SetState(state)
}

func (l *Loop) startStreaming(ctx context.Context) {
	l.setState(model.StateStreaming)
	l.streamFailed.Store(false)
	l.streams.Start(ctx, l.session.Turn, l.session.Transcript, l.fragments)
	l.recordTokens()
	l.publishSnapshot()
	l.logger.Debug("Streaming turn", zap.Int("turn", l.session.Turn))
}

func (l *Loop) onFragment(ctx context.Context, msg worker.StreamMessage) {
	if msg.Turn != l.session.Turn || l.session.State != model.StateStreaming || l.streamFailed.Load() {
		l.logger.Debug("Stale fragment discarded", zap.Int("fragment_turn", msg.Turn))
		return
	}
	if msg.Err != nil {
		l.failStream(msg.Err)
		return
	}

	routed := l.parser.Feed(msg.Fragment.Text)
	l.reply.WriteString(routed.Text)

	switch routed.Destination {
	case parser.DestNarrative:
		l.sink.Publish(model.NarrativeAppend(routed.Text, false))
	case parser.DestChoiceSlot:
		l.slots[routed.Slot].WriteString(routed.Text)
		l.sink.Publish(model.ChoiceSlotAppend(routed.Slot, routed.Text, false))
	case parser.DestImagePrompt:
		l.imagePrompt.WriteString(routed.Text)
	case parser.DestDiscard:
		l.logger.Debug("Extra action discarded", zap.Int("action_index", l.parser.State().ActionIndex))
	}
	l.signal(routed)

	if msg.Fragment.IsFinal {
		l.completeStream(ctx)
	}
}

// signal отдает победу и смерть в UI по одному разу за сессию.
func (l *Loop) signal(routed parser.Routed) {
	if routed.Win && !l.session.WinSignaled {
		l.session.WinSignaled = true
		l.sink.Publish(model.Signal(model.SignalWin))
		l.logger.Info("Win signal received", zap.Int("turn", l.session.Turn))
	}
	if routed.Death && !l.session.DeathSignaled {
		l.session.DeathSignaled = true
		l.sink.Publish(model.Signal(model.SignalDeath))
		l.logger.Info("Death signal received", zap.Int("turn", l.session.Turn))
	}
}

func (l *Loop) completeStream(ctx context.Context) {
	l.setState(model.StateAwaitingChoice)
	l.launchImage(ctx)
	l.publishSnapshot()
	l.logger.Info("Turn streamed, awaiting choice", zap.Int("turn", l.session.Turn))
}

// launchImage запускает не больше одной задачи картинки одновременно.
func (l *Loop) launchImage(ctx context.Context) {
	if l.images == nil {
		return
	}
	prompt := l.imagePrompt.String()
	if service.CleanImagePrompt(prompt) == "" {
		return
	}
	if l.imageOutstanding {
		l.logger.Debug("Image job already running, launch skipped")
		return
	}
	l.imageOutstanding = true
	l.images.Start(ctx, prompt, l.session.ImagePrompts, l.imageResults)
}

func (l *Loop) onImageResult(res worker.ImageResult) {
	l.imageOutstanding = false
	if res.Err != nil {
		failuresTotal.WithLabelValues(string(model.FailureImage)).Inc()
		l.logger.Error("Image job failed", zap.Int("attempts", res.Job.Attempt), zap.Error(res.Err))
		l.sink.Publish(model.Failure(model.FailureImage, res.Err))
		return
	}
	l.session.ImagePrompts = append(l.session.ImagePrompts, res.Job.EffectivePrompt)
	l.sink.Publish(model.ImageUpdated(res.Job.Result))
	l.publishSnapshot()
}

func (l *Loop) onChoice(ctx context.Context) {
	index, ok := l.arbiter.Consume()
	if !ok {
		return
	}
	l.setState(model.StateStreaming)

	l.session.Turn++
	l.session.MoralTally.Record(index)
	event := l.randomEvent()
	l.session.Transcript.Append(model.RoleAssistant, l.reply.String())
	l.session.Transcript.Append(model.RoleUser,
		FormatTurnMessage(index, l.session.Turn, l.session.MaxTurns, l.session.MoralTally, event))
	turnsAccepted.Inc()

	l.logger.Info("Choice accepted",
		zap.Int("slot", index),
		zap.Int("turn", l.session.Turn),
		zap.String("random_event", event),
	)

	if l.opts.TranscriptPath != "" {
		if err := DumpTranscript(l.opts.TranscriptPath, l.session.Transcript); err != nil {
			l.logger.Warn("Transcript dump failed", zap.Error(err))
		}
	}

	l.resetTurn()
	l.startStreaming(ctx)
}

func (l *Loop) onRetry(ctx context.Context) {
	if !l.streamFailed.Load() || l.session.State != model.StateStreaming {
		return
	}
	l.logger.Info("Retrying stream", zap.Int("turn", l.session.Turn))
	l.resetTurn()
	l.startStreaming(ctx)
}

func (l *Loop) failStream(err error) {
	l.streamFailed.Store(true)
	failuresTotal.WithLabelValues(string(model.FailureStream)).Inc()
	l.logger.Error("Stream failed", zap.Int("turn", l.session.Turn), zap.Error(err))
	l.sink.Publish(model.Failure(model.FailureStream, err))
	l.publishSnapshot()
}

// resetTurn очищает накопители хода, флаги парсера и панели UI.
func (l *Loop) resetTurn() {
	l.reply.Reset()
	for i := range l.slots {
		l.slots[i].Reset()
	}
	l.imagePrompt.Reset()
	l.parser.Reset()

	l.sink.Publish(model.NarrativeAppend("", true))
	for i := range model.ChoiceSlots {
		l.sink.Publish(model.ChoiceSlotAppend(i, "", true))
	}
}

func (l *Loop) randomEvent() string {
	events := l.opts.RandomEvents
	if len(events) == 0 || l.opts.Random.Float64() >= l.opts.RandomEventProbability {
		return ""
	}
	return events[l.opts.Random.IntN(len(events))]
}

// recordTokens считает токены в отдельной горутине: первая загрузка
// кодировки tiktoken идет по сети.
func (l *Loop) recordTokens() {
	if l.opts.Tokens == nil {
		return
	}
	transcript := l.session.Transcript.Clone()
	go func() {
		if n := l.opts.Tokens.CountTranscript(transcript); n >= 0 {
			transcriptTokens.Set(float64(n))
		}
	}()
}

func (l *Loop) publishSnapshot() {
	snap := l.session.Snapshot()
	snap.Choices = make([]string, len(l.slots))
	for i := range l.slots {
		snap.Choices[i] = l.slots[i].String()
	}
	l.snapshot.Store(&snap)
}

// finish переводит сессию в StateTerminated и отправляет последнее событие.
func (l *Loop) finish() {
	l.setState(model.StateTerminated)
	l.publishSnapshot()
	l.sink.Publish(model.SessionClosed())
	close(l.done)
	l.logger.Info("Game session closed",
		zap.Int("turn", l.session.Turn),
		zap.Int("good", l.session.MoralTally.Good),
		zap.Int("neutral", l.session.MoralTally.Neutral),
		zap.Int("evil", l.session.MoralTally.Evil),
	)
}
