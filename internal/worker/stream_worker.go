package worker

import (
	"context"
	"errors"
	"iter"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"novel-game/internal/model"
	"novel-game/internal/service"
)

// ErrSequenceConsumed - повторная итерация одноразовой последовательности.
var ErrSequenceConsumed = errors.New("fragment sequence already consumed")

// StreamMessage - фрагмент (или ошибка) одного потока, помеченный ходом.
type StreamMessage struct {
	Turn     int
	Fragment model.StreamFragment
	Err      error
}

// StreamWorker запускает потоковые запросы к модели под эксклюзивной блокировкой.
type StreamWorker struct {
	streamer service.TextStreamer
	gate     *Gate
	logger   *zap.Logger
}

// NewStreamWorker создает воркер. gate == nil означает DefaultTextGate.
func NewStreamWorker(streamer service.TextStreamer, gate *Gate, logger *zap.Logger) *StreamWorker {
	if gate == nil {
		gate = DefaultTextGate
	}
	return &StreamWorker{streamer: streamer, gate: gate, logger: logger.Named("stream_worker")}
}

// Fragments возвращает ленивую одноразовую последовательность фрагментов.
//
// Блокировка берется при первой итерации и держится до конца запроса.
// Последовательность обрывается сразу после фрагмента с IsFinal; если поток
// закончился без него, последним элементом идет service.ErrStreamTruncated.
// Отмена ctx мешает только начать запрос: уже открытый запрос ей не прерывается.
func (w *StreamWorker) Fragments(ctx context.Context, transcript model.Transcript) iter.Seq2[model.StreamFragment, error] {
	var used atomic.Bool
	return func(yield func(model.StreamFragment, error) bool) {
		if !used.CompareAndSwap(false, true) {
			yield(model.StreamFragment{}, ErrSequenceConsumed)
			return
		}

		waitStart := time.Now()
		if err := w.gate.Acquire(ctx); err != nil {
			yield(model.StreamFragment{}, err)
			return
		}
		defer w.gate.Release()
		gateWait.WithLabelValues(w.gate.Name()).Observe(time.Since(waitStart).Seconds())

		for fragment, err := range w.streamer.StreamChat(context.WithoutCancel(ctx), transcript) {
			if err != nil {
				yield(model.StreamFragment{}, err)
				return
			}
			if !yield(fragment, nil) || fragment.IsFinal {
				return
			}
		}
		yield(model.StreamFragment{}, service.ErrStreamTruncated)
	}
}

// Start запускает поток в отдельной горутине и пишет фрагменты в out
// строго в порядке получения. Горутина не ждется: после отмены ctx
// недоставленные фрагменты отбрасываются.
func (w *StreamWorker) Start(ctx context.Context, turn int, transcript model.Transcript, out chan<- StreamMessage) {
	snapshot := transcript.Clone()
	go func() {
		log := w.logger.With(zap.Int("turn", turn))
		log.Debug("Stream started", zap.Int("messages", len(snapshot)))
		for fragment, err := range w.Fragments(ctx, snapshot) {
			if !deliver(ctx, out, StreamMessage{Turn: turn, Fragment: fragment, Err: err}) {
				streamsTotal.WithLabelValues("abandoned").Inc()
				log.Debug("Stream abandoned after shutdown")
				return
			}
			if err != nil {
				streamsTotal.WithLabelValues("error").Inc()
				log.Warn("Stream failed", zap.Error(err))
				return
			}
			streamFragments.Inc()
			if fragment.IsFinal {
				streamsTotal.WithLabelValues("success").Inc()
				log.Debug("Stream completed")
			}
		}
	}()
}

func deliver[T any](ctx context.Context, out chan<- T, msg T) bool {
	select {
	case out <- msg:
		return true
	case <-ctx.Done():
		return false
	}
}
