package worker

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// Gate - эксклюзивная блокировка на один внешний сервис: пока запрос к
// сервису выполняется, второй не стартует. У текста и картинок свои Gate,
// поэтому их работа может идти параллельно.
type Gate struct {
	name string
	sem  *semaphore.Weighted
}

// NewGate создает свободную блокировку.
func NewGate(name string) *Gate {
	return &Gate{name: name, sem: semaphore.NewWeighted(1)}
}

// Общие для процесса блокировки
var (
	DefaultTextGate  = NewGate("text")
	DefaultImageGate = NewGate("image")
)

// Acquire ждет освобождения или отмены ctx.
func (g *Gate) Acquire(ctx context.Context) error {
	return g.sem.Acquire(ctx, 1)
}

// TryAcquire захватывает блокировку без ожидания.
func (g *Gate) TryAcquire() bool {
	return g.sem.TryAcquire(1)
}

// Release освобождает блокировку.
func (g *Gate) Release() {
	g.sem.Release(1)
}

// Name - имя сервиса для логов и метрик.
func (g *Gate) Name() string {
	return g.name
}
