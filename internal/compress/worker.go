package compress

import (
	"errors"
	"fmt"
	"sync"
)

// ErrWorkerClosed возвращается при обращении к остановленному воркеру.
var ErrWorkerClosed = errors.New("compress worker is closed")

type jobKind int

const (
	jobCompress jobKind = iota
	jobDecompress
)

type job struct {
	kind jobKind
	data []byte
	resp chan result
}

type result struct {
	data []byte
	err  error
}

// Worker выносит работу компрессора с горутины вызывающего на собственную.
//
// Задания выполняются строго последовательно, в порядке поступления:
// для одного вызова save/load конвейер всегда один, и перестановка
// шагов недопустима. Вызов блокируется до готовности результата, так
// что интерфейс остаётся тем же Compressor.
type Worker struct {
	inner Compressor
	jobs  chan job
	done  chan struct{}

	mu     sync.RWMutex
	closed bool
}

// NewWorker запускает воркер поверх готового компрессора.
func NewWorker(inner Compressor) *Worker {
	w := &Worker{
		inner: inner,
		jobs:  make(chan job, 16),
		done:  make(chan struct{}),
	}
	go w.run()
	return w
}

func (w *Worker) run() {
	for j := range w.jobs {
		var r result
		switch j.kind {
		case jobCompress:
			r.data, r.err = w.inner.Compress(j.data)
		case jobDecompress:
			r.data, r.err = w.inner.Decompress(j.data)
		}
		j.resp <- r
	}
	close(w.done)
}

func (w *Worker) submit(kind jobKind, data []byte) ([]byte, error) {
	j := job{kind: kind, data: data, resp: make(chan result, 1)}

	// Отправка под RLock: Close не закроет канал, пока задание
	// ставится в очередь.
	w.mu.RLock()
	if w.closed {
		w.mu.RUnlock()
		return nil, ErrWorkerClosed
	}
	w.jobs <- j
	w.mu.RUnlock()

	r := <-j.resp
	if r.err != nil {
		return nil, fmt.Errorf("compress worker: %w", r.err)
	}
	return r.data, nil
}

func (w *Worker) Compress(text []byte) ([]byte, error) {
	return w.submit(jobCompress, text)
}

func (w *Worker) Decompress(blob []byte) ([]byte, error) {
	return w.submit(jobDecompress, blob)
}

// Close останавливает воркер. Уже принятые задания доделываются.
// Повторный Close безопасен.
func (w *Worker) Close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	close(w.jobs)
	w.mu.Unlock()
	<-w.done
}
