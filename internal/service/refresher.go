package service

import (
	"context"
	"log"
	"sync"
	"time"

	"smartroom-analytics/internal/models"
)

// RefreshResult - результат пересчета сводки одной комнаты
type RefreshResult struct {
	DeviceID string
	Summary  models.RoomSummary
	Err      error
	Duration time.Duration
}

// Refresher периодически пересчитывает сводки всех комнат пулом воркеров
type Refresher struct {
	svc      *Service
	jobs     chan string
	results  chan RefreshResult
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewRefresher создает пул пересчета с очередью заданного размера
func NewRefresher(svc *Service, bufferSize int) *Refresher {
	return &Refresher{
		svc:      svc,
		jobs:     make(chan string, bufferSize),
		results:  make(chan RefreshResult, bufferSize),
		stopChan: make(chan struct{}),
	}
}

// Start запускает горутины-воркеры
func (r *Refresher) Start(numWorkers int) {
	for i := 0; i < numWorkers; i++ {
		r.wg.Add(1)
		go r.worker()
	}
}

func (r *Refresher) worker() {
	defer r.wg.Done()
	for {
		select {
		case deviceID := <-r.jobs:
			start := time.Now()
			summary, err := r.svc.Compute(context.Background(), deviceID)
			result := RefreshResult{
				DeviceID: deviceID,
				Summary:  summary,
				Err:      err,
				Duration: time.Since(start),
			}
			select {
			case r.results <- result:
			default:
				// Канал результатов переполнен, пропускаем
			}
		case <-r.stopChan:
			return
		}
	}
}

// Submit ставит комнату в очередь на пересчет
func (r *Refresher) Submit(deviceID string) bool {
	select {
	case r.jobs <- deviceID:
		return true
	default:
		return false
	}
}

// Results возвращает канал результатов
func (r *Refresher) Results() <-chan RefreshResult {
	return r.results
}

// Run раз в interval ставит в очередь все известные комнаты, пока не отменен ctx
func (r *Refresher) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	r.refreshAll(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-r.stopChan:
			return
		case <-ticker.C:
			r.refreshAll(ctx)
		}
	}
}

func (r *Refresher) refreshAll(ctx context.Context) {
	rooms, err := r.svc.Rooms(ctx)
	if err != nil {
		log.Printf("Refresh: failed to list rooms: %v", err)
		return
	}
	for _, room := range rooms {
		if !r.Submit(room) {
			log.Printf("Refresh: queue full, skipping %s", room)
		}
	}
}

// Stop останавливает воркеров
func (r *Refresher) Stop() {
	r.stopOnce.Do(func() {
		close(r.stopChan)
	})
	r.wg.Wait()
}
