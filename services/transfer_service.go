package services

import (
	"context"

	"courier-lab/domain"
	"courier-lab/infrastructure/storage"
	"courier-lab/observability"
	"courier-lab/runtime"
)

// TransferService is the thin seam between the gateway and the pipeline
// core: it forwards submissions and operator controls and reads the
// archive back out.
type TransferService struct {
	coordinator *runtime.Coordinator
	archive     storage.ITransferRepository
	stats       *observability.PipelineStats
}

func NewTransferService(
	coordinator *runtime.Coordinator,
	archive storage.ITransferRepository,
	stats *observability.PipelineStats,
) *TransferService {
	return &TransferService{coordinator: coordinator, archive: archive, stats: stats}
}

func (s *TransferService) Submit(ctx context.Context, req runtime.SubmitRequest) (domain.JobID, error) {
	return s.coordinator.Submit(ctx, req)
}

// Pause halts admission, drains the queue and cancels the active
// transfer; returns the drained count.
func (s *TransferService) Pause(ctx context.Context) int {
	return s.coordinator.Pause(ctx)
}

func (s *TransferService) Resume() {
	s.coordinator.Resume()
}

func (s *TransferService) Paused() bool {
	return s.coordinator.Paused()
}

func (s *TransferService) PositionOf(id domain.JobID) (int, bool) {
	return s.coordinator.PositionOf(id)
}

func (s *TransferService) History(limit int) ([]storage.TransferRecord, error) {
	return s.archive.List(limit)
}

func (s *TransferService) Stats() observability.PipelineSnapshot {
	return s.stats.Snapshot(s.coordinator.QueueLen(), s.coordinator.Paused())
}
