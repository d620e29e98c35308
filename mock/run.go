package mock

import (
	"context"

	"github.com/fwojciec/sift"
)

var _ sift.RunService = (*RunService)(nil)

// RunService is a mock implementation of sift.RunService.
type RunService struct {
	CreateRunFn    func(ctx context.Context, run *sift.Run) error
	RecordTargetFn func(ctx context.Context, result *sift.TargetResult) error
	FinishRunFn    func(ctx context.Context, id string) error
	FindRunByIDFn  func(ctx context.Context, id string) (*sift.Run, error)
	FindRunsFn     func(ctx context.Context, filter sift.RunFilter) ([]*sift.Run, error)
}

func (s *RunService) CreateRun(ctx context.Context, run *sift.Run) error {
	return s.CreateRunFn(ctx, run)
}

func (s *RunService) RecordTarget(ctx context.Context, result *sift.TargetResult) error {
	return s.RecordTargetFn(ctx, result)
}

func (s *RunService) FinishRun(ctx context.Context, id string) error {
	return s.FinishRunFn(ctx, id)
}

func (s *RunService) FindRunByID(ctx context.Context, id string) (*sift.Run, error) {
	return s.FindRunByIDFn(ctx, id)
}

func (s *RunService) FindRuns(ctx context.Context, filter sift.RunFilter) ([]*sift.Run, error) {
	return s.FindRunsFn(ctx, filter)
}
