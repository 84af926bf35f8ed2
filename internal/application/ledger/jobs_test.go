package ledger_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger/internal/application/ledger"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

func waitStatus(t *testing.T, jobs *ledger.Jobs, id, status string) ledger.JobSnapshot {
	t.Helper()
	var snap ledger.JobSnapshot
	require.Eventually(t, func() bool {
		var err error
		snap, err = jobs.Get(id)
		return err == nil && snap.Status == status
	}, 2*time.Second, 5*time.Millisecond)
	return snap
}

func TestJobs_CompletaConProgreso(t *testing.T) {
	jobs := ledger.NewJobs(time.Minute, nil, nil)
	defer jobs.Shutdown(context.Background())

	f := newFixture(t, "2024-01-10", func(d *ledger.Deps) { d.BatchSize = 3 })
	k := key(t, "2024-01-01")
	id := jobs.Start(k, func(ctx context.Context, onProgress ledger.ProgressFunc) (*entity.PropagationReport, error) {
		return f.svc.EditOpening(ctx, k, 4, onProgress)
	})

	snap := waitStatus(t, jobs, id, ledger.JobCompleted)
	assert.Equal(t, 9, snap.DaysDone)
	assert.Equal(t, 9, snap.DaysTotal)
	require.NotNil(t, snap.Report)
	assert.True(t, snap.Report.Completed())
	assert.Empty(t, snap.Error)
}

func TestJobs_Cancelar(t *testing.T) {
	jobs := ledger.NewJobs(time.Minute, nil, nil)
	defer jobs.Shutdown(context.Background())

	started := make(chan struct{})
	id := jobs.Start(key(t, "2024-01-01"), func(ctx context.Context, _ ledger.ProgressFunc) (*entity.PropagationReport, error) {
		close(started)
		<-ctx.Done()
		return nil, ctx.Err()
	})
	<-started
	require.NoError(t, jobs.Cancel(id))

	snap := waitStatus(t, jobs, id, ledger.JobCancelled)
	assert.NotEmpty(t, snap.Error)
	assert.ErrorIs(t, jobs.Cancel("no-existe"), domain.ErrNotFound)
}

func TestJobs_InterrumpidoQuedaParcial(t *testing.T) {
	jobs := ledger.NewJobs(time.Minute, nil, nil)
	defer jobs.Shutdown(context.Background())

	id := jobs.Start(key(t, "2024-01-01"), func(context.Context, ledger.ProgressFunc) (*entity.PropagationReport, error) {
		report := &entity.PropagationReport{DaysDone: 30, DaysTotal: 90, Status: entity.PropagationPartial}
		return report, fmt.Errorf("%w: ventana fallida", domain.ErrPropagationInterrupted)
	})

	snap := waitStatus(t, jobs, id, ledger.JobPartial)
	assert.Equal(t, 30, snap.DaysDone)
	assert.Equal(t, 90, snap.DaysTotal)
}

func TestJobs_ExpiranTrasTTL(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	jobs := ledger.NewJobs(time.Minute, clock, nil)
	defer jobs.Shutdown(context.Background())

	id := jobs.Start(key(t, "2024-01-01"), func(context.Context, ledger.ProgressFunc) (*entity.PropagationReport, error) {
		return &entity.PropagationReport{Status: entity.PropagationCompleted}, nil
	})
	waitStatus(t, jobs, id, ledger.JobCompleted)

	now = now.Add(2 * time.Minute)
	_, err := jobs.Get(id)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
