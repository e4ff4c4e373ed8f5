package usecase

import (
	"context"
	"testing"
	"time"
)

type manualDriver struct {
	job     func(time.Time)
	stopped bool
}

func (d *manualDriver) Start(_ context.Context, job func(time.Time)) error {
	d.job = job
	return nil
}

func (d *manualDriver) Stop(context.Context) error {
	d.stopped = true
	return nil
}

func TestSchedulerRunsEveryProfile(t *testing.T) {
	t.Parallel()

	failing := newPipelineFixture(t, fakeFetcher{err: errBoom}, false)
	healthy := newPipelineFixture(t, fakeFetcher{posts: nil}, false)

	driver := &manualDriver{}
	s := NewScheduler(driver, nil, failing.pipeline, healthy.pipeline)
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	if driver.job == nil {
		t.Fatalf("job not registered")
	}

	driver.job(baseDay)

	rows := healthy.store.rows("GCP")
	if len(rows) != 2 || rows[1].Cell(0) != NoNewPostsMarker {
		t.Fatalf("healthy profile did not run after a failing one: %v", rows)
	}

	if err := s.Stop(context.Background()); err != nil || !driver.stopped {
		t.Fatalf("Stop did not reach the driver: %v", err)
	}
}
