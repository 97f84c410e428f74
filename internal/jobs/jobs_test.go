package jobs_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/vrsandeep/readme-console/internal/jobs"
)

func TestPruneConsoles(t *testing.T) {
	ctx := newFakeJobContext()
	ctx.cfg.Sessions.IdleTimeout = 0
	ctx.consoles.GetOrCreate("a")
	ctx.consoles.GetOrCreate("b")

	jobs.RegisterJobs(ctx.jobMgr)
	assert.NoError(t, ctx.jobMgr.RunJob(jobs.ConsolePruneJobID, ctx))

	s := waitForStatus(t, ctx.jobMgr, jobs.ConsolePruneJobID, "success")
	assert.Equal(t, "Removed 2 idle console(s).", s.Message)
	assert.Equal(t, 0, ctx.consoles.Len())
}

func TestStartJobs_DisabledInterval(t *testing.T) {
	ctx := newFakeJobContext()
	ctx.cfg.Sessions.PruneInterval = 0

	s := jobs.StartJobs(ctx)
	defer s.Stop()
	assert.Empty(t, s.Jobs())
}

func TestStartJobs_SchedulesPrune(t *testing.T) {
	ctx := newFakeJobContext()
	ctx.cfg.Sessions.PruneInterval = 5
	jobs.RegisterJobs(ctx.jobMgr)

	s := jobs.StartJobs(ctx)
	defer s.Stop()
	assert.Len(t, s.Jobs(), 1)
}
