package jobs

import (
	"fmt"
	"log"
	"time"

	"github.com/go-co-op/gocron"
)

const (
	ConsolePruneJobID   = "console-prune"
	consolePruneJobName = "Prune idle consoles"
)

// RegisterJobs adds the built-in jobs to the manager.
func RegisterJobs(jm *JobManager) {
	jm.Register(ConsolePruneJobID, consolePruneJobName, PruneConsoles)
}

// PruneConsoles drops consoles nobody has used within the idle timeout.
func PruneConsoles(ctx JobContext) {
	removed := ctx.Consoles().Prune(ctx.Config().IdleTimeout())
	if jm := ctx.JobManager(); jm != nil {
		jm.SetMessage(ConsolePruneJobID, fmt.Sprintf("Removed %d idle console(s).", removed))
	}
}

// StartJobs starts the background job scheduler. Stop the returned
// scheduler on shutdown.
func StartJobs(app JobContext) *gocron.Scheduler {
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()

	startConsolePruneJob(s, app)

	log.Println("Starting background job scheduler...")
	s.StartAsync()
	return s
}

func startConsolePruneJob(s *gocron.Scheduler, app JobContext) {
	interval := app.Config().Sessions.PruneInterval
	if interval <= 0 {
		log.Println("Console prune interval is 0, idle consoles are kept.")
		return
	}

	log.Printf("Scheduling job: '%s' to run every %d minutes.", ConsolePruneJobID, interval)

	_, err := s.Every(interval).Minutes().Do(func() {
		log.Println("Scheduler is triggering job:", ConsolePruneJobID)
		// Go through the manager so scheduled and manual runs never overlap.
		if err := app.JobManager().RunJob(ConsolePruneJobID, app); err != nil {
			log.Printf("Scheduled job '%s' could not start: %v", ConsolePruneJobID, err)
		}
	})
	if err != nil {
		log.Printf("Error scheduling '%s' job: %v", ConsolePruneJobID, err)
	}
}
