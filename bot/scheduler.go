package bot

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// Task is a named periodic job.
type Task struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context)
}

// Scheduler runs tasks on fixed tickers until the context is cancelled.
type Scheduler struct {
	tasks []Task
}

func NewScheduler() *Scheduler {
	return &Scheduler{}
}

// Every adds a task firing once per interval. The first run happens a full
// interval after Run starts, not immediately.
func (scheduler *Scheduler) Every(interval time.Duration, name string, run func(ctx context.Context)) {
	scheduler.tasks = append(scheduler.tasks, Task{
		Name:     name,
		Interval: interval,
		Run:      run,
	})
}

// Run blocks until the context is cancelled.
func (scheduler *Scheduler) Run(ctx context.Context) {
	var wg sync.WaitGroup

	for _, task := range scheduler.tasks {
		wg.Add(1)
		go func(task Task) {
			defer wg.Done()

			log.WithFields(log.Fields{
				"task":     task.Name,
				"interval": task.Interval,
			}).Info("Scheduled task")

			ticker := time.NewTicker(task.Interval)
			defer ticker.Stop()

			for {
				select {
				case <-ctx.Done():
					log.WithFields(log.Fields{
						"task": task.Name,
					}).Info("Stopping scheduled task")
					return
				case <-ticker.C:
					task.Run(ctx)
				}
			}
		}(task)
	}

	wg.Wait()
}
