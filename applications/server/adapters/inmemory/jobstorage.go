package inmemory

import (
	"context"
	"fmt"
	"sync"

	"github.com/donmikel/mediashrink/applications/server/domain"
	"github.com/donmikel/mediashrink/applications/server/interfaces"
)

type inMemoryJobStorage struct {
	jobs  map[string]domain.TranscodeJob
	mutex sync.RWMutex
}

// NewJobStorage returns a registry of in-flight transcode jobs. Completed
// jobs are forgotten, nothing outlives the request that created it.
func NewJobStorage() interfaces.JobStorage {
	return &inMemoryJobStorage{
		jobs: map[string]domain.TranscodeJob{},
	}
}

func (i *inMemoryJobStorage) StartJob(ctx context.Context, job domain.TranscodeJob) error {
	i.mutex.Lock()
	defer i.mutex.Unlock()

	if _, ok := i.jobs[job.ID]; ok {
		return fmt.Errorf("job with id = %s already started", job.ID)
	}

	i.jobs[job.ID] = job

	return nil
}

func (i *inMemoryJobStorage) CompleteJob(ctx context.Context, id string) error {
	i.mutex.Lock()
	defer i.mutex.Unlock()

	if _, ok := i.jobs[id]; !ok {
		return fmt.Errorf("job with id = %s not found", id)
	}

	delete(i.jobs, id)

	return nil
}

func (i *inMemoryJobStorage) GetJob(ctx context.Context, id string) (domain.TranscodeJob, error) {
	i.mutex.RLock()
	defer i.mutex.RUnlock()

	job, ok := i.jobs[id]
	if !ok {
		return domain.TranscodeJob{}, fmt.Errorf("job with id = %s not found", id)
	}

	return job, nil
}

func (i *inMemoryJobStorage) InProgress(id string) bool {
	i.mutex.RLock()
	defer i.mutex.RUnlock()

	_, ok := i.jobs[id]

	return ok
}
