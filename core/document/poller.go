package document

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// pollSession is the cancellable handle of one polling loop. It is destroyed
// when the remote job reaches a terminal state or when cancelled externally.
type pollSession struct {
	documentID string
	filename   string
	stop       chan struct{}
	once       sync.Once
}

func (ps *pollSession) cancel() {
	ps.once.Do(func() { close(ps.stop) })
}

// PollProcessing starts polling the ingestion status of documentID at the
// configured cadence until it reaches a terminal state, mirroring every
// response into the registry job registered under filename. A no-op when the
// filename is no longer registered. Reports whether a loop was started.
func (svc *Service) PollProcessing(documentID, filename string) bool {
	if _, ok := svc.registry.Get(filename); !ok {
		return false
	}

	ps := &pollSession{documentID: documentID, filename: filename, stop: make(chan struct{})}
	svc.mu.Lock()
	if old, ok := svc.polls[documentID]; ok {
		old.cancel()
	}
	svc.polls[documentID] = ps
	svc.mu.Unlock()

	go svc.poll(ps)
	return true
}

// StopPolling cancels every live polling loop (dashboard teardown, logout).
func (svc *Service) StopPolling() {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	for id, ps := range svc.polls {
		ps.cancel()
		delete(svc.polls, id)
	}
}

// Polling reports whether a loop is live for documentID.
func (svc *Service) Polling(documentID string) bool {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	_, ok := svc.polls[documentID]
	return ok
}

func (svc *Service) poll(ps *pollSession) {
	ticker := time.NewTicker(svc.pollInterval)
	defer ticker.Stop()
	defer svc.removePoll(ps)

	for {
		select {
		case <-ps.stop:
			return
		case <-ticker.C:
		}

		status, err := svc.backend.GetDocument(context.Background(), ps.documentID)
		if err != nil {
			// the loop halts; the job stays in the registry until cleared
			svc.registry.Update(ps.filename, func(j *UploadJob) {
				j.Status = StatusFailed
				j.Message = msgPollFetchFailed
			})
			svc.logger.Warn("polling document "+ps.documentID, err)
			return
		}

		svc.applyStatus(ps.filename, status)

		// inclusive boundary: the terminal response above is still delivered
		if !status.Processing() {
			svc.scheduleCleanup(ps.filename)
			return
		}
	}
}

// applyStatus maps one poll response into the registry job.
func (svc *Service) applyStatus(filename string, status *ProcessingStatus) {
	svc.registry.Update(filename, func(j *UploadJob) {
		j.Progress = status.ProcessingProgress
		switch status.Status {
		case remoteStatusCompleted:
			j.Status = StatusCompleted
			j.Message = fmt.Sprintf(completedMessageFmt, status.ChunksIndexed)
		case remoteStatusFailed:
			j.Status = StatusFailed
			j.Message = fmt.Sprintf(failedMessageFmt, status.Error)
		default:
			j.Status = StatusProcessing
			if msg := status.ProcessingMetadata.LastMessage; msg != "" {
				j.Message = msg
			}
		}
	})
}

// scheduleCleanup removes the terminal job from the registry after the
// configured retention delay.
func (svc *Service) scheduleCleanup(filename string) {
	time.AfterFunc(svc.cleanupDelay, func() {
		svc.registry.Remove(filename)
	})
}

func (svc *Service) removePoll(ps *pollSession) {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	if cur, ok := svc.polls[ps.documentID]; ok && cur == ps {
		delete(svc.polls, ps.documentID)
	}
}
