package chat

// Fanout is a small fixed worker pool for pushing one payload to many
// connections without tying up the caller (the relay consumer callback must
// stay cheap). Enqueue into each client is already non-blocking, so workers
// never suspend on a slow socket.
type fanoutJob struct {
	targets []pushTarget
	payload []byte
	push    func(pushTarget, []byte)
}

type Fanout struct {
	jobs chan fanoutJob
}

func NewFanout(workers, queue int) *Fanout {
	f := &Fanout{jobs: make(chan fanoutJob, queue)}
	for i := 0; i < workers; i++ {
		go func() {
			for job := range f.jobs {
				for _, t := range job.targets {
					job.push(t, job.payload)
				}
			}
		}()
	}
	return f
}

func (f *Fanout) Broadcast(targets []pushTarget, payload []byte, push func(pushTarget, []byte)) {
	if len(targets) == 0 || len(payload) == 0 {
		return
	}
	f.jobs <- fanoutJob{targets: targets, payload: payload, push: push}
}
