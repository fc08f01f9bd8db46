package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/costoptimizer/backend/internal/apierrors"
	"github.com/costoptimizer/backend/internal/jobs"
)

// JobHandler exposes the scheduler's job list and manual triggers.
type JobHandler struct {
	scheduler *jobs.Scheduler
}

func NewJobHandler(scheduler *jobs.Scheduler) *JobHandler {
	return &JobHandler{scheduler: scheduler}
}

// List handles GET /jobs.
func (h *JobHandler) List(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string][]jobs.JobInfo{"jobs": h.scheduler.ListJobs()})
}

// Run handles POST /jobs/{name}/run. The job runs in the background.
func (h *JobHandler) Run(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := h.scheduler.RunNow(name); err != nil {
		if errors.Is(err, jobs.ErrJobNotFound) {
			apierrors.NewNotFoundError("job", name).Write(w, r)
			return
		}
		apierrors.NewInternalError("failed to start job").Write(w, r)
		return
	}
	WriteJSON(w, http.StatusAccepted, map[string]string{"message": "job started", "name": name})
}
