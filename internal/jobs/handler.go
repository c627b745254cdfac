// -----------------------------------------------------------------------
// Job handler contract and registry
// -----------------------------------------------------------------------

package jobs

import (
	"context"
	"fmt"

	"github.com/ternarybob/merx/internal/common"
	"github.com/ternarybob/merx/internal/models"
)

// Handler executes one job type. Execute returns the typed output payload
// on success; a wrapped ErrCancelled return marks the job cancelled rather
// than failed.
type Handler interface {
	Type() models.JobType
	Execute(ctx context.Context, jc *JobContext) (interface{}, error)
}

// HandlerRegistry maps job types to their handlers
type HandlerRegistry struct {
	handlers map[models.JobType]Handler
}

// NewHandlerRegistry creates a registry over the given handlers
func NewHandlerRegistry(handlers ...Handler) *HandlerRegistry {
	r := &HandlerRegistry{handlers: make(map[models.JobType]Handler, len(handlers))}
	for _, h := range handlers {
		r.handlers[h.Type()] = h
	}
	return r
}

// Resolve returns the handler for a job type
func (r *HandlerRegistry) Resolve(jobType models.JobType) (Handler, error) {
	h, ok := r.handlers[jobType]
	if !ok {
		return nil, fmt.Errorf("%w: no handler for job type %q", common.ErrInvalidInput, jobType)
	}
	return h, nil
}
