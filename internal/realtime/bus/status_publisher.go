package bus

import (
	"context"

	"github.com/yungbote/coursemedia-backend/internal/domain/course"
	"github.com/yungbote/coursemedia-backend/internal/realtime"
)

// StatusPublisher turns processing status writes into ModuleProcessingStatus
// messages on the module's channel.
type StatusPublisher struct {
	bus Bus
}

func NewStatusPublisher(b Bus) *StatusPublisher { return &StatusPublisher{bus: b} }

func (p *StatusPublisher) PublishStatus(ctx context.Context, st course.ProcessingStatus) error {
	return p.bus.Publish(ctx, realtime.Message{
		Channel: realtime.ModuleChannel(st.JobID),
		Event:   realtime.EventModuleProcessingStatus,
		Data:    st,
	})
}
