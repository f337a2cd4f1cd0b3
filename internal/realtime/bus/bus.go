package bus

import (
	"context"

	"github.com/yungbote/coursemedia-backend/internal/realtime"
)

// Bus carries realtime messages between processes. StartForwarder delivers
// every published message, including this process's own, to onMsg.
type Bus interface {
	Publish(ctx context.Context, msg realtime.Message) error
	StartForwarder(ctx context.Context, onMsg func(m realtime.Message)) error
	Close() error
}
