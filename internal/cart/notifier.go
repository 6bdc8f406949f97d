package cart

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/suyogshakya/khajaghar-backend/pkg/logger"
)

// logNotifier emits cart feedback as structured log events. The web client
// renders its own toasts; this keeps a server-side trail of mutations.
type logNotifier struct {
	logg *logger.Logger
}

// NewLogNotifier builds a Notifier backed by the structured logger.
func NewLogNotifier(logg *logger.Logger) Notifier {
	return &logNotifier{logg: logg}
}

func (n *logNotifier) ItemAdded(ctx context.Context, userID uuid.UUID, itemName string, quantity int) {
	if n.logg == nil {
		return
	}
	ctx = n.logg.WithUserID(ctx, userID.String())
	n.logg.Info(ctx, fmt.Sprintf("cart: added %dx %s", quantity, itemName))
}

func (n *logNotifier) ItemRemoved(ctx context.Context, userID uuid.UUID, itemName string) {
	if n.logg == nil {
		return
	}
	ctx = n.logg.WithUserID(ctx, userID.String())
	n.logg.Info(ctx, fmt.Sprintf("cart: removed %s", itemName))
}

func (n *logNotifier) CartCleared(ctx context.Context, userID uuid.UUID) {
	if n.logg == nil {
		return
	}
	ctx = n.logg.WithUserID(ctx, userID.String())
	n.logg.Info(ctx, "cart: cleared")
}
