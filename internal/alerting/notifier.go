package alerting

import (
	"context"
	"log"
)

// Alert is a decision packaged for delivery: the decision itself plus the
// annotated frame it came from, JPEG-encoded. Frame may be nil when frame
// capture failed.
type Alert struct {
	Decision Decision
	Frame    []byte
}

// Notifier delivers alerts to an external channel.
type Notifier interface {
	Notify(ctx context.Context, alert Alert) error
}

// LogNotifier writes alerts to the process log. It is the fallback when no
// Telegram credentials are configured.
type LogNotifier struct{}

func (LogNotifier) Notify(_ context.Context, alert Alert) error {
	if alert.Decision.Name != "" {
		log.Printf("[Alert] %s match: %s (similarity %.3f)", alert.Decision.Mode, alert.Decision.Name, alert.Decision.Score)
	} else {
		log.Printf("[Alert] %s alert: no trusted face recognized (best %.3f)", alert.Decision.Mode, alert.Decision.Score)
	}
	return nil
}

var _ Notifier = LogNotifier{}
