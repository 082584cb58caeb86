package pubsub

import (
	"context"

	"agency/internal/domain/service"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// instrumentedPublisher counts publish outcomes per notification type.
type instrumentedPublisher struct {
	next      service.EventPublisher
	published *prometheus.CounterVec
}

func newInstrumentedPublisher(next service.EventPublisher, reg prometheus.Registerer) service.EventPublisher {
	return &instrumentedPublisher{
		next: next,
		published: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "agency_notification_events_published_total",
			Help: "Notification events handed to the event publisher",
		}, []string{"notification_type", "result"}),
	}
}

func (p *instrumentedPublisher) PublishNotificationEvent(ctx context.Context, event *service.NotificationEvent) error {
	err := p.next.PublishNotificationEvent(ctx, event)
	result := "ok"
	if err != nil {
		result = "error"
	}
	p.published.WithLabelValues(event.NotificationType, result).Inc()

	return err
}

func (p *instrumentedPublisher) Close() error {
	return p.next.Close()
}
