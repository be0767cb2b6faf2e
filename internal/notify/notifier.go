package notify

import (
	"context"
	"encoding/json"
	"time"

	"carebook/pkg/kafka"
	"carebook/pkg/logger"
)

// Kind names the notification being requested. Delivery (SMS, email, push)
// belongs to the downstream consumer; the core only records intent.
type Kind string

const (
	AppointmentConfirmed   Kind = "appointment.confirmed"
	AppointmentRescheduled Kind = "appointment.rescheduled"
	AppointmentCancelled   Kind = "appointment.cancelled"
	AppointmentReminder    Kind = "appointment.reminder"
	WaitlistSlotOpen       Kind = "waitlist.slot_open"
)

// Dispatcher emits fire-and-forget notification requests. Implementations
// must never let a dispatch failure propagate into the calling transaction;
// a lost notification is a logging problem, not a booking problem.
type Dispatcher interface {
	Send(ctx context.Context, kind Kind, refID, patientID string)
	Close() error
}

type event struct {
	Kind      Kind      `json:"kind"`
	RefID     string    `json:"ref_id"`
	PatientID string    `json:"patient_id"`
	EmittedAt time.Time `json:"emitted_at"`
}

// kafkaDispatcher publishes notification events to the event topic, keyed by
// patient so one patient's notifications stay ordered.
type kafkaDispatcher struct {
	producer *kafka.Producer
	log      *logger.Logger
}

func NewKafkaDispatcher(brokers []string, topic string, log *logger.Logger) (Dispatcher, error) {
	producer, err := kafka.NewProducer(brokers, topic)
	if err != nil {
		return nil, err
	}
	return &kafkaDispatcher{
		producer: producer,
		log:      log,
	}, nil
}

func (d *kafkaDispatcher) Send(ctx context.Context, kind Kind, refID, patientID string) {
	payload, err := json.Marshal(event{
		Kind:      kind,
		RefID:     refID,
		PatientID: patientID,
		EmittedAt: time.Now().UTC(),
	})
	if err != nil {
		d.log.Error("Failed to encode notification event",
			"kind", kind,
			"ref_id", refID,
			"error", err,
		)
		return
	}

	err = d.producer.Publish(ctx, kafka.Message{
		Key:       patientID,
		Value:     payload,
		Timestamp: time.Now().UTC(),
		Headers:   map[string]string{"kind": string(kind)},
	})
	if err != nil {
		d.log.Error("Failed to publish notification event",
			"kind", kind,
			"ref_id", refID,
			"patient_id", patientID,
			"error", err,
		)
		return
	}

	d.log.Info("Notification event published",
		"kind", kind,
		"ref_id", refID,
		"patient_id", patientID,
	)
}

func (d *kafkaDispatcher) Close() error {
	return d.producer.Close()
}

// logDispatcher stands in when no broker is configured.
type logDispatcher struct {
	log *logger.Logger
}

func NewLogDispatcher(log *logger.Logger) Dispatcher {
	return &logDispatcher{log: log}
}

func (d *logDispatcher) Send(_ context.Context, kind Kind, refID, patientID string) {
	d.log.Info("Notification requested",
		"kind", kind,
		"ref_id", refID,
		"patient_id", patientID,
	)
}

func (d *logDispatcher) Close() error {
	return nil
}
