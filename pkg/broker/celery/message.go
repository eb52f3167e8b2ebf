// Package celery speaks the Celery v2 JSON task protocol over a Redis
// broker.
//
// The envelope layout is an external contract with the Python worker fleet
// and must be preserved bit-exact: workers reject messages whose headers or
// properties deviate from what the Celery kombu transport emits. The core
// only ever enqueues task messages and reads result keys; result keys are
// written exclusively by workers.
package celery

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Task names understood by the extraction worker fleet.
const (
	// TaskProcessIFCFile extracts the geospatial anchor from an uploaded
	// IFC file. Args: [fileID, s3Key].
	TaskProcessIFCFile = "app.workers.ifc_processing.process_ifc_file"

	// TaskHealthCheck is a no-op probe task. No args.
	TaskHealthCheck = "app.workers.ifc_processing.health_check"
)

// DefaultQueue is the broker list the worker fleet consumes.
const DefaultQueue = "celery"

// resultKeyPrefix is the namespace of the Celery result backend.
const resultKeyPrefix = "celery-task-meta-"

// ResultKey returns the result-backend key for a task ID.
func ResultKey(taskID string) string {
	return resultKeyPrefix + taskID
}

// Headers is the Celery v2 message header block.
type Headers struct {
	Lang     string  `json:"lang"`
	Task     string  `json:"task"`
	ID       string  `json:"id"`
	Retries  int     `json:"retries"`
	ETA      *string `json:"eta"`
	Expires  *string `json:"expires"`
	Group    *string `json:"group"`
	RootID   string  `json:"root_id"`
	ParentID *string `json:"parent_id"`
}

// DeliveryInfo routes the message inside the broker.
type DeliveryInfo struct {
	Exchange   string `json:"exchange"`
	RoutingKey string `json:"routing_key"`
}

// Properties is the Celery v2 message properties block.
type Properties struct {
	CorrelationID string       `json:"correlation_id"`
	ReplyTo       string       `json:"reply_to"`
	DeliveryMode  int          `json:"delivery_mode"`
	DeliveryInfo  DeliveryInfo `json:"delivery_info"`
	Priority      int          `json:"priority"`
	BodyEncoding  string       `json:"body_encoding"`
	DeliveryTag   string       `json:"delivery_tag"`
}

// Message is a complete Celery v2 task envelope.
type Message struct {
	Body            string     `json:"body"`
	ContentEncoding string     `json:"content-encoding"`
	ContentType     string     `json:"content-type"`
	Headers         Headers    `json:"headers"`
	Properties      Properties `json:"properties"`
}

// embeddings is the third element of the v2 body triple. All fields are
// null for plain task dispatch (no canvas primitives).
type embeddings struct {
	Callbacks any `json:"callbacks"`
	Errbacks  any `json:"errbacks"`
	Chain     any `json:"chain"`
	Chord     any `json:"chord"`
}

// NewMessage builds a v2 task envelope for taskName with positional args.
//
// The body is the base64 of the JSON triple [args, kwargs, embeddings]. The
// task ID doubles as root and correlation ID; reply_to and delivery_tag are
// fresh UUIDs per message, matching kombu's Redis transport.
func NewMessage(taskName, taskID string, args []any) (*Message, error) {
	if args == nil {
		args = []any{}
	}
	body, err := json.Marshal([]any{args, map[string]any{}, embeddings{}})
	if err != nil {
		return nil, fmt.Errorf("failed to encode task body: %w", err)
	}

	return &Message{
		Body:            base64.StdEncoding.EncodeToString(body),
		ContentEncoding: "utf-8",
		ContentType:     "application/json",
		Headers: Headers{
			Lang:    "py",
			Task:    taskName,
			ID:      taskID,
			Retries: 0,
			RootID:  taskID,
		},
		Properties: Properties{
			CorrelationID: taskID,
			ReplyTo:       uuid.NewString(),
			DeliveryMode:  2,
			DeliveryInfo:  DeliveryInfo{Exchange: "", RoutingKey: DefaultQueue},
			Priority:      0,
			BodyEncoding:  "base64",
			DeliveryTag:   uuid.NewString(),
		},
	}, nil
}
