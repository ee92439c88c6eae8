// Package gc implements the garbage collector's enqueue interface
// (spec.md §1, §4.5.3): delete paths call Enqueue to hand off a byte
// object for asynchronous destruction; the GC's own scheduling loop is
// out of scope for this core.
package gc

import (
	"context"
	"encoding/json"

	"github.com/nats-io/nats.go"
	"github.com/objectgw/sal/internal/object"
)

// Job is the payload spec.md §4.5.3 describes for a GC-enqueued
// deletion: either a plain object job ({tag, fqn, ObjectMeta, size}) or a
// multipart job ({upload-id, fqn, ObjectMeta, size, part-index-name}).
type Job struct {
	Tag           string      `json:"tag,omitempty"`
	UploadID      string      `json:"upload_id,omitempty"`
	FQN           string      `json:"fqn"`
	ObjectMeta    object.Meta `json:"object_meta"`
	Size          int64       `json:"size"`
	PartIndexName string      `json:"part_index_name,omitempty"`
}

// Enqueuer hands a Job off for asynchronous deletion.
type Enqueuer interface {
	Enqueue(ctx context.Context, j Job) error
}

// NatsEnqueuer publishes jobs to a NATS subject; a separate GC worker
// (out of this core's scope, per spec.md §1) subscribes and performs the
// actual object.Delete calls.
type NatsEnqueuer struct {
	conn    *nats.Conn
	subject string
}

// NewNatsEnqueuer connects to url and returns an Enqueuer publishing to
// subject.
func NewNatsEnqueuer(url, subject string) (*NatsEnqueuer, error) {
	conn, err := nats.Connect(url)
	if err != nil {
		return nil, err
	}
	return &NatsEnqueuer{conn: conn, subject: subject}, nil
}

func (n *NatsEnqueuer) Enqueue(ctx context.Context, j Job) error {
	body, err := json.Marshal(j)
	if err != nil {
		return err
	}
	return n.conn.Publish(n.subject, body)
}

func (n *NatsEnqueuer) Close() { n.conn.Close() }

// SyncDeleter is the Enqueuer used when gc_enabled is false: each job is
// deleted synchronously. A failed GC enqueue is not routed here; callers
// then delete through the object gateway directly (spec.md §4.5.3).
type SyncDeleter struct {
	Delete func(ctx context.Context, m object.Meta) error
}

func (s *SyncDeleter) Enqueue(ctx context.Context, j Job) error {
	return s.Delete(ctx, j.ObjectMeta)
}
