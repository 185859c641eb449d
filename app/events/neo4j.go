package events

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

const (
	taskConstraintQuery = "CREATE CONSTRAINT task_id IF NOT EXISTS FOR (t:Task) REQUIRE t.id IS UNIQUE"

	// Every event is appended. The Task node mirrors the state of the highest
	// seq seen so far, so events that arrive late never roll it back. Setting
	// the lock property first takes the node's write lock before seq is read.
	appendEventQuery = "MERGE (t:Task {id: $task_id}) " +
		"SET t._lock = true REMOVE t._lock " +
		"WITH t, coalesce(t.seq, -1) < $seq AS newer " +
		"FOREACH (_ IN CASE WHEN newer THEN [1] ELSE [] END | " +
		"SET t.description = $description, t.completed = $completed, t.deleted = $deleted, " +
		"t.seq = $seq, t.updated_at = $at) " +
		"CREATE (e:TaskEvent {seq: $seq, type: $type, at: $at, completed: $completed})-[:FOR]->(t)"
)

// Neo4jPublisher journals task events into a Neo4j graph. The journal is an
// audit trail: the service never reads it back.
type Neo4jPublisher struct {
	driver   neo4j.DriverWithContext
	database string
}

// NewNeo4jPublisher creates a publisher writing to database (empty means the
// server default).
func NewNeo4jPublisher(driver neo4j.DriverWithContext, database string) *Neo4jPublisher {
	return &Neo4jPublisher{driver: driver, database: database}
}

func (p *Neo4jPublisher) session(ctx context.Context) neo4j.SessionWithContext {
	return p.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: p.database,
	})
}

// EnsureSchema creates the uniqueness constraint on Task.id.
func (p *Neo4jPublisher) EnsureSchema(ctx context.Context) error {
	session := p.session(ctx)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		_, err := tx.Run(ctx, taskConstraintQuery, nil)
		return nil, err
	})
	if err != nil {
		return fmt.Errorf("create task constraint: %w", err)
	}
	return nil
}

// Publish appends event to the journal.
func (p *Neo4jPublisher) Publish(ctx context.Context, event Event) error {
	session := p.session(ctx)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, appendEventQuery, eventParams(event))
		if err != nil {
			return nil, err
		}
		return res.Consume(ctx)
	})
	if err != nil {
		return fmt.Errorf("journal %s for task %s: %w", event.Type, event.TaskID, err)
	}
	return nil
}

func eventParams(event Event) map[string]any {
	return map[string]any{
		"seq":         int64(event.Seq),
		"task_id":     event.TaskID,
		"description": event.Description,
		"completed":   event.Completed,
		"deleted":     event.Type == TaskDeleted,
		"type":        string(event.Type),
		"at":          event.At,
	}
}
