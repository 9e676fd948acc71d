package types

// EntityType distinguishes the two partitionable entity kinds
type EntityType string

const (
	EntityClass    EntityType = "CLASS"
	EntityFunction EntityType = "FUNCTION"
)

// Entity is a flattened reference to a class or function (methods included)
// handed to downstream workers
type Entity struct {
	Type              EntityType `json:"type"`
	ID                int64      `json:"id"`
	Name              string     `json:"name"`
	FullQualifiedName string     `json:"full_qualified_name"`
}

// Key identifies an entity uniquely across both kinds
func (e Entity) Key() EntityKey {
	return EntityKey{Type: e.Type, ID: e.ID}
}

// EntityKey is the identity of an entity: ids are only unique per kind
type EntityKey struct {
	Type EntityType
	ID   int64
}
