package resource

import (
	"fmt"

	"github.com/clickhost/clickhost/internal/core/expr"
)

// =============================================================================
// Database Resource
// =============================================================================

// DatabaseResource is a named child of exactly one ServerResource. Its
// connection semantics are derived entirely from the parent; the parent does
// not own the instance, only the name reservation registered via AddDatabase.
type DatabaseResource struct {
	name         string
	databaseName string
	parent       *ServerResource
}

// NewDatabaseResource creates a database resource. databaseName is the
// actual schema/catalog name on the server and may differ from the resource
// name. Global name uniqueness is enforced by the registry; the constructor
// independently validates its own mandatory fields.
func NewDatabaseResource(name, databaseName string, parent *ServerResource) (*DatabaseResource, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: name", ErrNameRequired)
	}
	if databaseName == "" {
		return nil, fmt.Errorf("%w: databaseName", ErrDatabaseNameRequired)
	}
	if parent == nil {
		return nil, fmt.Errorf("%w: parent", ErrParentRequired)
	}

	return &DatabaseResource{
		name:         name,
		databaseName: databaseName,
		parent:       parent,
	}, nil
}

// Name returns the resource name.
func (d *DatabaseResource) Name() string {
	return d.name
}

// DatabaseName returns the schema/catalog name on the server.
func (d *DatabaseResource) DatabaseName() string {
	return d.databaseName
}

// Parent returns the owning server resource.
func (d *DatabaseResource) Parent() *ServerResource {
	return d.parent
}

// ConnectionStringExpression delegates to the parent's connection string
// build, appending this resource's Database= fragment.
func (d *DatabaseResource) ConnectionStringExpression() expr.Expression {
	return d.parent.buildConnectionString(d.databaseName)
}

// ConnectionProperties returns the parent's property pairs with one extra
// (DatabaseName, literal) pair appended at the end.
func (d *DatabaseResource) ConnectionProperties() []Property {
	props := d.parent.ConnectionProperties()
	return append(props, Property{Key: "DatabaseName", Value: expr.Literal(d.databaseName)})
}
