// Package appspec parses the declarative application spec: which ClickHouse
// servers to host, their credentials, and the databases each one carries.
// This is part of the Functional Core - parsing and composition are pure;
// the shell decides what to do with the resulting resources.
package appspec

import (
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/clickhost/clickhost/internal/core/expr"
	"github.com/clickhost/clickhost/internal/core/resource"
)

// =============================================================================
// Spec Types
// =============================================================================

// DefaultImage is the container image used when a server entry does not
// override it.
const DefaultImage = "clickhouse/clickhouse-server:latest"

// Spec is the top-level application spec document.
type Spec struct {
	Servers []ServerEntry `yaml:"servers"`
}

// ServerEntry declares one hosted server.
type ServerEntry struct {
	Name      string          `yaml:"name"`
	Image     string          `yaml:"image"`
	Username  string          `yaml:"username"`
	Password  *PasswordEntry  `yaml:"password"`
	Databases []DatabaseEntry `yaml:"databases"`
}

// PasswordEntry declares the server's password source: either a fixed value
// or a generated parameter.
type PasswordEntry struct {
	Generate bool   `yaml:"generate"`
	Value    string `yaml:"value"`
}

// DatabaseEntry declares one child database of a server.
type DatabaseEntry struct {
	Name         string `yaml:"name"`
	DatabaseName string `yaml:"databaseName"`
}

// =============================================================================
// Parsing
// =============================================================================

// Parse parses application spec YAML. This is a pure function: no I/O.
func Parse(yamlContent string) (*Spec, error) {
	if strings.TrimSpace(yamlContent) == "" {
		return nil, ErrEmptyInput
	}

	var spec Spec
	if err := yaml.Unmarshal([]byte(yamlContent), &spec); err != nil {
		return nil, NewParseError("", "invalid YAML syntax", ErrInvalidYAML)
	}

	if len(spec.Servers) == 0 {
		return nil, ErrNoServers
	}

	for _, srv := range spec.Servers {
		if srv.Password != nil && srv.Password.Generate && srv.Password.Value != "" {
			return nil, NewParseError(srv.Name, "password declares both generate and value", ErrPasswordConflict)
		}
	}

	return &spec, nil
}

// =============================================================================
// Composition
// =============================================================================

// ServerPlan pairs a composed server resource with the shell-facing details
// from its spec entry.
type ServerPlan struct {
	Server *resource.ServerResource
	Image  string
}

// Composition is the composed application model: the registry holding the
// global namespace plus the resources in registration order.
type Composition struct {
	Registry   *resource.Registry
	Servers    []ServerPlan
	Databases  []*resource.DatabaseResource
	Parameters []*resource.ParameterResource
}

// Compose builds the resource graph from a parsed spec. Construction-time
// validation errors and registry uniqueness violations fail composition;
// generated password parameters are materialized into the registry.
func Compose(spec *Spec) (*Composition, error) {
	comp := &Composition{Registry: resource.NewRegistry()}

	for _, entry := range spec.Servers {
		var opts []resource.ServerOption
		if entry.Username != "" {
			opts = append(opts, resource.WithUsername(expr.Literal(entry.Username)))
		}

		var param *resource.ParameterResource
		if entry.Password != nil {
			switch {
			case entry.Password.Generate:
				p, err := resource.NewParameterResource(entry.Name+"-password", true)
				if err != nil {
					return nil, err
				}
				param = p
				opts = append(opts, resource.WithPassword(p.ValueRef()))
			case entry.Password.Value != "":
				opts = append(opts, resource.WithPassword(expr.Literal(entry.Password.Value)))
			}
		}

		server, err := resource.NewServerResource(entry.Name, opts...)
		if err != nil {
			return nil, err
		}
		if err := comp.Registry.Add(server); err != nil {
			return nil, err
		}

		if param != nil {
			if err := comp.Registry.Add(param); err != nil {
				return nil, err
			}
			comp.Registry.SetParameter(param.Name(), resource.GeneratePassword(22))
			comp.Parameters = append(comp.Parameters, param)
		}

		for _, db := range entry.Databases {
			dbName := db.DatabaseName
			if dbName == "" {
				dbName = db.Name
			}

			dbRes, err := resource.NewDatabaseResource(db.Name, dbName, server)
			if err != nil {
				return nil, err
			}
			if err := comp.Registry.Add(dbRes); err != nil {
				return nil, err
			}

			server.AddDatabase(db.Name, dbName)
			comp.Databases = append(comp.Databases, dbRes)
		}

		image := entry.Image
		if image == "" {
			image = DefaultImage
		}
		comp.Servers = append(comp.Servers, ServerPlan{Server: server, Image: image})
	}

	return comp, nil
}
