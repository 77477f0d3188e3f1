package core

import (
	"context"

	"gopkg.in/yaml.v3"
)

// Configurable is implemented by modules that accept YAML configuration.
// Called right after instantiation with the module's raw config node.
type Configurable interface {
	Configure(node *yaml.Node) error
}

// Provisioner is implemented by modules that need setup after
// configuration: defaults, derived state, service registration.
type Provisioner interface {
	Provision(ctx *AppContext) error
}

// Validator checks the provisioned module. Validate must not have side effects.
type Validator interface {
	Validate() error
}

// Starter is implemented by modules that run background work.
// Called once every module has been provisioned and validated.
type Starter interface {
	Start() error
}

// Stopper is implemented by modules that hold resources.
// Called in reverse start order on shutdown.
type Stopper interface {
	Stop(ctx context.Context) error
}
