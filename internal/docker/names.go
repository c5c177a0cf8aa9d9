package docker

import (
	"fmt"
	"math/rand/v2"
)

// DeploymentLabel is the reserved container label carrying the owning
// deployment id. Every container created by ring carries it, and instance
// listing filters on it.
const DeploymentLabel = "ring_deployment"

// deploymentSelector renders the label filter for a deployment's containers.
func deploymentSelector(deploymentID string) string {
	return DeploymentLabel + "=" + deploymentID
}

// tinyID returns an 8-hex-char random string used to disambiguate container
// names and materialized config files.
func tinyID() string {
	return fmt.Sprintf("%08x", rand.Uint32())
}

// containerName builds the instance name <namespace>_<name>_<tinyId>.
func containerName(namespace, name, tiny string) string {
	return fmt.Sprintf("%s_%s_%s", namespace, name, tiny)
}

// networkName builds the per-namespace network name.
func networkName(namespace string) string {
	return "ring_" + namespace
}
