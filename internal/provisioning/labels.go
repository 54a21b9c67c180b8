package provisioning

// LabelDeployment is attached to every resource chainctl creates, carrying
// the deployment name. Teardown and status queries are scoped by it so
// unrelated runtime resources are never touched.
const LabelDeployment = "chainctl.io/deployment"

// LabelNode carries the declared node name on its container.
const LabelNode = "chainctl.io/node"

// LabelNodeSpec carries the digest of the node declaration the container was
// built from. A running container whose digest no longer matches is stale and
// gets replaced on the next setup.
const LabelNodeSpec = "chainctl.io/node-spec"

// DeploymentLabels returns the label set for deployment-scoped resources.
func DeploymentLabels(deployment string) map[string]string {
	return map[string]string{LabelDeployment: deployment}
}

// NodeLabels returns the label set for a node container.
func NodeLabels(deployment, node, specHash string) map[string]string {
	return map[string]string{
		LabelDeployment: deployment,
		LabelNode:       node,
		LabelNodeSpec:   specHash,
	}
}
