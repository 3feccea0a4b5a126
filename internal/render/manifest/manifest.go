// Package manifest renders the Kubernetes Deployment and Service for a project.
// The Deployment's image is a placeholder bound at deploy time.
package manifest

import (
	"fmt"
	"slices"
	"strings"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/intstr"
	"sigs.k8s.io/yaml"

	pgerrors "pipegen/internal/errors"
	"pipegen/internal/render/buildspec"
	"pipegen/pkg/project"
)

const (
	DeploymentFilename = "deployment.yaml"
	ServiceFilename    = "service.yaml"

	DefaultServicePort = 80
	DefaultServiceType = corev1.ServiceTypeClusterIP

	// ImageAnnotation records the image the placeholder is expected to resolve to.
	ImageAnnotation  = "pipegen.io/image"
	EnvironmentLabel = "environment"
)

// DefaultResources are the container requests and limits used when none are given.
var DefaultResources = map[string]string{"cpu": "100m", "memory": "128Mi"}

// Generator renders manifests for one project config.
type Generator struct {
	config project.Config
}

func NewGenerator(config project.Config) *Generator {
	return &Generator{config: config.Clone()}
}

// Deployment builds the Deployment. imageName and tag are recorded as an
// annotation only; the container image is always the placeholder.
// resources maps resource names (cpu, memory) to quantities.
func (g *Generator) Deployment(imageName, tag string, resources map[string]string) (*appsv1.Deployment, error) {
	return g.deployment(imageName, tag, resources, "")
}

// DeploymentFor is Deployment labelled for one environment.
func (g *Generator) DeploymentFor(environment, imageName, tag string, resources map[string]string) (*appsv1.Deployment, error) {
	return g.deployment(imageName, tag, resources, environment)
}

func (g *Generator) deployment(imageName, tag string, resources map[string]string, environment string) (*appsv1.Deployment, error) {
	if len(resources) == 0 {
		resources = DefaultResources
	}
	list, err := resourceList(resources)
	if err != nil {
		return nil, err
	}
	if imageName == "" {
		imageName = g.config.Name
	}
	if tag == "" {
		tag = "latest"
	}

	selector := map[string]string{"app": g.config.Name}
	labels := g.labels(environment)
	replicas := int32(1)

	return &appsv1.Deployment{
		TypeMeta: metav1.TypeMeta{APIVersion: "apps/v1", Kind: "Deployment"},
		ObjectMeta: metav1.ObjectMeta{
			Name:        g.config.Name,
			Namespace:   g.config.Namespace,
			Labels:      labels,
			Annotations: map[string]string{ImageAnnotation: imageName + ":" + tag},
		},
		Spec: appsv1.DeploymentSpec{
			Replicas: &replicas,
			Selector: &metav1.LabelSelector{MatchLabels: selector},
			Template: corev1.PodTemplateSpec{
				ObjectMeta: metav1.ObjectMeta{Labels: labels},
				Spec: corev1.PodSpec{
					Containers: []corev1.Container{{
						Name:  g.config.Name,
						Image: buildspec.ImagePlaceholder,
						Ports: []corev1.ContainerPort{{
							ContainerPort: int32(g.config.ContainerPort),
							Protocol:      corev1.ProtocolTCP,
						}},
						Resources: corev1.ResourceRequirements{
							Requests: list,
							Limits:   list.DeepCopy(),
						},
					}},
				},
			},
		},
	}, nil
}

// Service builds the Service exposing port and forwarding to targetPort.
// Zero values select port 80, the configured container port and ClusterIP.
func (g *Generator) Service(port, targetPort int, serviceType string) (*corev1.Service, error) {
	return g.service(port, targetPort, serviceType, "")
}

// ServiceFor is Service labelled for one environment.
func (g *Generator) ServiceFor(environment string, port, targetPort int, serviceType string) (*corev1.Service, error) {
	return g.service(port, targetPort, serviceType, environment)
}

func (g *Generator) service(port, targetPort int, serviceType, environment string) (*corev1.Service, error) {
	if port == 0 {
		port = DefaultServicePort
	}
	if targetPort == 0 {
		targetPort = g.config.ContainerPort
	}
	if serviceType == "" {
		serviceType = string(DefaultServiceType)
	}

	for _, p := range []int{port, targetPort} {
		if p < 1 || p > 65535 {
			return nil, invalid("Cannot render service", fmt.Sprintf("port %d is out of range", p), "Use a port between 1 and 65535")
		}
	}
	validTypes := []string{
		string(corev1.ServiceTypeClusterIP),
		string(corev1.ServiceTypeNodePort),
		string(corev1.ServiceTypeLoadBalancer),
	}
	if !slices.Contains(validTypes, serviceType) {
		return nil, invalid("Cannot render service",
			fmt.Sprintf("service type '%s' is not supported", serviceType),
			fmt.Sprintf("Use one of: %s", strings.Join(validTypes, ", ")))
	}

	return &corev1.Service{
		TypeMeta: metav1.TypeMeta{APIVersion: "v1", Kind: "Service"},
		ObjectMeta: metav1.ObjectMeta{
			Name:      g.config.Name,
			Namespace: g.config.Namespace,
			Labels:    g.labels(environment),
		},
		Spec: corev1.ServiceSpec{
			Type:     corev1.ServiceType(serviceType),
			Selector: map[string]string{"app": g.config.Name},
			Ports: []corev1.ServicePort{{
				Name:       "http",
				Port:       int32(port),
				TargetPort: intstr.FromInt32(int32(targetPort)),
				Protocol:   corev1.ProtocolTCP,
			}},
		},
	}, nil
}

func (g *Generator) labels(environment string) map[string]string {
	labels := map[string]string{"app": g.config.Name}
	if environment != "" {
		labels[EnvironmentLabel] = environment
	}
	return labels
}

// Marshal serializes a Kubernetes object as YAML.
func Marshal(obj any) ([]byte, error) {
	out, err := yaml.Marshal(obj)
	if err != nil {
		return nil, fmt.Errorf("failed to encode manifest: %w", err)
	}
	return out, nil
}

func resourceList(resources map[string]string) (corev1.ResourceList, error) {
	list := corev1.ResourceList{}
	for name, value := range resources {
		q, err := resource.ParseQuantity(value)
		if err != nil {
			return nil, invalid("Cannot render deployment",
				fmt.Sprintf("resource %s has invalid quantity '%s'", name, value),
				"Use Kubernetes quantities such as 100m or 128Mi")
		}
		list[corev1.ResourceName(name)] = q
	}
	return list, nil
}

func invalid(context, cause, suggestion string) error {
	return pgerrors.NewInvalidArgumentError(context, cause, suggestion, fmt.Errorf("%s: %s", strings.ToLower(context), cause))
}
