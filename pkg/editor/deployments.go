package editor

import (
	"fmt"

	operatorsv1alpha1 "github.com/operator-framework/api/pkg/operators/v1alpha1"
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/utils/ptr"

	"github.com/operator-framework/csv-editor/pkg/csv"
	"github.com/operator-framework/csv-editor/pkg/editor/status"
	imageutil "github.com/operator-framework/csv-editor/pkg/lib/image"
)

// InstallStrategyDeployment is the only install strategy the editor writes.
const InstallStrategyDeployment = operatorsv1alpha1.InstallStrategyNameDeployment

// DeploymentsPage edits the install strategy deployments.
type DeploymentsPage struct {
	page
}

// EnterDeployments opens the deployments page.
func (s *State) EnterDeployments() *DeploymentsPage {
	return &DeploymentsPage{page: s.newPage(status.Deployments, []string{csv.Deployments.String()})}
}

// Deployments returns the stored deployments list.
func (p *DeploymentsPage) Deployments() []interface{} {
	v, _ := p.state.operator.Lookup(csv.Deployments)
	items, _ := v.([]interface{})
	return items
}

// Names lists the deployment names in order.
func (p *DeploymentsPage) Names() []string {
	var names []string
	for _, item := range p.Deployments() {
		if d, ok := item.(map[string]interface{}); ok {
			name, _ := d["name"].(string)
			names = append(names, name)
		}
	}
	return names
}

// Update stores deployments and validates them against the updated
// document.
func (p *DeploymentsPage) Update(deployments []interface{}) (status.Status, error) {
	doc := p.state.operator.DeepCopy()
	if err := doc.SetPath(csv.InstallStrategy, InstallStrategyDeployment); err != nil {
		return p.Status(), err
	}
	if deployments == nil {
		deployments = []interface{}{}
	}
	if err := doc.SetPath(csv.Deployments, deployments); err != nil {
		return p.Status(), err
	}
	return p.state.commit(p.section, doc, p.fields, csv.Deployments.String()), nil
}

// Add appends a deployment skeleton called name running image.
func (p *DeploymentsPage) Add(name, image string) (status.Status, error) {
	for _, n := range p.Names() {
		if n == name {
			return p.Status(), fmt.Errorf("deployment %q already exists", name)
		}
	}
	d, err := DeploymentSkeleton(name, image)
	if err != nil {
		return p.Status(), err
	}
	return p.Update(append(p.Deployments(), d))
}

// Remove drops the deployment called name.
func (p *DeploymentsPage) Remove(name string) (status.Status, error) {
	items := p.Deployments()
	out := make([]interface{}, 0, len(items))
	found := false
	for _, item := range items {
		if d, ok := item.(map[string]interface{}); ok && d["name"] == name {
			found = true
			continue
		}
		out = append(out, item)
	}
	if !found {
		return p.Status(), fmt.Errorf("deployment %q not found", name)
	}
	return p.Update(out)
}

// DeploymentSkeleton renders a single-replica deployment spec for the
// install strategy.
func DeploymentSkeleton(name, image string) (map[string]interface{}, error) {
	labels := map[string]string{"name": name}
	spec := operatorsv1alpha1.StrategyDeploymentSpec{
		Name: name,
		Spec: appsv1.DeploymentSpec{
			Replicas: ptr.To(int32(1)),
			Selector: &metav1.LabelSelector{MatchLabels: labels},
			Template: corev1.PodTemplateSpec{
				ObjectMeta: metav1.ObjectMeta{Labels: labels},
				Spec: corev1.PodSpec{
					ServiceAccountName: name,
					Containers: []corev1.Container{{
						Name:            name,
						Image:           image,
						ImagePullPolicy: imageutil.InferImagePullPolicy(image),
					}},
				},
			},
		},
	}
	return csv.DeploymentEntry(spec)
}
