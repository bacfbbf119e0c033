package csv

import (
	"fmt"

	operatorsv1alpha1 "github.com/operator-framework/api/pkg/operators/v1alpha1"
	rbacv1 "k8s.io/api/rbac/v1"
	"k8s.io/apimachinery/pkg/runtime"
)

// DeploymentEntry renders a deployment spec as an entry of the install
// strategy deployments list.
func DeploymentEntry(spec operatorsv1alpha1.StrategyDeploymentSpec) (map[string]interface{}, error) {
	out, err := runtime.DefaultUnstructuredConverter.ToUnstructured(&spec)
	if err != nil {
		return nil, fmt.Errorf("error converting deployment %s: %v", spec.Name, err)
	}
	// The empty pod template metadata renders creationTimestamp: null.
	if tmpl, ok := lookupMap(out, "spec", "template", "metadata"); ok {
		delete(tmpl, "creationTimestamp")
		if len(tmpl) == 0 {
			delete(out["spec"].(map[string]interface{})["template"].(map[string]interface{}), "metadata")
		}
	}
	return out, nil
}

// PermissionEntry renders the rules granted to a service account as an entry
// of a permissions list.
func PermissionEntry(serviceAccount string, rules []rbacv1.PolicyRule) (map[string]interface{}, error) {
	perm := operatorsv1alpha1.StrategyDeploymentPermissions{
		ServiceAccountName: serviceAccount,
		Rules:              rules,
	}
	if perm.Rules == nil {
		perm.Rules = []rbacv1.PolicyRule{}
	}
	out, err := runtime.DefaultUnstructuredConverter.ToUnstructured(&perm)
	if err != nil {
		return nil, fmt.Errorf("error converting permissions of %s: %v", serviceAccount, err)
	}
	return out, nil
}

// MergeNamed replaces the entry of list whose key field equals the key of
// entry, or appends entry when there is none. list is not modified.
func MergeNamed(list []interface{}, key string, entry map[string]interface{}) []interface{} {
	out := append([]interface{}(nil), list...)
	for i, item := range out {
		if m, ok := item.(map[string]interface{}); ok && m[key] == entry[key] {
			out[i] = entry
			return out
		}
	}
	return append(out, entry)
}

func lookupMap(m map[string]interface{}, keys ...string) (map[string]interface{}, bool) {
	cur := m
	for _, k := range keys {
		next, ok := cur[k].(map[string]interface{})
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, true
}
