package riskmap

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/runtime/schema"
	dynamicfake "k8s.io/client-go/dynamic/fake"
)

func fakeProjectContext(name string, spec map[string]interface{}) *unstructured.Unstructured {
	return &unstructured.Unstructured{Object: map[string]interface{}{
		"apiVersion": "riskmap.io/v1alpha1",
		"kind":       "ProjectContext",
		"metadata": map[string]interface{}{
			"name":      name,
			"namespace": "default",
		},
		"spec": spec,
	}}
}

func newFakeClusterSource(t *testing.T, objects ...runtime.Object) *clusterSource {
	t.Helper()
	scheme := runtime.NewScheme()
	client := dynamicfake.NewSimpleDynamicClientWithCustomListKinds(
		scheme,
		map[schema.GroupVersionResource]string{ProjectContextGVR: "ProjectContextList"},
		objects...,
	)
	return newClusterSourceWithClient(client, "default")
}

func TestClusterSourceLoadsResource(t *testing.T) {
	src := newFakeClusterSource(t, fakeProjectContext("payments", map[string]interface{}{
		"identifier":  "payments-platform",
		"criticality": "critical",
		"owner":       "payments-team",
		"risks": []interface{}{
			map[string]interface{}{
				"title":    "Double charge on retry",
				"priority": "P1",
				"scope":    []interface{}{"billing/**"},
			},
		},
	}))

	entry, err := src.Load(context.Background(), Workspace{ID: "/home/dev/payments", Root: "/home/dev/payments"})
	require.NoError(t, err)
	require.NotNil(t, entry)

	assert.Equal(t, "payments-platform", entry.Identifier)
	assert.Equal(t, CriticalityCritical, entry.Criticality)
	require.Len(t, entry.Risks, 1)
	assert.Equal(t, []string{"billing/**"}, entry.Risks[0].Scope)
	assert.Contains(t, entry.SourcePath, "projectcontexts.riskmap.io")
}

func TestClusterSourceNotFoundIsMiss(t *testing.T) {
	src := newFakeClusterSource(t)

	entry, err := src.Load(context.Background(), Workspace{ID: "/home/dev/unknown", Root: "/home/dev/unknown"})
	assert.Error(t, err)
	assert.Nil(t, entry)
}

func TestClusterSourceMissingSpecIsMiss(t *testing.T) {
	obj := fakeProjectContext("payments", nil)
	delete(obj.Object, "spec")
	src := newFakeClusterSource(t, obj)

	entry, err := src.Load(context.Background(), Workspace{ID: "/home/dev/payments", Root: "/home/dev/payments"})
	assert.Error(t, err)
	assert.Nil(t, entry)
}

func TestResourceNameForWorkspace(t *testing.T) {
	tests := []struct {
		root string
		want string
	}{
		{"/home/dev/payments", "payments"},
		{"/home/dev/My_Project", "my-project"},
		{"/home/dev/svc.api", "svc-api"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, resourceNameForWorkspace(Workspace{Root: tt.root}))
	}
}
