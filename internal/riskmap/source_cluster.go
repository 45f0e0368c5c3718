package riskmap

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"

	"github.com/riskmap/cli/internal/config"
)

// ProjectContextGVR addresses the ProjectContext custom resource.
var ProjectContextGVR = schema.GroupVersionResource{
	Group:    "riskmap.io",
	Version:  "v1alpha1",
	Resource: "projectcontexts",
}

// clusterSource fetches a ProjectContext custom resource named after the
// workspace directory. It is the last and most expensive source variant;
// any transport, auth, or not-found failure is a miss.
type clusterSource struct {
	namespace  string
	kubeconfig string

	initOnce sync.Once
	client   dynamic.Interface
	initErr  error
}

func newClusterSource(cfg *config.Config) *clusterSource {
	return &clusterSource{
		namespace:  cfg.Namespace,
		kubeconfig: cfg.Kubeconfig,
	}
}

// newClusterSourceWithClient skips client construction, for tests.
func newClusterSourceWithClient(client dynamic.Interface, namespace string) *clusterSource {
	s := &clusterSource{namespace: namespace, client: client}
	s.initOnce.Do(func() {})
	return s
}

func (s *clusterSource) Name() string { return "cluster" }

func (s *clusterSource) Load(ctx context.Context, ws Workspace) (*ConfigEntry, error) {
	s.initOnce.Do(func() {
		s.client, s.initErr = buildDynamicClient(s.kubeconfig)
	})
	if s.initErr != nil {
		return nil, fmt.Errorf("cluster client: %w", s.initErr)
	}

	name := resourceNameForWorkspace(ws)
	obj, err := s.client.Resource(ProjectContextGVR).Namespace(s.namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return nil, fmt.Errorf("get projectcontext %s/%s: %w", s.namespace, name, err)
	}

	spec, ok := obj.Object["spec"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("projectcontext %s/%s: missing spec", s.namespace, name)
	}

	// Round-trip through JSON so the unstructured spec shares the marker
	// document's decode path, enum validation included.
	raw, err := json.Marshal(spec)
	if err != nil {
		return nil, fmt.Errorf("projectcontext %s/%s: %w", s.namespace, name, err)
	}
	var entry ConfigEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, fmt.Errorf("projectcontext %s/%s: decode spec: %w", s.namespace, name, err)
	}
	if entry.Identifier == "" {
		entry.Identifier = name
	}
	entry.SourcePath = fmt.Sprintf("%s/%s/%s", ProjectContextGVR.GroupResource(), s.namespace, name)
	entry.LoadedAt = time.Now()
	return &entry, nil
}

// buildDynamicClient tries in-cluster configuration first, then the
// kubeconfig override, then KUBECONFIG, then ~/.kube/config.
func buildDynamicClient(kubeconfig string) (dynamic.Interface, error) {
	restCfg, err := rest.InClusterConfig()
	if err != nil {
		restCfg, err = buildConfigFromKubeconfig(kubeconfig)
		if err != nil {
			return nil, err
		}
	}
	return dynamic.NewForConfig(restCfg)
}

func buildConfigFromKubeconfig(kubeconfig string) (*rest.Config, error) {
	path := kubeconfig
	if path == "" {
		path = os.Getenv("KUBECONFIG")
	}
	if path == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, ".kube", "config")
	}

	restCfg, err := clientcmd.BuildConfigFromFlags("", path)
	if err != nil {
		return nil, fmt.Errorf("failed to build config from kubeconfig: %w", err)
	}
	return restCfg, nil
}

// resourceNameForWorkspace derives a DNS-1123 style resource name from
// the workspace directory name.
func resourceNameForWorkspace(ws Workspace) string {
	name := strings.ToLower(filepath.Base(ws.Root))
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	return strings.Trim(b.String(), "-")
}
