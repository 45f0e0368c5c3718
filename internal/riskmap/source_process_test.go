package riskmap

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessSourceParsesExport(t *testing.T) {
	var gotName string
	var gotArgs []string
	src := &processSource{
		command: "riskmapctl",
		timeout: time.Second,
		run: func(_ context.Context, name string, args ...string) ([]byte, error) {
			gotName = name
			gotArgs = args
			return []byte(`{"identifier":"checkout","criticality":"high","risks":[{"title":"Cart loss","priority":"P2","scope":["cart/**"]}]}`), nil
		},
	}

	entry, err := src.Load(context.Background(), Workspace{ID: "/ws", Root: "/ws"})
	require.NoError(t, err)
	require.NotNil(t, entry)

	assert.Equal(t, "riskmapctl", gotName)
	assert.Equal(t, []string{"context", "export", "--root", "/ws", "--output", "json"}, gotArgs)
	assert.Equal(t, "checkout", entry.Identifier)
	assert.Equal(t, CriticalityHigh, entry.Criticality)
	assert.Equal(t, "riskmapctl", entry.SourcePath)
}

func TestProcessSourceNonzeroExitIsMiss(t *testing.T) {
	src := &processSource{
		command: "riskmapctl",
		timeout: time.Second,
		run: func(_ context.Context, _ string, _ ...string) ([]byte, error) {
			return nil, errors.New("exit status 2")
		},
	}

	entry, err := src.Load(context.Background(), Workspace{ID: "/ws", Root: "/ws"})
	assert.Error(t, err)
	assert.Nil(t, entry)
}

func TestProcessSourceMalformedOutputIsMiss(t *testing.T) {
	src := &processSource{
		command: "riskmapctl",
		timeout: time.Second,
		run: func(_ context.Context, _ string, _ ...string) ([]byte, error) {
			return []byte("not json"), nil
		},
	}

	entry, err := src.Load(context.Background(), Workspace{ID: "/ws", Root: "/ws"})
	assert.Error(t, err)
	assert.Nil(t, entry)
}

func TestProcessSourceTimeoutIsMiss(t *testing.T) {
	src := &processSource{
		command: "riskmapctl",
		timeout: 10 * time.Millisecond,
		run: func(ctx context.Context, _ string, _ ...string) ([]byte, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}

	start := time.Now()
	entry, err := src.Load(context.Background(), Workspace{ID: "/ws", Root: "/ws"})
	assert.Error(t, err)
	assert.Nil(t, entry)
	assert.Less(t, time.Since(start), time.Second, "the timeout must bound the call")
}
