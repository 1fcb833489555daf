package observability_test

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"

	"github.com/aretw0/storyflow"
	"github.com/aretw0/storyflow/pkg/adapters/memory"
	"github.com/aretw0/storyflow/pkg/domain"
	"github.com/aretw0/storyflow/pkg/dsl"
	"github.com/aretw0/storyflow/pkg/observability"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Hooks(t *testing.T) {
	b := dsl.New("main")
	b.Add("start").Entry().Go("pay")
	b.Add("pay").Instruction(dsl.Assign("mc.gold", "subtract", 2)).Go("end")
	b.Add("end").Exit(domain.ExitTerminal, "")
	loader, err := memory.NewLoader(b.MustBuild())
	require.NoError(t, err)
	loader.SetVariables(map[string]domain.Variable{
		"mc.gold": domain.NewVariable("mc.gold", domain.KindNumber, 5),
	})

	metrics := observability.NewMetrics()
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	hooks := observability.Chain(metrics.Hooks(), observability.LogHooks(logger))

	engine, err := storyflow.New("", storyflow.WithLoader(loader), storyflow.WithLifecycleHooks(hooks))
	require.NoError(t, err)

	ctx := context.Background()
	state, err := engine.Start(ctx, "s1", "main", "")
	require.NoError(t, err)
	for !state.Terminated() {
		_, state, err = engine.Step(ctx, state)
		require.NoError(t, err)
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.Steps.WithLabelValues("main", string(domain.ResultAdvanced))))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Steps.WithLabelValues("main", string(domain.ResultFinished))))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.NodeVisits.WithLabelValues("main", string(domain.NodeTypeInstruction))))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.VariableChanges.WithLabelValues("mc.gold")))

	assert.Contains(t, logs.String(), "variable change")
	assert.Contains(t, logs.String(), "session_id=s1")
}

func TestMetrics_Handler(t *testing.T) {
	metrics := observability.NewMetrics(observability.WithRuntimeMetrics())
	metrics.Steps.WithLabelValues("main", "advanced").Inc()

	rec := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `storyflow_steps_total{graph_id="main",result="advanced"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}

func TestChain_SkipsNil(t *testing.T) {
	var calls []string
	hooks := observability.Chain(
		domain.LifecycleHooks{OnStep: func(context.Context, *domain.StepEvent) { calls = append(calls, "a") }},
		domain.LifecycleHooks{},
		domain.LifecycleHooks{OnStep: func(context.Context, *domain.StepEvent) { calls = append(calls, "b") }},
	)

	assert.Nil(t, hooks.OnNodeEnter)
	assert.Nil(t, hooks.OnVariableChange)
	hooks.OnStep(context.Background(), &domain.StepEvent{})
	assert.Equal(t, []string{"a", "b"}, calls)
}
