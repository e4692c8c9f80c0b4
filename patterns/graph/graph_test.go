package graph

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"
)

// stubNode writes a single field and a trace entry.
func stubNode(key string, value any) NodeExecutor {
	return NodeExecutorFunc(func(ctx context.Context, input *NodeInput) (Patch, error) {
		return Trace(key).Set(key, value), nil
	})
}

// delayedNode sleeps before writing its field, honoring cancellation.
func delayedNode(key string, delay time.Duration) NodeExecutor {
	return NodeExecutorFunc(func(ctx context.Context, input *NodeInput) (Patch, error) {
		select {
		case <-time.After(delay):
			return Trace(key).Set(key, "done"), nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	})
}

// failingNode always errors.
func failingNode(message string) NodeExecutor {
	return NodeExecutorFunc(func(ctx context.Context, input *NodeInput) (Patch, error) {
		return nil, errors.New(message)
	})
}

// trackingNode records its invocation into order under mu.
func trackingNode(name string, mu *sync.Mutex, order *[]string) NodeExecutor {
	return NodeExecutorFunc(func(ctx context.Context, input *NodeInput) (Patch, error) {
		mu.Lock()
		*order = append(*order, name)
		mu.Unlock()
		return Trace(name).Set(name, "ok"), nil
	})
}

func TestBuilderValidation(t *testing.T) {
	tests := []struct {
		name    string
		build   func() (*Graph[string], error)
		wantErr string
	}{
		{
			name: "empty node name",
			build: func() (*Graph[string], error) {
				return NewBuilder[string](nil).
					AddNode("", stubNode("a", 1)).
					Build()
			},
			wantErr: "node name must not be empty",
		},
		{
			name: "nil executor",
			build: func() (*Graph[string], error) {
				return NewBuilder[string](nil).
					AddNode("a", nil).
					Build()
			},
			wantErr: "executor must not be nil",
		},
		{
			name: "duplicate node",
			build: func() (*Graph[string], error) {
				return NewBuilder[string](nil).
					AddNode("a", stubNode("a", 1)).
					AddNode("a", stubNode("a", 2)).
					Build()
			},
			wantErr: "duplicate node name",
		},
		{
			name: "self loop",
			build: func() (*Graph[string], error) {
				return NewBuilder[string](nil).
					AddNode("a", stubNode("a", 1)).
					AddEdge("a", "a").
					Build()
			},
			wantErr: "self-loop",
		},
		{
			name: "duplicate edge",
			build: func() (*Graph[string], error) {
				return NewBuilder[string](nil).
					AddNode("a", stubNode("a", 1)).
					AddNode("b", stubNode("b", 1)).
					AddEdge("a", "b").
					AddEdge("a", "b").
					Build()
			},
			wantErr: "duplicate edge",
		},
		{
			name: "empty graph",
			build: func() (*Graph[string], error) {
				return NewBuilder[string](nil).Build()
			},
			wantErr: "at least one node",
		},
		{
			name: "missing entry node",
			build: func() (*Graph[string], error) {
				return NewBuilder[string](nil).
					AddNode("a", stubNode("a", 1)).
					SetEntry("ghost").
					Build()
			},
			wantErr: "does not exist",
		},
		{
			name: "entry with upstream edges",
			build: func() (*Graph[string], error) {
				return NewBuilder[string](nil).
					AddNode("a", stubNode("a", 1)).
					AddNode("b", stubNode("b", 1)).
					AddEdge("a", "b").
					SetEntry("b").
					Build()
			},
			wantErr: "has upstream edges",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.build()
			if err == nil {
				t.Fatalf("expected error containing %q, got nil", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want it to contain %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestBuilderUnknownNodeError(t *testing.T) {
	_, err := NewBuilder[string](nil).
		AddNode("a", stubNode("a", 1)).
		AddEdge("a", "ghost").
		Build()
	if err == nil {
		t.Fatal("expected error, got nil")
	}

	var unknownErr *UnknownNodeError
	if !errors.As(err, &unknownErr) {
		t.Fatalf("expected *UnknownNodeError, got %T: %v", err, err)
	}
	if unknownErr.Missing != "ghost" {
		t.Errorf("Missing = %q, want %q", unknownErr.Missing, "ghost")
	}
}

func TestBuilderCycleError(t *testing.T) {
	_, err := NewBuilder[string](nil).
		AddNode("a", stubNode("a", 1)).
		AddNode("b", stubNode("b", 1)).
		AddNode("c", stubNode("c", 1)).
		AddEdge("a", "b").
		AddEdge("b", "c").
		AddEdge("c", "a").
		Build()
	if err == nil {
		t.Fatal("expected cycle error, got nil")
	}

	var cycleErr *CycleError
	if !errors.As(err, &cycleErr) {
		t.Fatalf("expected *CycleError, got %T: %v", err, err)
	}
	for _, name := range []string{"a", "b", "c"} {
		found := false
		for _, cycleNode := range cycleErr.Nodes {
			if cycleNode == name {
				found = true
			}
		}
		if !found {
			t.Errorf("cycle nodes %v missing %q", cycleErr.Nodes, name)
		}
	}
}

// TestTopologicalOrderRandomDAGs builds random layered DAGs and checks
// that no node ever runs before one of its upstreams.
func TestTopologicalOrderRandomDAGs(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for trial := 0; trial < 20; trial++ {
		nodeCount := 4 + rng.Intn(8)

		var mu sync.Mutex
		var order []string

		builder := NewBuilder[string](nil)
		names := make([]string, nodeCount)
		for i := 0; i < nodeCount; i++ {
			names[i] = fmt.Sprintf("n%d", i)
			builder.AddNode(names[i], trackingNode(names[i], &mu, &order))
		}

		// Edges only point forward in index order, so the graph stays
		// acyclic by construction.
		type pair struct{ from, to string }
		var edges []pair
		for i := 0; i < nodeCount; i++ {
			for j := i + 1; j < nodeCount; j++ {
				if rng.Float64() < 0.3 {
					builder.AddEdge(names[i], names[j])
					edges = append(edges, pair{names[i], names[j]})
				}
			}
		}

		compiled, err := builder.Build()
		if err != nil {
			t.Fatalf("trial %d: build failed: %v", trial, err)
		}

		if _, _, err := compiled.Execute(context.Background(), nil); err != nil {
			t.Fatalf("trial %d: execute failed: %v", trial, err)
		}

		position := make(map[string]int, len(order))
		for index, name := range order {
			position[name] = index
		}
		for _, graphEdge := range edges {
			if position[graphEdge.from] > position[graphEdge.to] {
				t.Errorf("trial %d: %q ran before its upstream %q", trial, graphEdge.to, graphEdge.from)
			}
		}
	}
}

// TestParallelBranches checks two independent delayed branches overlap
// rather than serialize.
func TestParallelBranches(t *testing.T) {
	const delay = 60 * time.Millisecond

	compiled, err := NewBuilder[string](nil).
		AddNode("root", stubNode("root", "ok")).
		AddNode("left", delayedNode("left", delay)).
		AddNode("right", delayedNode("right", delay)).
		AddNode("join", stubNode("out", "joined")).
		AddEdge("root", "left").
		AddEdge("root", "right").
		AddEdge("left", "join").
		AddEdge("right", "join").
		Build()
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}

	started := time.Now()
	if _, _, err := compiled.Execute(context.Background(), nil); err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	elapsed := time.Since(started)

	if elapsed >= 2*delay {
		t.Errorf("branches serialized: run took %v, want < %v", elapsed, 2*delay)
	}
}

// TestTraceSetInvariant runs the same fan-out graph repeatedly and checks
// the set of trace entries never changes even if completion order does.
func TestTraceSetInvariant(t *testing.T) {
	compiled, err := NewBuilder[string](nil).
		AddNode("root", stubNode("root", "ok")).
		AddNode("a", stubNode("a", 1)).
		AddNode("b", stubNode("b", 2)).
		AddNode("c", stubNode("c", 3)).
		AddNode("join", stubNode("out", "done")).
		AddEdge("root", "a").
		AddEdge("root", "b").
		AddEdge("root", "c").
		AddEdge("a", "join").
		AddEdge("b", "join").
		AddEdge("c", "join").
		Build()
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}

	want := []string{"a", "b", "c", "join", "root"}

	for run := 0; run < 25; run++ {
		_, report, err := compiled.Execute(context.Background(), nil)
		if err != nil {
			t.Fatalf("run %d failed: %v", run, err)
		}
		got := append([]string(nil), report.Trace...)
		sort.Strings(got)
		if len(got) != len(want) {
			t.Fatalf("run %d: trace = %v, want set %v", run, got, want)
		}
		for index := range want {
			if got[index] != want[index] {
				t.Fatalf("run %d: trace = %v, want set %v", run, got, want)
			}
		}
	}
}

func TestFailFastReturnsNodeError(t *testing.T) {
	compiled, err := NewBuilder[string](nil).
		AddNode("boom", failingNode("provider exploded")).
		AddNode("after", stubNode("out", "never")).
		AddEdge("boom", "after").
		Build()
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}

	_, report, err := compiled.Execute(context.Background(), nil)
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !strings.Contains(err.Error(), "provider exploded") {
		t.Errorf("error = %q, want it to mention the node failure", err.Error())
	}
	if report.Statuses["boom"] != NodeFailed {
		t.Errorf("boom status = %q, want %q", report.Statuses["boom"], NodeFailed)
	}
	if report.Statuses["after"] == NodeCompleted {
		t.Errorf("downstream node ran after fail_fast failure")
	}
}

func TestContinueOnErrorSkipsDependentsOnly(t *testing.T) {
	compiled, err := NewBuilder[string](nil, WithErrorStrategy(ErrorStrategyContinueOnError), WithOutputKey("out")).
		AddNode("root", stubNode("root", "ok")).
		AddNode("broken", failingNode("bad feed")).
		AddNode("healthy", stubNode("out", "still here")).
		AddNode("dependent", stubNode("dep", "never")).
		AddEdge("root", "broken").
		AddEdge("root", "healthy").
		AddEdge("broken", "dependent").
		Build()
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}

	output, report, err := compiled.Execute(context.Background(), nil)
	if err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	if output != "still here" {
		t.Errorf("output = %q, want %q", output, "still here")
	}
	if report.Statuses["broken"] != NodeFailed {
		t.Errorf("broken status = %q, want %q", report.Statuses["broken"], NodeFailed)
	}
	if report.Statuses["dependent"] != NodeSkipped {
		t.Errorf("dependent status = %q, want %q", report.Statuses["dependent"], NodeSkipped)
	}
	if report.Statuses["healthy"] != NodeCompleted {
		t.Errorf("healthy status = %q, want %q", report.Statuses["healthy"], NodeCompleted)
	}
	if report.NodeErrors["broken"] == nil {
		t.Error("expected broken node error in report")
	}
}

func TestNodeTimeout(t *testing.T) {
	compiled, err := NewBuilder[string](nil).
		AddNode("slow", delayedNode("slow", 200*time.Millisecond), WithNodeTimeout(20*time.Millisecond)).
		Build()
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}

	_, report, err := compiled.Execute(context.Background(), nil)
	if err == nil {
		t.Fatal("expected timeout error, got nil")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("error = %v, want context.DeadlineExceeded", err)
	}
	if report.Statuses["slow"] != NodeFailed {
		t.Errorf("slow status = %q, want %q", report.Statuses["slow"], NodeFailed)
	}
}

func TestExecutionTimeout(t *testing.T) {
	compiled, err := NewBuilder[string](nil, WithExecutionTimeout(30*time.Millisecond)).
		AddNode("a", delayedNode("a", 10*time.Millisecond)).
		AddNode("b", delayedNode("b", 200*time.Millisecond)).
		AddEdge("a", "b").
		Build()
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}

	_, _, err = compiled.Execute(context.Background(), nil)
	if err == nil {
		t.Fatal("expected run timeout, got nil")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("error = %v, want context.DeadlineExceeded", err)
	}
}

func TestEdgeConditionSkips(t *testing.T) {
	condition := func(ctx context.Context, result *NodeResult, state *State) bool {
		return state.String("mode") == "verbose"
	}

	compiled, err := NewBuilder[string](nil, WithOutputKey("out")).
		AddNode("root", stubNode("root", "ok")).
		AddNode("optional", stubNode("optional", "extra")).
		AddNode("sink", stubNode("out", "done")).
		AddEdge("root", "optional", WithEdgeCondition(condition)).
		AddEdge("root", "sink").
		Build()
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}

	_, report, err := compiled.Execute(context.Background(), map[string]any{"mode": "terse"})
	if err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	if report.Statuses["optional"] != NodeSkipped {
		t.Errorf("optional status = %q, want %q", report.Statuses["optional"], NodeSkipped)
	}

	_, report, err = compiled.Execute(context.Background(), map[string]any{"mode": "verbose"})
	if err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	if report.Statuses["optional"] != NodeCompleted {
		t.Errorf("optional status = %q, want %q", report.Statuses["optional"], NodeCompleted)
	}
}

func TestMaxConcurrencyLimitsParallelism(t *testing.T) {
	var mu sync.Mutex
	running, peak := 0, 0

	counting := NodeExecutorFunc(func(ctx context.Context, input *NodeInput) (Patch, error) {
		mu.Lock()
		running++
		if running > peak {
			peak = running
		}
		mu.Unlock()

		time.Sleep(20 * time.Millisecond)

		mu.Lock()
		running--
		mu.Unlock()
		return Patch{}, nil
	})

	builder := NewBuilder[string](nil, WithMaxConcurrency(2))
	for i := 0; i < 6; i++ {
		builder.AddNode(fmt.Sprintf("n%d", i), counting)
	}
	compiled, err := builder.Build()
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}

	if _, _, err := compiled.Execute(context.Background(), nil); err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	if peak > 2 {
		t.Errorf("peak concurrency = %d, want <= 2", peak)
	}
}

// TestConcurrentExecutes runs one compiled graph from many goroutines with
// disjoint inputs and checks results never bleed between runs.
func TestConcurrentExecutes(t *testing.T) {
	echo := NodeExecutorFunc(func(ctx context.Context, input *NodeInput) (Patch, error) {
		return Trace("echo").Set("out", "echo:"+input.State.String("seed")), nil
	})

	compiled, err := NewBuilder[string](nil, WithOutputKey("out")).
		AddNode("echo", echo).
		Build()
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}

	var waitGroup sync.WaitGroup
	for i := 0; i < 32; i++ {
		waitGroup.Add(1)
		go func(i int) {
			defer waitGroup.Done()
			seed := fmt.Sprintf("run-%d", i)
			output, _, err := compiled.Execute(context.Background(), map[string]any{"seed": seed})
			if err != nil {
				t.Errorf("run %d failed: %v", i, err)
				return
			}
			if output != "echo:"+seed {
				t.Errorf("run %d: output = %q, want %q", i, output, "echo:"+seed)
			}
		}(i)
	}
	waitGroup.Wait()
}

func TestFallbackOnMissingOutput(t *testing.T) {
	compiled, err := NewBuilder[string](nil, WithOutputKey("answer")).
		Fallback("nothing to report").
		AddNode("quiet", stubNode("other", "value")).
		Build()
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}

	output, _, err := compiled.Execute(context.Background(), nil)
	if err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	if output != "nothing to report" {
		t.Errorf("output = %q, want fallback", output)
	}
}

func TestOutputParsedFromJSONString(t *testing.T) {
	type verdict struct {
		Risk  string `json:"risk"`
		Score int    `json:"score"`
	}

	compiled, err := NewBuilder[verdict](nil, WithOutputKey("verdict")).
		AddNode("judge", stubNode("verdict", `{"risk": "low", "score": 3}`)).
		Build()
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}

	output, _, err := compiled.Execute(context.Background(), nil)
	if err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	if output.Risk != "low" || output.Score != 3 {
		t.Errorf("output = %+v, want risk=low score=3", output)
	}
}

func TestReportCarriesRunMetadata(t *testing.T) {
	compiled, err := NewBuilder[string](nil, WithOutputKey("out")).
		AddNode("only", stubNode("out", "ok")).
		Build()
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}

	_, first, err := compiled.Execute(context.Background(), nil)
	if err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	_, second, err := compiled.Execute(context.Background(), nil)
	if err != nil {
		t.Fatalf("execute failed: %v", err)
	}

	if first.RunID == "" || first.RunID == second.RunID {
		t.Errorf("run IDs not unique: %q vs %q", first.RunID, second.RunID)
	}
	if _, ok := first.Durations["only"]; !ok {
		t.Error("expected a recorded duration for the executed node")
	}
	if first.State["out"] != "ok" {
		t.Errorf("state snapshot out = %v, want %q", first.State["out"], "ok")
	}
}
