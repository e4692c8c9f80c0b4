// Package graph implements a directed-acyclic-graph workflow engine for
// LLM-driven pipelines. Nodes are named asynchronous steps that read a
// shared run state and return partial-state patches; edges declare
// upstream dependencies. A built Graph is immutable and safe for
// concurrent executions, each of which owns a fresh run state.
//
// Construction goes through Builder, which validates the declaration
// (unique names, existing edge endpoints, acyclicity via Kahn's algorithm)
// and computes the topological levels used by the scheduler. Execution
// runs each level's ready nodes concurrently, merges their patches
// atomically into the run state, and finally extracts the configured
// output field.
//
// Example:
//
//	g, err := graph.NewBuilder[string](provider, graph.WithOutputKey("answer")).
//	    AddNode("fetch", fetchExecutor).
//	    AddNode("analyze", analyzeExecutor).
//	    AddNode("answer", answerExecutor).
//	    AddEdge("fetch", "analyze").
//	    AddEdge("analyze", "answer").
//	    Build()
//	if err != nil {
//	    return err
//	}
//	answer, report, err := g.Execute(ctx, map[string]any{"question": q})
package graph
