package orchestrator

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/compose"
	nodex "github.com/thoriqalqi/VISTARA/agent/nodes/orchestrator"
)

const (
	nodeValidate = "validate_request"
	nodeFinalize = "finalize"
)

type stage struct {
	name string
	run  func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error)
}

// turnStages run in order between validation and finalization.
func (o *Orchestrator) turnStages() []stage {
	return []stage{
		{"load_context", func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.LoadContext(ctx, in, o.store, o.profiles)
		}},
		{"route_turn", func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.RouteTurn(ctx, in, o.models.Router())
		}},
		{"merge_context", func(_ context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.MergeContext(in)
		}},
		{"dispatch_agents", func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.DispatchAgents(ctx, in, o.models)
		}},
		{"save_context", func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.SaveContext(ctx, in, o.store)
		}},
		{"append_history", func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.AppendHistory(ctx, in, o.history, o.newID)
		}},
	}
}

func (o *Orchestrator) compileHandleMessageGraph(
	ctx context.Context,
) (compose.Runnable[nodex.GraphInput, nodex.GraphOutput], error) {
	graph := compose.NewGraph[nodex.GraphInput, nodex.GraphOutput]()

	if err := graph.AddLambdaNode(nodeValidate,
		compose.InvokableLambda(func(_ context.Context, in nodex.GraphInput) (*nodex.GraphState, error) {
			return nodex.ValidateRequest(in, o.now, o.newID)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node %s: %w", nodeValidate, err)
	}

	order := []string{compose.START, nodeValidate}
	for _, s := range o.turnStages() {
		if err := graph.AddLambdaNode(s.name, compose.InvokableLambda(s.run)); err != nil {
			return nil, fmt.Errorf("add node %s: %w", s.name, err)
		}
		order = append(order, s.name)
	}

	if err := graph.AddLambdaNode(nodeFinalize,
		compose.InvokableLambda(func(_ context.Context, in *nodex.GraphState) (nodex.GraphOutput, error) {
			return nodex.Finalize(in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node %s: %w", nodeFinalize, err)
	}
	order = append(order, nodeFinalize, compose.END)

	for i := 1; i < len(order); i++ {
		if err := graph.AddEdge(order[i-1], order[i]); err != nil {
			return nil, fmt.Errorf("add edge %s->%s: %w", order[i-1], order[i], err)
		}
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName("orchestrator.handle_message"))
	if err != nil {
		return nil, fmt.Errorf("compile orchestrator graph: %w", err)
	}
	return runner, nil
}
