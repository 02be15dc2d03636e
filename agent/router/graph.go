package router

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/compose"
	nodex "github.com/tanpawarit/hr-leave-assistant/agent/nodes"
)

func (r *Router) compileAskGraph(
	ctx context.Context,
) (compose.Runnable[nodex.GraphInput, nodex.GraphOutput], error) {
	graph := compose.NewGraph[nodex.GraphInput, nodex.GraphOutput]()

	if err := graph.AddLambdaNode("validate_request",
		compose.InvokableLambda(func(ctx context.Context, in nodex.GraphInput) (*nodex.GraphState, error) {
			return nodex.ValidateRequest(in, r.now)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node validate_request: %w", err)
	}

	if err := graph.AddLambdaNode("load_conversation",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.LoadConversation(ctx, in, r.deps.Conversations)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node load_conversation: %w", err)
	}

	if err := graph.AddLambdaNode("init_session",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.InitSession(in, r.deps.SystemPrompt)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node init_session: %w", err)
	}

	if err := graph.AddLambdaNode("route",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.Route(ctx, in, nodex.RouteDeps{
				Reasoner:     r.deps.Reasoner,
				Capabilities: r.deps.Capabilities,
				MaxRounds:    r.maxRounds,
				Metrics:      r.deps.Metrics,
			})
		}),
	); err != nil {
		return nil, fmt.Errorf("add node route: %w", err)
	}

	if err := graph.AddLambdaNode("save_conversation",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.SaveConversation(ctx, in, r.deps.Conversations)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node save_conversation: %w", err)
	}

	if err := graph.AddLambdaNode("finalize_reply",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (nodex.GraphOutput, error) {
			return nodex.FinalizeReply(in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node finalize_reply: %w", err)
	}

	edges := [][2]string{
		{compose.START, "validate_request"},
		{"validate_request", "load_conversation"},
		{"load_conversation", "init_session"},
		{"init_session", "route"},
		{"route", "save_conversation"},
		{"save_conversation", "finalize_reply"},
		{"finalize_reply", compose.END},
	}

	for _, edge := range edges {
		if err := graph.AddEdge(edge[0], edge[1]); err != nil {
			return nil, fmt.Errorf("add edge %s->%s: %w", edge[0], edge[1], err)
		}
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName("router.ask"))
	if err != nil {
		return nil, fmt.Errorf("compile router graph: %w", err)
	}
	return runner, nil
}
