package orchestrator

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/compose"

	nodex "github.com/calplan/calplan/agent/nodes"
)

func (o *Orchestrator) compileHandleTurnGraph(
	ctx context.Context,
) (compose.Runnable[nodex.GraphInput, nodex.GraphOutput], error) {
	graph := compose.NewGraph[nodex.GraphInput, nodex.GraphOutput]()

	if err := graph.AddLambdaNode("validate_request",
		compose.InvokableLambda(func(ctx context.Context, in nodex.GraphInput) (*nodex.GraphState, error) {
			return nodex.ValidateRequest(in, o.now)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node validate_request: %w", err)
	}

	if err := graph.AddLambdaNode("load_session",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.LoadSession(ctx, in, o.store)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node load_session: %w", err)
	}

	if err := graph.AddLambdaNode("classify_input",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.ClassifyInput(ctx, in, o.nlu)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node classify_input: %w", err)
	}

	if err := graph.AddLambdaNode(nodex.NodeExtractDetails,
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.ExtractDetails(ctx, in, o.nlu, o.defaultTimezone)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node extract_details: %w", err)
	}

	if err := graph.AddLambdaNode("check_completeness",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.CheckCompleteness(in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node check_completeness: %w", err)
	}

	if err := graph.AddLambdaNode(nodex.NodeAskMissing,
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.AskMissing(in, o.defaultTimezone)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node ask_missing: %w", err)
	}

	if err := graph.AddLambdaNode(nodex.NodePresentConfirmation,
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.PresentConfirmation(in, o.defaultTimezone)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node present_confirmation: %w", err)
	}

	if err := graph.AddLambdaNode(nodex.NodeCreateMeeting,
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.CreateMeeting(ctx, in, o.tools, o.organizerEmail, o.defaultTimezone)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node create_meeting: %w", err)
	}

	if err := graph.AddLambdaNode(nodex.NodeGeneralReply,
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.GeneralReply(ctx, in, o.nlu)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node general_reply: %w", err)
	}

	if err := graph.AddLambdaNode("save_session",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.SaveSession(ctx, in, o.store)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node save_session: %w", err)
	}

	if err := graph.AddLambdaNode("finalize_reply",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (nodex.GraphOutput, error) {
			return nodex.FinalizeReply(in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node finalize_reply: %w", err)
	}

	classifyBranch := compose.NewGraphBranch(
		func(ctx context.Context, in *nodex.GraphState) (string, error) {
			return nodex.RouteAfterClassify(in)
		},
		map[string]bool{
			nodex.NodeExtractDetails: true,
			nodex.NodeCreateMeeting:  true,
			nodex.NodeGeneralReply:   true,
		},
	)
	if err := graph.AddBranch("classify_input", classifyBranch); err != nil {
		return nil, fmt.Errorf("add classify branch: %w", err)
	}

	completenessBranch := compose.NewGraphBranch(
		func(ctx context.Context, in *nodex.GraphState) (string, error) {
			return nodex.RouteAfterCompleteness(in)
		},
		map[string]bool{
			nodex.NodePresentConfirmation: true,
			nodex.NodeAskMissing:          true,
		},
	)
	if err := graph.AddBranch("check_completeness", completenessBranch); err != nil {
		return nil, fmt.Errorf("add completeness branch: %w", err)
	}

	edges := [][2]string{
		{compose.START, "validate_request"},
		{"validate_request", "load_session"},
		{"load_session", "classify_input"},
		{nodex.NodeExtractDetails, "check_completeness"},
		{nodex.NodeAskMissing, "save_session"},
		{nodex.NodePresentConfirmation, "save_session"},
		{nodex.NodeCreateMeeting, "save_session"},
		{nodex.NodeGeneralReply, "save_session"},
		{"save_session", "finalize_reply"},
		{"finalize_reply", compose.END},
	}

	for _, edge := range edges {
		if err := graph.AddEdge(edge[0], edge[1]); err != nil {
			return nil, fmt.Errorf("add edge %s->%s: %w", edge[0], edge[1], err)
		}
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName("planner.handle_turn"))
	if err != nil {
		return nil, fmt.Errorf("compile planner graph: %w", err)
	}
	return runner, nil
}
